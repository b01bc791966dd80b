package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) RegisterDevice(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.DeviceRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.notifications.RegisterDevice(userID, req.Token, req.Platform); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Device registered"})
}

func (h *NotificationHandler) Send(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.notifications.Send(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrNoDeviceToken) {
			return c.Status(fiber.StatusFailedDependency).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Notification accepted", Data: result})
}

func (h *NotificationHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	history, err := h.notifications.History(userID, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Notifications retrieved", Data: history})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	result, err := h.notifications.MarkRead(userID, c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Notification not found",
			})
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Notification marked as read", Data: result})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	count, err := h.notifications.UnreadCount(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{
		Success: true, Message: "Unread count retrieved",
		Data: fiber.Map{"unread": count},
	})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.notifications.Delete(userID, c.Params("id")); err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Notification deleted"})
}

func (h *NotificationHandler) ScheduleDaily(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	scheduled, err := h.notifications.ScheduleDaily(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Reminders scheduled", Data: scheduled})
}

func (h *NotificationHandler) UpdatePreferences(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.NotificationPreferences
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.notifications.UpdatePreferences(userID, &req)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Preferences updated", Data: result})
}

// SendBulk is admin-only; the route carries the admin middleware.
func (h *NotificationHandler) SendBulk(c *fiber.Ctx) error {
	var req dto.BulkNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.notifications.SendBulk(&req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Bulk notification processed", Data: result})
}

// DispatchDue lets operators force a dispatch cycle outside the cron
// cadence; admin-only.
func (h *NotificationHandler) DispatchDue(c *fiber.Ctx) error {
	count, err := h.notifications.DispatchDue()
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{
		Success: true, Message: "Dispatch cycle completed",
		Data: fiber.Map{"dispatched": count},
	})
}
