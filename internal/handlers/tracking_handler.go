package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type TrackingHandler struct {
	tracking *services.TrackingService
}

func NewTrackingHandler(tracking *services.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

func (h *TrackingHandler) Log(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.TrackingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	day, err := h.tracking.LogDay(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidDate) {
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Tracking saved", Data: day})
}

func (h *TrackingHandler) LogMeal(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var meal dto.MealLog
	if err := c.BodyParser(&meal); err != nil {
		return badRequest(c, "Invalid request body")
	}

	day, err := h.tracking.LogMeal(userID, &meal)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Meal logged", Data: day})
}

func (h *TrackingHandler) LogExercise(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var exercise dto.ExerciseLog
	if err := c.BodyParser(&exercise); err != nil {
		return badRequest(c, "Invalid request body")
	}

	day, err := h.tracking.LogExercise(userID, &exercise)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Exercise logged", Data: day})
}

func (h *TrackingHandler) GetDay(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	day, err := h.tracking.GetDay(userID, c.Params("date"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidDate) {
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	if day == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "No tracking for that date",
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Tracking retrieved", Data: day})
}

func (h *TrackingHandler) DeleteDay(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.tracking.DeleteDay(userID, c.Params("date")); err != nil {
		if errors.Is(err, services.ErrInvalidDate) {
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Tracking deleted"})
}

func (h *TrackingHandler) History(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	days, _ := strconv.Atoi(c.Query("days", "7"))
	history, err := h.tracking.History(userID, days)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "History retrieved", Data: history})
}

func (h *TrackingHandler) Stats(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	stats, err := h.tracking.Stats(userID, c.Query("period", "week"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Stats retrieved", Data: stats})
}
