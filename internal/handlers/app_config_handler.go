package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/services"
	"github.com/vitacoach/coach-backend/internal/store"
)

type AppConfigHandler struct {
	appConfig *services.AppConfigService
}

func NewAppConfigHandler(appConfig *services.AppConfigService) *AppConfigHandler {
	return &AppConfigHandler{appConfig: appConfig}
}

func (h *AppConfigHandler) Get(c *fiber.Ctx) error {
	entry, err := h.appConfig.Get(c.Params("key"))
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Config retrieved", Data: entry})
}

func (h *AppConfigHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	entries, err := h.appConfig.List(limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Config listed", Data: entries})
}

func (h *AppConfigHandler) Set(c *fiber.Ctx) error {
	var value store.Document
	if err := c.BodyParser(&value); err != nil || len(value) == 0 {
		return badRequest(c, "Invalid request body")
	}

	if err := h.appConfig.Set(c.Params("key"), value); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Config saved"})
}

func (h *AppConfigHandler) Patch(c *fiber.Ctx) error {
	var value store.Document
	if err := c.BodyParser(&value); err != nil || len(value) == 0 {
		return badRequest(c, "Invalid request body")
	}

	if err := h.appConfig.Patch(c.Params("key"), value); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Config updated"})
}

func (h *AppConfigHandler) Delete(c *fiber.Ctx) error {
	if err := h.appConfig.Delete(c.Params("key")); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Config deleted"})
}
