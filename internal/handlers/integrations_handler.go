package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type IntegrationsHandler struct {
	integrations *services.IntegrationsService
}

func NewIntegrationsHandler(integrations *services.IntegrationsService) *IntegrationsHandler {
	return &IntegrationsHandler{integrations: integrations}
}

func (h *IntegrationsHandler) Nutrition(c *fiber.Ctx) error {
	var req dto.NutritionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	info, err := h.integrations.NutritionInfo(req.FoodItem)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Nutrition info retrieved", Data: info})
}

func (h *IntegrationsHandler) Exercise(c *fiber.Ctx) error {
	var req dto.ExerciseInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	info, err := h.integrations.ExerciseInfo(req.ExerciseName)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Exercise info retrieved", Data: info})
}

func (h *IntegrationsHandler) SyncWearable(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.WearableSyncRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.integrations.SyncWearable(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedProvider) {
			return badRequest(c, err.Error())
		}
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Wearable synced", Data: result})
}

func (h *IntegrationsHandler) Weather(c *fiber.Ctx) error {
	var req dto.WeatherRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	weather, err := h.integrations.Weather(req.Latitude, req.Longitude)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Weather retrieved", Data: weather})
}

func (h *IntegrationsHandler) Trends(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.TrendAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	trend, err := h.integrations.AnalyzeTrend(userID, req.DataType)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Trend analyzed", Data: trend})
}

func (h *IntegrationsHandler) Research(c *fiber.Ctx) error {
	var req dto.ResearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	summary, err := h.integrations.Research(req.Topic, req.Limit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Research retrieved", Data: summary})
}

func (h *IntegrationsHandler) WebSearch(c *fiber.Ctx) error {
	var req dto.WebSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	results, err := h.integrations.WebSearch(req.Query, req.NumResults)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Search completed", Data: results})
}
