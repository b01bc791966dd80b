package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type InsightHandler struct {
	insights *services.InsightService
}

func NewInsightHandler(insights *services.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

func (h *InsightHandler) Daily(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	insight, err := h.insights.DailyInsight(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Insight generated", Data: insight})
}

func (h *InsightHandler) NextSteps(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	steps, err := h.insights.NextSteps(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Next steps generated", Data: steps})
}

func (h *InsightHandler) Predict(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.PredictionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	prediction, err := h.insights.Predict(userID, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Prediction generated", Data: prediction})
}

func (h *InsightHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	insights, err := h.insights.ListInsights(userID, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Insights retrieved", Data: insights})
}
