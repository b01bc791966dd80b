package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	overview, err := h.dashboard.Overview(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Dashboard retrieved", Data: overview})
}

func (h *DashboardHandler) Streak(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	streak, err := h.dashboard.Streak(userID)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{
		Success: true, Message: "Streak retrieved",
		Data: fiber.Map{"streak_days": streak},
	})
}
