package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
	"github.com/vitacoach/coach-backend/internal/store"
)

type OnboardingHandler struct {
	onboarding *services.OnboardingService
}

func NewOnboardingHandler(onboarding *services.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

func (h *OnboardingHandler) Complete(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.OnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.onboarding.Complete(userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrConsentRequired) {
			return badRequest(c, err.Error())
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Onboarding completed", Data: result})
}

func (h *OnboardingHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var updates store.Document
	if err := c.BodyParser(&updates); err != nil || len(updates) == 0 {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.onboarding.Update(userID, updates)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Onboarding updated", Data: result})
}

func (h *OnboardingHandler) Analyze(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	analysis, err := h.onboarding.Analyze(userID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Analysis generated", Data: analysis})
}

func (h *OnboardingHandler) Status(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	status, err := h.onboarding.Status(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Onboarding status retrieved", Data: status})
}
