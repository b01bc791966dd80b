package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/middleware"
	"github.com/vitacoach/coach-backend/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	reply, err := h.chat.SendMessage(userID, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Message sent", Data: reply})
}

func (h *ChatHandler) ListSessions(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	sessions, err := h.chat.ListSessions(userID, limit)
	if err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Sessions retrieved", Data: sessions})
}

func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	session, err := h.chat.GetSession(userID, c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Session retrieved", Data: session})
}

func (h *ChatHandler) DeleteSession(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.chat.DeleteSession(userID, c.Params("id")); err != nil {
		return internalError(c)
	}
	return c.JSON(dto.APIResponse{Success: true, Message: "Session deleted"})
}
