package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/assistant"
	"github.com/iris-assistant/backend/internal/middleware/validation"
	"github.com/iris-assistant/backend/pkg/logger"
)

// Assistant answers one chat turn. assistant.Engine implements it.
type Assistant interface {
	HandleMessage(ctx context.Context, req assistant.Request) (*assistant.Reply, error)
}

type ChatHandler struct {
	assistant Assistant
}

func NewChatHandler(a Assistant) *ChatHandler {
	return &ChatHandler{
		assistant: a,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req assistant.Request

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return badRequest(c, "Invalid request body")
	}

	if body, ok := c.Locals(validation.SanitizedBody).(map[string]interface{}); ok {
		if content, ok := body["content"].(string); ok {
			req.Content = content
		}
	}
	req.UserID = userID(c)

	reply, err := h.assistant.HandleMessage(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Erro ao processar mensagem")
	}

	return c.JSON(reply)
}
