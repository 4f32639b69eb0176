package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iris-assistant/backend/internal/storage/models"
)

// ConversationService is the part of conversation.Service the API exposes.
type ConversationService interface {
	List(ctx context.Context, userID string, limit int) ([]models.Conversation, error)
	Grouped(ctx context.Context, userID string) ([]models.ConversationGroup, error)
	Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	Rename(ctx context.Context, userID, conversationID, title string) error
	Delete(ctx context.Context, userID, conversationID string) error
}

type ConversationHandler struct {
	service ConversationService
}

func NewConversationHandler(service ConversationService) *ConversationHandler {
	return &ConversationHandler{
		service: service,
	}
}

// RequireUser rejects anonymous callers; history only exists for known users.
func (h *ConversationHandler) RequireUser(c *fiber.Ctx) error {
	if userID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": missingUser,
		})
	}
	return c.Next()
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	convs, err := h.service.List(c.UserContext(), userID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err, "Erro ao listar conversas")
	}

	return c.JSON(fiber.Map{
		"conversations": convs,
		"count":         len(convs),
	})
}

func (h *ConversationHandler) Grouped(c *fiber.Ctx) error {
	groups, err := h.service.Grouped(c.UserContext(), userID(c))
	if err != nil {
		return respondError(c, err, "Erro ao listar conversas")
	}

	return c.JSON(fiber.Map{
		"groups": groups,
	})
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	conv, err := h.service.Get(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Erro ao carregar conversa")
	}

	return c.JSON(conv)
}

func (h *ConversationHandler) Rename(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}

	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	id := c.Params("id")
	if err := h.service.Rename(c.UserContext(), userID(c), id, req.Title); err != nil {
		return respondError(c, err, "Erro ao renomear conversa")
	}

	return c.JSON(fiber.Map{
		"id":    id,
		"title": strings.TrimSpace(req.Title),
	})
}

func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return respondError(c, err, "Erro ao excluir conversa")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
