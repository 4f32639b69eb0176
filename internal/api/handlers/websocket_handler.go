package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/assistant"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

const (
	frameStatus   = "status"
	frameChunk    = "chunk"
	frameComplete = "complete"
	frameError    = "error"
	thinking      = "Pensando..."
)

type frameWriter interface {
	WriteJSON(v interface{}) error
}

type WebSocketHandler struct {
	assistant Assistant
}

func NewWebSocketHandler(a Assistant) *WebSocketHandler {
	return &WebSocketHandler{
		assistant: a,
	}
}

type socketMessage struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// HandleConnection serves one socket. Browsers cannot set headers on the
// upgrade, so the user id comes from the user_id query parameter or the
// message itself. The conversation started by the first reply is reused for
// later messages on the same socket.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	user := strings.TrimSpace(c.Query("user_id"))
	var conversationID string

	for {
		var msg socketMessage

		if err := c.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Error("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		if msg.Type != "message" {
			continue
		}

		req := assistant.Request{
			UserID:         user,
			ConversationID: conversationID,
			Content:        msg.Content,
		}
		if msg.UserID != "" {
			req.UserID = msg.UserID
		}
		if msg.ConversationID != "" {
			req.ConversationID = msg.ConversationID
		}

		reply, err := h.streamResponse(context.Background(), c, req)
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, apperr.MessageOf(err, "Erro ao processar mensagem"))
			continue
		}
		conversationID = reply.ConversationID
	}
}

func (h *WebSocketHandler) streamResponse(ctx context.Context, w frameWriter, req assistant.Request) (*assistant.Reply, error) {
	if err := h.sendChunk(w, frameStatus, thinking); err != nil {
		return nil, err
	}

	reply, err := h.assistant.HandleMessage(ctx, req)
	if err != nil {
		return nil, err
	}

	words := splitIntoWords(reply.Content)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" && words[i+1] != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(w, frameChunk, chunk); err != nil {
			return nil, err
		}
	}

	if err := h.sendComplete(w, reply); err != nil {
		return nil, err
	}

	return reply, nil
}

func (h *WebSocketHandler) sendChunk(w frameWriter, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return w.WriteJSON(msg)
}

func (h *WebSocketHandler) sendComplete(w frameWriter, reply *assistant.Reply) error {
	msg := map[string]interface{}{
		"type":            frameComplete,
		"message_id":      reply.Message.ID,
		"conversation_id": reply.ConversationID,
		"route":           reply.Route,
		"content":         reply.Content,
		"search_used":     reply.SearchUsed,
		"persisted":       reply.Persisted,
	}
	if reply.Action != nil {
		msg["action"] = reply.Action
	}

	return w.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(w frameWriter, errorMsg string) {
	msg := map[string]interface{}{
		"type":  frameError,
		"error": errorMsg,
	}

	if err := w.WriteJSON(msg); err != nil {
		logger.Warn("Failed to send WebSocket error", zap.Error(err))
	}
}

// splitIntoWords breaks text on spaces and keeps every newline as its own
// word so the client can rebuild the layout.
func splitIntoWords(text string) []string {
	words := []string{}
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, char := range text {
		switch char {
		case ' ':
			flush()
		case '\n':
			flush()
			words = append(words, "\n")
		default:
			current.WriteRune(char)
		}
	}
	flush()

	return words
}
