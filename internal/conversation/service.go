// Package conversation owns the chat history of logged-in users: creation on
// the first exchange, append-only messages, rename, delete and listing.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/intent"
	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

const DefaultListLimit = 20

// Store is implemented by the sqlite and redis backends.
type Store interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	AppendMessage(ctx context.Context, userID, conversationID string, msg models.Message) error
	RenameConversation(ctx context.Context, userID, conversationID, title string, at time.Time) error
	TouchConversation(ctx context.Context, userID, conversationID string, at time.Time) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error
	GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit int) ([]models.Conversation, error)
}

type Options struct {
	TitleLimit int
	ListLimit  int
	Location   *time.Location
}

type Service struct {
	store      Store
	titleLimit int
	listLimit  int
	loc        *time.Location
	now        func() time.Time
}

func NewService(store Store, opts Options) *Service {
	if opts.TitleLimit <= 0 {
		opts.TitleLimit = intent.DefaultTitleLimit
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = DefaultListLimit
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Service{
		store:      store,
		titleLimit: opts.TitleLimit,
		listLimit:  opts.ListLimit,
		loc:        opts.Location,
		now:        time.Now,
	}
}

func NewConversationID() string {
	return "conv_" + uuid.NewString()
}

func NewMessage(role models.Role, content string, at time.Time) models.Message {
	return models.Message{
		ID:        "msg_" + uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: at,
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperr.InvalidInput("Usuário não identificado")
	}
	return nil
}

// Start creates a conversation holding first and any following messages.
// Title and category come from first; createdAt is its timestamp.
func (s *Service) Start(ctx context.Context, userID string, first models.Message, rest ...models.Message) (*models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(first.Content) == "" {
		return nil, apperr.InvalidInput("Mensagem vazia")
	}

	messages := append([]models.Message{first}, rest...)
	updated := messages[len(messages)-1].Timestamp

	conv := &models.Conversation{
		ID:           NewConversationID(),
		UserID:       userID,
		Title:        intent.GenerateTitle(first.Content, s.titleLimit),
		Messages:     messages,
		CreatedAt:    first.Timestamp,
		UpdatedAt:    updated,
		Category:     intent.DetectCategory(first.Content),
		MessageCount: len(messages),
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, apperr.Internal("Erro ao salvar conversa", err)
	}

	metrics.ConversationsCreated.Inc()
	for _, m := range messages {
		metrics.MessagesAppended.WithLabelValues(string(m.Role)).Inc()
	}
	logger.Info("Conversation created",
		zap.String("user_id", userID),
		zap.String("conversation_id", conv.ID),
		zap.String("category", string(conv.Category)),
	)
	return conv, nil
}

// Append adds a single message; the store bumps the counter and updatedAt.
func (s *Service) Append(ctx context.Context, userID, conversationID string, msg models.Message) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.AppendMessage(ctx, userID, conversationID, msg); err != nil {
		return wrapStoreErr("Erro ao salvar mensagem", err)
	}
	metrics.MessagesAppended.WithLabelValues(string(msg.Role)).Inc()
	return nil
}

func (s *Service) Rename(ctx context.Context, userID, conversationID, title string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.InvalidInput("O título não pode ficar vazio")
	}
	if err := s.store.RenameConversation(ctx, userID, conversationID, title, s.now()); err != nil {
		return wrapStoreErr("Erro ao renomear conversa", err)
	}
	return nil
}

func (s *Service) Touch(ctx context.Context, userID, conversationID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.TouchConversation(ctx, userID, conversationID, s.now()); err != nil {
		return wrapStoreErr("Erro ao atualizar conversa", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, conversationID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, userID, conversationID); err != nil {
		return wrapStoreErr("Erro ao excluir conversa", err)
	}
	logger.Info("Conversation deleted", zap.String("user_id", userID), zap.String("conversation_id", conversationID))
	return nil
}

func (s *Service) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, wrapStoreErr("Erro ao carregar conversa", err)
	}
	return conv, nil
}

// List returns the most recently updated conversations, without messages.
// A non-positive limit uses the configured default.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.listLimit
	}
	convs, err := s.store.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, wrapStoreErr("Erro ao listar conversas", err)
	}
	return convs, nil
}

func (s *Service) Grouped(ctx context.Context, userID string) ([]models.ConversationGroup, error) {
	convs, err := s.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return GroupByDate(convs, s.now(), s.loc), nil
}

// Domain errors from the store (not found) pass through; anything else is
// an internal failure.
func wrapStoreErr(msg string, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Internal(msg, err)
}
