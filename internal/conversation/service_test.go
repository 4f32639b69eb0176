package conversation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
)

type memoryStore struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
}

func newMemoryStore() *memoryStore {
	return &memoryStore{convs: map[string]*models.Conversation{}}
}

func (m *memoryStore) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *conv
	cp.Messages = append([]models.Message(nil), conv.Messages...)
	m.convs[models.DocKey(conv.UserID, conv.ID)] = &cp
	return nil
}

func (m *memoryStore) get(userID, id string) (*models.Conversation, error) {
	conv, ok := m.convs[models.DocKey(userID, id)]
	if !ok {
		return nil, models.ErrConversationNotFound
	}
	return conv, nil
}

func (m *memoryStore) AppendMessage(_ context.Context, userID, id string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, err := m.get(userID, id)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, msg)
	conv.MessageCount = len(conv.Messages)
	conv.UpdatedAt = msg.Timestamp
	return nil
}

func (m *memoryStore) RenameConversation(_ context.Context, userID, id, title string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, err := m.get(userID, id)
	if err != nil {
		return err
	}
	conv.Title = title
	conv.UpdatedAt = at
	return nil
}

func (m *memoryStore) TouchConversation(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, err := m.get(userID, id)
	if err != nil {
		return err
	}
	conv.UpdatedAt = at
	return nil
}

func (m *memoryStore) DeleteConversation(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(userID, id); err != nil {
		return err
	}
	delete(m.convs, models.DocKey(userID, id))
	return nil
}

func (m *memoryStore) GetConversation(_ context.Context, userID, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, err := m.get(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *conv
	return &cp, nil
}

func (m *memoryStore) ListConversations(_ context.Context, userID string, limit int) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range m.convs {
		if c.UserID == userID {
			cp := *c
			cp.Messages = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var base = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func newService(store Store) *Service {
	s := NewService(store, Options{})
	s.now = func() time.Time { return base.Add(time.Hour) }
	return s
}

func TestStartAndAppend(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	s := newService(store)

	first := NewMessage(models.RoleUser, "Íris, qual o clima em Salvador?", base)
	reply := NewMessage(models.RoleAssistant, "☀️ Clima em Salvador", base.Add(time.Second))

	conv, err := s.Start(ctx, "user-1", first, reply)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(conv.ID, "conv_"))
	assert.Equal(t, "qual o clima em Salvador?", conv.Title)
	assert.Equal(t, models.CategoryWeather, conv.Category)
	assert.Equal(t, 2, conv.MessageCount)
	assert.Equal(t, base, conv.CreatedAt)
	assert.Equal(t, base.Add(time.Second), conv.UpdatedAt)

	next := NewMessage(models.RoleUser, "e amanhã?", base.Add(time.Minute))
	require.NoError(t, s.Append(ctx, "user-1", conv.ID, next))

	loaded, err := s.Get(ctx, "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 3)
	assert.Equal(t, loaded.MessageCount, len(loaded.Messages))
	assert.Equal(t, "e amanhã?", loaded.Messages[2].Content)
	assert.Equal(t, base.Add(time.Minute), loaded.UpdatedAt)
	assert.NotEqual(t, loaded.Messages[0].ID, loaded.Messages[1].ID)
}

func TestStartValidation(t *testing.T) {
	s := newService(newMemoryStore())

	_, err := s.Start(context.Background(), "", NewMessage(models.RoleUser, "oi", base))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = s.Start(context.Background(), "u", NewMessage(models.RoleUser, "  ", base))
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestRenameDeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	s := newService(newMemoryStore())

	conv, err := s.Start(ctx, "u", NewMessage(models.RoleUser, "oi", base))
	require.NoError(t, err)

	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(s.Rename(ctx, "u", conv.ID, "   ")))
	require.NoError(t, s.Rename(ctx, "u", conv.ID, "  Viagem  "))

	loaded, err := s.Get(ctx, "u", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Viagem", loaded.Title)
	assert.Equal(t, base.Add(time.Hour), loaded.UpdatedAt)

	require.NoError(t, s.Delete(ctx, "u", conv.ID))
	_, err = s.Get(ctx, "u", conv.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Conversa não encontrada", apperr.MessageOf(err, ""))

	err = s.Append(ctx, "u", conv.ID, NewMessage(models.RoleUser, "x", base))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListUsesDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := NewService(newMemoryStore(), Options{ListLimit: 2})

	for i := 0; i < 3; i++ {
		_, err := s.Start(ctx, "u", NewMessage(models.RoleUser, "oi", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	convs, err := s.List(ctx, "u", 0)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.True(t, convs[0].UpdatedAt.After(convs[1].UpdatedAt))
}

func TestGroupByDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 14/10/2026 10:00 in São Paulo.
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, loc)
	at := func(d time.Duration) models.Conversation {
		return models.Conversation{ID: d.String(), UpdatedAt: now.Add(-d)}
	}

	convs := []models.Conversation{
		at(time.Hour),
		at(11 * time.Hour), // 13/10 23:00 local
		at(3 * 24 * time.Hour),
		at(20 * 24 * time.Hour),
		at(60 * 24 * time.Hour),
	}

	groups := GroupByDate(convs, now, loc)
	require.Len(t, groups, 5)
	for i, label := range []string{"Hoje", "Ontem", "Últimos 7 dias", "Últimos 30 dias", "Mais antigas"} {
		assert.Equal(t, label, groups[i].Label)
		require.Len(t, groups[i].Conversations, 1)
		assert.Equal(t, convs[i].ID, groups[i].Conversations[0].ID)
	}

	// 02:00 UTC on the 14th is still the 13th in São Paulo.
	late := models.Conversation{UpdatedAt: time.Date(2026, 10, 14, 2, 0, 0, 0, time.UTC)}
	groups = GroupByDate([]models.Conversation{late}, now, loc)
	require.Len(t, groups, 1)
	assert.Equal(t, "Ontem", groups[0].Label)

	assert.Empty(t, GroupByDate(nil, now, loc))
}
