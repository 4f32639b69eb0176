package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/logger"
)

// Client stores conversations as documents keyed by {userId}_{conversationId}:
//
//	conversation:<key>           hash with the conversation metadata
//	conversation:<key>:messages  list of JSON messages, append only
//	conversations:<userId>       sorted set of conversation ids scored by updatedAt
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func metaKey(userID, conversationID string) string {
	return "conversation:" + models.DocKey(userID, conversationID)
}

// ensureOwner fails with ErrConversationNotFound unless mk exists and
// belongs to userID. Composite keys of different users can collide.
func ensureOwner(ctx context.Context, tx *redis.Tx, mk, userID string) error {
	owner, err := tx.HGet(ctx, mk, "userId").Result()
	if err == redis.Nil || (err == nil && owner != userID) {
		return models.ErrConversationNotFound
	}
	return err
}

func messagesKey(userID, conversationID string) string {
	return metaKey(userID, conversationID) + ":messages"
}

func indexKey(userID string) string {
	return "conversations:" + userID
}

func (c *Client) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	mk := metaKey(conv.UserID, conv.ID)

	payloads := make([]interface{}, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		payloads = append(payloads, data)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, mk, map[string]interface{}{
			"id":           conv.ID,
			"userId":       conv.UserID,
			"title":        conv.Title,
			"category":     string(conv.Category),
			"messageCount": len(conv.Messages),
			"createdAt":    conv.CreatedAt.UnixMilli(),
			"updatedAt":    conv.UpdatedAt.UnixMilli(),
		})
		if len(payloads) > 0 {
			pipe.RPush(ctx, messagesKey(conv.UserID, conv.ID), payloads...)
		}
		pipe.ZAdd(ctx, indexKey(conv.UserID), redis.Z{Score: float64(conv.UpdatedAt.UnixMilli()), Member: conv.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Debug("Conversation created", zap.String("key", mk), zap.Int("messages", len(conv.Messages)))
	return nil
}

// AppendMessage pushes a single message and bumps the counters under WATCH
// so a concurrent delete cannot leave orphaned messages behind.
func (c *Client) AppendMessage(ctx context.Context, userID, conversationID string, msg models.Message) error {
	mk := metaKey(userID, conversationID)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := ensureOwner(ctx, tx, mk, userID); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, messagesKey(userID, conversationID), data)
			pipe.HIncrBy(ctx, mk, "messageCount", 1)
			pipe.HSet(ctx, mk, "updatedAt", msg.Timestamp.UnixMilli())
			pipe.ZAdd(ctx, indexKey(userID), redis.Z{Score: float64(msg.Timestamp.UnixMilli()), Member: conversationID})
			return nil
		})
		return err
	}, mk)
	if errors.Is(err, models.ErrConversationNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (c *Client) RenameConversation(ctx context.Context, userID, conversationID, title string, at time.Time) error {
	return c.updateMeta(ctx, userID, conversationID, at, "title", title)
}

func (c *Client) TouchConversation(ctx context.Context, userID, conversationID string, at time.Time) error {
	return c.updateMeta(ctx, userID, conversationID, at)
}

func (c *Client) updateMeta(ctx context.Context, userID, conversationID string, at time.Time, fields ...interface{}) error {
	mk := metaKey(userID, conversationID)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := ensureOwner(ctx, tx, mk, userID); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			values := append([]interface{}{"updatedAt", at.UnixMilli()}, fields...)
			pipe.HSet(ctx, mk, values...)
			pipe.ZAdd(ctx, indexKey(userID), redis.Z{Score: float64(at.UnixMilli()), Member: conversationID})
			return nil
		})
		return err
	}, mk)
	if errors.Is(err, models.ErrConversationNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	mk := metaKey(userID, conversationID)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := ensureOwner(ctx, tx, mk, userID); err != nil {
			return err
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, mk)
			pipe.Del(ctx, messagesKey(userID, conversationID))
			pipe.ZRem(ctx, indexKey(userID), conversationID)
			return nil
		})
		return err
	}, mk)
	if errors.Is(err, models.ErrConversationNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	logger.Info("Conversation deleted", zap.String("key", metaKey(userID, conversationID)))
	return nil
}

func (c *Client) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	conv, err := c.loadMeta(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.LRange(ctx, messagesKey(userID, conversationID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	conv.Messages = make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		conv.Messages = append(conv.Messages, msg)
	}

	return conv, nil
}

func (c *Client) ListConversations(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	ids, err := c.client.ZRevRange(ctx, indexKey(userID), 0, int64(limit)-1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	convs := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := c.loadMeta(ctx, userID, id)
		if errors.Is(err, models.ErrConversationNotFound) {
			logger.Warn("Dangling conversation index entry", zap.String("user_id", userID), zap.String("conversation_id", id))
			continue
		}
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, nil
}

func (c *Client) loadMeta(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	fields, err := c.client.HGetAll(ctx, metaKey(userID, conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if len(fields) == 0 || fields["userId"] != userID {
		return nil, models.ErrConversationNotFound
	}

	count, _ := strconv.Atoi(fields["messageCount"])
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)
	updatedAt, _ := strconv.ParseInt(fields["updatedAt"], 10, 64)

	return &models.Conversation{
		ID:           fields["id"],
		UserID:       fields["userId"],
		Title:        fields["title"],
		Category:     models.Category(fields["category"]),
		MessageCount: count,
		CreatedAt:    time.UnixMilli(createdAt),
		UpdatedAt:    time.UnixMilli(updatedAt),
	}, nil
}
