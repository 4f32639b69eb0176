package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps appends serialized without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		doc_key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user_updated ON conversations(user_id, updated_at DESC);

	CREATE TABLE IF NOT EXISTS conversation_messages (
		id TEXT PRIMARY KEY,
		doc_key TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (doc_key) REFERENCES conversations(doc_key) ON DELETE CASCADE,
		UNIQUE (doc_key, seq)
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT,
		upvotes INTEGER NOT NULL DEFAULT 0,
		downvotes INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		expires_at INTEGER,
		reported_by TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key := models.DocKey(conv.UserID, conv.ID)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, doc_key, title, category, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID,
		conv.UserID,
		key,
		conv.Title,
		string(conv.Category),
		len(conv.Messages),
		conv.CreatedAt.UnixMilli(),
		conv.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	for i, msg := range conv.Messages {
		if err := insertMessage(ctx, tx, key, i, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}

	logger.Debug("Conversation created", zap.String("doc_key", key), zap.Int("messages", len(conv.Messages)))
	return nil
}

// AppendMessage adds one message at the end of the conversation and bumps
// message_count and updated_at in the same transaction.
func (c *Client) AppendMessage(ctx context.Context, userID, conversationID string, msg models.Message) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	key := models.DocKey(userID, conversationID)
	var count int
	err = tx.QueryRowContext(ctx, `SELECT message_count FROM conversations WHERE doc_key = ? AND user_id = ?`, key, userID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrConversationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read conversation: %w", err)
	}

	if err := insertMessage(ctx, tx, key, count, msg); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET message_count = ?, updated_at = ? WHERE doc_key = ? AND user_id = ?`,
		count+1, msg.Timestamp.UnixMilli(), key, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	logger.Debug("Message appended", zap.String("doc_key", key), zap.String("role", string(msg.Role)))
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, key string, seq int, msg models.Message) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO conversation_messages (id, doc_key, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, key, seq, string(msg.Role), msg.Content, msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (c *Client) RenameConversation(ctx context.Context, userID, conversationID, title string, at time.Time) error {
	return c.updateConversation(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE doc_key = ? AND user_id = ?`,
		title, at.UnixMilli(), models.DocKey(userID, conversationID), userID,
	)
}

func (c *Client) TouchConversation(ctx context.Context, userID, conversationID string, at time.Time) error {
	return c.updateConversation(ctx,
		`UPDATE conversations SET updated_at = ? WHERE doc_key = ? AND user_id = ?`,
		at.UnixMilli(), models.DocKey(userID, conversationID), userID,
	)
}

func (c *Client) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	key := models.DocKey(userID, conversationID)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE doc_key = ? AND user_id = ?`, key, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrConversationNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_messages WHERE doc_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	logger.Info("Conversation deleted", zap.String("doc_key", key))
	return nil
}

func (c *Client) updateConversation(ctx context.Context, query string, args ...any) error {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

func (c *Client) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	key := models.DocKey(userID, conversationID)

	conv, err := scanConversation(c.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, category, message_count, created_at, updated_at
		FROM conversations WHERE doc_key = ? AND user_id = ?`, key, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, role, content, timestamp FROM conversation_messages WHERE doc_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = []models.Message{}
	for rows.Next() {
		var msg models.Message
		var role string
		var ts int64
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = models.Role(role)
		msg.Timestamp = time.UnixMilli(ts)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return conv, nil
}

// ListConversations returns conversation summaries without messages, most
// recently updated first.
func (c *Client) ListConversations(ctx context.Context, userID string, limit int) ([]models.Conversation, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, title, category, message_count, created_at, updated_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []models.Conversation{}
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		convs = append(convs, *conv)
	}

	return convs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*models.Conversation, error) {
	var conv models.Conversation
	var category string
	var createdAt, updatedAt int64

	err := row.Scan(&conv.ID, &conv.UserID, &conv.Title, &category, &conv.MessageCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	conv.Category = models.Category(category)
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)
	return &conv, nil
}
