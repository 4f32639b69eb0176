package models

import (
	"time"

	"github.com/iris-assistant/backend/pkg/apperr"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

type Category string

const (
	CategoryGeneral Category = "general"
	CategoryWeather Category = "weather"
	CategoryNews    Category = "news"
	CategoryMaps    Category = "maps"
	CategoryMusic   Category = "music"
	CategoryCEP     Category = "cep"
	CategoryEconomy Category = "economy"
	CategoryOther   Category = "other"
)

// Conversation is the persisted chat history of one user. Messages are
// append-only and MessageCount always equals len(Messages) once loaded.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Category     Category  `json:"category"`
	MessageCount int       `json:"messageCount"`
}

// DocKey is the storage key of a conversation. Two users can map to the
// same key, so stores must also match on the owning user ID.
func DocKey(userID, conversationID string) string {
	return userID + "_" + conversationID
}

type ConversationGroup struct {
	Label         string         `json:"label"`
	Conversations []Conversation `json:"conversations"`
}

type AlertType string

const (
	AlertTraffic      AlertType = "traffic"
	AlertCheckpoint   AlertType = "checkpoint"
	AlertAccident     AlertType = "accident"
	AlertClosed       AlertType = "closed"
	AlertWeather      AlertType = "weather"
	AlertConstruction AlertType = "construction"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type Alert struct {
	ID          string     `json:"id"`
	Type        AlertType  `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    Location   `json:"location"`
	Upvotes     int        `json:"upvotes"`
	Downvotes   int        `json:"downvotes"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ReportedBy  string     `json:"reportedBy"`
}

var (
	ErrConversationNotFound = apperr.NotFound("Conversa não encontrada")
	ErrAlertNotFound        = apperr.NotFound("Alerta não encontrado")
)
