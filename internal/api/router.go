// Package api assembles the HTTP and websocket surface of the assistant.
package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/api/handlers"
	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/middleware/ratelimit"
	"github.com/iris-assistant/backend/internal/middleware/security"
	"github.com/iris-assistant/backend/internal/middleware/validation"
	"github.com/iris-assistant/backend/pkg/config"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Server        config.ServerConfig
	RateLimit     config.RateLimitConfig
	Assistant     handlers.Assistant
	Conversations handlers.ConversationService
	Alerts        handlers.AlertService
	Lookups       handlers.LookupDeps
	Stores        []Pinger
	Logger        *zap.Logger
}

func NewRouter(deps Deps) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(deps.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(deps.Server.WriteTimeout) * time.Second,
		BodyLimit:    deps.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: deps.RateLimit.RequestsPerMinute,
		Logger:               deps.Logger,
		Skip:                 isProbe,
	})
	app.Hooks().OnShutdown(func() error {
		limiter.Stop()
		return nil
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins(deps.Server.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.HeaderUserID,
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: deps.Server.AllowedOrigins,
		IsDevelopment:  deps.Server.Development,
	}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: deps.Logger}))

	app.Get("/metrics", metrics.MetricsHandler())

	chatHandler := handlers.NewChatHandler(deps.Assistant)
	wsHandler := handlers.NewWebSocketHandler(deps.Assistant)
	conversationHandler := handlers.NewConversationHandler(deps.Conversations)
	lookupHandler := handlers.NewLookupHandler(deps.Lookups)
	alertHandler := handlers.NewAlertHandler(deps.Alerts)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	v1 := app.Group("/api/v1")

	v1.Post("/chat", chatHandler.HandleChat)

	conversations := v1.Group("/conversations", conversationHandler.RequireUser)
	conversations.Get("/", conversationHandler.List)
	conversations.Get("/grouped", conversationHandler.Grouped)
	conversations.Get("/:id", conversationHandler.Get)
	conversations.Patch("/:id", conversationHandler.Rename)
	conversations.Delete("/:id", conversationHandler.Delete)

	v1.Get("/weather", lookupHandler.Weather)
	v1.Get("/currency", lookupHandler.Currency)
	v1.Get("/cep/:cep", lookupHandler.CEP)
	v1.Get("/places", lookupHandler.Places)
	v1.Get("/places/reverse", lookupHandler.ReversePlace)
	v1.Get("/news", lookupHandler.News)

	v1.Get("/alerts", alertHandler.List)
	v1.Get("/alerts/types", alertHandler.Types)
	v1.Get("/alerts/nearby", alertHandler.Nearby)
	v1.Post("/alerts", alertHandler.Create)
	v1.Post("/alerts/:id/vote", alertHandler.Vote)

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	v1.Get("/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		for _, store := range deps.Stores {
			if err := store.Ping(ctx); err != nil {
				deps.Logger.Warn("Readiness check failed", zap.Error(err))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "unavailable",
				})
			}
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	return app
}

func isProbe(c *fiber.Ctx) bool {
	switch c.Path() {
	case "/api/v1/health", "/api/v1/ready", "/metrics":
		return true
	}
	return false
}

func allowOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}
