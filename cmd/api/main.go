package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/alerts"
	"github.com/iris-assistant/backend/internal/api"
	"github.com/iris-assistant/backend/internal/api/handlers"
	"github.com/iris-assistant/backend/internal/assistant"
	"github.com/iris-assistant/backend/internal/conversation"
	"github.com/iris-assistant/backend/internal/intent"
	"github.com/iris-assistant/backend/internal/llm"
	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/providers/cep"
	"github.com/iris-assistant/backend/internal/providers/economy"
	"github.com/iris-assistant/backend/internal/providers/geo"
	"github.com/iris-assistant/backend/internal/providers/news"
	"github.com/iris-assistant/backend/internal/providers/weather"
	"github.com/iris-assistant/backend/internal/search/web"
	redisstore "github.com/iris-assistant/backend/internal/storage/redis"
	"github.com/iris-assistant/backend/internal/storage/sqlite"
	"github.com/iris-assistant/backend/pkg/config"
	appLogger "github.com/iris-assistant/backend/pkg/logger"
	"github.com/iris-assistant/backend/pkg/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting ÍRIS assistant API server")

	loc, err := time.LoadLocation(cfg.Conversation.Timezone)
	if err != nil {
		appLogger.Fatal("Invalid timezone", zap.String("timezone", cfg.Conversation.Timezone), zap.Error(err))
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			appLogger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	stores := []api.Pinger{sqliteClient}
	var conversationStore conversation.Store = sqliteClient

	if cfg.Storage.Backend == "redis" {
		redisClient, err := redisstore.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		conversationStore = redisClient
		stores = append(stores, redisClient)
	}
	appLogger.Info("Conversation storage ready", zap.String("backend", cfg.Storage.Backend))

	metrics.Init()

	weatherClient := weather.NewClient(weather.Config{
		BaseURL:    cfg.Weather.BaseURL,
		APIKey:     cfg.Weather.APIKey,
		Units:      cfg.Weather.Units,
		Lang:       cfg.Weather.Lang,
		TimeoutSec: cfg.Weather.TimeoutSec,
	})
	economyClient := economy.NewClient(cfg.Economy.BaseURL, cfg.Economy.TimeoutSec)
	cepClient := cep.NewClient(cfg.CEP.BaseURL, cfg.CEP.TimeoutSec)
	geoClient := geo.NewClient(geo.Config{
		BaseURL:    cfg.Geo.BaseURL,
		UserAgent:  cfg.Geo.UserAgent,
		TimeoutSec: cfg.Geo.TimeoutSec,
	})
	newsClient := news.NewClient(cfg.News.BaseURL, cfg.News.TimeoutSec)

	var searcher assistant.Searcher
	if cfg.Search.Enabled && cfg.Search.APIKey != "" {
		searcher = web.NewClient(web.Config{
			BaseURL:    cfg.Search.BaseURL,
			APIKey:     cfg.Search.APIKey,
			MaxResults: cfg.Search.MaxResults,
			Depth:      cfg.Search.Depth,
			TimeoutSec: cfg.Search.TimeoutSec,
		})
	} else {
		appLogger.Warn("Web search disabled, answers will rely on the model alone")
	}

	if cfg.LLM.APIKey == "" {
		appLogger.Warn("LLM API key is not set, delegated questions will fail")
	}
	llmClient := llm.NewClient(llm.Config{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		TimeoutSec:    cfg.LLM.TimeoutSec,
		RetryAttempts: cfg.LLM.RetryAttempts,
		AssistantName: cfg.LLM.AssistantName,
		Location:      loc,
	})

	conversations := conversation.NewService(conversationStore, conversation.Options{
		TitleLimit: cfg.Conversation.TitleLimit,
		ListLimit:  cfg.Conversation.ListLimit,
		Location:   loc,
	})

	alertService := alerts.NewService(sqliteClient, geoClient, time.Duration(cfg.Alerts.TTLMinutes)*time.Minute)
	if cfg.Alerts.Seed {
		if _, err := alertService.Seed(context.Background()); err != nil {
			appLogger.Warn("Failed to seed sample alerts", zap.Error(err))
		}
	}

	jobs := scheduler.NewCron(loc, appLogger.Named("scheduler"))
	if cfg.Alerts.PurgeSchedule != "" {
		_, err := jobs.AddJob("purge-expired-alerts", cfg.Alerts.PurgeSchedule, 30*time.Second, func(ctx context.Context) error {
			_, err := alertService.PurgeExpired(ctx)
			return err
		})
		if err != nil {
			appLogger.Fatal("Failed to schedule alert purge", zap.Error(err))
		}
	}
	jobs.Start()
	defer jobs.Stop()

	engine := assistant.NewEngine(assistant.Deps{
		Classifier:    intent.NewClassifier(intent.Options{DefaultCity: cfg.Weather.DefaultCity}),
		Weather:       weatherClient,
		Economy:       economyClient,
		CEP:           cepClient,
		News:          newsClient,
		Search:        searcher,
		LLM:           llmClient,
		Conversations: conversations,
		HistoryLimit:  cfg.LLM.HistoryLimit,
		AssistantName: cfg.LLM.AssistantName,
		CreatorName:   cfg.LLM.CreatorName,
		Location:      loc,
	})

	app := api.NewRouter(api.Deps{
		Server:        cfg.Server,
		RateLimit:     cfg.RateLimit,
		Assistant:     engine,
		Conversations: conversations,
		Alerts:        alertService,
		Lookups: handlers.LookupDeps{
			Weather:     weatherClient,
			Economy:     economyClient,
			CEP:         cepClient,
			Places:      geoClient,
			News:        newsClient,
			DefaultCity: cfg.Weather.DefaultCity,
			Location:    loc,
		},
		Stores: stores,
		Logger: appLogger.Named("http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
