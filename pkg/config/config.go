package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Storage      StorageConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	LLM          LLMConfig
	Search       SearchConfig
	Weather      WeatherConfig
	Economy      EconomyConfig
	CEP          CEPConfig
	Geo          GeoConfig
	News         NewsConfig
	Conversation ConversationConfig
	Alerts       AlertsConfig
	RateLimit    RateLimitConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

// StorageConfig selects the conversation backend: "sqlite" or "redis".
// Alerts always live in SQLite.
type StorageConfig struct {
	Backend string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float32
	MaxTokens     int
	TimeoutSec    int
	HistoryLimit  int
	RetryAttempts int
	AssistantName string
	CreatorName   string
}

type SearchConfig struct {
	Enabled    bool
	BaseURL    string
	APIKey     string
	MaxResults int
	Depth      string
	TimeoutSec int
}

type WeatherConfig struct {
	BaseURL     string
	APIKey      string
	DefaultCity string
	Units       string
	Lang        string
	TimeoutSec  int
}

type EconomyConfig struct {
	BaseURL    string
	TimeoutSec int
}

type CEPConfig struct {
	BaseURL    string
	TimeoutSec int
}

type GeoConfig struct {
	BaseURL    string
	UserAgent  string
	TimeoutSec int
}

type NewsConfig struct {
	BaseURL    string
	TimeoutSec int
}

type ConversationConfig struct {
	TitleLimit int
	ListLimit  int
	Timezone   string
}

type AlertsConfig struct {
	TTLMinutes    int
	Seed          bool
	// PurgeSchedule is a cron spec; empty disables the expired alert purge.
	PurgeSchedule string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/iris")

	v.SetEnvPrefix("IRIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindSecrets(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the server cannot start with. Missing API keys
// are not fatal: the affected provider answers with an auth error instead.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Conversation.TitleLimit <= 0 {
		return fmt.Errorf("conversation title limit must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.development", false)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("sqlite.path", "./data/iris.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("llm.baseURL", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.maxTokens", 1000)
	v.SetDefault("llm.timeoutSec", 30)
	v.SetDefault("llm.historyLimit", 20)
	v.SetDefault("llm.retryAttempts", 1)
	v.SetDefault("llm.assistantName", "ÍRIS")
	v.SetDefault("llm.creatorName", "Lucélio")

	v.SetDefault("search.enabled", true)
	v.SetDefault("search.baseURL", "https://api.tavily.com")
	v.SetDefault("search.maxResults", 5)
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.timeoutSec", 10)

	v.SetDefault("weather.baseURL", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.defaultCity", "Feira de Santana")
	v.SetDefault("weather.units", "metric")
	v.SetDefault("weather.lang", "pt_br")
	v.SetDefault("weather.timeoutSec", 10)

	v.SetDefault("economy.baseURL", "https://economia.awesomeapi.com.br")
	v.SetDefault("economy.timeoutSec", 10)

	v.SetDefault("cep.baseURL", "https://viacep.com.br")
	v.SetDefault("cep.timeoutSec", 10)

	v.SetDefault("geo.baseURL", "https://nominatim.openstreetmap.org")
	v.SetDefault("geo.userAgent", "IrisAssistant/1.0")
	v.SetDefault("geo.timeoutSec", 10)

	v.SetDefault("news.baseURL", "https://api.rss2json.com")
	v.SetDefault("news.timeoutSec", 10)

	v.SetDefault("conversation.titleLimit", 50)
	v.SetDefault("conversation.listLimit", 20)
	v.SetDefault("conversation.timezone", "America/Sao_Paulo")

	v.SetDefault("alerts.ttlMinutes", 120)
	v.SetDefault("alerts.seed", true)
	v.SetDefault("alerts.purgeSchedule", "@every 15m")

	v.SetDefault("ratelimit.requestsPerMinute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}

// bindSecrets lets keys without defaults be supplied through the environment,
// e.g. IRIS_LLM_APIKEY.
func bindSecrets(v *viper.Viper) {
	for _, key := range []string{"llm.apiKey", "search.apiKey", "weather.apiKey", "redis.password"} {
		_ = v.BindEnv(key)
	}
}
