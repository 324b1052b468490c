package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	OpenRouterKey string `env:"OPENROUTER_API_KEY,required,notEmpty"`
	OpenRouterURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	AuthSecret    string `env:"AUTH_SECRET,required,notEmpty"`

	// Provider models behind the selectable chat models
	ChatModel      string `env:"CHAT_MODEL" envDefault:"x-ai/grok-2-vision-1212"`
	ReasoningModel string `env:"REASONING_MODEL" envDefault:"x-ai/grok-3-mini-beta"`
	TitleModel     string `env:"TITLE_MODEL" envDefault:"x-ai/grok-2-1212"`
	ArtifactModel  string `env:"ARTIFACT_MODEL" envDefault:"x-ai/grok-2-1212"`

	// Stream replay, disabled when empty
	RedisURL string `env:"REDIS_URL"`

	// Server
	Port         int           `env:"PORT" envDefault:"3000"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`

	// Database pool
	DBMaxConns int32 `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns int32 `env:"DB_MIN_CONNS" envDefault:"5"`

	// Logging, tracing and metrics
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	TraceFile   string `env:"TRACE_FILE"`
	MetricsFile string `env:"METRICS_FILE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.AuthSecret) < 16 {
		return nil, fmt.Errorf("parse config: AUTH_SECRET must be at least 16 characters")
	}
	return cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
