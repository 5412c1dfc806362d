package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/passbi/passbi_planner/internal/cache"
	"github.com/passbi/passbi_planner/internal/db"
	"github.com/passbi/passbi_planner/internal/llm"
	"github.com/passbi/passbi_planner/internal/provider"
)

// Index backends
const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
)

// AppConfig is the planner's complete runtime configuration
type AppConfig struct {
	Port               int    `validate:"gt=0,lte=65535"`
	IndexBackend       string `validate:"oneof=memory postgres"`
	RetrieveK          int    `validate:"gt=0"`
	RetrieveFetchK     int    `validate:"gtefield=RetrieveK"`
	AutoIngest         bool
	SessionIdleTTL     time.Duration `validate:"omitempty,gte=1s"`
	CacheEnabled       bool
	RateLimitPerMinute int `validate:"gte=0"`

	Provider *provider.Config `validate:"required"`
	LLM      *llm.Config      `validate:"required"`
	DB       *db.Config       `validate:"required"`
	Redis    *cache.Config    `validate:"required"`
}

// LoadConfigFromEnv reads every concern's configuration from the environment
func LoadConfigFromEnv() *AppConfig {
	return &AppConfig{
		Port:               getEnvInt("API_PORT", 8080),
		IndexBackend:       getEnv("INDEX_BACKEND", IndexMemory),
		RetrieveK:          getEnvInt("RETRIEVE_K", 5),
		RetrieveFetchK:     getEnvInt("RETRIEVE_FETCH_K", 10),
		AutoIngest:         getEnvBool("AUTO_INGEST", true),
		SessionIdleTTL:     getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
		CacheEnabled:       getEnvBool("CACHE_ENABLED", false),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		Provider: provider.LoadConfigFromEnv(),
		LLM:      llm.LoadConfigFromEnv(),
		DB:       db.LoadConfigFromEnv(),
		Redis:    cache.LoadConfigFromEnv(),
	}
}

// Validate checks the configuration. Database and Redis settings are only
// checked when the features that use them are turned on, and the model
// settings only when an API key is present.
func (c *AppConfig) Validate() error {
	v := validator.New()

	if err := v.StructExcept(c, "Provider", "LLM", "DB", "Redis"); err != nil {
		return fmt.Errorf("invalid app config: %w", err)
	}
	if err := v.Struct(c.Provider); err != nil {
		return fmt.Errorf("invalid routing provider config: %w", err)
	}
	if c.ModelEnabled() {
		if err := v.Struct(c.LLM); err != nil {
			return fmt.Errorf("invalid model config: %w", err)
		}
	}
	if c.DatabaseEnabled() {
		if err := v.Struct(c.DB); err != nil {
			return fmt.Errorf("invalid database config: %w", err)
		}
	}
	if c.RedisEnabled() {
		if err := v.Struct(c.Redis); err != nil {
			return fmt.Errorf("invalid redis config: %w", err)
		}
	}
	return nil
}

// ModelEnabled reports whether a generative model is configured
func (c *AppConfig) ModelEnabled() bool {
	return c.LLM != nil && c.LLM.APIKey != ""
}

// DatabaseEnabled reports whether knowledge is persisted in Postgres
func (c *AppConfig) DatabaseEnabled() bool {
	return c.IndexBackend == IndexPostgres
}

// RedisEnabled reports whether any feature needs Redis
func (c *AppConfig) RedisEnabled() bool {
	return c.CacheEnabled || c.RateLimitPerMinute > 0
}

// InitLogging routes the standard logger to stdout with microsecond timestamps
func InitLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
