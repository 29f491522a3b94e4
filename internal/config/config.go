package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage backends.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Config holds runtime configuration values for the API service and CLI.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	LogLevel          string
	DatabaseDriver    string
	DatabaseURL       string
	MongoURI          string
	MongoDatabase     string
	RedisURL          string
	NATSURL           string
	SubmissionSubject string
	JWTSecret         string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	JudgeConcurrency  int
	JudgeCacheTTL     time.Duration
	ReviewCacheTTL    time.Duration
	SubmitRateLimit   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// JudgeEnabled reports whether an OpenAI-compatible judge is configured.
func (c Config) JudgeEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return LoadFrom(NewViper())
}

// NewViper returns a viper instance bound to GEMA_* environment variables
// with every default applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "GEMA Assessment API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("mongo.database", "gema")
	v.SetDefault("nats.subject", "submission.graded")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("judge.concurrency", 1)
	v.SetDefault("judge.cache_ttl", "24h")
	v.SetDefault("review.cache_ttl", "10m")
	v.SetDefault("submit.rate_limit", 10)
	return v
}

// LoadFrom builds a Config from an already prepared viper instance.
func LoadFrom(v *viper.Viper) (Config, error) {
	judgeTTL, err := parseTTL(v.GetString("judge.cache_ttl"), 24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge cache ttl: %w", err)
	}

	reviewTTL, err := parseTTL(v.GetString("review.cache_ttl"), 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid review cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		LogLevel:          strings.ToLower(v.GetString("log.level")),
		DatabaseDriver:    strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:       v.GetString("database.url"),
		MongoURI:          v.GetString("mongo.uri"),
		MongoDatabase:     v.GetString("mongo.database"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		SubmissionSubject: v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		OpenAIAPIKey:      v.GetString("openai.api_key"),
		OpenAIBaseURL:     v.GetString("openai.base_url"),
		OpenAIModel:       v.GetString("openai.model"),
		JudgeConcurrency:  v.GetInt("judge.concurrency"),
		JudgeCacheTTL:     judgeTTL,
		ReviewCacheTTL:    reviewTTL,
		SubmitRateLimit:   v.GetInt("submit.rate_limit"),
	}

	if cfg.JudgeConcurrency <= 0 {
		cfg.JudgeConcurrency = 1
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 10
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres, DriverSQLite, DriverMongo:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// ValidateServer checks the settings the HTTP server cannot run without.
func (c Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be provided")
	}

	switch c.DatabaseDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("mongo uri must be provided for the mongo driver")
		}
	default:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database url must be provided")
		}
	}

	return nil
}

func parseTTL(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
