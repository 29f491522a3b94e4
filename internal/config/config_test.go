package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(NewViper())
	require.NoError(t, err)

	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, 1, cfg.JudgeConcurrency)
	require.Equal(t, 10*time.Minute, cfg.ReviewCacheTTL)
	require.Equal(t, "submission.graded", cfg.SubmissionSubject)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.False(t, cfg.JudgeEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GEMA_DATABASE_DRIVER", "Mongo")
	t.Setenv("GEMA_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("GEMA_JUDGE_CONCURRENCY", "4")
	t.Setenv("GEMA_OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMA_REVIEW_CACHE_TTL", "30s")
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := LoadFrom(NewViper())
	require.NoError(t, err)

	require.Equal(t, DriverMongo, cfg.DatabaseDriver)
	require.Equal(t, 4, cfg.JudgeConcurrency)
	require.Equal(t, 30*time.Second, cfg.ReviewCacheTTL)
	require.True(t, cfg.JudgeEnabled())
	require.NoError(t, cfg.ValidateServer())
}

func TestLoadFromRejectsBadValues(t *testing.T) {
	t.Setenv("GEMA_DATABASE_DRIVER", "oracle")
	_, err := LoadFrom(NewViper())
	require.Error(t, err)

	t.Setenv("GEMA_DATABASE_DRIVER", "sqlite")
	t.Setenv("GEMA_JUDGE_CACHE_TTL", "forever")
	_, err = LoadFrom(NewViper())
	require.Error(t, err)
}

func TestValidateServerRequiresSecrets(t *testing.T) {
	require.Error(t, Config{DatabaseDriver: DriverPostgres, DatabaseURL: "postgres://x"}.ValidateServer())
	require.Error(t, Config{DatabaseDriver: DriverMongo, JWTSecret: "s"}.ValidateServer())
	require.NoError(t, Config{DatabaseDriver: DriverSQLite, DatabaseURL: "file::memory:", JWTSecret: "s"}.ValidateServer())
}
