package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_ENV", "")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.HttpServer.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidate(t *testing.T) {
	cfg := Config{StoreDriver: "memory"}
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.Auth.JWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "development", cfg.AppEnv, "empty APP_ENV falls back to development")

	cfg = Config{AppEnv: "production", StoreDriver: "postgres", Auth: AuthConfig{JWTSecret: "s3cret"}}
	assert.ErrorContains(t, cfg.Validate(), "POSTGRES_HOST")

	cfg.Postgres = PostgresConfig{Host: "db", User: "catalog", DBName: "catalog"}
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())

	cfg.StoreDriver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")

	cfg.StoreDriver = "memory"
	cfg.AppEnv = "qa"
	assert.ErrorContains(t, cfg.Validate(), "APP_ENV")
}

func TestPostgresDSN(t *testing.T) {
	pc := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "catalog", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=catalog sslmode=disable", pc.DSN())
}
