package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv      string `envconfig:"APP_ENV" default:"development"` // development, staging, production
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	HttpServer  ServerConfig
	GrpcServer  GrpcServerConfig
	Postgres    PostgresConfig
	Auth        AuthConfig
	Redis       RedisConfig
	AI          AIConfig
	Export      ExportConfig
	Tracing     TracingConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"120s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	AllowedOrigins []string      `envconfig:"HTTP_ALLOWED_ORIGINS"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
// Required-ness is checked in Validate so the memory driver can run without a database.
type PostgresConfig struct {
	Host            string        `envconfig:"POSTGRES_HOST"`
	Port            string        `envconfig:"POSTGRES_PORT" default:"5432"`
	User            string        `envconfig:"POSTGRES_USER"`
	Password        string        `envconfig:"POSTGRES_PASSWORD"`
	DBName          string        `envconfig:"POSTGRES_DBNAME"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"JWT_ISSUER" default:"brand-catalog-service"`
}

// RedisConfig configures the brand wizard session store. An empty URL selects the in-memory store.
type RedisConfig struct {
	URL        string        `envconfig:"REDIS_URL"`
	SessionTTL time.Duration `envconfig:"WIZARD_SESSION_TTL" default:"24h"`
}

// AIConfig configures the Gemini-backed generator.
type AIConfig struct {
	APIKey     string        `envconfig:"GEMINI_API_KEY"`
	Model      string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	Timeout    time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	MaxRetries int           `envconfig:"AI_MAX_RETRIES" default:"2"`
}

// ExportConfig configures archival of generated CSV exports.
type ExportConfig struct {
	S3Bucket string `envconfig:"EXPORT_S3_BUCKET"`
	S3Region string `envconfig:"EXPORT_S3_REGION" default:"eu-central-1"`
	S3Prefix string `envconfig:"EXPORT_S3_PREFIX" default:"exports/"`
}

// TracingConfig configures the OTLP trace exporter. Tracing is a no-op without an endpoint.
type TracingConfig struct {
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"brand-catalog-service"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules envconfig cannot express.
// An env var set to the empty string counts as set for envconfig, so empty
// values are normalized or rejected here.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must not be empty")
	}
	if c.AppEnv == "" {
		c.AppEnv = "development"
	}
	switch c.StoreDriver {
	case "postgres":
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: POSTGRES_HOST, POSTGRES_USER and POSTGRES_DBNAME are required for the postgres store")
		}
	case "memory":
	default:
		return fmt.Errorf("config: invalid STORE_DRIVER %q (want postgres or memory)", c.StoreDriver)
	}
	switch c.AppEnv {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("config: invalid APP_ENV %q", c.AppEnv)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
