package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the optional Redis connection used for run notifications.
// Redis is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the full service configuration, loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	HTTP struct {
		Addr        string
		CORSOrigins []string
	}

	Ingest struct {
		RejectsDir string // directory for per-run reject artifacts
		RunsStream string // Redis stream for run summaries
		SourceName string // default source label for S3-triggered ingestion
	}

	S3 struct {
		Region   string
		Endpoint string // optional, for MinIO/localstack
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with development
// defaults.
func Load() *Config {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "strain")
	cfg.Database.Password = getEnv("DB_PASSWORD", "strain")
	cfg.Database.Database = getEnv("DB_NAME", "strain")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8000")
	cfg.HTTP.CORSOrigins = splitOrigins(getEnv("CORS_ORIGINS", ""))

	cfg.Ingest.RejectsDir = getEnv("REJECTS_DIR", "/tmp/rejects")
	cfg.Ingest.RunsStream = getEnv("STREAM_RUNS", "strain:runs:stream")
	cfg.Ingest.SourceName = getEnv("SOURCE_NAME", "hhs_capacity")

	cfg.S3.Region = getEnv("S3_REGION", "us-east-1")
	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// splitOrigins parses a comma-separated origin list, falling back to the dev
// frontend origins.
func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
