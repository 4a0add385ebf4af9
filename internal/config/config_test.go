package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	if cfg.Database.Host != "localhost" {
		t.Errorf("Expected DB_HOST default 'localhost', got '%s'", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected DB_PORT default 5432, got %d", cfg.Database.Port)
	}
	if cfg.Database.Database != "strain" {
		t.Errorf("Expected DB_NAME default 'strain', got '%s'", cfg.Database.Database)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Expected REDIS_ADDR default '' (disabled), got '%s'", cfg.Redis.Addr)
	}
	if cfg.HTTP.Addr != ":8000" {
		t.Errorf("Expected HTTP_ADDR default ':8000', got '%s'", cfg.HTTP.Addr)
	}
	if cfg.Ingest.RejectsDir != "/tmp/rejects" {
		t.Errorf("Expected REJECTS_DIR default '/tmp/rejects', got '%s'", cfg.Ingest.RejectsDir)
	}
	if cfg.Ingest.SourceName != "hhs_capacity" {
		t.Errorf("Expected SOURCE_NAME default 'hhs_capacity', got '%s'", cfg.Ingest.SourceName)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 {
		t.Errorf("Expected 2 default CORS origins, got %d", len(cfg.HTTP.CORSOrigins))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "5433")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "redis:6379")
	os.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	os.Setenv("SOURCE_NAME", "state_feed")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_PORT")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("REDIS_ADDR")
		os.Unsetenv("CORS_ORIGINS")
		os.Unsetenv("SOURCE_NAME")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg := Load()

	if cfg.Database.Host != "test-host" {
		t.Errorf("Expected DB_HOST 'test-host', got '%s'", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Expected DB_PORT 5433, got %d", cfg.Database.Port)
	}
	if cfg.Database.Database != "test-db" {
		t.Errorf("Expected DB_NAME 'test-db', got '%s'", cfg.Database.Database)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("Expected REDIS_ADDR 'redis:6379', got '%s'", cfg.Redis.Addr)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[0] != "https://a.example" {
		t.Errorf("Unexpected CORS origins: %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Ingest.SourceName != "state_feed" {
		t.Errorf("Expected SOURCE_NAME 'state_feed', got '%s'", cfg.Ingest.SourceName)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "strain",
		Password: "secret",
		Database: "strain",
		SSLMode:  "disable",
	}
	want := "host=db port=5432 user=strain password=secret dbname=strain sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}
