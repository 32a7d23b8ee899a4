package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Gateway: GatewayConfig{
			SecretKey:    "8gBm/:&EnhH.1/q",
			ProductCode:  "EPAYTEST",
			ReplayWindow: 5 * time.Minute,
		},
		DLQ: DLQConfig{
			SweepInterval: time.Minute,
			BatchSize:     10,
			MaxRetries:    3,
			BackoffTiers:  []time.Duration{5 * time.Minute, 15 * time.Minute, time.Hour},
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_EmptyBackoffTiers(t *testing.T) {
	cfg := validConfig()
	cfg.DLQ.BackoffTiers = nil

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "backoff_tiers")
}

func TestConfig_Validate_InvalidCIDR(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.AllowedOrigins = []string{"203.0.113.0/24", "not-a-cidr"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid CIDR")
}

func TestConfig_Validate_StrictModeRequiresSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.StrictMode = true
	cfg.Gateway.SecretKey = ""
	cfg.Gateway.AllowedOrigins = []string{"203.0.113.0/24"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "secret_key")
}

func TestConfig_Validate_StrictModeRequiresOrigins(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.StrictMode = true
	cfg.Gateway.AllowedOrigins = nil

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "allowed_origins")
}

func TestConfig_Validate_StrictModeRejectsAllowAll(t *testing.T) {
	cfg := validConfig()
	cfg.Gateway.StrictMode = true
	cfg.Gateway.AllowedOrigins = []string{"203.0.113.0/24"}
	cfg.Gateway.AllowAllOrigins = true

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "allow_all_origins")
}

func TestConfig_Validate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Database.Host = ""
	cfg.DLQ.BatchSize = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.host")
	assert.Contains(t, err.Error(), "dlq.batch_size")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "checkout",
		Password: "secret",
		Database: "checkout",
		SSLMode:  "require",
	}

	dsn := cfg.DatabaseDSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
