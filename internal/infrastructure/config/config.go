package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	DLQ           DLQConfig           `mapstructure:"dlq"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// GatewayConfig carries the payment-gateway integration settings. The strict
// security knobs are explicit here and injected at construction — business
// logic never inspects an ambient environment flag.
type GatewayConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	ProductCode     string `mapstructure:"product_code"`
	MerchantID      string `mapstructure:"merchant_id"`
	FormAction      string `mapstructure:"form_action"`
	SuccessURL      string `mapstructure:"success_url"`
	FailureURL      string `mapstructure:"failure_url"`
	VerificationURL string `mapstructure:"verification_url"`

	// StrictMode enforces origin, timestamp and signature checks. Running
	// with it off is a test convenience and is loudly logged, never silent.
	StrictMode bool `mapstructure:"strict_mode"`
	// AllowedOrigins are the gateway's published CIDR ranges; required in
	// strict mode.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// DevelopmentIPs are accepted when strict mode is off (loopback et al).
	DevelopmentIPs []string `mapstructure:"development_ips"`
	// AllowAllOrigins accepts any caller when strict mode is off.
	AllowAllOrigins bool `mapstructure:"allow_all_origins"`

	ReplayWindow       time.Duration `mapstructure:"replay_window"`
	StatusCheckTimeout time.Duration `mapstructure:"status_check_timeout"`
	WebhookRateLimit   int           `mapstructure:"webhook_rate_limit"`
}

type DLQConfig struct {
	SweepInterval time.Duration   `mapstructure:"sweep_interval"`
	BatchSize     int             `mapstructure:"batch_size"`
	MaxRetries    int             `mapstructure:"max_retries"`
	BackoffTiers  []time.Duration `mapstructure:"backoff_tiers"`
	LockTTL       time.Duration   `mapstructure:"lock_ttl"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("CHECKOUT")
	v.AutomaticEnv()

	// Read from config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/checkout")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if c.Database.Port <= 0 {
		errs = append(errs, fmt.Errorf("database.port must be positive"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.DLQ.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("dlq.sweep_interval must be positive"))
	}
	if c.DLQ.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("dlq.batch_size must be positive"))
	}
	if c.DLQ.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("dlq.max_retries must be positive"))
	}
	if len(c.DLQ.BackoffTiers) == 0 {
		errs = append(errs, fmt.Errorf("dlq.backoff_tiers must not be empty"))
	}
	if c.Gateway.ReplayWindow <= 0 {
		errs = append(errs, fmt.Errorf("gateway.replay_window must be positive"))
	}
	if c.Gateway.ProductCode == "" {
		errs = append(errs, fmt.Errorf("gateway.product_code is required"))
	}

	for _, cidr := range c.Gateway.AllowedOrigins {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Errorf("gateway.allowed_origins: invalid CIDR %q", cidr))
		}
	}

	// Strict-mode checks: the relaxations are test conveniences only.
	if c.Gateway.StrictMode {
		if c.Gateway.SecretKey == "" {
			errs = append(errs, fmt.Errorf("gateway.secret_key required in strict mode"))
		}
		if len(c.Gateway.AllowedOrigins) == 0 {
			errs = append(errs, fmt.Errorf("gateway.allowed_origins required in strict mode"))
		}
		if c.Gateway.AllowAllOrigins {
			errs = append(errs, fmt.Errorf("gateway.allow_all_origins cannot be enabled in strict mode"))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "checkout")
	v.SetDefault("database.database", "checkout")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Gateway defaults (sandbox endpoints; production overrides via env)
	v.SetDefault("gateway.product_code", "EPAYTEST")
	v.SetDefault("gateway.form_action", "https://rc-epay.esewa.com.np/api/epay/main/v2/form")
	v.SetDefault("gateway.verification_url", "https://rc.esewa.com.np/api/epay/transaction/status/")
	v.SetDefault("gateway.strict_mode", false)
	v.SetDefault("gateway.development_ips", []string{"127.0.0.1", "::1"})
	v.SetDefault("gateway.allow_all_origins", false)
	v.SetDefault("gateway.replay_window", "5m")
	v.SetDefault("gateway.status_check_timeout", "10s")
	v.SetDefault("gateway.webhook_rate_limit", 10)

	// DLQ defaults
	v.SetDefault("dlq.sweep_interval", "1m")
	v.SetDefault("dlq.batch_size", 10)
	v.SetDefault("dlq.max_retries", 3)
	v.SetDefault("dlq.backoff_tiers", []string{"5m", "15m", "60m"})
	v.SetDefault("dlq.lock_ttl", "45s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", true)

	// Instance ID
	v.SetDefault("instance_id", "checkout-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
