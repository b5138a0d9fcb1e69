package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Billing       BillingConfig       `mapstructure:"billing"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
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
	ConnectRetries  uint          `mapstructure:"connect_retries"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// BillingConfig drives the recurring billing cycle.
type BillingConfig struct {
	Currencies  []string      `mapstructure:"currencies"`
	TickPeriod  time.Duration `mapstructure:"tick_period"`
	MaxJitter   time.Duration `mapstructure:"max_jitter"`
	BillingDays []int         `mapstructure:"billing_days"`
	TimeZone    string        `mapstructure:"time_zone"`
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetry    int           `mapstructure:"max_retry"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"`
	RunGuard    string        `mapstructure:"run_guard"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// ProviderConfig selects and tunes the payment provider.
type ProviderConfig struct {
	Name                    string        `mapstructure:"name"`
	StripeKey               string        `mapstructure:"stripe_key"`
	StripeURL               string        `mapstructure:"stripe_url"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	CircuitBreakerThreshold int           `mapstructure:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `mapstructure:"circuit_breaker_timeout"`
	MockLatency             time.Duration `mapstructure:"mock_latency"`
	MockDeclineRate         float64       `mapstructure:"mock_decline_rate"`
	MockNetworkErrorRate    float64       `mapstructure:"mock_network_error_rate"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/billing")

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
	if c.Redis.Enabled && c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}

	errs = append(errs, c.Billing.validate()...)

	switch c.Provider.Name {
	case "mock":
	case "stripe":
		if c.Provider.StripeKey == "" {
			errs = append(errs, fmt.Errorf("provider.stripe_key is required for the stripe provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("provider.name must be mock or stripe, got %q", c.Provider.Name))
	}

	if c.Billing.RunGuard == "redis" && !c.Redis.Enabled {
		errs = append(errs, fmt.Errorf("billing.run_guard redis requires redis.enabled"))
	}

	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Database.Password == "" {
			errs = append(errs, fmt.Errorf("database.password required in production"))
		}
		if c.Provider.Name == "mock" {
			errs = append(errs, fmt.Errorf("provider.name mock is not allowed in production"))
		}
	}

	return errors.Join(errs...)
}

func (b *BillingConfig) validate() []error {
	var errs []error

	if b.TickPeriod <= 0 {
		errs = append(errs, fmt.Errorf("billing.tick_period must be positive"))
	}
	if b.MaxJitter < 0 {
		errs = append(errs, fmt.Errorf("billing.max_jitter must not be negative"))
	}
	if len(b.BillingDays) == 0 {
		errs = append(errs, fmt.Errorf("billing.billing_days must not be empty"))
	}
	for _, d := range b.BillingDays {
		if d < 1 || d > 31 {
			errs = append(errs, fmt.Errorf("billing.billing_days must be between 1 and 31, got %d", d))
		}
	}
	if _, err := time.LoadLocation(b.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("billing.time_zone %q: %w", b.TimeZone, err))
	}
	if b.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("billing.batch_size must be positive"))
	}
	if b.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("billing.concurrency must be positive"))
	}
	if b.MaxRetry <= 0 {
		errs = append(errs, fmt.Errorf("billing.max_retry must be positive"))
	}
	if b.RunGuard != "local" && b.RunGuard != "redis" {
		errs = append(errs, fmt.Errorf("billing.run_guard must be local or redis, got %q", b.RunGuard))
	}
	if b.RunGuard == "redis" && b.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("billing.lock_ttl must be positive"))
	}
	// The lock must outlive the longest run it guards.
	if b.RunGuard == "redis" && b.RunTimeout > b.LockTTL {
		errs = append(errs, fmt.Errorf("billing.lock_ttl (%s) must be at least billing.run_timeout (%s)", b.LockTTL, b.RunTimeout))
	}

	return errs
}

// Location returns the reference time zone for the day gate.
func (b *BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "billing")
	v.SetDefault("database.database", "billing")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.connect_retries", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Billing defaults
	v.SetDefault("billing.currencies", []string{"EUR", "USD", "DKK", "SEK", "GBP"})
	v.SetDefault("billing.tick_period", "10s")
	v.SetDefault("billing.max_jitter", "10s")
	v.SetDefault("billing.billing_days", []int{1, 2})
	v.SetDefault("billing.time_zone", "UTC")
	v.SetDefault("billing.batch_size", 100)
	v.SetDefault("billing.concurrency", 5)
	v.SetDefault("billing.max_retry", 3)
	v.SetDefault("billing.run_timeout", "5m")
	v.SetDefault("billing.run_guard", "local")
	v.SetDefault("billing.lock_ttl", "10m")

	// Provider defaults
	v.SetDefault("provider.name", "mock")
	v.SetDefault("provider.timeout", "30s")
	v.SetDefault("provider.circuit_breaker_threshold", 10)
	v.SetDefault("provider.circuit_breaker_timeout", "30s")
	v.SetDefault("provider.mock_latency", "100ms")
	v.SetDefault("provider.mock_decline_rate", 0.05)
	v.SetDefault("provider.mock_network_error_rate", 0.02)

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	v.SetDefault("instance_id", "billing-1")
}

func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// DatabaseURL returns the connection string in URL form, as golang-migrate expects.
func (c *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
