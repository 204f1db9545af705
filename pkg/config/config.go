package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// Tenant resolution configuration
	Tenant TenantConfig `mapstructure:"tenant"`

	// Access grant configuration
	Grants GrantConfig `mapstructure:"grants"`

	// Notification configuration
	Notifications NotificationConfig `mapstructure:"notifications"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl"`
	Issuer         string `mapstructure:"issuer"`
	Audience       string `mapstructure:"audience"`
}

// TenantConfig holds tenant resolution configuration
type TenantConfig struct {
	// BaseDomain is the platform domain, e.g. "hospital.example.com";
	// tenant subdomains hang off it and deep links are built against it
	BaseDomain string `mapstructure:"base_domain"`
	// DefaultSubdomain is the well-known placeholder that falls back to the
	// default organization
	DefaultSubdomain string `mapstructure:"default_subdomain"`
	// OverrideHeader and OverrideQueryParam allow explicit tenant selection
	// for local development without DNS
	OverrideHeader     string `mapstructure:"override_header"`
	OverrideQueryParam string `mapstructure:"override_query_param"`
}

// GrantConfig holds access grant configuration
type GrantConfig struct {
	MinReasonLength int `mapstructure:"min_reason_length"`
	TokenBytes      int `mapstructure:"token_bytes"`
}

// NotificationConfig holds notification configuration
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	SMTPUser    string `mapstructure:"smtp_user"`
	SMTPPass    string `mapstructure:"smtp_pass"`
	FromAddress string `mapstructure:"from_address"`
	QueueSize   int    `mapstructure:"queue_size"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requests_per_min"`
	BurstSize      int  `mapstructure:"burst_size"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/healthcare")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "healthcare")
	viper.SetDefault("database.user", "healthcare")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600) // 1 hour
	viper.SetDefault("jwt.issuer", "healthcare-saas")
	viper.SetDefault("jwt.audience", "healthcare-users")

	// Tenant defaults
	viper.SetDefault("tenant.base_domain", "localhost")
	viper.SetDefault("tenant.default_subdomain", "default")
	viper.SetDefault("tenant.override_header", "X-Tenant-Subdomain")
	viper.SetDefault("tenant.override_query_param", "org")

	// Grant defaults
	viper.SetDefault("grants.min_reason_length", 10)
	viper.SetDefault("grants.token_bytes", 32)

	// Notification defaults
	viper.SetDefault("notifications.enabled", true)
	viper.SetDefault("notifications.smtp_port", 587)
	viper.SetDefault("notifications.from_address", "no-reply@healthcare.local")
	viper.SetDefault("notifications.queue_size", 256)

	// Rate limiting defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_min", 30)
	viper.SetDefault("rate_limit.burst_size", 5)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if smtpPass := os.Getenv("SMTP_PASSWORD"); smtpPass != "" {
		config.Notifications.SMTPPass = smtpPass
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Grants.MinReasonLength <= 0 {
		return fmt.Errorf("invalid minimum reason length: %d", config.Grants.MinReasonLength)
	}

	if config.Grants.TokenBytes < 16 {
		return fmt.Errorf("grant token entropy too low: %d bytes", config.Grants.TokenBytes)
	}

	return nil
}
