package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SERVICE_TIMEZONE must resolve in minimal images
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	NewRelic    NewRelicConfig
	Log         LogConfig
	Platform    PlatformConfig
	CoreService CoreServiceConfig
	Ride        RideConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// PlatformConfig holds the fleet platform credentials.
type PlatformConfig struct {
	URL             string
	AccessKeyID     string
	SecretAccessKey string
	WebhookToken    string
	Timeout         time.Duration
}

// CoreServiceConfig holds the accounts/payments endpoints and the keys used
// to sign outbound and verify inbound service tokens.
type CoreServiceConfig struct {
	RideURL     string
	RideKey     string
	AccountsURL string
	AccountsKey string
	PaymentsURL string
	PaymentsKey string
	Timeout     time.Duration
}

// ControlPolicy decides when a control command is reflected locally.
type ControlPolicy string

const (
	// ControlPolicyConfirmed persists control flags only after the platform accepted the command.
	ControlPolicyConfirmed ControlPolicy = "confirmed"
	// ControlPolicyIntended persists control flags whatever the platform answered.
	ControlPolicyIntended ControlPolicy = "intended"
)

// RideConfig holds ride orchestration settings.
type RideConfig struct {
	Location       *time.Location
	ControlPolicy  ControlPolicy
	StartLockTTL   time.Duration
	SessionTTL     time.Duration
	DefaultSpeedKm int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	tz := getEnv("SERVICE_TIMEZONE", "Asia/Seoul")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVICE_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Mode:         getEnv("APP_MODE", "dev"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "kickride"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBoolEnv("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "kickride"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Platform: PlatformConfig{
			URL:             strings.TrimRight(getEnv("PLATFORM_URL", ""), "/"),
			AccessKeyID:     getEnv("PLATFORM_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("PLATFORM_SECRET_ACCESS_KEY", ""),
			WebhookToken:    getEnv("PLATFORM_WEBHOOK_TOKEN", ""),
			Timeout:         getDurationEnv("PLATFORM_TIMEOUT", 10*time.Second),
		},
		CoreService: CoreServiceConfig{
			RideURL:     getEnv("CORESERVICE_RIDE_URL", ""),
			RideKey:     getEnv("CORESERVICE_RIDE_KEY", ""),
			AccountsURL: strings.TrimRight(getEnv("CORESERVICE_ACCOUNTS_URL", ""), "/"),
			AccountsKey: getEnv("CORESERVICE_ACCOUNTS_KEY", ""),
			PaymentsURL: strings.TrimRight(getEnv("CORESERVICE_PAYMENTS_URL", ""), "/"),
			PaymentsKey: getEnv("CORESERVICE_PAYMENTS_KEY", ""),
			Timeout:     getDurationEnv("CORESERVICE_TIMEOUT", 10*time.Second),
		},
		Ride: RideConfig{
			Location:       loc,
			ControlPolicy:  ControlPolicy(strings.ToLower(getEnv("CONTROL_STATE_POLICY", string(ControlPolicyConfirmed)))),
			StartLockTTL:   getDurationEnv("RIDE_START_LOCK_TTL", 30*time.Second),
			SessionTTL:     getDurationEnv("SESSION_CACHE_TTL", 30*time.Second),
			DefaultSpeedKm: getIntEnv("RIDE_DEFAULT_MAX_SPEED", 20),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Platform.URL == "" || c.Platform.AccessKeyID == "" || c.Platform.SecretAccessKey == "" {
		errs = append(errs, errors.New("platform credentials are required (PLATFORM_URL, PLATFORM_ACCESS_KEY_ID, PLATFORM_SECRET_ACCESS_KEY)"))
	}
	if c.CoreService.RideURL == "" || c.CoreService.RideKey == "" {
		errs = append(errs, errors.New("CORESERVICE_RIDE_URL and CORESERVICE_RIDE_KEY are required"))
	}
	if c.CoreService.AccountsURL == "" || c.CoreService.AccountsKey == "" {
		errs = append(errs, errors.New("accounts credentials are required (CORESERVICE_ACCOUNTS_URL, CORESERVICE_ACCOUNTS_KEY)"))
	}
	if c.CoreService.PaymentsURL == "" || c.CoreService.PaymentsKey == "" {
		errs = append(errs, errors.New("payments credentials are required (CORESERVICE_PAYMENTS_URL, CORESERVICE_PAYMENTS_KEY)"))
	}
	switch c.Ride.ControlPolicy {
	case ControlPolicyConfirmed, ControlPolicyIntended:
	default:
		errs = append(errs, fmt.Errorf("unknown CONTROL_STATE_POLICY %q", c.Ride.ControlPolicy))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
