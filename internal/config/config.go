package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Server     ServerConfig
	Governance GovernanceConfig
	Proxy      ProxyConfig
	Slack      SlackConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// AuthConfig holds admin token settings. AdminPasswordHash is a bcrypt hash
// of the shared admin password; the plaintext never appears in config.
type AuthConfig struct {
	JWTSecret         string //nolint:gosec // G117: JWT signing secret config
	AdminPasswordHash string //nolint:gosec // G117: bcrypt hash config
	TokenTTL          time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// GovernanceConfig holds evaluation and anomaly detection knobs.
type GovernanceConfig struct {
	RapidThreshold    int
	RapidWindow       time.Duration
	BusinessStartHour int
	BusinessEndHour   int
	Backlog           int
}

// ProxyConfig holds traffic classifier settings. The endpoint lists are
// substring patterns matched against proxied target URLs.
type ProxyConfig struct {
	AuthorizedEndpoints   []string
	UnauthorizedEndpoints []string
	RelayTimeout          time.Duration
}

// SlackConfig holds Slack alerting settings. Alerting is disabled when the
// bot token is empty.
type SlackConfig struct {
	BotToken    string
	Channel     string
	MinSeverity string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("METIS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("METIS_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("METIS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("METIS_AUTH_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("METIS_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("METIS_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rapidThreshold, err := getEnvInt("METIS_RAPID_THRESHOLD", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rapidWindow, err := getEnvDuration("METIS_RAPID_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	businessStart, err := getEnvInt("METIS_BUSINESS_START_HOUR", 9)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	businessEnd, err := getEnvInt("METIS_BUSINESS_END_HOUR", 18)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	backlog, err := getEnvInt("METIS_VIOLATION_BACKLOG", 100)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	relayTimeout, err := getEnvDuration("METIS_PROXY_RELAY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("METIS_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("METIS_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("METIS_DB_USER", "metis"),
			Password: getEnv("METIS_DB_PASSWORD", ""),
			DBName:   getEnv("METIS_DB_NAME", "metis_dev"),
			SSLMode:  getEnv("METIS_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("METIS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("METIS_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("METIS_JWT_SECRET", ""),
			AdminPasswordHash: getEnv("METIS_ADMIN_PASSWORD_HASH", ""),
			TokenTTL:          tokenTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("METIS_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Governance: GovernanceConfig{
			RapidThreshold:    rapidThreshold,
			RapidWindow:       rapidWindow,
			BusinessStartHour: businessStart,
			BusinessEndHour:   businessEnd,
			Backlog:           backlog,
		},
		Proxy: ProxyConfig{
			AuthorizedEndpoints:   getEnvList("METIS_PROXY_AUTHORIZED", nil),
			UnauthorizedEndpoints: getEnvList("METIS_PROXY_UNAUTHORIZED", nil),
			RelayTimeout:          relayTimeout,
		},
		Slack: SlackConfig{
			BotToken:    getEnv("METIS_SLACK_BOT_TOKEN", ""),
			Channel:     getEnv("METIS_SLACK_CHANNEL", ""),
			MinSeverity: getEnv("METIS_SLACK_MIN_SEVERITY", "HIGH"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.Auth.JWTSecret == "" {
		return errors.New("METIS_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("METIS_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.AdminPasswordHash == "" {
		return errors.New("METIS_ADMIN_PASSWORD_HASH is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("METIS_AUTH_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("METIS_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("METIS_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("METIS_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("METIS_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("METIS_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Governance.RapidThreshold < 1 {
		return fmt.Errorf("METIS_RAPID_THRESHOLD must be >= 1, got %d", c.Governance.RapidThreshold)
	}
	if c.Governance.RapidWindow <= 0 {
		return fmt.Errorf("METIS_RAPID_WINDOW must be positive, got %s", c.Governance.RapidWindow)
	}
	if c.Governance.BusinessStartHour < 0 || c.Governance.BusinessStartHour > 23 {
		return fmt.Errorf("METIS_BUSINESS_START_HOUR must be 0-23, got %d", c.Governance.BusinessStartHour)
	}
	if c.Governance.BusinessEndHour < 0 || c.Governance.BusinessEndHour > 23 {
		return fmt.Errorf("METIS_BUSINESS_END_HOUR must be 0-23, got %d", c.Governance.BusinessEndHour)
	}
	if c.Governance.BusinessStartHour >= c.Governance.BusinessEndHour {
		return fmt.Errorf("business hours window is empty: start %d, end %d",
			c.Governance.BusinessStartHour, c.Governance.BusinessEndHour)
	}
	if c.Governance.Backlog < 1 {
		return fmt.Errorf("METIS_VIOLATION_BACKLOG must be >= 1, got %d", c.Governance.Backlog)
	}
	if c.Proxy.RelayTimeout <= 0 {
		return fmt.Errorf("METIS_PROXY_RELAY_TIMEOUT must be positive, got %s", c.Proxy.RelayTimeout)
	}

	if c.Slack.BotToken != "" && c.Slack.Channel == "" {
		return errors.New("METIS_SLACK_CHANNEL is required when METIS_SLACK_BOT_TOKEN is set")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
