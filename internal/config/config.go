package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Dataset  DatasetConfig
	Signup   SignupConfig
	Database DatabaseConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// AuthConfig points at the hosted auth platform.
type AuthConfig struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// DatasetConfig locates the tender dataset, the location table and the
// sheets feed. An empty LocationsFile selects the embedded table.
type DatasetConfig struct {
	TendersSource string
	LocationsFile string
	SheetsURL     string
}

// SignupConfig tunes the OTP signup flow and the session cookie.
type SignupConfig struct {
	FlowTTL      time.Duration
	CookieSecure bool
}

// DatabaseConfig holds PostgreSQL connection configuration.
// The database is optional; an empty Host disables it.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// DotEnvFile is read before the environment when it exists.
const DotEnvFile = ".env"

// Load reads configuration from an optional .env file and then from
// environment variables. Variables already set in the environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("AUTH_TIMEOUT", "10s")
	v.SetDefault("TENDERS_SOURCE", "data/tenders.json")
	v.SetDefault("SIGNUP_FLOW_TTL", "30m")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_POOL_MIN", 0)
	v.SetDefault("DB_POOL_MAX", 4)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Auth: AuthConfig{
			URL:     strings.TrimRight(v.GetString("AUTH_URL"), "/"),
			AnonKey: v.GetString("AUTH_ANON_KEY"),
			Timeout: v.GetDuration("AUTH_TIMEOUT"),
		},
		Dataset: DatasetConfig{
			TendersSource: v.GetString("TENDERS_SOURCE"),
			LocationsFile: v.GetString("LOCATIONS_FILE"),
			SheetsURL:     v.GetString("SHEETS_URL"),
		},
		Signup: SignupConfig{
			FlowTTL:      v.GetDuration("SIGNUP_FLOW_TTL"),
			CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Auth.URL == "" {
		return fmt.Errorf("AUTH_URL is required")
	}
	if c.Auth.AnonKey == "" {
		return fmt.Errorf("AUTH_ANON_KEY is required")
	}
	if c.Auth.Timeout <= 0 {
		return fmt.Errorf("AUTH_TIMEOUT must be positive")
	}

	if c.Dataset.TendersSource == "" {
		return fmt.Errorf("TENDERS_SOURCE is required")
	}

	if c.Signup.FlowTTL <= 0 {
		return fmt.Errorf("SIGNUP_FLOW_TTL must be positive")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate(); err != nil {
			return err
		}
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	if d.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if d.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if d.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if d.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	switch d.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("DB_SSLMODE %q is not a valid sslmode", d.SSLMode)
	}
	if d.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if d.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if d.PoolMin > d.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
