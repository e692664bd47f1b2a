// Package config provides application configuration loading from environment
// variables and .env files. It uses viper for flexible configuration
// management with sensible defaults.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment
// variables or a .env file. Priority: environment variables > .env > defaults.
type Config struct {
	AppEnv        string // Application environment (dev, staging, prod)
	HTTPAddr      string // HTTP server bind address (e.g., ":8080")
	MetricsAddr   string // Metrics/pprof server bind address
	CampaignFile  string // Path to the campaign YAML file
	StoreType     string // Assignment storage backend (memory or postgres)
	DatabaseDSN   string // PostgreSQL connection string
	ClientAPIKey  string // Bearer key for the track/refresh endpoints
	DefaultLocale string // Artifact locale when the request has no override
	LogLevel      string // zerolog level (debug, info, warn, error)
}

// Load reads configuration from environment variables and an optional .env
// file. It never validates constraints; call Validate for that.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // optional; silently ignored when absent
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setDefaults(v)

	return &Config{
		AppEnv:        v.GetString("APP_ENV"),
		HTTPAddr:      v.GetString("HTTP_ADDR"),
		MetricsAddr:   v.GetString("METRICS_ADDR"),
		CampaignFile:  v.GetString("CAMPAIGN_FILE"),
		StoreType:     v.GetString("STORE_TYPE"),
		DatabaseDSN:   v.GetString("DB_DSN"),
		ClientAPIKey:  v.GetString("CLIENT_API_KEY"),
		DefaultLocale: v.GetString("DEFAULT_LOCALE"),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}, nil
}

// setDefaults is suitable for local development; override in production.
func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("CAMPAIGN_FILE", "campaign.yaml")
	v.SetDefault("STORE_TYPE", "memory")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("CLIENT_API_KEY", "client-xyz") // change in production
	v.SetDefault("DEFAULT_LOCALE", "en")
	v.SetDefault("LOG_LEVEL", "info")
}

// ValidationError describes a configuration constraint failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks startup constraints so the process fails fast on
// misconfiguration instead of mid-request.
func (c *Config) Validate() error {
	if c.StoreType != "memory" && c.StoreType != "postgres" {
		return ValidationError{
			Field:   "STORE_TYPE",
			Message: fmt.Sprintf("must be 'memory' or 'postgres', got '%s'", c.StoreType),
		}
	}
	if c.StoreType == "postgres" && c.DatabaseDSN == "" {
		return ValidationError{
			Field:   "DB_DSN",
			Message: "database DSN is required when STORE_TYPE=postgres",
		}
	}
	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}
	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}
	if c.CampaignFile == "" {
		return ValidationError{
			Field:   "CAMPAIGN_FILE",
			Message: "campaign file path cannot be empty",
		}
	}
	if c.DefaultLocale == "" {
		return ValidationError{
			Field:   "DEFAULT_LOCALE",
			Message: "default locale cannot be empty",
		}
	}

	if c.AppEnv == "prod" || c.AppEnv == "production" {
		if c.ClientAPIKey == "client-xyz" || c.ClientAPIKey == "" {
			return ValidationError{
				Field:   "CLIENT_API_KEY",
				Message: "default client API key is not allowed in production",
			}
		}
	}
	return nil
}
