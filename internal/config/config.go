package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	PublicBaseURL     string        `mapstructure:"PUBLIC_BASE_URL"`
	VapiAPIKey        string        `mapstructure:"VAPI_API_KEY"`
	VapiBaseURL       string        `mapstructure:"VAPI_BASE_URL"`
	VapiAssistantID   string        `mapstructure:"VAPI_ASSISTANT_ID"`
	VapiPhoneNumberID string        `mapstructure:"VAPI_PHONE_NUMBER_ID"`
	BlobSigningSecret string        `mapstructure:"BLOB_SIGNING_SECRET"`
	SignedURLTTL      time.Duration `mapstructure:"SIGNED_URL_TTL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("VAPI_BASE_URL", "https://api.vapi.ai")
	v.SetDefault("SIGNED_URL_TTL", "15m")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PUBLIC_BASE_URL")
	v.BindEnv("VAPI_API_KEY")
	v.BindEnv("VAPI_BASE_URL")
	v.BindEnv("VAPI_ASSISTANT_ID")
	v.BindEnv("VAPI_PHONE_NUMBER_ID")
	v.BindEnv("BLOB_SIGNING_SECRET")
	v.BindEnv("SIGNED_URL_TTL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the settings the server cannot run without. Development
// gets a throwaway signing secret so a bare `make run` works; production
// must provide every secret.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}

	if c.IsProduction() {
		if c.VapiAPIKey == "" {
			return fmt.Errorf("VAPI_API_KEY is required in production")
		}
		if c.BlobSigningSecret == "" {
			return fmt.Errorf("BLOB_SIGNING_SECRET is required in production")
		}
	}
	if c.BlobSigningSecret == "" {
		c.BlobSigningSecret = "dev-only-insecure-signing-secret"
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
