// Package config loads storeit configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port int `mapstructure:"PORT"`

	// AppwriteEndpoint is the platform API base URL, e.g. https://cloud.appwrite.io/v1.
	AppwriteEndpoint string `mapstructure:"APPWRITE_ENDPOINT"`
	AppwriteProject  string `mapstructure:"APPWRITE_PROJECT"`
	// AppwriteAPIKey is the server key used before a session exists.
	AppwriteAPIKey string `mapstructure:"APPWRITE_API_KEY"`

	DatabaseID        string `mapstructure:"APPWRITE_DATABASE"`
	UsersCollectionID string `mapstructure:"APPWRITE_USERS_COLLECTION"`
	BucketID          string `mapstructure:"APPWRITE_BUCKET"`

	AvatarPlaceholderURL string `mapstructure:"AVATAR_PLACEHOLDER_URL"`

	// ChallengeSecret signs the pending OTP challenge cookie.
	ChallengeSecret string        `mapstructure:"CHALLENGE_SECRET"`
	ChallengeTTL    time.Duration `mapstructure:"CHALLENGE_TTL"`

	FrontendURL string `mapstructure:"FRONTEND_URL"`
	// LogLevel accepts slog level names with optional offsets, e.g. "warn+2".
	LogLevel    string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Environment variables override .env.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1")
	v.SetDefault("APPWRITE_PROJECT", "")
	v.SetDefault("APPWRITE_API_KEY", "")
	v.SetDefault("APPWRITE_DATABASE", "")
	v.SetDefault("APPWRITE_USERS_COLLECTION", "")
	v.SetDefault("APPWRITE_BUCKET", "")
	v.SetDefault("AVATAR_PLACEHOLDER_URL", "")
	v.SetDefault("CHALLENGE_SECRET", "")
	v.SetDefault("CHALLENGE_TTL", "15m")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, errors.New("config: "+key+" is required"))
		}
	}

	require(c.AppwriteEndpoint, "APPWRITE_ENDPOINT")
	require(c.AppwriteProject, "APPWRITE_PROJECT")
	require(c.AppwriteAPIKey, "APPWRITE_API_KEY")
	require(c.DatabaseID, "APPWRITE_DATABASE")
	require(c.UsersCollectionID, "APPWRITE_USERS_COLLECTION")
	require(c.ChallengeSecret, "CHALLENGE_SECRET")

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("config: PORT must be between 1 and 65535"))
	}
	if c.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("config: CHALLENGE_TTL must be positive"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return level, nil
}
