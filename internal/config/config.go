package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tubelens/tubelens-analytics-go/internal/constants"
)

type Config struct {
	YouTube  YouTubeConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Baseline BaselineConfig
	Logging  LoggingConfig
}

type YouTubeConfig struct {
	APIKey          string
	CredentialsFile string
	TokenFile       string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type BaselineConfig struct {
	LookbackVideos int
	LookbackDays   int
	Channels       []string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		YouTube: YouTubeConfig{
			APIKey:          getEnv("YOUTUBE_API_KEY", ""),
			CredentialsFile: getEnv("YOUTUBE_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getEnv("YOUTUBE_TOKEN_FILE", "token.json"),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "tubelens"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "tubelens"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Baseline: BaselineConfig{
			LookbackVideos: getEnvInt("BASELINE_LOOKBACK_VIDEOS", constants.BaselineDefaults.LookbackVideos),
			LookbackDays:   getEnvInt("BASELINE_LOOKBACK_DAYS", constants.BaselineDefaults.LookbackDays),
			Channels:       parseCommaSeparated(getEnv("TRACKED_CHANNELS", "")),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" && c.YouTube.CredentialsFile == "" {
		return fmt.Errorf("YOUTUBE_API_KEY or YOUTUBE_CREDENTIALS_FILE is required")
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.Baseline.LookbackVideos <= 0 && c.Baseline.LookbackDays <= 0 {
		return fmt.Errorf("baseline lookback window must be positive (videos or days)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
