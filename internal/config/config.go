package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Game     GameConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string // "development" or "production"
}

type DatabaseConfig struct {
	// URL is a postgres DSN. Empty means the in-memory store.
	URL string
}

type GameConfig struct {
	TurnDuration  time.Duration
	GraceDuration time.Duration
	CodeLength    int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Game: GameConfig{
			TurnDuration:  time.Duration(getEnvInt("TURN_SECONDS", 15)) * time.Second,
			GraceDuration: time.Duration(getEnvInt("GRACE_SECONDS", 5)) * time.Second,
			CodeLength:    getEnvInt("ROOM_CODE_LENGTH", 5),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
