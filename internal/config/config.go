package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Market    MarketConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// MarketConfig holds external price feed configuration.
type MarketConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64
	BenchmarkTicker string
	// FernetKey decrypts the stored provider API token. Empty disables
	// token auth against the feed.
	FernetKey string
}

// SchedulerConfig holds the cron specs for the background jobs.
// Specs use the standard five-field cron format.
type SchedulerConfig struct {
	IntradaySpec     string
	EndOfDaySpec     string
	RegenerateSpec   string
	IntradayKeepDays int
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/performance.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(
				getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost"), ","),
		},
		Market: MarketConfig{
			BaseURL:         getEnv("MARKET_BASE_URL", "https://query1.finance.yahoo.com"),
			Timeout:         getDurationEnv("MARKET_TIMEOUT", 10*time.Second),
			RatePerSecond:   getFloatEnv("MARKET_RATE_PER_SECOND", 2),
			BenchmarkTicker: getEnv("BENCHMARK_TICKER", "^GSPC"),
			FernetKey:       getEnv("MARKET_FERNET_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			IntradaySpec:     getEnv("SCHEDULE_INTRADAY", "*/30 14-21 * * 1-5"),
			EndOfDaySpec:     getEnv("SCHEDULE_END_OF_DAY", "30 21 * * 1-5"),
			RegenerateSpec:   getEnv("SCHEDULE_REGENERATE", "0 2 * * *"),
			IntradayKeepDays: getIntEnv("INTRADAY_KEEP_DAYS", 8),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatEnv(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
