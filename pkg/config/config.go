package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Scan engine
	Scan ScanConfig

	// Monitor loop
	Monitor MonitorConfig

	// External data sources
	TWSE         TWSEConfig
	PriceAPI     PriceAPIConfig
	StatementDog StatementDogConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ScanConfig holds scan engine tuning knobs
type ScanConfig struct {
	MaxRetries     int           // retries per symbol on transient data failures
	RetryDelay     time.Duration // base backoff between retries
	EvalTimeout    time.Duration // per-evaluation deadline; a timeout counts as data-unavailable
	Workers        int           // bounded evaluation concurrency per pipeline
	LockTTL        time.Duration // scan/monitor mutual-exclusion lease lifetime
	MomentumMin    float64       // momentum score pass threshold
	FundamentalMin float64       // fundamental score pass threshold
	MinFScore      int           // Piotroski F-Score gate for the fundamental pipeline
}

// MonitorConfig holds monitor loop configuration
type MonitorConfig struct {
	// ReevaluateManual re-scores manually retained symbols for drift
	// reporting. Manual records are never auto-pruned either way.
	ReevaluateManual bool
}

// TWSEConfig holds the exchange listing source configuration
type TWSEConfig struct {
	BaseURL    string
	IncludeOTC bool
}

// PriceAPIConfig holds the daily price data source configuration
type PriceAPIConfig struct {
	BaseURL       string
	RatePerSecond float64       // outbound request budget
	LookbackDays  int           // bars fetched per symbol
	MirrorMaxAge  time.Duration // max staleness before mirrored bars are bypassed
}

// StatementDogConfig holds the fundamental data source configuration
type StatementDogConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// Scan engine
		Scan: ScanConfig{
			MaxRetries:     getEnvAsInt("SCAN_MAX_RETRIES", 3),
			RetryDelay:     getEnvAsDuration("SCAN_RETRY_DELAY", "2s"),
			EvalTimeout:    getEnvAsDuration("SCAN_EVAL_TIMEOUT", "30s"),
			Workers:        getEnvAsInt("SCAN_WORKERS", 1),
			LockTTL:        getEnvAsDuration("SCAN_LOCK_TTL", "10m"),
			MomentumMin:    getEnvAsFloat("SCAN_MOMENTUM_MIN", 0.15),
			FundamentalMin: getEnvAsFloat("SCAN_FUNDAMENTAL_MIN", 0.0),
			MinFScore:      getEnvAsInt("SCAN_MIN_FSCORE", 5),
		},

		// Monitor loop
		Monitor: MonitorConfig{
			ReevaluateManual: getEnvAsBool("MONITOR_REEVALUATE_MANUAL", true),
		},

		// External data sources
		TWSE: TWSEConfig{
			BaseURL:    getEnv("TWSE_BASE_URL", "https://isin.twse.com.tw"),
			IncludeOTC: getEnvAsBool("TWSE_INCLUDE_OTC", true),
		},
		PriceAPI: PriceAPIConfig{
			BaseURL:       getEnv("PRICE_API_BASE_URL", "https://query1.finance.yahoo.com"),
			RatePerSecond: getEnvAsFloat("PRICE_API_RATE_PER_SECOND", 2.0),
			LookbackDays:  getEnvAsInt("PRICE_API_LOOKBACK_DAYS", 130),
			MirrorMaxAge:  getEnvAsDuration("PRICE_MIRROR_MAX_AGE", "72h"),
		},
		StatementDog: StatementDogConfig{
			BaseURL:  getEnv("STATEMENTDOG_BASE_URL", "https://statementdog.com"),
			CacheTTL: getEnvAsDuration("STATEMENTDOG_CACHE_TTL", "24h"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers < 1 {
		return fmt.Errorf("SCAN_WORKERS must be at least 1")
	}

	if c.Scan.MaxRetries < 0 {
		return fmt.Errorf("SCAN_MAX_RETRIES must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
