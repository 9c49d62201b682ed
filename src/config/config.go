package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Aggregator settings
	QuickSyncTimeout      time.Duration
	FullSyncTimeout       time.Duration
	FullSyncWindowDays    int
	IncrementalBufferDays int

	// Scheduler cadence (quick hourly, full every 4 hours by default)
	QuickSyncInterval time.Duration
	FullSyncInterval  time.Duration

	// Duplicate detection tunables
	DuplicateLookbackDays   int
	DuplicateDateWindowDays int

	// Subscription detection tunables
	SubscriptionLookbackDays    int
	SubscriptionMinOccurrences  int
	AmountTolerancePct          float64
	AmountToleranceAbs          float64
	CycleIntervalBandPct        float64
	AnnualDetectionLookbackDays int
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./fintrack.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Aggregator
		QuickSyncTimeout:      getEnvAsDuration("QUICK_SYNC_TIMEOUT", 15*time.Second),
		FullSyncTimeout:       getEnvAsDuration("FULL_SYNC_TIMEOUT", 120*time.Second),
		FullSyncWindowDays:    getEnvAsInt("FULL_SYNC_WINDOW_DAYS", 90),
		IncrementalBufferDays: getEnvAsInt("INCREMENTAL_BUFFER_DAYS", 3),

		// Cadence
		QuickSyncInterval: getEnvAsDuration("QUICK_SYNC_INTERVAL", 1*time.Hour),
		FullSyncInterval:  getEnvAsDuration("FULL_SYNC_INTERVAL", 4*time.Hour),

		// Duplicate detection
		DuplicateLookbackDays:   getEnvAsInt("DUPLICATE_LOOKBACK_DAYS", 90),
		DuplicateDateWindowDays: getEnvAsInt("DUPLICATE_DATE_WINDOW_DAYS", 3),

		// Subscription detection
		SubscriptionLookbackDays:    getEnvAsInt("SUBSCRIPTION_LOOKBACK_DAYS", 90),
		SubscriptionMinOccurrences:  getEnvAsInt("SUBSCRIPTION_MIN_OCCURRENCES", 3),
		AmountTolerancePct:          getEnvAsFloat("AMOUNT_TOLERANCE_PCT", 0.05),
		AmountToleranceAbs:          getEnvAsFloat("AMOUNT_TOLERANCE_ABS", 2.00),
		CycleIntervalBandPct:        getEnvAsFloat("CYCLE_INTERVAL_BAND_PCT", 0.20),
		AnnualDetectionLookbackDays: getEnvAsInt("ANNUAL_DETECTION_LOOKBACK_DAYS", 730),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
