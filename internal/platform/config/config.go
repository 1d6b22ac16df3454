package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port           string
	GinMode        string
	AllowedOrigins string

	StoreBackend        string
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string
	FirestoreEmulator   string
	MongoURI            string
	MongoDatabase       string

	ReportsCollection      string
	SatisfactionCollection string
	StatusInProgress       string
	StatusCompleted        string

	StatsTimezone  string
	StatsTimeout   time.Duration
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                   getEnv("PORT", "8080"),
		GinMode:                getEnv("GIN_MODE", "release"),
		AllowedOrigins:         strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
		StoreBackend:           strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		FirebaseProjectID:      strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64:    strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:      strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		FirestoreEmulator:      strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		MongoURI:               strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase:          getEnv("MONGO_DATABASE", "complaints"),
		ReportsCollection:      getEnv("REPORTS_COLLECTION", "submittedreports"),
		SatisfactionCollection: getEnv("SATISFACTION_COLLECTION", "satisfactions"),
		StatusInProgress:       getEnv("STATUS_IN_PROGRESS", "อยู่ระหว่างดำเนินการ"),
		StatusCompleted:        getEnv("STATUS_COMPLETED", "ดำเนินการเสร็จสิ้น"),
		StatsTimezone:          getEnv("STATS_TIMEZONE", "Local"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "text"),
		LogFile:                strings.TrimSpace(os.Getenv("LOG_FILE")),
	}

	timeout, err := parseDurationEnv("STATS_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse STATS_TIMEOUT: %w", err)
	}
	cfg.StatsTimeout = timeout

	rps, err := parseFloatEnv("RATE_LIMIT_RPS", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimitRPS = rps

	burst, err := parseIntEnv("RATE_LIMIT_BURST", 20)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
	}
	cfg.RateLimitBurst = burst

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required")
		}
		if c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" && c.FirestoreEmulator == "" {
			return errors.New("provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required when STORE_BACKEND=mongo")
		}
		if c.MongoDatabase == "" {
			return errors.New("MONGO_DATABASE is required when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, BackendFirestore, BackendMongo)
	}
	if c.ReportsCollection == "" || c.SatisfactionCollection == "" {
		return errors.New("collection names must not be empty")
	}
	if c.StatusInProgress == c.StatusCompleted {
		return errors.New("STATUS_IN_PROGRESS and STATUS_COMPLETED must differ")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StatsTimeout <= 0 {
		return errors.New("STATS_TIMEOUT must be positive")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	return nil
}

// Location resolves the time zone used for calendar month boundaries.
func (c Config) Location() (*time.Location, error) {
	if c.StatsTimezone == "" || c.StatsTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.StatsTimezone)
	if err != nil {
		return nil, fmt.Errorf("load STATS_TIMEZONE %q: %w", c.StatsTimezone, err)
	}
	return loc, nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}

func parseFloatEnv(key string, defaultVal float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(val, 64)
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}
