// ===============================
// internal/config/config.go - Environment Configuration
// ===============================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// R2Config holds Cloudflare R2 configuration
type R2Config struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Enabled reports whether enough R2 settings are present to upload files.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKey != "" && r.SecretKey != ""
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Environment string
	Port        string
	LogLevel    string

	// Database configuration
	DatabaseURL string

	// Firebase configuration
	FirebaseProjectID   string
	FirebaseCredentials string // Path to service account JSON file

	// Legacy Firestore import; zero disables the periodic sync
	FirestoreSyncInterval time.Duration

	// R2 Storage configuration (payment proofs)
	R2Config R2Config

	// CORS configuration
	AllowedOrigins []string

	// Contact shown to paid-plan users for payment verification
	SupportWhatsApp string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Environment:         getEnv("GIN_MODE", "debug"),
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		SupportWhatsApp:     getEnv("SUPPORT_WHATSAPP", ""),
		R2Config: R2Config{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", "freezy-payments"),
		},
	}

	// Set public URL for R2
	if config.R2Config.AccountID != "" && config.R2Config.BucketName != "" {
		config.R2Config.PublicURL = fmt.Sprintf("https://%s.%s.r2.cloudflarestorage.com",
			config.R2Config.BucketName, config.R2Config.AccountID)
	}

	// Parse allowed origins
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	config.AllowedOrigins = strings.Split(originsStr, ",")
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	interval, err := time.ParseDuration(getEnv("FIRESTORE_SYNC_INTERVAL", "0"))
	if err != nil || interval < 0 {
		return nil, ErrInvalidSyncInterval
	}
	config.FirestoreSyncInterval = interval

	// Validate required configuration
	if config.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if config.FirebaseProjectID == "" {
		return nil, ErrMissingFirebaseConfig
	}

	return config, nil
}

// IsRelease reports whether the service runs in gin release mode.
func (c *Config) IsRelease() bool {
	return c.Environment == "release"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Configuration errors
var (
	ErrMissingDatabaseURL    = ConfigError{Message: "DATABASE_URL environment variable is required"}
	ErrMissingFirebaseConfig = ConfigError{Message: "FIREBASE_PROJECT_ID is required"}
	ErrInvalidSyncInterval   = ConfigError{Message: "FIRESTORE_SYNC_INTERVAL must be a non-negative duration such as 6h"}
)

// ConfigError represents a configuration error
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
