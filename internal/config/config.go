package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display timezone must resolve in slim containers

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port            string
	AllowedOrigins  []string
	LogLevel        string
	Environment     string
	DatabaseURL     string
	DatabaseReadURL string // Read replica URL for SELECT queries
	RedisURL        string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string // used for storage writes; falls back to the anon key
	SupabaseJWTSecret  string
	StorageBucket      string

	YouTubeAPIKey string

	DisplayTimezone string
	MaxUploadBytes  int64
	BugCount        int
	TeamCacheTTL    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	anonKey := getEnv("SUPABASE_ANON_KEY", "")

	return &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "production"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DatabaseReadURL:    getEnv("DATABASE_READ_URL", getEnv("DATABASE_URL", "")), // Falls back to write DB if not set
		RedisURL:           getEnv("REDIS_URL", ""),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    anonKey,
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", anonKey),
		SupabaseJWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "submissions"),
		YouTubeAPIKey:      getEnv("YOUTUBE_API_KEY", ""),
		DisplayTimezone:    getEnv("DISPLAY_TIMEZONE", "Asia/Kuala_Lumpur"),
		MaxUploadBytes:     int64(getIntEnv("MAX_UPLOAD_BYTES", 5<<20)),
		BugCount:           getIntEnv("BUG_COUNT", 10),
		TeamCacheTTL:       time.Duration(getIntEnv("TEAM_CACHE_TTL_SECONDS", 300)) * time.Second,
	}, nil
}

// IsDevelopment reports whether the service runs in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Location returns the display timezone, falling back to UTC when the name is unknown
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
