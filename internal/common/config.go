package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Backend BackendConfig
	Inbox   InboxConfig
	Server  ServerConfig
}

// BackendConfig holds routing-backend configuration
type BackendConfig struct {
	BaseURL       string
	APIKey        string
	DialTimeout   time.Duration
	EnrichTimeout time.Duration // per-call deadline for the enrich stage
	EnrichPerMin  int           // rate limit for enrich calls (0 disables)
}

// InboxConfig holds watcher and catalog configuration
type InboxConfig struct {
	WatchRoots   []string
	CatalogPath  string
	Debounce     time.Duration
	PreviewBytes int
}

// ServerConfig holds the local HTTP/WebSocket surface configuration
type ServerConfig struct {
	Addr         string
	RefreshDelay time.Duration // delay before pushing a listing refresh after routed items
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:       getEnv("BACKEND_URL", ""),
			APIKey:        getEnv("BACKEND_API_KEY", ""),
			DialTimeout:   getEnvAsDuration("BACKEND_DIAL_TIMEOUT", 10*time.Second),
			EnrichTimeout: getEnvAsDuration("ENRICH_TIMEOUT", 180*time.Second),
			EnrichPerMin:  getEnvAsInt("ENRICH_PER_MIN", 6),
		},
		Inbox: InboxConfig{
			WatchRoots:   splitList(getEnv("INBOX_ROOTS", "")),
			CatalogPath:  getEnv("INBOX_CATALOG", "./inbox.db"),
			Debounce:     getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
			PreviewBytes: getEnvAsInt("INBOX_PREVIEW_BYTES", 4096),
		},
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", "127.0.0.1:7313"),
			RefreshDelay: getEnvAsDuration("REFRESH_DELAY", 1500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, string(os.PathListSeparator))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "BACKEND_URL is required", ErrInvalidInput)
	}
	if len(c.Inbox.WatchRoots) == 0 {
		return NewAppError("CONFIG_ERROR", "INBOX_ROOTS is required", ErrInvalidInput)
	}
	if c.Backend.EnrichTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "ENRICH_TIMEOUT must be positive", ErrInvalidInput)
	}
	return nil
}
