package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// Server
	HTTPAddr string
	AppEnv   string

	// Admin API
	APIBaseURL     string
	RequestTimeout time.Duration
	HooksCacheTTL  time.Duration

	// Redis
	RedisEnabled bool
	RedisAddrs   []string
	RedisPass    string
	RedisDB      int
	RedisPrefix  string

	// Session
	SessionCookie string
	SessionTTL    time.Duration
	CSRFCookie    string
	CSRFHeader    string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		AppEnv:   strings.ToLower(getEnv("APP_ENV", "development")),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8000/api"),
		RequestTimeout: getEnvDuration("API_REQUEST_TIMEOUT", 15*time.Second),
		HooksCacheTTL:  getEnvDuration("HOOKS_CACHE_TTL", time.Minute),

		RedisEnabled: getEnvBool("REDIS_ENABLED", false),
		RedisAddrs:   getEnvSlice("REDIS_ADDR", []string{"localhost:6379"}),
		RedisPass:    getEnv("REDIS_PASS", ""),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RedisPrefix:  getEnv("REDIS_PREFIX", "console"),

		SessionCookie: getEnv("SESSION_COOKIE", "console_sid"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		CSRFCookie:    getEnv("CSRF_COOKIE", "XSRF-TOKEN"),
		CSRFHeader:    getEnv("CSRF_HEADER", "X-CSRF-Token"),
	}
}

// IsProduction reports whether cookies must be marked Secure.
func (c AppConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks settings the console cannot start without.
func (c AppConfig) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q must be an absolute URL", c.APIBaseURL)
	}
	if c.SessionCookie == "" {
		return fmt.Errorf("SESSION_COOKIE must not be empty")
	}
	if c.RedisEnabled && len(c.RedisAddrs) == 0 {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED is set")
	}
	return nil
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
