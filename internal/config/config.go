// Package config is the environment-variable loading convenience used
// by licenseseatctl. The licenseseat package itself never touches
// os.Getenv — callers of the library construct a licenseseat.Config
// directly; this package exists only to give the CLI binary sane
// env-driven defaults the way cmd/api did for the platform server.
package config

import (
	"strconv"
	"time"

	"os"
)

// Config holds the CLI's environment-derived defaults.
type Config struct {
	APIKey      string
	ProductSlug string
	APIBaseURL  string

	AutoValidateInterval time.Duration
	HeartbeatInterval    time.Duration

	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration

	OfflineFallbackMode string
	MaxOfflineDays      int
	MaxClockSkew        time.Duration

	StoragePrefix string
	Debug         bool
}

// Load reads the LICENSESEAT_* environment variables, falling back to
// the library's own documented defaults for anything unset.
func Load() *Config {
	return &Config{
		APIKey:               getEnv("LICENSESEAT_API_KEY", ""),
		ProductSlug:          getEnv("LICENSESEAT_PRODUCT", ""),
		APIBaseURL:           getEnv("LICENSESEAT_BASE_URL", "https://licenseseat.com/api/v1"),
		AutoValidateInterval: getEnvDuration("LICENSESEAT_AUTO_VALIDATE_INTERVAL", time.Hour),
		HeartbeatInterval:    getEnvDuration("LICENSESEAT_HEARTBEAT_INTERVAL", 5*time.Minute),
		MaxRetries:           getEnvInt("LICENSESEAT_MAX_RETRIES", 3),
		RetryDelay:           getEnvDuration("LICENSESEAT_RETRY_DELAY", time.Second),
		HTTPTimeout:          getEnvDuration("LICENSESEAT_HTTP_TIMEOUT", 30*time.Second),
		OfflineFallbackMode:  getEnv("LICENSESEAT_OFFLINE_FALLBACK", "disabled"),
		MaxOfflineDays:       getEnvInt("LICENSESEAT_MAX_OFFLINE_DAYS", 0),
		MaxClockSkew:         getEnvDuration("LICENSESEAT_MAX_CLOCK_SKEW", 5*time.Minute),
		StoragePrefix:        getEnv("LICENSESEAT_STORAGE_PREFIX", "licenseseat_"),
		Debug:                getEnvBool("LICENSESEAT_DEBUG", false),
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
