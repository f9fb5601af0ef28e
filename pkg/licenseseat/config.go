package licenseseat

import "time"

// OfflineFallbackMode selects when offline verification is attempted.
type OfflineFallbackMode string

const (
	OfflineFallbackDisabled    OfflineFallbackMode = "disabled"
	OfflineFallbackNetworkOnly OfflineFallbackMode = "network-only"
	OfflineFallbackAlways      OfflineFallbackMode = "always"
)

// Config is the library's own configuration surface, independent of any
// environment-loading convenience — callers construct it directly, the
// way pkg/license.ManagerConfig never touches os.Getenv itself.
type Config struct {
	APIKey      string
	ProductSlug string
	APIBaseURL  string

	AutoValidateInterval time.Duration
	HeartbeatInterval    time.Duration

	MaxRetries  int
	RetryDelay  time.Duration
	HTTPTimeout time.Duration

	OfflineFallbackMode OfflineFallbackMode
	MaxOfflineDays      int

	MaxClockSkew time.Duration

	StoragePrefix string

	AutoInitialize bool
	Debug          bool

	// Logger receives diagnostic output, including debug-level event
	// bus handler failures when Debug is set. Nil discards everything.
	Logger func(format string, args ...any)
}

// DefaultConfig returns the configuration surface's documented defaults.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:           "https://licenseseat.com/api/v1",
		AutoValidateInterval: time.Hour,
		HeartbeatInterval:    5 * time.Minute,
		MaxRetries:           3,
		RetryDelay:           time.Second,
		HTTPTimeout:          30 * time.Second,
		OfflineFallbackMode:  OfflineFallbackDisabled,
		MaxOfflineDays:       0,
		MaxClockSkew:         5 * time.Minute,
		StoragePrefix:        "licenseseat_",
		AutoInitialize:       true,
	}
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.ProductSlug == "" {
		return ErrProductSlugRequired
	}
	return nil
}

func (c Config) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger(format, args...)
	}
}
