package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when neither --key nor APIKEY is set.
var ErrMissingAPIKey = errors.New("provide an api key with --key or set the APIKEY env var")

// DefaultBaseURL is the apilayer host used when none is configured.
const DefaultBaseURL = "https://api.apilayer.com"

// Flag names double as viper keys.
const (
	KeyAPIKey            = "key"
	KeyBaseURL           = "base-url"
	KeyTimeout           = "timeout"
	KeyLogLevel          = "log-level"
	KeyPort              = "port"
	KeyRateLimitEnabled  = "rate-limit-enabled"
	KeyRateLimitRequests = "rate-limit-requests"
	KeyRateLimitWindow   = "rate-limit-window"
	KeyRateLimitBurst    = "rate-limit-burst"
)

var envBindings = map[string]string{
	KeyAPIKey:            "APIKEY",
	KeyBaseURL:           "APILAYER_BASE_URL",
	KeyTimeout:           "APILAYER_TIMEOUT",
	KeyLogLevel:          "LOG_LEVEL",
	KeyPort:              "PORT",
	KeyRateLimitEnabled:  "RATE_LIMIT_ENABLED",
	KeyRateLimitRequests: "RATE_LIMIT_REQUESTS",
	KeyRateLimitWindow:   "RATE_LIMIT_WINDOW",
	KeyRateLimitBurst:    "RATE_LIMIT_BURST",
}

// Config holds all configuration for the application
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	LogLevel string

	// HTTP binding shim
	Port string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// RegisterFlags adds every configuration flag to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP(KeyAPIKey, "k", "", "API key provided by apilayer.com. Alternatively, use the APIKEY env var")
	flags.String(KeyBaseURL, DefaultBaseURL, "apilayer base URL")
	flags.Duration(KeyTimeout, 30*time.Second, "HTTP request timeout")
	flags.String(KeyLogLevel, "info", "log level (debug, info, warn, error)")
	flags.String(KeyPort, "8081", "port for the serve command")
	flags.Bool(KeyRateLimitEnabled, true, "enable per-client rate limiting in serve")
	flags.Int(KeyRateLimitRequests, 100, "requests allowed per rate limit window")
	flags.Duration(KeyRateLimitWindow, 60*time.Second, "rate limit window")
	flags.Int(KeyRateLimitBurst, 10, "rate limit burst size")
}

// Load resolves configuration from flags, environment (including a .env file) and
// defaults, in that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyTimeout, 30*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyPort, "8081")
	v.SetDefault(KeyRateLimitEnabled, true)
	v.SetDefault(KeyRateLimitRequests, 100)
	v.SetDefault(KeyRateLimitWindow, 60*time.Second)
	v.SetDefault(KeyRateLimitBurst, 10)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if flags != nil {
		var bindError error
		flags.VisitAll(func(flag *pflag.Flag) {
			// an explicit empty --key falls back to APIKEY
			if bindError != nil || (flag.Name == KeyAPIKey && flag.Value.String() == "") {
				return
			}
			bindError = v.BindPFlag(flag.Name, flag)
		})
		if bindError != nil {
			return nil, fmt.Errorf("bind flags: %w", bindError)
		}
	}

	return &Config{
		APIKey:   v.GetString(KeyAPIKey),
		BaseURL:  v.GetString(KeyBaseURL),
		Timeout:  v.GetDuration(KeyTimeout),
		LogLevel: v.GetString(KeyLogLevel),

		Port: v.GetString(KeyPort),

		RateLimitEnabled:  v.GetBool(KeyRateLimitEnabled),
		RateLimitRequests: v.GetInt(KeyRateLimitRequests),
		RateLimitWindow:   v.GetDuration(KeyRateLimitWindow),
		RateLimitBurst:    v.GetInt(KeyRateLimitBurst),
	}, nil
}

// Validate reports configuration that would fail before any request is made.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}
