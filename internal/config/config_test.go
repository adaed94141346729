package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// clearEnv blanks every variable Load reads; viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return flags
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		args     []string
		expected func(*Config) bool
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "" &&
					cfg.BaseURL == DefaultBaseURL &&
					cfg.Timeout == 30*time.Second &&
					cfg.LogLevel == "info" &&
					cfg.Port == "8081" &&
					cfg.RateLimitEnabled == true &&
					cfg.RateLimitRequests == 100 &&
					cfg.RateLimitWindow == 60*time.Second &&
					cfg.RateLimitBurst == 10
			},
		},
		{
			name: "environment configuration",
			envVars: map[string]string{
				"APIKEY":              "env-key",
				"APILAYER_BASE_URL":   "http://localhost:9999",
				"APILAYER_TIMEOUT":    "5s",
				"LOG_LEVEL":           "debug",
				"PORT":                "9090",
				"RATE_LIMIT_ENABLED":  "false",
				"RATE_LIMIT_REQUESTS": "200",
				"RATE_LIMIT_WINDOW":   "2m",
				"RATE_LIMIT_BURST":    "20",
			},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "env-key" &&
					cfg.BaseURL == "http://localhost:9999" &&
					cfg.Timeout == 5*time.Second &&
					cfg.LogLevel == "debug" &&
					cfg.Port == "9090" &&
					cfg.RateLimitEnabled == false &&
					cfg.RateLimitRequests == 200 &&
					cfg.RateLimitWindow == 2*time.Minute &&
					cfg.RateLimitBurst == 20
			},
		},
		{
			name:    "flag beats environment",
			envVars: map[string]string{"APIKEY": "env-key", "PORT": "9090"},
			args:    []string{"--key", "flag-key"},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "flag-key" && cfg.Port == "9090"
			},
		},
		{
			name:    "short key flag",
			envVars: map[string]string{},
			args:    []string{"-k", "short-key", "--log-level", "warn"},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "short-key" && cfg.LogLevel == "warn"
			},
		},
		{
			name:    "empty key flag falls back to environment",
			envVars: map[string]string{"APIKEY": "env-key"},
			args:    []string{"--key", ""},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "env-key"
			},
		},
		{
			name:    "empty key flag without environment stays empty",
			envVars: map[string]string{},
			args:    []string{"-k", ""},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == ""
			},
		},
		{
			name:    "unchanged flags fall back to environment",
			envVars: map[string]string{"APIKEY": "env-key"},
			args:    []string{},
			expected: func(cfg *Config) bool {
				return cfg.APIKey == "env-key" && cfg.BaseURL == DefaultBaseURL
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			var flags *pflag.FlagSet
			if tt.args != nil {
				flags = newFlags(t, tt.args...)
			}

			cfg, err := Load(flags)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}

			if !tt.expected(cfg) {
				t.Errorf("Load() configuration does not match expected values: %+v", cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		anyErr  bool
	}{
		{
			name: "valid",
			cfg:  Config{APIKey: "key", RateLimitEnabled: true, RateLimitRequests: 1, RateLimitWindow: time.Second, RateLimitBurst: 1},
		},
		{
			name:    "missing api key",
			cfg:     Config{},
			wantErr: ErrMissingAPIKey,
		},
		{
			name:   "bad rate limit",
			cfg:    Config{APIKey: "key", RateLimitEnabled: true},
			anyErr: true,
		},
		{
			name: "rate limit disabled ignores settings",
			cfg:  Config{APIKey: "key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("Validate() expected error")
				}
			default:
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
			}
		})
	}
}
