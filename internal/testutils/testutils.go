package testutils

import (
	"context"
	"io"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/config"
	"github.com/dalfonso89/currency-data-client/internal/logger"
)

// MockLogger creates a debug logger that discards its output
func MockLogger() *logger.Logger {
	return logger.NewWithOutput("debug", io.Discard)
}

// MockConfig creates a configuration pointing at baseURL with the mock API key
func MockConfig(baseURL string) *config.Config {
	return &config.Config{
		APIKey:   MockAPIKey,
		BaseURL:  baseURL,
		Timeout:  5 * time.Second,
		LogLevel: "debug",
		Port:     "0",

		RateLimitEnabled:  true,
		RateLimitRequests: 100,
		RateLimitWindow:   60 * time.Second,
		RateLimitBurst:    10,
	}
}

// MockContextWithTimeout creates a context with timeout for testing
func MockContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
