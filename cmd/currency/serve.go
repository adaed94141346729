package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/api"
	"github.com/dalfonso89/currency-data-client/internal/config"
	"github.com/dalfonso89/currency-data-client/internal/logger"
	"github.com/dalfonso89/currency-data-client/internal/platform"
	"github.com/dalfonso89/currency-data-client/internal/ratelimit"
	"github.com/dalfonso89/currency-data-client/internal/service"
)

// serve runs the HTTP binding until SIGINT/SIGTERM
func serve(cfg *config.Config, log *logger.Logger) error {
	rateLimiter := ratelimit.NewLimiter(cfg, log)
	defer rateLimiter.Stop()

	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:      log,
		Currencies:  service.NewCurrencyServiceFromConfig(cfg, log),
		RateLimiter: rateLimiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Timeout + 15*time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Starting server on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	shutdownCtx, stop := platform.NewShutdownContext(context.Background())
	defer stop()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdownCtx.Done():
	}

	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("Server exited")
	return nil
}
