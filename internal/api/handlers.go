package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/apilayer"
	"github.com/dalfonso89/currency-data-client/internal/logger"
	"github.com/dalfonso89/currency-data-client/internal/middleware"
	"github.com/dalfonso89/currency-data-client/internal/models"
	"github.com/dalfonso89/currency-data-client/internal/ratelimit"
	"github.com/dalfonso89/currency-data-client/internal/service"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HandlerConfig holds the dependencies of Handlers
type HandlerConfig struct {
	Logger      *logger.Logger
	Currencies  service.CurrencyProvider
	RateLimiter *ratelimit.Limiter
}

// Handlers exposes the currency_data operations over HTTP
type Handlers struct {
	logger      *logger.Logger
	currencies  service.CurrencyProvider
	rateLimiter *ratelimit.Limiter
	startTime   time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(handlerConfig HandlerConfig) *Handlers {
	return &Handlers{
		logger:      handlerConfig.Logger,
		currencies:  handlerConfig.Currencies,
		rateLimiter: handlerConfig.RateLimiter,
		startTime:   time.Now(),
	}
}

// SetupRoutes configures all the routes using Gin
func (handlers *Handlers) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(handlers.logger))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())

	if handlers.rateLimiter != nil {
		router.Use(handlers.rateLimiter.Middleware())
	}

	router.GET("/health", handlers.HealthCheck)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/currencies", handlers.GetCurrencies)
		apiV1.GET("/live", handlers.GetLive)
		apiV1.GET("/historical", handlers.GetHistorical)
		apiV1.GET("/convert", handlers.GetConvert)
	}

	return router
}

// HealthCheck reports process health. It does not call the upstream API.
func (handlers *Handlers) HealthCheck(context *gin.Context) {
	context.JSON(http.StatusOK, models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(handlers.startTime).String(),
	})
}

// GetCurrencies returns every supported currency
func (handlers *Handlers) GetCurrencies(context *gin.Context) {
	currencies, fetchError := handlers.currencies.List(context.Request.Context())
	if fetchError != nil {
		handlers.writeUpstreamError(context, fetchError)
		return
	}

	context.JSON(http.StatusOK, models.CurrenciesResponse{Currencies: currencies})
}

// GetLive returns the latest quotes, e.g. /api/v1/live?source=EUR&currencies=USD,RON
func (handlers *Handlers) GetLive(context *gin.Context) {
	source := service.NormalizeCode(context.Query("source"))
	if source == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "source query parameter is required")
		return
	}
	currencies := service.ParseCodeList(context.Query("currencies"))

	quotes, fetchError := handlers.currencies.Live(context.Request.Context(), source, currencies)
	if fetchError != nil {
		handlers.writeUpstreamError(context, fetchError)
		return
	}

	context.JSON(http.StatusOK, models.QuotesResponse{Source: source, Quotes: quotes})
}

// GetHistorical returns quotes for a past day, e.g. ?date=2024-01-31&source=EUR
func (handlers *Handlers) GetHistorical(context *gin.Context) {
	source := service.NormalizeCode(context.Query("source"))
	if source == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "source query parameter is required")
		return
	}
	date, parseError := time.Parse(time.DateOnly, context.Query("date"))
	if parseError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "date must be formatted as YYYY-MM-DD")
		return
	}
	currencies := service.ParseCodeList(context.Query("currencies"))

	quotes, fetchError := handlers.currencies.Historical(context.Request.Context(), date, source, currencies)
	if fetchError != nil {
		handlers.writeUpstreamError(context, fetchError)
		return
	}

	context.JSON(http.StatusOK, models.QuotesResponse{
		Source: source,
		Date:   date.Format(time.DateOnly),
		Quotes: quotes,
	})
}

// GetConvert converts an amount, e.g. ?from=EUR&to=USD&amount=10
func (handlers *Handlers) GetConvert(context *gin.Context) {
	from := service.NormalizeCode(context.Query("from"))
	to := service.NormalizeCode(context.Query("to"))
	if from == "" || to == "" {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "from and to query parameters are required")
		return
	}
	amount, parseError := strconv.ParseFloat(context.Query("amount"), 64)
	if parseError != nil {
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", "amount must be a number")
		return
	}

	conversion, fetchError := handlers.currencies.Convert(context.Request.Context(), from, to, amount)
	if fetchError != nil {
		handlers.writeUpstreamError(context, fetchError)
		return
	}

	context.JSON(http.StatusOK, models.ConvertResponse{
		From:      conversion.From,
		To:        conversion.To,
		Amount:    conversion.Amount,
		Quote:     conversion.Quote,
		Timestamp: conversion.Timestamp,
		Result:    conversion.Result,
	})
}

// writeUpstreamError maps a client error to a status code and error body
func (handlers *Handlers) writeUpstreamError(context *gin.Context, fetchError error) {
	_ = context.Error(fetchError)

	var (
		apiError       *apilayer.APIError
		httpError      *apilayer.HTTPError
		transportError *apilayer.TransportError
	)

	switch {
	case errors.Is(fetchError, apilayer.ErrEmptySource),
		errors.Is(fetchError, apilayer.ErrEmptyDate),
		errors.Is(fetchError, apilayer.ErrInvalidAmount):
		handlers.writeErrorResponse(context, http.StatusBadRequest, "invalid request", fetchError.Error())
	case errors.Is(fetchError, apilayer.ErrInvalidCredential):
		handlers.logger.Error("Configured API key cannot be sent as a header value")
		handlers.writeErrorResponse(context, http.StatusInternalServerError, "server misconfigured", "invalid api key")
	case errors.As(fetchError, &apiError):
		handlers.logger.Warnf("Upstream request unsuccessful: %v", fetchError)
		context.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:        "upstream request unsuccessful",
			Message:      fetchError.Error(),
			Code:         http.StatusBadGateway,
			UpstreamCode: apiError.Code,
			UpstreamType: apiError.Type,
		})
	case errors.As(fetchError, &httpError):
		handlers.logger.Warnf("Upstream returned status %d", httpError.StatusCode)
		context.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:          "upstream http error",
			Message:        http.StatusText(httpError.StatusCode),
			Code:           http.StatusBadGateway,
			UpstreamStatus: httpError.StatusCode,
		})
	case errors.As(fetchError, &transportError):
		handlers.logger.Warnf("Upstream unreachable: %v", fetchError)
		handlers.writeErrorResponse(context, http.StatusGatewayTimeout, "upstream unreachable", transportError.Error())
	default:
		handlers.logger.Errorf("Upstream response invalid: %v", fetchError)
		handlers.writeErrorResponse(context, http.StatusBadGateway, "upstream response invalid", fetchError.Error())
	}
}

// writeErrorResponse writes an error response using Gin context
func (handlers *Handlers) writeErrorResponse(context *gin.Context, statusCode int, errorMessage, errorDetails string) {
	context.JSON(statusCode, models.ErrorResponse{
		Error:   errorMessage,
		Message: errorDetails,
		Code:    statusCode,
	})
}
