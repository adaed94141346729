package service

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/apilayer"
	"github.com/dalfonso89/currency-data-client/internal/config"
	"github.com/dalfonso89/currency-data-client/internal/logger"

	"golang.org/x/sync/singleflight"
)

// CurrencyProvider defines the currency_data operations the service relies on.
// *apilayer.Client implements it.
type CurrencyProvider interface {
	List(ctx context.Context) (apilayer.Currencies, error)
	Live(ctx context.Context, source string, currencies []string) (apilayer.Quotes, error)
	Historical(ctx context.Context, date time.Time, source string, currencies []string) (apilayer.Quotes, error)
	Convert(ctx context.Context, from, to string, amount float64) (apilayer.Conversion, error)
}

var _ CurrencyProvider = (*apilayer.Client)(nil)

// CurrencyService normalizes arguments and merges identical in-flight calls into
// one upstream request. Nothing is kept once a call returns. The shared request
// ignores the cancellation of any single caller and is bounded by the HTTP client
// timeout; each caller still returns as soon as its own context ends.
type CurrencyService struct {
	provider CurrencyProvider
	logger   *logger.Logger

	singleFlightGroup singleflight.Group
}

// NewCurrencyService creates a service over an existing provider.
func NewCurrencyService(provider CurrencyProvider, logger *logger.Logger) *CurrencyService {
	return &CurrencyService{
		provider: provider,
		logger:   logger,
	}
}

// NewClient builds the apilayer client described by configuration. Quote keys
// without the source prefix are kept and reported as warnings.
func NewClient(configuration *config.Config, logger *logger.Logger) *apilayer.Client {
	return apilayer.New(configuration.APIKey,
		apilayer.WithBaseURL(configuration.BaseURL),
		apilayer.WithHTTPClient(&http.Client{Timeout: configuration.Timeout}),
		apilayer.WithUnexpectedQuoteKeyHook(func(source, key string) {
			logger.WithField("source", source).WithField("key", key).
				Warn("quote key does not start with the source currency; keeping it unchanged")
		}),
	)
}

// NewCurrencyServiceFromConfig wires a service to a client built from configuration.
func NewCurrencyServiceFromConfig(configuration *config.Config, logger *logger.Logger) *CurrencyService {
	return NewCurrencyService(NewClient(configuration, logger), logger)
}

// List returns every supported currency.
func (currencyService *CurrencyService) List(ctx context.Context) (apilayer.Currencies, error) {
	result, err := currencyService.do(ctx, "list", func(sharedCtx context.Context) (interface{}, error) {
		currencyService.logger.Debug("Fetching currency list")
		return currencyService.provider.List(sharedCtx)
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(result.(apilayer.Currencies)), nil
}

// Live returns the latest quotes for source, optionally limited to currencies.
func (currencyService *CurrencyService) Live(ctx context.Context, source string, currencies []string) (apilayer.Quotes, error) {
	source = NormalizeCode(source)
	currencies = NormalizeCodes(currencies)

	callKey := "live:" + source + ":" + strings.Join(currencies, ",")
	result, err := currencyService.do(ctx, callKey, func(sharedCtx context.Context) (interface{}, error) {
		currencyService.logger.Debugf("Fetching live quotes for source: %s", source)
		return currencyService.provider.Live(sharedCtx, source, currencies)
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(result.(apilayer.Quotes)), nil
}

// Historical returns the quotes for source on date.
func (currencyService *CurrencyService) Historical(ctx context.Context, date time.Time, source string, currencies []string) (apilayer.Quotes, error) {
	source = NormalizeCode(source)
	currencies = NormalizeCodes(currencies)

	callKey := fmt.Sprintf("historical:%s:%s:%s", date.Format(time.DateOnly), source, strings.Join(currencies, ","))
	result, err := currencyService.do(ctx, callKey, func(sharedCtx context.Context) (interface{}, error) {
		currencyService.logger.Debugf("Fetching historical quotes for source: %s", source)
		return currencyService.provider.Historical(sharedCtx, date, source, currencies)
	})
	if err != nil {
		return nil, err
	}
	return maps.Clone(result.(apilayer.Quotes)), nil
}

// Convert converts amount between two currencies.
func (currencyService *CurrencyService) Convert(ctx context.Context, from, to string, amount float64) (apilayer.Conversion, error) {
	from = NormalizeCode(from)
	to = NormalizeCode(to)

	callKey := "convert:" + from + ":" + to + ":" + strconv.FormatFloat(amount, 'f', -1, 64)
	result, err := currencyService.do(ctx, callKey, func(sharedCtx context.Context) (interface{}, error) {
		currencyService.logger.Debugf("Converting %s to %s", from, to)
		return currencyService.provider.Convert(sharedCtx, from, to, amount)
	})
	if err != nil {
		return apilayer.Conversion{}, err
	}
	return result.(apilayer.Conversion), nil
}

// do runs fn once per callKey among concurrent callers. fn gets a context that
// keeps ctx's values but not its cancellation.
func (currencyService *CurrencyService) do(ctx context.Context, callKey string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	resultChannel := currencyService.singleFlightGroup.DoChan(callKey, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultChannel:
		if result.Shared {
			currencyService.logger.Debugf("Shared in-flight result for %s", callKey)
		}
		return result.Val, result.Err
	}
}

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeCodes normalizes every code and drops empty and repeated entries.
// It returns nil when nothing is left.
func NormalizeCodes(codes []string) []string {
	var normalized []string
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = NormalizeCode(code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		normalized = append(normalized, code)
	}
	return normalized
}

// ParseCodeList splits a comma separated list such as "USD, ron" into codes.
func ParseCodeList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	return NormalizeCodes(strings.Split(list, ","))
}
