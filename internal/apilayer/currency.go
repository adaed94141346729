package apilayer

import (
	"context"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Currencies maps a currency code to its display name.
type Currencies map[string]string

// Quotes maps a target currency code to its rate against the source currency.
type Quotes map[string]float64

// Conversion is the outcome of a convert call.
type Conversion struct {
	From      string
	To        string
	Amount    float64
	Quote     float64
	Timestamp int64
	Result    float64
}

type conversionQuery struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type conversionInfo struct {
	Timestamp int64   `json:"timestamp"`
	Quote     float64 `json:"quote"`
}

const historicalDateLayout = "2006-01-02"

// List returns every currency the API supports.
func (client *Client) List(ctx context.Context) (Currencies, error) {
	envelope, err := client.fetchJSON(ctx, "list", nil)
	if err != nil {
		return nil, err
	}
	return Decode[Currencies](envelope, "currencies")
}

// Live returns the most recent rates against source, optionally restricted to
// the given target currencies. Keys are bare target codes.
func (client *Client) Live(ctx context.Context, source string, currencies []string) (Quotes, error) {
	if source == "" {
		return nil, ErrEmptySource
	}

	envelope, err := client.fetchJSON(ctx, "live", quoteParams(source, currencies))
	if err != nil {
		return nil, err
	}
	return client.decodeQuotes(envelope, source)
}

// Historical returns the rates against source at the end of the given day.
func (client *Client) Historical(ctx context.Context, date time.Time, source string, currencies []string) (Quotes, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	if date.IsZero() {
		return nil, ErrEmptyDate
	}

	params := quoteParams(source, currencies)
	params.Set("date", date.Format(historicalDateLayout))

	envelope, err := client.fetchJSON(ctx, "historical", params)
	if err != nil {
		return nil, err
	}
	return client.decodeQuotes(envelope, source)
}

// Convert converts amount from one currency to another at the latest rate.
func (client *Client) Convert(ctx context.Context, from, to string, amount float64) (Conversion, error) {
	if from == "" || to == "" {
		return Conversion{}, ErrEmptySource
	}
	if !(amount > 0) || math.IsInf(amount, 0) {
		return Conversion{}, ErrInvalidAmount
	}

	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	params.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))

	envelope, err := client.fetchJSON(ctx, "convert", params)
	if err != nil {
		return Conversion{}, err
	}

	result, err := Decode[float64](envelope, "result")
	if err != nil {
		return Conversion{}, err
	}
	query, err := Decode[conversionQuery](envelope, "query")
	if err != nil {
		return Conversion{}, err
	}
	info, err := Decode[conversionInfo](envelope, "info")
	if err != nil {
		return Conversion{}, err
	}

	return Conversion{
		From:      query.From,
		To:        query.To,
		Amount:    query.Amount,
		Quote:     info.Quote,
		Timestamp: info.Timestamp,
		Result:    result,
	}, nil
}

func quoteParams(source string, currencies []string) url.Values {
	params := url.Values{}
	params.Set("source", source)
	if len(currencies) > 0 {
		params.Set("currencies", strings.Join(currencies, ","))
	}
	return params
}

// decodeQuotes decodes the "quotes" payload and strips the source prefix the API
// puts on every key (EURUSD -> USD). Keys without the prefix are kept as they are,
// unless a prefixed key already produced the same code.
func (client *Client) decodeQuotes(envelope any, source string) (Quotes, error) {
	prefixed, err := Decode[Quotes](envelope, "quotes")
	if err != nil {
		return nil, err
	}

	quotes := make(Quotes, len(prefixed))
	var unprefixed []string
	for symbol, rate := range prefixed {
		target, found := strings.CutPrefix(symbol, source)
		if !found {
			unprefixed = append(unprefixed, symbol)
			continue
		}
		quotes[target] = rate
	}

	slices.Sort(unprefixed)
	for _, symbol := range unprefixed {
		if client.onUnexpectedQuoteKey != nil {
			client.onUnexpectedQuoteKey(source, symbol)
		}
		if _, taken := quotes[symbol]; !taken {
			quotes[symbol] = prefixed[symbol]
		}
	}
	return quotes, nil
}
