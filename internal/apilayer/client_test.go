package apilayer

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalfonso89/currency-data-client/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, options ...Option) (*Client, *testutils.MockAPILayerServer) {
	t.Helper()
	mockServer := testutils.NewMockAPILayerServer()
	t.Cleanup(mockServer.Close)

	options = append([]Option{WithBaseURL(mockServer.URL()), WithHTTPClient(mockServer.Client())}, options...)
	return New(testutils.MockAPIKey, options...), mockServer
}

func TestClient_List(t *testing.T) {
	client, mockServer := newTestClient(t)
	mockServer.SetResponse("list", http.StatusOK, `{"success": true, "currencies": {"EUR": "Euro"}}`)

	currencies, err := client.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Currencies{"EUR": "Euro"}, currencies)

	request, ok := mockServer.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/currency_data/list", request.Path)
	assert.Empty(t, request.Query)
	assert.Equal(t, testutils.MockAPIKey, request.APIKey)
}

func TestClient_Live(t *testing.T) {
	tests := []struct {
		name           string
		currencies     []string
		wantCurrencies string
	}{
		{"all currencies", nil, ""},
		{"empty filter", []string{}, ""},
		{"restricted", []string{"USD", "RON"}, "USD,RON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mockServer := newTestClient(t)

			quotes, err := client.Live(context.Background(), "EUR", tt.currencies)

			require.NoError(t, err)
			assert.Equal(t, Quotes{"USD": 1.1, "RON": 4.9}, quotes)

			request, ok := mockServer.LastRequest()
			require.True(t, ok)
			assert.Equal(t, "/currency_data/live", request.Path)
			assert.Equal(t, "EUR", request.Query.Get("source"))
			assert.Equal(t, tt.wantCurrencies, request.Query.Get("currencies"))
			_, hasCurrencies := request.Query["currencies"]
			assert.Equal(t, tt.wantCurrencies != "", hasCurrencies)
		})
	}
}

func TestClient_LiveKeepsUnprefixedKeys(t *testing.T) {
	var unexpected []string
	client, mockServer := newTestClient(t, WithUnexpectedQuoteKeyHook(func(source, key string) {
		unexpected = append(unexpected, source+":"+key)
	}))
	mockServer.SetResponse("live", http.StatusOK, `{"success": true, "quotes": {"EURUSD": 1.1, "GBPJPY": 190.5}}`)

	quotes, err := client.Live(context.Background(), "EUR", nil)

	require.NoError(t, err)
	assert.Equal(t, Quotes{"USD": 1.1, "GBPJPY": 190.5}, quotes)
	assert.Equal(t, []string{"EUR:GBPJPY"}, unexpected)
}

func TestClient_LivePrefixedKeyWinsCollision(t *testing.T) {
	var unexpected []string
	client, mockServer := newTestClient(t, WithUnexpectedQuoteKeyHook(func(source, key string) {
		unexpected = append(unexpected, source+":"+key)
	}))
	mockServer.SetResponse("live", http.StatusOK, `{"success": true, "quotes": {"EURUSD": 1.1, "USD": 2.5, "EURRON": 4.9}}`)

	for i := 0; i < 20; i++ {
		unexpected = nil

		quotes, err := client.Live(context.Background(), "EUR", nil)

		require.NoError(t, err)
		assert.Equal(t, Quotes{"USD": 1.1, "RON": 4.9}, quotes)
		assert.Equal(t, []string{"EUR:USD"}, unexpected)
	}
}

func TestClient_LiveRequiresSource(t *testing.T) {
	client, mockServer := newTestClient(t)

	_, err := client.Live(context.Background(), "", nil)

	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Empty(t, mockServer.Requests())
}

func TestClient_Historical(t *testing.T) {
	client, mockServer := newTestClient(t)
	date := time.Date(2024, time.January, 31, 15, 0, 0, 0, time.UTC)

	quotes, err := client.Historical(context.Background(), date, "EUR", []string{"USD", "RON"})

	require.NoError(t, err)
	assert.Equal(t, Quotes{"USD": 1.08, "RON": 4.97}, quotes)

	request, ok := mockServer.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/currency_data/historical", request.Path)
	assert.Equal(t, "2024-01-31", request.Query.Get("date"))
	assert.Equal(t, "EUR", request.Query.Get("source"))
	assert.Equal(t, "USD,RON", request.Query.Get("currencies"))
}

func TestClient_HistoricalValidation(t *testing.T) {
	client, mockServer := newTestClient(t)

	_, err := client.Historical(context.Background(), time.Time{}, "EUR", nil)
	assert.ErrorIs(t, err, ErrEmptyDate)

	_, err = client.Historical(context.Background(), time.Now(), "", nil)
	assert.ErrorIs(t, err, ErrEmptySource)

	assert.Empty(t, mockServer.Requests())
}

func TestClient_Convert(t *testing.T) {
	client, mockServer := newTestClient(t)

	conversion, err := client.Convert(context.Background(), "EUR", "USD", 10)

	require.NoError(t, err)
	assert.Equal(t, Conversion{
		From:      "EUR",
		To:        "USD",
		Amount:    10,
		Quote:     1.1,
		Timestamp: 1700000000,
		Result:    11,
	}, conversion)

	request, ok := mockServer.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "EUR", request.Query.Get("from"))
	assert.Equal(t, "USD", request.Query.Get("to"))
	assert.Equal(t, "10", request.Query.Get("amount"))
}

func TestClient_ConvertValidation(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Convert(context.Background(), "EUR", "", 10)
	assert.ErrorIs(t, err, ErrEmptySource)

	_, err = client.Convert(context.Background(), "EUR", "USD", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClient_ConvertRejectsNonFiniteAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
	}{
		{"negative", -1},
		{"not a number", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mockServer := newTestClient(t)

			_, err := client.Convert(context.Background(), "EUR", "USD", tt.amount)

			assert.ErrorIs(t, err, ErrInvalidAmount)
			assert.Empty(t, mockServer.Requests())
		})
	}
}

func TestClient_ConvertRejectsIncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{
			name: "empty query and info",
			body: `{"success":true,"query":{},"info":{},"result":11}`,
			key:  "query",
		},
		{
			name: "missing quote",
			body: `{"success":true,"query":{"from":"EUR","to":"USD","amount":10},"info":{"timestamp":1700000000},"result":11}`,
			key:  "info",
		},
		{
			name: "null result",
			body: `{"success":true,"query":{"from":"EUR","to":"USD","amount":10},"info":{"timestamp":1700000000,"quote":1.1},"result":null}`,
			key:  "result",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mockServer := newTestClient(t)
			mockServer.SetResponse("convert", http.StatusOK, tt.body)

			conversion, err := client.Convert(context.Background(), "EUR", "USD", 10)

			var decodeError *DecodeError
			require.ErrorAs(t, err, &decodeError)
			assert.Equal(t, tt.key, decodeError.Key)
			assert.Equal(t, Conversion{}, conversion)
		})
	}
}

func TestClient_HTTPErrorKeepsStatusAndBody(t *testing.T) {
	client, mockServer := newTestClient(t)
	body := `{"success": true, "currencies": {"EUR": "Euro"}}`
	mockServer.SetResponse("list", http.StatusUnauthorized, body)

	currencies, err := client.List(context.Background())

	var httpError *HTTPError
	require.ErrorAs(t, err, &httpError)
	assert.Nil(t, currencies)
	assert.Equal(t, http.StatusUnauthorized, httpError.StatusCode)
	assert.Equal(t, body, string(httpError.Body))
}

func TestClient_MalformedResponse(t *testing.T) {
	client, mockServer := newTestClient(t)
	mockServer.SetResponse("live", http.StatusOK, `{"success": true, "quotes": `)

	_, err := client.Live(context.Background(), "EUR", nil)

	var malformedError *MalformedResponseError
	assert.ErrorAs(t, err, &malformedError)
}

func TestClient_APIErrorFromServer(t *testing.T) {
	mockServer := testutils.NewMockAPILayerServer()
	defer mockServer.Close()
	client := New("wrong-key", WithBaseURL(mockServer.URL()))

	_, err := client.List(context.Background())

	var apiError *APIError
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, 101, apiError.Code)
	assert.Equal(t, "invalid_access_key", apiError.Type)
}

func TestClient_InvalidCredential(t *testing.T) {
	mockServer := testutils.NewMockAPILayerServer()
	defer mockServer.Close()
	client := New("bad\nkey", WithBaseURL(mockServer.URL()))

	_, err := client.List(context.Background())

	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Empty(t, mockServer.Requests())
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(testutils.MockAPIKey, WithBaseURL(baseURL))

	_, err := client.List(context.Background())

	var transportError *TransportError
	assert.ErrorAs(t, err, &transportError)
}

func TestClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := New(testutils.MockAPIKey, WithBaseURL(server.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Live(ctx, "EUR", nil)

	var transportError *TransportError
	require.ErrorAs(t, err, &transportError)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_BaseURLTrailingSlash(t *testing.T) {
	client, mockServer := newTestClient(t)
	client = New(testutils.MockAPIKey, WithBaseURL(mockServer.URL()+"/"))

	_, err := client.List(context.Background())

	require.NoError(t, err)
	request, ok := mockServer.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/currency_data/list", request.Path)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	client, _ := newTestClient(t)

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := client.Live(context.Background(), "EUR", []string{"USD"})
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		assert.NoError(t, <-errs)
	}
}
