// Package apilayer is a client for the apilayer currency_data API.
//
// Every endpoint answers with a JSON envelope holding a boolean "success" flag and
// a named payload field. The client checks the transport, the envelope and the
// payload shape in turn and reports each failure with its own error type.
package apilayer

import (
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public apilayer host.
const DefaultBaseURL = "https://api.apilayer.com"

// Client issues authenticated requests to the currency_data endpoints.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	apiKey               string
	baseURL              string
	httpClient           *http.Client
	onUnexpectedQuoteKey func(source, key string)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(client *Client) {
		client.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client. Deadlines are configured here.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithUnexpectedQuoteKeyHook registers a callback for quote keys that do not start
// with the requested source code. Such keys are still returned unchanged, except
// when they collide with a stripped key (EURUSD and USD for source EUR), in which
// case the prefixed rate wins.
func WithUnexpectedQuoteKeyHook(hook func(source, key string)) Option {
	return func(client *Client) {
		client.onUnexpectedQuoteKey = hook
	}
}

// New creates a client for the given API key.
func New(apiKey string, options ...Option) *Client {
	httpTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Transport: httpTransport},
	}
	for _, option := range options {
		option(client)
	}
	return client
}
