package apilayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpguts"
)

const (
	apiKeyHeader = "apikey"
	servicePath  = "/currency_data/"
)

// endpointURL joins the base URL, the endpoint name and the encoded query.
func (client *Client) endpointURL(endpoint string, params url.Values) string {
	requestURL := client.baseURL + servicePath + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}
	return requestURL
}

// fetchJSON performs one authenticated GET and returns the decoded JSON body.
func (client *Client) fetchJSON(ctx context.Context, endpoint string, params url.Values) (any, error) {
	if !httpguts.ValidHeaderFieldValue(client.apiKey) {
		return nil, ErrInvalidCredential
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.endpointURL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("apilayer: create request: %w", err)
	}
	request.Header.Set(apiKeyHeader, client.apiKey)
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{StatusCode: response.StatusCode, Body: body}
	}

	var envelope any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	return envelope, nil
}
