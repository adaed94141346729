package testutils

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

// MockAPIKey is the key the mock server accepts by default.
const MockAPIKey = "test-api-key"

// Canned currency_data payloads.
const (
	ListBody       = `{"success":true,"currencies":{"EUR":"Euro","USD":"United States Dollar","RON":"Romanian Leu"}}`
	LiveBody       = `{"success":true,"timestamp":1700000000,"source":"EUR","quotes":{"EURUSD":1.1,"EURRON":4.9}}`
	HistoricalBody = `{"success":true,"historical":true,"date":"2024-01-31","timestamp":1706745599,"source":"EUR","quotes":{"EURUSD":1.08,"EURRON":4.97}}`
	ConvertBody    = `{"success":true,"query":{"from":"EUR","to":"USD","amount":10},"info":{"timestamp":1700000000,"quote":1.1},"result":11}`
	InvalidKeyBody = `{"success":false,"error":{"code":101,"type":"invalid_access_key","info":"You have not supplied a valid API Access Key."}}`
)

// MockResponse is a canned reply for one endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
}

// RecordedRequest keeps what the mock server saw for one call.
type RecordedRequest struct {
	Path   string
	Query  url.Values
	APIKey string
}

// MockAPILayerServer imitates the apilayer currency_data API.
type MockAPILayerServer struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse
	requests  []RecordedRequest
	checkKey  bool
}

// NewMockAPILayerServer starts a server answering every endpoint with a canned
// success envelope. Requests without MockAPIKey get the invalid-key envelope.
func NewMockAPILayerServer() *MockAPILayerServer {
	mock := &MockAPILayerServer{
		responses: map[string]MockResponse{
			"list":       {StatusCode: http.StatusOK, Body: ListBody},
			"live":       {StatusCode: http.StatusOK, Body: LiveBody},
			"historical": {StatusCode: http.StatusOK, Body: HistoricalBody},
			"convert":    {StatusCode: http.StatusOK, Body: ConvertBody},
		},
		checkKey: true,
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockAPILayerServer) handler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	endpoint, ok := strings.CutPrefix(r.URL.Path, "/currency_data/")
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		APIKey: r.Header.Get("apikey"),
	})
	response, found := m.responses[endpoint]
	checkKey := m.checkKey
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case !found:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no route"}`))
	case checkKey && r.Header.Get("apikey") != MockAPIKey:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(InvalidKeyBody))
	default:
		w.WriteHeader(response.StatusCode)
		w.Write([]byte(response.Body))
	}
}

// URL returns the mock server URL
func (m *MockAPILayerServer) URL() string {
	return m.server.URL
}

// Client returns an HTTP client wired to the mock server.
func (m *MockAPILayerServer) Client() *http.Client {
	return m.server.Client()
}

// Close closes the mock server
func (m *MockAPILayerServer) Close() {
	m.server.Close()
}

// SetResponse replaces the reply for an endpoint such as "live".
func (m *MockAPILayerServer) SetResponse(endpoint string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[endpoint] = MockResponse{StatusCode: statusCode, Body: body}
}

// AcceptAnyKey turns off the API key check.
func (m *MockAPILayerServer) AcceptAnyKey() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkKey = false
}

// Requests returns a copy of every request received so far.
func (m *MockAPILayerServer) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or false when none arrived.
func (m *MockAPILayerServer) LastRequest() (RecordedRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}
