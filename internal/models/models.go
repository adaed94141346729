package models

import "time"

// HealthCheck is the body of GET /health.
type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Code           int    `json:"code"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamCode   int    `json:"upstream_code,omitempty"`
	UpstreamType   string `json:"upstream_type,omitempty"`
}

type CurrenciesResponse struct {
	Currencies map[string]string `json:"currencies"`
}

type QuotesResponse struct {
	Source string             `json:"source"`
	Date   string             `json:"date,omitempty"`
	Quotes map[string]float64 `json:"quotes"`
}

type ConvertResponse struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	Quote     float64 `json:"quote"`
	Timestamp int64   `json:"timestamp"`
	Result    float64 `json:"result"`
}
