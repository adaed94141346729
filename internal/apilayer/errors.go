package apilayer

import (
	"errors"
	"fmt"
)

// Argument and credential errors are reported before any network activity.
var (
	// ErrInvalidCredential indicates the API key cannot be sent as a header value.
	ErrInvalidCredential = errors.New("apilayer: api key is not a valid header value")

	// ErrEmptySource indicates a required currency code was empty.
	ErrEmptySource = errors.New("apilayer: currency code is required")

	// ErrEmptyDate indicates a historical lookup without a date.
	ErrEmptyDate = errors.New("apilayer: date is required")

	// ErrInvalidAmount indicates a conversion amount that is zero or negative.
	ErrInvalidAmount = errors.New("apilayer: amount must be positive")
)

// TransportError wraps a failure to complete the HTTP round-trip.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("apilayer: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("apilayer: http status %d: %s", e.StatusCode, string(e.Body))
}

// MalformedResponseError is returned when a 2xx body is not valid JSON.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("apilayer: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// EnvelopeError reports a response that does not follow the success envelope.
type EnvelopeError struct {
	Reason string
}

func (e *EnvelopeError) Error() string {
	return "apilayer: envelope: " + e.Reason
}

// APIError is returned when the envelope carries "success": false.
// Code, Type and Info are copied from the envelope's "error" object when present.
type APIError struct {
	Envelope map[string]any
	Code     int
	Type     string
	Info     string
}

func newAPIError(envelope map[string]any) *APIError {
	apiError := &APIError{Envelope: envelope}

	detail, ok := envelope["error"].(map[string]any)
	if !ok {
		return apiError
	}
	if code, ok := detail["code"].(float64); ok {
		apiError.Code = int(code)
	}
	apiError.Type, _ = detail["type"].(string)
	apiError.Info, _ = detail["info"].(string)
	return apiError
}

func (e *APIError) Error() string {
	switch {
	case e.Info != "":
		return fmt.Sprintf("apilayer: request unsuccessful (%d %s): %s", e.Code, e.Type, e.Info)
	case e.Type != "":
		return fmt.Sprintf("apilayer: request unsuccessful (%d %s)", e.Code, e.Type)
	default:
		return fmt.Sprintf("apilayer: request unsuccessful: %v", e.Envelope)
	}
}

// DecodeError is returned when the payload does not match the expected shape.
type DecodeError struct {
	Key   string
	Shape string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("apilayer: unable to parse %s as %s", e.Key, e.Shape)
	}
	return fmt.Sprintf("apilayer: unable to parse %s as %s: %v", e.Key, e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
