package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTimeout indicates the grades page did not answer in time.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates the school server could not be reached.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus indicates the grades page answered with a non-success status.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// label groups statuses by what the operator has to do about them.
func (e ErrHTTPStatus) label() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return "unauthorized"
	case e.StatusCode == http.StatusNotFound:
		return "not_found"
	case e.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case e.StatusCode >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "http_status"
	}
}

// ErrorType returns the metric and log label for a fetch error.
func ErrorType(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return status.label()
	}
	return "other"
}
