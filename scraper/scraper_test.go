package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/metrics"
)

const testURL = "http://school.example.test/grades"

func newTestScraper(t *testing.T, transport *httpmock.MockTransport) *Scraper {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.GradesURL = testURL
	cfg.NtfyTopic = "grades"

	s, err := NewScraper(cfg, metrics.New())
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)
	return s
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "session expired", err: nil, statusCode: http.StatusUnauthorized, expected: "unauthorized"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "unauthorized"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: errors.New("Internal Server Error"), statusCode: http.StatusInternalServerError, expected: "server_error"},
		{name: "redirect loop", err: nil, statusCode: http.StatusMultipleChoices, expected: "http_status"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestFetchReturnsBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, htmlResponder("<table><tr><td>Math</td><td>10</td></tr></table>"))

	s := newTestScraper(t, transport)

	body, err := s.Fetch(context.Background(), testURL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(body, "<td>Math</td>") {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchRevisitsSamePage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, htmlResponder("<table></table>"))

	s := newTestScraper(t, transport)

	for i := 0; i < 3; i++ {
		if _, err := s.Fetch(context.Background(), testURL); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if got := transport.GetTotalCallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	if got := testutil.ToFloat64(s.Metrics.RequestsTotal.WithLabelValues("completed")); got != 3 {
		t.Fatalf("completed requests metric = %v, want 3", got)
	}
}

func TestFetchHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "unauthorized"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "server_error"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder("GET", testURL, httpmock.NewStringResponder(tt.status, ""))

			s := newTestScraper(t, transport)

			_, err := s.Fetch(context.Background(), testURL)
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if got := ErrorType(err); got != tt.expected {
				t.Fatalf("error type = %q, want %q (err=%v)", got, tt.expected, err)
			}
			if got := testutil.ToFloat64(s.Metrics.ErrorsTotal.WithLabelValues(tt.expected)); got != 1 {
				t.Fatalf("error metric = %v, want 1", got)
			}
		})
	}
}

func TestFetchConnectionError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, httpmock.NewErrorResponder(
		&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	))

	s := newTestScraper(t, transport)

	_, err := s.Fetch(context.Background(), testURL)
	var connErr ErrConnection
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	transport := httpmock.NewMockTransport()
	s := newTestScraper(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Fetch(ctx, testURL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("calls = %d, want 0", got)
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}
