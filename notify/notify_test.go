package notify

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const topicURL = "https://ntfy.example.test/grades-alerts"

func newMockedClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	client, err := NewClient("https://ntfy.example.test/", "grades-alerts", 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	transport := httpmock.NewMockTransport()
	client.http.SetTransport(transport)
	return client, transport
}

func TestSendPublishesToTopic(t *testing.T) {
	client, transport := newMockedClient(t)

	var got *http.Request
	var body string
	transport.RegisterResponder("POST", topicURL,
		func(req *http.Request) (*http.Response, error) {
			got = req
			raw, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			body = string(raw)
			return httpmock.NewStringResponse(200, `{"id":"abc"}`), nil
		},
	)

	err := client.Send(context.Background(), Message{
		Title:    "New grade: Math",
		Body:     "Math: 10 (2024, T1, 2024-05-01)",
		Click:    "https://school.example.test/grades",
		Tags:     []string{"mortar_board", "new"},
		Priority: 4,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got == nil {
		t.Fatalf("no request reached the server")
	}

	if body != "Math: 10 (2024, T1, 2024-05-01)" {
		t.Fatalf("body = %q", body)
	}
	headers := []struct {
		name string
		want string
	}{
		{name: "Title", want: "New grade: Math"},
		{name: "Click", want: "https://school.example.test/grades"},
		{name: "Tags", want: "mortar_board,new"},
		{name: "Priority", want: "4"},
	}
	for _, h := range headers {
		if value := got.Header.Get(h.name); value != h.want {
			t.Fatalf("%s header = %q, want %q", h.name, value, h.want)
		}
	}
	if calls := transport.GetTotalCallCount(); calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSendEncodesNonASCIITitle(t *testing.T) {
	client, transport := newMockedClient(t)

	var title string
	transport.RegisterResponder("POST", topicURL,
		func(req *http.Request) (*http.Response, error) {
			title = req.Header.Get("Title")
			return httpmock.NewStringResponse(200, "{}"), nil
		},
	)

	if err := client.Send(context.Background(), Message{Title: "Nova nota: Matemática", Body: "15"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	decoded, err := new(mime.WordDecoder).DecodeHeader(title)
	if err != nil {
		t.Fatalf("decode title %q: %v", title, err)
	}
	if decoded != "Nova nota: Matemática" {
		t.Fatalf("decoded title = %q", decoded)
	}
}

func TestSendReturnsPublishError(t *testing.T) {
	client, transport := newMockedClient(t)
	transport.RegisterResponder("POST", topicURL,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"error":"limit reached"}`))

	err := client.Send(context.Background(), Message{Body: "hello"})

	var publishErr *PublishError
	if !errors.As(err, &publishErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if publishErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", publishErr.StatusCode, http.StatusTooManyRequests)
	}
	if !strings.Contains(publishErr.Body, "limit reached") {
		t.Fatalf("body = %q", publishErr.Body)
	}
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name   string
		server string
		topic  string
	}{
		{name: "empty topic", server: "https://ntfy.sh", topic: ""},
		{name: "server without host", server: "not a url", topic: "grades"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClient(tt.server, tt.topic, time.Second); err == nil {
				t.Fatalf("expected error for server=%q topic=%q", tt.server, tt.topic)
			}
		})
	}
}
