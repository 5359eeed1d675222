// Package notify publishes push notifications to an ntfy topic.
package notify

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Message is one push notification.
type Message struct {
	Title    string
	Body     string
	Click    string
	Tags     []string
	Priority int
}

// PublishError reports a non-success answer from the ntfy server.
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("ntfy publish: status %d: %s", e.StatusCode, e.Body)
}

// Client publishes messages to a single topic.
type Client struct {
	http     *resty.Client
	endpoint string
}

// NewClient builds a client for server and topic.
func NewClient(server, topic string, timeout time.Duration) (*Client, error) {
	if topic == "" {
		return nil, fmt.Errorf("ntfy topic cannot be empty")
	}
	base, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ntfy server: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("ntfy server must include a host")
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "gradewatch")

	return &Client{
		http:     client,
		endpoint: base.String() + "/" + url.PathEscape(topic),
	}, nil
}

// Send publishes msg. The body is sent as plain text; metadata goes in headers.
func (c *Client) Send(ctx context.Context, msg Message) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(msg.Body)

	if msg.Title != "" {
		req.SetHeader("Title", encodeHeader(msg.Title))
	}
	if msg.Click != "" {
		req.SetHeader("Click", msg.Click)
	}
	if len(msg.Tags) > 0 {
		req.SetHeader("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority > 0 {
		req.SetHeader("Priority", strconv.Itoa(msg.Priority))
	}

	res, err := req.Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("ntfy publish: %w", err)
	}
	if res.IsError() {
		return &PublishError{StatusCode: res.StatusCode(), Body: strings.TrimSpace(res.String())}
	}
	return nil
}

// encodeHeader RFC 2047 encodes values that are not plain ASCII, which ntfy
// decodes on receipt.
func encodeHeader(value string) string {
	for _, r := range value {
		if r > 127 {
			return mime.BEncoding.Encode("utf-8", value)
		}
	}
	return value
}
