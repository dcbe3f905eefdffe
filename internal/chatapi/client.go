// Package chatapi is the HTTP client for the /api/chat endpoint.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gemini-chat/internal/domain"
)

const (
	chatPath       = "/api/chat"
	defaultTimeout = 60 * time.Second
)

// HTTPStatusError captures a non-2xx response whose body is not a chat
// response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("chatapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// UnsuccessfulError is returned when the backend answered but not with a
// success status.
type UnsuccessfulError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *UnsuccessfulError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("chatapi: backend status %q", e.Status)
	}
	return fmt.Sprintf("chatapi: backend status %q: %s", e.Status, e.Detail)
}

func (e *UnsuccessfulError) HTTPStatusCode() int {
	return e.StatusCode
}

// ErrMissingReply is returned for a success status that carries no reply.
var ErrMissingReply = errors.New("chatapi: success response without reply")

// Client posts single messages to a chat backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the overall request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient returns a Client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chatapi: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

func (c *Client) URL() string {
	return chatURL(c.baseURL)
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, chatPath) {
		return base
	}
	return base + chatPath
}

// Send posts message and returns the reply text. Any outcome other than a
// success status with a reply is an error.
func (c *Client) Send(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(domain.ChatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("chatapi: marshal request: %w", err)
	}

	url := c.URL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chatapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chatapi: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("chatapi: read response: %w", err)
	}

	// The body decides the outcome; the HTTP status only matters when the
	// body is not a chat response.
	var payload domain.ChatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return "", &HTTPStatusError{
				StatusCode: res.StatusCode,
				URL:        url,
				Body:       truncate(string(raw), 4096),
			}
		}
		return "", fmt.Errorf("chatapi: decode response: %w", err)
	}
	if payload.Status != domain.StatusSuccess {
		return "", &UnsuccessfulError{StatusCode: res.StatusCode, Status: payload.Status, Detail: payload.Error}
	}
	if payload.Reply == nil {
		return "", ErrMissingReply
	}
	return *payload.Reply, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
