// Package genclient talks to a running inkwell API server. Generation calls
// stream their response through a genstream session; everything else is
// plain JSON.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/inkwellhq/inkwell/pkg/logger"
)

// ErrSessionActive is returned when a generation for the same trigger is
// already streaming through this client.
var ErrSessionActive = errors.New("genclient: a generation session is already active for this trigger")

// StatusError is a non-2xx response from the API server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the inkwell API as one user.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	logger       *slog.Logger
	maxLineBytes int
	tee          io.Writer

	mu     sync.Mutex
	active map[string]struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxLineBytes bounds a single stream line.
func WithMaxLineBytes(n int) Option {
	return func(c *Client) {
		c.maxLineBytes = n
	}
}

// WithTranscript copies every raw stream byte to w.
func WithTranscript(w io.Writer) Option {
	return func(c *Client) {
		c.tee = w
	}
}

// New creates a client for the server at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			// Generations can take minutes.
			Timeout: 10 * time.Minute,
		},
		logger: logger.Nop(),
		active: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// acquire marks trigger active. It reports false when it already is.
func (c *Client) acquire(trigger string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.active[trigger]; ok {
		return false
	}
	c.active[trigger] = struct{}{}
	return true
}

func (c *Client) release(trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, trigger)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		r = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON sends body as JSON and decodes a 2xx response into out, which may be nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError reads the API error message out of resp, falling back to the
// raw body text.
func statusError(resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
