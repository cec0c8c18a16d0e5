package crewapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fetcher retrieves the raw schedule document. It is implemented by *Client
// and can be replaced in tests.
type Fetcher interface {
	Fetch(ctx context.Context, body []byte) ([]byte, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// Client posts schedule requests to the crew API.
type Client struct {
	endpoint  *url.URL
	http      *http.Client
	userAgent string
}

// Version is reported in the User-Agent header.
var Version = "0.1"

const (
	requestTimeout  = 20 * time.Second
	maxResponseSize = 8 << 20
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// NewClient builds a Client for the schedule endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint:  u,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: "crewsync/" + Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the normalized endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Fetch performs exactly one POST and returns the response body. It never
// retries; callers decide whether to invoke it again.
func (c *Client) Fetch(ctx context.Context, body []byte) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &NetworkError{
			Op:         "post " + c.endpoint.String(),
			StatusCode: resp.StatusCode,
			Err:        ErrStatus,
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, &NetworkError{Op: "read response", Err: err}
	}
	if len(raw) > maxResponseSize {
		return nil, &NetworkError{Op: "read response", Err: ErrTooLarge}
	}
	return raw, nil
}

// RequestBody builds the JSON body identifying the requesting user.
func RequestBody(userID string) ([]byte, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is empty")
	}
	return json.Marshal(struct {
		UserID string `json:"userId"`
	}{UserID: userID})
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("endpoint is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse endpoint %q: missing host", endpoint)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
