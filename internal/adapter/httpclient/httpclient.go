package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// Client is a JSON-over-HTTP client with a base URL, static headers, and
// retry on 429 and 5xx for GET requests.
type Client struct {
	baseURL    string
	headers    http.Header
	query      url.Values
	httpClient *http.Client
	retries    int
	backoff    time.Duration
}

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
	retryAfter string // Retry-After header value for 429s
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap classifies every non-2xx response as an unreachable source.
func (e *APIError) Unwrap() error {
	return domain.ErrUnreachable
}

// Option configures Client behavior.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithQuery adds a query parameter sent with every request, such as an API token.
func WithQuery(key, value string) Option {
	return func(c *Client) {
		c.query.Set(key, value)
	}
}

// WithRetries sets how many times a GET is retried after a 429 or 5xx. Default: 2.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithBackoff sets the base delay between retries; it doubles per attempt. Default: 1s.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// New creates a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		headers: make(http.Header),
		query:   make(url.Values),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retries: 2,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sends a GET request and returns the body of a 2xx response. Non-2xx
// responses return *APIError; transport failures wrap domain.ErrUnreachable.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.url(path, query)

	var lastErr *APIError
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.backoffDelay(attempt, lastErr))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, fmt.Errorf("%w: %w", domain.ErrUnreachable, ctx.Err())
			case <-t.C:
			}
		}

		status, body, header, err := c.do(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		if status >= 200 && status < 300 {
			return body, nil
		}

		apiErr := &APIError{StatusCode: status, Body: Truncate(body)}
		if status == http.StatusTooManyRequests {
			apiErr.retryAfter = header.Get("Retry-After")
			lastErr = apiErr
			continue
		}
		if status >= 500 {
			lastErr = apiErr
			continue
		}
		return nil, apiErr
	}
	return nil, lastErr
}

// GetJSON sends a GET request and decodes the JSON response into dest. A body
// that does not decode returns an error wrapping domain.ErrMalformed that
// carries the truncated payload.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	body, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return DecodeJSON(body, dest)
}

// PostJSON sends a JSON body and returns the status code and response body.
// Non-2xx codes are not errors here; the caller decides which codes count as
// success. Only transport failures return an error.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	status, body, _, err := c.do(ctx, http.MethodPost, c.url(path, query), data)
	return status, body, err
}

func (c *Client) do(ctx context.Context, method, fullURL string, payload []byte) (int, []byte, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: %s %s: %w", domain.ErrUnreachable, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%w: read body: %w", domain.ErrUnreachable, err)
	}
	return resp.StatusCode, body, resp.Header, nil
}

func (c *Client) url(path string, query url.Values) string {
	q := make(url.Values, len(c.query)+len(query))
	for k, vs := range c.query {
		q[k] = append([]string(nil), vs...)
	}
	for k, vs := range query {
		q[k] = append(q[k], vs...)
	}
	fullURL := c.baseURL + path
	if len(q) > 0 {
		fullURL += "?" + q.Encode()
	}
	return fullURL
}

// backoffDelay returns the wait duration before a retry attempt.
func (c *Client) backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return c.backoff << (attempt - 1)
}

// DecodeJSON unmarshals body into dest, wrapping failures with domain.ErrMalformed.
func DecodeJSON(body []byte, dest any) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return &MalformedError{Payload: Truncate(body), Err: err}
	}
	return nil
}

// MalformedError carries the raw payload of a response that did not have the
// expected shape so it can be logged for diagnosis.
type MalformedError struct {
	Payload string
	Err     error
}

func (e *MalformedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed payload: %s", e.Payload)
	}
	return fmt.Sprintf("malformed payload: %v: %s", e.Err, e.Payload)
}

func (e *MalformedError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrMalformed}
	}
	return []error{domain.ErrMalformed, e.Err}
}

// Malformed builds a MalformedError for a payload that decoded but lacked an
// expected key.
func Malformed(body []byte, reason string) error {
	return &MalformedError{Payload: Truncate(body), Err: fmt.Errorf("%s", reason)}
}

// Truncate returns at most the first 512 bytes of body as a string.
func Truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
