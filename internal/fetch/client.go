package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Common errors.
var (
	ErrTimeout         = errors.New("fetch: request timed out")
	ErrContentTooSmall = errors.New("fetch: response body below minimum size")
)

// HTTPError is returned when the server answers with a definitive client or
// server error status. A definitive response is terminal for the task and is
// never retried; only transport failures and timeouts retry.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("fetch: http %d %s", e.StatusCode, e.Status)
}

// NetworkError wraps a transport-level failure (DNS, connection refused,
// reset mid-body). These are retried up to Options.MaxRetries.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "fetch: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Options configures the fetch client.
type Options struct {
	// Timeout bounds a single request attempt.
	// Default: 30s
	Timeout time.Duration

	// MaxRetries is the total number of attempts for transport
	// failures and timeouts.
	// Default: 3
	MaxRetries int

	// BaseDelay is the delay before the first retry. It doubles on
	// each subsequent retry.
	// Default: 2s
	BaseDelay time.Duration

	// MinBytes is the smallest acceptable response body. Anything
	// shorter is treated as an error page, not an image.
	// Default: 100
	MinBytes int

	// UserAgent is sent with each request.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MinBytes:   100,
		UserAgent:  "inatdl/1.0",
	}
}

// Result is the outcome of a successful fetch.
type Result struct {
	Body        []byte
	ContentType string
	Attempts    int
}

// Client fetches single resources over HTTP with bounded time and retries.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new fetch client. Zero option fields take defaults.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.MinBytes <= 0 {
		opts.MinBytes = def.MinBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// Fetch performs an HTTP GET for url, retrying transport failures and
// timeouts with exponential backoff. Definitive failures (error status,
// short body) return immediately. The returned error is one of
// *HTTPError, *NetworkError, ErrTimeout, or ErrContentTooSmall, possibly
// wrapped.
//
// A fetch always runs to completion or to its per-attempt timeout: caller
// cancellation is deliberately not observed mid-flight. Callers that want
// to stop early do so between fetches, not during one.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 1 {
			c.backoff(attempt - 1)
		}

		res, err := c.attempt(ctx, url)
		if err == nil {
			res.Attempts = attempt
			return res, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, c.opts.MaxRetries, lastErr)
}

// attempt performs a single bounded GET.
func (c *Client) attempt(ctx context.Context, url string) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode <= 599 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}

	if len(body) < c.opts.MinBytes {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d",
			ErrContentTooSmall, len(body), c.opts.MinBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &Result{Body: body, ContentType: contentType}, nil
}

// backoff sleeps for BaseDelay * 2^(retry-1).
func (c *Client) backoff(retry int) {
	time.Sleep(c.opts.BaseDelay * time.Duration(1<<uint(retry-1)))
}

// classifyTransport sorts a transport error into the fetch taxonomy.
func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return &NetworkError{Err: err}
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	var netErr *NetworkError
	return errors.Is(err, ErrTimeout) || errors.As(err, &netErr)
}
