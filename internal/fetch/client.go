// Package fetch builds the retrying HTTP client shared by every remote
// collaborator: Horizons, the satellite pass feed and the weather service.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/litescript/ls-skywatch/internal/logging"
	"github.com/litescript/ls-skywatch/internal/metrics"
)

const (
	// DefaultRetryUnit is the linear backoff step: attempt n waits n*unit.
	DefaultRetryUnit = 2 * time.Second

	// DefaultMaxAttempts includes the first try.
	DefaultMaxAttempts = 5

	// DefaultRequestTimeout bounds the wait for response headers.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultResourceTimeout bounds a whole request including the body.
	DefaultResourceTimeout = 20 * time.Second

	// UserAgent identifies this client to remote services.
	UserAgent = "ls-skywatch/1.0 (night sky planner)"
)

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// Overloaded reports whether the status signals a transient overload.
func (e *StatusError) Overloaded() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusServiceUnavailable
}

// Client performs GET requests with retry and per-request timeouts.
type Client struct {
	rc              *retryablehttp.Client
	retryUnit       time.Duration
	maxAttempts     int
	requestTimeout  time.Duration
	resourceTimeout time.Duration
	log             *logging.Logger
	transport       http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithRetryUnit sets the linear backoff step.
func WithRetryUnit(d time.Duration) Option {
	return func(c *Client) {
		c.retryUnit = d
	}
}

// WithMaxAttempts sets the total number of attempts including the first.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithTimeouts sets the response-header and whole-request timeouts.
func WithTimeouts(request, resource time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = request
		c.resourceTimeout = resource
	}
}

// WithLogger routes retry logging through log.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient creates a retrying client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		retryUnit:       DefaultRetryUnit,
		maxAttempts:     DefaultMaxAttempts,
		requestTimeout:  DefaultRequestTimeout,
		resourceTimeout: DefaultResourceTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	if c.log == nil {
		c.log = logging.Discard()
	}

	rc := retryablehttp.NewClient()
	rc.Logger = c.log.Leveled()
	rc.RetryMax = c.maxAttempts - 1
	rc.RetryWaitMin = c.retryUnit
	rc.RetryWaitMax = c.retryUnit * time.Duration(c.maxAttempts)
	rc.Backoff = LinearBackoff
	rc.CheckRetry = RetryOverloaded
	rc.ErrorHandler = giveUp
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, retry int) {
		if retry > 0 {
			metrics.ObserveRetry(req.URL.Host)
		}
	}

	rc.HTTPClient.Timeout = c.resourceTimeout
	if c.transport != nil {
		rc.HTTPClient.Transport = c.transport
	} else if t, ok := rc.HTTPClient.Transport.(*http.Transport); ok {
		t.ResponseHeaderTimeout = c.requestTimeout
	}

	c.rc = rc
	return c
}

// LinearBackoff waits (attempt+1)*min, where attempt counts retries from 0.
func LinearBackoff(min, max time.Duration, attempt int, _ *http.Response) time.Duration {
	wait := min * time.Duration(attempt+1)
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}

// RetryOverloaded retries transport failures and 429/503 responses.
// A cancelled context is never retried.
func RetryOverloaded(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true, nil
	}
	return false, nil
}

func giveUp(resp *http.Response, err error, attempts int) (*http.Response, error) {
	if resp != nil {
		resp.Body.Close()
		if err == nil {
			err = &StatusError{Code: resp.StatusCode}
		}
	}
	return nil, fmt.Errorf("giving up after %d attempt(s): %w", attempts, err)
}

// Get performs a GET and returns the body of a 200 response.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// MaxAttempts returns the configured attempt budget.
func (c *Client) MaxAttempts() int {
	return c.maxAttempts
}

// IsOverloaded reports whether err ended in a 429/503 response.
func IsOverloaded(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Overloaded()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
