// Package backend is the client of the fund subscription REST service. It
// turns wire payloads into fundtrade values at the boundary and never trusts
// them unvalidated.
package backend

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

	"github.com/PaesslerAG/jsonpath"
	"github.com/cenkalti/backoff/v4"
	"github.com/etnz/fundtrade"
	"github.com/etnz/fundtrade/logging"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 5 // requests per second
	DefaultMaxRetries = 3
)

// Client is a rate-limited client of the trade backend. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	limiter    *rate.Limiter
	maxRetries int
	newBackOff func() backoff.BackOff
	newKey     func() string
	cache      *dailyCache
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries bounds the retries of a trade submission. Zero disables them.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// WithDailyCache keeps fund class responses on disk in dir until the end of
// the day. An empty dir uses the system temporary directory.
func WithDailyCache(dir string) ClientOption {
	return func(c *Client) {
		c.cache = &dailyCache{dir: dir}
	}
}

// WithIdempotencyKeys sets the generator of Idempotency-Key headers.
func WithIdempotencyKeys(gen func() string) ClientOption {
	return func(c *Client) {
		c.newKey = gen
	}
}

// NewClient creates a client of the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewSilent(),
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		newKey:     newIdempotencyKey,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.cache != nil {
		c.cache.base = http.DefaultTransport
		c.cache.logger = c.logger
		c.httpClient.Transport = c.cache
	}

	return c
}

// APIError is a non-2xx answer of the service.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Temporary reports whether retrying the request may succeed.
func (e *APIError) Temporary() bool { return e.StatusCode >= 500 }

// messagePaths are probed in order to find a human message in an error body.
var messagePaths = []string{"$.errorMessage", "$.message", "$.error.message", "$.error"}

// errorMessage extracts the server message from an error body, falling back
// to the raw body, then to the status text.
func errorMessage(status int, body []byte) string {
	var jobj any
	if err := json.Unmarshal(body, &jobj); err == nil {
		for _, path := range messagePaths {
			jval, err := jsonpath.Get(path, jobj)
			if err != nil {
				continue
			}
			// jsonpath may return a list of one answer
			if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
				jval = jlist[0]
			}
			if s, ok := jval.(string); ok && s != "" {
				return s
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		return s
	}
	return http.StatusText(status)
}

// classify turns an APIError into a fundtrade error of the matching kind.
func classify(op string, e *APIError) error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return &fundtrade.Error{Kind: fundtrade.KindNotFound, Op: op, Msg: e.Message, Err: e}
	case e.Temporary():
		return fundtrade.Transport(op, e)
	default:
		return &fundtrade.Error{Kind: fundtrade.KindRejected, Op: op, Msg: e.Message, Err: e}
	}
}

// request is one call to the service.
type request struct {
	op      string
	method  string
	path    string
	session Session
	header  http.Header
}

// do performs a single rate-limited request and decodes a 2xx answer into
// result. Every failure is a *fundtrade.Error.
func (c *Client) do(ctx context.Context, r request, payload []byte, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fundtrade.Transport(r.op, fmt.Errorf("rate limit wait: %w", err))
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fundtrade.Transport(r.op, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	if r.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.session.Token)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", r.method).Str("url", r.path).Msg("backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fundtrade.Transport(r.op, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return classify(r.op, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
			Endpoint:   r.path,
		})
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fundtrade.Transport(r.op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// get performs a GET request once.
func (c *Client) get(ctx context.Context, op string, s Session, path string, result any) error {
	return c.do(ctx, request{op: op, method: http.MethodGet, path: path, session: s}, nil, result)
}

// submit posts a trade. The same Idempotency-Key is sent on every attempt so
// the server can drop duplicates; transport failures and 5xx answers are
// retried, up to maxRetries times.
func (c *Client) submit(ctx context.Context, op string, s Session, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: cannot encode request: %w", op, err)
	}
	header := make(http.Header)
	key := c.newKey()
	header.Set("Idempotency-Key", key)
	r := request{op: op, method: http.MethodPost, path: path, session: s, header: header}

	attempt := func() error {
		err := c.do(ctx, r, payload, result)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || fundtrade.KindOf(err) != fundtrade.KindTransport {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().Err(err).Str("op", op).Str("idempotency_key", key).Dur("wait", wait).Msg("retrying trade submission")
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(max(c.maxRetries, 0))), ctx)
	err = backoff.RetryNotify(attempt, b, notify)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return err
}
