package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var DefaultTimeout = 30 * time.Second
var DefaultConcurrencyLimit = 5

// Client wraps http.Client with concurrency control and optional retries
type Client struct {
	client     *http.Client
	semChan    chan struct{}
	maxRetries int
	retryDelay time.Duration
	userAgent  string
}

type Option func(*Client)

// WithTimeout задает общий таймаут одного запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithRetries включает повторы при сетевых ошибках, ответах 5xx и 429 (с учетом Retry-After). По умолчанию повторов нет.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.retryDelay = delay
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new API client with the given concurrency limit
func New(maxConcurrent int, opts ...Option) *Client {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConcurrencyLimit
	}
	c := &Client{
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		semChan:    make(chan struct{}, maxConcurrent),
		retryDelay: time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do executes request with concurrency control. Тело ответа уже прочитано и закрыто.
func (c *Client) Do(req *http.Request) (*http.Response, []byte, error) {
	var payload []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, nil, err
		}
		payload = data
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	var wait time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = c.retryDelay * time.Duration(attempt)
			}
			select {
			case <-req.Context().Done():
				return nil, nil, req.Context().Err()
			case <-time.After(wait):
			}
			wait = 0
		}
		// Для каждой попытки создаем новый request
		r := req.Clone(req.Context())
		if payload != nil {
			r.Body = io.NopCloser(bytes.NewReader(payload))
			r.ContentLength = int64(len(payload))
		}

		if err := c.acquire(req.Context()); err != nil {
			return nil, nil, err
		}
		resp, body, err := c.doRequest(r)
		<-c.semChan

		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			lastErr = fmt.Errorf("rate limited: %d", resp.StatusCode)
			wait = retryAfter(resp.Header.Get("Retry-After"))
			continue
		}
		if resp.StatusCode >= 500 && attempt < c.maxRetries {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		return resp, body, nil
	}
	if c.maxRetries == 0 {
		return nil, nil, lastErr
	}
	return nil, nil, fmt.Errorf("all retries failed: %w", lastErr)
}

// retryAfter разбирает Retry-After в секундах; 0 означает обычную задержку повтора.
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// Get - короткая форма GET-запроса с контекстом.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.Do(req)
}

func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.semChan <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) doRequest(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}

	return resp, body, nil
}
