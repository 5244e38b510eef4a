// Package http is the API client used by testbench commands. It is built
// from the api configuration section and records per-phase timings.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/wesleyorama2/testbench/internal/config"
)

// Client represents an HTTP client with customizable options
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	maxRetries int
	retryDelay time.Duration
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// NewFromConfig creates a client from the api configuration section.
// Extra options are applied after the section values.
func NewFromConfig(cfg config.APIConfig, options ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(time.Duration(cfg.Timeout) * time.Second),
		WithVerifySSL(cfg.VerifySSL),
		WithRetries(cfg.MaxRetries, time.Duration(cfg.RetryDelay*float64(time.Second))),
	}
	for key, value := range cfg.Headers {
		base = append(base, WithHeader(key, value))
	}
	return NewClient(append(base, options...)...)
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to the client
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithVerifySSL toggles TLS certificate verification.
func WithVerifySSL(verify bool) ClientOption {
	return func(c *Client) {
		transport, ok := c.httpClient.Transport.(*http.Transport)
		if !ok {
			return
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = !verify //nolint:gosec
	}
}

// WithRetries retries failed attempts up to maxRetries extra times,
// waiting delay between attempts.
func WithRetries(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes an HTTP request and returns the response with detailed timing
// information. Transport errors and 5xx responses are retried according to
// the retry settings; the last response or error is returned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.maxRetries == 0 {
		return c.do(ctx, req)
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries), retry.NewConstant(c.retryDelayOrMin()))

	var resp *Response
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		r, err := c.do(ctx, req)
		if err != nil {
			resp = nil
			return retry.RetryableError(err)
		}
		resp = r
		if r.IsServerError() {
			return retry.RetryableError(fmt.Errorf("server error: %s", r.Status))
		}
		return nil
	})
	if resp != nil {
		resp.Attempts = attempts
		return resp, nil
	}
	return nil, err
}

// retryDelayOrMin keeps the constant backoff valid; go-retry rejects a
// zero base.
func (c *Client) retryDelayOrMin() time.Duration {
	if c.retryDelay <= 0 {
		return time.Millisecond
	}
	return c.retryDelay
}

func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := req.Build(c.baseURL)
	if err != nil {
		return nil, err
	}

	// Request headers win over client headers.
	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	timing := TimingInfo{
		StartTime: time.Now(),
	}

	// Dialing races IPv4 and IPv6, so connect hooks may run concurrently.
	var mu sync.Mutex
	var dnsStart, tlsStart time.Time
	connectStarts := make(map[string]time.Time)
	lastPhaseEnd := timing.StartTime

	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			mu.Lock()
			defer mu.Unlock()
			dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			mu.Lock()
			defer mu.Unlock()
			now := time.Now()
			timing.DNSLookupTime = now.Sub(dnsStart)
			lastPhaseEnd = now
		},
		ConnectStart: func(network, addr string) {
			mu.Lock()
			defer mu.Unlock()
			connectStarts[network+addr] = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			mu.Lock()
			defer mu.Unlock()
			start, ok := connectStarts[network+addr]
			// Only the first successful dial is the connection in use.
			if err != nil || !ok || timing.TCPConnectTime > 0 {
				return
			}
			now := time.Now()
			timing.TCPConnectTime = now.Sub(start)
			lastPhaseEnd = now
		},
		TLSHandshakeStart: func() {
			mu.Lock()
			defer mu.Unlock()
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err == nil && !tlsStart.IsZero() {
				now := time.Now()
				timing.TLSHandshakeTime = now.Sub(tlsStart)
				lastPhaseEnd = now
			}
		},
		GotFirstResponseByte: func() {
			mu.Lock()
			defer mu.Unlock()
			timing.TimeToFirstByte = time.Since(lastPhaseEnd)
		},
	}

	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, trace))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	transferStart := time.Now()
	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	timing.ContentTransferTime = time.Since(transferStart)
	timing.TotalTime = time.Since(timing.StartTime)

	return &Response{
		StatusCode:   httpResp.StatusCode,
		Status:       httpResp.Status,
		Headers:      httpResp.Header,
		Body:         io.NopCloser(bytes.NewReader(bodyBytes)),
		ResponseTime: timing.TotalTime,
		Timing:       timing,
		Attempts:     1,
		rawBody:      bodyBytes,
		parsed:       true,
	}, nil
}
