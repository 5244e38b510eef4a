package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wesleyorama2/testbench/internal/config"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected method GET, got %s", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Expected path /test, got %s", r.URL.Path)
		}
		if r.Header.Get("X-Test-Header") != "test-value" {
			t.Errorf("Expected header X-Test-Header: test-value, got %s", r.Header.Get("X-Test-Header"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"success"}`))
	}))
	defer server.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "testbench-test"),
		WithBaseURL(server.URL),
	)

	req := NewRequest("GET", "/test").WithHeader("X-Test-Header", "test-value")

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", resp.Attempts)
	}
	if resp.Timing.TotalTime <= 0 || resp.ResponseTime != resp.Timing.TotalTime {
		t.Errorf("Expected total time to be recorded, got %v / %v", resp.Timing.TotalTime, resp.ResponseTime)
	}

	body, err := resp.GetBodyAsString()
	if err != nil {
		t.Fatalf("Error reading response body: %v", err)
	}
	if body != `{"message":"success"}` {
		t.Errorf("Unexpected body %s", body)
	}
}

// localhost can resolve to both ::1 and 127.0.0.1, which makes the
// transport dial both families at once. Run with -race.
func TestClient_TimingWithParallelDials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, port, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := NewClient(WithBaseURL("http://localhost:" + port))
			resp, err := client.Do(context.Background(), NewRequest("GET", "/"))
			if err != nil {
				t.Errorf("Do: %v", err)
				return
			}
			if resp.Timing.TCPConnectTime <= 0 {
				t.Errorf("Expected connect time for a fresh connection, got %v", resp.Timing.TCPConnectTime)
			}
			if resp.Timing.TotalTime < resp.Timing.TCPConnectTime {
				t.Errorf("Total %v shorter than connect %v", resp.Timing.TotalTime, resp.Timing.TCPConnectTime)
			}
		}()
	}
	wg.Wait()
}

func TestClient_RequestHeadersWin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("Accept") + "|" + r.Header.Get("X-Team")))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithHeader("Accept", "text/plain"),
		WithHeader("X-Team", "qa"),
	)

	resp, err := client.Do(context.Background(), NewRequest("GET", "/").WithHeader("Accept", "application/json"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	body, _ := resp.GetBodyAsString()
	if body != "application/json|qa" {
		t.Errorf("Expected request header to win, got %s", body)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(3, time.Millisecond))

	resp, err := client.Do(context.Background(), NewRequest("GET", "/flaky"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected final status 200, got %d", resp.StatusCode)
	}
	if resp.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", resp.Attempts)
	}
}

func TestClient_RetriesExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(2, time.Millisecond))

	resp, err := client.Do(context.Background(), NewRequest("GET", "/down"))
	if err != nil {
		t.Fatalf("Expected last response instead of error, got %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("Expected 3 calls, got %d", got)
	}
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(3, time.Millisecond))

	resp, err := client.Do(context.Background(), NewRequest("GET", "/missing"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.Attempts != 1 || calls.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_WithOptions(t *testing.T) {
	timeout := 10 * time.Second
	client := NewClient(
		WithTimeout(timeout),
		WithBaseURL("https://example.com"),
		WithHeader("X-Test", "test-value"),
		WithRetries(-1, time.Second),
	)

	if client.httpClient.Timeout != timeout {
		t.Errorf("Expected timeout %v, got %v", timeout, client.httpClient.Timeout)
	}
	if client.BaseURL() != "https://example.com" {
		t.Errorf("Expected baseURL https://example.com, got %s", client.BaseURL())
	}
	if client.headers["X-Test"] != "test-value" {
		t.Errorf("Expected header X-Test: test-value, got %s", client.headers["X-Test"])
	}
	if client.maxRetries != 0 {
		t.Errorf("Expected negative retries to clamp to 0, got %d", client.maxRetries)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().API
	cfg.BaseURL = "https://api.example.com"
	cfg.Timeout = 12
	cfg.VerifySSL = false
	cfg.MaxRetries = 4
	cfg.RetryDelay = 0.25
	cfg.Headers = map[string]string{"Authorization": "Bearer t"}

	client := NewFromConfig(cfg, WithHeader("X-Extra", "1"))

	if client.BaseURL() != cfg.BaseURL {
		t.Errorf("Expected baseURL %s, got %s", cfg.BaseURL, client.BaseURL())
	}
	if client.httpClient.Timeout != 12*time.Second {
		t.Errorf("Expected timeout 12s, got %v", client.httpClient.Timeout)
	}
	if client.maxRetries != 4 || client.retryDelay != 250*time.Millisecond {
		t.Errorf("Expected 4 retries every 250ms, got %d every %v", client.maxRetries, client.retryDelay)
	}
	if client.headers["Authorization"] != "Bearer t" || client.headers["X-Extra"] != "1" {
		t.Errorf("Unexpected headers %v", client.headers)
	}

	transport := client.httpClient.Transport.(*http.Transport)
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Errorf("Expected verify_ssl=false to skip certificate verification")
	}
	if http.DefaultTransport.(*http.Transport).TLSClientConfig != nil &&
		http.DefaultTransport.(*http.Transport).TLSClientConfig.InsecureSkipVerify {
		t.Errorf("Default transport must not be modified")
	}
}
