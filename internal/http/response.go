package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TimingInfo holds the phases of a single attempt. Phases that did not
// happen, such as DNS on a reused connection, stay zero.
type TimingInfo struct {
	StartTime           time.Time
	DNSLookupTime       time.Duration
	TCPConnectTime      time.Duration
	TLSHandshakeTime    time.Duration
	TimeToFirstByte     time.Duration
	ContentTransferTime time.Duration
	TotalTime           time.Duration
}

func (t TimingInfo) GetDNSLookupTimeMillis() int64    { return t.DNSLookupTime.Milliseconds() }
func (t TimingInfo) GetTCPConnectTimeMillis() int64   { return t.TCPConnectTime.Milliseconds() }
func (t TimingInfo) GetTLSHandshakeTimeMillis() int64 { return t.TLSHandshakeTime.Milliseconds() }
func (t TimingInfo) GetTimeToFirstByteMillis() int64  { return t.TimeToFirstByte.Milliseconds() }
func (t TimingInfo) GetTotalTimeMillis() int64        { return t.TotalTime.Milliseconds() }

func (t TimingInfo) GetContentTransferTimeMillis() int64 {
	return t.ContentTransferTime.Milliseconds()
}

// Response represents an HTTP response
type Response struct {
	StatusCode   int
	Status       string
	Headers      http.Header
	Body         io.ReadCloser
	ResponseTime time.Duration
	Timing       TimingInfo
	// Attempts counts every try including retries.
	Attempts int
	rawBody  []byte
	parsed   bool
}

// GetBody returns the response body, reading it on first use.
func (r *Response) GetBody() ([]byte, error) {
	if r.parsed {
		return r.rawBody, nil
	}
	if r.Body == nil {
		r.parsed = true
		return nil, nil
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.rawBody = body
	r.parsed = true

	return body, nil
}

// GetBodyAsString returns the response body as a string
func (r *Response) GetBodyAsString() (string, error) {
	body, err := r.GetBody()
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBodyAsJSON unmarshals the response body into v.
func (r *Response) GetBodyAsJSON(v any) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (r *Response) IsSuccess() bool     { return r.StatusCode >= 200 && r.StatusCode < 300 }
func (r *Response) IsRedirect() bool    { return r.StatusCode >= 300 && r.StatusCode < 400 }
func (r *Response) IsClientError() bool { return r.StatusCode >= 400 && r.StatusCode < 500 }
func (r *Response) IsServerError() bool { return r.StatusCode >= 500 && r.StatusCode < 600 }

// StatusExpectation is an exact status code such as 201 or a class such
// as 2xx.
type StatusExpectation string

// ParseStatusExpectation accepts a three digit code or 2xx through 5xx.
func ParseStatusExpectation(s string) (StatusExpectation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "2xx", "3xx", "4xx", "5xx":
		return StatusExpectation(s), nil
	}
	code, err := strconv.Atoi(s)
	if err != nil || code < 100 || code > 599 {
		return "", fmt.Errorf("invalid expected status %q, want a code like 200 or a class like 2xx", s)
	}
	return StatusExpectation(s), nil
}

// Match reports whether resp satisfies the expectation.
func (e StatusExpectation) Match(resp *Response) bool {
	switch e {
	case "2xx":
		return resp.IsSuccess()
	case "3xx":
		return resp.IsRedirect()
	case "4xx":
		return resp.IsClientError()
	case "5xx":
		return resp.IsServerError()
	}
	return strconv.Itoa(resp.StatusCode) == string(e)
}

// GetResponseTimeMillis returns the response time in milliseconds
func (r *Response) GetResponseTimeMillis() int64 {
	return r.ResponseTime.Milliseconds()
}
