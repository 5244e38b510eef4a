package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes a call against the configured API. It is rebuilt for
// every attempt, so bodies are kept as values rather than readers.
type Request struct {
	Method      string
	Path        string
	QueryParams url.Values
	Headers     map[string]string
	Body        any
}

// NewRequest creates a new request for method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      strings.ToUpper(method),
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithHeader adds a header to the request
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQueryParam adds a query parameter to the request
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithQueryParams adds multiple query parameters to the request
func (r *Request) WithQueryParams(params map[string]string) *Request {
	for key, value := range params {
		r.QueryParams.Add(key, value)
	}
	return r
}

// WithBody sets the body. Strings and byte slices are sent as-is; any other
// value is encoded as JSON.
func (r *Request) WithBody(body any) *Request {
	r.Body = body
	return r
}

// ParseHeader splits a "Key: Value" pair as given on the command line.
func ParseHeader(s string) (key, value string, err error) {
	key, value, ok := strings.Cut(s, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q, expected \"Key: Value\"", s)
	}
	return key, strings.TrimSpace(value), nil
}

// Build constructs an http.Request against baseURL. An absolute Path
// ignores baseURL; a query string in Path is merged with QueryParams.
func (r *Request) Build(baseURL string) (*http.Request, error) {
	reqURL, err := r.resolve(baseURL)
	if err != nil {
		return nil, err
	}

	query := reqURL.Query()
	for key, values := range r.QueryParams {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	reqURL.RawQuery = query.Encode()

	var (
		bodyReader  io.Reader
		contentType string
	)
	switch body := r.Body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(body)
	case []byte:
		bodyReader = bytes.NewReader(body)
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequest(r.Method, reqURL.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

func (r *Request) resolve(baseURL string) (*url.URL, error) {
	ref, err := url.Parse(r.Path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	if ref.IsAbs() {
		return ref, nil
	}

	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if reqURL.Path == "" {
		reqURL.Path = "/" + strings.TrimLeft(ref.Path, "/")
	} else {
		reqURL.Path = strings.TrimRight(reqURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	}
	if ref.RawQuery != "" {
		reqURL.RawQuery = ref.RawQuery
	}
	return reqURL, nil
}
