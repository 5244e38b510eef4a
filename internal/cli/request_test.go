package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiConfig(t *testing.T, dir, baseURL string) {
	t.Helper()
	writeConfig(t, dir, "config.yaml", fmt.Sprintf(`
api:
  base_url: %s
  max_retries: 0
  headers:
    X-Client: testbench
`, baseURL))
}

func TestRequest_PostWithExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		assert.Equal(t, "testbench", r.Header.Get("X-Client"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name": "qa"}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 7, "name": "qa"}`))
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)

	stdout, _, err := run(t, dir, "request", "post", "/users",
		"-d", `{"name": "qa"}`,
		"-H", "X-Test: 1",
		"--extract", "id=$.id")
	require.NoError(t, err)

	assert.Contains(t, stdout, "▶ REQUEST: POST "+server.URL+"/users")
	assert.Contains(t, stdout, "201 Created")
	assert.Contains(t, stdout, "    id = 7")
}

func TestRequest_BodyFromFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "plain payload", string(body))
		assert.NotEqual(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)
	payload := writeConfig(t, t.TempDir(), "body.txt", "plain payload")

	_, _, err := run(t, dir, "request", "PUT", "/items/1", "-d", "@"+payload)
	require.NoError(t, err)

	_, _, err = run(t, dir, "request", "PUT", "/items/1", "-d", "@"+filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "read request body")
}

func TestRequest_ExtractionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)

	stdout, _, err := run(t, dir, "request", "GET", "/users/7", "-e", "id=$.id", "-e", "email=$.email")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, stdout, "id = 7")
}

func TestRequest_Schema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.Write([]byte(`{"id": "seven"}`))
			return
		}
		w.Write([]byte(`{"id": 7}`))
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)
	schema := writeConfig(t, t.TempDir(), "user.json", `{
  "type": "object",
  "required": ["id"],
  "properties": {"id": {"type": "integer"}}
}`)

	stdout, _, err := run(t, dir, "request", "GET", "/good", "--schema", schema)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Response matches schema")

	_, _, err = run(t, dir, "request", "GET", "/bad", "--schema", schema)
	assert.ErrorContains(t, err, "schema validation failed")
}

func TestRequest_SchemaNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)
	schema := writeConfig(t, t.TempDir(), "any.json", `{"type": "object"}`)

	_, _, err := run(t, dir, "request", "GET", "/", "--schema", schema)
	assert.ErrorContains(t, err, "response is not JSON")
}

func TestRequest_ExpectStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, server.URL)

	tests := []struct {
		expect  string
		wantErr string
	}{
		{"404", ""},
		{"4xx", ""},
		{"2XX", "unexpected status 404 Not Found, want 2xx"},
		{"200", "unexpected status 404 Not Found, want 200"},
		{"9xx", "invalid expected status"},
		{"42", "invalid expected status"},
	}
	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			_, _, err := run(t, dir, "request", "GET", "/missing", "--expect-status", tt.expect)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequest_BadFlags(t *testing.T) {
	dir := testEnv(t)

	_, _, err := run(t, dir, "request", "GET", "/x", "-H", "no-colon")
	assert.Error(t, err)

	_, _, err = run(t, dir, "request", "GET", "/x", "--extract", "nopath")
	assert.ErrorContains(t, err, "expected name=$.path")

	_, _, err = run(t, dir, "request", "GET")
	assert.Error(t, err)
}

func TestRequest_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	dir := testEnv(t)
	apiConfig(t, dir, url)

	_, _, err := run(t, dir, "request", "GET", "/x")
	assert.ErrorContains(t, err, "request failed")
}
