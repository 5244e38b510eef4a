package perf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/wesleyorama2/testbench/internal/http"
)

// failAfter answers 200 for the first n requests and 503 afterwards.
func failAfter(t *testing.T, n int64) *httptest.Server {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) > n {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunner_StressStopsAtBreakingPoint(t *testing.T) {
	server := failAfter(t, 6)
	runner := NewRunner(apihttp.NewClient(apihttp.WithBaseURL(server.URL)), nil)

	res, err := runner.Stress(context.Background(), StressOptions{
		Base:     Options{Path: "/search", RequestsPerUser: 2},
		Step:     1,
		MaxUsers: 5,
	})
	require.NoError(t, err)

	require.Len(t, res.Stages, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{res.Stages[0].Users, res.Stages[1].Users, res.Stages[2].Users})
	assert.EqualValues(t, 6, res.Stages[2].Stats.Total)
	assert.Equal(t, 3, res.BrokeAt)
	assert.Equal(t, 2, res.MaxStableUsers())
	assert.Equal(t, DefaultBreakingPoint, res.BreakingPoint)
	assert.Equal(t, "GET /search", res.Name)
	assert.Equal(t, "GET /search (2 users)", res.Stages[1].Name)
}

func TestRunner_StressHoldsToMaxUsers(t *testing.T) {
	server := failAfter(t, 1000)
	runner := NewRunner(apihttp.NewClient(apihttp.WithBaseURL(server.URL)), nil)

	res, err := runner.Stress(context.Background(), StressOptions{
		Base:          Options{Name: "health", Path: "/health", RequestsPerUser: 1},
		Step:          2,
		MaxUsers:      5,
		BreakingPoint: 99,
	})
	require.NoError(t, err)

	require.Len(t, res.Stages, 2)
	assert.Equal(t, 4, res.Stages[1].Users)
	assert.Zero(t, res.BrokeAt)
	assert.Equal(t, 4, res.MaxStableUsers())
}

func TestRunner_StressCancelledKeepsStage(t *testing.T) {
	server := failAfter(t, 1000)
	runner := NewRunner(apihttp.NewClient(apihttp.WithBaseURL(server.URL)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := runner.Stress(ctx, StressOptions{
		Base:     Options{Path: "/", RequestsPerUser: 1, RampUp: time.Minute},
		Step:     1,
		MaxUsers: 3,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Stages, 1)
}

func TestRunner_StressInvalidOptions(t *testing.T) {
	runner := NewRunner(apihttp.NewClient(), nil)

	_, err := runner.Stress(context.Background(), StressOptions{Step: 0, MaxUsers: -1, BreakingPoint: 120})
	require.Error(t, err)
	for _, msg := range []string{
		"invalid stress test",
		"path is required",
		"step must be greater than 0",
		"max users must be at least the step",
		"breaking point must be between 0 and 100",
	} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestWriteStressResult(t *testing.T) {
	dir := t.TempDir()
	res := &StressResult{
		Name:          "GET /search",
		Step:          10,
		MaxUsers:      30,
		BreakingPoint: 95,
		StartedAt:     time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Stages:        []*Result{{Users: 10}, {Users: 20}},
		BrokeAt:       20,
	}

	path, err := WriteStressResult(dir, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "get-search-stress-20240301T123000Z.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded StressResult
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded.Stages, 2)
	assert.Equal(t, 20, decoded.BrokeAt)
}
