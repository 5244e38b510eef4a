package perf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

// Result is the outcome of one load test.
type Result struct {
	Name              string    `json:"name"`
	Method            string    `json:"method"`
	Path              string    `json:"path"`
	Users             int       `json:"users"`
	RequestsPerUser   int       `json:"requests_per_user"`
	RampUpSeconds     float64   `json:"ramp_up_seconds"`
	RateLimit         float64   `json:"rate_limit,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	DurationSeconds   float64   `json:"duration_seconds"`
	RequestsPerSecond float64   `json:"requests_per_second"`
	Stats             Stats     `json:"stats"`
	Verdict           Verdict   `json:"verdict"`
}

// Verdict records the thresholds a run was held to.
type Verdict struct {
	Passed            bool     `json:"passed"`
	MaxResponseTimeMs float64  `json:"max_response_time_ms"`
	MinSuccessRate    float64  `json:"min_success_rate"`
	Failures          []string `json:"failures,omitempty"`
}

func newResult(opts Options, started time.Time, elapsed time.Duration, stats Stats) *Result {
	name := opts.Name
	if name == "" {
		name = opts.Method + " " + opts.Path
	}
	res := &Result{
		Name:            name,
		Method:          opts.Method,
		Path:            opts.Path,
		Users:           opts.Users,
		RequestsPerUser: opts.RequestsPerUser,
		RampUpSeconds:   opts.RampUp.Seconds(),
		RateLimit:       opts.Rate,
		StartedAt:       started,
		DurationSeconds: elapsed.Seconds(),
		Stats:           stats,
	}
	if elapsed > 0 {
		res.RequestsPerSecond = float64(stats.Total) / elapsed.Seconds()
	}
	res.Verdict = Evaluate(stats, opts.MaxResponseTime, opts.MinSuccessRate)
	return res
}

// Evaluate checks stats against the thresholds. A run with no requests has
// a 0% success rate.
func Evaluate(stats Stats, maxResponseTime time.Duration, minSuccessRate float64) Verdict {
	v := Verdict{
		MaxResponseTimeMs: float64(maxResponseTime) / float64(time.Millisecond),
		MinSuccessRate:    minSuccessRate,
	}
	if stats.SuccessRate < minSuccessRate {
		v.Failures = append(v.Failures, fmt.Sprintf("success rate %.2f%% is below %.2f%%", stats.SuccessRate, minSuccessRate))
	}
	if maxResponseTime > 0 && stats.Latency.Mean > v.MaxResponseTimeMs {
		v.Failures = append(v.Failures, fmt.Sprintf("mean response time %.2fms exceeds %.2fms", stats.Latency.Mean, v.MaxResponseTimeMs))
	}
	v.Passed = len(v.Failures) == 0
	return v
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileName is the result file name for r: a slug of the name plus the
// start time.
func (r *Result) FileName() string {
	return fileName(r.Name, r.StartedAt)
}

func fileName(name string, started time.Time) string {
	slug := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "load-test"
	}
	return fmt.Sprintf("%s-%s.json", slug, started.UTC().Format("20060102T150405Z"))
}

// WriteResult stores r as indented JSON in dir and returns the file path.
func WriteResult(dir string, r *Result) (string, error) {
	return writeJSON(dir, r.FileName(), r)
}

func writeJSON(dir, name string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
