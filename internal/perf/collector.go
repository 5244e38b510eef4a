package perf

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range in microseconds: 1µs to 1h, 3 significant figures.
const (
	histogramMin     = 1
	histogramMax     = 3_600_000_000
	histogramSigFigs = 3
)

// Collector aggregates request outcomes from every virtual user.
//
// Counters are atomic; the histogram and the breakdown maps are guarded by
// their own mutexes because hdrhistogram is not safe for concurrent writes.
type Collector struct {
	hist   *hdrhistogram.Histogram
	histMu sync.Mutex

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	breakdownMu sync.Mutex
	statusCodes map[int]int64
	errors      map[string]int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		hist:        hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
		statusCodes: make(map[int]int64),
		errors:      make(map[string]int64),
	}
}

// Succeeded reports whether an attempt counts towards the success rate:
// no transport error and a 2xx or 3xx status.
func Succeeded(status int, err error) bool {
	return err == nil && status >= 200 && status < 400
}

// Record adds one request outcome. status is ignored when err is set.
func (c *Collector) Record(latency time.Duration, status int, err error) {
	micros := latency.Microseconds()
	if micros < histogramMin {
		micros = histogramMin
	}
	if micros > histogramMax {
		micros = histogramMax
	}

	c.histMu.Lock()
	_ = c.hist.RecordValue(micros)
	c.histMu.Unlock()

	c.total.Add(1)
	if Succeeded(status, err) {
		c.succeeded.Add(1)
	} else {
		c.failed.Add(1)
	}

	c.breakdownMu.Lock()
	if err != nil {
		c.errors[err.Error()]++
	} else {
		c.statusCodes[status]++
	}
	c.breakdownMu.Unlock()
}

// LatencyStats are in milliseconds.
type LatencyStats struct {
	Min  float64 `json:"min_ms"`
	Mean float64 `json:"mean_ms"`
	P50  float64 `json:"p50_ms"`
	P90  float64 `json:"p90_ms"`
	P95  float64 `json:"p95_ms"`
	P99  float64 `json:"p99_ms"`
	Max  float64 `json:"max_ms"`
}

// Stats is a point-in-time view of a Collector.
type Stats struct {
	Total       int64            `json:"total_requests"`
	Succeeded   int64            `json:"successful_requests"`
	Failed      int64            `json:"failed_requests"`
	SuccessRate float64          `json:"success_rate"`
	Latency     LatencyStats     `json:"latency"`
	StatusCodes map[int]int64    `json:"status_codes"`
	Errors      map[string]int64 `json:"errors,omitempty"`
}

// Snapshot returns the current totals. SuccessRate is a percentage and is
// 0 when nothing was recorded.
func (c *Collector) Snapshot() Stats {
	stats := Stats{
		Total:     c.total.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total) * 100
	}

	c.histMu.Lock()
	if c.hist.TotalCount() > 0 {
		stats.Latency = LatencyStats{
			Min:  microsToMillis(float64(c.hist.Min())),
			Mean: microsToMillis(c.hist.Mean()),
			P50:  microsToMillis(float64(c.hist.ValueAtQuantile(50))),
			P90:  microsToMillis(float64(c.hist.ValueAtQuantile(90))),
			P95:  microsToMillis(float64(c.hist.ValueAtQuantile(95))),
			P99:  microsToMillis(float64(c.hist.ValueAtQuantile(99))),
			Max:  microsToMillis(float64(c.hist.Max())),
		}
	}
	c.histMu.Unlock()

	c.breakdownMu.Lock()
	stats.StatusCodes = make(map[int]int64, len(c.statusCodes))
	for code, n := range c.statusCodes {
		stats.StatusCodes[code] = n
	}
	if len(c.errors) > 0 {
		stats.Errors = make(map[string]int64, len(c.errors))
		for msg, n := range c.errors {
			stats.Errors[msg] = n
		}
	}
	c.breakdownMu.Unlock()

	return stats
}

// TopErrors returns error messages ordered by count, most frequent first.
func (s Stats) TopErrors() []string {
	msgs := make([]string, 0, len(s.Errors))
	for msg := range s.Errors {
		msgs = append(msgs, msg)
	}
	sort.Slice(msgs, func(i, j int) bool {
		if s.Errors[msgs[i]] != s.Errors[msgs[j]] {
			return s.Errors[msgs[i]] > s.Errors[msgs[j]]
		}
		return msgs[i] < msgs[j]
	})
	return msgs
}

func microsToMillis(v float64) float64 {
	return v / 1000
}
