// Package perf runs closed-model load tests: a fixed number of virtual
// users each issue a fixed number of requests, optionally ramped up.
package perf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wesleyorama2/testbench/internal/config"
	"github.com/wesleyorama2/testbench/internal/http"
	"github.com/wesleyorama2/testbench/internal/logger"
)

// Doer sends one request. *http.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Options describe a single load test.
type Options struct {
	Name            string
	Method          string
	Path            string
	Headers         map[string]string
	Body            any
	Users           int
	RequestsPerUser int
	// RampUp spreads user start times evenly over this window.
	RampUp time.Duration
	// Rate caps the combined request rate of all users in requests per
	// second. Zero means unpaced.
	Rate float64

	// Pass thresholds. MaxResponseTime applies to the mean latency; zero
	// disables it.
	MaxResponseTime time.Duration
	MinSuccessRate  float64
}

// OptionsFromConfig seeds Options from the performance section.
func OptionsFromConfig(cfg config.PerformanceConfig) Options {
	return Options{
		Method:          "GET",
		Users:           cfg.DefaultConcurrentUsers,
		RequestsPerUser: cfg.DefaultRequestsPerUser,
		RampUp:          time.Duration(cfg.RampUpTime) * time.Second,
		MaxResponseTime: time.Duration(cfg.MaxResponseTimeMs * float64(time.Millisecond)),
		MinSuccessRate:  cfg.MinSuccessRate,
	}
}

func (o Options) validate() error {
	var errs []error
	if o.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if o.Users <= 0 {
		errs = append(errs, fmt.Errorf("users must be greater than 0, got %d", o.Users))
	}
	if o.RequestsPerUser < 0 {
		errs = append(errs, fmt.Errorf("requests per user must not be negative, got %d", o.RequestsPerUser))
	}
	if o.Rate < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %g", o.Rate))
	}
	if o.RampUp < 0 {
		errs = append(errs, fmt.Errorf("ramp-up must not be negative, got %s", o.RampUp))
	}
	return errors.Join(errs...)
}

// startDelay is the ramp-up offset of user i out of users.
func (o Options) startDelay(i int) time.Duration {
	if o.RampUp <= 0 || o.Users <= 0 {
		return 0
	}
	return o.RampUp * time.Duration(i) / time.Duration(o.Users)
}

// Runner executes load tests against a Doer.
type Runner struct {
	client Doer
	log    logger.Logger
}

// NewRunner creates a runner. A nil log discards output.
func NewRunner(client Doer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{client: client, log: log}
}

// Run executes opts and evaluates the thresholds. When ctx is cancelled
// mid-run the partial result is returned together with the context error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid load test: %w", err)
	}
	if opts.Method == "" {
		opts.Method = "GET"
	}

	req := http.NewRequest(opts.Method, opts.Path).WithBody(opts.Body)
	for k, v := range opts.Headers {
		req.WithHeader(k, v)
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	collector := NewCollector()
	log := r.log.With("path", opts.Path)
	log.Info("Starting load test",
		"users", opts.Users,
		"requests_per_user", opts.RequestsPerUser,
		"ramp_up", opts.RampUp,
		"rate", opts.Rate)

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.Users; i++ {
		delay := opts.startDelay(i)
		g.Go(func() error {
			return r.user(gctx, req, opts.RequestsPerUser, delay, limiter, collector)
		})
	}
	runErr := g.Wait()
	elapsed := time.Since(started)

	res := newResult(opts, started, elapsed, collector.Snapshot())
	log.Info("Load test finished",
		"total", res.Stats.Total,
		"success_rate", fmt.Sprintf("%.2f%%", res.Stats.SuccessRate),
		"mean_ms", fmt.Sprintf("%.2f", res.Stats.Latency.Mean),
		"passed", res.Verdict.Passed)

	if runErr != nil {
		return res, fmt.Errorf("load test interrupted: %w", runErr)
	}
	return res, nil
}

// user is one virtual user. Request failures are recorded, never returned;
// only cancellation stops the user early.
func (r *Runner) user(ctx context.Context, req *http.Request, n int, delay time.Duration, limiter *rate.Limiter, c *Collector) error {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
		start := time.Now()
		resp, err := r.client.Do(ctx, req)
		latency := time.Since(start)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.Record(latency, status, err)
	}
	return nil
}
