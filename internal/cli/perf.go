package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/testbench/internal/http"
	"github.com/wesleyorama2/testbench/internal/logger"
	"github.com/wesleyorama2/testbench/internal/output"
	"github.com/wesleyorama2/testbench/internal/perf"
	"github.com/wesleyorama2/testbench/internal/report"
)

var perfCmd = &cobra.Command{
	Use:   "perf PATH",
	Short: "Run a load test against the configured API",
	Long: `Run a closed-model load test: --users virtual users each send --requests
requests to PATH, with user start times spread over --ramp-up. Defaults and
pass thresholds come from the performance configuration section.

The result is written as JSON to performance.results_dir, and HTML or
Allure reports are produced when enabled in the report section. The
command fails when a threshold is not met.

With --step the command runs a stress test instead: stages of --step,
2*--step, ... users up to --max-users, stopping after the first stage whose
success rate is below --breaking-point.`,
	Example: `  testbench perf /health
  testbench perf /users --users 20 --requests 50 --ramp-up 10s
  testbench perf /search --step 10 --max-users 100 --requests 30`,
	Args: cobra.ExactArgs(1),
	RunE: runPerf,
}

func runPerf(cmd *cobra.Command, args []string) error {
	m := manager(cmd)
	log := logger.FromContext(cmd.Context())
	noColor := noColorFlag(cmd)

	opts := perf.OptionsFromConfig(m.Performance())
	opts.Path = args[0]
	if err := applyPerfFlags(cmd, &opts); err != nil {
		return err
	}

	// Retries would hide failures and skew latencies.
	client := http.NewFromConfig(m.API(), http.WithRetries(0, 0))
	runner := perf.NewRunner(client, log)

	flags := cmd.Flags()
	if flags.Changed("max-users") && !flags.Changed("step") {
		return errors.New("--max-users requires --step")
	}
	if flags.Changed("step") {
		return runStress(cmd, runner, opts)
	}

	res, runErr := runner.Run(cmd.Context(), opts)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.FormatPerfResult(res, noColor))

	if dir := m.Performance().ResultsDir; dir != "" {
		path, err := perf.WriteResult(dir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Result written to %s\n", output.InfoIcon(noColor), path)
	}

	// An interrupted run still reports what it measured.
	reportCtx := context.WithoutCancel(cmd.Context())
	written, err := report.NewWriter(m.Report(), log).Write(reportCtx, perfSuite(res, m.Environment()))
	for _, path := range written {
		fmt.Fprintf(out, "%s Report written to %s\n", output.InfoIcon(noColor), path)
	}
	if err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if !res.Verdict.Passed {
		return errors.New("load test failed: " + strings.Join(res.Verdict.Failures, "; "))
	}
	return nil
}

// runStress steps the user count up and reports each stage. Reaching the
// breaking point is a finding, not a command failure.
func runStress(cmd *cobra.Command, runner *perf.Runner, opts perf.Options) error {
	m := manager(cmd)
	log := logger.FromContext(cmd.Context())
	noColor := noColorFlag(cmd)
	flags := cmd.Flags()

	sopts := perf.StressOptions{Base: opts, MaxUsers: opts.Users}
	sopts.Step, _ = flags.GetInt("step")
	if flags.Changed("max-users") {
		sopts.MaxUsers, _ = flags.GetInt("max-users")
	}
	sopts.BreakingPoint, _ = flags.GetFloat64("breaking-point")

	res, runErr := runner.Stress(cmd.Context(), sopts)
	if res == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.FormatStressResult(res, noColor))

	if dir := m.Performance().ResultsDir; dir != "" {
		path, err := perf.WriteStressResult(dir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Result written to %s\n", output.InfoIcon(noColor), path)
	}

	reportCtx := context.WithoutCancel(cmd.Context())
	written, err := report.NewWriter(m.Report(), log).Write(reportCtx, stressSuite(res, m.Environment()))
	for _, path := range written {
		fmt.Fprintf(out, "%s Report written to %s\n", output.InfoIcon(noColor), path)
	}
	if err != nil {
		return err
	}
	return runErr
}

func applyPerfFlags(cmd *cobra.Command, opts *perf.Options) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		opts.Name, _ = flags.GetString("name")
	}
	if flags.Changed("method") {
		method, _ := flags.GetString("method")
		opts.Method = strings.ToUpper(method)
	}
	if flags.Changed("users") {
		opts.Users, _ = flags.GetInt("users")
	}
	if flags.Changed("requests") {
		opts.RequestsPerUser, _ = flags.GetInt("requests")
	}
	if flags.Changed("ramp-up") {
		opts.RampUp, _ = flags.GetDuration("ramp-up")
	}
	if flags.Changed("rate") {
		opts.Rate, _ = flags.GetFloat64("rate")
	}

	headers, _ := flags.GetStringArray("header")
	if len(headers) > 0 {
		opts.Headers = make(map[string]string, len(headers))
		for _, h := range headers {
			key, value, err := http.ParseHeader(h)
			if err != nil {
				return err
			}
			opts.Headers[key] = value
		}
	}

	if data, _ := flags.GetString("data"); data != "" {
		body, err := readBody(data)
		if err != nil {
			return err
		}
		if gjson.Valid(body) && !hasHeader(opts.Headers, "Content-Type") {
			if opts.Headers == nil {
				opts.Headers = make(map[string]string)
			}
			opts.Headers["Content-Type"] = "application/json"
		}
		opts.Body = body
	}
	return nil
}

// perfSuite turns a load test result into a one-case report suite.
func perfSuite(res *perf.Result, env string) report.Suite {
	c := perfCase(res)
	if !res.Verdict.Passed {
		c.Status = report.StatusFailed
		c.Message = strings.Join(res.Verdict.Failures, "; ")
	}
	return report.Suite{Name: "Performance", Environment: env, Cases: []report.Case{c}}
}

// stressSuite reports one case per stage. A stage fails when its success
// rate is below the breaking point.
func stressSuite(res *perf.StressResult, env string) report.Suite {
	suite := report.Suite{Name: "Stress", Environment: env}
	for _, stage := range res.Stages {
		c := perfCase(stage)
		c.Labels["feature"] = "stress"
		if stage.Stats.SuccessRate < res.BreakingPoint {
			c.Status = report.StatusFailed
			c.Message = fmt.Sprintf("success rate %.2f%% is below the breaking point %.2f%%", stage.Stats.SuccessRate, res.BreakingPoint)
		}
		suite.Cases = append(suite.Cases, c)
	}
	return suite
}

// perfCase is a passed case carrying the run parameters of res.
func perfCase(res *perf.Result) report.Case {
	stats := res.Stats
	started := res.StartedAt
	return report.Case{
		Name:   res.Name,
		Status: report.StatusPassed,
		Start:  started,
		Stop:   started.Add(time.Duration(res.DurationSeconds * float64(time.Second))),
		Labels: map[string]string{
			"feature": "performance",
			"method":  res.Method,
		},
		Parameters: map[string]string{
			"users":             fmt.Sprint(res.Users),
			"requests_per_user": fmt.Sprint(res.RequestsPerUser),
			"total":             fmt.Sprint(stats.Total),
			"success_rate":      fmt.Sprintf("%.2f%%", stats.SuccessRate),
			"mean_ms":           fmt.Sprintf("%.2f", stats.Latency.Mean),
			"p95_ms":            fmt.Sprintf("%.2f", stats.Latency.P95),
			"rps":               fmt.Sprintf("%.2f", res.RequestsPerSecond),
		},
	}
}

func init() {
	flags := perfCmd.Flags()
	flags.String("name", "", "Name used in the result file and reports (default \"METHOD PATH\")")
	flags.StringP("method", "X", "GET", "HTTP method")
	flags.IntP("users", "u", 0, "Concurrent users (default performance.default_concurrent_users)")
	flags.IntP("requests", "n", 0, "Requests per user (default performance.default_requests_per_user)")
	flags.Duration("ramp-up", 0, "Ramp-up window (default performance.ramp_up_time)")
	flags.Float64("rate", 0, "Cap on combined requests per second across users (0 for no cap)")
	flags.StringArrayP("header", "H", nil, "Request header as 'Key: Value' (repeatable)")
	flags.StringP("data", "d", "", "Request body, or @file to read it from a file")
	flags.Int("step", 0, "Run a stress test, adding this many users per stage")
	flags.Int("max-users", 0, "Users in the last stress stage (default --users)")
	flags.Float64("breaking-point", perf.DefaultBreakingPoint, "Success rate in percent below which a stress test stops")
}
