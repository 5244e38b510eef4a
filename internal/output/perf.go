package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/wesleyorama2/testbench/internal/perf"
)

// FormatPerfResult renders a load test summary and its verdict.
func FormatPerfResult(res *perf.Result, noColor bool) string {
	s := SchemeFor(noColor)
	st := res.Stats
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s %s\n", s.Section.Sprint("Load test:"), res.Name)
	fmt.Fprintf(&buf, "  Users:           %d x %d requests (ramp-up %.0fs)\n", res.Users, res.RequestsPerUser, res.RampUpSeconds)
	fmt.Fprintf(&buf, "  Duration:        %.2fs\n", res.DurationSeconds)
	fmt.Fprintf(&buf, "  Requests:        %d total, %s ok, %s failed\n",
		st.Total, s.Success.Sprint(st.Succeeded), failedColor(s, st.Failed).Sprint(st.Failed))
	fmt.Fprintf(&buf, "  Success rate:    %.2f%%\n", st.SuccessRate)
	fmt.Fprintf(&buf, "  Throughput:      %.2f req/s\n", res.RequestsPerSecond)

	l := st.Latency
	buf.WriteString("  Response time (ms):\n")
	fmt.Fprintf(&buf, "    min %.2f  mean %.2f  max %.2f\n", l.Min, l.Mean, l.Max)
	fmt.Fprintf(&buf, "    p50 %.2f  p90 %.2f  p95 %.2f  p99 %.2f\n", l.P50, l.P90, l.P95, l.P99)

	if len(st.StatusCodes) > 0 {
		codes := make([]int, 0, len(st.StatusCodes))
		for code := range st.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		buf.WriteString("  Status codes:\n")
		for _, code := range codes {
			fmt.Fprintf(&buf, "    %s: %d\n", s.Status(code).Sprint(code), st.StatusCodes[code])
		}
	}

	if errs := st.TopErrors(); len(errs) > 0 {
		buf.WriteString("  Errors:\n")
		for _, msg := range errs {
			fmt.Fprintf(&buf, "    %s (%d)\n", s.Error.Sprint(msg), st.Errors[msg])
		}
	}

	buf.WriteString("\n")
	if res.Verdict.Passed {
		fmt.Fprintf(&buf, "%s Thresholds met\n", SuccessIcon(noColor))
	} else {
		for _, failure := range res.Verdict.Failures {
			fmt.Fprintf(&buf, "%s %s\n", ErrorIcon(noColor), failure)
		}
	}

	return buf.String()
}

func failedColor(s *ColorScheme, failed int64) *color.Color {
	if failed > 0 {
		return s.Error
	}
	return s.Muted
}

// FormatStressResult renders one line per stage and where the target
// started failing.
func FormatStressResult(res *perf.StressResult, noColor bool) string {
	s := SchemeFor(noColor)
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s %s (step %d, up to %d users)\n", s.Section.Sprint("Stress test:"), res.Name, res.Step, res.MaxUsers)
	fmt.Fprintf(&buf, "  %6s %8s %9s %10s %10s %9s\n", "users", "requests", "success", "mean ms", "p95 ms", "req/s")
	for _, stage := range res.Stages {
		st := stage.Stats
		rate := fmt.Sprintf("%8.2f%%", st.SuccessRate)
		if st.SuccessRate < res.BreakingPoint {
			rate = s.Error.Sprint(rate)
		}
		fmt.Fprintf(&buf, "  %6d %8d %s %10.2f %10.2f %9.2f\n",
			stage.Users, st.Total, rate, st.Latency.Mean, st.Latency.P95, stage.RequestsPerSecond)
	}

	buf.WriteString("\n")
	if res.BrokeAt > 0 {
		fmt.Fprintf(&buf, "%s Success rate fell below %.2f%% at %d users (max stable: %d)\n",
			ErrorIcon(noColor), res.BreakingPoint, res.BrokeAt, res.MaxStableUsers())
	} else {
		fmt.Fprintf(&buf, "%s Held %.2f%% success up to %d users\n", SuccessIcon(noColor), res.BreakingPoint, res.MaxStableUsers())
	}
	return buf.String()
}
