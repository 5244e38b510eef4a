// Package report turns test outcomes into the artifacts selected by the
// report section: a standalone HTML page and Allure result files.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/testbench/internal/config"
	"github.com/wesleyorama2/testbench/internal/logger"
)

// Status of a single case, using Allure's vocabulary.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
)

// Case is one reported test.
type Case struct {
	Name     string
	FullName string
	Status   Status
	Start    time.Time
	Stop     time.Time
	// Message explains a non-passing status.
	Message string
	Labels  map[string]string
	// Parameters are shown as a key/value table, e.g. measured metrics.
	Parameters map[string]string
}

// Duration is Stop minus Start.
func (c Case) Duration() time.Duration {
	return c.Stop.Sub(c.Start)
}

// Suite groups the cases of one run.
type Suite struct {
	Name        string
	Environment string
	GeneratedAt time.Time
	Cases       []Case
}

// Summary counts cases per status.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Broken  int
	Skipped int
}

// Summary returns the per-status counts of s.
func (s Suite) Summary() Summary {
	sum := Summary{Total: len(s.Cases)}
	for _, c := range s.Cases {
		switch c.Status {
		case StatusPassed:
			sum.Passed++
		case StatusFailed:
			sum.Failed++
		case StatusBroken:
			sum.Broken++
		case StatusSkipped:
			sum.Skipped++
		}
	}
	return sum
}

// Writer emits the reports enabled in a ReportConfig.
type Writer struct {
	cfg   config.ReportConfig
	log   logger.Logger
	newID func() string
}

// NewWriter creates a Writer. A nil log discards output.
func NewWriter(cfg config.ReportConfig, log logger.Logger) *Writer {
	if log == nil {
		log = logger.Discard()
	}
	return &Writer{cfg: cfg, log: log, newID: uuid.NewString}
}

// Write produces every enabled report and returns the files written. A
// failure in one report does not stop the other.
func (w *Writer) Write(ctx context.Context, suite Suite) ([]string, error) {
	if suite.GeneratedAt.IsZero() {
		suite.GeneratedAt = time.Now()
	}

	var (
		written []string
		errs    []error
	)

	if w.cfg.GenerateHTML {
		if err := WriteHTML(w.cfg.HTMLReportPath, suite); err != nil {
			errs = append(errs, err)
		} else {
			written = append(written, w.cfg.HTMLReportPath)
			w.log.Info("HTML report written", "path", w.cfg.HTMLReportPath)
		}
	}

	if w.cfg.GenerateAllure {
		files, err := writeAllure(ctx, w.cfg.AllureResultsDir, suite, w.newID)
		written = append(written, files...)
		if err != nil {
			errs = append(errs, err)
		}
		if len(files) > 0 {
			w.log.Info("Allure results written", "dir", w.cfg.AllureResultsDir, "files", len(files))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return written, fmt.Errorf("write reports: %w", err)
	}
	return written, nil
}
