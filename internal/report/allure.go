package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
)

// AllureResult is the subset of the Allure result schema we emit.
type AllureResult struct {
	UUID          string            `json:"uuid"`
	HistoryID     string            `json:"historyId"`
	Name          string            `json:"name"`
	FullName      string            `json:"fullName,omitempty"`
	Status        Status            `json:"status"`
	StatusDetails *StatusDetails    `json:"statusDetails,omitempty"`
	Stage         string            `json:"stage"`
	Start         int64             `json:"start"`
	Stop          int64             `json:"stop"`
	Labels        []AllureLabel     `json:"labels"`
	Parameters    []AllureParameter `json:"parameters,omitempty"`
}

type StatusDetails struct {
	Message string `json:"message"`
}

type AllureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type AllureParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func newAllureResult(id string, suite Suite, c Case) AllureResult {
	full := c.FullName
	if full == "" {
		full = suite.Name + "." + c.Name
	}
	r := AllureResult{
		UUID:      id,
		HistoryID: full,
		Name:      c.Name,
		FullName:  full,
		Status:    c.Status,
		Stage:     "finished",
		Start:     c.Start.UnixMilli(),
		Stop:      c.Stop.UnixMilli(),
		Labels:    []AllureLabel{{Name: "suite", Value: suite.Name}},
	}
	if suite.Environment != "" {
		r.Labels = append(r.Labels, AllureLabel{Name: "environment", Value: suite.Environment})
	}
	for _, k := range sortedKeys(c.Labels) {
		r.Labels = append(r.Labels, AllureLabel{Name: k, Value: c.Labels[k]})
	}
	for _, k := range sortedKeys(c.Parameters) {
		r.Parameters = append(r.Parameters, AllureParameter{Name: k, Value: c.Parameters[k]})
	}
	if c.Message != "" {
		r.StatusDetails = &StatusDetails{Message: c.Message}
	}
	return r
}

// writeAllure writes one <uuid>-result.json per case into dir.
func writeAllure(ctx context.Context, dir string, suite Suite, newID func() string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create allure results directory: %w", err)
	}

	written := make([]string, 0, len(suite.Cases))
	for _, c := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		id := newID()
		data, err := json.MarshalIndent(newAllureResult(id, suite, c), "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode allure result %q: %w", c.Name, err)
		}
		path := filepath.Join(dir, id+"-result.json")
		if err := renameio.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("write allure result: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
