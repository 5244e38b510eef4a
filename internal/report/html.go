package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

var htmlReport = template.Must(template.New("report").Funcs(templateFuncs()).Parse(htmlTemplate))

type htmlData struct {
	Suite
	Summary Summary
}

// WriteHTML renders suite and writes it to path, creating parent
// directories as needed.
func WriteHTML(path string, suite Suite) error {
	html, err := GenerateHTMLString(suite)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML file: %w", err)
	}
	return nil
}

// GenerateHTMLString renders suite as a standalone HTML page.
func GenerateHTMLString(suite Suite) (string, error) {
	var buf bytes.Buffer
	if err := htmlReport.Execute(&buf, htmlData{Suite: suite, Summary: suite.Summary()}); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDuration": formatDuration,
		"formatTime":     func(t time.Time) string { return t.Format(time.RFC3339) },
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
