package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/testbench/internal/config"
)

// Format selects how structured data is printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q, must be one of: text, json, yaml", s)
	}
}

// Mask replaces secrets in printed configuration.
const Mask = "********"

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return Mask
}

// ConfigMap returns cfg as a generic map keyed like the configuration
// files, with the environment name included and the password masked.
func ConfigMap(cfg *config.Config) (map[string]any, error) {
	data, err := json.Marshal(cfg.Document())
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	m["environment"] = cfg.Environment
	if db, ok := m[config.SectionDatabase].(map[string]any); ok {
		db["password"] = mask(cfg.Database.Password)
	}
	return m, nil
}

// ConfigPrinter prints a resolved configuration tree.
type ConfigPrinter struct {
	Format Format
	Scheme *ColorScheme
}

// Print writes cfg to w in the printer's format.
func (p *ConfigPrinter) Print(w io.Writer, cfg *config.Config) error {
	switch p.Format {
	case FormatJSON, FormatYAML:
		m, err := ConfigMap(cfg)
		if err != nil {
			return err
		}
		return Encode(w, p.Format, m)
	default:
		return p.printText(w, cfg)
	}
}

func (p *ConfigPrinter) printText(w io.Writer, cfg *config.Config) error {
	s := p.scheme()
	var buf strings.Builder

	fmt.Fprintf(&buf, "%s %s\n", s.Key.Sprint("environment:"), s.Highlight.Sprint(cfg.Environment))
	for _, section := range config.SectionNames() {
		fmt.Fprintf(&buf, "\n%s\n", s.Section.Sprintf("[%s]", section))

		keys := config.FieldNames(section)
		if section == config.SectionCustom {
			keys = sortedKeys(cfg.Custom)
			if len(keys) == 0 {
				fmt.Fprintf(&buf, "  %s\n", s.Muted.Sprint("(empty)"))
			}
		}
		for _, key := range keys {
			v, err := cfg.Field(section, key)
			if err != nil {
				return err
			}
			if section == config.SectionDatabase && key == "password" {
				v = mask(cfg.Database.Password)
			}
			fmt.Fprintf(&buf, "  %s %s\n", s.Key.Sprint(key+":"), s.Value.Sprint(FormatValue(v)))
		}
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// PrintSources lists the layers that contributed to the tree, lowest
// precedence first.
func (p *ConfigPrinter) PrintSources(w io.Writer, sources []config.Source) error {
	if p.Format == FormatJSON || p.Format == FormatYAML {
		return Encode(w, p.Format, map[string]any{"sources": sources})
	}

	s := p.scheme()
	var buf strings.Builder
	buf.WriteString(s.Section.Sprint("sources:") + "\n")
	for i, src := range sources {
		fmt.Fprintf(&buf, "  %d. %-12s %s\n", i+1, s.Key.Sprint(string(src.Layer)), src.Path)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func (p *ConfigPrinter) scheme() *ColorScheme {
	if p.Scheme == nil {
		return NoColorScheme()
	}
	return p.Scheme
}

// FormatValue renders one configuration value on a single line. Strings
// are printed bare, lists and maps as compact JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
