package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Format decodes and encodes one configuration file format. Encode may be
// nil for read-only formats.
type Format struct {
	Name   string
	Decode func(data []byte) (map[string]any, error)
	Encode func(v any) ([]byte, error)
}

// EnvLoader loads KEY=value pairs from a file into the process
// environment without overwriting variables that are already set.
type EnvLoader func(path string) error

// Registry records which optional capabilities are available.
type Registry struct {
	formats   map[string]Format
	envLoader EnvLoader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: make(map[string]Format)}
}

// DefaultRegistry registers YAML, JSON and dotenv support.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(YAMLFormat(), ".yaml", ".yml")
	r.Register(JSONFormat(), ".json")
	r.SetEnvLoader(func(path string) error { return godotenv.Load(path) })
	return r
}

// Register binds f to the given file extensions.
func (r *Registry) Register(f Format, exts ...string) {
	for _, ext := range exts {
		r.formats[normalizeExt(ext)] = f
	}
}

// SetEnvLoader installs the dotenv capability. A nil loader removes it.
func (r *Registry) SetEnvLoader(l EnvLoader) {
	r.envLoader = l
}

// Format returns the format registered for ext.
func (r *Registry) Format(ext string) (Format, error) {
	f, ok := r.formats[normalizeExt(ext)]
	if !ok || f.Decode == nil {
		return Format{}, fmt.Errorf("%w: no parser for %q files", ErrSourceUnavailable, ext)
	}
	return f, nil
}

// Encoder returns the format able to write ext files.
func (r *Registry) Encoder(ext string) (Format, error) {
	f, ok := r.formats[normalizeExt(ext)]
	if !ok || f.Encode == nil {
		return Format{}, fmt.Errorf("%w: no serializer for %q files", ErrSourceUnavailable, ext)
	}
	return f, nil
}

// EnvLoader returns the dotenv capability.
func (r *Registry) EnvLoader() (EnvLoader, error) {
	if r.envLoader == nil {
		return nil, fmt.Errorf("%w: dotenv loader not installed", ErrSourceUnavailable)
	}
	return r.envLoader, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// YAMLFormat reads and writes YAML documents.
func YAMLFormat() Format {
	return Format{
		Name: "yaml",
		Decode: func(data []byte) (map[string]any, error) {
			var out map[string]any
			if err := yaml.Unmarshal(data, &out); err != nil {
				return nil, err
			}
			return normalizeMap(out), nil
		},
		Encode: yaml.Marshal,
	}
}

// JSONFormat reads and writes indented JSON documents.
func JSONFormat() Format {
	return Format{
		Name: "json",
		Decode: func(data []byte) (map[string]any, error) {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.UseNumber()
			var out map[string]any
			if err := dec.Decode(&out); err != nil {
				return nil, err
			}
			if _, err := dec.Token(); !errors.Is(err, io.EOF) {
				return nil, errors.New("unexpected data after top-level value")
			}
			return normalizeMap(out), nil
		},
		Encode: func(v any) ([]byte, error) {
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return nil, err
			}
			return append(data, '\n'), nil
		},
	}
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}

// normalize gives decoded values one shape whatever the file format:
// mappings are keyed by strings and whole JSON numbers become int, as
// YAML decodes them.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i)
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
