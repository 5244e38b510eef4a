// Package jsonpath evaluates the commonly used subset of JSONPath
// ($.a.b, $.items[0], $['key']) on top of gjson. The leading "$" is
// optional, so "api.timeout" and "$.api.timeout" are equivalent.
package jsonpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when a path does not resolve to a value.
var ErrNotFound = errors.New("path not found")

// Lookup resolves path in the JSON document doc.
func Lookup(doc, path string) (gjson.Result, error) {
	if strings.TrimSpace(doc) == "" {
		return gjson.Result{}, errors.New("empty JSON document")
	}
	if path == "" {
		return gjson.Result{}, errors.New("empty JSONPath expression")
	}
	if !gjson.Valid(doc) {
		return gjson.Result{}, errors.New("invalid JSON document")
	}

	result := gjson.Get(doc, toGjson(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return result, nil
}

// LookupValue marshals v to JSON and resolves path in it.
func LookupValue(v any, path string) (gjson.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode value: %w", err)
	}
	return Lookup(string(data), path)
}

// Extract returns the value at path as a string. Objects and arrays are
// returned as raw JSON; null is returned as "null".
func Extract(doc, path string) (string, error) {
	result, err := Lookup(doc, path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractMultiple extracts every named path. Values that resolve are
// returned even when others fail; the error lists the failures by name.
func ExtractMultiple(doc string, paths map[string]string) (map[string]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("no JSONPath expressions provided")
	}

	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(paths))
	var errs []error
	for _, name := range names {
		value, err := Extract(doc, paths[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		results[name] = value
	}
	if len(errs) > 0 {
		return results, fmt.Errorf("extraction errors: %w", errors.Join(errs...))
	}
	return results, nil
}

// ParseAssignment splits "name=path" as given to --extract.
func ParseAssignment(s string) (name, path string, err error) {
	name, path, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid extraction %q, expected name=$.path", s)
	}
	return name, path, nil
}

// toGjson rewrites a JSONPath expression into gjson syntax.
func toGjson(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	var (
		segments []string
		current  strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				current.WriteString(path[i:])
				i = len(path)
				continue
			}
			key := strings.Trim(path[i+1:i+end], `'"`)
			segments = append(segments, strings.ReplaceAll(key, ".", `\.`))
			i += end
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return strings.Join(segments, ".")
}
