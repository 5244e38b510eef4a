// Package jsonschema validates JSON documents against JSON Schema using
// santhosh-tekuri/jsonschema. Format keywords are asserted.
package jsonschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const resourceName = "schema.json"

// ValidationErrors lists every violation found in a document.
type ValidationErrors []error

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, err := range ve {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Schema is a compiled schema that can be reused across documents.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile parses and compiles a schema given as JSON text.
func Compile(schema string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(resourceName, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// CompileFile reads and compiles the schema at path.
func CompileFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(string(data))
}

// Validate checks doc against s. It returns nil for a valid document,
// ValidationErrors for violations and a plain error for malformed JSON.
func (s *Schema) Validate(doc string) error {
	var data any
	if err := json.Unmarshal([]byte(doc), &data); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return s.ValidateValue(data)
}

// ValidateValue checks an already decoded document, as produced by
// json.Unmarshal into an any.
func (s *Schema) ValidateValue(data any) error {
	err := s.compiled.Validate(data)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return flatten(verr)
	}
	return ValidationErrors{err}
}

// Validate is a one-shot helper reporting whether doc satisfies schema.
func Validate(doc, schema string) (bool, error) {
	s, err := Compile(schema)
	if err != nil {
		return false, err
	}
	err = s.Validate(doc)
	var verrs ValidationErrors
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &verrs):
		return false, nil
	default:
		return false, err
	}
}

// flatten collects the leaf causes of a validation error, which carry the
// specific messages.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("%s: %s", location, err.Message)}
	}
	var out ValidationErrors
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
