package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/testbench/internal/http"
	"github.com/wesleyorama2/testbench/internal/logger"
	"github.com/wesleyorama2/testbench/internal/output"
	"github.com/wesleyorama2/testbench/pkg/jsonpath"
	"github.com/wesleyorama2/testbench/pkg/jsonschema"
)

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send one request to the configured API",
	Long: `Send one request using the api configuration section: base URL, timeout,
retries, TLS verification and default headers. PATH is resolved against
api.base_url unless it is an absolute URL.`,
	Example: `  testbench request GET /users/1
  testbench request POST /users -d '{"name": "qa"}' --extract id=$.id
  testbench request GET /users --schema schemas/users.json
  testbench request DELETE /users/1 --expect-status 204`,
	Args: cobra.ExactArgs(2),
	RunE: runRequest,
}

func runRequest(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	headers, _ := flags.GetStringArray("header")
	data, _ := flags.GetString("data")
	extracts, _ := flags.GetStringArray("extract")
	schemaPath, _ := flags.GetString("schema")
	verbose, _ := flags.GetBool("verbose")
	expectStatus, _ := flags.GetString("expect-status")

	var expect http.StatusExpectation
	if expectStatus != "" {
		var err error
		if expect, err = http.ParseStatusExpectation(expectStatus); err != nil {
			return err
		}
	}

	req := http.NewRequest(args[0], args[1])
	for _, h := range headers {
		key, value, err := http.ParseHeader(h)
		if err != nil {
			return err
		}
		req.WithHeader(key, value)
	}

	if data != "" {
		body, err := readBody(data)
		if err != nil {
			return err
		}
		if gjson.Valid(body) && !hasHeader(req.Headers, "Content-Type") {
			req.WithHeader("Content-Type", "application/json")
		}
		req.WithBody(body)
	}

	paths := make(map[string]string, len(extracts))
	for _, e := range extracts {
		name, path, err := jsonpath.ParseAssignment(e)
		if err != nil {
			return err
		}
		paths[name] = path
	}

	var schema *jsonschema.Schema
	if schemaPath != "" {
		var err error
		if schema, err = jsonschema.CompileFile(schemaPath); err != nil {
			return err
		}
	}

	m := manager(cmd)
	client := http.NewFromConfig(m.API())
	noColor := noColorFlag(cmd)
	formatter := output.NewFormatter(verbose, noColor)
	out := cmd.OutOrStdout()

	log := logger.FromContext(cmd.Context())
	log.Debug("Sending request", "method", req.Method, "path", req.Path, "base_url", client.BaseURL())

	fmt.Fprint(out, formatter.FormatRequest(req, client.BaseURL()))
	resp, err := client.Do(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	fmt.Fprint(out, formatter.FormatResponse(resp))

	body, err := resp.GetBodyAsString()
	if err != nil {
		return err
	}

	var errs []error
	if expect != "" && !expect.Match(resp) {
		errs = append(errs, fmt.Errorf("unexpected status %s, want %s", resp.Status, expect))
	}

	if len(paths) > 0 {
		values, err := jsonpath.ExtractMultiple(body, paths)
		if len(values) > 0 {
			fmt.Fprint(out, formatter.FormatExtractions(values))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("extraction failed: %w", err))
		}
	}

	if schema != nil {
		var doc any
		if err := resp.GetBodyAsJSON(&doc); err != nil {
			errs = append(errs, fmt.Errorf("schema validation failed: response is not JSON: %w", err))
		} else if err := schema.ValidateValue(doc); err != nil {
			errs = append(errs, fmt.Errorf("schema validation failed: %w", err))
		} else {
			fmt.Fprintf(out, "%s Response matches schema %s\n", output.SuccessIcon(noColor), schemaPath)
		}
	}
	return errors.Join(errs...)
}

// readBody returns data, or the contents of the named file when data
// starts with @.
func readBody(data string) (string, error) {
	name, ok := strings.CutPrefix(data, "@")
	if !ok {
		return data, nil
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read request body: %w", err)
	}
	return string(raw), nil
}

func hasHeader(headers map[string]string, name string) bool {
	for key := range headers {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func init() {
	flags := requestCmd.Flags()
	flags.StringArrayP("header", "H", nil, "Request header as 'Key: Value' (repeatable)")
	flags.StringP("data", "d", "", "Request body, or @file to read it from a file")
	flags.StringArrayP("extract", "e", nil, "Extract a value as name=$.json.path (repeatable)")
	flags.String("schema", "", "JSON Schema file the response body must match")
	flags.BoolP("verbose", "v", false, "Show timings and response headers")
	flags.String("expect-status", "", "Fail unless the status matches, e.g. 201 or 2xx")
}
