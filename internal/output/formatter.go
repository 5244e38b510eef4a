package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wesleyorama2/testbench/internal/http"
)

// Formatter renders API requests and responses for the terminal.
type Formatter struct {
	Verbose bool
	Scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	return &Formatter{
		Verbose: verbose,
		Scheme:  SchemeFor(noColor),
	}
}

// FormatRequest formats an HTTP request for display
func (f *Formatter) FormatRequest(req *http.Request, baseURL string) string {
	var buf strings.Builder

	target := baseURL + req.Path
	if built, err := req.Build(baseURL); err == nil {
		target = built.URL.String()
	}
	fmt.Fprintf(&buf, "▶ REQUEST: %s %s\n", f.Scheme.Method.Sprint(req.Method), f.Scheme.URL.Sprint(target))

	if f.Verbose || len(req.Headers) > 0 {
		buf.WriteString("  Headers:\n")
		for _, key := range sortedKeys(req.Headers) {
			fmt.Fprintf(&buf, "    %s: %s\n", f.Scheme.Key.Sprint(key), req.Headers[key])
		}
	}

	if req.Body != nil {
		buf.WriteString("  Body: ")
		switch body := req.Body.(type) {
		case string:
			buf.WriteString(formatJSONString(body))
		case []byte:
			buf.WriteString(formatJSONString(string(body)))
		default:
			encoded, err := json.Marshal(body)
			if err != nil {
				fmt.Fprintf(&buf, "%v", body)
			} else {
				buf.WriteString(formatJSONString(string(encoded)))
			}
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatResponse formats an HTTP response for display
func (f *Formatter) FormatResponse(resp *http.Response) string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "◀ RESPONSE: %s (%dms)", f.Scheme.Status(resp.StatusCode).Sprint(resp.Status), resp.GetResponseTimeMillis())
	if resp.Attempts > 1 {
		fmt.Fprintf(&buf, " after %d attempts", resp.Attempts)
	}
	buf.WriteString("\n")

	if f.Verbose {
		t := resp.Timing
		buf.WriteString("  Timing:\n")
		fmt.Fprintf(&buf, "    DNS Lookup:         %dms\n", t.GetDNSLookupTimeMillis())
		fmt.Fprintf(&buf, "    TCP Connection:     %dms\n", t.GetTCPConnectTimeMillis())
		fmt.Fprintf(&buf, "    TLS Handshake:      %dms\n", t.GetTLSHandshakeTimeMillis())
		fmt.Fprintf(&buf, "    Time to First Byte: %dms\n", t.GetTimeToFirstByteMillis())
		fmt.Fprintf(&buf, "    Content Transfer:   %dms\n", t.GetContentTransferTimeMillis())
		fmt.Fprintf(&buf, "    Total:              %dms\n", t.GetTotalTimeMillis())

		buf.WriteString("  Headers:\n")
		keys := make([]string, 0, len(resp.Headers))
		for key := range resp.Headers {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for _, value := range resp.Headers[key] {
				fmt.Fprintf(&buf, "    %s: %s\n", f.Scheme.Key.Sprint(key), value)
			}
		}
	}

	body, err := resp.GetBodyAsString()
	if err == nil && body != "" {
		buf.WriteString("  Body:\n")
		buf.WriteString(formatJSONString(body))
		buf.WriteString("\n")
	}

	return buf.String()
}

// FormatExtractions lists extracted values in name order.
func (f *Formatter) FormatExtractions(values map[string]string) string {
	if len(values) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("  Extracted:\n")
	for _, name := range sortedKeys(values) {
		fmt.Fprintf(&buf, "    %s = %s\n", f.Scheme.Key.Sprint(name), f.Scheme.Value.Sprint(values[name]))
	}
	return buf.String()
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(s), "  ", "  "); err != nil {
		return s
	}
	return pretty.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
