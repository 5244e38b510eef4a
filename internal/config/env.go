package config

import (
	"fmt"
	"strings"
)

// EnvironmentVar selects the active environment tag.
const EnvironmentVar = "TEST_ENV"

// EnvOverride maps one environment variable onto one leaf field.
type EnvOverride struct {
	Var     string
	Section string
	Key     string
	// Bool marks flags where only a case-insensitive "true" means true.
	Bool bool
	// Header, when set, stores Prefix+value under this name in the
	// headers map addressed by Section.Key instead of replacing it.
	Header string
	Prefix string
}

// envOverrides is the fixed table of recognized variables, applied in order.
var envOverrides = []EnvOverride{
	{Var: "DB_TYPE", Section: SectionDatabase, Key: "type"},
	{Var: "DB_HOST", Section: SectionDatabase, Key: "host"},
	{Var: "DB_PORT", Section: SectionDatabase, Key: "port"},
	{Var: "DB_NAME", Section: SectionDatabase, Key: "database"},
	{Var: "DB_USER", Section: SectionDatabase, Key: "username"},
	{Var: "DB_PASSWORD", Section: SectionDatabase, Key: "password"},

	{Var: "API_BASE_URL", Section: SectionAPI, Key: "base_url"},
	{Var: "API_TIMEOUT", Section: SectionAPI, Key: "timeout"},
	{Var: "API_MAX_RETRIES", Section: SectionAPI, Key: "max_retries"},
	{Var: "API_AUTH_TOKEN", Section: SectionAPI, Key: "headers", Header: "Authorization", Prefix: "Bearer "},

	{Var: "BROWSER_HEADLESS", Section: SectionBrowser, Key: "headless", Bool: true},
	{Var: "BROWSER_TIMEOUT", Section: SectionBrowser, Key: "timeout"},
	{Var: "BROWSER_VIEWPORT_WIDTH", Section: SectionBrowser, Key: "viewport_width"},
	{Var: "BROWSER_VIEWPORT_HEIGHT", Section: SectionBrowser, Key: "viewport_height"},
	{Var: "BROWSER_TYPE", Section: SectionBrowser, Key: "browser_type"},
}

// EnvOverrides returns a copy of the override table.
func EnvOverrides() []EnvOverride {
	out := make([]EnvOverride, len(envOverrides))
	copy(out, envOverrides)
	return out
}

// applyEnvOverrides writes every set, non-empty variable of the override
// table into c. It returns the variables that were applied and one
// ValidationError per value that could not be coerced.
func applyEnvOverrides(c *Config, lookup func(string) (string, bool)) (applied []string, errs ValidationErrors) {
	for _, o := range envOverrides {
		raw, ok := lookup(o.Var)
		if !ok || raw == "" {
			continue
		}

		f, err := lookupField(o.Section, o.Key)
		if err != nil {
			// The table is static; a miss here is a programming error.
			panic(err)
		}

		var value any = raw
		switch {
		case o.Bool:
			value = strings.EqualFold(strings.TrimSpace(raw), "true")
		case o.Header != "":
			headers := map[string]string{}
			if current, ok := f.get(c).(map[string]string); ok {
				for k, v := range current {
					headers[k] = v
				}
			}
			headers[o.Header] = o.Prefix + raw
			value = headers
		}
		if err := f.set(c, value); err != nil {
			errs = append(errs, ValidationError{
				Path:    o.Var,
				Message: fmt.Sprintf("invalid value %q for %s.%s", raw, o.Section, o.Key),
			})
			continue
		}
		applied = append(applied, o.Var)
	}
	return applied, errs
}
