package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// field addresses one leaf of a fixed section.
type field func(c *Config) any

type fieldTable map[string]field

// sectionFields lists every key a fixed section accepts. Keys missing here
// are ignored on merge and rejected by UpdateField.
var sectionFields = map[string]fieldTable{
	SectionDatabase: {
		"type":                 func(c *Config) any { return &c.Database.Type },
		"host":                 func(c *Config) any { return &c.Database.Host },
		"port":                 func(c *Config) any { return &c.Database.Port },
		"database":             func(c *Config) any { return &c.Database.Database },
		"username":             func(c *Config) any { return &c.Database.Username },
		"password":             func(c *Config) any { return &c.Database.Password },
		"connection_pool_size": func(c *Config) any { return &c.Database.ConnectionPoolSize },
		"timeout":              func(c *Config) any { return &c.Database.Timeout },
	},
	SectionAPI: {
		"base_url":    func(c *Config) any { return &c.API.BaseURL },
		"timeout":     func(c *Config) any { return &c.API.Timeout },
		"max_retries": func(c *Config) any { return &c.API.MaxRetries },
		"retry_delay": func(c *Config) any { return &c.API.RetryDelay },
		"verify_ssl":  func(c *Config) any { return &c.API.VerifySSL },
		"headers":     func(c *Config) any { return &c.API.Headers },
	},
	SectionBrowser: {
		"headless":        func(c *Config) any { return &c.Browser.Headless },
		"timeout":         func(c *Config) any { return &c.Browser.Timeout },
		"viewport_width":  func(c *Config) any { return &c.Browser.ViewportWidth },
		"viewport_height": func(c *Config) any { return &c.Browser.ViewportHeight },
		"browser_type":    func(c *Config) any { return &c.Browser.BrowserType },
		"slow_mo":         func(c *Config) any { return &c.Browser.SlowMo },
		"devtools":        func(c *Config) any { return &c.Browser.Devtools },
		"args":            func(c *Config) any { return &c.Browser.Args },
	},
	SectionReport: {
		"allure_results_dir":  func(c *Config) any { return &c.Report.AllureResultsDir },
		"html_report_path":    func(c *Config) any { return &c.Report.HTMLReportPath },
		"screenshot_dir":      func(c *Config) any { return &c.Report.ScreenshotDir },
		"video_dir":           func(c *Config) any { return &c.Report.VideoDir },
		"generate_allure":     func(c *Config) any { return &c.Report.GenerateAllure },
		"generate_html":       func(c *Config) any { return &c.Report.GenerateHTML },
		"capture_screenshots": func(c *Config) any { return &c.Report.CaptureScreenshots },
		"capture_videos":      func(c *Config) any { return &c.Report.CaptureVideos },
	},
	SectionPerformance: {
		"default_concurrent_users":  func(c *Config) any { return &c.Performance.DefaultConcurrentUsers },
		"default_requests_per_user": func(c *Config) any { return &c.Performance.DefaultRequestsPerUser },
		"max_response_time_ms":      func(c *Config) any { return &c.Performance.MaxResponseTimeMs },
		"min_success_rate":          func(c *Config) any { return &c.Performance.MinSuccessRate },
		"ramp_up_time":              func(c *Config) any { return &c.Performance.RampUpTime },
		"results_dir":               func(c *Config) any { return &c.Performance.ResultsDir },
	},
}

// lookupField resolves section.key against the field tables.
func lookupField(section, key string) (field, error) {
	table, ok := sectionFields[section]
	if !ok {
		return nil, &UnknownTargetError{Section: section}
	}
	f, ok := table[key]
	if !ok {
		return nil, &UnknownTargetError{Section: section, Key: key}
	}
	return f, nil
}

// set coerces value into the field. The field is left untouched on error.
func (f field) set(c *Config, value any) error {
	dst := reflect.ValueOf(f(c)).Elem()
	fresh := reflect.New(dst.Type())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       rejectFractionalInts,
		WeaklyTypedInput: true,
		Result:           fresh.Interface(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("cannot use %v (%T) as %s: %w", value, value, dst.Type(), err)
	}
	dst.Set(fresh.Elem())
	return nil
}

// rejectFractionalInts stops weak decoding from truncating 0.5 to 0.
func rejectFractionalInts(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

// get returns the current value of the field.
func (f field) get(c *Config) any {
	return reflect.ValueOf(f(c)).Elem().Interface()
}

// Field returns the value of section.key. Custom keys are looked up in the
// custom map. Slices and maps are shared with c.
func (c *Config) Field(section, key string) (any, error) {
	if section == SectionCustom {
		v, ok := c.Custom[key]
		if !ok {
			return nil, &UnknownTargetError{Section: section, Key: key}
		}
		return v, nil
	}
	f, err := lookupField(section, key)
	if err != nil {
		return nil, err
	}
	return f.get(c), nil
}

// FieldNames returns the sorted keys accepted by a fixed section.
func FieldNames(section string) []string {
	table := sectionFields[section]
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionNames returns every addressable section, custom included.
func SectionNames() []string {
	return []string{SectionDatabase, SectionAPI, SectionBrowser, SectionReport, SectionPerformance, SectionCustom}
}

// mergeSection applies the known keys of raw to one fixed section and
// returns the keys it ignored.
func mergeSection(c *Config, section string, raw map[string]any) (ignored []string, errs []error) {
	table := sectionFields[section]
	for key, value := range raw {
		f, ok := table[key]
		if !ok {
			ignored = append(ignored, key)
			continue
		}
		if err := f.set(c, value); err != nil {
			errs = append(errs, fmt.Errorf("%s.%s: %w", section, key, err))
		}
	}
	sort.Strings(ignored)
	return ignored, errs
}
