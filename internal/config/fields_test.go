package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Every struct field of a fixed section must be reachable through its
// field table under its file key, and nothing else.
func TestSectionFields_MatchStructs(t *testing.T) {
	sections := map[string]reflect.Type{
		SectionDatabase:    reflect.TypeOf(DatabaseConfig{}),
		SectionAPI:         reflect.TypeOf(APIConfig{}),
		SectionBrowser:     reflect.TypeOf(BrowserConfig{}),
		SectionReport:      reflect.TypeOf(ReportConfig{}),
		SectionPerformance: reflect.TypeOf(PerformanceConfig{}),
	}
	require.Len(t, sectionFields, len(sections))

	for section, typ := range sections {
		t.Run(section, func(t *testing.T) {
			table := sectionFields[section]
			require.Len(t, table, typ.NumField())

			cfg := Default()
			for i := 0; i < typ.NumField(); i++ {
				sf := typ.Field(i)
				key := strings.Split(sf.Tag.Get("json"), ",")[0]
				if key == "-" {
					key = strings.ToLower(sf.Name)
				}
				f, ok := table[key]
				require.True(t, ok, "missing field table entry for %s.%s", section, key)
				assert.Equal(t, sf.Type, reflect.TypeOf(f(cfg)).Elem(), "%s.%s", section, key)
			}
		})
	}
}

func TestFieldSet_Coercion(t *testing.T) {
	tests := []struct {
		name    string
		section string
		key     string
		value   any
		check   func(t *testing.T, c *Config)
	}{
		{"string to int", SectionAPI, "timeout", "45", func(t *testing.T, c *Config) { assert.Equal(t, 45, c.API.Timeout) }},
		{"float to int", SectionDatabase, "port", 3306.0, func(t *testing.T, c *Config) { assert.Equal(t, 3306, c.Database.Port) }},
		{"int to float", SectionAPI, "retry_delay", 2, func(t *testing.T, c *Config) { assert.Equal(t, 2.0, c.API.RetryDelay) }},
		{"string to bool", SectionReport, "capture_videos", "true", func(t *testing.T, c *Config) { assert.True(t, c.Report.CaptureVideos) }},
		{"generic list", SectionBrowser, "args", []any{"--a", "--b"}, func(t *testing.T, c *Config) {
			assert.Equal(t, []string{"--a", "--b"}, c.Browser.Args)
		}},
		{"generic map", SectionAPI, "headers", map[string]any{"X-Team": "qa"}, func(t *testing.T, c *Config) {
			assert.Equal(t, map[string]string{"X-Team": "qa"}, c.API.Headers)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			f, err := lookupField(tt.section, tt.key)
			require.NoError(t, err)
			require.NoError(t, f.set(cfg, tt.value))
			tt.check(t, cfg)
		})
	}
}

func TestFieldSet_ShorterListReplaces(t *testing.T) {
	cfg := Default()
	f, err := lookupField(SectionBrowser, "args")
	require.NoError(t, err)

	require.NoError(t, f.set(cfg, []any{"--only"}))
	assert.Equal(t, []string{"--only"}, cfg.Browser.Args)
}

func TestFieldSet_FailureLeavesValue(t *testing.T) {
	cfg := Default()
	f, err := lookupField(SectionAPI, "timeout")
	require.NoError(t, err)

	require.Error(t, f.set(cfg, "soon"))
	assert.Equal(t, 30, cfg.API.Timeout)
}

func TestFieldSet_FractionalIntRejected(t *testing.T) {
	cfg := Default()
	f, err := lookupField(SectionAPI, "timeout")
	require.NoError(t, err)

	for _, v := range []any{0.5, 10.9, float32(1.25)} {
		err := f.set(cfg, v)
		require.Error(t, err, "%v", v)
		assert.Contains(t, err.Error(), "not a whole number")
	}
	assert.Equal(t, 30, cfg.API.Timeout)

	require.NoError(t, f.set(cfg, 12.0))
	assert.Equal(t, 12, cfg.API.Timeout)
}

func TestLookupField_Unknown(t *testing.T) {
	_, err := lookupField("queue", "size")
	var target *UnknownTargetError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "queue", target.Section)
	assert.Empty(t, target.Key)

	_, err = lookupField(SectionDatabase, "nonexistent_field")
	require.ErrorIs(t, err, ErrUnknownConfigTarget)
	assert.Contains(t, err.Error(), "database.nonexistent_field")
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t, []string{
		"allure_results_dir", "capture_screenshots", "capture_videos", "generate_allure",
		"generate_html", "html_report_path", "screenshot_dir", "video_dir",
	}, FieldNames(SectionReport))
	assert.Empty(t, FieldNames(SectionCustom))
}
