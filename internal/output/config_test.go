package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wesleyorama2/testbench/internal/config"
)

func secretConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Password = "s3cret"
	cfg.Custom["team"] = "qa"
	return cfg
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestConfigPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := &ConfigPrinter{Format: FormatText, Scheme: NoColorScheme()}
	require.NoError(t, p.Print(&buf, secretConfig()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "environment: test\n"))
	for _, section := range config.SectionNames() {
		assert.Contains(t, out, "["+section+"]")
	}
	assert.Contains(t, out, "  password: "+Mask+"\n")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, `  args: ["--no-sandbox","--disable-dev-shm-usage","--disable-gpu","--disable-web-security"]`)
	assert.Contains(t, out, "  team: qa\n")
	assert.Contains(t, out, "  min_success_rate: 95\n")
}

func TestConfigPrinter_TextEmptyCustom(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&ConfigPrinter{}).Print(&buf, config.Default()))
	assert.Contains(t, buf.String(), "[custom]\n  (empty)\n")
	assert.Contains(t, buf.String(), "  password: \n")
}

func TestConfigPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	p := &ConfigPrinter{Format: FormatJSON}
	require.NoError(t, p.Print(&buf, secretConfig()))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "test", doc["environment"])
	assert.Equal(t, Mask, doc["database"].(map[string]any)["password"])
	assert.Equal(t, "qa", doc["custom"].(map[string]any)["team"])
	assert.Len(t, doc, 7)
}

func TestConfigPrinter_YAML(t *testing.T) {
	var buf bytes.Buffer
	p := &ConfigPrinter{Format: FormatYAML}
	require.NoError(t, p.Print(&buf, secretConfig()))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 30, doc["api"].(map[string]any)["timeout"])
	assert.NotContains(t, buf.String(), "s3cret")
}

func TestConfigPrinter_PrintSources(t *testing.T) {
	sources := []config.Source{
		{Layer: config.LayerDefaults},
		{Layer: config.LayerBase, Path: "config/config.yaml"},
		{Layer: config.LayerEnvVars, Path: "API_TIMEOUT"},
	}

	var text bytes.Buffer
	require.NoError(t, (&ConfigPrinter{}).PrintSources(&text, sources))
	assert.Contains(t, text.String(), "  2. base         config/config.yaml\n")

	var js bytes.Buffer
	require.NoError(t, (&ConfigPrinter{Format: FormatJSON}).PrintSources(&js, sources))
	assert.Contains(t, js.String(), `"layer": "env"`)
	assert.Contains(t, js.String(), `"path": "API_TIMEOUT"`)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "chromium", FormatValue("chromium"))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "2.5", FormatValue(2.5))
	assert.Equal(t, `{"X-Team":"qa"}`, FormatValue(map[string]string{"X-Team": "qa"}))
	assert.Equal(t, `[1,2]`, FormatValue([]int{1, 2}))
}
