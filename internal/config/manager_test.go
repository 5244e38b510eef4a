package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_UpdateField(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown key and leaves tree unchanged", func(t *testing.T) {
		m := newTestManager(t.TempDir())
		before := m.Get()

		err := m.UpdateField(ctx, SectionDatabase, "nonexistent_field", 5)
		require.ErrorIs(t, err, ErrUnknownConfigTarget)
		assert.Equal(t, before, m.Get())
	})

	t.Run("rejects unknown section", func(t *testing.T) {
		m := newTestManager(t.TempDir())

		err := m.UpdateField(ctx, "environment", "name", "prod")
		var target *UnknownTargetError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "environment", target.Section)
	})

	t.Run("custom accepts any key", func(t *testing.T) {
		m := newTestManager(t.TempDir())

		require.NoError(t, m.UpdateField(ctx, SectionCustom, "anything", 5))
		require.NoError(t, m.UpdateField(ctx, SectionCustom, "anything", "again"))
		assert.Equal(t, "again", m.Custom("anything", nil))
	})

	t.Run("coerces into field type", func(t *testing.T) {
		m := newTestManager(t.TempDir())

		require.NoError(t, m.UpdateField(ctx, SectionAPI, "timeout", "45"))
		assert.Equal(t, 45, m.API().Timeout)
	})

	t.Run("bad value fails without change", func(t *testing.T) {
		m := newTestManager(t.TempDir())

		err := m.UpdateField(ctx, SectionBrowser, "viewport_width", "wide")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnknownConfigTarget)
		assert.Equal(t, 1920, m.Browser().ViewportWidth)
	})

	t.Run("does not re-validate", func(t *testing.T) {
		m := newTestManager(t.TempDir())

		require.NoError(t, m.UpdateField(ctx, SectionDatabase, "type", "oracle"))
		assert.Equal(t, "oracle", m.Database().Type)
		assert.ErrorIs(t, m.Validate(), ErrValidationFailed)
	})
}

func TestManager_Section(t *testing.T) {
	m := newTestManager(t.TempDir())

	for _, name := range SectionNames() {
		v, err := m.Section(name)
		require.NoError(t, err, name)
		assert.NotNil(t, v, name)
	}

	api, err := m.Section(SectionAPI)
	require.NoError(t, err)
	assert.Equal(t, Default().API, api)

	_, err = m.Section("queue")
	assert.ErrorIs(t, err, ErrUnknownConfigTarget)
}

func TestManager_SectionsAreCopies(t *testing.T) {
	m := newTestManager(t.TempDir())

	api := m.API()
	api.Headers["X-Leak"] = "1"
	api.Timeout = 1

	assert.Empty(t, m.API().Headers)
	assert.Equal(t, 30, m.API().Timeout)
}

func TestManager_Field(t *testing.T) {
	m := newTestManager(t.TempDir())
	require.NoError(t, m.UpdateField(context.Background(), SectionCustom, "team", "qa"))

	v, err := m.Field(SectionBrowser, "browser_type")
	require.NoError(t, err)
	assert.Equal(t, "chromium", v)

	v, err = m.Field(SectionCustom, "team")
	require.NoError(t, err)
	assert.Equal(t, "qa", v)

	_, err = m.Field(SectionCustom, "missing")
	assert.ErrorIs(t, err, ErrUnknownConfigTarget)
}

func TestManager_CustomDefault(t *testing.T) {
	m := newTestManager(t.TempDir())
	assert.Equal(t, "fallback", m.Custom("missing", "fallback"))
}

func TestManager_SaveRoundTrip(t *testing.T) {
	clearConfigEnv(t)
	ctx := context.Background()

	m := newTestManager(t.TempDir())
	_, err := m.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, m.UpdateField(ctx, SectionAPI, "timeout", 45))
	require.NoError(t, m.UpdateField(ctx, SectionAPI, "headers", map[string]string{"Authorization": "Bearer x"}))
	require.NoError(t, m.UpdateField(ctx, SectionBrowser, "args", []string{"--kiosk"}))
	require.NoError(t, m.UpdateField(ctx, SectionDatabase, "password", "s3cret"))
	require.NoError(t, m.UpdateField(ctx, SectionPerformance, "min_success_rate", 99.5))
	require.NoError(t, m.UpdateField(ctx, SectionCustom, "team", "qa"))
	require.NoError(t, m.UpdateField(ctx, SectionCustom, "shards", 4))

	require.NoError(t, m.UpdateField(ctx, SectionCustom, "weights", map[any]any{1: 0.5, "b": []any{2}}))

	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			target := t.TempDir()
			written, err := m.Save(ctx, filepath.Join(target, name))
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(target, name), written)

			raw, err := os.ReadFile(written)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "s3cret")
			assert.NotContains(t, string(raw), "environment")

			reloaded, err := newTestManager(target).Load(ctx)
			require.NoError(t, err)

			want := m.Get()
			want.Database.Password = ""
			assert.Equal(t, want.Document(), reloaded.Document())
			assert.IsType(t, 0, reloaded.Custom["shards"])
		})
	}
}

func TestManager_SaveDefaultPath(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(EnvironmentVar, "prod")
	dir := t.TempDir()

	m := newTestManager(dir)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	written, err := m.Save(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.prod.yaml"), written)
	assert.FileExists(t, written)
}

func TestManager_SaveFallsBackToJSON(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(dir)

	written, err := m.Save(context.Background(), filepath.Join(dir, "nested", "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "config.json"), written)

	raw, err := os.ReadFile(written)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, section := range SectionNames() {
		assert.Contains(t, doc, section)
	}
	assert.Len(t, doc, len(SectionNames()))
}

func TestManager_SaveWithoutYAMLEncoder(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry()
	yamlReadOnly := YAMLFormat()
	yamlReadOnly.Encode = nil
	registry.Register(yamlReadOnly, ".yaml", ".yml")
	registry.Register(JSONFormat(), ".json")

	m := newTestManager(dir, WithRegistry(registry))
	written, err := m.Save(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.test.json"), written)
}

func TestManager_ConcurrentReads(t *testing.T) {
	clearConfigEnv(t)
	m := newTestManager(t.TempDir())
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.API()
				_ = m.Custom("k", nil)
			}
		}()
	}
	wg.Wait()
}

func TestContextWithManager(t *testing.T) {
	m := newTestManager(t.TempDir())
	ctx := ContextWithManager(context.Background(), m)

	assert.Same(t, m, ManagerFromContext(ctx))
	assert.Nil(t, ManagerFromContext(context.Background()))
}
