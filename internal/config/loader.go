package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wesleyorama2/testbench/internal/logger"
)

// Layer identifies where a part of the tree came from.
type Layer string

const (
	LayerDefaults    Layer = "defaults"
	LayerDotenv      Layer = "dotenv"
	LayerBase        Layer = "base"
	LayerEnvironment Layer = "environment"
	LayerEnvVars     Layer = "env"
)

// Source records one layer that contributed to the last successful load.
type Source struct {
	Layer Layer `json:"layer" yaml:"layer"`
	// Path is the file that was read, or the variable name for LayerEnvVars.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// candidateExts is the probing order for configuration files.
var candidateExts = []string{".yaml", ".yml", ".json"}

// BaseCandidates returns the base file names probed in dir, in order.
func BaseCandidates(dir string) []string {
	return candidates(dir, "config")
}

// EnvironmentCandidates returns the overlay file names probed for env.
func EnvironmentCandidates(dir, env string) []string {
	return candidates(dir, "config."+env)
}

func candidates(dir, stem string) []string {
	out := make([]string, 0, len(candidateExts))
	for _, ext := range candidateExts {
		out = append(out, filepath.Join(dir, stem+ext))
	}
	return out
}

// resolve builds a fresh tree from every layer. It never touches the
// manager state, so repeated calls with the same inputs give equal trees.
func (m *Manager) resolve(log logger.Logger) (*Config, []Source, error) {
	var sources []Source

	if m.loadDotenv(log) {
		sources = append(sources, Source{Layer: LayerDotenv, Path: m.envFile})
	}

	cfg := Default()
	sources = append(sources, Source{Layer: LayerDefaults})

	env, ok := m.lookupEnv(EnvironmentVar)
	if !ok || env == "" {
		env = DefaultEnvironment
	}
	cfg.Environment = env

	if path, ok := m.mergeFirst(cfg, BaseCandidates(m.configDir), log); ok {
		log.Info("Loaded base configuration", "path", path)
		sources = append(sources, Source{Layer: LayerBase, Path: path})
	}
	if path, ok := m.mergeFirst(cfg, EnvironmentCandidates(m.configDir, env), log); ok {
		log.Info("Loaded environment configuration", "path", path, "environment", env)
		sources = append(sources, Source{Layer: LayerEnvironment, Path: path})
	}

	applied, coerceErrs := applyEnvOverrides(cfg, m.lookupEnv)
	for _, name := range applied {
		sources = append(sources, Source{Layer: LayerEnvVars, Path: name})
	}

	errs := append(coerceErrs, ValidateConfig(cfg)...)
	if len(errs) > 0 {
		return nil, nil, errs
	}
	return cfg, sources, nil
}

// loadDotenv loads the env file when present. Problems are warnings.
func (m *Manager) loadDotenv(log logger.Logger) bool {
	if m.envFile == "" {
		return false
	}
	if _, err := os.Stat(m.envFile); err != nil {
		return false
	}
	load, err := m.registry.EnvLoader()
	if err != nil {
		log.Warn("Environment file present but cannot be loaded", "path", m.envFile, "error", err)
		return false
	}
	if err := load(m.envFile); err != nil {
		log.Warn("Failed to load environment file", "path", m.envFile, "error", err)
		return false
	}
	log.Info("Loaded environment file", "path", m.envFile)
	return true
}

// mergeFirst merges the first candidate that exists and parses.
func (m *Manager) mergeFirst(cfg *Config, paths []string, log logger.Logger) (string, bool) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		data, err := m.readFile(path)
		if err != nil {
			log.Warn("Skipping configuration file", "path", path, "error", err)
			continue
		}
		m.merge(cfg, data, path, log)
		return path, true
	}
	return "", false
}

// readFile reads and decodes one candidate file.
func (m *Manager) readFile(path string) (map[string]any, error) {
	format, err := m.registry.Format(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	data, err := format.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	return data, nil
}

// merge applies a decoded document onto cfg. Unknown sections and keys are
// ignored; custom is merged as a key union.
func (m *Manager) merge(cfg *Config, data map[string]any, path string, log logger.Logger) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, section := range keys {
		value := data[section]
		if value == nil {
			continue
		}

		if section == SectionCustom {
			custom, ok := value.(map[string]any)
			if !ok {
				log.Warn("Ignoring non-mapping section", "path", path, "section", section)
				continue
			}
			if cfg.Custom == nil {
				cfg.Custom = make(map[string]any, len(custom))
			}
			for k, v := range custom {
				cfg.Custom[k] = v
			}
			continue
		}

		if _, known := sectionFields[section]; !known {
			log.Debug("Ignoring unknown section", "path", path, "section", section)
			continue
		}
		raw, ok := value.(map[string]any)
		if !ok {
			log.Warn("Ignoring non-mapping section", "path", path, "section", section)
			continue
		}
		ignored, errs := mergeSection(cfg, section, raw)
		for _, key := range ignored {
			log.Debug("Ignoring unknown key", "path", path, "section", section, "key", key)
		}
		for _, err := range errs {
			log.Warn("Ignoring invalid value", "path", path, "error", err)
		}
	}
}
