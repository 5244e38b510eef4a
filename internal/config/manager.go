package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/wesleyorama2/testbench/internal/logger"
)

// Manager resolves the configuration tree and gives typed access to it.
//
// Reads are safe from many goroutines once Load has returned. UpdateField
// and Save take the manager lock, but callers that mutate and then read
// back must still serialize those sequences themselves.
type Manager struct {
	configDir string
	envFile   string
	registry  *Registry
	log       logger.Logger
	lookupEnv func(string) (string, bool)

	mu      sync.RWMutex
	current *Config
	sources []Source
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfigDir sets the directory searched for config files.
func WithConfigDir(dir string) Option {
	return func(m *Manager) {
		m.configDir = dir
	}
}

// WithEnvFile sets the dotenv file loaded before anything else.
// An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(m *Manager) {
		m.envFile = path
	}
}

// WithLookupEnv replaces the environment variable source used for
// TEST_ENV and the override table. The dotenv file still loads into the
// process environment, so a custom source does not see it.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.lookupEnv = lookup
	}
}

// WithRegistry replaces the capability registry.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithLogger sets the logger used for load, update and save messages.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// NewManager creates a manager holding the built-in defaults. Call Load to
// resolve files and environment variables.
func NewManager(options ...Option) *Manager {
	m := &Manager{
		configDir: "config",
		envFile:   ".env",
		registry:  DefaultRegistry(),
		lookupEnv: os.LookupEnv,
		current:   Default(),
		sources:   []Source{{Layer: LayerDefaults}},
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *Manager) logFor(ctx context.Context) logger.Logger {
	if m.log != nil {
		return m.log
	}
	return logger.FromContext(ctx)
}

// ConfigDir returns the directory searched for config files.
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// Load resolves defaults, the base file, the environment file and
// environment variable overrides, then validates the result. On failure
// the previously loaded tree stays in place and the returned error is a
// ValidationErrors listing every violation.
func (m *Manager) Load(ctx context.Context) (*Config, error) {
	log := m.logFor(ctx)

	cfg, sources, err := m.resolve(log)
	if err != nil {
		log.Error("Configuration rejected", "error", err)
		return nil, err
	}

	m.mu.Lock()
	m.current = cfg
	m.sources = sources
	m.mu.Unlock()

	log.Info("Configuration loaded", "environment", cfg.Environment, "layers", len(sources))
	return cfg.Clone(), nil
}

// Get returns a copy of the current tree.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Environment returns the active environment tag.
func (m *Manager) Environment() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Environment
}

// Sources returns the layers that produced the current tree.
func (m *Manager) Sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Source, len(m.sources))
	copy(out, m.sources)
	return out
}

// Database returns a copy of the database section.
func (m *Manager) Database() DatabaseConfig {
	return m.Get().Database
}

// API returns a copy of the api section.
func (m *Manager) API() APIConfig {
	return m.Get().API
}

// Browser returns a copy of the browser section.
func (m *Manager) Browser() BrowserConfig {
	return m.Get().Browser
}

// Report returns a copy of the report section.
func (m *Manager) Report() ReportConfig {
	return m.Get().Report
}

// Performance returns a copy of the performance section.
func (m *Manager) Performance() PerformanceConfig {
	return m.Get().Performance
}

// Custom returns the custom value stored under key, or def when absent.
func (m *Manager) Custom(key string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.current.Custom[key]; ok {
		return v
	}
	return def
}

// Section returns a copy of the named section.
func (m *Manager) Section(name string) (any, error) {
	cfg := m.Get()
	switch name {
	case SectionDatabase:
		return cfg.Database, nil
	case SectionAPI:
		return cfg.API, nil
	case SectionBrowser:
		return cfg.Browser, nil
	case SectionReport:
		return cfg.Report, nil
	case SectionPerformance:
		return cfg.Performance, nil
	case SectionCustom:
		return cfg.Custom, nil
	default:
		return nil, &UnknownTargetError{Section: name}
	}
}

// Field returns the current value of section.key.
func (m *Manager) Field(section, key string) (any, error) {
	return m.Get().Field(section, key)
}

// UpdateField sets one field in place. Fixed sections accept only their
// known keys and coerce value to the field type; custom accepts any key.
// The tree is not re-validated; call Validate when needed.
func (m *Manager) UpdateField(ctx context.Context, section, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if section == SectionCustom {
		if m.current.Custom == nil {
			m.current.Custom = make(map[string]any)
		}
		m.current.Custom[key] = normalize(value)
	} else {
		f, err := lookupField(section, key)
		if err != nil {
			return err
		}
		if err := f.set(m.current, value); err != nil {
			return fmt.Errorf("update %s.%s: %w", section, key, err)
		}
	}

	shown := value
	if section == SectionDatabase && key == "password" {
		shown = "********"
	}
	m.logFor(ctx).Info("Configuration updated", "field", section+"."+key, "value", shown)
	return nil
}

// Validate checks the current tree against the hard invariants.
func (m *Manager) Validate() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if errs := ValidateConfig(m.current); len(errs) > 0 {
		return errs
	}
	return nil
}

// DefaultSavePath is config.<env>.yaml inside the config directory.
func (m *Manager) DefaultSavePath() string {
	return filepath.Join(m.configDir, fmt.Sprintf("config.%s.yaml", m.Environment()))
}

// Save writes the six sections of the current tree to path, or to
// DefaultSavePath when path is empty. The format follows the extension;
// an extension without a serializer is written as a .json sibling. It
// returns the path actually written.
func (m *Manager) Save(ctx context.Context, path string) (string, error) {
	log := m.logFor(ctx)
	if path == "" {
		path = m.DefaultSavePath()
	}

	m.mu.RLock()
	doc := m.current.Clone().Document()
	m.mu.RUnlock()

	ext := filepath.Ext(path)
	format, err := m.registry.Encoder(ext)
	if err != nil {
		fallback := strings.TrimSuffix(path, ext) + ".json"
		log.Warn("Saving as JSON instead", "requested", path, "path", fallback, "error", err)
		path = fallback
		format = JSONFormat()
	}

	data, err := format.Encode(doc)
	if err != nil {
		return "", fmt.Errorf("encode configuration as %s: %w", format.Name, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write configuration file: %w", err)
	}

	log.Info("Configuration saved", "path", path)
	return path, nil
}
