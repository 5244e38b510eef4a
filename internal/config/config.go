package config

import (
	"github.com/mohae/deepcopy"
)

// Section names addressable through Section and UpdateField.
const (
	SectionDatabase    = "database"
	SectionAPI         = "api"
	SectionBrowser     = "browser"
	SectionReport      = "report"
	SectionPerformance = "performance"
	SectionCustom      = "custom"
)

// DefaultEnvironment is used when TEST_ENV is not set.
const DefaultEnvironment = "test"

// Config is the resolved configuration tree.
type Config struct {
	// Environment selects the config.<env>.* overlay. It is never persisted.
	Environment string `json:"environment" yaml:"environment"`

	Database    DatabaseConfig    `json:"database" yaml:"database"`
	API         APIConfig         `json:"api" yaml:"api"`
	Browser     BrowserConfig     `json:"browser" yaml:"browser"`
	Report      ReportConfig      `json:"report" yaml:"report"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`

	// Custom holds extension settings not covered by the fixed sections.
	Custom map[string]any `json:"custom" yaml:"custom"`
}

// DatabaseConfig describes the database used by integration tests.
type DatabaseConfig struct {
	Type     string `json:"type" yaml:"type" validate:"oneof=sqlite mysql postgresql mongodb"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	// Password can be loaded from files and DB_PASSWORD but is never written out.
	Password           string `json:"-" yaml:"-"`
	ConnectionPoolSize int    `json:"connection_pool_size" yaml:"connection_pool_size"`
	// Timeout is in seconds.
	Timeout int `json:"timeout" yaml:"timeout"`
}

// APIConfig configures the HTTP API client.
type APIConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Timeout is in seconds.
	Timeout    int `json:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// RetryDelay is in seconds.
	RetryDelay float64           `json:"retry_delay" yaml:"retry_delay"`
	VerifySSL  bool              `json:"verify_ssl" yaml:"verify_ssl"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
}

// BrowserConfig is handed to external browser drivers.
type BrowserConfig struct {
	Headless bool `json:"headless" yaml:"headless"`
	// Timeout is in milliseconds.
	Timeout        int      `json:"timeout" yaml:"timeout" validate:"gt=0"`
	ViewportWidth  int      `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int      `json:"viewport_height" yaml:"viewport_height"`
	BrowserType    string   `json:"browser_type" yaml:"browser_type" validate:"oneof=chromium firefox webkit"`
	SlowMo         int      `json:"slow_mo" yaml:"slow_mo"`
	Devtools       bool     `json:"devtools" yaml:"devtools"`
	Args           []string `json:"args" yaml:"args"`
}

// ReportConfig controls where run artifacts go and which reports are produced.
type ReportConfig struct {
	AllureResultsDir   string `json:"allure_results_dir" yaml:"allure_results_dir"`
	HTMLReportPath     string `json:"html_report_path" yaml:"html_report_path"`
	ScreenshotDir      string `json:"screenshot_dir" yaml:"screenshot_dir"`
	VideoDir           string `json:"video_dir" yaml:"video_dir"`
	GenerateAllure     bool   `json:"generate_allure" yaml:"generate_allure"`
	GenerateHTML       bool   `json:"generate_html" yaml:"generate_html"`
	CaptureScreenshots bool   `json:"capture_screenshots" yaml:"capture_screenshots"`
	CaptureVideos      bool   `json:"capture_videos" yaml:"capture_videos"`
}

// PerformanceConfig holds load test defaults and pass thresholds.
type PerformanceConfig struct {
	DefaultConcurrentUsers int     `json:"default_concurrent_users" yaml:"default_concurrent_users" validate:"gt=0"`
	DefaultRequestsPerUser int     `json:"default_requests_per_user" yaml:"default_requests_per_user"`
	MaxResponseTimeMs      float64 `json:"max_response_time_ms" yaml:"max_response_time_ms"`
	MinSuccessRate         float64 `json:"min_success_rate" yaml:"min_success_rate" validate:"gte=0,lte=100"`
	// RampUpTime is in seconds.
	RampUpTime int    `json:"ramp_up_time" yaml:"ramp_up_time"`
	ResultsDir string `json:"results_dir" yaml:"results_dir"`
}

// Default returns a fully populated tree of built-in defaults.
func Default() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Database: DatabaseConfig{
			Type:               "sqlite",
			Host:               "localhost",
			Port:               5432,
			Database:           "test_db",
			ConnectionPoolSize: 10,
			Timeout:            30,
		},
		API: APIConfig{
			BaseURL:    "https://httpbin.org",
			Timeout:    30,
			MaxRetries: 3,
			RetryDelay: 1.0,
			VerifySSL:  true,
			Headers:    map[string]string{},
		},
		Browser: BrowserConfig{
			Headless:       true,
			Timeout:        30000,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			BrowserType:    "chromium",
			Args: []string{
				"--no-sandbox",
				"--disable-dev-shm-usage",
				"--disable-gpu",
				"--disable-web-security",
			},
		},
		Report: ReportConfig{
			AllureResultsDir:   "results/allure-results",
			HTMLReportPath:     "results/report.html",
			ScreenshotDir:      "screenshots",
			VideoDir:           "videos",
			GenerateAllure:     true,
			GenerateHTML:       true,
			CaptureScreenshots: true,
		},
		Performance: PerformanceConfig{
			DefaultConcurrentUsers: 10,
			DefaultRequestsPerUser: 10,
			MaxResponseTimeMs:      5000.0,
			MinSuccessRate:         95.0,
			ResultsDir:             "performance_results",
		},
		Custom: map[string]any{},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	return deepcopy.Copy(c).(*Config)
}

// Document is the persisted shape of a Config: the six sections without
// the environment tag.
type Document struct {
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	API         APIConfig         `json:"api" yaml:"api"`
	Browser     BrowserConfig     `json:"browser" yaml:"browser"`
	Report      ReportConfig      `json:"report" yaml:"report"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Custom      map[string]any    `json:"custom" yaml:"custom"`
}

// Document returns the serializable view of c.
func (c *Config) Document() Document {
	custom := c.Custom
	if custom == nil {
		custom = map[string]any{}
	}
	return Document{
		Database:    c.Database,
		API:         c.API,
		Browser:     c.Browser,
		Report:      c.Report,
		Performance: c.Performance,
		Custom:      custom,
	}
}
