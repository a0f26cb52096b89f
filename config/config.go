// Package config holds the settings of the neurips-openreview command.
//
// Settings come from Default, optionally overlaid by a YAML file with
// LoadFile, and finally by command-line flags and environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/JasonGross/openreview-exploration/observe"
	"github.com/JasonGross/openreview-exploration/openreview"
)

// AppName names the cache subdirectory and the telemetry service.
const AppName = "openreview-exploration"

// Config is the complete configuration of a run.
type Config struct {
	Year     int    `yaml:"year"`
	Output   string `yaml:"output"`
	CacheDir string `yaml:"cache_dir"`
	NoCache  bool   `yaml:"no_cache"`
	PageSize int    `yaml:"page_size"`

	// ProgressEvery logs progress after this many submissions.
	ProgressEvery int `yaml:"progress_every"`

	API       APIConfig      `yaml:"api"`
	Telemetry observe.Config `yaml:"telemetry"`
}

// APIConfig configures the OpenReview client and its resilience policy.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	// Password may be a secretref, e.g. "secretref:file:/run/secrets/pw".
	Password string `yaml:"password"`

	Timeout     time.Duration `yaml:"timeout"`
	HTTPRetries int           `yaml:"http_retries"`
	MaxAttempts int           `yaml:"max_attempts"`

	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Year:          2023,
		CacheDir:      DefaultCacheDir(),
		PageSize:      1000,
		ProgressEvery: 100,
		API: APIConfig{
			BaseURL:           openreview.DefaultBaseURL,
			Timeout:           30 * time.Second,
			HTTPRetries:       3,
			MaxAttempts:       4,
			RequestsPerSecond: 5,
			Burst:             1,
			BreakerFailures:   5,
			BreakerReset:      30 * time.Second,
		},
		Telemetry: observe.Config{
			ServiceName: "neurips-openreview",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// DefaultCacheDir is $XDG_CACHE_HOME/openreview-exploration.
func DefaultCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// LoadFile reads a YAML file over Default. Keys absent from the file keep
// their default values; unknown keys are an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// OutputPath returns Output, or the default file name for Year.
func (c Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return fmt.Sprintf("neurips_%d_papers_openreview.csv", c.Year)
}

// Validation errors.
var (
	ErrInvalidYear     = errors.New("config: year must be between 1987 and 2100")
	ErrInvalidPageSize = errors.New("config: page_size must be between 1 and 1000")
	ErrNoCacheDir      = errors.New("config: cache_dir is required unless no_cache is set")
	ErrInvalidAPI      = errors.New("config: invalid api settings")
)

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs []error
	if c.Year < 1987 || c.Year > 2100 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidYear, c.Year))
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidPageSize, c.PageSize))
	}
	if !c.NoCache && c.CacheDir == "" {
		errs = append(errs, ErrNoCacheDir)
	}
	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%w: base_url is empty", ErrInvalidAPI))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive", ErrInvalidAPI))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%w: max_attempts must be at least 1", ErrInvalidAPI))
	}
	if c.API.HTTPRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: http_retries must not be negative", ErrInvalidAPI))
	}
	if c.API.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("%w: requests_per_second must be positive", ErrInvalidAPI))
	}
	if (c.API.Username == "") != (c.API.Password == "") {
		errs = append(errs, fmt.Errorf("%w: username and password must be set together", ErrInvalidAPI))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
