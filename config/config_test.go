package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JasonGross/openreview-exploration/observe"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if !strings.HasSuffix(cfg.CacheDir, AppName) {
		t.Errorf("CacheDir = %q, want suffix %q", cfg.CacheDir, AppName)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
year: 2022
output: out.csv
api:
  timeout: 5s
  max_attempts: 2
telemetry:
  logging:
    enabled: true
    level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Year != 2022 {
		t.Errorf("Year = %d, want 2022", cfg.Year)
	}
	if cfg.OutputPath() != "out.csv" {
		t.Errorf("OutputPath() = %q", cfg.OutputPath())
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.API.MaxAttempts != 2 {
		t.Errorf("API.MaxAttempts = %d, want 2", cfg.API.MaxAttempts)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}

	// Keys absent from the file keep their defaults.
	def := Default()
	if cfg.PageSize != def.PageSize {
		t.Errorf("PageSize = %d, want default %d", cfg.PageSize, def.PageSize)
	}
	if cfg.API.BaseURL != def.API.BaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, def.API.BaseURL)
	}
	if cfg.Telemetry.ServiceName != def.Telemetry.ServiceName {
		t.Errorf("ServiceName = %q, want default", cfg.Telemetry.ServiceName)
	}
}

func TestLoadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Year != Default().Year {
		t.Errorf("Year = %d, want default", cfg.Year)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: error = %v, want os.ErrNotExist", err)
	}

	tests := []struct {
		name string
		data string
	}{
		{name: "unknown key", data: "yeer: 2023\n"},
		{name: "bad duration", data: "api:\n  timeout: soon\n"},
		{name: "bad type", data: "year: [1]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("LoadFile() error = nil, want error")
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	cfg := Default()
	cfg.Year = 2021
	if got, want := cfg.OutputPath(), "neurips_2021_papers_openreview.csv"; got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "year too early", mutate: func(c *Config) { c.Year = 1900 }, wantErr: ErrInvalidYear},
		{name: "page size zero", mutate: func(c *Config) { c.PageSize = 0 }, wantErr: ErrInvalidPageSize},
		{name: "page size too large", mutate: func(c *Config) { c.PageSize = 5000 }, wantErr: ErrInvalidPageSize},
		{name: "no cache dir", mutate: func(c *Config) { c.CacheDir = "" }, wantErr: ErrNoCacheDir},
		{name: "no cache dir without cache", mutate: func(c *Config) { c.CacheDir = ""; c.NoCache = true }},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: ErrInvalidAPI},
		{name: "zero timeout", mutate: func(c *Config) { c.API.Timeout = 0 }, wantErr: ErrInvalidAPI},
		{name: "zero attempts", mutate: func(c *Config) { c.API.MaxAttempts = 0 }, wantErr: ErrInvalidAPI},
		{name: "negative http retries", mutate: func(c *Config) { c.API.HTTPRetries = -1 }, wantErr: ErrInvalidAPI},
		{name: "zero rate", mutate: func(c *Config) { c.API.RequestsPerSecond = 0 }, wantErr: ErrInvalidAPI},
		{name: "username only", mutate: func(c *Config) { c.API.Username = "me" }, wantErr: ErrInvalidAPI},
		{name: "credentials", mutate: func(c *Config) { c.API.Username = "me"; c.API.Password = "pw" }},
		{name: "bad log level", mutate: func(c *Config) { c.Telemetry.Logging.Level = "loud" }, wantErr: observe.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Year = 0
	cfg.PageSize = 0
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidYear) || !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("Validate() = %v, want both year and page size errors", err)
	}
}
