// config/config.go

// Package config loads the optional policymig settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rahulwagh/policymig/cache"
	"github.com/rahulwagh/policymig/terraform"
)

// Config drives discovery storage, generation and terraform execution.
type Config struct {
	// OutputDir is the root of the generated provider directories.
	OutputDir string          `yaml:"outputDir"`
	Store     StoreConfig     `yaml:"store"`
	Terraform TerraformConfig `yaml:"terraform"`
	Providers ProvidersConfig `yaml:"providers"`
	// Naming is random or deterministic.
	Naming   string       `yaml:"naming"`
	LogLevel string       `yaml:"logLevel"`
	Server   ServerConfig `yaml:"server"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type TerraformConfig struct {
	// Path to the terraform binary; empty means look it up on PATH.
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
}

type ProviderConfig struct {
	Version string `yaml:"version"`
}

type ProvidersConfig struct {
	AWS ProviderConfig `yaml:"aws"`
	GCP ProviderConfig `yaml:"gcp"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Versions converts the provider settings for the generator.
func (p ProvidersConfig) Versions() terraform.Versions {
	return terraform.Versions{AWS: p.AWS.Version, GCP: p.GCP.Version}
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		OutputDir: terraform.DefaultOutputDir,
		Store: StoreConfig{
			Driver: cache.DriverSQLite,
			Path:   filepath.Join(homeDir(), "inventory.db"),
		},
		Terraform: TerraformConfig{Timeout: terraform.DefaultTimeout},
		Providers: ProvidersConfig{
			AWS: ProviderConfig{Version: terraform.DefaultVersions.AWS},
			GCP: ProviderConfig{Version: terraform.DefaultVersions.GCP},
		},
		Naming:   terraform.NamingRandom,
		LogLevel: "info",
		Server:   ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// DefaultPath is ~/.policymig/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), "config.yaml")
}

func homeDir() string {
	dir, err := cache.DefaultDir()
	if err != nil {
		return ".policymig"
	}
	return dir
}

var logLevels = []string{"panic", "fatal", "error", "warn", "warning", "info", "debug", "trace"}

// Validate ensures the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir required")
	}
	if c.Store.Driver != cache.DriverSQLite && c.Store.Driver != cache.DriverJSON {
		return fmt.Errorf("store.driver must be %s or %s, got %q", cache.DriverSQLite, cache.DriverJSON, c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path required")
	}
	if c.Terraform.Timeout <= 0 {
		return fmt.Errorf("terraform.timeout must be > 0")
	}
	if c.Providers.AWS.Version == "" || c.Providers.GCP.Version == "" {
		return fmt.Errorf("provider versions required")
	}
	if c.Naming != terraform.NamingRandom && c.Naming != terraform.NamingDeterministic {
		return fmt.Errorf("naming must be %s or %s, got %q", terraform.NamingRandom, terraform.NamingDeterministic, c.Naming)
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("unknown logLevel %q", c.LogLevel)
	}
	return nil
}

// Load overlays the YAML file at path on Defaults. A missing file leaves
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("No config file at %s, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}
