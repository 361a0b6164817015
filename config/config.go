// Package config loads vmc settings from ~/.vmc/config.yaml and VMC_*
// environment variables, and persists auth tokens per target.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
	"github.com/jongio/vmc/fileutil"
	"github.com/jongio/vmc/security"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultTarget             = "api.vcap.me"
	DefaultLocalTarget        = "api.vcap.me"
	DefaultTimeout            = 30 * time.Second
	DefaultRetry              = 2
	DefaultResourceCheckLimit = 64 * 1024
	DefaultOutput             = "default"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VMC_"

	configDirName  = ".vmc"
	configFileName = "config.yaml"
	tokenFileName  = ".vmc_token"
	cacheDirName   = "cache"
)

// Config holds user settings.
//
// RateLimit caps requests per second to the target and CircuitBreakerFailures
// opens the per-host breaker after that many mostly failing requests; zero
// disables either. ResourceCheckLimit is the bundle size above which the
// server is asked which files it already has before uploading. CacheDir holds
// file digests reused between uploads; empty disables the cache. When
// MetricsFile is set, request metrics are written there as each command exits.
type Config struct {
	Target                 string        `yaml:"target,omitempty" env:"TARGET"`
	TokenFile              string        `yaml:"token_file,omitempty" env:"TOKEN_FILE"`
	CacheDir               string        `yaml:"cache_dir,omitempty" env:"CACHE_DIR"`
	Timeout                time.Duration `yaml:"timeout,omitempty" env:"TIMEOUT"`
	Retry                  int           `yaml:"retry,omitempty" env:"RETRY"`
	RateLimit              int           `yaml:"rate_limit,omitempty" env:"RATE_LIMIT"`
	CircuitBreakerFailures int           `yaml:"circuit_breaker_failures,omitempty" env:"CIRCUIT_BREAKER_FAILURES"`
	ResourceCheckLimit     int64         `yaml:"resource_check_limit,omitempty" env:"RESOURCE_CHECK_LIMIT"`
	Output                 string        `yaml:"output,omitempty" env:"OUTPUT"`
	Debug                  bool          `yaml:"debug,omitempty" env:"DEBUG"`
	ProxyUser              string        `yaml:"proxy_user,omitempty" env:"PROXY_USER"`
	MetricsFile            string        `yaml:"metrics_file,omitempty" env:"METRICS_FILE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Target:             DefaultTarget,
		TokenFile:          filepath.Join(homeDir(), tokenFileName),
		CacheDir:           filepath.Join(homeDir(), configDirName, cacheDirName),
		Timeout:            DefaultTimeout,
		Retry:              DefaultRetry,
		ResourceCheckLimit: DefaultResourceCheckLimit,
		Output:             DefaultOutput,
	}
}

// DefaultPath returns ~/.vmc/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), configDirName, configFileName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Load reads the file at path (a missing file is not an error) and applies
// VMC_* environment overrides on top.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// load uses environ instead of the process environment when non-nil.
func load(path string, environ map[string]string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	opts := cenv.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := cenv.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.TokenFile = expandHome(cfg.TokenFile)
	cfg.CacheDir = expandHome(cfg.CacheDir)
	cfg.MetricsFile = expandHome(cfg.MetricsFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile returns the defaults overlaid with the file at path, without
// environment overrides.
func readFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := security.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// SaveTarget records target in the file at path, leaving every other
// setting in the file as it was.
func SaveTarget(path, target string) error {
	cfg, err := readFile(path)
	if err != nil {
		return err
	}
	cfg.Target = target
	return cfg.Save(path)
}

// Validate checks the settings for values no command can work with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return errors.New("target must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Retry < 0 {
		return fmt.Errorf("retry must not be negative, got %d", c.Retry)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit)
	}
	switch c.Output {
	case "", "default", "json":
	default:
		return fmt.Errorf("invalid output format: %s (valid options: default, json)", c.Output)
	}
	return nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := security.ValidatePath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return fileutil.AtomicWriteFile(path, data, fileutil.FilePermission)
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}
