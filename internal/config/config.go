// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckey.
//
// go-seckey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads seckey settings from a YAML file, SECKEY_ prefixed
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-seckey/pkg/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// SECKEY_STORAGE_PATH for storage.path.
const EnvPrefix = "SECKEY"

// Storage backends
const (
	StorageFile   = "file"
	StorageMemory = "memory"
)

const (
	DefaultConfigName   = ".seckey"
	DefaultDevice       = "/dev/tpmrm0"
	DefaultSRKHandle    = 0x81000001
	DefaultAuthTimeout  = 30 * time.Second
	DefaultAuthAttempts = 5
)

// ErrInvalidConfig is returned by Validate and Load for unusable settings.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete seckey configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage" json:"storage"`
	Hardware HardwareConfig `mapstructure:"hardware" yaml:"hardware" json:"hardware"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth" json:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics" json:"metrics"`

	// DeviceID binds this-device-only keys. Empty uses the hostname.
	DeviceID string `mapstructure:"device_id" yaml:"device_id" json:"device_id"`
}

// StorageConfig selects where key records live.
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" json:"backend"` // file, memory
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// HardwareConfig controls the TPM 2.0 backend.
type HardwareConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device    string `mapstructure:"device" yaml:"device" json:"device"`
	Simulator bool   `mapstructure:"simulator" yaml:"simulator" json:"simulator"`
	SRKHandle uint32 `mapstructure:"srk_handle" yaml:"srk_handle" json:"srk_handle"`
}

// AuthConfig controls user authentication challenges.
type AuthConfig struct {
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	AttemptsPerMinute int           `mapstructure:"attempts_per_minute" yaml:"attempts_per_minute" json:"attempts_per_minute"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// Options converts the settings for logging.New.
func (c LoggingConfig) Options() logging.Options {
	return logging.Options{Level: c.Level, Format: c.Format}
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: StorageFile,
			Path:    DefaultStoragePath(),
		},
		Hardware: HardwareConfig{
			Device:    DefaultDevice,
			SRKHandle: DefaultSRKHandle,
		},
		Auth: AuthConfig{
			Timeout:           DefaultAuthTimeout,
			AttemptsPerMinute: DefaultAuthAttempts,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// DefaultStoragePath returns ~/.seckey, or .seckey in the working
// directory when the home directory is unknown.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigName
	}
	return filepath.Join(home, DefaultConfigName)
}

// DefaultConfigFile returns ~/.seckey.yaml.
func DefaultConfigFile() string {
	return DefaultStoragePath() + ".yaml"
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("hardware.enabled", d.Hardware.Enabled)
	v.SetDefault("hardware.device", d.Hardware.Device)
	v.SetDefault("hardware.simulator", d.Hardware.Simulator)
	v.SetDefault("hardware.srk_handle", d.Hardware.SRKHandle)
	v.SetDefault("auth.timeout", d.Auth.Timeout)
	v.SetDefault("auth.attempts_per_minute", d.Auth.AttemptsPerMinute)
	v.SetDefault("device_id", d.DeviceID)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// Load reads the configuration. An explicit path must exist; with an
// empty path ~/.seckey.yaml is read when present. Environment variables
// override both, then the result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage path is required for the file backend", ErrInvalidConfig)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q (must be file or memory)", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Hardware.Enabled && !c.Hardware.Simulator && c.Hardware.Device == "" {
		return fmt.Errorf("%w: hardware device is required when hardware is enabled", ErrInvalidConfig)
	}
	if c.Hardware.Enabled && c.Hardware.SRKHandle>>24 != 0x81 {
		return fmt.Errorf("%w: SRK handle 0x%08x is not a persistent handle", ErrInvalidConfig, c.Hardware.SRKHandle)
	}

	if c.Auth.Timeout <= 0 {
		return fmt.Errorf("%w: auth timeout must be positive", ErrInvalidConfig)
	}
	if c.Auth.AttemptsPerMinute < 0 {
		return fmt.Errorf("%w: auth attempts per minute cannot be negative", ErrInvalidConfig)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: invalid log format: %s (must be text or json)", ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// #nosec G306 - config may hold a device ID, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
