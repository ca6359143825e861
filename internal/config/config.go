package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config represents the top-level YAML configuration file.
type Config struct {
	Include []string       `mapstructure:"include"  yaml:"include,omitempty"`
	Catalog CatalogConfig  `mapstructure:"catalog"  yaml:"catalog"`
	Archive ArchiveConfig  `mapstructure:"archive"  yaml:"archive"`
	Verify  VerifyConfig   `mapstructure:"verify"   yaml:"verify"`
	Log     LoggingConfig  `mapstructure:"log"      yaml:"log"`
}

// CatalogConfig locates the backup catalog on disk.
type CatalogConfig struct {
	// Path is the catalog root; backups live under <path>/backups.
	Path string `mapstructure:"path" yaml:"path"`
}

// ArchiveConfig locates the WAL archive consumed by the WAL-range validator.
type ArchiveConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// VerifyConfig contains defaults for the validation engine.
type VerifyConfig struct {
	// Workers is the size of the per-backup validation pool.
	Workers int `mapstructure:"workers" yaml:"workers,omitempty"`
	// SizeOnly skips checksum computation and compares sizes only.
	SizeOnly bool `mapstructure:"size_only" yaml:"size_only,omitempty"`
}

// LoggingConfig tunes the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level,omitempty"`
}

const defaultWorkers = 4

// Load reads the configuration from the given YAML file using Viper,
// merges any included files, and unmarshals into the Config struct.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("verify.workers", defaultWorkers)
	v.SetDefault("log.level", "info")

	// Read base configuration
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read base config %s: %v", ErrLoadConfig, path, err)
	}

	// Merge include files (if any)
	for _, inc := range v.GetStringSlice("include") {
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("%w: read include %s: %v", ErrLoadConfig, inc, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: merge include %s: %v", ErrLoadConfig, inc, err)
		}
	}

	// Unmarshal into the Config struct
	if err := v.UnmarshalExact(c); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return c.validate()
}

func (c *Config) validate() error {
	if c.Catalog.Path == "" {
		return fmt.Errorf("%w: catalog.path is required", ErrValidateConfig)
	}
	if c.Verify.Workers < 1 {
		c.Verify.Workers = defaultWorkers
	}
	return nil
}
