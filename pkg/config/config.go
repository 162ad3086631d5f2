// Package config loads tagcache settings from a TOML file.
package config

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/EchoTools/tagcache/pkg/archive"
	"github.com/EchoTools/tagcache/pkg/cache"
	"github.com/EchoTools/tagcache/pkg/resource"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings shared by the tagtool commands.
type Config struct {
	LogLevel string      `toml:"log_level"`
	Target   TargetCfg   `toml:"target"`
	Archive  ArchiveCfg  `toml:"archive"`
	Batch    BatchCfg    `toml:"batch"`
	Index    IndexCfg    `toml:"index"`
	Resource ResourceCfg `toml:"resources"`
	Metrics  MetricsCfg  `toml:"metrics"`
}

// TargetCfg names the default target.
type TargetCfg struct {
	Version  string `toml:"version"`
	Platform string `toml:"platform"`
}

type ArchiveCfg struct {
	CompressionLevel int `toml:"compression_level"`
}

type BatchCfg struct {
	// Workers bounds parallel serialization, zero means one per CPU.
	Workers int `toml:"workers"`
}

type IndexCfg struct {
	Path string `toml:"path"`
}

type ResourceCfg struct {
	Dir              string `toml:"dir"`
	CompressionLevel int    `toml:"compression_level"`
}

type MetricsCfg struct {
	// File receives the metrics in text exposition format after each run.
	File string `toml:"file"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: logrus.InfoLevel.String(),
		Target: TargetCfg{
			Version:  cache.Halo3Retail.String(),
			Platform: cache.PlatformOriginal.String(),
		},
		Archive:  ArchiveCfg{CompressionLevel: archive.DefaultCompressionLevel},
		Index:    IndexCfg{Path: "tags.db"},
		Resource: ResourceCfg{Dir: "resources", CompressionLevel: resource.DefaultCompressionLevel},
	}
}

// Load reads a config file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every named value parses.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level: %v", err)
	}
	if _, err := c.DefaultTarget(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "target: %v", err)
	}
	if c.Batch.Workers < 0 {
		return errors.Wrapf(ErrInvalidConfig, "batch.workers %d", c.Batch.Workers)
	}
	return nil
}

// DefaultTarget parses the configured target names.
func (c *Config) DefaultTarget() (cache.Target, error) {
	return cache.ParseTarget(c.Target.Version, c.Target.Platform)
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Workers returns the batch worker count.
func (c *Config) Workers() int {
	if c.Batch.Workers == 0 {
		return runtime.NumCPU()
	}
	return c.Batch.Workers
}
