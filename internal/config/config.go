// SPDX-License-Identifier: EPL-2.0

// Package config loads mediaprobe settings using Viper. Values come from
// defaults, an optional YAML file and MEDIAKIT_ environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ik5/mediakit/media"
	"github.com/ik5/mediakit/probe"
	"github.com/ik5/mediakit/stream"
)

// Default configuration values.
const (
	defaultBufferLen          = 64 * KiB
	defaultMaxSamples         = media.DefaultMaxSamples
	defaultLimitMetadataBytes = 1 * MiB
	defaultLimitVisualBytes   = 16 * MiB
	defaultMaxProbeDepth      = 1 * MiB
	defaultMaxScoreDepth      = 64 * KiB
	minScoreDepth             = 16
)

// Config holds every setting of the tooling.
type Config struct {
	Stream   StreamConfig   `mapstructure:"stream" yaml:"stream"`
	Format   FormatConfig   `mapstructure:"format" yaml:"format"`
	Decoder  DecoderConfig  `mapstructure:"decoder" yaml:"decoder"`
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Probe    ProbeConfig    `mapstructure:"probe" yaml:"probe"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// StreamConfig configures the media source stream ring buffer.
type StreamConfig struct {
	// BufferLen must be a power of two of at least 32KiB.
	BufferLen ByteSize `mapstructure:"buffer_len" yaml:"buffer_len"`
}

// FormatConfig configures container readers.
type FormatConfig struct {
	PrebuildSeekIndex bool   `mapstructure:"prebuild_seek_index" yaml:"prebuild_seek_index"`
	EnableGapless     bool   `mapstructure:"enable_gapless" yaml:"enable_gapless"`
	MaxSamples        uint64 `mapstructure:"max_samples" yaml:"max_samples"`
}

// DecoderConfig configures decoders.
type DecoderConfig struct {
	Verify bool `mapstructure:"verify" yaml:"verify"`
}

// MetadataConfig bounds collected metadata.
type MetadataConfig struct {
	LimitMetadataBytes ByteSize `mapstructure:"limit_metadata_bytes" yaml:"limit_metadata_bytes"`
	LimitVisualBytes   ByteSize `mapstructure:"limit_visual_bytes" yaml:"limit_visual_bytes"`
}

// ProbeConfig configures format detection.
type ProbeConfig struct {
	MaxProbeDepth ByteSize `mapstructure:"max_probe_depth" yaml:"max_probe_depth"`
	MaxScoreDepth ByteSize `mapstructure:"max_score_depth" yaml:"max_score_depth"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format    string `mapstructure:"format" yaml:"format"` // json, text
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
}

// Load reads configuration from file and environment variables.
// Environment variables are prefixed with MEDIAKIT_ and use underscores for
// nesting, e.g. MEDIAKIT_STREAM_BUFFER_LEN=128KiB.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("mediakit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mediakit")
		v.AddConfigPath("/etc/mediakit")
	}

	v.SetEnvPrefix("MEDIAKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("stream.buffer_len", int64(defaultBufferLen))

	v.SetDefault("format.prebuild_seek_index", true)
	v.SetDefault("format.enable_gapless", false)
	v.SetDefault("format.max_samples", uint64(defaultMaxSamples))

	v.SetDefault("decoder.verify", false)

	v.SetDefault("metadata.limit_metadata_bytes", int64(defaultLimitMetadataBytes))
	v.SetDefault("metadata.limit_visual_bytes", int64(defaultLimitVisualBytes))

	v.SetDefault("probe.max_probe_depth", int64(defaultMaxProbeDepth))
	v.SetDefault("probe.max_score_depth", int64(defaultMaxScoreDepth))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	n := c.Stream.BufferLen
	if n < stream.MinBufferLen || bits.OnesCount64(uint64(n)) != 1 {
		return fmt.Errorf("stream.buffer_len must be a power of two of at least %s", ByteSize(stream.MinBufferLen))
	}

	if c.Format.MaxSamples == 0 {
		return fmt.Errorf("format.max_samples must be at least 1")
	}
	if c.Metadata.LimitMetadataBytes < 0 || c.Metadata.LimitVisualBytes < 0 {
		return fmt.Errorf("metadata limits must not be negative")
	}

	if c.Probe.MaxProbeDepth <= 0 {
		return fmt.Errorf("probe.max_probe_depth must be positive")
	}
	if c.Probe.MaxScoreDepth < minScoreDepth {
		return fmt.Errorf("probe.max_score_depth must be at least %d bytes", minScoreDepth)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

func (c *Config) StreamOptions() stream.MediaSourceStreamOptions {
	return stream.MediaSourceStreamOptions{BufferLen: c.Stream.BufferLen.Int()}
}

func (c *Config) MetadataOptions() media.MetadataOptions {
	return media.MetadataOptions{
		LimitMetadataBytes: c.Metadata.LimitMetadataBytes.Int(),
		LimitVisualBytes:   c.Metadata.LimitVisualBytes.Int(),
	}
}

// FormatOptions leaves the logger unset.
func (c *Config) FormatOptions() media.FormatOptions {
	return media.FormatOptions{
		PrebuildSeekIndex: c.Format.PrebuildSeekIndex,
		EnableGapless:     c.Format.EnableGapless,
		MaxSamples:        c.Format.MaxSamples,
		Metadata:          c.MetadataOptions(),
	}
}

func (c *Config) DecoderOptions() media.DecoderOptions {
	return media.DecoderOptions{Verify: c.Decoder.Verify}
}

func (c *Config) ProbeOptions() probe.Options {
	return probe.Options{
		MaxScoreDepth: c.Probe.MaxScoreDepth.Int(),
		MaxProbeDepth: c.Probe.MaxProbeDepth.Int(),
	}
}
