// Package config loads reindent settings.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables prefixed with REINDENT_ (REINDENT_INDENT_SIZE -> indent_size)
//  3. YAML file (--config, or .reindent.yaml in the working directory)
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/r9s-ai/reindent/internal/logging"
	"github.com/r9s-ai/reindent/internal/reindent"
)

const (
	// DefaultFileName is looked up in the working directory when no path is given.
	DefaultFileName = ".reindent.yaml"
	EnvPrefix       = "REINDENT_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Config struct {
	IndentSize int    `koanf:"indent_size"`
	Marker     string `koanf:"marker"`
	Jobs       int    `koanf:"jobs"`
	LogLevel   string `koanf:"log_level"`
	Color      string `koanf:"color"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, then environment overrides. An empty path
// means DefaultFileName, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.IndentSize == 0 {
		cfg.IndentSize = reindent.DefaultIndentSize
	}
	if cfg.Marker == "" {
		cfg.Marker = reindent.DefaultMarker
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logging.DefaultLevel
	}
	if cfg.Color == "" {
		cfg.Color = ColorAuto
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.IndentSize < 1 || c.IndentSize > 16 {
		return fmt.Errorf("indent_size must be between 1 and 16, got %d", c.IndentSize)
	}
	if c.Marker == "" {
		return errors.New("marker must not be empty")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if _, err := logging.LevelFromString(c.LogLevel); err != nil {
		return err
	}
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("color must be one of auto, always, never, got %q", c.Color)
	}
	return nil
}

// ReindentOptions converts the config into reindent options.
func (c *Config) ReindentOptions() reindent.Options {
	return reindent.Options{IndentSize: c.IndentSize, Marker: c.Marker}
}
