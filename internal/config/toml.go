// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/zonecalc/internal/model"
)

// DefaultAPIKeyEnv names the environment variable holding the extraction key.
const DefaultAPIKeyEnv = "DIFY_API_KEY"

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Tracker TrackerConfig `toml:"tracker"`
	Extract ExtractConfig `toml:"extract"`
}

// TrackerConfig maps tracker defaults.
type TrackerConfig struct {
	Mode    *string `toml:"mode"`
	Machine *int    `toml:"machine"`
}

// ExtractConfig maps image extraction settings.
type ExtractConfig struct {
	BaseURL   *string `toml:"base-url"`
	APIKeyEnv *string `toml:"api-key-env"`
	User      *string `toml:"user"`
	Timeout   *string `toml:"timeout"`
	MaxUses   *int    `toml:"max-uses"`
	Window    *string `toml:"window"`
	Lenient   *bool   `toml:"lenient"`
	LogLevel  *string `toml:"log-level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ResolveExtract fills unset extraction settings with defaults and reads the
// API key from the configured environment variable through getenv.
func ResolveExtract(cfg ExtractConfig, defaults model.ExtractConfig, getenv func(string) string) (model.ExtractConfig, error) {
	out := defaults
	if cfg.BaseURL != nil {
		out.BaseURL = strings.TrimSpace(*cfg.BaseURL)
	}
	if cfg.User != nil {
		out.User = strings.TrimSpace(*cfg.User)
	}
	if cfg.MaxUses != nil {
		if *cfg.MaxUses <= 0 {
			return model.ExtractConfig{}, fmt.Errorf("extract.max-uses must be > 0")
		}
		out.MaxUses = *cfg.MaxUses
	}
	if cfg.Lenient != nil {
		out.Lenient = *cfg.Lenient
	}
	if cfg.LogLevel != nil {
		out.LogLevel = *cfg.LogLevel
	}
	var err error
	if out.Timeout, err = parseDuration("extract.timeout", cfg.Timeout, out.Timeout); err != nil {
		return model.ExtractConfig{}, err
	}
	if out.Window, err = parseDuration("extract.window", cfg.Window, out.Window); err != nil {
		return model.ExtractConfig{}, err
	}

	env := DefaultAPIKeyEnv
	if cfg.APIKeyEnv != nil && strings.TrimSpace(*cfg.APIKeyEnv) != "" {
		env = strings.TrimSpace(*cfg.APIKeyEnv)
	}
	out.APIKey = strings.TrimSpace(getenv(env))
	return out, nil
}

func parseDuration(name string, value *string, fallback time.Duration) (time.Duration, error) {
	if value == nil {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return d, nil
}
