package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/zonecalc/internal/model"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("expected missing config to be ignored, got %v", err)
	}
	if cfg.Tracker.Mode != nil || cfg.Extract.BaseURL != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[tracker]
mode = "BLACK"
machine = 2

[extract]
base-url = "http://localhost:8080/v1"
api-key-env = "ZONECALC_KEY"
timeout = "30s"
max-uses = 5
lenient = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Tracker.Mode == nil || *cfg.Tracker.Mode != "BLACK" {
		t.Fatalf("unexpected mode: %v", cfg.Tracker.Mode)
	}
	if cfg.Tracker.Machine == nil || *cfg.Tracker.Machine != 2 {
		t.Fatalf("unexpected machine: %v", cfg.Tracker.Machine)
	}

	defaults := model.ExtractConfig{User: "pachislot-calculator", Timeout: 2 * time.Minute, MaxUses: 3, Window: time.Hour}
	getenv := func(key string) string {
		if key == "ZONECALC_KEY" {
			return " secret "
		}
		return ""
	}
	ext, err := ResolveExtract(cfg.Extract, defaults, getenv)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ext.BaseURL != "http://localhost:8080/v1" || ext.APIKey != "secret" || ext.User != "pachislot-calculator" {
		t.Fatalf("unexpected extract config: %+v", ext)
	}
	if ext.Timeout != 30*time.Second || ext.Window != time.Hour || ext.MaxUses != 5 || !ext.Lenient {
		t.Fatalf("unexpected extract config: %+v", ext)
	}
}

func TestResolveExtractRejectsBadValues(t *testing.T) {
	bad := "soon"
	if _, err := ResolveExtract(ExtractConfig{Window: &bad}, model.ExtractConfig{}, os.Getenv); err == nil {
		t.Fatalf("expected invalid window error")
	}
	zero := 0
	if _, err := ResolveExtract(ExtractConfig{MaxUses: &zero}, model.ExtractConfig{}, os.Getenv); err == nil {
		t.Fatalf("expected invalid max-uses error")
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/cfg", "zonecalc", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/tmp/data", "zonecalc", "zonecalc.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
