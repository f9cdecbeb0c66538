package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cityops.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadSampleConfig(t *testing.T) {
	cfg, err := Load("../../config/cityops.yaml", "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Chat.RefineDelay != 2500*time.Millisecond || cfg.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("unexpected durations: %+v %+v", cfg.Chat, cfg.Session)
	}
	if cfg.DefaultScenario != "mobility" {
		t.Errorf("unexpected default scenario %q", cfg.DefaultScenario)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen_addr: "127.0.0.1:9000"
scenarios_file: scenarios.yaml
chat:
  refine_delay: 10ms
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.Chat.RefineDelay != 10*time.Millisecond {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Chat.ResponseDelay != 900*time.Millisecond || cfg.Basemap.TileSize != 256 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if want := filepath.Join(filepath.Dir(path), "scenarios.yaml"); cfg.ScenariosFile != want {
		t.Errorf("scenarios_file=%q want %q", cfg.ScenariosFile, want)
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"tile size":     "basemap:\n  tile_size: 300\n",
		"unknown field": "listen_port: 80\n",
		"bad duration":  "chat:\n  refine_delay: soon\n",
		"log level":     "log_level: verbose\n",
		"focus range":   "map:\n  default_focus: 150\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body), ""); err == nil {
			t.Errorf("%s: expected validation error", name)
		} else if !strings.Contains(err.Error(), "schema validation failed") {
			t.Errorf("%s: expected a schema error, got %v", name, err)
		}
	}
}

func TestValidateTags(t *testing.T) {
	cfg := Default()
	cfg.Basemap.TileURL = "https://example.com/tiles.png"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for tile url without {z}")
	}
	cfg = Default()
	cfg.ListenAddr = "8080"
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected error for listen address without port")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CITYOPS_ADDR", ":9999")
	t.Setenv("GREPTIMEDB_ENDPOINT", "greptime:4001")
	t.Setenv("ACTIVITY_TABLE", "activity_test")
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ListenAddr != ":9999" || cfg.Activity.GreptimeEndpoint != "greptime:4001" || cfg.Activity.Table != "activity_test" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestValidateWithCueMissingFile(t *testing.T) {
	if err := ValidateWithCue(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
