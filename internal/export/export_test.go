package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cityops/internal/geo"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	if err := Render(dir, "/cityops/", nil); err != nil {
		t.Fatalf("render: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	html := string(b)
	if !strings.Contains(html, `data-base="/cityops"`) {
		t.Fatalf("base path not rendered")
	}
	if !strings.Contains(html, "/cityops/scenarios/energy-grid.json") {
		t.Fatalf("snapshot link missing")
	}
	if strings.Contains(html, "/api/") {
		t.Fatalf("static page references the live API")
	}
	if _, err := os.Stat(filepath.Join(dir, "insights.html")); err != nil {
		t.Fatalf("insights page: %v", err)
	}

	for _, key := range scenario.DefaultRegistry().Keys() {
		b, err := os.ReadFile(filepath.Join(dir, "scenarios", key+".json"))
		if err != nil {
			t.Fatalf("read %s: %v", key, err)
		}
		var snap struct {
			BasePath string `json:"base_path"`
			Scenario struct {
				Key string `json:"key"`
			} `json:"scenario"`
			Viewport geo.Viewport `json:"viewport"`
			Ops      []mapsync.Op `json:"ops"`
		}
		if err := json.Unmarshal(b, &snap); err != nil {
			t.Fatalf("decode %s: %v", key, err)
		}
		if snap.BasePath != "/cityops" || snap.Scenario.Key != key {
			t.Fatalf("unexpected snapshot header %+v", snap)
		}
		if snap.Viewport.Mode != geo.ModeFit {
			t.Fatalf("%s viewport %s", key, snap.Viewport.Mode)
		}
		if len(snap.Ops) == 0 || snap.Ops[0].Op != mapsync.OpAddSource {
			t.Fatalf("%s snapshot should start with a source", key)
		}
	}
}

func TestRenderGrafanaMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := RenderGrafana(t.TempDir(), ""); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderGrafana(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	dir := t.TempDir()
	if err := RenderGrafana(dir, "kiosk_activity"); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "grafana-activity.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "uid1") || !strings.Contains(string(b), "FROM kiosk_activity") {
		t.Fatalf("dashboard not rendered")
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("dashboard is not JSON: %v", err)
	}
}
