// Package export writes a static build of the dashboard: the landing and
// insights pages plus one JSON snapshot per scenario that a mapping widget
// can load without the live API.
package export

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"cityops/internal/activity"
	"cityops/internal/geo"
	"cityops/internal/mapsync"
	"cityops/internal/scenario"
	"cityops/internal/server"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFiles = []string{
	"grafana-activity.json.tmpl",
}

var pages = map[string]string{
	server.PageLanding:  "index.html",
	server.PageInsights: "insights.html",
}

// Snapshot is the static form of one scenario.
type Snapshot struct {
	BasePath string               `json:"base_path"`
	Scenario *scenario.Definition `json:"scenario"`
	Bounds   *geo.Bounds          `json:"bounds"`
	Viewport geo.Viewport         `json:"viewport"`
	Ops      []mapsync.Op         `json:"ops"`
}

// Render writes the static pages and scenario snapshots to outDir. Links in
// the pages are prefixed with basePath.
func Render(outDir, basePath string, reg *scenario.Registry) error {
	if reg == nil {
		reg = scenario.DefaultRegistry()
	}
	basePath = strings.TrimRight(basePath, "/")
	if err := os.MkdirAll(filepath.Join(outDir, "scenarios"), 0o755); err != nil {
		return err
	}

	srv := server.New(server.Options{BasePath: basePath, Registry: reg})
	for page, name := range pages {
		if err := writeFile(filepath.Join(outDir, name), func(f *os.File) error {
			return srv.RenderPage(f, page, true)
		}); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
	}

	for _, def := range reg.All() {
		snap, err := snapshot(def, basePath)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", def.Key, err)
		}
		path := filepath.Join(outDir, "scenarios", def.Key+".json")
		if err := writeFile(path, func(f *os.File) error {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}); err != nil {
			return err
		}
	}
	return nil
}

// snapshot syncs def onto an empty recorder at the default focus and keeps
// the resulting rebuild log.
func snapshot(def *scenario.Definition, basePath string) (Snapshot, error) {
	rec := mapsync.NewRecorder()
	syncer := mapsync.New(rec, mapsync.Options{Focus: mapsync.DefaultFocus})
	if err := syncer.Sync(def); err != nil {
		return Snapshot{}, err
	}
	v, err := syncer.Frame(def)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		BasePath: basePath,
		Scenario: def,
		Bounds:   geo.FeatureCollectionBounds(def.Collections()...),
		Viewport: v,
		Ops:      rec.Snapshot(),
	}, nil
}

// RenderGrafana writes Grafana dashboards for the activity table. The
// datasource uid comes from GREPTIMEDB_DATASOURCE_UID.
func RenderGrafana(outDir, table string) error {
	if table == "" {
		table = activity.DefaultTable
	}
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, name := range templateFiles {
		t, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		if err := writeFile(outPath, func(f *os.File) error {
			return t.Execute(f, map[string]string{"Table": table})
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
