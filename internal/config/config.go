// Package config loads the dashboard configuration from YAML. Files are
// checked against a CUE schema before decoding and the decoded struct is
// validated with struct tags.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Basemap points the map widget at a raster tile endpoint.
type Basemap struct {
	TileURL     string `yaml:"tile_url" validate:"required,contains={z}"`
	Attribution string `yaml:"attribution"`
	TileSize    int    `yaml:"tile_size" validate:"oneof=256 512"`
	MaxZoom     int    `yaml:"max_zoom" validate:"gte=1,lte=24"`
}

// Map controls viewport framing.
type Map struct {
	SinglePointZoom float64 `yaml:"single_point_zoom" validate:"gt=0,lte=22"`
	BoundsEpsilon   float64 `yaml:"bounds_epsilon" validate:"gt=0,lt=1"`
	FitPadding      int     `yaml:"fit_padding" validate:"gte=0,lte=512"`
	DefaultFocus    float64 `yaml:"default_focus" validate:"gte=0,lte=100"`
}

// Chat sets the cosmetic assistant delays.
type Chat struct {
	ResponseDelay time.Duration `yaml:"response_delay" validate:"gte=0"`
	RefineDelay   time.Duration `yaml:"refine_delay" validate:"gt=0"`
}

// Wizard sets the simulated processing time of the VLR wizard.
type Wizard struct {
	ProcessingDelay time.Duration `yaml:"processing_delay" validate:"gt=0"`
}

// Session controls idle session expiry.
type Session struct {
	IdleTimeout  time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ReapInterval time.Duration `yaml:"reap_interval" validate:"gt=0"`
}

// Activity configures where interaction rows go.
type Activity struct {
	LogFile          string        `yaml:"log_file"`
	GreptimeEndpoint string        `yaml:"greptime_endpoint"`
	Database         string        `yaml:"database"`
	Table            string        `yaml:"table"`
	BatchSize        int           `yaml:"batch_size" validate:"gte=1,lte=10000"`
	FlushInterval    time.Duration `yaml:"flush_interval" validate:"gt=0"`
}

// Config is the root dashboard configuration.
type Config struct {
	ListenAddr      string   `yaml:"listen_addr" validate:"required"`
	BasePath        string   `yaml:"base_path" validate:"omitempty,startswith=/"`
	LogLevel        string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	ScenariosFile   string   `yaml:"scenarios_file"`
	DefaultScenario string   `yaml:"default_scenario"`
	Basemap         Basemap  `yaml:"basemap"`
	Map             Map      `yaml:"map"`
	Chat            Chat     `yaml:"chat"`
	Wizard          Wizard   `yaml:"wizard"`
	Session         Session  `yaml:"session"`
	Activity        Activity `yaml:"activity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Basemap: Basemap{
			TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
			TileSize:    256,
			MaxZoom:     19,
		},
		Map: Map{
			SinglePointZoom: 14,
			BoundsEpsilon:   1e-4,
			FitPadding:      48,
			DefaultFocus:    50,
		},
		Chat: Chat{
			ResponseDelay: 900 * time.Millisecond,
			RefineDelay:   2500 * time.Millisecond,
		},
		Wizard:  Wizard{ProcessingDelay: 3 * time.Second},
		Session: Session{IdleTimeout: 30 * time.Minute, ReapInterval: time.Minute},
		Activity: Activity{
			Database:      "public",
			BatchSize:     50,
			FlushInterval: 5 * time.Second,
		},
	}
}

// Load reads configPath over the defaults. The file is validated against
// the CUE schema at schemaPath, or the embedded schema when schemaPath is
// empty. An empty configPath loads only defaults and environment overrides.
func Load(configPath, schemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, schemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if cfg.ScenariosFile != "" && !filepath.IsAbs(cfg.ScenariosFile) {
			cfg.ScenariosFile = filepath.Join(filepath.Dir(configPath), cfg.ScenariosFile)
		}
		if cfg.Activity.LogFile != "" && !filepath.IsAbs(cfg.Activity.LogFile) {
			cfg.Activity.LogFile = filepath.Join(filepath.Dir(configPath), cfg.Activity.LogFile)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment environments override file settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("CITYOPS_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("CITYOPS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Activity.GreptimeEndpoint = v
	}
	if v := os.Getenv("ACTIVITY_TABLE"); v != "" {
		c.Activity.Table = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid config: listen_addr %q: %w", c.ListenAddr, err)
	}
	return nil
}
