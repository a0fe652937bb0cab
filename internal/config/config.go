package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Probe holds per-invocation ping parameters.
type Probe struct {
	// Count is how many echo packets each probe sends.
	Count int `yaml:"count"`
	// TimeoutSeconds bounds one probe invocation end to end.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// ConnectTimeoutSeconds bounds session establishment per vantage point.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

// Config represents configuration data for a collection run.
type Config struct {
	CatalogFile   string                `yaml:"catalog_file"`
	HistoryFile   string                `yaml:"history_file"`
	ResultsFile   string                `yaml:"results_file"`
	ExportFile    string                `yaml:"export_file"`
	ExportWindow  int                   `yaml:"export_window"`
	RunLogFile    string                `yaml:"run_log_file"`
	SkipSites     []string              `yaml:"skip_sites"`
	Probe         Probe                 `yaml:"probe"`
	VantagePoints []models.VantagePoint `yaml:"vantage_points"`
}

// DefaultConfig returns sensible defaults in case no configuration file is provided.
func DefaultConfig() Config {
	return Config{
		CatalogFile:  "sites.csv",
		HistoryFile:  "alldata.csv",
		ResultsFile:  "results.csv",
		ExportFile:   "csvdata.js",
		ExportWindow: 35,
		Probe: Probe{
			Count:                 2,
			TimeoutSeconds:        10,
			ConnectTimeoutSeconds: 15,
		},
		VantagePoints: []models.VantagePoint{
			{ID: "SITE_A", Kind: "ssh", Host: "192.168.1.1", Source: "192.168.1.1"},
			{ID: "SITE_B", Kind: "ssh", Host: "192.168.2.1", Source: "192.168.2.1"},
		},
	}
}

// Load reads configuration from yaml file. Missing files fall back to defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.VantagePoints = nil
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.VantagePoints) == 0 {
		cfg.VantagePoints = DefaultConfig().VantagePoints
	}
	if cfg.CatalogFile == "" {
		cfg.CatalogFile = DefaultConfig().CatalogFile
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultConfig().HistoryFile
	}
	if cfg.ResultsFile == "" {
		cfg.ResultsFile = DefaultConfig().ResultsFile
	}
	if cfg.ExportFile == "" {
		cfg.ExportFile = DefaultConfig().ExportFile
	}
	if cfg.ExportWindow <= 0 {
		cfg.ExportWindow = DefaultConfig().ExportWindow
	}
	if cfg.Probe.Count <= 0 {
		cfg.Probe.Count = DefaultConfig().Probe.Count
	}
	if cfg.Probe.TimeoutSeconds <= 0 {
		cfg.Probe.TimeoutSeconds = DefaultConfig().Probe.TimeoutSeconds
	}
	if cfg.Probe.ConnectTimeoutSeconds <= 0 {
		cfg.Probe.ConnectTimeoutSeconds = DefaultConfig().Probe.ConnectTimeoutSeconds
	}
	seen := make(map[string]struct{}, len(cfg.VantagePoints))
	for i := range cfg.VantagePoints {
		vp := &cfg.VantagePoints[i]
		if vp.ID == "" {
			return Config{}, fmt.Errorf("vantage point %d is missing id", i)
		}
		if _, dup := seen[vp.ID]; dup {
			return Config{}, fmt.Errorf("vantage point %s is defined twice", vp.ID)
		}
		seen[vp.ID] = struct{}{}
		if vp.Kind == "" {
			vp.Kind = "ssh"
		}
		switch vp.Kind {
		case "ssh":
			if vp.Host == "" {
				return Config{}, fmt.Errorf("vantage point %s requires a host", vp.ID)
			}
			if vp.Port <= 0 {
				vp.Port = 22
			}
		case "local":
			// pings straight from the collector host, nothing to dial
		default:
			return Config{}, fmt.Errorf("vantage point %s has unknown kind %q", vp.ID, vp.Kind)
		}
	}
	return cfg, nil
}
