package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/trailctl/internal/logging"
	"github.com/danmuck/trailctl/internal/protocol/session"
)

type fileConfig struct {
	LogLevel     string `toml:"log_level"`
	LogTimestamp bool   `toml:"log_timestamp"`
	LogNoColor   bool   `toml:"log_no_color"`
	LogJSON      bool   `toml:"log_json"`
	MaxLineBytes int    `toml:"max_line_bytes"`
	Metrics      bool   `toml:"metrics"`
	MetricsAddr  string `toml:"metrics_addr"`
	SessionID    string `toml:"session_id"`
}

type appConfig struct {
	Session     session.Config
	MetricsAddr string
}

func defaultAppConfig() appConfig {
	return appConfig{Session: session.DefaultConfig()}
}

// loadAppConfig applies only the keys present in the file at path on top
// of the defaults. An empty path yields the defaults.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load trailctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return appConfig{}, fmt.Errorf("load trailctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return appConfig{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.Session.Log.Level = lvl
	}

	if meta.IsDefined("log_timestamp") {
		cfg.Session.Log.Timestamp = raw.LogTimestamp
	}

	if meta.IsDefined("log_no_color") {
		cfg.Session.Log.NoColor = raw.LogNoColor
	}

	if meta.IsDefined("log_json") {
		cfg.Session.Log.JSON = raw.LogJSON
	}

	if meta.IsDefined("max_line_bytes") {
		if raw.MaxLineBytes <= 0 {
			return appConfig{}, fmt.Errorf("parse max_line_bytes: must be positive, got %d", raw.MaxLineBytes)
		}
		cfg.Session.Limits.MaxLineBytes = raw.MaxLineBytes
	}

	if meta.IsDefined("metrics") {
		cfg.Session.Metrics = raw.Metrics
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	if meta.IsDefined("session_id") {
		cfg.Session.SessionID = strings.TrimSpace(raw.SessionID)
	}

	return cfg, nil
}
