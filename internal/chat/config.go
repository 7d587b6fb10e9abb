package chat

import (
	"fmt"
	"log/slog"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config holds the server's runtime settings. Zero values fall back to
// the defaults below.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	OpsAddr       string `yaml:"ops_addr"`
	WebSocketAddr string `yaml:"websocket_addr"` // empty disables the WebSocket listener
	EventBuffer   int    `yaml:"event_buffer"`
	OutBuffer     int    `yaml:"out_buffer"`
	LogLevel      string `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":8083",
		OpsAddr:     ":9090",
		EventBuffer: 128,
		OutBuffer:   32,
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg.sanitized(), nil
}

func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.OutBuffer <= 0 {
		c.OutBuffer = def.OutBuffer
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c
}

// SlogLevel maps the config's log level string onto slog's levels.
// Unrecognized values mean info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
