package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds configuration for the tool server binary.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
}

// ExecConfig holds defaults for the exec tool. Values are only defaults for
// caller-omitted fields; the tool layer clamps everything to the hard maxima.
type ExecConfig struct {
	Workdir        string `toml:"workdir"`
	TimeoutMs      int    `toml:"timeout_ms"`
	MaxOutputBytes int    `toml:"max_output_bytes"`
}

// FetchConfig holds defaults for the fetch tool.
type FetchConfig struct {
	TimeoutMs    int `toml:"timeout_ms"`
	MaxBytes     int `toml:"max_bytes"`
	MaxRedirects int `toml:"max_redirects"`
}

// Config is the full server configuration: an optional TOML file overlaid by
// TOOLGUARD_* environment variables.
type Config struct {
	Server ServerConfig `toml:"server"`
	Exec   ExecConfig   `toml:"exec"`
	Fetch  FetchConfig  `toml:"fetch"`
}

// Load reads configuration from the TOML file at path (skipped when path is
// empty), applies environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:     ":8787",
			DBPath:   "/state/toolguard.db",
			LogLevel: "info",
		},
		Exec: ExecConfig{
			Workdir: "/workspace",
		},
		Fetch: FetchConfig{
			MaxRedirects: -1, // -1 = unset, tool default applies
		},
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	cfg.Server.Addr = envOrDefault("TOOLGUARD_ADDR", cfg.Server.Addr)
	cfg.Server.DBPath = envOrDefault("TOOLGUARD_DB_PATH", cfg.Server.DBPath)
	cfg.Server.LogLevel = envOrDefault("TOOLGUARD_LOG_LEVEL", cfg.Server.LogLevel)
	cfg.Exec.Workdir = envOrDefault("TOOLGUARD_EXEC_WORKDIR", cfg.Exec.Workdir)
	cfg.Exec.TimeoutMs = envIntOrDefault("TOOLGUARD_EXEC_TIMEOUT_MS", cfg.Exec.TimeoutMs)
	cfg.Exec.MaxOutputBytes = envIntOrDefault("TOOLGUARD_EXEC_MAX_OUTPUT_BYTES", cfg.Exec.MaxOutputBytes)
	cfg.Fetch.TimeoutMs = envIntOrDefault("TOOLGUARD_FETCH_TIMEOUT_MS", cfg.Fetch.TimeoutMs)
	cfg.Fetch.MaxBytes = envIntOrDefault("TOOLGUARD_FETCH_MAX_BYTES", cfg.Fetch.MaxBytes)
	cfg.Fetch.MaxRedirects = envIntOrDefault("TOOLGUARD_FETCH_MAX_REDIRECTS", cfg.Fetch.MaxRedirects)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if !filepath.IsAbs(c.Exec.Workdir) {
		return fmt.Errorf("exec.workdir must be an absolute path: %s", c.Exec.Workdir)
	}
	c.Exec.Workdir = filepath.Clean(c.Exec.Workdir)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
