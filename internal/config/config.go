// Package config provides configuration loading and structs for the sitewright server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/sitewright/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug        bool                  `yaml:"debug"`
	Server       ServerConfig          `yaml:"server"`
	Storage      StorageConfig         `yaml:"storage"`
	Templates    TemplatesConfig       `yaml:"templates"`
	Generation   GenerationConfig      `yaml:"generation"`
	Placeholders PlaceholderConfig     `yaml:"placeholders"`
	Ranking      ranking.RankingConfig `yaml:"ranking"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the database and keyword index.
// An empty KeywordIndexPath keeps the index in memory.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// TemplatesConfig lists template directories and whether to watch them.
type TemplatesConfig struct {
	Directories []string `yaml:"directories"`
	Watch       bool     `yaml:"watch"`
}

// GenerationConfig holds content pipeline settings.
type GenerationConfig struct {
	TimeoutSeconds      int `yaml:"timeout_seconds"`
	MaxConcurrency      int `yaml:"max_concurrency"`
	CacheSize           int `yaml:"cache_size"`
	DefaultServiceCount int `yaml:"default_service_count"`
	MaxServiceCount     int `yaml:"max_service_count"`
	TopK                int `yaml:"top_k"`
}

// Timeout returns the generation budget as a duration.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// PlaceholderConfig holds placeholder rendering settings.
type PlaceholderConfig struct {
	KeepUnresolved  bool     `yaml:"keep_unresolved"`
	ExtraTextFields []string `yaml:"extra_text_fields"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.KeywordIndexPath != "" {
		cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	}
	for i := range cfg.Templates.Directories {
		cfg.Templates.Directories[i] = expandPath(cfg.Templates.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Environment variables read by ApplyEnv.
const (
	EnvDebug        = "SITEWRIGHT_DEBUG"
	EnvServerHost   = "SITEWRIGHT_SERVER_HOST"
	EnvServerPort   = "SITEWRIGHT_SERVER_PORT"
	EnvDatabasePath = "SITEWRIGHT_DATABASE_PATH"
	EnvTemplateDirs = "SITEWRIGHT_TEMPLATE_DIRS"
)

// ApplyEnv overrides file values with SITEWRIGHT_* environment variables.
// SITEWRIGHT_TEMPLATE_DIRS uses the OS path list separator.
func ApplyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebug, err)
		}
		cfg.Debug = b
	}
	if v := os.Getenv(EnvServerHost); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvServerPort, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv(EnvTemplateDirs); v != "" {
		var dirs []string
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Templates.Directories = dirs
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
