// Package config provides configuration loading and structs for the
// policynav server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Lookup    LookupConfig    `yaml:"lookup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CorpusConfig locates the corpus snapshot (a JSON directory or a SQLite
// .db file) and controls hot reload.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Watch *bool  `yaml:"watch"`
}

// WatchOrDefault returns whether corpus changes trigger a reload; defaults
// to true when unset.
func (c *CorpusConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// EmbeddingConfig holds query embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds clustered search parameters.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// TopClusters is how many partitions stage 1 selects by default.
	TopClusters int `yaml:"top_clusters"`
	// PerCluster is how many candidates each scanned cluster keeps by default.
	PerCluster int `yaml:"per_cluster"`
	// Workers caps concurrent cluster scans; 0 means GOMAXPROCS.
	Workers         int     `yaml:"workers"`
	DefaultMinScore float64 `yaml:"default_min_score"`
}

// LookupConfig holds record name lookup settings.
type LookupConfig struct {
	Enabled *bool `yaml:"enabled"`
	// IndexPath stores the lookup index on disk; empty keeps it in memory.
	IndexPath string `yaml:"index_path"`
	Fuzziness int    `yaml:"fuzziness"`
}

// EnabledOrDefault returns whether the lookup API is on; defaults to true.
func (l *LookupConfig) EnabledOrDefault() bool {
	if l.Enabled != nil {
		return *l.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
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
	cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Lookup.IndexPath != "" {
		cfg.Lookup.IndexPath = expandPath(cfg.Lookup.IndexPath, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
