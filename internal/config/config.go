// Package config provides configuration loading and structs for the contraudit server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Matching  MatchingConfig  `yaml:"matching"`
	Policy    PolicyConfig    `yaml:"policy"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, vector indices, and parse cache.
type StorageConfig struct {
	DatabasePath      string `yaml:"database_path"`
	VectorIndexPath   string `yaml:"vector_index_path"`
	ArtifactCachePath string `yaml:"artifact_cache_path"`
}

// EmbeddingConfig holds settings for the remote embedding model.
type EmbeddingConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	BatchSize  int           `yaml:"batch_size"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	CacheSize  int           `yaml:"cache_size"`
}

// ChunkingConfig holds adaptive chunking settings (sizes in approximate tokens).
type ChunkingConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// MatchingConfig holds similarity matching and decision settings.
// DocWeight and ChunkWeight must sum to 1; TitleWeight blends the title
// similarity into the document-level score when a title is present.
type MatchingConfig struct {
	Threshold   float64 `yaml:"threshold"`
	DocWeight   float64 `yaml:"doc_weight"`
	ChunkWeight float64 `yaml:"chunk_weight"`
	TitleWeight float64 `yaml:"title_weight"`
	TopK        int     `yaml:"top_k"`
}

// PolicyConfig points at the declarative audit policy file.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if the matching
// weights are inconsistent.
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
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.ArtifactCachePath = expandPath(cfg.Storage.ArtifactCachePath, configDir)
	cfg.Policy.Path = expandPath(cfg.Policy.Path, configDir)

	return &cfg, nil
}

// Validate checks settings that cannot be defaulted away. A violation here is
// a fatal configuration error: the run must not start.
func Validate(cfg *Config) error {
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	// MaxRetries feeds an unsigned retry counter, so a negative value would
	// retry without bound.
	if cfg.Embedding.MaxRetries < 0 {
		return fmt.Errorf("embedding.max_retries must be non-negative, got %d", cfg.Embedding.MaxRetries)
	}
	if cfg.Embedding.BatchSize < 0 {
		return fmt.Errorf("embedding.batch_size must be non-negative, got %d", cfg.Embedding.BatchSize)
	}
	sum := cfg.Matching.DocWeight + cfg.Matching.ChunkWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matching.doc_weight + matching.chunk_weight must sum to 1, got %.3f", sum)
	}
	if cfg.Matching.DocWeight < 0 || cfg.Matching.ChunkWeight < 0 {
		return fmt.Errorf("matching weights must be non-negative")
	}
	if cfg.Matching.Threshold < 0 || cfg.Matching.Threshold > 1 {
		return fmt.Errorf("matching.threshold must be in [0,1], got %.3f", cfg.Matching.Threshold)
	}
	if cfg.Chunking.OverlapTokens >= cfg.Chunking.MaxTokens {
		return fmt.Errorf("chunking.overlap_tokens (%d) must be smaller than chunking.max_tokens (%d)",
			cfg.Chunking.OverlapTokens, cfg.Chunking.MaxTokens)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
