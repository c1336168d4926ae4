package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/contraudit.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/indices/vectors"
	}
	if cfg.Storage.ArtifactCachePath == "" {
		cfg.Storage.ArtifactCachePath = "./data/cache"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:8090/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "CONTRAUDIT_EMBEDDING_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "sbert_large_nlu_ru"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = 350
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 40
	}
	if cfg.Matching.Threshold == 0 {
		cfg.Matching.Threshold = 0.80
	}
	if cfg.Matching.DocWeight == 0 && cfg.Matching.ChunkWeight == 0 {
		cfg.Matching.DocWeight = 0.5
		cfg.Matching.ChunkWeight = 0.5
	}
	if cfg.Matching.TitleWeight == 0 {
		cfg.Matching.TitleWeight = 0.3
	}
	if cfg.Matching.TopK == 0 {
		cfg.Matching.TopK = 10
	}
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = "./policy.yaml"
	}
}
