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
		cfg.Storage.DatabasePath = "/usr/local/var/promptrepo/data/prompts.db"
	}
	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = "sqlite"
	}
	if cfg.Blob.Prefix == "" {
		cfg.Blob.Prefix = "embeddings/"
	}
	if cfg.Blob.SQLitePath == "" {
		cfg.Blob.SQLitePath = "/usr/local/var/promptrepo/data/blobs.db"
	}
	if cfg.Blob.Redis.Addr == "" {
		cfg.Blob.Redis.Addr = "localhost:6379"
	}
	if cfg.Blob.S3.Region == "" {
		cfg.Blob.S3.Region = "us-east-1"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "gemini"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "text-embedding-004"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Dimensions = 1536
		case "onnx":
			cfg.Embedding.Dimensions = 384
		default:
			cfg.Embedding.Dimensions = 768
		}
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/promptrepo/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 256
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.FallbackLimit == 0 {
		cfg.Search.FallbackLimit = 50
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 50 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = time.Second
	}
}
