// Package config provides configuration loading and structs for the promptrepo server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Blob      BlobConfig      `yaml:"blob"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Retry     RetryConfig     `yaml:"retry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the prompt database and the fallback index.
// An empty FallbackIndexPath keeps the fallback index in memory.
type StorageConfig struct {
	DatabasePath      string `yaml:"database_path"`
	FallbackIndexPath string `yaml:"fallback_index_path"`
}

// BlobConfig selects and configures the store holding the embedding matrix.
type BlobConfig struct {
	Backend    string      `yaml:"backend"` // memory, sqlite, redis, s3
	Prefix     string      `yaml:"prefix"`
	SQLitePath string      `yaml:"sqlite_path"`
	Redis      RedisConfig `yaml:"redis"`
	S3         S3Config    `yaml:"s3"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3Config holds bucket settings. Credentials come from the AWS default chain.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // gemini, openai, onnx, mock
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"` // LRU entries; negative disables
}

// SearchConfig holds search limits.
type SearchConfig struct {
	DefaultLimit  int `yaml:"default_limit"`
	MaxLimit      int `yaml:"max_limit"`
	FallbackLimit int `yaml:"fallback_limit"`
}

// RetryConfig bounds the optimistic write loop of the vector store.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// Load reads and parses the config file at path, overlays secrets from the
// environment, expands paths, and applies defaults.
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
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.FallbackIndexPath = expandPath(cfg.Storage.FallbackIndexPath, configDir)
	cfg.Blob.SQLitePath = expandPath(cfg.Blob.SQLitePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Default returns a configuration built from defaults and the environment only.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)
	return &cfg
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

// LoadEnvFiles loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets from the environment. Values in the config file win.
func ApplyEnv(cfg *Config) {
	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case "gemini":
			cfg.Embedding.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		case "openai":
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Blob.Redis.Password == "" {
		cfg.Blob.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}
	if v := os.Getenv("PROMPTREPO_BLOB_BACKEND"); v != "" {
		cfg.Blob.Backend = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
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
