package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig configures the embedding provider client and batch
// limits for cache builds.
type EmbeddingConfig struct {
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	MaxAttempts     int    `yaml:"max_attempts"`
	CooldownMillis  int    `yaml:"cooldown_ms"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
	MaxBatchItems   int    `yaml:"max_batch_items"`
	MaxBatchChars   int    `yaml:"max_batch_chars"`
	MaxChunkChars   int    `yaml:"max_chunk_chars"`
}

// SynthesisConfig holds defaults for answer synthesis; CLI flags override
// these per invocation.
type SynthesisConfig struct {
	Provider    string `yaml:"provider,omitempty"`
	Model       string `yaml:"model,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	MaxTokens   int    `yaml:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SearchConfig configures retrieval behavior.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// CacheConfig configures where cache artifacts live. An empty dir puts
// them next to the corpus file.
type CacheConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// EngineConfig is the root configuration structure. All knobs are explicit
// so multiple engine instances can run side by side in tests.
type EngineConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./semsearch.yaml first, then
// ~/.config/semsearch/config.yaml. If neither exists, it writes defaults
// to the user path and returns them.
func LoadDefault() (*EngineConfig, string, error) {
	cwdPath := "semsearch.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *EngineConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "semsearch", "config.yaml"), nil
}

func defaultConfig() *EngineConfig {
	cfg := &EngineConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *EngineConfig) {
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 90
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 5
	}
	if cfg.Embedding.CooldownMillis == 0 {
		cfg.Embedding.CooldownMillis = 200
	}
	if cfg.Embedding.CheckpointEvery == 0 {
		cfg.Embedding.CheckpointEvery = 500
	}
	if cfg.Embedding.MaxBatchItems == 0 {
		cfg.Embedding.MaxBatchItems = 64
	}
	if cfg.Embedding.MaxBatchChars == 0 {
		cfg.Embedding.MaxBatchChars = 16000
	}
	if cfg.Embedding.MaxChunkChars == 0 {
		cfg.Embedding.MaxChunkChars = 4000
	}
	if cfg.Synthesis.MaxTokens == 0 {
		cfg.Synthesis.MaxTokens = 1024
	}
	if cfg.Synthesis.TimeoutSecs == 0 {
		cfg.Synthesis.TimeoutSecs = 120
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
}
