package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_min"`
	MaxUploadMB      int    `yaml:"max_upload_mb"`
}

// KnowledgeBaseConfig selects the persistence backend and index parameters.
type KnowledgeBaseConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	MaxFeatures int    `yaml:"max_features"`
	DefaultTopK int    `yaml:"default_top_k"`
}

// ChunkerConfig configures how extracted text is split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// LLMConfig holds configuration for the OpenAI-compatible chat model.
type LLMConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
	MaxRetries    int    `yaml:"max_retries"`
	HistoryLimit  int    `yaml:"history_limit"`
	ContextChunks int    `yaml:"context_chunks"`
}

// ListingsConfig points at the tabular property dataset.
type ListingsConfig struct {
	CSVPath string `yaml:"csv_path"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Chunker       ChunkerConfig       `yaml:"chunker"`
	LLM           LLMConfig           `yaml:"llm"`
	Listings      ListingsConfig      `yaml:"listings"`
	Log           LogConfig           `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, cfg.Validate()
}

// LoadDefault tries ./config.yaml first, then ~/.config/crerag/config.yaml.
// If neither exists, it returns defaults without writing anything.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the services cannot run with.
func (c *AppConfig) Validate() error {
	switch c.KnowledgeBase.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("knowledge_base.backend must be file or sqlite, got %q", c.KnowledgeBase.Backend)
	}
	switch c.Chunker.Type {
	case "window", "sentence", "line":
	default:
		return fmt.Errorf("chunker.type must be window, sentence or line, got %q", c.Chunker.Type)
	}
	if c.Chunker.Type == "window" && c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunker.overlap (%d) must be smaller than chunker.chunk_size (%d)", c.Chunker.Overlap, c.Chunker.ChunkSize)
	}
	if c.KnowledgeBase.MaxFeatures <= 0 {
		return fmt.Errorf("knowledge_base.max_features must be positive, got %d", c.KnowledgeBase.MaxFeatures)
	}
	if c.LLM.MaxRetries < 0 || c.LLM.MaxRetries > 10 {
		return fmt.Errorf("llm.max_retries must be 0-10, got %d", c.LLM.MaxRetries)
	}
	return nil
}

// DefaultPath returns the per-user config location.
func DefaultPath() string {
	p, err := defaultUserConfigPath()
	if err != nil {
		return "config.yaml"
	}
	return p
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "crerag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:             ":8000",
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
			RateLimitPerMin:  120,
			MaxUploadMB:      32,
		},
		KnowledgeBase: KnowledgeBaseConfig{Backend: "file", DataDir: "data", MaxFeatures: 1000, DefaultTopK: 3},
		Chunker:       ChunkerConfig{Type: "window", ChunkSize: 1000, Overlap: 200, SentencesPerChunk: 5, OverlapSentences: 1},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			APIKeyEnv:     "OPENAI_API_KEY",
			Model:         "gpt-3.5-turbo",
			TimeoutSecs:   60,
			MaxRetries:    3,
			HistoryLimit:  10,
			ContextChunks: 3,
		},
		Listings: ListingsConfig{CSVPath: "data/HackathonInternalKnowledgeBase.csv"},
		Log:      LogConfig{Level: "info"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = def.Server.ReadTimeoutSecs
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = def.Server.WriteTimeoutSecs
	}
	// A negative rate limit disables limiting.
	if cfg.Server.RateLimitPerMin == 0 {
		cfg.Server.RateLimitPerMin = def.Server.RateLimitPerMin
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if cfg.KnowledgeBase.Backend == "" {
		cfg.KnowledgeBase.Backend = def.KnowledgeBase.Backend
	}
	if cfg.KnowledgeBase.DataDir == "" {
		cfg.KnowledgeBase.DataDir = def.KnowledgeBase.DataDir
	}
	if cfg.KnowledgeBase.MaxFeatures == 0 {
		cfg.KnowledgeBase.MaxFeatures = def.KnowledgeBase.MaxFeatures
	}
	if cfg.KnowledgeBase.DefaultTopK == 0 {
		cfg.KnowledgeBase.DefaultTopK = def.KnowledgeBase.DefaultTopK
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = def.Chunker.ChunkSize
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = def.Chunker.SentencesPerChunk
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.LLM.HistoryLimit == 0 {
		cfg.LLM.HistoryLimit = def.LLM.HistoryLimit
	}
	if cfg.LLM.ContextChunks == 0 {
		cfg.LLM.ContextChunks = def.LLM.ContextChunks
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}

// applyEnvOverrides lets deployments adjust the few settings that differ per host.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("CRERAG_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CRERAG_DATA_DIR"); v != "" {
		cfg.KnowledgeBase.DataDir = v
	}
	if v := os.Getenv("CRERAG_BACKEND"); v != "" {
		cfg.KnowledgeBase.Backend = v
	}
	if v := os.Getenv("CRERAG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CRERAG_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMin = n
		}
	}
}

// ResolvedSQLitePath returns the configured database path, defaulting to the data dir.
func (c KnowledgeBaseConfig) ResolvedSQLitePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "knowledge.db")
}
