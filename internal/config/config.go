package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"finqa/internal/domain"
)

// FetcherConfig controls how article pages are downloaded and cleaned.
type FetcherConfig struct {
	ContentSelector string `yaml:"content_selector" validate:"required"`
	UserAgent       string `yaml:"user_agent" validate:"required"`
	Referer         string `yaml:"referer" validate:"omitempty,url"`
	TimeoutSecs     int    `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries      int    `yaml:"max_retries" validate:"gte=0,lte=10"`
	MinLength       int    `yaml:"min_length" validate:"gte=0"`
}

// Timeout returns the per-request fetch timeout.
func (c FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ChunkerConfig configures the fixed-size character splitter.
type ChunkerConfig struct {
	Size    int `yaml:"size" validate:"gt=0"`
	Overlap int `yaml:"overlap" validate:"gte=0,ltfield=Size"`
}

// RetrievalConfig configures similarity search and the article preview.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k" validate:"gt=0"`
	PreviewChars int `yaml:"preview_chars" validate:"gte=0"`
}

// OpenAIEmbedderConfig holds configuration for an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" validate:"oneof=tfidf openai"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" validate:"required_if=Type openai"`
}

// LLMConfig configures the hosted chat model.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string  `yaml:"api_key_env" validate:"required"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSecs int     `yaml:"timeout_secs" validate:"gt=0"`
	MaxRetries  int     `yaml:"max_retries" validate:"gte=0"`
}

// APIKey reads the model API key from the environment.
func (c LLMConfig) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return "", domain.NewError(domain.KindConfig,
			fmt.Sprintf("%s not found in environment variables", c.APIKeyEnv), nil)
	}
	return key, nil
}

// LogConfig configures the zap logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// ServerConfig configures the HTML form server.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	LLM       LLMConfig       `yaml:"llm"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return domain.NewError(domain.KindConfig, "invalid configuration", err)
	}
	return nil
}

// Load reads a config from a specified path. Keys missing from the file keep
// their defaults. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/finqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/finqa/config.yaml and returns them.
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
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "finqa", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Fetcher: FetcherConfig{
			ContentSelector: "div.arti-flow",
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Referer:         "https://www.moneycontrol.com",
			TimeoutSecs:     15,
			MaxRetries:      2,
			MinLength:       100,
		},
		Chunker:   ChunkerConfig{Size: 500, Overlap: 50},
		Retrieval: RetrievalConfig{TopK: 3, PreviewChars: 500},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1/",
			APIKeyEnv:   "GROQ_API_KEY",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.6,
			TimeoutSecs: 60,
			MaxRetries:  2,
		},
		Log:    LogConfig{File: "finqa.log"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1/"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
}
