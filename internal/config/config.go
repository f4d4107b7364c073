package config

import (
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root       string   `yaml:"root"`
		IgnoreDirs []string `yaml:"ignore_dirs"`
	} `yaml:"project"`
	Store struct {
		DBPath   string `yaml:"db_path"`
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"store"`
	AI struct {
		BaseURL      string `yaml:"base_url"`
		EmbedModel   string `yaml:"embed_model"`
		SummaryModel string `yaml:"summary_model"`
		Dimension    int    `yaml:"dimension"`
	} `yaml:"ai"`
	Retrieval struct {
		MaxTokens       int `yaml:"max_tokens"`
		DefaultTopK     int `yaml:"default_top_k"`
		SearchTimeoutMS int `yaml:"search_timeout_ms"`
	} `yaml:"retrieval"`
	Index struct {
		Workers int `yaml:"workers"`
	} `yaml:"index"`
}

// Default returns a config with working defaults for a local setup.
func Default() *Config {
	cfg := &Config{}
	cfg.Project.Root = "."
	cfg.Project.IgnoreDirs = []string{".git", "vendor", "node_modules", "testdata", "target", "build"}
	cfg.Store.DBPath = "codescout.db"
	cfg.Store.CacheDir = ".codescout-cache"
	cfg.AI.BaseURL = "http://127.0.0.1:11434"
	cfg.AI.EmbedModel = "nomic-embed-text"
	cfg.AI.SummaryModel = "qwen3:8b"
	cfg.AI.Dimension = 768
	cfg.Retrieval.MaxTokens = 8000
	cfg.Retrieval.DefaultTopK = 5
	cfg.Retrieval.SearchTimeoutMS = 10000
	cfg.Index.Workers = 4
	return cfg
}

// LoadConfig reads the YAML config at path, layering .env and environment
// variable overrides on top. A missing config file is not an error: defaults
// apply.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	if root := os.Getenv("CODESCOUT_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("CODESCOUT_DB"); db != "" {
		cfg.Store.DBPath = db
	}
	if url := os.Getenv("CODESCOUT_OLLAMA_URL"); url != "" {
		cfg.AI.BaseURL = url
	}
	if model := os.Getenv("CODESCOUT_EMBED_MODEL"); model != "" {
		cfg.AI.EmbedModel = model
	}
	if dim := os.Getenv("CODESCOUT_DIMENSION"); dim != "" {
		if n, err := strconv.Atoi(dim); err == nil {
			cfg.AI.Dimension = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.AI,
		validation.Field(&c.AI.Dimension, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if err := validation.ValidateStruct(&c.Retrieval,
		validation.Field(&c.Retrieval.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Retrieval.DefaultTopK, validation.Required, validation.Min(1)),
		validation.Field(&c.Retrieval.SearchTimeoutMS, validation.Min(0)),
	); err != nil {
		return err
	}
	return validation.Validate(c.Project.Root, validation.Required)
}
