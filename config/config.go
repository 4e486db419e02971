// server/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is built once in main and handed to constructors; nothing reads the
// environment after startup.
type Config struct {
	Port         string `yaml:"port"`
	AllowOrigins string `yaml:"allow_origins"`

	OpenAIKey     string `yaml:"openai_key"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// FallbackAll makes the chat/patch/plan endpoints degrade to canned
	// responses instead of returning 503 when no credentials are set,
	// matching what suggest/expand always did.
	FallbackAll bool `yaml:"fallback_all"`
}

// Load reads an optional .env file, an optional YAML file named by
// MINDMAPS_CONFIG, then environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         "8000",
		AllowOrigins: "http://localhost:3000, http://localhost:19006",
		OpenAIModel:  "gpt-4o-mini",
	}

	if path := os.Getenv("MINDMAPS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.AllowOrigins = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("LLM_FALLBACK_ALL"); v != "" {
		cfg.FallbackAll = strings.EqualFold(v, "true") || v == "1"
	}

	return cfg, nil
}

// HasCredentials reports whether an upstream provider is configured.
func (c *Config) HasCredentials() bool {
	return c.OpenAIKey != ""
}
