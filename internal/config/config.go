package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Catalog    CatalogConfig
	Model      ModelConfig
	Ollama     OllamaConfig
	OpenRouter OpenRouterConfig
	Gemini     GeminiConfig
	Session    SessionConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type CatalogConfig struct {
	BaseURL      string
	ImageBaseURL string
	APIKey       string
	Language     string
	Timeout      time.Duration
	MaxPages     int
}

type ModelConfig struct {
	// Provider is one of ollama, openrouter, gemini or none.
	Provider string
	// Name overrides the provider's default model.
	Name    string
	Timeout time.Duration
}

type OllamaConfig struct {
	BaseURL string
}

type OpenRouterConfig struct {
	APIKey string
}

type GeminiConfig struct {
	APIKey  string
	BaseURL string
}

type SessionConfig struct {
	TTL time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Catalog: CatalogConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p/w500",
			Language:     "en-US",
			Timeout:      10 * time.Second,
			MaxPages:     3,
		},
		Model: ModelConfig{
			Provider: "ollama",
			Timeout:  10 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		Session: SessionConfig{
			TTL: 30 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir: dataHome(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration in layers: defaults, the TOML file at
// ConfigFilePath, a .env file in the working directory, POPCORN_* environment
// variables, and finally the secrets file for secrets that are still empty.
//
// A .env file never overrides variables already present in the environment.
func Load() (Config, error) {
	loadDotEnv(".env")
	return loadFromPath(ConfigFilePath(), secretsFile{path: SecretsFilePath()})
}

// secretReader abstracts the secrets file for testing.
type secretReader interface {
	Get(service, account string) (string, error)
}

func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not load %s: %v\n", path, err)
	}
}

func loadFromPath(path string, sr secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, newFileBackend(path)); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg).(string) != "" {
			continue
		}
		if v, err := sr.Get(secretService, s.key); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if cfg.Catalog.MaxPages < 1 {
		fmt.Fprintf(os.Stderr, "[WARN] catalog.max_pages must be at least 1, got %d. Using default value.\n", cfg.Catalog.MaxPages)
		cfg.Catalog.MaxPages = defaults().Catalog.MaxPages
	}

	if cfg.Catalog.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: TMDB API key. "+
			"Set it via environment variable POPCORN_TMDB_API_KEY or add catalog.api_key to %s", SecretsFilePath())
	}

	return cfg, nil
}
