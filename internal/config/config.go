package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ConfigDirName  = ".edubot"
	ConfigFileName = "config.json"
	CacheFileName  = "embeddings.db"
)

// DefaultEndpoint serves both the embedding and chat models
const DefaultEndpoint = "https://integrate.api.nvidia.com/v1"

// Embedding providers
const (
	ProviderNIM    = "nim"
	ProviderOllama = "ollama"
)

// Config represents the application configuration
type Config struct {
	APIKey string `json:"api_key,omitempty"`

	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingEndpoint string `json:"embedding_endpoint,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`

	LLMEndpoint string `json:"llm_endpoint"`
	LLMModel    string `json:"llm_model,omitempty"`

	KnowledgePath string  `json:"knowledge_path"`
	CachePath     string  `json:"cache_path"`
	TopK          int     `json:"top_k"`
	MinScore      float64 `json:"min_score"`
	Concurrency   int     `json:"concurrency"`
	UseRAG        bool    `json:"use_rag"`
}

// Defaults returns the configuration used when neither a file nor the environment say otherwise
func Defaults() *Config {
	cachePath := filepath.Join(ConfigDirName, CacheFileName)
	if dir, err := GetConfigDir(); err == nil {
		cachePath = filepath.Join(dir, CacheFileName)
	}

	return &Config{
		EmbeddingProvider: ProviderNIM,
		LLMEndpoint:       DefaultEndpoint,
		KnowledgePath:     "data.json",
		CachePath:         cachePath,
		TopK:              3,
		MinScore:          0.3,
		Concurrency:       4,
		UseRAG:            true,
	}
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads the configuration from the default location
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(configPath)
}

// LoadFile reads the configuration at path on top of the defaults.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Resolve builds the effective configuration: defaults, then the config file
// (path, or the default location when empty), then .env, then the environment.
func Resolve(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the process
	_ = godotenv.Load(".env")

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv() {
	c.APIKey = getEnv("NVIDIA_API_KEY", c.APIKey)
	c.EmbeddingEndpoint = getEnv("EMBEDDING_NIM_ENDPOINT", c.EmbeddingEndpoint)
	c.LLMEndpoint = getEnv("NEMOTRON_NIM_ENDPOINT", c.LLMEndpoint)
	c.LLMEndpoint = getEnv("LLM_NIM_ENDPOINT", c.LLMEndpoint)

	c.EmbeddingProvider = getEnv("EDUBOT_EMBEDDING_PROVIDER", c.EmbeddingProvider)
	c.EmbeddingModel = getEnv("EDUBOT_EMBEDDING_MODEL", c.EmbeddingModel)
	c.LLMModel = getEnv("EDUBOT_LLM_MODEL", c.LLMModel)
	c.KnowledgePath = getEnv("EDUBOT_KNOWLEDGE_PATH", c.KnowledgePath)
	c.CachePath = getEnv("EDUBOT_CACHE_PATH", c.CachePath)
	c.TopK = getEnvAsInt("EDUBOT_TOP_K", c.TopK)
	c.MinScore = getEnvAsFloat("EDUBOT_MIN_SCORE", c.MinScore)
	c.Concurrency = getEnvAsInt("EDUBOT_CONCURRENCY", c.Concurrency)
}

// Validate checks the configuration for values the assistant cannot run with
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case ProviderNIM:
		if c.APIKey == "" {
			return fmt.Errorf("NVIDIA API key is required: set NVIDIA_API_KEY or run 'edubot configure'")
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider %q (expected %s or %s)", c.EmbeddingProvider, ProviderNIM, ProviderOllama)
	}

	if c.KnowledgePath == "" {
		return fmt.Errorf("knowledge base path is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.MinScore < -1 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be within [-1, 1], got %g", c.MinScore)
	}

	return nil
}

// Save writes the configuration to the default location
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, configPath)
}

// SaveFile writes the configuration to path. The file may hold an API key, so it is private to the user.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Exists checks if a configuration file exists
func Exists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
