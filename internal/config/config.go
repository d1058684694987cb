package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the chefmate API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Document  DocumentConfig  `yaml:"document"`
	Chat      ChatConfig      `yaml:"chat"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store connection settings. Empty addrs is a
// supported "disabled" state: the service runs without retrieval or
// persistence rather than failing at startup.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	IndexName        string   `yaml:"index_name"`
}

// ProviderCredentials holds per-provider API settings.
type ProviderCredentials struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	RecipeModel string `yaml:"recipe_model"`
	ChatModel   string `yaml:"chat_model"`
}

// LLMConfig holds LLM provider selection and generation parameters.
type LLMConfig struct {
	Provider     string `yaml:"provider"`      // gemini or openai, serves recipe generation
	ChatProvider string `yaml:"chat_provider"` // defaults to Provider

	Gemini ProviderCredentials `yaml:"gemini"`
	OpenAI ProviderCredentials `yaml:"openai"`

	MaxOutputTokens   int     `yaml:"max_output_tokens"`
	Temperature       float32 `yaml:"temperature"`
	ChatTemperature   float32 `yaml:"chat_temperature"`
	RequestTimeoutSec int     `yaml:"request_timeout_sec"`
	Retries           int     `yaml:"retries"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// RAGConfig holds retrieval tuning.
type RAGConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ContextLimit        int     `yaml:"context_limit"`
}

// DocumentConfig holds the weighted-document construction policy.
type DocumentConfig struct {
	MaxTextLength  int `yaml:"max_text_length"`
	DishNameWeight int `yaml:"dishname_weight"`
	CategoryWeight int `yaml:"category_weight"`
}

// ChatConfig holds chat session settings.
type ChatConfig struct {
	SessionTimeoutMin int `yaml:"session_timeout_min"`
	HistoryLimit      int `yaml:"history_limit"`
	HistoryTTLHours   int `yaml:"history_ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation can take the full request timeout plus retries.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "chefmate:"
	}
	if c.Database.IndexName == "" {
		c.Database.IndexName = "recipes_idx"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.ChatProvider == "" {
		c.LLM.ChatProvider = c.LLM.Provider
	}
	if c.LLM.Gemini.RecipeModel == "" {
		c.LLM.Gemini.RecipeModel = "gemini-flash-latest"
	}
	if c.LLM.Gemini.ChatModel == "" {
		c.LLM.Gemini.ChatModel = "gemini-flash-latest"
	}
	if c.LLM.OpenAI.RecipeModel == "" {
		c.LLM.OpenAI.RecipeModel = "gpt-4o-mini"
	}
	if c.LLM.OpenAI.ChatModel == "" {
		c.LLM.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = 2048
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.ChatTemperature <= 0 {
		c.LLM.ChatTemperature = 0.7
	}
	if c.LLM.RequestTimeoutSec <= 0 {
		c.LLM.RequestTimeoutSec = 30
	}
	if c.LLM.Retries <= 0 {
		c.LLM.Retries = 3
	}

	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-004"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}

	if c.RAG.TopK <= 0 {
		c.RAG.TopK = 5
	}
	if c.RAG.SimilarityThreshold <= 0 {
		c.RAG.SimilarityThreshold = 0.15
	}
	if c.RAG.ContextLimit <= 0 {
		c.RAG.ContextLimit = 3
	}

	if c.Document.MaxTextLength <= 0 {
		c.Document.MaxTextLength = 500
	}
	if c.Document.DishNameWeight <= 0 {
		c.Document.DishNameWeight = 3
	}
	if c.Document.CategoryWeight <= 0 {
		c.Document.CategoryWeight = 2
	}

	if c.Chat.SessionTimeoutMin <= 0 {
		c.Chat.SessionTimeoutMin = 30
	}
	if c.Chat.HistoryLimit <= 0 {
		c.Chat.HistoryLimit = 50
	}
	if c.Chat.HistoryTTLHours <= 0 {
		c.Chat.HistoryTTLHours = 7 * 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.provider must be \"gemini\" or \"openai\", got %q", c.LLM.Provider)
	}
	switch c.LLM.ChatProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("llm.chat_provider must be \"gemini\" or \"openai\", got %q", c.LLM.ChatProvider)
	}
	if c.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("rag.similarity_threshold must be <= 1, got %v", c.RAG.SimilarityThreshold)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
