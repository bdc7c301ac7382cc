package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type Config struct {
	Ollama  OllamaConfig
	Memory  MemoryConfig
	Request RequestConfig
	Storage StorageConfig
	Server  ServerConfig
	Log     LogConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type MemoryConfig struct {
	MaxTokens int
	// File is the conversation memory path. Empty means <data dir>/memory.json.
	File string
	// TokenCounter selects the estimator: "words" or "chars".
	TokenCounter string
}

type RequestConfig struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxAttempts    int
}

type StorageConfig struct {
	DataDir string
	// Archive enables the SQLite interaction archive.
	Archive bool
}

type ServerConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Memory: MemoryConfig{
			MaxTokens:    4000,
			TokenCounter: "words",
		},
		Request: RequestConfig{
			Timeout:        30 * time.Second,
			ConnectTimeout: 5 * time.Second,
			MaxAttempts:    3,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Archive: true,
		},
		Server: ServerConfig{
			Port: 4100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.memoraxx.app).
// Elsewhere it is a JSON file (comments and trailing commas allowed) at
// $XDG_CONFIG_HOME/memoraxx/config.json, or $MEMORAXX_CONFIG_FILE if set.
//
// Environment variables (MEMORAXX_*) override backend values on all platforms.
// The server token is a secret and is read from MEMORAXX_SERVER_TOKEN only.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Memory.File == "" {
		cfg.Memory.File = filepath.Join(cfg.Storage.DataDir, "memory.json")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// maxAttemptsLimit bounds request.max_attempts; backoff doubles per attempt.
const maxAttemptsLimit = 5

var logLevels = []string{"debug", "info", "warn", "error"}

func (c Config) validate() error {
	var problems []string
	if c.Ollama.BaseURL == "" {
		problems = append(problems, "ollama.base_url must not be empty")
	}
	if c.Ollama.Model == "" {
		problems = append(problems, "ollama.model must not be empty")
	}
	if c.Memory.MaxTokens <= 0 {
		problems = append(problems, fmt.Sprintf("memory.max_tokens must be positive, got %d", c.Memory.MaxTokens))
	}
	switch c.Memory.TokenCounter {
	case "words", "chars":
	default:
		problems = append(problems, fmt.Sprintf("memory.token_counter must be \"words\" or \"chars\", got %q", c.Memory.TokenCounter))
	}
	if c.Request.MaxAttempts < 1 || c.Request.MaxAttempts > maxAttemptsLimit {
		problems = append(problems, fmt.Sprintf("request.max_attempts must be between 1 and %d, got %d", maxAttemptsLimit, c.Request.MaxAttempts))
	}
	if c.Request.Timeout <= 0 || c.Request.ConnectTimeout <= 0 {
		problems = append(problems, "request timeouts must be positive")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		problems = append(problems, fmt.Sprintf("log.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
