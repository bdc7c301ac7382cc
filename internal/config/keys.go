package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "ollama.base_url", typ: kString, env: "MEMORAXX_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "MEMORAXX_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "memory.max_tokens", typ: kInt, env: "MEMORAXX_MEMORY_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Memory.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Memory.MaxTokens },
	},
	{
		key: "memory.file", typ: kString, env: "MEMORAXX_MEMORY_FILE",
		apply:   func(cfg *Config, v any) { cfg.Memory.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Memory.File },
	},
	{
		key: "memory.token_counter", typ: kString, env: "MEMORAXX_MEMORY_TOKEN_COUNTER",
		apply:   func(cfg *Config, v any) { cfg.Memory.TokenCounter = v.(string) },
		extract: func(cfg Config) any { return cfg.Memory.TokenCounter },
	},
	{
		key: "request.timeout", typ: kDuration, env: "MEMORAXX_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Request.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Request.Timeout },
	},
	{
		key: "request.connect_timeout", typ: kDuration, env: "MEMORAXX_REQUEST_CONNECT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Request.ConnectTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Request.ConnectTimeout },
	},
	{
		key: "request.max_attempts", typ: kInt, env: "MEMORAXX_REQUEST_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Request.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Request.MaxAttempts },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MEMORAXX_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.archive", typ: kBool, env: "MEMORAXX_STORAGE_ARCHIVE",
		apply:   func(cfg *Config, v any) { cfg.Storage.Archive = v.(bool) },
		extract: func(cfg Config) any { return cfg.Storage.Archive },
	},
	{
		key: "server.port", typ: kInt, env: "MEMORAXX_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "MEMORAXX_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "log.level", typ: kString, env: "MEMORAXX_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parseDuration accepts Go duration syntax or a bare number of seconds.
func parseDuration(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(raw)
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := parseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := parseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
