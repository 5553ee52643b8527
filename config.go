package lessonplanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every setting of the front ends.
// Priority: ENV > YAML > defaults (via env-default tags).
type Config struct {
	OpenAI struct {
		APIKey     string        `yaml:"api_key"     env:"OPENAI_API_KEY"`
		BaseURL    string        `yaml:"base_url"    env:"OPENAI_BASE_URL"`
		TextModel  string        `yaml:"text_model"  env:"OPENAI_TEXT_MODEL"  env-default:"gpt-4o"`
		ImageModel string        `yaml:"image_model" env:"OPENAI_IMAGE_MODEL" env-default:"dall-e-3"`
		ImageSize  string        `yaml:"image_size"  env:"OPENAI_IMAGE_SIZE"  env-default:"1024x1024"`
		Timeout    time.Duration `yaml:"timeout"     env:"OPENAI_TIMEOUT"     env-default:"2m"`
	} `yaml:"openai"`

	Store struct {
		Driver      string `yaml:"driver"       env:"STORE_DRIVER"       env-default:"sqlite"`
		SQLitePath  string `yaml:"sqlite_path"  env:"STORE_SQLITE_PATH"  env-default:"./lessonplanner.db"`
		RedisAddr   string `yaml:"redis_addr"   env:"STORE_REDIS_ADDR"   env-default:"localhost:6379"`
		RedisDB     int    `yaml:"redis_db"     env:"STORE_REDIS_DB"     env-default:"0"`
		RedisPrefix string `yaml:"redis_prefix" env:"STORE_REDIS_PREFIX" env-default:"lessonplanner:"`
	} `yaml:"store"`

	Server struct {
		Port          int    `yaml:"port"           env:"SERVER_PORT"    env-default:"8180"`
		SessionSecret string `yaml:"session_secret" env:"SESSION_SECRET" env-default:"lessonplanner-dev-secret"`
	} `yaml:"server"`

	Log struct {
		Verbose bool   `yaml:"verbose" env:"LOG_VERBOSE"`
		LLMDir  string `yaml:"llm_dir" env:"LLM_LOG_DIR" env-default:"log"`
	} `yaml:"log"`
}

// LoadConfig reads path when it exists, then the environment. An empty path reads ENV + defaults only.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that defaults cannot fix
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("STORE_SQLITE_PATH is required for the sqlite driver")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("STORE_REDIS_ADDR is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want sqlite or redis)", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.Server.Port)
	}
	if c.OpenAI.Timeout < 0 {
		return fmt.Errorf("OPENAI_TIMEOUT must not be negative")
	}
	return nil
}

// BackendConfig returns the OpenAI client settings
func (c *Config) BackendConfig() BackendConfig {
	return BackendConfig{
		APIKey:     c.OpenAI.APIKey,
		BaseURL:    c.OpenAI.BaseURL,
		TextModel:  c.OpenAI.TextModel,
		ImageModel: c.OpenAI.ImageModel,
		ImageSize:  c.OpenAI.ImageSize,
		Timeout:    c.OpenAI.Timeout,
	}
}

// OpenStore opens the configured KV store
func (c *Config) OpenStore(ctx context.Context) (KVStore, error) {
	if c.Store.Driver == "redis" {
		return NewRedisStore(ctx, c.Store.RedisAddr, c.Store.RedisDB, c.Store.RedisPrefix)
	}
	return OpenSQLiteStore(c.Store.SQLitePath)
}

// OpenBackend builds the OpenAI backend. Without a credential it logs a warning and
// returns a disabled backend so the front ends still start.
func (c *Config) OpenBackend() (*Backend, error) {
	backend, err := NewBackend(c.BackendConfig())
	if errors.Is(err, ErrMissingAPIKey) {
		opLog("OpenBackend").Warn("OPENAI_API_KEY is not set; generation is disabled")
		return NewDisabledBackend(err), nil
	}
	return backend, err
}
