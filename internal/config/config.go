package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Platform PlatformConfig `envPrefix:"PLATFORM_"`
	Realtime RealtimeConfig `envPrefix:"REALTIME_"`
	Storage  StorageConfig  `envPrefix:"STORAGE_"`
	Assist   AssistConfig   `envPrefix:"ASSIST_"`
	Chat     ChatConfig     `envPrefix:"CHAT_"`
}

type ServerConfig struct {
	Addr string `env:"ADDR" envDefault:"127.0.0.1:8787"`
}

// PlatformConfig points at the managed platform's row-query HTTP API.
type PlatformConfig struct {
	BaseURL string `env:"BASE_URL,required" validate:"url"`
	APIKey  string `env:"API_KEY,required"`
}

type RealtimeConfig struct {
	URL               string        `env:"URL,required" validate:"url"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"25s"`
	ReconnectMinWait  time.Duration `env:"RECONNECT_MIN_WAIT" envDefault:"500ms"`
	ReconnectMaxWait  time.Duration `env:"RECONNECT_MAX_WAIT" envDefault:"15s"`
}

type StorageConfig struct {
	BaseURL string `env:"BASE_URL,required" validate:"url"`
	APIKey  string `env:"API_KEY"`
	Bucket  string `env:"BUCKET" envDefault:"chat-files"`
}

// AssistConfig holds the opaque AI/voice call-out endpoints. The engine never
// inspects their internals, only consumes string results.
type AssistConfig struct {
	BaseURL string `env:"BASE_URL"`
	APIKey  string `env:"API_KEY"`
}

type ChatConfig struct {
	UserID           string        `env:"USER_ID,required"`
	DefaultRoom      string        `env:"DEFAULT_ROOM"`
	ReconcileTimeout time.Duration `env:"RECONCILE_TIMEOUT" envDefault:"10s"`
	TypingTTL        time.Duration `env:"TYPING_TTL" envDefault:"6s"`
	UploadWorkers    int           `env:"UPLOAD_WORKERS" envDefault:"4"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
