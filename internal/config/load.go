package config

import (
	"encoding/json"
	"os"
	"time"
)

type Config struct {
	Bot       BotConfig       `json:"bot"`
	Database  DatabaseConfig  `json:"database"`
	Detection DetectionConfig `json:"detection"`
	Network   NetworkConfig   `json:"network"`
	Logging   LoggingConfig   `json:"logging"`
}

type BotConfig struct {
	Token string `json:"token"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type DetectionConfig struct {
	// CounterWindow is the interval between global counter clears.
	CounterWindowMinutes int `json:"counter_window_minutes"`
	// LedgerGrace is how long restored-channel snapshots linger after a
	// mass-delete correction before the ledger is cleared.
	LedgerGraceSeconds int `json:"ledger_grace_seconds"`
	// Attribution polling: first retry delay and hard deadline.
	AttributionBackoffMs  int `json:"attribution_backoff_ms"`
	AttributionDeadlineMs int `json:"attribution_deadline_ms"`
}

type NetworkConfig struct {
	HTTPPoolSize int    `json:"http_pool_size"`
	APIBaseURL   string `json:"api_base_url"`
}

type LoggingConfig struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	GlobalConfig = cfg
	return cfg, nil
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		GlobalConfig = cfg
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{},
		Database: DatabaseConfig{
			Path: "potatoguard.db",
		},
		Detection: DetectionConfig{
			CounterWindowMinutes:  10,
			LedgerGraceSeconds:    60,
			AttributionBackoffMs:  150,
			AttributionDeadlineMs: 2000,
		},
		Network: NetworkConfig{
			HTTPPoolSize: 4,
			APIBaseURL:   "https://discord.com/api/v10",
		},
		Logging: LoggingConfig{
			Path:  "potatoguard.log",
			Level: "info",
		},
	}
}

func Get() *Config {
	if GlobalConfig == nil {
		return DefaultConfig()
	}
	return GlobalConfig
}

func (c *Config) CounterWindow() time.Duration {
	return time.Duration(c.Detection.CounterWindowMinutes) * time.Minute
}

func (c *Config) LedgerGrace() time.Duration {
	return time.Duration(c.Detection.LedgerGraceSeconds) * time.Second
}

func (c *Config) AttributionBackoff() time.Duration {
	return time.Duration(c.Detection.AttributionBackoffMs) * time.Millisecond
}

func (c *Config) AttributionDeadline() time.Duration {
	return time.Duration(c.Detection.AttributionDeadlineMs) * time.Millisecond
}
