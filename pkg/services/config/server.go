package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ServerConfig is the warden server configuration file (yaml/toml, any
// format viper reads).
type ServerConfig struct {
	DBPath          string           `mapstructure:"db_path"`
	CredentialsPath string           `mapstructure:"credentials_path"`
	Profile         string           `mapstructure:"profile"`
	Evaluation      EvaluationConfig `mapstructure:"evaluation"`
}

type EvaluationConfig struct {
	LiveCallConcurrency int `mapstructure:"live_call_concurrency"`
	LiveCallTimeoutSec  int `mapstructure:"live_call_timeout_seconds"`
	HistoryLimit        int `mapstructure:"history_limit"`
}

func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("db_path", "cloud-warden.db")
	v.SetDefault("evaluation.live_call_concurrency", 4)
	v.SetDefault("evaluation.live_call_timeout_seconds", 10)
	v.SetDefault("evaluation.history_limit", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	return &cfg, nil
}
