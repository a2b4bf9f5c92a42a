// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
)

type MantisConfig struct {
	// Server: where the HTTP API listens
	Server ServerConfig `yaml:"server"`

	// Upstream: the OpenAI-compatible completion API
	Upstream UpstreamConfig `yaml:"upstream"`

	// Chat: WebSocket chat limits
	Chat ChatConfig `yaml:"chat"`

	// Logging: level, format and log directory
	Logging LoggingConfig `yaml:"logging"`

	// Tracing: OTLP collector endpoint, or "stdout"
	Tracing TracingConfig `yaml:"tracing"`

	// Storage: where the CLI keeps saved roadmaps and chat histories
	Storage StorageConfig `yaml:"storage"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`            // e.g. 8080
	AllowedOrigins []string `yaml:"allowed_origins"` // empty allows any origin
}

type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url"`    // e.g. https://api.deepseek.com/v1
	Model      string `yaml:"model"`       // e.g. deepseek-chat
	APIKeyEnv  string `yaml:"api_key_env"` // never the key itself
	SecretPath string `yaml:"secret_path"` // file fallback for the key
}

type ChatConfig struct {
	MessagesPerMinute float64 `yaml:"messages_per_minute"`
	Burst             int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`   // empty disables file logging
	JSON  bool   `yaml:"json"`
}

type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

const (
	DefaultPort              = 8080
	DefaultBaseURL           = "https://api.deepseek.com/v1"
	DefaultModel             = "deepseek-chat"
	DefaultAPIKeyEnv         = "DEEPSEEK_API_KEY"
	DefaultSecretPath        = "/run/secrets/deepseek_api_key"
	DefaultMessagesPerMinute = 20
	DefaultBurst             = 5
	DefaultLogLevel          = "info"
)

// Dir returns ~/.mantis, or ".mantis" if the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mantis"
	}
	return filepath.Join(home, ".mantis")
}

func DefaultConfig() MantisConfig {
	dir := Dir()
	return MantisConfig{
		Server: ServerConfig{
			Port:           DefaultPort,
			AllowedOrigins: []string{},
		},
		Upstream: UpstreamConfig{
			BaseURL:    DefaultBaseURL,
			Model:      DefaultModel,
			APIKeyEnv:  DefaultAPIKeyEnv,
			SecretPath: DefaultSecretPath,
		},
		Chat: ChatConfig{
			MessagesPerMinute: DefaultMessagesPerMinute,
			Burst:             DefaultBurst,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			Dir:   filepath.Join(dir, "logs"),
		},
		Storage: StorageConfig{
			Dir: filepath.Join(dir, "data"),
		},
	}
}
