// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the Mantis configuration file.
//
// Values come from three layers, later ones winning: built-in defaults,
// the YAML file (~/.mantis/mantis.yaml or $MANTIS_CONFIG), and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvConfigPath      = "MANTIS_CONFIG"
	EnvPort            = "MANTIS_PORT"
	EnvUpstreamBaseURL = "MANTIS_UPSTREAM_BASE_URL"
	EnvModel           = "MANTIS_MODEL"
	EnvLogLevel        = "MANTIS_LOG_LEVEL"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Path returns $MANTIS_CONFIG if set, else ~/.mantis/mantis.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(Dir(), "mantis.yaml")
}

// Load reads the config at path, creating it with defaults on first run.
// An empty path means Path().
func Load(path string) (MantisConfig, error) {
	if path == "" {
		path = Path()
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Info("first run detected, creating the config", "path", path)
		if err := createDefault(path); err != nil {
			return MantisConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return MantisConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	var cfg MantisConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MantisConfig{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return MantisConfig{}, err
	}
	applyConfigDefaults(&cfg)
	return cfg, nil
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func applyEnv(cfg *MantisConfig) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be a port number, got %q", EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvUpstreamBaseURL); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Upstream.Model = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" {
		cfg.Tracing.OTLPEndpoint = v
	}
	return nil
}

// applyConfigDefaults fills zero values left by partial config files.
func applyConfigDefaults(cfg *MantisConfig) {
	def := DefaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = def.Upstream.BaseURL
	}
	if cfg.Upstream.Model == "" {
		cfg.Upstream.Model = def.Upstream.Model
	}
	if cfg.Upstream.APIKeyEnv == "" {
		cfg.Upstream.APIKeyEnv = def.Upstream.APIKeyEnv
	}
	if cfg.Upstream.SecretPath == "" {
		cfg.Upstream.SecretPath = def.Upstream.SecretPath
	}
	if cfg.Chat.MessagesPerMinute <= 0 {
		cfg.Chat.MessagesPerMinute = def.Chat.MessagesPerMinute
	}
	if cfg.Chat.Burst <= 0 {
		cfg.Chat.Burst = def.Chat.Burst
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = def.Storage.Dir
	}
}
