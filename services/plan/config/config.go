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
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the run configuration for the plan service.
//
// Description:
//
//	Loaded from the embedded defaults, optionally overlaid with a user
//	config file. Provider credentials never live here; they come from
//	the environment, matching the LLM client constructors.
//
// Thread Safety: immutable after loading; safe for concurrent use.
type Config struct {
	// Provider selects the model boundary: "anthropic" or "openai".
	Provider string `yaml:"provider"`

	// Model is the model identifier; empty uses the client default.
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps tokens per model call.
	MaxTokens int `yaml:"max_tokens"`

	// MaxWorkers bounds concurrent tool invocations per plan.
	MaxWorkers int `yaml:"max_workers"`

	// ToolTimeoutSeconds is the per-invocation deadline; 0 disables it.
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`

	// StorageDir is the BadgerDB directory; empty runs in memory.
	StorageDir string `yaml:"storage_dir"`

	// ListenAddr is the HTTP listen address for serve mode.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: embedded defaults are invalid: %w", err)
	}
	return &cfg, nil
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// Validate range-checks the configuration.
func (c *Config) Validate() error {
	switch c.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("provider must be \"anthropic\" or \"openai\", got %q", c.Provider)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be >= 1, got %d", c.MaxWorkers)
	}
	if c.MaxWorkers > 64 {
		return fmt.Errorf("max_workers must be <= 64, got %d", c.MaxWorkers)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be >= 1, got %d", c.MaxTokens)
	}
	if c.ToolTimeoutSeconds < 0 {
		return fmt.Errorf("tool_timeout_seconds must be >= 0, got %d", c.ToolTimeoutSeconds)
	}
	return nil
}

// ToolTimeout returns the per-invocation deadline as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}
