// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// cliConfig is the resolved configuration of one invocation.
type cliConfig struct {
	Endpoint string
	Timeout  time.Duration
	Output   string
	Color    bool
	LogLevel string
	Headers  map[string]string
}

// fileConfig mirrors the TOML file.
type fileConfig struct {
	Endpoint string            `toml:"endpoint"`
	Timeout  string            `toml:"timeout"`
	Output   string            `toml:"output"`
	Color    bool              `toml:"color"`
	LogLevel string            `toml:"log_level"`
	Headers  map[string]string `toml:"headers"`
}

func defaultConfig() cliConfig {
	return cliConfig{
		Endpoint: "",
		Timeout:  10 * time.Second,
		Output:   outputJSON,
		Color:    true,
		LogLevel: "warn",
		Headers:  map[string]string{},
	}
}

func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return cliConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("output") {
		out, err := parseOutput(raw.Output)
		if err != nil {
			return cliConfig{}, err
		}
		cfg.Output = out
	}
	if meta.IsDefined("color") {
		cfg.Color = raw.Color
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	for k, v := range raw.Headers {
		cfg.Headers[k] = v
	}
	return cfg, nil
}

func parseOutput(raw string) (string, error) {
	switch out := strings.ToLower(strings.TrimSpace(raw)); out {
	case outputJSON, outputYAML:
		return out, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}
