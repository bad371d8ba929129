/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package config loads the daemon's on-disk configuration. Fields are
// Go-side defaulted so a bare or partial YAML file is always enough to
// start.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's top-level configuration.
type Config struct {
	// Identity
	Nickname string `yaml:"nickname"`
	DataDir  string `yaml:"data_dir"`

	// Mesh transport
	Mesh MeshConfig `yaml:"mesh"`

	// Relay transport: reachability-driven, fronted by a SOCKS proxy so
	// relay traffic can ride over Tor.
	Relay RelayConfig `yaml:"relay"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

type MeshConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RelayConfig struct {
	Enabled    bool     `yaml:"enabled"`
	URLs       []string `yaml:"urls"`
	SOCKSProxy string   `yaml:"socks_proxy"` // e.g. "127.0.0.1:9050"
}

// Default returns the configuration a fresh install starts from.
func Default() Config {
	return Config{
		Nickname: "anonymous",
		DataDir:  "./meshcourier-data",
		Mesh:     MeshConfig{Enabled: true},
		Relay: RelayConfig{
			Enabled:    false,
			URLs:       nil,
			SOCKSProxy: "127.0.0.1:19050",
		},
		LogLevel: "info",
	}
}

// Load reads and merges path's YAML over Default(). A missing file is
// not an error: it simply yields the defaults, matching the daemon's
// "works with zero configuration" stance.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
