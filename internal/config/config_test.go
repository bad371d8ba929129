/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Nickname != "anonymous" || !cfg.Mesh.Enabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	const yamlBody = "nickname: alice\nrelay:\n  enabled: true\n  urls:\n    - wss://relay.example\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Nickname != "alice" {
		t.Fatalf("expected overridden nickname, got %q", cfg.Nickname)
	}
	if !cfg.Relay.Enabled || len(cfg.Relay.URLs) != 1 || cfg.Relay.URLs[0] != "wss://relay.example" {
		t.Fatalf("unexpected relay config: %+v", cfg.Relay)
	}
	// Untouched defaults still apply.
	if cfg.Relay.SOCKSProxy != "127.0.0.1:19050" {
		t.Fatalf("expected default socks proxy preserved, got %q", cfg.Relay.SOCKSProxy)
	}
}

