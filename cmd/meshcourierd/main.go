/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Command meshcourierd hosts a Mesh Courier core and exposes its
// operator-facing commands through a plain os.Args[1] switch.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/meshcourier/core/core"
	"github.com/meshcourier/core/internal/config"
	"github.com/meshcourier/core/internal/identity"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: loading config: %v\n", err)
		os.Exit(1)
	}

	self, err := loadOrCreateIdentity(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: identity: %v\n", err)
		os.Exit(1)
	}

	c, err := core.New(cfg, self)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: %v\n", err)
		os.Exit(1)
	}
	defer c.Stop()

	switch os.Args[1] {
	case "panic_wipe":
		cmdPanicWipe(c)
	case "toggle_favorite":
		cmdToggleFavorite(c, os.Args[2:])
	case "toggle_block":
		cmdToggleBlock(c, os.Args[2:])
	case "select_room":
		cmdSelectRoom(c, os.Args[2:])
	case "enqueue_send":
		cmdEnqueueSend(c, os.Args[2:])
	case "run":
		cmdRun(c)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: meshcourierd <panic_wipe|toggle_favorite|toggle_block|select_room|enqueue_send|run> [args]")
}

func configPath() string {
	if len(os.Args) > 0 {
		if p := os.Getenv("MESHCOURIER_CONFIG"); p != "" {
			return p
		}
	}
	return "meshcourier.yaml"
}

// loadOrCreateIdentity is a minimal on-disk identity bootstrap: the
// daemon's long-lived Noise keypair generation and storage belongs to
// an external crypto/session layer outside this package; here we just
// need something stable to derive a fingerprint and short id from for
// local testing and CLI demonstration.
func loadOrCreateIdentity(dataDir string) (identity.Identity, error) {
	path := dataDir + "/identity.key"
	if b, err := os.ReadFile(path); err == nil {
		pk, err := identity.ParsePublicKey(b)
		if err != nil {
			return identity.Identity{}, err
		}
		return identity.New(pk), nil
	}

	var raw [identity.KeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return identity.Identity{}, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return identity.Identity{}, err
	}
	if err := os.WriteFile(path, raw[:], 0o600); err != nil {
		return identity.Identity{}, err
	}
	pk, err := identity.ParsePublicKey(raw[:])
	if err != nil {
		return identity.Identity{}, err
	}
	return identity.New(pk), nil
}

func cmdRun(c *core.Router) {
	c.Start()
	fmt.Fprintf(os.Stderr, "meshcourierd: running as %s (fingerprint %s)\n", c.Self.ShortPeerID, c.Self.Fingerprint)
	select {}
}
