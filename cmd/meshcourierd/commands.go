/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/meshcourier/core/core"
	"github.com/meshcourier/core/internal/identity"
)

func cmdPanicWipe(c *core.Router) {
	if err := c.PanicWipe(); err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: panic_wipe: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wiped")
}

func cmdToggleFavorite(c *core.Router, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: meshcourierd toggle_favorite <fingerprint> <on|off>")
		os.Exit(1)
	}
	fp := identity.Fingerprint(args[0])
	on := parseBool(args[1])

	c.Dir.SetFavorite(fp, on)
	if err := c.Dispatch.SendFavoriteNotification(fp, on); err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: toggle_favorite: %v\n", err)
	}
	if err := c.PersistPeers(); err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: persisting peers: %v\n", err)
	}
}

func cmdToggleBlock(c *core.Router, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: meshcourierd toggle_block <fingerprint> <on|off>")
		os.Exit(1)
	}
	fp := identity.Fingerprint(args[0])
	c.Dir.SetBlocked(fp, parseBool(args[1]))
	if err := c.PersistPeers(); err != nil {
		fmt.Fprintf(os.Stderr, "meshcourierd: persisting peers: %v\n", err)
	}
}

func cmdSelectRoom(c *core.Router, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: meshcourierd select_room <fingerprint|->")
		os.Exit(1)
	}
	fp := identity.Fingerprint(args[0])
	if args[0] == "-" {
		fp = ""
	}
	c.Chat.SelectRoom(fp)
}

func cmdEnqueueSend(c *core.Router, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: meshcourierd enqueue_send <fingerprint> <message...>")
		os.Exit(1)
	}
	fp := identity.Fingerprint(args[0])
	content := args[1]
	for _, extra := range args[2:] {
		content += " " + extra
	}

	messageID := uuid.NewString()
	c.Chat.EnqueueLocalSend(fp, content, messageID)
	fmt.Println(messageID)
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return s == "on"
	}
	return v
}
