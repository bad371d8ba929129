/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package core is the facade that wires every component together:
// Peer Directory, Outbox, Delivery Tracker, Router, Chat Store,
// Ack/Receipt Protocol, and Lifecycle Controller, composed explicitly
// at construction rather than reached for as singletons.
package core

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/meshcourier/core/internal/ackproto"
	"github.com/meshcourier/core/internal/chatstore"
	"github.com/meshcourier/core/internal/config"
	"github.com/meshcourier/core/internal/delivery"
	"github.com/meshcourier/core/internal/eventbus"
	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/lifecycle"
	"github.com/meshcourier/core/internal/logger"
	"github.com/meshcourier/core/internal/outbox"
	"github.com/meshcourier/core/internal/peerdir"
	"github.com/meshcourier/core/internal/router"
	"github.com/meshcourier/core/internal/store"
	"github.com/meshcourier/core/internal/transport"
)

// Router is the assembled messaging core. Hosts (the CLI, or any other
// embedder) talk to the fields directly rather than through yet
// another indirection layer. The wire-selection logic itself lives in
// internal/router and is reachable here as Dispatch.
type Router struct {
	Config config.Config
	Log    logger.Logger
	Bus    *eventbus.Bus

	Self identity.Identity

	Dir       *peerdir.Directory
	Outbox    *outbox.Outbox
	Tracker   *delivery.Tracker
	Throttle  *ackproto.ReceiptThrottle
	Registry  *transport.Registry
	Dispatch  *router.Router
	Chat      *chatstore.Store
	Lifecycle *lifecycle.Controller
	KV        store.KV
}

// New assembles a Router from cfg, self's identity, and the already-
// constructed set of transports (mesh/relay) it should drive.
func New(cfg config.Config, self identity.Identity, transports ...transport.Transport) (*Router, error) {
	log := logger.New(levelFromString(cfg.LogLevel), "meshcourier")

	kv, err := store.OpenBoltStore(filepath.Join(cfg.DataDir, "meshcourier.db"))
	if err != nil {
		return nil, fmt.Errorf("core: opening store: %w", err)
	}

	bus := eventbus.New()
	dir := peerdir.New(log.With(), bus)
	out := outbox.New(log.With())
	registry := transport.NewRegistry(transports...)
	throttle := ackproto.NewReceiptThrottle()

	c := &Router{
		Config:   cfg,
		Log:      log,
		Bus:      bus,
		Self:     self,
		Dir:      dir,
		Outbox:   out,
		Throttle: throttle,
		Registry: registry,
		KV:       kv,
	}

	c.Tracker = delivery.New(log.With(), c.onDeliveryStateChange, c.onDeliveryRetry)
	c.Chat = chatstore.New(log.With(), bus, c.sendViaRouter)
	c.Dispatch = router.New(log.With(), bus, dir, registry, out, c.Tracker, throttle, self.ShortPeerID, cfg.Nickname)

	c.Lifecycle = lifecycle.New(log.With(), lifecycle.Hooks{
		CleanupOutbox:    func(now time.Time) { out.Cleanup(now) },
		CleanupDelivery:  func(now time.Time) { c.Tracker.Cleanup(now) },
		CleanupChatStore: func(now time.Time) { c.Chat.Cleanup(now) },
		FlushAll:         c.Dispatch.FlushAll,
		ProbeRelay:       c.probeRelay,
	})

	c.subscribeInboundEvents()
	c.loadPersistedState()

	return c, nil
}

// sendViaRouter adapts chatstore.SendFunc onto the Router, so the chat
// store never imports transport or identity send details directly.
func (c *Router) sendViaRouter(fp identity.Fingerprint, nickname, content, messageID string) {
	c.Dispatch.SendPrivateWithID(fp, content, nickname, messageID)
}

func (c *Router) onDeliveryStateChange(messageID string, st delivery.State) {
	c.Bus.Publish(eventbus.Event{Kind: eventbus.InboundAck, Payload: eventbus.InboundAckPayload{
		OriginalMessageID: messageID,
	}})
}

func (c *Router) onDeliveryRetry(messageID string) {
	c.Log.Debugf("retrying delivery of %s", messageID)
}

func (c *Router) probeRelay() bool {
	for _, t := range c.Registry.All() {
		if t.Kind() == transport.Relay {
			return true
		}
	}
	return false
}

// subscribeInboundEvents wires the transports' InboundMessage events
// into the chat store's history, and PeerConnected/PeerDisconnected/
// PeerWentOffline into the chat store's online state, using typed,
// subscribable events in place of callback-style notification fan-out.
// InboundAck and InboundReceipt are not subscribed here, so inbound
// acks and read receipts do not reach the delivery tracker through
// this facade.
func (c *Router) subscribeInboundEvents() {
	c.Bus.Subscribe(eventbus.InboundMessage, func(e eventbus.Event) {
		p := e.Payload.(eventbus.InboundMessagePayload)
		fp, ok := c.Dir.ResolveFingerprint(identity.ShortPeerID(p.SenderShortPeerID))
		if !ok {
			return
		}
		rec, _ := c.Dir.Resolve(fp, "", "")
		nickname := ""
		if rec != nil {
			nickname = rec.Nickname
		}
		c.Chat.RecordIncoming(p.MessageID, p.Plaintext, fp, nickname)
	})

	c.Bus.Subscribe(eventbus.PeerConnected, func(e eventbus.Event) {
		p := e.Payload.(eventbus.PeerConnectedPayload)
		if fp, ok := c.Dir.ResolveFingerprint(identity.ShortPeerID(p.ShortPeerID)); ok {
			c.Chat.PeerCameOnline(identity.ShortPeerID(p.ShortPeerID), fp, "")
		}
	})
	c.Bus.Subscribe(eventbus.PeerDisconnected, func(e eventbus.Event) {
		p := e.Payload.(eventbus.PeerDisconnectedPayload)
		c.Chat.PeerWentOffline(identity.ShortPeerID(p.ShortPeerID))
	})
	c.Bus.Subscribe(eventbus.PeerWentOffline, func(e eventbus.Event) {
		p := e.Payload.(eventbus.PeerWentOfflinePayload)
		c.Chat.PeerWentOffline(identity.ShortPeerID(p.ShortPeerID))
	})
}

// Start begins the Lifecycle Controller's maintenance timers.
func (c *Router) Start() {
	c.Lifecycle.Start()
}

// Stop cancels every timer and closes the persistence store.
func (c *Router) Stop() error {
	c.Lifecycle.Stop()
	return c.KV.Close()
}

// PanicWipe erases the peer directory, chat store, and on-disk
// persistence entirely, per the CLI's panic_wipe command.
func (c *Router) PanicWipe() error {
	c.Dir.PanicWipe()
	c.Chat.PanicWipe()
	return c.KV.Wipe()
}

// persistedPeer is the JSON shape a peerdir.Record is saved as.
type persistedPeer struct {
	Fingerprint    string `json:"fingerprint"`
	ShortPeerID    string `json:"short_peer_id"`
	Nickname       string `json:"nickname"`
	RelayPublicKey string `json:"relay_public_key"`
	Favorite       bool   `json:"favorite"`
	Blocked        bool   `json:"blocked"`
}

// PersistPeers snapshots the directory to the peers bucket. It is
// called by the CLI's toggle_favorite and toggle_block commands; Stop
// and the Lifecycle Controller do not call it. The directory itself has
// no disk awareness, so persistence stays entirely in this package.
// Only the peers bucket is written and read back: chat rooms, the
// outbox, pending invitations and the selected room are not persisted.
func (c *Router) PersistPeers() error {
	for _, rec := range c.Dir.Snapshot() {
		b, err := json.Marshal(persistedPeer{
			Fingerprint:    string(rec.Fingerprint),
			ShortPeerID:    string(rec.ShortPeerID),
			Nickname:       rec.Nickname,
			RelayPublicKey: rec.RelayPublicKey,
			Favorite:       rec.Favorite,
			Blocked:        rec.Blocked,
		})
		if err != nil {
			return err
		}
		if err := c.KV.Set(store.BucketPeers, string(rec.Fingerprint), b); err != nil {
			return err
		}
	}
	return nil
}

// loadPersistedState replays the peers bucket back into the directory
// on startup.
func (c *Router) loadPersistedState() {
	_ = c.KV.ForEach(store.BucketPeers, func(key string, value []byte) error {
		var p persistedPeer
		if err := json.Unmarshal(value, &p); err != nil {
			c.Log.Errorf("core: dropping malformed persisted peer %s: %v", key, err)
			return nil
		}
		c.Dir.Observe(identity.Fingerprint(p.Fingerprint), identity.ShortPeerID(p.ShortPeerID), p.Nickname, peerdir.Transport(""), nil)
		if p.Favorite {
			c.Dir.SetFavorite(identity.Fingerprint(p.Fingerprint), true)
		}
		if p.Blocked {
			c.Dir.SetBlocked(identity.Fingerprint(p.Fingerprint), true)
		}
		if p.RelayPublicKey != "" {
			c.Dir.RecordRelayKey(identity.Fingerprint(p.Fingerprint), p.RelayPublicKey)
		}
		return nil
	})
}

func levelFromString(s string) int {
	switch s {
	case "debug":
		return logger.LevelDebug
	case "error":
		return logger.LevelError
	case "silent":
		return logger.LevelSilent
	default:
		return logger.LevelInfo
	}
}
