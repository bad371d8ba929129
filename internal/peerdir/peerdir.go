/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package peerdir is the Peer Directory: the one place that resolves
// between a transport's short_peer_id, a chat room's fingerprint, and
// a relay transport's public key. It is read by every transport but
// only ever written on the core executor (the Router's goroutine).
package peerdir

import (
	"sync"
	"time"

	"github.com/meshcourier/core/internal/eventbus"
	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/logger"
)

// staleAfter is how long a per-transport visibility entry survives
// without being refreshed by Observe before PruneStale removes it.
const staleAfter = 5 * time.Minute

// Transport names the transport kinds a peer can be visible on.
type Transport string

// Visibility records the last time a peer was seen on one transport.
type Visibility struct {
	LastSeen time.Time
	RSSI     *int // optional, mesh-only
}

// Record is the directory's entry for one long-lived identity.
type Record struct {
	Fingerprint    identity.Fingerprint
	ShortPeerID    identity.ShortPeerID
	Nickname       string
	RelayPublicKey string // empty when not yet learned
	Favorite       bool
	Blocked        bool

	transports map[Transport]Visibility
}

// Transports returns the set of transports the peer is currently
// visible on (i.e. not yet pruned as stale).
func (r *Record) Transports() []Transport {
	out := make([]Transport, 0, len(r.transports))
	for t := range r.transports {
		out = append(out, t)
	}
	return out
}

// Directory is the Peer Directory (spec component C1).
type Directory struct {
	mu  sync.RWMutex
	log logger.Logger
	bus *eventbus.Bus

	byFingerprint map[identity.Fingerprint]*Record
	byShortID     map[identity.ShortPeerID]identity.Fingerprint
	byRelayKey    map[string]identity.Fingerprint
}

func New(log logger.Logger, bus *eventbus.Bus) *Directory {
	return &Directory{
		log:           log,
		bus:           bus,
		byFingerprint: make(map[identity.Fingerprint]*Record),
		byShortID:     make(map[identity.ShortPeerID]identity.Fingerprint),
		byRelayKey:    make(map[string]identity.Fingerprint),
	}
}

func (d *Directory) getOrCreateLocked(fp identity.Fingerprint, short identity.ShortPeerID, nickname string) *Record {
	rec, ok := d.byFingerprint[fp]
	if !ok {
		rec = &Record{
			Fingerprint: fp,
			ShortPeerID: short,
			Nickname:    nickname,
			transports:  make(map[Transport]Visibility),
		}
		d.byFingerprint[fp] = rec
	}
	return rec
}

// Observe records a sighting of short on transport, creating the
// directory entry on first sighting. rssi is nil when the transport
// doesn't report signal strength.
func (d *Directory) Observe(fp identity.Fingerprint, short identity.ShortPeerID, nickname string, t Transport, rssi *int) {
	d.mu.Lock()

	rec := d.getOrCreateLocked(fp, short, nickname)

	keyUpdated := false
	if rec.ShortPeerID != short {
		old := rec.ShortPeerID
		rec.ShortPeerID = short
		delete(d.byShortID, old)
		keyUpdated = rec.Favorite
	}
	if nickname != "" {
		rec.Nickname = nickname
	}
	rec.transports[t] = Visibility{LastSeen: time.Now(), RSSI: rssi}
	d.byShortID[short] = fp
	d.mu.Unlock()

	if keyUpdated {
		d.bus.Publish(eventbus.Event{
			Kind: eventbus.KeyUpdated,
			Payload: eventbus.KeyUpdatedPayload{
				Fingerprint:    string(fp),
				NewShortPeerID: string(short),
			},
		})
	}
}

// Resolve looks up a record by fingerprint, short peer id, or relay
// public key, trying each in order until one matches.
func (d *Directory) Resolve(fingerprint identity.Fingerprint, short identity.ShortPeerID, relayKey string) (*Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if fingerprint != "" {
		if rec, ok := d.byFingerprint[fingerprint]; ok {
			return rec, true
		}
	}
	if short != "" {
		if fp, ok := d.byShortID[short]; ok {
			rec, ok := d.byFingerprint[fp]
			return rec, ok
		}
	}
	if relayKey != "" {
		if fp, ok := d.byRelayKey[relayKey]; ok {
			rec, ok := d.byFingerprint[fp]
			return rec, ok
		}
	}
	return nil, false
}

// ResolveFingerprint is the common case of Resolve: map a short_peer_id
// seen on a transport back to the chat-room fingerprint.
func (d *Directory) ResolveFingerprint(short identity.ShortPeerID) (identity.Fingerprint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fp, ok := d.byShortID[short]
	return fp, ok
}

// SetFavorite toggles the bilateral bookmark. Exchanging favorite
// status is what reveals the relay public key to this peer (spec
// GLOSSARY); RecordRelayKey is called separately once that exchange
// completes.
func (d *Directory) SetFavorite(fp identity.Fingerprint, on bool) {
	d.mu.Lock()
	rec, ok := d.byFingerprint[fp]
	if !ok {
		d.mu.Unlock()
		return
	}
	rec.Favorite = on
	d.mu.Unlock()
}

// RecordRelayKey binds a relay_public_key to fp, learned via a
// favorites exchange, and emits KeyUpdated so the Router re-flushes
// the peer's outbox over the newly-reachable relay transport.
func (d *Directory) RecordRelayKey(fp identity.Fingerprint, relayKey string) {
	d.mu.Lock()
	rec, ok := d.byFingerprint[fp]
	if !ok {
		d.mu.Unlock()
		return
	}
	changed := rec.RelayPublicKey != relayKey
	rec.RelayPublicKey = relayKey
	if relayKey != "" {
		d.byRelayKey[relayKey] = fp
	}
	short := rec.ShortPeerID
	d.mu.Unlock()

	if changed {
		d.bus.Publish(eventbus.Event{
			Kind: eventbus.KeyUpdated,
			Payload: eventbus.KeyUpdatedPayload{
				Fingerprint:    string(fp),
				NewShortPeerID: string(short),
			},
		})
	}
}

// SetBlocked toggles the block flag.
func (d *Directory) SetBlocked(fp identity.Fingerprint, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.byFingerprint[fp]; ok {
		rec.Blocked = on
	}
}

// IsBlocked reports whether fp is currently blocked. Unknown peers are
// never blocked.
func (d *Directory) IsBlocked(fp identity.Fingerprint) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byFingerprint[fp]
	return ok && rec.Blocked
}

// PeersVisibleOn returns the fingerprints of every peer currently
// visible on t (i.e. with a non-stale Visibility entry).
func (d *Directory) PeersVisibleOn(t Transport) []identity.Fingerprint {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []identity.Fingerprint
	for fp, rec := range d.byFingerprint {
		if _, ok := rec.transports[t]; ok {
			out = append(out, fp)
		}
	}
	return out
}

// PruneStale removes per-transport visibility entries older than
// staleAfter. The PeerRecord itself is retained regardless, per spec,
// when the peer is favorited; non-favorited records with no remaining
// visibility are dropped entirely.
func (d *Directory) PruneStale(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for fp, rec := range d.byFingerprint {
		for t, vis := range rec.transports {
			if now.Sub(vis.LastSeen) > staleAfter {
				delete(rec.transports, t)
			}
		}
		if len(rec.transports) == 0 && !rec.Favorite {
			delete(d.byFingerprint, fp)
			delete(d.byShortID, rec.ShortPeerID)
			if rec.RelayPublicKey != "" {
				delete(d.byRelayKey, rec.RelayPublicKey)
			}
		}
	}
}

// PanicWipe erases the entire directory. Used only by the user-
// triggered CLI panic wipe.
func (d *Directory) PanicWipe() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byFingerprint = make(map[identity.Fingerprint]*Record)
	d.byShortID = make(map[identity.ShortPeerID]identity.Fingerprint)
	d.byRelayKey = make(map[string]identity.Fingerprint)
}

// Snapshot returns a shallow copy of every record, for persistence.
func (d *Directory) Snapshot() []Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Record, 0, len(d.byFingerprint))
	for _, rec := range d.byFingerprint {
		out = append(out, *rec)
	}
	return out
}
