/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package outbox is the per-peer FIFO (spec component C3): queue
// first, flush when reachable, remove only on ack or TTL. It never
// surfaces an error for a missing transport — a message with no
// reachable transport simply stays queued. Queues are held in memory
// only; nothing in this module writes them to the persistence store,
// so queued messages do not survive a restart.
package outbox

import (
	"sync"
	"time"

	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/logger"
)

const (
	// Capacity is the maximum number of in-flight messages retained
	// per peer before the oldest is evicted.
	Capacity = 100
	// ResendCooldown is the minimum time between resend attempts of a
	// message that was already dispatched once.
	ResendCooldown = 30 * time.Second
	// TTL is how long an undelivered message is kept before Cleanup
	// expires it.
	TTL = 24 * time.Hour
)

// Message is an OutgoingMessage (spec §3): a single queued send.
type Message struct {
	MessageID string
	Content   string
	Nickname  string
	CreatedAt time.Time
	SentAt    time.Time // zero value means never sent
}

// Sender is the narrow capability the outbox needs from whatever
// transport the Router picked for this flush pass.
type Sender func(msg Message) error

// Outbox holds one FIFO queue per recipient fingerprint.
type Outbox struct {
	mu  sync.Mutex
	log logger.Logger

	queues map[identity.Fingerprint][]*Message
}

func New(log logger.Logger) *Outbox {
	return &Outbox{log: log, queues: make(map[identity.Fingerprint][]*Message)}
}

// Enqueue appends msg to fp's queue, creation order preserved.
// Overflow evicts the oldest entry and logs a warning (spec §4.3).
func (o *Outbox) Enqueue(fp identity.Fingerprint, msg *Message) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	q := o.queues[fp]
	if len(q) >= Capacity {
		evicted := q[0]
		q = q[1:]
		o.log.Errorf("outbox overflow for %s: evicting oldest message %s", fp, evicted.MessageID)
	}
	o.queues[fp] = append(q, msg)
}

// Flush attempts send for every message in fp's queue whose SentAt is
// zero or older than ResendCooldown, in creation order. send is called
// synchronously and its error is treated as "not sent yet" per spec
// §7: the message simply stays with SentAt unchanged.
func (o *Outbox) Flush(fp identity.Fingerprint, send Sender) {
	o.mu.Lock()
	q := o.queues[fp]
	due := make([]*Message, 0, len(q))
	now := time.Now()
	for _, m := range q {
		if m.SentAt.IsZero() || now.Sub(m.SentAt) >= ResendCooldown {
			due = append(due, m)
		}
	}
	o.mu.Unlock()

	for _, m := range due {
		if err := send(*m); err != nil {
			o.log.Debugf("outbox: send of %s deferred: %v", m.MessageID, err)
			continue
		}
		o.mu.Lock()
		m.SentAt = time.Now()
		o.mu.Unlock()
	}
}

// ConfirmDelivery removes messageID from fp's queue. Other peers'
// queues are not searched.
func (o *Outbox) ConfirmDelivery(fp identity.Fingerprint, messageID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.queues[fp]
	for i, m := range q {
		if m.MessageID == messageID {
			o.queues[fp] = append(q[:i], q[i+1:]...)
			return
		}
	}
}

// ResetSendState clears SentAt for every message queued for fp, so the
// next Flush re-sends everything in order. Called when a peer
// reconnects.
func (o *Outbox) ResetSendState(fp identity.Fingerprint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.queues[fp] {
		m.SentAt = time.Time{}
	}
}

// Cleanup expires (drops) any message older than TTL, across every
// peer's queue. Run periodically by the Lifecycle Controller.
func (o *Outbox) Cleanup(now time.Time) (expired int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for fp, q := range o.queues {
		kept := q[:0]
		for _, m := range q {
			if now.Sub(m.CreatedAt) > TTL {
				expired++
				continue
			}
			kept = append(kept, m)
		}
		o.queues[fp] = kept
	}
	return expired
}

// Len returns the current queue length for fp, mostly for tests and
// host-surface introspection.
func (o *Outbox) Len(fp identity.Fingerprint) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queues[fp])
}

// Fingerprints returns every recipient with at least one queued
// message, in no particular order. Used by the Router to drive
// flush_all across every peer with pending mail.
func (o *Outbox) Fingerprints() []identity.Fingerprint {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]identity.Fingerprint, 0, len(o.queues))
	for fp, q := range o.queues {
		if len(q) > 0 {
			out = append(out, fp)
		}
	}
	return out
}

// Snapshot returns a copy of fp's queue in order. No caller in this
// module persists it.
func (o *Outbox) Snapshot(fp identity.Fingerprint) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	q := o.queues[fp]
	out := make([]Message, len(q))
	for i, m := range q {
		out[i] = *m
	}
	return out
}
