/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package eventbus implements a typed publish/subscribe bus, used in
// place of notification-center-style fan-out and weak back references
// between the Router and its transports: transports and directory
// components publish plain events, the Router (and anything else
// interested) subscribes with a narrow handler. Nothing holds a
// reference back to its publisher.
package eventbus

import "sync"

// Kind tags the event types the core ever publishes or consumes.
type Kind int

const (
	PeerConnected Kind = iota
	PeerDisconnected
	HandshakeCompleted
	InboundMessage
	InboundAck
	InboundReceipt
	FavoriteStatusChanged
	KeyUpdated
	PeerWentOffline
)

// Event is the envelope delivered to subscribers. Payload is one of
// the *Payload types declared below, matching Kind.
type Event struct {
	Kind    Kind
	Payload interface{}
}

type PeerConnectedPayload struct {
	ShortPeerID string
	Transport   string
}

type PeerDisconnectedPayload struct {
	ShortPeerID string
	Transport   string
}

type HandshakeCompletedPayload struct {
	ShortPeerID string
	Fingerprint string
}

type InboundMessagePayload struct {
	SenderShortPeerID string
	Plaintext         string
	MessageID         string
	IsGroup           bool
	Transport         string
}

type InboundAckPayload struct {
	AckID             string
	OriginalMessageID string
	RecipientID       string
	RecipientNickname string
	Hops              int
}

type InboundReceiptPayload struct {
	ReceiptID         string
	OriginalMessageID string
	ReaderID          string
	ReaderNickname    string
}

type FavoriteStatusChangedPayload struct {
	SenderShortPeerID string
	On                bool
	RelayPublicKey    string // empty if not present
}

type KeyUpdatedPayload struct {
	Fingerprint    string
	NewShortPeerID string
}

type PeerWentOfflinePayload struct {
	ShortPeerID string
}

// Handler processes one Event. Handlers run synchronously on the
// publisher's goroutine, in subscription order, exactly like the
// teacher's single-threaded state mutation model: subscribers that
// need to do IO must hand off to their own worker, never block here.
type Handler func(Event)

// Bus is a single-process, multi-producer/multi-consumer fan-out of
// Events to Kind-scoped subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[Kind][]Handler
}

func New() *Bus {
	return &Bus{subs: make(map[Kind][]Handler)}
}

// Subscribe registers handler for events of kind. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(kind Kind, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[kind] = append(b.subs[kind], handler)
	idx := len(b.subs[kind]) - 1

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.subs[kind]
		if idx >= len(handlers) {
			return
		}
		handlers[idx] = nil // leave a hole rather than reslice under concurrent iteration
	}
}

// Publish fans e out to every live subscriber of e.Kind.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[e.Kind]))
	copy(handlers, b.subs[e.Kind])
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(e)
		}
	}
}
