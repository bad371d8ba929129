/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package transport defines the capability interface every concrete
// transport (mesh, relay) implements: a uniform send surface plus a
// narrow set of reachability predicates, with no message state kept
// here — all buffering lives in the outbox.
package transport

import "github.com/meshcourier/core/internal/identity"

// Kind tags which concrete transport an implementation is.
type Kind string

const (
	Mesh  Kind = "mesh"
	Relay Kind = "relay"
)

// Capability marks whether a transport's sends succeed based on an
// active link (mesh) or on bare reachability (relay), so the Router's
// selection algorithm can be written once over both.
type Capability int

const (
	// ConnectivityDriven transports (mesh) can only send while a link
	// and secure session are actually up.
	ConnectivityDriven Capability = iota
	// ReachabilityDriven transports (relay) can send whenever the
	// recipient's address is known, regardless of live connectivity.
	ReachabilityDriven
)

// Transport is the uniform surface the Router drives. Implementations
// must never block on send: a submit that would block on a handshake
// must return immediately and let HandshakeCompleted arrive later as
// an event.
type Transport interface {
	Kind() Kind
	Capability() Capability

	// IsPeerConnected reports an active link (mesh: paired + secure
	// session established). Relay transports always return false here;
	// use IsPeerReachable instead.
	IsPeerConnected(short identity.ShortPeerID) bool

	// IsPeerReachable reports whether a send could be attempted at all,
	// e.g. the relay knows the peer's relay_public_key.
	IsPeerReachable(short identity.ShortPeerID) bool

	SendPrivate(text string, to identity.ShortPeerID, nickname string, messageID string) error
	SendDeliveryAck(messageID string, to identity.ShortPeerID) error
	SendReadReceipt(receipt []byte, to identity.ShortPeerID) error
	SendFavoriteNotification(to identity.ShortPeerID, on bool) error
	TriggerHandshake(to identity.ShortPeerID)
}

// Registry is the Router-owned set of available transports. Transports
// never hold a reference back to the Router or to each other (Design
// Notes: break the Router<->Transport cycle via the event bus plus
// this registry).
type Registry struct {
	transports []Transport
}

func NewRegistry(transports ...Transport) *Registry {
	return &Registry{transports: transports}
}

func (r *Registry) All() []Transport {
	return r.transports
}

// SelectForSend implements the Router's deterministic transport
// selection: prefer a connectivity-driven transport with an active
// link, else fall back to any reachability-driven transport, else
// report none available.
func (r *Registry) SelectForSend(short identity.ShortPeerID) (Transport, bool) {
	for _, t := range r.transports {
		if t.Capability() == ConnectivityDriven && t.IsPeerConnected(short) {
			return t, true
		}
	}
	for _, t := range r.transports {
		if t.Capability() == ReachabilityDriven && t.IsPeerReachable(short) {
			return t, true
		}
	}
	return nil, false
}

// SelectForAck picks the first transport reachable at all right now,
// for sending acks/receipts, which are never queued.
func (r *Registry) SelectForAck(short identity.ShortPeerID) (Transport, bool) {
	return r.SelectForSend(short)
}
