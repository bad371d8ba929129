/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package transport

import (
	"testing"

	"github.com/meshcourier/core/internal/identity"
)

// fakeTransport is a minimal in-memory Transport used by this
// package's tests.
type fakeTransport struct {
	kind        Kind
	capability  Capability
	connected   map[identity.ShortPeerID]bool
	reachable   map[identity.ShortPeerID]bool
	sentPrivate []string
}

func newFake(kind Kind, cap Capability) *fakeTransport {
	return &fakeTransport{
		kind:       kind,
		capability: cap,
		connected:  make(map[identity.ShortPeerID]bool),
		reachable:  make(map[identity.ShortPeerID]bool),
	}
}

func (f *fakeTransport) Kind() Kind             { return f.kind }
func (f *fakeTransport) Capability() Capability { return f.capability }
func (f *fakeTransport) IsPeerConnected(short identity.ShortPeerID) bool {
	return f.connected[short]
}
func (f *fakeTransport) IsPeerReachable(short identity.ShortPeerID) bool {
	return f.reachable[short]
}
func (f *fakeTransport) SendPrivate(text string, to identity.ShortPeerID, nickname, messageID string) error {
	f.sentPrivate = append(f.sentPrivate, messageID)
	return nil
}
func (f *fakeTransport) SendDeliveryAck(messageID string, to identity.ShortPeerID) error { return nil }
func (f *fakeTransport) SendReadReceipt(receipt []byte, to identity.ShortPeerID) error   { return nil }
func (f *fakeTransport) SendFavoriteNotification(to identity.ShortPeerID, on bool) error {
	return nil
}
func (f *fakeTransport) TriggerHandshake(to identity.ShortPeerID) {}

func TestSelectForSendPrefersMesh(t *testing.T) {
	mesh := newFake(Mesh, ConnectivityDriven)
	relay := newFake(Relay, ReachabilityDriven)
	mesh.connected["short1"] = true
	relay.reachable["short1"] = true

	reg := NewRegistry(relay, mesh) // intentionally relay-first in the list
	got, ok := reg.SelectForSend("short1")
	if !ok || got.Kind() != Mesh {
		t.Fatalf("expected mesh to be preferred, got %v ok=%v", got, ok)
	}
}

func TestSelectForSendFallsBackToRelay(t *testing.T) {
	mesh := newFake(Mesh, ConnectivityDriven)
	relay := newFake(Relay, ReachabilityDriven)
	relay.reachable["short1"] = true

	reg := NewRegistry(mesh, relay)
	got, ok := reg.SelectForSend("short1")
	if !ok || got.Kind() != Relay {
		t.Fatalf("expected relay fallback, got %v ok=%v", got, ok)
	}
}

func TestSelectForSendNoneAvailable(t *testing.T) {
	mesh := newFake(Mesh, ConnectivityDriven)
	relay := newFake(Relay, ReachabilityDriven)

	reg := NewRegistry(mesh, relay)
	_, ok := reg.SelectForSend("short1")
	if ok {
		t.Fatal("expected no transport to be selectable")
	}
}
