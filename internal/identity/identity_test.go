/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package identity

import "testing"

func testKey(b byte) PublicKey {
	var pk PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	pk := testKey(0x42)
	if pk.Fingerprint() != pk.Fingerprint() {
		t.Fatal("fingerprint is not stable across calls")
	}
	if len(pk.Fingerprint()) != 64 {
		t.Fatalf("fingerprint should be 64 hex chars, got %d", len(pk.Fingerprint()))
	}
}

func TestShortPeerIDLength(t *testing.T) {
	pk := testKey(0x07)
	id := pk.ShortPeerID()
	if len(id) != 16 {
		t.Fatalf("short peer id should be 16 hex chars, got %d (%s)", len(id), id)
	}
}

func TestDistinctKeysDiffer(t *testing.T) {
	a, b := testKey(1), testKey(2)
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatal("distinct keys produced the same fingerprint")
	}
	if a.ShortPeerID() == b.ShortPeerID() {
		t.Fatal("distinct keys produced the same short peer id")
	}
}

func TestShortPeerIDNotFingerprintPrefix(t *testing.T) {
	pk := testKey(0x99)
	fp := string(pk.Fingerprint())
	short := string(pk.ShortPeerID())
	if fp[:len(short)] == short {
		t.Fatal("short peer id should be domain-separated from the fingerprint")
	}
}

func TestParsePublicKeyLength(t *testing.T) {
	if _, err := ParsePublicKey(make([]byte, 31)); err == nil {
		t.Fatal("expected error for wrong-length key")
	}
	if _, err := ParsePublicKey(make([]byte, KeySize)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewIdentity(t *testing.T) {
	pk := testKey(0xAB)
	id := New(pk)
	if id.Fingerprint != pk.Fingerprint() || id.ShortPeerID != pk.ShortPeerID() {
		t.Fatal("New did not derive matching identifiers")
	}
}
