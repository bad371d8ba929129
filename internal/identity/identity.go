/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package identity derives the stable identifiers the rest of the core
// is keyed on from a peer's long-lived Noise public key: the
// fingerprint (used by the persistent chat store) and the short peer
// id (used on the mesh transport).
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// KeySize is the length in bytes of a Noise static public key.
const KeySize = 32

// ShortIDSize is the length in bytes (pre hex-encoding) of a short peer id.
const ShortIDSize = 8

var shortIDLabel = []byte("meshcourier-short-peer-id-v1|")

// PublicKey is a long-lived Noise static public key.
type PublicKey [KeySize]byte

// ErrInvalidKeyLength is returned when a byte slice cannot be parsed as a PublicKey.
var ErrInvalidKeyLength = errors.New("identity: public key must be 32 bytes")

func ParsePublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != KeySize {
		return pk, ErrInvalidKeyLength
	}
	copy(pk[:], b)
	return pk, nil
}

// Fingerprint is the hex-encoded SHA-256 of a peer's long-lived public
// key. It is the primary key of a chat room and never changes for a
// given identity.
type Fingerprint string

// Fingerprint computes the stable fingerprint for pk.
func (pk PublicKey) Fingerprint() Fingerprint {
	sum := sha256.Sum256(pk[:])
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// ShortPeerID is the 16-hex ephemeral handle a peer presents on the mesh.
type ShortPeerID string

// ShortPeerID derives the mesh-visible short id for pk. The derivation is
// deterministic so that the same identity always produces the same
// short id, but domain-separated from Fingerprint so neither value can
// be recovered from the other without the full key.
func (pk PublicKey) ShortPeerID() ShortPeerID {
	h := sha256.New()
	h.Write(shortIDLabel)
	h.Write(pk[:])
	sum := h.Sum(nil)
	return ShortPeerID(hex.EncodeToString(sum[:ShortIDSize]))
}

// Identity bundles everything the rest of the core needs to know about
// a single long-lived key: the key itself and its two derived
// identifiers.
type Identity struct {
	PublicKey   PublicKey
	Fingerprint Fingerprint
	ShortPeerID ShortPeerID
}

// New derives an Identity from a raw public key.
func New(pk PublicKey) Identity {
	return Identity{
		PublicKey:   pk,
		Fingerprint: pk.Fingerprint(),
		ShortPeerID: pk.ShortPeerID(),
	}
}
