/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package ackproto implements the Ack/Receipt Protocol: the bit-exact
// ASCII-tagged wire shapes carried over the relay transport, and the
// outbound receipt rate limiter that keeps the relay from banning
// chatty nodes.
package ackproto

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Wire tag prefixes, kept byte-for-byte so older and newer nodes stay
// wire-compatible.
const (
	tagMessage    = "MSG:"
	tagDelivered  = "DELIVERED:"
	tagRead       = "READ:"
	tagFavorited  = "FAVORITED:"
	tagUnfavorite = "UNFAVORITED:"
)

// ErrMalformedPayload is returned for any inbound payload that doesn't
// parse as one of the known tagged shapes; callers log and drop.
var ErrMalformedPayload = errors.New("ackproto: malformed inbound payload")

// Payload is the parsed, tagged form of a relay wire message.
type Payload struct {
	Kind           PayloadKind
	MessageID      string // MSG, DELIVERED
	Content        string // MSG
	ReceiptBinary  []byte // READ, base64-decoded
	RelayPublicKey string // FAVORITED, UNFAVORITED (bech32, opaque to us)
}

type PayloadKind int

const (
	KindMessage PayloadKind = iota
	KindDelivered
	KindRead
	KindFavorited
	KindUnfavorited
)

// EncodeMessage produces the exact `MSG:<message_id>:<content>` wire shape.
func EncodeMessage(messageID, content string) string {
	return tagMessage + messageID + ":" + content
}

// EncodeDelivered produces `DELIVERED:<message_id>`.
func EncodeDelivered(messageID string) string {
	return tagDelivered + messageID
}

// EncodeRead produces `READ:<base64 of receipt binary>`.
func EncodeRead(receiptBinary []byte) string {
	return tagRead + base64.StdEncoding.EncodeToString(receiptBinary)
}

// EncodeFavorite produces `FAVORITED:<key>` or `UNFAVORITED:<key>`.
func EncodeFavorite(relayPublicKeyBech32 string, on bool) string {
	if on {
		return tagFavorited + relayPublicKeyBech32
	}
	return tagUnfavorite + relayPublicKeyBech32
}

// Decode parses a raw relay wire string into its tagged Payload.
func Decode(raw string) (Payload, error) {
	switch {
	case strings.HasPrefix(raw, tagMessage):
		rest := raw[len(tagMessage):]
		idx := strings.IndexByte(rest, ':')
		if idx < 0 {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindMessage, MessageID: rest[:idx], Content: rest[idx+1:]}, nil

	case strings.HasPrefix(raw, tagDelivered):
		id := raw[len(tagDelivered):]
		if id == "" {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindDelivered, MessageID: id}, nil

	case strings.HasPrefix(raw, tagRead):
		b64 := raw[len(tagRead):]
		decoded, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindRead, ReceiptBinary: decoded}, nil

	// UNFAVORITED is checked before FAVORITED. The two tags are
	// prefix-disjoint ("UNFAVORITED:" does not start with "FAVORITED:"),
	// so the order is not load-bearing; it is kept explicit anyway.
	case strings.HasPrefix(raw, tagUnfavorite):
		key := raw[len(tagUnfavorite):]
		if key == "" {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindUnfavorited, RelayPublicKey: key}, nil

	case strings.HasPrefix(raw, tagFavorited):
		key := raw[len(tagFavorited):]
		if key == "" {
			return Payload{}, ErrMalformedPayload
		}
		return Payload{Kind: KindFavorited, RelayPublicKey: key}, nil

	default:
		return Payload{}, ErrMalformedPayload
	}
}
