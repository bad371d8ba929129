/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package ackproto

import (
	"testing"
	"time"

	"github.com/meshcourier/core/internal/delivery"
)

func TestEncodeMessageExactShape(t *testing.T) {
	got := EncodeMessage("m2", "hello")
	want := "MSG:m2:hello"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDecodeMessageRoundTrip(t *testing.T) {
	p, err := Decode(EncodeMessage("m2", "hello world: with colon"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind != KindMessage || p.MessageID != "m2" || p.Content != "hello world: with colon" {
		t.Fatalf("unexpected decode: %+v", p)
	}
}

func TestDecodeDelivered(t *testing.T) {
	p, err := Decode(EncodeDelivered("m2"))
	if err != nil || p.Kind != KindDelivered || p.MessageID != "m2" {
		t.Fatalf("unexpected decode: %+v err=%v", p, err)
	}
}

func TestDecodeFavoriteVsUnfavorite(t *testing.T) {
	pf, err := Decode(EncodeFavorite("npub1abc", true))
	if err != nil || pf.Kind != KindFavorited || pf.RelayPublicKey != "npub1abc" {
		t.Fatalf("unexpected favorite decode: %+v err=%v", pf, err)
	}
	pu, err := Decode(EncodeFavorite("npub1abc", false))
	if err != nil || pu.Kind != KindUnfavorited || pu.RelayPublicKey != "npub1abc" {
		t.Fatalf("unexpected unfavorite decode: %+v err=%v", pu, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []string{"", "GARBAGE:x", "MSG:missingcolon", "DELIVERED:", "FAVORITED:"}
	for _, c := range cases {
		if _, err := Decode(c); err != ErrMalformedPayload {
			t.Fatalf("expected ErrMalformedPayload for %q, got %v", c, err)
		}
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	r := delivery.Receipt{
		ReceiptID:         "r1",
		OriginalMessageID: "m1",
		ReaderID:          "bob",
		ReaderNickname:    "Bob",
		Timestamp:         time.Unix(1700000000, 0).UTC(),
	}
	bin, err := EncodeReceiptBinary(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := EncodeRead(bin)
	p, err := Decode(wire)
	if err != nil || p.Kind != KindRead {
		t.Fatalf("unexpected decode: %+v err=%v", p, err)
	}

	got, err := DecodeReceiptBinary(p.ReceiptBinary)
	if err != nil {
		t.Fatalf("unexpected error decoding receipt: %v", err)
	}
	if got != r {
		t.Fatalf("expected round-tripped receipt %+v, got %+v", r, got)
	}
}

func TestReceiptThrottleCapsBurst(t *testing.T) {
	th := NewReceiptThrottle()
	allowed := 0
	for i := 0; i < 10; i++ {
		if th.Allow() {
			allowed++
		}
	}
	if allowed < 1 || allowed > 3 {
		t.Fatalf("expected only a handful of immediate allowances, got %d", allowed)
	}
}
