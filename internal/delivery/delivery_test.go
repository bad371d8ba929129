/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package delivery

import (
	"sync"
	"testing"
	"time"

	"github.com/meshcourier/core/internal/logger"
)

type stateRecorder struct {
	mu   sync.Mutex
	seen []State
}

func (r *stateRecorder) record(_ string, st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, st)
}

func (r *stateRecorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.seen))
	for i, s := range r.seen {
		out[i] = s.Kind
	}
	return out
}

func TestTrackEmitsOnlySent(t *testing.T) {
	rec := &stateRecorder{}
	tr := New(logger.Nop(), rec.record, nil)
	tr.Track("m1", "fpA", 1, false)

	kinds := rec.kinds()
	if len(kinds) != 1 || kinds[0] != Sent {
		t.Fatalf("expected a single Sent transition after Track, got %v", kinds)
	}
}

func TestDirectAckTransitionsToDeliveredAndDropsRecord(t *testing.T) {
	rec := &stateRecorder{}
	tr := New(logger.Nop(), rec.record, nil)
	tr.Track("m1", "fpA", 1, false)

	tr.OnAck(Ack{AckID: "ack1", OriginalMessageID: "m1", RecipientID: "bob", RecipientNickname: "bob"})

	kinds := rec.kinds()
	if kinds[len(kinds)-1] != Delivered {
		t.Fatalf("expected last state Delivered, got %v", kinds)
	}
	if _, ok := tr.State("m1"); ok {
		t.Fatal("expected record to be dropped after direct delivery")
	}
}

func TestDuplicateAckIsIgnored(t *testing.T) {
	rec := &stateRecorder{}
	tr := New(logger.Nop(), rec.record, nil)
	tr.Track("m1", "fpA", 1, false)

	tr.OnAck(Ack{AckID: "ack1", OriginalMessageID: "m1", RecipientID: "bob"})
	before := len(rec.kinds())
	tr.OnAck(Ack{AckID: "ack1", OriginalMessageID: "m1", RecipientID: "bob"})
	after := len(rec.kinds())

	if before != after {
		t.Fatalf("duplicate ack should not produce another state change: before=%d after=%d", before, after)
	}
}

func TestGroupPartialDeliverySequence(t *testing.T) {
	rec := &stateRecorder{}
	tr := New(logger.Nop(), rec.record, nil)
	tr.Track("m6", "group", 5, false)

	tr.OnAck(Ack{AckID: "a1", OriginalMessageID: "m6", RecipientID: "p1"})
	tr.OnAck(Ack{AckID: "a2", OriginalMessageID: "m6", RecipientID: "p2"})
	tr.OnAck(Ack{AckID: "a3", OriginalMessageID: "m6", RecipientID: "p3"})

	kinds := rec.kinds()
	want := []Kind{Sent, PartiallyDelivered, PartiallyDelivered, Delivered}
	if len(kinds) != len(want) {
		t.Fatalf("expected sequence %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected sequence %v, got %v", want, kinds)
		}
	}

	if _, ok := tr.State("m6"); ok {
		t.Fatal("expected group record to be dropped once threshold reached")
	}
}

func TestGenerateAckOnlyOncePerMessage(t *testing.T) {
	tr := New(logger.Nop(), nil, nil)

	_, ok1 := tr.GenerateAck("m2", "self", "me", 0, "ack-a")
	_, ok2 := tr.GenerateAck("m2", "self", "me", 0, "ack-b")

	if !ok1 {
		t.Fatal("expected first GenerateAck call to succeed")
	}
	if ok2 {
		t.Fatal("expected second GenerateAck call for same message id to be suppressed")
	}
}

func TestOnReadTransitionsToRead(t *testing.T) {
	rec := &stateRecorder{}
	tr := New(logger.Nop(), rec.record, nil)
	tr.Track("m1", "fpA", 1, false)

	tr.OnRead(Receipt{OriginalMessageID: "m1", ReaderNickname: "bob", Timestamp: time.Now()})

	kinds := rec.kinds()
	if kinds[len(kinds)-1] != Read {
		t.Fatalf("expected last state Read, got %v", kinds)
	}
}

func TestFavoriteFailsOnceRetriesExhausted(t *testing.T) {
	rec := &stateRecorder{}
	retries := 0
	tr := New(logger.Nop(), rec.record, func(string) { retries++ })

	// Exercise the fail side of the retry-vs-fail branch directly rather
	// than waiting on real timers.
	tr.Track("m1", "favA", 1, true)
	r := tr.records["m1"]
	r.retries = MaxRetries // already exhausted retries

	tr.onTimeout("m1")

	kinds := rec.kinds()
	if kinds[len(kinds)-1] != Failed {
		t.Fatalf("expected Failed once retries exhausted, got %v", kinds)
	}
}

func TestCleanupDropsOldRecords(t *testing.T) {
	tr := New(logger.Nop(), nil, nil)
	tr.Track("m1", "fpA", 1, false)
	tr.records["m1"].firstSeenAt = time.Now().Add(-2 * time.Hour)

	dropped := tr.Cleanup(time.Now())
	if dropped != 1 {
		t.Fatalf("expected 1 dropped record, got %d", dropped)
	}
	if _, ok := tr.State("m1"); ok {
		t.Fatal("expected record to be gone after cleanup")
	}
}
