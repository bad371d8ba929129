/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package outbox

import (
	"errors"
	"testing"
	"time"

	"github.com/meshcourier/core/internal/logger"
)

func TestEnqueueFlushOrderPreserved(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "m1", CreatedAt: time.Now()})
	ob.Enqueue("fp", &Message{MessageID: "m2", CreatedAt: time.Now()})
	ob.Enqueue("fp", &Message{MessageID: "m3", CreatedAt: time.Now()})

	var order []string
	ob.Flush("fp", func(m Message) error {
		order = append(order, m.MessageID)
		return nil
	})

	if len(order) != 3 || order[0] != "m1" || order[1] != "m2" || order[2] != "m3" {
		t.Fatalf("expected insertion order m1,m2,m3, got %v", order)
	}
}

func TestFlushFailureLeavesMessageQueued(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "m1", CreatedAt: time.Now()})

	ob.Flush("fp", func(m Message) error { return errors.New("no reachable transport") })

	if ob.Len("fp") != 1 {
		t.Fatal("send failure must not remove the message from the outbox")
	}
}

func TestConfirmDeliveryRemoves(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "m1", CreatedAt: time.Now()})
	ob.Flush("fp", func(m Message) error { return nil })
	ob.ConfirmDelivery("fp", "m1")

	if ob.Len("fp") != 0 {
		t.Fatal("expected message to be removed after confirm delivery")
	}
}

func TestResendCooldownSkipsRecentlySent(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "m1", CreatedAt: time.Now()})

	attempts := 0
	ob.Flush("fp", func(m Message) error { attempts++; return nil })
	ob.Flush("fp", func(m Message) error { attempts++; return nil })

	if attempts != 1 {
		t.Fatalf("expected only the first flush to attempt send within cooldown, got %d attempts", attempts)
	}
}

func TestOverflowEvictsOldest(t *testing.T) {
	ob := New(logger.Nop())
	for i := 0; i < Capacity+5; i++ {
		ob.Enqueue("fp", &Message{MessageID: string(rune('a' + i%26)), CreatedAt: time.Now()})
	}
	if ob.Len("fp") != Capacity {
		t.Fatalf("expected queue capped at %d, got %d", Capacity, ob.Len("fp"))
	}
}

func TestCleanupExpiresOldMessages(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "old", CreatedAt: time.Now().Add(-25 * time.Hour)})
	ob.Enqueue("fp", &Message{MessageID: "fresh", CreatedAt: time.Now()})

	expired := ob.Cleanup(time.Now())
	if expired != 1 {
		t.Fatalf("expected 1 expired message, got %d", expired)
	}
	if ob.Len("fp") != 1 {
		t.Fatal("expected only the fresh message to remain")
	}
}

func TestResetSendStateAllowsResend(t *testing.T) {
	ob := New(logger.Nop())
	ob.Enqueue("fp", &Message{MessageID: "m1", CreatedAt: time.Now()})
	ob.Flush("fp", func(m Message) error { return nil })

	ob.ResetSendState("fp")

	attempts := 0
	ob.Flush("fp", func(m Message) error { attempts++; return nil })
	if attempts != 1 {
		t.Fatal("expected resend after ResetSendState despite cooldown")
	}
}
