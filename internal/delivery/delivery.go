/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package delivery is the Delivery Tracker: one state machine per
// outgoing message, duplicate-ack suppression, and the retry/timeout
// policy for favorited direct messages. Timer callbacks run on their
// own goroutine and must be marshaled back onto the caller's executor
// before touching shared state.
package delivery

import (
	"fmt"
	"sync"
	"time"

	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/logger"
)

// Delivery timeouts, tuned per message class.
const (
	DirectTimeout   = 30 * time.Second
	GroupTimeout    = 60 * time.Second
	FavoriteTimeout = 300 * time.Second
)

const (
	// MaxRetries is the number of reschedules attempted for a
	// favorited, non-group message before it is marked Failed.
	MaxRetries = 3
	// GCAge is how long a record survives regardless of state before
	// the Lifecycle Controller's cleanup pass drops it.
	GCAge = time.Hour
	// SuppressionCap bounds the received/sent ack id dedup sets.
	SuppressionCap = 1000
)

// Kind tags a delivery record's current state.
type Kind int

const (
	Sending Kind = iota
	Sent
	Delivered
	Read
	Failed
	PartiallyDelivered
)

func (k Kind) String() string {
	switch k {
	case Sending:
		return "Sending"
	case Sent:
		return "Sent"
	case Delivered:
		return "Delivered"
	case Read:
		return "Read"
	case Failed:
		return "Failed"
	case PartiallyDelivered:
		return "PartiallyDelivered"
	default:
		return "Unknown"
	}
}

// State is the current observable state of one outgoing message.
type State struct {
	Kind     Kind
	Who      string // nickname, or "k members" for group delivery
	At       time.Time
	Reason   string // populated only for Failed
	Acked    int    // populated only for PartiallyDelivered
	Expected int    // populated only for PartiallyDelivered
}

// Ack is a delivery acknowledgment received for a previously sent
// message.
type Ack struct {
	AckID             string
	OriginalMessageID string
	RecipientID       string
	RecipientNickname string
	Hops              int
}

// Receipt is a read receipt received for a previously sent message.
type Receipt struct {
	ReceiptID         string
	OriginalMessageID string
	ReaderID          string
	ReaderNickname    string
	Timestamp         time.Time
}

// record is one outgoing message's delivery state.
type record struct {
	messageID   string
	recipientFP identity.Fingerprint
	sentAt      time.Time
	retries     uint32
	isGroup     bool
	isFavorite  bool
	expected    int
	ackedBy     map[string]bool
	state       State
	timer       *time.Timer
	firstSeenAt time.Time
}

// Tracker is the Delivery Tracker.
type Tracker struct {
	log logger.Logger

	// onStateChange and onRetry are invoked from timer goroutines; the
	// caller is responsible for marshaling back onto its own executor
	// before touching any other core state.
	onStateChange func(messageID string, st State)
	onRetry       func(messageID string)

	mu      sync.Mutex
	records map[string]*record

	receivedAckIDs *boundedSet
	sentAckIDs     *boundedSet
}

// New constructs a Tracker. onStateChange is called on every state
// transition; onRetry is called when a favorited message is
// rescheduled instead of failed.
func New(log logger.Logger, onStateChange func(string, State), onRetry func(string)) *Tracker {
	return &Tracker{
		log:            log,
		onStateChange:  onStateChange,
		onRetry:        onRetry,
		records:        make(map[string]*record),
		receivedAckIDs: newBoundedSet(SuppressionCap),
		sentAckIDs:     newBoundedSet(SuppressionCap),
	}
}

// Track registers a new outgoing message immediately after it has been
// handed to a transport (or queued). expectedRecipients is 1 for a
// direct message and the recipient-set size for a group message.
func (t *Tracker) Track(messageID string, recipientFP identity.Fingerprint, expectedRecipients int, isFavorite bool) {
	t.mu.Lock()
	rec := &record{
		messageID:   messageID,
		recipientFP: recipientFP,
		sentAt:      time.Now(),
		isGroup:     expectedRecipients > 1,
		isFavorite:  isFavorite,
		expected:    expectedRecipients,
		ackedBy:     make(map[string]bool),
		state:       State{Kind: Sending, At: time.Now()},
		firstSeenAt: time.Now(),
	}
	t.records[messageID] = rec
	rec.timer = time.AfterFunc(t.timeoutFor(rec), func() { t.onTimeout(messageID) })
	t.mu.Unlock()

	t.setState(rec, State{Kind: Sent, At: time.Now()})
}

func (t *Tracker) timeoutFor(rec *record) time.Duration {
	switch {
	case rec.isGroup:
		return GroupTimeout
	case rec.isFavorite:
		return FavoriteTimeout
	default:
		return DirectTimeout
	}
}

func (t *Tracker) setState(rec *record, st State) {
	t.mu.Lock()
	rec.state = st
	t.mu.Unlock()
	if t.onStateChange != nil {
		t.onStateChange(rec.messageID, st)
	}
}

// OnAck processes an inbound delivery ack. Duplicate ack ids are
// dropped before any state change.
func (t *Tracker) OnAck(ack Ack) {
	if !t.receivedAckIDs.addIfAbsent(ack.AckID) {
		return // duplicate: silently ignored
	}

	t.mu.Lock()
	rec, ok := t.records[ack.OriginalMessageID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if rec.timer != nil {
		rec.timer.Stop()
	}
	rec.ackedBy[ack.RecipientID] = true
	acked := len(rec.ackedBy)
	expected := rec.expected
	isGroup := rec.isGroup
	t.mu.Unlock()

	if !isGroup {
		t.setState(rec, State{Kind: Delivered, Who: ack.RecipientNickname, At: time.Now()})
		t.drop(ack.OriginalMessageID)
		return
	}

	threshold := (expected + 1) / 2
	if threshold < 1 {
		threshold = 1
	}
	if acked >= threshold {
		t.setState(rec, State{Kind: Delivered, Who: fmt.Sprintf("%d members", acked), At: time.Now()})
		t.drop(ack.OriginalMessageID)
		return
	}
	t.setState(rec, State{Kind: PartiallyDelivered, Acked: acked, Expected: expected, At: time.Now()})
}

// OnRead processes an inbound read receipt.
func (t *Tracker) OnRead(receipt Receipt) {
	t.mu.Lock()
	rec, ok := t.records[receipt.OriginalMessageID]
	t.mu.Unlock()
	if !ok {
		return
	}
	t.setState(rec, State{Kind: Read, Who: receipt.ReaderNickname, At: receipt.Timestamp})
}

func (t *Tracker) onTimeout(messageID string) {
	t.mu.Lock()
	rec, ok := t.records[messageID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if rec.isFavorite && !rec.isGroup && rec.retries < MaxRetries {
		backoff := time.Duration(5*(1<<rec.retries)) * time.Second
		rec.retries++
		rec.timer = time.AfterFunc(backoff, func() { t.onTimeout(messageID) })
		t.mu.Unlock()

		if t.onRetry != nil {
			t.onRetry(messageID)
		}
		return
	}
	t.mu.Unlock()

	reason := "no response from peer"
	if rec.isGroup {
		reason = "no response from group members"
	}
	t.setState(rec, State{Kind: Failed, Reason: reason, At: time.Now()})
}

// ClearDeliveryStatus cancels messageID's timer and removes its
// record, without emitting any further state transition.
func (t *Tracker) ClearDeliveryStatus(messageID string) {
	t.drop(messageID)
}

func (t *Tracker) drop(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[messageID]; ok {
		if rec.timer != nil {
			rec.timer.Stop()
		}
		delete(t.records, messageID)
	}
}

// GenerateAck returns a fresh Ack for an inbound message addressed to
// self, iff one has never been emitted for this message id before:
// at most one ack per (recipient, original_message_id) pair.
func (t *Tracker) GenerateAck(originalMessageID, selfID, selfNickname string, hops int, ackID string) (Ack, bool) {
	if !t.sentAckIDs.addIfAbsent(originalMessageID) {
		return Ack{}, false
	}
	return Ack{
		AckID:             ackID,
		OriginalMessageID: originalMessageID,
		RecipientID:       selfID,
		RecipientNickname: selfNickname,
		Hops:              hops,
	}, true
}

// State returns the current observable state for a tracked message.
func (t *Tracker) State(messageID string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[messageID]
	if !ok {
		return State{}, false
	}
	return rec.state, true
}

// Cleanup drops records older than GCAge regardless of state, and
// trims the suppression sets once they exceed SuppressionCap. Run
// periodically by the Lifecycle Controller.
func (t *Tracker) Cleanup(now time.Time) (dropped int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, rec := range t.records {
		if now.Sub(rec.firstSeenAt) > GCAge {
			if rec.timer != nil {
				rec.timer.Stop()
			}
			delete(t.records, id)
			dropped++
		}
	}
	t.receivedAckIDs.trim()
	t.sentAckIDs.trim()
	return dropped
}
