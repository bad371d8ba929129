/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package router is the Router: the single point that decides, for
// every send, which transport carries it right now and what happens
// when none can. It owns no transport state itself — it only reacts
// to eventbus events and drives the Outbox, Delivery Tracker, and Peer
// Directory it's built with.
package router

import (
	"errors"

	"github.com/google/uuid"

	"github.com/meshcourier/core/internal/ackproto"
	"github.com/meshcourier/core/internal/delivery"
	"github.com/meshcourier/core/internal/eventbus"
	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/logger"
	"github.com/meshcourier/core/internal/outbox"
	"github.com/meshcourier/core/internal/peerdir"
	"github.com/meshcourier/core/internal/transport"
)

// Router ties the directory, outbox, delivery tracker, transport
// registry, and ack/receipt throttle together behind the event bus,
// avoiding singleton back-references between them.
type Router struct {
	log      logger.Logger
	bus      *eventbus.Bus
	dir      *peerdir.Directory
	registry *transport.Registry
	out      *outbox.Outbox
	tracker  *delivery.Tracker
	throttle *ackproto.ReceiptThrottle

	selfShortID  identity.ShortPeerID
	selfNickname string
}

// New builds a Router and subscribes it to the directory/transport
// events that should trigger a flush: a peer coming back within reach,
// a completed handshake, a favorite status change (on or off), or a
// KeyUpdated from the directory.
func New(
	log logger.Logger,
	bus *eventbus.Bus,
	dir *peerdir.Directory,
	registry *transport.Registry,
	out *outbox.Outbox,
	tracker *delivery.Tracker,
	throttle *ackproto.ReceiptThrottle,
	selfShortID identity.ShortPeerID,
	selfNickname string,
) *Router {
	r := &Router{
		log:          log,
		bus:          bus,
		dir:          dir,
		registry:     registry,
		out:          out,
		tracker:      tracker,
		throttle:     throttle,
		selfShortID:  selfShortID,
		selfNickname: selfNickname,
	}

	bus.Subscribe(eventbus.PeerConnected, func(e eventbus.Event) {
		p := e.Payload.(eventbus.PeerConnectedPayload)
		r.onPeerReachable(identity.ShortPeerID(p.ShortPeerID))
	})
	bus.Subscribe(eventbus.HandshakeCompleted, func(e eventbus.Event) {
		p := e.Payload.(eventbus.HandshakeCompletedPayload)
		r.onPeerReachable(identity.ShortPeerID(p.ShortPeerID))
	})
	bus.Subscribe(eventbus.FavoriteStatusChanged, func(e eventbus.Event) {
		p := e.Payload.(eventbus.FavoriteStatusChangedPayload)
		r.onPeerReachable(identity.ShortPeerID(p.SenderShortPeerID))
	})
	bus.Subscribe(eventbus.KeyUpdated, func(e eventbus.Event) {
		p := e.Payload.(eventbus.KeyUpdatedPayload)
		if rec, ok := r.dir.Resolve(identity.Fingerprint(p.Fingerprint), "", ""); ok {
			r.onPeerReachable(rec.ShortPeerID)
		}
	})

	return r
}

// onPeerReachable resets the peer's send backoff and immediately tries
// to flush whatever is queued for it: a newly-reachable peer gets its
// whole backlog re-attempted, in order.
func (r *Router) onPeerReachable(short identity.ShortPeerID) {
	fp, ok := r.dir.ResolveFingerprint(short)
	if !ok {
		return
	}
	r.out.ResetSendState(fp)
	r.FlushOutbox(fp)
}

// SendPrivate queues a direct message to fp and immediately attempts a
// send. It always returns a message id, queued or not.
func (r *Router) SendPrivate(fp identity.Fingerprint, content, nickname string) string {
	return r.SendPrivateWithID(fp, content, nickname, uuid.NewString())
}

// SendPrivateWithID is SendPrivate for callers (the chat store) that
// already minted a message id, so the id used for chat history stays
// identical to the one the Delivery Tracker and acks key on.
func (r *Router) SendPrivateWithID(fp identity.Fingerprint, content, nickname, messageID string) string {
	r.out.Enqueue(fp, &outbox.Message{
		MessageID: messageID,
		Content:   content,
		Nickname:  nickname,
	})
	r.FlushOutbox(fp)
	return messageID
}

// SendGroupMessage queues the same content to every recipient under one
// shared message id, so a single Delivery Record tracks partial
// delivery across the whole recipient set.
func (r *Router) SendGroupMessage(recipients []identity.Fingerprint, content, nickname string) string {
	messageID := uuid.NewString()
	if len(recipients) > 0 {
		r.tracker.Track(messageID, recipients[0], len(recipients), false)
	}
	for _, fp := range recipients {
		r.out.Enqueue(fp, &outbox.Message{
			MessageID: messageID,
			Content:   content,
			Nickname:  nickname,
		})
		r.flushOutboxNoTrack(fp, messageID)
	}
	return messageID
}

// FlushOutbox attempts every due message in fp's queue against
// whichever transport is currently selectable for fp, tracking each
// newly-dispatched message for delivery.
func (r *Router) FlushOutbox(fp identity.Fingerprint) {
	short, ok := r.currentShortID(fp)
	if !ok || r.dir.IsBlocked(fp) {
		return
	}
	t, ok := r.registry.SelectForSend(short)
	if !ok {
		return
	}

	r.out.Flush(fp, func(m outbox.Message) error {
		err := t.SendPrivate(m.Content, short, m.Nickname, m.MessageID)
		if err == nil && m.SentAt.IsZero() {
			r.tracker.Track(m.MessageID, fp, 1, r.isFavorite(fp))
		}
		return err
	})
}

// flushOutboxNoTrack is FlushOutbox without per-message Track calls,
// for group sends whose single shared Delivery Record was already
// started by SendGroupMessage.
func (r *Router) flushOutboxNoTrack(fp identity.Fingerprint, messageID string) {
	short, ok := r.currentShortID(fp)
	if !ok || r.dir.IsBlocked(fp) {
		return
	}
	t, ok := r.registry.SelectForSend(short)
	if !ok {
		return
	}
	r.out.Flush(fp, func(m outbox.Message) error {
		if m.MessageID != messageID {
			return errNotThisMessage
		}
		return t.SendPrivate(m.Content, short, m.Nickname, m.MessageID)
	})
}

// errNotThisMessage makes Flush treat an unrelated queued message as
// not-yet-sent, so a group send's per-recipient flush never stamps
// SentAt on a sibling message it didn't actually dispatch.
var errNotThisMessage = errors.New("router: not the message being flushed")

// FlushAll re-attempts every peer with queued mail. Driven by the
// Lifecycle Controller's periodic timer.
func (r *Router) FlushAll() {
	for _, fp := range r.out.Fingerprints() {
		r.FlushOutbox(fp)
	}
}

// OnAck processes an inbound delivery ack: advances the Delivery
// Tracker's state machine and removes the message from the acking
// peer's outbox queue so it is never resent to that peer. For a group
// message each recipient's queue entry is removed on that recipient's
// own ack, whether or not the group threshold has been reached.
func (r *Router) OnAck(ack delivery.Ack) {
	r.tracker.OnAck(ack)
	if fp, ok := r.dir.ResolveFingerprint(identity.ShortPeerID(ack.RecipientID)); ok {
		r.out.ConfirmDelivery(fp, ack.OriginalMessageID)
	}
}

// OnRead processes an inbound read receipt.
func (r *Router) OnRead(receipt delivery.Receipt) {
	r.tracker.OnRead(receipt)
}

// SendDeliveryAck generates and, if a transport is reachable, sends a
// delivery ack for an inbound message. Acks are never queued: a send
// that fails right now is simply not retried.
func (r *Router) SendDeliveryAck(fp identity.Fingerprint, originalMessageID, ackID string, hops int) {
	ack, ok := r.tracker.GenerateAck(originalMessageID, string(r.selfShortID), r.selfNickname, hops, ackID)
	if !ok {
		return
	}
	short, ok := r.currentShortID(fp)
	if !ok {
		return
	}
	t, ok := r.registry.SelectForAck(short)
	if !ok {
		return
	}
	_ = t.SendDeliveryAck(ack.OriginalMessageID, short)
}

// SendReadReceipt sends a read receipt for an inbound message the UI
// has just displayed, subject to the relay receipt throttle.
func (r *Router) SendReadReceipt(fp identity.Fingerprint, receiptBinary []byte) bool {
	short, ok := r.currentShortID(fp)
	if !ok {
		return false
	}
	t, ok := r.registry.SelectForAck(short)
	if !ok {
		return false
	}
	if t.Kind() == transport.Relay && !r.throttle.Allow() {
		return false
	}
	return t.SendReadReceipt(receiptBinary, short) == nil
}

// SendFavoriteNotification tells fp this node's favorite status toward
// them just changed, revealing (or retracting the use of) the relay
// public key per the GLOSSARY's favorites-exchange semantics.
func (r *Router) SendFavoriteNotification(fp identity.Fingerprint, on bool) error {
	short, ok := r.currentShortID(fp)
	if !ok {
		return nil
	}
	t, ok := r.registry.SelectForAck(short)
	if !ok {
		return nil
	}
	return t.SendFavoriteNotification(short, on)
}

// ResetSendStateFor clears resend backoff for fp and flushes, used by
// callers reacting to events this Router doesn't itself subscribe to
// (e.g. an explicit CLI reconnect trigger).
func (r *Router) ResetSendStateFor(fp identity.Fingerprint) {
	r.out.ResetSendState(fp)
	r.FlushOutbox(fp)
}

func (r *Router) currentShortID(fp identity.Fingerprint) (identity.ShortPeerID, bool) {
	rec, ok := r.dir.Resolve(fp, "", "")
	if !ok {
		return "", false
	}
	return rec.ShortPeerID, true
}

func (r *Router) isFavorite(fp identity.Fingerprint) bool {
	rec, ok := r.dir.Resolve(fp, "", "")
	return ok && rec.Favorite
}
