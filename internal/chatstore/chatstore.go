/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package chatstore is the Persistent Chat Store: fingerprint-keyed
// rooms that survive short_peer_id churn, with a bounded message
// history and a pending queue promoted to sends the next time the
// peer comes online.
package chatstore

import (
	"time"

	"github.com/meshcourier/core/internal/eventbus"
	"github.com/meshcourier/core/internal/identity"
	"github.com/meshcourier/core/internal/logger"
)

// HistoryCap is the bounded, FIFO-evicted message history per room.
const HistoryCap = 1000

// PendingTTL matches the outbox TTL: a pending message this old is
// dropped by Cleanup rather than promoted on reconnect.
const PendingTTL = 24 * time.Hour

// Message is one entry in a room's history.
type Message struct {
	MessageID string
	Content   string
	FromSelf  bool
	At        time.Time
}

// Pending is a locally-authored message queued for a currently-offline
// peer, awaiting promotion to an actual send on PeerCameOnline.
type Pending struct {
	MessageID string
	Content   string
	CreatedAt time.Time
}

// Room is a Chat Room, keyed by fingerprint.
type Room struct {
	Fingerprint    identity.Fingerprint
	Nickname       string
	CurrentShortID identity.ShortPeerID
	IsOnline       bool
	History        []Message
	Pending        []Pending
}

// SendFunc is how the store asks the Router to actually dispatch a
// locally-authored message; the store never talks to a transport
// directly and always delegates the actual send to the Router.
type SendFunc func(fp identity.Fingerprint, nickname, content, messageID string)

// Store is the Persistent Chat Store.
type Store struct {
	log  logger.Logger
	bus  *eventbus.Bus
	send SendFunc

	rooms        map[identity.Fingerprint]*Room
	selectedRoom identity.Fingerprint // empty when nothing is selected
}

func New(log logger.Logger, bus *eventbus.Bus, send SendFunc) *Store {
	return &Store{
		log:   log,
		bus:   bus,
		send:  send,
		rooms: make(map[identity.Fingerprint]*Room),
	}
}

// GetOrCreate returns fp's room, creating it on first sighting or
// first favorite.
func (s *Store) GetOrCreate(fp identity.Fingerprint, nickname string, currentShort identity.ShortPeerID) *Room {
	room, ok := s.rooms[fp]
	if !ok {
		room = &Room{Fingerprint: fp, Nickname: nickname, CurrentShortID: currentShort}
		s.rooms[fp] = room
		return room
	}
	if nickname != "" {
		room.Nickname = nickname
	}
	if currentShort != "" {
		room.CurrentShortID = currentShort
	}
	return room
}

// RecordIncoming appends an inbound message to fp's history (creating
// the room if needed) and, if fp's room is the currently-selected one,
// publishes an InboundMessage event carrying the message id and
// content (no sender short id). The Router does not subscribe to it,
// and nothing in this module sends a read receipt in response.
func (s *Store) RecordIncoming(messageID, content string, fp identity.Fingerprint, nickname string) {
	room := s.GetOrCreate(fp, nickname, "")
	room.History = append(room.History, Message{MessageID: messageID, Content: content, At: time.Now()})
	if len(room.History) > HistoryCap {
		room.History = room.History[len(room.History)-HistoryCap:]
	}

	if s.selectedRoom != "" && s.selectedRoom == fp {
		s.bus.Publish(eventbus.Event{
			Kind: eventbus.InboundMessage,
			Payload: eventbus.InboundMessagePayload{
				MessageID: messageID,
				Plaintext: content,
			},
		})
	}
}

// EnqueueLocalSend records a locally-authored message. If the peer is
// online it is handed straight to the Router; otherwise it is parked
// in the pending queue for promotion on the peer's next online event.
func (s *Store) EnqueueLocalSend(fp identity.Fingerprint, content, messageID string) {
	room := s.GetOrCreate(fp, "", "")
	room.History = append(room.History, Message{MessageID: messageID, Content: content, FromSelf: true, At: time.Now()})

	if room.IsOnline {
		s.send(fp, room.Nickname, content, messageID)
		return
	}
	room.Pending = append(room.Pending, Pending{MessageID: messageID, Content: content, CreatedAt: time.Now()})
}

// PeerCameOnline marks fp's room online and promotes every pending
// message to an outgoing send, in insertion order.
func (s *Store) PeerCameOnline(short identity.ShortPeerID, fp identity.Fingerprint, nickname string) {
	room := s.GetOrCreate(fp, nickname, short)
	room.IsOnline = true
	room.CurrentShortID = short

	pending := room.Pending
	room.Pending = nil
	for _, p := range pending {
		s.send(fp, room.Nickname, p.Content, p.MessageID)
	}
}

// PeerWentOffline marks the room owning short as offline.
func (s *Store) PeerWentOffline(short identity.ShortPeerID) {
	for _, room := range s.rooms {
		if room.CurrentShortID == short {
			room.IsOnline = false
		}
	}
}

// SelectRoom marks fp as the UI-selected room (empty to deselect).
func (s *Store) SelectRoom(fp identity.Fingerprint) {
	s.selectedRoom = fp
}

// DeleteRoom removes fp's room entirely.
func (s *Store) DeleteRoom(fp identity.Fingerprint) {
	delete(s.rooms, fp)
	if s.selectedRoom == fp {
		s.selectedRoom = ""
	}
}

// PanicWipe erases every room.
func (s *Store) PanicWipe() {
	s.rooms = make(map[identity.Fingerprint]*Room)
	s.selectedRoom = ""
}

// Cleanup drops pending messages older than PendingTTL, across every
// room. Run periodically by the Lifecycle Controller alongside the
// outbox's own cleanup.
func (s *Store) Cleanup(now time.Time) (dropped int) {
	for _, room := range s.rooms {
		kept := room.Pending[:0]
		for _, p := range room.Pending {
			if now.Sub(p.CreatedAt) > PendingTTL {
				dropped++
				continue
			}
			kept = append(kept, p)
		}
		room.Pending = kept
	}
	return dropped
}

// Get returns fp's room if it exists.
func (s *Store) Get(fp identity.Fingerprint) (*Room, bool) {
	room, ok := s.rooms[fp]
	return room, ok
}
