/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package store is the Persistence KV contract that package core's
// persistence glue reads and writes through (today only the peers
// bucket), keeping the bbolt dependency isolated behind a narrow
// interface the rest of the core never imports directly.
package store

// Well-known bucket names, matching the Persistence KV contract.
const (
	BucketPeers              = "peers"
	BucketChatRooms          = "chat_rooms"
	BucketPendingInvitations = "pending_invitations"
	BucketMeta               = "meta"
)

// MetaSelectedRoom is the key under BucketMeta holding the
// currently UI-selected room's fingerprint, or empty if none.
const MetaSelectedRoom = "selected_room"

// KV is the minimal bucketed key/value contract the core depends on.
// Every value is an opaque blob (JSON, chosen at the call site) so
// this package never needs to know about peer or chat room shapes.
type KV interface {
	Get(bucket, key string) ([]byte, bool, error)
	Set(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	ForEach(bucket string, fn func(key string, value []byte) error) error
	Wipe() error
	Close() error
}
