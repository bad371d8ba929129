/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package ackproto

import (
	"encoding/json"
	"time"

	"github.com/meshcourier/core/internal/delivery"
)

// receiptWire is the on-the-wire shape of a ReadReceipt. The actual
// binary framing (and its encryption) belongs to an external transport
// session layer; this is the payload that layer would wrap.
type receiptWire struct {
	ReceiptID         string    `json:"receipt_id"`
	OriginalMessageID string    `json:"original_message_id"`
	ReaderID          string    `json:"reader_id"`
	ReaderNickname    string    `json:"reader_nickname"`
	Timestamp         time.Time `json:"timestamp"`
}

// EncodeReceiptBinary serializes a Receipt to the bytes that EncodeRead
// base64-wraps for the wire.
func EncodeReceiptBinary(r delivery.Receipt) ([]byte, error) {
	return json.Marshal(receiptWire{
		ReceiptID:         r.ReceiptID,
		OriginalMessageID: r.OriginalMessageID,
		ReaderID:          r.ReaderID,
		ReaderNickname:    r.ReaderNickname,
		Timestamp:         r.Timestamp,
	})
}

// DecodeReceiptBinary parses the bytes produced by EncodeReceiptBinary.
func DecodeReceiptBinary(b []byte) (delivery.Receipt, error) {
	var w receiptWire
	if err := json.Unmarshal(b, &w); err != nil {
		return delivery.Receipt{}, ErrMalformedPayload
	}
	return delivery.Receipt{
		ReceiptID:         w.ReceiptID,
		OriginalMessageID: w.OriginalMessageID,
		ReaderID:          w.ReaderID,
		ReaderNickname:    w.ReaderNickname,
		Timestamp:         w.Timestamp,
	}, nil
}
