/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

package ackproto

import (
	"golang.org/x/time/rate"
)

// ReceiptRateLimit is the outbound relay rate for read receipts,
// throttled to roughly 3/s to avoid relay bans.
const ReceiptRateLimit = 3

// ReceiptThrottle gates outbound receipts sent over the relay
// transport. It does not apply to acks or to mesh sends.
type ReceiptThrottle struct {
	limiter *rate.Limiter
}

// NewReceiptThrottle builds a throttle at ReceiptRateLimit, with a
// burst of one so a quiet period doesn't let receipts queue up and
// then fire in a single relay-banning burst.
func NewReceiptThrottle() *ReceiptThrottle {
	return &ReceiptThrottle{limiter: rate.NewLimiter(rate.Limit(ReceiptRateLimit), 1)}
}

// Allow reports whether a receipt may be sent right now. A receipt
// that isn't allowed is simply not sent; receipts are never queued,
// and a receipt dropped here is not regenerated.
func (t *ReceiptThrottle) Allow() bool {
	return t.limiter.Allow()
}
