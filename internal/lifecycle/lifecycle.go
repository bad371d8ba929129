/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package lifecycle is the Lifecycle Controller: a small set of
// independent, cancellable timers driving periodic maintenance, one
// goroutine and one ticker per concern, torn down together on Stop.
package lifecycle

import (
	"sync"
	"time"

	"github.com/meshcourier/core/internal/atomicx"
	"github.com/meshcourier/core/internal/logger"
)

const (
	// OutboxCleanupInterval and DeliveryCleanupInterval both run at a
	// 60s maintenance cadence.
	OutboxCleanupInterval   = 60 * time.Second
	DeliveryCleanupInterval = 60 * time.Second
	RelayProbeInterval      = 10 * time.Second
	RelayProbeMaxBackoff    = 160 * time.Second
	FlushAllInterval        = 30 * time.Second
)

// Hooks are the maintenance callbacks the Controller drives. Any hook
// left nil is simply never called.
type Hooks struct {
	// CleanupOutbox drops TTL-expired queued messages across every peer.
	CleanupOutbox func(now time.Time)
	// CleanupDelivery garbage-collects delivery-tracker records past
	// their GC age, whatever their state.
	CleanupDelivery func(now time.Time)
	// CleanupChatStore drops TTL-expired pending chat-room messages.
	CleanupChatStore func(now time.Time)
	// FlushAll re-attempts every queued outbox against current transport
	// reachability.
	FlushAll func()
	// ProbeRelay checks relay transport health and reports whether it's
	// reachable right now.
	ProbeRelay func() bool
}

// Controller runs Hooks on independent timers until Stop is called.
type Controller struct {
	log   logger.Logger
	hooks Hooks

	stopCh  chan struct{}
	wg      sync.WaitGroup
	started atomicx.Bool
	stopped atomicx.Bool
}

func New(log logger.Logger, hooks Hooks) *Controller {
	return &Controller{log: log, hooks: hooks, stopCh: make(chan struct{})}
}

// Start launches one goroutine per maintenance concern. Calling Start
// more than once is a no-op: the flag guards against double-spawned
// tickers if a host calls it from more than one place.
func (c *Controller) Start() {
	if c.started.Swap(true) {
		return
	}
	if c.hooks.CleanupOutbox != nil {
		c.runTicker(OutboxCleanupInterval, func() { c.hooks.CleanupOutbox(time.Now()) })
	}
	if c.hooks.CleanupDelivery != nil {
		c.runTicker(DeliveryCleanupInterval, func() { c.hooks.CleanupDelivery(time.Now()) })
	}
	if c.hooks.CleanupChatStore != nil {
		c.runTicker(DeliveryCleanupInterval, func() { c.hooks.CleanupChatStore(time.Now()) })
	}
	if c.hooks.FlushAll != nil {
		c.runTicker(FlushAllInterval, c.hooks.FlushAll)
	}
	if c.hooks.ProbeRelay != nil {
		c.runRelayProbe()
	}
}

// Stop cancels every timer and waits for their goroutines to exit.
// A no-op if called more than once.
func (c *Controller) Stop() {
	if c.stopped.Swap(true) {
		return
	}
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Controller) runTicker(interval time.Duration, tick func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-t.C:
				tick()
			}
		}
	}()
}

// runRelayProbe backs off exponentially from RelayProbeInterval up to
// RelayProbeMaxBackoff on consecutive probe failures, and resets to
// RelayProbeInterval as soon as a probe succeeds.
func (c *Controller) runRelayProbe() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		interval := RelayProbeInterval
		timer := time.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-timer.C:
				if c.hooks.ProbeRelay() {
					interval = RelayProbeInterval
				} else {
					interval *= 2
					if interval > RelayProbeMaxBackoff {
						interval = RelayProbeMaxBackoff
					}
				}
				timer.Reset(interval)
			}
		}
	}()
}
