/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package system

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// HostClock implements Clock on top of the host process's own monotonic
// clock. Uptime in microseconds and milliseconds are both derived from a
// single time.Duration sample, so the two views can never disagree — the
// torn-read hazard spec.md describes for a 32-bit hardware counter simply
// doesn't exist on a host process.
type HostClock struct {
	start time.Time
	out   io.Writer

	mu             sync.Mutex
	timer          *time.Timer
	timerHandler   func()
	softirqHandler func()

	wake chan struct{}

	fatal  atomic.Bool
	halted atomic.Bool
	halt   func()
	drain  func()
}

// HostClockOption configures a HostClock, following the functional-option
// shape the teacher uses for ring setup (iouring.Option).
type HostClockOption func(*HostClock)

// WithDebugWriter redirects DebugOut bytes to w instead of os.Stderr.
func WithDebugWriter(w io.Writer) HostClockOption {
	return func(c *HostClock) { c.out = w }
}

// WithHaltFunc overrides what FatalError calls after draining pending log
// output. The default calls os.Exit(1).
func WithHaltFunc(halt func()) HostClockOption {
	return func(c *HostClock) { c.halt = halt }
}

// NewHostClock creates a HostClock whose uptime starts counting from now.
func NewHostClock(opts ...HostClockOption) *HostClock {
	c := &HostClock{
		start: time.Now(),
		out:   os.Stderr,
		wake:  make(chan struct{}, 1),
	}
	c.halt = func() { os.Exit(1) }
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HostClock) UptimeUS() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

func (c *HostClock) UptimeMS() uint64 {
	return c.UptimeUS() / 1000
}

func (c *HostClock) BusySleepUS(us uint64) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
		// busy-wait, matching the blocking semantics of a bare-metal
		// busy_sleep that has nothing better to do with the core.
	}
}

func (c *HostClock) BusySleepMS(ms uint64) {
	c.BusySleepUS(ms * 1000)
}

// Wake signals that an interrupt-equivalent event occurred, releasing
// any goroutine currently parked in EnterSleepMode. Host-only addition:
// on real hardware any ISR call implies its triggering interrupt is
// already pending, so sleep wakes for free; a host process has no such
// implicit signal; the scheduler calls Wake explicitly whenever it adds
// work a sleeping main loop needs to notice.
func (c *HostClock) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *HostClock) EnterSleepMode() {
	<-c.wake
}

func (c *HostClock) ScheduleTimerAt(uptimeMS uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}

	now := c.UptimeMS()
	var delay time.Duration
	if uptimeMS > now {
		delay = time.Duration(uptimeMS-now) * time.Millisecond
	}

	handler := c.timerHandler
	c.timer = time.AfterFunc(delay, func() {
		if handler != nil {
			handler()
		}
		c.Wake()
	})
}

func (c *HostClock) SetTimerHandler(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerHandler = handler
}

func (c *HostClock) TriggerSoftIRQ() {
	c.mu.Lock()
	handler := c.softirqHandler
	c.mu.Unlock()

	if handler != nil {
		handler()
	}
	c.Wake()
}

func (c *HostClock) SetSoftIRQHandler(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.softirqHandler = handler
}

func (c *HostClock) DebugOut(b byte) {
	_, _ = c.out.Write([]byte{b})
}

// SetPanicDrain installs the hook FatalError calls before halting, the
// way to wire in logpkt.Logger.Panic without system importing logpkt.
// Nothing installs it automatically.
func (c *HostClock) SetPanicDrain(drain func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain = drain
}

// FatalError is total: re-entrant calls (an assertion failing while
// already inside FatalError's own log-draining path) are detected and
// ignored rather than recursing.
func (c *HostClock) FatalError() {
	if c.fatal.Swap(true) {
		return
	}

	c.mu.Lock()
	drain := c.drain
	c.mu.Unlock()
	if drain != nil {
		drain()
	}

	if c.halted.Swap(true) {
		return
	}
	c.halt()
}
