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

import "sync"

// FakeClock is a deterministic Clock double for scenario tests, grounded
// on the original's system_fake.c/system_fake.cpp unit-test backend: time
// only moves when the test (or a sleeping scheduler) advances it, so
// scenarios like "run for 5000ms" are exact and never flaky.
type FakeClock struct {
	mu  sync.Mutex
	us  uint64
	out []byte

	timerHandler   func()
	softirqHandler func()
	armed          bool
	armedAtMS      uint64

	fatalCount int
	fataling   bool
}

func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

func (c *FakeClock) UptimeUS() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.us
}

func (c *FakeClock) UptimeMS() uint64 {
	return c.UptimeUS() / 1000
}

// Advance moves the fake clock forward by us microseconds, firing the
// installed timer handler if the advance crosses the armed deadline (and
// again for as long as the handler re-arms a deadline that is already
// due). Crossing the deadline disarms the timer even when no handler is
// installed, as with work.Scheduler, which installs none and re-arms
// before each sleep.
func (c *FakeClock) Advance(us uint64) {
	c.mu.Lock()
	c.us += us
	c.mu.Unlock()
	c.fireDueTimer()
}

func (c *FakeClock) fireDueTimer() {
	for {
		c.mu.Lock()
		due := c.armed && c.armedAtMS <= c.us/1000
		handler := c.timerHandler
		if due {
			c.armed = false
		}
		c.mu.Unlock()

		if !due || handler == nil {
			return
		}
		handler()
	}
}

func (c *FakeClock) BusySleepUS(us uint64) {
	c.Advance(us)
}

func (c *FakeClock) BusySleepMS(ms uint64) {
	c.Advance(ms * 1000)
}

// EnterSleepMode simulates "sleep until the next interrupt" by jumping
// straight to the next armed timer deadline, since no real wall-clock
// time passes in a test. If nothing is armed there is no source of
// wake-up and the call returns immediately (a spurious wake) rather than
// hanging the test.
func (c *FakeClock) EnterSleepMode() {
	c.mu.Lock()
	armed := c.armed
	at := c.armedAtMS
	now := c.us / 1000
	c.mu.Unlock()

	if armed && at > now {
		c.Advance((at - now) * 1000)
		return
	}
	if armed {
		c.fireDueTimer()
	}
}

// Wake is a no-op on FakeClock: EnterSleepMode never actually blocks, it
// fast-forwards to the next armed deadline instead.
func (c *FakeClock) Wake() {}

func (c *FakeClock) ScheduleTimerAt(uptimeMS uint64) {
	c.mu.Lock()
	c.armed = true
	c.armedAtMS = uptimeMS
	c.mu.Unlock()
}

func (c *FakeClock) SetTimerHandler(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerHandler = handler
}

func (c *FakeClock) TriggerSoftIRQ() {
	c.mu.Lock()
	handler := c.softirqHandler
	c.mu.Unlock()
	if handler != nil {
		handler()
	}
}

func (c *FakeClock) SetSoftIRQHandler(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.softirqHandler = handler
}

func (c *FakeClock) DebugOut(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, b)
}

// Output returns everything written via DebugOut so far.
func (c *FakeClock) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.out)
}

func (c *FakeClock) FatalError() {
	c.mu.Lock()
	if c.fataling {
		c.mu.Unlock()
		return
	}
	c.fataling = true
	c.fatalCount++
	c.mu.Unlock()
}

// FatalCount reports how many times FatalError actually ran its body
// (re-entrant calls while already fataling are not counted again).
func (c *FakeClock) FatalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatalCount
}
