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

// Package system defines the clock/IRQ/timer contract that the scheduler
// and log pipeline build on, and ships a host-process implementation of
// it. Board support packages provide their own Clock for real hardware;
// this package only has to give the rest of the module something to run
// against off the bare-metal target.
package system

import "sync"

// Clock is the collaborator contract a work scheduler and log pipeline
// need from the platform: a monotonic uptime, a nestable critical
// section, sleep-until-interrupt, absolute-deadline timer scheduling, a
// software-interrupt hook and a one-character debug sink.
type Clock interface {
	// UptimeUS returns microseconds since boot.
	UptimeUS() uint64
	// UptimeMS returns milliseconds since boot. Must satisfy
	// UptimeMS() == UptimeUS()/1000 at every observation.
	UptimeMS() uint64

	// BusySleepUS spins (does not yield) for the given microseconds.
	BusySleepUS(us uint64)
	// BusySleepMS spins for the given milliseconds.
	BusySleepMS(ms uint64)

	// EnterSleepMode blocks until an interrupt becomes pending, even if
	// currently masked by a held CriticalSection. Safe to call while
	// holding one.
	EnterSleepMode()

	// Wake marks an interrupt as pending, releasing any goroutine
	// currently parked in EnterSleepMode. On real hardware this happens
	// for free whenever any interrupt fires; every entry point that is
	// safe to call from an ISR (Submit, Schedule*, Cancel, LOG_*) calls
	// Wake before touching any shared state, so a concurrent sleeper is
	// always released before it could otherwise deadlock behind the
	// same state the caller is about to lock.
	Wake()

	// ScheduleTimerAt arms the hardware timer to fire TimerHandler at
	// or after the given absolute uptime in milliseconds. Arming for a
	// time already in the past fires as soon as possible.
	ScheduleTimerAt(uptimeMS uint64)
	// SetTimerHandler installs the callback the armed timer invokes.
	SetTimerHandler(handler func())

	// TriggerSoftIRQ raises the pending software interrupt.
	TriggerSoftIRQ()
	// SetSoftIRQHandler installs the callback the soft-IRQ invokes.
	SetSoftIRQHandler(handler func())

	// DebugOut emits one byte synchronously on the debug sink.
	DebugOut(c byte)

	// FatalError drains pending log output and halts or aborts the
	// process. Re-entrant calls must be detected and ignored.
	FatalError()
}

// CriticalSection implements the IRQ-mask discipline of spec S3 on a host
// process: a single mutex stands in for the global interrupt mask, giving
// genuine mutual exclusion between concurrent callers (the property that
// actually matters for ISR safety). It does not nest: every Enter locks
// the mutex, so a second Enter before the matching Exit blocks, even on
// the same goroutine, and the depth counter tracked under the lock is
// only ever 0 or 1. Every Enter/Exit pair in this module acquires and
// releases within its own scope (mirroring the original's `_locked`
// helper convention) and never nests.
type CriticalSection struct {
	mu    sync.Mutex
	depth int
	fatal func()
}

// SetFatalHandler installs the hook Exit calls, before panicking, on an
// unbalanced Exit, letting the owning Scheduler or Logger route that
// assertion through its own Clock.FatalError instead of a bare panic.
// Optional: a CriticalSection used directly, as in this package's own
// tests, still just panics.
func (c *CriticalSection) SetFatalHandler(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatal = f
}

// Enter acquires the critical section, blocking until any other
// goroutine's section has exited.
func (c *CriticalSection) Enter() {
	c.mu.Lock()
	c.depth++
}

// Exit releases the critical section. Calling Exit without a matching
// Enter is a programmer error and panics, mirroring the original's
// runtime assertion on an unbalanced critical section.
func (c *CriticalSection) Exit() {
	if c.depth == 0 {
		if c.fatal != nil {
			c.fatal()
		}
		panic("system: critical section exit without matching enter")
	}
	c.depth--
	c.mu.Unlock()
}

// Depth reports the current nesting depth. Intended for tests that
// assert on the IRQ-mask discipline.
func (c *CriticalSection) Depth() int {
	return c.depth
}
