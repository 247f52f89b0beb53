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

package work

import (
	"log"
	"math"
	"runtime/debug"
	"sync/atomic"

	"github.com/embeddedcore/runtime/system"
)

// Scheduler runs Items against a system.Clock: a high-priority queue
// drained from the soft-IRQ handler, a low-priority queue drained from
// Run's main loop, and a scheduled queue that feeds ready items into the
// low-priority queue as their deadlines arrive. One CriticalSection
// guards all three queues, matching the single global lock the original's
// static queue heads share.
type Scheduler struct {
	clock system.Clock
	cs    system.CriticalSection

	low   submitQueue
	high  submitQueue
	sched scheduleQueue

	running      atomic.Bool
	panicHandler func(item *Item, r any)
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithPanicHandler overrides what happens when a dispatched Handler
// panics. The default logs the panic and a stack trace via log.Printf
// and otherwise lets the scheduler keep running, mirroring gopool's
// default panic handler.
func WithPanicHandler(f func(item *Item, r any)) Option {
	return func(s *Scheduler) { s.panicHandler = f }
}

// NewScheduler creates a Scheduler bound to clock, wiring itself in as
// clock's soft-IRQ handler. It installs no timer handler: the armed timer
// only ends EnterSleepMode, and Run's loop itself moves due scheduled
// items into the low-priority queue. A Scheduler must not share a
// system.Clock with another Scheduler.
func NewScheduler(clock system.Clock, opts ...Option) *Scheduler {
	s := &Scheduler{clock: clock}
	for _, opt := range opts {
		opt(s)
	}

	s.cs.SetFatalHandler(clock.FatalError)
	clock.SetSoftIRQHandler(s.runHighQueue)
	return s
}

// Submit enqueues item for execution, routing it to the high-priority
// queue (dispatched from the soft-IRQ context) when Priority is negative
// or the low-priority queue (dispatched from Run's main loop) otherwise.
// A no-op if item is already SUBMITTED. If item is SCHEDULED, its pending
// schedule is cancelled in favor of running now. Safe to call from any
// context, including one simulating an ISR.
func (s *Scheduler) Submit(item *Item) {
	s.clock.Wake()
	s.cs.Enter()

	if item.flags.has(flagSubmitted) {
		s.cs.Exit()
		return
	}

	if item.flags.has(flagScheduled) {
		s.sched.remove(item)
	}

	highPriority := item.Priority < 0
	if highPriority {
		s.high.add(item)
	} else {
		s.low.add(item)
	}

	s.cs.Exit()

	// TriggerSoftIRQ must run after the critical section is released:
	// this host's soft-IRQ model calls the handler inline, and that
	// handler re-enters the same CriticalSection to drain the high
	// queue. Holding the lock across the trigger would deadlock against
	// it (the original's hardware soft-IRQ is a pending-bit set and has
	// no such constraint).
	if highPriority {
		s.clock.TriggerSoftIRQ()
	}
}

// ScheduleAt arranges for item to be submitted once the clock's uptime
// reaches uptimeMS. A no-op if item is already SCHEDULED or SUBMITTED —
// the first schedule wins. Scheduling a negative-priority item panics:
// the high-priority queue is soft-IRQ-only and has no notion of a
// deadline to wait for.
func (s *Scheduler) ScheduleAt(item *Item, uptimeMS uint64) {
	if item.Priority < 0 {
		s.clock.FatalError()
		panic("work: cannot schedule a negative-priority item")
	}

	s.clock.Wake()
	s.cs.Enter()
	defer s.cs.Exit()

	if item.flags.has(flagScheduled | flagSubmitted) {
		return
	}

	s.sched.add(item, uptimeMS)
}

// ScheduleAfter schedules item delayMS after the clock's current uptime.
func (s *Scheduler) ScheduleAfter(item *Item, delayMS uint64) {
	s.ScheduleAt(item, s.clock.UptimeMS()+delayMS)
}

// ScheduleAgain schedules item delayMS after the uptime it was last
// scheduled for, giving drift-free periodic timers: repeatedly calling
// ScheduleAgain(item, period) from item's own handler keeps its deadlines
// on a fixed grid instead of drifting by however long each run took.
func (s *Scheduler) ScheduleAgain(item *Item, delayMS uint64) {
	s.clock.Wake()
	s.cs.Enter()
	base := item.scheduledUptimeMS
	s.cs.Exit()

	s.ScheduleAt(item, base+delayMS)
}

// Cancel removes item from whichever queue it is in and clears the
// corresponding flag. A no-op if item is neither SUBMITTED nor
// SCHEDULED, and does not abort a currently RUNNING dispatch.
func (s *Scheduler) Cancel(item *Item) {
	s.clock.Wake()
	s.cs.Enter()
	defer s.cs.Exit()

	if item.flags.has(flagScheduled) {
		s.sched.remove(item)
	}
	if item.flags.has(flagSubmitted) {
		if item.Priority < 0 {
			s.high.remove(item)
		} else {
			s.low.remove(item)
		}
	}
}

// Run processes the low-priority queue and promotes scheduled items as
// their deadlines arrive, sleeping between iterations when there is
// nothing ready. It returns after RunFor's stop item runs, or after Stop
// is called from another context; it never returns on its own otherwise.
func (s *Scheduler) Run() {
	s.running.Store(true)

	// There may already be high-priority work pending from before Run
	// was called; give the soft-IRQ context a chance to drain it.
	s.clock.TriggerSoftIRQ()

	for s.running.Load() {
		s.submitReadyWork()

		if !s.processNext(&s.low) {
			s.sleepUntilReady()
		}
	}
}

// RunFor behaves like Run but returns after durationMS of clock uptime
// has elapsed, processing any work still ready at that deadline before
// returning. Intended for tests: RunFor(0) drains exactly the work that
// is ready right now.
func (s *Scheduler) RunFor(durationMS uint64) {
	stop := &Item{Priority: math.MaxInt32, Handler: func(*Item) { s.running.Store(false) }}
	s.ScheduleAfter(stop, durationMS)
	s.Run()
}

// Stop requests Run to return. A host-only addition with no original
// counterpart (bare-metal firmware never needs to stop its main loop);
// useful for running Scheduler.Run on its own goroutine in tests.
func (s *Scheduler) Stop() {
	s.running.Store(false)
	s.clock.Wake()
}

// runHighQueue drains the high-priority queue until empty. Installed as
// the clock's soft-IRQ handler.
func (s *Scheduler) runHighQueue() {
	for s.running.Load() {
		if !s.processNext(&s.high) {
			break
		}
	}
}

// submitReadyWork moves every scheduled item whose deadline has arrived
// into the low-priority queue.
func (s *Scheduler) submitReadyWork() {
	now := s.clock.UptimeMS()

	s.cs.Enter()
	ready := s.sched.popReadyBefore(now)
	for _, item := range ready {
		s.low.add(item)
	}
	s.cs.Exit()
}

// processNext dequeues and runs the head of q, if any, returning whether
// an item was dispatched.
func (s *Scheduler) processNext(q *submitQueue) bool {
	s.cs.Enter()
	item := q.popFront()
	s.cs.Exit()

	if item == nil {
		return false
	}

	s.dispatch(item)

	s.cs.Enter()
	item.flags &^= flagRunning
	s.cs.Exit()

	return true
}

// dispatch runs item's Handler, containing any panic so one bad handler
// cannot take down the whole scheduler loop.
func (s *Scheduler) dispatch(item *Item) {
	defer func() {
		if r := recover(); r != nil {
			if s.panicHandler != nil {
				s.panicHandler(item, r)
			} else {
				log.Printf("work: item panicked: %v: %s", r, debug.Stack())
			}
		}
	}()

	item.Handler(item)
}

// sleepUntilReady parks the caller (via the clock's sleep-until-interrupt
// primitive) until there is work to do: it returns immediately if the
// low queue is non-empty or the scheduled queue's head is already due,
// arms the hardware timer for the scheduled queue's head deadline
// otherwise, then sleeps.
func (s *Scheduler) sleepUntilReady() {
	s.cs.Enter()

	if s.low.head != nil {
		s.cs.Exit()
		return
	}

	if s.sched.head != nil {
		now := s.clock.UptimeMS()
		deadline := s.sched.head.scheduledUptimeMS

		if deadline <= now {
			s.cs.Exit()
			return
		}

		s.clock.ScheduleTimerAt(deadline)
	}

	s.clock.EnterSleepMode()
	s.cs.Exit()
}
