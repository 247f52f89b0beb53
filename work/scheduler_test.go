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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embeddedcore/runtime/system"
)

func TestScheduler_PriorityOrder(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	var order []string
	var mu sync.Mutex
	record := func(name string) Handler {
		return func(*Item) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	low5 := &Item{Priority: 5, Handler: record("low5")}
	low1 := &Item{Priority: 1, Handler: record("low1")}
	low1b := &Item{Priority: 1, Handler: record("low1b")}

	s.Submit(low5)
	s.Submit(low1)
	s.Submit(low1b)

	s.RunFor(0)

	require.Equal(t, []string{"low1", "low1b", "low5"}, order)
}

func TestScheduler_NegativePriorityRunsViaSoftIRQ(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	var order []string
	low := &Item{Priority: 1, Handler: func(*Item) { order = append(order, "low") }}
	high := &Item{Priority: -1, Handler: func(*Item) { order = append(order, "high") }}

	s.Submit(low)
	s.Submit(high)

	require.Empty(t, order, "the soft-IRQ handler only drains while the scheduler is running, so a submit before Run starts must not dispatch yet")

	s.RunFor(0)
	require.Equal(t, []string{"high", "low"}, order, "Run triggers the soft-IRQ before entering its low-priority loop, so queued high-priority work always goes first")
}

func TestScheduler_ScheduleAfterDelay(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	ran := false
	item := &Item{Priority: 0, Handler: func(*Item) { ran = true }}
	s.ScheduleAfter(item, 100)

	s.RunFor(50)
	require.False(t, ran, "must not run before its deadline")

	s.RunFor(50)
	require.True(t, ran, "must run once uptime reaches the deadline")
}

func TestScheduler_SubmitWhileScheduledCancelsSchedule(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	runCount := 0
	item := &Item{Priority: 0, Handler: func(*Item) { runCount++ }}

	s.ScheduleAfter(item, 500)
	s.Submit(item)

	s.RunFor(0)
	require.Equal(t, 1, runCount, "submit must cancel the pending schedule, not stack a second run")

	clock.Advance(500 * 1000)
	s.RunFor(0)
	require.Equal(t, 1, runCount, "the cancelled schedule must not still fire later")
}

func TestScheduler_ScheduleOnAlreadyScheduledIsNoop(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	item := &Item{Priority: 0, Handler: func(*Item) {}}

	s.ScheduleAfter(item, 1000)
	s.ScheduleAfter(item, 10) // first schedule wins; this must be ignored

	s.RunFor(10)
	require.True(t, item.Pending(), "the original 1000ms schedule must still be the one in effect")
}

func TestScheduler_CancelScheduled(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	ran := false
	item := &Item{Priority: 0, Handler: func(*Item) { ran = true }}

	s.ScheduleAfter(item, 100)
	s.Cancel(item)

	clock.Advance(1000 * 1000)
	s.RunFor(0)
	require.False(t, ran)
	require.False(t, item.Pending())
}

func TestScheduler_CancelSubmitted(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	ran := false
	item := &Item{Priority: 0, Handler: func(*Item) { ran = true }}

	s.Submit(item)
	s.Cancel(item)

	s.RunFor(0)
	require.False(t, ran)
}

func TestScheduler_CancelNotQueuedIsNoop(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	item := &Item{Priority: 0, Handler: func(*Item) {}}
	require.NotPanics(t, func() { s.Cancel(item) })
}

func TestScheduler_ScheduleAgainStaysOnGrid(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	var fireTimes []uint64
	item := &Item{Priority: 0}
	item.Handler = func(*Item) {
		fireTimes = append(fireTimes, clock.UptimeMS())
		if len(fireTimes) < 3 {
			s.ScheduleAgain(item, 100)
		}
	}
	s.ScheduleAfter(item, 100)

	s.RunFor(300)

	require.Equal(t, []uint64{100, 200, 300}, fireTimes, "periodic re-scheduling from the handler must land on a fixed grid, not drift")
}

func TestScheduler_SchedulingNegativePriorityPanics(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	item := &Item{Priority: -1, Handler: func(*Item) {}}
	require.Panics(t, func() { s.ScheduleAfter(item, 10) })
}

func TestScheduler_SchedulingNegativePriorityCallsClockFatalErrorBeforePanicking(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	item := &Item{Priority: -1, Handler: func(*Item) {}}
	require.Panics(t, func() { s.ScheduleAfter(item, 10) })
	require.Equal(t, 1, clock.FatalCount())
}

func TestScheduler_RunningItemDelaysHigherPriority(t *testing.T) {
	clock := system.NewFakeClock()
	s := NewScheduler(clock)

	var order []string
	running := make(chan struct{})
	release := make(chan struct{})

	slow := &Item{Priority: 5, Handler: func(*Item) {
		order = append(order, "slow-start")
		close(running)
		<-release
		order = append(order, "slow-end")
	}}
	fast := &Item{Priority: 1, Handler: func(*Item) {
		order = append(order, "fast")
	}}

	s.Submit(slow)
	done := make(chan struct{})
	go func() {
		s.RunFor(0)
		close(done)
	}()

	<-running
	s.Submit(fast)
	close(release)
	<-done

	require.Equal(t, []string{"slow-start", "slow-end", "fast"}, order, "a running item always finishes; it is never preempted by a higher-priority submission")
}

func TestScheduler_PanicHandlerContainsFailure(t *testing.T) {
	clock := system.NewFakeClock()

	var caught any
	s := NewScheduler(clock, WithPanicHandler(func(item *Item, r any) { caught = r }))

	ranAfter := false
	s.Submit(&Item{Priority: 0, Handler: func(*Item) { panic("boom") }})
	s.Submit(&Item{Priority: 1, Handler: func(*Item) { ranAfter = true }})

	s.RunFor(0)

	require.Equal(t, "boom", caught)
	require.True(t, ranAfter, "a panicking item must not take down the rest of the queue")
}
