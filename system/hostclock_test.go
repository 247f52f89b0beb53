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
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostClock_UptimeAgreesAcrossUnits(t *testing.T) {
	c := NewHostClock()
	time.Sleep(2 * time.Millisecond)

	us := c.UptimeUS()
	ms := c.UptimeMS()
	require.GreaterOrEqual(t, us/1000, ms-1, "UptimeMS must track UptimeUS within the time elapsed between the two calls")
	require.GreaterOrEqual(t, ms, uint64(2))
}

func TestHostClock_BusySleepBlocksForAtLeastTheRequestedDuration(t *testing.T) {
	c := NewHostClock()
	start := time.Now()
	c.BusySleepMS(5)
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestHostClock_DebugOutWritesToConfiguredSink(t *testing.T) {
	var buf bytes.Buffer
	c := NewHostClock(WithDebugWriter(&buf))

	for _, b := range []byte("ok") {
		c.DebugOut(b)
	}
	require.Equal(t, "ok", buf.String())
}

func TestHostClock_ScheduleTimerFiresAfterDelay(t *testing.T) {
	c := NewHostClock()
	fired := make(chan struct{})
	c.SetTimerHandler(func() { close(fired) })

	c.ScheduleTimerAt(c.UptimeMS() + 10)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer handler never fired")
	}
}

func TestHostClock_ScheduleTimerAtRearmsOnSecondCall(t *testing.T) {
	c := NewHostClock()
	calls := make(chan struct{}, 2)
	c.SetTimerHandler(func() { calls <- struct{}{} })

	c.ScheduleTimerAt(c.UptimeMS() + 5000) // far enough out to be stopped before firing
	c.ScheduleTimerAt(c.UptimeMS() + 5)    // replaces the pending timer

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("rearmed timer never fired")
	}

	select {
	case <-calls:
		t.Fatal("the stopped first timer fired anyway")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHostClock_TriggerSoftIRQInvokesHandlerAndWakesSleeper(t *testing.T) {
	c := NewHostClock()
	invoked := make(chan struct{})
	c.SetSoftIRQHandler(func() { close(invoked) })

	woke := make(chan struct{})
	go func() {
		c.EnterSleepMode()
		close(woke)
	}()

	time.Sleep(10 * time.Millisecond) // give the goroutine time to park
	c.TriggerSoftIRQ()

	select {
	case <-invoked:
	case <-time.After(time.Second):
		t.Fatal("soft-IRQ handler never invoked")
	}
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("TriggerSoftIRQ did not wake the sleeping goroutine")
	}
}

func TestHostClock_FatalErrorDrainsThenHalts(t *testing.T) {
	var drained, halted int
	c := NewHostClock(WithHaltFunc(func() { halted++ }))
	c.SetPanicDrain(func() { drained++ })

	c.FatalError()
	require.Equal(t, 1, drained)
	require.Equal(t, 1, halted)

	c.FatalError()
	require.Equal(t, 1, drained, "re-entrant FatalError must not drain twice")
	require.Equal(t, 1, halted, "re-entrant FatalError must not halt twice")
}
