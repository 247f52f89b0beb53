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

package logpkt

import (
	"fmt"

	"github.com/embeddedcore/runtime/format"
	"github.com/embeddedcore/runtime/ringbuf"
	"github.com/embeddedcore/runtime/system"
	"github.com/embeddedcore/runtime/work"
)

// drainPriority is the fixed priority the deferred render item runs at: a
// small positive value keeps it in the low-priority (main-loop) queue,
// behind anything more urgent but ahead of background items that don't
// care about latency.
const drainPriority = 10

// lineEnd is the line terminator this host-simulation build emits.
// Embedded targets use "\r\n"; that distinction has no meaning for a Go
// process writing to a pipe or terminal, so this build only ever needs
// the host variant.
const lineEnd = "\n"

// Logger defers rendering of captured log records to a low-priority
// work.Item so LOG_xxx-equivalent calls made from ISR-equivalent contexts
// never block on the debug sink. One Logger owns one ring buffer; the
// ring's producer side (captured records) and consumer side (the drain
// item) are serialized by cs exactly as spec.md requires for the ring's
// shared state.
type Logger struct {
	clock system.Clock
	sched *work.Scheduler
	cs    system.CriticalSection

	ring  ringbuf.Ring
	drain work.Item
}

// NewLogger creates a Logger that renders through clock's debug sink and
// schedules its drain item on sched.
func NewLogger(clock system.Clock, sched *work.Scheduler) *Logger {
	l := &Logger{clock: clock, sched: sched}
	l.drain = work.Item{Priority: drainPriority, Handler: l.handleDrain}

	l.cs.SetFatalHandler(clock.FatalError)
	l.ring.SetFatalHandler(clock.FatalError)
	// format has no dependency on system; this is its only way to reach
	// FatalError on a corrupt restore (spec.md §4.3, §7). One process runs
	// one Logger against one Clock, so the package-level hook never needs
	// to juggle more than one installer.
	format.SetFatalHandler(clock.FatalError)

	return l
}

// Errorf logs at LevelErr.
func (l *Logger) Errorf(m *Module, fmtStr string, args ...any) { l.log(m, LevelErr, fmtStr, args) }

// Warnf logs at LevelWrn.
func (l *Logger) Warnf(m *Module, fmtStr string, args ...any) { l.log(m, LevelWrn, fmtStr, args) }

// Infof logs at LevelInf.
func (l *Logger) Infof(m *Module, fmtStr string, args ...any) { l.log(m, LevelInf, fmtStr, args) }

// Debugf logs at LevelDbg.
func (l *Logger) Debugf(m *Module, fmtStr string, args ...any) { l.log(m, LevelDbg, fmtStr, args) }

// log is the shared body behind Errorf/Warnf/Infof/Debugf, mirroring the
// original's LOG_xxx macro expansion: check the threshold, sample the
// clock, capture the arguments, queue the record, and kick the drain item.
// Safe to call from any context, including one simulating an ISR.
func (l *Logger) log(m *Module, level Level, fmtStr string, args []any) {
	if level > m.Level() {
		return
	}

	ts := l.clock.UptimeUS()

	var buf [ringbuf.MaxPayload]byte
	n := packRecord(buf[:], m, level, ts, fmtStr, args)

	l.clock.Wake()
	l.cs.Enter()
	if n == 0 {
		l.ring.MarkDropped()
		l.cs.Exit()
		return
	}
	l.ring.Put(buf[:n])
	l.cs.Exit()

	l.sched.Submit(&l.drain)
}

// handleDrain renders exactly one record per dispatch and, if the ring
// still holds more, resubmits itself so draining continues on the next
// low-priority slot rather than hogging the main loop in one call.
func (l *Logger) handleDrain(*work.Item) {
	l.cs.Enter()
	dropped := l.ring.ResetDropped()

	var buf [ringbuf.MaxPayload]byte
	n, ok := l.ring.Get(buf[:])
	more := !l.ring.Empty()
	l.cs.Exit()

	if dropped > 0 {
		l.emitDropped(dropped)
	}
	if ok {
		l.render(unpackRecord(buf[:n]))
	}
	if more {
		l.sched.Submit(&l.drain)
	}
}

// Panic synchronously drains every record currently in the ring,
// bypassing the scheduler entirely. It fits system.HostClock's panic
// drain hook, so that FatalError flushes pending log output before
// halting; NewLogger does not install it there itself, the owner of the
// HostClock passes it to SetPanicDrain.
func (l *Logger) Panic() {
	for {
		l.cs.Enter()
		dropped := l.ring.ResetDropped()

		var buf [ringbuf.MaxPayload]byte
		n, ok := l.ring.Get(buf[:])
		l.cs.Exit()

		if dropped > 0 {
			l.emitDropped(dropped)
		}
		if !ok {
			return
		}
		l.render(unpackRecord(buf[:n]))
	}
}

func (l *Logger) emitDropped(n uint32) {
	l.writeString(fmt.Sprintf("\x1B[1;31m--- %d messages dropped ---\x1B[0m%s", n, lineEnd))
}

// levelStyle wraps lvl's three-letter abbreviation in the ANSI codes
// spec.md assigns it: bright red for err, bright yellow for wrn, no
// wrapper at all for inf/dbg.
func levelStyle(lvl Level) string {
	switch lvl {
	case LevelErr:
		return "\x1B[1;31m" + lvl.String() + "\x1B[0m"
	case LevelWrn:
		return "\x1B[1;33m" + lvl.String() + "\x1B[0m"
	default:
		return lvl.String()
	}
}

func (l *Logger) render(r record) {
	totalSeconds := r.timestampUS / 1_000_000
	hh := totalSeconds / 3600
	mm := (totalSeconds / 60) % 60
	ss := totalSeconds % 60
	mmm := (r.timestampUS / 1000) % 1000
	uuu := r.timestampUS % 1000

	name := "?"
	if r.module != nil {
		name = r.module.Name
	}

	header := fmt.Sprintf("[%02d:%02d:%02d.%03d,%03d] <%s> %s: ", hh, mm, ss, mmm, uuu, levelStyle(r.level), name)
	l.writeString(header)

	format.Restore(l.clock.DebugOut, r.payload)

	l.writeString(lineEnd)
}

func (l *Logger) writeString(s string) {
	for i := 0; i < len(s); i++ {
		l.clock.DebugOut(s[i])
	}
}
