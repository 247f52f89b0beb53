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

// Package logpkt is the log front end: per-translation-unit module
// registration, a packed in-memory record layout, and a Logger that
// defers rendering to a low-priority work.Item so a log call from an ISR
// never blocks on the debug sink.
package logpkt

import (
	"sync"
	"sync/atomic"

	"github.com/embeddedcore/runtime/internal/namehash"
)

// Level is a log record's severity. Lower values are more severe, matching
// the original's log_level enum ordering (ERR=0 .. DBG=3) so a module's
// threshold check is a plain numeric comparison.
type Level uint8

const (
	LevelErr Level = iota
	LevelWrn
	LevelInf
	LevelDbg
)

// levelNames is indexed by Level; anything else in fspecPrint-adjacent code
// that needs the three-letter abbreviation reaches for this.
var levelNames = [...]string{"err", "wrn", "inf", "dbg"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "???"
}

// Module is one registered log source: a name and a runtime-adjustable
// level threshold. A *Module's address is what a captured record actually
// carries (see record.go), so a Module must never be copied after
// Register returns it — the same fixed-address contract work.Item places
// on its own intrusive next pointer.
type Module struct {
	Name  string
	level atomic.Uint32

	hash uint64
	next *Module
}

// Level returns the module's current threshold. Safe to call concurrently
// with SetLevel: spec.md treats a module's level as a single aligned
// store, a benign race rather than something needing a lock.
func (m *Module) Level() Level {
	return Level(m.level.Load())
}

var (
	registryMu sync.Mutex
	head       *Module
)

// Register creates a Module named name, defaulting its level to INF, and
// prepends it to the process-wide registry. Ordering among registered
// modules is unspecified, matching LOG_MODULE_REGISTER's linker-section
// constructor array having no defined iteration order either. Intended to
// be called once per translation unit before application code runs.
func Register(name string) *Module {
	m := &Module{Name: name, hash: namehash.String(name)}
	m.level.Store(uint32(LevelInf))

	registryMu.Lock()
	m.next = head
	head = m
	registryMu.Unlock()

	return m
}

// SetLevel scans the registry for a module named name and updates its
// threshold in place, reporting whether a match was found.
func SetLevel(name string, level Level) bool {
	h := namehash.String(name)

	registryMu.Lock()
	defer registryMu.Unlock()

	for m := head; m != nil; m = m.next {
		if m.hash == h && m.Name == name {
			m.level.Store(uint32(level))
			return true
		}
	}
	return false
}
