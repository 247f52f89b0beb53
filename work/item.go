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

// Package work implements a cooperative priority scheduler: two priority
// queues drained by the "soft-IRQ" and main-loop contexts, and one
// time-ordered queue for deadline-scheduled items, all guarded by a single
// system.CriticalSection the way the original's work.c guards its three
// static queue heads.
package work

// Handler runs a Item's payload. It receives the Item itself so the same
// function can be shared across items and still recover its identity,
// mirroring work_handler_t's `struct work *work` parameter.
type Handler func(item *Item)

// flags tracks which queue, if any, an Item currently lives in. An Item
// transitions IDLE -> SCHEDULED -> SUBMITTED -> RUNNING -> IDLE along its
// normal lifecycle, or IDLE -> SUBMITTED -> RUNNING -> IDLE when submitted
// directly, or out of SCHEDULED/SUBMITTED back to IDLE via Cancel.
type flags uint32

const (
	flagRunning flags = 1 << iota
	flagSubmitted
	flagScheduled
)

func (f flags) has(mask flags) bool { return f&mask != 0 }

// Item is one unit of deferred work. The zero value is IDLE and ready to
// be submitted or scheduled; a *Item must not be copied after first use,
// matching the original's requirement that a `struct work` lives at a
// fixed address for its intrusive `next` pointer to stay valid.
type Item struct {
	// Handler runs when the item is dispatched. Must be set before the
	// item is ever submitted or scheduled.
	Handler Handler

	// Priority orders items within whichever queue they land in: lower
	// values run first, and a negative priority routes the item to the
	// high-priority (soft-IRQ-drained) queue instead of the low-priority
	// (main-loop-drained) one. Items with equal priority run in the
	// order they were submitted.
	Priority int32

	// UserData is an open slot for the handler's own state. The original
	// embeds `struct work` inside a larger struct and recovers it via
	// container-of; Go has no container-of, so callers needing their own
	// payload attach it here instead (see SPEC_FULL.md's note on why this
	// replaces the embedding trick) rather than through a second pointer
	// dereference through an interface.
	UserData any

	scheduledUptimeMS uint64
	flags             flags
	next              *Item
}

// Pending reports whether the item is anywhere in a queue (SCHEDULED,
// SUBMITTED, or currently RUNNING).
func (it *Item) Pending() bool {
	return it.flags.has(flagRunning | flagSubmitted | flagScheduled)
}
