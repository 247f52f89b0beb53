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

package format

// fatalHandler, once installed via SetFatalHandler, is invoked by every
// contract violation this package detects: a captured buffer that can't
// be replayed (corrupt or truncated) or an argument that doesn't match
// its format specifier. format has no business importing system (it
// sits below logpkt, which already imports both), so the hook is the
// only way in, the same shape system.HostClock.SetPanicDrain uses to
// reach logpkt without system importing it back.
var fatalHandler func()

// SetFatalHandler installs f as the hook every contract violation in
// this package calls: argument mismatches call it and then panic (see
// fail), corrupt Restore input calls it and stops rendering without
// panicking (see reportCorruption). logpkt.NewLogger wires this to
// the owning system.Clock's FatalError. Passing nil restores the
// no-hook default this package's own tests run against.
func SetFatalHandler(f func()) {
	fatalHandler = f
}

// fail reports an unrecoverable contract violation: a caller passed an
// argument that doesn't match its format specifier. It invokes the
// installed fatal handler, if any, then panics so a caller that never
// wires one up (or whose handler doesn't actually halt, like a test
// double) still stops instead of rendering garbage.
func fail(msg string) {
	if fatalHandler != nil {
		fatalHandler()
	}
	panic(msg)
}

// reportCorruption invokes the installed fatal handler for a corrupt or
// truncated captured buffer found during Restore. Unlike fail it never
// panics: Restore's caller already treats a failed render as "stop
// here, there is nothing left to unwind", so firing the hook is the
// whole job.
func reportCorruption() {
	if fatalHandler != nil {
		fatalHandler()
	}
}
