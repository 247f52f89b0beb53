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

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// Capture packs format plus args into buf the way the deferred logging
// pipeline stores a log call's arguments for later rendering: buf must
// outlive the eventual Restore exactly as long as format and any %s
// string arguments do, since only their addresses (and, for %s, their
// lengths) are stored, never their contents — mirroring the original
// packing a bare `const char *` and relying on the caller's string
// outliving the packaged buffer.
//
// Capture returns the number of bytes written, or 0 if buf was too
// small, format used an unsupported specifier, or args ran out before
// format's specifiers did; in every failure case buf may already hold a
// partial header or arguments, which the 0 return marks as unusable, and
// the caller should treat the record as dropped.
func Capture(buf []byte, format string, args ...any) int {
	return VCapture(buf, format, args)
}

// VCapture is Capture taking its arguments as a slice.
func VCapture(buf []byte, format string, args []any) int {
	var cur cursor
	cur.buf = buf

	if !cur.writeFormatHeader(format) {
		return 0
	}

	var f fieldSpec
	parsing := false
	argIndex := 0

	for i := 0; i < len(format); i++ {
		c := format[i]

		if !parsing {
			if c == '%' {
				f = fieldSpec{}
				parsing = true
			}
			continue
		}

		state := f.parse(c)
		if state == parseError {
			return 0
		}
		if state == parseComplete {
			if !packArg(&cur, &f, args, &argIndex) {
				return 0
			}
			parsing = false
		}
	}

	return cur.index
}

// packArg resolves the next argument in args against f and writes it
// into cur at its packed width.
func packArg(cur *cursor, f *fieldSpec, args []any, idx *int) bool {
	if f.specifier == specifierEscapePercent {
		return true
	}
	if *idx >= len(args) {
		return false
	}

	a := args[*idx]
	*idx++

	width := packedWidth(f.specifier, f.length)
	var raw [16]byte

	switch f.specifier {
	case specifierSignedDec:
		putUint(raw[:width], uint64(truncateSigned(toInt64(a), f.length)))
	case specifierUnsignedDec, specifierUnsignedHex:
		putUint(raw[:width], truncateUnsigned(toUint64(a), f.length))
	case specifierPointer:
		binary.LittleEndian.PutUint64(raw[:8], toPointer(a))
	case specifierString:
		s, ok := a.(string)
		if !ok {
			fail(fmt.Sprintf("format: %%s argument must be a string, got %T", a))
			return false
		}
		ptr := unsafe.Pointer(unsafe.StringData(s))
		binary.LittleEndian.PutUint64(raw[0:8], uint64(uintptr(ptr)))
		binary.LittleEndian.PutUint64(raw[8:16], uint64(len(s)))
	default:
		return false
	}

	return cur.writeRaw(raw[:width])
}
