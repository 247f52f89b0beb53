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
	"unsafe"
)

// Restore renders a buffer previously produced by Capture/VCapture
// through out, re-parsing the stored format string and pulling each
// argument back out of the packed record at the width it was written
// with. A buffer too short to hold what it claims to — truncated or
// otherwise corrupt — is a contract violation: Capture/VCapture never
// produce one, so encountering it here means the ring or its backing
// storage was damaged after the fact. Restore reports it through the
// installed fatal handler (see SetFatalHandler) and stops rendering.
func Restore(out OutFunc, packaged []byte) {
	var cur cursor
	cur.buf = packaged

	format, ok := cur.readFormatHeader()
	if !ok {
		reportCorruption()
		return
	}

	var f fieldSpec
	parsing := false

	for i := 0; i < len(format); i++ {
		c := format[i]

		if !parsing {
			if c == '%' {
				f = fieldSpec{}
				parsing = true
			} else {
				out(c)
			}
			continue
		}

		state := f.parse(c)
		if state == parseError {
			reportCorruption()
			return
		}
		if state == parseComplete {
			v, ok := unpackArg(&cur, &f)
			if !ok {
				reportCorruption()
				return
			}
			fspecPrint(out, &f, v)
			parsing = false
		}
	}
}

// unpackArg reads the next argument out of cur at f's packed width.
func unpackArg(cur *cursor, f *fieldSpec) (value, bool) {
	if f.specifier == specifierEscapePercent {
		return value{}, true
	}

	width := packedWidth(f.specifier, f.length)
	b, ok := cur.readRaw(width)
	if !ok {
		return value{}, false
	}

	switch f.specifier {
	case specifierSignedDec:
		return value{s: getInt(b, f.length)}, true
	case specifierUnsignedDec, specifierUnsignedHex:
		return value{u: getUint(b)}, true
	case specifierPointer:
		return value{u: binary.LittleEndian.Uint64(b)}, true
	case specifierString:
		ptr := uintptr(binary.LittleEndian.Uint64(b[0:8]))
		strLen := binary.LittleEndian.Uint64(b[8:16])
		return value{str: unsafe.String((*byte)(unsafe.Pointer(ptr)), int(strLen))}, true
	default:
		return value{}, false
	}
}
