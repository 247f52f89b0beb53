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
	"encoding/binary"
	"unsafe"

	"github.com/embeddedcore/runtime/format"
	"github.com/embeddedcore/runtime/ringbuf"
)

// headerSize is the packed (module pointer, timestamp, level) prefix every
// record carries ahead of its captured format payload: 8 bytes for the
// pointer (this host is always 64-bit, so P=8 rather than parameterizing
// over an actual target word size), 8 for the microsecond timestamp, 1 for
// the level byte.
const headerSize = 8 + 8 + 1

// maxPayload is how much room a record leaves for format.VCapture once the
// header and the ring's own one-byte length prefix are accounted for.
const maxPayload = ringbuf.MaxPayload - headerSize

// packRecord builds one ring-ready record (header + captured payload) into
// buf, which must be at least ringbuf.MaxPayload bytes, and returns its
// length. Returns 0 if capture fails — unsupported specifier, too few
// arguments, or a payload too large to fit the record budget — in which
// case the caller must count the record as dropped rather than Put it.
func packRecord(buf []byte, m *Module, level Level, timestampUS uint64, fmtStr string, args []any) int {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(uintptr(unsafe.Pointer(m))))
	binary.LittleEndian.PutUint64(buf[8:16], timestampUS)
	buf[16] = byte(level)

	n := format.VCapture(buf[headerSize:headerSize+maxPayload], fmtStr, args)
	if n == 0 {
		return 0
	}
	return headerSize + n
}

// record is one unpacked record, ready to render.
type record struct {
	module      *Module
	timestampUS uint64
	level       Level
	payload     []byte
}

// unpackRecord reads a record previously built by packRecord back out of
// raw, which is a full record as returned by ringbuf.Ring.Get (header plus
// captured payload, no ring length prefix).
func unpackRecord(raw []byte) record {
	ptr := uintptr(binary.LittleEndian.Uint64(raw[0:8]))
	ts := binary.LittleEndian.Uint64(raw[8:16])
	level := Level(raw[16])

	return record{
		module:      (*Module)(unsafe.Pointer(ptr)),
		timestampUS: ts,
		level:       level,
		payload:     raw[headerSize:],
	}
}
