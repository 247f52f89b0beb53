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

// formatHeaderWidth is the size of the packed (data pointer, length)
// pair standing in for the bare format-string pointer the original packs
// as a single `const char *`: a Go string isn't NUL-terminated, so
// reconstructing one from a capture buffer needs its length alongside
// its address.
const formatHeaderWidth = 16

// cursor is a fixed-size, non-allocating read/write position over a
// caller-owned byte slice, the same role bufiox's BytesReader/BytesWriter
// cursors play over a pooled buffer: every write or read is bounds
// checked against the slice's own length instead of growing it.
type cursor struct {
	buf   []byte
	index int
}

func (c *cursor) writeRaw(b []byte) bool {
	if c.index+len(b) > len(c.buf) {
		return false
	}
	copy(c.buf[c.index:], b)
	c.index += len(b)
	return true
}

func (c *cursor) readRaw(n int) ([]byte, bool) {
	if c.index+n > len(c.buf) {
		return nil, false
	}
	b := c.buf[c.index : c.index+n]
	c.index += n
	return b, true
}

// writeFormatHeader stores format's address and length without copying
// its bytes: the caller (always a string literal in practice) owns the
// format string for the program's lifetime, exactly as the original
// relies on a `static const char *` format argument outliving the
// packaged buffer.
func (c *cursor) writeFormatHeader(format string) bool {
	var hdr [formatHeaderWidth]byte
	ptr := unsafe.Pointer(unsafe.StringData(format))
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(uintptr(ptr)))
	binary.LittleEndian.PutUint64(hdr[8:16], uint64(len(format)))
	return c.writeRaw(hdr[:])
}

func (c *cursor) readFormatHeader() (string, bool) {
	b, ok := c.readRaw(formatHeaderWidth)
	if !ok {
		return "", false
	}
	ptr := uintptr(binary.LittleEndian.Uint64(b[0:8]))
	length := binary.LittleEndian.Uint64(b[8:16])
	return unsafe.String((*byte)(unsafe.Pointer(ptr)), int(length)), true
}

func putUint(b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func getUint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		return 0
	}
}

func getInt(b []byte, l length) int64 {
	u := getUint(b)
	switch l {
	case lengthHH:
		return int64(int8(u))
	case lengthH:
		return int64(int16(u))
	case lengthNone:
		return int64(int32(u))
	default:
		return int64(u)
	}
}
