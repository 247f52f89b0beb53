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
	"testing"

	"github.com/stretchr/testify/require"
)

func render(format string, args ...any) string {
	var out []byte
	CBPrintf(func(c byte) { out = append(out, c) }, format, args...)
	return string(out)
}

func TestCBPrintf_Basics(t *testing.T) {
	require.Equal(t, "hello world", render("hello world"))
	require.Equal(t, "100% done", render("100%% done"))
	require.Equal(t, "x=42", render("x=%d", int32(42)))
	require.Equal(t, "x=-42", render("x=%d", int32(-42)))
	require.Equal(t, "x=42", render("x=%u", uint32(42)))
	require.Equal(t, "x=2a", render("x=%x", uint32(42)))
	require.Equal(t, "s=hi", render("s=%s", "hi"))
}

func TestCBPrintf_Width(t *testing.T) {
	require.Equal(t, "x=   42", render("x=%5d", int32(42)))
	require.Equal(t, "x=00042", render("x=%05d", int32(42)))
	require.Equal(t, "x=-0042", render("x=%05d", int32(-42)))
	require.Equal(t, "x=  -42", render("x=%5d", int32(-42)))
	require.Equal(t, "x=42", render("x=%1d", int32(42)), "width never truncates")
}

func TestCBPrintf_LengthModifiers(t *testing.T) {
	require.Equal(t, "7", render("%hhd", int8(7)))
	require.Equal(t, "-7", render("%hhd", int8(-7)))
	require.Equal(t, "300", render("%hd", int16(300)))
	require.Equal(t, "4294967296", render("%lld", int64(4294967296)))
	require.Equal(t, "42", render("%zu", uint64(42)))
}

func TestCBPrintf_Pointer(t *testing.T) {
	require.Equal(t, "p=2a", render("p=%x", uint64(42)))
	require.Equal(t, "2a", render("%p", uintptr(0x2a)))
}

func TestCBPrintf_MultipleArgs(t *testing.T) {
	require.Equal(t, "a=1 b=2 c=3", render("a=%d b=%d c=%d", int32(1), int32(2), int32(3)))
}

func TestCBPrintf_TooFewArgsStopsEarly(t *testing.T) {
	require.Equal(t, "x=1 more text", render("x=%d more text", int32(1)))
	require.Equal(t, "x=", render("x=%d more text"), "running out of arguments stops output immediately, dropping the rest of the format string")
}

func TestCBPrintf_InvalidSpecifierStopsEarly(t *testing.T) {
	require.Equal(t, "x=", render("x=%q", int32(1)))
}

func TestCaptureRestore_RoundTrip(t *testing.T) {
	var buf [64]byte
	n := Capture(buf[:], "id=%d name=%s rc=%x", int32(-5), "widget", uint32(255))
	require.Greater(t, n, 0)

	require.Equal(t, "id=-5 name=widget rc=ff", render2(buf[:n]))
}

func TestCapture_TooSmallBufferReturnsZero(t *testing.T) {
	var buf [4]byte
	n := Capture(buf[:], "id=%d name=%s", int32(-5), "widget")
	require.Equal(t, 0, n)
}

func TestCapture_NoArgFormatRoundTrips(t *testing.T) {
	var buf [32]byte
	n := Capture(buf[:], "boot complete")
	require.Greater(t, n, 0)
	require.Equal(t, "boot complete", render2(buf[:n]))
}

func render2(packaged []byte) string {
	var out []byte
	Restore(func(c byte) { out = append(out, c) }, packaged)
	return string(out)
}

func TestRestore_TruncatedBufferReportsFatalThenStops(t *testing.T) {
	var calls int
	SetFatalHandler(func() { calls++ })
	defer SetFatalHandler(nil)

	var out []byte
	Restore(func(c byte) { out = append(out, c) }, []byte{1, 2, 3})

	require.Equal(t, 1, calls)
	require.Empty(t, out)
}

func TestRestore_TruncatedArgumentReportsFatal(t *testing.T) {
	var buf [32]byte
	n := Capture(buf[:], "id=%d", int32(-5))
	require.Greater(t, n, 0)

	var calls int
	SetFatalHandler(func() { calls++ })
	defer SetFatalHandler(nil)

	// Truncate after the format header so the %d argument can never be
	// read back in full.
	Restore(func(byte) {}, buf[:n-1])
	require.Equal(t, 1, calls)
}

func TestGetArg_WrongTypeForStringSpecifierReportsFatalAndPanics(t *testing.T) {
	var calls int
	SetFatalHandler(func() { calls++ })
	defer SetFatalHandler(nil)

	require.Panics(t, func() { render("s=%s", int32(1)) })
	require.Equal(t, 1, calls)
}

func TestPackArg_WrongTypeForStringSpecifierReportsFatalAndPanics(t *testing.T) {
	var calls int
	SetFatalHandler(func() { calls++ })
	defer SetFatalHandler(nil)

	var buf [32]byte
	require.Panics(t, func() { Capture(buf[:], "s=%s", int32(1)) })
	require.Equal(t, 1, calls)
}

func TestToInt64_UnsupportedTypeReportsFatalAndPanics(t *testing.T) {
	var calls int
	SetFatalHandler(func() { calls++ })
	defer SetFatalHandler(nil)

	require.Panics(t, func() { render("x=%d", 3.14) })
	require.Equal(t, 1, calls)
}
