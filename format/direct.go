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

import "fmt"

// CBPrintf formats format against args, invoking out once per output
// byte. It implements a subset of C's printf — %d/%i, %u, %x, %p, %s, %%,
// the h/hh/l/ll/z length modifiers and a minimum field width with
// optional zero-padding — matching exactly what the logging front end
// needs and nothing more. An invalid or truncated format string simply
// stops output early rather than returning an error, the same
// best-effort contract the original's cbvprintf has.
func CBPrintf(out OutFunc, format string, args ...any) {
	CBVPrintf(out, format, args)
}

// CBVPrintf is CBPrintf taking its arguments as a slice, mirroring the
// cbprintf/cbvprintf split the original uses to share one implementation
// between a variadic entry point and a va_list-style callee.
func CBVPrintf(out OutFunc, format string, args []any) {
	var f fieldSpec
	parsing := false
	argIndex := 0

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
			return
		}
		if state == parseComplete {
			v, ok := getArg(&f, args, &argIndex)
			if !ok {
				return
			}
			fspecPrint(out, &f, v)
			parsing = false
		}
	}
}

// getArg resolves the next argument in args against f, widening and
// truncating it to the type the specifier and length modifier imply.
func getArg(f *fieldSpec, args []any, idx *int) (value, bool) {
	if f.specifier == specifierEscapePercent {
		return value{}, true
	}
	if *idx >= len(args) {
		return value{}, false
	}

	a := args[*idx]
	*idx++

	switch f.specifier {
	case specifierSignedDec:
		return value{s: truncateSigned(toInt64(a), f.length)}, true
	case specifierUnsignedDec, specifierUnsignedHex:
		return value{u: truncateUnsigned(toUint64(a), f.length)}, true
	case specifierPointer:
		return value{u: toPointer(a)}, true
	case specifierString:
		s, ok := a.(string)
		if !ok {
			fail(fmt.Sprintf("format: %%s argument must be a string, got %T", a))
			return value{}, false
		}
		return value{str: s}, true
	default:
		return value{}, false
	}
}
