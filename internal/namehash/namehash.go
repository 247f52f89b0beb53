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

// Package namehash gives the log module registry a cheap fast-reject hash
// ahead of its linear name scan. In-memory use only: like hash/xfnv, the
// result must never be persisted or compared across process runs.
package namehash

const (
	offset64 = uint64(14695981039346656037)
	prime64  = uint64(1099511628211)
)

// String returns the FNV-1a hash of s.
func String(s string) uint64 {
	h := offset64
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
