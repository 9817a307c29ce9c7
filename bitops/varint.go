// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package bitops

import "encoding/binary"

// ZigZagEncode maps a signed integer to an unsigned one so that small-in-
// magnitude values (positive or negative) stay small, which is what the
// Varint encoding kernel needs.
func ZigZagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// ZigZagDecode inverts ZigZagEncode.
func ZigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// PutVarint writes v as a standard base-128 varint and returns the number of
// bytes written. buf must have at least MaxVarintLen64 bytes available.
func PutVarint(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// VarintLen returns the number of bytes PutVarint would write for v.
func VarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// GetVarint reads a varint from buf, returning the value and the number of
// bytes consumed. It returns (0, 0) if buf does not contain a complete,
// well-formed varint; binary.Uvarint's negative count for an overflowing
// varint is folded into that same (0, 0) result.
func GetVarint(buf []byte) (uint64, int) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0
	}
	return v, n
}

// PutVarintSigned zig-zag encodes v and writes it as a varint.
func PutVarintSigned(buf []byte, v int64) int {
	return PutVarint(buf, ZigZagEncode(v))
}

// GetVarintSigned reads a zig-zag varint written by PutVarintSigned.
func GetVarintSigned(buf []byte) (int64, int) {
	u, n := GetVarint(buf)
	if n == 0 {
		return 0, 0
	}
	return ZigZagDecode(u), n
}

// MaxVarintLen64 is the maximum number of bytes a 64-bit varint can occupy.
const MaxVarintLen64 = binary.MaxVarintLen64
