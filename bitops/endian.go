// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bitops provides the little-endian primitive read/write helpers,
// varint/zig-zag coding, a packed fixed-bit-width array, and bitmap
// operations shared by every encoding kernel. Every read bounds-checks
// against the declared payload end and returns an error rather than
// panicking on overrun, except where the caller has already validated the
// length (materialize/skip fast paths document this explicitly).
package bitops

import (
	"encoding/binary"
	"math"

	nerrors "github.com/facebookexternal/nimble/errors"
)

// errShort builds the CorruptFormat error the Get* helpers return when buf
// is too small to contain the requested field.
func errShort(field string, need, have int) error {
	return nerrors.Newf(nerrors.CorruptFormat, "short buffer reading %s: need %d bytes, have %d", field, need, have)
}

// PutUint8 writes v into buf[0].
func PutUint8(buf []byte, v uint8) { buf[0] = v }

// GetUint8 reads a uint8 from buf[0].
func GetUint8(buf []byte) (uint8, error) {
	if len(buf) < 1 {
		return 0, errShort("uint8", 1, len(buf))
	}
	return buf[0], nil
}

// PutUint16 writes v as little-endian into buf[0:2].
func PutUint16(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// GetUint16 reads a little-endian uint16 from buf[0:2].
func GetUint16(buf []byte) (uint16, error) {
	if len(buf) < 2 {
		return 0, errShort("uint16", 2, len(buf))
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// PutUint32 writes v as little-endian into buf[0:4].
func PutUint32(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// GetUint32 reads a little-endian uint32 from buf[0:4].
func GetUint32(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, errShort("uint32", 4, len(buf))
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// PutUint64 writes v as little-endian into buf[0:8].
func PutUint64(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }

// GetUint64 reads a little-endian uint64 from buf[0:8].
func GetUint64(buf []byte) (uint64, error) {
	if len(buf) < 8 {
		return 0, errShort("uint64", 8, len(buf))
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// PutFloat32 writes v as little-endian IEEE754 into buf[0:4].
func PutFloat32(buf []byte, v float32) { PutUint32(buf, math.Float32bits(v)) }

// GetFloat32 reads a little-endian IEEE754 float32 from buf[0:4].
func GetFloat32(buf []byte) (float32, error) {
	u, err := GetUint32(buf)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// PutFloat64 writes v as little-endian IEEE754 into buf[0:8].
func PutFloat64(buf []byte, v float64) { PutUint64(buf, math.Float64bits(v)) }

// GetFloat64 reads a little-endian IEEE754 float64 from buf[0:8].
func GetFloat64(buf []byte) (float64, error) {
	u, err := GetUint64(buf)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// PutBool writes v as a single byte (0 or 1) into buf[0].
func PutBool(buf []byte, v bool) {
	if v {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
}

// GetBool reads a single-byte bool from buf[0].
func GetBool(buf []byte) (bool, error) {
	b, err := GetUint8(buf)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// PutString writes a length-prefixed string: u32 length followed by the raw
// bytes. It returns the number of bytes written.
func PutString(buf []byte, s string) int {
	PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return 4 + len(s)
}

// StringSize returns the serialized size of s under PutString's layout.
func StringSize(s string) int { return 4 + len(s) }

// GetString reads a length-prefixed string written by PutString, returning
// the string (a view into buf, not copied) and the number of bytes consumed.
func GetString(buf []byte) (string, int, error) {
	n, err := GetUint32(buf)
	if err != nil {
		return "", 0, err
	}
	end := 4 + int(n)
	if len(buf) < end {
		return "", 0, errShort("string body", end, len(buf))
	}
	return string(buf[4:end]), end, nil
}
