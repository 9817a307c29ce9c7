// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import "golang.org/x/exp/constraints"

// Integer is the type set every integer physical type belongs to. It backs
// FixedBitWidth, Varint, and the run-length counters that need bit tricks or
// zig-zag coding.
type Integer interface {
	constraints.Integer
}

// Float is the type set the two floating-point physical types belong to.
type Float interface {
	constraints.Float
}

// Numeric is the type set every fixed-width physical type (everything but
// bool, string, and binary) belongs to. Trivial, Constant, Dictionary,
// MainlyConstant, RLE, and Nullable are all defined generically over it;
// FixedBitWidth and Varint narrow further to Integer.
type Numeric interface {
	Integer | Float
}

// Encoding is the capability set every decoded payload exposes regardless of
// its element type: kind, physical type, logical row count, and the ability
// to advance without materializing. It is the non-generic handle callers
// that don't know T at compile time (the chunked stream reader, for
// instance) hold onto; they recover type-specific behavior by asserting to
// Decoder[T] once they know the column's physical type.
type Encoding interface {
	Kind() Kind
	DataType() DataType
	RowCount() int
	// Skip advances the decode cursor by n logical values without
	// materializing them.
	Skip(n int) error
}

// Decoder is implemented by every concrete kernel for a given element type
// T. Materialize writes the next n logical values starting at the current
// cursor into out[:n].
type Decoder[T any] interface {
	Encoding
	Materialize(n int, out []T) error
}

// NullableDecoder is the capability Nullable-wrapped payloads add: the
// ability to materialize both the logical values (with a placeholder at
// null positions) and the null bitmap in one pass.
type NullableDecoder[T any] interface {
	Decoder[T]
	// MaterializeNullable writes the next n logical rows into out and marks
	// bit i of nulls (0-indexed from the current cursor) to 1 where row i is
	// non-null, 0 where it is null. nulls must have at least
	// bitops.BitmapBytes(n) bytes available starting at bit 0.
	MaterializeNullable(n int, out []T, nulls []byte) error
}
