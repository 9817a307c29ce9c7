// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/schema"
)

// Vector is one column's materialized output for a batch of rows. Its
// shape mirrors the schema.Type it was read from: a Scalar vector carries
// Values, a Row vector carries one child Vector per field, Array/Map carry
// Lengths plus one or two child Vectors, and FlatMap carries one child
// Vector per currently-projected key alongside the keys themselves.
//
// Values holds the decoded, possibly-upcast physical slice for a Scalar
// vector: one of []int8 ... []uint64, []float32, []float64, []bool,
// []string, depending on the DataType the caller requested the column as.
type Vector struct {
	Type   schema.Kind
	DType  encoding.DataType
	Length int

	// Nulls is a bitmap (1 == present) when the underlying Row/FlatMap
	// nulls stream (or a Nullable-wrapped values stream) indicated any
	// null rows; nil means every row in this vector is non-null.
	Nulls []byte

	Values any

	Lengths []uint32
	Offsets []uint32

	Fields      []string
	FlatMapKeys []string
	Children    []*Vector
}

// IsNull reports whether row i of this vector is null. It is always false
// when Nulls is nil.
func (v *Vector) IsNull(i int) bool {
	return v.Nulls != nil && !bitops.GetBit(v.Nulls, i)
}
