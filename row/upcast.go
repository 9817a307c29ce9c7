// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// allocValues returns a fresh, zeroed slice of the Go type backing dtype.
func allocValues(dtype encoding.DataType, n int) any {
	switch dtype {
	case encoding.I8:
		return make([]int8, n)
	case encoding.U8:
		return make([]uint8, n)
	case encoding.I16:
		return make([]int16, n)
	case encoding.U16:
		return make([]uint16, n)
	case encoding.I32:
		return make([]int32, n)
	case encoding.U32:
		return make([]uint32, n)
	case encoding.I64:
		return make([]int64, n)
	case encoding.U64:
		return make([]uint64, n)
	case encoding.F32:
		return make([]float32, n)
	case encoding.F64:
		return make([]float64, n)
	case encoding.Bool:
		return make([]bool, n)
	case encoding.String, encoding.Binary:
		return make([]string, n)
	default:
		return nil
	}
}

// upcastRank orders the widening lattice spec.md §4.11 permits within a
// signedness family: i8→i16→i32→i64, u8→…→u64, f32→f64. Bool is handled
// separately since it may widen into any integer.
func upcastRank(dtype encoding.DataType) (family int, rank int) {
	switch dtype {
	case encoding.I8:
		return 0, 0
	case encoding.I16:
		return 0, 1
	case encoding.I32:
		return 0, 2
	case encoding.I64:
		return 0, 3
	case encoding.U8:
		return 1, 0
	case encoding.U16:
		return 1, 1
	case encoding.U32:
		return 1, 2
	case encoding.U64:
		return 1, 3
	case encoding.F32:
		return 2, 0
	case encoding.F64:
		return 2, 1
	default:
		return -1, -1
	}
}

// validateUpcast reports whether values stored as stored may be requested
// as requested, per spec.md §4.11's permitted upcast list.
func validateUpcast(stored, requested encoding.DataType) error {
	if stored == requested {
		return nil
	}
	if stored == encoding.Bool && requested != encoding.String && requested != encoding.Binary && requested != encoding.Bool {
		// spec.md §4.11 permits bool to widen into any integer, never into a
		// float — family 2 is the float family upcastRank assigns F32/F64.
		if family, rank := upcastRank(requested); rank >= 0 && family != 2 {
			return nil
		}
	}
	sf, sr := upcastRank(stored)
	rf, rr := upcastRank(requested)
	if sf >= 0 && sf == rf && rr >= sr {
		return nil
	}
	return nerrors.Newf(nerrors.SchemaMismatch,
		"column stored as %s cannot be requested as %s: not a permitted upcast", stored, requested)
}

// widenInto widens tmp (a stored-type slice of length n) into out (a
// requested-type slice of length n, already allocated), per spec.md
// §4.11: "materialize into a temporary of stored type then widen
// element-wise."
func widenInto(stored, requested encoding.DataType, tmp, out any, n int) error {
	if stored == encoding.Bool {
		return widenBool(tmp.([]bool), requested, out, n)
	}
	sf, _ := upcastRank(stored)
	switch sf {
	case 0:
		return widenSignedInt(toInt64(stored, tmp, n), requested, out, n)
	case 1:
		return widenUnsignedInt(toUint64(stored, tmp, n), requested, out, n)
	case 2:
		return widenFloat(tmp.([]float32), requested, out, n)
	}
	return nerrors.Newf(nerrors.SchemaMismatch, "cannot widen %s", stored)
}

func toInt64(stored encoding.DataType, tmp any, n int) []int64 {
	out := make([]int64, n)
	switch stored {
	case encoding.I8:
		for i, v := range tmp.([]int8) {
			out[i] = int64(v)
		}
	case encoding.I16:
		for i, v := range tmp.([]int16) {
			out[i] = int64(v)
		}
	case encoding.I32:
		for i, v := range tmp.([]int32) {
			out[i] = int64(v)
		}
	case encoding.I64:
		copy(out, tmp.([]int64))
	}
	return out
}

func toUint64(stored encoding.DataType, tmp any, n int) []uint64 {
	out := make([]uint64, n)
	switch stored {
	case encoding.U8:
		for i, v := range tmp.([]uint8) {
			out[i] = uint64(v)
		}
	case encoding.U16:
		for i, v := range tmp.([]uint16) {
			out[i] = uint64(v)
		}
	case encoding.U32:
		for i, v := range tmp.([]uint32) {
			out[i] = uint64(v)
		}
	case encoding.U64:
		copy(out, tmp.([]uint64))
	}
	return out
}

func widenSignedInt(vals []int64, requested encoding.DataType, out any, n int) error {
	switch requested {
	case encoding.I16:
		o := out.([]int16)
		for i, v := range vals {
			o[i] = int16(v)
		}
	case encoding.I32:
		o := out.([]int32)
		for i, v := range vals {
			o[i] = int32(v)
		}
	case encoding.I64:
		copy(out.([]int64), vals)
	default:
		return nerrors.Newf(nerrors.SchemaMismatch, "cannot widen signed integer to %s", requested)
	}
	return nil
}

func widenUnsignedInt(vals []uint64, requested encoding.DataType, out any, n int) error {
	switch requested {
	case encoding.U16:
		o := out.([]uint16)
		for i, v := range vals {
			o[i] = uint16(v)
		}
	case encoding.U32:
		o := out.([]uint32)
		for i, v := range vals {
			o[i] = uint32(v)
		}
	case encoding.U64:
		copy(out.([]uint64), vals)
	default:
		return nerrors.Newf(nerrors.SchemaMismatch, "cannot widen unsigned integer to %s", requested)
	}
	return nil
}

func widenFloat(vals []float32, requested encoding.DataType, out any, n int) error {
	if requested != encoding.F64 {
		return nerrors.Newf(nerrors.SchemaMismatch, "cannot widen float32 to %s", requested)
	}
	o := out.([]float64)
	for i, v := range vals {
		o[i] = float64(v)
	}
	return nil
}

func widenBool(vals []bool, requested encoding.DataType, out any, n int) error {
	one := func(v bool) uint64 {
		if v {
			return 1
		}
		return 0
	}
	switch requested {
	case encoding.I8:
		o := out.([]int8)
		for i, v := range vals {
			o[i] = int8(one(v))
		}
	case encoding.U8:
		o := out.([]uint8)
		for i, v := range vals {
			o[i] = uint8(one(v))
		}
	case encoding.I16:
		o := out.([]int16)
		for i, v := range vals {
			o[i] = int16(one(v))
		}
	case encoding.U16:
		o := out.([]uint16)
		for i, v := range vals {
			o[i] = uint16(one(v))
		}
	case encoding.I32:
		o := out.([]int32)
		for i, v := range vals {
			o[i] = int32(one(v))
		}
	case encoding.U32:
		o := out.([]uint32)
		for i, v := range vals {
			o[i] = uint32(one(v))
		}
	case encoding.I64:
		o := out.([]int64)
		for i, v := range vals {
			o[i] = int64(one(v))
		}
	case encoding.U64:
		o := out.([]uint64)
		for i, v := range vals {
			o[i] = one(v)
		}
	default:
		return nerrors.Newf(nerrors.SchemaMismatch, "cannot widen bool to %s", requested)
	}
	return nil
}
