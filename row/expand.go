// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
)

// decodeBoolStream materializes n bool values from c into a presence
// bitmap (bit i set means true). When c's stream is entirely absent from
// the stripe, every row reads back as defaultVal.
func decodeBoolStream(c *streamCursor, n int, defaultVal bool) ([]byte, error) {
	bm := make([]byte, bitops.BitmapBytes(n))
	if c.empty() {
		if defaultVal {
			for i := 0; i < n; i++ {
				bitops.SetBit(bm, i, true)
			}
		}
		return bm, nil
	}
	buf := make([]bool, n)
	err := c.materializeInto(n, func(enc encoding.Encoding, take, outOffset int) error {
		d, ok := enc.(encoding.Decoder[bool])
		if !ok {
			return nerrors.Newf(nerrors.SchemaMismatch, "presence stream did not decode as bool")
		}
		return d.Materialize(take, buf[outOffset:outOffset+take])
	})
	if err != nil {
		return nil, err
	}
	for i, v := range buf {
		bitops.SetBit(bm, i, v)
	}
	return bm, nil
}

// allOnes reports whether every one of the first n bits of bm is set, the
// condition under which a presence bitmap degenerates to "no nulls" and
// can be reported as nil.
func allOnes(bm []byte, n int) bool { return bitops.PopcountRange(bm, 0, n) == n }

// decodeU32Stream materializes n uint32 values (lengths or offsets) from
// c, defaulting every row to zero when c's stream is absent from the
// stripe.
func decodeU32Stream(c *streamCursor, n int) ([]uint32, error) {
	out := make([]uint32, n)
	if c.empty() {
		return out, nil
	}
	err := c.materializeInto(n, func(enc encoding.Encoding, take, outOffset int) error {
		d, ok := enc.(encoding.Decoder[uint32])
		if !ok {
			return nerrors.Newf(nerrors.SchemaMismatch, "lengths/offsets stream did not decode as u32")
		}
		return d.Materialize(take, out[outOffset:outOffset+take])
	})
	return out, err
}

// expandToPresence rebuilds dense (holding exactly popcount(present) rows,
// packed contiguously) into a length-n Vector, placing dense row j at the
// j-th set bit of present and leaving every other row null. This is the
// inverse of the compaction a flat-map value subtree (or an in-map
// bitmap) applies on write: only rows where the key is present are ever
// pushed to the subtree's streams.
//
// Row-aligned child vectors (Row fields, FlatMap values) are expanded
// recursively with the same present/n mapping. Array/Map/offset-based
// vectors are not: their element child is item-aligned, not row-aligned,
// so only Lengths/Offsets are remapped and the element data is left
// packed exactly as decoded.
func expandToPresence(dense *Vector, present []byte, n int) *Vector {
	out := &Vector{Type: dense.Type, DType: dense.DType, Length: n, Fields: dense.Fields, FlatMapKeys: dense.FlatMapKeys}
	out.Nulls = make([]byte, bitops.BitmapBytes(n))
	j := 0
	for i := 0; i < n; i++ {
		if bitops.GetBit(present, i) {
			nonNull := dense.Nulls == nil || bitops.GetBit(dense.Nulls, j)
			bitops.SetBit(out.Nulls, i, nonNull)
			j++
		}
	}
	if allOnes(out.Nulls, n) {
		out.Nulls = nil
	}

	switch dense.Type {
	case schema.Scalar:
		out.Values = expandScalarValues(dense.Values, present, n)
		return out
	case schema.Row, schema.FlatMap:
		out.Children = make([]*Vector, len(dense.Children))
		for i, child := range dense.Children {
			out.Children[i] = expandToPresence(child, present, n)
		}
		return out
	default: // Array, Map, ArrayWithOffsets, SlidingWindowMap
		out.Lengths = expandUint32Slice(dense.Lengths, present, n)
		out.Offsets = expandUint32Slice(dense.Offsets, present, n)
		out.Children = dense.Children
		return out
	}
}

func expandUint32Slice(dense []uint32, present []byte, n int) []uint32 {
	if dense == nil {
		return nil
	}
	out := make([]uint32, n)
	j := 0
	for i := 0; i < n; i++ {
		if bitops.GetBit(present, i) {
			out[i] = dense[j]
			j++
		}
	}
	return out
}

func expandScalarValues(dense any, present []byte, n int) any {
	switch v := dense.(type) {
	case []int8:
		out := make([]int8, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []uint8:
		out := make([]uint8, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []int16:
		out := make([]int16, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []uint16:
		out := make([]uint16, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []int32:
		out := make([]int32, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []uint32:
		out := make([]uint32, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []int64:
		out := make([]int64, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []uint64:
		out := make([]uint64, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []float32:
		out := make([]float32, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []float64:
		out := make([]float64, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []bool:
		out := make([]bool, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	case []string:
		out := make([]string, n)
		scatter(present, n, func(i, j int) { out[i] = v[j] })
		return out
	default:
		return dense
	}
}

func scatter(present []byte, n int, set func(i, j int)) {
	j := 0
	for i := 0; i < n; i++ {
		if bitops.GetBit(present, i) {
			set(i, j)
			j++
		}
	}
}
