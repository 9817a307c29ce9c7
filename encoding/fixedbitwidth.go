// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeFixedBitWidth stores values as B bits each, B = ceil(log2(max-min+1)),
// relative to a baseline (the minimum value). Layout: [baseline:T][bit_width:u8][packed].
func EncodeFixedBitWidth[T Integer](values []T, dtype DataType) []byte {
	baseline, width, deltas := fixedBitWidthStats(values, dtype)
	packed := bitops.NewFixedBitArray(deltas, width)

	w := widthOf(dtype)
	buf := make([]byte, kPrefixSize+w+1+len(packed.Bytes()))
	writePrefix(buf, KindFixedBitWidth, dtype, uint32(len(values)))
	rest := buf[kPrefixSize:]
	putScalar(rest, dtype, baseline)
	rest = rest[w:]
	bitops.PutUint8(rest[:1], uint8(width))
	copy(rest[1:], packed.Bytes())
	return buf
}

// fixedBitWidthStats computes the baseline (minimum), the packed bit width,
// and each value's delta from the baseline. Deltas are computed in a widened
// signed or unsigned 64-bit domain (chosen from dtype, not T's own width) so
// that a baseline-to-max span spanning T's full native range never overflows
// T's own arithmetic before being captured as an unsigned delta.
func fixedBitWidthStats[T Integer](values []T, dtype DataType) (baseline T, width uint, deltas []uint64) {
	if len(values) == 0 {
		return 0, 0, nil
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	deltas = make([]uint64, len(values))
	var maxDelta uint64
	if isSigned(dtype) {
		base64 := int64(minV)
		for i, v := range values {
			deltas[i] = uint64(int64(v) - base64)
		}
		maxDelta = uint64(int64(maxV) - base64)
	} else {
		base64 := uint64(minV)
		for i, v := range values {
			deltas[i] = uint64(v) - base64
		}
		maxDelta = uint64(maxV) - base64
	}
	return minV, bitops.BitWidthFor(maxDelta), deltas
}

// FixedBitWidthDecoder decodes a FixedBitWidth-encoded payload.
type FixedBitWidthDecoder[T Integer] struct {
	dtype    DataType
	n        int
	baseline T
	packed   bitops.FixedBitArray
	pos      int
}

func decodeFixedBitWidth[T Integer](p prefix, rest []byte) (*FixedBitWidthDecoder[T], error) {
	w := widthOf(p.dtype)
	if len(rest) < w+1 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "fixedbitwidth header truncated")
	}
	baseline := getScalar[T](rest, p.dtype)
	rest = rest[w:]
	width, _ := bitops.GetUint8(rest[:1])
	rest = rest[1:]
	need := bitops.PackedByteSize(int(p.rowCount), uint(width))
	if len(rest) < need {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "fixedbitwidth packed array truncated: need %d have %d", need, len(rest))
	}
	packed := bitops.WrapFixedBitArray(rest[:need], uint(width), int(p.rowCount))
	return &FixedBitWidthDecoder[T]{dtype: p.dtype, n: int(p.rowCount), baseline: baseline, packed: packed}, nil
}

func (d *FixedBitWidthDecoder[T]) Kind() Kind         { return KindFixedBitWidth }
func (d *FixedBitWidthDecoder[T]) DataType() DataType { return d.dtype }
func (d *FixedBitWidthDecoder[T]) RowCount() int      { return d.n }

func (d *FixedBitWidthDecoder[T]) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "fixedbitwidth skip past end")
	}
	d.pos += n
	return nil
}

func (d *FixedBitWidthDecoder[T]) Materialize(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "fixedbitwidth materialize past end")
	}
	for i := 0; i < n; i++ {
		out[i] = d.baseline + T(d.packed.At(d.pos+i))
	}
	d.pos += n
	return nil
}

// FitsFixedBitWidth reports whether values' range fits within maxWidth bits,
// the gate the default selection policy (C4) uses before proposing
// FixedBitWidth as a candidate.
func FitsFixedBitWidth[T Integer](values []T, dtype DataType, maxWidth uint) bool {
	if len(values) == 0 {
		return true
	}
	_, width, _ := fixedBitWidthStats(values, dtype)
	return width <= maxWidth
}
