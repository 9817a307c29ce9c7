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

// scalarFieldReader decodes one Scalar column's values stream, optionally
// upcasting every value from its stored physical type to a wider
// requested type (spec.md §4.11).
type scalarFieldReader struct {
	desc      *schema.Descriptor
	storedDT  encoding.DataType
	requestDT encoding.DataType
	cursor    *streamCursor
}

func newScalarFieldReader(t *schema.Type, requestDT encoding.DataType) (*scalarFieldReader, error) {
	if err := validateUpcast(t.ScalarType, requestDT); err != nil {
		return nil, err
	}
	return &scalarFieldReader{
		desc:      t.Values,
		storedDT:  t.ScalarType,
		requestDT: requestDT,
		cursor:    newStreamCursor(t.Values.Offset, t.ScalarType),
	}, nil
}

func (f *scalarFieldReader) collectStreamIDs(out *[]uint32) { *out = append(*out, f.desc.Offset) }

func (f *scalarFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	f.cursor.reset(stripeIdx, loaders[f.desc.Offset])
}

func (f *scalarFieldReader) skip(n int) error { return f.cursor.skip(n) }

func (f *scalarFieldReader) next(n int) (*Vector, error) {
	storedVals := allocValues(f.storedDT, n)
	var nulls []byte
	if !f.cursor.empty() {
		err := f.cursor.materializeInto(n, func(enc encoding.Encoding, take, outOffset int) error {
			return materializeChunk(enc, f.storedDT, storedVals, outOffset, take, &nulls, n)
		})
		if err != nil {
			return nil, err
		}
	}

	values := storedVals
	if f.requestDT != f.storedDT {
		values = allocValues(f.requestDT, n)
		if err := widenInto(f.storedDT, f.requestDT, storedVals, values, n); err != nil {
			return nil, err
		}
	}
	return &Vector{Type: schema.Scalar, DType: f.requestDT, Length: n, Nulls: nulls, Values: values}, nil
}

// materializeChunk decodes take values from enc starting at outOffset into
// out (a dtype-backed slice), growing *nulls to hold vecLen bits lazily
// the first time enc turns out to be Nullable-wrapped.
func materializeChunk(enc encoding.Encoding, dtype encoding.DataType, out any, outOffset, take int, nulls *[]byte, vecLen int) error {
	switch dtype {
	case encoding.I8:
		return materializeGeneric(enc, out.([]int8), outOffset, take, nulls, vecLen)
	case encoding.U8:
		return materializeGeneric(enc, out.([]uint8), outOffset, take, nulls, vecLen)
	case encoding.I16:
		return materializeGeneric(enc, out.([]int16), outOffset, take, nulls, vecLen)
	case encoding.U16:
		return materializeGeneric(enc, out.([]uint16), outOffset, take, nulls, vecLen)
	case encoding.I32:
		return materializeGeneric(enc, out.([]int32), outOffset, take, nulls, vecLen)
	case encoding.U32:
		return materializeGeneric(enc, out.([]uint32), outOffset, take, nulls, vecLen)
	case encoding.I64:
		return materializeGeneric(enc, out.([]int64), outOffset, take, nulls, vecLen)
	case encoding.U64:
		return materializeGeneric(enc, out.([]uint64), outOffset, take, nulls, vecLen)
	case encoding.F32:
		return materializeGeneric(enc, out.([]float32), outOffset, take, nulls, vecLen)
	case encoding.F64:
		return materializeGeneric(enc, out.([]float64), outOffset, take, nulls, vecLen)
	case encoding.Bool:
		return materializeGeneric(enc, out.([]bool), outOffset, take, nulls, vecLen)
	case encoding.String, encoding.Binary:
		return materializeGeneric(enc, out.([]string), outOffset, take, nulls, vecLen)
	default:
		return nerrors.Newf(nerrors.UnsupportedEncoding, "no materializer for data type %s", dtype)
	}
}

func materializeGeneric[T any](enc encoding.Encoding, out []T, outOffset, take int, nulls *[]byte, vecLen int) error {
	if nd, ok := enc.(encoding.NullableDecoder[T]); ok {
		tmp := make([]byte, bitops.BitmapBytes(take))
		if err := nd.MaterializeNullable(take, out[outOffset:outOffset+take], tmp); err != nil {
			return err
		}
		if *nulls == nil {
			b := make([]byte, bitops.BitmapBytes(vecLen))
			for i := 0; i < vecLen; i++ {
				bitops.SetBit(b, i, true)
			}
			*nulls = b
		}
		for i := 0; i < take; i++ {
			bitops.SetBit(*nulls, outOffset+i, bitops.GetBit(tmp, i))
		}
		return nil
	}
	d, ok := enc.(encoding.Decoder[T])
	if !ok {
		return nerrors.Newf(nerrors.SchemaMismatch, "chunk decoded as %T, not materializable into the requested type", enc)
	}
	return d.Materialize(take, out[outOffset:outOffset+take])
}
