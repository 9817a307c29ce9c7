// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeNullable composes [data_payload_len:u32][data payload][nulls
// payload]. dataPayload decodes to exactly the number of non-null rows;
// nullsPayload decodes to rowCount bools (true = present).
func EncodeNullable(dtype DataType, rowCount int, dataPayload, nullsPayload []byte) []byte {
	buf := make([]byte, kPrefixSize+4+len(dataPayload)+len(nullsPayload))
	writePrefix(buf, KindNullable, dtype, uint32(rowCount))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, uint32(len(dataPayload)))
	rest = rest[4:]
	copy(rest, dataPayload)
	copy(rest[len(dataPayload):], nullsPayload)
	return buf
}

func nullableDecodeCommon(rest []byte) (dataPayload, nullsPayload []byte, err error) {
	if len(rest) < 4 {
		return nil, nil, nerrors.Newf(nerrors.CorruptFormat, "nullable header truncated")
	}
	dataLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(dataLen) {
		return nil, nil, nerrors.Newf(nerrors.CorruptFormat, "nullable data payload truncated")
	}
	return rest[:dataLen], rest[dataLen:], nil
}

// NullableDecoderImpl decodes a Nullable-wrapped payload of element type T.
// Materialize fills the zero value of T at null positions; callers that
// need to distinguish null from a legitimate zero value should use
// MaterializeNullable instead.
type NullableDecoderImpl[T any] struct {
	dtype DataType
	n     int
	data  Decoder[T]
	nulls Decoder[bool]
	pos   int
}

func decodeNullable[T Numeric](p prefix, rest []byte) (*NullableDecoderImpl[T], error) {
	return decodeNullableGeneric[T](p, rest)
}

func decodeNullableGeneric[T any](p prefix, rest []byte) (*NullableDecoderImpl[T], error) {
	dataPayload, nullsPayload, err := nullableDecodeCommon(rest)
	if err != nil {
		return nil, err
	}
	dataEnc, err := Decode(dataPayload)
	if err != nil {
		return nil, err
	}
	data, ok := dataEnc.(Decoder[T])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "nullable data payload has unexpected element type")
	}
	nullsEnc, err := Decode(nullsPayload)
	if err != nil {
		return nil, err
	}
	nulls, ok := nullsEnc.(Decoder[bool])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "nullable nulls payload is not a bool decoder")
	}
	return &NullableDecoderImpl[T]{dtype: p.dtype, n: int(p.rowCount), data: data, nulls: nulls}, nil
}

func (d *NullableDecoderImpl[T]) Kind() Kind         { return KindNullable }
func (d *NullableDecoderImpl[T]) DataType() DataType { return d.dtype }
func (d *NullableDecoderImpl[T]) RowCount() int      { return d.n }

func (d *NullableDecoderImpl[T]) Skip(n int) error {
	_, err := d.walk(n, nil, nil)
	return err
}

func (d *NullableDecoderImpl[T]) Materialize(n int, out []T) error {
	_, err := d.walk(n, out, nil)
	return err
}

// MaterializeNullable writes the next n logical rows into out (the zero
// value of T where null) and sets bit i of nulls to 1 where row i is
// present, 0 where it is null. nulls must have at least
// bitops.BitmapBytes(n) bytes available, addressed from bit 0 regardless of
// the decoder's absolute row position.
func (d *NullableDecoderImpl[T]) MaterializeNullable(n int, out []T, nulls []byte) error {
	_, err := d.walk(n, out, nulls)
	return err
}

func (d *NullableDecoderImpl[T]) walk(n int, out []T, nullsOut []byte) (int, error) {
	if d.pos+n > d.n {
		return 0, nerrors.Newf(nerrors.CorruptFormat, "nullable materialize past end: pos=%d n=%d rowCount=%d", d.pos, n, d.n)
	}
	present := make([]bool, n)
	if err := d.nulls.Materialize(n, present); err != nil {
		return 0, err
	}
	presentCount := 0
	for _, p := range present {
		if p {
			presentCount++
		}
	}
	var dataVals []T
	if presentCount > 0 {
		if out != nil {
			dataVals = make([]T, presentCount)
			if err := d.data.Materialize(presentCount, dataVals); err != nil {
				return 0, err
			}
		} else if err := d.data.Skip(presentCount); err != nil {
			return 0, err
		}
	}
	di := 0
	for i, p := range present {
		if nullsOut != nil {
			bitops.SetBit(nullsOut, i, p)
		}
		if out != nil {
			if p {
				out[i] = dataVals[di]
				di++
			} else {
				var zero T
				out[i] = zero
			}
		} else if p {
			di++
		}
	}
	d.pos += n
	return n, nil
}
