// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeMainlyConstant composes a payload of [common_value:T][is_common
// bitmap payload length + payload][other_values payload]. isCommonPayload
// decodes to rowCount bools; otherValuesPayload decodes to exactly the
// count of rows where is_common is false.
func EncodeMainlyConstant[T Numeric](dtype DataType, rowCount int, commonValue T, isCommonPayload, otherValuesPayload []byte) []byte {
	w := widthOf(dtype)
	buf := make([]byte, kPrefixSize+w+4+len(isCommonPayload)+len(otherValuesPayload))
	writePrefix(buf, KindMainlyConstant, dtype, uint32(rowCount))
	rest := buf[kPrefixSize:]
	putScalar(rest, dtype, commonValue)
	rest = rest[w:]
	bitops.PutUint32(rest, uint32(len(isCommonPayload)))
	rest = rest[4:]
	copy(rest, isCommonPayload)
	copy(rest[len(isCommonPayload):], otherValuesPayload)
	return buf
}

// MainlyConstantDecoder decodes a MainlyConstant-encoded payload: the common
// value is materialized wherever is_common is true, otherwise values are
// pulled in order from the other_values decoder.
type MainlyConstantDecoder[T Numeric] struct {
	dtype       DataType
	n           int
	commonValue T
	isCommon    Decoder[bool]
	other       Decoder[T]
	pos         int
}

func decodeMainlyConstant[T Numeric](p prefix, rest []byte) (*MainlyConstantDecoder[T], error) {
	w := widthOf(p.dtype)
	if len(rest) < w+4 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant header truncated")
	}
	commonValue := getScalar[T](rest, p.dtype)
	rest = rest[w:]
	isCommonLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(isCommonLen) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant is_common payload truncated")
	}
	isCommonEnc, err := Decode(rest[:isCommonLen])
	if err != nil {
		return nil, err
	}
	isCommon, ok := isCommonEnc.(Decoder[bool])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant is_common payload is not a bool decoder")
	}
	otherEnc, err := Decode(rest[isCommonLen:])
	if err != nil {
		return nil, err
	}
	other, ok := otherEnc.(Decoder[T])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant other_values payload has unexpected element type")
	}
	return &MainlyConstantDecoder[T]{dtype: p.dtype, n: int(p.rowCount), commonValue: commonValue, isCommon: isCommon, other: other}, nil
}

func (d *MainlyConstantDecoder[T]) Kind() Kind         { return KindMainlyConstant }
func (d *MainlyConstantDecoder[T]) DataType() DataType { return d.dtype }
func (d *MainlyConstantDecoder[T]) RowCount() int      { return d.n }

func (d *MainlyConstantDecoder[T]) walk(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant materialize past end")
	}
	flags := make([]bool, n)
	if err := d.isCommon.Materialize(n, flags); err != nil {
		return err
	}
	otherCount := 0
	for _, f := range flags {
		if !f {
			otherCount++
		}
	}
	var otherVals []T
	if otherCount > 0 {
		otherVals = make([]T, otherCount)
		if out != nil {
			if err := d.other.Materialize(otherCount, otherVals); err != nil {
				return err
			}
		} else if err := d.other.Skip(otherCount); err != nil {
			return err
		}
	}
	if out != nil {
		oi := 0
		for i, f := range flags {
			if f {
				out[i] = d.commonValue
			} else {
				out[i] = otherVals[oi]
				oi++
			}
		}
	}
	d.pos += n
	return nil
}

func (d *MainlyConstantDecoder[T]) Skip(n int) error          { return d.walk(n, nil) }
func (d *MainlyConstantDecoder[T]) Materialize(n int, out []T) error { return d.walk(n, out) }
