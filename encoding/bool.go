// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeTrivialBool writes one byte (0 or 1) per value. Bool columns rarely
// end up Trivial-encoded in practice — RLE, SparseBool, and MainlyConstant
// all dominate it in the selection policy's size comparison — but it
// remains available as the universal fallback every data type supports.
func EncodeTrivialBool(values []bool) []byte {
	buf := make([]byte, kPrefixSize+len(values))
	writePrefix(buf, KindTrivial, Bool, uint32(len(values)))
	body := buf[kPrefixSize:]
	for i, v := range values {
		if v {
			body[i] = 1
		}
	}
	return buf
}

// TrivialBoolDecoder decodes a Trivial-encoded bool payload.
type TrivialBoolDecoder struct {
	n    int
	body []byte
	pos  int
}

func decodeTrivialBool(p prefix, rest []byte) (*TrivialBoolDecoder, error) {
	if len(rest) < int(p.rowCount) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "trivial bool payload truncated")
	}
	return &TrivialBoolDecoder{n: int(p.rowCount), body: rest[:p.rowCount]}, nil
}

func (d *TrivialBoolDecoder) Kind() Kind         { return KindTrivial }
func (d *TrivialBoolDecoder) DataType() DataType { return Bool }
func (d *TrivialBoolDecoder) RowCount() int      { return d.n }

func (d *TrivialBoolDecoder) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "trivial bool skip past end")
	}
	d.pos += n
	return nil
}

func (d *TrivialBoolDecoder) Materialize(n int, out []bool) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "trivial bool materialize past end")
	}
	for i := 0; i < n; i++ {
		out[i] = d.body[d.pos+i] != 0
	}
	d.pos += n
	return nil
}

// EncodeMainlyConstantBool composes [common_value:bool][is_common payload
// len + payload][other_values payload].
func EncodeMainlyConstantBool(rowCount int, commonValue bool, isCommonPayload, otherValuesPayload []byte) []byte {
	buf := make([]byte, kPrefixSize+1+4+len(isCommonPayload)+len(otherValuesPayload))
	writePrefix(buf, KindMainlyConstant, Bool, uint32(rowCount))
	rest := buf[kPrefixSize:]
	if commonValue {
		rest[0] = 1
	}
	rest = rest[1:]
	bitops.PutUint32(rest, uint32(len(isCommonPayload)))
	rest = rest[4:]
	copy(rest, isCommonPayload)
	copy(rest[len(isCommonPayload):], otherValuesPayload)
	return buf
}

// MainlyConstantBoolDecoder decodes a MainlyConstant-encoded bool payload.
type MainlyConstantBoolDecoder struct {
	n           int
	commonValue bool
	isCommon    Decoder[bool]
	other       Decoder[bool]
	pos         int
}

func decodeMainlyConstantBool(p prefix, rest []byte) (*MainlyConstantBoolDecoder, error) {
	if len(rest) < 5 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant bool header truncated")
	}
	commonValue := rest[0] != 0
	rest = rest[1:]
	isCommonLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(isCommonLen) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant bool is_common payload truncated")
	}
	isCommonEnc, err := Decode(rest[:isCommonLen])
	if err != nil {
		return nil, err
	}
	isCommon, ok := isCommonEnc.(Decoder[bool])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant bool is_common payload is not a bool decoder")
	}
	otherEnc, err := Decode(rest[isCommonLen:])
	if err != nil {
		return nil, err
	}
	other, ok := otherEnc.(Decoder[bool])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant bool other_values payload is not a bool decoder")
	}
	return &MainlyConstantBoolDecoder{n: int(p.rowCount), commonValue: commonValue, isCommon: isCommon, other: other}, nil
}

func (d *MainlyConstantBoolDecoder) Kind() Kind         { return KindMainlyConstant }
func (d *MainlyConstantBoolDecoder) DataType() DataType { return Bool }
func (d *MainlyConstantBoolDecoder) RowCount() int      { return d.n }

func (d *MainlyConstantBoolDecoder) walk(n int, out []bool) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant bool materialize past end")
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
	var otherVals []bool
	if otherCount > 0 {
		otherVals = make([]bool, otherCount)
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

func (d *MainlyConstantBoolDecoder) Skip(n int) error            { return d.walk(n, nil) }
func (d *MainlyConstantBoolDecoder) Materialize(n int, out []bool) error { return d.walk(n, out) }
