// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeDictionaryString mirrors EncodeDictionary for the string/binary
// physical types.
func EncodeDictionaryString(dtype DataType, rowCount int, alphabetLen uint32, alphabetPayload, indicesPayload []byte) []byte {
	return EncodeDictionary(dtype, rowCount, alphabetLen, alphabetPayload, indicesPayload)
}

// DictionaryStringDecoder decodes a Dictionary-encoded string/binary
// payload.
type DictionaryStringDecoder struct {
	dtype          DataType
	n              int
	alphabet       Decoder[string]
	alphabetValues []string
	indices        Decoder[uint32]
	pos            int
}

func decodeDictionaryString(p prefix, rest []byte) (*DictionaryStringDecoder, error) {
	_, alphabetPayload, indicesPayload, err := dictionaryDecodeCommon(rest)
	if err != nil {
		return nil, err
	}
	alphabetEnc, err := Decode(alphabetPayload)
	if err != nil {
		return nil, err
	}
	alphabet, ok := alphabetEnc.(Decoder[string])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary alphabet payload is not a string decoder")
	}
	indicesEnc, err := Decode(indicesPayload)
	if err != nil {
		return nil, err
	}
	indices, ok := indicesEnc.(Decoder[uint32])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary indices payload is not a uint32 decoder")
	}
	return &DictionaryStringDecoder{dtype: p.dtype, n: int(p.rowCount), alphabet: alphabet, indices: indices}, nil
}

func (d *DictionaryStringDecoder) Kind() Kind         { return KindDictionary }
func (d *DictionaryStringDecoder) DataType() DataType { return d.dtype }
func (d *DictionaryStringDecoder) RowCount() int      { return d.n }

func (d *DictionaryStringDecoder) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "dictionary string skip past end")
	}
	if err := d.indices.Skip(n); err != nil {
		return err
	}
	d.pos += n
	return nil
}

func (d *DictionaryStringDecoder) Materialize(n int, out []string) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "dictionary string materialize past end")
	}
	idx := make([]uint32, n)
	if err := d.indices.Materialize(n, idx); err != nil {
		return err
	}
	if d.alphabetValues == nil {
		values, err := materializeAll(d.alphabet)
		if err != nil {
			return err
		}
		d.alphabetValues = values
	}
	for i, ix := range idx {
		if int(ix) >= len(d.alphabetValues) {
			return nerrors.Newf(nerrors.CorruptFormat, "dictionary string index %d out of range for alphabet of length %d", ix, len(d.alphabetValues))
		}
		out[i] = d.alphabetValues[ix]
	}
	d.pos += n
	return nil
}

// EncodeMainlyConstantString mirrors EncodeMainlyConstant for strings.
func EncodeMainlyConstantString(dtype DataType, rowCount int, commonValue string, isCommonPayload, otherValuesPayload []byte) []byte {
	buf := make([]byte, kPrefixSize+4+len(commonValue)+4+len(isCommonPayload)+len(otherValuesPayload))
	writePrefix(buf, KindMainlyConstant, dtype, uint32(rowCount))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, uint32(len(commonValue)))
	rest = rest[4:]
	copy(rest, commonValue)
	rest = rest[len(commonValue):]
	bitops.PutUint32(rest, uint32(len(isCommonPayload)))
	rest = rest[4:]
	copy(rest, isCommonPayload)
	copy(rest[len(isCommonPayload):], otherValuesPayload)
	return buf
}

// MainlyConstantStringDecoder decodes a MainlyConstant-encoded string/binary
// payload.
type MainlyConstantStringDecoder struct {
	dtype       DataType
	n           int
	commonValue string
	isCommon    Decoder[bool]
	other       Decoder[string]
	pos         int
}

func decodeMainlyConstantString(p prefix, rest []byte) (*MainlyConstantStringDecoder, error) {
	commonValue, n, err := getLenPrefixedString(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]
	if len(rest) < 4 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant string header truncated")
	}
	isCommonLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(isCommonLen) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant string is_common payload truncated")
	}
	isCommonEnc, err := Decode(rest[:isCommonLen])
	if err != nil {
		return nil, err
	}
	isCommon, ok := isCommonEnc.(Decoder[bool])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant string is_common payload is not a bool decoder")
	}
	otherEnc, err := Decode(rest[isCommonLen:])
	if err != nil {
		return nil, err
	}
	other, ok := otherEnc.(Decoder[string])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant string other_values payload is not a string decoder")
	}
	return &MainlyConstantStringDecoder{dtype: p.dtype, n: int(p.rowCount), commonValue: commonValue, isCommon: isCommon, other: other}, nil
}

func (d *MainlyConstantStringDecoder) Kind() Kind         { return KindMainlyConstant }
func (d *MainlyConstantStringDecoder) DataType() DataType { return d.dtype }
func (d *MainlyConstantStringDecoder) RowCount() int      { return d.n }

func (d *MainlyConstantStringDecoder) walk(n int, out []string) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "mainlyconstant string materialize past end")
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
	var otherVals []string
	if otherCount > 0 {
		otherVals = make([]string, otherCount)
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

func (d *MainlyConstantStringDecoder) Skip(n int) error              { return d.walk(n, nil) }
func (d *MainlyConstantStringDecoder) Materialize(n int, out []string) error { return d.walk(n, out) }
