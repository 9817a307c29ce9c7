// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeDictionary composes a dictionary payload from an already-encoded
// alphabet payload (alphabetLen distinct values) and an already-encoded
// indices payload (rowCount unsigned indices into the alphabet). Layout:
// [alphabet_length:u32][alphabet_payload_len:u32][alphabet payload][indices payload].
func EncodeDictionary(dtype DataType, rowCount int, alphabetLen uint32, alphabetPayload, indicesPayload []byte) []byte {
	buf := make([]byte, kPrefixSize+8+len(alphabetPayload)+len(indicesPayload))
	writePrefix(buf, KindDictionary, dtype, uint32(rowCount))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, alphabetLen)
	bitops.PutUint32(rest[4:], uint32(len(alphabetPayload)))
	rest = rest[8:]
	copy(rest, alphabetPayload)
	copy(rest[len(alphabetPayload):], indicesPayload)
	return buf
}

func dictionaryDecodeCommon(rest []byte) (alphabetLen uint32, alphabetPayload, indicesPayload []byte, err error) {
	if len(rest) < 8 {
		return 0, nil, nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary header truncated")
	}
	alphabetLen, _ = bitops.GetUint32(rest)
	alphabetPayloadLen, _ := bitops.GetUint32(rest[4:])
	rest = rest[8:]
	if len(rest) < int(alphabetPayloadLen) {
		return 0, nil, nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary alphabet payload truncated")
	}
	return alphabetLen, rest[:alphabetPayloadLen], rest[alphabetPayloadLen:], nil
}

// DictionaryDecoder decodes a Dictionary-encoded payload for any element
// type T: indices select into an alphabet of distinct T values.
type DictionaryDecoder[T Numeric] struct {
	dtype          DataType
	n              int
	alphabet       Decoder[T]
	alphabetValues []T // lazily materialized in full on first lookup
	indices        Decoder[uint32]
	pos            int
}

func decodeDictionary[T Numeric](p prefix, rest []byte) (*DictionaryDecoder[T], error) {
	_, alphabetPayload, indicesPayload, err := dictionaryDecodeCommon(rest)
	if err != nil {
		return nil, err
	}
	alphabetEnc, err := Decode(alphabetPayload)
	if err != nil {
		return nil, err
	}
	alphabet, ok := alphabetEnc.(Decoder[T])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary alphabet payload has unexpected element type")
	}
	indicesEnc, err := Decode(indicesPayload)
	if err != nil {
		return nil, err
	}
	indices, ok := indicesEnc.(Decoder[uint32])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "dictionary indices payload is not a uint32 decoder")
	}
	return &DictionaryDecoder[T]{dtype: p.dtype, n: int(p.rowCount), alphabet: alphabet, indices: indices}, nil
}

func (d *DictionaryDecoder[T]) Kind() Kind         { return KindDictionary }
func (d *DictionaryDecoder[T]) DataType() DataType { return d.dtype }
func (d *DictionaryDecoder[T]) RowCount() int      { return d.n }

func (d *DictionaryDecoder[T]) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "dictionary skip past end")
	}
	if err := d.indices.Skip(n); err != nil {
		return err
	}
	d.pos += n
	return nil
}

func (d *DictionaryDecoder[T]) Materialize(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "dictionary materialize past end")
	}
	idx := make([]uint32, n)
	if err := d.indices.Materialize(n, idx); err != nil {
		return err
	}
	// The alphabet decoder only exposes a sequential cursor, so resolve each
	// index through a fully-materialized copy of the alphabet, cached after
	// the first lookup.
	if d.alphabetValues == nil {
		values, err := materializeAll(d.alphabet)
		if err != nil {
			return err
		}
		d.alphabetValues = values
	}
	for i, ix := range idx {
		if int(ix) >= len(d.alphabetValues) {
			return nerrors.Newf(nerrors.CorruptFormat, "dictionary index %d out of range for alphabet of length %d", ix, len(d.alphabetValues))
		}
		out[i] = d.alphabetValues[ix]
	}
	d.pos += n
	return nil
}

// materializeAll materializes all RowCount() values of dec in one call, so
// dec must not have been advanced yet. Used by Dictionary (whose alphabet
// is read in full once and then indexed) and SparseBool (whose index list
// is read in full at decode time).
func materializeAll[T any](dec Decoder[T]) ([]T, error) {
	remaining := dec.RowCount()
	out := make([]T, remaining)
	if remaining == 0 {
		return out, nil
	}
	if err := dec.Materialize(remaining, out); err != nil {
		return nil, err
	}
	return out, nil
}
