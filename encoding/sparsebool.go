// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import nerrors "github.com/facebookexternal/nimble/errors"

// EncodeSparseBool stores a boolean column as the sorted set of row indices
// where the value equals sparseValue, composed from an already-encoded
// indices payload (typically FixedBitWidth over the ascending index
// sequence). Layout: [sparse_value:bool][indices payload].
func EncodeSparseBool(rowCount int, sparseValue bool, indicesPayload []byte) []byte {
	buf := make([]byte, kPrefixSize+1+len(indicesPayload))
	writePrefix(buf, KindSparseBool, Bool, uint32(rowCount))
	rest := buf[kPrefixSize:]
	if sparseValue {
		rest[0] = 1
	}
	copy(rest[1:], indicesPayload)
	return buf
}

// SparseBoolDecoder decodes a SparseBool-encoded payload.
type SparseBoolDecoder struct {
	n           int
	sparseValue bool
	indices     []uint32 // fully materialized ascending row indices
	cursor      int      // next unconsumed position in indices
	pos         int
}

func decodeSparseBool(p prefix, rest []byte) (*SparseBoolDecoder, error) {
	if len(rest) < 1 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "sparsebool header truncated")
	}
	sparseValue := rest[0] != 0
	indicesEnc, err := Decode(rest[1:])
	if err != nil {
		return nil, err
	}
	indicesDec, ok := indicesEnc.(Decoder[uint32])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "sparsebool indices payload is not a uint32 decoder")
	}
	indices, err := materializeAll(indicesDec)
	if err != nil {
		return nil, err
	}
	return &SparseBoolDecoder{n: int(p.rowCount), sparseValue: sparseValue, indices: indices}, nil
}

func (d *SparseBoolDecoder) Kind() Kind         { return KindSparseBool }
func (d *SparseBoolDecoder) DataType() DataType { return Bool }
func (d *SparseBoolDecoder) RowCount() int      { return d.n }

func (d *SparseBoolDecoder) walk(n int, out []bool) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "sparsebool materialize past end")
	}
	for i := 0; i < n; i++ {
		row := d.pos + i
		isSparse := d.cursor < len(d.indices) && int(d.indices[d.cursor]) == row
		if isSparse {
			d.cursor++
		}
		if out != nil {
			if isSparse {
				out[i] = d.sparseValue
			} else {
				out[i] = !d.sparseValue
			}
		}
	}
	d.pos += n
	return nil
}

func (d *SparseBoolDecoder) Skip(n int) error            { return d.walk(n, nil) }
func (d *SparseBoolDecoder) Materialize(n int, out []bool) error { return d.walk(n, out) }
