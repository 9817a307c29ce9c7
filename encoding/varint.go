// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// isSigned reports whether dtype is one of the signed integer physical
// types, deciding whether EncodeVarint zig-zags its values.
func isSigned(dtype DataType) bool {
	switch dtype {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// EncodeVarint zig-zags (for signed dtypes) and varint-encodes each value in
// turn. Random access requires a linear scan; Skip must decode every
// intervening value.
func EncodeVarint[T Integer](values []T, dtype DataType) []byte {
	body := make([]byte, 0, len(values)*2)
	var tmp [bitops.MaxVarintLen64]byte
	signed := isSigned(dtype)
	for _, v := range values {
		var n int
		if signed {
			n = bitops.PutVarintSigned(tmp[:], int64(v))
		} else {
			n = bitops.PutVarint(tmp[:], uint64(v))
		}
		body = append(body, tmp[:n]...)
	}
	buf := make([]byte, kPrefixSize+len(body))
	writePrefix(buf, KindVarint, dtype, uint32(len(values)))
	copy(buf[kPrefixSize:], body)
	return buf
}

// VarintDecoder decodes a Varint-encoded payload.
type VarintDecoder[T Integer] struct {
	dtype  DataType
	n      int
	signed bool
	body   []byte
	off    int
	pos    int
}

func decodeVarint[T Integer](p prefix, rest []byte) (*VarintDecoder[T], error) {
	off := 0
	for i := 0; i < int(p.rowCount); i++ {
		_, k := bitops.GetVarint(rest[off:])
		if k == 0 {
			return nil, nerrors.Newf(nerrors.CorruptFormat, "varint payload truncated or malformed at value %d of %d", i, p.rowCount)
		}
		off += k
	}
	return &VarintDecoder[T]{dtype: p.dtype, n: int(p.rowCount), signed: isSigned(p.dtype), body: rest}, nil
}

func (d *VarintDecoder[T]) Kind() Kind         { return KindVarint }
func (d *VarintDecoder[T]) DataType() DataType { return d.dtype }
func (d *VarintDecoder[T]) RowCount() int      { return d.n }

func (d *VarintDecoder[T]) advanceOne() (T, error) {
	if d.signed {
		v, n := bitops.GetVarintSigned(d.body[d.off:])
		if n == 0 {
			return 0, nerrors.Newf(nerrors.CorruptFormat, "varint payload truncated at offset %d", d.off)
		}
		d.off += n
		return T(v), nil
	}
	v, n := bitops.GetVarint(d.body[d.off:])
	if n == 0 {
		return 0, nerrors.Newf(nerrors.CorruptFormat, "varint payload truncated at offset %d", d.off)
	}
	d.off += n
	return T(v), nil
}

func (d *VarintDecoder[T]) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "varint skip past end")
	}
	for i := 0; i < n; i++ {
		if _, err := d.advanceOne(); err != nil {
			return err
		}
	}
	d.pos += n
	return nil
}

func (d *VarintDecoder[T]) Materialize(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "varint materialize past end")
	}
	for i := 0; i < n; i++ {
		v, err := d.advanceOne()
		if err != nil {
			return err
		}
		out[i] = v
	}
	d.pos += n
	return nil
}
