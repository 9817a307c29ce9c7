// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeConstant stores a single value repeated rowCount times.
func EncodeConstant[T Numeric](value T, rowCount int, dtype DataType) []byte {
	w := widthOf(dtype)
	buf := make([]byte, kPrefixSize+w)
	writePrefix(buf, KindConstant, dtype, uint32(rowCount))
	putScalar(buf[kPrefixSize:], dtype, value)
	return buf
}

// ConstantDecoder decodes a Constant-encoded payload.
type ConstantDecoder[T Numeric] struct {
	dtype DataType
	n     int
	value T
	pos   int
}

func decodeConstant[T Numeric](p prefix, rest []byte) (*ConstantDecoder[T], error) {
	w := widthOf(p.dtype)
	if len(rest) < w {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "constant payload truncated")
	}
	return &ConstantDecoder[T]{dtype: p.dtype, n: int(p.rowCount), value: getScalar[T](rest, p.dtype)}, nil
}

func (d *ConstantDecoder[T]) Kind() Kind         { return KindConstant }
func (d *ConstantDecoder[T]) DataType() DataType { return d.dtype }
func (d *ConstantDecoder[T]) RowCount() int      { return d.n }

func (d *ConstantDecoder[T]) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant skip past end")
	}
	d.pos += n
	return nil
}

func (d *ConstantDecoder[T]) Materialize(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant materialize past end")
	}
	for i := 0; i < n; i++ {
		out[i] = d.value
	}
	d.pos += n
	return nil
}

// ---- bool ----

// EncodeConstantBool stores a single bool repeated rowCount times.
func EncodeConstantBool(value bool, rowCount int) []byte {
	buf := make([]byte, kPrefixSize+1)
	writePrefix(buf, KindConstant, Bool, uint32(rowCount))
	if value {
		buf[kPrefixSize] = 1
	}
	return buf
}

// ConstantBoolDecoder decodes a Constant-encoded bool payload.
type ConstantBoolDecoder struct {
	n     int
	value bool
	pos   int
}

func decodeConstantBool(p prefix, rest []byte) (*ConstantBoolDecoder, error) {
	if len(rest) < 1 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "constant bool payload truncated")
	}
	return &ConstantBoolDecoder{n: int(p.rowCount), value: rest[0] != 0}, nil
}

func (d *ConstantBoolDecoder) Kind() Kind         { return KindConstant }
func (d *ConstantBoolDecoder) DataType() DataType { return Bool }
func (d *ConstantBoolDecoder) RowCount() int      { return d.n }

func (d *ConstantBoolDecoder) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant bool skip past end")
	}
	d.pos += n
	return nil
}

func (d *ConstantBoolDecoder) Materialize(n int, out []bool) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant bool materialize past end")
	}
	for i := 0; i < n; i++ {
		out[i] = d.value
	}
	d.pos += n
	return nil
}

// ---- string / binary ----

// EncodeConstantString stores a single string repeated rowCount times.
func EncodeConstantString(value string, rowCount int, dtype DataType) []byte {
	buf := make([]byte, kPrefixSize+4+len(value))
	writePrefix(buf, KindConstant, dtype, uint32(rowCount))
	bitops.PutUint32(buf[kPrefixSize:], uint32(len(value)))
	copy(buf[kPrefixSize+4:], value)
	return buf
}

// ConstantStringDecoder decodes a Constant-encoded string/binary payload.
type ConstantStringDecoder struct {
	dtype DataType
	n     int
	value string
	pos   int
}

func decodeConstantString(p prefix, rest []byte) (*ConstantStringDecoder, error) {
	s, _, err := getLenPrefixedString(rest)
	if err != nil {
		return nil, err
	}
	return &ConstantStringDecoder{dtype: p.dtype, n: int(p.rowCount), value: s}, nil
}

func getLenPrefixedString(buf []byte) (string, int, error) {
	if len(buf) < 4 {
		return "", 0, nerrors.Newf(nerrors.CorruptFormat, "length-prefixed string truncated")
	}
	n, _ := bitops.GetUint32(buf)
	end := 4 + int(n)
	if len(buf) < end {
		return "", 0, nerrors.Newf(nerrors.CorruptFormat, "length-prefixed string body truncated")
	}
	return bytesToString(buf[4:end]), end, nil
}

func (d *ConstantStringDecoder) Kind() Kind         { return KindConstant }
func (d *ConstantStringDecoder) DataType() DataType { return d.dtype }
func (d *ConstantStringDecoder) RowCount() int      { return d.n }

func (d *ConstantStringDecoder) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant string skip past end")
	}
	d.pos += n
	return nil
}

func (d *ConstantStringDecoder) Materialize(n int, out []string) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "constant string materialize past end")
	}
	for i := 0; i < n; i++ {
		out[i] = d.value
	}
	d.pos += n
	return nil
}
