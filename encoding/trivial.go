// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"unsafe"

	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// widthOf returns the on-disk byte width of one element of dtype, for the
// fixed-width physical types Trivial stores as a raw little-endian dump.
func widthOf(dtype DataType) int {
	switch dtype {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case I64, U64, F64:
		return 8
	default:
		return 0
	}
}

// EncodeTrivial writes values as a raw little-endian fixed-width dump: the
// common prefix followed by len(values)*widthOf(dtype) bytes.
func EncodeTrivial[T Numeric](values []T, dtype DataType) []byte {
	w := widthOf(dtype)
	buf := make([]byte, kPrefixSize+w*len(values))
	writePrefix(buf, KindTrivial, dtype, uint32(len(values)))
	body := buf[kPrefixSize:]
	for i, v := range values {
		putScalar(body[i*w:], dtype, v)
	}
	return buf
}

// putScalar writes v, interpreted as dtype's physical representation, to the
// front of buf.
func putScalar[T Numeric](buf []byte, dtype DataType, v T) {
	switch dtype {
	case I8:
		bitops.PutUint8(buf, uint8(int8(v)))
	case U8:
		bitops.PutUint8(buf, uint8(v))
	case I16:
		bitops.PutUint16(buf, uint16(int16(v)))
	case U16:
		bitops.PutUint16(buf, uint16(v))
	case I32:
		bitops.PutUint32(buf, uint32(int32(v)))
	case U32:
		bitops.PutUint32(buf, uint32(v))
	case I64:
		bitops.PutUint64(buf, uint64(int64(v)))
	case U64:
		bitops.PutUint64(buf, uint64(v))
	case F32:
		bitops.PutFloat32(buf, float32(v))
	case F64:
		bitops.PutFloat64(buf, float64(v))
	}
}

// getScalar reads one dtype-typed value from the front of buf.
func getScalar[T Numeric](buf []byte, dtype DataType) T {
	switch dtype {
	case I8:
		v, _ := bitops.GetUint8(buf)
		return T(int8(v))
	case U8:
		v, _ := bitops.GetUint8(buf)
		return T(v)
	case I16:
		v, _ := bitops.GetUint16(buf)
		return T(int16(v))
	case U16:
		v, _ := bitops.GetUint16(buf)
		return T(v)
	case I32:
		v, _ := bitops.GetUint32(buf)
		return T(int32(v))
	case U32:
		v, _ := bitops.GetUint32(buf)
		return T(v)
	case I64:
		v, _ := bitops.GetUint64(buf)
		return T(int64(v))
	case U64:
		v, _ := bitops.GetUint64(buf)
		return T(v)
	case F32:
		v, _ := bitops.GetFloat32(buf)
		return T(v)
	case F64:
		v, _ := bitops.GetFloat64(buf)
		return T(v)
	default:
		return T(0)
	}
}

// TrivialDecoder decodes a Trivial-encoded fixed-width payload.
type TrivialDecoder[T Numeric] struct {
	dtype DataType
	n     int
	width int
	body  []byte
	pos   int
}

func decodeTrivial[T Numeric](p prefix, rest []byte) (*TrivialDecoder[T], error) {
	w := widthOf(p.dtype)
	need := w * int(p.rowCount)
	if len(rest) < need {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "trivial payload truncated: need %d bytes, have %d", need, len(rest))
	}
	return &TrivialDecoder[T]{dtype: p.dtype, n: int(p.rowCount), width: w, body: rest[:need]}, nil
}

func (d *TrivialDecoder[T]) Kind() Kind         { return KindTrivial }
func (d *TrivialDecoder[T]) DataType() DataType { return d.dtype }
func (d *TrivialDecoder[T]) RowCount() int      { return d.n }

func (d *TrivialDecoder[T]) Skip(n int) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "trivial skip past end: pos=%d n=%d rowCount=%d", d.pos, n, d.n)
	}
	d.pos += n
	return nil
}

func (d *TrivialDecoder[T]) Materialize(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "trivial materialize past end: pos=%d n=%d rowCount=%d", d.pos, n, d.n)
	}
	for i := 0; i < n; i++ {
		out[i] = getScalar[T](d.body[(d.pos+i)*d.width:], d.dtype)
	}
	d.pos += n
	return nil
}

// ---- string/binary Trivial: [lengths FixedBitWidth(u32) encoding][bytes] ----

// EncodeTrivialString writes values as a nested FixedBitWidth-encoded length
// array followed by the concatenated UTF-8 (or raw binary) bytes.
func EncodeTrivialString(values []string, dtype DataType) []byte {
	lengths := make([]uint32, len(values))
	total := 0
	for i, s := range values {
		lengths[i] = uint32(len(s))
		total += len(s)
	}
	lengthsPayload := EncodeFixedBitWidth(lengths, U32)
	buf := make([]byte, kPrefixSize+4+len(lengthsPayload)+total)
	writePrefix(buf, KindTrivial, dtype, uint32(len(values)))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, uint32(len(lengthsPayload)))
	rest = rest[4:]
	copy(rest, lengthsPayload)
	rest = rest[len(lengthsPayload):]
	off := 0
	for _, s := range values {
		copy(rest[off:], s)
		off += len(s)
	}
	return buf
}

// TrivialStringDecoder decodes a Trivial-encoded string/binary payload.
type TrivialStringDecoder struct {
	dtype   DataType
	n       int
	lengths Decoder[uint32]
	bytes   []byte
	byteOff int
	pos     int
}

func decodeTrivialString(p prefix, rest []byte) (*TrivialStringDecoder, error) {
	if len(rest) < 4 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "trivial string payload truncated")
	}
	lengthsLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(lengthsLen) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "trivial string lengths payload truncated")
	}
	lengthsEnc, err := Decode(rest[:lengthsLen])
	if err != nil {
		return nil, err
	}
	lengths, ok := lengthsEnc.(Decoder[uint32])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "trivial string lengths payload is not a uint32 decoder")
	}
	return &TrivialStringDecoder{dtype: p.dtype, n: int(p.rowCount), lengths: lengths, bytes: rest[lengthsLen:]}, nil
}

func (d *TrivialStringDecoder) Kind() Kind         { return KindTrivial }
func (d *TrivialStringDecoder) DataType() DataType { return d.dtype }
func (d *TrivialStringDecoder) RowCount() int      { return d.n }

func (d *TrivialStringDecoder) Skip(n int) error {
	lens := make([]uint32, n)
	if err := d.lengths.Materialize(n, lens); err != nil {
		return err
	}
	for _, l := range lens {
		d.byteOff += int(l)
	}
	d.pos += n
	return nil
}

func (d *TrivialStringDecoder) Materialize(n int, out []string) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "trivial string materialize past end")
	}
	lens := make([]uint32, n)
	if err := d.lengths.Materialize(n, lens); err != nil {
		return err
	}
	for i, l := range lens {
		end := d.byteOff + int(l)
		if end > len(d.bytes) {
			return nerrors.Newf(nerrors.CorruptFormat, "trivial string bytes truncated")
		}
		out[i] = bytesToString(d.bytes[d.byteOff:end])
		d.byteOff = end
	}
	d.pos += n
	return nil
}

// bytesToString avoids an extra copy when the caller has already committed
// to treating the chunk buffer as immutable for the decoder's lifetime,
// mirroring the "decode is zero-copy" contract documented on every kernel.
func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
