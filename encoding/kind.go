// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package encoding implements the concrete encoding kernels that turn a
// batch of typed values into a self-describing byte payload and back:
// Trivial, FixedBitWidth, Varint, RLE, Dictionary, MainlyConstant,
// SparseBool, Constant, and Nullable. Every payload begins with the common
// prefix {kind, data_type, row_count} described by the format's encoding
// tree, and kernels may nest: any numeric child slot accepts a recursively
// encoded payload of its own.
package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// Kind identifies which concrete encoding produced a payload. Values are
// never renumbered; the byte is written verbatim to disk.
type Kind uint8

const (
	KindTrivial Kind = iota
	KindFixedBitWidth
	KindVarint
	KindRLE
	KindDictionary
	KindMainlyConstant
	KindSparseBool
	KindConstant
	KindNullable
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindTrivial:
		return "Trivial"
	case KindFixedBitWidth:
		return "FixedBitWidth"
	case KindVarint:
		return "Varint"
	case KindRLE:
		return "RLE"
	case KindDictionary:
		return "Dictionary"
	case KindMainlyConstant:
		return "MainlyConstant"
	case KindSparseBool:
		return "SparseBool"
	case KindConstant:
		return "Constant"
	case KindNullable:
		return "Nullable"
	default:
		return "Unknown"
	}
}

// DataType identifies the physical element type a payload decodes to. It is
// distinct from the logical schema type: e.g. both i8 and i16 columns may be
// stored with data_type I32 if the selection policy widens them, though the
// default policy never does.
type DataType uint8

const (
	I8 DataType = iota
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	Bool
	String
	Binary
)

// String implements fmt.Stringer.
func (d DataType) String() string {
	switch d {
	case I8:
		return "i8"
	case U8:
		return "u8"
	case I16:
		return "i16"
	case U16:
		return "u16"
	case I32:
		return "i32"
	case U32:
		return "u32"
	case I64:
		return "i64"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// IsIntegral reports whether d is one of the fixed-width integer types
// (signed or unsigned), the family FixedBitWidth/Varint/RLE-run-length
// operate over.
func (d DataType) IsIntegral() bool {
	switch d {
	case I8, U8, I16, U16, I32, U32, I64, U64:
		return true
	default:
		return false
	}
}

// kPrefixSize is the size in bytes of the common {kind, data_type,
// row_count} prefix shared by every encoded payload.
const kPrefixSize = 6

// writePrefix writes the common encoding prefix to the front of buf, which
// must have at least kPrefixSize bytes available.
func writePrefix(buf []byte, kind Kind, dtype DataType, rowCount uint32) {
	bitops.PutUint8(buf[0:1], uint8(kind))
	bitops.PutUint8(buf[1:2], uint8(dtype))
	bitops.PutUint32(buf[2:6], rowCount)
}

// prefix holds a decoded common encoding header.
type prefix struct {
	kind     Kind
	dtype    DataType
	rowCount uint32
}

// readPrefix decodes the common prefix from the front of buf and returns the
// prefix together with the remainder of buf following it.
func readPrefix(buf []byte) (prefix, []byte, error) {
	if len(buf) < kPrefixSize {
		return prefix{}, nil, nerrors.Newf(nerrors.CorruptFormat,
			"encoding prefix truncated: need %d bytes, have %d", kPrefixSize, len(buf))
	}
	kindByte, _ := bitops.GetUint8(buf[0:1])
	dtypeByte, _ := bitops.GetUint8(buf[1:2])
	rowCount, _ := bitops.GetUint32(buf[2:6])
	return prefix{kind: Kind(kindByte), dtype: DataType(dtypeByte), rowCount: rowCount}, buf[kPrefixSize:], nil
}
