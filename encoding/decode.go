// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import nerrors "github.com/facebookexternal/nimble/errors"

// Decode reads the common prefix from the front of buf and constructs the
// matching kernel decoder, dispatching first on the payload's physical type
// and then on its kind. The returned value always also implements
// Decoder[T] for the concrete T matching DataType(); callers that know T at
// compile time recover it with a type assertion, exactly as the format's
// "sum type with a small dispatch table" design note describes.
func Decode(buf []byte) (Encoding, error) {
	p, rest, err := readPrefix(buf)
	if err != nil {
		return nil, err
	}
	switch p.dtype {
	case I8:
		return decodeIntegerByKind[int8](p, rest)
	case U8:
		return decodeIntegerByKind[uint8](p, rest)
	case I16:
		return decodeIntegerByKind[int16](p, rest)
	case U16:
		return decodeIntegerByKind[uint16](p, rest)
	case I32:
		return decodeIntegerByKind[int32](p, rest)
	case U32:
		return decodeIntegerByKind[uint32](p, rest)
	case I64:
		return decodeIntegerByKind[int64](p, rest)
	case U64:
		return decodeIntegerByKind[uint64](p, rest)
	case F32:
		return decodeFloatByKind[float32](p, rest)
	case F64:
		return decodeFloatByKind[float64](p, rest)
	case Bool:
		return decodeBoolByKind(p, rest)
	case String, Binary:
		return decodeStringByKind(p, rest)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "unknown data type byte %d", uint8(p.dtype))
	}
}

func decodeIntegerByKind[T Integer](p prefix, rest []byte) (Encoding, error) {
	switch p.kind {
	case KindTrivial:
		return decodeTrivial[T](p, rest)
	case KindFixedBitWidth:
		return decodeFixedBitWidth[T](p, rest)
	case KindVarint:
		return decodeVarint[T](p, rest)
	case KindConstant:
		return decodeConstant[T](p, rest)
	case KindDictionary:
		return decodeDictionary[T](p, rest)
	case KindMainlyConstant:
		return decodeMainlyConstant[T](p, rest)
	case KindRLE:
		return decodeRLE[T](p, rest)
	case KindNullable:
		return decodeNullableGeneric[T](p, rest)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "encoding kind %s is not supported for data type %s", p.kind, p.dtype)
	}
}

func decodeFloatByKind[T Float](p prefix, rest []byte) (Encoding, error) {
	switch p.kind {
	case KindTrivial:
		return decodeTrivial[T](p, rest)
	case KindConstant:
		return decodeConstant[T](p, rest)
	case KindDictionary:
		return decodeDictionary[T](p, rest)
	case KindMainlyConstant:
		return decodeMainlyConstant[T](p, rest)
	case KindRLE:
		return decodeRLE[T](p, rest)
	case KindNullable:
		return decodeNullableGeneric[T](p, rest)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "encoding kind %s is not supported for data type %s", p.kind, p.dtype)
	}
}

func decodeBoolByKind(p prefix, rest []byte) (Encoding, error) {
	switch p.kind {
	case KindTrivial:
		return decodeTrivialBool(p, rest)
	case KindConstant:
		return decodeConstantBool(p, rest)
	case KindRLE:
		return decodeRLEBool(p, rest)
	case KindSparseBool:
		return decodeSparseBool(p, rest)
	case KindMainlyConstant:
		return decodeMainlyConstantBool(p, rest)
	case KindNullable:
		return decodeNullableGeneric[bool](p, rest)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "encoding kind %s is not supported for data type bool", p.kind)
	}
}

func decodeStringByKind(p prefix, rest []byte) (Encoding, error) {
	switch p.kind {
	case KindTrivial:
		return decodeTrivialString(p, rest)
	case KindConstant:
		return decodeConstantString(p, rest)
	case KindDictionary:
		return decodeDictionaryString(p, rest)
	case KindMainlyConstant:
		return decodeMainlyConstantString(p, rest)
	case KindNullable:
		return decodeNullableGeneric[string](p, rest)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "encoding kind %s is not supported for data type %s", p.kind, p.dtype)
	}
}
