// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import "github.com/facebookexternal/nimble/encoding"

// SelectString chooses the smallest encoding tree for a batch of string or
// binary values. RLE, FixedBitWidth, Varint, and SparseBool have no string
// kernel (package encoding's decodeStringByKind only accepts Trivial,
// Constant, Dictionary, MainlyConstant, Nullable), so the candidate set is
// the narrowest of the four Select* entry points.
func SelectString(values []string, dtype encoding.DataType, p Policy) []byte {
	if len(values) == 0 {
		return encoding.EncodeTrivialString(values, dtype)
	}
	distinct := make(map[string]int, len(values))
	for _, v := range values {
		distinct[v]++
	}
	// Scan values in their original order so that, among values tied for
	// the highest count, the first one encountered wins deterministically.
	modeValue, modeCount := "", 0
	for _, v := range values {
		if c := distinct[v]; c > modeCount {
			modeValue, modeCount = v, c
		}
	}

	candidates := []candidate{
		{encoding.KindTrivial, encoding.EncodeTrivialString(values, dtype)},
	}
	if len(distinct) == 1 {
		candidates = append(candidates, candidate{encoding.KindConstant, encoding.EncodeConstantString(modeValue, len(values), dtype)})
	}
	if p.EnableDictionary && float64(len(distinct)) <= p.DictionaryMaxDistinctRatio*float64(len(values)) {
		candidates = append(candidates, candidate{encoding.KindDictionary, encodeDictionaryString(values, distinct, dtype, p)})
	}
	if p.EnableMainlyConstant && modeCount > 0 && modeCount < len(values) &&
		float64(modeCount) >= p.MainlyConstantMinModeFrequency*float64(len(values)) {
		candidates = append(candidates, candidate{encoding.KindMainlyConstant, encodeMainlyConstantString(values, modeValue, modeCount, dtype, p)})
	}
	return pickSmallest(candidates)
}

// SelectNullableString mirrors SelectNullableInteger for string/binary
// columns.
func SelectNullableString(values []string, valid []bool, dtype encoding.DataType, p Policy) []byte {
	nullCount := 0
	for _, v := range valid {
		if !v {
			nullCount++
		}
	}
	if nullCount == 0 {
		return SelectString(values, dtype, p)
	}
	present := make([]string, 0, len(values)-nullCount)
	for i, v := range values {
		if valid[i] {
			present = append(present, v)
		}
	}
	dataPayload := SelectString(present, dtype, p)
	nullsPayload := SelectBool(valid, p)
	return encoding.EncodeNullable(dtype, len(values), dataPayload, nullsPayload)
}

func encodeDictionaryString(values []string, distinct map[string]int, dtype encoding.DataType, p Policy) []byte {
	alphabet := make([]string, 0, len(distinct))
	index := make(map[string]uint32, len(distinct))
	for _, v := range values {
		if _, ok := index[v]; !ok {
			index[v] = uint32(len(alphabet))
			alphabet = append(alphabet, v)
		}
	}
	indices := make([]uint32, len(values))
	for i, v := range values {
		indices[i] = index[v]
	}
	alphabetPayload := SelectString(alphabet, dtype, disableDictionary(p))
	indicesPayload := SelectInteger(indices, encoding.U32, disableDictionary(p))
	return encoding.EncodeDictionaryString(dtype, len(values), uint32(len(alphabet)), alphabetPayload, indicesPayload)
}

func encodeMainlyConstantString(values []string, modeValue string, modeCount int, dtype encoding.DataType, p Policy) []byte {
	isCommon := make([]bool, len(values))
	other := make([]string, 0, len(values)-modeCount)
	for i, v := range values {
		if v == modeValue {
			isCommon[i] = true
		} else {
			other = append(other, v)
		}
	}
	isCommonPayload := SelectBool(isCommon, p)
	otherPayload := SelectString(other, dtype, disableMainlyConstant(p))
	return encoding.EncodeMainlyConstantString(dtype, len(values), modeValue, isCommonPayload, otherPayload)
}
