// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import "github.com/facebookexternal/nimble/encoding"

// SelectInteger chooses the smallest encoding tree for values, an integer
// physical type. It never wraps the result in Nullable; callers that carry
// nulls call SelectNullableInteger instead, which compacts to the
// non-null values before delegating here (spec.md §4.2: "data is decoded
// over non-null positions only").
func SelectInteger[T encoding.Integer](values []T, dtype encoding.DataType, p Policy) []byte {
	if len(values) == 0 {
		return encoding.EncodeTrivial(values, dtype)
	}
	st := computeIntegerStats(values)
	candidates := []candidate{
		{encoding.KindTrivial, encoding.EncodeTrivial(values, dtype)},
	}
	if st.min == st.max {
		candidates = append(candidates, candidate{encoding.KindConstant, encoding.EncodeConstant(st.min, len(values), dtype)})
	}
	if p.EnableFixedBitWidth && encoding.FitsFixedBitWidth(values, dtype, p.MaxFixedBitWidth) {
		candidates = append(candidates, candidate{encoding.KindFixedBitWidth, encoding.EncodeFixedBitWidth(values, dtype)})
	}
	if p.EnableVarint {
		candidates = append(candidates, candidate{encoding.KindVarint, encoding.EncodeVarint(values, dtype)})
	}
	if p.EnableRLE && float64(st.runCount) <= p.RLEMaxRunRatio*float64(st.count) {
		candidates = append(candidates, candidate{encoding.KindRLE, encodeRLEInteger(values, dtype, p)})
	}
	if p.EnableDictionary && len(st.distinct) > 0 &&
		float64(len(st.distinct)) <= p.DictionaryMaxDistinctRatio*float64(st.count) {
		candidates = append(candidates, candidate{encoding.KindDictionary, encodeDictionaryInteger(values, st, dtype, p)})
	}
	if p.EnableMainlyConstant && st.modeCount > 0 &&
		float64(st.modeCount) >= p.MainlyConstantMinModeFrequency*float64(st.count) && st.modeCount < st.count {
		candidates = append(candidates, candidate{encoding.KindMainlyConstant, encodeMainlyConstantInteger(values, st, dtype, p)})
	}
	return pickSmallest(candidates)
}

// SelectNullableInteger compacts values to their non-null entries (valid[i]
// true means present), selects an encoding tree for the non-null values,
// selects a bool encoding for the null bitmap, and wraps both in Nullable.
// If no value is null, it returns the unwrapped selection for the full
// batch, since Nullable would add pure overhead.
func SelectNullableInteger[T encoding.Integer](values []T, valid []bool, dtype encoding.DataType, p Policy) []byte {
	nullCount := 0
	for _, v := range valid {
		if !v {
			nullCount++
		}
	}
	if nullCount == 0 {
		return SelectInteger(values, dtype, p)
	}
	present := make([]T, 0, len(values)-nullCount)
	for i, v := range values {
		if valid[i] {
			present = append(present, v)
		}
	}
	dataPayload := SelectInteger(present, dtype, p)
	nullsPayload := SelectBool(valid, p)
	return encoding.EncodeNullable(dtype, len(values), dataPayload, nullsPayload)
}

func encodeRLEInteger[T encoding.Integer](values []T, dtype encoding.DataType, p Policy) []byte {
	lengths, runValues := runsOf(values)
	valuesPayload := SelectInteger(runValues, dtype, disableRLE(p))
	return encoding.EncodeRLE(dtype, len(values), lengths, valuesPayload)
}

func encodeDictionaryInteger[T encoding.Integer](values []T, st integerStats[T], dtype encoding.DataType, p Policy) []byte {
	alphabet := make([]T, 0, len(st.distinct))
	index := make(map[T]uint32, len(st.distinct))
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
	alphabetPayload := SelectInteger(alphabet, dtype, disableDictionary(p))
	indicesPayload := SelectInteger(indices, encoding.U32, disableDictionary(p))
	return encoding.EncodeDictionary(dtype, len(values), uint32(len(alphabet)), alphabetPayload, indicesPayload)
}

func encodeMainlyConstantInteger[T encoding.Integer](values []T, st integerStats[T], dtype encoding.DataType, p Policy) []byte {
	isCommon := make([]bool, len(values))
	other := make([]T, 0, len(values)-st.modeCount)
	for i, v := range values {
		if v == st.modeValue {
			isCommon[i] = true
		} else {
			other = append(other, v)
		}
	}
	isCommonPayload := SelectBool(isCommon, p)
	otherPayload := SelectInteger(other, dtype, disableMainlyConstant(p))
	return encoding.EncodeMainlyConstant(dtype, len(values), st.modeValue, isCommonPayload, otherPayload)
}

// disableRLE/disableDictionary/disableMainlyConstant return a copy of p with
// the named candidate turned off, bounding the recursion spec.md §4.4 step 3
// describes ("budget a single recursion level per call") to exactly one
// reentry per wrapper kind rather than an unbounded nesting of the same
// wrapper around itself.
func disableRLE(p Policy) Policy            { p.EnableRLE = false; return p }
func disableDictionary(p Policy) Policy     { p.EnableDictionary = false; return p }
func disableMainlyConstant(p Policy) Policy { p.EnableMainlyConstant = false; return p }
