// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import "github.com/facebookexternal/nimble/encoding"

// SelectFloat chooses the smallest encoding tree for a batch of floating
// point values. FixedBitWidth and Varint never apply to floats, so the
// candidate set is narrower than SelectInteger's.
func SelectFloat[T encoding.Float](values []T, dtype encoding.DataType, p Policy) []byte {
	if len(values) == 0 {
		return encoding.EncodeTrivial(values, dtype)
	}
	st := computeFloatStats(values)
	candidates := []candidate{
		{encoding.KindTrivial, encoding.EncodeTrivial(values, dtype)},
	}
	if st.haveRange && st.min == st.max && st.modeCount == st.count {
		candidates = append(candidates, candidate{encoding.KindConstant, encoding.EncodeConstant(st.min, len(values), dtype)})
	}
	if p.EnableRLE && float64(st.runCount) <= p.RLEMaxRunRatio*float64(st.count) {
		candidates = append(candidates, candidate{encoding.KindRLE, encodeRLEFloat(values, dtype, p)})
	}
	// A NaN key can never be looked back up out of a Go map (NaN != NaN), so
	// Dictionary's index[v] lookup would silently resolve every NaN row to
	// alphabet index 0. Spec.md §9(a) only asks for NaN-aware min/max; this
	// codebase additionally excludes NaN-bearing batches from the two
	// candidates whose correctness depends on map identity of T.
	if p.EnableDictionary && !st.hasNaN && len(st.distinct) > 0 &&
		float64(len(st.distinct)) <= p.DictionaryMaxDistinctRatio*float64(st.count) {
		candidates = append(candidates, candidate{encoding.KindDictionary, encodeDictionaryFloat(values, st, dtype, p)})
	}
	if p.EnableMainlyConstant && !st.hasNaN && st.modeCount > 0 &&
		float64(st.modeCount) >= p.MainlyConstantMinModeFrequency*float64(st.count) && st.modeCount < st.count {
		candidates = append(candidates, candidate{encoding.KindMainlyConstant, encodeMainlyConstantFloat(values, st, dtype, p)})
	}
	return pickSmallest(candidates)
}

// SelectNullableFloat mirrors SelectNullableInteger for floating point
// columns.
func SelectNullableFloat[T encoding.Float](values []T, valid []bool, dtype encoding.DataType, p Policy) []byte {
	nullCount := 0
	for _, v := range valid {
		if !v {
			nullCount++
		}
	}
	if nullCount == 0 {
		return SelectFloat(values, dtype, p)
	}
	present := make([]T, 0, len(values)-nullCount)
	for i, v := range values {
		if valid[i] {
			present = append(present, v)
		}
	}
	dataPayload := SelectFloat(present, dtype, p)
	nullsPayload := SelectBool(valid, p)
	return encoding.EncodeNullable(dtype, len(values), dataPayload, nullsPayload)
}

func encodeRLEFloat[T encoding.Float](values []T, dtype encoding.DataType, p Policy) []byte {
	lengths, runValues := runsOf(values)
	valuesPayload := SelectFloat(runValues, dtype, disableRLE(p))
	return encoding.EncodeRLE(dtype, len(values), lengths, valuesPayload)
}

func encodeDictionaryFloat[T encoding.Float](values []T, st floatStats[T], dtype encoding.DataType, p Policy) []byte {
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
	alphabetPayload := SelectFloat(alphabet, dtype, disableDictionary(p))
	indicesPayload := SelectInteger(indices, encoding.U32, disableDictionary(p))
	return encoding.EncodeDictionary(dtype, len(values), uint32(len(alphabet)), alphabetPayload, indicesPayload)
}

func encodeMainlyConstantFloat[T encoding.Float](values []T, st floatStats[T], dtype encoding.DataType, p Policy) []byte {
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
	otherPayload := SelectFloat(other, dtype, disableMainlyConstant(p))
	return encoding.EncodeMainlyConstant(dtype, len(values), st.modeValue, isCommonPayload, otherPayload)
}
