// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import "github.com/facebookexternal/nimble/encoding"

// SelectNullableBool mirrors SelectNullableInteger for a nullable bool
// column: non-null values are compacted, selected independently of the
// null bitmap, and the two results wrapped in Nullable.
func SelectNullableBool(values []bool, valid []bool, p Policy) []byte {
	nullCount := 0
	for _, v := range valid {
		if !v {
			nullCount++
		}
	}
	if nullCount == 0 {
		return SelectBool(values, p)
	}
	present := make([]bool, 0, len(values)-nullCount)
	for i, v := range values {
		if valid[i] {
			present = append(present, v)
		}
	}
	dataPayload := SelectBool(present, p)
	nullsPayload := SelectBool(valid, p)
	return encoding.EncodeNullable(encoding.Bool, len(values), dataPayload, nullsPayload)
}

// SelectBool chooses the smallest encoding tree for a batch of bools.
// SparseBool is a candidate whenever one of the two values is a clear
// minority, RLE whenever the column is runny, and MainlyConstant whenever
// one value dominates without being sparse enough for SparseBool's
// index-list representation to win.
func SelectBool(values []bool, p Policy) []byte {
	if len(values) == 0 {
		return encoding.EncodeTrivialBool(values)
	}
	trueCount := 0
	for _, v := range values {
		if v {
			trueCount++
		}
	}
	falseCount := len(values) - trueCount
	runCount := 1
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			runCount++
		}
	}

	candidates := []candidate{
		{encoding.KindTrivial, encoding.EncodeTrivialBool(values)},
	}
	if trueCount == 0 || falseCount == 0 {
		candidates = append(candidates, candidate{encoding.KindConstant, encoding.EncodeConstantBool(trueCount > 0, len(values))})
	}
	if p.EnableRLE && float64(runCount) <= p.RLEMaxRunRatio*float64(len(values)) {
		lengths, runValues := runsOf(values)
		candidates = append(candidates, candidate{encoding.KindRLE, encoding.EncodeRLEBool(len(values), lengths, runValues[0])})
	}
	if p.EnableSparseBool {
		minority, minorityCount := true, trueCount
		if falseCount < trueCount {
			minority, minorityCount = false, falseCount
		}
		if minorityCount > 0 && float64(minorityCount) <= p.SparseBoolMaxMinorityRatio*float64(len(values)) {
			indices := make([]uint32, 0, minorityCount)
			for i, v := range values {
				if v == minority {
					indices = append(indices, uint32(i))
				}
			}
			indicesPayload := SelectInteger(indices, encoding.U32, p)
			candidates = append(candidates, candidate{encoding.KindSparseBool, encoding.EncodeSparseBool(len(values), minority, indicesPayload)})
		}
	}
	if p.EnableMainlyConstant {
		common, commonCount := true, trueCount
		if falseCount > trueCount {
			common, commonCount = false, falseCount
		}
		if commonCount > 0 && commonCount < len(values) &&
			float64(commonCount) >= p.MainlyConstantMinModeFrequency*float64(len(values)) {
			isCommon := make([]bool, len(values))
			other := make([]bool, 0, len(values)-commonCount)
			for i, v := range values {
				if v == common {
					isCommon[i] = true
				} else {
					other = append(other, v)
				}
			}
			isCommonPayload := SelectBool(isCommon, disableMainlyConstant(p))
			otherPayload := SelectBool(other, disableMainlyConstant(p))
			candidates = append(candidates, candidate{encoding.KindMainlyConstant, encoding.EncodeMainlyConstantBool(len(values), common, isCommonPayload, otherPayload)})
		}
	}
	return pickSmallest(candidates)
}
