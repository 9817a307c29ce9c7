// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import "github.com/facebookexternal/nimble/encoding"

// integerStats aggregates the statistics spec.md §4.4 step 1 names
// (count, min, max, distinct count, run count) for one batch of values of
// integer type T, computed once and reused across every candidate in step 2.
type integerStats[T encoding.Integer] struct {
	count     int
	min, max  T
	distinct  map[T]int
	runCount  int
	modeValue T
	modeCount int
}

func computeIntegerStats[T encoding.Integer](values []T) integerStats[T] {
	st := integerStats[T]{count: len(values), distinct: make(map[T]int)}
	if len(values) == 0 {
		return st
	}
	st.min, st.max = values[0], values[0]
	st.runCount = 1
	prev := values[0]
	for i, v := range values {
		if v < st.min {
			st.min = v
		}
		if v > st.max {
			st.max = v
		}
		st.distinct[v]++
		if i > 0 && v != prev {
			st.runCount++
		}
		prev = v
	}
	// Scan values in their original order, rather than st.distinct, so
	// that among values tied for the highest count the first one
	// encountered wins deterministically.
	for _, v := range values {
		if c := st.distinct[v]; c > st.modeCount {
			st.modeCount, st.modeValue = c, v
		}
	}
	return st
}

// runsOf returns the batch's run lengths (consecutive equal-value groups) and
// one representative value per run, in order — the shape EncodeRLE's
// run-length array and nested values payload need.
func runsOf[T comparable](values []T) (lengths []uint32, runValues []T) {
	if len(values) == 0 {
		return nil, nil
	}
	cur := values[0]
	n := uint32(1)
	for _, v := range values[1:] {
		if v == cur {
			n++
			continue
		}
		lengths = append(lengths, n)
		runValues = append(runValues, cur)
		cur, n = v, 1
	}
	lengths = append(lengths, n)
	runValues = append(runValues, cur)
	return lengths, runValues
}

// floatStats mirrors integerStats for the two floating-point physical
// types. NaN is excluded from min/max per spec.md §9(a)'s open-question
// resolution: "treat NaN as unknown and skip that range."
type floatStats[T encoding.Float] struct {
	count     int
	min, max  T
	haveRange bool
	hasNaN    bool
	distinct  map[T]int
	runCount  int
	modeValue T
	modeCount int
}

func computeFloatStats[T encoding.Float](values []T) floatStats[T] {
	st := floatStats[T]{count: len(values), distinct: make(map[T]int)}
	if len(values) == 0 {
		return st
	}
	st.runCount = 1
	prev := values[0]
	for i, v := range values {
		if v == v { // not NaN
			if !st.haveRange {
				st.min, st.max = v, v
				st.haveRange = true
			} else {
				if v < st.min {
					st.min = v
				}
				if v > st.max {
					st.max = v
				}
			}
		} else {
			st.hasNaN = true
		}
		st.distinct[v]++
		if i > 0 && v != prev {
			st.runCount++
		}
		prev = v
	}
	// Scan values in their original order, rather than st.distinct, so
	// that among values tied for the highest count the first one
	// encountered wins deterministically.
	for _, v := range values {
		if c := st.distinct[v]; c > st.modeCount {
			st.modeCount, st.modeValue = c, v
		}
	}
	return st
}
