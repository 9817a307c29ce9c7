// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package testutils holds small, deterministic helpers the rest of this
// module's tests share: seeded random batch generation and validity-bitmap
// synthesis, so a test failure can be reproduced from its seed alone.
package testutils

import (
	"math/rand/v2"

	"golang.org/x/exp/constraints"
)

// NewRand returns a PCG-seeded *rand.Rand. Passing the same seed always
// reproduces the same sequence, which is what lets a failing test log just
// its seed rather than the generated data.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandInts fills a length-n slice of T with values in [lo, hi).
func RandInts[T constraints.Integer](rng *rand.Rand, n int, lo, hi T) []T {
	out := make([]T, n)
	span := uint64(hi - lo)
	for i := range out {
		if span == 0 {
			out[i] = lo
			continue
		}
		out[i] = lo + T(rng.Uint64N(span))
	}
	return out
}

// RandFloats fills a length-n slice of T with values in [0, 1).
func RandFloats[T constraints.Float](rng *rand.Rand, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(rng.Float64())
	}
	return out
}

// RandBools fills a length-n bool slice, each entry true with probability p.
func RandBools(rng *rand.Rand, n int, p float64) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = rng.Float64() < p
	}
	return out
}

// RandStrings returns n strings of length in [minLen, maxLen), drawn from
// lowercase ASCII.
func RandStrings(rng *rand.Rand, n, minLen, maxLen int) []string {
	out := make([]string, n)
	for i := range out {
		l := minLen
		if maxLen > minLen {
			l += int(rng.Uint64N(uint64(maxLen - minLen)))
		}
		buf := make([]byte, l)
		for j := range buf {
			buf[j] = byte('a' + rng.Uint64N(26))
		}
		out[i] = string(buf)
	}
	return out
}

// RandValidity returns a length-n bool slice suitable for a Push* valid
// argument, with each row non-null with probability 1-nullProb. It returns
// nil (meaning "no nulls, no bitmap stream needed") when nullProb is 0, the
// same convention the stripe writer itself uses for an all-present column.
func RandValidity(rng *rand.Rand, n int, nullProb float64) []bool {
	if nullProb <= 0 {
		return nil
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = rng.Float64() >= nullProb
	}
	return out
}

// RandLengths returns n lengths in [lo, hi) summing to some total, along
// with that total — the shape an Array/Map/FlatMap-value-subtree row count
// generator needs (the lengths stream plus how many element rows to
// generate to back it).
func RandLengths(rng *rand.Rand, n int, lo, hi int) (lengths []uint32, total int) {
	lengths = make([]uint32, n)
	for i := range lengths {
		l := lo
		if hi > lo {
			l += int(rng.Uint64N(uint64(hi - lo)))
		}
		lengths[i] = uint32(l)
		total += l
	}
	return lengths, total
}

// RandKeys returns k distinct randomly generated flat-map key names, the
// shape a FlatMap column generator registers via schema.Type.RegisterKey.
func RandKeys(rng *rand.Rand, k int) []string {
	seen := make(map[string]bool, k)
	out := make([]string, 0, k)
	for len(out) < k {
		s := RandStrings(rng, 1, 3, 8)[0]
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
