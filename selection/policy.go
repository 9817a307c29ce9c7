// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package selection implements the encoding-selection policy (C4): given a
// batch of values and the statistics computed over it, choose the encoding
// tree whose serialized size is minimal, recursing one level into nested
// numeric subcomponents (dictionary indices, RLE run values, the "other
// values" slot of MainlyConstant). Selection never compresses; the
// accept-ratio compression gate lives one layer up, in package stream,
// where a chunk's single compression byte wraps the whole selected payload.
package selection

import "github.com/facebookexternal/nimble/encoding"

// Policy tunes which candidate encodings the selector considers and the
// thresholds that gate the more specialized ones, mirroring the knobs
// spec.md §4.4 calls "accept ratio" (for compression, handled by package
// stream) and the per-candidate enable thresholds (run-count ratio,
// distinct-count ratio, mode frequency, sparsity).
type Policy struct {
	// EnableFixedBitWidth, EnableVarint, EnableRLE, EnableDictionary,
	// EnableMainlyConstant, EnableSparseBool gate the corresponding
	// candidate. Trivial, Constant, and Nullable are always considered —
	// they are the format's universal fallbacks.
	EnableFixedBitWidth  bool
	EnableVarint         bool
	EnableRLE            bool
	EnableDictionary     bool
	EnableMainlyConstant bool
	EnableSparseBool     bool

	// MaxFixedBitWidth caps the bit width FixedBitWidth will accept before
	// falling back to Trivial/Varint; spec.md's integer kernels never
	// exceed 64.
	MaxFixedBitWidth uint

	// RLEMaxRunRatio is the "k" in spec.md §4.4 step 2: RLE is a candidate
	// only if run_count <= k*count.
	RLEMaxRunRatio float64

	// DictionaryMaxDistinctRatio is the "k'": Dictionary is a candidate
	// only if distinct_count <= k'*count.
	DictionaryMaxDistinctRatio float64

	// MainlyConstantMinModeFrequency is the minimum mode_frequency
	// (mode_count/count) required for MainlyConstant to be a candidate.
	MainlyConstantMinModeFrequency float64

	// SparseBoolMaxMinorityRatio is the maximum fraction of rows the less
	// frequent boolean value may occupy for SparseBool to be a candidate.
	SparseBoolMaxMinorityRatio float64
}

// DefaultPolicy returns the size-minimizing default policy every writer
// uses unless it injects a replacement (see ReplayPolicy, for the training
// tool's captured-choice seam described in spec.md §9).
func DefaultPolicy() Policy {
	return Policy{
		EnableFixedBitWidth:            true,
		EnableVarint:                   true,
		EnableRLE:                      true,
		EnableDictionary:               true,
		EnableMainlyConstant:           true,
		EnableSparseBool:               true,
		MaxFixedBitWidth:               64,
		RLEMaxRunRatio:                 0.5,
		DictionaryMaxDistinctRatio:     0.5,
		MainlyConstantMinModeFrequency: 0.9,
		SparseBoolMaxMinorityRatio:     0.15,
	}
}

// candidate pairs a fully serialized payload with the kind that produced it,
// for size comparison and the decode-cost tiebreak in step 4 of spec.md
// §4.4's algorithm.
type candidate struct {
	kind    encoding.Kind
	payload []byte
}

// rank orders kinds by decode cost, cheapest first, the tiebreak order
// spec.md §4.4 step 4 names explicitly: "Trivial > FixedBitWidth > Varint >
// Dictionary > RLE > Nullable wrappers". Constant and SparseBool are strictly
// cheaper than what they specialize (Trivial/RLE respectively) and slot in
// alongside them; MainlyConstant shares RLE's tier since both pay one branch
// per element.
func rank(kind encoding.Kind) int {
	switch kind {
	case encoding.KindConstant:
		return 0
	case encoding.KindTrivial:
		return 1
	case encoding.KindFixedBitWidth:
		return 2
	case encoding.KindVarint:
		return 3
	case encoding.KindSparseBool:
		return 4
	case encoding.KindDictionary:
		return 5
	case encoding.KindRLE, encoding.KindMainlyConstant:
		return 6
	case encoding.KindNullable:
		return 7
	default:
		return 99
	}
}

// pickSmallest returns the candidate with the smallest payload, breaking
// ties by rank (lower is preferred). Determinism (spec.md §4.4: "given
// identical inputs and policy parameters, selection is reproducible")
// follows from candidates always being built in the same fixed order.
func pickSmallest(candidates []candidate) []byte {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.payload) < len(best.payload) ||
			(len(c.payload) == len(best.payload) && rank(c.kind) < rank(best.kind)) {
			best = c
		}
	}
	return best.payload
}
