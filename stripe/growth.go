// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package stripe

import "math"

// GrowthPolicy decides how far a field buffer's capacity should be extended
// to accommodate newSize logical items, given its current capacity.
type GrowthPolicy interface {
	ExtendedCapacity(newSize, capacity uint64) uint64
}

// growthBucket is one entry of a DefaultGrowthPolicy's range table: buffers
// whose target size falls at or below upperBound grow by multiplier steps.
type growthBucket struct {
	upperBound uint64
	multiplier float64
}

// DefaultGrowthPolicy implements the piecewise-geometric growth schedule
// ported from original_source/dwio/nimble/velox/BufferGrowthPolicy.cpp's
// DefaultInputBufferGrowthPolicy::getExtendedCapacity: find the range
// bucket containing the target size, then multiply the current capacity
// (floored at minCapacity) by that bucket's factor until it clears the
// target. The retrieved source does not carry its header's concrete range
// table, so the bucket boundaries below are this implementation's default
// — smaller buffers grow aggressively, larger ones grow conservatively.
type DefaultGrowthPolicy struct {
	buckets     []growthBucket
	minCapacity uint64
}

// NewDefaultGrowthPolicy returns the default bucketed growth policy.
func NewDefaultGrowthPolicy() *DefaultGrowthPolicy {
	return &DefaultGrowthPolicy{
		buckets: []growthBucket{
			{upperBound: 256, multiplier: 2.0},
			{upperBound: 4096, multiplier: 1.5},
			{upperBound: 65536, multiplier: 1.25},
			{upperBound: 1 << 20, multiplier: 1.1},
		},
		minCapacity: 64,
	}
}

// ExtendedCapacity implements GrowthPolicy.
func (p *DefaultGrowthPolicy) ExtendedCapacity(newSize, capacity uint64) uint64 {
	if newSize <= capacity {
		return capacity
	}
	// Targets above the last upperBound use the last bucket's multiplier.
	multiplier := p.buckets[len(p.buckets)-1].multiplier
	for _, b := range p.buckets {
		if newSize <= b.upperBound {
			multiplier = b.multiplier
			break
		}
	}
	extended := float64(capacity)
	if extended < float64(p.minCapacity) {
		extended = float64(p.minCapacity)
	}
	for extended < float64(newSize) {
		extended *= multiplier
	}
	return uint64(math.Floor(extended))
}

// appendGrowing appends more to *buf, first extending its capacity via
// growth if the combined length would exceed the current capacity.
func appendGrowing[T any](buf *[]T, growth GrowthPolicy, more []T) {
	target := uint64(len(*buf) + len(more))
	if uint64(cap(*buf)) < target {
		newCap := growth.ExtendedCapacity(target, uint64(cap(*buf)))
		grown := make([]T, len(*buf), newCap)
		copy(grown, *buf)
		*buf = grown
	}
	*buf = append(*buf, more...)
}
