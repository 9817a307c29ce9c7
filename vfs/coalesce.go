// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package vfs

import "sort"

// Range is a half-open byte range [Offset, Offset+Length) within a Source.
type Range struct {
	Offset int64
	Length int64
}

// End returns the exclusive end of r.
func (r Range) End() int64 { return r.Offset + r.Length }

// CoalesceRanges merges ranges whose gaps are at most maxGap into single
// ranges covering their union, the way the tablet reader's stream loader
// merges adjacent stream byte ranges into one ranged read instead of issuing
// one I/O per stream. It returns, for each input range (in original order),
// the index into the returned merged-range slice that contains it.
func CoalesceRanges(ranges []Range, maxGap int64) (merged []Range, owner []int) {
	n := len(ranges)
	if n == 0 {
		return nil, nil
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return ranges[order[a]].Offset < ranges[order[b]].Offset })

	owner = make([]int, n)
	merged = make([]Range, 0, n)
	cur := ranges[order[0]]
	owner[order[0]] = 0
	for _, idx := range order[1:] {
		r := ranges[idx]
		if r.Offset-cur.End() <= maxGap {
			if end := r.End(); end > cur.End() {
				cur.Length = end - cur.Offset
			}
		} else {
			merged = append(merged, cur)
			cur = r
		}
		owner[idx] = len(merged)
	}
	merged = append(merged, cur)
	return merged, owner
}
