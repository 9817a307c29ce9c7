// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package layout implements the layout planner (C9): a pure function from
// a stripe's streams (in schema pre-order) to a reordered stream array that
// clusters co-read streams — notably a flat map's selected features —
// without dropping or duplicating any stream.
package layout

import (
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/stripe"
)

// Planner reorders a finished stripe's streams before the tablet writer
// appends them to the file. Implementations must preserve the input
// multiset exactly (spec.md §4.9's invariant): same length, same set of
// descriptor offsets, only the order changes.
type Planner interface {
	Layout(s *schema.Schema, streams []stripe.StreamBlob) ([]stripe.StreamBlob, error)
}

// IdentityPlanner leaves the stream order exactly as C7 produced it
// (schema pre-order) — the default when no flat-map feature order is
// configured.
type IdentityPlanner struct{}

// Layout implements Planner.
func (IdentityPlanner) Layout(_ *schema.Schema, streams []stripe.StreamBlob) ([]stripe.StreamBlob, error) {
	return streams, nil
}

// FlatMapFeatureOrder configures the desired on-disk key order for one
// top-level flat-map column.
type FlatMapFeatureOrder struct {
	Column string
	Keys   []string
}

// FlatMapPlanner implements the flat-map-aware layout contract from
// spec.md §4.9, ported from
// original_source/dwio/alpha/velox/FlatMapLayoutPlanner.cpp:
//  1. the root Row's nulls stream first;
//  2. for each configured (flat-map column, ordered key list): the flat
//     map's nulls stream, then for each key in order (if present), its
//     in-map stream followed by all descriptor streams of its value
//     subtree in pre-order;
//  3. all remaining streams in schema pre-order, de-duplicated by
//     descriptor offset.
type FlatMapPlanner struct {
	Order []FlatMapFeatureOrder
}

// NewFlatMapPlanner returns a FlatMapPlanner with the given column
// feature orderings.
func NewFlatMapPlanner(order []FlatMapFeatureOrder) *FlatMapPlanner {
	return &FlatMapPlanner{Order: order}
}

// Layout implements Planner.
func (p *FlatMapPlanner) Layout(s *schema.Schema, streams []stripe.StreamBlob) ([]stripe.StreamBlob, error) {
	root := s.Root()
	if root.Kind != schema.Row {
		return nil, nerrors.Newf(nerrors.InvalidArgument, "flat map layout planner requires a Row schema root")
	}

	var orderedFlatMapOffsets []uint32
	for _, fmo := range p.Order {
		col, ok := s.Column(fmo.Column)
		if !ok {
			return nil, nerrors.Newf(nerrors.InvalidArgument, "flat map layout planner: unknown column %q", fmo.Column)
		}
		if col.Kind != schema.FlatMap {
			return nil, nerrors.Newf(nerrors.InvalidArgument, "flat map layout planner: column %q is not a flat map", fmo.Column)
		}
		orderedFlatMapOffsets = append(orderedFlatMapOffsets, col.Nulls.Offset)
		for _, key := range fmo.Keys {
			field, ok := col.Key(key)
			if !ok {
				continue
			}
			orderedFlatMapOffsets = append(orderedFlatMapOffsets, field.InMap.Offset)
			schema.Walk(field.Value, func(d *schema.Descriptor) {
				orderedFlatMapOffsets = append(orderedFlatMapOffsets, d.Offset)
			})
		}
	}

	allOffsets := make([]uint32, 0, s.StreamCount())
	schema.Walk(root, func(d *schema.Descriptor) {
		allOffsets = append(allOffsets, d.Offset)
	})

	byOffset := make(map[uint32]stripe.StreamBlob, len(streams))
	for _, blob := range streams {
		byOffset[blob.Offset] = blob
	}

	out := make([]stripe.StreamBlob, 0, len(streams))
	tryAppend := func(offset uint32) {
		if blob, ok := byOffset[offset]; ok {
			out = append(out, blob)
			delete(byOffset, offset)
		}
	}

	tryAppend(root.Nulls.Offset)
	for _, offset := range orderedFlatMapOffsets {
		tryAppend(offset)
	}
	for _, offset := range allOffsets {
		tryAppend(offset)
	}

	if len(out) != len(streams) {
		return nil, nerrors.Newf(nerrors.Internal,
			"layout planner stream count mismatch: input %d output %d", len(streams), len(out))
	}
	return out, nil
}
