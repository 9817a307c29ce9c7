// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/schema"
)

// flatMapFieldReader decodes a FlatMap column: a presence bitmap for the
// map itself, plus one in-map bitmap and value subtree per registered
// key. Keys a FeatureSelector rejects are dropped entirely at
// construction time, so their in-map/value streams are never requested
// from the tablet and never decoded.
type flatMapFieldReader struct {
	desc     *schema.Descriptor
	nulls    *streamCursor
	keys     []string
	inMap    []*streamCursor
	inMapD   []*schema.Descriptor
	values   []FieldReader
	asStruct bool
}

func newFlatMapFieldReader(t *schema.Type, opts *columnOptions) (*flatMapFieldReader, error) {
	r := &flatMapFieldReader{
		desc:     t.Nulls,
		nulls:    newStreamCursor(t.Nulls.Offset, t.Nulls.ScalarKind),
		asStruct: opts.asStruct[opts.currentColumn],
	}
	sel := opts.selectors[opts.currentColumn]
	for _, f := range t.FlatFields {
		if sel != nil && !sel(f.Name) {
			continue
		}
		valueReader, err := newFieldReader(f.Value, opts)
		if err != nil {
			return nil, err
		}
		r.keys = append(r.keys, f.Name)
		r.inMap = append(r.inMap, newStreamCursor(f.InMap.Offset, f.InMap.ScalarKind))
		r.inMapD = append(r.inMapD, f.InMap)
		r.values = append(r.values, valueReader)
	}
	return r, nil
}

func (r *flatMapFieldReader) collectStreamIDs(out *[]uint32) {
	*out = append(*out, r.desc.Offset)
	for i := range r.keys {
		*out = append(*out, r.inMapD[i].Offset)
		r.values[i].collectStreamIDs(out)
	}
}

func (r *flatMapFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	r.nulls.reset(stripeIdx, loaders[r.desc.Offset])
	for i := range r.keys {
		r.inMap[i].reset(stripeIdx, loaders[r.inMapD[i].Offset])
		r.values[i].onStripe(stripeIdx, loaders)
	}
}

func (r *flatMapFieldReader) skip(n int) error {
	if err := r.nulls.skip(n); err != nil {
		return err
	}
	for i := range r.keys {
		inMapBits, err := decodeBoolStream(r.inMap[i], n, false)
		if err != nil {
			return err
		}
		if err := r.values[i].skip(bitops.PopcountRange(inMapBits, 0, n)); err != nil {
			return err
		}
	}
	return nil
}

func (r *flatMapFieldReader) next(n int) (*Vector, error) {
	presence, err := decodeBoolStream(r.nulls, n, true)
	if err != nil {
		return nil, err
	}
	outType := schema.FlatMap
	if r.asStruct {
		outType = schema.Row
	}
	out := &Vector{Type: outType, Length: n, FlatMapKeys: r.keys, Fields: r.keys, Children: make([]*Vector, len(r.keys))}
	if !allOnes(presence, n) {
		out.Nulls = presence
	}
	for i := range r.keys {
		inMapBits, err := decodeBoolStream(r.inMap[i], n, false)
		if err != nil {
			return nil, err
		}
		dense, err := r.values[i].next(bitops.PopcountRange(inMapBits, 0, n))
		if err != nil {
			return nil, err
		}
		out.Children[i] = expandToPresence(dense, inMapBits, n)
	}
	return out, nil
}
