// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package row implements the row-batch reader (C11): a Velox-style field
// reader tree over a tablet's logical schema, projecting, upcasting, and
// flat-map-filtering columns without ever decoding a stream that was not
// requested.
package row

import (
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/tablet"
)

// Options configures the column projection, upcast targets, and flat-map
// filtering a Reader applies while building its field reader tree.
type Options struct {
	columnOptions
}

// Option configures a Reader at Open time.
type Option func(*Options)

// WithColumns restricts the reader to the given top-level columns, in any
// order; a column never selected is skipped entirely — its FieldReader is
// never constructed and its streams are never requested from the tablet.
func WithColumns(names ...string) Option {
	return func(o *Options) {
		if o.selected == nil {
			o.selected = make(map[string]bool, len(names))
		}
		for _, n := range names {
			o.selected[n] = true
		}
	}
}

// WithUpcast requests that column's values be widened from their stored
// physical type to dtype (spec.md §4.11's permitted upcast lattice).
func WithUpcast(column string, dtype encoding.DataType) Option {
	return func(o *Options) {
		if o.requestDType == nil {
			o.requestDType = make(map[string]encoding.DataType)
		}
		o.requestDType[column] = dtype
	}
}

// WithFlatMapFeatureSelector restricts which keys of a FlatMap column are
// read; sel is consulted once per key when the reader is constructed, and
// a rejected key's in-map and value-subtree streams are never loaded.
func WithFlatMapFeatureSelector(column string, sel FeatureSelector) Option {
	return func(o *Options) {
		if o.selectors == nil {
			o.selectors = make(map[string]FeatureSelector)
		}
		o.selectors[column] = sel
	}
}

// WithFlatMapAsStruct presents a FlatMap column's selected keys as a Row
// Vector (one Child per key, in key registration order) rather than a FlatMap
// Vector.
func WithFlatMapAsStruct(column string) Option {
	return func(o *Options) {
		if o.asStruct == nil {
			o.asStruct = make(map[string]bool)
		}
		o.asStruct[column] = true
	}
}

// Reader materializes row batches from a tablet, stripe by stripe. It
// wraps a *tablet.Reader, never requesting a stream its projected field
// reader tree doesn't need.
type Reader struct {
	tablet *tablet.Reader
	root   FieldReader
	opts   Options

	streamIDs []uint32

	stripeIdx      int
	stripeRowCount uint32
	rowInStripe    uint32
}

// NewReader builds a Reader over tr's schema, constructing exactly the
// field readers the given options select.
func NewReader(tr *tablet.Reader, options ...Option) (*Reader, error) {
	var opts Options
	for _, o := range options {
		o(&opts)
	}
	root, err := newFieldReader(tr.Schema().Root(), &opts.columnOptions)
	if err != nil {
		return nil, err
	}
	var ids []uint32
	root.collectStreamIDs(&ids)
	return &Reader{
		tablet:    tr,
		root:      root,
		opts:      opts,
		streamIDs: ids,
		stripeIdx: -1,
	}, nil
}

// Schema returns the tablet's logical type tree.
func (r *Reader) Schema() *schema.Schema { return r.tablet.Schema() }

// Tablet returns the underlying tablet.Reader, for callers that need
// footer metadata or stripe geometry this package doesn't expose
// directly.
func (r *Reader) Tablet() *tablet.Reader { return r.tablet }

// Metadata returns the tablet's string metadata map.
func (r *Reader) Metadata() map[string]string { return r.tablet.Metadata() }

// StripeCount returns the number of stripes in the tablet.
func (r *Reader) StripeCount() int { return r.tablet.StripeCount() }

func (r *Reader) loadStripe(idx int) error {
	loaders, err := r.tablet.Load(idx, r.streamIDs)
	if err != nil {
		return err
	}
	m := make(map[uint32][]byte, len(loaders))
	for _, l := range loaders {
		m[l.StreamID] = l.Bytes
	}
	rc, err := r.tablet.StripeRowCount(idx)
	if err != nil {
		return err
	}
	r.root.onStripe(idx, m)
	r.stripeIdx = idx
	r.stripeRowCount = rc
	r.rowInStripe = 0
	return nil
}

func (r *Reader) advanceStripe() (bool, error) {
	next := r.stripeIdx + 1
	if next >= r.tablet.StripeCount() {
		return false, nil
	}
	return true, r.loadStripe(next)
}

// Next fills a Vector with up to n rows, stopping short at the current
// stripe's end (spec.md §4.11's next(n, &mut out) → bool never spans a
// stripe boundary in one call). ok is false once the tablet is exhausted.
func (r *Reader) Next(n int) (*Vector, bool, error) {
	if n <= 0 {
		return nil, false, nerrors.Newf(nerrors.InvalidArgument, "row: Next requires n > 0")
	}
	for {
		if r.stripeIdx < 0 || r.rowInStripe >= r.stripeRowCount {
			ok, err := r.advanceStripe()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			continue
		}
		avail := int(r.stripeRowCount - r.rowInStripe)
		take := n
		if take > avail {
			take = avail
		}
		vec, err := r.root.next(take)
		if err != nil {
			return nil, false, err
		}
		r.rowInStripe += uint32(take)
		return vec, true, nil
	}
}

// SkipRows advances up to n rows without materializing them, crossing
// stripe boundaries via chunk-header-only counting wherever the
// underlying streams support it. It returns the number of rows actually
// skipped, which is less than n only once the tablet is exhausted.
func (r *Reader) SkipRows(n int) (uint32, error) {
	var skipped uint32
	remaining := n
	for remaining > 0 {
		if r.stripeIdx < 0 || r.rowInStripe >= r.stripeRowCount {
			ok, err := r.advanceStripe()
			if err != nil {
				return skipped, err
			}
			if !ok {
				return skipped, nil
			}
			continue
		}
		avail := int(r.stripeRowCount - r.rowInStripe)
		take := remaining
		if take > avail {
			take = avail
		}
		if err := r.root.skip(take); err != nil {
			return skipped, err
		}
		r.rowInStripe += uint32(take)
		skipped += uint32(take)
		remaining -= take
	}
	return skipped, nil
}

// SeekToRow repositions the reader at the tablet's absolute row index
// target, resolving the owning stripe via the stripe row-count table and
// skipping (never materializing) the rows before it within that stripe.
// It returns the absolute row actually landed on, which is the tablet's
// total row count if target runs past the end.
func (r *Reader) SeekToRow(target int) (uint32, error) {
	if target < 0 {
		target = 0
	}
	var cum uint32
	for i := 0; i < r.tablet.StripeCount(); i++ {
		rc, err := r.tablet.StripeRowCount(i)
		if err != nil {
			return 0, err
		}
		if uint32(target) < cum+rc {
			if err := r.loadStripe(i); err != nil {
				return 0, err
			}
			offset := int(uint32(target) - cum)
			if offset > 0 {
				if err := r.root.skip(offset); err != nil {
					return 0, err
				}
			}
			r.rowInStripe = uint32(offset)
			return uint32(target), nil
		}
		cum += rc
	}
	if r.tablet.StripeCount() > 0 {
		if err := r.loadStripe(r.tablet.StripeCount() - 1); err != nil {
			return 0, err
		}
		r.rowInStripe = r.stripeRowCount
	}
	return cum, nil
}
