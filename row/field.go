// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"golang.org/x/sync/errgroup"

	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
)

// FieldReader decodes one schema node's worth of streams, stripe by
// stripe, into Vectors. Composite kinds (Row, Array, Map, FlatMap,
// ArrayWithOffsets, SlidingWindowMap) wrap child FieldReaders; only
// Scalar leaves ever touch an encoding.Decoder directly.
type FieldReader interface {
	next(n int) (*Vector, error)
	skip(n int) error
	onStripe(stripeIdx int, loaders map[uint32][]byte)
	collectStreamIDs(out *[]uint32)
}

// FeatureSelector decides, for a FlatMap column, which observed keys the
// reader materializes; keys it rejects are never decoded at all (their
// in-map and value-subtree streams are skipped, not merely hidden).
type FeatureSelector func(key string) bool

// columnOptions carries the per-top-level-column reader configuration
// (upcast target, flat-map feature selection, flat-map-as-struct) a
// FieldReader tree is built under. All maps are keyed by top-level
// column name; currentColumn tracks which one newFieldReader is
// currently descending into.
type columnOptions struct {
	selected      map[string]bool
	requestDType  map[string]encoding.DataType
	selectors     map[string]FeatureSelector
	asStruct      map[string]bool
	currentColumn string
}

func (o *columnOptions) columnSelected(name string) bool {
	if len(o.selected) == 0 {
		return true
	}
	return o.selected[name]
}

func (o *columnOptions) forColumn(name string) *columnOptions {
	c := *o
	c.currentColumn = name
	return &c
}

func newFieldReader(t *schema.Type, opts *columnOptions) (FieldReader, error) {
	switch t.Kind {
	case schema.Scalar:
		req := t.ScalarType
		if override, ok := opts.requestDType[opts.currentColumn]; ok {
			req = override
		}
		return newScalarFieldReader(t, req)
	case schema.Row:
		return newRowFieldReader(t, opts)
	case schema.Array:
		elem, err := newFieldReader(t.Element, opts)
		if err != nil {
			return nil, err
		}
		return &arrayFieldReader{desc: t.Lengths, lengths: newStreamCursor(t.Lengths.Offset, t.Lengths.ScalarKind), elem: elem}, nil
	case schema.Map:
		key, err := newFieldReader(t.MapKey, opts)
		if err != nil {
			return nil, err
		}
		val, err := newFieldReader(t.MapValue, opts)
		if err != nil {
			return nil, err
		}
		return &mapFieldReader{desc: t.Lengths, lengths: newStreamCursor(t.Lengths.Offset, t.Lengths.ScalarKind), key: key, val: val}, nil
	case schema.ArrayWithOffsets, schema.SlidingWindowMap:
		elem, err := newFieldReader(t.Element, opts)
		if err != nil {
			return nil, err
		}
		return &dictArrayFieldReader{
			kind:     t.Kind,
			offsets:  newStreamCursor(t.Offsets.Offset, t.Offsets.ScalarKind),
			lengths:  newStreamCursor(t.Lengths.Offset, t.Lengths.ScalarKind),
			offsetsD: t.Offsets,
			lengthsD: t.Lengths,
			elem:     elem,
		}, nil
	case schema.FlatMap:
		return newFlatMapFieldReader(t, opts)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "row reader: unsupported schema kind %s", t.Kind)
	}
}

// --- Row ---

type rowFieldReader struct {
	desc       *schema.Descriptor
	nulls      *streamCursor
	fieldNames []string
	children   []FieldReader
}

func newRowFieldReader(t *schema.Type, opts *columnOptions) (*rowFieldReader, error) {
	r := &rowFieldReader{
		desc:  t.Nulls,
		nulls: newStreamCursor(t.Nulls.Offset, t.Nulls.ScalarKind),
	}
	// Only the outermost Row (the tablet's root schema) partitions its
	// fields into top-level columns; a nested Row column inherits its
	// enclosing column's options unchanged.
	topLevel := opts.currentColumn == ""
	for _, f := range t.Fields {
		childOpts := opts
		if topLevel {
			if !opts.columnSelected(f.Name) {
				continue
			}
			childOpts = opts.forColumn(f.Name)
		}
		child, err := newFieldReader(f.Type, childOpts)
		if err != nil {
			return nil, err
		}
		r.fieldNames = append(r.fieldNames, f.Name)
		r.children = append(r.children, child)
	}
	return r, nil
}

func (r *rowFieldReader) collectStreamIDs(out *[]uint32) {
	*out = append(*out, r.desc.Offset)
	for _, c := range r.children {
		c.collectStreamIDs(out)
	}
}

func (r *rowFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	r.nulls.reset(stripeIdx, loaders[r.desc.Offset])
	for _, c := range r.children {
		c.onStripe(stripeIdx, loaders)
	}
}

func (r *rowFieldReader) skip(n int) error {
	if err := r.nulls.skip(n); err != nil {
		return err
	}
	for _, c := range r.children {
		if err := c.skip(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *rowFieldReader) next(n int) (*Vector, error) {
	presence, err := decodeBoolStream(r.nulls, n, true)
	if err != nil {
		return nil, err
	}
	out := &Vector{Type: schema.Row, Length: n, Fields: r.fieldNames, Children: make([]*Vector, len(r.children))}
	if !allOnes(presence, n) {
		out.Nulls = presence
	}
	// Each child owns an independent streamCursor, so decoding them
	// concurrently is safe; every goroutine writes only its own slot of
	// out.Children.
	var g errgroup.Group
	for i, c := range r.children {
		i, c := i, c
		g.Go(func() error {
			v, err := c.next(n)
			if err != nil {
				return err
			}
			out.Children[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Array ---

type arrayFieldReader struct {
	desc    *schema.Descriptor
	lengths *streamCursor
	elem    FieldReader
}

func (r *arrayFieldReader) collectStreamIDs(out *[]uint32) {
	*out = append(*out, r.desc.Offset)
	r.elem.collectStreamIDs(out)
}

func (r *arrayFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	r.lengths.reset(stripeIdx, loaders[r.desc.Offset])
	r.elem.onStripe(stripeIdx, loaders)
}

func (r *arrayFieldReader) skip(n int) error {
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return err
	}
	return r.elem.skip(int(sumU32(lengths)))
}

func (r *arrayFieldReader) next(n int) (*Vector, error) {
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return nil, err
	}
	elemVec, err := r.elem.next(int(sumU32(lengths)))
	if err != nil {
		return nil, err
	}
	return &Vector{Type: schema.Array, Length: n, Lengths: lengths, Children: []*Vector{elemVec}}, nil
}

// --- Map ---

type mapFieldReader struct {
	desc    *schema.Descriptor
	lengths *streamCursor
	key     FieldReader
	val     FieldReader
}

func (r *mapFieldReader) collectStreamIDs(out *[]uint32) {
	*out = append(*out, r.desc.Offset)
	r.key.collectStreamIDs(out)
	r.val.collectStreamIDs(out)
}

func (r *mapFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	r.lengths.reset(stripeIdx, loaders[r.desc.Offset])
	r.key.onStripe(stripeIdx, loaders)
	r.val.onStripe(stripeIdx, loaders)
}

func (r *mapFieldReader) skip(n int) error {
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return err
	}
	total := int(sumU32(lengths))
	if err := r.key.skip(total); err != nil {
		return err
	}
	return r.val.skip(total)
}

func (r *mapFieldReader) next(n int) (*Vector, error) {
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return nil, err
	}
	total := int(sumU32(lengths))
	keyVec, err := r.key.next(total)
	if err != nil {
		return nil, err
	}
	valVec, err := r.val.next(total)
	if err != nil {
		return nil, err
	}
	return &Vector{Type: schema.Map, Length: n, Lengths: lengths, Children: []*Vector{keyVec, valVec}}, nil
}

// --- ArrayWithOffsets / SlidingWindowMap ---
//
// Both reference a stripe-wide deduplicated element pool via (offset,
// length) pairs rather than storing sum(lengths) fresh elements; the pool
// is grown lazily, once, the first time a row's range reaches past what
// has already been materialized this stripe.
type dictArrayFieldReader struct {
	kind     schema.Kind
	offsets  *streamCursor
	lengths  *streamCursor
	offsetsD *schema.Descriptor
	lengthsD *schema.Descriptor
	elem     FieldReader

	pool    *Vector
	poolLen int
}

func (r *dictArrayFieldReader) collectStreamIDs(out *[]uint32) {
	*out = append(*out, r.offsetsD.Offset, r.lengthsD.Offset)
	r.elem.collectStreamIDs(out)
}

func (r *dictArrayFieldReader) onStripe(stripeIdx int, loaders map[uint32][]byte) {
	r.offsets.reset(stripeIdx, loaders[r.offsetsD.Offset])
	r.lengths.reset(stripeIdx, loaders[r.lengthsD.Offset])
	r.elem.onStripe(stripeIdx, loaders)
	r.pool = nil
	r.poolLen = 0
}

func (r *dictArrayFieldReader) ensurePool(need int) error {
	if need <= r.poolLen {
		return nil
	}
	extra, err := r.elem.next(need - r.poolLen)
	if err != nil {
		return err
	}
	r.pool = concatVector(r.pool, extra)
	r.poolLen = need
	return nil
}

func (r *dictArrayFieldReader) skip(n int) error {
	offsets, err := decodeU32Stream(r.offsets, n)
	if err != nil {
		return err
	}
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return err
	}
	return r.ensurePool(int(maxEnd(offsets, lengths)))
}

func (r *dictArrayFieldReader) next(n int) (*Vector, error) {
	offsets, err := decodeU32Stream(r.offsets, n)
	if err != nil {
		return nil, err
	}
	lengths, err := decodeU32Stream(r.lengths, n)
	if err != nil {
		return nil, err
	}
	if err := r.ensurePool(int(maxEnd(offsets, lengths))); err != nil {
		return nil, err
	}
	return &Vector{Type: r.kind, Length: n, Offsets: offsets, Lengths: lengths, Children: []*Vector{r.pool}}, nil
}

func sumU32(vs []uint32) uint32 {
	var s uint32
	for _, v := range vs {
		s += v
	}
	return s
}

func maxEnd(offsets, lengths []uint32) uint32 {
	var m uint32
	for i := range offsets {
		if end := offsets[i] + lengths[i]; end > m {
			m = end
		}
	}
	return m
}

// concatVector appends b's rows after a's, for the Scalar-typed element
// pools ArrayWithOffsets/SlidingWindowMap accumulate across calls within
// a stripe. Composite element types are not supported by this pool, since
// no writer path in this module produces dictionary-encoded composite
// elements.
func concatVector(a, b *Vector) *Vector {
	if a == nil {
		return b
	}
	if a.Type != schema.Scalar {
		return b
	}
	out := &Vector{Type: schema.Scalar, DType: a.DType, Length: a.Length + b.Length}
	out.Values = concatValues(a.DType, a.Values, b.Values)
	return out
}

func concatValues(dtype encoding.DataType, a, b any) any {
	switch dtype {
	case encoding.I8:
		return append(a.([]int8), b.([]int8)...)
	case encoding.U8:
		return append(a.([]uint8), b.([]uint8)...)
	case encoding.I16:
		return append(a.([]int16), b.([]int16)...)
	case encoding.U16:
		return append(a.([]uint16), b.([]uint16)...)
	case encoding.I32:
		return append(a.([]int32), b.([]int32)...)
	case encoding.U32:
		return append(a.([]uint32), b.([]uint32)...)
	case encoding.I64:
		return append(a.([]int64), b.([]int64)...)
	case encoding.U64:
		return append(a.([]uint64), b.([]uint64)...)
	case encoding.F32:
		return append(a.([]float32), b.([]float32)...)
	case encoding.F64:
		return append(a.([]float64), b.([]float64)...)
	case encoding.Bool:
		return append(a.([]bool), b.([]bool)...)
	default:
		return append(a.([]string), b.([]string)...)
	}
}
