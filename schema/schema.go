// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package schema implements the logical type tree (C6): the structural
// description that maps a tablet's nested logical types down to the flat
// set of physical streams, including the flat-map expansion where each
// observed key becomes its own in-map bitmap stream plus a value subtree.
// Stream descriptor offsets are assigned densely in a pre-order walk when a
// node first enters the tree; once assigned, an offset never changes for
// the lifetime of the tablet, even as later flat-map keys are appended.
package schema

import (
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// Kind identifies which shape of logical type a Type node describes.
type Kind uint8

const (
	Scalar Kind = iota
	Row
	Array
	Map
	FlatMap
	ArrayWithOffsets
	SlidingWindowMap
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Scalar:
		return "Scalar"
	case Row:
		return "Row"
	case Array:
		return "Array"
	case Map:
		return "Map"
	case FlatMap:
		return "FlatMap"
	case ArrayWithOffsets:
		return "ArrayWithOffsets"
	case SlidingWindowMap:
		return "SlidingWindowMap"
	default:
		return "Unknown"
	}
}

// Role identifies what a stream descriptor holds for its owning type node.
type Role uint8

const (
	RoleValues Role = iota
	RoleNulls
	RoleLengths
	RoleOffsets
	RoleInMap
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleValues:
		return "values"
	case RoleNulls:
		return "nulls"
	case RoleLengths:
		return "lengths"
	case RoleOffsets:
		return "offsets"
	case RoleInMap:
		return "in-map"
	default:
		return "unknown"
	}
}

// Descriptor is the schema-side identity of one physical stream: a dense,
// stable offset within the stripe's stream numbering, its role, and — for
// Scalar values streams — the physical element type.
type Descriptor struct {
	Offset     uint32
	Role       Role
	ScalarKind encoding.DataType
	// RowScoped reports whether this stream carries exactly one entry per
	// logical row of the tablet (e.g. a top-level column's values, or an
	// Array/Map's length, or a FlatMap key's in-map bit) rather than a
	// compacted or repeated cardinality introduced below an Array, Map,
	// FlatMap, ArrayWithOffsets, or SlidingWindowMap boundary (e.g. an
	// array's elements, or a flat-map value subtree). Only RowScoped
	// streams contribute to a stripe's row count.
	RowScoped bool
}

// Field is one named child of a Row node, in declaration order.
type Field struct {
	Name string
	Type *Type
}

// FlatField is one observed key of a FlatMap node: its in-map descriptor
// and the value subtree bound for it, both allocated the first time the
// key is seen by RegisterKey.
type FlatField struct {
	Name  string
	InMap *Descriptor
	Value *Type
}

// Type is a tagged logical-type node. Only the fields relevant to Kind are
// populated; this mirrors spec.md §3's "tagged node with kind and per-kind
// children" rather than a Kind-specific hierarchy of Go types, so the
// schema/flat-map walker (and the layout planner) can handle every kind
// through one recursive switch.
type Type struct {
	Kind Kind
	// schema is set by Bind/RegisterKey so a node can allocate further
	// descriptors (flat-map growth) without threading the Schema through
	// every call site.
	schema *Schema

	// Scalar
	ScalarType encoding.DataType
	Values     *Descriptor

	// Row
	Fields []Field
	Nulls  *Descriptor

	// Array / ArrayWithOffsets / SlidingWindowMap
	Lengths *Descriptor
	Offsets *Descriptor // ArrayWithOffsets / SlidingWindowMap only
	Element *Type

	// Map
	MapKey   *Type
	MapValue *Type

	// FlatMap
	ValueTemplate *Type
	FlatFields    []FlatField
	keyIndex      map[string]int
	// rowScoped is the row-scoped context assign() was called with for
	// this FlatMap node, remembered so a later RegisterKey allocates its
	// key's in-map descriptor with the same row-scopedness as Nulls.
	rowScoped bool
}

// NewScalar returns a Scalar node of the given physical type. Its stream
// descriptor is assigned when the owning schema is bound.
func NewScalar(dtype encoding.DataType) *Type { return &Type{Kind: Scalar, ScalarType: dtype} }

// NewRow returns a Row node with the given named children, in the order
// their descriptors will be assigned.
func NewRow(fields ...Field) *Type { return &Type{Kind: Row, Fields: fields} }

// NewArray returns an Array node over the given element type.
func NewArray(element *Type) *Type { return &Type{Kind: Array, Element: element} }

// NewMap returns a Map node over the given key and value types.
func NewMap(key, value *Type) *Type { return &Type{Kind: Map, MapKey: key, MapValue: value} }

// NewFlatMap returns a FlatMap node. valueTemplate is cloned for every new
// key RegisterKey observes; it is never bound itself.
func NewFlatMap(valueTemplate *Type) *Type {
	return &Type{Kind: FlatMap, ValueTemplate: valueTemplate, keyIndex: map[string]int{}}
}

// NewArrayWithOffsets returns a dictionary-encoded list node (offsets +
// lengths + a deduplicated elements subtree).
func NewArrayWithOffsets(element *Type) *Type {
	return &Type{Kind: ArrayWithOffsets, Element: element}
}

// NewSlidingWindowMap returns a SlidingWindowMap node. spec.md §9(b) notes
// the format this is distilled from never exercises it; structurally it is
// identical to ArrayWithOffsets until a corpus motivates divergence.
func NewSlidingWindowMap(element *Type) *Type {
	return &Type{Kind: SlidingWindowMap, Element: element}
}

// Clone deep-copies t's structure without any assigned descriptors, the
// way a FlatMap's ValueTemplate is stamped out fresh for every newly
// observed key.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := &Type{Kind: t.Kind, ScalarType: t.ScalarType}
	switch t.Kind {
	case Row:
		c.Fields = make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			c.Fields[i] = Field{Name: f.Name, Type: f.Type.Clone()}
		}
	case Array, ArrayWithOffsets, SlidingWindowMap:
		c.Element = t.Element.Clone()
	case Map:
		c.MapKey = t.MapKey.Clone()
		c.MapValue = t.MapValue.Clone()
	case FlatMap:
		c.ValueTemplate = t.ValueTemplate.Clone()
		c.keyIndex = map[string]int{}
	}
	return c
}

// Schema binds a logical type tree to a dense stream numbering. Offsets
// are stable once assigned; flat-map growth only ever appends new offsets
// at the end (Schema.streams), never renumbers existing ones.
type Schema struct {
	root    *Type
	streams []*Descriptor
}

// Bind assigns stream descriptors to every node of root in pre-order
// (spec.md §4.6) and returns the bound Schema. root must not already be
// bound.
func Bind(root *Type) *Schema {
	s := &Schema{}
	s.assign(root, true)
	s.root = root
	return s
}

// Root returns the schema's root type node.
func (s *Schema) Root() *Type { return s.root }

// StreamCount returns the total number of stream slots assigned so far,
// including any appended by flat-map growth after the initial Bind.
func (s *Schema) StreamCount() int { return len(s.streams) }

// Descriptor returns the descriptor assigned to the given global offset.
func (s *Schema) Descriptor(offset uint32) (*Descriptor, error) {
	if int(offset) >= len(s.streams) {
		return nil, nerrors.Newf(nerrors.OutOfRange, "stream offset %d out of range [0, %d)", offset, len(s.streams))
	}
	return s.streams[offset], nil
}

func (s *Schema) alloc(role Role, dtype encoding.DataType, rowScoped bool) *Descriptor {
	d := &Descriptor{Offset: uint32(len(s.streams)), Role: role, ScalarKind: dtype, RowScoped: rowScoped}
	s.streams = append(s.streams, d)
	return d
}

// assign walks t in pre-order, allocating descriptors per spec.md §4.6's
// per-kind rules, and records s on t (and every descendant) so later
// flat-map growth can keep allocating from the same counter. rowScoped
// propagates unchanged through a Row's fields, since a Row never changes
// cardinality, but is pinned false below an Array/Map/FlatMap/
// ArrayWithOffsets/SlidingWindowMap boundary's contents — only that node's
// own Lengths/Offsets/Nulls/in-map descriptor carries the incoming
// rowScoped value, since spec.md's row count counts logical rows, not the
// compacted or repeated entries nested collections hold below it.
func (s *Schema) assign(t *Type, rowScoped bool) {
	t.schema = s
	switch t.Kind {
	case Row:
		t.Nulls = s.alloc(RoleNulls, encoding.Bool, rowScoped)
		for _, f := range t.Fields {
			s.assign(f.Type, rowScoped)
		}
	case Array:
		t.Lengths = s.alloc(RoleLengths, encoding.U32, rowScoped)
		s.assign(t.Element, false)
	case Map:
		t.Lengths = s.alloc(RoleLengths, encoding.U32, rowScoped)
		s.assign(t.MapKey, false)
		s.assign(t.MapValue, false)
	case Scalar:
		t.Values = s.alloc(RoleValues, t.ScalarType, rowScoped)
	case FlatMap:
		t.Nulls = s.alloc(RoleNulls, encoding.Bool, rowScoped)
		t.rowScoped = rowScoped
		if t.keyIndex == nil {
			t.keyIndex = map[string]int{}
		}
	case ArrayWithOffsets, SlidingWindowMap:
		t.Offsets = s.alloc(RoleOffsets, encoding.U32, rowScoped)
		t.Lengths = s.alloc(RoleLengths, encoding.U32, rowScoped)
		s.assign(t.Element, false)
	}
}

// RegisterKey returns the FlatField for key, allocating a fresh in-map
// descriptor and a cloned, bound copy of t.ValueTemplate the first time
// key is observed. It reports created=false (and the existing field) if
// the key was already registered. t must be a FlatMap node belonging to a
// bound schema.
func (t *Type) RegisterKey(key string) (field *FlatField, created bool, err error) {
	if t.Kind != FlatMap {
		return nil, false, nerrors.Newf(nerrors.InvalidArgument, "RegisterKey called on a %s node, not FlatMap", t.Kind)
	}
	if t.schema == nil {
		return nil, false, nerrors.Newf(nerrors.Internal, "RegisterKey called before the owning schema was bound")
	}
	if idx, ok := t.keyIndex[key]; ok {
		return &t.FlatFields[idx], false, nil
	}
	inMap := t.schema.alloc(RoleInMap, encoding.Bool, t.rowScoped)
	value := t.ValueTemplate.Clone()
	t.schema.assign(value, false)
	t.FlatFields = append(t.FlatFields, FlatField{Name: key, InMap: inMap, Value: value})
	t.keyIndex[key] = len(t.FlatFields) - 1
	return &t.FlatFields[len(t.FlatFields)-1], true, nil
}

// Key looks up an already-registered flat-map key.
func (t *Type) Key(key string) (*FlatField, bool) {
	idx, ok := t.keyIndex[key]
	if !ok {
		return nil, false
	}
	return &t.FlatFields[idx], true
}

// Keys returns the flat-map's registered keys in registration order —
// the order new keys are appended in, which is also the order their
// streams occupy in the dense offset numbering.
func (t *Type) Keys() []string {
	keys := make([]string, len(t.FlatFields))
	for i, f := range t.FlatFields {
		keys[i] = f.Name
	}
	return keys
}

// Column looks up a top-level field of the schema's root Row by name, the
// granularity writer/reader options name columns at (flat_map_columns,
// dictionary_array_columns, flat_map_feature_selector).
func (s *Schema) Column(name string) (*Type, bool) {
	if s.root == nil || s.root.Kind != Row {
		return nil, false
	}
	for _, f := range s.root.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Walk visits every descriptor reachable from t, in the same pre-order
// spec.md §4.6 defines for initial assignment — including, for FlatMap
// nodes, every currently-registered key's in-map descriptor followed by
// its value subtree, in registration order. Already-registered offsets
// are never revisited twice by a single Walk call.
func Walk(t *Type, visit func(*Descriptor)) {
	if t == nil {
		return
	}
	switch t.Kind {
	case Row:
		visit(t.Nulls)
		for _, f := range t.Fields {
			Walk(f.Type, visit)
		}
	case Array:
		visit(t.Lengths)
		Walk(t.Element, visit)
	case Map:
		visit(t.Lengths)
		Walk(t.MapKey, visit)
		Walk(t.MapValue, visit)
	case Scalar:
		visit(t.Values)
	case FlatMap:
		visit(t.Nulls)
		for _, f := range t.FlatFields {
			visit(f.InMap)
			Walk(f.Value, visit)
		}
	case ArrayWithOffsets, SlidingWindowMap:
		visit(t.Offsets)
		visit(t.Lengths)
		Walk(t.Element, visit)
	}
}

// Descriptors returns Walk's visitation order as a slice.
func Descriptors(t *Type) []*Descriptor {
	var out []*Descriptor
	Walk(t, func(d *Descriptor) { out = append(out, d) })
	return out
}
