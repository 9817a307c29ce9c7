// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package schema

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// Marshal serializes s to the binary section the tablet footer embeds
// (spec.md §3: "Footer ... contains schema"). The format is a direct,
// recursive encoding of the Type tree with each node's already-assigned
// descriptor offsets inlined — Unmarshal rebuilds the tree and its offset
// table directly from those bytes rather than replaying Bind/RegisterKey,
// so the stable offset→stream-slot mapping spec.md §4.6 promises survives
// a write/read round trip exactly.
func (s *Schema) Marshal() []byte {
	buf := appendU32(nil, uint32(len(s.streams)))
	return appendType(buf, s.root)
}

func appendType(buf []byte, t *Type) []byte {
	buf = append(buf, byte(t.Kind))
	switch t.Kind {
	case Scalar:
		buf = append(buf, byte(t.ScalarType))
		buf = appendU32(buf, t.Values.Offset)
	case Row:
		buf = appendU32(buf, t.Nulls.Offset)
		buf = appendU32(buf, uint32(len(t.Fields)))
		for _, f := range t.Fields {
			buf = appendName(buf, f.Name)
			buf = appendType(buf, f.Type)
		}
	case Array:
		buf = appendU32(buf, t.Lengths.Offset)
		buf = appendType(buf, t.Element)
	case Map:
		buf = appendU32(buf, t.Lengths.Offset)
		buf = appendType(buf, t.MapKey)
		buf = appendType(buf, t.MapValue)
	case FlatMap:
		buf = appendU32(buf, t.Nulls.Offset)
		buf = appendTemplate(buf, t.ValueTemplate)
		buf = appendU32(buf, uint32(len(t.FlatFields)))
		for _, f := range t.FlatFields {
			buf = appendName(buf, f.Name)
			buf = appendU32(buf, f.InMap.Offset)
			buf = appendType(buf, f.Value)
		}
	case ArrayWithOffsets, SlidingWindowMap:
		buf = appendU32(buf, t.Offsets.Offset)
		buf = appendU32(buf, t.Lengths.Offset)
		buf = appendType(buf, t.Element)
	}
	return buf
}

// appendTemplate serializes a FlatMap's ValueTemplate, which unlike every
// other Type node is never bound to a schema (assign's FlatMap case never
// recurses into it — only clones made by RegisterKey are assigned). So it
// carries no descriptor offsets, and the wire shape omits them entirely.
func appendTemplate(buf []byte, t *Type) []byte {
	buf = append(buf, byte(t.Kind))
	switch t.Kind {
	case Scalar:
		buf = append(buf, byte(t.ScalarType))
	case Row:
		buf = appendU32(buf, uint32(len(t.Fields)))
		for _, f := range t.Fields {
			buf = appendName(buf, f.Name)
			buf = appendTemplate(buf, f.Type)
		}
	case Array, ArrayWithOffsets, SlidingWindowMap:
		buf = appendTemplate(buf, t.Element)
	case Map:
		buf = appendTemplate(buf, t.MapKey)
		buf = appendTemplate(buf, t.MapValue)
	case FlatMap:
		buf = appendTemplate(buf, t.ValueTemplate)
	}
	return buf
}

// parseTemplate is appendTemplate's inverse, producing an unbound Type tree
// identical in shape to the one NewScalar/NewRow/... construction would
// have produced — suitable for use as a freshly-decoded FlatMap's
// ValueTemplate (RegisterKey clones it and binds the clone, never the
// template itself).
func parseTemplate(r *byteReader) (*Type, error) {
	kindByte, err := r.u8()
	if err != nil {
		return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: template kind")
	}
	t := &Type{Kind: Kind(kindByte)}
	switch t.Kind {
	case Scalar:
		dtypeByte, err := r.u8()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: template scalar type")
		}
		t.ScalarType = encoding.DataType(dtypeByte)
	case Row:
		count, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: template field count")
		}
		for i := uint32(0); i < count; i++ {
			name, err := r.name()
			if err != nil {
				return nil, err
			}
			child, err := parseTemplate(r)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, Field{Name: name, Type: child})
		}
	case Array, ArrayWithOffsets, SlidingWindowMap:
		t.Element, err = parseTemplate(r)
		if err != nil {
			return nil, err
		}
	case Map:
		t.MapKey, err = parseTemplate(r)
		if err != nil {
			return nil, err
		}
		t.MapValue, err = parseTemplate(r)
		if err != nil {
			return nil, err
		}
	case FlatMap:
		t.ValueTemplate, err = parseTemplate(r)
		if err != nil {
			return nil, err
		}
		t.keyIndex = map[string]int{}
	default:
		return nil, nerrors.Newf(nerrors.CorruptFormat, "schema: unknown template kind %d", kindByte)
	}
	return t, nil
}

// Unmarshal parses a Schema from the format Marshal produces, returning
// the schema and the number of bytes consumed.
func Unmarshal(buf []byte) (*Schema, int, error) {
	r := &byteReader{buf: buf}
	streamCount, err := r.u32()
	if err != nil {
		return nil, 0, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: stream count")
	}
	root, err := parseType(r)
	if err != nil {
		return nil, 0, err
	}
	s := &Schema{root: root, streams: make([]*Descriptor, streamCount)}
	if err := bindExisting(s, root); err != nil {
		return nil, 0, err
	}
	return s, r.pos, nil
}

// bindExisting re-links an Unmarshal-produced Type tree to its owning
// Schema, populating Schema.streams from the descriptors already attached
// to each node (as opposed to assign, which allocates new ones).
func bindExisting(s *Schema, t *Type) error {
	t.schema = s
	put := func(d *Descriptor) error {
		if int(d.Offset) >= len(s.streams) {
			return nerrors.Newf(nerrors.CorruptFormat, "schema: descriptor offset %d out of range [0,%d)", d.Offset, len(s.streams))
		}
		s.streams[d.Offset] = d
		return nil
	}
	switch t.Kind {
	case Scalar:
		return put(t.Values)
	case Row:
		if err := put(t.Nulls); err != nil {
			return err
		}
		for _, f := range t.Fields {
			if err := bindExisting(s, f.Type); err != nil {
				return err
			}
		}
	case Array:
		if err := put(t.Lengths); err != nil {
			return err
		}
		return bindExisting(s, t.Element)
	case Map:
		if err := put(t.Lengths); err != nil {
			return err
		}
		if err := bindExisting(s, t.MapKey); err != nil {
			return err
		}
		return bindExisting(s, t.MapValue)
	case FlatMap:
		if err := put(t.Nulls); err != nil {
			return err
		}
		t.keyIndex = make(map[string]int, len(t.FlatFields))
		for i, f := range t.FlatFields {
			if err := put(f.InMap); err != nil {
				return err
			}
			t.keyIndex[f.Name] = i
			if err := bindExisting(s, f.Value); err != nil {
				return err
			}
		}
	case ArrayWithOffsets, SlidingWindowMap:
		if err := put(t.Offsets); err != nil {
			return err
		}
		if err := put(t.Lengths); err != nil {
			return err
		}
		return bindExisting(s, t.Element)
	}
	return nil
}

func parseType(r *byteReader) (*Type, error) {
	kindByte, err := r.u8()
	if err != nil {
		return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: type kind")
	}
	t := &Type{Kind: Kind(kindByte)}
	switch t.Kind {
	case Scalar:
		dtypeByte, err := r.u8()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: scalar type")
		}
		t.ScalarType = encoding.DataType(dtypeByte)
		offset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: scalar values offset")
		}
		t.Values = &Descriptor{Offset: offset, Role: RoleValues, ScalarKind: t.ScalarType}
	case Row:
		nullsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: row nulls offset")
		}
		t.Nulls = &Descriptor{Offset: nullsOffset, Role: RoleNulls, ScalarKind: encoding.Bool}
		count, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: row field count")
		}
		for i := uint32(0); i < count; i++ {
			name, err := r.name()
			if err != nil {
				return nil, err
			}
			child, err := parseType(r)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, Field{Name: name, Type: child})
		}
	case Array:
		lengthsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: array lengths offset")
		}
		t.Lengths = &Descriptor{Offset: lengthsOffset, Role: RoleLengths, ScalarKind: encoding.U32}
		t.Element, err = parseType(r)
		if err != nil {
			return nil, err
		}
	case Map:
		lengthsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: map lengths offset")
		}
		t.Lengths = &Descriptor{Offset: lengthsOffset, Role: RoleLengths, ScalarKind: encoding.U32}
		t.MapKey, err = parseType(r)
		if err != nil {
			return nil, err
		}
		t.MapValue, err = parseType(r)
		if err != nil {
			return nil, err
		}
	case FlatMap:
		nullsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: flat map nulls offset")
		}
		t.Nulls = &Descriptor{Offset: nullsOffset, Role: RoleNulls, ScalarKind: encoding.Bool}
		t.ValueTemplate, err = parseTemplate(r)
		if err != nil {
			return nil, err
		}
		count, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: flat map key count")
		}
		for i := uint32(0); i < count; i++ {
			name, err := r.name()
			if err != nil {
				return nil, err
			}
			inMapOffset, err := r.u32()
			if err != nil {
				return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: flat map in-map offset")
			}
			value, err := parseType(r)
			if err != nil {
				return nil, err
			}
			t.FlatFields = append(t.FlatFields, FlatField{
				Name:  name,
				InMap: &Descriptor{Offset: inMapOffset, Role: RoleInMap, ScalarKind: encoding.Bool},
				Value: value,
			})
		}
	case ArrayWithOffsets, SlidingWindowMap:
		offsetsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: offsets offset")
		}
		t.Offsets = &Descriptor{Offset: offsetsOffset, Role: RoleOffsets, ScalarKind: encoding.U32}
		lengthsOffset, err := r.u32()
		if err != nil {
			return nil, nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: offsets-array lengths offset")
		}
		t.Lengths = &Descriptor{Offset: lengthsOffset, Role: RoleLengths, ScalarKind: encoding.U32}
		t.Element, err = parseType(r)
		if err != nil {
			return nil, err
		}
	default:
		return nil, nerrors.Newf(nerrors.CorruptFormat, "schema: unknown type kind %d", kindByte)
	}
	return t, nil
}

// byteReader is a bounds-checked cursor over a schema wire section.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u8() (byte, error) {
	b, err := bitops.GetUint8(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

func (r *byteReader) u32() (uint32, error) {
	v, err := bitops.GetUint32(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

func (r *byteReader) name() (string, error) {
	n, err := bitops.GetUint16(r.buf[r.pos:])
	if err != nil {
		return "", nerrors.Wrapf(nerrors.CorruptFormat, err, "schema: name length")
	}
	r.pos += 2
	end := r.pos + int(n)
	if end > len(r.buf) {
		return "", nerrors.Newf(nerrors.CorruptFormat, "schema: name body truncated")
	}
	s := string(r.buf[r.pos:end])
	r.pos = end
	return s, nil
}

func appendName(buf []byte, name string) []byte {
	buf = appendU16(buf, uint16(len(name)))
	return append(buf, name...)
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	bitops.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	bitops.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}
