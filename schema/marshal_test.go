// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/encoding"
)

func requireSameShape(t *testing.T, want, got *Type) {
	require.Equal(t, want.Kind, got.Kind)
	switch want.Kind {
	case Scalar:
		require.Equal(t, want.ScalarType, got.ScalarType)
		require.Equal(t, want.Values.Offset, got.Values.Offset)
	case Row:
		require.Equal(t, want.Nulls.Offset, got.Nulls.Offset)
		require.Len(t, got.Fields, len(want.Fields))
		for i := range want.Fields {
			require.Equal(t, want.Fields[i].Name, got.Fields[i].Name)
			requireSameShape(t, want.Fields[i].Type, got.Fields[i].Type)
		}
	case Array:
		require.Equal(t, want.Lengths.Offset, got.Lengths.Offset)
		requireSameShape(t, want.Element, got.Element)
	case Map:
		require.Equal(t, want.Lengths.Offset, got.Lengths.Offset)
		requireSameShape(t, want.MapKey, got.MapKey)
		requireSameShape(t, want.MapValue, got.MapValue)
	case FlatMap:
		require.Equal(t, want.Nulls.Offset, got.Nulls.Offset)
		require.Len(t, got.FlatFields, len(want.FlatFields))
		for i := range want.FlatFields {
			require.Equal(t, want.FlatFields[i].Name, got.FlatFields[i].Name)
			require.Equal(t, want.FlatFields[i].InMap.Offset, got.FlatFields[i].InMap.Offset)
			requireSameShape(t, want.FlatFields[i].Value, got.FlatFields[i].Value)
		}
	case ArrayWithOffsets, SlidingWindowMap:
		require.Equal(t, want.Offsets.Offset, got.Offsets.Offset)
		require.Equal(t, want.Lengths.Offset, got.Lengths.Offset)
		requireSameShape(t, want.Element, got.Element)
	}
}

func TestMarshalUnmarshalRoundTripsSimpleSchema(t *testing.T) {
	s := buildRowSchema()
	buf := s.Marshal()

	got, n, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, s.StreamCount(), got.StreamCount())
	requireSameShape(t, s.Root(), got.Root())

	point, ok := got.Column("point")
	require.True(t, ok)
	require.Equal(t, Row, point.Kind)
}

func TestMarshalUnmarshalRoundTripsFlatMapWithInterleavedGrowth(t *testing.T) {
	root := NewRow(
		Field{Name: "a", Type: NewFlatMap(NewScalar(encoding.F32))},
		Field{Name: "b", Type: NewFlatMap(NewRow(
			Field{Name: "x", Type: NewScalar(encoding.I32)},
			Field{Name: "y", Type: NewScalar(encoding.I32)},
		))},
	)
	s := Bind(root)
	a, _ := s.Column("a")
	b, _ := s.Column("b")

	// Interleave registration across the two flat maps so their allocated
	// offsets are interleaved too — this is exactly the case a naive
	// replay-the-allocator deserializer would get wrong.
	_, _, err := a.RegisterKey("a1")
	require.NoError(t, err)
	_, _, err = b.RegisterKey("b1")
	require.NoError(t, err)
	_, _, err = a.RegisterKey("a2")
	require.NoError(t, err)
	_, _, err = b.RegisterKey("b2")
	require.NoError(t, err)

	buf := s.Marshal()
	got, n, err := Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, s.StreamCount(), got.StreamCount())

	for offset := uint32(0); offset < uint32(s.StreamCount()); offset++ {
		want, err := s.Descriptor(offset)
		require.NoError(t, err)
		have, err := got.Descriptor(offset)
		require.NoError(t, err)
		require.Equal(t, want.Role, have.Role)
		require.Equal(t, want.ScalarKind, have.ScalarKind)
	}

	gotA, ok := got.Column("a")
	require.True(t, ok)
	require.Equal(t, []string{"a1", "a2"}, gotA.Keys())
	gotB, ok := got.Column("b")
	require.True(t, ok)
	require.Equal(t, []string{"b1", "b2"}, gotB.Keys())

	// RegisterKey on the decoded schema must still grow correctly from the
	// restored global counter rather than from a template-local count.
	before := got.StreamCount()
	f3, created, err := gotA.RegisterKey("a3")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint32(before), f3.InMap.Offset)
}

func TestMarshalUnmarshalRoundTripsArrayWithOffsets(t *testing.T) {
	root := NewArrayWithOffsets(NewScalar(encoding.String))
	s := Bind(root)
	buf := s.Marshal()
	got, _, err := Unmarshal(buf)
	require.NoError(t, err)
	requireSameShape(t, s.Root(), got.Root())
}

func TestUnmarshalRejectsTruncatedBuffer(t *testing.T) {
	s := buildRowSchema()
	buf := s.Marshal()
	_, _, err := Unmarshal(buf[:len(buf)-1])
	require.Error(t, err)
}
