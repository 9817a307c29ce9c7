// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/encoding"
)

func buildRowSchema() *Schema {
	root := NewRow(
		Field{Name: "id", Type: NewScalar(encoding.I64)},
		Field{Name: "tags", Type: NewArray(NewScalar(encoding.String))},
		Field{Name: "point", Type: NewRow(
			Field{Name: "x", Type: NewScalar(encoding.F64)},
			Field{Name: "y", Type: NewScalar(encoding.F64)},
		)},
	)
	return Bind(root)
}

func TestBindAssignsDenseOffsets(t *testing.T) {
	s := buildRowSchema()
	descs := Descriptors(s.Root())
	require.Equal(t, s.StreamCount(), len(descs))
	for i, d := range descs {
		require.Equal(t, uint32(i), d.Offset)
	}
}

func TestBindPreOrder(t *testing.T) {
	s := buildRowSchema()
	descs := Descriptors(s.Root())
	// root nulls, id values, tags lengths, tags.element values,
	// point nulls, point.x values, point.y values
	require.Len(t, descs, 7)
	require.Equal(t, RoleNulls, descs[0].Role)
	require.Equal(t, encoding.I64, descs[1].ScalarKind)
	require.Equal(t, RoleLengths, descs[2].Role)
	require.Equal(t, encoding.String, descs[3].ScalarKind)
	require.Equal(t, RoleNulls, descs[4].Role)
	require.Equal(t, encoding.F64, descs[5].ScalarKind)
	require.Equal(t, encoding.F64, descs[6].ScalarKind)
}

func TestColumnLookup(t *testing.T) {
	s := buildRowSchema()
	typ, ok := s.Column("point")
	require.True(t, ok)
	require.Equal(t, Row, typ.Kind)
	_, ok = s.Column("missing")
	require.False(t, ok)
}

func TestFlatMapRegisterKeyAppendsAtEnd(t *testing.T) {
	root := NewRow(
		Field{Name: "id", Type: NewScalar(encoding.I32)},
		Field{Name: "features", Type: NewFlatMap(NewScalar(encoding.F32))},
	)
	s := Bind(root)
	before := s.StreamCount()

	fm, _ := s.Column("features")
	require.Equal(t, FlatMap, fm.Kind)

	f1, created, err := fm.RegisterKey("click_rate")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint32(before), f1.InMap.Offset)
	require.Equal(t, Scalar, f1.Value.Kind)
	require.Equal(t, encoding.F32, f1.Value.Values.ScalarKind)

	afterOne := s.StreamCount()
	require.Equal(t, before+2, afterOne) // in-map + the scalar's own values stream

	f2, created, err := fm.RegisterKey("conversion_rate")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint32(afterOne), f2.InMap.Offset)

	// Re-registering an existing key is idempotent and allocates nothing.
	again, created, err := fm.RegisterKey("click_rate")
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, f1, again)
	require.Equal(t, afterOne+2, s.StreamCount())

	require.Equal(t, []string{"click_rate", "conversion_rate"}, fm.Keys())
}

func TestFlatMapEarlierOffsetsStableAcrossGrowth(t *testing.T) {
	root := NewRow(
		Field{Name: "features", Type: NewFlatMap(NewScalar(encoding.I32))},
		Field{Name: "tail", Type: NewScalar(encoding.Bool)},
	)
	s := Bind(root)
	tail, _ := s.Column("tail")
	tailOffset := tail.Values.Offset

	fm, _ := s.Column("features")
	_, _, err := fm.RegisterKey("x")
	require.NoError(t, err)

	require.Equal(t, tailOffset, tail.Values.Offset, "tail's offset must not move when a flat map grows")
}

func TestRegisterKeyRejectsNonFlatMap(t *testing.T) {
	s := buildRowSchema()
	id, _ := s.Column("id")
	_, _, err := id.RegisterKey("x")
	require.Error(t, err)
}

func TestDescriptorOutOfRange(t *testing.T) {
	s := buildRowSchema()
	_, err := s.Descriptor(uint32(s.StreamCount()))
	require.Error(t, err)
}

func TestArrayWithOffsetsAssignsOffsetsAndLengths(t *testing.T) {
	root := NewArrayWithOffsets(NewScalar(encoding.I32))
	s := Bind(root)
	descs := Descriptors(s.Root())
	require.Len(t, descs, 3)
	require.Equal(t, RoleOffsets, descs[0].Role)
	require.Equal(t, RoleLengths, descs[1].Role)
	require.Equal(t, RoleValues, descs[2].Role)
}

func TestMapAssignsKeyAndValueSubtrees(t *testing.T) {
	root := NewMap(NewScalar(encoding.String), NewScalar(encoding.F64))
	s := Bind(root)
	descs := Descriptors(s.Root())
	require.Len(t, descs, 3)
	require.Equal(t, RoleLengths, descs[0].Role)
	require.Equal(t, encoding.String, descs[1].ScalarKind)
	require.Equal(t, encoding.F64, descs[2].ScalarKind)
}
