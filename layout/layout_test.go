// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/stripe"
)

func buildFlatMapSchema(t *testing.T) *schema.Schema {
	root := schema.NewRow(
		schema.Field{Name: "id", Type: schema.NewScalar(encoding.I32)},
		schema.Field{Name: "features", Type: schema.NewFlatMap(schema.NewScalar(encoding.F32))},
		schema.Field{Name: "tail", Type: schema.NewScalar(encoding.Bool)},
	)
	s := schema.Bind(root)
	fm, ok := s.Column("features")
	require.True(t, ok)
	for _, key := range []string{"a", "b", "c"} {
		_, _, err := fm.RegisterKey(key)
		require.NoError(t, err)
	}
	return s
}

func blobsFor(s *schema.Schema) []stripe.StreamBlob {
	descs := schema.Descriptors(s.Root())
	blobs := make([]stripe.StreamBlob, len(descs))
	for i, d := range descs {
		blobs[i] = stripe.StreamBlob{Offset: d.Offset, Bytes: []byte{byte(d.Offset)}}
	}
	return blobs
}

func TestIdentityPlannerPassesThrough(t *testing.T) {
	s := buildFlatMapSchema(t)
	in := blobsFor(s)
	out, err := IdentityPlanner{}.Layout(s, in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestFlatMapPlannerOrdersConfiguredKeysFirst(t *testing.T) {
	s := buildFlatMapSchema(t)
	in := blobsFor(s)

	planner := NewFlatMapPlanner([]FlatMapFeatureOrder{
		{Column: "features", Keys: []string{"c", "a"}},
	})
	out, err := planner.Layout(s, in)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	root := s.Root()
	fm, _ := s.Column("features")
	cField, _ := fm.Key("c")
	aField, _ := fm.Key("a")

	offsetIndex := make(map[uint32]int, len(out))
	for i, b := range out {
		offsetIndex[b.Offset] = i
	}

	require.Equal(t, 0, offsetIndex[root.Nulls.Offset], "root nulls must be first")
	require.Less(t, offsetIndex[fm.Nulls.Offset], offsetIndex[cField.InMap.Offset])
	require.Less(t, offsetIndex[cField.InMap.Offset], offsetIndex[cField.Value.Values.Offset])
	require.Less(t, offsetIndex[cField.Value.Values.Offset], offsetIndex[aField.InMap.Offset],
		"key c (configured first) must precede key a")
}

func TestFlatMapPlannerPreservesMultiset(t *testing.T) {
	s := buildFlatMapSchema(t)
	in := blobsFor(s)
	planner := NewFlatMapPlanner([]FlatMapFeatureOrder{
		{Column: "features", Keys: []string{"b"}},
	})
	out, err := planner.Layout(s, in)
	require.NoError(t, err)

	inSet := make(map[uint32]bool, len(in))
	for _, b := range in {
		inSet[b.Offset] = true
	}
	outSet := make(map[uint32]bool, len(out))
	for _, b := range out {
		require.False(t, outSet[b.Offset], "duplicate stream in layout output")
		outSet[b.Offset] = true
	}
	require.Equal(t, inSet, outSet)
}

func TestFlatMapPlannerSkipsUnknownKey(t *testing.T) {
	s := buildFlatMapSchema(t)
	in := blobsFor(s)
	planner := NewFlatMapPlanner([]FlatMapFeatureOrder{
		{Column: "features", Keys: []string{"nonexistent", "a"}},
	})
	out, err := planner.Layout(s, in)
	require.NoError(t, err)
	require.Len(t, out, len(in))
}

func TestFlatMapPlannerRejectsNonFlatMapColumn(t *testing.T) {
	s := buildFlatMapSchema(t)
	in := blobsFor(s)
	planner := NewFlatMapPlanner([]FlatMapFeatureOrder{{Column: "id", Keys: []string{"x"}}})
	_, err := planner.Layout(s, in)
	require.Error(t, err)
}
