// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/internal/testutils"
	"github.com/facebookexternal/nimble/layout"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/stripe"
	"github.com/facebookexternal/nimble/tablet"
	"github.com/facebookexternal/nimble/vfs"
)

// TestReaderRandomNullableScalar generates a nullable i32 column from a
// seeded RNG and checks every non-null row round-trips through the row
// reader; a failure here reproduces deterministically from the seed alone.
func TestReaderRandomNullableScalar(t *testing.T) {
	const seed = 20240601
	rng := testutils.NewRand(seed)
	const n = 200

	root := schema.NewRow(schema.Field{Name: "x", Type: schema.NewScalar(encoding.I32)})
	s := schema.Bind(root)
	xCol, _ := s.Column("x")

	vals := testutils.RandInts[int32](rng, n, -1000, 1000)
	valid := testutils.RandValidity(rng, n, 0.3)

	sw := newTestStripeWriter(s)
	_, err := stripe.PushInteger(sw, xCol.Values.Offset, vals, valid)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := tablet.NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())
	tr, err := tablet.Open(sink.Source())
	require.NoError(t, err)

	r, err := NewReader(tr)
	require.NoError(t, err)
	vec, ok, err := r.Next(n)
	require.NoError(t, err)
	require.True(t, ok)

	got := vec.Children[0]
	require.Equal(t, n, got.Length)
	for i := 0; i < n; i++ {
		wantNull := valid != nil && !valid[i]
		require.Equal(t, wantNull, got.IsNull(i), "row %d", i)
		if !wantNull {
			require.Equal(t, vals[i], got.Values.([]int32)[i], "row %d", i)
		}
	}
}

// TestReaderRandomArray exercises the Array field reader (lengths plus a
// concatenated element stream) against a seeded random shape.
func TestReaderRandomArray(t *testing.T) {
	const seed = 20240602
	rng := testutils.NewRand(seed)
	const n = 80

	root := schema.NewRow(schema.Field{Name: "tags", Type: schema.NewArray(schema.NewScalar(encoding.I32))})
	s := schema.Bind(root)
	tagsCol, _ := s.Column("tags")

	lengths, total := testutils.RandLengths(rng, n, 0, 5)
	elems := testutils.RandInts[int32](rng, total, 0, 1000)

	sw := newTestStripeWriter(s)
	_, err := stripe.PushInteger(sw, tagsCol.Lengths.Offset, lengths, nil)
	require.NoError(t, err)
	_, err = stripe.PushInteger(sw, tagsCol.Element.Values.Offset, elems, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := tablet.NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())
	tr, err := tablet.Open(sink.Source())
	require.NoError(t, err)

	r, err := NewReader(tr)
	require.NoError(t, err)
	vec, ok, err := r.Next(n)
	require.NoError(t, err)
	require.True(t, ok)

	got := vec.Children[0]
	require.Equal(t, lengths, got.Lengths)
	require.Equal(t, elems, got.Children[0].Values.([]int32))
}

// TestReaderRandomFlatMap exercises flat-map key compaction/expansion: each
// key's value subtree is written only for the rows where that key's in-map
// bit is set, and the row reader must scatter it back to the full row
// count.
func TestReaderRandomFlatMap(t *testing.T) {
	const seed = 20240603
	rng := testutils.NewRand(seed)
	const n = 60

	root := schema.NewRow(schema.Field{Name: "attrs", Type: schema.NewFlatMap(schema.NewScalar(encoding.I32))})
	s := schema.Bind(root)
	attrsCol, _ := s.Column("attrs")

	keys := testutils.RandKeys(rng, 3)
	sw := newTestStripeWriter(s)

	inMaps := make(map[string][]bool)
	wantVals := make(map[string][]int32) // dense, per-key, full n length (only meaningful where inMap[i])
	for _, k := range keys {
		field, _, err := attrsCol.RegisterKey(k)
		require.NoError(t, err)

		inMap := testutils.RandBools(rng, n, 0.5)
		full := testutils.RandInts[int32](rng, n, 0, 1000)
		inMaps[k] = inMap
		wantVals[k] = full

		var compact []int32
		for i, present := range inMap {
			if present {
				compact = append(compact, full[i])
			}
		}
		_, err = sw.PushBool(field.InMap.Offset, inMap, nil)
		require.NoError(t, err)
		if len(compact) > 0 {
			_, err = stripe.PushInteger(sw, field.Value.Values.Offset, compact, nil)
			require.NoError(t, err)
		}
	}
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := tablet.NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())
	tr, err := tablet.Open(sink.Source())
	require.NoError(t, err)

	r, err := NewReader(tr)
	require.NoError(t, err)
	vec, ok, err := r.Next(n)
	require.NoError(t, err)
	require.True(t, ok)

	got := vec.Children[0]
	require.Equal(t, keys, got.FlatMapKeys)
	for ki, k := range keys {
		child := got.Children[ki]
		for i := 0; i < n; i++ {
			require.Equal(t, !inMaps[k][i], child.IsNull(i), "key %s row %d", k, i)
			if inMaps[k][i] {
				require.Equal(t, wantVals[k][i], child.Values.([]int32)[i], "key %s row %d", k, i)
			}
		}
	}
}
