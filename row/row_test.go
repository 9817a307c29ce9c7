// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/layout"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/selection"
	"github.com/facebookexternal/nimble/stripe"
	"github.com/facebookexternal/nimble/tablet"
	"github.com/facebookexternal/nimble/vfs"
)

func buildTestSchema() *schema.Schema {
	root := schema.NewRow(
		schema.Field{Name: "id", Type: schema.NewScalar(encoding.I32)},
		schema.Field{Name: "name", Type: schema.NewScalar(encoding.String)},
		schema.Field{Name: "tags", Type: schema.NewArray(schema.NewScalar(encoding.I32))},
	)
	return schema.Bind(root)
}

func newTestStripeWriter(s *schema.Schema) *stripe.Writer {
	return stripe.NewWriter(s, compress.DefaultOptions(), selection.DefaultPolicy(),
		stripe.NewRawSizeFlushPolicy(1<<30), stripe.NewDefaultGrowthPolicy())
}

// buildTestTablet writes one stripe with ids/names/tags lengths+elements as
// given and returns an opened tablet.Reader over it.
func buildTestTablet(t *testing.T, s *schema.Schema, ids []int32, names []string, lengths []uint32, elems []int32) *tablet.Reader {
	idCol, _ := s.Column("id")
	nameCol, _ := s.Column("name")
	tagsCol, _ := s.Column("tags")

	sw := newTestStripeWriter(s)
	_, err := stripe.PushInteger(sw, idCol.Values.Offset, ids, nil)
	require.NoError(t, err)
	_, err = sw.PushString(nameCol.Values.Offset, names, nil)
	require.NoError(t, err)
	_, err = stripe.PushInteger(sw, tagsCol.Lengths.Offset, lengths, nil)
	require.NoError(t, err)
	_, err = stripe.PushInteger(sw, tagsCol.Element.Values.Offset, elems, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := tablet.NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())

	r, err := tablet.Open(sink.Source())
	require.NoError(t, err)
	return r
}

func TestReaderRoundTrip(t *testing.T) {
	s := buildTestSchema()
	ids := []int32{1, 2, 3, 4, 5}
	names := []string{"a", "b", "c", "d", "e"}
	lengths := []uint32{2, 1, 0, 3, 1}
	elems := []int32{10, 20, 30, 40, 50, 60, 70}
	tr := buildTestTablet(t, s, ids, names, lengths, elems)

	r, err := NewReader(tr)
	require.NoError(t, err)

	vec, ok, err := r.Next(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, vec.Length)
	require.Equal(t, []string{"id", "name", "tags"}, vec.Fields)
	require.Equal(t, ids, vec.Children[0].Values.([]int32))
	require.Equal(t, names, vec.Children[1].Values.([]string))
	require.Equal(t, lengths, vec.Children[2].Lengths)
	require.Equal(t, elems, vec.Children[2].Children[0].Values.([]int32))

	_, ok, err = r.Next(10)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReaderProjection(t *testing.T) {
	s := buildTestSchema()
	tr := buildTestTablet(t, s, []int32{1, 2}, []string{"a", "b"}, []uint32{0, 0}, nil)

	r, err := NewReader(tr, WithColumns("id"))
	require.NoError(t, err)

	vec, ok, err := r.Next(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"id"}, vec.Fields)
	require.Len(t, vec.Children, 1)
	require.Equal(t, []int32{1, 2}, vec.Children[0].Values.([]int32))
}

func TestReaderSkipRowsMatchesNext(t *testing.T) {
	s := buildTestSchema()
	ids := []int32{1, 2, 3, 4, 5}
	names := []string{"a", "b", "c", "d", "e"}
	lengths := []uint32{1, 1, 1, 1, 1}
	elems := []int32{10, 20, 30, 40, 50}
	tr := buildTestTablet(t, s, ids, names, lengths, elems)

	r, err := NewReader(tr)
	require.NoError(t, err)
	skipped, err := r.SkipRows(3)
	require.NoError(t, err)
	require.Equal(t, uint32(3), skipped)

	vec, ok, err := r.Next(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids[3:], vec.Children[0].Values.([]int32))
	require.Equal(t, names[3:], vec.Children[1].Values.([]string))
}

func TestReaderSeekToRow(t *testing.T) {
	s := buildTestSchema()
	ids := []int32{1, 2, 3, 4, 5}
	names := []string{"a", "b", "c", "d", "e"}
	lengths := []uint32{0, 0, 0, 0, 0}
	tr := buildTestTablet(t, s, ids, names, lengths, nil)

	r, err := NewReader(tr)
	require.NoError(t, err)
	landed, err := r.SeekToRow(2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), landed)

	vec, ok, err := r.Next(10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids[2:], vec.Children[0].Values.([]int32))
}

func TestReaderUpcast(t *testing.T) {
	root := schema.NewRow(schema.Field{Name: "small", Type: schema.NewScalar(encoding.I16)})
	s := schema.Bind(root)
	smallCol, _ := s.Column("small")

	sw := newTestStripeWriter(s)
	_, err := stripe.PushInteger(sw, smallCol.Values.Offset, []int16{1, 2, 3}, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := tablet.NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())
	tr, err := tablet.Open(sink.Source())
	require.NoError(t, err)

	r, err := NewReader(tr, WithUpcast("small", encoding.I64))
	require.NoError(t, err)
	vec, ok, err := r.Next(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int64{1, 2, 3}, vec.Children[0].Values.([]int64))
}
