// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package stripe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	sch "github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/selection"
	"github.com/facebookexternal/nimble/stream"
)

func rowSchema() *sch.Schema {
	root := sch.NewRow(
		sch.Field{Name: "id", Type: sch.NewScalar(encoding.I32)},
		sch.Field{Name: "score", Type: sch.NewScalar(encoding.F64)},
		sch.Field{Name: "active", Type: sch.NewScalar(encoding.Bool)},
		sch.Field{Name: "name", Type: sch.NewScalar(encoding.String)},
	)
	return sch.Bind(root)
}

func newTestWriter(s *sch.Schema, threshold uint64) *Writer {
	return NewWriter(s, compress.DefaultOptions(), selection.DefaultPolicy(),
		NewRawSizeFlushPolicy(threshold), NewDefaultGrowthPolicy())
}

func TestPushAndFlushStripeProducesOneBlobPerDescriptor(t *testing.T) {
	s := rowSchema()
	w := newTestWriter(s, 1<<30)

	idCol, _ := s.Column("id")
	scoreCol, _ := s.Column("score")
	activeCol, _ := s.Column("active")
	nameCol, _ := s.Column("name")

	_, err := PushInteger(w, idCol.Values.Offset, []int32{1, 2, 3}, nil)
	require.NoError(t, err)
	_, err = PushFloat(w, scoreCol.Values.Offset, []float64{1.5, 2.5, 3.5}, nil)
	require.NoError(t, err)
	_, err = w.PushBool(activeCol.Values.Offset, []bool{true, false, true}, nil)
	require.NoError(t, err)
	_, err = w.PushString(nameCol.Values.Offset, []string{"a", "b", "c"}, nil)
	require.NoError(t, err)

	blob, err := w.FlushStripe()
	require.NoError(t, err)
	require.Equal(t, uint32(3), blob.RowCount)
	require.Equal(t, s.StreamCount(), len(blob.Streams))

	// Row nulls stream was never pushed to (non-nullable schema): present,
	// zero-length.
	require.Empty(t, blob.Streams[0].Bytes)

	idStream := blob.Streams[idCol.Values.Offset].Bytes
	require.NotEmpty(t, idStream)
	r := stream.NewReader(idStream)
	enc, n, err := r.NextChunk()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	dec := enc.(encoding.Decoder[int32])
	got := make([]int32, 3)
	require.NoError(t, dec.Materialize(3, got))
	require.Equal(t, []int32{1, 2, 3}, got)
}

func TestFlushPolicyTriggersStripeFlush(t *testing.T) {
	s := rowSchema()
	w := newTestWriter(s, 8) // 2 int32 pushes of 4 bytes each trips it

	idCol, _ := s.Column("id")
	decision, err := PushInteger(w, idCol.Values.Offset, []int32{1}, nil)
	require.NoError(t, err)
	require.Equal(t, stream.FlushNone, decision)

	decision, err = PushInteger(w, idCol.Values.Offset, []int32{2}, nil)
	require.NoError(t, err)
	require.Equal(t, stream.FlushStripe, decision)
}

func TestPushWithNullsLeavesEarlierChunksNonNullable(t *testing.T) {
	s := rowSchema()
	w := newTestWriter(s, 1<<30)
	idCol, _ := s.Column("id")

	_, err := PushInteger(w, idCol.Values.Offset, []int32{1, 2}, nil)
	require.NoError(t, err)
	_, err = PushInteger(w, idCol.Values.Offset, []int32{3, 0}, []bool{true, false})
	require.NoError(t, err)

	blob, err := w.FlushStripe()
	require.NoError(t, err)
	idStream := blob.Streams[idCol.Values.Offset].Bytes
	r := stream.NewReader(idStream)
	enc, n, err := r.NextChunk()
	require.NoError(t, err)
	require.Equal(t, 2, n) // first chunk (flushed immediately, no nulls yet)
	require.Equal(t, encoding.KindVarint, enc.Kind())

	require.True(t, r.HasNext())
	enc2, n2, err := r.NextChunk()
	require.NoError(t, err)
	require.Equal(t, 2, n2)
	require.Equal(t, encoding.KindNullable, enc2.Kind())
}

func TestGrowthPolicyExtendedCapacity(t *testing.T) {
	p := NewDefaultGrowthPolicy()
	require.Equal(t, uint64(10), p.ExtendedCapacity(5, 10)) // already enough
	require.GreaterOrEqual(t, p.ExtendedCapacity(1000, 0), uint64(1000))
	require.Equal(t, p.minCapacity, p.ExtendedCapacity(1, 0))
}

func TestRowScopedPushMismatchErrors(t *testing.T) {
	s := rowSchema()
	w := newTestWriter(s, 1<<30)
	idCol, _ := s.Column("id")
	scoreCol, _ := s.Column("score")

	_, err := PushInteger(w, idCol.Values.Offset, []int32{1, 2, 3}, nil)
	require.NoError(t, err)
	_, err = PushFloat(w, scoreCol.Values.Offset, []float64{1.5, 2.5}, nil)
	require.Error(t, err)
}

func TestArrayElementPushDoesNotInflateRowCount(t *testing.T) {
	root := sch.NewRow(
		sch.Field{Name: "tags", Type: sch.NewArray(sch.NewScalar(encoding.I32))},
	)
	s := sch.Bind(root)
	w := newTestWriter(s, 1<<30)
	tagsCol, _ := s.Column("tags")

	_, err := PushInteger(w, tagsCol.Lengths.Offset, []uint32{2, 0, 3}, nil)
	require.NoError(t, err)
	_, err = PushInteger(w, tagsCol.Element.Values.Offset, []int32{10, 20, 30, 40, 50}, nil)
	require.NoError(t, err)

	blob, err := w.FlushStripe()
	require.NoError(t, err)
	require.Equal(t, uint32(3), blob.RowCount)
}

func TestFlushStripeResetsForNextStripe(t *testing.T) {
	s := rowSchema()
	w := newTestWriter(s, 1<<30)
	idCol, _ := s.Column("id")

	_, err := PushInteger(w, idCol.Values.Offset, []int32{1, 2, 3}, nil)
	require.NoError(t, err)
	first, err := w.FlushStripe()
	require.NoError(t, err)

	_, err = PushInteger(w, idCol.Values.Offset, []int32{4, 5}, nil)
	require.NoError(t, err)
	second, err := w.FlushStripe()
	require.NoError(t, err)

	require.Equal(t, uint32(3), first.RowCount)
	require.Equal(t, uint32(2), second.RowCount)
	require.NotEqual(t, first.Streams[idCol.Values.Offset].Bytes, second.Streams[idCol.Values.Offset].Bytes)
}
