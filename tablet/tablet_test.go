// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/layout"
	sch "github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/selection"
	"github.com/facebookexternal/nimble/stream"
	"github.com/facebookexternal/nimble/stripe"
	"github.com/facebookexternal/nimble/vfs"
)

func buildSchema() *sch.Schema {
	root := sch.NewRow(
		sch.Field{Name: "id", Type: sch.NewScalar(encoding.I32)},
		sch.Field{Name: "score", Type: sch.NewScalar(encoding.F64)},
	)
	return sch.Bind(root)
}

func newStripeWriter(s *sch.Schema) *stripe.Writer {
	return stripe.NewWriter(s, compress.DefaultOptions(), selection.DefaultPolicy(),
		stripe.NewRawSizeFlushPolicy(1<<30), stripe.NewDefaultGrowthPolicy())
}

func TestWriterReaderRoundTrip(t *testing.T) {
	s := buildSchema()
	idCol, _ := s.Column("id")
	scoreCol, _ := s.Column("score")

	sw := newStripeWriter(s)
	_, err := stripe.PushInteger(sw, idCol.Values.Offset, []int32{1, 2, 3}, nil)
	require.NoError(t, err)
	_, err = stripe.PushFloat(sw, scoreCol.Values.Offset, []float64{1.5, 2.5, 3.5}, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})
	w.SetMetadata("writer", "test")
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())

	r, err := Open(sink.Source())
	require.NoError(t, err)
	require.Equal(t, 1, r.StripeCount())
	rowCount, err := r.StripeRowCount(0)
	require.NoError(t, err)
	require.Equal(t, uint32(3), rowCount)
	require.Equal(t, map[string]string{"writer": "test"}, r.Metadata())

	gotIDCol, ok := r.Schema().Column("id")
	require.True(t, ok)
	require.Equal(t, idCol.Values.Offset, gotIDCol.Values.Offset)

	loaders, err := r.Load(0, []uint32{idCol.Values.Offset})
	require.NoError(t, err)
	require.Len(t, loaders, 1)
	require.NotEmpty(t, loaders[0].Bytes)

	sr := stream.NewReader(loaders[0].Bytes)
	enc, n, err := sr.NextChunk()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	dec := enc.(encoding.Decoder[int32])
	got := make([]int32, 3)
	require.NoError(t, dec.Materialize(3, got))
	require.Equal(t, []int32{1, 2, 3}, got)
}

func TestLoadReturnsEmptyForZeroLengthStream(t *testing.T) {
	s := buildSchema()
	idCol, _ := s.Column("id")

	sw := newStripeWriter(s)
	_, err := stripe.PushInteger(sw, idCol.Values.Offset, []int32{1}, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())

	r, err := Open(sink.Source())
	require.NoError(t, err)

	// root nulls stream (offset 0) was never written to; must load empty.
	loaders, err := r.Load(0, []uint32{0})
	require.NoError(t, err)
	require.Empty(t, loaders[0].Bytes)
}

func TestMultipleStripesAccumulateStripeTable(t *testing.T) {
	s := buildSchema()
	idCol, _ := s.Column("id")

	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})

	for _, batch := range [][]int32{{1, 2}, {3, 4, 5}} {
		sw := newStripeWriter(s)
		_, err := stripe.PushInteger(sw, idCol.Values.Offset, batch, nil)
		require.NoError(t, err)
		blob, err := sw.FlushStripe()
		require.NoError(t, err)
		require.NoError(t, w.WriteStripe(blob))
	}
	require.NoError(t, w.Close())

	r, err := Open(sink.Source())
	require.NoError(t, err)
	require.Equal(t, 2, r.StripeCount())
	rc0, _ := r.StripeRowCount(0)
	rc1, _ := r.StripeRowCount(1)
	require.Equal(t, uint32(2), rc0)
	require.Equal(t, uint32(3), rc1)

	off0, _ := r.StripeOffset(0)
	off1, _ := r.StripeOffset(1)
	require.Equal(t, uint64(0), off0)
	require.Greater(t, off1, off0)

	inRange := r.StripesInRange(0, int64(off1))
	require.Equal(t, []int{0}, inRange)
	all := r.StripesInRange(0, int64(off1)+1<<20)
	require.Equal(t, []int{0, 1}, all)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	s := buildSchema()
	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.Close())

	buf := append([]byte{}, sink.Bytes()...)
	buf[len(buf)-1] ^= 0xFF
	_, err := Open(vfs.NewMemSource(buf))
	require.Error(t, err)
}

func TestOpenRejectsChecksumMismatch(t *testing.T) {
	s := buildSchema()
	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.Close())

	buf := append([]byte{}, sink.Bytes()...)
	// Flip a byte inside the footer region (well before the trailer) to
	// break the checksum without touching magic.
	buf[0] ^= 0xFF
	_, err := Open(vfs.NewMemSource(buf))
	require.Error(t, err)
}

func TestLoadWithCoalescingMergesAdjacentRanges(t *testing.T) {
	s := buildSchema()
	idCol, _ := s.Column("id")
	scoreCol, _ := s.Column("score")

	sw := newStripeWriter(s)
	_, err := stripe.PushInteger(sw, idCol.Values.Offset, []int32{7, 8}, nil)
	require.NoError(t, err)
	_, err = stripe.PushFloat(sw, scoreCol.Values.Offset, []float64{1.0, 2.0}, nil)
	require.NoError(t, err)
	blob, err := sw.FlushStripe()
	require.NoError(t, err)

	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})
	require.NoError(t, w.WriteStripe(blob))
	require.NoError(t, w.Close())

	r, err := Open(sink.Source(), WithCoalescing(1<<20))
	require.NoError(t, err)

	loaders, err := r.Load(0, []uint32{idCol.Values.Offset, scoreCol.Values.Offset})
	require.NoError(t, err)
	require.Len(t, loaders, 2)
	require.NotEmpty(t, loaders[0].Bytes)
	require.NotEmpty(t, loaders[1].Bytes)
}

func TestFlatMapGrowthAcrossStripesRoundTrips(t *testing.T) {
	root := sch.NewRow(
		sch.Field{Name: "features", Type: sch.NewFlatMap(sch.NewScalar(encoding.F32))},
	)
	s := sch.Bind(root)
	fm, _ := s.Column("features")

	sink := vfs.NewMemSink()
	w := NewWriter(sink, s, layout.IdentityPlanner{})

	// Stripe 0: only key "a" exists.
	fieldA, _, err := fm.RegisterKey("a")
	require.NoError(t, err)
	sw0 := newStripeWriter(s)
	_, err = stripe.PushFloat(sw0, fieldA.Value.Values.Offset, []float32{1.0}, nil)
	require.NoError(t, err)
	blob0, err := sw0.FlushStripe()
	require.NoError(t, err)
	require.NoError(t, w.WriteStripe(blob0))

	// Stripe 1: key "b" is registered after stripe 0 was already written.
	fieldB, _, err := fm.RegisterKey("b")
	require.NoError(t, err)
	sw1 := newStripeWriter(s)
	_, err = stripe.PushFloat(sw1, fieldB.Value.Values.Offset, []float32{2.0}, nil)
	require.NoError(t, err)
	blob1, err := sw1.FlushStripe()
	require.NoError(t, err)
	require.NoError(t, w.WriteStripe(blob1))
	require.NoError(t, w.Close())

	r, err := Open(sink.Source())
	require.NoError(t, err)

	gotFM, ok := r.Schema().Column("features")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, gotFM.Keys())

	gotFieldB, ok := gotFM.Key("b")
	require.True(t, ok)
	// "b"'s stream did not exist when stripe 0 was written; it must load
	// empty there rather than error.
	loaders, err := r.Load(0, []uint32{gotFieldB.Value.Values.Offset})
	require.NoError(t, err)
	require.Empty(t, loaders[0].Bytes)

	loaders, err = r.Load(1, []uint32{gotFieldB.Value.Values.Offset})
	require.NoError(t, err)
	require.NotEmpty(t, loaders[0].Bytes)
}
