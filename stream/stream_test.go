// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	"github.com/facebookexternal/nimble/selection"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(compress.DefaultOptions())
	batches := [][]int32{{1, 2, 3}, {4, 5}, {6, 7, 8, 9}}
	for _, b := range batches {
		payload := selection.SelectInteger(b, encoding.I32, selection.DefaultPolicy())
		require.NoError(t, w.AppendChunk(len(b), payload))
	}
	require.Equal(t, len(batches), w.ChunkCount())

	r := NewReader(w.Bytes())
	for _, want := range batches {
		require.True(t, r.HasNext())
		n, err := r.PeekItemCount()
		require.NoError(t, err)
		require.Equal(t, len(want), n)

		enc, itemCount, err := r.NextChunk()
		require.NoError(t, err)
		require.Equal(t, len(want), itemCount)
		dec := enc.(encoding.Decoder[int32])
		got := make([]int32, itemCount)
		require.NoError(t, dec.Materialize(itemCount, got))
		require.Equal(t, want, got)
	}
	require.False(t, r.HasNext())
}

func TestReaderSkipChunk(t *testing.T) {
	w := NewWriter(compress.DefaultOptions())
	require.NoError(t, w.AppendChunk(3, selection.SelectInteger([]int32{1, 2, 3}, encoding.I32, selection.DefaultPolicy())))
	require.NoError(t, w.AppendChunk(2, selection.SelectInteger([]int32{4, 5}, encoding.I32, selection.DefaultPolicy())))

	r := NewReader(w.Bytes())
	require.NoError(t, r.SkipChunk())
	_, itemCount, err := r.NextChunk()
	require.NoError(t, err)
	require.Equal(t, 2, itemCount)
}

func TestReaderCorruptChunk(t *testing.T) {
	w := NewWriter(compress.DefaultOptions())
	require.NoError(t, w.AppendChunk(3, selection.SelectInteger([]int32{1, 2, 3}, encoding.I32, selection.DefaultPolicy())))
	buf := w.Bytes()
	buf[len(buf)-1] ^= 0xFF

	r := NewReader(buf)
	_, _, err := r.NextChunk()
	require.Error(t, err)
}

func TestCompressionRoundTrip(t *testing.T) {
	opts := compress.DefaultOptions()
	opts.Codecs = []compress.Codec{compress.Zstd}
	opts.AcceptRatio = 1.0
	w := NewWriter(opts)
	values := make([]int32, 200)
	for i := range values {
		values[i] = 42
	}
	payload := selection.SelectInteger(values, encoding.I32, selection.DefaultPolicy())
	require.NoError(t, w.AppendChunk(len(values), payload))

	r := NewReader(w.Bytes())
	enc, _, err := r.NextChunk()
	require.NoError(t, err)
	dec := enc.(encoding.Decoder[int32])
	got := make([]int32, len(values))
	require.NoError(t, dec.Materialize(len(values), got))
	require.Equal(t, values, got)
}
