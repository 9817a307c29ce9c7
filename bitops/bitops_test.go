// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package bitops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	PutUint64(buf, 0x0102030405060708)
	got, err := GetUint64(buf)
	require.NoError(t, err)
	require.EqualValues(t, 0x0102030405060708, got)

	PutUint32(buf, 42)
	v32, err := GetUint32(buf)
	require.NoError(t, err)
	require.EqualValues(t, 42, v32)

	PutFloat64(buf, 3.14159)
	f, err := GetFloat64(buf)
	require.NoError(t, err)
	require.InDelta(t, 3.14159, f, 1e-12)
}

func TestGetShortBuffer(t *testing.T) {
	_, err := GetUint32([]byte{1, 2})
	require.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	n := PutString(buf, "hello world")
	require.Equal(t, StringSize("hello world"), n)
	s, consumed, err := GetString(buf)
	require.NoError(t, err)
	require.Equal(t, "hello world", s)
	require.Equal(t, n, consumed)
}

func TestZigZag(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)} {
		require.Equal(t, v, ZigZagDecode(ZigZagEncode(v)))
	}
}

func TestVarintRoundTrip(t *testing.T) {
	buf := make([]byte, MaxVarintLen64)
	for _, v := range []uint64{0, 1, 127, 128, 1 << 20, 1 << 63} {
		n := PutVarint(buf, v)
		got, m := GetVarint(buf)
		require.Equal(t, n, m)
		require.Equal(t, v, got)
	}
}

func TestFixedBitArrayRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 15, 7, 0, 9}
	width := BitWidthFor(15)
	arr := NewFixedBitArray(values, width)
	require.Equal(t, len(values), arr.Len())
	for i, v := range values {
		require.Equal(t, v, arr.At(i), "index %d", i)
	}
}

func TestBitWidthFor(t *testing.T) {
	cases := map[uint64]uint{0: 0, 1: 1, 2: 2, 3: 2, 4: 3, 255: 8, 256: 9}
	for max, want := range cases {
		require.Equal(t, want, BitWidthFor(max), "max=%d", max)
	}
}

func TestBitmap(t *testing.T) {
	var bm Bitmap
	pattern := []bool{true, false, false, true, true, true, false, true, true, false, false}
	for _, v := range pattern {
		bm.Append(v)
	}
	require.Equal(t, len(pattern), bm.Len())
	count := 0
	for i, v := range pattern {
		require.Equal(t, v, bm.Get(i), "bit %d", i)
		if v {
			count++
		}
	}
	require.Equal(t, count, bm.Popcount())
}

func TestPopcountRange(t *testing.T) {
	buf := []byte{0b10110110, 0b00001111}
	require.Equal(t, bitsSet(buf, 0, 16), PopcountRange(buf, 0, 16))
	require.Equal(t, bitsSet(buf, 2, 10), PopcountRange(buf, 2, 10))
}

func bitsSet(buf []byte, lo, hi int) int {
	n := 0
	for i := lo; i < hi; i++ {
		if GetBit(buf, i) {
			n++
		}
	}
	return n
}
