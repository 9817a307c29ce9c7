// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookexternal/nimble/encoding"
)

func decodeInts(t *testing.T, payload []byte, n int) []int32 {
	enc, err := encoding.Decode(payload)
	require.NoError(t, err)
	dec, ok := enc.(encoding.Decoder[int32])
	require.True(t, ok, "expected Decoder[int32], got %T", enc)
	out := make([]int32, n)
	require.NoError(t, dec.Materialize(n, out))
	return out
}

func TestSelectIntegerRoundTrip(t *testing.T) {
	p := DefaultPolicy()
	cases := [][]int32{
		{1, 2, 3, 4, 5, 6},
		{7, 7, 7, 7, 7, 7, 7, 7, 7, 7},
		{1, 1, 1, 2, 2, 2, 3, 3, 3},
		{100, 200, 100, 200, 100, 300},
		{},
		{42},
	}
	for _, values := range cases {
		payload := SelectInteger(values, encoding.I32, p)
		got := decodeInts(t, payload, len(values))
		require.Equal(t, values, got)
	}
}

func TestSelectIntegerConstantIsSmall(t *testing.T) {
	values := make([]int32, 10)
	for i := range values {
		values[i] = 7
	}
	payload := SelectInteger(values, encoding.I32, DefaultPolicy())
	require.Less(t, len(payload), 10*4, "constant-valued batch should compress well below raw width")
	enc, err := encoding.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, encoding.KindConstant, enc.Kind())
}

func TestSelectNullableInteger(t *testing.T) {
	values := []int32{1, 0, 3, 0, 5}
	valid := []bool{true, false, true, false, true}
	payload := SelectNullableInteger(values, valid, encoding.I32, DefaultPolicy())
	enc, err := encoding.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, encoding.KindNullable, enc.Kind())
	nd, ok := enc.(encoding.NullableDecoder[int32])
	require.True(t, ok)
	out := make([]int32, len(values))
	nulls := make([]byte, 1)
	require.NoError(t, nd.MaterializeNullable(len(values), out, nulls))
	for i, v := range valid {
		require.Equal(t, v, boolBit(nulls, i))
		if v {
			require.Equal(t, values[i], out[i])
		}
	}
}

func boolBit(buf []byte, i int) bool {
	return buf[i/8]&(1<<uint(i%8)) != 0
}

func TestSelectBoolRoundTrip(t *testing.T) {
	p := DefaultPolicy()
	cases := [][]bool{
		{true, false, true, false},
		{true, true, true, true, true, true, true, false},
		{false, false, false, false, false, false, false, false, false, true},
	}
	for _, values := range cases {
		payload := SelectBool(values, p)
		enc, err := encoding.Decode(payload)
		require.NoError(t, err)
		dec, ok := enc.(encoding.Decoder[bool])
		require.True(t, ok)
		out := make([]bool, len(values))
		require.NoError(t, dec.Materialize(len(values), out))
		require.Equal(t, values, out)
	}
}

func TestSelectStringRoundTrip(t *testing.T) {
	p := DefaultPolicy()
	values := []string{"a", "b", "a", "a", "c", "a"}
	payload := SelectString(values, encoding.String, p)
	enc, err := encoding.Decode(payload)
	require.NoError(t, err)
	dec, ok := enc.(encoding.Decoder[string])
	require.True(t, ok)
	out := make([]string, len(values))
	require.NoError(t, dec.Materialize(len(values), out))
	require.Equal(t, values, out)
}

func TestLayoutTreeRoundTrip(t *testing.T) {
	tree := &LayoutTree{
		SchemaKind: 1,
		Name:       "root",
		Streams:    []StreamLayout{{StreamID: 0, Kind: encoding.KindDictionary, Layout: []byte{1, 2, 3}}},
		Children: []*LayoutTree{
			{SchemaKind: 2, Name: "a", Streams: []StreamLayout{{StreamID: 1, Kind: encoding.KindRLE}}},
		},
	}
	encoded := tree.Encode()
	decoded, n, err := DecodeLayoutTree(encoded)
	require.NoError(t, err)
	require.Equal(t, len(encoded), n)
	require.Equal(t, tree.Name, decoded.Name)
	require.Len(t, decoded.Children, 1)
	require.Equal(t, "a", decoded.Children[0].Name)
	kind, ok := decoded.KindFor(0)
	require.True(t, ok)
	require.Equal(t, encoding.KindDictionary, kind)
}
