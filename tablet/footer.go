// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"sort"

	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
)

// StripeEntry is one row of the footer's stripe table: where a stripe
// starts in the file, how many bytes its streams occupy, and its row
// count.
type StripeEntry struct {
	Offset   uint64
	Size     uint32
	RowCount uint32
}

// StreamEntry is one row of a stripe's stream directory: a stream's byte
// range relative to the start of its stripe.
type StreamEntry struct {
	Offset uint32
	Size   uint32
}

// footer is the fully decoded contents of a tablet's footer section —
// schema, stripe table, per-stripe stream directories, and the string
// metadata map — built from the same bitops primitives used throughout the
// rest of the file rather than a generated FlatBuffers accessor (see
// DESIGN.md's footer-encoding decision).
type footer struct {
	schema    *schema.Schema
	stripes   []StripeEntry
	directory [][]StreamEntry
	metadata  map[string]string
}

func appendFooter(f footer) []byte {
	schemaBytes := f.schema.Marshal()
	buf := appendU32(nil, uint32(len(schemaBytes)))
	buf = append(buf, schemaBytes...)

	buf = appendU32(buf, uint32(len(f.stripes)))
	for _, se := range f.stripes {
		buf = appendU64(buf, se.Offset)
		buf = appendU32(buf, se.Size)
		buf = appendU32(buf, se.RowCount)
	}

	for _, entries := range f.directory {
		buf = appendU32(buf, uint32(len(entries)))
		for _, e := range entries {
			buf = appendU32(buf, e.Offset)
			buf = appendU32(buf, e.Size)
		}
	}

	keys := make([]string, 0, len(f.metadata))
	for k := range f.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf = appendU32(buf, uint32(len(keys)))
	for _, k := range keys {
		buf = appendName(buf, k)
		v := f.metadata[k]
		buf = appendU32(buf, uint32(len(v)))
		buf = append(buf, v...)
	}
	return buf
}

func parseFooter(buf []byte) (footer, error) {
	c := &cursor{buf: buf}

	schemaLen, err := c.u32()
	if err != nil {
		return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: footer schema length")
	}
	schemaBytes, err := c.bytes(int(schemaLen))
	if err != nil {
		return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: footer schema body")
	}
	sch, n, err := schema.Unmarshal(schemaBytes)
	if err != nil {
		return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: footer schema decode")
	}
	if n != len(schemaBytes) {
		return footer{}, nerrors.Newf(nerrors.CorruptFormat,
			"tablet: footer schema section has %d trailing bytes", len(schemaBytes)-n)
	}

	stripeCount, err := c.u32()
	if err != nil {
		return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stripe count")
	}
	stripes := make([]StripeEntry, stripeCount)
	for i := range stripes {
		offset, err := c.u64()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stripe table offset")
		}
		size, err := c.u32()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stripe table size")
		}
		rowCount, err := c.u32()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stripe table row count")
		}
		stripes[i] = StripeEntry{Offset: offset, Size: size, RowCount: rowCount}
	}

	directory := make([][]StreamEntry, stripeCount)
	for i := range directory {
		streamCount, err := c.u32()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stream directory count")
		}
		entries := make([]StreamEntry, streamCount)
		for j := range entries {
			offset, err := c.u32()
			if err != nil {
				return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stream directory offset")
			}
			size, err := c.u32()
			if err != nil {
				return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: stream directory size")
			}
			entries[j] = StreamEntry{Offset: offset, Size: size}
		}
		directory[i] = entries
	}

	metaCount, err := c.u32()
	if err != nil {
		return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: metadata count")
	}
	metadata := make(map[string]string, metaCount)
	for i := uint32(0); i < metaCount; i++ {
		key, err := c.name()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: metadata key")
		}
		valLen, err := c.u32()
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: metadata value length")
		}
		valBytes, err := c.bytes(int(valLen))
		if err != nil {
			return footer{}, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: metadata value")
		}
		metadata[key] = string(valBytes)
	}

	return footer{schema: sch, stripes: stripes, directory: directory, metadata: metadata}, nil
}

// cursor is a bounds-checked little-endian reader over a footer buffer.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) u32() (uint32, error) {
	v, err := bitops.GetUint32(c.buf[minInt(c.pos, len(c.buf)):])
	if err != nil {
		return 0, err
	}
	c.pos += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	v, err := bitops.GetUint64(c.buf[minInt(c.pos, len(c.buf)):])
	if err != nil {
		return 0, err
	}
	c.pos += 8
	return v, nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "truncated footer section: need %d bytes at %d, have %d", n, c.pos, len(c.buf))
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) name() (string, error) {
	n, err := bitops.GetUint16(c.buf[minInt(c.pos, len(c.buf)):])
	if err != nil {
		return "", err
	}
	c.pos += 2
	body, err := c.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	bitops.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	bitops.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendName(buf []byte, name string) []byte {
	var tmp [2]byte
	bitops.PutUint16(tmp[:], uint16(len(name)))
	buf = append(buf, tmp[:]...)
	return append(buf, name...)
}
