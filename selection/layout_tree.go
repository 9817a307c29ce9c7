// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package selection

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// LayoutTree mirrors the schema tree, recording which encoding.Kind the
// training tool (out of scope per spec.md §1) observed as the winning
// choice for each stream at each node, so a later write of similar data can
// skip recomputing statistics and go straight to the previously-profitable
// kind. Wire layout (spec.md §6): {schema_kind:u8, name_len:u16, name,
// layout_count:u8, [stream_id:u8, layout_len:u16, layout bytes]*,
// children_count:u32, [recurse]*}.
type LayoutTree struct {
	SchemaKind uint8
	Name       string
	Streams    []StreamLayout
	Children   []*LayoutTree
}

// StreamLayout records the captured top-level encoding.Kind for one stream,
// plus an opaque "layout" byte blob the training tool may use to carry
// finer-grained sub-choices (e.g. dictionary alphabet size, run density).
// This implementation treats that blob as opaque passthrough data; it is
// not interpreted beyond round-tripping it.
type StreamLayout struct {
	StreamID uint8
	Kind     encoding.Kind
	Layout   []byte
}

// Encode serializes t to the wire format described above.
func (t *LayoutTree) Encode() []byte {
	var buf []byte
	buf = append(buf, t.SchemaKind)
	buf = appendU16(buf, uint16(len(t.Name)))
	buf = append(buf, t.Name...)
	buf = append(buf, uint8(len(t.Streams)))
	for _, s := range t.Streams {
		buf = append(buf, s.StreamID)
		layout := append([]byte{byte(s.Kind)}, s.Layout...)
		buf = appendU16(buf, uint16(len(layout)))
		buf = append(buf, layout...)
	}
	buf = appendU32(buf, uint32(len(t.Children)))
	for _, c := range t.Children {
		buf = append(buf, c.Encode()...)
	}
	return buf
}

// DecodeLayoutTree parses the wire format Encode produces, returning the
// tree and the number of bytes consumed.
func DecodeLayoutTree(buf []byte) (*LayoutTree, int, error) {
	if len(buf) < 1 {
		return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree truncated at schema_kind")
	}
	t := &LayoutTree{SchemaKind: buf[0]}
	pos := 1
	nameLen, err := readU16(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += 2
	if len(buf) < pos+int(nameLen) {
		return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree name truncated")
	}
	t.Name = string(buf[pos : pos+int(nameLen)])
	pos += int(nameLen)

	if len(buf) < pos+1 {
		return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree layout_count truncated")
	}
	layoutCount := int(buf[pos])
	pos++
	for i := 0; i < layoutCount; i++ {
		if len(buf) < pos+1 {
			return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree stream_id truncated")
		}
		streamID := buf[pos]
		pos++
		layoutLen, err := readU16(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += 2
		if len(buf) < pos+int(layoutLen) || layoutLen < 1 {
			return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree layout bytes truncated")
		}
		layout := buf[pos : pos+int(layoutLen)]
		pos += int(layoutLen)
		t.Streams = append(t.Streams, StreamLayout{StreamID: streamID, Kind: encoding.Kind(layout[0]), Layout: append([]byte{}, layout[1:]...)})
	}

	childCount, err := readU32(buf, pos)
	if err != nil {
		return nil, 0, err
	}
	pos += 4
	for i := uint32(0); i < childCount; i++ {
		child, n, err := DecodeLayoutTree(buf[pos:])
		if err != nil {
			return nil, 0, err
		}
		t.Children = append(t.Children, child)
		pos += n
	}
	return t, pos, nil
}

// KindFor returns the captured kind for streamID, and whether one was
// recorded.
func (t *LayoutTree) KindFor(streamID uint8) (encoding.Kind, bool) {
	for _, s := range t.Streams {
		if s.StreamID == streamID {
			return s.Kind, true
		}
	}
	return 0, false
}

// ReplayPolicy returns a Policy biased toward the kind LayoutTree recorded
// for streamID: every other specialized candidate is disabled so the
// selector's normal Trivial/Constant fallbacks remain available but
// Dictionary/RLE/MainlyConstant/SparseBool/FixedBitWidth/Varint are only
// tried when they match the captured choice. This is the "replay-based
// policy" injection point spec.md §9 calls for; it never forces an unsafe
// encoding — the batch's own statistics still gate whether the captured
// kind is actually a legal candidate for these values.
func (t *LayoutTree) ReplayPolicy(streamID uint8, base Policy) Policy {
	kind, ok := t.KindFor(streamID)
	if !ok {
		return base
	}
	p := base
	p.EnableFixedBitWidth = kind == encoding.KindFixedBitWidth
	p.EnableVarint = kind == encoding.KindVarint
	p.EnableRLE = kind == encoding.KindRLE
	p.EnableDictionary = kind == encoding.KindDictionary
	p.EnableMainlyConstant = kind == encoding.KindMainlyConstant
	p.EnableSparseBool = kind == encoding.KindSparseBool
	return p
}

func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	bitops.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	bitops.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readU16(buf []byte, pos int) (uint16, error) {
	if len(buf) < pos+2 {
		return 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree: short read for u16 at %d", pos)
	}
	return bitops.GetUint16(buf[pos:])
}

func readU32(buf []byte, pos int) (uint32, error) {
	if len(buf) < pos+4 {
		return 0, nerrors.Newf(nerrors.CorruptFormat, "layout tree: short read for u32 at %d", pos)
	}
	return bitops.GetUint32(buf[pos:])
}
