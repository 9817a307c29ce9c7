// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package stream implements the chunked stream codec (C5): a stream is a
// concatenation of length-prefixed chunks, each carrying its own
// compression tag, logical item count, and payload length. Writer frames
// chunks handed to it by the stripe writer (which has already run the
// encoding-selection policy); Reader walks them back out on demand,
// decompressing and decoding lazily so a caller that only wants chunk
// headers (row counts, for skip/seek) never pays for payload decode.
package stream

import (
	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// chunkHeaderSize is the size in bytes of a chunk's
// {compression, item_count, payload_length} prefix.
const chunkHeaderSize = 1 + 4 + 4

// FlushDecision is what a field reports after each logical batch push,
// telling the stripe writer whether to leave the field's buffer as-is, cut
// a chunk now, or close out the whole stripe (spec.md §4.5/§4.7).
type FlushDecision uint8

const (
	FlushNone FlushDecision = iota
	FlushChunk
	FlushStripe
)

// Writer accumulates a sequence of chunks for one stream within the
// current stripe.
type Writer struct {
	buf         []byte
	compression compress.Options
	chunkCount  int
}

// NewWriter returns an empty stream writer that compresses every appended
// chunk per compression.
func NewWriter(compression compress.Options) *Writer {
	return &Writer{compression: compression}
}

// AppendChunk compresses rawPayload (an already fully-selected and encoded
// payload, per package selection) and frames it as one chunk decoding to
// itemCount logical values.
func (w *Writer) AppendChunk(itemCount int, rawPayload []byte) error {
	wrapped, err := compress.Wrap(rawPayload, w.compression)
	if err != nil {
		return err
	}
	if len(wrapped) == 0 {
		return nerrors.Newf(nerrors.Internal, "compress.Wrap returned an empty buffer")
	}
	codec, payload := wrapped[0], wrapped[1:]

	header := make([]byte, chunkHeaderSize)
	bitops.PutUint8(header[0:1], codec)
	bitops.PutUint32(header[1:5], uint32(itemCount))
	bitops.PutUint32(header[5:9], uint32(len(payload)))
	w.buf = append(w.buf, header...)
	w.buf = append(w.buf, payload...)
	w.chunkCount++
	return nil
}

// Bytes returns the accumulated stream bytes — every chunk appended so
// far, concatenated — the blob the stripe writer hands to the tablet
// writer for this stream.
func (w *Writer) Bytes() []byte { return w.buf }

// ChunkCount reports the number of chunks appended so far.
func (w *Writer) ChunkCount() int { return w.chunkCount }

// Options returns the compression options this writer was constructed
// with, so a caller starting a fresh stripe's stream can carry them over.
func (w *Writer) Options() compress.Options { return w.compression }

// Len reports the accumulated byte length, i.e. what this stream's slot in
// the stripe will occupy on disk.
func (w *Writer) Len() int { return len(w.buf) }

// chunkHeader is a parsed chunk header, read without touching the payload.
type chunkHeader struct {
	compression byte
	itemCount   uint32
	payloadLen  uint32
}

func peekHeader(buf []byte) (chunkHeader, error) {
	if len(buf) < chunkHeaderSize {
		return chunkHeader{}, nerrors.Newf(nerrors.CorruptFormat, "chunk header truncated: need %d bytes, have %d", chunkHeaderSize, len(buf))
	}
	compression, _ := bitops.GetUint8(buf[0:1])
	itemCount, _ := bitops.GetUint32(buf[1:5])
	payloadLen, _ := bitops.GetUint32(buf[5:9])
	return chunkHeader{compression: compression, itemCount: itemCount, payloadLen: payloadLen}, nil
}

// Reader walks an already-loaded stream's chunk sequence. It matches
// spec.md §4.5's InMemoryChunkedStream: the stream's bytes are assumed to
// already be buffered in memory (the tablet reader is responsible for
// having issued the ranged read); Reader itself performs no I/O.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf (without copying) as a chunk reader positioned at the
// first chunk.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// HasNext reports whether at least one more chunk remains in the stream.
func (r *Reader) HasNext() bool { return r.pos < len(r.buf) }

// PeekItemCount returns the logical item count of the next chunk without
// decoding or decompressing its payload — the fast path skip_rows and
// seek_to_row use to count past chunks they don't need to materialize
// (spec.md §4.11: "decoding chunk headers to count items, never decoding
// payload beyond the target position").
func (r *Reader) PeekItemCount() (int, error) {
	h, err := peekHeader(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	return int(h.itemCount), nil
}

// SkipChunk advances past the next chunk without decompressing or decoding
// its payload.
func (r *Reader) SkipChunk() error {
	h, err := peekHeader(r.buf[r.pos:])
	if err != nil {
		return err
	}
	end := r.pos + chunkHeaderSize + int(h.payloadLen)
	if end > len(r.buf) {
		return nerrors.Newf(nerrors.CorruptFormat, "chunk payload truncated: need %d bytes", h.payloadLen)
	}
	r.pos = end
	return nil
}

// NextChunk decompresses and decodes the next chunk, returning its decoded
// Encoding tree and logical item count, and advances the cursor past it.
// A chunk whose header, compression frame or encoding layout fails
// validation returns an error and leaves the cursor where it was, matching
// spec.md §4.11's failure semantics: the reader never partially delivers a
// corrupt chunk. Chunks carry no checksum of their own, so damage that
// leaves the payload well-formed decodes to different values undetected.
func (r *Reader) NextChunk() (encoding.Encoding, int, error) {
	if !r.HasNext() {
		return nil, 0, nerrors.Newf(nerrors.OutOfRange, "no more chunks in stream")
	}
	h, err := peekHeader(r.buf[r.pos:])
	if err != nil {
		return nil, 0, err
	}
	start := r.pos + chunkHeaderSize
	end := start + int(h.payloadLen)
	if end > len(r.buf) {
		return nil, 0, nerrors.Newf(nerrors.CorruptFormat, "chunk payload truncated: need %d bytes", h.payloadLen)
	}
	wrapped := make([]byte, 1+int(h.payloadLen))
	wrapped[0] = h.compression
	copy(wrapped[1:], r.buf[start:end])
	raw, err := compress.Unwrap(wrapped)
	if err != nil {
		return nil, 0, err
	}
	enc, err := encoding.Decode(raw)
	if err != nil {
		return nil, 0, err
	}
	if enc.RowCount() != int(h.itemCount) {
		return nil, 0, nerrors.Newf(nerrors.CorruptFormat,
			"chunk declared item_count %d but payload decodes to %d", h.itemCount, enc.RowCount())
	}
	r.pos = end
	return enc, int(h.itemCount), nil
}
