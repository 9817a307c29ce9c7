// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package stripe implements the stripe writer (C7): per-field buffers that
// collect pushed values between flushes, a growth policy governing buffer
// capacity, a flush policy deciding when to cut a stripe, and the final
// concatenation of per-stream bytes in schema pre-order that the tablet
// writer appends to the file.
package stripe

import (
	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/selection"
	"github.com/facebookexternal/nimble/stream"
)

// StreamBlob is one stream's accumulated bytes for a finished stripe,
// identified by its schema descriptor offset. Streams with no data in
// this stripe still appear, with an empty Bytes slice (spec.md §3:
// "Streams may be empty (zero length) when a column has no data in this
// stripe").
type StreamBlob struct {
	Offset uint32
	Bytes  []byte
}

// StripeBlob is a finished stripe's output: its row count and every
// stream's bytes in schema pre-order (the "pre-layout" order spec.md
// §4.7 hands to the tablet writer; C9 reorders it before it is appended
// to the file).
type StripeBlob struct {
	RowCount uint32
	Streams  []StreamBlob
}

// Writer buffers pushed column batches and emits StripeBlobs. A Writer is
// not safe for concurrent use; the per-stripe worker fan-out spec.md §5
// describes belongs one level up, orchestrating independent Writers or
// independent per-field flush calls under a shared barrier.
type Writer struct {
	schema          *schema.Schema
	compression     compress.Options
	selectionPolicy selection.Policy
	flushPolicy     FlushPolicy
	growthPolicy    GrowthPolicy

	fields        map[uint32]fieldBuffer
	rawStripeSize uint64
	rowCount      uint64
	haveRowCount  bool
}

// NewWriter returns a Writer bound to sch. Every field pushed must belong
// to a descriptor sch assigned (schema growth via RegisterKey before the
// corresponding push is the caller's responsibility, e.g. the row-batch
// encoder that discovers a flat-map key).
func NewWriter(sch *schema.Schema, compression compress.Options, selectionPolicy selection.Policy, flushPolicy FlushPolicy, growthPolicy GrowthPolicy) *Writer {
	return &Writer{
		schema:          sch,
		compression:     compression,
		selectionPolicy: selectionPolicy,
		flushPolicy:     flushPolicy,
		growthPolicy:    growthPolicy,
		fields:          make(map[uint32]fieldBuffer),
	}
}

func (w *Writer) progress() StripeProgress {
	return StripeProgress{RawStripeSize: w.rawStripeSize, RowCount: w.rowCount}
}

// observe updates the writer's aggregate raw-size bookkeeping, folds a
// row-scoped push's length into the stripe's single logical row count
// (validating it against any row-scoped push already seen this stripe
// rather than summing lengths across streams — a stripe holds one row
// count, not one per field, per spec.md's sum(stripe.row_count) ==
// tablet.row_count invariant), and reports the flush policy's decision.
func (w *Writer) observe(rawBytes uint64, rowScoped bool, rows int) (stream.FlushDecision, error) {
	w.rawStripeSize += rawBytes
	if rowScoped {
		if !w.haveRowCount {
			w.rowCount = uint64(rows)
			w.haveRowCount = true
		} else if uint64(rows) != w.rowCount {
			return stream.FlushNone, nerrors.Newf(nerrors.InvalidArgument,
				"row-scoped push of %d rows conflicts with stripe row count %d", rows, w.rowCount)
		}
	}
	return w.flushPolicy.ShouldFlush(w.progress()), nil
}

// PushInteger pushes a batch of integer values (and, if non-nil, a
// parallel validity bitmap) for the stream at offset, immediately
// selecting and chunking the batch (spec.md §4.5: chunk boundaries are
// reported per logical batch push — this writer chunks on every push
// rather than further coalescing, leaving coalescing to the caller's
// batch sizing). It returns the flush decision the caller should act on:
// FlushStripe means the caller should call FlushStripe next.
func PushInteger[T encoding.Integer](w *Writer, offset uint32, values []T, valid []bool) (stream.FlushDecision, error) {
	d, err := w.schema.Descriptor(offset)
	if err != nil {
		return stream.FlushNone, err
	}
	fb, ok := w.fields[offset]
	if !ok {
		nf := newIntegerField[T](d, w.compression, w.growthPolicy)
		w.fields[offset] = nf
		fb = nf
	}
	nf, ok := fb.(*integerField[T])
	if !ok {
		return stream.FlushNone, errFieldTypeMismatch
	}
	rawBytes := nf.push(values, valid)
	if err := nf.flushChunk(w.selectionPolicy); err != nil {
		return stream.FlushNone, err
	}
	return w.observe(rawBytes, d.RowScoped, len(values))
}

// PushFloat mirrors PushInteger for floating point columns.
func PushFloat[T encoding.Float](w *Writer, offset uint32, values []T, valid []bool) (stream.FlushDecision, error) {
	d, err := w.schema.Descriptor(offset)
	if err != nil {
		return stream.FlushNone, err
	}
	fb, ok := w.fields[offset]
	if !ok {
		nf := newFloatField[T](d, w.compression, w.growthPolicy)
		w.fields[offset] = nf
		fb = nf
	}
	nf, ok := fb.(*floatField[T])
	if !ok {
		return stream.FlushNone, errFieldTypeMismatch
	}
	rawBytes := nf.push(values, valid)
	if err := nf.flushChunk(w.selectionPolicy); err != nil {
		return stream.FlushNone, err
	}
	return w.observe(rawBytes, d.RowScoped, len(values))
}

// PushBool mirrors PushInteger for bool columns (nulls bitmaps, in-map
// bitmaps, and boolean-typed scalar columns all flow through this path).
func (w *Writer) PushBool(offset uint32, values []bool, valid []bool) (stream.FlushDecision, error) {
	d, err := w.schema.Descriptor(offset)
	if err != nil {
		return stream.FlushNone, err
	}
	fb, ok := w.fields[offset]
	if !ok {
		nf := newBoolField(d, w.compression, w.growthPolicy)
		w.fields[offset] = nf
		fb = nf
	}
	nf, ok := fb.(*boolField)
	if !ok {
		return stream.FlushNone, errFieldTypeMismatch
	}
	rawBytes := nf.push(values, valid)
	if err := nf.flushChunk(w.selectionPolicy); err != nil {
		return stream.FlushNone, err
	}
	return w.observe(rawBytes, d.RowScoped, len(values))
}

// PushString mirrors PushInteger for string/binary columns.
func (w *Writer) PushString(offset uint32, values []string, valid []bool) (stream.FlushDecision, error) {
	d, err := w.schema.Descriptor(offset)
	if err != nil {
		return stream.FlushNone, err
	}
	fb, ok := w.fields[offset]
	if !ok {
		nf := newStringField(d, w.compression, w.growthPolicy)
		w.fields[offset] = nf
		fb = nf
	}
	nf, ok := fb.(*stringField)
	if !ok {
		return stream.FlushNone, errFieldTypeMismatch
	}
	rawBytes := nf.push(values, valid)
	if err := nf.flushChunk(w.selectionPolicy); err != nil {
		return stream.FlushNone, err
	}
	return w.observe(rawBytes, d.RowScoped, len(values))
}

// FlushStripe flushes every field's remaining buffered values, concatenates
// every stream in schema pre-order (including zero-length streams for
// descriptors no field ever pushed to), and resets the writer for the next
// stripe.
func (w *Writer) FlushStripe() (StripeBlob, error) {
	for _, fb := range w.fields {
		if err := fb.flushChunk(w.selectionPolicy); err != nil {
			return StripeBlob{}, err
		}
	}

	descs := schema.Descriptors(w.schema.Root())
	blob := StripeBlob{RowCount: uint32(w.rowCount), Streams: make([]StreamBlob, len(descs))}
	for i, d := range descs {
		var bytes []byte
		if fb, ok := w.fields[d.Offset]; ok {
			bytes = fb.streamWriter().Bytes()
		}
		blob.Streams[i] = StreamBlob{Offset: d.Offset, Bytes: bytes}
	}

	for _, fb := range w.fields {
		fb.resetForNextStripe()
	}
	w.rawStripeSize = 0
	w.rowCount = 0
	w.haveRowCount = false
	return blob, nil
}

// Close notifies the flush policy that no more rows are coming.
func (w *Writer) Close() {
	w.flushPolicy.OnClose()
}
