// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tablet implements the tablet container (C8 writer, C10 reader):
// the binary envelope that concatenates stripes, a stream directory, the
// schema, user metadata, and a checksummed footer (spec.md §3/§6).
//
// The footer is not actually FlatBuffers-encoded, despite spec.md's
// language: this implementation has no flatc toolchain access, so it
// builds an equivalent self-describing binary table with the bitops
// primitives used everywhere else in the file. DESIGN.md records this as
// a deliberate substitution; the on-disk postscript and magic shape spec.md
// §6 specifies are preserved exactly.
package tablet

import (
	"github.com/cespare/xxhash/v2"

	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/compress"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/layout"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/stripe"
	"github.com/facebookexternal/nimble/vfs"
)

// ChecksumType identifies the algorithm used to compute the footer
// checksum. Only one is implemented today; the postscript field exists so
// a future reader can recognize (and reject) one it doesn't support.
type ChecksumType uint8

const (
	ChecksumXXHash64 ChecksumType = iota
)

// magic is the trailing two-byte marker spec.md §6 requires: little-endian
// 0xA1FA, i.e. the byte sequence 0xFA 0xA1.
const magic uint16 = 0xA1FA

// postscriptSize is the fixed size in bytes of the postscript struct:
// footer_length(4) + footer_compression(1) + checksum(8) + checksum_type(1)
// + major_version(2) + minor_version(2).
const postscriptSize = 4 + 1 + 8 + 1 + 2 + 2

// CurrentMajorVersion and CurrentMinorVersion are written into every
// tablet's postscript by default. A reader accepts any file whose major
// version matches and whose minor version is less than or equal to its own
// (spec.md §6's forward-compatibility rule).
const (
	CurrentMajorVersion uint16 = 1
	CurrentMinorVersion uint16 = 0
)

// WriterOptions configures a Writer. Use the With* functions to build one;
// the zero value is not valid on its own — construct via NewWriter, which
// applies defaults before options.
type WriterOptions struct {
	ChecksumType      ChecksumType
	FooterCompression compress.Options
	MajorVersion      uint16
	MinorVersion      uint16
}

// Option configures a Writer at construction time.
type Option func(*WriterOptions)

// WithChecksumType overrides the default checksum algorithm.
func WithChecksumType(t ChecksumType) Option {
	return func(o *WriterOptions) { o.ChecksumType = t }
}

// WithFooterCompression configures compression for the footer section,
// independent of the per-chunk compression each stream's stripe.Writer
// uses.
func WithFooterCompression(opts compress.Options) Option {
	return func(o *WriterOptions) { o.FooterCompression = opts }
}

// WithVersion overrides the major/minor version recorded in the
// postscript.
func WithVersion(major, minor uint16) Option {
	return func(o *WriterOptions) { o.MajorVersion, o.MinorVersion = major, minor }
}

// Writer accumulates stripes into a Sink and finalizes them into a single
// tablet file on Close. It owns the stream directory and stripe table; the
// caller is responsible for producing each stripe.StripeBlob (via
// stripe.Writer) and handing it to WriteStripe in order.
type Writer struct {
	sink    vfs.Sink
	schema  *schema.Schema
	planner layout.Planner
	opts    WriterOptions

	hasher    *xxhash.Digest
	offset    uint64
	stripes   []StripeEntry
	directory [][]StreamEntry
	metadata  map[string]string
	closed    bool
}

// NewWriter returns a Writer that appends stripes to sink, reordering each
// stripe's streams with planner (use layout.IdentityPlanner{} for none)
// before writing them, against the given bound schema.
func NewWriter(sink vfs.Sink, sch *schema.Schema, planner layout.Planner, options ...Option) *Writer {
	opts := WriterOptions{
		ChecksumType:      ChecksumXXHash64,
		FooterCompression: compress.DefaultOptions(),
		MajorVersion:      CurrentMajorVersion,
		MinorVersion:      CurrentMinorVersion,
	}
	for _, o := range options {
		o(&opts)
	}
	return &Writer{
		sink:     sink,
		schema:   sch,
		planner:  planner,
		opts:     opts,
		hasher:   xxhash.New(),
		metadata: make(map[string]string),
	}
}

// SetMetadata records a string key/value pair in the footer's metadata map,
// overwriting any existing value for key.
func (w *Writer) SetMetadata(key, value string) {
	w.metadata[key] = value
}

// WriteStripe reorders blob's streams via the configured layout.Planner,
// appends them to the sink, and records the stripe's entry in the stripe
// table and stream directory.
func (w *Writer) WriteStripe(blob stripe.StripeBlob) error {
	if w.closed {
		return nerrors.Newf(nerrors.Internal, "tablet: WriteStripe called after Close")
	}
	ordered, err := w.planner.Layout(w.schema, blob.Streams)
	if err != nil {
		return err
	}

	streamCount := w.schema.StreamCount()
	entries := make([]StreamEntry, streamCount)
	stripeStart := w.offset
	var stripeSize uint32
	for _, sb := range ordered {
		if int(sb.Offset) >= streamCount {
			return nerrors.Newf(nerrors.Internal, "tablet: stream offset %d exceeds schema stream count %d", sb.Offset, streamCount)
		}
		entries[sb.Offset] = StreamEntry{Offset: stripeSize, Size: uint32(len(sb.Bytes))}
		if err := w.write(sb.Bytes); err != nil {
			return err
		}
		stripeSize += uint32(len(sb.Bytes))
	}

	w.stripes = append(w.stripes, StripeEntry{Offset: stripeStart, Size: stripeSize, RowCount: blob.RowCount})
	w.directory = append(w.directory, entries)
	return nil
}

// Close serializes the schema, stripe table, stream directory, and
// metadata into the footer, computes the checksum over every byte written
// so far (spec.md §6's checksum invariant: checksum == compute over
// [0, footer_end)), and writes the postscript and trailing magic.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	raw := appendFooter(footer{
		schema:    w.schema,
		stripes:   w.stripes,
		directory: w.directory,
		metadata:  w.metadata,
	})
	wrapped, err := compress.Wrap(raw, w.opts.FooterCompression)
	if err != nil {
		return err
	}
	footerCodec, footerBody := wrapped[0], wrapped[1:]
	if err := w.write(footerBody); err != nil {
		return err
	}

	checksum := w.hasher.Sum64()

	postscript := make([]byte, postscriptSize)
	bitops.PutUint32(postscript[0:4], uint32(len(footerBody)))
	bitops.PutUint8(postscript[4:5], footerCodec)
	bitops.PutUint64(postscript[5:13], checksum)
	bitops.PutUint8(postscript[13:14], byte(w.opts.ChecksumType))
	bitops.PutUint16(postscript[14:16], w.opts.MajorVersion)
	bitops.PutUint16(postscript[16:18], w.opts.MinorVersion)
	if _, err := w.sink.Write(postscript); err != nil {
		return nerrors.IO(err, "tablet: writing postscript")
	}

	magicBytes := make([]byte, 2)
	bitops.PutUint16(magicBytes, magic)
	if _, err := w.sink.Write(magicBytes); err != nil {
		return nerrors.IO(err, "tablet: writing magic")
	}

	return w.sink.Close()
}

func (w *Writer) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if _, err := w.sink.Write(p); err != nil {
		return nerrors.IO(err, "tablet: writing to sink")
	}
	_, _ = w.hasher.Write(p)
	w.offset += uint64(len(p))
	return nil
}
