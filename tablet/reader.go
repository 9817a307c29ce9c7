// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablet

import (
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/facebookexternal/nimble/bitops"
	"github.com/facebookexternal/nimble/compress"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/vfs"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// ShouldCoalesce enables merging adjacent stream byte ranges into a
	// single ranged read in Load, per spec.md §4.10.
	ShouldCoalesce bool
	// CoalesceMaxGap is the maximum byte gap between two requested ranges
	// that still get merged into one read.
	CoalesceMaxGap int64
}

// ReaderOption configures a Reader at Open time.
type ReaderOption func(*ReaderOptions)

// WithCoalescing turns on range coalescing in Load, merging requested
// stream ranges separated by at most maxGap bytes into a single I/O.
func WithCoalescing(maxGap int64) ReaderOption {
	return func(o *ReaderOptions) { o.ShouldCoalesce = true; o.CoalesceMaxGap = maxGap }
}

// StreamLoader is the result of loading one requested stream: its id and
// buffered bytes. A missing or zero-length stream loads as an empty
// loader rather than an error (spec.md §4.10).
type StreamLoader struct {
	StreamID uint32
	Bytes    []byte
}

// Reader opens a tablet file for reading: its footer, schema, stripe
// table, and stream directory are parsed eagerly at Open; stream payloads
// are loaded lazily by Load.
type Reader struct {
	source vfs.Source

	schema    *schema.Schema
	stripes   []StripeEntry
	directory [][]StreamEntry
	metadata  map[string]string

	majorVersion uint16
	minorVersion uint16

	opts ReaderOptions
}

// Open parses source's trailer, verifies the magic and checksum, and
// decodes the footer. It implements spec.md §4.10's open sequence: read
// the tail in one ranged read, verify magic, parse the postscript,
// ranged-read [0, footer_end) to both recompute the checksum and obtain
// the footer bytes, then parse the footer.
func Open(source vfs.Source, options ...ReaderOption) (*Reader, error) {
	var opts ReaderOptions
	for _, o := range options {
		o(&opts)
	}

	size, err := source.Size()
	if err != nil {
		return nil, nerrors.IO(err, "tablet: querying source size")
	}
	trailerSize := int64(postscriptSize + 2)
	if size < trailerSize {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "tablet: file too small (%d bytes) to contain a postscript", size)
	}

	tail := make([]byte, trailerSize)
	if err := readFullAt(source, tail, size-trailerSize); err != nil {
		return nil, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: reading trailer")
	}

	gotMagic, _ := bitops.GetUint16(tail[postscriptSize:])
	if gotMagic != magic {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "tablet: bad magic %#x, want %#x", gotMagic, magic)
	}

	postscript := tail[:postscriptSize]
	footerLen, _ := bitops.GetUint32(postscript[0:4])
	footerCodec, _ := bitops.GetUint8(postscript[4:5])
	wantChecksum, _ := bitops.GetUint64(postscript[5:13])
	checksumType, _ := bitops.GetUint8(postscript[13:14])
	majorVersion, _ := bitops.GetUint16(postscript[14:16])
	minorVersion, _ := bitops.GetUint16(postscript[16:18])

	if majorVersion != CurrentMajorVersion {
		return nil, nerrors.Newf(nerrors.UnsupportedVersion,
			"tablet: major version %d unsupported (this reader supports %d)", majorVersion, CurrentMajorVersion)
	}
	if minorVersion > CurrentMinorVersion {
		return nil, nerrors.Newf(nerrors.UnsupportedVersion,
			"tablet: minor version %d newer than this reader (%d)", minorVersion, CurrentMinorVersion)
	}
	if ChecksumType(checksumType) != ChecksumXXHash64 {
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "tablet: unknown checksum type %d", checksumType)
	}

	footerEnd := size - trailerSize
	if int64(footerLen) > footerEnd {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "tablet: footer length %d exceeds file", footerLen)
	}

	checked := make([]byte, footerEnd)
	if err := readFullAt(source, checked, 0); err != nil {
		return nil, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: reading [0, footer_end) for checksum")
	}
	if got := xxhash.Sum64(checked); got != wantChecksum {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "tablet: checksum mismatch: got %#x, want %#x", got, wantChecksum)
	}

	footerBody := checked[footerEnd-int64(footerLen):]
	wrapped := make([]byte, 1+len(footerBody))
	wrapped[0] = footerCodec
	copy(wrapped[1:], footerBody)
	raw, err := compress.Unwrap(wrapped)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.CorruptFormat, err, "tablet: decompressing footer")
	}

	f, err := parseFooter(raw)
	if err != nil {
		return nil, err
	}

	return &Reader{
		source:       source,
		schema:       f.schema,
		stripes:      f.stripes,
		directory:    f.directory,
		metadata:     f.metadata,
		majorVersion: majorVersion,
		minorVersion: minorVersion,
		opts:         opts,
	}, nil
}

// Schema returns the tablet's logical type tree.
func (r *Reader) Schema() *schema.Schema { return r.schema }

// Metadata returns the tablet's string metadata map. The returned map must
// be treated as read-only.
func (r *Reader) Metadata() map[string]string { return r.metadata }

// StripeCount returns the number of stripes in the tablet.
func (r *Reader) StripeCount() int { return len(r.stripes) }

// StripeRowCount returns the row count of stripe i.
func (r *Reader) StripeRowCount(i int) (uint32, error) {
	if i < 0 || i >= len(r.stripes) {
		return 0, nerrors.Newf(nerrors.OutOfRange, "tablet: stripe index %d out of range [0, %d)", i, len(r.stripes))
	}
	return r.stripes[i].RowCount, nil
}

// StripeOffset returns the file byte offset at which stripe i begins.
func (r *Reader) StripeOffset(i int) (uint64, error) {
	if i < 0 || i >= len(r.stripes) {
		return 0, nerrors.Newf(nerrors.OutOfRange, "tablet: stripe index %d out of range [0, %d)", i, len(r.stripes))
	}
	return r.stripes[i].Offset, nil
}

// StripesInRange returns the indices of every stripe fully contained
// within the file byte range [start, end) — spec.md §4.10's stripe
// resolution: a partially-overlapping stripe is excluded.
func (r *Reader) StripesInRange(start, end int64) []int {
	var out []int
	for i, se := range r.stripes {
		stripeStart := int64(se.Offset)
		stripeEnd := stripeStart + int64(se.Size)
		if stripeStart >= start && stripeEnd <= end {
			out = append(out, i)
		}
	}
	return out
}

// Load returns, for each requested stream id within stripe stripeID, a
// StreamLoader holding its bytes (empty if the stream is missing or
// zero-length in this stripe). When the reader is configured with
// WithCoalescing, adjacent requested ranges are merged into fewer,
// larger reads against the source.
func (r *Reader) Load(stripeID int, streamIDs []uint32) ([]StreamLoader, error) {
	if stripeID < 0 || stripeID >= len(r.stripes) {
		return nil, nerrors.Newf(nerrors.OutOfRange, "tablet: stripe index %d out of range [0, %d)", stripeID, len(r.stripes))
	}
	stripeBase := int64(r.stripes[stripeID].Offset)
	entries := r.directory[stripeID]

	loaders := make([]StreamLoader, len(streamIDs))
	var ranges []vfs.Range
	var rangedIdx []int
	for i, id := range streamIDs {
		loaders[i] = StreamLoader{StreamID: id}
		if int(id) >= len(entries) {
			continue
		}
		e := entries[id]
		if e.Size == 0 {
			continue
		}
		ranges = append(ranges, vfs.Range{Offset: stripeBase + int64(e.Offset), Length: int64(e.Size)})
		rangedIdx = append(rangedIdx, i)
	}
	if len(ranges) == 0 {
		return loaders, nil
	}

	// Without coalescing, a negative gap keeps touching ranges apart.
	maxGap := int64(-1)
	if r.opts.ShouldCoalesce {
		maxGap = r.opts.CoalesceMaxGap
	}
	merged, owner := vfs.CoalesceRanges(ranges, maxGap)

	buffers := make([][]byte, len(merged))
	for i, rg := range merged {
		buf := make([]byte, rg.Length)
		if err := readFullAt(r.source, buf, rg.Offset); err != nil {
			return nil, nerrors.Wrap(nerrors.IoError, err, "tablet: loading stream range")
		}
		buffers[i] = buf
	}

	for i, rg := range ranges {
		mergedRange := merged[owner[i]]
		start := rg.Offset - mergedRange.Offset
		loaders[rangedIdx[i]].Bytes = buffers[owner[i]][start : start+rg.Length]
	}
	return loaders, nil
}

// readFullAt reads exactly len(buf) bytes from src at off, tolerating the
// io.EOF that io.ReaderAt implementations (including vfs.MemSource) may
// return alongside a full read of the last available bytes.
func readFullAt(src vfs.Source, buf []byte, off int64) error {
	n, err := src.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return err
	}
	if n != len(buf) {
		return nerrors.Newf(nerrors.CorruptFormat, "short read: want %d bytes, got %d", len(buf), n)
	}
	return nil
}
