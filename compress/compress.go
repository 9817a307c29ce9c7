// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compress implements the one-byte compression wrapper every chunk
// payload is framed in: Uncompressed, Zstd, and an opaque "Internal" codec
// (stood in here by minlz, the way the format's Meta-internal slot is never
// specified beyond "opaque"). A compressor's output is only retained if it
// clears the configured accept ratio; otherwise the wrapper falls back to
// Uncompressed.
package compress

import (
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minlz"

	nerrors "github.com/facebookexternal/nimble/errors"
)

// Codec identifies the compressor used for one chunk payload. The byte is
// written verbatim as the chunk's compression tag.
type Codec uint8

const (
	Uncompressed Codec = iota
	Zstd
	Internal
)

// String implements fmt.Stringer.
func (c Codec) String() string {
	switch c {
	case Uncompressed:
		return "uncompressed"
	case Zstd:
		return "zstd"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Options configures the compression wrapper's behavior for one writer
// instance.
type Options struct {
	// Codecs lists, in preference order, the compressors to try. The first
	// one whose output clears AcceptRatio wins; if none do, Uncompressed is
	// recorded. A nil or empty list always produces Uncompressed.
	Codecs []Codec
	// AcceptRatio is the maximum compressed_size/raw_size at which a
	// compressor's output is retained. The format's open question §9(c)
	// notes this ratio is evaluated on the immediate payload, not the whole
	// encoding tree — Wrap follows that reading exactly.
	AcceptRatio float64
	// ZstdLevel is the compression level passed to the zstd encoder.
	ZstdLevel int
	// InternalLevel selects minlz's speed/ratio tradeoff.
	InternalLevel int
}

// DefaultOptions returns the default policy: no compression configured, so
// Wrap is a no-op passthrough. Callers that want compression must opt in.
func DefaultOptions() Options {
	return Options{AcceptRatio: 1.0}
}

// Wrap compresses raw with the first configured codec whose output clears
// opts.AcceptRatio, returning [codec:u8][payload]. If no codec is
// configured or none clears the ratio, it returns
// [Uncompressed:u8][raw] unmodified.
func Wrap(raw []byte, opts Options) ([]byte, error) {
	for _, codec := range opts.Codecs {
		compressed, ok, err := compress(codec, raw, opts)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(raw) == 0 {
			continue
		}
		if float64(len(compressed))/float64(len(raw)) <= opts.AcceptRatio {
			out := make([]byte, 1+len(compressed))
			out[0] = byte(codec)
			copy(out[1:], compressed)
			return out, nil
		}
	}
	out := make([]byte, 1+len(raw))
	out[0] = byte(Uncompressed)
	copy(out[1:], raw)
	return out, nil
}

// Unwrap reads the one-byte compression tag from the front of buf and
// returns the decompressed payload. The returned buffer is always a fresh
// allocation detached from buf, matching the format's "decompression is
// stateless and returns a detached buffer" requirement.
func Unwrap(buf []byte) ([]byte, error) {
	if len(buf) < 1 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "compressed payload missing codec tag")
	}
	codec := Codec(buf[0])
	body := buf[1:]
	switch codec {
	case Uncompressed:
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	case Zstd:
		return decompressZstd(body)
	case Internal:
		return decompressInternal(body)
	default:
		return nil, nerrors.Newf(nerrors.UnsupportedEncoding, "unknown compression codec byte %d", buf[0])
	}
}

// compress runs codec over raw, returning ok=false when the codec declined
// to produce output (e.g. the input exceeds a codec's block size limit)
// rather than when it merely failed to shrink raw — Wrap only compares
// against AcceptRatio when ok is true.
func compress(codec Codec, raw []byte, opts Options) (out []byte, ok bool, err error) {
	switch codec {
	case Uncompressed:
		return raw, true, nil
	case Zstd:
		out, err = compressZstd(raw, opts.ZstdLevel)
		return out, err == nil, err
	case Internal:
		return compressInternal(raw, opts.InternalLevel)
	default:
		return nil, false, nerrors.Newf(nerrors.InvalidArgument, "unknown compression codec %d in options", codec)
	}
}

func compressZstd(raw []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, nerrors.Wrap(nerrors.Internal, err, "constructing zstd encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func decompressZstd(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.Internal, err, "constructing zstd decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.CorruptFormat, err, "zstd decompression failed")
	}
	return out, nil
}

// minlzLevel normalizes level to one of minlz's known levels, defaulting to
// LevelBalanced for anything unrecognized.
func minlzLevel(level int) int {
	switch level {
	case minlz.LevelFastest, minlz.LevelSmallest, minlz.LevelBalanced:
		return level
	default:
		return minlz.LevelBalanced
	}
}

// compressInternal reports ok=false, rather than returning raw unchanged,
// when raw exceeds minlz's block size limit — minlz never produced output,
// so Wrap must not mistake the passthrough for a compressed candidate and
// tag the chunk Internal over an uncompressed body.
func compressInternal(raw []byte, level int) (out []byte, ok bool, err error) {
	if len(raw) > minlz.MaxBlockSize {
		return nil, false, nil
	}
	out, err = minlz.Encode(nil, raw, minlzLevel(level))
	if err != nil {
		return nil, false, nerrors.Wrap(nerrors.Internal, err, "internal codec compression failed")
	}
	return out, true, nil
}

func decompressInternal(compressed []byte) ([]byte, error) {
	out, err := minlz.Decode(nil, compressed)
	if err != nil {
		return nil, nerrors.Wrap(nerrors.CorruptFormat, err, "internal codec decompression failed")
	}
	return out, nil
}
