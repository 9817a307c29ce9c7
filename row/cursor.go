// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/stream"
)

// cursorState is the per-field-reader state machine spec.md §4.11
// describes: Idle → Decoding(encoding) → Exhausted.
type cursorState uint8

const (
	stateIdle cursorState = iota
	stateDecoding
	stateExhausted
)

// streamCursor walks one stream's chunk sequence, decoding lazily. It is
// the unit stripe_change/load_chunk transitions apply to: stripe_change
// (reset) discards any in-flight encoding and returns the cursor to Idle;
// load_chunk happens implicitly inside skip/materialize whenever the
// current chunk is exhausted and the stream has more left.
type streamCursor struct {
	streamID uint32
	dtype    encoding.DataType

	r         *stream.Reader
	state     cursorState
	enc       encoding.Encoding
	remaining int

	stripeIdx int
}

func newStreamCursor(streamID uint32, dtype encoding.DataType) *streamCursor {
	return &streamCursor{streamID: streamID, dtype: dtype, state: stateExhausted}
}

// reset implements stripe_change: the cursor now walks buf (the freshly
// loaded bytes for this stream in the new stripe), starting Idle. A nil or
// empty buf represents a stream with no data in this stripe (e.g. a
// flat-map key that did not exist yet, or an all-default column); it reads
// back as an exhausted cursor with no rows.
func (c *streamCursor) reset(stripeIdx int, buf []byte) {
	c.stripeIdx = stripeIdx
	if len(buf) == 0 {
		c.r = nil
		c.state = stateExhausted
		c.enc = nil
		c.remaining = 0
		return
	}
	c.r = stream.NewReader(buf)
	c.state = stateIdle
	c.enc = nil
	c.remaining = 0
}

// empty reports whether the stream had no bytes at all in the current
// stripe (a missing or zero-length stream per spec.md §4.10), as opposed
// to a stream whose chunks have simply all been consumed.
func (c *streamCursor) empty() bool { return c.r == nil }

// ensureChunk implements load_chunk: if the cursor has no rows left in its
// current chunk, it decodes the next one. It leaves the cursor Exhausted
// (remaining == 0, no error) once the stream is fully consumed.
func (c *streamCursor) ensureChunk() error {
	if c.remaining > 0 {
		return nil
	}
	if c.r == nil || !c.r.HasNext() {
		c.state = stateExhausted
		return nil
	}
	enc, n, err := c.r.NextChunk()
	if err != nil {
		return nerrors.Corrupt(c.stripeIdx, int(c.streamID), -1, "decoding chunk: %v", err)
	}
	c.enc = enc
	c.remaining = n
	c.state = stateDecoding
	return nil
}

// skip advances n logical rows without materializing their values. Whole
// chunks the target range doesn't touch are skipped at the header level
// (stream.Reader.SkipChunk), never decoded.
func (c *streamCursor) skip(n int) error {
	if c.empty() {
		return nil
	}
	for n > 0 {
		if c.remaining == 0 {
			if c.r != nil && c.r.HasNext() {
				if cnt, err := c.r.PeekItemCount(); err == nil && cnt <= n {
					if err := c.r.SkipChunk(); err != nil {
						return nerrors.Corrupt(c.stripeIdx, int(c.streamID), -1, "skipping chunk: %v", err)
					}
					n -= cnt
					continue
				}
			}
			if err := c.ensureChunk(); err != nil {
				return err
			}
			if c.state == stateExhausted {
				return nerrors.Newf(nerrors.OutOfRange, "stream %d: skip past end of stripe", c.streamID)
			}
		}
		take := n
		if take > c.remaining {
			take = c.remaining
		}
		if err := c.enc.Skip(take); err != nil {
			return nerrors.Corrupt(c.stripeIdx, int(c.streamID), -1, "skipping within chunk: %v", err)
		}
		c.remaining -= take
		n -= take
	}
	return nil
}

// materializeInto decodes the next n logical values via fill, which is
// handed the chunk's Encoding, the number of rows to take from it
// (min(rows still wanted, chunk rows remaining)) and the output offset
// those rows start at; fill must consume exactly take rows.
func (c *streamCursor) materializeInto(n int, fill func(enc encoding.Encoding, take, outOffset int) error) error {
	consumed := 0
	for n > 0 {
		if c.remaining == 0 {
			if err := c.ensureChunk(); err != nil {
				return err
			}
			if c.state == stateExhausted {
				return nerrors.Newf(nerrors.OutOfRange, "stream %d: read past end of stripe", c.streamID)
			}
		}
		take := n
		if take > c.remaining {
			take = c.remaining
		}
		if err := fill(c.enc, take, consumed); err != nil {
			return nerrors.Corrupt(c.stripeIdx, int(c.streamID), -1, "decoding chunk payload: %v", err)
		}
		c.remaining -= take
		n -= take
		consumed += take
	}
	return nil
}
