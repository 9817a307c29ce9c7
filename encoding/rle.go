// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package encoding

import (
	"github.com/facebookexternal/nimble/bitops"
	nerrors "github.com/facebookexternal/nimble/errors"
)

// EncodeRLE composes a run-length payload from a raw run-length array and an
// already-encoded nested values payload (one value per run, selected by the
// caller — typically the selection policy's recursive choice for the inner
// numeric encoding). Layout:
// [runs_encoding_length:u32][run lengths, raw u32 each][values payload].
func EncodeRLE(dtype DataType, rowCount int, runLengths []uint32, valuesPayload []byte) []byte {
	runsLen := len(runLengths) * 4
	buf := make([]byte, kPrefixSize+4+runsLen+len(valuesPayload))
	writePrefix(buf, KindRLE, dtype, uint32(rowCount))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, uint32(runsLen))
	rest = rest[4:]
	for i, rl := range runLengths {
		bitops.PutUint32(rest[i*4:], rl)
	}
	rest = rest[runsLen:]
	copy(rest, valuesPayload)
	return buf
}

// EncodeRLEBool composes a run-length payload for a bool column. Because
// runs must strictly alternate, the values payload degenerates to a single
// byte recording the value of the first run.
func EncodeRLEBool(rowCount int, runLengths []uint32, initialValue bool) []byte {
	runsLen := len(runLengths) * 4
	buf := make([]byte, kPrefixSize+4+runsLen+1)
	writePrefix(buf, KindRLE, Bool, uint32(rowCount))
	rest := buf[kPrefixSize:]
	bitops.PutUint32(rest, uint32(runsLen))
	rest = rest[4:]
	for i, rl := range runLengths {
		bitops.PutUint32(rest[i*4:], rl)
	}
	rest = rest[runsLen:]
	if initialValue {
		rest[0] = 1
	}
	return buf
}

// runCursor walks a raw u32 run-length array, tracking which logical row
// index begins the run currently under the cursor. It persists across
// Skip/Materialize calls so repeated small reads don't re-scan from zero.
type runCursor struct {
	runs     []uint32
	runIdx   int
	runStart int // logical row index where runs[runIdx] begins
}

func newRunCursor(runs []uint32) runCursor { return runCursor{runs: runs} }

// locate advances the cursor so that logical row index pos falls within
// runs[runIdx], returning the run index and pos's offset within it.
func (c *runCursor) locate(pos int) (runIdx, offsetInRun int, err error) {
	for c.runIdx < len(c.runs) && pos >= c.runStart+int(c.runs[c.runIdx]) {
		c.runStart += int(c.runs[c.runIdx])
		c.runIdx++
	}
	if c.runIdx >= len(c.runs) {
		return 0, 0, nerrors.Newf(nerrors.CorruptFormat, "rle cursor ran past declared runs at row %d", pos)
	}
	return c.runIdx, pos - c.runStart, nil
}

// rleDecodeCommon parses the common [runs_encoding_length][run lengths]
// prefix shared by both the numeric and bool RLE layouts.
func rleDecodeCommon(rest []byte) (runs []uint32, remainder []byte, err error) {
	if len(rest) < 4 {
		return nil, nil, nerrors.Newf(nerrors.CorruptFormat, "rle header truncated")
	}
	runsLen, _ := bitops.GetUint32(rest)
	rest = rest[4:]
	if len(rest) < int(runsLen) || runsLen%4 != 0 {
		return nil, nil, nerrors.Newf(nerrors.CorruptFormat, "rle run-lengths array truncated or misaligned")
	}
	runs = make([]uint32, runsLen/4)
	for i := range runs {
		runs[i], _ = bitops.GetUint32(rest[i*4:])
	}
	return runs, rest[runsLen:], nil
}

// RLEDecoder decodes a numeric RLE-encoded payload whose per-run values are
// themselves a nested encoding. It maintains (current_value,
// copies_remaining) implicitly via runCursor plus a one-value cache fetched
// the first time a run is touched by either Skip or Materialize.
type RLEDecoder[T Numeric] struct {
	dtype    DataType
	n        int
	runs     []uint32
	values   Decoder[T]
	cursor   runCursor
	pos      int
	loadedAt int // index of the run whose value current holds, or -1
	current  T
}

func decodeRLE[T Numeric](p prefix, rest []byte) (*RLEDecoder[T], error) {
	runs, valuesPayload, err := rleDecodeCommon(rest)
	if err != nil {
		return nil, err
	}
	valuesEnc, err := Decode(valuesPayload)
	if err != nil {
		return nil, err
	}
	values, ok := valuesEnc.(Decoder[T])
	if !ok {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "rle values payload has unexpected element type")
	}
	return &RLEDecoder[T]{
		dtype: p.dtype, n: int(p.rowCount), runs: runs, values: values,
		cursor: newRunCursor(runs), loadedAt: -1,
	}, nil
}

func (d *RLEDecoder[T]) Kind() Kind         { return KindRLE }
func (d *RLEDecoder[T]) DataType() DataType { return d.dtype }
func (d *RLEDecoder[T]) RowCount() int      { return d.n }

func (d *RLEDecoder[T]) Skip(n int) error {
	return d.walk(n, nil)
}

func (d *RLEDecoder[T]) Materialize(n int, out []T) error {
	return d.walk(n, out)
}

// walk advances n logical rows from the cursor, filling out (if non-nil).
// Every run is touched at most once via d.values regardless of how many
// separate Skip/Materialize calls cross it, since the child decoder must be
// called exactly once per run to stay in sync.
func (d *RLEDecoder[T]) walk(n int, out []T) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "rle materialize past end: pos=%d n=%d rowCount=%d", d.pos, n, d.n)
	}
	produced := 0
	for produced < n {
		runIdx, offset, err := d.cursor.locate(d.pos)
		if err != nil {
			return err
		}
		if runIdx != d.loadedAt {
			var tmp [1]T
			if err := d.values.Materialize(1, tmp[:]); err != nil {
				return err
			}
			d.current = tmp[0]
			d.loadedAt = runIdx
		}
		runLen := int(d.runs[runIdx])
		take := runLen - offset
		if take > n-produced {
			take = n - produced
		}
		if out != nil {
			for i := 0; i < take; i++ {
				out[produced+i] = d.current
			}
		}
		produced += take
		d.pos += take
	}
	return nil
}

// RLEBoolDecoder decodes a bool RLE-encoded payload. Runs strictly alternate
// starting from initialValue, so no nested values decoder is needed.
type RLEBoolDecoder struct {
	n            int
	runs         []uint32
	initialValue bool
	cursor       runCursor
	pos          int
}

func decodeRLEBool(p prefix, rest []byte) (*RLEBoolDecoder, error) {
	runs, remainder, err := rleDecodeCommon(rest)
	if err != nil {
		return nil, err
	}
	if len(remainder) < 1 {
		return nil, nerrors.Newf(nerrors.CorruptFormat, "rle bool initial value truncated")
	}
	return &RLEBoolDecoder{n: int(p.rowCount), runs: runs, initialValue: remainder[0] != 0, cursor: newRunCursor(runs)}, nil
}

func (d *RLEBoolDecoder) Kind() Kind         { return KindRLE }
func (d *RLEBoolDecoder) DataType() DataType { return Bool }
func (d *RLEBoolDecoder) RowCount() int      { return d.n }

func (d *RLEBoolDecoder) valueAt(runIdx int) bool {
	if runIdx%2 == 0 {
		return d.initialValue
	}
	return !d.initialValue
}

func (d *RLEBoolDecoder) walk(n int, out []bool) error {
	if d.pos+n > d.n {
		return nerrors.Newf(nerrors.CorruptFormat, "rle bool materialize past end")
	}
	produced := 0
	for produced < n {
		runIdx, offset, err := d.cursor.locate(d.pos)
		if err != nil {
			return err
		}
		runLen := int(d.runs[runIdx])
		take := runLen - offset
		if take > n-produced {
			take = n - produced
		}
		if out != nil {
			v := d.valueAt(runIdx)
			for i := 0; i < take; i++ {
				out[produced+i] = v
			}
		}
		produced += take
		d.pos += take
	}
	return nil
}

func (d *RLEBoolDecoder) Skip(n int) error            { return d.walk(n, nil) }
func (d *RLEBoolDecoder) Materialize(n int, out []bool) error { return d.walk(n, out) }
