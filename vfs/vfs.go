// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package vfs defines the Source/Sink abstraction the tablet writer and
// reader use for all file I/O, the way cockroachdb-pebble's objstorage
// package abstracts sstable reads behind a Readable handle instead of
// talking to *os.File directly. Concrete backends (local disk, a
// distributed blob store) are external collaborators; this package only
// fixes the seam and ships an in-memory implementation for tests.
package vfs

import (
	"io"
	"sync"

	nerrors "github.com/facebookexternal/nimble/errors"
)

// Source is a read-only, randomly addressable byte sequence — a tablet file
// opened for reading. It mirrors objstorage.Readable's io.ReaderAt + Size
// shape rather than reaching for a full filesystem interface, because the
// tablet reader never needs directory operations.
type Source interface {
	io.ReaderAt
	io.Closer
	// Size returns the total length of the underlying byte sequence.
	Size() (int64, error)
}

// Sink is an append-only destination a tablet writer appends stripes and a
// footer to. Nimble never rewrites bytes once written, so Sink exposes
// Write, not WriteAt.
type Sink interface {
	io.Writer
	io.Closer
}

// MemSource is an in-memory Source backed by a byte slice, used by tests and
// by callers that already have the whole file buffered.
type MemSource struct {
	data []byte
}

// NewMemSource wraps data (without copying) as a Source.
func NewMemSource(data []byte) *MemSource { return &MemSource{data: data} }

// ReadAt implements io.ReaderAt.
func (m *MemSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, nerrors.Newf(nerrors.OutOfRange, "ReadAt offset %d out of range [0, %d]", off, len(m.data))
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size implements Source.
func (m *MemSource) Size() (int64, error) { return int64(len(m.data)), nil }

// Close implements io.Closer. MemSource has nothing to release.
func (m *MemSource) Close() error { return nil }

// MemSink is an in-memory Sink that accumulates every Write into a growable
// buffer, the way pebble's vfs.MemFS backs in-memory files for unit tests.
type MemSink struct {
	mu  sync.Mutex
	buf []byte
}

// NewMemSink returns an empty in-memory Sink.
func NewMemSink() *MemSink { return &MemSink{} }

// Write implements io.Writer.
func (m *MemSink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = append(m.buf, p...)
	return len(p), nil
}

// Close implements io.Closer. MemSink has nothing to release.
func (m *MemSink) Close() error { return nil }

// Bytes returns the accumulated contents. The returned slice aliases the
// sink's internal buffer and must be treated as read-only by the caller.
func (m *MemSink) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf
}

// Source returns a Source view over the bytes written so far, letting a test
// write a tablet and immediately open a reader over it without a round trip
// through a real filesystem.
func (m *MemSink) Source() *MemSource {
	return NewMemSource(m.Bytes())
}
