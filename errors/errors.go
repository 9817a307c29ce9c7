// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package errors defines the stable error taxonomy shared by every package
// in this module. Every fallible path in the tablet writer and reader
// returns an error marked with one of the Kind sentinels below, so callers
// can distinguish corruption from configuration mistakes without parsing
// message text.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Kind classifies an error into the stable taxonomy described by the
// format's error handling design. Kind values are never renumbered; new
// kinds are appended.
type Kind int

const (
	// Unknown is used only for errors produced outside this module that have
	// not been classified.
	Unknown Kind = iota
	// CorruptFormat indicates a magic/postscript/checksum/encoding-prefix
	// validation failure, bounds overrun, chunk size mismatch, or stream
	// directory inconsistency.
	CorruptFormat
	// UnsupportedVersion indicates the tablet's major version is newer than
	// this build understands.
	UnsupportedVersion
	// SchemaMismatch indicates a requested logical type is not convertible
	// to the stored type (e.g. a narrowing cast, or an incompatible kind).
	SchemaMismatch
	// UnsupportedEncoding indicates an unknown encoding kind, or an encoding
	// paired with a data type it does not support.
	UnsupportedEncoding
	// OutOfRange indicates a stripe, stream, or row index outside the file.
	OutOfRange
	// IoError indicates the underlying source or sink failed; the cause is
	// always attached and stays reachable through the error chain.
	IoError
	// InvalidArgument indicates a configuration error, such as an empty
	// feature list or a reference to an unknown flat-map column.
	InvalidArgument
	// Internal indicates a should-not-happen invariant violation (e.g. a
	// layout planner size mismatch). Internal errors are never expected in
	// correct operation.
	Internal
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case CorruptFormat:
		return "CorruptFormat"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case SchemaMismatch:
		return "SchemaMismatch"
	case UnsupportedEncoding:
		return "UnsupportedEncoding"
	case OutOfRange:
		return "OutOfRange"
	case IoError:
		return "IoError"
	case InvalidArgument:
		return "InvalidArgument"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// sentinels holds one marker error per Kind; errors returned by New/Wrap are
// Mark-ed against the corresponding sentinel so errors.Is(err, Kind) works.
var sentinels = map[Kind]error{
	CorruptFormat:       errors.New("nimble: corrupt format"),
	UnsupportedVersion:  errors.New("nimble: unsupported version"),
	SchemaMismatch:      errors.New("nimble: schema mismatch"),
	UnsupportedEncoding: errors.New("nimble: unsupported encoding"),
	OutOfRange:          errors.New("nimble: out of range"),
	IoError:             errors.New("nimble: io error"),
	InvalidArgument:     errors.New("nimble: invalid argument"),
	Internal:            errors.New("nimble: internal error"),
}

// Sentinel returns the marker error associated with kind, for use with
// errors.Is by callers that only have access to this package.
func Sentinel(kind Kind) error {
	return sentinels[kind]
}

// New creates an error of the given kind with a redaction-safe message.
func New(kind Kind, msg string) error {
	return errors.Mark(errors.New(msg), sentinels[kind])
}

// Newf creates an error of the given kind, formatting msg with args the way
// errors.Newf does.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), sentinels[kind])
}

// Wrap attaches kind and msg to an existing cause, preserving the original
// error in the chain (several wrapper layers deep, so it is found with
// errors.Is/errors.As or by unwrapping repeatedly, not by one errors.Unwrap).
func Wrap(kind Kind, cause error, msg string) error {
	if cause == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(cause, msg), sentinels[kind])
}

// Wrapf is like Wrap but accepts a format string.
func Wrapf(kind Kind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(cause, format, args...), sentinels[kind])
}

// Is reports whether err is marked with kind.
func Is(err error, kind Kind) bool {
	sentinel, ok := sentinels[kind]
	if !ok {
		return false
	}
	return errors.Is(err, sentinel)
}

// KindOf returns the Kind err was marked with, or Unknown if it was not
// produced through this package.
func KindOf(err error) Kind {
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return Unknown
}

// Corrupt builds a CorruptFormat error carrying the stripe/stream/offset
// coordinates that the reader failure semantics (spec §4.11) require: any
// corrupt chunk must surface CorruptFormat{stripe, stream, offset}.
func Corrupt(stripe, stream int, offset int64, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return Newf(CorruptFormat, "corrupt format at stripe=%s stream=%s offset=%s: %s",
		redact.Safe(stripe), redact.Safe(stream), redact.Safe(offset), msg)
}

// IO wraps an I/O failure from a Source or Sink.
func IO(cause error, msg string) error {
	return Wrap(IoError, cause, msg)
}
