// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package stripe

import (
	"github.com/facebookexternal/nimble/compress"
	"github.com/facebookexternal/nimble/encoding"
	nerrors "github.com/facebookexternal/nimble/errors"
	"github.com/facebookexternal/nimble/schema"
	"github.com/facebookexternal/nimble/selection"
	"github.com/facebookexternal/nimble/stream"
)

// fieldBuffer is the per-descriptor buffering state the stripe writer
// pushes values into between flushes (spec.md §4.7: "per-field buffers
// collect values between flushes").
type fieldBuffer interface {
	descriptor() *schema.Descriptor
	rowCount() int
	flushChunk(p selection.Policy) error
	streamWriter() *stream.Writer
	resetForNextStripe()
}

func elemSize(dtype encoding.DataType) uint64 {
	switch dtype {
	case encoding.I8, encoding.U8, encoding.Bool:
		return 1
	case encoding.I16, encoding.U16:
		return 2
	case encoding.I32, encoding.U32, encoding.F32:
		return 4
	case encoding.I64, encoding.U64, encoding.F64:
		return 8
	default:
		return 0
	}
}

func backfillValid(valid *[]bool, target int) {
	for len(*valid) < target {
		*valid = append(*valid, true)
	}
}

type integerField[T encoding.Integer] struct {
	desc     *schema.Descriptor
	dtype    encoding.DataType
	growth   GrowthPolicy
	sw       *stream.Writer
	values   []T
	valid    []bool
	hasNulls bool
}

func newIntegerField[T encoding.Integer](d *schema.Descriptor, compression compress.Options, growth GrowthPolicy) *integerField[T] {
	return &integerField[T]{desc: d, dtype: d.ScalarKind, growth: growth, sw: stream.NewWriter(compression)}
}

func (f *integerField[T]) descriptor() *schema.Descriptor { return f.desc }
func (f *integerField[T]) rowCount() int                  { return len(f.values) }
func (f *integerField[T]) streamWriter() *stream.Writer   { return f.sw }

func (f *integerField[T]) push(values []T, valid []bool) uint64 {
	prevLen := len(f.values)
	appendGrowing(&f.values, f.growth, values)
	if valid != nil {
		f.hasNulls = true
	}
	if f.hasNulls {
		if f.valid == nil {
			f.valid = make([]bool, 0, cap(f.values))
			backfillValid(&f.valid, prevLen)
		}
		if valid != nil {
			f.valid = append(f.valid, valid...)
		} else {
			backfillValid(&f.valid, len(f.values))
		}
	}
	return uint64(len(values)) * elemSize(f.dtype)
}

func (f *integerField[T]) flushChunk(p selection.Policy) error {
	if len(f.values) == 0 {
		return nil
	}
	var payload []byte
	if f.hasNulls {
		payload = selection.SelectNullableInteger(f.values, f.valid, f.dtype, p)
	} else {
		payload = selection.SelectInteger(f.values, f.dtype, p)
	}
	itemCount := len(f.values)
	f.values = f.values[:0]
	f.valid = f.valid[:0]
	return f.sw.AppendChunk(itemCount, payload)
}

func (f *integerField[T]) resetForNextStripe() { f.sw = stream.NewWriter(f.sw.Options()) }

type floatField[T encoding.Float] struct {
	desc     *schema.Descriptor
	dtype    encoding.DataType
	growth   GrowthPolicy
	sw       *stream.Writer
	values   []T
	valid    []bool
	hasNulls bool
}

func newFloatField[T encoding.Float](d *schema.Descriptor, compression compress.Options, growth GrowthPolicy) *floatField[T] {
	return &floatField[T]{desc: d, dtype: d.ScalarKind, growth: growth, sw: stream.NewWriter(compression)}
}

func (f *floatField[T]) descriptor() *schema.Descriptor { return f.desc }
func (f *floatField[T]) rowCount() int                  { return len(f.values) }
func (f *floatField[T]) streamWriter() *stream.Writer   { return f.sw }

func (f *floatField[T]) push(values []T, valid []bool) uint64 {
	prevLen := len(f.values)
	appendGrowing(&f.values, f.growth, values)
	if valid != nil {
		f.hasNulls = true
	}
	if f.hasNulls {
		if f.valid == nil {
			f.valid = make([]bool, 0, cap(f.values))
			backfillValid(&f.valid, prevLen)
		}
		if valid != nil {
			f.valid = append(f.valid, valid...)
		} else {
			backfillValid(&f.valid, len(f.values))
		}
	}
	return uint64(len(values)) * elemSize(f.dtype)
}

func (f *floatField[T]) flushChunk(p selection.Policy) error {
	if len(f.values) == 0 {
		return nil
	}
	var payload []byte
	if f.hasNulls {
		payload = selection.SelectNullableFloat(f.values, f.valid, f.dtype, p)
	} else {
		payload = selection.SelectFloat(f.values, f.dtype, p)
	}
	itemCount := len(f.values)
	f.values = f.values[:0]
	f.valid = f.valid[:0]
	return f.sw.AppendChunk(itemCount, payload)
}

func (f *floatField[T]) resetForNextStripe() { f.sw = stream.NewWriter(f.sw.Options()) }

type boolField struct {
	desc     *schema.Descriptor
	growth   GrowthPolicy
	sw       *stream.Writer
	values   []bool
	valid    []bool
	hasNulls bool
}

func newBoolField(d *schema.Descriptor, compression compress.Options, growth GrowthPolicy) *boolField {
	return &boolField{desc: d, growth: growth, sw: stream.NewWriter(compression)}
}

func (f *boolField) descriptor() *schema.Descriptor { return f.desc }
func (f *boolField) rowCount() int                  { return len(f.values) }
func (f *boolField) streamWriter() *stream.Writer   { return f.sw }

func (f *boolField) push(values []bool, valid []bool) uint64 {
	prevLen := len(f.values)
	appendGrowing(&f.values, f.growth, values)
	if valid != nil {
		f.hasNulls = true
	}
	if f.hasNulls {
		if f.valid == nil {
			f.valid = make([]bool, 0, cap(f.values))
			backfillValid(&f.valid, prevLen)
		}
		if valid != nil {
			f.valid = append(f.valid, valid...)
		} else {
			backfillValid(&f.valid, len(f.values))
		}
	}
	return uint64(len(values))
}

func (f *boolField) flushChunk(p selection.Policy) error {
	if len(f.values) == 0 {
		return nil
	}
	var payload []byte
	if f.hasNulls {
		payload = selection.SelectNullableBool(f.values, f.valid, p)
	} else {
		payload = selection.SelectBool(f.values, p)
	}
	itemCount := len(f.values)
	f.values = f.values[:0]
	f.valid = f.valid[:0]
	return f.sw.AppendChunk(itemCount, payload)
}

func (f *boolField) resetForNextStripe() { f.sw = stream.NewWriter(f.sw.Options()) }

type stringField struct {
	desc     *schema.Descriptor
	dtype    encoding.DataType
	growth   GrowthPolicy
	sw       *stream.Writer
	values   []string
	valid    []bool
	hasNulls bool
}

func newStringField(d *schema.Descriptor, compression compress.Options, growth GrowthPolicy) *stringField {
	return &stringField{desc: d, dtype: d.ScalarKind, growth: growth, sw: stream.NewWriter(compression)}
}

func (f *stringField) descriptor() *schema.Descriptor { return f.desc }
func (f *stringField) rowCount() int                  { return len(f.values) }
func (f *stringField) streamWriter() *stream.Writer   { return f.sw }

func (f *stringField) push(values []string, valid []bool) uint64 {
	prevLen := len(f.values)
	appendGrowing(&f.values, f.growth, values)
	if valid != nil {
		f.hasNulls = true
	}
	if f.hasNulls {
		if f.valid == nil {
			f.valid = make([]bool, 0, cap(f.values))
			backfillValid(&f.valid, prevLen)
		}
		if valid != nil {
			f.valid = append(f.valid, valid...)
		} else {
			backfillValid(&f.valid, len(f.values))
		}
	}
	var bytes uint64
	for _, s := range values {
		bytes += uint64(len(s))
	}
	return bytes
}

func (f *stringField) flushChunk(p selection.Policy) error {
	if len(f.values) == 0 {
		return nil
	}
	var payload []byte
	if f.hasNulls {
		payload = selection.SelectNullableString(f.values, f.valid, f.dtype, p)
	} else {
		payload = selection.SelectString(f.values, f.dtype, p)
	}
	itemCount := len(f.values)
	f.values = f.values[:0]
	f.valid = f.valid[:0]
	return f.sw.AppendChunk(itemCount, payload)
}

func (f *stringField) resetForNextStripe() { f.sw = stream.NewWriter(f.sw.Options()) }

var errFieldTypeMismatch = nerrors.New(nerrors.Internal, "field buffer type mismatch for stream offset")
