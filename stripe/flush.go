// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package stripe

import "github.com/facebookexternal/nimble/stream"

// StripeProgress summarizes a stripe writer's buffered state for a
// FlushPolicy to decide against.
type StripeProgress struct {
	RawStripeSize uint64
	RowCount      uint64
}

// FlushPolicy decides, after each pushed batch, whether the writer should
// leave buffers as-is, cut a chunk, or close out the whole stripe.
type FlushPolicy interface {
	ShouldFlush(progress StripeProgress) stream.FlushDecision
	OnClose()
}

// RawSizeFlushPolicy flushes the whole stripe once the raw buffered size
// crosses a threshold, ported from
// original_source/dwio/nimble/velox/FlushPolicy.cpp's
// RawStripeSizeFlushPolicy::shouldFlush.
type RawSizeFlushPolicy struct {
	rawStripeSize uint64
}

// NewRawSizeFlushPolicy returns a policy that requests a stripe flush once
// the buffered raw size reaches threshold bytes.
func NewRawSizeFlushPolicy(threshold uint64) *RawSizeFlushPolicy {
	return &RawSizeFlushPolicy{rawStripeSize: threshold}
}

// ShouldFlush implements FlushPolicy.
func (p *RawSizeFlushPolicy) ShouldFlush(progress StripeProgress) stream.FlushDecision {
	if progress.RawStripeSize >= p.rawStripeSize {
		return stream.FlushStripe
	}
	return stream.FlushNone
}

// OnClose implements FlushPolicy.
func (p *RawSizeFlushPolicy) OnClose() {}
