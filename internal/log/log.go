// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package log defines the leveled-logging seam for the writer and reader
// paths: the Logger interface, the NoOp default, and OrNoOp for replacing a
// nil Logger with NoOp. No writer or reader option in this module takes a
// Logger, and no package in it logs through one.
package log

import "fmt"

// Logger is the minimal leveled-logging interface the core depends on. A
// concrete metrics/observability sink is an external collaborator (out of
// scope for this module) and can be adapted to this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// NoOp discards Infof, Warningf and Errorf output; its Fatalf panics with
// the formatted message. It is the default Logger when none is configured.
var NoOp Logger = noOpLogger{}

type noOpLogger struct{}

func (noOpLogger) Infof(string, ...interface{})    {}
func (noOpLogger) Warningf(string, ...interface{}) {}
func (noOpLogger) Errorf(string, ...interface{})   {}
func (noOpLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// OrNoOp returns l, or NoOp if l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOp
	}
	return l
}
