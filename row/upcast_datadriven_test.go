// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package row

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/facebookexternal/nimble/encoding"
)

func parseDataType(s string) (encoding.DataType, error) {
	switch s {
	case "i8":
		return encoding.I8, nil
	case "u8":
		return encoding.U8, nil
	case "i16":
		return encoding.I16, nil
	case "u16":
		return encoding.U16, nil
	case "i32":
		return encoding.I32, nil
	case "u32":
		return encoding.U32, nil
	case "i64":
		return encoding.I64, nil
	case "u64":
		return encoding.U64, nil
	case "f32":
		return encoding.F32, nil
	case "f64":
		return encoding.F64, nil
	case "bool":
		return encoding.Bool, nil
	case "string":
		return encoding.String, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

func TestUpcastRules(t *testing.T) {
	datadriven.RunTest(t, "testdata/upcast", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "upcast":
			var stored, requested string
			td.ScanArgs(t, "stored", &stored)
			td.ScanArgs(t, "requested", &requested)
			sd, err := parseDataType(stored)
			if err != nil {
				return err.Error()
			}
			rd, err := parseDataType(requested)
			if err != nil {
				return err.Error()
			}
			if err := validateUpcast(sd, rd); err != nil {
				return err.Error()
			}
			return "ok"
		default:
			return fmt.Sprintf("unknown command %q", td.Cmd)
		}
	})
}
