// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package xpu

import "github.com/xpudb/xpudb/pkg/sql/types"

// TypeSupportsGroupKey reports whether the device can hash and
// equality-compare values of t under the given collation, as required for
// a device-side grouping key. Fixed-width scalar types are supported
// unconditionally; strings only under binary ("C") collation because the
// device kernels compare bytewise.
func TypeSupportsGroupKey(t *types.T, collation string) bool {
	switch t.Family() {
	case types.BoolFamily, types.IntFamily, types.FloatFamily,
		types.DecimalFamily, types.MoneyFamily,
		types.DateFamily, types.TimeFamily,
		types.TimestampFamily, types.TimestampTZFamily:
		return true
	case types.StringFamily:
		return collation == "" || collation == "C"
	case types.BytesFamily:
		return true
	default:
		return false
	}
}

// TypeSupportsValue reports whether values of t can appear at all in a
// device expression.
func TypeSupportsValue(t *types.T) bool {
	switch t.Family() {
	case types.AnyFamily:
		return false
	default:
		return true
	}
}
