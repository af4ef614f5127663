// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import "github.com/xpudb/xpudb/pkg/settings"

var (
	// Enabled is the master switch for device pre-aggregation planning.
	Enabled = settings.RegisterBoolSetting(
		"sql.xpu.preagg.enabled",
		"generate device partial-aggregation plans",
		true,
	)

	// NumericAggsEnabled gates the aggregate rewrites that compute numeric
	// (arbitrary-precision) aggregates in float8 on the device. The result
	// can differ from host execution in the last bits of the mantissa.
	NumericAggsEnabled = settings.RegisterBoolSetting(
		"sql.xpu.preagg.numeric_aggs.enabled",
		"allow device pre-aggregation of numeric-typed aggregates using float8 arithmetic",
		true,
	)

	// PartitionWiseEnabled gates pushing partial aggregation below a
	// partitioned table's append node. The plan model has no partitioned
	// append kind yet, so nothing consumes it.
	PartitionWiseEnabled = settings.RegisterBoolSetting(
		"sql.xpu.preagg.partitionwise.enabled",
		"push device partial aggregation below partitioned-table appends",
		true,
	)

	// HLLRegisterBits sets the HyperLogLog precision used when sampling
	// tables for distinct-count statistics.
	HLLRegisterBits = settings.RegisterBoundedIntSetting(
		"sql.xpu.preagg.hll_precision",
		"log2 of the HyperLogLog register count used for distinct-count sketches",
		9, 4, 15,
	)
)
