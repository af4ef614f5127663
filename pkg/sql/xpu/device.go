// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package xpu models the restricted accelerator execution domain: which
// devices exist, what they cost relative to host execution, and which
// types and expressions they can evaluate.
package xpu

import (
	"github.com/xpudb/xpudb/pkg/settings"
	"github.com/xpudb/xpudb/pkg/sql/plan"
)

// DevKind is a bitmask of device classes.
type DevKind uint32

const (
	// DevKindGPU is a discrete GPU.
	DevKindGPU DevKind = 1 << iota
	// DevKindDPU is a data-processing unit near the storage path.
	DevKindDPU

	// DevKindAny matches every device class.
	DevKindAny = DevKindGPU | DevKindDPU
)

func (k DevKind) String() string {
	switch k & DevKindAny {
	case DevKindGPU:
		return "gpu"
	case DevKindDPU:
		return "dpu"
	default:
		return "xpu"
	}
}

// Device cost knobs. Operator costs are far below the host's because a
// device evaluates thousands of rows concurrently; tuple costs are far
// above because each result row crosses the device-host boundary.
var (
	GPUOperatorCost = settings.RegisterFloatSetting(
		"sql.xpu.gpu.operator_cost",
		"cost of one operator evaluation on a GPU",
		0.0025/16,
	)
	GPUTupleCost = settings.RegisterFloatSetting(
		"sql.xpu.gpu.tuple_cost",
		"cost of fetching one result tuple from a GPU",
		0.01,
	)
	DPUOperatorCost = settings.RegisterFloatSetting(
		"sql.xpu.dpu.operator_cost",
		"cost of one operator evaluation on a DPU",
		0.0025/4,
	)
	DPUTupleCost = settings.RegisterFloatSetting(
		"sql.xpu.dpu.tuple_cost",
		"cost of fetching one result tuple from a DPU",
		0.05,
	)
)

// OperatorCost returns the per-operator cost for the device class.
func OperatorCost(kind DevKind) float64 {
	if kind&DevKindAny == DevKindDPU {
		return DPUOperatorCost.Get()
	}
	return GPUOperatorCost.Get()
}

// TupleCost returns the device-to-host transfer cost per result tuple.
func TupleCost(kind DevKind) float64 {
	if kind&DevKindAny == DevKindDPU {
		return DPUTupleCost.Get()
	}
	return GPUTupleCost.Get()
}

// OperatorRatio is the device operator cost relative to the host's; it
// scales host-computed target-list costs onto the device.
func OperatorRatio(kind DevKind) float64 {
	cpu := plan.CPUOperatorCost.Get()
	if cpu <= 0 {
		return 1
	}
	return OperatorCost(kind) / cpu
}
