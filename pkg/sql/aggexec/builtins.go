// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package aggexec provides the builtin function catalog for the
// aggregate subsystem and a reference executor for the two-stage
// (device partial, host final) aggregation plans.
package aggexec

import (
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/sql/xpu"
)

// NewSystemCatalog builds a catalog populated with the standard
// aggregates, the device partial functions, the host final aggregates
// consuming them, and the numeric cast graph. Every function the
// aggregate transformation catalog names resolves against it.
func NewSystemCatalog() *catalog.MemCatalog {
	c := catalog.NewMemCatalog()

	agg := func(name string, args []*types.T, ret *types.T) catalog.FuncID {
		return c.RegisterFunction(catalog.FunctionDescriptor{
			Name: name, Namespace: catalog.SysNamespace,
			ArgTypes: args, ReturnType: ret, IsAggregate: true, Cost: 1,
		})
	}
	xagg := func(name string, args []*types.T, ret *types.T) catalog.FuncID {
		return c.RegisterFunction(catalog.FunctionDescriptor{
			Name: name, Namespace: catalog.XPUNamespace,
			ArgTypes: args, ReturnType: ret, IsAggregate: true, Cost: 1,
		})
	}
	xfn := func(name string, args []*types.T, ret *types.T) catalog.FuncID {
		id := c.RegisterFunction(catalog.FunctionDescriptor{
			Name: name, Namespace: catalog.XPUNamespace,
			ArgTypes: args, ReturnType: ret, Cost: 1,
		})
		xpu.RegisterDevFunc(catalog.XPUNamespace, name, xpu.DevKindAny)
		return id
	}
	castFn := func(name string, src, dst *types.T) {
		id := c.RegisterFunction(catalog.FunctionDescriptor{
			Name: name, Namespace: catalog.SysNamespace,
			ArgTypes: []*types.T{src}, ReturnType: dst, Cost: 1,
		})
		xpu.RegisterDevFunc(catalog.SysNamespace, name, xpu.DevKindAny)
		c.RegisterCast(src, dst, catalog.CastMethodFunction, id)
	}

	// Standard aggregates, system namespace.
	agg("count", nil, types.Int8)
	agg("count", []*types.T{types.Any}, types.Int8)

	minMaxTypes := []*types.T{
		types.Int2, types.Int4, types.Int8, types.Float4, types.Float8,
		types.Numeric, types.Money, types.Date, types.Time,
		types.Timestamp, types.TimestampTZ,
	}
	for _, t := range minMaxTypes {
		agg("min", []*types.T{t}, t)
		agg("max", []*types.T{t}, t)
	}

	agg("sum", []*types.T{types.Int2}, types.Int8)
	agg("sum", []*types.T{types.Int4}, types.Int8)
	agg("sum", []*types.T{types.Int8}, types.Numeric)
	agg("sum", []*types.T{types.Float4}, types.Float4)
	agg("sum", []*types.T{types.Float8}, types.Float8)
	agg("sum", []*types.T{types.Numeric}, types.Numeric)
	agg("sum", []*types.T{types.Money}, types.Money)

	for _, t := range []*types.T{types.Int2, types.Int4, types.Int8, types.Numeric} {
		agg("avg", []*types.T{t}, types.Numeric)
	}
	agg("avg", []*types.T{types.Float4}, types.Float8)
	agg("avg", []*types.T{types.Float8}, types.Float8)

	varianceAggs := []string{
		"stddev", "stddev_samp", "stddev_pop", "variance", "var_samp", "var_pop",
	}
	for _, name := range varianceAggs {
		for _, t := range []*types.T{types.Int2, types.Int4, types.Int8, types.Numeric} {
			agg(name, []*types.T{t}, types.Numeric)
		}
		agg(name, []*types.T{types.Float4}, types.Float8)
		agg(name, []*types.T{types.Float8}, types.Float8)
	}

	ff := []*types.T{types.Float8, types.Float8}
	for _, name := range []string{
		"corr", "covar_samp", "covar_pop", "regr_avgx", "regr_avgy",
		"regr_intercept", "regr_r2", "regr_slope",
		"regr_sxx", "regr_sxy", "regr_syy",
	} {
		agg(name, ff, types.Float8)
	}
	agg("regr_count", ff, types.Int8)

	// Device partial functions, xpu namespace. Return types are fixed by
	// the accumulation action behind each function.
	xfn("nrows", nil, types.Int8)
	xfn("nrows", []*types.T{types.Any}, types.Int8)
	for _, t := range minMaxTypes {
		if t == types.Numeric {
			// numeric min/max run through pmin/pmax(float8).
			continue
		}
		xfn("pmin", []*types.T{t}, types.Bytes)
		xfn("pmax", []*types.T{t}, types.Bytes)
	}
	xfn("psum", []*types.T{types.Int8}, types.Int8)
	xfn("psum", []*types.T{types.Float4}, types.Float8)
	xfn("psum", []*types.T{types.Float8}, types.Float8)
	xfn("psum", []*types.T{types.Money}, types.Int8)
	xfn("pavg", []*types.T{types.Int8}, types.Bytes)
	xfn("pavg", []*types.T{types.Float8}, types.Bytes)
	xfn("pvariance", []*types.T{types.Float8}, types.Bytes)
	xfn("pcovar", ff, types.Bytes)

	// Host final aggregates consuming the partial results, xpu namespace.
	xagg("sum", []*types.T{types.Int8}, types.Int8)
	xagg("sum_f4", []*types.T{types.Float8}, types.Float4)
	xagg("sum_num", []*types.T{types.Float8}, types.Numeric)
	xagg("sum_cash", []*types.T{types.Int8}, types.Money)

	finalMinMax := []struct {
		suffix string
		ret    *types.T
	}{
		{"i2", types.Int2}, {"i4", types.Int4}, {"i8", types.Int8},
		{"f4", types.Float4}, {"f8", types.Float8},
		{"num", types.Numeric}, {"cash", types.Money},
		{"date", types.Date}, {"time", types.Time},
		{"ts", types.Timestamp}, {"tstz", types.TimestampTZ},
	}
	for _, fm := range finalMinMax {
		xagg("min_"+fm.suffix, []*types.T{types.Bytes}, fm.ret)
		xagg("max_"+fm.suffix, []*types.T{types.Bytes}, fm.ret)
	}

	xagg("avg_int", []*types.T{types.Bytes}, types.Numeric)
	xagg("avg_fp", []*types.T{types.Bytes}, types.Float8)
	xagg("avg_num", []*types.T{types.Bytes}, types.Numeric)

	for _, name := range []string{"stddev_samp", "stddev_pop", "var_samp", "var_pop"} {
		xagg(name, []*types.T{types.Bytes}, types.Numeric)
		xagg(name+"f", []*types.T{types.Bytes}, types.Float8)
	}

	for _, name := range []string{
		"corr", "covar_samp", "covar_pop", "regr_avgx", "regr_avgy",
		"regr_intercept", "regr_r2", "regr_slope",
		"regr_sxx", "regr_sxy", "regr_syy",
	} {
		xagg(name, []*types.T{types.Bytes}, types.Float8)
	}
	xagg("regr_count", []*types.T{types.Bytes}, types.Int8)

	// Numeric promotion casts used when coercing aggregate arguments to
	// the partial functions' declared types.
	castFn("int8", types.Int2, types.Int8)
	castFn("int8", types.Int4, types.Int8)
	castFn("float8", types.Int2, types.Float8)
	castFn("float8", types.Int4, types.Float8)
	castFn("float8", types.Int8, types.Float8)
	castFn("float8", types.Float4, types.Float8)
	castFn("float8", types.Numeric, types.Float8)

	return c
}
