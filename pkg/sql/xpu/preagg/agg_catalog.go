// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package preagg rewrites group-by/aggregate sub-plans so that the bulk
// of the row scanning and a partial reduction run on an accelerator
// device, with a host-side final aggregation on top producing the exact
// semantics of the original aggregates.
package preagg

import (
	"github.com/xpudb/xpudb/pkg/sql/types"
)

// Action tags the shape of a partial-aggregate result and the rule by
// which the device kernel accumulates it. The enumeration is closed;
// every action implies a fixed partial-function return type and arity.
type Action int

const (
	// ActionInvalid is the zero action.
	ActionInvalid Action = iota
	// ActionNRowsAny counts every row.
	ActionNRowsAny
	// ActionNRowsCond counts rows whose argument is non-null.
	ActionNRowsCond
	// ActionPMinInt / ActionPMinFP track a packed (count, min) pair.
	ActionPMinInt
	ActionPMinFP
	// ActionPMaxInt / ActionPMaxFP track a packed (count, max) pair.
	ActionPMaxInt
	ActionPMaxFP
	// ActionPSumInt / ActionPSumFP accumulate a running sum.
	ActionPSumInt
	ActionPSumFP
	// ActionPAvgInt / ActionPAvgFP track a packed (count, sum) pair.
	ActionPAvgInt
	ActionPAvgFP
	// ActionStdDev tracks the packed (count, sum, sum-of-squares) triple.
	ActionStdDev
	// ActionCoVar tracks the packed bivariate moment quintuple
	// (count, sum(x), sum(y), sum(x^2), sum(y^2), sum(x*y)).
	ActionCoVar
	// ActionVRef passes a grouping-key value through verbatim.
	ActionVRef
)

func (a Action) String() string {
	switch a {
	case ActionNRowsAny:
		return "nrows"
	case ActionNRowsCond:
		return "nrows-cond"
	case ActionPMinInt:
		return "pmin-int"
	case ActionPMinFP:
		return "pmin-fp"
	case ActionPMaxInt:
		return "pmax-int"
	case ActionPMaxFP:
		return "pmax-fp"
	case ActionPSumInt:
		return "psum-int"
	case ActionPSumFP:
		return "psum-fp"
	case ActionPAvgInt:
		return "pavg-int"
	case ActionPAvgFP:
		return "pavg-fp"
	case ActionStdDev:
		return "stddev"
	case ActionCoVar:
		return "covar"
	case ActionVRef:
		return "vref"
	default:
		return "invalid"
	}
}

// partialShape returns the return type and argument count the action
// requires of its partial function. ok is false for actions that have no
// partial function (ActionVRef, ActionInvalid).
func (a Action) partialShape() (ret *types.T, numArgs int, ok bool) {
	switch a {
	case ActionNRowsAny:
		return types.Int8, 0, true
	case ActionNRowsCond, ActionPSumInt:
		return types.Int8, 1, true
	case ActionPSumFP:
		return types.Float8, 1, true
	case ActionPMinInt, ActionPMinFP, ActionPMaxInt, ActionPMaxFP,
		ActionPAvgInt, ActionPAvgFP, ActionStdDev:
		return types.Bytes, 1, true
	case ActionCoVar:
		return types.Bytes, 2, true
	default:
		return nil, 0, false
	}
}

// aggFuncEntry maps one supported aggregate signature to the final/
// partial function pair that reproduces it, and the device accumulation
// action of the partial function. Signatures carry a namespace prefix:
// "sys:" for the system catalog, "xpu:" for the device helper functions.
type aggFuncEntry struct {
	aggSig       string
	finalSig     string
	partialSig   string
	action       Action
	numericAware bool // ignored unless numeric aggregate support is enabled
}

// aggFuncCatalog is the static, immutable transformation catalog. Loaded
// once; looked up by normalized aggregate signature.
var aggFuncCatalog = []aggFuncEntry{
	// COUNT(*) = SUM(NROWS())
	{"count()", "xpu:sum(int8)", "xpu:nrows()", ActionNRowsAny, false},
	// COUNT(X) = SUM(NROWS(X))
	{"count(any)", "xpu:sum(int8)", "xpu:nrows(any)", ActionNRowsCond, false},

	// MIN(X) = MIN(PMIN(X))
	{"min(int2)", "xpu:min_i2(bytea)", "xpu:pmin(int2)", ActionPMinInt, false},
	{"min(int4)", "xpu:min_i4(bytea)", "xpu:pmin(int4)", ActionPMinInt, false},
	{"min(int8)", "xpu:min_i8(bytea)", "xpu:pmin(int8)", ActionPMinInt, false},
	{"min(float4)", "xpu:min_f4(bytea)", "xpu:pmin(float4)", ActionPMinFP, false},
	{"min(float8)", "xpu:min_f8(bytea)", "xpu:pmin(float8)", ActionPMinFP, false},
	{"min(numeric)", "xpu:min_num(bytea)", "xpu:pmin(float8)", ActionPMinFP, true},
	{"min(money)", "xpu:min_cash(bytea)", "xpu:pmin(money)", ActionPMinInt, false},
	{"min(date)", "xpu:min_date(bytea)", "xpu:pmin(date)", ActionPMinInt, false},
	{"min(time)", "xpu:min_time(bytea)", "xpu:pmin(time)", ActionPMinInt, false},
	{"min(timestamp)", "xpu:min_ts(bytea)", "xpu:pmin(timestamp)", ActionPMinInt, false},
	{"min(timestamptz)", "xpu:min_tstz(bytea)", "xpu:pmin(timestamptz)", ActionPMinInt, false},

	// MAX(X) = MAX(PMAX(X))
	{"max(int2)", "xpu:max_i2(bytea)", "xpu:pmax(int2)", ActionPMaxInt, false},
	{"max(int4)", "xpu:max_i4(bytea)", "xpu:pmax(int4)", ActionPMaxInt, false},
	{"max(int8)", "xpu:max_i8(bytea)", "xpu:pmax(int8)", ActionPMaxInt, false},
	{"max(float4)", "xpu:max_f4(bytea)", "xpu:pmax(float4)", ActionPMaxFP, false},
	{"max(float8)", "xpu:max_f8(bytea)", "xpu:pmax(float8)", ActionPMaxFP, false},
	{"max(numeric)", "xpu:max_num(bytea)", "xpu:pmax(float8)", ActionPMaxFP, true},
	{"max(money)", "xpu:max_cash(bytea)", "xpu:pmax(money)", ActionPMaxInt, false},
	{"max(date)", "xpu:max_date(bytea)", "xpu:pmax(date)", ActionPMaxInt, false},
	{"max(time)", "xpu:max_time(bytea)", "xpu:pmax(time)", ActionPMaxInt, false},
	{"max(timestamp)", "xpu:max_ts(bytea)", "xpu:pmax(timestamp)", ActionPMaxInt, false},
	{"max(timestamptz)", "xpu:max_tstz(bytea)", "xpu:pmax(timestamptz)", ActionPMaxInt, false},

	// SUM(X) = SUM(PSUM(X))
	{"sum(int2)", "xpu:sum(int8)", "xpu:psum(int8)", ActionPSumInt, false},
	{"sum(int4)", "xpu:sum(int8)", "xpu:psum(int8)", ActionPSumInt, false},
	{"sum(int8)", "sys:sum(int8)", "xpu:psum(int8)", ActionPSumInt, false},
	{"sum(float4)", "xpu:sum_f4(float8)", "xpu:psum(float4)", ActionPSumFP, false},
	{"sum(float8)", "sys:sum(float8)", "xpu:psum(float8)", ActionPSumFP, false},
	{"sum(numeric)", "xpu:sum_num(float8)", "xpu:psum(float8)", ActionPSumFP, true},
	{"sum(money)", "xpu:sum_cash(int8)", "xpu:psum(money)", ActionPSumInt, false},

	// AVG(X) = EX_AVG(NROWS(X), PSUM(X))
	{"avg(int2)", "xpu:avg_int(bytea)", "xpu:pavg(int8)", ActionPAvgInt, false},
	{"avg(int4)", "xpu:avg_int(bytea)", "xpu:pavg(int8)", ActionPAvgInt, false},
	{"avg(int8)", "xpu:avg_int(bytea)", "xpu:pavg(int8)", ActionPAvgInt, false},
	{"avg(float4)", "xpu:avg_fp(bytea)", "xpu:pavg(float8)", ActionPAvgFP, false},
	{"avg(float8)", "xpu:avg_fp(bytea)", "xpu:pavg(float8)", ActionPAvgFP, false},
	{"avg(numeric)", "xpu:avg_num(bytea)", "xpu:pavg(float8)", ActionPAvgFP, true},

	// STDDEV(X) = EX_STDDEV_SAMP(NROWS(), PSUM(X), PSUM(X*X))
	{"stddev(int2)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev(int4)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev(int8)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev(float4)", "xpu:stddev_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev(float8)", "xpu:stddev_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev(numeric)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	{"stddev_samp(int2)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_samp(int4)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_samp(int8)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_samp(float4)", "xpu:stddev_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_samp(float8)", "xpu:stddev_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_samp(numeric)", "xpu:stddev_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	{"stddev_pop(int2)", "xpu:stddev_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_pop(int4)", "xpu:stddev_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_pop(int8)", "xpu:stddev_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_pop(float4)", "xpu:stddev_popf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_pop(float8)", "xpu:stddev_popf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"stddev_pop(numeric)", "xpu:stddev_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	// VARIANCE(X) = VAR_SAMP(NROWS(), PSUM(X), PSUM(X^2))
	{"variance(int2)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"variance(int4)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"variance(int8)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"variance(float4)", "xpu:var_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"variance(float8)", "xpu:var_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"variance(numeric)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	{"var_samp(int2)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_samp(int4)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_samp(int8)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_samp(float4)", "xpu:var_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_samp(float8)", "xpu:var_sampf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_samp(numeric)", "xpu:var_samp(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	{"var_pop(int2)", "xpu:var_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_pop(int4)", "xpu:var_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_pop(int8)", "xpu:var_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_pop(float4)", "xpu:var_popf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_pop(float8)", "xpu:var_popf(bytea)", "xpu:pvariance(float8)", ActionStdDev, false},
	{"var_pop(numeric)", "xpu:var_pop(bytea)", "xpu:pvariance(float8)", ActionStdDev, true},

	// CORR(X,Y) and friends = <final>(PCOVAR(X,Y)); the quintuple covers
	// all bivariate moments, so the whole least-squares family shares it.
	{"corr(float8,float8)", "xpu:corr(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"covar_samp(float8,float8)", "xpu:covar_samp(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"covar_pop(float8,float8)", "xpu:covar_pop(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_avgx(float8,float8)", "xpu:regr_avgx(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_avgy(float8,float8)", "xpu:regr_avgy(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_count(float8,float8)", "xpu:regr_count(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_intercept(float8,float8)", "xpu:regr_intercept(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_r2(float8,float8)", "xpu:regr_r2(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_slope(float8,float8)", "xpu:regr_slope(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_sxx(float8,float8)", "xpu:regr_sxx(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_sxy(float8,float8)", "xpu:regr_sxy(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
	{"regr_syy(float8,float8)", "xpu:regr_syy(bytea)", "xpu:pcovar(float8,float8)", ActionCoVar, false},
}

// lookupAggFuncCatalog scans the static catalog for a normalized
// aggregate signature. A miss is not an error, just "no entry".
func lookupAggFuncCatalog(signature string) (aggFuncEntry, bool) {
	for _, e := range aggFuncCatalog {
		if e.aggSig == signature {
			return e, true
		}
	}
	return aggFuncEntry{}, false
}
