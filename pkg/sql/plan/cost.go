// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package plan

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/settings"
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

// Host cost constants, tunable at runtime.
var (
	// CPUTupleCost is the cost of emitting one tuple.
	CPUTupleCost = settings.RegisterFloatSetting(
		"sql.planner.cpu_tuple_cost",
		"cost of processing one tuple",
		0.01,
	)
	// CPUOperatorCost is the cost of one operator or function call.
	CPUOperatorCost = settings.RegisterFloatSetting(
		"sql.planner.cpu_operator_cost",
		"cost of processing one operator or function call",
		0.0025,
	)
	// ParallelSetupCost is the cost of starting a set of parallel workers.
	ParallelSetupCost = settings.RegisterFloatSetting(
		"sql.planner.parallel_setup_cost",
		"cost of launching parallel workers",
		1000,
	)
	// ParallelTupleCost is the cost of moving one tuple between workers.
	ParallelTupleCost = settings.RegisterFloatSetting(
		"sql.planner.parallel_tuple_cost",
		"cost of passing one tuple from a parallel worker to the leader",
		0.1,
	)
	// WorkMemBytes is the memory budget for a single hashed aggregation.
	WorkMemBytes = settings.RegisterBoundedIntSetting(
		"sql.planner.work_mem",
		"memory budget in bytes for a hashed aggregation",
		64<<20, 64<<10, math.MaxInt64,
	)
)

// defaultNumDistinct is the distinct-count guess for an expression with
// no statistics.
const defaultNumDistinct = 200

// hashAggEntryOverhead is the per-group bookkeeping size of the hashed
// aggregation table, beyond the grouped row itself.
const hashAggEntryOverhead = 64

// QualCost is a startup/per-tuple cost pair.
type QualCost struct {
	Startup  float64
	PerTuple float64
}

// AggClauseCosts accumulates the transition and finalization costs of the
// aggregates in a target list.
type AggClauseCosts struct {
	TransCost QualCost
	FinalCost QualCost
}

// AddFunctionCost adds fn's per-call evaluation cost to cost.
func AddFunctionCost(root *PlannerInfo, fn catalog.FuncID, cost *QualCost) error {
	d, err := root.Catalog.LookupFunction(fn)
	if err != nil {
		return err
	}
	cost.PerTuple += d.Cost * CPUOperatorCost.Get()
	return nil
}

// SetTargetCostWidth computes the evaluation cost and output width of a
// target list under the host's standard cost-accounting rules. Aggregate
// calls contribute no per-tuple cost here; their costs are carried
// separately in AggClauseCosts.
func SetTargetCostWidth(root *PlannerInfo, t *Target) error {
	t.StartupCost = 0
	t.PerTupleCost = 0
	t.Width = 0
	for _, e := range t.Exprs {
		cost, err := exprEvalCost(root, e)
		if err != nil {
			return err
		}
		t.PerTupleCost += cost
		t.Width += int(e.ResolvedType().Width())
	}
	return nil
}

func exprEvalCost(root *PlannerInfo, e tree.Expr) (float64, error) {
	switch x := e.(type) {
	case *tree.ColumnRef, *tree.Const:
		return 0, nil
	case *tree.RelabelExpr:
		return exprEvalCost(root, x.Input)
	case *tree.FuncExpr:
		d, err := root.Catalog.LookupFunction(x.Func)
		if err != nil {
			return 0, err
		}
		cost := d.Cost * CPUOperatorCost.Get()
		for _, arg := range x.Args {
			c, err := exprEvalCost(root, arg)
			if err != nil {
				return 0, err
			}
			cost += c
		}
		return cost, nil
	case *tree.AggregateExpr:
		// Transition/final costs are accounted in AggClauseCosts.
		return 0, nil
	case *tree.BinaryExpr:
		lc, err := exprEvalCost(root, x.Left)
		if err != nil {
			return 0, err
		}
		rc, err := exprEvalCost(root, x.Right)
		if err != nil {
			return 0, err
		}
		return lc + rc + CPUOperatorCost.Get(), nil
	case *tree.ComparisonExpr:
		lc, err := exprEvalCost(root, x.Left)
		if err != nil {
			return 0, err
		}
		rc, err := exprEvalCost(root, x.Right)
		if err != nil {
			return 0, err
		}
		return lc + rc + CPUOperatorCost.Get(), nil
	}
	return 0, errors.AssertionFailedf("unexpected expression %T in cost estimation", e)
}

// EstimateNumGroups estimates the number of distinct grouping-key
// combinations over inputRows input rows. Per-key estimates come from the
// planner's statistics when available, with a conventional default
// otherwise; the product is clamped to [1, inputRows].
func EstimateNumGroups(root *PlannerInfo, groupExprs []tree.Expr, inputRows float64) float64 {
	if len(groupExprs) == 0 {
		return 1
	}
	if inputRows < 1 {
		inputRows = 1
	}
	numGroups := 1.0
	for _, e := range groupExprs {
		est := float64(defaultNumDistinct)
		if root.Estimator != nil {
			if v, ok := root.Estimator.DistinctCount(e, inputRows); ok {
				est = v
			}
		}
		numGroups *= est
		if numGroups > inputRows {
			return inputRows
		}
	}
	if numGroups < 1 {
		numGroups = 1
	}
	return numGroups
}

// EstimateHashAggTableSize estimates the in-memory footprint, in bytes,
// of a hashed aggregation over input producing numGroups groups.
func EstimateHashAggTableSize(input *Path, costs *AggClauseCosts, numGroups float64) float64 {
	width := 0
	if input.Target != nil {
		width = input.Target.Width
	}
	return (float64(width) + hashAggEntryOverhead) * numGroups
}

// GroupingIsHashable reports whether every grouping key type supports
// host hashing.
func GroupingIsHashable(groupClause []tree.Expr) bool {
	for _, e := range groupClause {
		if e.ResolvedType().Family() == types.AnyFamily {
			return false
		}
	}
	return true
}
