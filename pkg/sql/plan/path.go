// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package plan holds the planner's path and target representation along
// with the standard cost-accounting primitives. A Path is a candidate
// physical execution strategy for a relation; paths compete on cost in a
// RelOptInfo's path list.
package plan

import (
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
)

// PathKind identifies the execution strategy of a path.
type PathKind int

const (
	// PathScan reads a base relation.
	PathScan PathKind = iota
	// PathJoin joins two or more inputs.
	PathJoin
	// PathXPUPreAgg is a device-side partial aggregation over its input.
	PathXPUPreAgg
	// PathGather merges the per-worker outputs of a parallel input path.
	PathGather
	// PathAgg is a host-side aggregation over its input.
	PathAgg
)

// AggStrategy selects the host aggregation implementation.
type AggStrategy int

const (
	// AggPlain aggregates all input into a single group.
	AggPlain AggStrategy = iota
	// AggHashed groups input rows with an in-memory hash table.
	AggHashed
)

// Target is an ordered list of output column expressions with cost and
// width accounting.
type Target struct {
	Exprs []tree.Expr
	// SortGroupRefs[i] is the sort/group reference of column i, or 0 if
	// the column is not a grouping or ordering column.
	SortGroupRefs []int

	// StartupCost and PerTupleCost are the evaluation costs of the target,
	// filled in by SetTargetCostWidth.
	StartupCost  float64
	PerTupleCost float64
	// Width is the estimated output row width in bytes.
	Width int
}

// NewTarget returns an empty target.
func NewTarget() *Target {
	return &Target{}
}

// AddColumn appends an output column.
func (t *Target) AddColumn(e tree.Expr, sortGroupRef int) {
	t.Exprs = append(t.Exprs, e)
	t.SortGroupRefs = append(t.SortGroupRefs, sortGroupRef)
}

// ColumnIndex returns the position of the first column structurally equal
// to e, or -1.
func (t *Target) ColumnIndex(e tree.Expr) int {
	for i, col := range t.Exprs {
		if tree.Equal(col, e) {
			return i
		}
	}
	return -1
}

// Path is a candidate execution strategy.
type Path struct {
	Kind   PathKind
	Rel    *RelOptInfo
	Target *Target
	// Input is the path this one consumes; nil for scans.
	Input *Path

	Rows        float64
	StartupCost float64
	TotalCost   float64

	ParallelSafe    bool
	ParallelAware   bool
	ParallelWorkers int

	// PathAgg fields.
	AggStrategy AggStrategy
	GroupClause []tree.Expr
	Having      tree.Expr
	NumGroups   float64

	// Private carries strategy-specific plan information (e.g. the device
	// pre-aggregation plan info); opaque to this package.
	Private interface{}
}

// RelOptInfo is a relation being planned, holding the candidate paths
// produced so far.
type RelOptInfo struct {
	Paths []*Path
	// CheapestTotal is the path with the lowest total cost.
	CheapestTotal *Path
}

// AddPath offers p as a candidate for rel. The path is discarded if an
// already-known path dominates it on both startup and total cost;
// conversely, known paths dominated by p are removed. The surviving set
// competes purely on cost.
func (rel *RelOptInfo) AddPath(p *Path) {
	kept := rel.Paths[:0]
	for _, old := range rel.Paths {
		if old.StartupCost <= p.StartupCost && old.TotalCost <= p.TotalCost {
			// p is dominated; keep the existing list untouched.
			return
		}
		if !(p.StartupCost <= old.StartupCost && p.TotalCost <= old.TotalCost) {
			kept = append(kept, old)
		}
	}
	rel.Paths = append(kept, p)
	rel.CheapestTotal = nil
	for _, cand := range rel.Paths {
		if rel.CheapestTotal == nil || cand.TotalCost < rel.CheapestTotal.TotalCost {
			rel.CheapestTotal = cand
		}
	}
}

// Query is the portion of the parsed statement the aggregate planner
// consumes.
type Query struct {
	// GroupClause holds the grouping key expressions, in output order.
	GroupClause []tree.Expr
	// GroupingSets is set when the query uses GROUPING SETS/ROLLUP/CUBE.
	GroupingSets bool
	// Having is the HAVING predicate, if any.
	Having tree.Expr
}

// DistinctEstimator supplies per-expression distinct-count estimates,
// typically backed by table statistics.
type DistinctEstimator interface {
	// DistinctCount estimates the number of distinct values e takes over
	// inputRows rows. ok is false if no estimate is available.
	DistinctCount(e tree.Expr, inputRows float64) (est float64, ok bool)
}

// PlannerInfo is the per-planning-request context.
type PlannerInfo struct {
	Catalog catalog.Catalog
	Query   *Query
	// GroupTarget is the upper (pre-rewrite) target of the grouping stage.
	GroupTarget *Target
	// Estimator is optional; estimation falls back to defaults when nil.
	Estimator DistinctEstimator
}
