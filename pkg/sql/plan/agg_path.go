// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package plan

import "github.com/xpudb/xpudb/pkg/sql/sem/tree"

// CreateAggPath builds a host-side aggregation path over input. With
// AggPlain the whole input collapses into a single group; with AggHashed
// the input is grouped through an in-memory hash table producing
// numGroups output rows.
func CreateAggPath(
	root *PlannerInfo,
	rel *RelOptInfo,
	input *Path,
	target *Target,
	strategy AggStrategy,
	groupClause []tree.Expr,
	having tree.Expr,
	costs *AggClauseCosts,
	numGroups float64,
) *Path {
	p := &Path{
		Kind:         PathAgg,
		Rel:          rel,
		Target:       target,
		Input:        input,
		AggStrategy:  strategy,
		GroupClause:  groupClause,
		Having:       having,
		NumGroups:    numGroups,
		ParallelSafe: input.ParallelSafe,
	}

	startup := input.TotalCost + costs.TransCost.Startup +
		costs.TransCost.PerTuple*input.Rows
	outRows := numGroups
	if strategy == AggPlain {
		outRows = 1
	} else {
		// Hashing every input row on each grouping column.
		startup += CPUOperatorCost.Get() * float64(len(groupClause)) * input.Rows
	}
	total := startup +
		costs.FinalCost.Startup +
		costs.FinalCost.PerTuple*outRows +
		CPUTupleCost.Get()*outRows
	if target != nil {
		total += target.PerTupleCost * outRows
	}

	p.Rows = outRows
	p.StartupCost = startup
	p.TotalCost = total
	return p
}

// CreateGatherPath builds a path merging the outputs of input's parallel
// workers into a single stream. rows overrides the output row estimate
// when non-nil (e.g. the total group count across workers).
func CreateGatherPath(
	root *PlannerInfo, rel *RelOptInfo, input *Path, target *Target, rows *float64,
) *Path {
	outRows := input.Rows
	if rows != nil {
		outRows = *rows
	}
	startup := input.StartupCost + ParallelSetupCost.Get()
	total := input.TotalCost + ParallelSetupCost.Get() +
		ParallelTupleCost.Get()*outRows
	return &Path{
		Kind:        PathGather,
		Rel:         rel,
		Target:      target,
		Input:       input,
		Rows:        outRows,
		StartupCost: startup,
		TotalCost:   total,
		// The gather output is a single serial stream.
		ParallelSafe: false,
	}
}
