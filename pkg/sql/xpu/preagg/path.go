// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/plan"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/xpu"
	"github.com/xpudb/xpudb/pkg/util/log"
	"github.com/xpudb/xpudb/pkg/util/syncutil"
)

// PlanInfo is the device execution descriptor attached to a
// PathXPUPreAgg path (and, for device scan/join inputs, to theirs). The
// Actions slice is in lock step with the partial target's columns.
type PlanInfo struct {
	DevKind xpu.DevKind

	// GroupKeys are the grouping-key expressions, upper-target order.
	GroupKeys []tree.Expr
	// KeyColIdx[i] is the partial-target column holding GroupKeys[i].
	KeyColIdx []int
	// Actions[i] is the device accumulation action of partial column i.
	Actions []Action

	// NumGroups is the estimated per-process group count.
	NumGroups float64
	// FinalCost is the device-to-host result transfer cost folded into the
	// path's total; a consumer stacking another device stage on top backs
	// it out of the input cost.
	FinalCost float64
}

// NewDistinctEstimator returns a sketch-backed distinct-count estimator
// at the configured HyperLogLog precision, for populating PlannerInfo
// from a table sample.
func NewDistinctEstimator() (*plan.SketchEstimator, error) {
	return plan.NewSketchEstimator(int(HLLRegisterBits.Get()))
}

// resolvers caches one Resolver per live catalog, so that every planning
// request against the same catalog shares one aggregate resolution cache.
var resolvers = struct {
	syncutil.Mutex
	m map[catalog.Catalog]*Resolver
}{m: make(map[catalog.Catalog]*Resolver)}

func resolverFor(cat catalog.Catalog) *Resolver {
	resolvers.Lock()
	defer resolvers.Unlock()
	r, ok := resolvers.m[cat]
	if !ok {
		r = NewResolver(cat)
		resolvers.m[cat] = r
	}
	return r
}

// buildPartialPreAggPath assembles the device partial-aggregation path
// over con.inputPath and costs it. When the input is itself a device
// path, its result transfer cost is backed out: stacking the partial
// aggregation on the device means those rows never cross to the host.
func (con *buildPathContext) buildPartialPreAggPath() *plan.Path {
	input := con.inputPath
	operatorCost := xpu.OperatorCost(con.devKind)
	tupleCost := xpu.TupleCost(con.devKind)
	opRatio := xpu.OperatorRatio(con.devKind)

	priorFinalCost := 0.0
	if pi, ok := input.Private.(*PlanInfo); ok && pi != nil {
		priorFinalCost = pi.FinalCost
	}
	runCost := input.TotalCost - input.StartupCost - priorFinalCost

	startupCost := input.StartupCost
	// Hashing each input row on every grouping key.
	startupCost += operatorCost * float64(len(con.info.GroupKeys)) * input.Rows
	// Evaluating the partial target for each input row, at device speed.
	startupCost += (con.targetPartial.PerTupleCost*input.Rows +
		con.targetPartial.StartupCost) * opRatio

	finalCost := tupleCost * con.numGroups
	if input.ParallelWorkers > 0 {
		// The leader merges its own results plus every worker's.
		finalCost *= 0.5 + float64(input.ParallelWorkers)
	}

	con.info.NumGroups = con.numGroups
	con.info.FinalCost = finalCost

	return &plan.Path{
		Kind:            plan.PathXPUPreAgg,
		Rel:             input.Rel,
		Target:          con.targetPartial,
		Input:           input,
		Rows:            con.numGroups,
		StartupCost:     startupCost,
		TotalCost:       startupCost + runCost + finalCost,
		ParallelSafe:    input.ParallelSafe,
		ParallelAware:   input.ParallelAware,
		ParallelWorkers: input.ParallelWorkers,
		Private:         con.info,
	}
}

// tryAddFinalGroupByPaths offers host final-aggregation paths over the
// partial path: a plain aggregate when there is no GROUP BY, a hashed
// aggregate when the estimated hash table fits in the working-memory
// budget.
func (con *buildPathContext) tryAddFinalGroupByPaths(rel *plan.RelOptInfo, part *plan.Path) {
	q := con.root.Query
	if len(q.GroupClause) == 0 {
		rel.AddPath(plan.CreateAggPath(
			con.root, rel, part, con.targetFinal, plan.AggPlain,
			nil, con.havingQual, &con.finalClauseCost, 1,
		))
		metricPathsOffered.WithLabelValues(con.devKind.String()).Inc()
		return
	}

	tableSize := plan.EstimateHashAggTableSize(part, &con.finalClauseCost, part.Rows)
	budget := float64(plan.WorkMemBytes.Get())
	if tableSize > budget {
		log.VEventf(con.ctx, 2,
			"preagg: hashed aggregation needs %s, budget is %s",
			humanize.IBytes(uint64(tableSize)), humanize.IBytes(uint64(budget)))
		metricDeclined.WithLabelValues(declineHashBudget).Inc()
		return
	}
	rel.AddPath(plan.CreateAggPath(
		con.root, rel, part, con.targetFinal, plan.AggHashed,
		q.GroupClause, con.havingQual, &con.finalClauseCost, part.Rows,
	))
	metricPathsOffered.WithLabelValues(con.devKind.String()).Inc()
}

// findCheapestInputPath picks the cheapest device-capable path of
// inputRel. The parallel flag selects between the serial paths and the
// per-worker partial paths; a partial path only ever feeds the gathered
// variant. Only paths carrying a PlanInfo for a matching device class
// qualify; the partial aggregation must stack on device-resident rows.
func findCheapestInputPath(inputRel *plan.RelOptInfo, devKind xpu.DevKind, parallel bool) *plan.Path {
	var best *plan.Path
	for _, p := range inputRel.Paths {
		pi, ok := p.Private.(*PlanInfo)
		if !ok || pi == nil || pi.DevKind&devKind == 0 {
			continue
		}
		if parallel {
			if !(p.ParallelSafe && p.ParallelWorkers > 0) {
				continue
			}
		} else if p.ParallelWorkers > 0 {
			continue
		}
		if best == nil || p.TotalCost < best.TotalCost {
			best = p
		}
	}
	return best
}

// AddPreAggPaths considers splitting the grouping stage described by
// root into a device partial aggregation over inputRel plus a host final
// aggregation, offering the resulting paths to groupRel. Unsupported
// constructs decline silently (traced at verbosity 2); errors indicate
// catalog inconsistency.
func AddPreAggPaths(
	ctx context.Context,
	root *plan.PlannerInfo,
	inputRel, groupRel *plan.RelOptInfo,
	devKind xpu.DevKind,
) error {
	if !Enabled.Get() {
		return nil
	}
	q := root.Query
	if q.GroupingSets {
		log.VEventf(ctx, 2, "preagg: GROUPING SETS are not supported")
		metricDeclined.WithLabelValues(declineUnsupportedShape).Inc()
		return nil
	}
	if !plan.GroupingIsHashable(q.GroupClause) {
		log.VEventf(ctx, 2, "preagg: grouping keys are not hashable")
		metricDeclined.WithLabelValues(declineUnsupportedShape).Inc()
		return nil
	}
	resolver := resolverFor(root.Catalog)

	for _, tryParallel := range []bool{false, true} {
		input := findCheapestInputPath(inputRel, devKind, tryParallel)
		if input == nil {
			if !tryParallel {
				metricDeclined.WithLabelValues(declineNoInput).Inc()
			}
			continue
		}
		numGroups := 1.0
		if len(q.GroupClause) > 0 {
			numGroups = plan.EstimateNumGroups(root, q.GroupClause, input.Rows)
		}
		con := &buildPathContext{
			ctx:           ctx,
			root:          root,
			resolver:      resolver,
			devKind:       devKind,
			inputPath:     input,
			numGroups:     numGroups,
			targetUpper:   root.GroupTarget,
			targetPartial: plan.NewTarget(),
			targetFinal:   plan.NewTarget(),
			info:          &PlanInfo{DevKind: devKind},
		}
		ok, err := con.buildPathTargets()
		if err != nil {
			return err
		}
		if !ok {
			// Declining for one input shape declines for the other too; the
			// targets do not depend on the input path.
			return nil
		}
		part := con.buildPartialPreAggPath()
		if tryParallel {
			if !(part.ParallelAware && part.ParallelWorkers > 0) {
				// No way to run the partial stage under parallel workers; there
				// is no serial fallback on this branch.
				continue
			}
			totalGroups := part.Rows * float64(part.ParallelWorkers)
			part = plan.CreateGatherPath(con.root, groupRel, part, con.targetPartial, &totalGroups)
		}
		con.tryAddFinalGroupByPaths(groupRel, part)
	}
	return nil
}
