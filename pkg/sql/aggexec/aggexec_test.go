// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package aggexec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpudb/xpudb/pkg/sql/aggexec"
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/plan"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/sql/xpu"
	"github.com/xpudb/xpudb/pkg/sql/xpu/preagg"
)

// The test relation is t(k int4, v int4, x float8, y float8).
var (
	colK = &tree.ColumnRef{Idx: 0, Name: "k", Typ: types.Int4}
	colV = &tree.ColumnRef{Idx: 1, Name: "v", Typ: types.Int4}
	colX = &tree.ColumnRef{Idx: 2, Name: "x", Typ: types.Float8}
	colY = &tree.ColumnRef{Idx: 3, Name: "y", Typ: types.Float8}
)

func sysAgg(
	t *testing.T, cat catalog.Catalog, name string, args ...tree.Expr,
) *tree.AggregateExpr {
	t.Helper()
	argTypes := make([]*types.T, len(args))
	for i, a := range args {
		argTypes[i] = a.ResolvedType()
	}
	id, ok := cat.ResolveFunction(catalog.SysNamespace, name, argTypes)
	require.True(t, ok, "%s not in catalog", name)
	d, err := cat.LookupFunction(id)
	require.NoError(t, err)
	return &tree.AggregateExpr{
		Func: id, Name: name, Args: args, Typ: d.ReturnType, Star: len(args) == 0,
	}
}

// planTwoStage runs the pre-aggregation planner for the given upper
// target and returns the two stage targets, the partial actions, and the
// rewritten HAVING predicate.
func planTwoStage(
	t *testing.T,
	cat catalog.Catalog,
	upper *plan.Target,
	groupClause []tree.Expr,
	having tree.Expr,
) (partial, final *plan.Target, actions []preagg.Action, rewrittenHaving tree.Expr) {
	t.Helper()
	root := &plan.PlannerInfo{
		Catalog:     cat,
		Query:       &plan.Query{GroupClause: groupClause, Having: having},
		GroupTarget: upper,
	}
	scanTarget := plan.NewTarget()
	scanTarget.AddColumn(colK, 0)
	scanTarget.AddColumn(colV, 0)
	scanTarget.AddColumn(colX, 0)
	scanTarget.AddColumn(colY, 0)
	inputRel := &plan.RelOptInfo{}
	inputRel.AddPath(&plan.Path{
		Kind:    plan.PathScan,
		Rel:     inputRel,
		Target:  scanTarget,
		Rows:    1000,
		Private: &preagg.PlanInfo{DevKind: xpu.DevKindGPU},
	})
	groupRel := &plan.RelOptInfo{}
	require.NoError(t, preagg.AddPreAggPaths(
		context.Background(), root, inputRel, groupRel, xpu.DevKindGPU))
	require.NotEmpty(t, groupRel.Paths)

	top := groupRel.CheapestTotal
	require.Equal(t, plan.PathAgg, top.Kind)
	part := top.Input
	require.Equal(t, plan.PathXPUPreAgg, part.Kind)
	info := part.Private.(*preagg.PlanInfo)
	return part.Target, top.Target, info.Actions, top.Having
}

// runTwoStage executes the partial stage over each batch separately and
// finalizes the concatenated partial results, mimicking per-device
// execution with host combination.
func runTwoStage(
	t *testing.T,
	partial, final *plan.Target,
	actions []preagg.Action,
	having tree.Expr,
	batches [][]aggexec.Row,
) []aggexec.Row {
	t.Helper()
	pa, err := aggexec.NewPartialAggregator(partial, actions)
	require.NoError(t, err)
	var partialRows []aggexec.Row
	for _, batch := range batches {
		out, err := pa.Run(batch)
		require.NoError(t, err)
		partialRows = append(partialRows, out...)
	}
	fa, err := aggexec.NewFinalAggregator(final, partial, having)
	require.NoError(t, err)
	out, err := fa.Run(partialRows)
	require.NoError(t, err)
	return out
}

func TestTwoStageCountGroupBy(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(colK, 1)
	upper.AddColumn(sysAgg(t, cat, "count"), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, []tree.Expr{colK}, nil)

	rows := []aggexec.Row{
		{int64(1), nil, nil, nil},
		{int64(1), nil, nil, nil},
		{int64(2), nil, nil, nil},
	}
	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{rows})
	require.Equal(t, []aggexec.Row{
		{int64(1), int64(2)},
		{int64(2), int64(1)},
	}, out)
}

func TestTwoStageBatchedAggregates(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(colK, 1)
	upper.AddColumn(sysAgg(t, cat, "count"), 0)
	upper.AddColumn(sysAgg(t, cat, "count", colV), 0)
	upper.AddColumn(sysAgg(t, cat, "sum", colV), 0)
	upper.AddColumn(sysAgg(t, cat, "avg", colV), 0)
	upper.AddColumn(sysAgg(t, cat, "min", colV), 0)
	upper.AddColumn(sysAgg(t, cat, "max", colV), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, []tree.Expr{colK}, nil)

	// The split puts rows of both groups in both batches, so the final
	// stage must combine partial states across batches.
	batch1 := []aggexec.Row{
		{int64(1), int64(10), nil, nil},
		{int64(2), int64(5), nil, nil},
		{int64(1), nil, nil, nil},
	}
	batch2 := []aggexec.Row{
		{int64(1), int64(30), nil, nil},
		{int64(2), int64(7), nil, nil},
	}
	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{batch1, batch2})
	require.Equal(t, []aggexec.Row{
		{int64(1), int64(3), int64(2), int64(40), 20.0, int64(10), int64(30)},
		{int64(2), int64(2), int64(2), int64(12), 6.0, int64(5), int64(7)},
	}, out)
}

func TestTwoStageVariance(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(sysAgg(t, cat, "stddev_samp", colX), 0)
	upper.AddColumn(sysAgg(t, cat, "var_pop", colX), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, nil, nil)

	var batch1, batch2 []aggexec.Row
	for i, x := range []float64{1, 2, 3, 4} {
		row := aggexec.Row{int64(0), nil, x, nil}
		if i < 2 {
			batch1 = append(batch1, row)
		} else {
			batch2 = append(batch2, row)
		}
	}
	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{batch1, batch2})
	require.Len(t, out, 1)
	require.InDelta(t, 1.2909944, out[0][0].(float64), 1e-6)
	require.InDelta(t, 1.25, out[0][1].(float64), 1e-9)
}

func TestTwoStageRegression(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(sysAgg(t, cat, "corr", colY, colX), 0)
	upper.AddColumn(sysAgg(t, cat, "regr_slope", colY, colX), 0)
	upper.AddColumn(sysAgg(t, cat, "regr_intercept", colY, colX), 0)
	upper.AddColumn(sysAgg(t, cat, "regr_count", colY, colX), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, nil, nil)

	var rows []aggexec.Row
	for _, x := range []float64{1, 2, 3, 4, 5} {
		rows = append(rows, aggexec.Row{int64(0), nil, x, 2*x + 1})
	}
	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{rows})
	require.Len(t, out, 1)
	require.InDelta(t, 1.0, out[0][0].(float64), 1e-9)
	require.InDelta(t, 2.0, out[0][1].(float64), 1e-9)
	require.InDelta(t, 1.0, out[0][2].(float64), 1e-9)
	require.Equal(t, int64(5), out[0][3])
}

func TestTwoStageEmptyInput(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(sysAgg(t, cat, "count"), 0)
	upper.AddColumn(sysAgg(t, cat, "sum", colV), 0)
	upper.AddColumn(sysAgg(t, cat, "min", colV), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, nil, nil)

	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{nil})
	require.Equal(t, []aggexec.Row{{int64(0), nil, nil}}, out)
}

func TestTwoStageHaving(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	cnt := sysAgg(t, cat, "count")
	upper := plan.NewTarget()
	upper.AddColumn(colK, 1)
	upper.AddColumn(cnt, 0)
	having := &tree.ComparisonExpr{
		Op:    ">",
		Left:  cnt,
		Right: &tree.Const{Value: int64(1), Typ: types.Int8},
	}
	partial, final, actions, rewritten := planTwoStage(t, cat, upper, []tree.Expr{colK}, having)
	require.NotNil(t, rewritten)

	rows := []aggexec.Row{
		{int64(1), nil, nil, nil},
		{int64(1), nil, nil, nil},
		{int64(2), nil, nil, nil},
	}
	out := runTwoStage(t, partial, final, actions, rewritten, [][]aggexec.Row{rows})
	require.Equal(t, []aggexec.Row{{int64(1), int64(2)}}, out)
}

func TestTwoStageAllRowsOneGroup(t *testing.T) {
	cat := aggexec.NewSystemCatalog()
	upper := plan.NewTarget()
	upper.AddColumn(colK, 1)
	upper.AddColumn(sysAgg(t, cat, "sum", colV), 0)
	partial, final, actions, having := planTwoStage(t, cat, upper, []tree.Expr{colK}, nil)

	rows := []aggexec.Row{
		{int64(7), int64(1), nil, nil},
		{int64(7), int64(2), nil, nil},
		{int64(7), int64(3), nil, nil},
	}
	out := runTwoStage(t, partial, final, actions, having, [][]aggexec.Row{rows})
	require.Equal(t, []aggexec.Row{{int64(7), int64(6)}}, out)
}
