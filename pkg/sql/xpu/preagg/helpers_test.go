// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg_test

import (
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

func mustResolveFunc(
	t *testing.T, cat catalog.Catalog, ns, name string, argTypes []*types.T,
) catalog.FuncID {
	t.Helper()
	id, ok := cat.ResolveFunction(ns, name, argTypes)
	require.True(t, ok, "%s:%s not in catalog", ns, name)
	return id
}

func sysAgg(
	t *testing.T, cat catalog.Catalog, name string, args ...tree.Expr,
) *tree.AggregateExpr {
	t.Helper()
	argTypes := make([]*types.T, len(args))
	for i, a := range args {
		argTypes[i] = a.ResolvedType()
	}
	id := mustResolveFunc(t, cat, catalog.SysNamespace, name, argTypes)
	d, err := cat.LookupFunction(id)
	require.NoError(t, err)
	return &tree.AggregateExpr{
		Func: id,
		Name: name,
		Args: args,
		Typ:  d.ReturnType,
		Star: len(args) == 0,
	}
}

func countStar(t *testing.T, cat catalog.Catalog) *tree.AggregateExpr {
	return sysAgg(t, cat, "count")
}

// testPlanner assembles a planning request over the test relation with
// the given upper target and grouping clause, plus a device-capable scan
// path of the given cardinality.
func testPlanner(
	cat catalog.Catalog,
	upper *plan.Target,
	groupClause []tree.Expr,
	scanRows float64,
) (*plan.PlannerInfo, *plan.RelOptInfo, *plan.RelOptInfo) {
	root := &plan.PlannerInfo{
		Catalog:     cat,
		Query:       &plan.Query{GroupClause: groupClause},
		GroupTarget: upper,
	}
	scanTarget := plan.NewTarget()
	scanTarget.AddColumn(colK, 0)
	scanTarget.AddColumn(colV, 0)
	scanTarget.AddColumn(colX, 0)
	scanTarget.AddColumn(colY, 0)
	inputRel := &plan.RelOptInfo{}
	inputRel.AddPath(&plan.Path{
		Kind:         plan.PathScan,
		Rel:          inputRel,
		Target:       scanTarget,
		Rows:         scanRows,
		StartupCost:  0,
		TotalCost:    scanRows * 0.02,
		ParallelSafe: true,
		Private:      &preagg.PlanInfo{DevKind: xpu.DevKindGPU},
	})
	return root, inputRel, &plan.RelOptInfo{}
}

func newCatalog() *catalog.MemCatalog {
	return aggexec.NewSystemCatalog()
}

// pathChainKinds walks the input chain from p downward.
func pathChainKinds(p *plan.Path) []plan.PathKind {
	var kinds []plan.PathKind
	for ; p != nil; p = p.Input {
		kinds = append(kinds, p.Kind)
	}
	return kinds
}

func findPreAggPath(p *plan.Path) *plan.Path {
	for ; p != nil; p = p.Input {
		if p.Kind == plan.PathXPUPreAgg {
			return p
		}
	}
	return nil
}
