// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

type stubEstimator struct {
	counts map[int]float64
}

func (s stubEstimator) DistinctCount(e tree.Expr, inputRows float64) (float64, bool) {
	col, ok := e.(*tree.ColumnRef)
	if !ok {
		return 0, false
	}
	v, ok := s.counts[col.Idx]
	return v, ok
}

func TestEstimateNumGroups(t *testing.T) {
	colA := &tree.ColumnRef{Idx: 0, Typ: types.Int4}
	colB := &tree.ColumnRef{Idx: 1, Typ: types.Int4}
	root := &PlannerInfo{
		Estimator: stubEstimator{counts: map[int]float64{0: 10, 1: 50}},
	}

	require.Equal(t, 1.0, EstimateNumGroups(root, nil, 1e6))
	require.Equal(t, 10.0, EstimateNumGroups(root, []tree.Expr{colA}, 1e6))
	require.Equal(t, 500.0, EstimateNumGroups(root, []tree.Expr{colA, colB}, 1e6))

	// The product is clamped to the input cardinality.
	require.Equal(t, 100.0, EstimateNumGroups(root, []tree.Expr{colA, colB}, 100))

	// Without statistics the conventional default applies.
	noStats := &PlannerInfo{}
	require.Equal(t, float64(defaultNumDistinct), EstimateNumGroups(noStats, []tree.Expr{colA}, 1e6))
}

func TestAddPathDomination(t *testing.T) {
	rel := &RelOptInfo{}
	a := &Path{StartupCost: 10, TotalCost: 100}
	b := &Path{StartupCost: 20, TotalCost: 50}
	rel.AddPath(a)
	rel.AddPath(b)
	// Neither dominates: a is cheaper to start, b cheaper overall.
	require.Len(t, rel.Paths, 2)
	require.Same(t, b, rel.CheapestTotal)

	// c dominates both and replaces them.
	c := &Path{StartupCost: 5, TotalCost: 40}
	rel.AddPath(c)
	require.Len(t, rel.Paths, 1)
	require.Same(t, c, rel.CheapestTotal)

	// A dominated newcomer is discarded.
	rel.AddPath(&Path{StartupCost: 6, TotalCost: 41})
	require.Len(t, rel.Paths, 1)
	require.Same(t, c, rel.CheapestTotal)
}

func TestCreateAggPathCosts(t *testing.T) {
	rel := &RelOptInfo{}
	input := &Path{Rows: 1000, StartupCost: 5, TotalCost: 50}
	target := NewTarget()
	var costs AggClauseCosts

	plain := CreateAggPath(nil, rel, input, target, AggPlain, nil, nil, &costs, 1)
	require.Equal(t, 1.0, plain.Rows)
	require.GreaterOrEqual(t, plain.StartupCost, input.TotalCost)

	key := &tree.ColumnRef{Idx: 0, Typ: types.Int4}
	hashed := CreateAggPath(nil, rel, input, target, AggHashed, []tree.Expr{key}, nil, &costs, 200)
	require.Equal(t, 200.0, hashed.Rows)
	// Hashing the input costs more up front than plain accumulation.
	require.Greater(t, hashed.StartupCost, plain.StartupCost)
	require.Greater(t, hashed.TotalCost, hashed.StartupCost)
}

func TestSetTargetCostWidth(t *testing.T) {
	colA := &tree.ColumnRef{Idx: 0, Typ: types.Int4}
	colB := &tree.ColumnRef{Idx: 1, Typ: types.Float8}
	target := NewTarget()
	target.AddColumn(colA, 1)
	target.AddColumn(&tree.BinaryExpr{Op: "+", Left: colB, Right: colB, Typ: types.Float8}, 0)

	root := &PlannerInfo{}
	require.NoError(t, SetTargetCostWidth(root, target))
	require.Equal(t, 4+8, target.Width)
	// One operator evaluation per output tuple.
	require.Equal(t, CPUOperatorCost.Get(), target.PerTupleCost)
}
