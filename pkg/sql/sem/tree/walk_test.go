// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

type replaceVisitor struct {
	from, to Expr
}

func (r replaceVisitor) VisitPre(e Expr) (bool, Expr) {
	if Equal(e, r.from) {
		return false, r.to
	}
	return true, e
}

type abortVisitor struct{ on Expr }

func (a abortVisitor) VisitPre(e Expr) (bool, Expr) {
	if Equal(e, a.on) {
		return false, nil
	}
	return true, e
}

func TestWalkExprCopyOnWrite(t *testing.T) {
	colA := &ColumnRef{Idx: 0, Name: "a", Typ: types.Int4}
	colB := &ColumnRef{Idx: 1, Name: "b", Typ: types.Int4}
	left := &BinaryExpr{Op: "+", Left: colA, Right: colB, Typ: types.Int4}
	right := &BinaryExpr{Op: "*", Left: colB, Right: colB, Typ: types.Int4}
	root := &BinaryExpr{Op: "-", Left: left, Right: right, Typ: types.Int4}

	colC := &ColumnRef{Idx: 2, Name: "c", Typ: types.Int4}
	out := WalkExpr(replaceVisitor{from: colA, to: colC}, root)
	require.NotNil(t, out)

	// The replaced branch is rebuilt, the untouched branch is shared, and
	// the original tree is unmodified.
	ob := out.(*BinaryExpr)
	require.NotSame(t, root, ob)
	require.NotSame(t, left, ob.Left)
	require.Same(t, right, ob.Right)
	require.True(t, Equal(ob.Left, &BinaryExpr{Op: "+", Left: colC, Right: colB, Typ: types.Int4}))
	require.Same(t, colA, left.Left)
}

func TestWalkExprNoChange(t *testing.T) {
	colA := &ColumnRef{Idx: 0, Name: "a", Typ: types.Int4}
	fn := &FuncExpr{Name: "f", Args: []Expr{colA}, Typ: types.Int8}
	out := WalkExpr(replaceVisitor{
		from: &ColumnRef{Idx: 9, Typ: types.Int4}, to: colA,
	}, fn)
	require.Same(t, fn, out)
}

func TestWalkExprAbort(t *testing.T) {
	colA := &ColumnRef{Idx: 0, Name: "a", Typ: types.Int4}
	colB := &ColumnRef{Idx: 1, Name: "b", Typ: types.Int4}
	root := &ComparisonExpr{Op: "<", Left: colA, Right: colB}
	require.Nil(t, WalkExpr(abortVisitor{on: colB}, root))
}

func TestEqual(t *testing.T) {
	colA := &ColumnRef{Idx: 0, Name: "a", Typ: types.Int4}
	colA2 := &ColumnRef{Idx: 0, Name: "a", Typ: types.Int4}
	colB := &ColumnRef{Idx: 1, Name: "b", Typ: types.Int4}

	require.True(t, Equal(colA, colA2))
	require.False(t, Equal(colA, colB))
	require.True(t, Equal(
		&BinaryExpr{Op: "+", Left: colA, Right: colB, Typ: types.Int4},
		&BinaryExpr{Op: "+", Left: colA2, Right: colB, Typ: types.Int4},
	))
	require.False(t, Equal(
		&BinaryExpr{Op: "+", Left: colA, Right: colB, Typ: types.Int4},
		&BinaryExpr{Op: "-", Left: colA, Right: colB, Typ: types.Int4},
	))
	require.False(t, Equal(colA, nil))
	require.True(t, Equal(nil, nil))
}
