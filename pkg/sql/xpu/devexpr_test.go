// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package xpu

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

func TestTypeSupportsGroupKey(t *testing.T) {
	require.True(t, TypeSupportsGroupKey(types.Int4, ""))
	require.True(t, TypeSupportsGroupKey(types.Timestamp, ""))
	require.True(t, TypeSupportsGroupKey(types.Bytes, ""))
	require.True(t, TypeSupportsGroupKey(types.String, "C"))
	// Only bytewise collations group on the device.
	require.False(t, TypeSupportsGroupKey(types.String, "en_US"))
	require.False(t, TypeSupportsGroupKey(types.Any, ""))
}

func TestExpressionIsExecutable(t *testing.T) {
	colA := &tree.ColumnRef{Idx: 0, Typ: types.Int4}
	colB := &tree.ColumnRef{Idx: 1, Typ: types.Float8}

	require.True(t, ExpressionIsExecutable(colA, DevKindGPU))
	require.True(t, ExpressionIsExecutable(
		&tree.BinaryExpr{Op: "+", Left: colA, Right: colA, Typ: types.Int4}, DevKindGPU))
	require.True(t, ExpressionIsExecutable(
		&tree.ComparisonExpr{Op: "<", Left: colB, Right: colB}, DevKindDPU))

	// Aggregates are never plain device expressions.
	require.False(t, ExpressionIsExecutable(
		&tree.AggregateExpr{Name: "sum", Args: []tree.Expr{colA}, Typ: types.Int8}, DevKindGPU))

	// Functions qualify only for the device classes they are registered
	// for.
	RegisterDevFunc("sys", "gpu_only_fn", DevKindGPU)
	fn := &tree.FuncExpr{Namespace: "sys", Name: "gpu_only_fn", Args: []tree.Expr{colA}, Typ: types.Int4}
	require.True(t, ExpressionIsExecutable(fn, DevKindGPU))
	require.False(t, ExpressionIsExecutable(fn, DevKindDPU))
	require.False(t, ExpressionIsExecutable(
		&tree.FuncExpr{Namespace: "sys", Name: "never_registered", Typ: types.Int4}, DevKindGPU))
}
