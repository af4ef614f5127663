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

func TestSketchEstimatorScalesPerColumn(t *testing.T) {
	se, err := NewSketchEstimator(12)
	require.NoError(t, err)

	// A 100-row sample of two columns: column 0 is all-distinct, column 1
	// has two values. Sampling a second column must not inflate the row
	// denominator used to scale column 0.
	for i := 0; i < 100; i++ {
		se.AddValue(0, int64(i))
		se.AddValue(1, int64(i%2))
	}

	colA := &tree.ColumnRef{Idx: 0, Name: "a", Typ: types.Int8}
	colB := &tree.ColumnRef{Idx: 1, Name: "b", Typ: types.Int8}

	est, ok := se.DistinctCount(colA, 10000)
	require.True(t, ok)
	// ~100 distinct over a 100-row sample scales to the full table.
	require.InDelta(t, 10000, est, 500)

	est, ok = se.DistinctCount(colB, 10000)
	require.True(t, ok)
	// Scaling cannot manufacture distinct values the sketch never saw
	// beyond the sample ratio.
	require.InDelta(t, 200, est, 20)

	_, ok = se.DistinctCount(&tree.ColumnRef{Idx: 5, Name: "c", Typ: types.Int8}, 10000)
	require.False(t, ok)
}

func TestSketchEstimatorNoScalingOnFullSample(t *testing.T) {
	se, err := NewSketchEstimator(12)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		se.AddValue(0, int64(i%10))
	}
	est, ok := se.DistinctCount(&tree.ColumnRef{Idx: 0, Name: "k", Typ: types.Int8}, 1000)
	require.True(t, ok)
	require.InDelta(t, 10, est, 1)
}
