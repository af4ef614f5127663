// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package plan

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/util/hll"
)

// SketchEstimator is a DistinctEstimator backed by per-column HyperLogLog
// sketches, typically populated from a table sample. The register-bits
// parameter controls estimation accuracy.
type SketchEstimator struct {
	bits     int
	sketches map[int]*colSketch // keyed by column ordinal
}

// colSketch pairs a column's sketch with the number of sampled rows that
// fed it, the denominator for sample-to-table scaling.
type colSketch struct {
	sketch *hll.Sketch
	rows   float64
}

// NewSketchEstimator returns an empty estimator using 2^bits HLL
// registers per column.
func NewSketchEstimator(bits int) (*SketchEstimator, error) {
	if _, err := hll.New(bits); err != nil {
		return nil, err
	}
	return &SketchEstimator{
		bits:     bits,
		sketches: make(map[int]*colSketch),
	}, nil
}

// AddValue feeds one sampled value of the given column into the
// estimator.
func (se *SketchEstimator) AddValue(colIdx int, value interface{}) {
	s, ok := se.sketches[colIdx]
	if !ok {
		sk, _ := hll.New(se.bits)
		s = &colSketch{sketch: sk}
		se.sketches[colIdx] = s
	}
	s.sketch.Add(encodeSampleValue(value))
	s.rows++
}

// DistinctCount implements DistinctEstimator. Only bare column references
// are estimated; derived expressions fall back to the planner default.
func (se *SketchEstimator) DistinctCount(e tree.Expr, inputRows float64) (float64, bool) {
	col, ok := e.(*tree.ColumnRef)
	if !ok {
		return 0, false
	}
	s, ok := se.sketches[col.Idx]
	if !ok {
		return 0, false
	}
	est := s.sketch.Estimate()
	// Scale the sampled estimate up to the full input cardinality.
	if s.rows > 0 && inputRows > s.rows {
		est = math.Min(est*inputRows/s.rows, inputRows)
	}
	if est < 1 {
		est = 1
	}
	return est, true
}

func encodeSampleValue(value interface{}) []byte {
	switch v := value.(type) {
	case int64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		return buf[:]
	case float64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		return buf[:]
	case string:
		return []byte(v)
	case []byte:
		return v
	case bool:
		if v {
			return []byte{1}
		}
		return []byte{0}
	case nil:
		return nil
	default:
		return []byte(fmt.Sprint(v))
	}
}
