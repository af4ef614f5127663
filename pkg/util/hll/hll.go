// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package hll implements a HyperLogLog sketch for distinct-count
// estimation. The number of register bits trades accuracy for space; the
// relative error is roughly 1.04 / sqrt(2^bits).
package hll

import (
	"math"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/zeebo/xxh3"
)

// MinBits and MaxBits bound the register-bits parameter.
const (
	MinBits = 4
	MaxBits = 15
)

// Sketch is a HyperLogLog counter. Not safe for concurrent use.
type Sketch struct {
	bits      uint8
	registers []uint8
}

// New returns an empty sketch with 2^bits registers.
func New(bits int) (*Sketch, error) {
	if bits < MinBits || bits > MaxBits {
		return nil, errors.Newf("hll: register bits %d out of range [%d, %d]",
			bits, MinBits, MaxBits)
	}
	return &Sketch{
		bits:      uint8(bits),
		registers: make([]uint8, 1<<bits),
	}, nil
}

// Add inserts a value into the sketch.
func (s *Sketch) Add(b []byte) {
	s.AddHash(xxh3.Hash(b))
}

// AddHash inserts a pre-hashed value into the sketch.
func (s *Sketch) AddHash(h uint64) {
	idx := h >> (64 - s.bits)
	// Rank of the first set bit in the remaining hash bits.
	rank := uint8(bits.LeadingZeros64(h<<s.bits|1<<(uint(s.bits)-1))) + 1
	if rank > s.registers[idx] {
		s.registers[idx] = rank
	}
}

// Merge folds other into s. The sketches must have the same register bits.
func (s *Sketch) Merge(other *Sketch) error {
	if s.bits != other.bits {
		return errors.Newf("hll: cannot merge sketches with %d and %d register bits",
			s.bits, other.bits)
	}
	for i, r := range other.registers {
		if r > s.registers[i] {
			s.registers[i] = r
		}
	}
	return nil
}

// Estimate returns the estimated number of distinct values added.
func (s *Sketch) Estimate() float64 {
	m := float64(len(s.registers))
	var sum float64
	var zeros int
	for _, r := range s.registers {
		sum += 1.0 / float64(uint64(1)<<r)
		if r == 0 {
			zeros++
		}
	}
	est := alpha(len(s.registers)) * m * m / sum
	// Linear counting for the small range.
	if est <= 2.5*m && zeros > 0 {
		est = m * math.Log(m/float64(zeros))
	}
	return est
}

func alpha(m int) float64 {
	switch m {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	default:
		return 0.7213 / (1.0 + 1.079/float64(m))
	}
}
