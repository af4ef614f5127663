// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package catalog defines the live function and cast catalog consumed by
// the planner, plus an in-memory implementation.
package catalog

import (
	"strings"

	"github.com/xpudb/xpudb/pkg/sql/types"
)

// FuncID identifies a function in the live catalog.
type FuncID uint32

// InvalidFuncID is the zero, never-assigned function ID.
const InvalidFuncID FuncID = 0

// Namespaces. Aggregate rewriting only trusts functions defined in the
// system namespace; device helper functions live in the xpu namespace.
const (
	SysNamespace = "sys"
	XPUNamespace = "xpu"
)

// FunctionDescriptor describes a function known to the catalog.
type FunctionDescriptor struct {
	ID          FuncID
	Name        string
	Namespace   string
	ArgTypes    []*types.T
	ReturnType  *types.T
	IsAggregate bool
	// Cost is the per-call evaluation cost, in cpu_operator_cost units.
	Cost float64
}

// Signature returns the normalized "name(type1,type2,...)" form used as
// the aggregate transformation catalog lookup key.
func (d *FunctionDescriptor) Signature() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	sb.WriteByte('(')
	for i, t := range d.ArgTypes {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.Name())
	}
	sb.WriteByte(')')
	return sb.String()
}

// CastMethod describes how a source type is coerced to a target type.
type CastMethod byte

const (
	// CastMethodBinary means the representation is unchanged; the cast is a
	// zero-cost relabeling.
	CastMethodBinary CastMethod = 'b'
	// CastMethodFunction means the cast calls a conversion function.
	CastMethodFunction CastMethod = 'f'
)

// Cast describes a coercion between two types.
type Cast struct {
	Method CastMethod
	// Func is the conversion function for CastMethodFunction.
	Func FuncID
}

// Catalog is the narrow interface the planner consumes.
type Catalog interface {
	// LookupFunction fetches a function descriptor by ID. The returned
	// descriptor is immutable and must not be modified.
	LookupFunction(id FuncID) (*FunctionDescriptor, error)

	// ResolveFunction resolves a function by namespace, name and declared
	// argument types. The boolean is false if no such function exists.
	ResolveFunction(namespace, name string, argTypes []*types.T) (FuncID, bool)

	// LookupCast reports how src coerces to dst, if at all.
	LookupCast(src, dst *types.T) (Cast, bool)

	// OnChange registers f to be invoked whenever the catalog contents may
	// have changed. Used for coarse cache invalidation.
	OnChange(f func())
}
