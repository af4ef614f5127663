// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package types defines the engine's closed SQL type system.
//
// Types are canonical singletons; code compares them with Identical (or
// pointer equality, which is equivalent for canonical instances). The
// catalog refers to types by their canonical names, e.g. "int4" or
// "timestamptz".
package types

// Family classifies types by their storage and comparison semantics.
type Family int

const (
	// AnyFamily is a wildcard matching every type; it appears only in
	// function signatures, never as the type of a concrete value.
	AnyFamily Family = iota
	BoolFamily
	IntFamily
	FloatFamily
	DecimalFamily
	MoneyFamily
	DateFamily
	TimeFamily
	TimestampFamily
	TimestampTZFamily
	StringFamily
	BytesFamily
)

// T describes a SQL type.
type T struct {
	family Family
	// width is the fixed on-disk width in bytes, or a typical width for
	// variable-length types (used by row-width estimation).
	width int32
	name  string
}

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// Width returns the (estimated) value width in bytes.
func (t *T) Width() int32 { return t.width }

// Name returns the canonical catalog name of the type.
func (t *T) Name() string { return t.name }

func (t *T) String() string { return t.name }

// Identical reports whether two types are the same canonical type.
// AnyFamily is not treated as a wildcard here; see Matches.
func (t *T) Identical(o *T) bool {
	return t == o || (o != nil && t.name == o.name)
}

// Matches reports whether a concrete type satisfies a declared argument
// type, treating "any" as a wildcard.
func (t *T) Matches(declared *T) bool {
	if declared.family == AnyFamily {
		return true
	}
	return t.Identical(declared)
}

// The canonical type instances.
var (
	Any         = &T{AnyFamily, 0, "any"}
	Bool        = &T{BoolFamily, 1, "bool"}
	Int2        = &T{IntFamily, 2, "int2"}
	Int4        = &T{IntFamily, 4, "int4"}
	Int8        = &T{IntFamily, 8, "int8"}
	Float4      = &T{FloatFamily, 4, "float4"}
	Float8      = &T{FloatFamily, 8, "float8"}
	Numeric     = &T{DecimalFamily, 16, "numeric"}
	Money       = &T{MoneyFamily, 8, "money"}
	Date        = &T{DateFamily, 4, "date"}
	Time        = &T{TimeFamily, 8, "time"}
	Timestamp   = &T{TimestampFamily, 8, "timestamp"}
	TimestampTZ = &T{TimestampTZFamily, 8, "timestamptz"}
	String      = &T{StringFamily, 32, "text"}
	Bytes       = &T{BytesFamily, 48, "bytea"}
)

var byName = func() map[string]*T {
	m := make(map[string]*T)
	for _, t := range []*T{
		Any, Bool, Int2, Int4, Int8, Float4, Float8, Numeric, Money,
		Date, Time, Timestamp, TimestampTZ, String, Bytes,
	} {
		m[t.name] = t
	}
	return m
}()

// ByName resolves a canonical type name.
func ByName(name string) (*T, bool) {
	t, ok := byName[name]
	return t, ok
}
