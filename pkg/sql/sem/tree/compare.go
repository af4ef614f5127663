// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package tree

// Equal reports structural equality of two expressions. Grouping-key
// matching and partial-target deduplication both rely on this.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch x := a.(type) {
	case *ColumnRef:
		y, ok := b.(*ColumnRef)
		return ok && x.Idx == y.Idx && x.Typ.Identical(y.Typ) &&
			x.Collation == y.Collation
	case *Const:
		y, ok := b.(*Const)
		return ok && x.Value == y.Value && x.Typ.Identical(y.Typ)
	case *FuncExpr:
		y, ok := b.(*FuncExpr)
		return ok && x.Func == y.Func && equalSlices(x.Args, y.Args)
	case *RelabelExpr:
		y, ok := b.(*RelabelExpr)
		return ok && x.Typ.Identical(y.Typ) && Equal(x.Input, y.Input)
	case *AggregateExpr:
		y, ok := b.(*AggregateExpr)
		return ok && x.Func == y.Func && x.Distinct == y.Distinct &&
			x.Kind == y.Kind && x.Star == y.Star &&
			equalSlices(x.Args, y.Args) && equalSlices(x.OrderBy, y.OrderBy) &&
			Equal(x.Filter, y.Filter)
	case *BinaryExpr:
		y, ok := b.(*BinaryExpr)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *ComparisonExpr:
		y, ok := b.(*ComparisonExpr)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	}
	return false
}

func equalSlices(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
