// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package tree

// Visitor defines the methods invoked by WalkExpr when traversing an
// expression tree.
type Visitor interface {
	// VisitPre is invoked on a node before its children. If recurse is
	// false, the children are not visited and newExpr is the replacement
	// for the whole subtree. If newExpr differs from the visited node, the
	// parent is rebuilt (copy-on-write).
	VisitPre(expr Expr) (recurse bool, newExpr Expr)
}

// WalkExpr traverses expr with v, returning the (possibly rebuilt)
// replacement expression. The input tree is never mutated; unchanged
// subtrees are shared between input and output.
func WalkExpr(v Visitor, expr Expr) Expr {
	recurse, newExpr := v.VisitPre(expr)
	if !recurse || newExpr == nil {
		return newExpr
	}
	return newExpr.Walk(v)
}

func walkExprSlice(v Visitor, exprs []Expr) ([]Expr, bool) {
	changed := false
	var out []Expr
	for i, e := range exprs {
		ne := WalkExpr(v, e)
		if ne == nil {
			return nil, true
		}
		if ne != e && !changed {
			changed = true
			out = make([]Expr, len(exprs))
			copy(out, exprs[:i])
		}
		if changed {
			out[i] = ne
		}
	}
	if !changed {
		return exprs, false
	}
	return out, true
}

// Walk implements Expr.
func (c *ColumnRef) Walk(Visitor) Expr { return c }

// Walk implements Expr.
func (c *Const) Walk(Visitor) Expr { return c }

// Walk implements Expr.
func (f *FuncExpr) Walk(v Visitor) Expr {
	args, changed := walkExprSlice(v, f.Args)
	if !changed {
		return f
	}
	if args == nil {
		return nil
	}
	cpy := *f
	cpy.Args = args
	return &cpy
}

// Walk implements Expr.
func (r *RelabelExpr) Walk(v Visitor) Expr {
	input := WalkExpr(v, r.Input)
	if input == r.Input {
		return r
	}
	if input == nil {
		return nil
	}
	cpy := *r
	cpy.Input = input
	return &cpy
}

// Walk implements Expr.
func (a *AggregateExpr) Walk(v Visitor) Expr {
	args, changed := walkExprSlice(v, a.Args)
	filter := a.Filter
	if filter != nil {
		filter = WalkExpr(v, filter)
		if filter == nil {
			return nil
		}
	}
	if !changed && filter == a.Filter {
		return a
	}
	if args == nil {
		return nil
	}
	cpy := *a
	cpy.Args = args
	cpy.Filter = filter
	return &cpy
}

// Walk implements Expr.
func (b *BinaryExpr) Walk(v Visitor) Expr {
	left := WalkExpr(v, b.Left)
	right := WalkExpr(v, b.Right)
	if left == b.Left && right == b.Right {
		return b
	}
	if left == nil || right == nil {
		return nil
	}
	cpy := *b
	cpy.Left, cpy.Right = left, right
	return &cpy
}

// Walk implements Expr.
func (c *ComparisonExpr) Walk(v Visitor) Expr {
	left := WalkExpr(v, c.Left)
	right := WalkExpr(v, c.Right)
	if left == c.Left && right == c.Right {
		return c
	}
	if left == nil || right == nil {
		return nil
	}
	cpy := *c
	cpy.Left, cpy.Right = left, right
	return &cpy
}
