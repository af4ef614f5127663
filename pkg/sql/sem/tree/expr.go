// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package tree defines the logical expression representation used by the
// planner. Nodes are immutable after construction; transformations use
// copy-on-write rebuilding (see walk.go) so that an aborted rewrite never
// corrupts the original tree.
package tree

import (
	"fmt"
	"strings"

	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

// Expr is a logical scalar expression.
type Expr interface {
	fmt.Stringer

	// ResolvedType returns the type of the value the expression evaluates
	// to.
	ResolvedType() *types.T

	// Walk recursively visits the expression's children with v, rebuilding
	// the node (copy-on-write) if any child was replaced. See WalkExpr.
	Walk(v Visitor) Expr
}

// ColumnRef is a reference to an input column.
type ColumnRef struct {
	// Idx is the ordinal position of the column in the input relation.
	Idx int
	// Name is the column's name, used only for diagnostics.
	Name string
	Typ  *types.T
	// Collation is the collation the column is compared under; empty means
	// the database default.
	Collation string
}

// ResolvedType implements Expr.
func (c *ColumnRef) ResolvedType() *types.T { return c.Typ }

func (c *ColumnRef) String() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("@%d", c.Idx+1)
}

// Const is a literal value.
type Const struct {
	Value interface{}
	Typ   *types.T
}

// ResolvedType implements Expr.
func (c *Const) ResolvedType() *types.T { return c.Typ }

func (c *Const) String() string { return fmt.Sprint(c.Value) }

// FuncExpr is a call to a regular (non-aggregate) function.
type FuncExpr struct {
	Func      catalog.FuncID
	Namespace string
	Name      string
	Args      []Expr
	Typ       *types.T
}

// ResolvedType implements Expr.
func (f *FuncExpr) ResolvedType() *types.T { return f.Typ }

func (f *FuncExpr) String() string {
	name := f.Name
	if f.Namespace != "" && f.Namespace != catalog.SysNamespace {
		name = f.Namespace + "." + name
	}
	return name + "(" + exprListString(f.Args) + ")"
}

// RelabelExpr is a zero-cost, binary-coercible type relabeling of its
// input.
type RelabelExpr struct {
	Input Expr
	Typ   *types.T
}

// ResolvedType implements Expr.
func (r *RelabelExpr) ResolvedType() *types.T { return r.Typ }

func (r *RelabelExpr) String() string {
	return fmt.Sprintf("%s::%s", r.Input, r.Typ.Name())
}

// AggKind distinguishes the flavors of aggregate functions.
type AggKind byte

const (
	// AggKindNormal is a plain aggregate.
	AggKindNormal AggKind = iota
	// AggKindOrderedSet is an ordered-set aggregate (WITHIN GROUP).
	AggKindOrderedSet
	// AggKindHypothetical is a hypothetical-set aggregate.
	AggKindHypothetical
)

// AggregateExpr is a call to an aggregate function.
type AggregateExpr struct {
	Func      catalog.FuncID
	Name      string
	Args      []Expr
	Typ       *types.T
	Filter    Expr
	Distinct  bool
	OrderBy   []Expr
	Kind      AggKind
	Variadic  bool
	Star      bool
}

// ResolvedType implements Expr.
func (a *AggregateExpr) ResolvedType() *types.T { return a.Typ }

func (a *AggregateExpr) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	sb.WriteByte('(')
	if a.Star {
		sb.WriteByte('*')
	} else {
		if a.Distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(exprListString(a.Args))
	}
	sb.WriteByte(')')
	return sb.String()
}

// BinaryExpr is an arithmetic expression over two operands.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Typ   *types.T
}

// ResolvedType implements Expr.
func (b *BinaryExpr) ResolvedType() *types.T { return b.Typ }

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// ComparisonExpr is a boolean comparison over two operands.
type ComparisonExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

// ResolvedType implements Expr.
func (c *ComparisonExpr) ResolvedType() *types.T { return types.Bool }

func (c *ComparisonExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

func exprListString(exprs []Expr) string {
	strs := make([]string, len(exprs))
	for i, e := range exprs {
		strs[i] = e.String()
	}
	return strings.Join(strs, ", ")
}
