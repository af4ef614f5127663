// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/plan"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/sql/xpu"
	"github.com/xpudb/xpudb/pkg/util/log"
)

// buildPathContext carries the state of one pre-aggregation planning
// attempt: the targets being assembled, the resolver, and the plan info
// that will ride on the partial path.
type buildPathContext struct {
	ctx      context.Context
	root     *plan.PlannerInfo
	resolver *Resolver
	devKind  xpu.DevKind

	inputPath *plan.Path
	numGroups float64

	// targetUpper is the original grouping-stage target; targetPartial and
	// targetFinal are built from it.
	targetUpper   *plan.Target
	targetPartial *plan.Target
	targetFinal   *plan.Target

	havingQual      tree.Expr
	finalClauseCost plan.AggClauseCosts

	info *PlanInfo
}

// makeAlternativeAggref rewrites one original aggregate call into its
// final-aggregate form over a partial function, appending the partial
// function to the partial target if it is not already there. A nil, nil
// return declines the rewrite; errors mean catalog inconsistency.
func (con *buildPathContext) makeAlternativeAggref(agg *tree.AggregateExpr) (tree.Expr, error) {
	if len(agg.OrderBy) > 0 || agg.Distinct {
		log.VEventf(con.ctx, 2, "preagg: %s with ORDER BY or DISTINCT is not supported", agg)
		return nil, nil
	}
	if agg.Filter != nil {
		// The partial stage accumulates every input row; dropping the FILTER
		// clause would change the result.
		log.VEventf(con.ctx, 2, "preagg: %s with FILTER is not supported", agg)
		return nil, nil
	}
	if agg.Kind != tree.AggKindNormal {
		log.VEventf(con.ctx, 2, "preagg: ordered-set or hypothetical aggregate %s is not supported", agg)
		return nil, nil
	}
	if agg.Variadic {
		log.VEventf(con.ctx, 2, "preagg: variadic aggregate %s is not supported", agg)
		return nil, nil
	}

	entry, err := con.resolver.resolve(agg.Func)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		log.VEventf(con.ctx, 2, "preagg: aggregate %s has no device rendition", agg)
		return nil, nil
	}

	pd, err := con.root.Catalog.LookupFunction(entry.partialFunc)
	if err != nil {
		return nil, err
	}
	if len(agg.Args) != len(pd.ArgTypes) {
		return nil, errors.AssertionFailedf(
			"aggregate %s supplies %d args but partial function %s expects %d",
			agg, len(agg.Args), pd.Name, len(pd.ArgTypes))
	}

	// Coerce each argument to the partial function's declared type, then
	// check the result is executable on the device.
	partArgs := make([]tree.Expr, len(agg.Args))
	for i, arg := range agg.Args {
		expr, err := con.makeExprTypecast(arg, pd.ArgTypes[i])
		if err != nil {
			return nil, err
		}
		if !xpu.ExpressionIsExecutable(expr, con.devKind) {
			log.VEventf(con.ctx, 2,
				"preagg: argument %s of %s is not executable on %s", expr, agg, con.devKind)
			return nil, nil
		}
		partArgs[i] = expr
	}
	partFn := &tree.FuncExpr{
		Func:      entry.partialFunc,
		Namespace: pd.Namespace,
		Name:      pd.Name,
		Args:      partArgs,
		Typ:       pd.ReturnType,
	}

	// Identical partial computations share one partial target column.
	if con.targetPartial.ColumnIndex(partFn) < 0 {
		con.targetPartial.AddColumn(partFn, 0)
		con.info.Actions = append(con.info.Actions, entry.action)
	}

	fd, err := con.root.Catalog.LookupFunction(entry.finalFunc)
	if err != nil {
		return nil, err
	}
	alt := &tree.AggregateExpr{
		Func: entry.finalFunc,
		Name: fd.Name,
		Args: []tree.Expr{partFn},
		Typ:  agg.Typ,
		Kind: tree.AggKindNormal,
	}
	if err := plan.AddFunctionCost(con.root, entry.finalFunc, &con.finalClauseCost.TransCost); err != nil {
		return nil, err
	}
	return alt, nil
}

// makeExprTypecast coerces expr to target, inserting a relabel or a cast
// function call per the live cast catalog. A target of "any" (or an
// already-matching type) returns expr unchanged. A missing cast is an
// assertion failure: the static catalog never pairs uncastable types.
func (con *buildPathContext) makeExprTypecast(expr tree.Expr, target *types.T) (tree.Expr, error) {
	src := expr.ResolvedType()
	if target.Family() == types.AnyFamily || src.Identical(target) {
		return expr, nil
	}
	cast, ok := con.root.Catalog.LookupCast(src, target)
	if !ok {
		return nil, errors.AssertionFailedf("no cast from %s to %s", src.Name(), target.Name())
	}
	switch cast.Method {
	case catalog.CastMethodBinary:
		return &tree.RelabelExpr{Input: expr, Typ: target}, nil
	case catalog.CastMethodFunction:
		fd, err := con.root.Catalog.LookupFunction(cast.Func)
		if err != nil {
			return nil, err
		}
		return &tree.FuncExpr{
			Func:      cast.Func,
			Namespace: fd.Namespace,
			Name:      fd.Name,
			Args:      []tree.Expr{expr},
			Typ:       fd.ReturnType,
		}, nil
	default:
		return nil, errors.AssertionFailedf("unsupported cast method %q", cast.Method)
	}
}

// rewriteExpr rewrites an upper-stage expression for evaluation over the
// pre-aggregated stream: aggregate calls become their alternative form,
// grouping keys pass through verbatim, and everything in between is
// rebuilt copy-on-write around the rewritten leaves. A nil, nil return
// declines the whole attempt. A bare column reference that is neither a
// grouping key nor inside an aggregate argument cannot occur in a valid
// grouping query, so it is an assertion failure.
func (con *buildPathContext) rewriteExpr(node tree.Expr) (tree.Expr, error) {
	if node == nil {
		return nil, nil
	}
	if agg, ok := node.(*tree.AggregateExpr); ok {
		return con.makeAlternativeAggref(agg)
	}
	for _, key := range con.info.GroupKeys {
		if tree.Equal(node, key) {
			return node, nil
		}
	}
	switch x := node.(type) {
	case *tree.Const:
		return x, nil
	case *tree.ColumnRef:
		return nil, errors.AssertionFailedf(
			"column %s is referenced outside both grouping keys and aggregate arguments", x)
	case *tree.RelabelExpr:
		in, err := con.rewriteExpr(x.Input)
		if err != nil || in == nil {
			return nil, err
		}
		if in == x.Input {
			return x, nil
		}
		return &tree.RelabelExpr{Input: in, Typ: x.Typ}, nil
	case *tree.FuncExpr:
		args, changed, err := con.rewriteExprList(x.Args)
		if err != nil || args == nil {
			return nil, err
		}
		if !changed {
			return x, nil
		}
		return &tree.FuncExpr{
			Func: x.Func, Namespace: x.Namespace, Name: x.Name, Args: args, Typ: x.Typ,
		}, nil
	case *tree.BinaryExpr:
		l, err := con.rewriteExpr(x.Left)
		if err != nil || l == nil {
			return nil, err
		}
		r, err := con.rewriteExpr(x.Right)
		if err != nil || r == nil {
			return nil, err
		}
		if l == x.Left && r == x.Right {
			return x, nil
		}
		return &tree.BinaryExpr{Op: x.Op, Left: l, Right: r, Typ: x.Typ}, nil
	case *tree.ComparisonExpr:
		l, err := con.rewriteExpr(x.Left)
		if err != nil || l == nil {
			return nil, err
		}
		r, err := con.rewriteExpr(x.Right)
		if err != nil || r == nil {
			return nil, err
		}
		if l == x.Left && r == x.Right {
			return x, nil
		}
		return &tree.ComparisonExpr{Op: x.Op, Left: l, Right: r}, nil
	default:
		return nil, errors.AssertionFailedf("unexpected expression %T in aggregate rewrite", node)
	}
}

func (con *buildPathContext) rewriteExprList(exprs []tree.Expr) ([]tree.Expr, bool, error) {
	out := exprs
	changed := false
	for i, e := range exprs {
		ne, err := con.rewriteExpr(e)
		if err != nil || ne == nil {
			return nil, false, err
		}
		if ne != e && !changed {
			out = make([]tree.Expr, len(exprs))
			copy(out, exprs[:i])
			changed = true
		}
		if changed {
			out[i] = ne
		}
	}
	return out, changed, nil
}
