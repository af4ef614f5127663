// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import (
	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/sql/plan"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/xpu"
	"github.com/xpudb/xpudb/pkg/util/log"
)

// buildPathTargets splits the upper grouping target into the final target
// (host aggregation over the pre-aggregated stream) and the partial
// target (device output). Returns false to decline the attempt.
//
// Layout invariant: the partial target lists every partial aggregate
// column first, then every grouping key, in upper-target order within
// each section. The device kernel relies on this layout to locate its
// accumulation slots.
func (con *buildPathContext) buildPathTargets() (bool, error) {
	upper := con.targetUpper
	var keyRefs []int
	for i, expr := range upper.Exprs {
		ref := upper.SortGroupRefs[i]
		switch {
		case ref > 0 && exprInGroupClause(con.root.Query.GroupClause, expr):
			if !xpu.TypeSupportsGroupKey(expr.ResolvedType(), exprCollation(expr)) {
				log.VEventf(con.ctx, 2,
					"preagg: grouping key %s has type %s unsupported on %s",
					expr, expr.ResolvedType().Name(), con.devKind)
				metricDeclined.WithLabelValues(declineUnsupportedKey).Inc()
				return false, nil
			}
			if !xpu.ExpressionIsExecutable(expr, con.devKind) {
				log.VEventf(con.ctx, 2,
					"preagg: grouping key %s is not executable on %s", expr, con.devKind)
				metricDeclined.WithLabelValues(declineUnsupportedKey).Inc()
				return false, nil
			}
			con.targetFinal.AddColumn(expr, ref)
			con.info.GroupKeys = append(con.info.GroupKeys, expr)
			keyRefs = append(keyRefs, ref)

		default:
			alt, err := con.rewriteExpr(expr)
			if err != nil {
				return false, err
			}
			if alt == nil {
				metricDeclined.WithLabelValues(declineUnsupportedAgg).Inc()
				return false, nil
			}
			if !expr.ResolvedType().Identical(alt.ResolvedType()) {
				return false, errors.AssertionFailedf(
					"rewritten output column %s has type %s, original %s",
					alt, alt.ResolvedType().Name(), expr.ResolvedType().Name())
			}
			con.targetFinal.AddColumn(alt, ref)
		}
	}

	// Grouping keys go after every partial aggregate column.
	for j, key := range con.info.GroupKeys {
		con.info.KeyColIdx = append(con.info.KeyColIdx, len(con.targetPartial.Exprs))
		con.targetPartial.AddColumn(key, keyRefs[j])
		con.info.Actions = append(con.info.Actions, ActionVRef)
	}

	if con.root.Query.Having != nil {
		hq, err := con.rewriteExpr(con.root.Query.Having)
		if err != nil {
			return false, err
		}
		if hq == nil {
			log.VEventf(con.ctx, 2, "preagg: HAVING clause cannot be rewritten")
			metricDeclined.WithLabelValues(declineUnsupportedExpr).Inc()
			return false, nil
		}
		con.havingQual = hq
	}

	if err := plan.SetTargetCostWidth(con.root, con.targetFinal); err != nil {
		return false, err
	}
	if err := plan.SetTargetCostWidth(con.root, con.targetPartial); err != nil {
		return false, err
	}
	return true, nil
}

func exprInGroupClause(groupClause []tree.Expr, e tree.Expr) bool {
	for _, g := range groupClause {
		if tree.Equal(g, e) {
			return true
		}
	}
	return false
}

func exprCollation(e tree.Expr) string {
	switch x := e.(type) {
	case *tree.ColumnRef:
		return x.Collation
	case *tree.RelabelExpr:
		return exprCollation(x.Input)
	default:
		return ""
	}
}
