// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package aggexec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/sql/plan"
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/sql/xpu/preagg"
)

// Row is one tuple; values are int64, float64, []byte, string, bool or
// nil. Packed partial-aggregate states travel as []byte.
type Row []interface{}

// packed state layout: consecutive 8-byte little-endian words. The first
// word is always the row count; the remainder are accumulator slots,
// integer or float depending on the action.

func packWords(words ...uint64) []byte {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return buf
}

func wordAt(state []byte, i int) (uint64, error) {
	if len(state) < 8*(i+1) {
		return 0, errors.AssertionFailedf("packed state too short: %d bytes, want word %d", len(state), i)
	}
	return binary.LittleEndian.Uint64(state[8*i:]), nil
}

func intAt(state []byte, i int) (int64, error) {
	w, err := wordAt(state, i)
	return int64(w), err
}

func floatAt(state []byte, i int) (float64, error) {
	w, err := wordAt(state, i)
	return math.Float64frombits(w), err
}

// partialState is one accumulation slot of the device partial stage.
type partialState struct {
	action preagg.Action
	seen   bool
	n      int64
	ival   int64
	fvals  [5]float64
}

func (s *partialState) update(vals []interface{}) error {
	switch s.action {
	case preagg.ActionNRowsAny:
		s.n++
	case preagg.ActionNRowsCond:
		if vals[0] != nil {
			s.n++
		}
	case preagg.ActionPSumInt:
		if vals[0] == nil {
			return nil
		}
		v, err := toInt64(vals[0])
		if err != nil {
			return err
		}
		s.n++
		s.ival += v
	case preagg.ActionPSumFP:
		if vals[0] == nil {
			return nil
		}
		v, err := toFloat64(vals[0])
		if err != nil {
			return err
		}
		s.n++
		s.fvals[0] += v
	case preagg.ActionPMinInt, preagg.ActionPMaxInt:
		if vals[0] == nil {
			return nil
		}
		v, err := toInt64(vals[0])
		if err != nil {
			return err
		}
		if !s.seen ||
			(s.action == preagg.ActionPMinInt && v < s.ival) ||
			(s.action == preagg.ActionPMaxInt && v > s.ival) {
			s.ival = v
		}
		s.seen = true
		s.n++
	case preagg.ActionPMinFP, preagg.ActionPMaxFP:
		if vals[0] == nil {
			return nil
		}
		v, err := toFloat64(vals[0])
		if err != nil {
			return err
		}
		if !s.seen ||
			(s.action == preagg.ActionPMinFP && v < s.fvals[0]) ||
			(s.action == preagg.ActionPMaxFP && v > s.fvals[0]) {
			s.fvals[0] = v
		}
		s.seen = true
		s.n++
	case preagg.ActionPAvgInt:
		if vals[0] == nil {
			return nil
		}
		v, err := toInt64(vals[0])
		if err != nil {
			return err
		}
		s.n++
		s.ival += v
	case preagg.ActionPAvgFP:
		if vals[0] == nil {
			return nil
		}
		v, err := toFloat64(vals[0])
		if err != nil {
			return err
		}
		s.n++
		s.fvals[0] += v
	case preagg.ActionStdDev:
		if vals[0] == nil {
			return nil
		}
		v, err := toFloat64(vals[0])
		if err != nil {
			return err
		}
		s.n++
		s.fvals[0] += v
		s.fvals[1] += v * v
	case preagg.ActionCoVar:
		if vals[0] == nil || vals[1] == nil {
			return nil
		}
		a, err := toFloat64(vals[0])
		if err != nil {
			return err
		}
		b, err := toFloat64(vals[1])
		if err != nil {
			return err
		}
		s.n++
		s.fvals[0] += a
		s.fvals[1] += b
		s.fvals[2] += a * a
		s.fvals[3] += b * b
		s.fvals[4] += a * b
	default:
		return errors.AssertionFailedf("cannot accumulate action %s", s.action)
	}
	return nil
}

func (s *partialState) result() interface{} {
	switch s.action {
	case preagg.ActionNRowsAny, preagg.ActionNRowsCond:
		return s.n
	case preagg.ActionPSumInt:
		if s.n == 0 {
			return nil
		}
		return s.ival
	case preagg.ActionPSumFP:
		if s.n == 0 {
			return nil
		}
		return s.fvals[0]
	case preagg.ActionPMinInt, preagg.ActionPMaxInt:
		return packWords(uint64(s.n), uint64(s.ival))
	case preagg.ActionPMinFP, preagg.ActionPMaxFP:
		return packWords(uint64(s.n), math.Float64bits(s.fvals[0]))
	case preagg.ActionPAvgInt:
		return packWords(uint64(s.n), uint64(s.ival))
	case preagg.ActionPAvgFP:
		return packWords(uint64(s.n), math.Float64bits(s.fvals[0]))
	case preagg.ActionStdDev:
		return packWords(uint64(s.n),
			math.Float64bits(s.fvals[0]), math.Float64bits(s.fvals[1]))
	case preagg.ActionCoVar:
		return packWords(uint64(s.n),
			math.Float64bits(s.fvals[0]), math.Float64bits(s.fvals[1]),
			math.Float64bits(s.fvals[2]), math.Float64bits(s.fvals[3]),
			math.Float64bits(s.fvals[4]))
	}
	return nil
}

// PartialAggregator emulates the device partial-aggregation stage: it
// evaluates a partial target over input rows, grouping on the VRef
// columns and accumulating the remaining columns per their actions.
type PartialAggregator struct {
	target  *plan.Target
	actions []preagg.Action
	keyIdx  []int
}

// NewPartialAggregator validates that actions line up with the target's
// columns and returns an aggregator.
func NewPartialAggregator(target *plan.Target, actions []preagg.Action) (*PartialAggregator, error) {
	if len(actions) != len(target.Exprs) {
		return nil, errors.AssertionFailedf(
			"%d actions for %d partial columns", len(actions), len(target.Exprs))
	}
	pa := &PartialAggregator{target: target, actions: actions}
	for i, a := range actions {
		if a == preagg.ActionVRef {
			pa.keyIdx = append(pa.keyIdx, i)
		}
	}
	return pa, nil
}

type partialGroup struct {
	keys   Row
	states []*partialState
}

// Run consumes base-relation rows and emits one row per group, laid out
// per the partial target. Without grouping keys exactly one row is
// emitted, even over empty input.
func (pa *PartialAggregator) Run(rows []Row) ([]Row, error) {
	groups := make(map[string]*partialGroup)
	var order []string

	newGroup := func(keys Row) *partialGroup {
		g := &partialGroup{keys: keys, states: make([]*partialState, len(pa.actions))}
		for i, a := range pa.actions {
			if a != preagg.ActionVRef {
				g.states[i] = &partialState{action: a}
			}
		}
		return g
	}
	if len(pa.keyIdx) == 0 {
		g := newGroup(nil)
		groups[""] = g
		order = append(order, "")
	}

	for _, row := range rows {
		keys := make(Row, len(pa.keyIdx))
		for i, col := range pa.keyIdx {
			v, err := evalExpr(pa.target.Exprs[col], row, nil)
			if err != nil {
				return nil, err
			}
			keys[i] = v
		}
		hk := hashKey(keys)
		g, ok := groups[hk]
		if !ok {
			g = newGroup(keys)
			groups[hk] = g
			order = append(order, hk)
		}
		for i, st := range g.states {
			if st == nil {
				continue
			}
			fn, ok := pa.target.Exprs[i].(*tree.FuncExpr)
			if !ok {
				return nil, errors.AssertionFailedf(
					"partial column %d is %T, expected a partial function call", i, pa.target.Exprs[i])
			}
			vals := make([]interface{}, len(fn.Args))
			for j, arg := range fn.Args {
				v, err := evalExpr(arg, row, nil)
				if err != nil {
					return nil, err
				}
				vals[j] = v
			}
			if err := st.update(vals); err != nil {
				return nil, err
			}
		}
	}

	out := make([]Row, 0, len(order))
	for _, hk := range order {
		g := groups[hk]
		row := make(Row, len(pa.actions))
		ki := 0
		for i, st := range g.states {
			if st != nil {
				row[i] = st.result()
			} else {
				row[i] = g.keys[ki]
				ki++
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// FinalAggregator runs the host final-aggregation stage over the partial
// stage's output, producing rows laid out per the final target and
// filtered by the HAVING predicate.
type FinalAggregator struct {
	final   *plan.Target
	partial *plan.Target
	having  tree.Expr
	keyCols []int // partial-target columns holding the grouping keys
}

// NewFinalAggregator pairs a final target with the partial target whose
// output it consumes.
func NewFinalAggregator(final, partial *plan.Target, having tree.Expr) (*FinalAggregator, error) {
	fa := &FinalAggregator{final: final, partial: partial, having: having}
	for i, e := range final.Exprs {
		if final.SortGroupRefs[i] == 0 {
			continue
		}
		idx := partial.ColumnIndex(e)
		if idx < 0 {
			return nil, errors.AssertionFailedf(
				"grouping key %s is missing from the partial target", e)
		}
		fa.keyCols = append(fa.keyCols, idx)
	}
	return fa, nil
}

// Run consumes partial rows and emits the final result rows.
func (fa *FinalAggregator) Run(rows []Row) ([]Row, error) {
	groups := make(map[string][]Row)
	var order []string
	if len(fa.keyCols) == 0 {
		groups[""] = nil
		order = append(order, "")
	}
	for _, row := range rows {
		keys := make(Row, len(fa.keyCols))
		for i, col := range fa.keyCols {
			keys[i] = row[col]
		}
		hk := hashKey(keys)
		if _, ok := groups[hk]; !ok {
			order = append(order, hk)
		}
		groups[hk] = append(groups[hk], row)
	}

	out := make([]Row, 0, len(order))
	for _, hk := range order {
		groupRows := groups[hk]
		if fa.having != nil {
			keep, err := fa.evalGroupExpr(fa.having, groupRows)
			if err != nil {
				return nil, err
			}
			if b, ok := keep.(bool); !ok || !b {
				continue
			}
		}
		row := make(Row, len(fa.final.Exprs))
		for i, e := range fa.final.Exprs {
			v, err := fa.evalGroupExpr(e, groupRows)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// evalGroupExpr evaluates a final-target expression over one group's
// partial rows. Aggregate calls combine and finalize the named partial
// column across the group; any subexpression that is itself a partial
// target column (a grouping key) reads straight from the group's rows.
func (fa *FinalAggregator) evalGroupExpr(e tree.Expr, groupRows []Row) (interface{}, error) {
	var bindErr error
	bind := func(be tree.Expr) (interface{}, bool) {
		if agg, ok := be.(*tree.AggregateExpr); ok {
			v, err := fa.combineFinalize(agg, groupRows)
			if err != nil {
				bindErr = err
			}
			return v, true
		}
		if idx := fa.partial.ColumnIndex(be); idx >= 0 && len(groupRows) > 0 {
			return groupRows[0][idx], true
		}
		return nil, false
	}
	var row Row
	if len(groupRows) > 0 {
		row = groupRows[0]
	}
	v, err := evalExpr(e, row, bind)
	if bindErr != nil {
		return nil, bindErr
	}
	return v, err
}

func (fa *FinalAggregator) combineFinalize(agg *tree.AggregateExpr, groupRows []Row) (interface{}, error) {
	if len(agg.Args) != 1 {
		return nil, errors.AssertionFailedf("final aggregate %s must have one argument", agg)
	}
	idx := fa.partial.ColumnIndex(agg.Args[0])
	if idx < 0 {
		return nil, errors.AssertionFailedf(
			"final aggregate argument %s is missing from the partial target", agg.Args[0])
	}
	vals := make([]interface{}, len(groupRows))
	for i, row := range groupRows {
		vals[i] = row[idx]
	}
	return finalizeAgg(agg.Name, agg.Typ, vals)
}

// finalizeAgg combines per-process partial states and produces the final
// aggregate value.
func finalizeAgg(name string, typ *types.T, vals []interface{}) (interface{}, error) {
	switch {
	case name == "sum" || name == "sum_f4" || name == "sum_num" || name == "sum_cash":
		return sumValues(vals, typ)
	case strings.HasPrefix(name, "min_"), strings.HasPrefix(name, "max_"):
		return combineMinMax(name, typ, vals)
	case name == "avg_int" || name == "avg_fp" || name == "avg_num":
		return combineAvg(name, vals)
	case name == "stddev_samp" || name == "stddev_sampf" ||
		name == "stddev_pop" || name == "stddev_popf" ||
		name == "var_samp" || name == "var_sampf" ||
		name == "var_pop" || name == "var_popf":
		return combineVariance(name, vals)
	case name == "corr" || name == "covar_samp" || name == "covar_pop" ||
		strings.HasPrefix(name, "regr_"):
		return combineCovar(name, vals)
	}
	return nil, errors.AssertionFailedf("unknown final aggregate %q", name)
}

func sumValues(vals []interface{}, typ *types.T) (interface{}, error) {
	isum, fsum := int64(0), 0.0
	useFloat := typ.Family() == types.FloatFamily || typ.Family() == types.DecimalFamily
	seen := false
	for _, v := range vals {
		if v == nil {
			continue
		}
		seen = true
		if useFloat {
			f, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			fsum += f
		} else {
			i, err := toInt64(v)
			if err != nil {
				return nil, err
			}
			isum += i
		}
	}
	if !seen {
		return nil, nil
	}
	if useFloat {
		return fsum, nil
	}
	return isum, nil
}

func combineMinMax(name string, typ *types.T, vals []interface{}) (interface{}, error) {
	isMin := strings.HasPrefix(name, "min_")
	isFloat := typ.Family() == types.FloatFamily || typ.Family() == types.DecimalFamily
	var (
		total int64
		iBest int64
		fBest float64
		seen  bool
	)
	for _, v := range vals {
		if v == nil {
			continue
		}
		state, ok := v.([]byte)
		if !ok {
			return nil, errors.AssertionFailedf("%s expects a packed state, got %T", name, v)
		}
		n, err := intAt(state, 0)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		total += n
		if isFloat {
			f, err := floatAt(state, 1)
			if err != nil {
				return nil, err
			}
			if !seen || (isMin && f < fBest) || (!isMin && f > fBest) {
				fBest = f
			}
		} else {
			i, err := intAt(state, 1)
			if err != nil {
				return nil, err
			}
			if !seen || (isMin && i < iBest) || (!isMin && i > iBest) {
				iBest = i
			}
		}
		seen = true
	}
	if total == 0 {
		return nil, nil
	}
	if isFloat {
		return fBest, nil
	}
	return iBest, nil
}

func combineAvg(name string, vals []interface{}) (interface{}, error) {
	// The packed sum word is an int64 for avg_int (pavg over int8), a
	// float64 for avg_fp and avg_num (pavg over float8).
	intSum := name == "avg_int"
	var n int64
	var fsum float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		state, ok := v.([]byte)
		if !ok {
			return nil, errors.AssertionFailedf("%s expects a packed state, got %T", name, v)
		}
		cnt, err := intAt(state, 0)
		if err != nil {
			return nil, err
		}
		n += cnt
		if intSum {
			i, err := intAt(state, 1)
			if err != nil {
				return nil, err
			}
			fsum += float64(i)
		} else {
			f, err := floatAt(state, 1)
			if err != nil {
				return nil, err
			}
			fsum += f
		}
	}
	if n == 0 {
		return nil, nil
	}
	return fsum / float64(n), nil
}

func combineVariance(name string, vals []interface{}) (interface{}, error) {
	var n int64
	var sum, sumsq float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		state, ok := v.([]byte)
		if !ok {
			return nil, errors.AssertionFailedf("%s expects a packed state, got %T", name, v)
		}
		cnt, err := intAt(state, 0)
		if err != nil {
			return nil, err
		}
		s, err := floatAt(state, 1)
		if err != nil {
			return nil, err
		}
		s2, err := floatAt(state, 2)
		if err != nil {
			return nil, err
		}
		n += cnt
		sum += s
		sumsq += s2
	}
	if n == 0 {
		return nil, nil
	}
	m := sumsq - sum*sum/float64(n)
	if m < 0 {
		m = 0
	}
	sample := strings.Contains(name, "samp") || name == "variance"
	var out float64
	if sample {
		if n < 2 {
			return nil, nil
		}
		out = m / float64(n-1)
	} else {
		out = m / float64(n)
	}
	if strings.HasPrefix(name, "stddev") {
		out = math.Sqrt(out)
	}
	return out, nil
}

func combineCovar(name string, vals []interface{}) (interface{}, error) {
	var n int64
	var sa, sb, saa, sbb, sab float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		state, ok := v.([]byte)
		if !ok {
			return nil, errors.AssertionFailedf("%s expects a packed state, got %T", name, v)
		}
		cnt, err := intAt(state, 0)
		if err != nil {
			return nil, err
		}
		fs := make([]float64, 5)
		for i := range fs {
			if fs[i], err = floatAt(state, i+1); err != nil {
				return nil, err
			}
		}
		n += cnt
		sa += fs[0]
		sb += fs[1]
		saa += fs[2]
		sbb += fs[3]
		sab += fs[4]
	}
	if name == "regr_count" {
		return n, nil
	}
	if n == 0 {
		return nil, nil
	}
	fn := float64(n)
	// Argument convention is (Y, X): a accumulates the first argument.
	syy := saa - sa*sa/fn
	sxx := sbb - sb*sb/fn
	sxy := sab - sa*sb/fn
	switch name {
	case "covar_pop":
		return sxy / fn, nil
	case "covar_samp":
		if n < 2 {
			return nil, nil
		}
		return sxy / (fn - 1), nil
	case "corr":
		if sxx <= 0 || syy <= 0 {
			return nil, nil
		}
		return sxy / math.Sqrt(sxx*syy), nil
	case "regr_avgx":
		return sb / fn, nil
	case "regr_avgy":
		return sa / fn, nil
	case "regr_sxx":
		return sxx, nil
	case "regr_syy":
		return syy, nil
	case "regr_sxy":
		return sxy, nil
	case "regr_slope":
		if sxx == 0 {
			return nil, nil
		}
		return sxy / sxx, nil
	case "regr_intercept":
		if sxx == 0 {
			return nil, nil
		}
		return (sa - (sxy/sxx)*sb) / fn, nil
	case "regr_r2":
		if sxx == 0 || syy == 0 {
			return nil, nil
		}
		return (sxy * sxy) / (sxx * syy), nil
	}
	return nil, errors.AssertionFailedf("unknown bivariate final aggregate %q", name)
}

// evalExpr evaluates a scalar expression against a row. bind, when
// non-nil, intercepts whole subexpressions (aggregates, grouping keys)
// before structural evaluation.
func evalExpr(e tree.Expr, row Row, bind func(tree.Expr) (interface{}, bool)) (interface{}, error) {
	if bind != nil {
		if v, ok := bind(e); ok {
			return v, nil
		}
	}
	switch x := e.(type) {
	case *tree.Const:
		return x.Value, nil
	case *tree.ColumnRef:
		if x.Idx < 0 || x.Idx >= len(row) {
			return nil, errors.AssertionFailedf("column ordinal %d out of range for %d-column row", x.Idx, len(row))
		}
		return row[x.Idx], nil
	case *tree.RelabelExpr:
		return evalExpr(x.Input, row, bind)
	case *tree.FuncExpr:
		if len(x.Args) != 1 {
			return nil, errors.AssertionFailedf("cannot evaluate %s outside a device stage", x)
		}
		v, err := evalExpr(x.Args[0], row, bind)
		if err != nil || v == nil {
			return nil, err
		}
		// Single-argument functions in scalar position are the numeric
		// promotion casts.
		switch x.Typ.Family() {
		case types.FloatFamily:
			return toFloat64(v)
		case types.IntFamily:
			return toInt64(v)
		default:
			return v, nil
		}
	case *tree.BinaryExpr:
		l, err := evalExpr(x.Left, row, bind)
		if err != nil || l == nil {
			return nil, err
		}
		r, err := evalExpr(x.Right, row, bind)
		if err != nil || r == nil {
			return nil, err
		}
		return evalBinary(x.Op, l, r)
	case *tree.ComparisonExpr:
		l, err := evalExpr(x.Left, row, bind)
		if err != nil || l == nil {
			return nil, err
		}
		r, err := evalExpr(x.Right, row, bind)
		if err != nil || r == nil {
			return nil, err
		}
		return evalComparison(x.Op, l, r)
	case *tree.AggregateExpr:
		return nil, errors.AssertionFailedf("aggregate %s in scalar context", x)
	}
	return nil, errors.AssertionFailedf("cannot evaluate %T", e)
}

func evalBinary(op string, l, r interface{}) (interface{}, error) {
	if isFloatValue(l) || isFloatValue(r) {
		lf, err := toFloat64(l)
		if err != nil {
			return nil, err
		}
		rf, err := toFloat64(r)
		if err != nil {
			return nil, err
		}
		switch op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, errors.Newf("division by zero")
			}
			return lf / rf, nil
		}
		return nil, errors.AssertionFailedf("unknown operator %q", op)
	}
	li, err := toInt64(l)
	if err != nil {
		return nil, err
	}
	ri, err := toInt64(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "+":
		return li + ri, nil
	case "-":
		return li - ri, nil
	case "*":
		return li * ri, nil
	case "/":
		if ri == 0 {
			return nil, errors.Newf("division by zero")
		}
		return li / ri, nil
	case "%":
		if ri == 0 {
			return nil, errors.Newf("division by zero")
		}
		return li % ri, nil
	}
	return nil, errors.AssertionFailedf("unknown operator %q", op)
}

func evalComparison(op string, l, r interface{}) (interface{}, error) {
	lf, err := toFloat64(l)
	if err != nil {
		return nil, err
	}
	rf, err := toFloat64(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "=":
		return lf == rf, nil
	case "<>":
		return lf != rf, nil
	case "<":
		return lf < rf, nil
	case "<=":
		return lf <= rf, nil
	case ">":
		return lf > rf, nil
	case ">=":
		return lf >= rf, nil
	}
	return nil, errors.AssertionFailedf("unknown comparison %q", op)
}

func isFloatValue(v interface{}) bool {
	_, ok := v.(float64)
	return ok
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	}
	return 0, errors.AssertionFailedf("value %v (%T) is not an integer", v, v)
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	}
	return 0, errors.AssertionFailedf("value %v (%T) is not numeric", v, v)
}

func hashKey(keys Row) string {
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%T=%v|", k, k)
	}
	return sb.String()
}
