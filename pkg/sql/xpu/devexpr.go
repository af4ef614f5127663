// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package xpu

import (
	"github.com/xpudb/xpudb/pkg/sql/sem/tree"
	"github.com/xpudb/xpudb/pkg/util/syncutil"
)

// devFuncRegistry records which catalog functions have device kernels,
// keyed by "namespace.name". Populated at init time by the builtin
// registration code.
var devFuncRegistry = struct {
	syncutil.RWMutex
	kinds map[string]DevKind
}{kinds: make(map[string]DevKind)}

// RegisterDevFunc declares that the named function can run on the given
// device classes.
func RegisterDevFunc(namespace, name string, kinds DevKind) {
	devFuncRegistry.Lock()
	defer devFuncRegistry.Unlock()
	devFuncRegistry.kinds[namespace+"."+name] |= kinds
}

func devFuncKinds(namespace, name string) DevKind {
	devFuncRegistry.RLock()
	defer devFuncRegistry.RUnlock()
	return devFuncRegistry.kinds[namespace+"."+name]
}

// Operators with device kernels for every supported scalar type.
var devOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
}

// ExpressionIsExecutable reports whether e can be evaluated entirely
// within the restricted expression subset of the given device class.
// Aggregate calls are never device-executable as plain expressions; the
// pre-aggregation planner decomposes them before asking.
func ExpressionIsExecutable(e tree.Expr, kind DevKind) bool {
	switch x := e.(type) {
	case *tree.ColumnRef:
		return TypeSupportsValue(x.Typ)
	case *tree.Const:
		return TypeSupportsValue(x.Typ)
	case *tree.RelabelExpr:
		return TypeSupportsValue(x.Typ) && ExpressionIsExecutable(x.Input, kind)
	case *tree.FuncExpr:
		if devFuncKinds(x.Namespace, x.Name)&kind == 0 {
			return false
		}
		for _, arg := range x.Args {
			if !ExpressionIsExecutable(arg, kind) {
				return false
			}
		}
		return true
	case *tree.BinaryExpr:
		return devOperators[x.Op] &&
			ExpressionIsExecutable(x.Left, kind) &&
			ExpressionIsExecutable(x.Right, kind)
	case *tree.ComparisonExpr:
		return devOperators[x.Op] &&
			ExpressionIsExecutable(x.Left, kind) &&
			ExpressionIsExecutable(x.Right, kind)
	default:
		return false
	}
}
