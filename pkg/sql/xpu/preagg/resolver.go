// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/sql/catalog"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/util/syncutil"
)

// resolvedEntry is the cached outcome of resolving one live aggregate
// against the static transformation catalog. valid=false entries are
// cached negative results: the aggregate is known to have no device
// rendition, and repeated queries must not hit the live catalog again.
type resolvedEntry struct {
	agg catalog.FuncID

	valid bool

	finalFunc      catalog.FuncID
	partialFunc    catalog.FuncID
	partialRetType *types.T
	partialNumArgs int
	action         Action
	numericAware   bool
}

// Resolver maps live aggregate functions to their final/partial
// decomposition. Results are cached per aggregate FuncID for the life of
// the catalog; any catalog change invalidates the whole cache.
type Resolver struct {
	cat catalog.Catalog

	mu struct {
		syncutil.RWMutex
		entries map[catalog.FuncID]*resolvedEntry
	}
}

// NewResolver returns a resolver bound to cat, registered for
// invalidation on catalog changes.
func NewResolver(cat catalog.Catalog) *Resolver {
	r := &Resolver{cat: cat}
	r.mu.entries = make(map[catalog.FuncID]*resolvedEntry)
	cat.OnChange(r.invalidate)
	return r
}

// invalidate drops every cached entry. Invalidation is deliberately
// coarse; resolution is cheap enough to redo after a catalog change.
func (r *Resolver) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.entries = make(map[catalog.FuncID]*resolvedEntry)
	metricCacheInvalidations.Inc()
}

// ResolvedAgg is the exported view of one aggregate decomposition.
type ResolvedAgg struct {
	FinalFunc   catalog.FuncID
	PartialFunc catalog.FuncID
	// PartialType is the partial function's return type.
	PartialType  *types.T
	Action       Action
	NumericAware bool
}

// Resolve reports how agg decomposes into a final aggregate over a
// device partial function. ok is false when the aggregate has no device
// rendition under the current settings.
func (r *Resolver) Resolve(agg catalog.FuncID) (res ResolvedAgg, ok bool, err error) {
	e, err := r.resolve(agg)
	if err != nil || e == nil {
		return ResolvedAgg{}, false, err
	}
	return ResolvedAgg{
		FinalFunc:    e.finalFunc,
		PartialFunc:  e.partialFunc,
		PartialType:  e.partialRetType,
		Action:       e.action,
		NumericAware: e.numericAware,
	}, true, nil
}

// resolve returns the decomposition for agg, or nil if the aggregate has
// no device rendition (including when the rendition is suppressed by the
// numeric-aggregates setting). Errors indicate static/live catalog
// inconsistency, never a merely-unsupported aggregate.
func (r *Resolver) resolve(agg catalog.FuncID) (*resolvedEntry, error) {
	r.mu.RLock()
	e, ok := r.mu.entries[agg]
	r.mu.RUnlock()
	if ok {
		metricCacheHits.Inc()
		return filterEntry(e), nil
	}
	metricCacheMisses.Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.mu.entries[agg]; ok {
		return filterEntry(e), nil
	}
	e = &resolvedEntry{agg: agg}
	if err := r.populate(e); err != nil {
		// Nothing is cached on error; a later call retries from scratch.
		return nil, err
	}
	r.mu.entries[agg] = e
	return filterEntry(e), nil
}

// filterEntry applies the lookup-time suppressions to a cached entry.
// The numeric toggle is checked here rather than at population time so
// that flipping the setting needs no cache invalidation.
func filterEntry(e *resolvedEntry) *resolvedEntry {
	if !e.valid {
		return nil
	}
	if e.numericAware && !NumericAggsEnabled.Get() {
		return nil
	}
	return e
}

// populate fills e from the static catalog and the live catalog. A
// missing static entry or out-of-scope aggregate leaves e invalid (a
// cached negative); a static entry that disagrees with the live catalog
// is an assertion failure.
func (r *Resolver) populate(e *resolvedEntry) error {
	d, err := r.cat.LookupFunction(e.agg)
	if err != nil {
		return errors.Wrapf(err, "resolving aggregate %d", e.agg)
	}
	if !d.IsAggregate || d.Namespace != catalog.SysNamespace || len(d.ArgTypes) > 2 {
		return nil
	}
	ent, ok := lookupAggFuncCatalog(d.Signature())
	if !ok {
		return nil
	}
	if err := r.resolvePartialFunc(e, ent.partialSig, ent.action); err != nil {
		return err
	}
	if err := r.resolveFinalFunc(e, ent.finalSig, d.ReturnType); err != nil {
		return err
	}
	e.numericAware = ent.numericAware
	e.valid = true
	return nil
}

// resolvePartialFunc resolves the partial-function signature against the
// live catalog and checks it has the exact shape its action dictates.
func (r *Resolver) resolvePartialFunc(e *resolvedEntry, sig string, action Action) error {
	id, err := r.resolveFuncSignature(sig)
	if err != nil {
		return err
	}
	d, err := r.cat.LookupFunction(id)
	if err != nil {
		return errors.Wrapf(err, "partial function %q", sig)
	}
	wantRet, wantArgs, ok := action.partialShape()
	if !ok {
		return errors.AssertionFailedf("aggregate action %s has no partial function shape", action)
	}
	if !d.ReturnType.Identical(wantRet) || len(d.ArgTypes) != wantArgs {
		return errors.AssertionFailedf(
			"partial function %q has signature (%d args)->%s, expected (%d args)->%s",
			sig, len(d.ArgTypes), d.ReturnType.Name(), wantArgs, wantRet.Name())
	}
	e.partialFunc = id
	e.partialRetType = d.ReturnType
	e.partialNumArgs = wantArgs
	e.action = action
	return nil
}

// resolveFinalFunc resolves the final-aggregate signature and checks that
// it is an aggregate consuming exactly the partial result type and
// producing exactly the original aggregate's result type.
func (r *Resolver) resolveFinalFunc(e *resolvedEntry, sig string, aggRetType *types.T) error {
	id, err := r.resolveFuncSignature(sig)
	if err != nil {
		return err
	}
	d, err := r.cat.LookupFunction(id)
	if err != nil {
		return errors.Wrapf(err, "final function %q", sig)
	}
	if !d.IsAggregate {
		return errors.AssertionFailedf("final function %q is not an aggregate", sig)
	}
	if !d.ReturnType.Identical(aggRetType) {
		return errors.AssertionFailedf(
			"final function %q returns %s, expected %s",
			sig, d.ReturnType.Name(), aggRetType.Name())
	}
	if len(d.ArgTypes) != 1 || !e.partialRetType.Matches(d.ArgTypes[0]) {
		return errors.AssertionFailedf(
			"final function %q does not consume the partial result type %s",
			sig, e.partialRetType.Name())
	}
	e.finalFunc = id
	return nil
}

// resolveFuncSignature resolves a namespace-qualified signature string
// like "xpu:pmin(int4)" against the live catalog. The static catalog
// only ever names functions that a correctly installed system has, so a
// miss is an assertion failure, not a decline.
func (r *Resolver) resolveFuncSignature(sig string) (catalog.FuncID, error) {
	ns, name, argTypes, err := parseFuncSignature(sig)
	if err != nil {
		return catalog.InvalidFuncID, err
	}
	id, ok := r.cat.ResolveFunction(ns, name, argTypes)
	if !ok {
		return catalog.InvalidFuncID, errors.AssertionFailedf(
			"function %q in the aggregate transformation catalog is not installed", sig)
	}
	return id, nil
}

func parseFuncSignature(sig string) (ns, name string, argTypes []*types.T, err error) {
	rest := sig
	switch {
	case strings.HasPrefix(rest, "sys:"):
		ns, rest = catalog.SysNamespace, rest[len("sys:"):]
	case strings.HasPrefix(rest, "xpu:"):
		ns, rest = catalog.XPUNamespace, rest[len("xpu:"):]
	default:
		return "", "", nil, errors.AssertionFailedf("signature %q has no namespace prefix", sig)
	}
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return "", "", nil, errors.AssertionFailedf("malformed signature %q", sig)
	}
	name = rest[:open]
	if args := rest[open+1 : len(rest)-1]; args != "" {
		for _, tn := range strings.Split(args, ",") {
			t, ok := types.ByName(tn)
			if !ok {
				return "", "", nil, errors.AssertionFailedf("signature %q names unknown type %q", sig, tn)
			}
			argTypes = append(argTypes, t)
		}
	}
	return ns, name, argTypes, nil
}
