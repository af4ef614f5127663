// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/xpudb/xpudb/pkg/sql/types"
	"github.com/xpudb/xpudb/pkg/util/syncutil"
)

type castKey struct {
	src, dst string
}

// MemCatalog is an in-memory Catalog implementation. Registration and
// lookup are safe for concurrent use; every mutation fires the registered
// change callbacks.
type MemCatalog struct {
	mu struct {
		syncutil.RWMutex
		byID      map[FuncID]*FunctionDescriptor
		byName    map[string][]*FunctionDescriptor
		casts     map[castKey]Cast
		callbacks []func()
		nextID    FuncID
	}
	// lookups counts live catalog queries; tests use it to verify that the
	// resolver cache avoids re-derivation.
	lookups atomic.Int64
}

// NewMemCatalog returns an empty catalog.
func NewMemCatalog() *MemCatalog {
	c := &MemCatalog{}
	c.mu.byID = make(map[FuncID]*FunctionDescriptor)
	c.mu.byName = make(map[string][]*FunctionDescriptor)
	c.mu.casts = make(map[castKey]Cast)
	c.mu.nextID = 1
	return c
}

// RegisterFunction adds a function and returns its assigned ID.
func (c *MemCatalog) RegisterFunction(desc FunctionDescriptor) FuncID {
	c.mu.Lock()
	desc.ID = c.mu.nextID
	c.mu.nextID++
	d := &desc
	c.mu.byID[d.ID] = d
	key := d.Namespace + "." + d.Name
	c.mu.byName[key] = append(c.mu.byName[key], d)
	c.mu.Unlock()
	c.notifyChanged()
	return d.ID
}

// DropFunction removes a function by ID; used by invalidation tests.
func (c *MemCatalog) DropFunction(id FuncID) {
	c.mu.Lock()
	d, ok := c.mu.byID[id]
	if ok {
		delete(c.mu.byID, id)
		key := d.Namespace + "." + d.Name
		overloads := c.mu.byName[key]
		for i, o := range overloads {
			if o.ID == id {
				c.mu.byName[key] = append(overloads[:i:i], overloads[i+1:]...)
				break
			}
		}
	}
	c.mu.Unlock()
	if ok {
		c.notifyChanged()
	}
}

// RegisterCast records a coercion from src to dst.
func (c *MemCatalog) RegisterCast(src, dst *types.T, method CastMethod, fn FuncID) {
	c.mu.Lock()
	c.mu.casts[castKey{src.Name(), dst.Name()}] = Cast{Method: method, Func: fn}
	c.mu.Unlock()
	c.notifyChanged()
}

// LookupFunction implements Catalog.
func (c *MemCatalog) LookupFunction(id FuncID) (*FunctionDescriptor, error) {
	c.lookups.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.mu.byID[id]
	if !ok {
		return nil, errors.Newf("catalog lookup failed for function %d", id)
	}
	return d, nil
}

// ResolveFunction implements Catalog.
func (c *MemCatalog) ResolveFunction(
	namespace, name string, argTypes []*types.T,
) (FuncID, bool) {
	c.lookups.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.mu.byName[namespace+"."+name] {
		if len(d.ArgTypes) != len(argTypes) {
			continue
		}
		match := true
		for i, t := range argTypes {
			if !t.Identical(d.ArgTypes[i]) {
				match = false
				break
			}
		}
		if match {
			return d.ID, true
		}
	}
	return InvalidFuncID, false
}

// LookupCast implements Catalog.
func (c *MemCatalog) LookupCast(src, dst *types.T) (Cast, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cast, ok := c.mu.casts[castKey{src.Name(), dst.Name()}]
	return cast, ok
}

// OnChange implements Catalog.
func (c *MemCatalog) OnChange(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.callbacks = append(c.mu.callbacks, f)
}

// LookupCount returns the number of live catalog queries served.
func (c *MemCatalog) LookupCount() int64 { return c.lookups.Load() }

func (c *MemCatalog) notifyChanged() {
	c.mu.RLock()
	callbacks := append([]func(){}, c.mu.callbacks...)
	c.mu.RUnlock()
	for _, f := range callbacks {
		f()
	}
}
