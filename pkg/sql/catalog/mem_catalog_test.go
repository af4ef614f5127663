// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xpudb/xpudb/pkg/sql/types"
)

func TestMemCatalogResolveFunction(t *testing.T) {
	c := NewMemCatalog()
	id1 := c.RegisterFunction(FunctionDescriptor{
		Name: "sum", Namespace: SysNamespace,
		ArgTypes: []*types.T{types.Int4}, ReturnType: types.Int8, IsAggregate: true,
	})
	id2 := c.RegisterFunction(FunctionDescriptor{
		Name: "sum", Namespace: SysNamespace,
		ArgTypes: []*types.T{types.Float8}, ReturnType: types.Float8, IsAggregate: true,
	})
	require.NotEqual(t, id1, id2)

	got, ok := c.ResolveFunction(SysNamespace, "sum", []*types.T{types.Float8})
	require.True(t, ok)
	require.Equal(t, id2, got)

	_, ok = c.ResolveFunction(SysNamespace, "sum", []*types.T{types.Bytes})
	require.False(t, ok)
	_, ok = c.ResolveFunction(XPUNamespace, "sum", []*types.T{types.Int4})
	require.False(t, ok)

	d, err := c.LookupFunction(id1)
	require.NoError(t, err)
	require.Equal(t, "sum(int4)", d.Signature())

	_, err = c.LookupFunction(FuncID(9999))
	require.Error(t, err)
}

func TestMemCatalogChangeCallbacks(t *testing.T) {
	c := NewMemCatalog()
	var fired int
	c.OnChange(func() { fired++ })

	id := c.RegisterFunction(FunctionDescriptor{
		Name: "f", Namespace: SysNamespace, ReturnType: types.Int8,
	})
	require.Equal(t, 1, fired)

	c.DropFunction(id)
	require.Equal(t, 2, fired)
	_, err := c.LookupFunction(id)
	require.Error(t, err)

	// Dropping an unknown ID is a no-op and must not notify.
	c.DropFunction(id)
	require.Equal(t, 2, fired)
}

func TestMemCatalogCasts(t *testing.T) {
	c := NewMemCatalog()
	fn := c.RegisterFunction(FunctionDescriptor{
		Name: "float8", Namespace: SysNamespace,
		ArgTypes: []*types.T{types.Int4}, ReturnType: types.Float8,
	})
	c.RegisterCast(types.Int4, types.Float8, CastMethodFunction, fn)

	cast, ok := c.LookupCast(types.Int4, types.Float8)
	require.True(t, ok)
	require.Equal(t, CastMethodFunction, cast.Method)
	require.Equal(t, fn, cast.Func)

	_, ok = c.LookupCast(types.Float8, types.Int4)
	require.False(t, ok)
}
