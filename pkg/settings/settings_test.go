// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	boolTA  = RegisterBoolSetting("test.bool.a", "desc", true)
	boolTB  = RegisterBoolSetting("test.bool.b", "desc", false)
	intTA   = RegisterBoundedIntSetting("test.int.a", "desc", 9, 4, 15)
	floatTA = RegisterFloatSetting("test.float.a", "desc", 0.0025)
)

func TestDefaults(t *testing.T) {
	require.True(t, boolTA.Get())
	require.False(t, boolTB.Get())
	require.Equal(t, int64(9), intTA.Get())
	require.Equal(t, 0.0025, floatTA.Get())
}

func TestOverride(t *testing.T) {
	defer boolTA.setToDefault()
	defer intTA.setToDefault()

	boolTA.Override(false)
	require.False(t, boolTA.Get())

	// Bounded settings clamp.
	intTA.Override(100)
	require.Equal(t, int64(15), intTA.Get())
	intTA.Override(1)
	require.Equal(t, int64(4), intTA.Get())
}

func TestLookup(t *testing.T) {
	s, desc, ok := Lookup("test.bool.a")
	require.True(t, ok)
	require.Equal(t, "desc", desc)
	require.Equal(t, "b", s.Typ())

	_, _, ok = Lookup("test.does.not.exist")
	require.False(t, ok)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	require.Panics(t, func() {
		RegisterBoolSetting("test.bool.a", "desc", true)
	})
}
