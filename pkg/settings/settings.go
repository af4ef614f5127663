// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package settings provides a central registry of typed, runtime-tunable
// configuration knobs.
//
// Entries are registered at init time via the Register helpers and read
// through typesafe getters. Values may be changed while the process runs;
// reads and writes are atomic.
package settings

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
)

// Setting is the common interface for all setting types.
type Setting interface {
	// Typ returns a one-character type identifier ("b", "i", "f").
	Typ() string
	// String returns the current value, formatted.
	String() string
	setToDefault()
}

// registry contains all defined settings and their descriptions.
//
// The registry should never be mutated after init, as it is read
// concurrently by different callers.
var registry = map[string]wrappedSetting{}

type wrappedSetting struct {
	description string
	setting     Setting
}

func register(key, desc string, s Setting) {
	if _, ok := registry[key]; ok {
		panic(fmt.Sprintf("setting already defined: %s", key))
	}
	s.setToDefault()
	registry[key] = wrappedSetting{description: desc, setting: s}
}

// Keys returns a sorted string array with all the known keys.
func Keys() (res []string) {
	res = make([]string, 0, len(registry))
	for k := range registry {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Lookup returns a Setting by name along with its description.
func Lookup(name string) (Setting, string, bool) {
	v, ok := registry[name]
	if !ok {
		return nil, "", false
	}
	return v.setting, v.description, true
}

// BoolSetting is the interface of a setting variable of type bool.
type BoolSetting struct {
	defaultValue bool
	v            int32
}

// Get retrieves the bool value in the setting.
func (b *BoolSetting) Get() bool {
	return atomic.LoadInt32(&b.v) != 0
}

// Override changes the setting value. Used from tests and the SET
// machinery; concurrent readers observe the new value atomically.
func (b *BoolSetting) Override(v bool) {
	var n int32
	if v {
		n = 1
	}
	atomic.StoreInt32(&b.v, n)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*BoolSetting) Typ() string { return "b" }

func (b *BoolSetting) String() string { return fmt.Sprint(b.Get()) }

func (b *BoolSetting) setToDefault() { b.Override(b.defaultValue) }

// RegisterBoolSetting defines a new setting with type bool.
func RegisterBoolSetting(key, desc string, defaultValue bool) *BoolSetting {
	setting := &BoolSetting{defaultValue: defaultValue}
	register(key, desc, setting)
	return setting
}

// IntSetting is the interface of a setting variable of type int64.
type IntSetting struct {
	defaultValue int64
	minValue     int64
	maxValue     int64
	v            int64
}

// Get retrieves the int value in the setting.
func (i *IntSetting) Get() int64 {
	return atomic.LoadInt64(&i.v)
}

// Override changes the setting value, clamping to the registered bounds.
func (i *IntSetting) Override(v int64) {
	if v < i.minValue {
		v = i.minValue
	}
	if v > i.maxValue {
		v = i.maxValue
	}
	atomic.StoreInt64(&i.v, v)
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*IntSetting) Typ() string { return "i" }

func (i *IntSetting) String() string { return fmt.Sprint(i.Get()) }

func (i *IntSetting) setToDefault() { i.Override(i.defaultValue) }

// RegisterIntSetting defines a new setting with type int64.
func RegisterIntSetting(key, desc string, defaultValue int64) *IntSetting {
	return RegisterBoundedIntSetting(key, desc, defaultValue, math.MinInt64, math.MaxInt64)
}

// RegisterBoundedIntSetting defines a new setting with type int64 whose
// value is clamped to [minValue, maxValue].
func RegisterBoundedIntSetting(key, desc string, defaultValue, minValue, maxValue int64) *IntSetting {
	if defaultValue < minValue || defaultValue > maxValue {
		panic(fmt.Sprintf("setting %s: default %d out of bounds [%d, %d]",
			key, defaultValue, minValue, maxValue))
	}
	setting := &IntSetting{
		defaultValue: defaultValue,
		minValue:     minValue,
		maxValue:     maxValue,
	}
	register(key, desc, setting)
	return setting
}

// FloatSetting is the interface of a setting variable of type float64.
type FloatSetting struct {
	defaultValue float64
	v            uint64
}

// Get retrieves the float value in the setting.
func (f *FloatSetting) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.v))
}

// Override changes the setting value.
func (f *FloatSetting) Override(v float64) {
	atomic.StoreUint64(&f.v, math.Float64bits(v))
}

// Typ returns the short (1 char) string denoting the type of setting.
func (*FloatSetting) Typ() string { return "f" }

func (f *FloatSetting) String() string { return fmt.Sprint(f.Get()) }

func (f *FloatSetting) setToDefault() { f.Override(f.defaultValue) }

// RegisterFloatSetting defines a new setting with type float64.
func RegisterFloatSetting(key, desc string, defaultValue float64) *FloatSetting {
	setting := &FloatSetting{defaultValue: defaultValue}
	register(key, desc, setting)
	return setting
}
