// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package preagg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPathsOffered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xpudb",
		Subsystem: "preagg",
		Name:      "paths_offered_total",
		Help:      "Device partial-aggregation paths offered to the planner.",
	}, []string{"device"})

	metricDeclined = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xpudb",
		Subsystem: "preagg",
		Name:      "declined_total",
		Help:      "Pre-aggregation attempts declined, by reason.",
	}, []string{"reason"})

	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xpudb",
		Subsystem: "preagg",
		Name:      "resolver_cache_hits_total",
		Help:      "Aggregate resolver cache hits.",
	})

	metricCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xpudb",
		Subsystem: "preagg",
		Name:      "resolver_cache_misses_total",
		Help:      "Aggregate resolver cache misses.",
	})

	metricCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xpudb",
		Subsystem: "preagg",
		Name:      "resolver_cache_invalidations_total",
		Help:      "Wholesale aggregate resolver cache invalidations.",
	})
)

// Decline reasons.
const (
	declineUnsupportedAgg   = "unsupported-aggregate"
	declineUnsupportedKey   = "unsupported-group-key"
	declineUnsupportedExpr  = "unsupported-expression"
	declineUnsupportedShape = "unsupported-query-shape"
	declineHashBudget       = "hash-table-budget"
	declineNoInput          = "no-device-input"
)
