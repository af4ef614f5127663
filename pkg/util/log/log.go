// Copyright 2026 The XPUDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package log provides the process-wide structured logging facility.
//
// The call surface is intentionally small: Infof/Warningf/Errorf for
// unconditional events, VEventf for verbosity-gated planner tracing, and
// Fatalf for unrecoverable conditions. Output is produced by a zap core.
package log

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.SugaredLogger]

// verbosity gates VEventf; events with level <= verbosity are emitted.
var verbosity int32

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	logger.Store(l.Sugar())
}

// SetLogger replaces the process-wide logger. Intended for embedding
// applications that own the zap configuration.
func SetLogger(l *zap.Logger) {
	logger.Store(l.Sugar())
}

// SetVerbosity sets the level up to which VEventf events are emitted.
func SetVerbosity(level int) {
	atomic.StoreInt32(&verbosity, int32(level))
}

// V returns true if the verbosity is at or above the requested level.
// Use to avoid building expensive event messages that would be dropped.
func V(level int32) bool {
	return atomic.LoadInt32(&verbosity) >= level
}

// VEventf logs a verbosity-gated event. Planner code uses level 2 for
// "why was this alternative not produced" diagnostics.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logger.Load().Debugf(format, args...)
	}
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logger.Load().Infof(format, args...)
}

// Warningf logs a warning message.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logger.Load().Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logger.Load().Errorf(format, args...)
}

// Fatalf logs and then panics. Reserved for invariant violations that
// make it unsafe to continue planning.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logger.Load().Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
