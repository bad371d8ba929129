/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2019-2026 Mesh Courier Contributors. All Rights Reserved.
 */

// Package logger defines the small leveled logging surface every core
// component is constructed with (Debug/Info/Error), backed by zap
// instead of a bare stdlib *log.Logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelSilent = iota
	LevelError
	LevelInfo
	LevelDebug
)

// Logger is the leveled logging interface consumed by every component
// in this module. Components never depend on zap directly; they take
// a Logger so tests can swap in a no-op or buffering implementation.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	z *zap.SugaredLogger
}

// New builds a Logger at the given verbosity, tagged with prepend
// (typically the component name, e.g. "router" or "outbox").
func New(level int, prepend string) Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLevel := zapcore.InvalidLevel
	switch {
	case level >= LevelDebug:
		zapLevel = zapcore.DebugLevel
	case level >= LevelInfo:
		zapLevel = zapcore.InfoLevel
	case level >= LevelError:
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.FatalLevel + 1 // silent: nothing is ever emitted
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zapLevel,
	)

	base := zap.New(core).Named(prepend).Sugar()
	return &zapLogger{z: base}
}

func (l *zapLogger) Debugf(format string, args ...interface{}) { l.z.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.z.Infof(format, args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.z.Errorf(format, args...) }

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{z: l.z.Desugar().With(fields...).Sugar()}
}

// Nop returns a Logger that discards everything, for use in tests that
// don't care about log output.
func Nop() Logger {
	return &zapLogger{z: zap.NewNop().Sugar()}
}
