/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging builds the logr.Logger used across lpdecl, backed by zap.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V().
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// Log is the process-wide logger. It discards everything until SetLogger is called.
var Log = logr.Discard()

// SetLogger replaces the process-wide logger.
func SetLogger(l logr.Logger) {
	Log = l
}

// ParseLevel maps "info", "debug" and "trace" to a logr verbosity.
func ParseLevel(level string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return INFO, nil
	case "debug":
		return DEBUG, nil
	case "trace":
		return TRACE, nil
	default:
		return 0, fmt.Errorf("unsupported log level: %q", level)
	}
}

// NewLogger builds a JSON zap logger at the given level and wraps it for logr.
// logr verbosity V(n) maps to zap level -n.
func NewLogger(level string, development bool) (logr.Logger, error) {
	v, err := ParseLevel(level)
	if err != nil {
		return logr.Discard(), err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

// NewTestLogger installs a development logger at trace level and returns it.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-TRACE))
	z, err := cfg.Build()
	if err != nil {
		SetLogger(logr.Discard())
		return Log
	}
	SetLogger(zapr.NewLogger(z))
	return Log
}
