// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides the key-value logger used across the repo, built on
// log/slog with a process-wide level.
package log

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the key-value logging surface handed to packages.
type Logger interface {
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	With(ctx ...any) Logger
}

var (
	level  = new(slog.LevelVar)
	output = &swapWriter{w: os.Stderr}
	root   = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))
)

// WithContext returns a logger carrying the given key-value context,
// typically ("pkg", name).
func WithContext(ctx ...any) Logger {
	return &logger{root.With(ctx...)}
}

// SetVerbosity maps a numeric CLI verbosity to the process log level:
// 0 errors only, 1 warnings, 2 info, 3 and above debug.
func SetVerbosity(v int) {
	switch {
	case v <= 0:
		level.Set(slog.LevelError)
	case v == 1:
		level.Set(slog.LevelWarn)
	case v == 2:
		level.Set(slog.LevelInfo)
	default:
		level.Set(slog.LevelDebug)
	}
}

// SetOutput redirects all loggers, including ones already handed out.
func SetOutput(w io.Writer) {
	output.swap(w)
}

type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) swap(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

type logger struct {
	l *slog.Logger
}

func (lg *logger) Debug(msg string, ctx ...any) { lg.l.Debug(msg, ctx...) }
func (lg *logger) Info(msg string, ctx ...any)  { lg.l.Info(msg, ctx...) }
func (lg *logger) Warn(msg string, ctx ...any)  { lg.l.Warn(msg, ctx...) }
func (lg *logger) Error(msg string, ctx ...any) { lg.l.Error(msg, ctx...) }

func (lg *logger) With(ctx ...any) Logger {
	return &logger{lg.l.With(ctx...)}
}
