// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log hands out go-ethereum loggers bound to a process wide handler,
// which may be set after the loggers are created.
package log

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	ethlog "github.com/ethereum/go-ethereum/log"
)

type Logger = ethlog.Logger

var root atomic.Pointer[slog.Handler]

func init() {
	SetHandler(ethlog.DiscardHandler())
}

// SetHandler routes the records of every logger to h.
func SetHandler(h slog.Handler) {
	root.Store(&h)
	ethlog.SetDefault(ethlog.NewLogger(h))
}

// WithContext returns a logger carrying ctx. Package level loggers are
// created with it.
func WithContext(ctx ...any) Logger {
	return ethlog.NewLogger(&lazyHandler{}).With(ctx...)
}

// lazyHandler resolves the root handler on every record.
type lazyHandler struct {
	attrs []slog.Attr
}

func (l *lazyHandler) handler() slog.Handler {
	h := *root.Load()
	if len(l.attrs) > 0 {
		h = h.WithAttrs(l.attrs)
	}
	return h
}

func (l *lazyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*root.Load()).Enabled(ctx, level)
}

func (l *lazyHandler) Handle(ctx context.Context, r slog.Record) error {
	return l.handler().Handle(ctx, r)
}

func (l *lazyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lazyHandler{attrs: append(slices.Clip(l.attrs), attrs...)}
}

// WithGroup is unsupported, as by the go-ethereum handlers.
func (l *lazyHandler) WithGroup(string) slog.Handler {
	return l
}
