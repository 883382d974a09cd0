// Package adapters plugs third-party structured loggers into
// coredb/logging.Logger, kept as a separate module so the core storage
// engine never depends on zap or logrus itself.
package adapters

import (
	"go.uber.org/zap"

	"coredb/logging"
)

// Zap adapts a *zap.Logger to logging.Logger.
type Zap struct {
	l *zap.Logger
}

// NewZap wraps an existing zap logger.
func NewZap(l *zap.Logger) logging.Logger {
	return &Zap{l: l}
}

func (z *Zap) Info(msg string, kv ...any)  { z.l.Sugar().Infow(msg, kv...) }
func (z *Zap) Warn(msg string, kv ...any)  { z.l.Sugar().Warnw(msg, kv...) }
func (z *Zap) Error(msg string, kv ...any) { z.l.Sugar().Errorw(msg, kv...) }
