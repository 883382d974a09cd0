package adapters

import (
	"github.com/sirupsen/logrus"

	"coredb/logging"
)

// Logrus adapts a *logrus.Logger to logging.Logger.
type Logrus struct {
	l *logrus.Logger
}

// NewLogrus wraps an existing logrus logger.
func NewLogrus(l *logrus.Logger) logging.Logger {
	return &Logrus{l: l}
}

func (a *Logrus) Info(msg string, kv ...any)  { a.l.WithFields(fields(kv)).Info(msg) }
func (a *Logrus) Warn(msg string, kv ...any)  { a.l.WithFields(fields(kv)).Warn(msg) }
func (a *Logrus) Error(msg string, kv ...any) { a.l.WithFields(fields(kv)).Error(msg) }

func fields(kv []any) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}
