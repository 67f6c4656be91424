package wsrpc

import (
	"io"

	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus logger or entry to Logger.
type logrusLogger struct {
	logrus.FieldLogger
}

func NewLogrusLogger(l logrus.FieldLogger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return logrusLogger{FieldLogger: l}
}

func (l logrusLogger) WithField(key string, value any) Logger {
	return logrusLogger{FieldLogger: l.FieldLogger.WithField(key, value)}
}

// NopLogger discards everything.
func NopLogger() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return NewLogrusLogger(l)
}
