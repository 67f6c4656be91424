package wsrpc

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// testLogger implements Logger on top of an io.Writer so tests can assert on
// what the connector logged.
type testLogger struct {
	mu     *sync.Mutex
	writer io.Writer
	fields map[string]any
}

func newTestLogger(writer io.Writer) Logger {
	return &testLogger{
		mu:     &sync.Mutex{},
		writer: writer,
		fields: make(map[string]any),
	}
}

func (l *testLogger) WithField(key string, value any) Logger {
	newLogger := &testLogger{
		mu:     l.mu,
		writer: l.writer,
		fields: make(map[string]any, len(l.fields)+1),
	}
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	newLogger.fields[key] = value
	return newLogger
}

func (l *testLogger) formatFields() string {
	if len(l.fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, l.fields[k]))
	}
	return " [" + strings.Join(pairs, ", ") + "]"
}

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.writer, "[%s] %s%s: %s\n", timestamp, level, l.formatFields(), strings.TrimRight(msg, "\n"))
}

func (l *testLogger) Debug(args ...any) { l.log("DEBUG", fmt.Sprint(args...)) }

func (l *testLogger) Debugf(format string, args ...any) { l.log("DEBUG", fmt.Sprintf(format, args...)) }

func (l *testLogger) Debugln(args ...any) { l.log("DEBUG", fmt.Sprintln(args...)) }

func (l *testLogger) Info(args ...any) { l.log("INFO", fmt.Sprint(args...)) }

func (l *testLogger) Infof(format string, args ...any) { l.log("INFO", fmt.Sprintf(format, args...)) }

func (l *testLogger) Infoln(args ...any) { l.log("INFO", fmt.Sprintln(args...)) }

func (l *testLogger) Warn(args ...any) { l.log("WARN", fmt.Sprint(args...)) }

func (l *testLogger) Warnf(format string, args ...any) { l.log("WARN", fmt.Sprintf(format, args...)) }

func (l *testLogger) Warnln(args ...any) { l.log("WARN", fmt.Sprintln(args...)) }

func (l *testLogger) Error(args ...any) { l.log("ERROR", fmt.Sprint(args...)) }

func (l *testLogger) Errorf(format string, args ...any) { l.log("ERROR", fmt.Sprintf(format, args...)) }

func (l *testLogger) Errorln(args ...any) { l.log("ERROR", fmt.Sprintln(args...)) }

// syncBuffer is a goroutine safe strings.Builder.
type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
