package telescope

import (
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu          sync.RWMutex
	opsLogger   *zap.SugaredLogger
	diagLogger  *zap.SugaredLogger
	traceLogger *zap.SugaredLogger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w LogWriters) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger("ops", w.Ops)
	diagLogger = newLogger("diag", w.Diag)
	traceLogger = newLogger("trace", w.Trace)
}

// newLogger creates a console logger for a given writer, or returns nil if w is nil.
func newLogger(stream string, w io.Writer) *zap.SugaredLogger {
	if w == nil {
		return nil
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		NameKey:          "stream",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core).Named("telescope." + stream).Sugar()
}

// Opsf logs to the ops stream (fatal aborts, run lifecycle events).
func Opsf(format string, args ...interface{}) {
	mu.RLock()
	l := opsLogger
	mu.RUnlock()
	if l != nil {
		l.Infof(format, args...)
	}
}

// Diagf logs to the diag stream (skipped events, missed planes, tuning context).
func Diagf(format string, args ...interface{}) {
	mu.RLock()
	l := diagLogger
	mu.RUnlock()
	if l != nil {
		l.Debugf(format, args...)
	}
}

// Tracef logs to the trace stream (per-plane propagation telemetry).
func Tracef(format string, args ...interface{}) {
	mu.RLock()
	l := traceLogger
	mu.RUnlock()
	if l != nil {
		l.Debugf(format, args...)
	}
}
