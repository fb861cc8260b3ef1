// Package log provides structured logging for mipsevm using zap.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flexemu-go/mipsevm/internal/trace"
)

// Logger wraps zap.Logger with mipsevm-specific helpers.
type Logger struct {
	*zap.Logger
	onStep    func(pc uint64, step uint64) // step callback for the TUI watcher
	onSyscall func(name string)            // syscall callback for the TUI watcher
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	// Shorter timestamps in development
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fallback to no-op if config fails
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// SetOnStep sets the step callback consumed by the `run --watch` TUI.
func (l *Logger) SetOnStep(fn func(pc uint64, step uint64)) {
	l.onStep = fn
}

// SetOnSyscall sets the syscall callback consumed by the `run --watch` TUI.
func (l *Logger) SetOnSyscall(fn func(name string)) {
	l.onSyscall = fn
}

// Step logs one executed instruction and forwards it to the step callback,
// if any is registered. Debug-level only: callers gate this behind -s/--steps
// tracing, not every run.
func (l *Logger) Step(pc uint64, step uint64) {
	if l.onStep != nil {
		l.onStep(pc, step)
	}
	l.Debug("step", CategoryField(trace.Step), zap.Uint64("pc", pc), zap.Uint64("step", step))
}

// Syscall logs a dispatched syscall by name, arguments, and return value.
func (l *Logger) Syscall(name string, pc uint64, args []uint64, ret int64) {
	if l.onSyscall != nil {
		l.onSyscall(name)
	}
	l.Debug("syscall",
		CategoryField(trace.Syscall),
		zap.String("name", name),
		Addr(pc),
		zap.Uint64s("args", args),
		zap.Int64("ret", ret),
	)
}

// MemMap logs a region being mapped, unmapped, or reprotected.
func (l *Logger) MemMap(op string, begin, end uint64, perms string, label string) {
	l.Debug("memmap",
		CategoryField(trace.MemoryMap),
		zap.String("op", op),
		Ptr("begin", begin),
		Ptr("end", end),
		zap.String("perms", perms),
		zap.String("label", label),
	)
}

// Fault logs a fatal execution fault (bad instruction, unmapped access,
// unimplemented syscall) at the PC it occurred at.
func (l *Logger) Fault(kind string, pc uint64, detail string) {
	l.Error("fault",
		CategoryField(trace.Fault),
		zap.String("kind", kind),
		Addr(pc),
		zap.String("detail", detail),
	)
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{
		Logger:    l.Logger.With(zap.String("cat", category)),
		onStep:    l.onStep,
		onSyscall: l.onSyscall,
	}
}

// Hex formats a uint64 as hex string for logging.
func Hex(addr uint64) string {
	return "0x" + hexString(addr)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// Field helpers for common patterns.

// Addr creates an address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Size creates a size field.
func Size(size uint64) zap.Field {
	return zap.Uint64("size", size)
}

// Ptr creates a pointer field.
func Ptr(name string, ptr uint64) zap.Field {
	return zap.String(name, Hex(ptr))
}

// CategoryField tags a log line with one of internal/trace's event
// categories, the same vocabulary the TUI's formatter groups lines by.
func CategoryField(tag trace.Tag) zap.Field {
	return zap.String("tag", string(tag))
}

// Fn creates a function name field.
func Fn(name string) zap.Field {
	return zap.String("fn", name)
}
