package log

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flexemu-go/mipsevm/internal/trace"
)

func newObservedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestStepLogLineCarriesCategoryTag(t *testing.T) {
	l, logs := newObservedLogger()
	l.Step(0x1000, 5)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	tag, ok := entries[0].ContextMap()["tag"]
	if !ok || tag != string(trace.Step) {
		t.Fatalf("tag field = %v, want %q", tag, trace.Step)
	}
}

func TestStepInvokesOnStepCallback(t *testing.T) {
	l, _ := newObservedLogger()

	var gotPC, gotStep uint64
	l.SetOnStep(func(pc, step uint64) { gotPC, gotStep = pc, step })
	l.Step(0x2000, 7)

	if gotPC != 0x2000 || gotStep != 7 {
		t.Fatalf("onStep callback got (%#x, %d), want (0x2000, 7)", gotPC, gotStep)
	}
}

func TestSyscallInvokesOnSyscallCallback(t *testing.T) {
	l, _ := newObservedLogger()

	var gotName string
	l.SetOnSyscall(func(name string) { gotName = name })
	l.Syscall("write", 0x3000, []uint64{1, 2, 3}, 3)

	if gotName != "write" {
		t.Fatalf("onSyscall callback got %q, want %q", gotName, "write")
	}
}

func TestWithCategoryPreservesCallbacks(t *testing.T) {
	l, _ := newObservedLogger()

	called := false
	l.SetOnStep(func(pc, step uint64) { called = true })

	sub := l.WithCategory("test")
	sub.Step(0, 0)

	if !called {
		t.Fatal("WithCategory must preserve the onStep callback")
	}
}
