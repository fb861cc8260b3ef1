package emulator

import (
	"testing"

	"github.com/flexemu-go/mipsevm/internal/config"
	"github.com/flexemu-go/mipsevm/internal/memory"
)

// newTestEmulator builds a real Unicorn-backed emulator with one executable
// RWX page mapped at codeBase, bypassing Load (no ELF fixture exists in this
// pack), the way the teacher's libc_test.go drives emulator.New() directly
// and pokes registers/memory rather than mocking the engine.
func newTestEmulator(t *testing.T, codeBase uint64) *Emulator {
	t.Helper()
	e, err := New(config.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	if err := e.mm.MemMap(codeBase, memory.PageSize, memory.PermRead|memory.PermWrite|memory.PermExec, "[test]"); err != nil {
		t.Fatalf("MemMap: %v", err)
	}
	return e
}

// mipsNop is the all-zero "sll $zero, $zero, 0" encoding MIPS treats as NOP.
var mipsNop = [4]byte{0, 0, 0, 0}

func TestRunStepsAdvancesPC(t *testing.T) {
	const base = 0x10000
	e := newTestEmulator(t, base)

	for i := uint64(0); i < 4; i++ {
		if err := e.core.MemWrite(base+i*4, mipsNop[:]); err != nil {
			t.Fatalf("MemWrite: %v", err)
		}
	}
	if err := e.core.SetPC(base); err != nil {
		t.Fatalf("SetPC: %v", err)
	}

	if err := e.RunSteps(3); err != nil {
		t.Fatalf("RunSteps: %v", err)
	}

	pc, err := e.core.PC()
	if err != nil {
		t.Fatalf("PC: %v", err)
	}
	if pc != base+3*4 {
		t.Fatalf("PC after 3 NOPs = %#x, want %#x", pc, base+3*4)
	}
}

func TestRecordStepProducesProof(t *testing.T) {
	const base = 0x20000
	e := newTestEmulator(t, base)

	for i := uint64(0); i < 2; i++ {
		if err := e.core.MemWrite(base+i*4, mipsNop[:]); err != nil {
			t.Fatalf("MemWrite: %v", err)
		}
	}
	if err := e.core.SetPC(base); err != nil {
		t.Fatalf("SetPC: %v", err)
	}

	proof, err := e.RecordStep(1)
	if err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	if proof == nil {
		t.Fatal("RecordStep returned a nil proof")
	}
	if e.State() != StateRecordedStep {
		t.Fatalf("State() = %v, want %v", e.State(), StateRecordedStep)
	}
}

func TestSnapshotExcludesZeroRegisters(t *testing.T) {
	const base = 0x30000
	e := newTestEmulator(t, base)

	snap := e.Snapshot("test-run")
	if snap.RunID != "test-run" {
		t.Fatalf("RunID = %q, want %q", snap.RunID, "test-run")
	}
	for id, v := range snap.Regs {
		if v == 0 {
			t.Fatalf("register %d is zero but was retained in the snapshot", id)
		}
	}
}
