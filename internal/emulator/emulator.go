// Package emulator implements C8: the orchestrator that combines C1-C7
// (core, memory, shadow, register/stack, loader, calling convention,
// syscall dispatcher) behind `Load`/`Run`/`RunSteps`/`Snapshot`/`RecordStep`,
// and drives C9's step-proof generator for a single recorded step.
//
// Grounded on original_source/omo/src/emulator.rs (`Emulator::new/load/run`,
// `default_exitpoint`) and original_source/omo/src/registers.rs
// (`save_registers` excluding zero values).
package emulator

import (
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/flexemu-go/mipsevm/internal/arch"
	"github.com/flexemu-go/mipsevm/internal/config"
	"github.com/flexemu-go/mipsevm/internal/cpu"
	"github.com/flexemu-go/mipsevm/internal/loader"
	"github.com/flexemu-go/mipsevm/internal/log"
	"github.com/flexemu-go/mipsevm/internal/memory"
	"github.com/flexemu-go/mipsevm/internal/shadow"
	"github.com/flexemu-go/mipsevm/internal/syscall"
	"github.com/flexemu-go/mipsevm/internal/trie"
)

// State is the orchestrator's lifecycle (spec.md §3's "Ownership"
// discussion implies this progression; named here for Snapshot/RecordStep
// callers to assert against).
type State int

const (
	StateCreated State = iota
	StateLoaded
	StateTerminated
	StateRecordedStep
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLoaded:
		return "loaded"
	case StateTerminated:
		return "terminated"
	case StateRecordedStep:
		return "recorded-step"
	default:
		return "unknown"
	}
}

// defaultExitPoint32 is default_exitpoint(4) from the reference
// implementation: for MIPS32's 4-byte pointers the conventional
// "main has returned" trap target is 0x8fffffff.
const defaultExitPoint32 = 0x8fffffff

// Emulator owns the CPU core, memory manager, shadow mirror, and syscall
// dispatcher for one guest's entire lifetime (spec.md §3 "Ownership").
type Emulator struct {
	cfg config.Config

	core *cpu.Core
	mm   *memory.Manager
	sh   *shadow.Memory
	sc   *syscall.Dispatcher

	state   State
	info    *loader.LoadInfo
	started bool

	trapErr error

	recording bool
	access    []trie.MemAccess
	accessErr error
}

// New constructs an unloaded emulator for the given configuration.
func New(cfg config.Config) (*Emulator, error) {
	core, err := cpu.New(arch.MIPS32BE)
	if err != nil {
		return nil, err
	}

	e := &Emulator{
		cfg:   cfg,
		core:  core,
		sh:    shadow.New(),
		state: StateCreated,
	}
	e.mm = memory.NewManager(core)

	core.AddMemHook(e.onMemAccess)
	core.AddIntrHook(e.onInterrupt)

	return e, nil
}

// Close releases the underlying CPU core.
func (e *Emulator) Close() error { return e.core.Close() }

// Load parses and maps binary, constructs the argv/envp/auxv stack frame,
// and wires the syscall dispatcher to the loader's brk/mmap bookkeeping
// (spec.md §4.5/§4.6).
func (e *Emulator) Load(binary []byte, argv []string, env map[string]string) (*loader.LoadInfo, error) {
	info, err := loader.Load(e.cfg.OS, binary, argv, env, e.core, e.mm)
	if err != nil {
		return nil, err
	}
	e.info = info
	e.sc = syscall.New(arch.MIPS32BE, e.mm, e.core, info.MmapAddress, info.BrkAddress)
	e.state = StateLoaded
	return info, nil
}

// exitpoint returns the run boundary, always defaultExitPoint32 (the
// default Emulator::run uses in the reference implementation).
func (e *Emulator) exitpoint() uint64 { return defaultExitPoint32 }

// Run executes from the current PC until exitpoint, timeout (microseconds,
// 0 = none), or maxSteps (0 = unbounded) — spec.md §4.8's "run to
// completion" mode.
func (e *Emulator) Run(timeout, maxSteps uint64) error {
	if e.state != StateLoaded && e.state != StateTerminated {
		return fmt.Errorf("emulator: Run called in state %s", e.state)
	}
	pc, err := e.currentPC()
	if err != nil {
		return err
	}
	e.trapErr = nil
	e.started = true
	if err := e.core.EmuStart(pc, e.exitpoint(), timeout, maxSteps); err != nil {
		return err
	}
	if e.trapErr != nil {
		return e.trapErr
	}
	e.state = StateTerminated
	return nil
}

// RunSteps executes exactly n instructions from the current PC — spec.md
// §4.8's "run to count" (checkpoint) mode.
func (e *Emulator) RunSteps(n uint64) error {
	if n == 0 {
		return nil
	}
	pc, err := e.currentPC()
	if err != nil {
		return err
	}
	e.trapErr = nil
	e.started = true
	if err := e.core.EmuStart(pc, e.exitpoint(), 0, n); err != nil {
		return err
	}
	if e.trapErr != nil {
		return e.trapErr
	}
	return nil
}

func (e *Emulator) currentPC() (uint64, error) {
	if !e.started && e.info != nil {
		// The very first run starts at the loader's entrypoint rather than
		// whatever PC Unicorn happens to report pre-start.
		return e.info.Entrypoint, nil
	}
	return e.core.PC()
}

// RecordStep runs to step n-1 (checkpoint), then re-runs exactly one more
// instruction with the access recorder attached, and hands the resulting
// before/after state and access log to C9 — spec.md §4.6 steps 1-6 and
// §4.7 steps 1-5 combined.
func (e *Emulator) RecordStep(n uint64) (*trie.Proof, error) {
	if n == 0 {
		return nil, fmt.Errorf("emulator: step must be >= 1")
	}
	if n > 1 {
		if err := e.RunSteps(n - 1); err != nil {
			return nil, err
		}
	}

	beforeRegs := e.saveRegisters()
	beforeMem := e.sh.Snapshot()
	stepPC, _ := e.currentPC()

	e.access = nil
	e.accessErr = nil
	e.recording = true
	err := e.RunSteps(1)
	e.recording = false
	if err != nil {
		return nil, err
	}
	if e.accessErr != nil {
		return nil, e.accessErr
	}

	afterRegs := e.saveRegisters()
	access := e.access
	e.access = nil
	e.state = StateRecordedStep

	if log.L != nil && e.info != nil {
		log.L.Step(stepPC, n)
	}

	return trie.GenerateStepProof(beforeMem, beforeRegs, afterRegs, access)
}

// saveRegisters dumps every general-purpose register, excluding those
// holding zero (spec.md §3's "Register state").
func (e *Emulator) saveRegisters() map[int]uint64 {
	regs := make(map[int]uint64)
	for _, id := range arch.AllGeneralRegisters {
		v, err := e.core.RegRead(id)
		if err != nil || v == 0 {
			continue
		}
		regs[id] = v
	}
	return regs
}

// onMemAccess is the always-installed write-observing hook (spec.md §4.6):
// it mirrors every write into the shadow memory, and — while a step is
// being recorded — appends an access record for every read and write in
// instruction-issue order.
func (e *Emulator) onMemAccess(_ *cpu.Core, access int, addr uint64, size int, value int64) {
	isWrite := access == uc.MEM_WRITE
	if isWrite {
		e.sh.WriteValue(addr, size, value)
	}

	if !e.recording {
		return
	}
	if size != 4 || addr&3 != 0 {
		if e.accessErr == nil {
			pc, _ := e.core.PC()
			e.accessErr = &cpu.ExecutionError{PC: pc, Err: fmt.Errorf("emulator: recorded access at %#x/%d is not a word-aligned 4-byte access", addr, size)}
		}
		e.core.EmuStop()
		return
	}
	e.access = append(e.access, trie.MemAccess{
		Write: isWrite,
		Addr:  addr,
		Size:  size,
		Value: uint64(uint32(value)),
	})
}

// onInterrupt routes a guest trap to the syscall dispatcher, stashing any
// fatal error for Run/RunSteps to surface after EmuStart returns (the
// intr-hook signature has no error channel of its own).
func (e *Emulator) onInterrupt(core *cpu.Core, intno uint32) {
	if e.sc == nil {
		return
	}
	if err := e.sc.Handle(core, intno); err != nil {
		e.trapErr = err
		core.EmuStop()
	}
}

// Info returns the load info captured by Load.
func (e *Emulator) Info() *loader.LoadInfo { return e.info }

// State reports the orchestrator's current lifecycle state.
func (e *Emulator) State() State { return e.state }
