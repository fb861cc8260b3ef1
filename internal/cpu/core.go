// Package cpu implements C1: a MIPS32 big-endian CPU core wrapping Unicorn
// Engine, exposing register/memory access and hook installation.
//
// Grounded on the teacher's internal/emulator/emulator.go wrapper (the
// `mu uc.Unicorn` field, HookAdd-based setupHooks pattern, and the
// Reg*/Mem*/Run/Stop accessor shape) re-targeted from ARM64 to MIPS32BE.
package cpu

import (
	"fmt"
	"sync"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/flexemu-go/mipsevm/internal/arch"
	"github.com/flexemu-go/mipsevm/internal/memory"
)

// ExecutionError is spec.md §7's "Execution" error kind: a fault raised by
// the interpreter (bad instruction, unmapped access, permission violation).
type ExecutionError struct {
	PC  uint64
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("cpu: execution fault at pc=%#x: %v", e.PC, e.Err)
}
func (e *ExecutionError) Unwrap() error { return e.Err }

// CodeHookFunc is invoked for every executed instruction.
type CodeHookFunc func(c *Core, addr uint64, size uint32)

// MemHookFunc is invoked on mapped-memory reads/writes in a registered range.
// access is one of the uc.MEM_* access-kind constants.
type MemHookFunc func(c *Core, access int, addr uint64, size int, value int64)

// IntrHookFunc is invoked on a guest interrupt/trap (MIPS syscall signal 17).
type IntrHookFunc func(c *Core, intno uint32)

// Core wraps a single Unicorn engine instance configured for MIPS32 big
// endian. It is not safe for concurrent use — the emulator is strictly
// single-threaded per spec.md §5.
type Core struct {
	mu uc.Unicorn

	profile arch.Profile

	codeHooks []CodeHookFunc
	memHooks  []MemHookFunc
	intrHook  IntrHookFunc

	stopped bool
}

// engineRegistry resolves the cyclic-ownership design note: Unicorn's Go
// binding has no user-data slot, so we key a package-level table by the
// engine handle itself — the Go analogue of an arena+index scheme, with the
// handle acting as the index. Access is single-threaded by construction
// (spec.md §5), but the mutex guards the rare case of multiple Core
// instances existing in the same process (e.g. tests running in parallel).
var (
	engineRegistryMu sync.Mutex
	engineRegistry    = map[uc.Unicorn]*Core{}
)

// New creates a MIPS32 big-endian CPU core.
func New(profile arch.Profile) (*Core, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_MIPS, uc.MODE_32+uc.MODE_BIG_ENDIAN)
	if err != nil {
		return nil, fmt.Errorf("cpu: create unicorn: %w", err)
	}
	c := &Core{mu: mu, profile: profile}

	engineRegistryMu.Lock()
	engineRegistry[mu] = c
	engineRegistryMu.Unlock()

	if err := c.setupHooks(); err != nil {
		mu.Close()
		return nil, err
	}
	return c, nil
}

func fromEngine(mu uc.Unicorn) *Core {
	engineRegistryMu.Lock()
	defer engineRegistryMu.Unlock()
	return engineRegistry[mu]
}

// setupHooks installs the three hook categories C1 exposes upward
// (add_code_hook / add_mem_hook / add_intr_hook), each dispatching through
// this Core's own hook slices/callback — mirroring the teacher's single
// HOOK_CODE HookAdd dispatching through an addrHooks map, generalized to
// cover HOOK_MEM and HOOK_INTR as well.
func (c *Core) setupHooks() error {
	if _, err := c.mu.HookAdd(uc.HOOK_CODE, func(mu uc.Unicorn, addr uint64, size uint32) {
		self := fromEngine(mu)
		if self == nil || self.stopped {
			return
		}
		for _, h := range self.codeHooks {
			h(self, addr, size)
		}
	}, 1, 0); err != nil {
		return fmt.Errorf("cpu: install code hook: %w", err)
	}

	if _, err := c.mu.HookAdd(uc.HOOK_MEM_READ|uc.HOOK_MEM_WRITE, func(mu uc.Unicorn, access int, addr uint64, size int, value int64) {
		self := fromEngine(mu)
		if self == nil {
			return
		}
		for _, h := range self.memHooks {
			h(self, access, addr, size, value)
		}
	}, 1, 0); err != nil {
		return fmt.Errorf("cpu: install mem hook: %w", err)
	}

	if _, err := c.mu.HookAdd(uc.HOOK_INTR, func(mu uc.Unicorn, intno uint32) {
		self := fromEngine(mu)
		if self == nil || self.intrHook == nil {
			return
		}
		self.intrHook(self, intno)
	}, 1, 0); err != nil {
		return fmt.Errorf("cpu: install intr hook: %w", err)
	}

	return nil
}

// AddCodeHook registers cb to run on every executed instruction.
func (c *Core) AddCodeHook(cb CodeHookFunc) {
	c.codeHooks = append(c.codeHooks, cb)
}

// AddMemHook registers cb for memory accesses (hook range is the full
// address space; filtering by [lo,hi) is the caller's responsibility since
// Unicorn's own hook-range is used only for the installation call above).
func (c *Core) AddMemHook(cb MemHookFunc) {
	c.memHooks = append(c.memHooks, cb)
}

// AddIntrHook registers cb to run on every guest interrupt/trap. Only one
// interrupt hook is supported (the syscall dispatcher owns it).
func (c *Core) AddIntrHook(cb IntrHookFunc) {
	c.intrHook = cb
}

// EmuStart runs until PC reaches pcEnd, the timeout (microseconds, 0 = none)
// elapses, maxSteps instructions have executed (0 = unbounded), or EmuStop is
// called from a hook.
func (c *Core) EmuStart(pcBegin, pcEnd uint64, timeout uint64, maxSteps uint64) error {
	c.stopped = false
	err := c.mu.StartWithOptions(pcBegin, pcEnd, &uc.UcOptions{Timeout: timeout, Count: maxSteps})
	if err != nil {
		pc, _ := c.RegRead(c.profile.RegPC)
		return &ExecutionError{PC: pc, Err: err}
	}
	return nil
}

// EmuStop requests termination after the current instruction.
func (c *Core) EmuStop() {
	c.stopped = true
	c.mu.Stop()
}

// Close releases the underlying Unicorn engine.
func (c *Core) Close() error {
	engineRegistryMu.Lock()
	delete(engineRegistry, c.mu)
	engineRegistryMu.Unlock()
	return c.mu.Close()
}

// --- Register access (never fails for valid IDs, per spec.md §4.1) ---

func (c *Core) RegRead(id int) (uint64, error)        { return c.mu.RegRead(id) }
func (c *Core) RegWrite(id int, v uint64) error        { return c.mu.RegWrite(id, v) }
func (c *Core) PC() (uint64, error)                    { return c.mu.RegRead(c.profile.RegPC) }
func (c *Core) SetPC(v uint64) error                   { return c.mu.RegWrite(c.profile.RegPC, v) }
func (c *Core) SP() (uint64, error)                    { return c.mu.RegRead(c.profile.RegSP) }
func (c *Core) SetSP(v uint64) error                   { return c.mu.RegWrite(c.profile.RegSP, v) }

// --- Memory access: propagate Memory errors per spec.md §4.1 ---

func (c *Core) MemRead(addr, size uint64) ([]byte, error) {
	data, err := c.mu.MemRead(addr, size)
	if err != nil {
		return nil, fmt.Errorf("cpu: %w: mem_read %#x/%d: %v", memory.ErrNotMapped, addr, size, err)
	}
	return data, nil
}

func (c *Core) MemWrite(addr uint64, data []byte) error {
	if err := c.mu.MemWrite(addr, data); err != nil {
		return fmt.Errorf("cpu: %w: mem_write %#x/%d: %v", memory.ErrNotMapped, addr, len(data), err)
	}
	return nil
}

func (c *Core) ReadU32(addr uint64) (uint32, error) {
	b, err := c.MemRead(addr, 4)
	if err != nil {
		return 0, err
	}
	return beUint32(b), nil
}

func (c *Core) WriteU32(addr uint64, v uint32) error {
	var b [4]byte
	putBeUint32(b[:], v)
	return c.MemWrite(addr, b[:])
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func permToProt(p memory.Perm) int {
	prot := uc.PROT_NONE
	if p&memory.PermRead != 0 {
		prot |= uc.PROT_READ
	}
	if p&memory.PermWrite != 0 {
		prot |= uc.PROT_WRITE
	}
	if p&memory.PermExec != 0 {
		prot |= uc.PROT_EXEC
	}
	return prot
}

// MapHost, UnmapHost, ProtectHost implement memory.Unmapper: they are the
// host-side half of C2's mem_map/mem_unmap/mem_protect contracts.
func (c *Core) MapHost(begin, size uint64, perms memory.Perm) error {
	return c.mu.MemMapProt(begin, size, permToProt(perms))
}

func (c *Core) UnmapHost(begin, size uint64) error {
	return c.mu.MemUnmap(begin, size)
}

func (c *Core) ProtectHost(begin, size uint64, perms memory.Perm) error {
	return c.mu.MemProtect(begin, size, permToProt(perms))
}
