// Package syscall implements C7: the Linux syscall dispatcher that backs a
// trapped MIPS `syscall` instruction. The interrupt hook itself lives here;
// internal/emulator wires it to internal/cpu's intr-hook slot.
//
// Grounded on original_source/omo/src/os/linux/mod.rs's LinuxRunner/Inner
// (on_interrupt → handle_syscall dispatch, one method per syscall), restyled
// as a name-keyed handler registry the way the teacher's internal/stubs
// registry resolves a PLT address to a hook closure.
package syscall

import (
	"fmt"
	"os"

	"github.com/flexemu-go/mipsevm/internal/arch"
	"github.com/flexemu-go/mipsevm/internal/log"
	"github.com/flexemu-go/mipsevm/internal/memory"
)

// mipsSyscallSignal is the interrupt number MIPS raises for a `syscall`
// instruction trap (spec.md §4.4 step 1).
const mipsSyscallSignal = 17

// Core is the narrow slice of internal/cpu.Core the dispatcher needs.
type Core interface {
	arch.Registers
	arch.Memory
	PC() (uint64, error)
	MemRead(addr, size uint64) ([]byte, error)
	MemWrite(addr uint64, data []byte) error
}

// Mapper is the narrow slice of internal/memory.Manager the dispatcher needs
// for brk/mmap2/munmap/mprotect/madvise.
type Mapper interface {
	MemMap(begin, size uint64, perms memory.Perm, label string) error
	MemUnmap(addr, size uint64) error
	MemProtect(addr, size uint64, perms memory.Perm) error
	IsMapped(addr, size uint64) bool
	NextMmapAddress(base, size uint64) (uint64, error)
}

// Stopper is the narrow slice of internal/cpu.Core the exit/exit_group
// handlers need.
type Stopper interface {
	EmuStop()
}

// handlerFunc is a single syscall implementation. It reads its own arguments
// via cc and returns the O32 `i64` return value (negative == -errno, per
// spec.md §4.4 step 5).
type handlerFunc func(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error)

// Dispatcher is C7's concrete state: the small amount of mutable bookkeeping
// Inner carries in the reference implementation (mmap/brk bump pointers,
// captured sigaction records), plus the handler table.
type Dispatcher struct {
	profile arch.Profile
	mm      Mapper
	stop    Stopper

	mmapAddress uint64
	brkAddress  uint64

	sigactionAct map[uint64][5]uint64

	fds    map[int64]*os.File
	nextFd int64

	handlers map[string]handlerFunc
}

// New creates a Dispatcher seeded with the loader's mmap/brk addresses
// (LoadInfo.MmapAddress, LoadInfo.BrkAddress).
func New(profile arch.Profile, mm Mapper, stop Stopper, mmapAddress, brkAddress uint64) *Dispatcher {
	return &Dispatcher{
		profile:      profile,
		mm:           mm,
		stop:         stop,
		mmapAddress:  mmapAddress,
		brkAddress:   brkAddress,
		sigactionAct: map[uint64][5]uint64{},
		fds:          map[int64]*os.File{},
		nextFd:       3,
		handlers:     defaultHandlers(),
	}
}

// BrkAddress reports the current program break (for snapshotting).
func (d *Dispatcher) BrkAddress() uint64 { return d.brkAddress }

// SyscallError is spec.md §7's "Syscall" error kind: an unimplemented
// syscall number or name, or an error a handler returned (a guest memory
// access or memory-manager failure). It is always fatal — unlike a handler's
// own host I/O failure, which is translated into a negative errno rather
// than propagated (see errno.go).
type SyscallError struct {
	Number uint64
	Name   string
	Err    error
}

func (e *SyscallError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("syscall: %q (number %d): %v", e.Name, e.Number, e.Err)
	}
	return fmt.Sprintf("syscall: unknown syscall number %d: %v", e.Number, e.Err)
}
func (e *SyscallError) Unwrap() error { return e.Err }

var errUnimplemented = fmt.Errorf("unimplemented")

// Handle is the MIPS intr-hook callback. It implements spec.md §4.4's
// five-step trap path: verify the signal, read V0, look up the name, and
// dispatch — an unknown number or name is fatal (Unimplemented).
func (d *Dispatcher) Handle(core Core, intno uint32) error {
	if intno != mipsSyscallSignal {
		return nil
	}

	number, err := core.RegRead(d.profile.RegV0)
	if err != nil {
		return err
	}

	name, ok := LookupName(number)
	if !ok {
		return &SyscallError{Number: number, Err: errUnimplemented}
	}

	h, ok := d.handlers[name]
	if !ok {
		return &SyscallError{Number: number, Name: name, Err: errUnimplemented}
	}

	cc := arch.NewCallingConvention(d.profile, core, core)
	ret, err := h(d, cc, core)
	if err != nil {
		return &SyscallError{Number: number, Name: name, Err: err}
	}

	if log.L != nil {
		pc, _ := core.PC()
		var args [4]uint64
		for i := range args {
			args[i], _ = cc.GetRawParam(i, 0)
		}
		log.L.Syscall(name, pc, args[:], ret)
	}

	return cc.SetReturnValue(uint64(uint32(ret)))
}
