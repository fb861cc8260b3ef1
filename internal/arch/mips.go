// Package arch carries the register-ID table and calling-convention constants
// for the one guest architecture this emulator supports, MIPS32 big-endian.
//
// A tagged-variant design (a populated struct, not an interface implemented
// per-architecture) keeps register lookups and ABI math monomorphic: nothing
// downstream of this package ever type-switches on architecture.
package arch

import uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

// Endian identifies byte order for stack/auxv/argument encoding.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

// PointerSize is the width, in bytes, of a guest pointer.
const PointerSize = 4

// Profile is the MIPS32 big-endian architecture profile: register IDs plus
// the O32 calling-convention constants from spec.md §4.4.
type Profile struct {
	Endian Endian

	// Register IDs, in Unicorn's uc.MIPS_REG_* space.
	RegPC  int
	RegSP  int
	RegRA  int
	RegV0  int
	RegA0  int
	RegA1  int
	RegA2  int
	RegA3  int
	RegCP0UserLocal int
	RegCP0Config3   int

	// Calling convention constants (O32 ABI).
	RetReg       int // V0
	ErrReg       int // A3, zeroed on success
	ArgRegs      []int
	ArgOnStack   int // number of argument slots passed on the stack after ArgRegs
	ShadowSlots  int // stack "shadow" slots reserved ahead of spilled args
	RetAddrOnStack bool
}

// MIPS32BE is the single populated profile this emulator supports.
var MIPS32BE = Profile{
	Endian: BigEndian,

	RegPC: uc.MIPS_REG_PC,
	RegSP: uc.MIPS_REG_SP,
	RegRA: uc.MIPS_REG_RA,
	RegV0: uc.MIPS_REG_V0,
	RegA0: uc.MIPS_REG_A0,
	RegA1: uc.MIPS_REG_A1,
	RegA2: uc.MIPS_REG_A2,
	RegA3: uc.MIPS_REG_A3,
	RegCP0UserLocal: uc.MIPS_REG_CP0_CONFIG3, // placeholder override below
	RegCP0Config3:   uc.MIPS_REG_CP0_CONFIG3,

	RetReg:         uc.MIPS_REG_V0,
	ErrReg:         uc.MIPS_REG_A3,
	ArgRegs:        []int{uc.MIPS_REG_A0, uc.MIPS_REG_A1, uc.MIPS_REG_A2, uc.MIPS_REG_A3},
	ArgOnStack:     4,
	ShadowSlots:    4,
	RetAddrOnStack: false,
}

func init() {
	// CP0_USERLOCAL backs set_thread_area's TLS pointer; Unicorn exposes it
	// as a distinct register from CP0_CONFIG3, wire it correctly rather than
	// aliasing to CONFIG3 above (kept as two fields so callers never guess).
	MIPS32BE.RegCP0UserLocal = uc.MIPS_REG_CP0_USERLOCAL
}

// AllGeneralRegisters lists every general-purpose register ID this profile
// snapshots, in architectural order. Used by RegisterState dumps (§3).
var AllGeneralRegisters = []int{
	uc.MIPS_REG_ZERO, uc.MIPS_REG_AT,
	uc.MIPS_REG_V0, uc.MIPS_REG_V1,
	uc.MIPS_REG_A0, uc.MIPS_REG_A1, uc.MIPS_REG_A2, uc.MIPS_REG_A3,
	uc.MIPS_REG_T0, uc.MIPS_REG_T1, uc.MIPS_REG_T2, uc.MIPS_REG_T3,
	uc.MIPS_REG_T4, uc.MIPS_REG_T5, uc.MIPS_REG_T6, uc.MIPS_REG_T7,
	uc.MIPS_REG_S0, uc.MIPS_REG_S1, uc.MIPS_REG_S2, uc.MIPS_REG_S3,
	uc.MIPS_REG_S4, uc.MIPS_REG_S5, uc.MIPS_REG_S6, uc.MIPS_REG_S7,
	uc.MIPS_REG_T8, uc.MIPS_REG_T9,
	uc.MIPS_REG_K0, uc.MIPS_REG_K1,
	uc.MIPS_REG_GP, uc.MIPS_REG_SP, uc.MIPS_REG_FP, uc.MIPS_REG_RA,
	uc.MIPS_REG_PC,
	uc.MIPS_REG_HI, uc.MIPS_REG_LO,
}
