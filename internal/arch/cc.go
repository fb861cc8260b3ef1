package arch

import "fmt"

// Memory is the narrow slice of the memory manager the calling convention
// needs to spill/read stack arguments. internal/cpu.Core satisfies it.
type Memory interface {
	ReadU32(addr uint64) (uint32, error)
	WriteU32(addr uint64, v uint32) error
}

// Registers is the narrow slice of register access the calling convention
// needs. internal/cpu.Core satisfies it.
type Registers interface {
	RegRead(id int) (uint64, error)
	RegWrite(id int, v uint64) error
	SP() (uint64, error)
	SetSP(v uint64) error
}

// CallingConvention implements MIPS O32 parameter access per spec.md §4.4,
// grounded on original_source/omo/src/cc/mod.rs's CallingConventionCommon.
type CallingConvention struct {
	p   Profile
	reg Registers
	mem Memory
}

func NewCallingConvention(p Profile, reg Registers, mem Memory) *CallingConvention {
	return &CallingConvention{p: p, reg: reg, mem: mem}
}

// mask truncates v to the low argbits bits; argbits == 0 means "no mask".
func mask(v uint64, argbits int) uint64 {
	if argbits <= 0 || argbits >= 64 {
		return v
	}
	return v & ((uint64(1) << uint(argbits)) - 1)
}

// paramStackOffset mirrors get_param_access: extra args beyond the register
// count live on the stack starting at offset
// (retaddr_on_stack + shadow_slots + i) * pointer_size.
func (cc *CallingConvention) paramStackOffset(i int) uint64 {
	retAddr := 0
	if cc.p.RetAddrOnStack {
		retAddr = 1
	}
	return uint64(retAddr+cc.p.ShadowSlots+i) * PointerSize
}

// GetRawParam reads argument i (0-indexed), masked to argbits if nonzero.
func (cc *CallingConvention) GetRawParam(i int, argbits int) (uint64, error) {
	if i < 0 {
		return 0, fmt.Errorf("arch: invalid argument index %d: %w", i, ErrInvalidArgument)
	}
	if i < len(cc.p.ArgRegs) {
		v, err := cc.reg.RegRead(cc.p.ArgRegs[i])
		if err != nil {
			return 0, err
		}
		return mask(v, argbits), nil
	}
	sp, err := cc.reg.SP()
	if err != nil {
		return 0, err
	}
	off := cc.paramStackOffset(i - len(cc.p.ArgRegs))
	v, err := cc.mem.ReadU32(sp + off)
	if err != nil {
		return 0, err
	}
	return mask(uint64(v), argbits), nil
}

// SetRawParam writes argument i, masked to argbits if nonzero.
func (cc *CallingConvention) SetRawParam(i int, value uint64, argbits int) error {
	if i < 0 {
		return fmt.Errorf("arch: invalid argument index %d: %w", i, ErrInvalidArgument)
	}
	value = mask(value, argbits)
	if i < len(cc.p.ArgRegs) {
		return cc.reg.RegWrite(cc.p.ArgRegs[i], value)
	}
	sp, err := cc.reg.SP()
	if err != nil {
		return err
	}
	off := cc.paramStackOffset(i - len(cc.p.ArgRegs))
	return cc.mem.WriteU32(sp+off, uint32(value))
}

// Reserve decrements SP by (shadow + arg_on_stack) * pointer_size to stage a
// new stack frame for n slots of arguments. n is only checked against the
// register+stack argument capacity; the frame size itself is fixed by the
// profile, not by n.
func (cc *CallingConvention) Reserve(n int) error {
	if n >= len(cc.p.ArgRegs)+cc.p.ArgOnStack {
		return fmt.Errorf("arch: too many argument slots %d: %w", n, ErrInvalidArgument)
	}
	sp, err := cc.reg.SP()
	if err != nil {
		return err
	}
	size := uint64(cc.p.ShadowSlots+cc.p.ArgOnStack) * PointerSize
	return cc.reg.SetSP(sp - size)
}

// SetReturnValue writes V0 then clears A3 (the O32 error-flag register).
func (cc *CallingConvention) SetReturnValue(v uint64) error {
	if err := cc.reg.RegWrite(cc.p.RetReg, v); err != nil {
		return err
	}
	return cc.reg.RegWrite(cc.p.ErrReg, 0)
}

// ErrInvalidArgument is returned for out-of-range parameter indices.
var ErrInvalidArgument = fmt.Errorf("invalid argument index")
