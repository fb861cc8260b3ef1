package arch

import "testing"

// fakeRegMem is a minimal in-memory Registers+Memory stand-in, letting these
// tests exercise CallingConvention arithmetic without a real core.
type fakeRegMem struct {
	regs map[int]uint64
	sp   uint64
	mem  map[uint64]uint32
}

func newFakeRegMem(sp uint64) *fakeRegMem {
	return &fakeRegMem{regs: map[int]uint64{}, sp: sp, mem: map[uint64]uint32{}}
}

func (f *fakeRegMem) RegRead(id int) (uint64, error)     { return f.regs[id], nil }
func (f *fakeRegMem) RegWrite(id int, v uint64) error     { f.regs[id] = v; return nil }
func (f *fakeRegMem) SP() (uint64, error)                 { return f.sp, nil }
func (f *fakeRegMem) SetSP(v uint64) error                { f.sp = v; return nil }
func (f *fakeRegMem) ReadU32(addr uint64) (uint32, error) { return f.mem[addr], nil }
func (f *fakeRegMem) WriteU32(addr uint64, v uint32) error {
	f.mem[addr] = v
	return nil
}

func TestReserveDecrementsSPByFixedFrameSize(t *testing.T) {
	rm := newFakeRegMem(0x7ffff000)
	cc := NewCallingConvention(MIPS32BE, rm, rm)

	want := uint64(MIPS32BE.ShadowSlots+MIPS32BE.ArgOnStack) * PointerSize
	if err := cc.Reserve(2); err != nil {
		t.Fatalf("Reserve(2): %v", err)
	}
	if rm.sp != 0x7ffff000-want {
		t.Fatalf("SP = %#x, want %#x", rm.sp, 0x7ffff000-want)
	}

	// The frame size must not depend on n: reserving for 0 slots carves out
	// the same fixed (shadow + arg_on_stack) frame as reserving for 2.
	rm2 := newFakeRegMem(0x7ffff000)
	cc2 := NewCallingConvention(MIPS32BE, rm2, rm2)
	if err := cc2.Reserve(0); err != nil {
		t.Fatalf("Reserve(0): %v", err)
	}
	if rm2.sp != rm.sp {
		t.Fatalf("Reserve(0) SP = %#x, want Reserve(2) SP %#x", rm2.sp, rm.sp)
	}
}

func TestReserveRejectsTooManySlots(t *testing.T) {
	rm := newFakeRegMem(0x7ffff000)
	cc := NewCallingConvention(MIPS32BE, rm, rm)
	n := len(MIPS32BE.ArgRegs) + MIPS32BE.ArgOnStack
	if err := cc.Reserve(n); err == nil {
		t.Fatalf("Reserve(%d) should exceed register+stack argument capacity", n)
	}
}

func TestSetRawParamRegisterSlot(t *testing.T) {
	rm := newFakeRegMem(0x7ffff000)
	cc := NewCallingConvention(MIPS32BE, rm, rm)

	if err := cc.SetRawParam(0, 0xdeadbeef, 0); err != nil {
		t.Fatalf("SetRawParam: %v", err)
	}
	got, err := cc.GetRawParam(0, 0)
	if err != nil {
		t.Fatalf("GetRawParam: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("GetRawParam(0) = %#x, want 0xdeadbeef", got)
	}
}

func TestRawParamStackSpillRoundTrips(t *testing.T) {
	rm := newFakeRegMem(0x7ffff000)
	cc := NewCallingConvention(MIPS32BE, rm, rm)

	// Index len(ArgRegs) is the first argument spilled onto the stack.
	i := len(MIPS32BE.ArgRegs)
	if err := cc.SetRawParam(i, 0x1234, 0); err != nil {
		t.Fatalf("SetRawParam stack slot: %v", err)
	}

	off := cc.paramStackOffset(i - len(MIPS32BE.ArgRegs))
	if rm.mem[rm.sp+off] != 0x1234 {
		t.Fatalf("stack word at sp+%#x = %#x, want 0x1234", off, rm.mem[rm.sp+off])
	}

	got, err := cc.GetRawParam(i, 0)
	if err != nil {
		t.Fatalf("GetRawParam stack slot: %v", err)
	}
	if got != 0x1234 {
		t.Fatalf("GetRawParam(%d) = %#x, want 0x1234", i, got)
	}
}

func TestGetRawParamMasksToArgbits(t *testing.T) {
	rm := newFakeRegMem(0x7ffff000)
	cc := NewCallingConvention(MIPS32BE, rm, rm)

	if err := cc.SetRawParam(0, 0xffffffff, 0); err != nil {
		t.Fatalf("SetRawParam: %v", err)
	}
	got, err := cc.GetRawParam(0, 8)
	if err != nil {
		t.Fatalf("GetRawParam: %v", err)
	}
	if got != 0xff {
		t.Fatalf("GetRawParam masked to 8 bits = %#x, want 0xff", got)
	}
}
