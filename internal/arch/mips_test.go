package arch

import "testing"

func TestMIPS32BEProfileShape(t *testing.T) {
	if MIPS32BE.Endian != BigEndian {
		t.Fatal("MIPS32BE must be big-endian")
	}
	if len(MIPS32BE.ArgRegs) != 4 {
		t.Fatalf("O32 ABI passes 4 argument registers, got %d", len(MIPS32BE.ArgRegs))
	}
	if MIPS32BE.RetReg != MIPS32BE.RegV0 {
		t.Fatal("O32 return register must be V0")
	}
	if MIPS32BE.RetAddrOnStack {
		t.Fatal("O32 passes the return address in $ra, not on the stack")
	}
}

func TestAllGeneralRegistersNonEmpty(t *testing.T) {
	if len(AllGeneralRegisters) == 0 {
		t.Fatal("AllGeneralRegisters must not be empty")
	}
	seen := make(map[int]bool, len(AllGeneralRegisters))
	for _, id := range AllGeneralRegisters {
		if seen[id] {
			t.Fatalf("duplicate register ID %d in AllGeneralRegisters", id)
		}
		seen[id] = true
	}
}

func TestCP0UserLocalDistinctFromConfig3(t *testing.T) {
	if MIPS32BE.RegCP0UserLocal == MIPS32BE.RegCP0Config3 {
		t.Fatal("CP0_USERLOCAL must be wired distinctly from CP0_CONFIG3 (init() override)")
	}
}
