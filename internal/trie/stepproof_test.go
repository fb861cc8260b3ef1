package trie

import (
	"testing"

	"github.com/flexemu-go/mipsevm/internal/shadow"
)

func TestGenerateStepProofRootsChangeOnWrite(t *testing.T) {
	mem := shadow.New()
	mem.WriteValue(0x1000, 4, 0x11223344)
	mem.WriteValue(0x1004, 4, 0x55667788)
	before := mem.Snapshot()

	regsBefore := map[int]uint64{2: 0xdeadbeef, 29: 0x7ffffe00}
	regsAfter := map[int]uint64{2: 0x00000000, 29: 0x7ffffe00}

	access := []MemAccess{
		{Write: false, Addr: 0x1000, Size: 4, Value: 0x11223344},
		{Write: true, Addr: 0x1000, Size: 4, Value: 0x00000000},
	}

	proof, err := GenerateStepProof(before, regsBefore, regsAfter, access)
	if err != nil {
		t.Fatalf("GenerateStepProof: %v", err)
	}
	if proof.RootBefore == proof.RootAfter {
		t.Fatal("expected root_before != root_after after a write")
	}
	if len(proof.AccessNodes) == 0 {
		t.Fatal("expected at least one recorded access node")
	}

	encoded, err := proof.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if len(encoded) == 0 {
		t.Fatal("empty JSON encoding")
	}
}

func TestGenerateStepProofNoWriteRootsMatch(t *testing.T) {
	mem := shadow.New()
	mem.WriteValue(0x2000, 4, 0xcafebabe)
	before := mem.Snapshot()

	regs := map[int]uint64{4: 1}
	access := []MemAccess{
		{Write: false, Addr: 0x2000, Size: 4, Value: 0xcafebabe},
	}

	proof, err := GenerateStepProof(before, regs, regs, access)
	if err != nil {
		t.Fatalf("GenerateStepProof: %v", err)
	}
	if proof.RootBefore != proof.RootAfter {
		t.Fatal("expected root_before == root_after when no write occurred")
	}
}

func TestGenerateStepProofRejectsMisalignedAccess(t *testing.T) {
	mem := shadow.New()
	before := mem.Snapshot()

	access := []MemAccess{
		{Write: false, Addr: 0x1001, Size: 4, Value: 0},
	}
	if _, err := GenerateStepProof(before, nil, nil, access); err == nil {
		t.Fatal("expected an error for a misaligned access")
	}

	access = []MemAccess{
		{Write: false, Addr: 0x1000, Size: 2, Value: 0},
	}
	if _, err := GenerateStepProof(before, nil, nil, access); err == nil {
		t.Fatal("expected an error for a sub-word access")
	}
}
