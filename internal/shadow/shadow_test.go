package shadow

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	m := New()
	m.WriteValue(0x1000, 4, 0x11223344)

	got := m.ReadBytes(0x1000, 4)
	want := []byte{0x11, 0x22, 0x33, 0x44}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadBytes = %x, want %x", got, want)
		}
	}
}

func TestWriteStraddlesChunks(t *testing.T) {
	m := New()
	m.WriteBytes(0x1002, []byte{0xaa, 0xbb, 0xcc, 0xdd})

	if got := m.ReadBytes(0x1000, 8); got[2] != 0xaa || got[5] != 0xdd {
		t.Fatalf("straddled write not reflected: %x", got)
	}
}

func TestSnapshotDropsZeroChunks(t *testing.T) {
	m := New()
	m.WriteValue(0x2000, 4, 0)
	m.WriteValue(0x2004, 4, 1)

	snap := m.Snapshot()
	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (zero chunk at 0x2000 should be dropped)", snap.Len())
	}
	if _, ok := snap.Chunk(0x2000); ok {
		t.Fatal("zero-valued chunk should not appear in snapshot")
	}
	if _, ok := snap.Chunk(0x2004); !ok {
		t.Fatal("non-zero chunk missing from snapshot")
	}
}

func TestSnapshotAddrsSorted(t *testing.T) {
	m := New()
	m.WriteValue(0x3000, 4, 1)
	m.WriteValue(0x1000, 4, 1)
	m.WriteValue(0x2000, 4, 1)

	addrs := m.Snapshot().Addrs()
	for i := 1; i < len(addrs); i++ {
		if addrs[i-1] >= addrs[i] {
			t.Fatalf("Addrs() not strictly increasing: %v", addrs)
		}
	}
}

func TestWriteValueTruncatesToSize(t *testing.T) {
	m := New()
	m.WriteValue(0x4000, 1, 0xff)
	if got := m.ReadBytes(0x4000, 1); got[0] != 0xff {
		t.Fatalf("single-byte write = %x, want ff", got)
	}
	if got := m.ReadBytes(0x4001, 1); got[0] != 0 {
		t.Fatalf("byte beyond write size should remain zero, got %x", got)
	}
}
