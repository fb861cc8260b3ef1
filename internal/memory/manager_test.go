package memory

import "testing"

// fakeHost is a no-op Unmapper recording calls, standing in for the CPU
// core so these tests exercise the region bookkeeping without Unicorn.
type fakeHost struct {
	mapped, unmapped, protected int
}

func (f *fakeHost) MapHost(begin, size uint64, perms Perm) error     { f.mapped++; return nil }
func (f *fakeHost) UnmapHost(begin, size uint64) error               { f.unmapped++; return nil }
func (f *fakeHost) ProtectHost(begin, size uint64, perms Perm) error { f.protected++; return nil }

func TestMemMapRejectsOverlap(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemMap(0x1000, PageSize, PermRead|PermWrite, "a"); err != nil {
		t.Fatalf("first MemMap: %v", err)
	}
	if err := m.MemMap(0x1000, PageSize, PermRead, "b"); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestMemMapRejectsBadPerm(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemMap(0x1000, PageSize, Perm(0x80), "bad"); err != ErrBadPerm {
		t.Fatalf("MemMap with bad perm = %v, want ErrBadPerm", err)
	}
}

func TestMemUnmapSplitsRegion(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemMap(0, 3*PageSize, PermRead|PermWrite, "r"); err != nil {
		t.Fatal(err)
	}
	if err := m.MemUnmap(PageSize, PageSize); err != nil {
		t.Fatal(err)
	}
	regions := m.Regions()
	if len(regions) != 2 {
		t.Fatalf("expected 2 remaining regions after middle unmap, got %d", len(regions))
	}
	if regions[0].End != PageSize || regions[1].Begin != 2*PageSize {
		t.Fatalf("unexpected split regions: %+v", regions)
	}
}

func TestIsMappedAcrossAdjacentRegions(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemMap(0, PageSize, PermRead, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.MemMap(PageSize, PageSize, PermRead, "b"); err != nil {
		t.Fatal(err)
	}
	if !m.IsMapped(0, 2*PageSize) {
		t.Fatal("expected contiguous adjacent regions to count as fully mapped")
	}
	if m.IsMapped(0, 3*PageSize) {
		t.Fatal("expected range beyond mapped regions to be unmapped")
	}
}

func TestNextMmapAddressSkipsExistingRegions(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemMap(0x40000000, PageSize, PermRead|PermWrite, "r"); err != nil {
		t.Fatal(err)
	}
	addr, err := m.NextMmapAddress(0x40000000, PageSize)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x40000000+PageSize {
		t.Fatalf("NextMmapAddress = %#x, want %#x", addr, 0x40000000+PageSize)
	}
}

func TestMemProtectRequiresFullyMapped(t *testing.T) {
	m := NewManager(&fakeHost{})
	if err := m.MemProtect(0x1000, PageSize, PermRead); err != ErrNotMapped {
		t.Fatalf("MemProtect on unmapped range = %v, want ErrNotMapped", err)
	}
}
