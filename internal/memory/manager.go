package memory

import (
	"fmt"
	"sort"
)

// Unmapper is implemented by the CPU core: the one call that actually
// releases host-side mapping backing a region.
type Unmapper interface {
	UnmapHost(begin, size uint64) error
	MapHost(begin, size uint64, perms Perm) error
	ProtectHost(begin, size uint64, perms Perm) error
}

// Manager owns the sorted region list. Contracts mirror spec.md §4.2 exactly.
type Manager struct {
	regions []Region
	host    Unmapper
}

func NewManager(host Unmapper) *Manager {
	return &Manager{host: host}
}

func (m *Manager) Regions() []Region {
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

func (m *Manager) insertSorted(r Region) {
	i := sort.Search(len(m.regions), func(i int) bool { return m.regions[i].Begin >= r.Begin })
	m.regions = append(m.regions, Region{})
	copy(m.regions[i+1:], m.regions[i:])
	m.regions[i] = r
}

// MemMap asserts non-overlap with existing regions and maps [begin, begin+size).
func (m *Manager) MemMap(begin, size uint64, perms Perm, label string) error {
	if perms&^(PermRead|PermWrite|PermExec) != 0 {
		return ErrBadPerm
	}
	begin = AlignDown(begin)
	end := AlignUp(begin + size)
	for _, r := range m.regions {
		if r.Overlaps(begin, end) {
			return fmt.Errorf("%w: [%#x,%#x) intersects existing region [%#x,%#x)", ErrOverlap, begin, end, r.Begin, r.End)
		}
	}
	if err := m.host.MapHost(begin, end-begin, perms); err != nil {
		return err
	}
	m.insertSorted(Region{Begin: begin, End: end, Perms: perms, Label: label})
	return nil
}

// MemUnmap splits and/or trims any regions intersecting [addr, addr+size).
// Regions strictly inside the range disappear; straddling regions split;
// partially-covered regions shrink. One host unmap call covers the range.
func (m *Manager) MemUnmap(addr, size uint64) error {
	begin := AlignDown(addr)
	end := AlignUp(addr + size)
	if err := m.host.UnmapHost(begin, end-begin); err != nil {
		return err
	}

	var kept []Region
	for _, r := range m.regions {
		if !r.Overlaps(begin, end) {
			kept = append(kept, r)
			continue
		}
		if begin <= r.Begin && end >= r.End {
			// strictly inside (or exactly matching): drop entirely
			continue
		}
		if begin > r.Begin && end < r.End {
			// straddles: split into a left and right remainder
			kept = append(kept,
				Region{Begin: r.Begin, End: begin, Perms: r.Perms, Label: r.Label},
				Region{Begin: end, End: r.End, Perms: r.Perms, Label: r.Label},
			)
			continue
		}
		if begin <= r.Begin {
			// trims the left side of r
			kept = append(kept, Region{Begin: end, End: r.End, Perms: r.Perms, Label: r.Label})
			continue
		}
		// trims the right side of r
		kept = append(kept, Region{Begin: r.Begin, End: begin, Perms: r.Perms, Label: r.Label})
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Begin < kept[j].Begin })
	m.regions = kept
	return nil
}

// MemProtect changes permissions on the region(s) covering [addr, addr+size).
// The range must already be fully mapped.
func (m *Manager) MemProtect(addr, size uint64, perms Perm) error {
	if perms&^(PermRead|PermWrite|PermExec) != 0 {
		return ErrBadPerm
	}
	begin := AlignDown(addr)
	end := AlignUp(addr + size)
	if !m.IsMapped(begin, end-begin) {
		return ErrNotMapped
	}
	if err := m.host.ProtectHost(begin, end-begin, perms); err != nil {
		return err
	}
	for i := range m.regions {
		r := &m.regions[i]
		if r.Overlaps(begin, end) {
			r.Perms = perms
		}
	}
	return nil
}

// IsMapped returns true iff the entire range lies inside a contiguous
// sequence of mapped regions.
func (m *Manager) IsMapped(addr, size uint64) bool {
	if size == 0 {
		return true
	}
	want := addr
	end := addr + size
	for _, r := range m.regions {
		if r.Begin > want {
			return false
		}
		if r.End > want {
			want = r.End
			if want >= end {
				return true
			}
		}
	}
	return false
}

// NextMmapAddress walks regions starting at base and returns the first gap
// of length >= size; fails with ErrOutOfMemory if the resulting end would
// exceed 2^32-1.
func (m *Manager) NextMmapAddress(base, size uint64) (uint64, error) {
	const addrSpaceLimit = (uint64(1) << 32) - 1
	candidate := AlignDown(base)
	for _, r := range m.regions {
		if r.Begin >= candidate+size {
			break
		}
		if r.Overlaps(candidate, candidate+size) {
			candidate = AlignUp(r.End)
		}
	}
	if candidate+size > addrSpaceLimit {
		return 0, ErrOutOfMemory
	}
	return candidate, nil
}

// FindRegion returns the region containing addr, if any.
func (m *Manager) FindRegion(addr uint64) (Region, bool) {
	for _, r := range m.regions {
		if addr >= r.Begin && addr < r.End {
			return r, true
		}
	}
	return Region{}, false
}
