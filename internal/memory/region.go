// Package memory implements C2, the memory manager: a sorted,
// non-overlapping list of mapped regions mediating every guest memory
// access. Grounded on original_source/omo/src/memory.rs.
package memory

import "fmt"

// Perm is a bitmask over {READ, WRITE, EXEC}.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

func (p Perm) String() string {
	s := ""
	if p&PermRead != 0 {
		s += "r"
	} else {
		s += "-"
	}
	if p&PermWrite != 0 {
		s += "w"
	} else {
		s += "-"
	}
	if p&PermExec != 0 {
		s += "x"
	} else {
		s += "-"
	}
	return s
}

// PageSize is the guest page granularity; begin/end are always aligned to it.
const PageSize = 4096

// Region is a mapped memory range: spec.md's "Memory region".
type Region struct {
	Begin uint64
	End   uint64
	Perms Perm
	Label string
}

func (r Region) Size() uint64 { return r.End - r.Begin }

func (r Region) Contains(addr, size uint64) bool {
	return addr >= r.Begin && addr+size <= r.End
}

func (r Region) Overlaps(begin, end uint64) bool {
	return begin < r.End && end > r.Begin
}

// AlignDown/AlignUp round to the page size, mirroring
// original_source/omo/src/utils.rs's generic align/align_up.
func AlignDown(v uint64) uint64 { return v &^ (PageSize - 1) }
func AlignUp(v uint64) uint64   { return AlignDown(v+PageSize-1) }

// ErrOverlap/ErrBadPerm/ErrOutOfMemory are Memory-kind errors (spec.md §7).
var (
	ErrOverlap     = fmt.Errorf("memory: overlapping region")
	ErrBadPerm     = fmt.Errorf("memory: permission bits outside R/W/X")
	ErrOutOfMemory = fmt.Errorf("memory: out of address space")
	ErrNotMapped   = fmt.Errorf("memory: address range not fully mapped")
)
