// Package loader implements C5: ELF parsing, PT_LOAD segment mapping, and
// argv/envp/auxv stack frame construction.
//
// Grounded almost in full on original_source/omo/src/loader/mod.rs
// (ElfLoader::load, load_elf_segments, load_elf_table) and
// original_source/flexemu/src/stack.rs (aligned_push_bytes/aligned_push_str
// semantics). Go idiom (stdlib debug/elf instead of hand-rolled header
// parsing) follows the teacher's internal/emulator/elf.go approach.
package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/flexemu-go/mipsevm/internal/arch"
	"github.com/flexemu-go/mipsevm/internal/config"
	"github.com/flexemu-go/mipsevm/internal/memory"
)

// LoaderError is spec.md §7's "Loader" error kind.
type LoaderError struct{ Err error }

func (e *LoaderError) Error() string { return fmt.Sprintf("loader: %v", e.Err) }
func (e *LoaderError) Unwrap() error { return e.Err }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &LoaderError{Err: err}
}

// LoadInfo is spec.md §3's "Load info" value.
type LoadInfo struct {
	Entrypoint       uint64
	ElfMemStart      uint64
	ElfEntry         uint64
	BrkAddress       uint64
	MmapAddress      uint64
	LoadAddress      uint64
	InitStackAddress uint64
}

// Core is the narrow slice of internal/cpu.Core the loader needs.
type Core interface {
	SP() (uint64, error)
	SetSP(uint64) error
	MemWrite(addr uint64, data []byte) error
}

// Mapper is the narrow slice of internal/memory.Manager the loader needs.
type Mapper interface {
	MemMap(begin, size uint64, perms memory.Perm, label string) error
}

// hookScratchSize is the gap left between the end of the loaded image and
// brk, matching the original's "0x2000 is the size of [hook_mem]" comment.
const hookScratchSize = 0x2000

// Load maps the stack and every PT_LOAD segment of binary, writes segment
// data, and constructs the initial argv/envp/auxv stack frame. argv must be
// non-empty (argv[0] is the program name).
func Load(cfg config.OS, elfBytes []byte, argv []string, envs map[string]string, core Core, mm Mapper) (*LoadInfo, error) {
	stackAddress := cfg.StackAddress
	stackSize := cfg.StackSize

	if err := mm.MemMap(stackAddress, stackSize, memory.PermRead|memory.PermWrite|memory.PermExec, "[stack]"); err != nil {
		return nil, wrap(err)
	}

	f, err := elf.NewFile(bytes.NewReader(elfBytes))
	if err != nil {
		return nil, wrap(fmt.Errorf("parse elf: %w", err))
	}
	defer f.Close()

	if f.Type != elf.ET_EXEC {
		return nil, wrap(fmt.Errorf("binary is not ET_EXEC (dynamic linking unsupported)"))
	}

	loadAddress := cfg.LoadAddress

	memStart, memEnd, err := loadSegments(mm, core, elfBytes, f, loadAddress)
	if err != nil {
		return nil, err
	}

	info := &LoadInfo{}
	info.LoadAddress = loadAddress
	info.Entrypoint = loadAddress + f.Entry
	info.ElfEntry = info.Entrypoint
	info.ElfMemStart = memStart
	info.BrkAddress = memEnd + hookScratchSize
	info.MmapAddress = cfg.MmapAddress

	initSP, err := core.SP()
	if err != nil {
		return nil, wrap(err)
	}
	info.InitStackAddress = initSP

	if err := core.SetSP(stackAddress + stackSize); err != nil {
		return nil, wrap(err)
	}

	phoff := rawPhoff(elfBytes, f.ByteOrder)
	if err := loadElfTable(core, f, info, phoff, argv, envs); err != nil {
		return nil, wrap(err)
	}
	return info, nil
}

// rawPhoff reads e_phoff directly from the ELF header bytes: debug/elf does
// not expose it, and AT_PHDR (for glibc's own auxv-driven program-header
// discovery) needs the file offset, not just the parsed program list.
func rawPhoff(elfBytes []byte, order binary.ByteOrder) uint64 {
	if len(elfBytes) < 32 {
		return 0
	}
	// Elf32_Ehdr.e_phoff lives at byte offset 28, a 4-byte field.
	return uint64(order.Uint32(elfBytes[28:32]))
}

type segRegion struct {
	begin, end uint64
	perms      memory.Perm
}

func segPermToPerm(flags elf.ProgFlag) memory.Perm {
	var p memory.Perm
	if flags&elf.PF_R != 0 {
		p |= memory.PermRead
	}
	if flags&elf.PF_W != 0 {
		p |= memory.PermWrite
	}
	if flags&elf.PF_X != 0 {
		p |= memory.PermExec
	}
	return p
}

// loadSegments folds adjacent same-permission PT_LOAD segments into single
// page-aligned regions, maps them, and copies file bytes into place.
func loadSegments(mm Mapper, core Core, elfBytes []byte, f *elf.File, loadAddress uint64) (memStart, memEnd uint64, err error) {
	type loadSeg struct {
		prog *elf.Prog
	}
	var segs []loadSeg
	for _, p := range f.Progs {
		if p.Type == elf.PT_LOAD {
			segs = append(segs, loadSeg{prog: p})
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].prog.Vaddr < segs[j].prog.Vaddr })

	var regions []segRegion
	for _, s := range segs {
		lo := memory.AlignDown(loadAddress + s.prog.Vaddr)
		hi := memory.AlignUp(loadAddress + s.prog.Vaddr + s.prog.Memsz)
		perms := segPermToPerm(s.prog.Flags)

		if len(regions) == 0 {
			regions = append(regions, segRegion{lo, hi, perms})
			continue
		}
		prev := &regions[len(regions)-1]
		switch {
		case lo > prev.end:
			regions = append(regions, segRegion{lo, hi, perms})
		case lo == prev.end:
			if perms == prev.perms {
				prev.end = hi
			} else {
				regions = append(regions, segRegion{lo, hi, perms})
			}
		default: // lo < prev.end
			return 0, 0, wrap(fmt.Errorf("malformed elf: PT_LOAD segments intersect at %#x", lo))
		}
	}
	if len(regions) == 0 {
		return 0, 0, wrap(fmt.Errorf("elf has no PT_LOAD segments"))
	}

	for _, r := range regions {
		if err := mm.MemMap(r.begin, r.end-r.begin, r.perms, "[load]"); err != nil {
			return 0, 0, wrap(err)
		}
	}
	for _, s := range segs {
		data := make([]byte, s.prog.Filesz)
		if _, err := s.prog.ReadAt(data, 0); err != nil {
			return 0, 0, wrap(fmt.Errorf("read segment data: %w", err))
		}
		if err := core.MemWrite(loadAddress+s.prog.Vaddr, data); err != nil {
			return 0, 0, wrap(err)
		}
	}

	return regions[0].begin, regions[len(regions)-1].end, nil
}

// --- stack frame construction ---

// alignedPushBytes computes a new, aligned SP below the current one, writes
// data there, and updates SP — mirroring flexemu's Stack::aligned_push_bytes.
func alignedPushBytes(core Core, data []byte, alignment uint64) (uint64, error) {
	sp, err := core.SP()
	if err != nil {
		return 0, err
	}
	top := alignDown(sp-uint64(len(data)), alignment)
	if err := core.MemWrite(top, data); err != nil {
		return 0, err
	}
	if err := core.SetSP(top); err != nil {
		return 0, err
	}
	return top, nil
}

func alignedPushStr(core Core, s string) (uint64, error) {
	b := append([]byte(s), 0)
	return alignedPushBytes(core, b, arch.PointerSize)
}

func alignDown(v, alignment uint64) uint64 {
	return v &^ (alignment - 1)
}

// pack encodes a pointer-sized (4-byte) big-endian value.
func pack(v uint64) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func loadElfTable(core Core, f *elf.File, info *LoadInfo, phoff uint64, argv []string, envs map[string]string) error {
	var table []byte
	put := func(v uint64) { table = append(table, pack(v)...) }

	put(uint64(len(argv)))
	for _, s := range argv {
		addr, err := alignedPushStr(core, s)
		if err != nil {
			return err
		}
		put(addr)
	}
	put(0)

	envKeys := sortedKeys(envs)
	for _, k := range envKeys {
		addr, err := alignedPushStr(core, k+"="+envs[k])
		if err != nil {
			return err
		}
		put(addr)
	}
	put(0)

	execfn := "main"
	if len(argv) > 0 {
		execfn = argv[0]
	}
	execfnAddr, err := alignedPushStr(core, execfn)
	if err != nil {
		return err
	}

	randData := make([]byte, 16)
	for i := range randData {
		randData[i] = 0x0a
	}
	randAddr, err := alignedPushBytes(core, randData, arch.PointerSize)
	if err != nil {
		return err
	}

	cpuStrAddr, err := alignedPushStr(core, "MIPS")
	if err != nil {
		return err
	}

	type auxEntry struct {
		t AuxvType
		v uint64
	}
	aux := []auxEntry{
		{AT_HWCAP, uint64(hwcapMIPS32BE)},
		{AT_PAGESZ, memory.PageSize},
		{AT_CLKTCK, 100},
		{AT_PHDR, info.ElfMemStart + phoff},
		{AT_PHENT, uint64(elfPhentSize(f))},
		{AT_PHNUM, uint64(len(f.Progs))},
		{AT_BASE, 0},
		{AT_FLAGS, 0},
		{AT_ENTRY, info.ElfEntry},
		{AT_UID, 1000},
		{AT_EUID, 1000},
		{AT_GID, 1000},
		{AT_EGID, 1000},
		{AT_SECURE, 0},
		{AT_RANDOM, randAddr},
		{AT_HWCAP2, 0},
		{AT_EXECFN, execfnAddr},
		{AT_PLATFORM, cpuStrAddr},
		{AT_NULL, 0},
	}
	for _, e := range aux {
		put(uint64(e.t))
		put(e.v)
	}

	_, err = alignedPushBytes(core, table, 0x10)
	return err
}

func elfPhentSize(f *elf.File) uint16 {
	// debug/elf does not expose e_phentsize directly; it is fixed per class
	// (32 bytes for ELFCLASS32, matching the standard MIPS32 program header).
	if f.Class == elf.ELFCLASS64 {
		return 56
	}
	return 32
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
