package syscall

import "encoding/binary"

// MIPS32 big-endian stat/stat64/sysinfo struct layouts, transcribed field for
// field (including the compiler padding) from the reference implementation's
// repr(C) structs. Go has no repr(C) story across architectures, so these
// are serialized explicitly in declaration order rather than relying on
// struct layout — the wire format the guest reads is what matters, not how
// the Go struct happens to be laid out in host memory.

// StatMIPS is the pre-LFS 32-bit `struct stat` the `stat`/`lstat`/`fstat`
// syscalls fill in.
type StatMIPS struct {
	Dev     uint32
	Ino     uint32
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Size    uint32
	Atime   uint32
	AtimeNs uint32
	Mtime   uint32
	MtimeNs uint32
	Ctime   uint32
	CtimeNs uint32
	Blksize uint32
	Blocks  uint32
}

func (s StatMIPS) Marshal() []byte {
	w := newBEWriter()
	w.u32(s.Dev)
	w.zero(4 * 3) // st_pad1[3]
	w.u32(s.Ino)
	w.u32(s.Mode)
	w.u32(s.Nlink)
	w.u32(s.Uid)
	w.u32(s.Gid)
	w.u32(s.Rdev)
	w.zero(4 * 2) // st_pad2[2]
	w.u32(s.Size)
	w.zero(4) // st_pad3
	w.u32(s.Atime)
	w.u32(s.AtimeNs)
	w.u32(s.Mtime)
	w.u32(s.MtimeNs)
	w.u32(s.Ctime)
	w.u32(s.CtimeNs)
	w.u32(s.Blksize)
	w.u32(s.Blocks)
	w.zero(4 * 14) // st_pad4[14]
	return w.bytes()
}

// Stat64MIPS is the large-file-summit `struct stat64` the `stat64`/
// `lstat64`/`fstat64`/`fstatat64` syscalls fill in.
type Stat64MIPS struct {
	Dev     uint32
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint32
	Size    uint64
	Atime   int32
	AtimeNs uint32
	Mtime   uint32
	MtimeNs uint32
	Ctime   uint32
	CtimeNs uint32
	Blksize uint32
	Blocks  int64
}

func (s Stat64MIPS) Marshal() []byte {
	w := newBEWriter()
	w.u32(s.Dev)
	w.zero(4 * 3) // st_pad0[3]
	w.u64(s.Ino)
	w.u32(s.Mode)
	w.u32(s.Nlink)
	w.u32(s.Uid)
	w.u32(s.Gid)
	w.u32(s.Rdev)
	w.zero(4 * 3) // st_pad1[3]
	w.u64(s.Size)
	w.i32(s.Atime)
	w.u32(s.AtimeNs)
	w.u32(s.Mtime)
	w.u32(s.MtimeNs)
	w.u32(s.Ctime)
	w.u32(s.CtimeNs)
	w.u32(s.Blksize)
	w.zero(4) // st_pad2
	w.i64(s.Blocks)
	return w.bytes()
}

// SysInfoMIPS is the constant synthetic sysinfo(2) result per spec.md §4.4.
type SysInfoMIPS struct {
	Uptime    int32
	Loads     [3]uint32
	TotalRam  uint32
	FreeRam   uint32
	SharedRam uint32
	BufferRam uint32
	TotalSwap uint32
	FreeSwap  uint32
	Procs     uint16
	TotalHigh uint32
	FreeHigh  uint32
	MemUnit   uint32
}

// DefaultSysInfo matches the reference implementation's fixed fields
// (deterministic, not read from the host).
func DefaultSysInfo() SysInfoMIPS {
	return SysInfoMIPS{
		Uptime:    1234,
		Loads:     [3]uint32{2000, 2000, 2000},
		TotalRam:  10000000,
		FreeRam:   10000000,
		SharedRam: 10000000,
		Procs:     1,
	}
}

func (s SysInfoMIPS) Marshal() []byte {
	w := newBEWriter()
	w.i32(s.Uptime)
	for _, l := range s.Loads {
		w.u32(l)
	}
	w.u32(s.TotalRam)
	w.u32(s.FreeRam)
	w.u32(s.SharedRam)
	w.u32(s.BufferRam)
	w.u32(s.TotalSwap)
	w.u32(s.FreeSwap)
	w.u16(s.Procs)
	w.zero(2) // _padding0
	w.u32(s.TotalHigh)
	w.u32(s.FreeHigh)
	w.u32(s.MemUnit)
	w.zero(8) // _padding1
	return w.bytes()
}

// beWriter accumulates a big-endian struct-layout byte buffer.
type beWriter struct{ buf []byte }

func newBEWriter() *beWriter { return &beWriter{} }

func (w *beWriter) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *beWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *beWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *beWriter) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *beWriter) i64(v int64) { w.u64(uint64(v)) }

func (w *beWriter) zero(n int) { w.buf = append(w.buf, make([]byte, n)...) }

func (w *beWriter) bytes() []byte { return w.buf }
