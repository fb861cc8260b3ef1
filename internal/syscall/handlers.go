package syscall

import (
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/flexemu-go/mipsevm/internal/arch"
	"github.com/flexemu-go/mipsevm/internal/memory"
)

// randSource is a fixed, deterministic stand-in for host entropy: getrandom
// must return the same bytes on every run and every host (spec.md §4.4).
var randSource = []byte{
	0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xba, 0xbe,
	0xfe, 0xed, 0xfa, 0xce, 0x13, 0x37, 0xc0, 0xde,
}

const rlimitStack = 192 * 1024 // RLIMIT_STACK per spec.md §4.4

func defaultHandlers() map[string]handlerFunc {
	h := map[string]handlerFunc{
		"set_thread_area": handleSetThreadArea,
		"set_tid_address": handleSetTidAddress,
		"brk":             handleBrk,
		"mmap2":           handleMmap2,
		"munmap":          handleMunmap,
		"mprotect":        handleMprotect,
		"madvise":         handleMadvise,
		"mremap":          handleMremap,
		"write":           handleWrite,
		"writev":          handleWritev,
		"read":            handleRead,
		"open":            handleOpen,
		"close":           handleClose,
		"lseek":           handleLseek,
		"_llseek":         handleLlseek,
		"fcntl":           handleFcntl,
		"fcntl64":         handleFcntl,
		"readlink":        handleReadlink,
		"ioctl":           handleIoctl,
		"getcwd":          handleGetcwd,
		"rt_sigaction":    handleRtSigaction,
		"getrandom":       handleGetrandom,
		"getrlimit":       handleGetrlimit,
		"prlimit64":       handlePrlimit64,
		"sysinfo":         handleSysinfo,
		"clock_gettime":   handleClockGettime,
		"exit":            handleExit,
		"exit_group":      handleExitGroup,
	}

	for _, name := range []string{
		"rt_sigprocmask", "sigaltstack", "sigreturn", "rt_sigreturn",
		"sched_getaffinity", "sched_yield", "tkill", "futex",
		"set_robust_list", "syscall_signal",
	} {
		h[name] = handleNoop
	}

	for _, name := range []string{"stat", "lstat", "fstat"} {
		h[name] = handleStat
	}
	for _, name := range []string{"stat64", "lstat64", "fstat64", "fstatat64"} {
		h[name] = handleStat64
	}

	return h
}

func handleNoop(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	return 0, nil
}

// --- TLS / threading stubs ---

func handleSetThreadArea(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	const config3ULR = 1 << 13
	uInfoAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	if err := core.RegWrite(d.profile.RegCP0Config3, config3ULR); err != nil {
		return 0, err
	}
	if err := core.RegWrite(d.profile.RegCP0UserLocal, uInfoAddr); err != nil {
		return 0, err
	}
	// V0/A3 are cleared by SetReturnValue on a 0 return; nothing more to do.
	return 0, nil
}

func handleSetTidAddress(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	return 42, nil // fake constant TID; no real thread management
}

// --- memory management ---

func handleBrk(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	in, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	if in != 0 {
		cur := d.brkAddress
		newBrk := memory.AlignUp(in)
		if in > cur {
			if err := d.mm.MemMap(cur, newBrk-cur, memory.PermRead|memory.PermWrite|memory.PermExec, "[brk]"); err != nil {
				return 0, err
			}
		} else if in < cur {
			if err := d.mm.MemUnmap(newBrk, cur-newBrk); err != nil {
				return 0, err
			}
		}
		d.brkAddress = newBrk
	}
	return int64(d.brkAddress), nil
}

const (
	mapShared    = 0x01
	mapFixed     = 0x10
	mapAnonymous = 0x20
)

func handleMmap2(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	addr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	length, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	prot, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	flags, err := cc.GetRawParam(3, 0)
	if err != nil {
		return 0, err
	}
	// p4 (fd) and p5 (pgoffset) are read for ABI completeness; file-backed
	// mappings are not supported (anonymous-only, per spec.md §4.4).
	if _, err := cc.GetRawParam(4, 0); err != nil {
		return 0, err
	}
	if _, err := cc.GetRawParam(5, 0); err != nil {
		return 0, err
	}

	const mapFailed = -1
	perms := protToPerm(prot)

	mmapBase := memory.AlignDown(addr)
	if flags&mapFixed != 0 && mmapBase != addr {
		return mapFailed, nil
	}
	mmapSize := memory.AlignUp(length)

	needMap := true
	if mmapBase != 0 && d.mm.IsMapped(mmapBase, mmapSize) {
		if flags&mapFixed != 0 {
			if err := d.mm.MemProtect(mmapBase, mmapSize, perms); err != nil {
				return 0, err
			}
			needMap = false
		} else {
			mmapBase = 0
		}
	}

	if needMap {
		if mmapBase == 0 {
			base, err := d.mm.NextMmapAddress(d.mmapAddress, mmapSize)
			if err != nil {
				return 0, err
			}
			mmapBase = base
			d.mmapAddress = mmapBase + mmapSize
		}
		if err := d.mm.MemMap(mmapBase, mmapSize, perms, "[syscall_mmap2]"); err != nil {
			return 0, err
		}
		if err := core.MemWrite(mmapBase, make([]byte, mmapSize)); err != nil {
			return 0, err
		}
	}

	return int64(mmapBase), nil
}

func protToPerm(prot uint64) memory.Perm {
	var p memory.Perm
	if prot&0x1 != 0 {
		p |= memory.PermRead
	}
	if prot&0x2 != 0 {
		p |= memory.PermWrite
	}
	if prot&0x4 != 0 {
		p |= memory.PermExec
	}
	return p
}

func handleMunmap(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	addr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	length, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	if err := d.mm.MemUnmap(addr, length); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleMprotect(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	addr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	size, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	prot, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	if err := d.mm.MemProtect(addr, size, protToPerm(prot)); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleMadvise(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	return 0, nil // advice is never load-bearing for a deterministic replay
}

func handleMremap(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	return -1, nil // unimplemented, per spec.md §4.4
}

// --- I/O ---

func handleWrite(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	buf, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	count, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	return d.writeTo(core, int64(fd), buf, count)
}

func (d *Dispatcher) writeTo(core Core, fd int64, buf, count uint64) (int64, error) {
	if fd != 1 && fd != 2 {
		return -errEBADF, nil
	}
	data, err := core.MemRead(buf, count)
	if err != nil {
		return 0, err
	}

	var w io.Writer
	if fd == 1 {
		w = os.Stdout
	} else {
		w = os.Stderr
	}
	n, werr := w.Write(data)
	if werr != nil {
		return negErrno(werr), nil
	}
	return int64(n), nil
}

func handleWritev(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	iov, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	iovcnt, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}

	var total int64
	for i := uint64(0); i < iovcnt; i++ {
		base, err := core.ReadU32(iov + i*8)
		if err != nil {
			return 0, err
		}
		length, err := core.ReadU32(iov + i*8 + 4)
		if err != nil {
			return 0, err
		}
		n, err := d.writeTo(core, int64(fd), uint64(base), uint64(length))
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return n, nil
		}
		total += n
	}
	return total, nil
}

func handleRead(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	buf, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	length, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}

	var r io.Reader
	switch {
	case fd == 0:
		r = os.Stdin
	case d.fds[int64(fd)] != nil:
		r = d.fds[int64(fd)]
	default:
		return -errEBADF, nil
	}

	host := make([]byte, length)
	n, rerr := r.Read(host)
	if rerr != nil && rerr != io.EOF {
		return negErrno(rerr), nil
	}
	if err := core.MemWrite(buf, host[:n]); err != nil {
		return 0, err
	}
	return int64(n), nil
}

func handleOpen(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	filename, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	flags, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	mode, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}

	path, err := readCString(core, filename)
	if err != nil {
		return 0, err
	}

	f, oerr := os.OpenFile(path, mipsOpenFlags(flags), os.FileMode(mode&0o777))
	if oerr != nil {
		return negErrno(oerr), nil
	}
	fd := d.nextFd
	d.nextFd++
	d.fds[fd] = f
	return fd, nil
}

// mipsOpenFlags translates the MIPS/asm-generic O_* bit layout (which
// differs from the historically-x86 one the Go runtime's os.O_* constants
// assume) into host open(2) flags.
func mipsOpenFlags(flags uint64) int {
	out := 0
	switch flags & 0x3 {
	case 0:
		out |= os.O_RDONLY
	case 1:
		out |= os.O_WRONLY
	case 2:
		out |= os.O_RDWR
	}
	if flags&0o100 != 0 {
		out |= os.O_CREATE
	}
	if flags&0o200 != 0 {
		out |= os.O_EXCL
	}
	if flags&0o1000 != 0 {
		out |= os.O_TRUNC
	}
	if flags&0o10 != 0 {
		out |= os.O_APPEND
	}
	return out
}

func handleClose(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	f, ok := d.fds[int64(fd)]
	if !ok {
		return -errEBADF, nil
	}
	delete(d.fds, int64(fd))
	if cerr := f.Close(); cerr != nil {
		return negErrno(cerr), nil
	}
	return 0, nil
}

func handleLseek(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	offset, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	whence, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	f, ok := d.fds[int64(fd)]
	if !ok {
		return -errEBADF, nil
	}
	off, serr := f.Seek(int64(offset), int(whence))
	if serr != nil {
		return negErrno(serr), nil
	}
	return off, nil
}

// handleLlseek implements _llseek(fd, offset_high, offset_low, result, whence):
// the 32-bit-ABI 64-bit-offset seek. offset_high is ignored here since no
// file this emulator opens exceeds 32 bits.
func handleLlseek(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	fd, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	offsetLow, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	result, err := cc.GetRawParam(3, 0)
	if err != nil {
		return 0, err
	}
	whence, err := cc.GetRawParam(4, 0)
	if err != nil {
		return 0, err
	}
	f, ok := d.fds[int64(fd)]
	if !ok {
		return -errEBADF, nil
	}
	off, serr := f.Seek(int64(int32(offsetLow)), int(whence))
	if serr != nil {
		return negErrno(serr), nil
	}
	if err := core.WriteU32(result, uint32(off)); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleFcntl(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	// fd/cmd/arg are not meaningfully actionable without a full fcntl(2)
	// translation layer; report success with no effect, matching the
	// reference implementation's placeholder behavior.
	return 0, nil
}

func handleReadlink(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	pathAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	bufAddr, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	bufSize, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	path, err := readCString(core, pathAddr)
	if err != nil {
		return 0, err
	}
	target, lerr := os.Readlink(path)
	if lerr != nil {
		return negErrno(lerr), nil
	}
	data := []byte(target)
	if uint64(len(data)) > bufSize {
		data = data[:bufSize]
	}
	if err := core.MemWrite(bufAddr, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func handleIoctl(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	return 0, nil // no tty/terminal emulation: every ioctl is a silent no-op
}

func handleGetcwd(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	bufAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	size, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	wd, werr := os.Getwd()
	if werr != nil {
		return negErrno(werr), nil
	}
	data := append([]byte(wd), 0)
	if uint64(len(data)) > size {
		return -errEINVAL, nil
	}
	if err := core.MemWrite(bufAddr, data); err != nil {
		return 0, err
	}
	return int64(len(wd)), nil
}

// --- stat family ---

func statFromHost(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// inoOf extracts the host inode number so st_ino is the real, stable
// identity of the file rather than always reading zero (spec.md §4.4:
// only st_ino, st_mode, st_size are propagated to the guest layout).
func inoOf(fi os.FileInfo) uint64 {
	if st, ok := fi.Sys().(*unix.Stat_t); ok {
		return st.Ino
	}
	return 0
}

func modeToStIfmt(fi os.FileInfo) uint32 {
	const sIfreg = 0o100000
	const sIfdir = 0o040000
	mode := uint32(fi.Mode().Perm())
	if fi.IsDir() {
		return mode | sIfdir
	}
	return mode | sIfreg
}

func handleStat(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	pathAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	bufAddr, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	path, err := readCString(core, pathAddr)
	if err != nil {
		return 0, err
	}
	fi, serr := statFromHost(path)
	if serr != nil {
		return negErrno(serr), nil
	}
	st := StatMIPS{
		Ino:     uint32(inoOf(fi)),
		Mode:    modeToStIfmt(fi),
		Nlink:   1,
		Size:    uint32(fi.Size()),
		Blksize: 4096,
		Blocks:  (uint32(fi.Size()) + 511) / 512,
	}
	if err := core.MemWrite(bufAddr, st.Marshal()); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleStat64(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	pathAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	bufAddr, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	path, err := readCString(core, pathAddr)
	if err != nil {
		return 0, err
	}
	fi, serr := statFromHost(path)
	if serr != nil {
		return negErrno(serr), nil
	}
	st := Stat64MIPS{
		Ino:     inoOf(fi),
		Mode:    modeToStIfmt(fi),
		Nlink:   1,
		Size:    uint64(fi.Size()),
		Blksize: 4096,
		Blocks:  (int64(fi.Size()) + 511) / 512,
	}
	if err := core.MemWrite(bufAddr, st.Marshal()); err != nil {
		return 0, err
	}
	return 0, nil
}

// --- signals ---

func handleRtSigaction(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	signum, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	act, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	oldact, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}

	if oldact != 0 {
		prev := d.sigactionAct[signum]
		for i, w := range prev {
			if err := core.WriteU32(oldact+uint64(i)*4, w); err != nil {
				return 0, err
			}
		}
	}
	if act != 0 {
		var words [5]uint64
		for i := range words {
			v, err := core.ReadU32(act + uint64(i)*4)
			if err != nil {
				return 0, err
			}
			words[i] = uint64(v)
		}
		d.sigactionAct[signum] = words
	}
	return 0, nil
}

// --- misc ---

func handleGetrandom(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	buf, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	length, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	var written uint64
	for written < length {
		n := uint64(len(randSource))
		if length-written < n {
			n = length - written
		}
		if err := core.MemWrite(buf+written, randSource[:n]); err != nil {
			return 0, err
		}
		written += n
	}
	return int64(length), nil
}

func rlimitFor(resource uint64) (cur, max uint32) {
	const rlimitStackResource = 3
	max = 0xFFFFFFFF
	if resource == rlimitStackResource {
		cur = rlimitStack
	} else {
		cur = 0xFFFFFFFF
	}
	return cur, max
}

func handleGetrlimit(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	resource, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	rlimAddr, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	cur, max := rlimitFor(resource)
	if err := core.WriteU32(rlimAddr, cur); err != nil {
		return 0, err
	}
	if err := core.WriteU32(rlimAddr+4, max); err != nil {
		return 0, err
	}
	return 0, nil
}

func handlePrlimit64(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	pid, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	resource, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	newLimit, err := cc.GetRawParam(2, 0)
	if err != nil {
		return 0, err
	}
	oldLimit, err := cc.GetRawParam(3, 0)
	if err != nil {
		return 0, err
	}
	if pid == 0 && newLimit == 0 {
		cur, max := rlimitFor(resource)
		// prlimit64's rlimit64 fields are 8 bytes each.
		if err := core.MemWrite(oldLimit, pack64(uint64(cur))); err != nil {
			return 0, err
		}
		if err := core.MemWrite(oldLimit+8, pack64(uint64(max))); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return -1, nil
}

func pack64(v uint64) []byte {
	w := newBEWriter()
	w.u64(v)
	return w.bytes()
}

func handleSysinfo(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	infoAddr, err := cc.GetRawParam(0, 0)
	if err != nil {
		return 0, err
	}
	if err := core.MemWrite(infoAddr, DefaultSysInfo().Marshal()); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleClockGettime(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	tp, err := cc.GetRawParam(1, 0)
	if err != nil {
		return 0, err
	}
	// Determinism: wall clock never leaks to the guest (spec.md §4.4).
	if err := core.MemWrite(tp, make([]byte, 8)); err != nil {
		return 0, err
	}
	return 0, nil
}

func handleExit(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	d.stop.EmuStop()
	return 0, nil
}

func handleExitGroup(d *Dispatcher, cc *arch.CallingConvention, core Core) (int64, error) {
	d.stop.EmuStop()
	return 0, nil
}

// readCString reads a NUL-terminated string from guest memory one byte at a
// time; paths passed to open/stat/readlink are short, so this is not worth
// the complexity of a chunked reader.
func readCString(core Core, addr uint64) (string, error) {
	var b []byte
	for {
		chunk, err := core.MemRead(addr, 1)
		if err != nil {
			return "", err
		}
		if chunk[0] == 0 {
			break
		}
		b = append(b, chunk[0])
		addr++
	}
	return string(b), nil
}
