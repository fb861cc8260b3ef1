package syscall

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// Host I/O syscall handlers never let a Go error cross into the guest: per
// spec.md §4.4/§7, failures are translated into a negative Linux errno and
// returned through set_return_value like any real kernel would.

const (
	errEBADF  = 9
	errEINVAL = 22
	errENOSYS = 38
)

// errnoFor maps a host error to a positive Linux errno value. Unmapped
// errors fall back to EINVAL rather than leaking host-specific detail to
// the guest.
func errnoFor(err error) int64 {
	if err == nil {
		return 0
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		return int64(errno)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return int64(unix.ENOENT)
	case errors.Is(err, fs.ErrPermission):
		return int64(unix.EACCES)
	case errors.Is(err, fs.ErrExist):
		return int64(unix.EEXIST)
	case errors.Is(err, fs.ErrClosed):
		return int64(errEBADF)
	}

	return int64(errEINVAL)
}

// negErrno is the handler-return convention: a negative errno magnitude.
func negErrno(err error) int64 {
	return -errnoFor(err)
}
