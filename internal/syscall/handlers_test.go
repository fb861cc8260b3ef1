package syscall

import (
	"os"
	"testing"
)

func TestWriteToRejectsNonStdFd(t *testing.T) {
	d := &Dispatcher{}
	n, err := d.writeTo(nil, 3, 0, 0)
	if err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if n != -errEBADF {
		t.Fatalf("writeTo(fd=3) = %d, want %d", n, -errEBADF)
	}
}

func TestWriteToRejectsNonStdFdEvenWhenFdsPopulated(t *testing.T) {
	// fd 3 has a live entry in d.fds, but write(2) is only ever valid on
	// stdout/stderr (spec.md §4.4); a populated fds table must not change that.
	d := &Dispatcher{fds: map[int64]*os.File{3: os.Stdout}}
	n, err := d.writeTo(nil, 3, 0, 0)
	if err != nil {
		t.Fatalf("writeTo: %v", err)
	}
	if n != -errEBADF {
		t.Fatalf("writeTo(fd=3) with populated fds = %d, want %d", n, -errEBADF)
	}
}
