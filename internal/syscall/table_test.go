package syscall

import "testing"

func TestLookupNameKnownSyscalls(t *testing.T) {
	cases := map[uint64]string{
		4001: "exit",
		4003: "read",
		4004: "write",
		4045: "brk",
	}
	for number, want := range cases {
		name, ok := LookupName(number)
		if !ok {
			t.Errorf("LookupName(%d): not found, want %q", number, want)
			continue
		}
		if name != want {
			t.Errorf("LookupName(%d) = %q, want %q", number, name, want)
		}
	}
}

func TestLookupNameUnknownIsAbsent(t *testing.T) {
	if _, ok := LookupName(999999999); ok {
		t.Fatal("expected an absurd syscall number to be absent from the table")
	}
}
