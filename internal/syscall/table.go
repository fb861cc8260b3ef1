package syscall

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed data/mips_syscalls.json
var syscallTableJSON []byte

// table maps a syscall number to its lowercase name for one architecture key
// ("mips" — the only key this port ever populates, unlike the teacher's
// multi-arch original).
var table map[string]string

func init() {
	var raw map[string]map[string]string
	if err := json.Unmarshal(syscallTableJSON, &raw); err != nil {
		panic(fmt.Sprintf("syscall: malformed embedded table: %v", err))
	}
	table = raw["mips"]
	if table == nil {
		panic("syscall: embedded table has no \"mips\" entry")
	}
}

// LookupName resolves a trapped syscall number to its name. The second
// return is false for any number absent from the bundled table — per
// spec.md §4.4 that is a fatal condition (Unimplemented), not a soft error.
func LookupName(number uint64) (string, bool) {
	name, ok := table[fmt.Sprintf("%d", number)]
	return name, ok
}
