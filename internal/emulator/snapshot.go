package emulator

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/flexemu-go/mipsevm/internal/shadow"
)

// Snapshot is spec.md §3's "Emulator state snapshot": registers excluding
// zero values, plus every non-zero shadow memory chunk. Two snapshots taken
// over identical execution prefixes serialize byte-identically.
type Snapshot struct {
	RunID string
	Regs  map[int]uint64
	Mem   *shadow.Snapshot
}

// Snapshot captures the orchestrator's current machine state, tagged with
// runID (internal/ids.NewRunID) for correlation with the originating CLI
// invocation's logs.
func (e *Emulator) Snapshot(runID string) *Snapshot {
	return &Snapshot{
		RunID: runID,
		Regs:  e.saveRegisters(),
		Mem:   e.sh.Snapshot(),
	}
}

// jsonSnapshot is spec.md §6's stable snapshot wire format:
// `{regs: {reg_id: u64 hex}, memories: {data: {addr: "0xNNNNNNNN", ...}}}`,
// with empty chunks elided and addresses hex-lowercase 4-byte aligned.
type jsonSnapshot struct {
	RunID    string            `json:"run_id,omitempty"`
	Regs     map[string]string `json:"regs"`
	Memories jsonMemories      `json:"memories"`
}

type jsonMemories struct {
	Data map[string]string `json:"data"`
}

// MarshalJSON implements the stable, deterministic snapshot format: two
// snapshots over identical execution prefixes produce byte-identical JSON
// since Go sorts map keys on marshal and every value here is a plain hex
// string, not a float or pointer.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	regs := make(map[string]string, len(s.Regs))
	for id, v := range s.Regs {
		regs[strconv.Itoa(id)] = fmt.Sprintf("%#x", v)
	}

	data := make(map[string]string, s.Mem.Len())
	for _, addr := range s.Mem.Addrs() {
		chunk, _ := s.Mem.Chunk(addr)
		data[fmt.Sprintf("0x%08x", addr)] = "0x" + hex.EncodeToString(chunk[:])
	}

	return json.Marshal(jsonSnapshot{
		RunID:    s.RunID,
		Regs:     regs,
		Memories: jsonMemories{Data: data},
	})
}
