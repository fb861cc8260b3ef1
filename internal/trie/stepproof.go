package trie

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/flexemu-go/mipsevm/internal/shadow"
)

// regStartAddr is step_proof.rs's REG_START_ADDR: the word-index space for
// registers sits immediately above the 32-bit memory address space.
const regStartAddr = uint64(0xffffffff) + 1

// MemAccess is one recorded read or write during a single stepped
// instruction (spec.md §3's "Memory access record").
type MemAccess struct {
	Write bool
	Addr  uint64
	Size  int
	Value uint64
}

// Proof is C9's output (spec.md §4.7 step 5): a pre/post root pair plus the
// deduplicated trie nodes a verifier needs to replay access against
// root_before and arrive at root_after, plus the register file on both
// sides of the step.
type Proof struct {
	RootBefore  [32]byte
	RootAfter   [32]byte
	AccessNodes [][]byte
	RegsBefore  map[int]uint64
	RegsAfter   map[int]uint64
}

// GenerateStepProof builds the before-state trie, commits root_before,
// replays access against it with a recorder attached, and commits
// root_after — spec.md §4.7 steps 1-4. regsAfter is supplied by the caller
// (the post-step CPU register file) rather than derived here: the trie
// itself only ever mirrors memory writes, never register writes.
func GenerateStepProof(beforeMem *shadow.Snapshot, beforeRegs, afterRegs map[int]uint64, access []MemAccess) (*Proof, error) {
	t := New()
	if err := insertMemory(t, beforeMem, nil); err != nil {
		return nil, fmt.Errorf("trie: build before-state: %w", err)
	}
	if err := insertRegisters(t, beforeRegs, nil); err != nil {
		return nil, fmt.Errorf("trie: insert before-registers: %w", err)
	}

	rootBefore, err := t.Root()
	if err != nil {
		return nil, fmt.Errorf("trie: root_before: %w", err)
	}

	rec := newRecorder()
	for _, a := range access {
		if a.Size != 4 || a.Addr&3 != 0 {
			return nil, fmt.Errorf("trie: recorded access at %#x/%d is not a word-aligned 4-byte access", a.Addr, a.Size)
		}
		key := memoryKey(a.Addr)
		if a.Write {
			if err := t.insertRecording(key, beU32(uint32(a.Value)), rec); err != nil {
				return nil, fmt.Errorf("trie: replay write at %#x: %w", a.Addr, err)
			}
			continue
		}
		if _, ok, err := t.getRecording(key, rec); err != nil {
			return nil, fmt.Errorf("trie: replay read at %#x: %w", a.Addr, err)
		} else if !ok {
			return nil, fmt.Errorf("trie: replay read at %#x: no entry in before-state trie", a.Addr)
		}
	}

	rootAfter, err := t.Root()
	if err != nil {
		return nil, fmt.Errorf("trie: root_after: %w", err)
	}

	return &Proof{
		RootBefore:  rootBefore,
		RootAfter:   rootAfter,
		AccessNodes: rec.nodes,
		RegsBefore:  beforeRegs,
		RegsAfter:   afterRegs,
	}, nil
}

// memoryKey is spec.md §4.7 step 1's `(addr >> 2)` as a 4-byte big-endian
// word index.
func memoryKey(addr uint64) []byte {
	return beU32(uint32(addr >> 2))
}

// registerKey is the optional-but-decided register key: the same
// word-index scheme applied to regStartAddr+reg_id*4, placing registers in
// their own slice of key space above any 32-bit memory address.
func registerKey(regID int) []byte {
	return beU32(uint32((regStartAddr + uint64(regID)*4) >> 2))
}

func insertMemory(t *Trie, mem *shadow.Snapshot, rec *recorder) error {
	for _, addr := range mem.Addrs() {
		chunk, _ := mem.Chunk(addr)
		if err := t.insertRecording(memoryKey(addr), chunk[:], rec); err != nil {
			return err
		}
	}
	return nil
}

func insertRegisters(t *Trie, regs map[int]uint64, rec *recorder) error {
	for _, id := range sortedRegIDs(regs) {
		if err := t.insertRecording(registerKey(id), beU32(uint32(regs[id])), rec); err != nil {
			return err
		}
	}
	return nil
}

func sortedRegIDs(regs map[int]uint64) []int {
	ids := make([]int, 0, len(regs))
	for id := range regs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func beU32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

// jsonProof is spec.md §6's step-proof wire format: every field a
// hex-prefixed string, access_nodes and the register lists each an
// RLP-encoded list.
type jsonProof struct {
	RootBefore  string `json:"root_before"`
	RootAfter   string `json:"root_after"`
	AccessNodes string `json:"access_nodes"`
	RegsBefore  string `json:"regs_before"`
	RegsAfter   string `json:"regs_after"`
}

// MarshalJSON implements spec.md §6's step-proof serialization.
func (p *Proof) MarshalJSON() ([]byte, error) {
	rawNodes := make([]rlp.RawValue, len(p.AccessNodes))
	for i, n := range p.AccessNodes {
		rawNodes[i] = rlp.RawValue(n)
	}
	accessEnc, err := rlp.EncodeToBytes(rawNodes)
	if err != nil {
		return nil, fmt.Errorf("trie: encode access_nodes: %w", err)
	}
	regsBeforeEnc, err := encodeRegList(p.RegsBefore)
	if err != nil {
		return nil, fmt.Errorf("trie: encode regs_before: %w", err)
	}
	regsAfterEnc, err := encodeRegList(p.RegsAfter)
	if err != nil {
		return nil, fmt.Errorf("trie: encode regs_after: %w", err)
	}
	return json.Marshal(jsonProof{
		RootBefore:  hex0x(p.RootBefore[:]),
		RootAfter:   hex0x(p.RootAfter[:]),
		AccessNodes: hex0x(accessEnc),
		RegsBefore:  hex0x(regsBeforeEnc),
		RegsAfter:   hex0x(regsAfterEnc),
	})
}

// encodeRegList packs each register as `(reg_id << 32 | value)` into 8
// big-endian bytes (spec.md §6), sorted by register ID for determinism,
// then RLP-encodes the resulting byte-string list.
func encodeRegList(regs map[int]uint64) ([]byte, error) {
	ids := sortedRegIDs(regs)
	entries := make([][]byte, len(ids))
	for i, id := range ids {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(uint32(id))<<32|(regs[id]&0xffffffff))
		entries[i] = b[:]
	}
	return rlp.EncodeToBytes(entries)
}

func hex0x(b []byte) string { return "0x" + hex.EncodeToString(b) }
