// Package shadow implements C3: a deterministic, serializable mirror of
// every guest memory word ever written. Grounded on
// original_source/omo/src/engine.rs's MemoryState/Chunk.
package shadow

import (
	"encoding/binary"
	"sort"
)

// ChunkSize is the alignment granularity: 4 bytes, one MIPS word.
const ChunkSize = 4

// Chunk is one 4-byte-aligned shadow slot.
type Chunk [ChunkSize]byte

func (c Chunk) IsZero() bool {
	return c == Chunk{}
}

// Memory is the chunked shadow mirror, keyed by addr&^3.
type Memory struct {
	chunks map[uint64]Chunk
}

func New() *Memory {
	return &Memory{chunks: make(map[uint64]Chunk)}
}

func alignedBase(addr uint64) uint64 { return addr &^ (ChunkSize - 1) }

func (m *Memory) indexChunk(base uint64) Chunk {
	if c, ok := m.chunks[base]; ok {
		return c
	}
	return Chunk{}
}

// WriteBytes writes bytes at addr, straddling chunks as needed. Missing
// chunks are created zeroed; only the affected bytes of a partially-written
// chunk are overwritten.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i := 0; i < len(data); {
		base := alignedBase(addr + uint64(i))
		offset := int((addr + uint64(i)) - base)
		c := m.indexChunk(base)
		n := ChunkSize - offset
		if n > len(data)-i {
			n = len(data) - i
		}
		copy(c[offset:offset+n], data[i:i+n])
		m.chunks[base] = c
		i += n
	}
}

// ReadBytes returns exactly size bytes starting at addr, zero-extending
// across any unmapped chunks.
func (m *Memory) ReadBytes(addr uint64, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; {
		base := alignedBase(addr + uint64(i))
		offset := int((addr + uint64(i)) - base)
		c := m.indexChunk(base)
		n := ChunkSize - offset
		if n > size-i {
			n = size - i
		}
		copy(out[i:i+n], c[offset:offset+n])
		i += n
	}
	return out
}

// WriteValue takes the low `size` bytes of the big-endian encoding of value
// (as a u32) and writes them at addr.
func (m *Memory) WriteValue(addr uint64, size int, value int64) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(value))
	m.WriteBytes(addr, buf[4-size:])
}

// Snapshot is an immutable, deterministically-ordered clone with zero chunks
// dropped.
type Snapshot struct {
	addrs  []uint64
	chunks map[uint64]Chunk
}

func (m *Memory) Snapshot() *Snapshot {
	s := &Snapshot{chunks: make(map[uint64]Chunk, len(m.chunks))}
	for addr, c := range m.chunks {
		if c.IsZero() {
			continue
		}
		s.chunks[addr] = c
		s.addrs = append(s.addrs, addr)
	}
	sort.Slice(s.addrs, func(i, j int) bool { return s.addrs[i] < s.addrs[j] })
	return s
}

// Addrs returns the sorted, deterministic list of non-zero chunk addresses.
func (s *Snapshot) Addrs() []uint64 { return s.addrs }

func (s *Snapshot) Chunk(addr uint64) (Chunk, bool) {
	c, ok := s.chunks[addr]
	return c, ok
}

func (s *Snapshot) ReadBytes(addr uint64, size int) []byte {
	out := make([]byte, size)
	for i := 0; i < size; {
		base := alignedBase(addr + uint64(i))
		offset := int((addr + uint64(i)) - base)
		c := s.chunks[base]
		n := ChunkSize - offset
		if n > size-i {
			n = size - i
		}
		copy(out[i:i+n], c[offset:offset+n])
		i += n
	}
	return out
}

// Len reports the number of non-zero chunks retained.
func (s *Snapshot) Len() int { return len(s.addrs) }
