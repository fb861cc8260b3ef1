package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// emptyRoot is Keccak(0x80) — the RLP encoding of the empty string, and
// step_proof.rs's HASHED_NULL_NODE_BYTES constant.
var emptyRoot = [32]byte{
	0x56, 0xe8, 0x1f, 0x17, 0x1b, 0xcc, 0x55, 0xa6, 0xff, 0x83, 0x45, 0xe6, 0x92, 0xc0, 0xf8, 0x6e,
	0x5b, 0x48, 0xe0, 0x1b, 0x99, 0x6c, 0xad, 0xc0, 0x01, 0x62, 0x2f, 0xb5, 0xe3, 0x63, 0xb4, 0x21,
}

// encodeNode produces a node's raw RLP encoding: a leaf/extension as a
// 2-item list `[hex-prefix(key), childRef]`, a branch as a 17-item list.
func encodeNode(n node) ([]byte, error) {
	switch n := n.(type) {
	case *shortNode:
		key := hexToCompact(n.Key)
		child, err := childReference(n.Val)
		if err != nil {
			return nil, err
		}
		return rlp.EncodeToBytes([]interface{}{key, child})

	case *fullNode:
		items := make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			child, err := childReference(n.Children[i])
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		if v, ok := n.Children[16].(valueNode); ok {
			items[16] = []byte(v)
		} else {
			items[16] = []byte{}
		}
		return rlp.EncodeToBytes(items)

	default:
		return nil, fmt.Errorf("trie: cannot encode node type %T", n)
	}
}

// childReference collapses a child into the form its parent embeds: a
// value leaf's child is the raw value bytes (appended as a plain RLP
// string); any other child is inlined raw (ChildReference::Inline) if its
// own encoding is under 32 bytes, or replaced by its Keccak-256 hash
// (ChildReference::Hash) otherwise.
func childReference(n node) (interface{}, error) {
	switch n := n.(type) {
	case nil:
		return []byte{}, nil
	case valueNode:
		return []byte(n), nil
	}
	enc, err := encodeNode(n)
	if err != nil {
		return nil, err
	}
	if len(enc) < 32 {
		return rlp.RawValue(enc), nil
	}
	h := keccak256(enc)
	return h[:], nil
}
