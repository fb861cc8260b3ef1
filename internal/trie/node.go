// Package trie implements C9: a monomorphic Keccak-256/RLP Merkle-Patricia
// trie (the Ethereum state-trie construction) and the step-proof generator
// built on top of it.
//
// Grounded on original_source/omo/src/step_proof.rs's RlpNodeCodec/
// EthTrieLayout/generate_step_proof — a paritytech trie-db codec targeting
// the same Keccak+RLP+hex-prefix scheme go-ethereum's own trie package
// implements natively, so this port follows go-ethereum's node shape
// (shortNode/fullNode/valueNode, hexToCompact) directly rather than
// reproducing trie-db's NodeCodec trait machinery.
package trie

// node is the union of trie node kinds this package needs: a one-shot,
// insert-only, in-memory trie has no use for trie-db's lazy hashNode
// resolution or go-ethereum's dirty-tracking/database layers.
type node interface{}

type (
	// fullNode is a 17-way branch: slots 0-15 are nibble children, slot 16
	// holds a terminal value when some key ends exactly at this branch.
	fullNode struct {
		Children [17]node
	}
	// shortNode is a leaf (Val is a valueNode) or an extension (Val is a
	// *fullNode). Key is hex nibbles; a leaf's Key ends with the terminator
	// nibble (16), an extension's does not.
	shortNode struct {
		Key []byte
		Val node
	}
	valueNode []byte
)

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}
