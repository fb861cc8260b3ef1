package trie

import "golang.org/x/crypto/sha3"

// keccak256 is the trie's sole hash function (EthTrieLayout::Hash =
// KeccakHasher in the reference implementation), paired with go-ethereum's
// RLP encoder the way other_examples' cannon-mipsevm fixtures do.
func keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
