package trie

import "fmt"

// Trie is a one-shot, insert-only Merkle-Patricia trie: every step-proof
// builds a fresh one over the pre-step state, so there is no deletion, no
// backing database, and no cached hashes carried between inserts.
type Trie struct {
	root node
}

// New returns an empty trie.
func New() *Trie { return &Trie{} }

// Insert stores value under key, overwriting any previous value at key.
func (t *Trie) Insert(key, value []byte) error {
	return t.insertRecording(key, value, nil)
}

func (t *Trie) insertRecording(key, value []byte, rec *recorder) error {
	if len(value) == 0 {
		return fmt.Errorf("trie: empty value not supported")
	}
	n, err := insert(t.root, keybytesToHex(key), valueNode(value), rec)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

// Get looks up key, reporting ok=false if no value was ever inserted there.
func (t *Trie) Get(key []byte) (value []byte, ok bool) {
	v, ok, _ := t.getRecording(key, nil)
	return v, ok
}

func (t *Trie) getRecording(key []byte, rec *recorder) ([]byte, bool, error) {
	v, ok, err := get(t.root, keybytesToHex(key), rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(v.(valueNode)), true, nil
}

// Root computes the trie's Merkle root. Unlike an ordinary child reference,
// the root is always hashed, even when the root node's own encoding would
// be under the 32-byte inline threshold.
func (t *Trie) Root() ([32]byte, error) {
	if t.root == nil {
		return emptyRoot, nil
	}
	enc, err := encodeNode(t.root)
	if err != nil {
		return [32]byte{}, err
	}
	return keccak256(enc), nil
}

func insert(n node, key []byte, value node, rec *recorder) (node, error) {
	if err := rec.visit(n); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return value, nil
	}
	switch n := n.(type) {
	case nil:
		return &shortNode{Key: append([]byte(nil), key...), Val: value}, nil

	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			nn, err := insert(n.Val, key[matchlen:], value, rec)
			if err != nil {
				return nil, err
			}
			return &shortNode{Key: n.Key, Val: nn}, nil
		}
		branch := &fullNode{}
		var err error
		branch.Children[n.Key[matchlen]], err = insert(nil, n.Key[matchlen+1:], n.Val, rec)
		if err != nil {
			return nil, err
		}
		branch.Children[key[matchlen]], err = insert(nil, key[matchlen+1:], value, rec)
		if err != nil {
			return nil, err
		}
		if matchlen == 0 {
			return branch, nil
		}
		return &shortNode{Key: key[:matchlen], Val: branch}, nil

	case *fullNode:
		cp := n.copy()
		nn, err := insert(cp.Children[key[0]], key[1:], value, rec)
		if err != nil {
			return nil, err
		}
		cp.Children[key[0]] = nn
		return cp, nil

	default:
		return nil, fmt.Errorf("trie: invalid node type %T", n)
	}
}

func get(n node, key []byte, rec *recorder) (node, bool, error) {
	if err := rec.visit(n); err != nil {
		return nil, false, err
	}
	switch n := n.(type) {
	case nil:
		return nil, false, nil
	case valueNode:
		if len(key) == 0 {
			return n, true, nil
		}
		return nil, false, nil
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return nil, false, nil
		}
		return get(n.Val, key[matchlen:], rec)
	case *fullNode:
		return get(n.Children[key[0]], key[1:], rec)
	default:
		return nil, false, fmt.Errorf("trie: invalid node type %T", n)
	}
}

// recorder accumulates the deduplicated, visit-ordered sequence of raw node
// encodings a traversal touches — the step-proof witness (spec.md §4.7's
// `access_nodes`).
type recorder struct {
	seen  map[[32]byte]bool
	nodes [][]byte
}

func newRecorder() *recorder {
	return &recorder{seen: map[[32]byte]bool{}}
}

// visit is nil-receiver safe so plain Insert/Get (rec == nil) pay nothing.
func (r *recorder) visit(n node) error {
	if r == nil || n == nil {
		return nil
	}
	if _, ok := n.(valueNode); ok {
		return nil
	}
	enc, err := encodeNode(n)
	if err != nil {
		return err
	}
	h := keccak256(enc)
	if r.seen[h] {
		return nil
	}
	r.seen[h] = true
	r.nodes = append(r.nodes, enc)
	return nil
}
