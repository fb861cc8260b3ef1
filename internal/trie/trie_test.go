package trie

import (
	"encoding/hex"
	"testing"
)

// These vectors are step_proof.rs's own test_trie_root: since both
// implementations target the identical Keccak-256/RLP/hex-prefix codec,
// the same sequence of inserts must produce the same roots here.
func TestRootKnownVectors(t *testing.T) {
	cases := []struct {
		key, value string
		root       string
	}{
		{"foo", "foo", "51d8ccee4184b078b508033281a3dc892194afc17b3e92ae7e4a5b400e8454cc"},
		{"fooo", "fooo", "a6a751b890341768940a99f4e6b337a3c279e014fc0980a4d96ec72225567add"},
		{"foa", "foa", "227cd158eb4ad8a5169fdbd13c7d906ccf28937d21cea2fa7635e941c7c5cc65"},
		{"fooa", "fooa", "87b08ece907edf5c5c19e56beb0ed9badf7bbec61f5e686ca0e31a220e0d4b19"},
		{"fooa", "foob", "55f7f9d2d7117ebefcfc94b0c3b526508ecff533e8f1b0405ff22f6f5c73ebd2"},
	}

	tr := New()
	for _, c := range cases {
		if err := tr.Insert([]byte(c.key), []byte(c.value)); err != nil {
			t.Fatalf("insert %q=%q: %v", c.key, c.value, err)
		}
		root, err := tr.Root()
		if err != nil {
			t.Fatalf("root after %q=%q: %v", c.key, c.value, err)
		}
		want, err := hex.DecodeString(c.root)
		if err != nil {
			t.Fatalf("bad fixture hex: %v", err)
		}
		if hex.EncodeToString(root[:]) != hex.EncodeToString(want) {
			t.Fatalf("after %q=%q: root = %x, want %s", c.key, c.value, root, c.root)
		}
	}
}

func TestEmptyTrieRoot(t *testing.T) {
	tr := New()
	root, err := tr.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root != emptyRoot {
		t.Fatalf("empty trie root = %x, want %x", root, emptyRoot)
	}
}

func TestGetRoundTrip(t *testing.T) {
	tr := New()
	entries := map[string]string{
		"foo":  "bar",
		"fooo": "baz",
		"foa":  "qux",
	}
	for k, v := range entries {
		if err := tr.Insert([]byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}
	for k, want := range entries {
		got, ok := tr.Get([]byte(k))
		if !ok {
			t.Fatalf("Get(%q): not found", k)
		}
		if string(got) != want {
			t.Fatalf("Get(%q) = %q, want %q", k, got, want)
		}
	}
	if _, ok := tr.Get([]byte("missing")); ok {
		t.Fatal("Get(missing) reported ok=true")
	}
}
