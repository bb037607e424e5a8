package receipt

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"
)

func sample() Receipt {
	return New("testnet", "poseidon2", "123field",
		"aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy", "sign1abc")
}

func TestBytes_Canonical(t *testing.T) {
	b, err := sample().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	want := `{"type":"zpass.receipt.v1","network":"testnet","algorithm":"poseidon2","hash":"123field",` +
		`"address":"aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy","signature":"sign1abc"}`
	if string(b) != want {
		t.Fatalf("Bytes mismatch:\n got %s\nwant %s", b, want)
	}

	root := New("mainnet", "", "5field", "aleo1x", "sign1y")
	b, err = root.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if bytes.Contains(b, []byte("algorithm")) {
		t.Fatalf("empty algorithm should be omitted: %s", b)
	}

	if _, err := (Receipt{}).Bytes(); err == nil {
		t.Fatalf("receipt without type should not encode")
	}
}

func TestCID_Deterministic(t *testing.T) {
	a, err := sample().CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	b, err := sample().CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if a != b {
		t.Fatalf("CID not deterministic: %s vs %s", a, b)
	}
	if a.Prefix().Codec != cid.Raw || a.Version() != 1 {
		t.Fatalf("unexpected CID prefix: %+v", a.Prefix())
	}

	other := sample()
	other.Signature = "sign1abd"
	c, err := other.CID()
	if err != nil {
		t.Fatalf("CID: %v", err)
	}
	if a == c {
		t.Fatalf("different receipts share a CID")
	}
}

func TestParse(t *testing.T) {
	b, err := sample().Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != sample() {
		t.Fatalf("Parse mismatch: %+v", got)
	}

	cases := map[string]string{
		"pretty":  "{\n  \"type\": \"zpass.receipt.v1\"\n}",
		"unknown": `{"type":"zpass.receipt.v1","extra":1}`,
		"type":    `{"type":"other"}`,
		"garbage": `not json`,
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("ArchiveLookup", func(t *testing.T) {
		s := newStore(t)
		id, err := Archive(s, sample())
		if err != nil {
			t.Fatalf("Archive: %v", err)
		}
		want, _ := sample().CID()
		if id != want {
			t.Fatalf("Archive CID mismatch: got %s want %s", id, want)
		}
		got, err := Lookup(s, id)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if got != sample() {
			t.Fatalf("Lookup mismatch: %+v", got)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same bytes")
		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1): %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2): %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing")
		id, err := CIDOf(b)
		if err != nil {
			t.Fatalf("CIDOf: %v", err)
		}
		if s.Has(id) {
			t.Fatalf("Has true for missing CID")
		}
		if _, err := s.Get(id); !IsNotFound(err) {
			t.Fatalf("Get missing: got %v want ErrNotFound", err)
		}
		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		s := newStore(t)
		if s.Has(cid.Undef) {
			t.Fatalf("Has true for undefined CID")
		}
		if _, err := s.Get(cid.Undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}

func TestMemStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store { return NewMemStore() })
}

func TestDirStore(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewDirStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewDirStore: %v", err)
		}
		return s
	})

	if _, err := NewDirStore(""); err == nil {
		t.Fatalf("empty root should fail")
	}
}
