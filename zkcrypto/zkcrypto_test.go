package zkcrypto

import (
	"bytes"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"xdao.co/zpass/zerr"
)

const (
	testPrivateKey = "APrivateKey1zkp8CZNn3yeCseEtxuVPbDCwSyhGW6yZKUYKfgXmcpoGPWH"
	testIssuer     = "aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy"
	testSubject    = "aleo14w44zfrehup9g894j7tgeyz5gsjuxn0nfn09vd2fvpznrg85rs8skywkte"
)

func mustSuite(t *testing.T, n Network) *Suite {
	t.Helper()
	s, err := Get(n)
	if err != nil {
		t.Fatalf("Get(%s): %v", n, err)
	}
	return s
}

func TestGet_SharedPerNetwork(t *testing.T) {
	a := mustSuite(t, Testnet)
	b := mustSuite(t, Testnet)
	if a != b {
		t.Fatalf("expected the same suite instance")
	}
	if mustSuite(t, Mainnet) == a {
		t.Fatalf("expected distinct suites per network")
	}
	if _, err := Get(Network(7)); !zerr.IsKind(err, zerr.KindInput) {
		t.Fatalf("expected KindInput for unknown network, got %v", err)
	}
}

func TestGet_ConcurrentFirstUse(t *testing.T) {
	suites[Mainnet] = suiteSlot{}

	bits := make([]bool, 300)
	for i := range bits {
		bits[i] = i%3 == 0
	}
	type result struct {
		suite *Suite
		field Field
		group Group
		err   error
	}
	const workers = 16
	results := make([]result, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			s, err := Get(Mainnet)
			if err != nil {
				results[i].err = err
				return
			}
			results[i].suite = s
			if results[i].field, err = s.HashBHP1024(bits); err != nil {
				results[i].err = err
				return
			}
			results[i].group, results[i].err = s.HashToGroupBHP256(bits)
		}(i)
	}
	close(start)
	wg.Wait()

	fresh, err := newSuite(Mainnet)
	if err != nil {
		t.Fatalf("newSuite: %v", err)
	}
	wantField, err := fresh.HashBHP1024(bits)
	if err != nil {
		t.Fatalf("HashBHP1024: %v", err)
	}
	wantGroup, err := fresh.HashToGroupBHP256(bits)
	if err != nil {
		t.Fatalf("HashToGroupBHP256: %v", err)
	}
	for i, r := range results {
		if r.err != nil {
			t.Fatalf("worker %d: %v", i, r.err)
		}
		if r.suite != results[0].suite {
			t.Fatalf("worker %d got a different suite instance", i)
		}
		if !r.field.Equal(wantField) {
			t.Fatalf("worker %d: HashBHP1024 = %s, want %s", i, r.field, wantField)
		}
		if !r.group.Equal(wantGroup) {
			t.Fatalf("worker %d: HashToGroupBHP256 = %s, want %s", i, r.group, wantGroup)
		}
	}
}

func TestParseNetwork(t *testing.T) {
	for in, want := range map[string]Network{"testnet": Testnet, "MAINNET": Mainnet, "0": Testnet, "1": Mainnet} {
		got, err := ParseNetwork(in)
		if err != nil || got != want {
			t.Fatalf("ParseNetwork(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseNetwork("devnet"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestField_StringIsCanonicalDecimal(t *testing.T) {
	v := new(big.Int).Sub(fr.Modulus(), big.NewInt(5))
	f, err := NewField(v)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if got, want := f.String(), v.Text(10)+"field"; got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	if _, err := NewField(fr.Modulus()); err == nil {
		t.Fatalf("expected modulus to be rejected")
	}
}

func TestFieldFromUint128_Bounds(t *testing.T) {
	s := mustSuite(t, Testnet)
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	if _, err := s.FieldFromUint128(max); err != nil {
		t.Fatalf("max u128 rejected: %v", err)
	}
	if _, err := s.FieldFromUint128(new(big.Int).Add(max, big.NewInt(1))); !zerr.IsKind(err, zerr.KindTypeParse) {
		t.Fatalf("expected KindTypeParse above u128, got %v", err)
	}
}

func TestParseField_RoundTrip(t *testing.T) {
	s := mustSuite(t, Testnet)
	for _, in := range []string{"0field", "12345field", "4714535926995575150field"} {
		f, err := s.ParseField(in)
		if err != nil {
			t.Fatalf("ParseField(%q): %v", in, err)
		}
		if f.String() != in {
			t.Fatalf("round trip: got %s want %s", f.String(), in)
		}
	}
	for _, bad := range []string{"", "field", "-1field", "0x10field", "1.5field"} {
		if _, err := s.ParseField(bad); !zerr.IsKind(err, zerr.KindTypeParse) {
			t.Fatalf("ParseField(%q): expected KindTypeParse, got %v", bad, err)
		}
	}
}

func TestBitsLE_RoundTrip(t *testing.T) {
	v := big.NewInt(0b1011)
	bits := BitsLE(v, 6)
	want := []bool{true, true, false, true, false, false}
	for i := range want {
		if bits[i] != want[i] {
			t.Fatalf("bit %d: got %v", i, bits[i])
		}
	}
	if FromBitsLE(bits).Cmp(v) != 0 {
		t.Fatalf("FromBitsLE mismatch")
	}
}

func TestAddress_ParseRoundTrip(t *testing.T) {
	s := mustSuite(t, Testnet)
	for _, in := range []string{testIssuer, testSubject, "aleo1rhgdu77hgyqd3xjj8ucu3jj9r2krwz6mnzyd80gncr5fxcwlh5rsvzp9px"} {
		a, err := s.ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", in, err)
		}
		if a.String() != in {
			t.Fatalf("round trip: got %s want %s", a.String(), in)
		}
	}
	if _, err := s.ParseAddress("aleo1notanaddress"); !zerr.IsKind(err, zerr.KindTypeParse) {
		t.Fatalf("expected KindTypeParse, got %v", err)
	}
	// valid bech32m under a different prefix
	other, err := encodeBech32m("sign", make([]byte, 32))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := s.ParseAddress(other); err == nil {
		t.Fatalf("expected wrong prefix to be rejected")
	}
}

func TestGroup_ParseRoundTrip(t *testing.T) {
	s := mustSuite(t, Testnet)
	id, err := s.ParseGroup("0group")
	if err != nil {
		t.Fatalf("ParseGroup(0group): %v", err)
	}
	if !id.IsIdentity() {
		t.Fatalf("expected identity")
	}
	g := Generator().Mul(NewScalar(big.NewInt(12345)))
	back, err := s.ParseGroup(g.String())
	if err != nil {
		t.Fatalf("ParseGroup(%s): %v", g, err)
	}
	if !back.Equal(g) {
		t.Fatalf("group round trip mismatch")
	}
	if _, err := s.ParseGroup("12group12"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestScalar_Parse(t *testing.T) {
	s := mustSuite(t, Testnet)
	sc, err := s.ParseScalar("20000101scalar")
	if err != nil {
		t.Fatalf("ParseScalar: %v", err)
	}
	if sc.String() != "20000101scalar" {
		t.Fatalf("got %s", sc)
	}
	if len(sc.BitsLE()) != ScalarSizeBits {
		t.Fatalf("unexpected scalar width %d", len(sc.BitsLE()))
	}
	if ScalarOrder().BitLen() != ScalarSizeBits {
		t.Fatalf("subgroup order has %d bits", ScalarOrder().BitLen())
	}
	if _, err := s.ParseScalar(ScalarOrder().Text(10) + "scalar"); !zerr.IsKind(err, zerr.KindTypeParse) {
		t.Fatalf("expected out-of-range scalar to fail, got %v", err)
	}
}

func TestPrivateKey_ParseAndDerive(t *testing.T) {
	s := mustSuite(t, Testnet)
	key, err := s.ParsePrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	if key.String() != testPrivateKey {
		t.Fatalf("round trip: got %s", key.String())
	}
	addr, err := s.DeriveAddress(key)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if !strings.HasPrefix(addr.String(), AddressPrefix) {
		t.Fatalf("unexpected address %s", addr)
	}
	again, err := s.ParseAddress(addr.String())
	if err != nil || !again.Equal(addr) {
		t.Fatalf("derived address does not re-parse: %v", err)
	}

	main := mustSuite(t, Mainnet)
	mainKey, err := main.ParsePrivateKey(testPrivateKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey mainnet: %v", err)
	}
	mainAddr, _ := main.DeriveAddress(mainKey)
	if mainAddr.Equal(addr) {
		t.Fatalf("expected network-specific addresses")
	}
}

func TestPrivateKey_Rejects(t *testing.T) {
	s := mustSuite(t, Testnet)
	for _, bad := range []string{"", "BPrivateKey1zkp8CZNn3yeCseEtxuVPbDCwSyhGW6yZKUYKfgXmcpoGPWH", "APrivateKey1zkp8CZNn3yeC", "APrivateKey10OIl"} {
		if _, err := s.ParsePrivateKey(bad); !zerr.IsKind(err, zerr.KindCrypto) {
			t.Fatalf("ParsePrivateKey(%q): expected KindCrypto, got %v", bad, err)
		}
	}
}

func TestNewPrivateKey_Deterministic(t *testing.T) {
	s := mustSuite(t, Testnet)
	seed := bytes.Repeat([]byte{7}, SeedSize)
	a, err := s.NewPrivateKey(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	if !strings.HasPrefix(a.String(), PrivateKeyPrefix) {
		t.Fatalf("unexpected key string %s", a)
	}
	b, err := s.ParsePrivateKey(a.String())
	if err != nil || b.Seed() != a.Seed() {
		t.Fatalf("key does not round trip: %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	s := mustSuite(t, Testnet)
	key, _ := s.ParsePrivateKey(testPrivateKey)
	addr, _ := s.DeriveAddress(key)
	msg := []Field{FieldFromUint64(1), FieldFromUint64(2), FieldFromUint64(3)}

	sig, err := s.Sign(key, msg, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !s.Verify(sig, addr, msg) {
		t.Fatalf("expected signature to verify")
	}

	parsed, err := s.ParseSignature(sig.String())
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if parsed.String() != sig.String() || !s.Verify(parsed, addr, msg) {
		t.Fatalf("parsed signature does not verify")
	}

	tampered := []Field{FieldFromUint64(1), FieldFromUint64(2), FieldFromUint64(4)}
	if s.Verify(sig, addr, tampered) {
		t.Fatalf("expected tampered message to fail")
	}
	if s.Verify(sig, addr, msg[:2]) {
		t.Fatalf("expected truncated message to fail")
	}
	other, _ := s.ParseAddress(testIssuer)
	if s.Verify(sig, other, msg) {
		t.Fatalf("expected wrong address to fail")
	}
	main := mustSuite(t, Mainnet)
	if main.Verify(sig, addr, msg) {
		t.Fatalf("expected cross-network verification to fail")
	}
}

func TestParseSignature_Rejects(t *testing.T) {
	s := mustSuite(t, Testnet)
	short, _ := encodeBech32m(SignatureHRP, make([]byte, 64))
	for _, bad := range []string{"", "sign1qqqq", testIssuer, short} {
		if _, err := s.ParseSignature(bad); !zerr.IsKind(err, zerr.KindCrypto) {
			t.Fatalf("ParseSignature(%q): expected KindCrypto, got %v", bad, err)
		}
	}
}

func TestHashPSD2_DeterministicAndDomainSeparated(t *testing.T) {
	test := mustSuite(t, Testnet)
	main := mustSuite(t, Mainnet)
	in := []Field{FieldFromUint64(1), FieldFromUint64(2)}

	a, err := test.HashPSD2(in)
	if err != nil {
		t.Fatalf("HashPSD2: %v", err)
	}
	b, _ := test.HashPSD2(in)
	if !a.Equal(b) {
		t.Fatalf("expected deterministic output")
	}
	c, _ := main.HashPSD2(in)
	if a.Equal(c) {
		t.Fatalf("expected network separation")
	}
	d, _ := test.HashPSD2(append(in, Field{}))
	if a.Equal(d) {
		t.Fatalf("expected length framing to separate trailing zeros")
	}
}

func TestHashBHP_CapacityAndDeterminism(t *testing.T) {
	s := mustSuite(t, Testnet)
	bits := BitsLE(big.NewInt(0xdeadbeef), 600)
	a, err := s.HashBHP1024(bits)
	if err != nil {
		t.Fatalf("HashBHP1024: %v", err)
	}
	b, _ := s.HashBHP1024(bits)
	if !a.Equal(b) {
		t.Fatalf("expected deterministic output")
	}
	c, _ := s.HashBHP1024(append(bits, false))
	if a.Equal(c) {
		t.Fatalf("expected length to be committed")
	}
	if _, err := s.HashToGroupBHP256(make([]bool, bhp256Chunks*bhpChunkBits+1)); !zerr.IsKind(err, zerr.KindCrypto) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	g, err := s.HashToGroupBHP256(make([]bool, 256))
	if err != nil {
		t.Fatalf("HashToGroupBHP256: %v", err)
	}
	if !inSubgroup(&g.p) {
		t.Fatalf("expected a subgroup point")
	}
}

func TestHashSHA3_256_KnownDigest(t *testing.T) {
	s := mustSuite(t, Testnet)
	// SHA3-256("") = a7ffc6f8...
	out, err := s.HashSHA3_256(nil)
	if err != nil {
		t.Fatalf("HashSHA3_256: %v", err)
	}
	if got := packBitsLE(out); got[0] != 0xa7 || got[1] != 0xff || len(got) != 32 {
		t.Fatalf("unexpected digest prefix %x", got[:2])
	}
	// Keccak-256("") = c5d24601...
	out, _ = s.HashKeccak256(nil)
	if got := packBitsLE(out); got[0] != 0xc5 || got[1] != 0xd2 {
		t.Fatalf("unexpected keccak prefix %x", got[:2])
	}
}
