package zkcrypto

import (
	"bytes"
	"io"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/mr-tron/base58"

	"xdao.co/zpass/zerr"
)

const (
	// PrivateKeyPrefix starts every private key string.
	PrivateKeyPrefix = "APrivateKey1"
	// AddressPrefix starts every address string.
	AddressPrefix = AddressHRP + "1"

	AddressHRP   = "aleo"
	SignatureHRP = "sign"

	SeedSize = 32
)

// privateKeyPrefixBytes base58-encodes to PrivateKeyPrefix for any 32-byte seed.
var privateKeyPrefixBytes = []byte{127, 134, 189, 116, 210, 221, 210, 137, 145, 18, 253}

// PrivateKey is a signing seed together with the secret scalar derived from
// it under one parameter set.
type PrivateKey struct {
	seed [SeedSize]byte
	sk   Scalar
}

// String renders k as "APrivateKey1...".
func (k PrivateKey) String() string {
	buf := make([]byte, 0, len(privateKeyPrefixBytes)+SeedSize)
	buf = append(buf, privateKeyPrefixBytes...)
	buf = append(buf, k.seed[:]...)
	return base58.Encode(buf)
}

// Seed returns the raw seed.
func (k PrivateKey) Seed() [SeedSize]byte { return k.seed }

func decodePrivateKey(s string) ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	if !strings.HasPrefix(s, PrivateKeyPrefix) {
		return seed, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoKey, "private key must start with %s", PrivateKeyPrefix)
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return seed, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoKey, "private key is not base58", err)
	}
	if len(raw) != len(privateKeyPrefixBytes)+SeedSize || !bytes.Equal(raw[:len(privateKeyPrefixBytes)], privateKeyPrefixBytes) {
		return seed, zerr.New(zerr.KindCrypto, zerr.RuleCryptoKey, "private key has an invalid length or prefix")
	}
	copy(seed[:], raw[len(privateKeyPrefixBytes):])
	return seed, nil
}

func readSeed(rng io.Reader) ([SeedSize]byte, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rng, seed[:]); err != nil {
		return seed, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoRandomness, "read seed", err)
	}
	return seed, nil
}

// Address is the public identity of a key: the x-coordinate of its public
// point, bech32m-encoded under the "aleo" prefix.
type Address struct {
	x fr.Element
}

// AddressFromField wraps an x-coordinate as an address.
func AddressFromField(f Field) Address { return Address{x: f.element()} }

// Field returns the address as a field element.
func (a Address) Field() Field { return fieldFromElement(a.x) }

// BitsLE returns the little-endian bits of the address field.
func (a Address) BitsLE() []bool { return a.Field().BitsLE() }

func (a Address) Equal(b Address) bool { return a.x.Equal(&b.x) }

// String renders a as "aleo1...".
func (a Address) String() string {
	s, err := encodeBech32m(AddressHRP, leBytes(a.Field().BigInt(), fr.Bytes))
	if err != nil {
		// unreachable: 32 bytes always convert to 5-bit groups
		panic(err)
	}
	return s
}

func parseAddress(s string) (Address, error) {
	raw, err := decodeBech32m(s, AddressHRP)
	if err != nil {
		return Address{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "address", err)
	}
	if len(raw) != fr.Bytes {
		return Address{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "address", nil)
	}
	f, err := NewField(fromLEBytes(raw))
	if err != nil {
		return Address{}, zerr.TypeParse(zerr.RuleTypeRange, s, "address", err)
	}
	return AddressFromField(f), nil
}

func encodeBech32m(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(hrp, conv)
}

func decodeBech32m(s, wantHRP string) ([]byte, error) {
	hrp, data, version, err := bech32.DecodeNoLimitWithVersion(s)
	if err != nil {
		return nil, err
	}
	if hrp != wantHRP {
		return nil, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoAddress, "expected prefix %q, got %q", wantHRP, hrp)
	}
	if version != bech32.VersionM {
		return nil, zerr.New(zerr.KindCrypto, zerr.RuleCryptoAddress, "expected a bech32m checksum")
	}
	return bech32.ConvertBits(data, 5, 8, false)
}

func leBytes(v *big.Int, n int) []byte {
	be := v.FillBytes(make([]byte, n))
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		be[i], be[j] = be[j], be[i]
	}
	return be
}

func fromLEBytes(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}
