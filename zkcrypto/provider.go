// Package zkcrypto provides the algebraic and cryptographic primitives the
// credential pipeline is built on: field, group and scalar values, Poseidon2
// and Pedersen-style hashing, addresses and Schnorr signatures.
//
// The pipeline consumes these through the Provider interface. Suite is the
// implementation over the BN254 scalar field and its embedded twisted
// Edwards curve, one immutable instance per Network.
package zkcrypto

import (
	"crypto/rand"
	"io"
	"math/big"
	"sync"

	"github.com/cloudflare/circl/expander"
	"github.com/cloudflare/circl/xof"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"xdao.co/zpass/zerr"
)

// Provider is the capability set consumed by the parser, hashing, Merkle and
// signing packages.
type Provider interface {
	Network() Network

	Zero() Field
	FieldFromUint128(v *big.Int) (Field, error)

	ParseField(s string) (Field, error)
	ParseAddress(s string) (Address, error)
	ParseGroup(s string) (Group, error)
	ParseScalar(s string) (Scalar, error)
	ParsePrivateKey(s string) (PrivateKey, error)
	NewPrivateKey(rng io.Reader) (PrivateKey, error)
	ParseSignature(s string) (Signature, error)
	DeriveAddress(key PrivateKey) (Address, error)

	HashPSD2(input []Field) (Field, error)
	HashBHP1024(bits []bool) (Field, error)
	HashSHA3_256(bits []bool) ([]bool, error)
	HashKeccak256(bits []bool) ([]bool, error)
	HashToGroupBHP256(bits []bool) (Group, error)
	CastGroupToField(g Group) Field

	Sign(key PrivateKey, message []Field, rng io.Reader) (Signature, error)
	Verify(sig Signature, addr Address, message []Field) bool
}

// Suite is the concrete Provider for one Network. It is safe for concurrent use.
type Suite struct {
	network         Network
	psd2Domain      fr.Element
	challengeDomain fr.Element
	keyExpander     expander.Expander
	bhp1024         *pedersen
	bhp256          *pedersen
}

var _ Provider = (*Suite)(nil)

type suiteSlot struct {
	once  sync.Once
	suite *Suite
	err   error
}

var suites [2]suiteSlot

// Get returns the shared Suite for network, building it on first use.
func Get(network Network) (*Suite, error) {
	if !network.Valid() {
		return nil, zerr.Newf(zerr.KindInput, zerr.RuleInputNetwork, "unknown network %d", uint8(network))
	}
	slot := &suites[network]
	slot.once.Do(func() {
		slot.suite, slot.err = newSuite(network)
	})
	return slot.suite, slot.err
}

func newSuite(n Network) (*Suite, error) {
	domains, err := fr.Hash([]byte("zpass"), n.dst("DOMAINS"), 2)
	if err != nil {
		return nil, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "derive domain elements", err)
	}
	return &Suite{
		network:         n,
		psd2Domain:      domains[0],
		challengeDomain: domains[1],
		keyExpander:     expander.NewExpanderXOF(xof.SHAKE256, 128, n.dst("KEY")),
		bhp1024:         newPedersen(n, "BHP1024", bhp1024Chunks),
		bhp256:          newPedersen(n, "BHP256", bhp256Chunks),
	}, nil
}

func (s *Suite) Network() Network { return s.network }

func (s *Suite) Zero() Field { return Field{} }

// FieldFromUint128 maps an unsigned 128-bit integer into the field.
func (s *Suite) FieldFromUint128(v *big.Int) (Field, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxUint128) > 0 {
		return Field{}, zerr.New(zerr.KindTypeParse, zerr.RuleTypeRange, "value does not fit in 128 bits")
	}
	return NewField(v)
}

// ParseField parses "<decimal>field" or a bare decimal below the modulus.
func (s *Suite) ParseField(str string) (Field, error) { return parseField(str) }

func (s *Suite) ParseAddress(str string) (Address, error) { return parseAddress(str) }

func (s *Suite) ParseGroup(str string) (Group, error) { return parseGroup(str) }

func (s *Suite) ParseScalar(str string) (Scalar, error) { return parseScalar(str) }

func (s *Suite) ParseSignature(str string) (Signature, error) { return parseSignature(str) }

// ParsePrivateKey decodes an "APrivateKey1..." string and derives its secret
// scalar under this suite's network.
func (s *Suite) ParsePrivateKey(str string) (PrivateKey, error) {
	seed, err := decodePrivateKey(str)
	if err != nil {
		return PrivateKey{}, err
	}
	return s.keyFromSeed(seed)
}

// NewPrivateKey draws a fresh seed from rng; nil means crypto/rand.
func (s *Suite) NewPrivateKey(rng io.Reader) (PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	for attempt := 0; attempt < 8; attempt++ {
		seed, err := readSeed(rng)
		if err != nil {
			return PrivateKey{}, err
		}
		key, err := s.keyFromSeed(seed)
		if err == nil {
			return key, nil
		}
	}
	return PrivateKey{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoRandomness, "could not draw a usable seed")
}

func (s *Suite) keyFromSeed(seed [SeedSize]byte) (PrivateKey, error) {
	sk := NewScalar(new(big.Int).SetBytes(s.keyExpander.Expand(seed[:], 64)))
	if sk.IsZero() {
		return PrivateKey{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoKey, "seed derives a zero secret")
	}
	return PrivateKey{seed: seed, sk: sk}, nil
}

// DeriveAddress returns the address of key's public point.
func (s *Suite) DeriveAddress(key PrivateKey) (Address, error) {
	if key.sk.IsZero() {
		return Address{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoKey, "private key is not initialized")
	}
	return AddressFromField(Generator().Mul(key.sk).X()), nil
}
