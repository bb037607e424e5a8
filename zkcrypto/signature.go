package zkcrypto

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"xdao.co/zpass/zerr"
)

const signatureSize = 3 * fr.Bytes

// Signature is a Schnorr signature over the subgroup. It carries the
// signer's public point so it can be checked against an address alone.
type Signature struct {
	challenge Scalar
	response  Scalar
	pk        Group
}

// PublicKey returns the signer's public point.
func (sig Signature) PublicKey() Group { return sig.pk }

// String renders sig as "sign1...".
func (sig Signature) String() string {
	buf := make([]byte, 0, signatureSize)
	buf = append(buf, leBytes(sig.challenge.BigInt(), fr.Bytes)...)
	buf = append(buf, leBytes(sig.response.BigInt(), fr.Bytes)...)
	pk := sig.pk.p.Bytes()
	buf = append(buf, pk[:]...)
	s, err := encodeBech32m(SignatureHRP, buf)
	if err != nil {
		// unreachable: fixed-size payload
		panic(err)
	}
	return s
}

func parseSignature(s string) (Signature, error) {
	raw, err := decodeBech32m(s, SignatureHRP)
	if err != nil {
		return Signature{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoSignature, "malformed signature", err)
	}
	if len(raw) != signatureSize {
		return Signature{}, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoSignature, "signature must be %d bytes, got %d", signatureSize, len(raw))
	}
	order := &edwards().Order
	e := fromLEBytes(raw[:fr.Bytes])
	z := fromLEBytes(raw[fr.Bytes : 2*fr.Bytes])
	if e.Cmp(order) >= 0 || z.Cmp(order) >= 0 {
		return Signature{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoSignature, "signature scalar out of range")
	}
	var pk twistededwards.PointAffine
	if _, err := pk.SetBytes(raw[2*fr.Bytes:]); err != nil {
		return Signature{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoSignature, "malformed public key", err)
	}
	if !pk.IsOnCurve() || pk.IsZero() || !inSubgroup(&pk) {
		return Signature{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoSignature, "public key is not a subgroup point")
	}
	return Signature{challenge: Scalar{v: e}, response: Scalar{v: z}, pk: Group{p: pk}}, nil
}

// Sign signs message with key. rng supplies the nonce; nil means crypto/rand.
func (s *Suite) Sign(key PrivateKey, message []Field, rng io.Reader) (Signature, error) {
	if key.sk.IsZero() {
		return Signature{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoKey, "private key is not initialized")
	}
	if rng == nil {
		rng = rand.Reader
	}
	var buf [64]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return Signature{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoRandomness, "read nonce", err)
	}
	k := NewScalar(new(big.Int).SetBytes(buf[:]))
	if k.IsZero() {
		return Signature{}, zerr.New(zerr.KindCrypto, zerr.RuleCryptoRandomness, "degenerate nonce")
	}

	pk := Generator().Mul(key.sk)
	r := Generator().Mul(k)
	e, err := s.challenge(r, pk, message)
	if err != nil {
		return Signature{}, err
	}
	// z = k - e*sk
	z := new(big.Int).Mul(e.BigInt(), key.sk.BigInt())
	z.Sub(k.BigInt(), z)
	return Signature{challenge: e, response: NewScalar(z), pk: pk}, nil
}

// Verify reports whether sig is a signature on message by the key behind addr.
func (s *Suite) Verify(sig Signature, addr Address, message []Field) bool {
	if sig.pk.IsIdentity() || !sig.pk.p.IsOnCurve() || !inSubgroup(&sig.pk.p) {
		return false
	}
	if !sig.pk.X().Equal(addr.Field()) {
		return false
	}
	r := Generator().Mul(sig.response).Add(sig.pk.Mul(sig.challenge))
	e, err := s.challenge(r, sig.pk, message)
	if err != nil {
		return false
	}
	return e.Equal(sig.challenge)
}

func (s *Suite) challenge(r, pk Group, message []Field) (Scalar, error) {
	elems := make([]fr.Element, 0, 6+len(message))
	elems = append(elems, s.challengeDomain, r.p.X, r.p.Y, pk.p.X, pk.p.Y, fr.NewElement(uint64(len(message))))
	for i := range message {
		elems = append(elems, message[i].element())
	}
	h := mimc.NewMiMC()
	for i := range elems {
		b := elems[i].Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return Scalar{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "challenge", err)
		}
	}
	return NewScalar(new(big.Int).SetBytes(h.Sum(nil))), nil
}
