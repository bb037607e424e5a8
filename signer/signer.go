// Package signer hashes credentials and Merkle roots, signs the digest and
// re-verifies every signature before returning it.
//
// A signature that fails its own verification is reported as a
// zerr.KindSelfVerification error. zerr.IsFatal is true for it: the signing
// backend is broken and callers must stop rather than retry.
package signer

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/literal"
	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

// Result is a signed digest.
type Result struct {
	Signature string
	Hash      string
	Address   string
}

// Signer runs signing flows against one provider.
type Signer struct {
	p   zkcrypto.Provider
	rng io.Reader
	log *zap.Logger
}

// Option configures a Signer.
type Option func(*Signer)

// WithRand sets the nonce source. The default is crypto/rand.
func WithRand(r io.Reader) Option { return func(s *Signer) { s.rng = r } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Signer) {
		if l != nil {
			s.log = l
		}
	}
}

func New(p zkcrypto.Provider, opts ...Option) *Signer {
	s := &Signer{p: p, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SignCredential hashes cred with alg and signs the digest with privateKey.
func (s *Signer) SignCredential(privateKey string, cred *credential.Credential, alg hashing.Algorithm) (*Result, error) {
	key, addr, err := s.account(privateKey)
	if err != nil {
		return nil, err
	}
	value, err := cred.Value()
	if err != nil {
		return nil, err
	}
	hash, err := hashing.Hash(s.p, value, alg)
	if err != nil {
		return nil, err
	}
	s.log.Debug("credential hashed",
		zap.String("algorithm", alg.String()),
		zap.Int("entries", cred.Len()),
		zap.String("hash", hash))
	return s.signDigest(key, addr, hash)
}

// SignRoot signs a Merkle root given in "<decimal>field" form.
func (s *Signer) SignRoot(privateKey, root string) (*Result, error) {
	if !strings.HasPrefix(privateKey, zkcrypto.PrivateKeyPrefix) {
		return nil, zerr.Newf(zerr.KindInput, zerr.RuleInputKeyPrefix, "private key must start with %s", zkcrypto.PrivateKeyPrefix)
	}
	if !strings.HasSuffix(root, "field") {
		return nil, zerr.New(zerr.KindInput, zerr.RuleInputRootSuffix, "merkle root must end with \"field\"")
	}
	key, addr, err := s.account(privateKey)
	if err != nil {
		return nil, err
	}
	return s.signDigest(key, addr, root)
}

// Verify reports whether signature is valid for message under address.
// message is a digest in "<decimal>field" form.
func (s *Signer) Verify(signature, address, message string) (bool, error) {
	sig, err := s.p.ParseSignature(signature)
	if err != nil {
		return false, err
	}
	addr, err := s.p.ParseAddress(address)
	if err != nil {
		return false, err
	}
	msg, err := MessageFields(s.p, message)
	if err != nil {
		return false, err
	}
	return s.p.Verify(sig, addr, msg), nil
}

// MessageFields converts a digest string into the field elements that get
// signed.
func MessageFields(p zkcrypto.Provider, digest string) ([]zkcrypto.Field, error) {
	l, err := literal.Parse(p, digest)
	if err != nil {
		return nil, err
	}
	return plaintext.FromLiteral(l).ToFields()
}

func (s *Signer) account(privateKey string) (zkcrypto.PrivateKey, zkcrypto.Address, error) {
	key, err := s.p.ParsePrivateKey(privateKey)
	if err != nil {
		return zkcrypto.PrivateKey{}, zkcrypto.Address{}, err
	}
	addr, err := s.p.DeriveAddress(key)
	if err != nil {
		return zkcrypto.PrivateKey{}, zkcrypto.Address{}, err
	}
	return key, addr, nil
}

func (s *Signer) signDigest(key zkcrypto.PrivateKey, addr zkcrypto.Address, digest string) (*Result, error) {
	msg, err := MessageFields(s.p, digest)
	if err != nil {
		return nil, err
	}
	sig, err := s.p.Sign(key, msg, s.rng)
	if err != nil {
		return nil, err
	}
	if !s.p.Verify(sig, addr, msg) {
		s.log.Error("signature failed self-verification",
			zap.String("address", addr.String()),
			zap.String("network", s.p.Network().String()),
			zap.String("rule", zerr.RuleSelfVerify))
		return nil, zerr.New(zerr.KindSelfVerification, zerr.RuleSelfVerify, "signature failed self-verification")
	}
	return &Result{Signature: sig.String(), Hash: digest, Address: addr.String()}, nil
}
