package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/hashing"
	"xdao.co/zpass/merkle"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

const (
	privateKey = "APrivateKey1zkp8CZNn3yeCseEtxuVPbDCwSyhGW6yZKUYKfgXmcpoGPWH"
	otherKey   = "APrivateKey1zkp5LqRmm7535XfiX77VPQEgsS2Dj1B2DvH4QNP1UYrHEoR"
	issuer     = "aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy"
	subject    = "aleo14w44zfrehup9g894j7tgeyz5gsjuxn0nfn09vd2fvpznrg85rs8skywkte"
)

func testCredential(t *testing.T, p zkcrypto.Provider) *credential.Credential {
	t.Helper()
	c, err := credential.FromPairs(p, []credential.Pair{
		{Name: "issuer", Token: issuer},
		{Name: "subject", Token: subject},
		{Name: "dob", Token: "20000101scalar"},
	})
	require.NoError(t, err)
	return c
}

func TestSignCredential_AllAlgorithmsSelfVerify(t *testing.T) {
	p, err := zkcrypto.Get(zkcrypto.Testnet)
	require.NoError(t, err)
	s := New(p)
	cred := testCredential(t, p)

	for _, alg := range hashing.Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			res, err := s.SignCredential(privateKey, cred, alg)
			require.NoError(t, err)
			assert.Contains(t, res.Signature, "sign1")
			assert.Contains(t, res.Address, "aleo1")

			ok, err := s.Verify(res.Signature, res.Address, res.Hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.Verify(res.Signature, issuer, res.Hash)
			require.NoError(t, err)
			assert.False(t, ok, "wrong address")

			ok, err = s.Verify(res.Signature, res.Address, "1field")
			require.NoError(t, err)
			assert.False(t, ok, "wrong message")
		})
	}
}

func TestSignCredential_DistinctKeys(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Mainnet)
	s := New(p)
	cred := testCredential(t, p)
	a, err := s.SignCredential(privateKey, cred, hashing.Poseidon2)
	require.NoError(t, err)
	b, err := s.SignCredential(otherKey, cred, hashing.Poseidon2)
	require.NoError(t, err)
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Address, b.Address)

	ok, err := s.Verify(a.Signature, b.Address, a.Hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignCredential_BadIdentifier(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	c, err := credential.FromPairs(p, []credential.Pair{{Name: "1bad", Token: "1u8"}})
	require.NoError(t, err)
	_, err = New(p).SignCredential(privateKey, c, hashing.Poseidon2)
	assert.True(t, zerr.IsKind(err, zerr.KindIdentifier))
}

func TestSignCredential_BadKey(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	_, err := New(p).SignCredential("APrivateKey1nope", testCredential(t, p), hashing.Poseidon2)
	assert.True(t, zerr.IsKind(err, zerr.KindCrypto))
}

func TestSignRoot(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	s := New(p)
	tree, err := merkle.FromTokens(p, []string{"1u8", "2u8"})
	require.NoError(t, err)
	root := tree.Root().String()

	res, err := s.SignRoot(privateKey, root)
	require.NoError(t, err)
	assert.Equal(t, root, res.Hash)
	ok, err := s.Verify(res.Signature, res.Address, root)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.SignRoot("notakey", root)
	assert.Equal(t, zerr.RuleInputKeyPrefix, zerr.RuleID(err))
	_, err = s.SignRoot(privateKey, "12345")
	assert.Equal(t, zerr.RuleInputRootSuffix, zerr.RuleID(err))
}

func TestVerify_MalformedInputs(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	s := New(p)
	res, err := s.SignRoot(privateKey, "5field")
	require.NoError(t, err)

	_, err = s.Verify("sign1garbage", res.Address, "5field")
	assert.True(t, zerr.IsKind(err, zerr.KindCrypto))
	_, err = s.Verify(res.Signature, "aleo1garbage", "5field")
	assert.True(t, zerr.IsKind(err, zerr.KindTypeParse))
	_, err = s.Verify(res.Signature, res.Address, "300u8")
	assert.Error(t, err)
}

// brokenProvider signs normally but never accepts a signature.
type brokenProvider struct {
	zkcrypto.Provider
}

func (brokenProvider) Verify(zkcrypto.Signature, zkcrypto.Address, []zkcrypto.Field) bool {
	return false
}

func TestSignCredential_SelfVerificationIsFatal(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(brokenProvider{p}, WithLogger(zap.New(core)))

	_, err := s.SignCredential(privateKey, testCredential(t, p), hashing.Poseidon2)
	require.Error(t, err)
	assert.True(t, zerr.IsFatal(err))
	assert.Equal(t, zerr.RuleSelfVerify, zerr.RuleID(err))
	assert.Equal(t, 1, logs.FilterMessage("signature failed self-verification").Len())

	_, err = s.SignRoot(privateKey, "5field")
	assert.True(t, zerr.IsFatal(err))
}
