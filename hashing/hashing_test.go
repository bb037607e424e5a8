package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zpass/credential"
	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

func value(t *testing.T, p zkcrypto.Provider, pairs ...credential.Pair) plaintext.Plaintext {
	t.Helper()
	c, err := credential.FromPairs(p, pairs)
	require.NoError(t, err)
	v, err := c.Value()
	require.NoError(t, err)
	return v
}

func TestHash_DeterministicAndDistinct(t *testing.T) {
	p, err := zkcrypto.Get(zkcrypto.Testnet)
	require.NoError(t, err)
	v1 := value(t, p, credential.Pair{Name: "dob", Token: "20000101scalar"}, credential.Pair{Name: "age", Token: "30u8"})
	v2 := value(t, p, credential.Pair{Name: "dob", Token: "20000102scalar"}, credential.Pair{Name: "age", Token: "30u8"})

	seen := map[string]Algorithm{}
	for _, alg := range Algorithms {
		t.Run(alg.String(), func(t *testing.T) {
			a, err := Hash(p, v1, alg)
			require.NoError(t, err)
			b, err := Hash(p, v1, alg)
			require.NoError(t, err)
			assert.Equal(t, a, b)
			assert.True(t, strings.HasSuffix(a, "field"))

			c, err := Hash(p, v2, alg)
			require.NoError(t, err)
			assert.NotEqual(t, a, c)

			prev, dup := seen[a]
			assert.False(t, dup, "%s collides with %s", alg, prev)
			seen[a] = alg

			back, err := p.ParseField(a)
			require.NoError(t, err)
			assert.Equal(t, a, back.String())
		})
	}
}

func TestHash_NetworkSeparation(t *testing.T) {
	test, _ := zkcrypto.Get(zkcrypto.Testnet)
	main, _ := zkcrypto.Get(zkcrypto.Mainnet)
	v := value(t, test, credential.Pair{Name: "a", Token: "1u8"})
	for _, alg := range Algorithms {
		a, err := Hash(test, v, alg)
		require.NoError(t, err)
		b, err := Hash(main, v, alg)
		require.NoError(t, err)
		assert.NotEqual(t, a, b, alg.String())
	}
}

func TestHash_UnknownAlgorithm(t *testing.T) {
	p, _ := zkcrypto.Get(zkcrypto.Testnet)
	v := value(t, p, credential.Pair{Name: "a", Token: "1u8"})
	_, err := Hash(p, v, Algorithm(9))
	assert.True(t, zerr.IsKind(err, zerr.KindInput))
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"poseidon2": Poseidon2,
		"POSEIDON2": Poseidon2,
		"bhp1024":   BHP1024,
		"sha3-256":  SHA3_256,
		"SHA3_256":  SHA3_256,
		"keccak256": Keccak256,
		"3":         Keccak256,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAlgorithm("md5")
	assert.Equal(t, zerr.RuleInputAlgorithm, zerr.RuleID(err))
}
