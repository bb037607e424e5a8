// Package hashing dispatches structured values to one of the supported hash
// pipelines and returns the digest in field string form.
package hashing

import (
	"fmt"
	"strings"

	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

// Algorithm selects a hash pipeline. Numeric values are stable.
type Algorithm uint8

const (
	Poseidon2 Algorithm = 0
	BHP1024   Algorithm = 1
	SHA3_256  Algorithm = 2
	Keccak256 Algorithm = 3
)

// Algorithms lists every supported algorithm in numeric order.
var Algorithms = []Algorithm{Poseidon2, BHP1024, SHA3_256, Keccak256}

func (a Algorithm) String() string {
	switch a {
	case Poseidon2:
		return "poseidon2"
	case BHP1024:
		return "bhp1024"
	case SHA3_256:
		return "sha3_256"
	case Keccak256:
		return "keccak256"
	}
	return fmt.Sprintf("algorithm(%d)", uint8(a))
}

// ParseAlgorithm accepts algorithm names case-insensitively, with '-' or '_'
// separators, or their numeric values.
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "poseidon2", "psd2", "0":
		return Poseidon2, nil
	case "bhp1024", "1":
		return BHP1024, nil
	case "sha3_256", "sha3", "2":
		return SHA3_256, nil
	case "keccak256", "keccak", "3":
		return Keccak256, nil
	}
	return 0, zerr.Newf(zerr.KindInput, zerr.RuleInputAlgorithm, "unknown hash algorithm %q", s)
}

// Hash digests v with alg and returns the result as a "<decimal>field" string.
func Hash(p zkcrypto.Provider, v plaintext.Plaintext, alg Algorithm) (string, error) {
	f, err := HashField(p, v, alg)
	if err != nil {
		return "", err
	}
	return f.String(), nil
}

// HashField is Hash without the final stringification.
func HashField(p zkcrypto.Provider, v plaintext.Plaintext, alg Algorithm) (zkcrypto.Field, error) {
	switch alg {
	case Poseidon2:
		fields, err := v.ToFields()
		if err != nil {
			return zkcrypto.Field{}, err
		}
		return p.HashPSD2(fields)
	case BHP1024:
		bits, err := v.BitsLE()
		if err != nil {
			return zkcrypto.Field{}, err
		}
		return p.HashBHP1024(bits)
	case SHA3_256:
		return digestThenGroup(p, v, p.HashSHA3_256)
	case Keccak256:
		return digestThenGroup(p, v, p.HashKeccak256)
	}
	return zkcrypto.Field{}, zerr.Newf(zerr.KindInput, zerr.RuleInputAlgorithm, "unsupported hash algorithm %d", uint8(alg))
}

func digestThenGroup(p zkcrypto.Provider, v plaintext.Plaintext, digest func([]bool) ([]bool, error)) (zkcrypto.Field, error) {
	bits, err := v.BitsLE()
	if err != nil {
		return zkcrypto.Field{}, err
	}
	d, err := digest(bits)
	if err != nil {
		return zkcrypto.Field{}, err
	}
	g, err := p.HashToGroupBHP256(d)
	if err != nil {
		return zkcrypto.Field{}, err
	}
	return p.CastGroupToField(g), nil
}
