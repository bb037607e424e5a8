package merkle

import (
	"xdao.co/zpass/literal"
	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zkcrypto"
)

// HashLeaf parses token and hashes the field encoding of the resulting literal.
func HashLeaf(p zkcrypto.Provider, token string) (zkcrypto.Field, error) {
	l, err := literal.Parse(p, token)
	if err != nil {
		return zkcrypto.Field{}, err
	}
	fields, err := plaintext.FromLiteral(l).ToFields()
	if err != nil {
		return zkcrypto.Field{}, err
	}
	return p.HashPSD2(fields)
}

// HashInputsToFixedSize8 hashes each token into a leaf and pads with zero
// fields up to LeafCount. More than LeafCount tokens are all hashed; nothing
// is truncated.
func HashInputsToFixedSize8(p zkcrypto.Provider, tokens []string) ([]zkcrypto.Field, error) {
	out := make([]zkcrypto.Field, 0, max(len(tokens), LeafCount))
	for _, tok := range tokens {
		h, err := HashLeaf(p, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	for len(out) < LeafCount {
		out = append(out, p.Zero())
	}
	return out, nil
}

// FromTokens hashes tokens into leaves and builds the tree.
func FromTokens(p zkcrypto.Provider, tokens []string) (*Tree, error) {
	leaves, err := HashInputsToFixedSize8(p, tokens)
	if err != nil {
		return nil, err
	}
	return New(p, leaves)
}
