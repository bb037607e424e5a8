// Package merkle builds binary Merkle trees over field elements and produces
// and checks inclusion proofs.
//
// Parents are computed as Poseidon2 over the field encoding of the sum of
// the two children. The combiner is additive, so a proof fixes a+b for each
// sibling pair rather than the ordered pair itself.
package merkle

import (
	"xdao.co/zpass/literal"
	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

// LeafCount is the width of trees built from token batches.
const LeafCount = 8

// Tree holds every level, leaves first. The last level has one element, the root.
type Tree struct {
	levels [][]zkcrypto.Field
}

// New builds a tree over leaves. Every level must have an even number of
// elements until the root.
func New(p zkcrypto.Provider, leaves []zkcrypto.Field) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, zerr.New(zerr.KindMerkle, zerr.RuleMerkleEmpty, "tree needs at least one leaf")
	}
	level := make([]zkcrypto.Field, len(leaves))
	copy(level, leaves)
	levels := [][]zkcrypto.Field{level}
	for len(level) > 1 {
		if len(level)%2 != 0 {
			return nil, zerr.Newf(zerr.KindMerkle, zerr.RuleMerkleOddLevel, "level %d has odd length %d", len(levels)-1, len(level))
		}
		next := make([]zkcrypto.Field, len(level)/2)
		for i := range next {
			parent, err := Combine(p, level[2*i], level[2*i+1])
			if err != nil {
				return nil, err
			}
			next[i] = parent
		}
		levels = append(levels, next)
		level = next
	}
	return &Tree{levels: levels}, nil
}

// Combine returns the parent of a and b.
func Combine(p zkcrypto.Provider, a, b zkcrypto.Field) (zkcrypto.Field, error) {
	fields, err := plaintext.FromLiteral(literal.NewField(a.Add(b))).ToFields()
	if err != nil {
		return zkcrypto.Field{}, err
	}
	return p.HashPSD2(fields)
}

func (t *Tree) Root() zkcrypto.Field {
	return t.levels[len(t.levels)-1][0]
}

// Levels returns a copy of every level, leaves first.
func (t *Tree) Levels() [][]zkcrypto.Field {
	out := make([][]zkcrypto.Field, len(t.levels))
	for i, l := range t.levels {
		out[i] = append([]zkcrypto.Field(nil), l...)
	}
	return out
}

func (t *Tree) Leaves() []zkcrypto.Field {
	return append([]zkcrypto.Field(nil), t.levels[0]...)
}

// Proof returns the sibling path of the leaf at index, bottom up.
func (t *Tree) Proof(index int) ([]zkcrypto.Field, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, zerr.Newf(zerr.KindMerkle, zerr.RuleMerkleIndex, "leaf index %d out of range [0,%d)", index, len(t.levels[0]))
	}
	proof := make([]zkcrypto.Field, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		proof = append(proof, level[index^1])
		index /= 2
	}
	return proof, nil
}

// Verify folds Combine over proof starting at leaf and compares the result
// with the root.
func (t *Tree) Verify(p zkcrypto.Provider, leaf zkcrypto.Field, proof []zkcrypto.Field) (bool, error) {
	root, err := FoldProof(p, leaf, proof)
	if err != nil {
		return false, err
	}
	return root.Equal(t.Root()), nil
}

// FoldProof recomputes a root from a leaf and its sibling path.
func FoldProof(p zkcrypto.Provider, leaf zkcrypto.Field, proof []zkcrypto.Field) (zkcrypto.Field, error) {
	cur := leaf
	for _, sib := range proof {
		next, err := Combine(p, cur, sib)
		if err != nil {
			return zkcrypto.Field{}, err
		}
		cur = next
	}
	return cur, nil
}
