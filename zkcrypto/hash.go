package zkcrypto

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/cloudflare/circl/expander"
	"github.com/cloudflare/circl/xof"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"golang.org/x/crypto/sha3"

	"xdao.co/zpass/zerr"
)

const (
	// bhpChunkBits stays below the subgroup order so chunk scalars never wrap.
	bhpChunkBits = 248

	bhp1024Chunks = 128
	bhp256Chunks  = 3
)

// HashPSD2 hashes field elements to a field element with Poseidon2 in
// Merkle-Damgard mode. The input is framed by a per-network domain element
// and its length.
func (s *Suite) HashPSD2(input []Field) (Field, error) {
	h := poseidon2.NewMerkleDamgardHasher()
	length := fr.NewElement(uint64(len(input)))
	write := func(e *fr.Element) error {
		b := e.Bytes()
		_, err := h.Write(b[:])
		return err
	}
	if err := write(&s.psd2Domain); err != nil {
		return Field{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "poseidon2", err)
	}
	if err := write(&length); err != nil {
		return Field{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "poseidon2", err)
	}
	for i := range input {
		e := input[i].element()
		if err := write(&e); err != nil {
			return Field{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "poseidon2", err)
		}
	}
	var out fr.Element
	if err := out.SetBytesCanonical(h.Sum(nil)); err != nil {
		return Field{}, zerr.Wrap(zerr.KindCrypto, zerr.RuleCryptoHash, "poseidon2 digest", err)
	}
	return fieldFromElement(out), nil
}

// HashBHP1024 hashes a bit string to a field element with the wide
// Pedersen instance.
func (s *Suite) HashBHP1024(bits []bool) (Field, error) {
	p, err := s.bhp1024.hash(bits)
	if err != nil {
		return Field{}, err
	}
	return fieldFromElement(p.X), nil
}

// HashToGroupBHP256 hashes a bit string to a subgroup point with the narrow
// Pedersen instance.
func (s *Suite) HashToGroupBHP256(bits []bool) (Group, error) {
	p, err := s.bhp256.hash(bits)
	if err != nil {
		return Group{}, err
	}
	return Group{p: p}, nil
}

// CastGroupToField returns the x-coordinate of g.
func (s *Suite) CastGroupToField(g Group) Field {
	return g.X()
}

// HashSHA3_256 returns the SHA3-256 digest of the byte-packed bits as 256 bits.
func (s *Suite) HashSHA3_256(bits []bool) ([]bool, error) {
	d := sha3.Sum256(packBitsLE(bits))
	return unpackBitsLE(d[:]), nil
}

// HashKeccak256 returns the legacy Keccak-256 digest of the byte-packed bits.
func (s *Suite) HashKeccak256(bits []bool) ([]bool, error) {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(packBitsLE(bits))
	return unpackBitsLE(h.Sum(nil)), nil
}

func packBitsLE(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

func unpackBitsLE(b []byte) []bool {
	out := make([]bool, len(b)*8)
	for i := range out {
		out[i] = b[i/8]>>(i%8)&1 == 1
	}
	return out
}

// pedersen is a bounded-input Pedersen hash over the subgroup. Generators
// are derived on first use; the last generator commits to the input length.
type pedersen struct {
	label     string
	maxChunks int
	exp       expander.Expander

	once sync.Once
	gens []twistededwards.PointAffine
	err  error
}

func newPedersen(n Network, label string, maxChunks int) *pedersen {
	return &pedersen{
		label:     label,
		maxChunks: maxChunks,
		exp:       expander.NewExpanderXOF(xof.SHAKE256, 128, n.dst("BHP-"+label)),
	}
}

func (p *pedersen) generators() ([]twistededwards.PointAffine, error) {
	p.once.Do(func() {
		gens := make([]twistededwards.PointAffine, p.maxChunks+1)
		for i := range gens {
			g, err := deriveGenerator(p.exp, uint32(i))
			if err != nil {
				p.err = err
				return
			}
			gens[i] = g
		}
		p.gens = gens
	})
	return p.gens, p.err
}

func (p *pedersen) hash(bits []bool) (twistededwards.PointAffine, error) {
	gens, err := p.generators()
	if err != nil {
		return twistededwards.PointAffine{}, err
	}
	chunks := (len(bits) + bhpChunkBits - 1) / bhpChunkBits
	if chunks > p.maxChunks {
		return twistededwards.PointAffine{}, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoHash,
			"%s: %d input bits exceed the limit of %d", p.label, len(bits), p.maxChunks*bhpChunkBits)
	}
	acc := identityPoint()
	var term twistededwards.PointAffine
	for i := 0; i < chunks; i++ {
		end := min((i+1)*bhpChunkBits, len(bits))
		term.ScalarMultiplication(&gens[i], FromBitsLE(bits[i*bhpChunkBits:end]))
		acc.Add(&acc, &term)
	}
	term.ScalarMultiplication(&gens[p.maxChunks], big.NewInt(int64(len(bits))))
	acc.Add(&acc, &term)
	return acc, nil
}

// deriveGenerator maps (index, counter) to curve points by try-and-increment
// and clears the cofactor.
func deriveGenerator(exp expander.Expander, index uint32) (twistededwards.PointAffine, error) {
	var cofactor big.Int
	edwards().Cofactor.BigInt(&cofactor)

	var msg [8]byte
	binary.BigEndian.PutUint32(msg[:4], index)
	for counter := uint32(0); counter < 1<<16; counter++ {
		binary.BigEndian.PutUint32(msg[4:], counter)
		var x fr.Element
		x.SetBytes(exp.Expand(msg[:], 48))
		y, ok := recoverY(&x)
		if !ok {
			continue
		}
		p := twistededwards.NewPointAffine(x, y)
		if !p.IsOnCurve() {
			continue
		}
		var g twistededwards.PointAffine
		g.ScalarMultiplication(&p, &cofactor)
		if g.IsZero() {
			continue
		}
		return g, nil
	}
	return twistededwards.PointAffine{}, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoHash, "no generator found for index %d", index)
}
