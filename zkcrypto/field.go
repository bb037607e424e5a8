package zkcrypto

import (
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"xdao.co/zpass/zerr"
)

const (
	// FieldSizeBits is the width of a serialized field element.
	FieldSizeBits = fr.Bits
	// FieldDataBits is the number of bits that always fit below the modulus.
	FieldDataBits = fr.Bits - 1

	fieldSuffix = "field"
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Field is an element of the prime field commitments are computed over.
// The zero value is the zero element.
type Field struct {
	e fr.Element
}

// NewField returns v as a field element. v must be canonical: 0 <= v < modulus.
func NewField(v *big.Int) (Field, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return Field{}, zerr.New(zerr.KindTypeParse, zerr.RuleTypeRange, "value is outside the field")
	}
	var f Field
	f.e.SetBigInt(v)
	return f, nil
}

// FieldFromUint64 returns v as a field element.
func FieldFromUint64(v uint64) Field {
	var f Field
	f.e.SetUint64(v)
	return f
}

// FieldFromBitsLE packs at most FieldDataBits little-endian bits into a field element.
func FieldFromBitsLE(bits []bool) (Field, error) {
	if len(bits) > FieldDataBits {
		return Field{}, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoHash, "%d bits do not fit in a field element", len(bits))
	}
	return NewField(FromBitsLE(bits))
}

func parseField(s string) (Field, error) {
	digits, ok := strings.CutSuffix(s, fieldSuffix)
	if !ok {
		digits = s
	}
	v, ok := parseDecimal(digits)
	if !ok {
		return Field{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "field", nil)
	}
	f, err := NewField(v)
	if err != nil {
		return Field{}, zerr.TypeParse(zerr.RuleTypeRange, s, "field", err)
	}
	return f, nil
}

// BigInt returns the canonical integer value of f.
func (f Field) BigInt() *big.Int {
	return f.e.BigInt(new(big.Int))
}

// String renders f as "<decimal>field".
func (f Field) String() string {
	return f.BigInt().Text(10) + fieldSuffix
}

// Add returns f + g.
func (f Field) Add(g Field) Field {
	var r Field
	r.e.Add(&f.e, &g.e)
	return r
}

func (f Field) Equal(g Field) bool { return f.e.Equal(&g.e) }

func (f Field) IsZero() bool { return f.e.IsZero() }

// BitsLE returns the FieldSizeBits little-endian bits of f.
func (f Field) BitsLE() []bool {
	return BitsLE(f.BigInt(), FieldSizeBits)
}

// Bytes returns the 32-byte big-endian encoding of f.
func (f Field) Bytes() [fr.Bytes]byte {
	return f.e.Bytes()
}

func (f Field) element() fr.Element { return f.e }

func fieldFromElement(e fr.Element) Field { return Field{e: e} }

func parseDecimal(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, false
		}
	}
	return new(big.Int).SetString(s, 10)
}

// BitsLE returns the n low bits of v, least significant first. v must be
// non-negative.
func BitsLE(v *big.Int, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		out[i] = v.Bit(i) == 1
	}
	return out
}

// FromBitsLE is the inverse of BitsLE.
func FromBitsLE(bits []bool) *big.Int {
	v := new(big.Int)
	for i := len(bits) - 1; i >= 0; i-- {
		v.Lsh(v, 1)
		if bits[i] {
			v.SetBit(v, 0, 1)
		}
	}
	return v
}
