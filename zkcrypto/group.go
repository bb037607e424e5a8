package zkcrypto

import (
	"math/big"
	"strings"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"xdao.co/zpass/zerr"
)

const (
	// ScalarSizeBits is the bit length of the prime subgroup order.
	ScalarSizeBits = 251

	groupSuffix  = "group"
	scalarSuffix = "scalar"
)

var edwards = sync.OnceValue(func() *twistededwards.CurveParams {
	c := twistededwards.GetEdwardsCurve()
	return &c
})

// Group is a point of the prime order subgroup of the embedded twisted
// Edwards curve. The zero value is not a valid point; use Identity.
type Group struct {
	p twistededwards.PointAffine
}

// Identity returns the neutral element.
func Identity() Group {
	return Group{p: identityPoint()}
}

// Generator returns the subgroup base point.
func Generator() Group {
	return Group{p: edwards().Base}
}

func identityPoint() twistededwards.PointAffine {
	var p twistededwards.PointAffine
	p.X.SetZero()
	p.Y.SetOne()
	return p
}

// X returns the x-coordinate, which identifies the point.
func (g Group) X() Field { return fieldFromElement(g.p.X) }

// String renders g as "<x>group".
func (g Group) String() string {
	return g.X().BigInt().Text(10) + groupSuffix
}

func (g Group) Equal(h Group) bool { return g.p.Equal(&h.p) }

func (g Group) IsIdentity() bool { return g.p.IsZero() }

// BitsLE returns the little-endian bits of the x-coordinate.
func (g Group) BitsLE() []bool { return g.X().BitsLE() }

// Add returns g + h.
func (g Group) Add(h Group) Group {
	var r Group
	r.p.Add(&g.p, &h.p)
	return r
}

// Mul returns [s]g.
func (g Group) Mul(s Scalar) Group {
	var r Group
	r.p.ScalarMultiplication(&g.p, s.BigInt())
	return r
}

// GroupFromX returns the subgroup point with the given x-coordinate.
func GroupFromX(x Field) (Group, bool) {
	xe := x.element()
	y, ok := recoverY(&xe)
	if !ok {
		return Group{}, false
	}
	var negY fr.Element
	negY.Neg(&y)
	for _, cand := range [2]fr.Element{y, negY} {
		p := twistededwards.NewPointAffine(xe, cand)
		if p.IsOnCurve() && inSubgroup(&p) {
			return Group{p: p}, true
		}
	}
	return Group{}, false
}

// recoverY solves a*x^2 + y^2 = 1 + d*x^2*y^2 for y.
func recoverY(x *fr.Element) (fr.Element, bool) {
	c := edwards()
	var one, x2, num, den, y fr.Element
	one.SetOne()
	x2.Square(x)
	num.Mul(&c.A, &x2)
	num.Sub(&one, &num)
	den.Mul(&c.D, &x2)
	den.Sub(&one, &den)
	if den.IsZero() {
		return fr.Element{}, false
	}
	num.Div(&num, &den)
	if y.Sqrt(&num) == nil {
		return fr.Element{}, false
	}
	return y, true
}

func inSubgroup(p *twistededwards.PointAffine) bool {
	var t twistededwards.PointAffine
	t.ScalarMultiplication(p, &edwards().Order)
	return t.IsZero()
}

func parseGroup(s string) (Group, error) {
	digits, ok := strings.CutSuffix(s, groupSuffix)
	if !ok {
		return Group{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "group", nil)
	}
	v, ok := parseDecimal(digits)
	if !ok {
		return Group{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "group", nil)
	}
	x, err := NewField(v)
	if err != nil {
		return Group{}, zerr.TypeParse(zerr.RuleTypeRange, s, "group", err)
	}
	g, ok := GroupFromX(x)
	if !ok {
		return Group{}, zerr.TypeParse(zerr.RuleTypeRange, s, "group", nil)
	}
	return g, nil
}

// Scalar is an integer modulo the prime subgroup order.
type Scalar struct {
	v *big.Int
}

// ScalarOrder returns a copy of the prime subgroup order.
func ScalarOrder() *big.Int {
	return new(big.Int).Set(&edwards().Order)
}

// NewScalar reduces v modulo the subgroup order.
func NewScalar(v *big.Int) Scalar {
	return Scalar{v: new(big.Int).Mod(v, &edwards().Order)}
}

// BigInt returns a copy of the canonical value.
func (s Scalar) BigInt() *big.Int {
	if s.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(s.v)
}

// String renders s as "<decimal>scalar".
func (s Scalar) String() string {
	return s.BigInt().Text(10) + scalarSuffix
}

func (s Scalar) IsZero() bool { return s.v == nil || s.v.Sign() == 0 }

func (s Scalar) Equal(t Scalar) bool { return s.BigInt().Cmp(t.BigInt()) == 0 }

// BitsLE returns the ScalarSizeBits little-endian bits of s.
func (s Scalar) BitsLE() []bool { return BitsLE(s.BigInt(), ScalarSizeBits) }

func parseScalar(s string) (Scalar, error) {
	digits, ok := strings.CutSuffix(s, scalarSuffix)
	if !ok {
		return Scalar{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "scalar", nil)
	}
	v, ok := parseDecimal(digits)
	if !ok {
		return Scalar{}, zerr.TypeParse(zerr.RuleTypeSyntax, s, "scalar", nil)
	}
	if v.Cmp(&edwards().Order) >= 0 {
		return Scalar{}, zerr.TypeParse(zerr.RuleTypeRange, s, "scalar", nil)
	}
	return Scalar{v: v}, nil
}
