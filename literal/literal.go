// Package literal implements typed literal values and the parser that infers
// a literal's type from a tagged string token ("5u8", "3field", "aleo1...").
package literal

import (
	"fmt"
	"math/big"

	"xdao.co/zpass/zkcrypto"
)

// Type tags a Literal. Numeric values are part of the bit encoding.
type Type uint8

const (
	Address Type = iota
	Boolean
	Field
	Group
	I8
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	Scalar
)

var typeNames = [...]string{
	Address: "address",
	Boolean: "boolean",
	Field:   "field",
	Group:   "group",
	I8:      "i8",
	I16:     "i16",
	I32:     "i32",
	I64:     "i64",
	I128:    "i128",
	U8:      "u8",
	U16:     "u16",
	U32:     "u32",
	U64:     "u64",
	U128:    "u128",
	Scalar:  "scalar",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// TypeNames returns every literal type name, in tag order.
func TypeNames() []string {
	out := make([]string, len(typeNames))
	copy(out, typeNames[:])
	return out
}

// IsInteger reports whether t is a sized integer type.
func (t Type) IsInteger() bool { return t >= I8 && t <= U128 }

// IsSigned reports whether t is a signed integer type.
func (t Type) IsSigned() bool { return t >= I8 && t <= I128 }

// Width returns the bit width of an integer type, or 0.
func (t Type) Width() int {
	switch t {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64:
		return 64
	case I128, U128:
		return 128
	}
	return 0
}

// SizeInBits returns the payload width of a literal of type t.
func (t Type) SizeInBits() int {
	switch {
	case t == Boolean:
		return 1
	case t.IsInteger():
		return t.Width()
	case t == Scalar:
		return zkcrypto.ScalarSizeBits
	default:
		return zkcrypto.FieldSizeBits
	}
}

// Literal is a typed value. Exactly one payload is meaningful, selected by Type.
// The zero Literal is not a valid value: it reports Address as its type but
// holds no payload, and String returns "". Use the constructors or Parse.
type Literal struct {
	valid   bool
	typ     Type
	boolean bool
	integer *big.Int
	field   zkcrypto.Field
	address zkcrypto.Address
	group   zkcrypto.Group
	scalar  zkcrypto.Scalar
}

func NewBoolean(b bool) Literal { return Literal{valid: true, typ: Boolean, boolean: b} }

func NewField(f zkcrypto.Field) Literal { return Literal{valid: true, typ: Field, field: f} }

func NewAddress(a zkcrypto.Address) Literal { return Literal{valid: true, typ: Address, address: a} }

func NewGroup(g zkcrypto.Group) Literal { return Literal{valid: true, typ: Group, group: g} }

func NewScalar(s zkcrypto.Scalar) Literal { return Literal{valid: true, typ: Scalar, scalar: s} }

// NewInteger returns an integer literal of type t, checking v's range.
func NewInteger(t Type, v *big.Int) (Literal, error) {
	if !t.IsInteger() {
		return Literal{}, fmt.Errorf("%s is not an integer type", t)
	}
	lo, hi := integerBounds(t)
	if v == nil || v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
		return Literal{}, fmt.Errorf("value out of range for %s", t)
	}
	return Literal{valid: true, typ: t, integer: new(big.Int).Set(v)}, nil
}

func integerBounds(t Type) (lo, hi *big.Int) {
	w := uint(t.Width())
	if t.IsSigned() {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), w-1), big.NewInt(1))
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), w-1))
		return lo, hi
	}
	return new(big.Int), new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), w), big.NewInt(1))
}

func (l Literal) Type() Type { return l.typ }

func (l Literal) Boolean() bool { return l.boolean }

func (l Literal) Field() zkcrypto.Field { return l.field }

func (l Literal) Address() zkcrypto.Address { return l.address }

func (l Literal) Group() zkcrypto.Group { return l.group }

func (l Literal) Scalar() zkcrypto.Scalar { return l.scalar }

// Integer returns a copy of an integer literal's value, or nil.
func (l Literal) Integer() *big.Int {
	if l.integer == nil {
		return nil
	}
	return new(big.Int).Set(l.integer)
}

// String renders l in the token syntax Parse accepts.
// IsValid reports whether l was built by a constructor or Parse.
func (l Literal) IsValid() bool { return l.valid }

func (l Literal) String() string {
	switch {
	case !l.valid:
		return ""
	case l.typ == Address:
		return l.address.String()
	case l.typ == Boolean:
		if l.boolean {
			return "true"
		}
		return "false"
	case l.typ == Field:
		return l.field.String()
	case l.typ == Group:
		return l.group.String()
	case l.typ == Scalar:
		return l.scalar.String()
	case l.typ.IsInteger():
		return l.integer.Text(10) + l.typ.String()
	}
	return l.typ.String()
}

// BitsLE returns the little-endian payload bits of l, SizeInBits wide.
// Signed integers use two's complement.
func (l Literal) BitsLE() []bool {
	switch {
	case l.typ == Address:
		return l.address.BitsLE()
	case l.typ == Boolean:
		return []bool{l.boolean}
	case l.typ == Field:
		return l.field.BitsLE()
	case l.typ == Group:
		return l.group.BitsLE()
	case l.typ == Scalar:
		return l.scalar.BitsLE()
	case l.typ.IsInteger():
		w := l.typ.Width()
		v := new(big.Int).Set(l.integer)
		if v.Sign() < 0 {
			v.Add(v, new(big.Int).Lsh(big.NewInt(1), uint(w)))
		}
		return zkcrypto.BitsLE(v, w)
	}
	return nil
}

func (l Literal) Equal(o Literal) bool {
	if l.typ != o.typ || l.valid != o.valid {
		return false
	}
	switch {
	case l.typ == Address:
		return l.address.Equal(o.address)
	case l.typ == Boolean:
		return l.boolean == o.boolean
	case l.typ == Field:
		return l.field.Equal(o.field)
	case l.typ == Group:
		return l.group.Equal(o.group)
	case l.typ == Scalar:
		return l.scalar.Equal(o.scalar)
	case l.typ.IsInteger():
		return l.integer.Cmp(o.integer) == 0
	}
	return false
}
