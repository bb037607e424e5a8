// Package plaintext implements structured values (a literal, or an ordered
// struct of named members) and their canonical bit and field encodings.
package plaintext

import (
	"math/big"

	"xdao.co/zpass/literal"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

const (
	maxMembers    = 255
	maxNameLength = 255
	maxSizeBits   = 1<<16 - 1
)

// Member is one named entry of a struct value.
type Member struct {
	Name  string
	Value Plaintext
}

// Plaintext is either a literal or an ordered struct.
type Plaintext struct {
	lit     *literal.Literal
	members []Member
}

// FromLiteral wraps a literal.
func FromLiteral(l literal.Literal) Plaintext {
	return Plaintext{lit: &l}
}

// NewStruct builds a struct value. Member order is significant. Names must
// be non-empty and unique; callers validate identifier syntax.
func NewStruct(members []Member) (Plaintext, error) {
	if len(members) > maxMembers {
		return Plaintext{}, zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "struct has %d members, limit is %d", len(members), maxMembers)
	}
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Name == "" || len(m.Name) > maxNameLength {
			return Plaintext{}, zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "invalid member name %q", m.Name)
		}
		if _, dup := seen[m.Name]; dup {
			return Plaintext{}, zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "duplicate member name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	out := make([]Member, len(members))
	copy(out, members)
	return Plaintext{members: out}, nil
}

// IsLiteral reports whether p wraps a single literal.
func (p Plaintext) IsLiteral() bool { return p.lit != nil }

// Literal returns the wrapped literal and whether p is a literal.
func (p Plaintext) Literal() (literal.Literal, bool) {
	if p.lit == nil {
		return literal.Literal{}, false
	}
	return *p.lit, true
}

// Members returns a copy of the struct members, or nil for a literal.
func (p Plaintext) Members() []Member {
	if p.lit != nil {
		return nil
	}
	out := make([]Member, len(p.members))
	copy(out, p.members)
	return out
}

// String renders p as "value" or "{ name: value, ... }".
func (p Plaintext) String() string {
	if p.lit != nil {
		return p.lit.String()
	}
	if len(p.members) == 0 {
		return "{}"
	}
	s := "{ "
	for i, m := range p.members {
		if i > 0 {
			s += ", "
		}
		s += m.Name + ": " + m.Value.String()
	}
	return s + " }"
}

// BitsLE returns the canonical little-endian encoding of p.
//
//	literal: 0 0 | type u8 | size u16 | payload
//	struct:  0 1 | count u8 | per member: name len u8 | name bytes | size u16 | member bits
func (p Plaintext) BitsLE() ([]bool, error) {
	if p.lit != nil {
		payload := p.lit.BitsLE()
		bits := make([]bool, 0, 2+8+16+len(payload))
		bits = append(bits, false, false)
		bits = appendUint(bits, uint64(p.lit.Type()), 8)
		bits = appendUint(bits, uint64(len(payload)), 16)
		return append(bits, payload...), nil
	}

	bits := []bool{false, true}
	bits = appendUint(bits, uint64(len(p.members)), 8)
	for _, m := range p.members {
		bits = appendUint(bits, uint64(len(m.Name)), 8)
		for i := 0; i < len(m.Name); i++ {
			bits = appendUint(bits, uint64(m.Name[i]), 8)
		}
		sub, err := m.Value.BitsLE()
		if err != nil {
			return nil, err
		}
		if len(sub) > maxSizeBits {
			return nil, zerr.Newf(zerr.KindCrypto, zerr.RuleCryptoHash, "member %q encodes to %d bits", m.Name, len(sub))
		}
		bits = appendUint(bits, uint64(len(sub)), 16)
		bits = append(bits, sub...)
	}
	return bits, nil
}

// ToFields packs the bit encoding, followed by a terminating one bit, into
// field elements of zkcrypto.FieldDataBits bits each.
func (p Plaintext) ToFields() ([]zkcrypto.Field, error) {
	bits, err := p.BitsLE()
	if err != nil {
		return nil, err
	}
	bits = append(bits, true)
	out := make([]zkcrypto.Field, 0, (len(bits)+zkcrypto.FieldDataBits-1)/zkcrypto.FieldDataBits)
	for start := 0; start < len(bits); start += zkcrypto.FieldDataBits {
		end := min(start+zkcrypto.FieldDataBits, len(bits))
		f, err := zkcrypto.FieldFromBitsLE(bits[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func appendUint(bits []bool, v uint64, width int) []bool {
	return append(bits, zkcrypto.BitsLE(new(big.Int).SetUint64(v), width)...)
}
