package literal

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

// matcher pairs a token test with the constructor for one literal type.
// Parse tries matchers in table order; the first whose test passes owns the
// token, even if its constructor then fails.
type matcher struct {
	target Type
	match  func(token string) bool
	parse  func(p zkcrypto.Provider, token string) (Literal, error)
}

var matchers = []matcher{
	{Address, prefix(zkcrypto.AddressPrefix), parseAddress},
	{Boolean, func(s string) bool { return s == "true" || s == "false" }, parseBoolean},
	{Field, suffix("field"), parseFieldToken},
	{U8, suffix("u8"), integerParser(U8)},
	{U16, suffix("u16"), integerParser(U16)},
	{U32, suffix("u32"), integerParser(U32)},
	{U64, suffix("u64"), integerParser(U64)},
	{U128, suffix("u128"), integerParser(U128)},
	{I8, suffix("i8"), integerParser(I8)},
	{I16, suffix("i16"), integerParser(I16)},
	{I32, suffix("i32"), integerParser(I32)},
	{I64, suffix("i64"), integerParser(I64)},
	{I128, suffix("i128"), integerParser(I128)},
	{Group, suffix("group"), parseGroup},
	{Scalar, suffix("scalar"), parseScalar},
}

func prefix(p string) func(string) bool {
	return func(s string) bool { return strings.HasPrefix(s, p) }
}

func suffix(x string) func(string) bool {
	return func(s string) bool { return strings.HasSuffix(s, x) }
}

// Parse infers the literal type of token. Tokens that match no type tag are
// read as opaque strings and converted with TokenToField.
func Parse(p zkcrypto.Provider, token string) (Literal, error) {
	for _, m := range matchers {
		if m.match(token) {
			return m.parse(p, token)
		}
	}
	f, err := stringToField(p, token)
	if err != nil {
		return Literal{}, err
	}
	return NewField(f), nil
}

// Detect returns the type Parse would attempt for token. ok is false for
// opaque strings, which fall back to TokenToField.
func Detect(token string) (t Type, ok bool) {
	for _, m := range matchers {
		if m.match(token) {
			return m.target, true
		}
	}
	return Field, false
}

// ParseAll parses every token, stopping at the first failure.
func ParseAll(p zkcrypto.Provider, tokens []string) ([]Literal, error) {
	out := make([]Literal, 0, len(tokens))
	for _, tok := range tokens {
		l, err := Parse(p, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// TokenToField converts an opaque string to a field element: decimal
// strings that fit 128 bits are taken as numbers, anything else as the
// big-endian integer of its bytes. A nil or empty token is the zero field.
func TokenToField(p zkcrypto.Provider, token *string) (zkcrypto.Field, error) {
	if token == nil || *token == "" {
		return p.Zero(), nil
	}
	return stringToField(p, *token)
}

func stringToField(p zkcrypto.Provider, token string) (zkcrypto.Field, error) {
	if v, ok := parseUnsigned(strings.TrimPrefix(token, "+")); ok && v.BitLen() <= 128 {
		return p.FieldFromUint128(v)
	}
	v, ok := new(big.Int).SetString(hex.EncodeToString([]byte(token)), 16)
	if !ok || v.BitLen() > 128 {
		return zkcrypto.Field{}, zerr.TypeParse(zerr.RuleTypeFallback, token, "field", nil)
	}
	f, err := p.FieldFromUint128(v)
	if err != nil {
		return zkcrypto.Field{}, zerr.TypeParse(zerr.RuleTypeFallback, token, "field", err)
	}
	return f, nil
}

func parseAddress(p zkcrypto.Provider, token string) (Literal, error) {
	a, err := p.ParseAddress(token)
	if err != nil {
		return Literal{}, retag(err, token, Address)
	}
	return NewAddress(a), nil
}

func parseBoolean(_ zkcrypto.Provider, token string) (Literal, error) {
	return NewBoolean(token == "true"), nil
}

// parseFieldToken reads values up to 128 bits through FieldFromUint128 and
// wider canonical values, such as hash outputs, through ParseField.
func parseFieldToken(p zkcrypto.Provider, token string) (Literal, error) {
	digits := strings.TrimPrefix(token, "+")
	v, ok := parseUnsigned(strings.TrimSuffix(digits, "field"))
	if !ok {
		return Literal{}, zerr.TypeParse(zerr.RuleTypeSyntax, token, Field.String(), nil)
	}
	var (
		f   zkcrypto.Field
		err error
	)
	if v.BitLen() <= 128 {
		f, err = p.FieldFromUint128(v)
	} else {
		f, err = p.ParseField(digits)
	}
	if err != nil {
		return Literal{}, retag(err, token, Field)
	}
	return NewField(f), nil
}

func integerParser(t Type) func(zkcrypto.Provider, string) (Literal, error) {
	return func(_ zkcrypto.Provider, token string) (Literal, error) {
		digits := strings.TrimSuffix(token, t.String())
		neg := false
		switch {
		case t.IsSigned() && strings.HasPrefix(digits, "-"):
			neg = true
			digits = digits[1:]
		case strings.HasPrefix(digits, "+"):
			digits = digits[1:]
		}
		v, ok := parseUnsigned(digits)
		if !ok {
			return Literal{}, zerr.TypeParse(zerr.RuleTypeSyntax, token, t.String(), nil)
		}
		if neg {
			v.Neg(v)
		}
		l, err := NewInteger(t, v)
		if err != nil {
			return Literal{}, zerr.TypeParse(zerr.RuleTypeRange, token, t.String(), err)
		}
		return l, nil
	}
}

func parseGroup(p zkcrypto.Provider, token string) (Literal, error) {
	g, err := p.ParseGroup(token)
	if err != nil {
		return Literal{}, retag(err, token, Group)
	}
	return NewGroup(g), nil
}

func parseScalar(p zkcrypto.Provider, token string) (Literal, error) {
	s, err := p.ParseScalar(token)
	if err != nil {
		return Literal{}, retag(err, token, Scalar)
	}
	return NewScalar(s), nil
}

// retag makes sure provider failures surface as type parse errors naming
// the token and the type that was attempted.
func retag(err error, token string, t Type) error {
	var e *zerr.Error
	if errors.As(err, &e) && e.Kind == zerr.KindTypeParse && e.Token == token {
		return err
	}
	return zerr.TypeParse(zerr.RuleTypeSyntax, token, t.String(), err)
}

func parseUnsigned(s string) (*big.Int, bool) {
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
