package credential

import (
	"xdao.co/zpass/literal"
	"xdao.co/zpass/zerr"
)

// MaxIdentifierLength is the longest identifier that still packs into one
// field element.
const MaxIdentifierLength = 31

var reserved = func() map[string]struct{} {
	words := []string{
		"as", "block", "closure", "constant", "else", "finalize", "for",
		"function", "future", "if", "import", "in", "input", "into",
		"let", "mapping", "network", "output", "private", "program",
		"public", "record", "return", "self", "signature", "string",
		"struct", "true", "false",
	}
	m := make(map[string]struct{}, len(words)+len(literal.TypeNames()))
	for _, w := range words {
		m[w] = struct{}{}
	}
	for _, w := range literal.TypeNames() {
		m[w] = struct{}{}
	}
	return m
}()

// ParseIdentifier checks that name can key a credential member: an ASCII
// letter followed by letters, digits or underscores, at most
// MaxIdentifierLength bytes, and not a keyword or type name.
func ParseIdentifier(name string) (string, error) {
	if name == "" {
		return "", zerr.New(zerr.KindIdentifier, zerr.RuleIdentSyntax, "identifier is empty")
	}
	if len(name) > MaxIdentifierLength {
		return "", zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "identifier %q exceeds %d bytes", name, MaxIdentifierLength)
	}
	if !isLetter(name[0]) {
		return "", zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "identifier %q must start with a letter", name)
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isLetter(c) && !(c >= '0' && c <= '9') && c != '_' {
			return "", zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentSyntax, "identifier %q contains %q", name, c)
		}
	}
	if _, ok := reserved[name]; ok {
		return "", zerr.Newf(zerr.KindIdentifier, zerr.RuleIdentReserved, "identifier %q is reserved", name)
	}
	return name, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
