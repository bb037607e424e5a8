// Package credential builds ordered credentials from named tokens and turns
// them into the structured value that gets hashed and signed.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"xdao.co/zpass/literal"
	"xdao.co/zpass/plaintext"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

// Entry is one named credential value.
type Entry struct {
	Name  string
	Value literal.Literal
}

// Pair is a raw (name, token) input.
type Pair struct {
	Name  string
	Token string
}

// Credential is an insertion-ordered set of entries with unique names.
type Credential struct {
	entries []Entry
	index   map[string]int
}

func New() *Credential {
	return &Credential{index: make(map[string]int)}
}

// Set inserts or overwrites name. An overwritten entry keeps its position.
func (c *Credential) Set(name string, v literal.Literal) {
	if i, ok := c.index[name]; ok {
		c.entries[i].Value = v
		return
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, Entry{Name: name, Value: v})
}

func (c *Credential) Get(name string) (literal.Literal, bool) {
	i, ok := c.index[name]
	if !ok {
		return literal.Literal{}, false
	}
	return c.entries[i].Value, true
}

func (c *Credential) Len() int { return len(c.entries) }

// Entries returns the entries in insertion order.
func (c *Credential) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Value validates every name and returns the credential as a struct value.
func (c *Credential) Value() (plaintext.Plaintext, error) {
	members := make([]plaintext.Member, 0, len(c.entries))
	for _, e := range c.entries {
		name, err := ParseIdentifier(e.Name)
		if err != nil {
			return plaintext.Plaintext{}, err
		}
		members = append(members, plaintext.Member{Name: name, Value: plaintext.FromLiteral(e.Value)})
	}
	return plaintext.NewStruct(members)
}

// FromPairs parses each token and inserts it under its name.
func FromPairs(p zkcrypto.Provider, pairs []Pair) (*Credential, error) {
	c := New()
	for _, pr := range pairs {
		l, err := literal.Parse(p, pr.Token)
		if err != nil {
			return nil, err
		}
		c.Set(pr.Name, l)
	}
	return c, nil
}

// FromJSON reads a JSON object of name/token pairs, keeping key order.
// String values are parsed as literals and a bad token fails the whole call.
// Values of any other JSON kind are skipped with a warning.
func FromJSON(p zkcrypto.Provider, data []byte, log *zap.Logger) (*Credential, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, zerr.Wrap(zerr.KindInput, zerr.RuleJSONShape, "read credential json", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, zerr.New(zerr.KindInput, zerr.RuleJSONShape, "credential json must be an object")
	}

	c := New()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, zerr.Wrap(zerr.KindInput, zerr.RuleJSONShape, "read credential key", err)
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return nil, zerr.Wrap(zerr.KindInput, zerr.RuleJSONShape, fmt.Sprintf("read value of %q", key), err)
		}
		s, isString := valTok.(string)
		if !isString {
			kind := jsonKind(valTok)
			if _, ok := valTok.(json.Delim); ok {
				if err := skipComposite(dec); err != nil {
					return nil, zerr.Wrap(zerr.KindInput, zerr.RuleJSONShape, fmt.Sprintf("read value of %q", key), err)
				}
			}
			log.Warn("skipping unsupported credential value",
				zap.String("field", key),
				zap.String("kind", kind),
				zap.String("rule", zerr.RuleJSONUnsupported))
			continue
		}

		l, err := literal.Parse(p, s)
		if err != nil {
			return nil, err
		}
		c.Set(key, l)
	}
	if _, err := dec.Token(); err != nil {
		return nil, zerr.Wrap(zerr.KindInput, zerr.RuleJSONShape, "read credential json", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, zerr.New(zerr.KindInput, zerr.RuleJSONShape, "trailing data after credential object")
	}
	return c, nil
}

func jsonKind(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '[' {
			return "array"
		}
		return "object"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", tok)
}

// skipComposite consumes the rest of an array or object whose opening
// delimiter has already been read.
func skipComposite(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
