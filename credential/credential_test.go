package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xdao.co/zpass/literal"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

const (
	issuer  = "aleo1ekyuzclmcw3aj7qncsxxaapxem82mgrd8zadgrrvl5k705zx6q9s7usuqy"
	subject = "aleo14w44zfrehup9g894j7tgeyz5gsjuxn0nfn09vd2fvpznrg85rs8skywkte"
)

func testProvider(t *testing.T) zkcrypto.Provider {
	t.Helper()
	p, err := zkcrypto.Get(zkcrypto.Testnet)
	require.NoError(t, err)
	return p
}

func names(c *Credential) []string {
	var out []string
	for _, e := range c.Entries() {
		out = append(out, e.Name)
	}
	return out
}

func TestFromJSON_PreservesOrder(t *testing.T) {
	p := testProvider(t)
	data := []byte(`{"subject":"` + subject + `","issuer":"` + issuer + `","dob":"20000101scalar","nationality":"American"}`)
	c, err := FromJSON(p, data, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"subject", "issuer", "dob", "nationality"}, names(c))

	dob, ok := c.Get("dob")
	require.True(t, ok)
	assert.Equal(t, literal.Scalar, dob.Type())

	nat, _ := c.Get("nationality")
	assert.Equal(t, "4714535926995575150field", nat.String())
}

func TestFromJSON_SkipsUnsupportedKindsWithWarning(t *testing.T) {
	p := testProvider(t)
	core, logs := observer.New(zapcore.WarnLevel)
	data := []byte(`{"a":"1u8","n":42,"arr":[1,[2],{"x":3}],"obj":{"k":"v"},"nil":null,"flag":true,"b":"2u8"}`)

	c, err := FromJSON(p, data, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(c))

	entries := logs.FilterMessage("skipping unsupported credential value").All()
	require.Len(t, entries, 5)
	kinds := make([]string, 0, len(entries))
	for _, e := range entries {
		kinds = append(kinds, e.ContextMap()["kind"].(string))
		assert.Equal(t, zerr.RuleJSONUnsupported, e.ContextMap()["rule"])
	}
	assert.Equal(t, []string{"number", "array", "object", "null", "boolean"}, kinds)
}

func TestFromJSON_BadTokenIsFatal(t *testing.T) {
	p := testProvider(t)
	_, err := FromJSON(p, []byte(`{"a":"1u8","b":"999u8"}`), nil)
	require.Error(t, err)
	assert.True(t, zerr.IsKind(err, zerr.KindTypeParse))
}

func TestFromJSON_Shape(t *testing.T) {
	p := testProvider(t)
	for _, bad := range []string{`[]`, `"x"`, `{"a":"1u8"`, `{"a":"1u8"} {}`, ``} {
		_, err := FromJSON(p, []byte(bad), nil)
		assert.True(t, zerr.IsKind(err, zerr.KindInput), "input %q: %v", bad, err)
	}
}

func TestSet_DuplicateKeepsFirstPosition(t *testing.T) {
	p := testProvider(t)
	c, err := FromPairs(p, []Pair{{"a", "1u8"}, {"b", "2u8"}, {"a", "3u8"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(c))
	a, _ := c.Get("a")
	assert.Equal(t, "3u8", a.String())
	assert.Equal(t, 2, c.Len())
}

func TestValue_ValidatesIdentifiers(t *testing.T) {
	p := testProvider(t)
	for _, name := range []string{"1abc", "_x", "with-dash", "field", "record", "abcdefghijklmnopqrstuvwxyz012345"} {
		c, err := FromPairs(p, []Pair{{name, "1u8"}})
		require.NoError(t, err)
		_, err = c.Value()
		assert.True(t, zerr.IsKind(err, zerr.KindIdentifier), "name %q", name)
	}

	c, err := FromPairs(p, []Pair{{"issuer", issuer}, {"subject", subject}, {"dob", "20000101scalar"}})
	require.NoError(t, err)
	v, err := c.Value()
	require.NoError(t, err)
	assert.Len(t, v.Members(), 3)
}

func TestParseIdentifier(t *testing.T) {
	for _, ok := range []string{"a", "dob", "Issuer_2", "abcdefghijklmnopqrstuvwxyz01234"} {
		_, err := ParseIdentifier(ok)
		assert.NoError(t, err, ok)
	}
	_, err := ParseIdentifier("u8")
	assert.Equal(t, zerr.RuleIdentReserved, zerr.RuleID(err))
	_, err = ParseIdentifier("")
	assert.Equal(t, zerr.RuleIdentSyntax, zerr.RuleID(err))
}
