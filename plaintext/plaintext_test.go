package plaintext

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zpass/literal"
	"xdao.co/zpass/zerr"
	"xdao.co/zpass/zkcrypto"
)

func u8(t *testing.T, v int64) literal.Literal {
	t.Helper()
	l, err := literal.NewInteger(literal.U8, big.NewInt(v))
	require.NoError(t, err)
	return l
}

func TestLiteralBits_Layout(t *testing.T) {
	bits, err := FromLiteral(u8(t, 5)).BitsLE()
	require.NoError(t, err)
	require.Len(t, bits, 2+8+16+8)

	assert.Equal(t, []bool{false, false}, bits[:2])
	assert.Equal(t, int64(literal.U8), zkcrypto.FromBitsLE(bits[2:10]).Int64())
	assert.Equal(t, int64(8), zkcrypto.FromBitsLE(bits[10:26]).Int64())
	assert.Equal(t, int64(5), zkcrypto.FromBitsLE(bits[26:]).Int64())
}

func TestStructBits_OrderMatters(t *testing.T) {
	a, err := NewStruct([]Member{
		{Name: "a", Value: FromLiteral(u8(t, 1))},
		{Name: "b", Value: FromLiteral(u8(t, 2))},
	})
	require.NoError(t, err)
	b, err := NewStruct([]Member{
		{Name: "b", Value: FromLiteral(u8(t, 2))},
		{Name: "a", Value: FromLiteral(u8(t, 1))},
	})
	require.NoError(t, err)

	ab, err := a.BitsLE()
	require.NoError(t, err)
	ba, err := b.BitsLE()
	require.NoError(t, err)
	assert.Equal(t, len(ab), len(ba))
	assert.NotEqual(t, ab, ba)
	assert.Equal(t, []bool{false, true}, ab[:2])
	assert.Equal(t, "{ a: 1u8, b: 2u8 }", a.String())
}

func TestNewStruct_Rejects(t *testing.T) {
	_, err := NewStruct([]Member{
		{Name: "a", Value: FromLiteral(u8(t, 1))},
		{Name: "a", Value: FromLiteral(u8(t, 2))},
	})
	assert.True(t, zerr.IsKind(err, zerr.KindIdentifier))

	_, err = NewStruct([]Member{{Name: "", Value: FromLiteral(u8(t, 1))}})
	assert.True(t, zerr.IsKind(err, zerr.KindIdentifier))
}

func TestToFields_ChunksWithTerminator(t *testing.T) {
	lit := FromLiteral(literal.NewField(zkcrypto.FieldFromUint64(7)))
	bits, err := lit.BitsLE()
	require.NoError(t, err)
	fields, err := lit.ToFields()
	require.NoError(t, err)

	// 26 header bits + 254 payload bits + terminator spill into a second element.
	require.Len(t, fields, 2)
	rest := len(bits) + 1 - zkcrypto.FieldDataBits
	last := zkcrypto.BitsLE(fields[1].BigInt(), rest)
	assert.True(t, last[rest-1], "terminator bit must be set")

	small, err := FromLiteral(u8(t, 0)).ToFields()
	require.NoError(t, err)
	require.Len(t, small, 1)
	assert.False(t, small[0].IsZero())
}

func TestToFields_Distinct(t *testing.T) {
	a, err := FromLiteral(u8(t, 1)).ToFields()
	require.NoError(t, err)
	b, err := FromLiteral(literal.NewBoolean(true)).ToFields()
	require.NoError(t, err)
	assert.False(t, a[0].Equal(b[0]))
}

func TestAccessors(t *testing.T) {
	p := FromLiteral(literal.NewBoolean(true))
	l, ok := p.Literal()
	assert.True(t, ok)
	assert.True(t, l.Boolean())
	assert.Nil(t, p.Members())

	s, err := NewStruct([]Member{{Name: "x", Value: p}})
	require.NoError(t, err)
	_, ok = s.Literal()
	assert.False(t, ok)
	assert.Len(t, s.Members(), 1)
	assert.False(t, s.IsLiteral())
}
