package value

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsey(t *testing.T) {
	assert.True(t, IsFalsey(None))
	assert.True(t, IsFalsey(NewFalse()))
	assert.False(t, IsFalsey(Truth))
	assert.False(t, IsFalsey(NewIntegerInt64(0)))
	assert.False(t, IsFalsey(NewString("")))
}

func TestEqualDistinguishesTruthFromInteger(t *testing.T) {
	// Truth and integer one must never compare equal, even though some
	// encodings elsewhere conflate "truthy" with 1.
	assert.False(t, Equal(Truth, NewIntegerInt64(1)))
	assert.True(t, Equal(Truth, Truth))
	assert.True(t, Equal(NewFalse(), NewFalse()))
	assert.False(t, Equal(Truth, NewFalse()))
}

func TestEqualIntegerByValue(t *testing.T) {
	a := NewInteger(big.NewInt(5))
	b := NewInteger(big.NewInt(5))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, NewIntegerInt64(6)))
}

func TestEqualDifferentKindsNeverEqual(t *testing.T) {
	assert.False(t, Equal(None, NewIntegerInt64(0)))
	assert.False(t, Equal(NewString("0"), NewIntegerInt64(0)))
}

func TestTableGetSetStructuralKeys(t *testing.T) {
	tbl := NewTable()
	tbl.Table.Set(NewIntegerInt64(0), NewString("first"))
	tbl.Table.Set(NewString("key"), NewIntegerInt64(42))

	v, ok := tbl.Table.Get(NewIntegerInt64(0))
	assert.True(t, ok)
	assert.Equal(t, "first", v.Str)

	v, ok = tbl.Table.Get(NewString("key"))
	assert.True(t, ok)
	assert.True(t, Equal(v, NewIntegerInt64(42)))

	_, ok = tbl.Table.Get(NewIntegerInt64(1))
	assert.False(t, ok)
}

func TestTableSetReplacesExistingKey(t *testing.T) {
	tbl := NewTable()
	tbl.Table.Set(NewIntegerInt64(0), NewString("a"))
	tbl.Table.Set(NewIntegerInt64(0), NewString("b"))
	v, ok := tbl.Table.Get(NewIntegerInt64(0))
	assert.True(t, ok)
	assert.Equal(t, "b", v.Str)
}

func TestRepresent(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"none", None, "[ala]"},
		{"truth", Truth, "[lon]"},
		{"false", NewFalse(), "[lon ala]"},
		{"integer", NewIntegerInt64(7), "[nanpa]"},
		{"string", NewString("toki"), "toki"},
		{"table", NewTable(), "[kulupu]"},
		{"paragraph-ref", NewParagraphRef(3), "[pali]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Represent(c.v))
		})
	}
}

func TestParagraphRefEqualityByIndex(t *testing.T) {
	assert.True(t, Equal(NewParagraphRef(2), NewParagraphRef(2)))
	assert.False(t, Equal(NewParagraphRef(2), NewParagraphRef(3)))
}
