package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasinpali/pali/parser"
)

func mustCompile(t *testing.T, src string) []byte {
	t.Helper()
	root, err := parser.Parse(src)
	require.Nil(t, err, "unexpected parse error: %v", err)
	return Compile(root)
}

func TestCompileEmptyProgramHasVersionZeroHeader(t *testing.T) {
	code := mustCompile(t, `pali sin li pini`)
	require.True(t, len(code) >= 4)
	assert.Equal(t, byte(0), code[0], "format version")
}

func TestCompileHeaderFieldWidthsAreConsistent(t *testing.T) {
	code := mustCompile(t, `ijo A li nanpa wan.
pali sin li pini`)
	varLen, adrLen, parLen := int(code[1]), int(code[2]), int(code[3])
	assert.True(t, varLen >= 0)
	assert.True(t, adrLen >= 0)
	assert.True(t, parLen >= 1, "par_len is never narrowed below one byte")

	pos := 4
	parCount := 0
	for i := 0; i < parLen; i++ {
		parCount = parCount*256 + int(code[pos+i])
	}
	pos += parLen
	assert.Equal(t, 1, parCount, "only the root paragraph in a program with no nested literals")
	assert.True(t, len(code) >= pos+parCount*adrLen)
}

func TestCompileNestedParagraphAddsASecondTableEntry(t *testing.T) {
	code := mustCompile(t, `ijo A li pali sin.
o pana e nimi "x".
pali sin li pini.
pali sin li pini`)
	parLen := int(code[3])
	pos := 4
	parCount := 0
	for i := 0; i < parLen; i++ {
		parCount = parCount*256 + int(code[pos+i])
	}
	assert.Equal(t, 2, parCount, "root paragraph plus the nested literal")
}

func TestCompileDoesNotPanicOnRecursiveParagraph(t *testing.T) {
	assert.NotPanics(t, func() {
		mustCompile(t, `pali ni li kepeken e ijo O.
ijo U li ijo O en nanpa wan ala.
ijo O li suli la ijo E li pali e pali ni kepeken ijo U.
ijo O li suli la o pana e ijo E.
o pana e ijo O.
pali sin li pini`)
	})
}
