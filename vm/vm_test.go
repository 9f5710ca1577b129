package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasinpali/pali/compiler"
	"github.com/nasinpali/pali/environment"
	"github.com/nasinpali/pali/parser"
	"github.com/nasinpali/pali/value"
	"github.com/nasinpali/pali/walk"
)

func runVM(t *testing.T, src string, args ...value.Value) value.Value {
	t.Helper()
	root, err := parser.Parse(src)
	require.Nil(t, err, "unexpected parse error: %v", err)
	image := compiler.Compile(root)
	prog, loadErr := Load(image)
	require.NoError(t, loadErr)
	return New(prog, args...).Run()
}

func runWalk(t *testing.T, src string, args ...value.Value) value.Value {
	t.Helper()
	root, err := parser.Parse(src)
	require.Nil(t, err, "unexpected parse error: %v", err)
	w := walk.NewWalker()
	return w.CallParagraph(root, environment.New(nil), args)
}

func TestVMEmptyProgramReturnsNone(t *testing.T) {
	result := runVM(t, `pali sin li pini`)
	assert.Equal(t, value.None, result)
}

func TestVMIntegerAdditionAcrossAssignments(t *testing.T) {
	result := runVM(t, `ijo A li nanpa wan en nanpa tu. ijo E li ijo A en nanpa wan. o pana e ijo E. pali sin li pini`)
	require.Equal(t, value.KindInteger, result.Kind)
	assert.Equal(t, int64(4), result.Int.Int64())
}

func TestVMTruthVersusIntegerOneDistinction(t *testing.T) {
	result := runVM(t, `lon li nanpa wan la o pana e lon. o pana e lon ala. pali sin li pini`)
	assert.True(t, value.Equal(value.NewFalse(), result))
}

func TestVMTableAssignmentAndPiIndex(t *testing.T) {
	result := runVM(t, `ijo A li kulupu. ijo A pi nanpa ala li nimi "x". o pana e ijo A pi nanpa ala. pali sin li pini`)
	require.Equal(t, value.KindString, result.Kind)
	assert.Equal(t, "x", result.Str)
}

func TestVMStringSlicing(t *testing.T) {
	result := runVM(t, `ijo E li kipisi e nimi "toki" kepeken nanpa ala kepeken nanpa tu.
o pana e ijo E.
pali sin li pini`)
	assert.Equal(t, "to", result.Str)
}

// countdownSrc exercises self-recursion through RecursiveExpr ("pali ni"):
// each call computes O minus one by adding a negated one, and guards both
// the recursive step and the return of its result with the same condition;
// once O reaches zero the unguarded last sentence returns O. The walker and
// VM must agree on the final integer for input 10.
const countdownSrc = `pali ni li kepeken e ijo O.
ijo U li ijo O en nanpa wan ala.
ijo O li suli la ijo E li pali e pali ni kepeken ijo U.
ijo O li suli la o pana e ijo E.
o pana e ijo O.
pali sin li pini`

func TestSemanticEquivalenceRecursiveCountdown(t *testing.T) {
	ten := value.NewIntegerInt64(10)
	walked := runWalk(t, countdownSrc, ten)
	vmed := runVM(t, countdownSrc, ten)
	require.Equal(t, value.KindInteger, walked.Kind)
	require.Equal(t, value.KindInteger, vmed.Kind)
	assert.Equal(t, walked.Int.Int64(), vmed.Int.Int64())
}

func TestSemanticEquivalenceAcrossScenarios(t *testing.T) {
	scenarios := []string{
		`pali sin li pini`,
		`ijo A li nanpa luka tu wan. o pana e ijo A. pali sin li pini`,
		`ijo A li nanpa wan en nanpa tu. ijo E li ijo A en nanpa wan. o pana e ijo E. pali sin li pini`,
		`ijo A li kulupu. ijo A pi nanpa ala li nimi "x". o pana e ijo A pi nanpa ala. pali sin li pini`,
	}
	for _, src := range scenarios {
		walked := runWalk(t, src)
		vmed := runVM(t, src)
		assert.True(t, value.Equal(walked, vmed), "mismatch for %q: walk=%v vm=%v", src, walked, vmed)
	}
}

// A table assignment must leave the data stack exactly as it found it:
// opTableSet pops its index, container, and value and pushes nothing back.
// kipisi with no kepeken clauses reads its start/stop bounds off whatever
// is already on the stack, so a residual value surviving the assignment
// would be misread as a spurious start argument by the very next sentence.
func TestSemanticEquivalenceStringSliceAfterTableAssignment(t *testing.T) {
	const src = `ijo A li kulupu.
ijo A pi nanpa ala li nanpa tu.
ijo E li kipisi e nimi "hello".
o pana e ijo E.
pali sin li pini`
	walked := runWalk(t, src)
	vmed := runVM(t, src)
	require.Equal(t, value.KindString, walked.Kind)
	require.Equal(t, value.KindString, vmed.Kind)
	assert.Equal(t, "hello", walked.Str)
	assert.Equal(t, "hello", vmed.Str)
}

// siblingCallSrc calls a sibling paragraph (Tomo, not itself) and discards
// the result before recursing through "pali ni". Returning from Tomo must
// restore the caller's paragraph index, or the subsequent RecursiveExpr
// would resolve to Tomo instead of the root paragraph, feeding the
// argument-less Tomo a stray argument and truncating the recursion after a
// single step.
const siblingCallSrc = `pali ni li kepeken e ijo O.
ijo Tomo li pali sin.
o pana e nimi "helper".
pali sin li pini.
ijo Walo li pali e ijo Tomo.
ijo Lete li ijo O en nanpa wan ala.
ijo O li suli la ijo Sina li pali e pali ni kepeken ijo Lete.
ijo O li suli la o pana e ijo Sina.
o pana e ijo O.
pali sin li pini`

func TestSemanticEquivalenceRecursiveExprAfterSiblingCallReturns(t *testing.T) {
	ten := value.NewIntegerInt64(10)
	walked := runWalk(t, siblingCallSrc, ten)
	vmed := runVM(t, siblingCallSrc, ten)
	require.Equal(t, value.KindInteger, walked.Kind, "walker result: %v", walked)
	require.Equal(t, value.KindInteger, vmed.Kind, "vm result: %v (expected an integer, not the helper's string)", vmed)
	assert.Equal(t, walked.Int.Int64(), vmed.Int.Int64())
	assert.Equal(t, int64(0), vmed.Int.Int64())
}

func TestVMBadOpcodePanics(t *testing.T) {
	image := mustCompileEmpty(t)
	// The root paragraph's body ends with the synthetic "pana none":
	// push-none, pana, discard. Corrupting the push-none opcode byte (the
	// one three bytes from the end) with an unused command opcode forces
	// the decode loop to hit its unhandled-opcode panic before the
	// program ever has the chance to return normally via opPana.
	require.True(t, len(image) >= 3)
	image[len(image)-3] = 0xFF
	prog, err := Load(image)
	require.NoError(t, err)
	assert.Panics(t, func() { New(prog).Run() })
}

func mustCompileEmpty(t *testing.T) []byte {
	t.Helper()
	root, err := parser.Parse(`pali sin li pini`)
	require.Nil(t, err)
	return compiler.Compile(root)
}
