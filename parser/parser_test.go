package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasinpali/pali/ast"
)

func mustParse(t *testing.T, src string) *ast.Paragraph {
	t.Helper()
	root, err := Parse(src)
	require.Nil(t, err, "unexpected parse error: %v", err)
	require.NotNil(t, root)
	return root
}

func TestParseEmptyProgram(t *testing.T) {
	root := mustParse(t, "pali sin li pini")
	assert.Empty(t, root.Arguments)
	assert.Empty(t, root.Sentences)
}

func TestParseStringLiteralSentence(t *testing.T) {
	root := mustParse(t, `o sitelen e nimi "hi".
pali sin li pini`)
	require.Len(t, root.Sentences, 1)
	verb, ok := root.Sentences[0].Expr.(*ast.VerbExpr)
	require.True(t, ok)
	assert.Equal(t, ast.VerbSitelen, verb.Verb)
	lit, ok := verb.First.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, ast.LiteralString, lit.Kind)
	assert.Equal(t, "hi", lit.Str)
}

func TestParseNumeralNonIncreasingSum(t *testing.T) {
	root := mustParse(t, `ijo A li nanpa ali mute mute luka tu wan.
pali sin li pini`)
	require.Len(t, root.Sentences, 1)
	lit := root.Sentences[0].Expr.(*ast.LiteralExpr)
	assert.Equal(t, ast.LiteralInteger, lit.Kind)
	assert.Equal(t, int64(148), lit.Int.Int64())
}

func TestParseNumeralIncreasingOrderIsError(t *testing.T) {
	_, err := Parse(`ijo A li nanpa wan tu.
pali sin li pini`)
	require.NotNil(t, err)
}

func TestParseRandomNumeral(t *testing.T) {
	root := mustParse(t, `ijo A li nanpa nasa.
pali sin li pini`)
	_, ok := root.Sentences[0].Expr.(*ast.RandomExpr)
	assert.True(t, ok)
}

func TestParseVariableScopeQualifiers(t *testing.T) {
	root := mustParse(t, `ijo A li ijo lili E.
pali sin li pini`)
	v := root.Sentences[0].Expr.(*ast.VariableExpr)
	assert.Equal(t, ast.ScopeLocal, v.Scope)
	assert.Equal(t, "E", v.Identifier)
}

func TestParsePiLeftAssociative(t *testing.T) {
	root := mustParse(t, `ijo A li ijo E pi ijo I pi ijo U.
pali sin li pini`)
	outer := root.Sentences[0].Expr.(*ast.BinExpr)
	assert.Equal(t, ast.OpPi, outer.Op)
	inner, ok := outer.Left.(*ast.BinExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpPi, inner.Op)
}

func TestParseEnChain(t *testing.T) {
	root := mustParse(t, `ijo A li ijo E en ijo I.
pali sin li pini`)
	bin := root.Sentences[0].Expr.(*ast.BinExpr)
	assert.Equal(t, ast.OpEn, bin.Op)
}

func TestParseAlaNegation(t *testing.T) {
	root := mustParse(t, `ijo A li lon ala.
pali sin li pini`)
	neg, ok := root.Sentences[0].Expr.(*ast.NegateExpr)
	require.True(t, ok)
	lit := neg.Expr.(*ast.LiteralExpr)
	assert.Equal(t, ast.LiteralTruth, lit.Kind)
}

func TestParseVerbWithArguments(t *testing.T) {
	root := mustParse(t, `o kipisi e ijo A kepeken ijo E kepeken ijo I.
pali sin li pini`)
	verb := root.Sentences[0].Expr.(*ast.VerbExpr)
	assert.Equal(t, ast.VerbKipisi, verb.Verb)
	require.Len(t, verb.Args, 2)
}

func TestParseBareVerbAsRecursionQuirk(t *testing.T) {
	// Within a larger expression, "pali ni" with no "e"/"kepeken"
	// following reads as recursion, not as a zero-argument call.
	root := mustParse(t, `ijo A li pali ni.
pali sin li pini`)
	_, ok := root.Sentences[0].Expr.(*ast.RecursiveExpr)
	assert.True(t, ok)
}

func TestParseSentenceBodyVerbTriedFirst(t *testing.T) {
	// A bare sentence body of "pali ni" with no "e" following parses as
	// a zero-argument VerbExpr, not as a RecursiveExpr, because
	// parseSentenceBody tries the verb words before a plain expression.
	root := mustParse(t, `o pali ni.
pali sin li pini`)
	verb, ok := root.Sentences[0].Expr.(*ast.VerbExpr)
	require.True(t, ok)
	assert.Equal(t, ast.VerbPali, verb.Verb)
	assert.Nil(t, verb.First)
}

func TestParseTableAssignment(t *testing.T) {
	root := mustParse(t, `ijo Tomo pi nanpa ala li nimi "x".
pali sin li pini`)
	require.Len(t, root.Sentences, 1)
	asg, ok := root.Sentences[0].Assignment.(*ast.TableAssignment)
	require.True(t, ok)
	varExpr, ok := asg.Table.(*ast.VariableExpr)
	require.True(t, ok)
	assert.Equal(t, "Tomo", varExpr.Identifier)
	idx := asg.Index.(*ast.LiteralExpr)
	assert.Equal(t, ast.LiteralInteger, idx.Kind)
	assert.Equal(t, int64(0), idx.Int.Int64())
}

func TestParseConditionGuardedSentence(t *testing.T) {
	root := mustParse(t, `ijo A li lon la o sitelen e nimi "yes".
pali sin li pini`)
	s := root.Sentences[0]
	require.Len(t, s.Conditions, 1)
	_, ok := s.Conditions[0].(*ast.BinExpr)
	require.True(t, ok)
}

func TestParseConditionComparison(t *testing.T) {
	root := mustParse(t, `ijo A li suli la o sitelen e nimi "big".
pali sin li pini`)
	s := root.Sentences[0]
	require.Len(t, s.Conditions, 1)
	cmp, ok := s.Conditions[0].(*ast.ComparisonExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpSuli, cmp.Op)
}

func TestParseParagraphHeaderArguments(t *testing.T) {
	root := mustParse(t, `pali ni li kepeken e ijo A e ijo E.
o sitelen e ijo A.
pali sin li pini`)
	require.Len(t, root.Arguments, 2)
	assert.Equal(t, "A", root.Arguments[0].Identifier)
	assert.Equal(t, "E", root.Arguments[1].Identifier)
	require.Len(t, root.Sentences, 1)
}

func TestParseNestedParagraphLiteral(t *testing.T) {
	root := mustParse(t, `ijo A li pali sin.
o sitelen e nimi "inner".
pali sin li pini.
pali sin li pini`)
	lit, ok := root.Sentences[0].Expr.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, ast.LiteralParagraph, lit.Kind)
	require.NotNil(t, lit.Par)
	require.Len(t, lit.Par.Sentences, 1)
}

func TestParseImmediatelyInvokedParagraph(t *testing.T) {
	root := mustParse(t, `ijo A li pali e pali sin kepeken nimi "z".
o pana e nimi "z".
pali sin li pini.
pali sin li pini`)
	verb, ok := root.Sentences[0].Expr.(*ast.VerbExpr)
	require.True(t, ok)
	assert.Equal(t, ast.VerbPali, verb.Verb)
	lit, ok := verb.First.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, ast.LiteralParagraph, lit.Kind)
	require.Len(t, verb.Args, 1)
}

func TestParseErrorReportsFurthestPosition(t *testing.T) {
	_, err := Parse(`ijo A li nimi "unterminated
pali sin li pini`)
	require.NotNil(t, err)
}

func TestParseRecursionExample(t *testing.T) {
	root := mustParse(t, `pali ni li kepeken e ijo O.
ijo O li suli la o pana e ijo O.
pali sin li pini`)
	require.Len(t, root.Arguments, 1)
	require.Len(t, root.Sentences, 1)
	s := root.Sentences[0]
	require.Len(t, s.Conditions, 1)
	verb := s.Expr.(*ast.VerbExpr)
	assert.Equal(t, ast.VerbPana, verb.Verb)
}
