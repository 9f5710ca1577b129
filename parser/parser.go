// Package parser implements the language grammar on top of the
// combinator package: identifiers, numerals, strings, expressions,
// sentences, and paragraphs, producing an *ast.Paragraph.
//
// Expression chains (pi/en, ala negation) and the assignment/condition
// builders are written as hand-rolled associativity loops over the
// combinator primitives rather than forced through a combinator for
// every rule, matching how mixed-style recursive-descent grammars are
// usually composed.
package parser

import (
	"math/big"

	"github.com/nasinpali/pali/ast"
	"github.com/nasinpali/pali/combinator"
)

// Parser holds the source text; its methods thread a combinator.Position
// through each grammar rule.
type Parser struct {
	text string
}

// New creates a parser over source text.
func New(text string) *Parser {
	return &Parser{text: text}
}

// result is what every grammar rule returns: the position past the match
// and the matched value, or an error.
type result struct {
	pos   combinator.Position
	value interface{}
	err   *combinator.ParseError
}

func errAt(pos combinator.Position, msg string) result {
	return result{err: &combinator.ParseError{Pos: pos, Message: msg}}
}

func okAt(pos combinator.Position, v interface{}) result {
	return result{pos: pos, value: v}
}

func (p *Parser) apply(cp combinator.Parser, pos combinator.Position) result {
	r := cp(combinator.Input{Text: p.text, Pos: pos})
	return result{pos: r.Pos, value: r.Value, err: r.Err}
}

var whitespaceSeparator = combinator.Chain(combinator.Whitespace(), combinator.SkipWhitespace())

// separated requires at least one whitespace character before running f.
func (p *Parser) separated(pos combinator.Position, f func(combinator.Position) result) result {
	ws := p.apply(whitespaceSeparator, pos)
	if ws.err != nil {
		return result{err: ws.err}
	}
	return f(ws.pos)
}

func (p *Parser) word(pos combinator.Position, w string) result {
	return p.apply(combinator.Word(w), pos)
}

// words matches a sequence of keyword literals, each after the first
// requiring a whitespace boundary.
func (p *Parser) words(pos combinator.Position, ws ...string) result {
	r := p.word(pos, ws[0])
	if r.err != nil {
		return r
	}
	matched := []interface{}{ws[0]}
	cur := r.pos
	for _, w := range ws[1:] {
		r = p.separated(cur, func(pos combinator.Position) result { return p.word(pos, w) })
		if r.err != nil {
			return r
		}
		matched = append(matched, w)
		cur = r.pos
	}
	return okAt(cur, matched)
}

// ParseProgram parses the whole program: leading whitespace then a
// top-level paragraph.
func (p *Parser) ParseProgram() (*ast.Paragraph, *combinator.ParseError) {
	ws := p.apply(combinator.SkipWhitespace(), combinator.Start())
	r := p.parseParagraph(ws.pos)
	if r.err != nil {
		return nil, r.err
	}
	return r.value.(*ast.Paragraph), nil
}

// Parse is a package-level convenience wrapping New(text).ParseProgram().
func Parse(text string) (*ast.Paragraph, *combinator.ParseError) {
	return New(text).ParseProgram()
}

// --- string literals ---

var escapes = map[byte]byte{'\\': '\\', '"': '"', 'n': '\n'}

func (p *Parser) parseStringBody(pos combinator.Position) result {
	var out []byte
	i := pos.Offset
	text := p.text
	cur := pos
	for {
		if i >= len(text) {
			return errAt(cur, "Unexpected EOF while parsing a string")
		}
		if text[i] == '"' {
			cur = combinator.Advance(cur, `"`)
			return okAt(cur, string(out))
		}
		if text[i] == '\\' {
			if i+1 >= len(text) {
				return errAt(combinator.Advance(cur, `\`), "Incorrect escape sequence. Did you mean \"\\\\\"?")
			}
			esc, ok := escapes[text[i+1]]
			if !ok {
				return errAt(combinator.Advance(cur, `\`), "Incorrect escape sequence. Did you mean \"\\\\\"?")
			}
			out = append(out, esc)
			cur = combinator.Advance(cur, text[i:i+2])
			i += 2
			continue
		}
		out = append(out, text[i])
		cur = combinator.Advance(cur, text[i:i+1])
		i++
	}
}

func (p *Parser) parseString(pos combinator.Position) result {
	r := p.word(pos, "nimi")
	if r.err != nil {
		return r
	}
	r = p.separated(r.pos, func(pos combinator.Position) result { return p.apply(combinator.Char('"'), pos) })
	if r.err != nil {
		return r
	}
	r = p.parseStringBody(r.pos)
	if r.err != nil {
		return r
	}
	return okAt(r.pos, &ast.LiteralExpr{Kind: ast.LiteralString, Str: r.value.(string)})
}

// --- numerals ---

var numberWords = []string{"ali", "ale", "mute", "luka", "tu", "wan"}
var numberValues = map[string]int64{"ali": 100, "ale": 100, "mute": 20, "luka": 5, "tu": 2, "wan": 1}

func (p *Parser) parseAnyWord(pos combinator.Position, words []string) result {
	for _, w := range words {
		r := p.word(pos, w)
		if r.err == nil {
			return r
		}
	}
	return errAt(pos, "expected one of the listed words")
}

func (p *Parser) parseIntBody(pos combinator.Position) result {
	words := append(append([]string{}, numberWords...), "ala", "nasa")
	r := p.parseAnyWord(pos, words)
	if r.err != nil {
		return r
	}
	word := r.value.(string)
	switch word {
	case "ala":
		return okAt(r.pos, int64(0))
	case "nasa":
		return okAt(r.pos, "nasa")
	}
	sum := numberValues[word]
	cur := r.pos
	prev := numberValues[word]
	for {
		next := p.separated(cur, func(pos combinator.Position) result { return p.parseAnyWord(pos, numberWords) })
		if next.err != nil {
			return okAt(cur, sum)
		}
		w := next.value.(string)
		if numberValues[w] > prev {
			return errAt(cur, "Number words must be in a non-increasing order")
		}
		prev = numberValues[w]
		sum += numberValues[w]
		cur = next.pos
	}
}

func (p *Parser) parseInt(pos combinator.Position) result {
	r := p.word(pos, "nanpa")
	if r.err != nil {
		return r
	}
	r = p.separated(r.pos, p.parseIntBody)
	if r.err != nil {
		return r
	}
	if s, ok := r.value.(string); ok && s == "nasa" {
		return okAt(r.pos, &ast.RandomExpr{})
	}
	return okAt(r.pos, &ast.LiteralExpr{Kind: ast.LiteralInteger, Int: big.NewInt(r.value.(int64))})
}

// --- identifiers and variables ---

func (p *Parser) parseIdentifier(pos combinator.Position) result {
	m, n := scanIdentifier(p.text, pos.Offset)
	if n == 0 {
		return errAt(pos, "Expected an identifier")
	}
	return okAt(combinator.Advance(pos, m), m)
}

func (p *Parser) parseVariable(pos combinator.Position) result {
	r := p.word(pos, "ijo")
	if r.err != nil {
		return r
	}
	cur := r.pos
	scope := ast.ScopeUnspecified
	if lili := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "lili") }); lili.err == nil {
		scope = ast.ScopeLocal
		cur = lili.pos
	} else if suli := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "suli") }); suli.err == nil {
		scope = ast.ScopeGlobal
		cur = suli.pos
	}
	id := p.separated(cur, p.parseIdentifier)
	if id.err != nil {
		return id
	}
	return okAt(id.pos, &ast.VariableExpr{Scope: scope, Identifier: id.value.(string)})
}

// --- expressions ---

func (p *Parser) parseSimpleExpression(pos combinator.Position) result {
	if r := p.parseInt(pos); r.err == nil {
		return result{pos: r.pos, value: toExpr(r.value)}
	}
	if r := p.parseString(pos); r.err == nil {
		return r
	}
	if r := p.word(pos, "ala"); r.err == nil {
		return okAt(r.pos, &ast.LiteralExpr{Kind: ast.LiteralNone})
	}
	if r := p.word(pos, "lon"); r.err == nil {
		return okAt(r.pos, &ast.LiteralExpr{Kind: ast.LiteralTruth})
	}
	if r := p.word(pos, "kulupu"); r.err == nil {
		return okAt(r.pos, &ast.LiteralExpr{Kind: ast.LiteralEmptyTable})
	}
	if r := p.words(pos, "pali", "ni"); r.err == nil {
		return okAt(r.pos, &ast.RecursiveExpr{})
	}
	if r := p.parseVariable(pos); r.err == nil {
		return r
	}
	return errAt(pos, "Expected a value: a number, string, \"ala\", \"lon\", \"kulupu\", \"pali ni\", or a variable")
}

func toExpr(v interface{}) ast.Expr {
	switch t := v.(type) {
	case ast.Expr:
		return t
	default:
		panic("langparser: not an expression")
	}
}

func (p *Parser) parsePiExpression(pos combinator.Position) result {
	r := p.parseSimpleExpression(pos)
	if r.err != nil {
		return r
	}
	value := toExpr(r.value)
	cur := r.pos
	for {
		pi := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "pi") })
		if pi.err != nil {
			return okAt(cur, value)
		}
		next := p.separated(pi.pos, p.parseSimpleExpression)
		if next.err != nil {
			return next
		}
		value = &ast.BinExpr{Op: ast.OpPi, Left: value, Right: toExpr(next.value)}
		cur = next.pos
	}
}

func (p *Parser) parseAlaExpression(pos combinator.Position) result {
	r := p.parsePiExpression(pos)
	if r.err != nil {
		return r
	}
	value := toExpr(r.value)
	cur := r.pos
	for {
		ala := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "ala") })
		if ala.err != nil {
			return okAt(cur, value)
		}
		value = &ast.NegateExpr{Expr: value}
		cur = ala.pos
	}
}

func (p *Parser) parseExpression(pos combinator.Position) result {
	r := p.parseAlaExpression(pos)
	if r.err != nil {
		return r
	}
	value := toExpr(r.value)
	cur := r.pos
	for {
		en := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "en") })
		if en.err != nil {
			return okAt(cur, value)
		}
		next := p.separated(en.pos, p.parseAlaExpression)
		if next.err != nil {
			return next
		}
		value = &ast.BinExpr{Op: ast.OpEn, Left: value, Right: toExpr(next.value)}
		cur = next.pos
	}
}

// --- verbs, arguments, sentence bodies ---

var verbWords = []string{"pali", "pana", "lukin", "sitelen", "kipisi", "open", "pini"}

func (p *Parser) parseArguments(pos combinator.Position) result {
	var args []ast.Expr
	cur := pos
	for {
		kep := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "kepeken") })
		if kep.err != nil {
			return okAt(cur, args)
		}
		arg := p.separated(kep.pos, p.parseExpression)
		if arg.err != nil {
			return arg
		}
		args = append(args, toExpr(arg.value))
		cur = arg.pos
	}
}

// parseSentenceBody implements the third sentence-body alternative: a verb
// application or a plain expression. A verb keyword is tried before a
// plain expression, so a body that is literally "pali ni" with no
// "e"/"kepeken" following parses as VerbExpr("pali", nil, nil), a
// zero-argument call, not as a RecursiveExpr — only within a larger
// expression (after "e" or "kepeken") does "pali ni" read as recursion.
func (p *Parser) parseSentenceBody(pos combinator.Position) result {
	var verb ast.Verb
	if r := p.parseAnyWord(pos, verbWords); r.err == nil {
		verb = ast.Verb(r.value.(string))
		pos = r.pos
	} else if r := p.parseExpression(pos); r.err == nil {
		return r
	} else {
		return errAt(pos, "Expected a verb or an expression")
	}

	var first ast.Expr
	eResult := p.separated(pos, func(pos combinator.Position) result { return p.word(pos, "e") })
	if eResult.err != nil {
		return okAt(pos, &ast.VerbExpr{Verb: verb})
	}
	firstResult := p.separated(eResult.pos, p.parseExpression)
	if firstResult.err != nil {
		return firstResult
	}
	first = toExpr(firstResult.value)
	args := p.parseArguments(firstResult.pos)
	if args.err != nil {
		return args
	}
	var argExprs []ast.Expr
	if args.value != nil {
		argExprs = args.value.([]ast.Expr)
	}
	return okAt(args.pos, &ast.VerbExpr{Verb: verb, First: first, Args: argExprs})
}

// --- assignment targets ---

func (p *Parser) parseAssignment(pos combinator.Position) result {
	r := p.parseVariable(pos)
	if r.err != nil {
		return r
	}
	varExpr := r.value.(*ast.VariableExpr)
	pi := p.separated(r.pos, func(pos combinator.Position) result { return p.word(pos, "pi") })
	if pi.err != nil {
		return okAt(r.pos, varExpr)
	}
	idx := p.separated(pi.pos, p.parseSimpleExpression)
	if idx.err != nil {
		return idx
	}
	var table ast.Expr = varExpr
	index := toExpr(idx.value)
	cur := idx.pos
	for {
		pi := p.separated(cur, func(pos combinator.Position) result { return p.word(pos, "pi") })
		if pi.err != nil {
			return okAt(cur, &ast.TableAssignment{Table: table, Index: index})
		}
		next := p.separated(pi.pos, p.parseSimpleExpression)
		if next.err != nil {
			return next
		}
		table = &ast.BinExpr{Op: ast.OpPi, Left: table, Right: index}
		index = toExpr(next.value)
		cur = next.pos
	}
}

// --- conditions ---

func (p *Parser) parseCondition(pos combinator.Position) result {
	r := p.parseExpression(pos)
	if r.err != nil {
		return r
	}
	expr := toExpr(r.value)
	li := p.separated(r.pos, func(pos combinator.Position) result { return p.word(pos, "li") })
	if li.err != nil {
		return okAt(r.pos, expr)
	}
	tail := p.separated(li.pos, func(pos combinator.Position) result {
		if r := p.word(pos, "lili"); r.err == nil {
			return r
		}
		if r := p.word(pos, "suli"); r.err == nil {
			return r
		}
		return p.parseExpression(pos)
	})
	if tail.err != nil {
		return okAt(r.pos, expr)
	}
	switch v := tail.value.(type) {
	case string:
		if v == "lili" {
			return okAt(tail.pos, &ast.ComparisonExpr{Op: ast.OpLili, Expr: expr})
		}
		return okAt(tail.pos, &ast.ComparisonExpr{Op: ast.OpSuli, Expr: expr})
	default:
		return okAt(tail.pos, &ast.BinExpr{Op: ast.OpLi, Left: expr, Right: toExpr(v)})
	}
}

// --- sentences and paragraphs ---

func (p *Parser) parseSentence(pos combinator.Position) result {
	var conditions []ast.Expr
	cur := pos
	for {
		cond := p.parseCondition(cur)
		if cond.err != nil {
			break
		}
		la := p.separated(cond.pos, func(pos combinator.Position) result { return p.word(pos, "la") })
		if la.err != nil {
			break
		}
		conditions = append(conditions, toExpr(cond.value))
		cur = la.pos
		if sep := p.apply(whitespaceSeparator, la.pos); sep.err == nil {
			cur = sep.pos
		}
	}

	var assignment ast.AssignTarget
	oResult := p.word(cur, "o")
	if oResult.err == nil {
		cur = oResult.pos
	} else {
		asg := p.parseAssignment(cur)
		if asg.err != nil {
			return asg
		}
		li := p.separated(asg.pos, func(pos combinator.Position) result { return p.word(pos, "li") })
		if li.err != nil {
			return li
		}
		assignment = asg.value.(ast.AssignTarget)
		cur = li.pos
	}

	var expr ast.Expr
	bodyPos := cur
	if r := p.separated(bodyPos, func(pos combinator.Position) result { return p.words(pos, "pali", "sin") }); r.err == nil {
		par := p.parseNestedParagraph(r.pos)
		if par.err != nil {
			return par
		}
		expr = &ast.LiteralExpr{Kind: ast.LiteralParagraph, Par: par.value.(*ast.Paragraph)}
		cur = par.pos
	} else if r := p.separated(bodyPos, func(pos combinator.Position) result { return p.words(pos, "pali", "e", "pali", "sin") }); r.err == nil {
		args := p.parseArguments(r.pos)
		if args.err != nil {
			return args
		}
		par := p.parseNestedParagraph(args.pos)
		if par.err != nil {
			return par
		}
		var argExprs []ast.Expr
		if args.value != nil {
			argExprs = args.value.([]ast.Expr)
		}
		expr = &ast.VerbExpr{
			Verb:  ast.VerbPali,
			First: &ast.LiteralExpr{Kind: ast.LiteralParagraph, Par: par.value.(*ast.Paragraph)},
			Args:  argExprs,
		}
		cur = par.pos
	} else {
		body := p.separated(bodyPos, p.parseSentenceBody)
		if body.err != nil {
			return body
		}
		expr = toExpr(body.value)
		cur = body.pos
	}

	term := p.apply(combinator.SkipWhitespace(), cur)
	dot := p.apply(combinator.Char('.'), term.pos)
	if dot.err != nil {
		return result{err: dot.err}
	}
	return okAt(dot.pos, &ast.Sentence{Conditions: conditions, Assignment: assignment, Expr: expr})
}

// parseNestedParagraph consumes the "." before a nested paragraph body and
// parses it, used after "pali sin" / "pali e pali sin <args>".
func (p *Parser) parseNestedParagraph(pos combinator.Position) result {
	ws := p.apply(combinator.SkipWhitespace(), pos)
	dot := p.apply(combinator.Char('.'), ws.pos)
	if dot.err != nil {
		return result{err: dot.err}
	}
	return p.separated(dot.pos, p.parseParagraph)
}

// parseParagraph parses an optional formal-parameter header followed by
// sentences until the "pali sin li pini" terminator (or end of input).
func (p *Parser) parseParagraph(pos combinator.Position) result {
	var arguments []*ast.VariableExpr
	cur := pos
	if header := p.words(pos, "pali", "ni"); header.err == nil {
		first := p.separated(header.pos, func(pos combinator.Position) result {
			return p.words(pos, "li", "kepeken", "e", "ijo")
		})
		if first.err != nil {
			return first
		}
		id := p.separated(first.pos, p.parseIdentifier)
		if id.err != nil {
			return id
		}
		arguments = append(arguments, &ast.VariableExpr{Scope: ast.ScopeUnspecified, Identifier: id.value.(string)})
		cur = id.pos
		for {
			if dot := p.apply(combinator.Chain(combinator.SkipWhitespace(), combinator.Char('.')), cur); dot.err == nil {
				cur = dot.pos
				break
			}
			more := p.separated(cur, func(pos combinator.Position) result { return p.words(pos, "e", "ijo") })
			if more.err != nil {
				return more
			}
			id := p.separated(more.pos, p.parseIdentifier)
			if id.err != nil {
				return id
			}
			arguments = append(arguments, &ast.VariableExpr{Scope: ast.ScopeUnspecified, Identifier: id.value.(string)})
			cur = id.pos
		}
		sep := p.apply(whitespaceSeparator, cur)
		if sep.err != nil {
			return result{err: sep.err}
		}
		cur = sep.pos
	}

	var sentences []*ast.Sentence
	for cur.Offset < len(p.text) {
		if term := p.words(cur, "pali", "sin", "li", "pini"); term.err == nil {
			cur = term.pos
			break
		}
		s := p.parseSentence(cur)
		if s.err != nil {
			return s
		}
		sentences = append(sentences, s.value.(*ast.Sentence))
		cur = s.pos
		if cur.Offset == len(p.text) {
			break
		}
		sep := p.apply(whitespaceSeparator, cur)
		if sep.err != nil {
			return result{err: sep.err}
		}
		cur = sep.pos
	}
	return okAt(cur, &ast.Paragraph{Arguments: arguments, Sentences: sentences})
}
