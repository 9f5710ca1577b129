// Package compiler emits the self-describing bytecode format: paragraph
// and identifier dictionaries built by a single walk of the AST, then
// post-order opcode emission, then a header giving each integer field's
// byte width.
package compiler

import (
	"github.com/nasinpali/pali/ast"
)

// Opcode values, mirrored by the vm package for decoding.
const (
	opPushTruth      = 0
	opPushEmptyTable = 1
	opPushNone       = 2
	opPushParagraph  = 3
	opPushVarFirst   = 4
	opPushVarLocal   = 5
	opPushVarGlobal  = 6
	opPushRandom     = 8
	opPushCurrentPar = 9
	opSuli           = 10
	opLili           = 11
	opEqual          = 12
	opNegate         = 13
	opEn             = 14
	opPi             = 15
	opTableSet       = 16
	opAssignFirst    = 17
	opAssignLocal    = 18
	opAssignGlobal   = 19
	opDiscard        = 22
	opStackClear     = 23
	opPali           = 48
	opPana           = 49
	opLukin          = 50
	opSitelen        = 51
	opKipisi         = 52
	opOpen           = 53
	opPini           = 54
	opCommand        = 0x80
)

var verbOpcode = map[ast.Verb]byte{
	ast.VerbPali:    opPali,
	ast.VerbPana:    opPana,
	ast.VerbLukin:   opLukin,
	ast.VerbSitelen: opSitelen,
	ast.VerbKipisi:  opKipisi,
	ast.VerbOpen:    opOpen,
	ast.VerbPini:    opPini,
}

var binOpcode = map[ast.BinOp]byte{
	ast.OpEn: opEn,
	ast.OpPi: opPi,
	ast.OpLi: opEqual,
}

// Lencode byte constants: 5-bit type | 3-bit immediate length.
const (
	lencodeInt = 0x00
	lencodeStr = 0x08
	lencodeJmp = 0x10
	lencodeJez = 0x18
)

var variableOpcode = map[ast.Scope]byte{
	ast.ScopeUnspecified: opPushVarFirst,
	ast.ScopeLocal:       opPushVarLocal,
	ast.ScopeGlobal:      opPushVarGlobal,
}

var assignOpcode = map[ast.Scope]byte{
	ast.ScopeUnspecified: opAssignFirst,
	ast.ScopeLocal:       opAssignLocal,
	ast.ScopeGlobal:      opAssignGlobal,
}

// intToBytes big-endian-encodes n using the minimum number of bytes (zero
// bytes for n == 0).
func intToBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	var out []byte
	for n > 0 {
		out = append([]byte{byte(n % 256)}, out...)
		n /= 256
	}
	return out
}

// varLen returns the minimum number of bytes needed to hold the largest
// index in a dictionary of the given size (0 if the dictionary is empty).
func varLen(count int) int {
	n := count - 1
	length := 0
	for n > 0 {
		length++
		n /= 256
	}
	return length
}

// dictionary assigns a stable index to every distinct identifier and
// every Paragraph-typed AST node encountered, in first-encountered order,
// shared across the whole program (a single recursive walk, including
// into nested paragraph-literal bodies).
type dictionary struct {
	vars    map[string]int
	pars    map[*ast.Paragraph]int
	parList []*ast.Paragraph
}

func newDictionary() *dictionary {
	return &dictionary{vars: make(map[string]int), pars: make(map[*ast.Paragraph]int)}
}

func (d *dictionary) varIndex(id string) int {
	if idx, ok := d.vars[id]; ok {
		return idx
	}
	idx := len(d.vars)
	d.vars[id] = idx
	return idx
}

func (d *dictionary) parIndex(p *ast.Paragraph) int {
	if idx, ok := d.pars[p]; ok {
		return idx
	}
	idx := len(d.pars)
	d.pars[p] = idx
	d.parList = append(d.parList, p)
	return idx
}

func makeDictionary(expr ast.Expr, d *dictionary) {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		if e.Kind == ast.LiteralParagraph {
			makeDictionaryParagraph(e.Par, d)
		}
	case *ast.VariableExpr:
		d.varIndex(e.Identifier)
	case *ast.RandomExpr, *ast.RecursiveExpr:
		// no identifiers or paragraphs to register
	case *ast.NegateExpr:
		makeDictionary(e.Expr, d)
	case *ast.BinExpr:
		makeDictionary(e.Left, d)
		makeDictionary(e.Right, d)
	case *ast.ComparisonExpr:
		makeDictionary(e.Expr, d)
	case *ast.VerbExpr:
		if e.First != nil {
			makeDictionary(e.First, d)
		}
		for _, a := range e.Args {
			makeDictionary(a, d)
		}
	case *ast.TableAssignment:
		makeDictionary(e.Table, d)
		makeDictionary(e.Index, d)
	default:
		panic("compiler: unhandled expression node in makeDictionary")
	}
}

func makeDictionarySentence(s *ast.Sentence, d *dictionary) {
	for _, cond := range s.Conditions {
		makeDictionary(cond, d)
	}
	if s.Assignment != nil {
		makeDictionary(s.Assignment.(ast.Expr), d)
	}
	makeDictionary(s.Expr, d)
}

func makeDictionaryParagraph(p *ast.Paragraph, d *dictionary) {
	d.parIndex(p)
	for _, arg := range p.Arguments {
		makeDictionary(arg, d)
	}
	for _, s := range p.Sentences {
		makeDictionarySentence(s, d)
	}
}

// Compile assembles the full bytecode image for the root paragraph:
// build the shared dictionary, size var_len/par_len, compile every
// paragraph body consecutively in dictionary-index order, size adr_len
// from the resulting code, then assemble header + paragraph table + code.
func Compile(root *ast.Paragraph) []byte {
	d := newDictionary()
	makeDictionaryParagraph(root, d)

	varL := varLen(len(d.vars))
	if varL >= 256 {
		panic("compiler: too many identifiers for an 8-bit var_len")
	}
	parL := varLen(len(d.pars))
	if parL < 1 {
		parL = 1
	}
	if parL >= 256 {
		panic("compiler: too many paragraphs for an 8-bit par_len")
	}

	var code []byte
	addresses := make([]int, len(d.parList))
	for i, p := range d.parList {
		addresses[i] = len(code)
		code = append(code, compileParagraph(p, d, varL, parL)...)
	}

	adrL := varLen(len(code))
	if adrL >= 256 {
		panic("compiler: code region too large for an 8-bit adr_len")
	}

	parTable := make([]byte, 0, len(addresses)*adrL)
	for _, adr := range addresses {
		parTable = append(parTable, padBytes(intToBytes(adr), adrL)...)
	}

	header := []byte{0, byte(varL), byte(adrL), byte(parL)}
	parCount := padBytes(intToBytes(len(addresses)), parL)

	out := make([]byte, 0, len(header)+len(parCount)+len(parTable)+len(code))
	out = append(out, header...)
	out = append(out, parCount...)
	out = append(out, parTable...)
	out = append(out, code...)
	return out
}

func padBytes(b []byte, width int) []byte {
	if len(b) >= width {
		return b
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}

func compileExpr(expr ast.Expr, d *dictionary, varL, parL int) []byte {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return compileLiteral(e, d, parL)
	case *ast.VariableExpr:
		op := variableOpcode[e.Scope]
		return append([]byte{op + opCommand}, padBytes(intToBytes(d.varIndex(e.Identifier)), varL)...)
	case *ast.RandomExpr:
		return []byte{opPushRandom + opCommand}
	case *ast.RecursiveExpr:
		return []byte{opPushCurrentPar + opCommand}
	case *ast.NegateExpr:
		out := compileExpr(e.Expr, d, varL, parL)
		return append(out, opNegate+opCommand)
	case *ast.BinExpr:
		out := compileExpr(e.Left, d, varL, parL)
		out = append(out, compileExpr(e.Right, d, varL, parL)...)
		return append(out, binOpcode[e.Op]+opCommand)
	case *ast.ComparisonExpr:
		out := compileExpr(e.Expr, d, varL, parL)
		op := byte(opLili)
		if e.Op == ast.OpSuli {
			op = opSuli
		}
		return append(out, op+opCommand)
	case *ast.VerbExpr:
		return compileVerb(e, d, varL, parL)
	case *ast.TableAssignment:
		out := compileExpr(e.Table, d, varL, parL)
		out = append(out, compileExpr(e.Index, d, varL, parL)...)
		return append(out, opTableSet+opCommand)
	default:
		panic("compiler: unhandled expression node in compileExpr")
	}
}

func compileLiteral(e *ast.LiteralExpr, d *dictionary, parL int) []byte {
	switch e.Kind {
	case ast.LiteralTruth:
		return []byte{opPushTruth + opCommand}
	case ast.LiteralEmptyTable:
		return []byte{opPushEmptyTable + opCommand}
	case ast.LiteralNone:
		return []byte{opPushNone + opCommand}
	case ast.LiteralString:
		s := []byte(e.Str)
		encoded := intToBytes(len(s))
		out := append([]byte{byte(len(encoded)) + lencodeStr}, encoded...)
		return append(out, s...)
	case ast.LiteralInteger:
		encoded := intToBytes(int(e.Int.Int64()))
		return append([]byte{byte(len(encoded)) + lencodeInt}, encoded...)
	case ast.LiteralParagraph:
		idx := d.parIndex(e.Par)
		encoded := padBytes(intToBytes(idx), parL)
		return append([]byte{opPushParagraph + opCommand}, encoded...)
	default:
		panic("compiler: unhandled literal kind")
	}
}

func compileVerb(e *ast.VerbExpr, d *dictionary, varL, parL int) []byte {
	var out []byte
	for i := len(e.Args) - 1; i >= 0; i-- {
		out = append(out, compileExpr(e.Args[i], d, varL, parL)...)
	}
	if e.First != nil {
		out = append(out, compileExpr(e.First, d, varL, parL)...)
	} else {
		out = append(out, opPushNone+opCommand)
	}
	return append(out, verbOpcode[e.Verb]+opCommand)
}

// compileSentence emits the body, then an assignment opcode or a discard,
// then each condition (in reverse source order) followed by a
// conditional jump over everything compiled so far.
func compileSentence(s *ast.Sentence, d *dictionary, varL, parL int) []byte {
	condBytes := make([][]byte, len(s.Conditions))
	for i, c := range s.Conditions {
		condBytes[i] = compileExpr(c, d, varL, parL)
	}

	compiled := compileExpr(s.Expr, d, varL, parL)
	switch t := s.Assignment.(type) {
	case *ast.TableAssignment:
		compiled = append(compiled, compileExpr(t, d, varL, parL)...)
	case *ast.VariableExpr:
		op := assignOpcode[t.Scope]
		compiled = append(compiled, op+opCommand)
		compiled = append(compiled, padBytes(intToBytes(d.varIndex(t.Identifier)), varL)...)
	case nil:
		compiled = append(compiled, opDiscard+opCommand)
	}

	for i := len(condBytes) - 1; i >= 0; i-- {
		jumpDist := len(compiled)
		encoded := intToBytes(jumpDist)
		cond := append(condBytes[i], byte(len(encoded))+lencodeJez)
		cond = append(cond, encoded...)
		compiled = append(cond, compiled...)
	}
	return compiled
}

// compileParagraph emits argument bindings, a stack-clear, the compiled
// sentences, and a synthetic `pana none` fall-through return.
func compileParagraph(p *ast.Paragraph, d *dictionary, varL, parL int) []byte {
	var out []byte
	for _, arg := range p.Arguments {
		out = append(out, opAssignLocal+opCommand)
		out = append(out, padBytes(intToBytes(d.varIndex(arg.Identifier)), varL)...)
	}
	out = append(out, opStackClear+opCommand)
	for _, s := range p.Sentences {
		out = append(out, compileSentence(s, d, varL, parL)...)
	}
	implicitReturn := &ast.Sentence{Expr: &ast.VerbExpr{Verb: ast.VerbPana}}
	out = append(out, compileSentence(implicitReturn, d, varL, parL)...)
	return out
}
