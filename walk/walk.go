// Package walk implements the tree-walking evaluator: environment chain,
// value model, and verb dispatch.
package walk

import (
	"bufio"
	"fmt"
	"math/big"
	"math/rand"
	"os"

	"github.com/nasinpali/pali/ast"
	"github.com/nasinpali/pali/environment"
	"github.com/nasinpali/pali/value"
)

// returnSignal is the non-local unwind used to implement `pana`: not an
// error, a labelled return carrier caught at the paragraph call site
// (§7, §9).
type returnSignal struct {
	value value.Value
}

// Walker evaluates an AST against a shared standard-input reader, so
// repeated `lukin` calls on stdin advance through the same stream.
type Walker struct {
	Stdin *bufio.Reader
}

// NewWalker creates a walker reading from os.Stdin.
func NewWalker() *Walker {
	return &Walker{Stdin: bufio.NewReader(os.Stdin)}
}

// Walk evaluates expr in the given environment. current is the
// currently-executing paragraph, threaded through so RecursiveExpr can
// return "the paragraph I'm inside" (nil at the top level).
func (w *Walker) Walk(expr ast.Expr, current *ast.Paragraph, env *environment.Environment) value.Value {
	switch e := expr.(type) {
	case *ast.LiteralExpr:
		return w.literalValue(e)

	case *ast.VariableExpr:
		switch e.Scope {
		case ast.ScopeLocal:
			return env.GetLocal(e.Identifier)
		case ast.ScopeGlobal:
			return env.GetGlobal(e.Identifier)
		default:
			return env.GetFirst(e.Identifier)
		}

	case *ast.RandomExpr:
		return value.NewIntegerInt64(int64(rand.Intn(256)))

	case *ast.RecursiveExpr:
		if current == nil {
			return value.None
		}
		return value.NewParagraph(current)

	case *ast.NegateExpr:
		v := w.Walk(e.Expr, current, env)
		switch v.Kind {
		case value.KindTruth:
			return boolValue(!v.Bool)
		case value.KindInteger:
			return value.NewInteger(new(big.Int).Neg(v.Int))
		default:
			return value.None
		}

	case *ast.BinExpr:
		return w.walkBin(e, current, env)

	case *ast.ComparisonExpr:
		v := w.Walk(e.Expr, current, env)
		if v.Kind != value.KindInteger {
			return value.NewFalse()
		}
		switch e.Op {
		case ast.OpSuli:
			return boolValue(v.Int.Sign() > 0)
		default:
			return boolValue(v.Int.Sign() < 0)
		}

	case *ast.VerbExpr:
		return w.walkVerb(e, current, env)

	default:
		panic(fmt.Sprintf("walk: unhandled expression node %T", expr))
	}
}

func boolValue(b bool) value.Value {
	if b {
		return value.Truth
	}
	return value.NewFalse()
}

func (w *Walker) literalValue(e *ast.LiteralExpr) value.Value {
	switch e.Kind {
	case ast.LiteralNone:
		return value.None
	case ast.LiteralTruth:
		return value.Truth
	case ast.LiteralInteger:
		return value.NewInteger(e.Int)
	case ast.LiteralString:
		return value.NewString(e.Str)
	case ast.LiteralEmptyTable:
		return value.NewTable()
	case ast.LiteralParagraph:
		return value.NewParagraph(e.Par)
	default:
		return value.None
	}
}

func (w *Walker) walkBin(e *ast.BinExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	left := w.Walk(e.Left, current, env)
	right := w.Walk(e.Right, current, env)
	switch e.Op {
	case ast.OpLi:
		return boolValue(value.Equal(left, right))
	case ast.OpEn:
		if left.Kind == value.KindInteger && right.Kind == value.KindInteger {
			return value.NewInteger(new(big.Int).Add(left.Int, right.Int))
		}
		if left.Kind == value.KindString && right.Kind == value.KindString {
			return value.NewString(left.Str + right.Str)
		}
		return value.None
	case ast.OpPi:
		return indexValue(left, right)
	default:
		return value.None
	}
}

func indexValue(container, key value.Value) value.Value {
	switch container.Kind {
	case value.KindTable:
		if v, ok := container.Table.Get(key); ok {
			return v
		}
		return value.None
	case value.KindString:
		if key.Kind != value.KindInteger {
			return value.None
		}
		i := key.Int.Int64()
		if i < 0 || i >= int64(len(container.Str)) {
			return value.None
		}
		return value.NewString(string(container.Str[i]))
	default:
		return value.None
	}
}

func (w *Walker) walkVerb(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	switch e.Verb {
	case ast.VerbPana:
		var v value.Value
		if e.First != nil {
			v = w.Walk(e.First, current, env)
		}
		panic(returnSignal{value: v})

	case ast.VerbPali:
		return w.callParagraph(e, current, env)

	case ast.VerbLukin:
		return w.verbLukin(e, current, env)

	case ast.VerbSitelen:
		return w.verbSitelen(e, current, env)

	case ast.VerbKipisi:
		return w.verbKipisi(e, current, env)

	case ast.VerbOpen:
		return w.verbOpen(e, current, env)

	case ast.VerbPini:
		return w.verbPini(e, current, env)

	default:
		return value.None
	}
}

// callParagraph implements `pali first args…`: walk(first) must be a
// paragraph; build a child environment of the CALLER's current
// environment (not the paragraph's defining environment — §9, §4.1 of
// SPEC_FULL.md), bind formals to evaluated args (missing become none,
// extras discarded), run the sentence list, and catch the returnSignal
// unwind.
func (w *Walker) callParagraph(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var calleeVal value.Value
	if e.First != nil {
		calleeVal = w.Walk(e.First, current, env)
	}
	if calleeVal.Kind != value.KindParagraph {
		return value.None
	}

	args := make([]value.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = w.Walk(a, current, env)
	}

	return w.CallParagraph(calleeVal.Par, env, args)
}

// CallParagraph runs par with the given already-evaluated arguments,
// binding them to its formals in a child of callerEnv (the caller's
// environment at the call site, not par's defining environment — §4.1).
// Exported so the top-level program invocation (which has no surrounding
// VerbExpr to walk) can drive a call directly.
func (w *Walker) CallParagraph(par *ast.Paragraph, callerEnv *environment.Environment, args []value.Value) value.Value {
	callEnv := environment.New(callerEnv)
	for i, formal := range par.Arguments {
		if i < len(args) {
			callEnv.SetLocal(formal.Identifier, args[i])
		} else {
			callEnv.SetLocal(formal.Identifier, value.None)
		}
	}
	return w.runParagraphBody(par, callEnv)
}

// runParagraphBody evaluates par's sentences in order, catching a `pana`
// unwind and falling through to none if the sentence list completes
// without one.
func (w *Walker) runParagraphBody(par *ast.Paragraph, env *environment.Environment) (result value.Value) {
	defer func() {
		if r := recover(); r != nil {
			if rs, ok := r.(returnSignal); ok {
				result = rs.value
				return
			}
			panic(r)
		}
	}()
	for _, s := range par.Sentences {
		w.walkSentence(s, par, env)
	}
	return value.None
}

// walkSentence evaluates conditions left-to-right; any condition that is
// false or none skips the sentence (result none, no error). Otherwise it
// evaluates the body and, if an assignment target is present, stores the
// result there (sentence result none); else the sentence result is the
// body value.
func (w *Walker) walkSentence(s *ast.Sentence, current *ast.Paragraph, env *environment.Environment) value.Value {
	for _, cond := range s.Conditions {
		if value.IsFalsey(w.Walk(cond, current, env)) {
			return value.None
		}
	}
	body := w.Walk(s.Expr, current, env)
	if s.Assignment == nil {
		return body
	}
	w.store(s.Assignment, body, current, env)
	return value.None
}

func (w *Walker) store(target ast.AssignTarget, v value.Value, current *ast.Paragraph, env *environment.Environment) {
	switch t := target.(type) {
	case *ast.VariableExpr:
		switch t.Scope {
		case ast.ScopeLocal:
			env.SetLocal(t.Identifier, v)
		case ast.ScopeGlobal:
			env.SetGlobal(t.Identifier, v)
		default:
			env.SetFirst(t.Identifier, v)
		}
	case *ast.TableAssignment:
		table := w.Walk(t.Table, current, env)
		index := w.Walk(t.Index, current, env)
		if table.Kind == value.KindTable {
			table.Table.Set(index, v)
		}
	}
}
