// Package ast defines the tagged-variant tree produced by the parser:
// expressions, sentences, and paragraphs. Nodes are immutable once built;
// the parser is the only producer.
package ast

import "math/big"

// Scope selects which frame of the environment chain a VariableExpr reads
// or writes: Unspecified walks parents for the nearest binding, Local reads
// only the current frame, Global reads only the root frame.
type Scope int

const (
	ScopeUnspecified Scope = iota
	ScopeLocal
	ScopeGlobal
)

// String names a Scope the way the source vocabulary spells it.
func (s Scope) String() string {
	switch s {
	case ScopeLocal:
		return "lili"
	case ScopeGlobal:
		return "suli"
	default:
		return ""
	}
}

// Verb names a built-in action word. VerbExpr's Verb field is always one
// of these.
type Verb string

const (
	VerbPali    Verb = "pali"
	VerbPana    Verb = "pana"
	VerbLukin   Verb = "lukin"
	VerbSitelen Verb = "sitelen"
	VerbKipisi  Verb = "kipisi"
	VerbOpen    Verb = "open"
	VerbPini    Verb = "pini"
)

// BinOp is the operator of a BinExpr.
type BinOp string

const (
	OpEn BinOp = "en" // add / concat
	OpPi BinOp = "pi" // index
	OpLi BinOp = "li" // structural equality
)

// CompareOp is the operator of a ComparisonExpr.
type CompareOp string

const (
	OpSuli CompareOp = "suli" // > 0
	OpLili CompareOp = "lili" // < 0
)

// LiteralKind tags the compile-time constant held by a LiteralExpr.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralTruth
	LiteralInteger
	LiteralString
	LiteralEmptyTable
	LiteralParagraph
)

// Expr is any node that can be evaluated to a value.
type Expr interface {
	exprNode()
}

// LiteralExpr is a compile-time constant: integer, string, none, truth,
// empty table, or paragraph literal.
type LiteralExpr struct {
	Kind LiteralKind
	Int  *big.Int
	Str  string
	Par  *Paragraph
}

func (*LiteralExpr) exprNode() {}

// VariableExpr reads a variable. Scope and Identifier are fixed at parse
// time.
type VariableExpr struct {
	Scope      Scope
	Identifier string
}

func (*VariableExpr) exprNode() {}

// RandomExpr yields a uniform integer in [0,256).
type RandomExpr struct{}

func (*RandomExpr) exprNode() {}

// RecursiveExpr evaluates to the currently-executing paragraph.
type RecursiveExpr struct{}

func (*RecursiveExpr) exprNode() {}

// NegateExpr negates its operand: arithmetic on integers, logical on
// truth, none otherwise.
type NegateExpr struct {
	Expr Expr
}

func (*NegateExpr) exprNode() {}

// BinExpr is a binary operator application.
type BinExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (*BinExpr) exprNode() {}

// ComparisonExpr is a unary sign test.
type ComparisonExpr struct {
	Op   CompareOp
	Expr Expr
}

func (*ComparisonExpr) exprNode() {}

// VerbExpr applies a built-in verb to an optional primary operand and an
// ordered argument list.
type VerbExpr struct {
	Verb  Verb
	First Expr // nil if absent
	Args  []Expr
}

func (*VerbExpr) exprNode() {}

// TableAssignment is an assignment target: store into Table at Index.
type TableAssignment struct {
	Table Expr
	Index Expr
}

func (*TableAssignment) exprNode() {}

// AssignTarget is either a *VariableExpr or a *TableAssignment.
type AssignTarget interface {
	exprNode()
}

// Sentence is a single executable statement: zero or more guards, an
// optional assignment target, and a value expression.
type Sentence struct {
	Conditions []Expr
	Assignment AssignTarget // nil if absent
	Expr       Expr
}

// Paragraph is an ordered list of formal parameters and an ordered list of
// sentences. Paragraph values carry no environment reference: closure
// capture is by the caller's environment at the call site, not a
// defining environment.
type Paragraph struct {
	Arguments []*VariableExpr
	Sentences []*Sentence
}
