// Package value defines the runtime value model shared by the tree-walker
// and the bytecode VM. A value is one of: none, truth, integer (arbitrary
// width), string, table, file handle, or paragraph. Both executors operate
// over exactly this set so that their observable behavior can match.
package value

import (
	"math/big"

	"github.com/nasinpali/pali/ast"
)

// Kind tags the runtime type of a Value for dispatch and for Represent.
type Kind int

const (
	KindNone Kind = iota
	KindTruth
	KindInteger
	KindString
	KindTable
	KindFile
	KindParagraph
)

// Value is a runtime value. Exactly one of the typed fields is meaningful,
// selected by Kind. The zero Value is none.
type Value struct {
	Kind     Kind
	Bool     bool           // KindTruth: true for the truth token, false for NewFalse (see IsFalsey)
	Int      *big.Int       // KindInteger
	Str      string         // KindString
	Table    *Table         // KindTable
	File     *File          // KindFile
	Par      *ast.Paragraph // KindParagraph, tree-walker form: the AST node itself
	ParIndex int            // KindParagraph, VM form: index into the paragraph table (Par == nil)
}

// Table is a structural-key mapping from value to value. Keys are compared
// by (Kind, payload), matching the walker's and VM's structural+type
// equality rule for `li`.
type Table struct {
	entries []tableEntry
}

type tableEntry struct {
	key Value
	val Value
}

// File is an open or closed file handle, readable or writable.
type File struct {
	Name     string
	Writable bool
	Closed   bool
	Backing  interface {
		ReadLine() (string, error)
		WriteString(string) error
		Close() error
	}
}

// None is the none value.
var None = Value{Kind: KindNone}

// Truth is the single true token.
var Truth = Value{Kind: KindTruth, Bool: true}

// False is represented as none in most contexts (§4.3); NewFalse exists for
// sites that need a concrete "not truth" value distinct from none, such as
// ComparisonExpr and the equality/sign-test family, which yield boolean
// false rather than none on a negative test.
func NewFalse() Value { return Value{Kind: KindTruth, Bool: false} }

// IsFalsey reports whether v counts as false for a Sentence condition guard:
// the value is none, or it is the truth kind holding false.
func IsFalsey(v Value) bool {
	if v.Kind == KindNone {
		return true
	}
	if v.Kind == KindTruth && !v.Bool {
		return true
	}
	return false
}

// NewInteger wraps an arbitrary-width signed integer.
func NewInteger(i *big.Int) Value { return Value{Kind: KindInteger, Int: i} }

// NewIntegerInt64 is a convenience constructor for small integer literals.
func NewIntegerInt64(i int64) Value { return Value{Kind: KindInteger, Int: big.NewInt(i)} }

// NewString wraps a UTF-8 string.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewTable allocates an empty table.
func NewTable() Value { return Value{Kind: KindTable, Table: &Table{}} }

// NewParagraph wraps a callable AST paragraph (tree-walker form).
func NewParagraph(p *ast.Paragraph) Value { return Value{Kind: KindParagraph, Par: p} }

// NewParagraphRef wraps a paragraph-table index (VM form, used when no
// AST node is available at execution time).
func NewParagraphRef(idx int) Value { return Value{Kind: KindParagraph, ParIndex: idx} }

// NewFile wraps an open file handle.
func NewFile(f *File) Value { return Value{Kind: KindFile, File: f} }

// Equal implements structural+type equality for `li` (BinExpr) and for
// table key comparison: values of different Kind are never equal, and a
// truth value is never equal to an integer even when payloads coincide
// (Truth/one distinction, §8).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone:
		return true
	case KindTruth:
		return a.Bool == b.Bool
	case KindInteger:
		return a.Int.Cmp(b.Int) == 0
	case KindString:
		return a.Str == b.Str
	case KindTable:
		return a.Table == b.Table
	case KindFile:
		return a.File == b.File
	case KindParagraph:
		if a.Par != nil || b.Par != nil {
			return a.Par == b.Par
		}
		return a.ParIndex == b.ParIndex
	}
	return false
}

// Get looks up key in the table, returning (value, true) if present.
func (t *Table) Get(key Value) (Value, bool) {
	for _, e := range t.entries {
		if Equal(e.key, key) {
			return e.val, true
		}
	}
	return None, false
}

// Set stores val under key, replacing any existing entry for an equal key.
func (t *Table) Set(key, val Value) {
	for i, e := range t.entries {
		if Equal(e.key, key) {
			t.entries[i].val = val
			return
		}
	}
	t.entries = append(t.entries, tableEntry{key: key, val: val})
}

// Represent produces the printable form used by `sitelen`, identical
// between the walker and the VM.
func Represent(v Value) string {
	switch v.Kind {
	case KindNone:
		return "[ala]"
	case KindTruth:
		if v.Bool {
			return "[lon]"
		}
		return "[lon ala]"
	case KindInteger:
		return "[nanpa]"
	case KindString:
		return v.Str
	case KindTable:
		return "[kulupu]"
	case KindFile:
		return "[lipu]"
	case KindParagraph:
		return "[pali]"
	}
	return "[ala]"
}
