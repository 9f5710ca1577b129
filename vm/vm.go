// Package vm implements the stack machine that executes compiled bytecode
// images: a decode loop, a data stack, a call stack, and a paragraph
// table.
package vm

import (
	"bufio"
	"fmt"
	"math/big"
	"math/rand"
	"os"

	"github.com/nasinpali/pali/value"
)

// Opcode values, mirrored from the compiler package (kept duplicated
// rather than imported, since the VM only ever sees raw bytes read back
// from a binary image — it has no compile-time dependency on the AST).
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

const (
	lencodeInt = 0x00
	lencodeStr = 0x08
	lencodeJmp = 0x10
	lencodeJez = 0x18
)

// Paragraph is a VM-level callable: a byte offset into the shared code
// region, recovered from the paragraph table at load time. Argument
// binding is not tracked here — it is baked into the callee's own
// prologue instructions (assign-local per formal, in source order).
type Paragraph struct {
	Offset int
}

// Program is a decoded bytecode image ready to run.
type Program struct {
	VarLen, AdrLen, ParLen int
	Paragraphs              []Paragraph
	Code                    []byte
}

// Load decodes the header, paragraph table, and code region of a binary
// image produced by the compiler package.
func Load(data []byte) (*Program, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("vm: image too short for header")
	}
	if data[0] != 0 {
		return nil, fmt.Errorf("vm: unsupported format version %d", data[0])
	}
	varLen, adrLen, parLen := int(data[1]), int(data[2]), int(data[3])
	pos := 4

	parCount, pos, err := readUint(data, pos, parLen)
	if err != nil {
		return nil, err
	}
	pars := make([]Paragraph, parCount)
	for i := 0; i < parCount; i++ {
		var adr int
		adr, pos, err = readUint(data, pos, adrLen)
		if err != nil {
			return nil, err
		}
		pars[i] = Paragraph{Offset: adr}
	}

	return &Program{
		VarLen:     varLen,
		AdrLen:     adrLen,
		ParLen:     parLen,
		Paragraphs: pars,
		Code:       data[pos:],
	}, nil
}

func readUint(data []byte, pos, width int) (int, int, error) {
	if pos+width > len(data) {
		return 0, 0, fmt.Errorf("vm: unexpected end of image at byte %d", pos)
	}
	n := 0
	for i := 0; i < width; i++ {
		n = n*256 + int(data[pos+i])
	}
	return n, pos + width, nil
}

// frame is one entry of the call stack: the paragraph index, return
// address, and environment to resume with.
type frame struct {
	par      int
	returnIP int
	env      *Environment
}

// Environment is the VM's local-variable frame chain, indexed by the
// identifier slot numbers the compiler assigned (distinct from the
// tree-walker's environment.Environment, which is keyed by name).
type Environment struct {
	slots  map[int]value.Value
	parent *Environment
}

func newEnvironment(parent *Environment) *Environment {
	return &Environment{slots: make(map[int]value.Value), parent: parent}
}

func (e *Environment) getFirst(slot int) value.Value {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.slots[slot]; ok {
			return v
		}
	}
	return value.None
}

func (e *Environment) getLocal(slot int) value.Value {
	if v, ok := e.slots[slot]; ok {
		return v
	}
	return value.None
}

func (e *Environment) getGlobal(slot int) value.Value {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	return root.getLocal(slot)
}

func (e *Environment) setFirst(slot int, v value.Value) {
	if _, ok := e.slots[slot]; ok || e.parent == nil {
		e.slots[slot] = v
		return
	}
	e.parent.setFirst(slot, v)
}

func (e *Environment) setLocal(slot int, v value.Value) {
	e.slots[slot] = v
}

func (e *Environment) setGlobal(slot int, v value.Value) {
	root := e
	for root.parent != nil {
		root = root.parent
	}
	root.setLocal(slot, v)
}

// VM holds all mutable execution state for one run of a Program.
type VM struct {
	prog   *Program
	data   []value.Value
	calls  []frame
	ip     int
	env    *Environment
	curPar int

	Stdin  *bufio.Reader
	Stdout *os.File
}

// New constructs a VM bound to prog, starting at paragraph 0 (the root
// paragraph) in a fresh frame whose parent is a fresh global frame, the
// same layout a `pali` call from the global frame creates. initialArgs seeds the data
// stack before execution starts, standing in for the arguments a `pali`
// caller would otherwise have pushed — the root paragraph is never
// reached through a call opcode, so the top-level driver must supply its
// own argument table this way (§4.4).
func New(prog *Program, initialArgs ...value.Value) *VM {
	return &VM{
		prog:   prog,
		data:   append([]value.Value{}, initialArgs...),
		ip:     prog.Paragraphs[0].Offset,
		env:    newEnvironment(newEnvironment(nil)),
		Stdin:  bufio.NewReader(os.Stdin),
		Stdout: os.Stdout,
	}
}

func (m *VM) push(v value.Value) { m.data = append(m.data, v) }

func (m *VM) pop() value.Value {
	if len(m.data) == 0 {
		return value.None
	}
	v := m.data[len(m.data)-1]
	m.data = m.data[:len(m.data)-1]
	return v
}

func (m *VM) top() value.Value {
	if len(m.data) == 0 {
		return value.None
	}
	return m.data[len(m.data)-1]
}

func (m *VM) readBytesField(width int) int {
	n := 0
	for i := 0; i < width; i++ {
		n = n*256 + int(m.prog.Code[m.ip+i])
	}
	m.ip += width
	return n
}

// Run executes the program to completion (a `pana` with an empty call
// stack) and returns the final sole data-stack value (§4.3's `represent`
// convention for the top-level exit value is left to the caller).
func (m *VM) Run() value.Value {
	for {
		if m.ip >= len(m.prog.Code) {
			return m.top()
		}
		opByte := m.prog.Code[m.ip]
		m.ip++

		if opByte&opCommand == 0 {
			// lencode-prefixed literal or jump form: the tag lives in
			// the top bits, the immediate width in the low 3.
			switch opByte & 0xF8 {
			case lencodeInt:
				n := m.readImmediateFrom(opByte)
				m.push(value.NewIntegerInt64(int64(n)))
			case lencodeStr:
				n := m.readImmediateFrom(opByte)
				s := m.prog.Code[m.ip : m.ip+n]
				m.ip += n
				m.push(value.NewString(string(s)))
			case lencodeJmp:
				n := m.readImmediateFrom(opByte)
				m.ip += n
			case lencodeJez:
				n := m.readImmediateFrom(opByte)
				if value.IsFalsey(m.pop()) {
					m.ip += n
				}
			default:
				panic(fmt.Sprintf("vm: unhandled opcode 0x%02x in paragraph %d at byte %d", opByte, m.curPar, m.ip-1))
			}
			continue
		}

		op := opByte &^ opCommand
		switch op {
		case opPushTruth:
			m.push(value.Truth)
		case opPushEmptyTable:
			m.push(value.NewTable())
		case opPushNone:
			m.push(value.None)
		case opPushParagraph:
			idx := m.readBytesField(m.prog.ParLen)
			m.push(value.NewParagraphRef(idx))
		case opPushVarFirst:
			slot := m.readBytesField(m.prog.VarLen)
			m.push(m.env.getFirst(slot))
		case opPushVarLocal:
			slot := m.readBytesField(m.prog.VarLen)
			m.push(m.env.getLocal(slot))
		case opPushVarGlobal:
			slot := m.readBytesField(m.prog.VarLen)
			m.push(m.env.getGlobal(slot))
		case opPushRandom:
			m.push(value.NewIntegerInt64(int64(randByte())))
		case opPushCurrentPar:
			m.push(value.NewParagraphRef(m.curPar))
		case opSuli:
			v := m.pop()
			m.push(boolValue(v.Kind == value.KindInteger && v.Int.Sign() > 0))
		case opLili:
			v := m.pop()
			m.push(boolValue(v.Kind == value.KindInteger && v.Int.Sign() < 0))
		case opEqual:
			b, a := m.pop(), m.pop()
			m.push(boolValue(value.Equal(a, b)))
		case opNegate:
			v := m.pop()
			switch v.Kind {
			case value.KindTruth:
				m.push(boolValue(!v.Bool))
			case value.KindInteger:
				m.push(value.NewInteger(new(big.Int).Neg(v.Int)))
			default:
				m.push(value.None)
			}
		case opEn:
			b, a := m.pop(), m.pop()
			m.push(addValues(a, b))
		case opPi:
			b, a := m.pop(), m.pop()
			m.push(indexValue(a, b))
		case opTableSet:
			i, t, v := m.pop(), m.pop(), m.pop()
			if t.Kind == value.KindTable {
				t.Table.Set(i, v)
			}
		case opAssignFirst:
			slot := m.readBytesField(m.prog.VarLen)
			m.env.setFirst(slot, m.pop())
		case opAssignLocal:
			slot := m.readBytesField(m.prog.VarLen)
			m.env.setLocal(slot, m.pop())
		case opAssignGlobal:
			slot := m.readBytesField(m.prog.VarLen)
			m.env.setGlobal(slot, m.pop())
		case opDiscard:
			m.pop()
		case opStackClear:
			m.data = nil
		case opPali:
			callee := m.pop()
			if callee.Kind != value.KindParagraph {
				m.data = []value.Value{value.None}
				continue
			}
			m.calls = append(m.calls, frame{par: m.curPar, returnIP: m.ip, env: m.env})
			m.env = newEnvironment(m.env)
			m.curPar = callee.ParIndex
			m.ip = m.prog.Paragraphs[callee.ParIndex].Offset
		case opPana:
			result := m.pop()
			m.data = []value.Value{result}
			if len(m.calls) == 0 {
				return result
			}
			top := m.calls[len(m.calls)-1]
			m.calls = m.calls[:len(m.calls)-1]
			m.env = top.env
			m.ip = top.returnIP
			m.curPar = top.par
		case opLukin:
			m.execLukin()
		case opSitelen:
			m.execSitelen()
		case opKipisi:
			m.execKipisi()
		case opOpen:
			m.execOpen()
		case opPini:
			m.execPini()
		default:
			panic(fmt.Sprintf("vm: unhandled opcode 0x%02x in paragraph %d at byte %d", opByte, m.curPar, m.ip-1))
		}
	}
}

func (m *VM) readImmediateFrom(opByte byte) int {
	width := int(opByte & 0x07)
	n := 0
	for i := 0; i < width; i++ {
		n = n*256 + int(m.prog.Code[m.ip+i])
	}
	m.ip += width
	return n
}

func boolValue(b bool) value.Value {
	if b {
		return value.Truth
	}
	return value.NewFalse()
}

func addValues(a, b value.Value) value.Value {
	if a.Kind == value.KindInteger && b.Kind == value.KindInteger {
		return value.NewInteger(new(big.Int).Add(a.Int, b.Int))
	}
	if a.Kind == value.KindString && b.Kind == value.KindString {
		return value.NewString(a.Str + b.Str)
	}
	return value.None
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

func randByte() int {
	return rand.Intn(256)
}
