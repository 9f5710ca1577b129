package vm

import (
	"bufio"
	"io"
	"os"

	"github.com/nasinpali/pali/value"
)

// Every verb opcode below fully replaces the data stack with its single
// result, discarding any operands left unconsumed below the ones it read.

func (m *VM) execLukin() {
	first := m.pop()
	var line string
	if first.Kind == value.KindFile && !first.File.Closed && !first.File.Writable {
		l, _ := first.File.Backing.ReadLine()
		line = l
	} else {
		l, err := m.Stdin.ReadString('\n')
		if err != nil && l == "" {
			line = ""
		} else {
			line = l
		}
	}
	m.data = []value.Value{value.NewString(line)}
}

func (m *VM) execSitelen() {
	first := m.pop()
	var dest value.Value
	if len(m.data) > 0 {
		dest = m.pop()
	}
	out := value.Represent(first)
	if dest.Kind == value.KindFile && !dest.File.Closed && dest.File.Writable {
		dest.File.Backing.WriteString(out)
	} else {
		m.Stdout.WriteString(out)
	}
	m.data = []value.Value{value.None}
}

func (m *VM) execKipisi() {
	first := m.pop()
	if first.Kind != value.KindString {
		m.data = []value.Value{value.None}
		return
	}
	s := first.Str
	start := 0
	if len(m.data) > 0 {
		if v := m.pop(); v.Kind == value.KindInteger {
			start = clampInt(int(v.Int.Int64()), 0, len(s))
		}
	}
	end := len(s)
	if len(m.data) > 0 {
		if v := m.pop(); v.Kind == value.KindInteger {
			end = clampInt(int(v.Int.Int64()), start, len(s))
		}
	}
	m.data = []value.Value{value.NewString(s[start:end])}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *VM) execOpen() {
	first := m.pop()
	var mode value.Value
	if len(m.data) > 0 {
		mode = m.pop()
	}
	if first.Kind != value.KindString {
		m.data = []value.Value{value.None}
		return
	}
	writable := mode.Kind == value.KindString && mode.Str == "sitelen"
	var f *os.File
	var err error
	if writable {
		f, err = os.Create(first.Str)
	} else {
		f, err = os.Open(first.Str)
	}
	if err != nil {
		m.data = []value.Value{value.None}
		return
	}
	m.data = []value.Value{value.NewFile(&value.File{
		Name:     first.Str,
		Writable: writable,
		Backing:  &osFileBacking{f: f, reader: bufio.NewReader(f)},
	})}
}

func (m *VM) execPini() {
	first := m.pop()
	if first.Kind == value.KindFile && !first.File.Closed {
		first.File.Backing.Close()
		first.File.Closed = true
	}
	m.data = []value.Value{value.None}
}

// osFileBacking adapts *os.File to value.File's Backing interface.
type osFileBacking struct {
	f      *os.File
	reader *bufio.Reader
}

func (b *osFileBacking) ReadLine() (string, error) {
	line, err := b.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

func (b *osFileBacking) WriteString(s string) error {
	_, err := b.f.WriteString(s)
	return err
}

func (b *osFileBacking) Close() error {
	return b.f.Close()
}
