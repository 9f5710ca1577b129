package walk

import (
	"bufio"
	"io"
	"os"

	"github.com/nasinpali/pali/ast"
	"github.com/nasinpali/pali/environment"
	"github.com/nasinpali/pali/value"
)

// verbLukin implements `lukin first`: read one line (including its
// terminator) from first if it is an open readable file handle, else read
// a line from standard input (EOF -> empty string).
func (w *Walker) verbLukin(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var first value.Value
	if e.First != nil {
		first = w.Walk(e.First, current, env)
	}
	if first.Kind == value.KindFile && !first.File.Closed && !first.File.Writable {
		line, err := first.File.Backing.ReadLine()
		if err != nil && line == "" {
			return value.NewString("")
		}
		return value.NewString(line)
	}
	line, err := w.Stdin.ReadString('\n')
	if err != nil && line == "" {
		return value.NewString("")
	}
	return value.NewString(line)
}

// verbSitelen implements `sitelen first [dest …]`: print represent(first)
// to dest if it is an open writable file handle, else to standard output.
// No trailing newline. `e` introduces the printed value; the destination
// is the first `kepeken` argument.
func (w *Walker) verbSitelen(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var first value.Value
	if e.First != nil {
		first = w.Walk(e.First, current, env)
	}
	out := value.Represent(first)
	if len(e.Args) > 0 {
		dest := w.Walk(e.Args[0], current, env)
		if dest.Kind == value.KindFile && !dest.File.Closed && dest.File.Writable {
			dest.File.Backing.WriteString(out)
			return value.None
		}
	}
	os.Stdout.WriteString(out)
	return value.None
}

// verbKipisi implements `kipisi first [start [stop …]]`: string slice.
// Missing or non-integer bounds default to 0 and len; negative/out-of-
// range values clamp. A non-string first yields none.
func (w *Walker) verbKipisi(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var first value.Value
	if e.First != nil {
		first = w.Walk(e.First, current, env)
	}
	if first.Kind != value.KindString {
		return value.None
	}
	s := first.Str
	start := 0
	if len(e.Args) > 0 {
		if v := w.Walk(e.Args[0], current, env); v.Kind == value.KindInteger {
			start = clamp(int(v.Int.Int64()), 0, len(s))
		}
	}
	end := len(s)
	if len(e.Args) > 1 {
		if v := w.Walk(e.Args[1], current, env); v.Kind == value.KindInteger {
			end = clamp(int(v.Int.Int64()), start, len(s))
		}
	}
	return value.NewString(s[start:end])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// verbOpen implements `open first [mode …]`: first must be a string path;
// mode "sitelen" opens for writing, anything else (or missing) opens for
// reading. Failure yields none.
func (w *Walker) verbOpen(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var first value.Value
	if e.First != nil {
		first = w.Walk(e.First, current, env)
	}
	if first.Kind != value.KindString {
		return value.None
	}
	writable := false
	if len(e.Args) > 0 {
		if v := w.Walk(e.Args[0], current, env); v.Kind == value.KindString && v.Str == "sitelen" {
			writable = true
		}
	}
	var f *os.File
	var err error
	if writable {
		f, err = os.Create(first.Str)
	} else {
		f, err = os.Open(first.Str)
	}
	if err != nil {
		return value.None
	}
	return value.NewFile(&value.File{
		Name:     first.Str,
		Writable: writable,
		Backing:  &osFileBacking{f: f, reader: bufio.NewReader(f)},
	})
}

// verbPini implements `pini first`: close if an open file handle, no-op
// otherwise (including double close); always returns none.
func (w *Walker) verbPini(e *ast.VerbExpr, current *ast.Paragraph, env *environment.Environment) value.Value {
	var first value.Value
	if e.First != nil {
		first = w.Walk(e.First, current, env)
	}
	if first.Kind == value.KindFile && !first.File.Closed {
		first.File.Backing.Close()
		first.File.Closed = true
	}
	return value.None
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
