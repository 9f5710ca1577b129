/*
Package repl implements the interactive Read-Eval-Print Loop. Entered
lines are buffered until a blank line; the buffered text is then parsed
as a standalone program and executed — by the tree walker by default, or
through the compiler+VM if the session was started in VM mode: readline for line editing/history, fatih/color for output, a
Repl struct carrying a banner/prompt pair with Start(io.Reader, io.Writer).
*/
package repl

import (
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/nasinpali/pali/compiler"
	"github.com/nasinpali/pali/environment"
	"github.com/nasinpali/pali/parser"
	"github.com/nasinpali/pali/value"
	"github.com/nasinpali/pali/vm"
	"github.com/nasinpali/pali/walk"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

// Repl holds the display configuration for an interactive session.
type Repl struct {
	Banner  string
	Version string
	Prompt  string

	// UseVM selects the executor: false walks directly, true compiles
	// each entered program and runs it through the VM.
	UseVM bool
}

// New creates a Repl that walks by default.
func New(banner, version, prompt string) *Repl {
	return &Repl{Banner: banner, Version: version, Prompt: prompt}
}

func (r *Repl) printBanner(w io.Writer) {
	greenColor.Fprintln(w, r.Banner)
	blueColor.Fprintln(w, "----------------------------------------------------------------")
	yellowColor.Fprintln(w, "toki pi ilo nanpa "+r.Version)
	blueColor.Fprintln(w, "----------------------------------------------------------------")
	cyanColor.Fprintln(w, "Enter a complete paragraph, then an empty line to run it.")
	cyanColor.Fprintln(w, "Type .exit to quit.")
	blueColor.Fprintln(w, "----------------------------------------------------------------")
}

// Start runs the REPL loop against reader/writer. Input accumulates
// across lines until a blank line is seen, at which point the buffered
// text is parsed as one program and executed. In walker mode a fresh
// top-level environment is shared across entries so suli-scoped bindings
// persist; in VM mode each entry runs in a new VM, so nothing persists.
func (r *Repl) Start(reader io.Reader, writer io.Writer) {
	r.printBanner(writer)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		redColor.Fprintf(writer, "could not start line editor: %v\n", err)
		return
	}
	defer rl.Close()

	w := walk.NewWalker()
	env := environment.New(nil)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err != nil {
			writer.Write([]byte("\n"))
			return
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == ".exit" {
			return
		}
		if trimmed == "" {
			if buf.Len() == 0 {
				continue
			}
			r.runEntry(writer, buf.String(), w, env)
			buf.Reset()
			continue
		}
		rl.SaveHistory(line)
		buf.WriteString(line)
		buf.WriteString("\n")
	}
}

func (r *Repl) runEntry(writer io.Writer, source string, w *walk.Walker, env *environment.Environment) {
	defer func() {
		if rec := recover(); rec != nil {
			redColor.Fprintf(writer, "[RUNTIME ERROR] %v\n", rec)
		}
	}()

	root, parseErr := parser.Parse(source)
	if parseErr != nil {
		redColor.Fprintln(writer, parseErr.Error())
		return
	}

	if r.UseVM {
		compiled := compiler.Compile(root)
		prog, err := vm.Load(compiled)
		if err != nil {
			redColor.Fprintf(writer, "[COMPILE ERROR] %v\n", err)
			return
		}
		result := vm.New(prog).Run()
		yellowColor.Fprintf(writer, "%s\n", value.Represent(result))
		return
	}

	result := w.CallParagraph(root, env, nil)
	yellowColor.Fprintf(writer, "%s\n", value.Represent(result))
}
