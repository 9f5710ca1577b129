/*
Package main is the command-line entry point for the toki pi ilo nanpa
interpreter/compiler/VM. It supports a five-flag surface: compile a
source file to bytecode, tree-walk a source file directly, or execute a
compiled bytecode image through the virtual machine. The `-r` flag is
fully implemented for both the source and bytecode code paths.
*/
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/nasinpali/pali/ast"
	"github.com/nasinpali/pali/compiler"
	"github.com/nasinpali/pali/environment"
	"github.com/nasinpali/pali/parser"
	"github.com/nasinpali/pali/repl"
	"github.com/nasinpali/pali/value"
	"github.com/nasinpali/pali/vm"
	"github.com/nasinpali/pali/walk"
)

var (
	redColor    = color.New(color.FgRed)
	yellowColor = color.New(color.FgYellow)
	cyanColor   = color.New(color.FgCyan)
)

const (
	banner = `
 _           _ _
 |_  _ | _     ._ _  ._  _
 |_)(_||(_)|_|||(_) |_)(_|
                      |
`
	version = "v1.0.0"
	prompt  = "pali >>> "
)

func main() {
	var (
		source   string
		bytecode string
		walkFlag bool
		runFlag  bool
		helpFlag bool
	)
	flag.StringVar(&source, "s", "", "path to the source file to be compiled/walked")
	flag.StringVar(&bytecode, "b", "", "compilation destination (with -s), or a bytecode file to execute")
	flag.BoolVar(&walkFlag, "w", false, "tree-walk the program given with -s")
	flag.BoolVar(&runFlag, "r", false, "compile-and-run (with -s), or execute bytecode (with -b)")
	flag.BoolVar(&helpFlag, "h", false, "display this help and exit")
	flag.Parse()

	if helpFlag {
		printHelp()
		return
	}

	programArgs := flag.Args()

	if len(os.Args) == 1 {
		startRepl()
		return
	}

	if walkFlag && source == "" {
		fail("option -w requires a source file passed with -s")
	}
	if runFlag && source == "" && bytecode == "" {
		fail("option -r requires either a source file passed with -s or a bytecode file passed with -b")
	}
	if walkFlag && runFlag {
		fail("you can't both walk and run the program in the same call: specify only one of -r and -w")
	}
	if source == "" && bytecode == "" {
		fail("you didn't give me anything to do; see -h for help with options")
	}

	argTable := buildArgTable(programArgs)

	if source != "" {
		data, err := os.ReadFile(source)
		if err != nil {
			fail(fmt.Sprintf("could not read source file %q: %v", source, err))
		}
		root, parseErr := parser.Parse(string(data))
		if parseErr != nil {
			redColor.Fprintln(os.Stderr, parseErr.Error())
			os.Exit(1)
		}

		if walkFlag {
			result := walkProgram(root, argTable)
			yellowColor.Printf("Program exited with %s\n", value.Represent(result))
		}

		if bytecode != "" || runFlag {
			compiled := compiler.Compile(root)
			if bytecode != "" {
				if err := os.WriteFile(bytecode, compiled, 0o644); err != nil {
					fail(fmt.Sprintf("could not write bytecode file %q: %v", bytecode, err))
				}
			}
			if runFlag {
				runCompiled(compiled, argTable)
			}
		}
		return
	}

	// source == "" and bytecode != ""
	compiled, err := os.ReadFile(bytecode)
	if err != nil {
		fail(fmt.Sprintf("could not read bytecode file %q: %v", bytecode, err))
	}
	if runFlag {
		runCompiled(compiled, argTable)
	}
}

func buildArgTable(args []string) value.Value {
	table := value.NewTable()
	for i, a := range args {
		table.Table.Set(value.NewIntegerInt64(int64(i)), value.NewString(a))
	}
	return table
}

func walkProgram(root *ast.Paragraph, argTable value.Value) value.Value {
	w := walk.NewWalker()
	return w.CallParagraph(root, environment.New(nil), []value.Value{argTable})
}

func runCompiled(compiled []byte, argTable value.Value) {
	prog, err := vm.Load(compiled)
	if err != nil {
		fail(err.Error())
	}
	m := vm.New(prog, argTable)
	result := m.Run()
	yellowColor.Printf("Program exited with %s\n", value.Represent(result))
}

func startRepl() {
	r := repl.New(banner, version, prompt)
	r.Start(os.Stdin, os.Stdout)
}

func printHelp() {
	cyanColor.Println("Command Line Interface for toki pi ilo nanpa.")
	cyanColor.Println(version)
	cyanColor.Println("")
	cyanColor.Println("Arguments:")
	cyanColor.Println("")
	yellowColor.Println("    -h")
	fmt.Println("        Display this help and exit.")
	fmt.Println()
	yellowColor.Println("    -s <source>")
	fmt.Println("        Path to the source file to be compiled/walked.")
	fmt.Println()
	yellowColor.Println("    -b <bytecode>")
	fmt.Println("        If -s was passed: path to a compilation destination file.")
	fmt.Println("        Otherwise: path to a bytecode file to be executed.")
	fmt.Println()
	yellowColor.Println("    -w")
	fmt.Println("        Requires -s. Evaluate the program with the tree walker.")
	fmt.Println()
	yellowColor.Println("    -r")
	fmt.Println("        Requires -s or -b. Compile-and-run, or execute bytecode.")
	fmt.Println()
	yellowColor.Println("    -- <args…>")
	fmt.Println("        Remaining arguments become the program's 0-indexed argument table.")
	fmt.Println()
	cyanColor.Println("No arguments starts an interactive session.")
}

func fail(message string) {
	redColor.Fprintf(os.Stderr, "[ERROR] %s\n", message)
	os.Exit(1)
}
