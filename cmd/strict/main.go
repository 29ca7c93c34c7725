// Strict CLI - generates bytecode for a program entry call and runs it
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/strict/compiler"
	"github.com/chazu/strict/manifest"
	"github.com/chazu/strict/program"
	"github.com/chazu/strict/vm"
)

var log = commonlog.GetLogger("strict.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options are the resolved settings of one run: manifest values overridden
// by command-line flags.
type options struct {
	program   string
	entry     string
	disasm    bool
	trace     bool
	dump      string
	verbosity int
	logFile   string
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("strict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("C", ".", "Project directory to search for "+manifest.FileName)
	programPath := fs.String("program", "", "Program file (overrides [run] program)")
	entry := fs.String("entry", "", "Name of the call to run (overrides [run] entry)")
	disasm := fs.Bool("disasm", false, "Print the generated statements before running")
	trace := fs.Bool("trace", false, "Log every executed statement at debug level")
	dump := fs.String("dump", "", "Write a CBOR snapshot of the final memory to this file")
	verbosity := fs.Int("v", 0, "Log verbosity (overrides [log] verbosity)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: strict [options]\n\n")
		fmt.Fprintf(stderr, "Generates bytecode for a program's entry call and executes it.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  strict                          # Run [run] entry from ./strict.toml\n")
		fmt.Fprintf(stderr, "  strict -program calc.yml -entry add -disasm\n")
		fmt.Fprintf(stderr, "  strict -trace -v 2 -dump memory.cbor\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	opts, err := resolveOptions(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "program":
			opts.program = *programPath
		case "entry":
			opts.entry = *entry
		case "disasm":
			opts.disasm = *disasm
		case "trace":
			opts.trace = *trace
		case "v":
			opts.verbosity = *verbosity
		}
	})
	opts.dump = *dump

	configureLogging(opts)

	if err := execute(opts, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// resolveOptions reads strict.toml from dir or a parent. Without one the
// program defaults to main.yml in dir.
func resolveOptions(dir string) (*options, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &options{program: filepath.Join(dir, "main.yml")}, nil
	}
	return &options{
		program:   m.ProgramPath(),
		entry:     m.Run.Entry,
		disasm:    m.VM.Disasm,
		trace:     m.VM.Trace,
		verbosity: m.Log.Verbosity,
		logFile:   m.LogPath(),
	}, nil
}

func configureLogging(opts *options) {
	verbosity := opts.verbosity
	if opts.trace && verbosity < 2 {
		// Statement traces are debug messages.
		verbosity = 2
	}
	if opts.logFile != "" {
		commonlog.Configure(verbosity, &opts.logFile)
		return
	}
	commonlog.Configure(verbosity, nil)
}

func execute(opts *options, stdout io.Writer) error {
	p, err := program.Load(opts.program)
	if err != nil {
		return err
	}
	call, err := p.Entry(opts.entry)
	if err != nil {
		return err
	}

	statements, err := compiler.GenerateCall(call)
	if err != nil {
		return fmt.Errorf("generate %s: %w", call, err)
	}
	if opts.disasm {
		fmt.Fprint(stdout, vm.DisassembleWithName(statements, call.String()))
	}

	machine := vm.New()
	machine.UseCompiler(compiler.CompileInvocation)
	machine.Trace = opts.trace
	result, err := machine.Execute(statements)
	if err != nil {
		return fmt.Errorf("execute %s: %w", call, err)
	}
	log.Infof("run %s finished", result.RunID)

	if result.Returns != nil {
		fmt.Fprintln(stdout, result.Returns)
	} else {
		fmt.Fprintln(stdout, "None")
	}

	if opts.dump != "" {
		data, err := vm.MarshalSnapshot(result.Snapshot())
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.dump, data, 0644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return nil
}
