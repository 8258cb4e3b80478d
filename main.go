package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/lookbusy1344/arm-emulator/api"
	"github.com/lookbusy1344/arm-emulator/debugger"
	"github.com/lookbusy1344/arm-emulator/encoder"
	"github.com/lookbusy1344/arm-emulator/loader"
	"github.com/lookbusy1344/arm-emulator/parser"
	"github.com/lookbusy1344/arm-emulator/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		maxCycles   = flag.Uint64("max-cycles", vm.DefaultMaxCycles, "Maximum instruction count before halt")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		enableTrace = flag.Bool("trace", false, "Enable execution trace")
		traceFile   = flag.String("trace-file", "", "Trace output file (default: trace.log)")
		traceFilter = flag.String("trace-filter", "", "Filter trace by registers (comma-separated, e.g., RARG1,RRES)")

		enableStats = flag.Bool("stats", false, "Enable performance statistics")
		statsFile   = flag.String("stats-file", "", "Statistics output file (default: stats.<format>)")
		statsFormat = flag.String("stats-format", "json", "Statistics format (json, csv, html)")

		enableCoverage = flag.Bool("coverage", false, "Enable code coverage tracking")
		coverageFile   = flag.String("coverage-file", "", "Coverage output file (default: coverage.txt)")

		enableStackTrace = flag.Bool("stack-trace", false, "Enable stack usage trace")
		stackTraceFile   = flag.String("stack-trace-file", "", "Stack trace output file (default: stacktrace.txt)")

		enableRegisterTrace = flag.Bool("register-trace", false, "Enable per-register access trace")
		registerTraceFile   = flag.String("register-trace-file", "", "Register trace output file (default: regtrace.txt)")

		dumpSymbols = flag.Bool("dump-symbols", false, "Dump the symbol table after assembling and exit")
		symbolsFile = flag.String("symbols-file", "", "Symbol table output file (default: stdout)")
	)

	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("oivm %s (commit %s, built %s)\n", Version, Commit, Date)
		return
	}

	if *showHelp {
		printHelp()
		return
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: no assembly file specified")
		printHelp()
		os.Exit(1)
	}
	asmFile := args[0]

	image, program, err := encoder.AssembleFile(asmFile, parser.DefaultParseFileOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
		os.Exit(1)
	}

	if *dumpSymbols {
		if err := dumpSymbolTable(program.SymbolTable, *symbolsFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to dump symbol table: %v\n", err)
			os.Exit(1)
		}
		return
	}

	machine := vm.NewVM()
	machine.MaxCycles = *maxCycles
	machine.ProgramArguments = args[1:]

	layout, err := loader.LoadImage(machine, image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load image: %v\n", err)
		os.Exit(1)
	}

	symbols, sourceMap := buildSymbolsAndSourceMap(program)

	if *verboseMode {
		fmt.Printf("Loaded %s: entry=0x%X image_width=%d code=[0x%X,0x%X) stack_top=0x%X\n",
			asmFile, layout.EntryPC, layout.ImageWidth, layout.CodeStart, layout.HeapStart, layout.StackTop)
	}

	var statsWriter, coverageWriter, stackTraceWriter, registerTraceWriter *os.File
	defer func() {
		for _, f := range []*os.File{statsWriter, coverageWriter, stackTraceWriter, registerTraceWriter} {
			if f != nil {
				_ = f.Close()
			}
		}
	}()

	if *enableTrace {
		name := *traceFile
		if name == "" {
			name = "trace.log"
		}
		f, err := os.Create(name) // #nosec G304 -- user-provided diagnostic output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open trace file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		machine.ExecutionTrace = vm.NewExecutionTrace(f)
		if *traceFilter != "" {
			machine.ExecutionTrace.SetFilterRegisters(strings.Split(*traceFilter, ","))
		}
		machine.ExecutionTrace.Start()
		machine.TraceInstructions(true)
	}

	if *enableStats {
		name := *statsFile
		if name == "" {
			name = "stats." + extensionFor(*statsFormat)
		}
		f, err := os.Create(name) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open statistics file: %v\n", err)
			os.Exit(1)
		}
		statsWriter = f
		machine.Statistics = vm.NewPerformanceStatistics()
		machine.Statistics.Start()
	}

	if *enableCoverage {
		name := *coverageFile
		if name == "" {
			name = "coverage.txt"
		}
		f, err := os.Create(name) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open coverage file: %v\n", err)
			os.Exit(1)
		}
		coverageWriter = f
		machine.CodeCoverage = vm.NewCodeCoverage(f)
		machine.CodeCoverage.SetCodeRange(layout.CodeStart, layout.DataStart)
		machine.CodeCoverage.LoadSymbols(symbols)
		machine.CodeCoverage.Start()
	}

	if *enableStackTrace {
		name := *stackTraceFile
		if name == "" {
			name = "stacktrace.txt"
		}
		f, err := os.Create(name) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open stack trace file: %v\n", err)
			os.Exit(1)
		}
		stackTraceWriter = f
		machine.StackTrace = vm.NewStackTrace(f, layout.HeapStart, layout.StackTop)
		machine.StackTrace.Start(layout.StackTop)
	}

	if *enableRegisterTrace {
		name := *registerTraceFile
		if name == "" {
			name = "regtrace.txt"
		}
		f, err := os.Create(name) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open register trace file: %v\n", err)
			os.Exit(1)
		}
		registerTraceWriter = f
		machine.RegisterTrace = vm.NewRegisterTrace(f)
		machine.RegisterTrace.LoadSymbols(symbols)
		machine.RegisterTrace.Start()
	}

	switch {
	case *tuiMode:
		dbg := debugger.NewDebugger(machine)
		dbg.LoadSymbols(symbols)
		dbg.LoadSourceMap(sourceMap)
		if err := debugger.RunTUI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "debugger error: %v\n", err)
			os.Exit(1)
		}
	case *debugMode:
		dbg := debugger.NewDebugger(machine)
		dbg.LoadSymbols(symbols)
		dbg.LoadSourceMap(sourceMap)
		if err := debugger.RunCLI(dbg); err != nil {
			fmt.Fprintf(os.Stderr, "debugger error: %v\n", err)
			os.Exit(1)
		}
	default:
		machine.State = vm.StateRunning
		for machine.State == vm.StateRunning {
			if err := machine.Step(); err != nil {
				fmt.Fprintf(os.Stderr, "execution error at RPC=0x%X: %v\n", machine.CPU.R[vm.RPC], err)
				os.Exit(1)
			}
		}
		if machine.State == vm.StateError {
			fmt.Fprintf(os.Stderr, "halted in error state: %v\n", machine.LastError)
			os.Exit(1)
		}
		if *verboseMode {
			fmt.Printf("Halted after %d cycles, RRES=0x%X\n", machine.CPU.Cycles, machine.CPU.R[vm.RRES])
		}
	}

	if machine.ExecutionTrace != nil {
		if err := machine.ExecutionTrace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush execution trace: %v\n", err)
		}
	}
	if machine.Statistics != nil {
		machine.Statistics.Finalize()
		if err := exportStatistics(machine.Statistics, statsWriter, *statsFormat); err != nil {
			fmt.Fprintf(os.Stderr, "failed to export statistics: %v\n", err)
		}
	}
	if machine.CodeCoverage != nil {
		if err := machine.CodeCoverage.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush coverage: %v\n", err)
		}
	}
	if machine.StackTrace != nil {
		if err := machine.StackTrace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush stack trace: %v\n", err)
		}
	}
	if machine.RegisterTrace != nil {
		if err := machine.RegisterTrace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush register trace: %v\n", err)
		}
	}

	os.Exit(int(machine.ExitCode))
}

// buildSymbolsAndSourceMap mirrors service.DebuggerService.LoadProgram's
// extraction: only label symbols are exposed for address resolution, and
// data directives are tagged so the debugger can display them without
// treating them as valid breakpoint targets.
func buildSymbolsAndSourceMap(program *parser.Program) (map[string]uint64, map[uint64]string) {
	symbols := make(map[string]uint64)
	for name, symbol := range program.SymbolTable.GetAllSymbols() {
		if symbol.Type == parser.SymbolLabel {
			symbols[name] = symbol.Value
		}
	}

	sourceMap := make(map[uint64]string)
	for _, item := range program.Items {
		switch {
		case item.Instruction != nil:
			sourceMap[item.Instruction.Address] = item.Instruction.RawLine
		case item.Directive != nil:
			dir := item.Directive
			switch dir.Name {
			case "word", "half", "byte", "ascii", "asciz", "string", "space", "skip":
				sourceMap[dir.Address] = "[DATA]" + dir.RawLine
			}
		}
	}
	return symbols, sourceMap
}

func extensionFor(format string) string {
	switch format {
	case "csv":
		return "csv"
	case "html":
		return "html"
	default:
		return "json"
	}
}

func exportStatistics(stats *vm.PerformanceStatistics, w *os.File, format string) error {
	switch format {
	case "csv":
		return stats.ExportCSV(w)
	case "html":
		return stats.ExportHTML(w)
	default:
		return stats.ExportJSON(w)
	}
}

// runAPIServer starts the HTTP API server and blocks until it receives
// SIGINT/SIGTERM or its parent process exits.
func runAPIServer(port int) {
	server := api.NewServerWithVersion(port, Version, Commit, Date)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "server shutdown error: %v\n", err)
			}
		})
	}

	monitor := api.NewProcessMonitor(shutdown)
	monitor.Start()
	defer monitor.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		shutdown()
	}()

	fmt.Printf("oivm API server listening on :%d\n", port)
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// dumpSymbolTable writes every symbol in st, sorted by address, to filename
// (or stdout if filename is empty).
func dumpSymbolTable(st *parser.SymbolTable, filename string) error {
	out := os.Stdout
	if filename != "" {
		f, err := os.Create(filename) // #nosec G304 -- user-provided diagnostic output path
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	all := st.GetAllSymbols()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return all[names[i]].Value < all[names[j]].Value
	})

	fmt.Fprintf(out, "%-32s %-10s %s\n", "NAME", "TYPE", "VALUE")
	for _, name := range names {
		sym := all[name]
		var kind string
		switch sym.Type {
		case parser.SymbolLabel:
			kind = "label"
		case parser.SymbolConstant:
			kind = "constant"
		case parser.SymbolVariable:
			kind = "variable"
		default:
			kind = "unknown"
		}
		fmt.Fprintf(out, "%-32s %-10s 0x%X\n", name, kind, sym.Value)
	}
	return nil
}

func printHelp() {
	fmt.Print(`oivm - OneImage bytecode VM, assembler and debugger

Usage:
  oivm [flags] <file.oi> [program args...]
  oivm -api-server [-port N]
  oivm -dump-symbols <file.oi>

Execution flags:
  -max-cycles N      Maximum instruction count before halt (default 1000000)
  -verbose           Print load and halt summary to stdout

Debugger flags:
  -debug             Start the line-mode CLI debugger
  -tui               Start the full-screen TUI debugger

Remote host flags:
  -api-server        Start the HTTP API server instead of running a file
  -port N            API server port (default 8080)

Diagnostics:
  -trace                 Enable execution trace (one line per retired instruction)
  -trace-file FILE       Trace output file (default trace.log)
  -trace-filter REGS     Only log changes to these registers, e.g. RARG1,RRES
  -stats                 Enable performance statistics
  -stats-file FILE       Statistics output file (default stats.<format>)
  -stats-format FORMAT   json, csv, or html (default json)
  -coverage              Enable code coverage tracking
  -coverage-file FILE    Coverage output file (default coverage.txt)
  -stack-trace           Enable stack usage trace
  -stack-trace-file FILE Stack trace output file (default stacktrace.txt)
  -register-trace        Enable per-register access trace
  -register-trace-file FILE  Register trace output file (default regtrace.txt)

Symbol table:
  -dump-symbols      Assemble, print the symbol table, and exit (no execution)
  -symbols-file FILE Write the symbol table here instead of stdout

Other:
  -version           Show version information
  -help              Show this help

An OI image's RAM size, stack size and entry point are declared inside the
assembly source itself (.ramrequired, .stack, .entry/.org), not on the
command line: the file is the single source of truth for how it loads.

Registers: RZERO RPC RSP RFRAME RARG1 RARG2 RRES RTMP. There is no flags
register; conditional execution reads relation bits encoded in the
instruction itself (see the language reference for rel_gt/rel_lt/...).
`)
}
