// Package main provides the CLI entry point for regvm.
//
// Usage:
//
//	regvm program.bin              # Execute a program image
//	regvm run -stats program.bin   # Execute and report statistics
//	regvm disasm program.bin       # Disassemble a program
//	regvm repl [program.bin]       # Start the machine monitor
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/akhildatla/regvm/pkg/config"
	"github.com/akhildatla/regvm/pkg/embed"
	"github.com/akhildatla/regvm/pkg/loader"
	"github.com/akhildatla/regvm/pkg/repl"
	"github.com/akhildatla/regvm/pkg/vm"
)

// Version info set by GoReleaser via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const historyFile = ".regvm_history"

var errFileRequired = errors.New("File required")

var log = commonlog.GetLogger("regvm")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errFileRequired
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "disasm":
		return disasmCommand(args[1:])
	case "repl":
		return replCommand(args[1:])
	case "version":
		fmt.Printf("regvm version %s\n", version)
		if commit != "none" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if date != "unknown" {
			fmt.Printf("  built:  %s\n", date)
		}
		return nil
	case "help", "-h", "--help":
		return printUsage()
	default:
		// regvm [flags] <file>
		return runCommand(args)
	}
}

// verbosity is a repeatable -v flag.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

// setupLogging routes commonlog to stderr. Each -v raises the level by one.
func setupLogging(v verbosity) {
	commonlog.Configure(int(v), nil)
}

// loadConfig reads path, or regvm.toml in the working directory when path
// is empty and that file exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOptional(config.DefaultFile)
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var verbose verbosity
	fs.Var(&verbose, "v", "verbose logging (repeat for debug)")
	configPath := fs.String("config", "", "config file (default: ./regvm.toml if present)")
	maxSteps := fs.Int64("max-steps", 0, "instruction limit (0 = unlimited)")
	timeout := fs.Duration("timeout", 0, "execution timeout (0 = none)")
	tracePath := fs.String("trace", "", "write an execution trace to this file")
	traceFormat := fs.String("trace-format", "", "trace format: csv or json")
	snapshotPath := fs.String("snapshot", "", "write the final machine state (CBOR) to this file")
	stats := fs.Bool("stats", false, "print execution statistics to stderr")

	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(verbose)

	if fs.NArg() < 1 {
		return errFileRequired
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-steps":
			cfg.Limits.MaxSteps = *maxSteps
		case "timeout":
			cfg.Limits.Timeout.Duration = *timeout
		case "trace":
			cfg.Trace.Output = *tracePath
		case "trace-format":
			cfg.Trace.Format = *traceFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	words, err := loader.Load(path)
	if err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	opts := []embed.Option{embed.WithConfig(cfg), embed.WithOutput(out)}
	if cfg.Trace.Output != "" {
		opts = append(opts, embed.WithTrace())
	}

	log.Infof("running %s (%d words)", path, len(words))
	result, runErr := embed.Run(words, opts...)
	if result == nil {
		return runErr
	}
	// Program output comes before any diagnostic.
	out.Flush()

	if cfg.Trace.Output != "" {
		if err := writeTrace(cfg.Trace.Output, result, vm.TraceFormat(cfg.Trace.Format)); err != nil {
			return err
		}
	}
	if *snapshotPath != "" {
		if err := writeSnapshot(*snapshotPath, result.Snapshot); err != nil {
			return err
		}
	}
	if *stats {
		printStats(os.Stderr, result.Stats)
	}

	if runErr != nil {
		return runErr
	}
	log.Infof("halted after %d steps", result.Stats.StepsExecuted)
	return nil
}

func writeTrace(path string, result *embed.Result, format vm.TraceFormat) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace: %w", err)
	}
	defer f.Close()

	if err := vm.WriteTrace(context.Background(), f, result.Trace, format); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	log.Infof("wrote %d trace rows to %s", result.Trace.NRows(), path)
	return nil
}

func writeSnapshot(path string, snap *vm.Snapshot) error {
	data, err := vm.MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	log.Infof("wrote snapshot to %s", path)
	return nil
}

func printStats(w io.Writer, s *vm.ExecutionStats) {
	fmt.Fprintf(w, "steps: %d  time: %s  peak stack: %d  peak calls: %d  stack grows: %d  stack shrinks: %d\n",
		s.StepsExecuted, time.Duration(s.ExecutionTimeNs), s.PeakStackDepth, s.PeakCallDepth,
		s.StackGrows, s.StackShrinks)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opcode", "Count"})
	for _, op := range slices.Sorted(maps.Keys(s.OpCounts)) {
		table.Append([]string{op, strconv.Itoa(s.OpCounts[op])})
	}
	table.Render()
}

func disasmCommand(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: regvm disasm <file> [-o output.txt]")
	}

	words, err := loader.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	listing := vm.Disassemble(words)

	if *output != "" {
		if err := os.WriteFile(*output, []byte(listing), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Disassembled to: %s\n", *output)
	} else {
		fmt.Print(listing)
	}

	return nil
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	var verbose verbosity
	fs.Var(&verbose, "v", "verbose logging (repeat for debug)")
	configPath := fs.String("config", "", "config file (default: ./regvm.toml if present)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(verbose)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	r := repl.New()
	if err := r.SetStackPolicy(cfg.StackPolicy()); err != nil {
		return err
	}
	r.SetMaxSteps(cfg.Limits.MaxSteps)

	if fs.NArg() > 0 {
		words, err := loader.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		r.LoadProgram(words)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	r.Serve(&historyReader{State: ln}, os.Stdout)
	return nil
}

// historyReader records every non-empty line in the liner history.
type historyReader struct {
	*liner.State
}

func (h *historyReader) Prompt(prompt string) (string, error) {
	line, err := h.State.Prompt(prompt)
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	}
	if err == nil && strings.TrimSpace(line) != "" {
		h.AppendHistory(line)
	}
	return line, err
}

func printUsage() error {
	fmt.Println(`regvm - register-based bytecode virtual machine

Usage:
  regvm [run options] <file>
  regvm <command> [arguments]

Commands:
  run <file>            Execute a program (.bin, .csv, .json, .parquet)
  disasm <file>         Disassemble a program
  repl [file]           Start the interactive machine monitor
  version               Print version information
  help                  Show this help message

Run Options:
  -v                    Verbose logging (repeat for debug)
  -config <file>        Config file (default: ./regvm.toml if present)
  -max-steps <n>        Instruction limit (0 = unlimited)
  -timeout <duration>   Execution timeout, e.g. 5s (0 = none)
  -trace <file>         Write an execution trace
  -trace-format <fmt>   Trace format: csv or json
  -snapshot <file>      Write the final machine state as CBOR
  -stats                Print execution statistics to stderr

Disasm Options:
  -o <file>             Output file (default: stdout)

REPL Options:
  -v                    Verbose logging
  -config <file>        Config file

Examples:
  regvm factorial.bin
  regvm run -max-steps 1000000 -stats loop.bin
  regvm run -trace trace.csv -snapshot state.cbor program.bin
  regvm disasm program.bin
  regvm repl program.bin`)
	return nil
}
