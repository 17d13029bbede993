// Package repl implements the regvm machine monitor: load a program, step
// through it, and inspect registers, stack and call frames between steps.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/akhildatla/regvm/pkg/loader"
	"github.com/akhildatla/regvm/pkg/vm"
)

const (
	prompt         = "regvm> "
	defaultListing = 10
)

// LineReader supplies input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

// REPL is an interactive machine monitor.
type REPL struct {
	vm      *vm.VM
	loaded  bool
	history []string
}

// New creates a new REPL instance with an empty machine.
func New() *REPL {
	return &REPL{
		vm:      vm.NewVM(),
		history: []string{},
	}
}

// SetStackPolicy sets the stack policy used from the next load or reset.
func (r *REPL) SetStackPolicy(p vm.StackPolicy) error {
	return r.vm.SetStackPolicy(p)
}

// SetMaxSteps bounds the steps a single run command may take since the
// last load or reset. Zero means unlimited.
func (r *REPL) SetMaxSteps(n int64) {
	r.vm.SetMaxSteps(n)
}

// LoadProgram loads words into the machine.
func (r *REPL) LoadProgram(words []int64) {
	r.vm.Load(words)
	r.loaded = true
}

// VM returns the machine being monitored.
func (r *REPL) VM() *vm.VM {
	return r.vm
}

// History returns the commands entered so far.
func (r *REPL) History() []string {
	return r.history
}

// Start runs the monitor reading lines from in until EOF or quit.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	r.Serve(&scannerReader{scanner: bufio.NewScanner(in), out: out}, out)
}

// Serve runs the monitor on lines from lr until EOF or quit.
func (r *REPL) Serve(lr LineReader, out io.Writer) {
	fmt.Fprintln(out, "regvm monitor")
	fmt.Fprintln(out, "Type 'help' for available commands, 'quit' to exit")
	fmt.Fprintln(out)

	for {
		line, err := lr.Prompt(prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			return
		}
		if r.Exec(line, out) {
			return
		}
	}
}

// Exec runs one monitor command and reports whether the monitor should exit.
func (r *REPL) Exec(line string, out io.Writer) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	r.history = append(r.history, strings.TrimSpace(line))
	r.vm.SetOutput(out)

	switch parts[0] {
	case "quit", "exit", "q":
		fmt.Fprintln(out, "Goodbye!")
		return true

	case "help", "h", "?":
		printHelp(out)

	case "load", "l":
		if len(parts) != 2 {
			fmt.Fprintln(out, "Usage: load <file>")
			return false
		}
		r.load(parts[1], out)

	case "history":
		for i, cmd := range r.history {
			fmt.Fprintf(out, "%3d: %s\n", i+1, cmd)
		}

	default:
		if !r.loaded {
			if isMachineCommand(parts[0]) {
				fmt.Fprintln(out, "No program loaded. Use 'load <file>'")
			} else {
				fmt.Fprintf(out, "Unknown command: %s (type 'help')\n", parts[0])
			}
			return false
		}
		r.machineCommand(parts, out)
	}
	return false
}

func isMachineCommand(name string) bool {
	switch name {
	case "step", "s", "run", "r", "regs", "stack", "frames", "disasm", "d", "reset":
		return true
	}
	return false
}

func (r *REPL) machineCommand(parts []string, out io.Writer) {
	switch parts[0] {
	case "step", "s":
		n := 1
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 1 {
				fmt.Fprintln(out, "Usage: step [n]")
				return
			}
			n = v
		}
		r.step(n, out)

	case "run", "r":
		r.run(out)

	case "regs":
		r.printRegisters(out)

	case "stack":
		r.printStack(out)

	case "frames":
		r.printFrames(out)

	case "disasm", "d":
		from, count := r.vm.IP(), defaultListing
		if len(parts) > 1 {
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 0 {
				fmt.Fprintln(out, "Usage: disasm [from [count]]")
				return
			}
			from = v
		}
		if len(parts) > 2 {
			v, err := strconv.Atoi(parts[2])
			if err != nil || v < 1 {
				fmt.Fprintln(out, "Usage: disasm [from [count]]")
				return
			}
			count = v
		}
		r.disasm(from, count, out)

	case "reset":
		r.vm.Reset()
		fmt.Fprintln(out, "Machine reset")

	default:
		fmt.Fprintf(out, "Unknown command: %s (type 'help')\n", parts[0])
	}
}

func (r *REPL) load(path string, out io.Writer) {
	words, err := loader.Load(path)
	if err != nil {
		fmt.Fprintf(out, "Error loading %s: %v\n", path, err)
		return
	}
	r.LoadProgram(words)
	fmt.Fprintf(out, "Loaded %s (%d words)\n", path, len(words))
}

func (r *REPL) step(n int, out io.Writer) {
	for i := 0; i < n; i++ {
		if r.vm.Halted() {
			fmt.Fprintln(out, "Program halted. Use 'reset' to run again")
			return
		}
		line, _ := vm.DisassembleAt(r.vm.Program(), r.vm.IP())
		fmt.Fprintf(out, "%04d: %s\n", r.vm.IP(), line)
		if err := r.vm.Step(); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
	}
}

func (r *REPL) run(out io.Writer) {
	if r.vm.Halted() {
		fmt.Fprintln(out, "Program halted. Use 'reset' to run again")
		return
	}
	if err := r.vm.Execute(); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Halted at %04d\n", r.vm.IP())
}

func (r *REPL) printRegisters(out io.Writer) {
	regs := r.vm.Registers()
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Reg", "Value", "Reg", "Value"})
	half := vm.NumRegisters / 2
	for i := 0; i < half; i++ {
		left, right := vm.Register(i), vm.Register(i+half)
		table.Append([]string{
			left.String(), strconv.FormatInt(regs[left], 10),
			right.String(), strconv.FormatInt(regs[right], 10),
		})
	}
	table.Render()
	fmt.Fprintf(out, "IP = %04d\n", r.vm.IP())
}

func (r *REPL) printStack(out io.Writer) {
	values := r.vm.StackValues()
	if len(values) == 0 {
		fmt.Fprintln(out, "Stack is empty")
		return
	}
	fmt.Fprintf(out, "Stack (%d values, top first):\n", len(values))
	for i := len(values) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "  [%d] %d\n", i, values[i])
	}
}

func (r *REPL) printFrames(out io.Writer) {
	fps := r.vm.FramePointers()
	if len(fps) == 0 {
		fmt.Fprintln(out, "No active calls")
		return
	}
	values := r.vm.StackValues()
	fmt.Fprintf(out, "Call depth %d:\n", len(fps))
	for i := len(fps) - 1; i >= 0; i-- {
		// The return address sits just below the frame pointer.
		if fps[i] > len(values) {
			fmt.Fprintf(out, "  #%d fp=%d (clobbered)\n", i, fps[i])
			continue
		}
		fmt.Fprintf(out, "  #%d fp=%d return=%04d\n", i, fps[i], values[fps[i]-1])
	}
}

func (r *REPL) disasm(from, count int, out io.Writer) {
	program := r.vm.Program()
	for ip, n := from, 0; ip < len(program) && n < count; n++ {
		line, width := vm.DisassembleAt(program, ip)
		marker := "  "
		if ip == r.vm.IP() {
			marker = "=>"
		}
		fmt.Fprintf(out, "%s %04d: %s\n", marker, ip, line)
		ip += width
	}
}

// scannerReader adapts a bufio.Scanner to LineReader, echoing the prompt.
type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func printHelp(out io.Writer) {
	help := `
regvm Monitor Commands:
  help, h, ?              Show this help message
  quit, exit, q           Exit the monitor
  load, l <file>          Load a program (.bin, .csv, .json, .parquet)
  step, s [n]             Execute n instructions (default 1)
  run, r                  Run until STOP or an error
  regs                    Show registers
  stack                   Show the operand stack
  frames                  Show active call frames
  disasm, d [from [n]]    Disassemble n instructions (default: 10 from IP)
  reset                   Reset the machine, keeping the program
  history                 Show command history
`
	fmt.Fprint(out, help)
}
