// Package embed provides the Go embedding API for regvm.
//
// Pass program words, get the printed output back.
//
// Basic usage:
//
//	result, err := embed.Run([]int64{
//	    12, 0, 42, // SET R1, 42
//	    13, 0, // SHOW R1
//	    31, // STOP
//	})
//	fmt.Print(result.Output) // 42
//
// With limits and tracing:
//
//	result, err := embed.RunFile("prog.bin",
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxSteps(1_000_000),
//	    embed.WithTrace(),
//	)
package embed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	dataframe "github.com/rocketlaunchr/dataframe-go"

	"github.com/akhildatla/regvm/pkg/config"
	"github.com/akhildatla/regvm/pkg/loader"
	"github.com/akhildatla/regvm/pkg/vm"
)

// Common errors
var (
	ErrTimeout          = errors.New("execution timeout exceeded")
	ErrInstructionLimit = errors.New("instruction limit exceeded")
)

// Result is what a run produced. It is returned even when execution
// fails, holding the output and machine state up to the fault.
type Result struct {
	// Output is everything SHOW, POP and PRINT wrote.
	Output string

	// Stats are the execution statistics of the run.
	Stats *vm.ExecutionStats

	// Snapshot is the machine state when execution stopped.
	Snapshot *vm.Snapshot

	// Trace holds one row per executed instruction when WithTrace is set.
	Trace *dataframe.DataFrame
}

// Options configures execution behavior.
type Options struct {
	// Output also receives the program output as it is written.
	Output io.Writer

	// Timeout sets maximum execution time. Zero means no timeout.
	Timeout time.Duration

	// MaxSteps limits the number of instructions executed.
	// Zero means unlimited.
	MaxSteps int64

	// StackPolicy overrides the default operand stack policy.
	StackPolicy *vm.StackPolicy

	// Trace records an execution trace into Result.Trace.
	Trace bool

	// Context for cancellation. If nil, context.Background() is used.
	Context context.Context
}

// Option is a functional option for configuring execution.
type Option func(*Options)

// WithOutput copies program output to w as well as into Result.Output.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// WithTimeout sets execution timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxSteps sets the instruction limit.
func WithMaxSteps(n int64) Option {
	return func(o *Options) {
		o.MaxSteps = n
	}
}

// WithStackPolicy sets the operand stack policy.
func WithStackPolicy(p vm.StackPolicy) Option {
	return func(o *Options) {
		o.StackPolicy = &p
	}
}

// WithTrace enables execution tracing.
func WithTrace() Option {
	return func(o *Options) {
		o.Trace = true
	}
}

// WithContext sets the context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		o.Context = ctx
	}
}

// WithConfig applies the stack policy and limits from a config file.
// Options given after it override its values.
func WithConfig(c *config.Config) Option {
	return func(o *Options) {
		p := c.StackPolicy()
		o.StackPolicy = &p
		o.MaxSteps = c.Limits.MaxSteps
		o.Timeout = c.Limits.Timeout.Duration
	}
}

// RunFile loads a program file and runs it.
func RunFile(path string, opts ...Option) (*Result, error) {
	words, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return Run(words, opts...)
}

// Run executes program words until STOP or a fatal error.
//
// Example:
//
//	result, err := embed.Run(words,
//	    embed.WithTimeout(5*time.Second),
//	    embed.WithMaxSteps(10000),
//	    embed.WithOutput(os.Stdout),
//	)
func Run(words []int64, opts ...Option) (*Result, error) {
	options := &Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(options)
	}

	machine := vm.NewVM()
	if options.StackPolicy != nil {
		if err := machine.SetStackPolicy(*options.StackPolicy); err != nil {
			return nil, fmt.Errorf("stack policy: %w", err)
		}
	}

	var out bytes.Buffer
	if options.Output != nil {
		machine.SetOutput(io.MultiWriter(&out, options.Output))
	} else {
		machine.SetOutput(&out)
	}

	machine.SetMaxSteps(options.MaxSteps)
	machine.EnableStats()
	if options.Trace {
		machine.EnableTrace()
	}

	if err := machine.Load(words); err != nil {
		return nil, err
	}

	// Setup timeout context
	ctx := options.Context
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}
	machine.SetContext(ctx)

	err := machine.Execute()
	result := &Result{
		Output:   out.String(),
		Stats:    machine.Stats(),
		Snapshot: machine.Snapshot(),
		Trace:    machine.Trace(),
	}
	if err != nil {
		// Map limit errors to embed package errors, keeping the cause
		switch {
		case errors.Is(err, vm.ErrInstructionLimit):
			return result, fmt.Errorf("%w: %w", ErrInstructionLimit, err)
		case errors.Is(err, context.DeadlineExceeded):
			return result, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return result, err
	}

	return result, nil
}
