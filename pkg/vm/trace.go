package vm

import (
	"context"
	"fmt"
	"io"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
)

// TraceFormat selects the encoding used by ExportTrace.
type TraceFormat string

const (
	TraceCSV  TraceFormat = "csv"
	TraceJSON TraceFormat = "json"
)

// Trace column names.
const (
	ColStep       = "step"
	ColIP         = "ip"
	ColOpcode     = "opcode"
	ColStackDepth = "stack_depth"
	ColCallDepth  = "call_depth"
)

// traceRecorder accumulates one row per executed instruction.
type traceRecorder struct {
	steps       []int64
	ips         []int64
	ops         []string
	stackDepths []int64
	callDepths  []int64
}

func (t *traceRecorder) record(step int64, ip int, op Opcode, stackDepth, callDepth int) {
	t.steps = append(t.steps, step)
	t.ips = append(t.ips, int64(ip))
	t.ops = append(t.ops, op.String())
	t.stackDepths = append(t.stackDepths, int64(stackDepth))
	t.callDepths = append(t.callDepths, int64(callDepth))
}

func (t *traceRecorder) reset() {
	*t = traceRecorder{}
}

// EnableTrace starts recording a row per executed instruction. The state
// is captured before the instruction runs.
func (vm *VM) EnableTrace() {
	vm.trace = &traceRecorder{}
}

// Trace returns the recorded execution trace as a DataFrame, or nil if
// tracing is not enabled.
func (vm *VM) Trace() *dataframe.DataFrame {
	if vm.trace == nil {
		return nil
	}
	t := vm.trace
	return dataframe.NewDataFrame(
		newInt64Series(ColStep, t.steps),
		newInt64Series(ColIP, t.ips),
		newStringSeries(ColOpcode, t.ops),
		newInt64Series(ColStackDepth, t.stackDepths),
		newInt64Series(ColCallDepth, t.callDepths),
	)
}

// ExportTrace writes the recorded trace to w in the given format.
func (vm *VM) ExportTrace(ctx context.Context, w io.Writer, format TraceFormat) error {
	df := vm.Trace()
	if df == nil {
		return fmt.Errorf("tracing not enabled")
	}
	return WriteTrace(ctx, w, df, format)
}

// WriteTrace writes a trace table to w in the given format. An empty
// format means CSV.
func WriteTrace(ctx context.Context, w io.Writer, df *dataframe.DataFrame, format TraceFormat) error {
	switch format {
	case TraceCSV, "":
		return exports.ExportToCSV(ctx, w, df)
	case TraceJSON:
		return exports.ExportToJSON(ctx, w, df)
	default:
		return fmt.Errorf("unknown trace format %q", format)
	}
}

// newInt64Series creates a new SeriesInt64 with the given name and data.
func newInt64Series(name string, data []int64) *dataframe.SeriesInt64 {
	// Convert []int64 to []interface{} for the constructor
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesInt64(name, nil, vals...)
}

// newStringSeries creates a new SeriesString with the given name and data.
func newStringSeries(name string, data []string) *dataframe.SeriesString {
	vals := make([]interface{}, len(data))
	for i, v := range data {
		vals[i] = v
	}
	return dataframe.NewSeriesString(name, nil, vals...)
}
