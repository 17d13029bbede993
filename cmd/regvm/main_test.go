package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/akhildatla/regvm/internal/testutil"
	"github.com/akhildatla/regvm/pkg/vm"
)

// buildRegvm builds the regvm binary for testing
func buildRegvm(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	binary := filepath.Join(tmpDir, "regvm")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	cmd.Dir = "."
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build regvm: %v\n%s", err, output)
	}
	return binary
}

// runRegvm runs the binary and returns stdout, stderr and the exit code.
func runRegvm(t *testing.T, binary string, stdin string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("failed to run regvm: %v", err)
	}
	return stdout.String(), stderr.String(), code
}

func TestCLI_Help(t *testing.T) {
	binary := buildRegvm(t)

	out, _, code := runRegvm(t, binary, "", "help")
	if code != 0 {
		t.Fatalf("help exited with %d", code)
	}
	for _, want := range []string{"regvm", "run", "disasm", "repl", "-max-steps"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	binary := buildRegvm(t)

	out, _, code := runRegvm(t, binary, "", "version")
	if code != 0 || !strings.Contains(out, "regvm version") {
		t.Errorf("expected version output, got %d: %s", code, out)
	}
}

func TestCLI_FileRequired(t *testing.T) {
	binary := buildRegvm(t)

	_, errOut, code := runRegvm(t, binary, "")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "error: File required") {
		t.Errorf("expected file required message, got: %s", errOut)
	}

	_, errOut, code = runRegvm(t, binary, "", "run")
	if code != 1 || !strings.Contains(errOut, "File required") {
		t.Errorf("expected run without file to fail, got %d: %s", code, errOut)
	}
}

func TestCLI_RunFactorial(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Factorial())

	out, errOut, code := runRegvm(t, binary, "", path)
	if code != 0 {
		t.Fatalf("run failed with %d: %s", code, errOut)
	}
	if out != "3628800\n" {
		t.Errorf("expected 3628800, got %q", out)
	}
}

func TestCLI_RunCountDown(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.CountDown())

	out, errOut, code := runRegvm(t, binary, "", "run", path)
	if code != 0 {
		t.Fatalf("run failed with %d: %s", code, errOut)
	}
	want := "20\n19\n18\n17\n16\n15\n14\n13\n12\n11\n10\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestCLI_RunWordTable(t *testing.T) {
	binary := buildRegvm(t)

	var b strings.Builder
	b.WriteString("word\n")
	for _, w := range testutil.Factorial() {
		b.WriteString(strconv.FormatInt(w, 10) + "\n")
	}
	path := testutil.TempFile(t, b.String(), ".csv")

	out, errOut, code := runRegvm(t, binary, "", path)
	if code != 0 {
		t.Fatalf("run failed with %d: %s", code, errOut)
	}
	if out != "3628800\n" {
		t.Errorf("expected 3628800, got %q", out)
	}
}

func TestCLI_MisalignedFile(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempFile(t, "0123456789ab", ".bin")

	out, errOut, code := runRegvm(t, binary, "", path)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if out != "" {
		t.Errorf("expected no program output, got %q", out)
	}
	if !strings.Contains(errOut, "invalid binary size") {
		t.Errorf("expected size diagnostic, got: %s", errOut)
	}
}

func TestCLI_MissingFile(t *testing.T) {
	binary := buildRegvm(t)

	_, errOut, code := runRegvm(t, binary, "", "/nonexistent/prog.bin")
	if code != 1 || !strings.Contains(errOut, "error:") {
		t.Errorf("expected failure for missing file, got %d: %s", code, errOut)
	}
}

func TestCLI_FaultAborts(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Words(
		vm.OpSet, vm.R1, 8,
		vm.OpShow, vm.R1,
		vm.OpRet,
		vm.OpShow, vm.R1,
		vm.OpStop,
	))

	out, errOut, code := runRegvm(t, binary, "", path)
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if out != "8\n" {
		t.Errorf("expected output up to the fault, got %q", out)
	}
	if !strings.Contains(errOut, "error: RET at 0005: call stack underflow") {
		t.Errorf("expected diagnostic naming the operation, got: %s", errOut)
	}
}

func TestCLI_MaxStepsFromConfig(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Words(vm.OpJmp, 0))
	cfg := testutil.TempFile(t, "[limits]\nmax-steps = 50\n", ".toml")

	_, errOut, code := runRegvm(t, binary, "", "run", "-config", cfg, path)
	if code != 1 || !strings.Contains(errOut, "instruction limit exceeded") {
		t.Errorf("expected config limit to stop the loop, got %d: %s", code, errOut)
	}

	_, errOut, code = runRegvm(t, binary, "", "run", "-config", cfg, "-max-steps", "0", "-timeout", "50ms", path)
	if code != 1 || !strings.Contains(errOut, "timeout") {
		t.Errorf("expected the flag to override the config, got %d: %s", code, errOut)
	}
}

func TestCLI_TraceSnapshotStats(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Factorial())
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.json")
	snapPath := filepath.Join(dir, "state.cbor")

	out, errOut, code := runRegvm(t, binary, "", "run",
		"-trace", tracePath, "-trace-format", "json",
		"-snapshot", snapPath, "-stats", path)
	if code != 0 {
		t.Fatalf("run failed with %d: %s", code, errOut)
	}
	if out != "3628800\n" {
		t.Errorf("expected 3628800, got %q", out)
	}
	if !strings.Contains(errOut, "steps: 35") || !strings.Contains(errOut, "MULT") {
		t.Errorf("expected statistics on stderr, got: %s", errOut)
	}

	trace, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("trace not written: %v", err)
	}
	if !strings.Contains(string(trace), `"opcode"`) {
		t.Errorf("unexpected trace content: %s", trace)
	}

	data, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}
	snap, err := vm.UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("snapshot does not decode: %v", err)
	}
	if !snap.Halted || snap.Registers[vm.R1] != 3628800 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestCLI_BadTraceFormat(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Factorial())

	_, errOut, code := runRegvm(t, binary, "", "run", "-trace-format", "xml", path)
	if code != 1 || !strings.Contains(errOut, "unknown trace format") {
		t.Errorf("expected trace format error, got %d: %s", code, errOut)
	}
}

func TestCLI_Disasm(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Factorial())

	out, errOut, code := runRegvm(t, binary, "", "disasm", path)
	if code != 0 {
		t.Fatalf("disasm failed with %d: %s", code, errOut)
	}
	for _, want := range []string{"0000: SET    R1, $1", "0009: MULT   R1, R2", "0020: STOP"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in listing, got:\n%s", want, out)
		}
	}

	listing := filepath.Join(t.TempDir(), "out.txt")
	out, _, code = runRegvm(t, binary, "", "disasm", "-o", listing, path)
	if code != 0 || !strings.Contains(out, "Disassembled to") {
		t.Errorf("expected file output, got %d: %s", code, out)
	}
	if data, err := os.ReadFile(listing); err != nil || !strings.Contains(string(data), "0015: JNZ") {
		t.Errorf("listing file not written correctly: %v", err)
	}
}

func TestCLI_Repl(t *testing.T) {
	binary := buildRegvm(t)
	path := testutil.TempProgram(t, testutil.Factorial())

	out, errOut, code := runRegvm(t, binary, "step\nrun\nregs\nquit\n", "repl", path)
	if code != 0 {
		t.Fatalf("repl failed with %d: %s", code, errOut)
	}
	for _, want := range []string{"regvm monitor", "0000: SET", "3628800", "Goodbye!"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in monitor output, got:\n%s", want, out)
		}
	}
}
