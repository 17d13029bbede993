// Package testutil provides testing utilities for regvm tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// Words flattens opcodes, registers and plain integers into a program.
// Any value with an integer underlying type is accepted, so
// Words(vm.OpSet, vm.R1, 10) reads like the program it builds.
func Words(parts ...any) []int64 {
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		out = append(out, toWord(p))
	}
	return out
}

func toWord(p any) int64 {
	v := reflect.ValueOf(p)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint8:
		return int64(v.Uint())
	}
	panic(fmt.Sprintf("testutil: cannot encode %T as a word", p))
}

// EncodeBinary returns words in the host byte order used by program files.
func EncodeBinary(words []int64) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, words); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// TempProgram writes words to a temporary binary program file and returns its path.
// The file is automatically cleaned up when the test finishes.
func TempProgram(t *testing.T, words []int64) string {
	t.Helper()
	return TempFile(t, string(EncodeBinary(words)), ".bin")
}

// TempFile creates a temporary file with the given content and extension.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// Factorial returns the program that computes 10! into R1 and shows it.
func Factorial() []int64 {
	return []int64{
		12, 0, 1, // SET R1, 1
		12, 1, 10, // SET R2, 10
		12, 2, 1, // SET R3, 1
		6, 0, 1, // MULT R1, R2
		4, 1, 2, // SUB R2, R3
		18, 1, 9, // JNZ R2, 9
		13, 0, // SHOW R1
		31, // STOP
	}
}

// CountDown returns the CMP/JLT loop program that shows R2 from 20 down.
func CountDown() []int64 {
	return []int64{
		12, 0, 10, // SET R1, 10
		12, 1, 20, // SET R2, 20
		12, 2, 1, // SET R3, 1
		23, 0, 1, // CMP R1, R2
		13, 1, // SHOW R2
		4, 1, 2, // SUB R2, R3
		21, 9, // JLT 9
		31, // STOP
	}
}
