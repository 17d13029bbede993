package vm

import (
	"bytes"
	"fmt"
)

// Disassemble converts a program back to a readable listing, one
// instruction per line prefixed with its address. Words that do not
// decode are listed as .word entries and the walk resumes at the next word.
func Disassemble(program []int64) string {
	var buf bytes.Buffer

	buf.WriteString("; Disassembled from regvm program\n")
	buf.WriteString(fmt.Sprintf("; %d words\n\n", len(program)))

	for ip := 0; ip < len(program); {
		line, width := DisassembleAt(program, ip)
		buf.WriteString(fmt.Sprintf("%04d: %s\n", ip, line))
		ip += width
	}

	return buf.String()
}

// DisassembleAt renders the instruction at ip and returns its width in
// words (1 for an undecodable word).
func DisassembleAt(program []int64, ip int) (string, int) {
	inst, err := Decode(program, ip)
	if err != nil {
		if ip < 0 || ip >= len(program) {
			return "", 1
		}
		return fmt.Sprintf("%-6s %d", ".word", program[ip]), 1
	}
	return inst.String(), inst.Width()
}
