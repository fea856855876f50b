package colorize

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

func sample() disasm.Inst {
	return disasm.Inst{
		Addr:      addr.New64(0x401004),
		Raw:       []byte{0xe8, 0x07, 0x00, 0x00, 0x00},
		Op:        "call",
		Args:      "0x401010",
		Target:    addr.New64(0x401010),
		HasTarget: true,
		Flow:      disasm.FlowCall,
		Notes:     []string{"<helper>"},
	}
}

func TestNoColor(t *testing.T) {
	t.Setenv("X86SCOPE_NO_COLOR", "1")
	in := sample()
	assert.Equal(t, in.String(), ColorizeInst(in))
	assert.Equal(t, "00401000 ret", ColorizeInstructionLine("00401000 ret"))

	out, err := ColorizeAssembly("xor eax, eax\nret\n")
	assert.NoError(t, err)
	assert.Equal(t, "xor eax, eax\nret\n", out)
}

func TestColorizeInstKeepsText(t *testing.T) {
	t.Setenv("X86SCOPE_NO_COLOR", "")
	in := sample()
	got := ColorizeInst(in)
	assert.Contains(t, got, "\x1b[")
	assert.Equal(t, in.String(), strings.TrimRight(Strip(got), " "))
	assert.NotContains(t, got, "\n")

	bad := disasm.Inst{Addr: addr.New32(0x1000), Raw: []byte{0x06}, Op: "db", Args: "0x06", Err: errors.New("reserved")}
	assert.Equal(t, bad.String(), strings.TrimRight(Strip(ColorizeInst(bad)), " "))
}

func TestColorizeInstructionLine(t *testing.T) {
	t.Setenv("X86SCOPE_NO_COLOR", "")
	tests := []struct {
		name string
		line string
	}{
		{"instruction", "0000000000401001 mov rbp, rsp"},
		{"comment only", "    ; entry point"},
		{"no address", "push rbp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.line, Strip(ColorizeInstructionLine(tt.line)))
		})
	}
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "ret", Strip("\x1b[38;2;255;255;255mret\x1b[0m"))
	assert.Equal(t, "", Strip(""))
}
