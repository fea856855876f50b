// Package colorize highlights x86 listing lines for the terminal.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"x86scope/internal/disasm"
	palette "x86scope/internal/x86scope/styles"
)

// Disabled reports whether X86SCOPE_NO_COLOR is set.
func Disabled() bool {
	return os.Getenv("X86SCOPE_NO_COLOR") != ""
}

// getAssemblyLexer returns an Intel-syntax lexer, falling back to gas.
func getAssemblyLexer() chroma.Lexer {
	for _, name := range []string{"nasm", "gas"} {
		if lexer := lexers.Get(name); lexer != nil {
			return chroma.Coalesce(lexer)
		}
	}
	return nil
}

func getDisasmStyle() *chroma.Style {
	_ = DisasmDark
	for _, name := range []string{"disasm-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func getTerminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// ColorizeAssembly highlights a block of Intel-syntax assembly.
func ColorizeAssembly(code string) (string, error) {
	if Disabled() {
		return code, nil
	}
	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDisasmStyle(), iterator); err != nil {
		return code, err
	}
	// The lexer appends a newline the input may not have had.
	out := buf.String()
	if !strings.HasSuffix(code, "\n") {
		if i := strings.LastIndex(out, "\n"); i >= 0 {
			out = out[:i] + out[i+1:]
		}
	}
	return out, nil
}

// rgb wraps s in a 24-bit foreground escape for a #rrggbb color.
func rgb(hex, s string) string {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return s
	}
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", r, g, b, s)
}

// ColorizeInst renders a listing line: address and bytes in gray, the
// instruction through chroma, notes as comments. Undecodable bytes are red.
func ColorizeInst(in disasm.Inst) string {
	if Disabled() {
		return in.String()
	}

	hex := make([]string, len(in.Raw))
	for k, b := range in.Raw {
		hex[k] = fmt.Sprintf("%02x", b)
	}
	bytesCol := fmt.Sprintf("%-30s", strings.Join(hex, " "))
	insn := fmt.Sprintf("%-8s %-36s", in.Op, in.Args)

	var body string
	if in.Err != nil {
		body = rgb(palette.Invalid, insn)
	} else if c, err := ColorizeAssembly(insn); err == nil {
		body = c
	} else {
		body = insn
	}

	line := rgb(palette.Address, in.Addr.String()) + "  " + rgb(palette.Address, bytesCol) + " " + body
	if len(in.Notes) > 0 {
		line += " " + rgb(palette.Comment, "; "+strings.Join(in.Notes, ", "))
	}
	return line
}

// ColorizeInstructionLine colorizes a formatted listing line of the form
// "address  bytes  insn ; notes", keeping its spacing.
func ColorizeInstructionLine(line string) string {
	if Disabled() {
		return line
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, ";") {
		return rgb(palette.Comment, line)
	}

	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || !isHex(parts[0]) {
		c, _ := ColorizeAssembly(line)
		return c
	}
	c, _ := ColorizeAssembly(parts[1])
	return rgb(palette.Address, parts[0]) + " " + c
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !((ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')) {
			return false
		}
	}
	return true
}

// Strip removes ANSI escape sequences.
func Strip(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}
