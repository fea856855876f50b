package analysis

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"x86scope/internal/disasm"
)

// EscapeUnprintable returns a string where printable Unicode runes are preserved.
// Control and unprintable runes are escaped as \uXXXX. Invalid UTF-8 is escaped as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(fmt.Sprintf("\\x%02X", b[0]))
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(fmt.Sprintf("\\u%04X", r))
		}
		b = b[size:]
	}
	return sb.String()
}

// CString reads the NUL-terminated string at va. Only valid UTF-8 made
// of printable runes, tabs and newlines, at least MinStringLength bytes
// long and terminated within MaxStringLength bytes, is accepted.
func (v *View) CString(va uint64) (string, bool) {
	raw, ok := v.Image.SliceVA(va, MaxStringLength)
	if !ok {
		return "", false
	}
	n := bytes.IndexByte(raw, 0)
	if n < MinStringLength {
		return "", false
	}
	raw = raw[:n]
	if !utf8.Valid(raw) {
		return "", false
	}
	for _, r := range string(raw) {
		if !unicode.IsPrint(r) && r != '\t' && r != '\n' {
			return "", false
		}
	}
	return EscapeUnprintable(raw), true
}

// annotate notes the symbol a branch lands on and the symbol or string a
// memory operand names.
func (v *View) annotate(line *disasm.Inst) {
	v.Syms.Annotate(line)
	if !line.HasRef {
		return
	}
	if name, ok := v.Syms.Name(line.Ref.Uint64()); ok {
		line.Notes = append(line.Notes, "<"+name+">")
		return
	}
	if s, ok := v.CString(line.Ref.Uint64()); ok {
		line.Notes = append(line.Notes, `"`+s+`"`)
	}
}
