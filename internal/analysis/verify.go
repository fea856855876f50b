package analysis

import (
	"golang.org/x/arch/x86/x86asm"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

// Mismatch is a line whose length disagrees with the x86asm decoder, or
// that x86asm cannot decode at all (RefErr set).
type Mismatch struct {
	Addr    addr.Address
	Ours    int
	Ref     int
	Text    string
	RefText string
	RefErr  error
}

// CrossCheck re-decodes each decoded line with golang.org/x/arch/x86/x86asm
// and reports the lines whose lengths differ. Placeholder lines are skipped.
func (v *View) CrossCheck(lines disasm.Stream) []Mismatch {
	var out []Mismatch
	for _, l := range lines {
		if l.Err != nil {
			continue
		}
		src := v.bytesAt(l.Addr)
		ref, err := x86asm.Decode(src, int(v.Mode))
		if err != nil {
			v.Log.Debug("reference cannot decode", "addr", l.Addr, "insn", l.Text(), "err", err)
			out = append(out, Mismatch{Addr: l.Addr, Ours: l.Len(), Text: l.Text(), RefErr: err})
			continue
		}
		if ref.Len == l.Len() {
			continue
		}
		m := Mismatch{
			Addr:    l.Addr,
			Ours:    l.Len(),
			Ref:     ref.Len,
			Text:    l.Text(),
			RefText: x86asm.IntelSyntax(ref, l.Addr.Uint64(), nil),
		}
		v.Log.Warn("length mismatch", "addr", m.Addr, "ours", m.Ours, "ref", m.Ref, "insn", m.Text, "refInsn", m.RefText)
		out = append(out, m)
	}
	return out
}
