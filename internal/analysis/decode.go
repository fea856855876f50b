package analysis

import (
	"fmt"
	"strings"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
	"x86scope/internal/x86"
)

// DecodeAt decodes the instruction at a. Undecodable bytes, including
// addresses without file bytes behind them, yield a one-byte "db" line
// carrying the error so a listing can step past them.
func (v *View) DecodeAt(a addr.Address) disasm.Inst {
	line := DecodeBytes(v.bytesAt(a), a, v.Mode)
	if line.Err != nil {
		v.Log.Debug("undecodable", "addr", a, "err", line.Err)
	}
	return line
}

// DecodeBytes decodes one instruction from src, which starts at a.
func DecodeBytes(src []byte, a addr.Address, mode x86.Mode) disasm.Inst {
	in, err := x86.Decode(src, a.Uint64(), mode)
	if err != nil {
		return placeholder(a, src, err)
	}
	line := disasm.Inst{
		Addr: a,
		Raw:  src[:in.Len],
		Op:   in.Mnemonic(),
		Args: in.Operands(),
		Flow: flowOf(in.Name),
	}
	if t, ok := in.Target(); ok {
		line.Target = addr.New(a.Width(), t)
		line.HasTarget = true
	}
	if r, ok := in.MemRef(); ok {
		line.Ref = addr.New(a.Width(), r)
		line.HasRef = true
	}
	return line
}

func placeholder(a addr.Address, src []byte, err error) disasm.Inst {
	if len(src) == 0 {
		return disasm.Inst{Addr: a, Raw: []byte{0}, Op: "db", Args: "?", Err: fmt.Errorf("no file bytes at %s", a)}
	}
	return disasm.Inst{Addr: a, Raw: src[:1], Op: "db", Args: fmt.Sprintf("0x%02x", src[0]), Err: err}
}

func flowOf(name string) disasm.Flow {
	switch {
	case name == "ret" || name == "retf" || strings.HasPrefix(name, "iret"):
		return disasm.FlowReturn
	case name == "jmp" || name == "jmpf":
		return disasm.FlowJump
	case name == "call" || name == "callf":
		return disasm.FlowCall
	case name == "hlt" || name == "int3" || name == "ud1" || name == "ud2":
		return disasm.FlowStop
	case strings.HasPrefix(name, "j") || strings.HasPrefix(name, "loop"):
		return disasm.FlowCondJump
	}
	return disasm.FlowNext
}
