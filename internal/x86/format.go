package x86

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	reg8 = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
	// byte registers as seen with a REX byte
	reg8REX = [16]string{
		"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
	}
	reg16 = [16]string{
		"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w",
	}
	reg32 = [16]string{
		"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d",
	}
	reg64 = [16]string{
		"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	}
	segRegs = [6]string{"es", "cs", "ss", "ds", "fs", "gs"}
)

// generalName names general register i of size bytes.
func generalName(i, size int, rex bool) string {
	if i < 0 || i > 15 {
		return "?"
	}
	switch size {
	case 1:
		if rex || i >= 8 {
			return reg8REX[i]
		}
		return reg8[i]
	case 2:
		return reg16[i]
	case 8:
		return reg64[i]
	}
	return reg32[i]
}

func ipName(addrSize int) string {
	switch addrSize {
	case 16:
		return "ip"
	case 32:
		return "eip"
	}
	return "rip"
}

func (r Reg) String() string {
	switch r.Class {
	case ClassGeneral:
		return generalName(r.Index, r.Size, r.NeedREX)
	case ClassSegment:
		if r.Index >= 0 && r.Index < len(segRegs) {
			return segRegs[r.Index]
		}
		return "?"
	case ClassControl:
		return "cr" + strconv.Itoa(r.Index)
	case ClassDebug:
		return "dr" + strconv.Itoa(r.Index)
	case ClassTest:
		return "tr" + strconv.Itoa(r.Index)
	case ClassFloat:
		if r.Index == 0 {
			return "st"
		}
		return fmt.Sprintf("st(%d)", r.Index)
	case ClassMMX:
		return "mm" + strconv.Itoa(r.Index)
	case ClassXMM:
		return "xmm" + strconv.Itoa(r.Index)
	}
	return "?"
}

func (o Imm) String() string {
	return fmt.Sprintf("%#x", o.Value)
}

func (o FarPtr) String() string {
	return fmt.Sprintf("%#x:%#x", o.Seg, o.Offset)
}

func ptrName(size int) string {
	switch size {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "dword"
	case 6:
		return "fword"
	case 8:
		return "qword"
	case 10:
		return "tbyte"
	case 16:
		return "xmmword"
	}
	return ""
}

func (m Mem) String() string {
	var b strings.Builder
	if p := ptrName(m.Size); p != "" && !m.AddrPtr {
		b.WriteString(p)
		b.WriteString(" ptr ")
	}
	if m.Segment != SegNone {
		b.WriteString(segRegs[m.Segment.Index()])
		b.WriteByte(':')
	}
	b.WriteByte('[')
	regSize := m.AddrSize / 8
	terms := 0
	switch {
	case m.Base == RegIP:
		b.WriteString(ipName(m.AddrSize))
		terms++
	case m.Base != RegNone:
		b.WriteString(generalName(m.Base, regSize, false))
		terms++
	}
	if m.Index != RegNone {
		if terms > 0 {
			b.WriteByte('+')
		}
		b.WriteString(generalName(m.Index, regSize, false))
		if m.Scale > 1 {
			b.WriteByte('*')
			b.WriteString(strconv.Itoa(m.Scale))
		}
		terms++
	}
	switch {
	case terms == 0:
		fmt.Fprintf(&b, "%#x", uint64(m.Disp)&mask(regSize))
	case m.Disp < 0:
		fmt.Fprintf(&b, "-%#x", uint64(-m.Disp))
	case m.Disp > 0:
		fmt.Fprintf(&b, "+%#x", uint64(m.Disp))
	}
	b.WriteByte(']')
	return b.String()
}

// Mnemonic is the instruction name with any lock or rep prefix.
func (in Insn) Mnemonic() string {
	var pre string
	if in.Prefix.Lock {
		pre = "lock "
	}
	switch in.Prefix.Rep {
	case RepZ:
		pre += "rep "
	case RepNZ:
		pre += "repne "
	}
	return pre + in.Name
}

// Operands joins the operands in Intel order.
func (in Insn) Operands() string {
	var b strings.Builder
	for i, a := range in.Args {
		if a == nil {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	return b.String()
}

// String formats the instruction in Intel syntax.
func (in Insn) String() string {
	ops := in.Operands()
	if ops == "" {
		return in.Mnemonic()
	}
	return in.Mnemonic() + " " + ops
}

// Target returns the absolute destination of a relative branch.
func (in Insn) Target() (uint64, bool) {
	for _, a := range in.Args {
		if imm, ok := a.(Imm); ok && imm.Rel {
			return imm.Value, true
		}
	}
	return 0, false
}

// MemRef returns the address of the first memory operand whose location
// does not depend on register contents: rip-relative operands and bare
// 32 or 64-bit displacements. The segment base is assumed to be zero.
func (in Insn) MemRef() (uint64, bool) {
	for _, a := range in.Args {
		m, ok := a.(Mem)
		if !ok {
			continue
		}
		switch {
		case m.Base == RegIP:
			return (in.Addr + uint64(in.Len) + uint64(m.Disp)) & mask(m.AddrSize/8), true
		case m.Base == RegNone && m.Index == RegNone && m.AddrSize != 16:
			return uint64(m.Disp) & mask(m.AddrSize/8), true
		}
		return 0, false
	}
	return 0, false
}
