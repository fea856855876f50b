package x86

import "fmt"

// Fetch is an operand-fetch rule: it names where the bytes of an operand
// come from and how they are interpreted.
type Fetch uint8

const (
	FetchNone Fetch = iota
	FetchA          // direct far address without ModR/M (seg:offset)
	FetchC          // ModR/M reg picks a control register
	FetchD          // ModR/M reg picks a debug register
	FetchE          // ModR/M general register or memory
	FetchF          // ModR/M rm picks an x87 stack register
	FetchFx         // Extra picks an x87 stack register
	FetchG          // ModR/M reg picks a general register
	FetchIs         // signed immediate
	FetchI          // unsigned immediate
	FetchIx         // fixed immediate held in Extra
	FetchJ          // relative branch offset
	FetchM          // ModR/M memory only
	FetchMR         // like FetchE, but Extra holds the register size
	FetchO          // direct memory offset without ModR/M
	FetchP          // ModR/M reg picks an MMX register
	FetchPR         // ModR/M rm picks an MMX register
	FetchQ          // ModR/M MMX register or memory
	FetchR          // ModR/M rm picks a general register
	FetchRx         // Extra picks a general register, extended by REX.B
	FetchRXx        // Extra picks a general register, never extended
	FetchS          // ModR/M reg picks a segment register
	FetchSx         // Extra picks a segment register
	FetchT          // ModR/M reg picks a test register
	FetchV          // ModR/M reg picks an XMM register
	FetchVx         // Extra picks an XMM register
	FetchVR         // ModR/M rm picks an XMM register
	FetchW          // ModR/M XMM register or memory
	FetchVD         // SSE5 destination XMM register (DREX.dest)
	FetchVS0        // SSE5 first source (ordered by DREX.OC0)
	FetchVS1        // SSE5 second source (ordered by DREX.OC0)
)

// modrm reports whether operands fetched by f read a ModR/M byte.
func (f Fetch) modrm() bool {
	switch f {
	case FetchC, FetchD, FetchE, FetchF, FetchG, FetchM, FetchMR,
		FetchP, FetchPR, FetchQ, FetchR, FetchS, FetchT, FetchV,
		FetchVR, FetchW, FetchVD, FetchVS0, FetchVS1:
		return true
	}
	return false
}

// Size is the size class of an operand. Mode dependent classes are
// resolved by sizes.width.
type Size uint8

const (
	Size0  Size = iota // size unimportant
	SizeB              // byte
	SizeBV             // byte, sign extended to SizeV
	SizeW              // word
	SizeD              // dword
	SizeQ              // qword
	SizeU              // qword, or oword with a 0x66 prefix
	SizeZ              // dword, or qword with REX.W
	SizeO              // oword
	SizeV              // word, dword or qword by operand size
	SizeVV             // word or dword, sign extended to qword by operand size
	SizeR              // dword, or qword in 64-bit mode
	SizeP              // far pointer word:word, word:dword or word:qword
	SizeS              // single real
	SizeL              // double real
	SizeT              // extended real
	SizeA              // packed BCD
)

// Info carries per-operand rule flags.
type Info uint8

const (
	// InfoNeedREX rejects the operand unless a REX byte is present.
	InfoNeedREX Info = 1 << iota
	// InfoForbidREX rejects the operand when a REX byte is present.
	InfoForbidREX
)

// OpSpec describes how one operand is fetched.
type OpSpec struct {
	Fetch Fetch
	Extra uint8 // register index, fixed immediate, or register Size for FetchMR
	Info  Info
	Size  Size
}

// Flag holds per-instruction table flags.
type Flag uint8

const (
	// FlagDefault64 makes the operand size default to 64 bits in
	// 64-bit mode; only 0x66 can shrink it (to 16).
	FlagDefault64 Flag = 1 << iota
	// FlagNameByAddrSize selects a name variant by address size
	// instead of operand size.
	FlagNameByAddrSize
)

// Entry is one cell of an opcode table. It is exactly one of Opcode,
// Reserved, Prefix, Escape, OpcodeGroup, Group, SpecialGroup, ModSplit,
// RMGroup or FloatEscape. A nil Entry reads as Reserved.
type Entry interface {
	isEntry()
}

// Opcode is a concrete instruction. Name may hold size variants separated
// by '|', chosen by operand size (16|32|64) or, with FlagNameByAddrSize,
// by address size.
type Opcode struct {
	Name  string
	Ops   [4]OpSpec
	Flags Flag
}

// Reserved is an opcode with no defined meaning.
type Reserved struct{}

// PrefixKind classifies a legacy prefix byte.
type PrefixKind uint8

const (
	KindSegment PrefixKind = iota + 1
	KindLock
	KindRep
	KindOpSize
	KindAddrSize
)

// Prefix marks a legacy prefix byte in the base table.
type Prefix struct {
	Kind  PrefixKind
	Value int8 // a Segment for KindSegment, a Rep for KindRep
}

// Escape is the 0x0F byte: the next byte indexes the 0F map, in the plane
// of the active mandatory prefix.
type Escape struct{}

// OpcodeGroup redirects to a three-byte map indexed by the next opcode byte.
// Like the 0F map it has one plane per mandatory prefix.
type OpcodeGroup int

// Group redirects to an 8-entry table indexed by the ModR/M reg field.
type Group int

// SpecialGroup redirects to a table indexed by the active mandatory prefix.
// It is used below a ModR/M redirect, where no prefix plane applies.
type SpecialGroup int

// ModSplit selects Mem when ModR/M mod != 3 and Reg otherwise.
type ModSplit struct {
	Mem Entry
	Reg Entry
}

// RMGroup redirects to an 8-entry table indexed by the ModR/M rm field.
// It only appears under register forms.
type RMGroup int

// FloatEscape is one of the x87 escape bytes D8..DF; the value is the
// low three bits of the escape.
type FloatEscape int

func (Opcode) isEntry()       {}
func (Reserved) isEntry()     {}
func (Prefix) isEntry()       {}
func (Escape) isEntry()       {}
func (OpcodeGroup) isEntry()  {}
func (Group) isEntry()        {}
func (SpecialGroup) isEntry() {}
func (ModSplit) isEntry()     {}
func (RMGroup) isEntry()      {}
func (FloatEscape) isEntry()  {}

// defined reports whether e is anything other than a reserved cell.
func defined(e Entry) bool {
	switch e.(type) {
	case nil, Reserved:
		return false
	}
	return true
}

// drex reports whether the instruction carries an SSE5 DREX byte.
func (o Opcode) drex() bool {
	for _, s := range o.Ops {
		switch s.Fetch {
		case FetchVD, FetchVS0, FetchVS1:
			return true
		}
	}
	return false
}

func op(name string, ops ...OpSpec) Opcode {
	if len(ops) > len(Opcode{}.Ops) {
		panic(fmt.Sprintf("x86: %s has %d operands", name, len(ops)))
	}
	o := Opcode{Name: name}
	copy(o.Ops[:], ops)
	return o
}

// op64 is op with FlagDefault64.
func op64(name string, ops ...OpSpec) Opcode {
	o := op(name, ops...)
	o.Flags |= FlagDefault64
	return o
}
