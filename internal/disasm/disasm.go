// Package disasm defines the listing line shared by the analyzer and the
// listing views.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"x86scope/internal/addr"
)

// Inst is one listing line: a decoded instruction, or a single byte that
// could not be decoded.
type Inst struct {
	Addr addr.Address
	Raw  []byte
	Op   string // mnemonic with lock/rep prefixes
	Args string // operands in Intel order
	// Target is the destination of a relative branch or call.
	Target    addr.Address
	HasTarget bool
	Flow      Flow
	Notes     []string
	Err       error
	// Ref is the address a memory operand names outright (rip-relative
	// or absolute).
	Ref    addr.Address
	HasRef bool
}

// Flow classifies how control leaves an instruction.
type Flow uint8

const (
	FlowNext Flow = iota
	FlowJump
	FlowCondJump
	FlowCall
	FlowReturn
	FlowStop // hlt, ud2, int3
)

// Len is the number of bytes the line covers.
func (i Inst) Len() int { return len(i.Raw) }

// End is the address following the line.
func (i Inst) End() addr.Address { return i.Addr.Add(uint64(len(i.Raw))) }

// Text is the instruction in Intel syntax without address or notes.
func (i Inst) Text() string {
	if i.Args == "" {
		return i.Op
	}
	return i.Op + " " + i.Args
}

// String formats the line with the notes padded past the operands.
// Colouring is applied afterwards.
func (i Inst) String() string {
	hex := make([]string, len(i.Raw))
	for k, b := range i.Raw {
		hex[k] = fmt.Sprintf("%02x", b)
	}
	base := fmt.Sprintf("%s  %-30s %-8s %-36s", i.Addr, strings.Join(hex, " "), i.Op, i.Args)
	if len(i.Notes) > 0 {
		return fmt.Sprintf("%s ; %s", base, strings.Join(i.Notes, ", "))
	}
	return strings.TrimRight(base, " ")
}

// Stream is a listing in address order.
type Stream []Inst

// Sort orders s by address.
func (s Stream) Sort() {
	sort.Slice(s, func(a, b int) bool { return s[a].Addr.Less(s[b].Addr) })
}

// Find returns the index of the line starting at a.
func (s Stream) Find(a addr.Address) (int, bool) {
	i := sort.Search(len(s), func(i int) bool { return !s[i].Addr.Less(a) })
	if i < len(s) && s[i].Addr == a {
		return i, true
	}
	return i, false
}
