// Package bounds computes the virtual address range an ELF image occupies.
package bounds

import (
	"debug/elf"

	"x86scope/internal/addr"
	"x86scope/internal/elfx"
)

// Table is a header table whose entries may or may not take part in the
// range: sections or program segments of one ELF class.
type Table[T ~uint32 | ~uint64] interface {
	Len() int
	Valid(i int) bool
	Span(i int) (start, size T)
}

// Scan folds the valid entries of t into an inclusive [low, high] range.
// Every valid entry can lower low, but only an entry with a nonzero size
// raises high. With no valid entries low stays above high.
func Scan[T ~uint32 | ~uint64](t Table[T]) (low, high T) {
	low = ^T(0)
	for i := 0; i < t.Len(); i++ {
		if !t.Valid(i) {
			continue
		}
		start, size := t.Span(i)
		low = min(low, start)
		if size != 0 {
			high = max(high, start+size-1)
		}
	}
	return low, high
}

type sections32 []elf.Section32

func (s sections32) Len() int                        { return len(s) }
func (s sections32) Valid(i int) bool                { return elfx.ValidSection32(&s[i]) }
func (s sections32) Span(i int) (start, size uint32) { return s[i].Addr, s[i].Size }

type sections64 []elf.Section64

func (s sections64) Len() int                        { return len(s) }
func (s sections64) Valid(i int) bool                { return elfx.ValidSection64(&s[i]) }
func (s sections64) Span(i int) (start, size uint64) { return s[i].Addr, s[i].Size }

type segments32 []elf.Prog32

func (p segments32) Len() int                        { return len(p) }
func (p segments32) Valid(i int) bool                { return elfx.ValidSegment32(&p[i]) }
func (p segments32) Span(i int) (start, size uint32) { return p[i].Vaddr, p[i].Memsz }

type segments64 []elf.Prog64

func (p segments64) Len() int                        { return len(p) }
func (p segments64) Valid(i int) bool                { return elfx.ValidSegment64(&p[i]) }
func (p segments64) Span(i int) (start, size uint64) { return p[i].Vaddr, p[i].Memsz }

// Compute picks sections when the image trusts them and has any, program
// segments otherwise.
func Compute(im *elfx.Image) addr.Range {
	return ComputeFrom(im, im.TrustableSections())
}

// ComputeFrom scans the section table when preferSections is set and the
// table is non-empty, and the program header table otherwise.
func ComputeFrom(im *elfx.Image, preferSections bool) addr.Range {
	useSections := preferSections && im.NumSections() > 0
	switch {
	case im.H32 != nil:
		var lo, hi uint32
		if useSections {
			lo, hi = Scan[uint32](sections32(im.H32.Sections))
		} else {
			lo, hi = Scan[uint32](segments32(im.H32.Progs))
		}
		return addr.Range{Low: addr.New32(lo), High: addr.New32(hi)}
	case im.H64 != nil:
		var lo, hi uint64
		if useSections {
			lo, hi = Scan[uint64](sections64(im.H64.Sections))
		} else {
			lo, hi = Scan[uint64](segments64(im.H64.Progs))
		}
		return addr.Range{Low: addr.New64(lo), High: addr.New64(hi)}
	}
	return addr.EmptyRange(im.Width())
}

// Source names the table ComputeFrom reads for the same arguments.
func Source(im *elfx.Image, preferSections bool) string {
	if preferSections && im.NumSections() > 0 {
		return "sections"
	}
	return "segments"
}
