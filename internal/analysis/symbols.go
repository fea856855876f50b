package analysis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ianlancetaylor/demangle"

	"x86scope/internal/disasm"
	"x86scope/internal/elfx"
	"x86scope/internal/x86"
)

// pltEntrySize is the size of a lazy-binding PLT entry on i386 and x86-64.
const pltEntrySize = 16

// Symbolizer names addresses from the image symbols and PLT stubs. It is
// safe for concurrent use.
type Symbolizer struct {
	im  *elfx.Image
	plt map[uint64]string // stub address to bound symbol

	mu        sync.RWMutex
	demangled map[string]string
	hits      map[string]int
}

func NewSymbolizer(im *elfx.Image, mode x86.Mode) *Symbolizer {
	s := &Symbolizer{
		im:        im,
		plt:       make(map[uint64]string),
		demangled: make(map[string]string),
		hits:      make(map[string]int),
	}
	s.parsePLTStubs(mode)
	return s
}

// parsePLTStubs decodes each PLT entry, finds its indirect jmp through a
// GOT slot and names the entry after the symbol that slot is bound to.
func (s *Symbolizer) parsePLTStubs(mode x86.Mode) {
	if len(s.im.PLTRels) == 0 {
		return
	}
	var gotBase uint64
	if sec := s.im.File.Section(".got.plt"); sec != nil {
		gotBase = sec.Addr
	} else if sec := s.im.File.Section(".got"); sec != nil {
		gotBase = sec.Addr
	}

	for _, sec := range s.im.PLT {
		for va := sec.VA; va+pltEntrySize <= sec.VA+sec.Size; va += pltEntrySize {
			code, ok := s.im.SliceVA(va, pltEntrySize)
			if !ok {
				continue
			}
			for pos := 0; pos < len(code); {
				in, err := x86.Decode(code[pos:], va+uint64(pos), mode)
				if err != nil {
					break
				}
				pos += in.Len
				if in.Name != "jmp" {
					continue
				}
				m, ok := in.Args[0].(x86.Mem)
				if !ok {
					break
				}
				var got uint64
				switch {
				case m.Base == x86.RegIP:
					got = in.Addr + uint64(in.Len) + uint64(m.Disp)
				case m.Base == x86.RegNone && m.Index == x86.RegNone:
					got = uint64(m.Disp)
				case m.Base == 3 && gotBase != 0: // ebx holds the GOT in PIC code
					got = gotBase + uint64(m.Disp)
				default:
					continue
				}
				if mode != x86.Mode64 {
					got &= 0xffffffff
				}
				if name, ok := s.im.PLTSymbol(got); ok {
					s.plt[va] = name
				}
				break
			}
		}
	}
}

// Demangle returns the demangled form of a C++ or Rust symbol, or name
// itself when it is not mangled.
func (s *Symbolizer) Demangle(name string) string {
	s.mu.RLock()
	d, ok := s.demangled[name]
	s.mu.RUnlock()
	if !ok {
		d = demangle.Filter(name, demangle.NoClones)
	}
	s.mu.Lock()
	s.demangled[name] = d
	s.hits[name]++
	s.mu.Unlock()
	return d
}

// Name returns "symbol" or "symbol+0xoff" for va.
func (s *Symbolizer) Name(va uint64) (string, bool) {
	if n, ok := s.plt[va]; ok {
		return s.Demangle(n) + "@plt", true
	}
	sym, ok := s.im.SymbolAt(va)
	if !ok {
		return "", false
	}
	name := s.Demangle(sym.Name)
	if off := va - sym.Addr; off != 0 {
		return fmt.Sprintf("%s+%#x", name, off), true
	}
	return name, true
}

// Annotate notes the symbol a branch or call lands on.
func (s *Symbolizer) Annotate(line *disasm.Inst) {
	if s == nil || !line.HasTarget {
		return
	}
	if name, ok := s.Name(line.Target.Uint64()); ok {
		line.Notes = append(line.Notes, "<"+name+">")
	}
}

// Label returns the symbol starting exactly at va, if any.
func (s *Symbolizer) Label(va uint64) (string, bool) {
	if s == nil {
		return "", false
	}
	if n, ok := s.plt[va]; ok {
		return s.Demangle(n) + "@plt", true
	}
	sym, ok := s.im.SymbolAt(va)
	if !ok || sym.Addr != va {
		return "", false
	}
	return s.Demangle(sym.Name), true
}

// Stats reports how many distinct names were demangled and the most
// requested ones.
func (s *Symbolizer) Stats() (total int, top []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.hits))
	for n := range s.hits {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.hits[names[i]] != s.hits[names[j]] {
			return s.hits[names[i]] > s.hits[names[j]]
		}
		return names[i] < names[j]
	})
	for i := 0; i < 5 && i < len(names); i++ {
		top = append(top, fmt.Sprintf("%s (%d hits)", names[i], s.hits[names[i]]))
	}
	return len(s.demangled), top
}
