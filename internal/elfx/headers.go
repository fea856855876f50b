package elfx

import "debug/elf"

// ValidSection32 reports whether s occupies memory at a real address.
func ValidSection32(s *elf.Section32) bool {
	t := elf.SectionType(s.Type)
	return (t == elf.SHT_PROGBITS || t == elf.SHT_NOBITS) && s.Addr != 0
}

func ValidSection64(s *elf.Section64) bool {
	t := elf.SectionType(s.Type)
	return (t == elf.SHT_PROGBITS || t == elf.SHT_NOBITS) && s.Addr != 0
}

// ValidSegment32 reports whether p is loaded into memory.
func ValidSegment32(p *elf.Prog32) bool { return elf.ProgType(p.Type) == elf.PT_LOAD }
func ValidSegment64(p *elf.Prog64) bool { return elf.ProgType(p.Type) == elf.PT_LOAD }

// TrustableSections reports whether the section table describes the
// mapped image: it was readable and every valid, non-empty section lies
// inside a PT_LOAD segment. Images without loadable segments have only
// their sections to go on and are trusted as long as the table was read.
func (im *Image) TrustableSections() bool {
	if !im.ShentsizeOK {
		return false
	}
	type span struct{ lo, hi uint64 }
	var loads, secs []span
	switch {
	case im.H32 != nil:
		for i := range im.H32.Progs {
			if p := &im.H32.Progs[i]; ValidSegment32(p) {
				loads = append(loads, span{uint64(p.Vaddr), uint64(p.Vaddr) + uint64(p.Memsz)})
			}
		}
		for i := range im.H32.Sections {
			if s := &im.H32.Sections[i]; ValidSection32(s) && s.Size != 0 {
				secs = append(secs, span{uint64(s.Addr), uint64(s.Addr) + uint64(s.Size)})
			}
		}
	case im.H64 != nil:
		for i := range im.H64.Progs {
			if p := &im.H64.Progs[i]; ValidSegment64(p) {
				loads = append(loads, span{p.Vaddr, p.Vaddr + p.Memsz})
			}
		}
		for i := range im.H64.Sections {
			if s := &im.H64.Sections[i]; ValidSection64(s) && s.Size != 0 {
				secs = append(secs, span{s.Addr, s.Addr + s.Size})
			}
		}
	default:
		return false
	}
	if len(loads) == 0 {
		return true
	}
next:
	for _, s := range secs {
		for _, l := range loads {
			if s.lo >= l.lo && s.hi <= l.hi {
				continue next
			}
		}
		return false
	}
	return true
}
