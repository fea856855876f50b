// Package elftest builds small little-endian ELF images in memory for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

type Segment struct {
	Type  elf.ProgType
	Flags elf.ProgFlag
	Vaddr uint64
	// Memsz is raised to len(Data) when smaller.
	Memsz uint64
	Data  []byte
}

type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint64
	// Size is used for SHT_NOBITS sections and sections without Data.
	Size uint64
	Data []byte
}

type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Func  bool
}

// Reloc binds the GOT slot at Offset to DynSymbols[Sym].
type Reloc struct {
	Offset uint64
	Sym    int
}

type File struct {
	Class   elf.Class
	Machine elf.Machine
	Type    elf.Type
	Entry   uint64

	Segments   []Segment
	Sections   []Section
	Symbols    []Symbol
	DynSymbols []Symbol
	PLTRelocs  []Reloc

	// ShentsizePad widens e_shentsize past the class's record size.
	ShentsizePad int
	// Shoff, when nonzero, replaces e_shoff. The section table is still
	// written at its usual place.
	Shoff uint64
}

type shdr struct {
	name            uint32
	typ             elf.SectionType
	flags           elf.SectionFlag
	addr, off, size uint64
	link, info      uint32
	align, entsize  uint64
}

// Build lays out the ELF header, program headers, segment and section
// contents, and finally the section header table.
func Build(f File) []byte {
	is64 := f.Class == elf.ELFCLASS64
	ehsize, phentsize, shentsize := 52, 32, 40
	if is64 {
		ehsize, phentsize, shentsize = 64, 56, 64
	}
	shentsize += f.ShentsizePad
	bo := binary.LittleEndian

	img := make([]byte, ehsize+phentsize*len(f.Segments))
	place := func(b []byte) uint64 {
		for len(img)%16 != 0 {
			img = append(img, 0)
		}
		off := uint64(len(img))
		img = append(img, b...)
		return off
	}

	var ph bytes.Buffer
	for _, s := range f.Segments {
		off := place(s.Data)
		memsz := max(s.Memsz, uint64(len(s.Data)))
		if is64 {
			binary.Write(&ph, bo, elf.Prog64{
				Type: uint32(s.Type), Flags: uint32(s.Flags), Off: off, Vaddr: s.Vaddr, Paddr: s.Vaddr,
				Filesz: uint64(len(s.Data)), Memsz: memsz, Align: 0x1000,
			})
		} else {
			binary.Write(&ph, bo, elf.Prog32{
				Type: uint32(s.Type), Flags: uint32(s.Flags), Off: uint32(off), Vaddr: uint32(s.Vaddr), Paddr: uint32(s.Vaddr),
				Filesz: uint32(len(s.Data)), Memsz: uint32(memsz), Align: 0x1000,
			})
		}
	}
	copy(img[ehsize:], ph.Bytes())

	shstr := []byte{0}
	name := func(n string) uint32 {
		off := uint32(len(shstr))
		shstr = append(append(shstr, n...), 0)
		return off
	}

	hdrs := []shdr{{}}
	for _, s := range f.Sections {
		h := shdr{name: name(s.Name), typ: s.Type, flags: s.Flags, addr: s.Addr, size: s.Size, align: 1}
		if len(s.Data) > 0 && s.Type != elf.SHT_NOBITS {
			h.off = place(s.Data)
			h.size = uint64(len(s.Data))
		}
		hdrs = append(hdrs, h)
	}

	symtab := func(secName, strName string, typ elf.SectionType, syms []Symbol) {
		strs := []byte{0}
		var tab bytes.Buffer
		if is64 {
			binary.Write(&tab, bo, elf.Sym64{})
		} else {
			binary.Write(&tab, bo, elf.Sym32{})
		}
		for _, s := range syms {
			nameOff := uint32(len(strs))
			strs = append(append(strs, s.Name...), 0)
			kind := elf.STT_OBJECT
			if s.Func {
				kind = elf.STT_FUNC
			}
			info := elf.ST_INFO(elf.STB_GLOBAL, kind)
			if is64 {
				binary.Write(&tab, bo, elf.Sym64{Name: nameOff, Info: info, Shndx: uint16(elf.SHN_ABS), Value: s.Value, Size: s.Size})
			} else {
				binary.Write(&tab, bo, elf.Sym32{Name: nameOff, Value: uint32(s.Value), Size: uint32(s.Size), Info: info, Shndx: uint16(elf.SHN_ABS)})
			}
		}
		entsize := uint64(elf.Sym32Size)
		if is64 {
			entsize = elf.Sym64Size
		}
		strIdx := uint32(len(hdrs) + 1)
		hdrs = append(hdrs,
			shdr{name: name(secName), typ: typ, off: place(tab.Bytes()), size: uint64(tab.Len()), link: strIdx, info: 1, align: 8, entsize: entsize},
			shdr{name: name(strName), typ: elf.SHT_STRTAB, off: place(strs), size: uint64(len(strs)), align: 1},
		)
	}
	if len(f.Symbols) > 0 {
		symtab(".symtab", ".strtab", elf.SHT_SYMTAB, f.Symbols)
	}
	if len(f.DynSymbols) > 0 {
		dynIdx := uint32(len(hdrs))
		symtab(".dynsym", ".dynstr", elf.SHT_DYNSYM, f.DynSymbols)
		if len(f.PLTRelocs) > 0 {
			var rel bytes.Buffer
			relName, relType, entsize := ".rel.plt", elf.SHT_REL, uint64(8)
			for _, r := range f.PLTRelocs {
				if is64 {
					binary.Write(&rel, bo, elf.Rela64{Off: r.Offset, Info: elf.R_INFO(uint32(r.Sym+1), uint32(elf.R_X86_64_JMP_SLOT))})
				} else {
					binary.Write(&rel, bo, elf.Rel32{Off: uint32(r.Offset), Info: elf.R_INFO32(uint32(r.Sym+1), uint32(elf.R_386_JMP_SLOT))})
				}
			}
			if is64 {
				relName, relType, entsize = ".rela.plt", elf.SHT_RELA, 24
			}
			hdrs = append(hdrs, shdr{name: name(relName), typ: relType, flags: elf.SHF_ALLOC, off: place(rel.Bytes()), size: uint64(rel.Len()), link: dynIdx, align: 8, entsize: entsize})
		}
	}

	shstrIdx := len(hdrs)
	hdrs = append(hdrs, shdr{name: name(".shstrtab"), typ: elf.SHT_STRTAB, align: 1})
	hdrs[shstrIdx].off = place(shstr)
	hdrs[shstrIdx].size = uint64(len(shstr))

	var sh bytes.Buffer
	pad := make([]byte, f.ShentsizePad)
	for _, h := range hdrs {
		if is64 {
			binary.Write(&sh, bo, elf.Section64{
				Name: h.name, Type: uint32(h.typ), Flags: uint64(h.flags), Addr: h.addr, Off: h.off, Size: h.size,
				Link: h.link, Info: h.info, Addralign: h.align, Entsize: h.entsize,
			})
		} else {
			binary.Write(&sh, bo, elf.Section32{
				Name: h.name, Type: uint32(h.typ), Flags: uint32(h.flags), Addr: uint32(h.addr), Off: uint32(h.off), Size: uint32(h.size),
				Link: h.link, Info: h.info, Addralign: uint32(h.align), Entsize: uint32(h.entsize),
			})
		}
		sh.Write(pad)
	}
	shoff := place(sh.Bytes())
	if f.Shoff != 0 {
		shoff = f.Shoff
	}

	typ := f.Type
	if typ == elf.ET_NONE {
		typ = elf.ET_EXEC
	}
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(f.Class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var eh bytes.Buffer
	if is64 {
		binary.Write(&eh, bo, elf.Header64{
			Ident: ident, Type: uint16(typ), Machine: uint16(f.Machine), Version: uint32(elf.EV_CURRENT),
			Entry: f.Entry, Phoff: uint64(ehsize), Shoff: shoff, Ehsize: uint16(ehsize),
			Phentsize: uint16(phentsize), Phnum: uint16(len(f.Segments)),
			Shentsize: uint16(shentsize), Shnum: uint16(len(hdrs)), Shstrndx: uint16(shstrIdx),
		})
	} else {
		binary.Write(&eh, bo, elf.Header32{
			Ident: ident, Type: uint16(typ), Machine: uint16(f.Machine), Version: uint32(elf.EV_CURRENT),
			Entry: uint32(f.Entry), Phoff: uint32(ehsize), Shoff: uint32(shoff), Ehsize: uint16(ehsize),
			Phentsize: uint16(phentsize), Phnum: uint16(len(f.Segments)),
			Shentsize: uint16(shentsize), Shnum: uint16(len(hdrs)), Shstrndx: uint16(shstrIdx),
		})
	}
	copy(img, eh.Bytes())
	return img
}

// WriteFile builds f into a file under t.TempDir and returns its path.
func WriteFile(t testing.TB, f File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.elf")
	if err := os.WriteFile(path, Build(f), 0o644); err != nil {
		t.Fatalf("write elf fixture: %v", err)
	}
	return path
}
