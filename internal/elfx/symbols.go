package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"sort"
)

// loadSymbols collects defined symbols from .dynsym and .symtab, sorted by
// address. Static symbols win over dynamic ones at the same address.
func (im *Image) loadSymbols() {
	seen := make(map[uint64]bool)
	add := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Value == 0 || s.Name == "" || s.Section == elf.SHN_UNDEF {
				continue
			}
			typ := elf.ST_TYPE(s.Info)
			if typ != elf.STT_FUNC && typ != elf.STT_OBJECT && typ != elf.STT_NOTYPE {
				continue
			}
			if seen[s.Value] {
				continue
			}
			seen[s.Value] = true
			im.Syms = append(im.Syms, Sym{
				Name: s.Name,
				Addr: s.Value,
				Size: s.Size,
				Func: typ == elf.STT_FUNC,
			})
		}
	}
	if syms, err := im.File.Symbols(); err == nil {
		add(syms)
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		add(syms)
	}
	sort.Slice(im.Syms, func(i, j int) bool { return im.Syms[i].Addr < im.Syms[j].Addr })
}

// SymbolAt returns the symbol containing va: an exact match, or the closest
// symbol below va whose size covers it.
func (im *Image) SymbolAt(va uint64) (Sym, bool) {
	i := sort.Search(len(im.Syms), func(i int) bool { return im.Syms[i].Addr > va })
	if i == 0 {
		return Sym{}, false
	}
	s := im.Syms[i-1]
	if s.Addr == va || va-s.Addr < s.Size {
		return s, true
	}
	return Sym{}, false
}

// parsePLTRelocations reads the jump slot relocations: .rela.plt on
// x86-64, .rel.plt on i386.
func (im *Image) parsePLTRelocations() {
	dynsyms, err := im.File.DynamicSymbols()
	if err != nil {
		return
	}
	name := func(idx uint32) string {
		// DynamicSymbols drops the null symbol at index 0.
		if idx == 0 || int(idx) > len(dynsyms) {
			return ""
		}
		return dynsyms[idx-1].Name
	}
	bo := im.File.ByteOrder

	if s := im.File.Section(".rela.plt"); s != nil {
		data, err := s.Data()
		if err != nil {
			return
		}
		if im.Class == elf.ELFCLASS64 {
			for _, r := range readRecords[elf.Rela64](data, bo) {
				im.PLTRels = append(im.PLTRels, PLTRel{Offset: r.Off, SymName: name(elf.R_SYM64(r.Info))})
			}
		} else {
			for _, r := range readRecords[elf.Rela32](data, bo) {
				im.PLTRels = append(im.PLTRels, PLTRel{Offset: uint64(r.Off), SymName: name(elf.R_SYM32(r.Info))})
			}
		}
		return
	}

	if s := im.File.Section(".rel.plt"); s != nil {
		data, err := s.Data()
		if err != nil {
			return
		}
		if im.Class == elf.ELFCLASS64 {
			for _, r := range readRecords[elf.Rel64](data, bo) {
				im.PLTRels = append(im.PLTRels, PLTRel{Offset: r.Off, SymName: name(elf.R_SYM64(r.Info))})
			}
		} else {
			for _, r := range readRecords[elf.Rel32](data, bo) {
				im.PLTRels = append(im.PLTRels, PLTRel{Offset: uint64(r.Off), SymName: name(elf.R_SYM32(r.Info))})
			}
		}
	}
}

func readRecords[T any](data []byte, bo binary.ByteOrder) []T {
	var zero T
	n := len(data) / binary.Size(zero)
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	if err := binary.Read(bytes.NewReader(data[:n*binary.Size(zero)]), bo, out); err != nil {
		return nil
	}
	return out
}

// PLTSymbol returns the symbol bound to the GOT slot at got.
func (im *Image) PLTSymbol(got uint64) (string, bool) {
	for _, r := range im.PLTRels {
		if r.Offset == got && r.SymName != "" {
			return r.SymName, true
		}
	}
	return "", false
}

// InPLT reports whether va lies in a PLT section.
func (im *Image) InPLT(va uint64) bool {
	for _, s := range im.PLT {
		if va >= s.VA && va < s.VA+s.Size {
			return true
		}
	}
	return false
}
