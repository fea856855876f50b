package elfx_test

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x86scope/internal/addr"
	"x86scope/internal/elfx"
	"x86scope/internal/elfx/elftest"
)

func fixture64() elftest.File {
	text := []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3}
	return elftest.File{
		Class:   elf.ELFCLASS64,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Segments: []elftest.Segment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: text},
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_W, Vaddr: 0x402000, Memsz: 0x100, Data: []byte{1, 2, 3, 4}},
			{Type: elf.PT_NOTE, Vaddr: 0x500000, Data: []byte{0}},
		},
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: text},
			{Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402000, Data: []byte{1, 2, 3, 4}},
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402004, Size: 0xfc},
			{Name: ".comment", Type: elf.SHT_PROGBITS, Data: []byte("x86scope\x00")},
		},
		Symbols: []elftest.Symbol{
			{Name: "main", Value: 0x401000, Size: 6, Func: true},
			{Name: "counter", Value: 0x402000, Size: 4},
		},
	}
}

func TestOpen(t *testing.T) {
	path := elftest.WriteFile(t, fixture64())
	im, err := elfx.Open(path)
	require.NoError(t, err)
	defer im.Close()

	assert.Equal(t, path, im.Path)
	assert.Equal(t, elf.ELFCLASS64, im.Class)
	assert.Equal(t, elf.EM_X86_64, im.Machine)
	assert.Equal(t, addr.Width64, im.Width())
	assert.Equal(t, addr.New64(0x401000), im.EntryAddress())
	require.NotNil(t, im.H64)
	assert.Nil(t, im.H32)
	assert.True(t, im.ShentsizeOK)
	assert.Len(t, im.H64.Progs, 3)
	// null, four user sections, .symtab, .strtab, .shstrtab
	assert.Equal(t, 8, im.NumSections())
	assert.True(t, im.TrustableSections())

	assert.Equal(t, uint64(0x401000), im.Text.VA)
	assert.Equal(t, uint64(6), im.Text.Size)

	b, ok := im.SliceVA(0x401001, 3)
	require.True(t, ok)
	assert.Equal(t, []byte{0x48, 0x89, 0xe5}, b)

	// Clipped to the segment's file bytes.
	b, ok = im.SliceVA(0x402002, 64)
	require.True(t, ok)
	assert.Equal(t, []byte{3, 4}, b)

	_, ok = im.SliceVA(0x402010, 1)
	assert.False(t, ok, "bss has no file bytes")
	_, ok = im.VA2Off(0x300000)
	assert.False(t, ok)

	s, ok := im.SymbolAt(0x401003)
	require.True(t, ok)
	assert.Equal(t, "main", s.Name)
	assert.True(t, s.Func)
	_, ok = im.SymbolAt(0x401006)
	assert.False(t, ok)

	require.NoError(t, im.Close())
	require.NoError(t, im.Close())
}

func TestParse32(t *testing.T) {
	text := []byte{0x55, 0x89, 0xe5, 0xc9, 0xc3}
	data := elftest.Build(elftest.File{
		Class:   elf.ELFCLASS32,
		Machine: elf.EM_386,
		Entry:   0x8048000,
		Segments: []elftest.Segment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x8048000, Data: text},
		},
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x8048000, Data: text},
		},
	})
	im, err := elfx.Parse(data)
	require.NoError(t, err)
	defer im.Close()

	assert.Equal(t, elf.ELFCLASS32, im.Class)
	assert.Equal(t, addr.New32(0x8048000), im.EntryAddress())
	require.NotNil(t, im.H32)
	assert.Len(t, im.H32.Progs, 1)
	assert.Equal(t, uint32(0x8048000), im.H32.Sections[1].Addr)
	assert.True(t, elfx.ValidSection32(&im.H32.Sections[1]))
	assert.False(t, elfx.ValidSection32(&im.H32.Sections[0]))
	assert.True(t, elfx.ValidSegment32(&im.H32.Progs[0]))
}

func TestTrustableSections(t *testing.T) {
	t.Run("foreign entry size", func(t *testing.T) {
		f := fixture64()
		f.ShentsizePad = 8
		im, err := elfx.Parse(elftest.Build(f))
		require.NoError(t, err)
		assert.False(t, im.ShentsizeOK)
		assert.Zero(t, im.NumSections())
		assert.False(t, im.TrustableSections())
	})

	t.Run("section outside segments", func(t *testing.T) {
		f := fixture64()
		f.Sections = append(f.Sections, elftest.Section{Name: ".stray", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC, Addr: 0x900000, Size: 0x10})
		im, err := elfx.Parse(elftest.Build(f))
		require.NoError(t, err)
		assert.False(t, im.TrustableSections())
	})

	t.Run("no segments", func(t *testing.T) {
		f := fixture64()
		f.Type = elf.ET_REL
		f.Segments = nil
		im, err := elfx.Parse(elftest.Build(f))
		require.NoError(t, err)
		assert.True(t, im.TrustableSections())
	})
}

func TestParseDamagedSectionTable(t *testing.T) {
	tests := []struct {
		name     string
		class    elf.Class
		straddle bool
	}{
		{"64-bit table past eof", elf.ELFCLASS64, false},
		{"64-bit table straddles eof", elf.ELFCLASS64, true},
		{"32-bit table past eof", elf.ELFCLASS32, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixture64()
			f.Class = tt.class
			f.Shoff = 0x100000
			if tt.straddle {
				f.Shoff = uint64(len(elftest.Build(f))) - 0x10
			}

			im, err := elfx.Parse(elftest.Build(f))
			require.NoError(t, err)
			assert.Nil(t, im.File)
			assert.Equal(t, tt.class, im.Class)
			assert.Equal(t, elf.EM_X86_64, im.Machine)
			assert.Equal(t, uint64(0x401000), im.Entry)
			assert.False(t, im.ShentsizeOK)
			assert.Zero(t, im.NumSections())
			assert.False(t, im.TrustableSections())
			assert.Empty(t, im.Syms)

			require.Len(t, im.Loads, 2)
			assert.Equal(t, uint64(0x402000), im.Loads[1].Vaddr)
			assert.Equal(t, uint64(0x100), im.Loads[1].Memsz)
			assert.Equal(t, "LOAD(exec)", im.Text.Name)

			b, ok := im.SliceVA(0x401000, 2)
			require.True(t, ok)
			assert.Equal(t, []byte{0x55, 0x48}, b)
		})
	}
}

func TestValidity(t *testing.T) {
	tests := []struct {
		name string
		sec  elf.Section64
		want bool
	}{
		{"progbits", elf.Section64{Type: uint32(elf.SHT_PROGBITS), Addr: 0x1000}, true},
		{"nobits", elf.Section64{Type: uint32(elf.SHT_NOBITS), Addr: 0x1000}, true},
		{"unmapped progbits", elf.Section64{Type: uint32(elf.SHT_PROGBITS)}, false},
		{"symtab", elf.Section64{Type: uint32(elf.SHT_SYMTAB), Addr: 0x1000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, elfx.ValidSection64(&tt.sec))
		})
	}
	assert.True(t, elfx.ValidSegment64(&elf.Prog64{Type: uint32(elf.PT_LOAD)}))
	assert.False(t, elfx.ValidSegment64(&elf.Prog64{Type: uint32(elf.PT_DYNAMIC)}))
}

func TestPLTRelocations(t *testing.T) {
	f := fixture64()
	f.DynSymbols = []elftest.Symbol{{Name: "puts"}, {Name: "_ZN3foo3barEv"}}
	f.PLTRelocs = []elftest.Reloc{{Offset: 0x403018, Sym: 0}, {Offset: 0x403020, Sym: 1}}
	im, err := elfx.Parse(elftest.Build(f))
	require.NoError(t, err)

	require.Len(t, im.PLTRels, 2)
	name, ok := im.PLTSymbol(0x403020)
	require.True(t, ok)
	assert.Equal(t, "_ZN3foo3barEv", name)
	_, ok = im.PLTSymbol(0x403028)
	assert.False(t, ok)
}

func TestParseRejects(t *testing.T) {
	_, err := elfx.Parse([]byte("not an elf file at all"))
	require.Error(t, err)

	// A damaged section table and nothing loadable.
	f := fixture64()
	f.Segments = nil
	f.Shoff = 0x100000
	_, err = elfx.Parse(elftest.Build(f))
	require.Error(t, err)

	_, err = elfx.Open(t.TempDir() + "/missing")
	require.Error(t, err)
}
