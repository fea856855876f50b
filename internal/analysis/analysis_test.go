package analysis

import (
	"context"
	"debug/elf"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
	"x86scope/internal/elfx"
	"x86scope/internal/elfx/elftest"
	"x86scope/internal/x86"
)

// 401000  push rbp
// 401001  mov rbp, rsp
// 401004  call 401010
// 401009  je 40100e
// 40100b  pop rbp
// 40100c  ret
// 40100d  nop            (unreachable)
// 40100e  pop rbp
// 40100f  ret
// 401010  xor eax, eax
// 401012  ret
var text = []byte{
	0x55,
	0x48, 0x89, 0xe5,
	0xe8, 0x07, 0x00, 0x00, 0x00,
	0x74, 0x03,
	0x5d,
	0xc3,
	0x90,
	0x5d,
	0xc3,
	0x31, 0xc0,
	0xc3,
}

// A PLT header followed by one stub jumping through the GOT slot 0x403018.
var plt = []byte{
	0xff, 0x35, 0x00, 0x00, 0x00, 0x00, 0xff, 0x25, 0x00, 0x00, 0x00, 0x00, 0x0f, 0x1f, 0x40, 0x00,
	0xff, 0x25, 0xe2, 0x1f, 0x00, 0x00, 0x68, 0x00, 0x00, 0x00, 0x00, 0xe9, 0xe0, 0xff, 0xff, 0xff,
}

func fixture() elftest.File {
	code := make([]byte, 0x20)
	for i := range code {
		code[i] = 0xcc
	}
	copy(code, text)
	code = append(code, plt...)
	return elftest.File{
		Class:   elf.ELFCLASS64,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Segments: []elftest.Segment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: code},
		},
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: text},
			{Name: ".plt", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401020, Data: plt},
		},
		Symbols: []elftest.Symbol{
			{Name: "main", Value: 0x401000, Size: 0x10, Func: true},
			{Name: "_ZN3foo6helperEv", Value: 0x401010, Size: 3, Func: true},
		},
		DynSymbols: []elftest.Symbol{{Name: "puts"}},
		PLTRelocs:  []elftest.Reloc{{Offset: 0x403018, Sym: 0}},
	}
}

func seed(t *testing.T, f elftest.File, mode x86.Mode) *View {
	t.Helper()
	im, err := elfx.Parse(elftest.Build(f))
	require.NoError(t, err)
	v, err := Seed(im, mode, nil)
	require.NoError(t, err)
	return v
}

func texts(s disasm.Stream) []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = l.Addr.String() + " " + l.Text()
	}
	return out
}

func TestSeed(t *testing.T) {
	v := seed(t, fixture(), 0)
	assert.Equal(t, x86.Mode64, v.Mode)
	assert.Equal(t, "sections", v.Source)
	assert.Equal(t, addr.Range{Low: addr.New64(0x401000), High: addr.New64(0x40103f)}, v.Range)
	assert.Equal(t, addr.New64(0x401000), v.Entry)
}

func TestSeedErrors(t *testing.T) {
	t.Run("entry outside bounds", func(t *testing.T) {
		f := fixture()
		f.Entry = 0x500000
		im, err := elfx.Parse(elftest.Build(f))
		require.NoError(t, err)
		_, err = Seed(im, 0, nil)
		require.ErrorIs(t, err, ErrEntryOutOfRange)
	})

	t.Run("nothing mapped", func(t *testing.T) {
		im, err := elfx.Parse(elftest.Build(elftest.File{
			Class:    elf.ELFCLASS32,
			Machine:  elf.EM_386,
			Type:     elf.ET_REL,
			Sections: []elftest.Section{{Name: ".comment", Type: elf.SHT_PROGBITS, Data: []byte("gcc\x00")}},
		}))
		require.NoError(t, err)
		_, err = Seed(im, 0, nil)
		require.ErrorIs(t, err, ErrNoDecodableRegion)
	})

	t.Run("bad mode", func(t *testing.T) {
		im, err := elfx.Parse(elftest.Build(fixture()))
		require.NoError(t, err)
		_, err = Seed(im, x86.Mode(8), nil)
		require.Error(t, err)
	})
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		name    string
		class   elf.Class
		machine elf.Machine
		want    x86.Mode
	}{
		{"x86-64", elf.ELFCLASS64, elf.EM_X86_64, x86.Mode64},
		{"i386", elf.ELFCLASS32, elf.EM_386, x86.Mode32},
		{"x32", elf.ELFCLASS32, elf.EM_X86_64, x86.Mode64},
		{"other 64", elf.ELFCLASS64, elf.EM_AARCH64, x86.Mode64},
		{"other 32", elf.ELFCLASS32, elf.EM_ARM, x86.Mode32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ModeFor(&elfx.Image{Class: tt.class, Machine: tt.machine}))
		})
	}
}

func TestLinearScan(t *testing.T) {
	v := seed(t, fixture(), 0)
	lines, err := v.LinearScan(context.Background(), v.Entry, 11)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0000000000401000 push rbp",
		"0000000000401001 mov rbp, rsp",
		"0000000000401004 call 0x401010",
		"0000000000401009 je 0x40100e",
		"000000000040100b pop rbp",
		"000000000040100c ret",
		"000000000040100d nop",
		"000000000040100e pop rbp",
		"000000000040100f ret",
		"0000000000401010 xor eax, eax",
		"0000000000401012 ret",
	}, texts(lines))

	assert.Equal(t, disasm.FlowCall, lines[2].Flow)
	assert.Equal(t, []string{"<foo::helper()>"}, lines[2].Notes)
	assert.Equal(t, disasm.FlowCondJump, lines[3].Flow)
	assert.Equal(t, []string{"<main+0xe>"}, lines[3].Notes)
	assert.Equal(t, disasm.FlowReturn, lines[5].Flow)

	all, err := v.LinearScan(context.Background(), v.Entry, 0)
	require.NoError(t, err)
	assert.Equal(t, addr.New64(0x401040), all[len(all)-1].End(), "sweep ends at the range end")

	_, err = v.LinearScan(context.Background(), addr.New64(0x400000), 1)
	require.ErrorIs(t, err, ErrEntryOutOfRange)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.LinearScan(ctx, v.Entry, 0)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLinearScanSkipsUnbackedBytes(t *testing.T) {
	text := []byte{0x55, 0x48, 0x89, 0xe5, 0x5d, 0xc3}
	nops := []byte{0x90, 0x90, 0x90, 0x90}
	v := seed(t, elftest.File{
		Class:   elf.ELFCLASS64,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Segments: []elftest.Segment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: text},
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_W, Vaddr: 0x402000, Memsz: 0x100, Data: nops},
		},
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: text},
			{Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402000, Data: nops},
			{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x402004, Size: 0xfc},
		},
	}, 0)
	require.Equal(t, addr.New64(0x4020ff), v.Range.High)

	tests := []struct {
		name  string
		start uint64
		count int
		want  []string
	}{
		{
			name:  "whole range",
			start: 0x401000,
			want: []string{
				"0000000000401000 push rbp",
				"0000000000401001 mov rbp, rsp",
				"0000000000401004 pop rbp",
				"0000000000401005 ret",
				"0000000000402000 nop",
				"0000000000402001 nop",
				"0000000000402002 nop",
				"0000000000402003 nop",
			},
		},
		{
			name:  "count spans the gap",
			start: 0x401004,
			count: 3,
			want: []string{
				"0000000000401004 pop rbp",
				"0000000000401005 ret",
				"0000000000402000 nop",
			},
		},
		{
			name:  "start in the gap",
			start: 0x401800,
			count: 2,
			want:  []string{"0000000000401800 db ?", "0000000000402000 nop"},
		},
		{
			name:  "start in bss",
			start: 0x402010,
			want:  []string{"0000000000402010 db ?"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := v.LinearScan(context.Background(), addr.New64(tt.start), tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(lines))
		})
	}
}

func TestPlaceholder(t *testing.T) {
	f := fixture()
	// push es does not exist in 64-bit mode.
	f.Segments[0].Data[0] = 0x06
	v := seed(t, f, 0)
	line := v.DecodeAt(v.Entry)
	require.Error(t, line.Err)
	assert.Equal(t, "db", line.Op)
	assert.Equal(t, "0x06", line.Args)
	assert.ErrorIs(t, line.Err, x86.ErrReservedOpcode)
	assert.Equal(t, 1, line.Len())
}

func TestWalk(t *testing.T) {
	v := seed(t, fixture(), 0)
	lines, err := v.Walk(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0000000000401000 push rbp",
		"0000000000401001 mov rbp, rsp",
		"0000000000401004 call 0x401010",
		"0000000000401009 je 0x40100e",
		"000000000040100b pop rbp",
		"000000000040100c ret",
		"000000000040100e pop rbp",
		"000000000040100f ret",
		"0000000000401010 xor eax, eax",
		"0000000000401012 ret",
	}, texts(lines))

	limited, err := v.Walk(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Len(t, limited, 3)

	outside, err := v.Walk(context.Background(), []addr.Address{addr.New64(0x10)}, 0)
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestSymbolizer(t *testing.T) {
	v := seed(t, fixture(), 0)
	name, ok := v.Syms.Name(0x401030)
	require.True(t, ok)
	assert.Equal(t, "puts@plt", name)
	_, ok = v.Syms.Name(0x401020)
	assert.False(t, ok, "the PLT header is not bound to a symbol")

	label, ok := v.Syms.Label(0x401010)
	require.True(t, ok)
	assert.Equal(t, "foo::helper()", label)
	_, ok = v.Syms.Label(0x401011)
	assert.False(t, ok)

	v.Syms.Name(0x401011)
	total, top := v.Syms.Stats()
	assert.Equal(t, 2, total)
	assert.NotEmpty(t, top)
}

func TestCrossCheck(t *testing.T) {
	v := seed(t, fixture(), 0)
	lines, err := v.Walk(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, v.CrossCheck(lines))
}

func randomImage(class elf.Class, machine elf.Machine, n int) elftest.File {
	rng := rand.New(rand.NewSource(7))
	code := make([]byte, n)
	rng.Read(code)
	return elftest.File{
		Class:    class,
		Machine:  machine,
		Entry:    0x10000,
		Segments: []elftest.Segment{{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x10000, Data: code}},
		// Leave the section table unreadable so the segment is scanned.
		ShentsizePad: 8,
	}
}

// Stitching chunks decoded in parallel gives the same listing as one
// sequential sweep, whatever the chunk size.
func TestParallelScanMatchesLinear(t *testing.T) {
	for _, tc := range []struct {
		class   elf.Class
		machine elf.Machine
	}{
		{elf.ELFCLASS64, elf.EM_X86_64},
		{elf.ELFCLASS32, elf.EM_386},
	} {
		v := seed(t, randomImage(tc.class, tc.machine, 3000), 0)
		require.Equal(t, "segments", v.Source)
		want, err := v.LinearScan(context.Background(), v.Range.Low, 0)
		require.NoError(t, err)
		for _, chunk := range []uint64{1, 7, 64, 1000, 1 << 20} {
			got, err := v.ParallelScan(context.Background(), 4, chunk)
			require.NoError(t, err)
			require.Equalf(t, texts(want), texts(got), "%v chunk %d", tc.machine, chunk)
		}
	}
}

func TestOperandNotes(t *testing.T) {
	code := []byte{
		0x48, 0x8d, 0x3d, 0xf9, 0x0f, 0x00, 0x00, // lea rdi, [rip+0xff9] -> 402000
		0x8b, 0x05, 0x03, 0x10, 0x00, 0x00,       // mov eax, [rip+0x1003] -> 402010
		0x8b, 0x05, 0x00, 0x10, 0x00, 0x00,       // mov eax, [rip+0x1000] -> 402013
		0xc3,
	}
	data := append([]byte("hello, world\x00\x00\x00\x00"), 0x2a, 0, 0, 'o', 'k', 0)
	v := seed(t, elftest.File{
		Class:   elf.ELFCLASS64,
		Machine: elf.EM_X86_64,
		Entry:   0x401000,
		Segments: []elftest.Segment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Vaddr: 0x401000, Data: code},
			{Type: elf.PT_LOAD, Flags: elf.PF_R, Vaddr: 0x402000, Data: data},
		},
		Sections: []elftest.Section{
			{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: 0x401000, Data: code},
			{Name: ".rodata", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Addr: 0x402000, Data: data},
		},
		Symbols: []elftest.Symbol{{Name: "counter", Value: 0x402010, Size: 3}},
	}, 0)

	lines, err := v.LinearScan(context.Background(), v.Entry, 4)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.True(t, lines[0].HasRef)
	assert.Equal(t, addr.New64(0x402000), lines[0].Ref)
	assert.Equal(t, []string{`"hello, world"`}, lines[0].Notes)
	assert.Equal(t, []string{"<counter>"}, lines[1].Notes)
	assert.Empty(t, lines[2].Notes, "two-byte strings are not noted")
	assert.False(t, lines[3].HasRef)
}

func TestCString(t *testing.T) {
	v := seed(t, fixture(), 0)
	_, ok := v.CString(0x500000)
	assert.False(t, ok, "unmapped")
	_, ok = v.CString(0x401000)
	assert.False(t, ok, "code is not text")
	assert.Equal(t, `a\u001Bb`, EscapeUnprintable([]byte("a\x1bb")))
	assert.Equal(t, `\xFF`, EscapeUnprintable([]byte{0xff}))
}
