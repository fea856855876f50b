package x86

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		addr uint64
		hex  string
		want string
		len  int
	}{
		{name: "mov imm32", mode: Mode32, hex: "b8 05 00 00 00", want: "mov eax, 0x5", len: 5},
		{name: "syscall", mode: Mode64, hex: "0f 05", want: "syscall", len: 2},
		{name: "push rbp", mode: Mode64, hex: "55", want: "push rbp", len: 1},
		{name: "push ebp", mode: Mode32, hex: "55", want: "push ebp", len: 1},
		{name: "mov rbp rsp", mode: Mode64, hex: "48 89 e5", want: "mov rbp, rsp", len: 3},
		{name: "rip relative", mode: Mode64, hex: "48 8b 05 10 00 00 00", want: "mov rax, qword ptr [rip+0x10]", len: 7},
		{name: "call rel32", mode: Mode32, addr: 0x401000, hex: "e8 00 00 00 00", want: "call 0x401005", len: 5},
		{name: "jmp self", mode: Mode32, addr: 0x1000, hex: "eb fe", want: "jmp 0x1000", len: 2},
		{name: "jmp wraps in 16-bit", mode: Mode16, addr: 0xfffe, hex: "eb 10", want: "jmp 0x10", len: 2},
		{name: "sib no base", mode: Mode32, hex: "8d 04 8d 00 00 00 00", want: "lea eax, [ecx*4]", len: 7},
		{name: "16-bit bp disp8", mode: Mode16, hex: "8b 46 fc", want: "mov ax, word ptr [bp-0x4]", len: 3},
		{name: "16-bit direct", mode: Mode16, hex: "8b 1e 34 12", want: "mov bx, word ptr [0x1234]", len: 4},
		{name: "16-bit bx si", mode: Mode16, hex: "88 00", want: "mov byte ptr [bx+si], al", len: 2},
		{name: "movsxd", mode: Mode64, hex: "48 63 c1", want: "movsxd rax, ecx", len: 3},
		{name: "spl needs rex", mode: Mode64, hex: "40 b4 00", want: "mov spl, 0x0", len: 3},
		{name: "ah without rex", mode: Mode64, hex: "b4 00", want: "mov ah, 0x0", len: 2},
		{name: "r8b", mode: Mode64, hex: "41 b0 01", want: "mov r8b, 0x1", len: 3},
		{name: "movabs", mode: Mode64, hex: "48 b8 88 77 66 55 44 33 22 11", want: "mov rax, 0x1122334455667788", len: 10},
		{name: "sign extended imm32", mode: Mode64, hex: "48 c7 c0 ff ff ff ff", want: "mov rax, 0xffffffffffffffff", len: 7},
		{name: "sign extended imm8", mode: Mode32, hex: "83 c4 f0", want: "add esp, 0xfffffff0", len: 3},
		{name: "imul three operands", mode: Mode32, hex: "69 c0 78 56 34 12", want: "imul eax, eax, 0x12345678", len: 6},
		{name: "nop", mode: Mode32, hex: "90", want: "nop", len: 1},
		{name: "pause", mode: Mode32, hex: "f3 90", want: "pause", len: 2},
		{name: "xchg r8d", mode: Mode64, hex: "41 90", want: "xchg r8d, eax", len: 2},
		{name: "long nop", mode: Mode32, hex: "0f 1f 44 00 00", want: "nop dword ptr [eax+eax]", len: 5},
		{name: "endbr64", mode: Mode64, hex: "f3 0f 1e fa", want: "endbr64", len: 4},
		{name: "movdqa", mode: Mode64, hex: "66 0f 6f c1", want: "movdqa xmm0, xmm1", len: 4},
		{name: "movq mmx", mode: Mode32, hex: "0f 6f c1", want: "movq mm0, mm1", len: 3},
		{name: "popcnt", mode: Mode32, hex: "f3 0f b8 c1", want: "popcnt eax, ecx", len: 4},
		{name: "popcnt 16", mode: Mode32, hex: "66 f3 0f b8 c1", want: "popcnt ax, cx", len: 5},
		{name: "crc32", mode: Mode32, hex: "f2 0f 38 f1 c1", want: "crc32 eax, ecx", len: 5},
		{name: "pshufb mmx", mode: Mode32, hex: "0f 38 00 c1", want: "pshufb mm0, mm1", len: 4},
		{name: "pshufb xmm", mode: Mode32, hex: "66 0f 38 00 c1", want: "pshufb xmm0, xmm1", len: 5},
		{name: "palignr xmm", mode: Mode32, hex: "66 0f 3a 0f c1 08", want: "palignr xmm0, xmm1, 0x8", len: 6},
		{name: "movbe keeps 66 as operand size", mode: Mode64, hex: "66 0f 38 f1 07", want: "movbe word ptr [rdi], ax", len: 5},
		{name: "psrlq mmx", mode: Mode32, hex: "0f 73 d0 04", want: "psrlq mm0, 0x4", len: 4},
		{name: "psrldq", mode: Mode32, hex: "66 0f 73 d8 04", want: "psrldq xmm0, 0x4", len: 5},
		{name: "movsd", mode: Mode32, hex: "f2 0f 10 c1", want: "movsd xmm0, xmm1", len: 4},
		{name: "rep movsd", mode: Mode32, hex: "f3 a5", want: "rep movsd", len: 2},
		{name: "lock add", mode: Mode32, hex: "f0 01 03", want: "lock add dword ptr [ebx], eax", len: 3},
		{name: "fs override", mode: Mode64, hex: "64 48 8b 04 25 28 00 00 00", want: "mov rax, qword ptr fs:[0x28]", len: 9},
		{name: "fld1", mode: Mode32, hex: "d9 e8", want: "fld1", len: 2},
		{name: "fadd st", mode: Mode32, hex: "d8 c1", want: "fadd st, st(1)", len: 2},
		{name: "fld qword", mode: Mode32, hex: "dd 05 00 10 00 00", want: "fld qword ptr [0x1000]", len: 6},
		{name: "fnstsw ax", mode: Mode32, hex: "df e0", want: "fnstsw ax", len: 2},
		{name: "cwde", mode: Mode32, hex: "98", want: "cwde", len: 1},
		{name: "cbw", mode: Mode16, hex: "98", want: "cbw", len: 1},
		{name: "cdqe", mode: Mode64, hex: "48 98", want: "cdqe", len: 2},
		{name: "jecxz", mode: Mode32, addr: 0x100, hex: "e3 00", want: "jecxz 0x102", len: 2},
		{name: "jcxz by address size", mode: Mode32, addr: 0x100, hex: "67 e3 00", want: "jcxz 0x103", len: 3},
		{name: "jrcxz", mode: Mode64, hex: "e3 fe", want: "jrcxz 0x0", len: 2},
		{name: "address size override", mode: Mode64, hex: "67 8b 00", want: "mov eax, dword ptr [eax]", len: 3},
		{name: "moffs64", mode: Mode64, hex: "48 a1 08 07 06 05 04 03 02 01", want: "mov rax, qword ptr [0x102030405060708]", len: 10},
		{name: "far jmp", mode: Mode32, hex: "ea 78 56 34 12 08 00", want: "jmp 0x8:0x12345678", len: 7},
		{name: "mov tr", mode: Mode32, hex: "0f 24 c0", want: "mov eax, tr0", len: 3},
		{name: "mov cr8", mode: Mode64, hex: "44 0f 20 c0", want: "mov rax, cr8", len: 4},
		{name: "sse5 fmaddps", mode: Mode64, hex: "0f 24 00 c1 30", want: "fmaddps xmm3, xmm0, xmm1", len: 5},
		{name: "sse5 swapped sources", mode: Mode64, hex: "0f 24 00 c1 38", want: "fmaddps xmm3, xmm1, xmm0", len: 5},
		{name: "sse5 memory source", mode: Mode64, hex: "0f 24 01 40 08 20", want: "fmaddpd xmm2, xmm0, xmmword ptr [rax+0x8]", len: 6},
		{name: "mfence", mode: Mode64, hex: "0f ae f0", want: "mfence", len: 3},
		{name: "cmpxchg8b", mode: Mode32, hex: "0f c7 0f", want: "cmpxchg8b [edi]", len: 3},
		{name: "rdrand", mode: Mode32, hex: "0f c7 f0", want: "rdrand eax", len: 3},
		{name: "pextrq", mode: Mode64, hex: "66 48 0f 3a 16 c0 01", want: "pextrq rax, xmm0, 0x1", len: 7},
		{name: "enter", mode: Mode32, hex: "c8 10 00 01", want: "enter 0x10, 0x1", len: 4},
		{name: "setne", mode: Mode32, hex: "0f 95 c0", want: "setne al", len: 3},
		{name: "je rel32", mode: Mode64, addr: 0x1000, hex: "0f 84 00 01 00 00", want: "je 0x1106", len: 6},
		{name: "call r11", mode: Mode64, hex: "41 ff d3", want: "call r11", len: 3},
		{name: "pop fs", mode: Mode64, hex: "0f a1", want: "pop fs", len: 2},
		{name: "trailing bytes ignored", mode: Mode32, hex: "c3 cc cc", want: "ret", len: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode(unhex(t, tt.hex), tt.addr, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.String())
			assert.Equal(t, tt.len, in.Len)
			assert.Equal(t, tt.addr, in.Addr)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		hex  string
		want error
	}{
		{name: "empty", mode: Mode32, hex: "", want: ErrTruncatedStream},
		{name: "only prefixes", mode: Mode32, hex: "66 66 f3", want: ErrTruncatedStream},
		{name: "lone rex", mode: Mode64, hex: "48", want: ErrTruncatedStream},
		{name: "short immediate", mode: Mode32, hex: "b8 05 00", want: ErrTruncatedStream},
		{name: "missing modrm", mode: Mode32, hex: "8b", want: ErrTruncatedStream},
		{name: "missing sib", mode: Mode32, hex: "8b 04", want: ErrTruncatedStream},
		{name: "missing 0f byte", mode: Mode64, hex: "0f", want: ErrTruncatedStream},
		{name: "push es in 64-bit", mode: Mode64, hex: "06", want: ErrReservedOpcode},
		{name: "daa in 64-bit", mode: Mode64, hex: "27", want: ErrReservedOpcode},
		{name: "undefined 0f", mode: Mode32, hex: "0f 04", want: ErrReservedOpcode},
		{name: "empty group slot", mode: Mode32, hex: "fe d0", want: ErrReservedOpcode},
		{name: "sse only with 66", mode: Mode32, hex: "0f 73 d8 01", want: ErrReservedOpcode},
		{name: "ptest only with 66", mode: Mode32, hex: "0f 38 17 c1", want: ErrReservedOpcode},
		{name: "movsxd without rex", mode: Mode64, hex: "63 c1", want: ErrInvalidRegisterEncoding},
		{name: "segment register 6", mode: Mode32, hex: "8c f0", want: ErrInvalidRegisterEncoding},
		{name: "lea of a register", mode: Mode32, hex: "8d c0", want: ErrUnsupportedAddressingMode},
		{name: "movmskps of memory", mode: Mode32, hex: "0f 50 00", want: ErrUnsupportedAddressingMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(unhex(t, tt.hex), 0x400000, tt.mode)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, uint64(0x400000), de.Addr)
		})
	}
}

func TestDecodeFields(t *testing.T) {
	t.Run("mov eax imm", func(t *testing.T) {
		in, err := Decode([]byte{0xb8, 0x05, 0x00, 0x00, 0x00}, 0, Mode32)
		require.NoError(t, err)
		assert.Equal(t, "mov", in.Name)
		assert.Equal(t, Reg{Class: ClassGeneral, Index: 0, Size: 4}, in.Args[0])
		assert.Equal(t, Imm{Value: 5, Size: 4}, in.Args[1])
		assert.Nil(t, in.Args[2])
		assert.Equal(t, 32, in.OpSize)
		assert.Equal(t, 32, in.AddrSize)
	})

	t.Run("byte register flags", func(t *testing.T) {
		in, err := Decode([]byte{0x40, 0x88, 0xe0}, 0, Mode64)
		require.NoError(t, err)
		assert.Equal(t, Reg{Class: ClassGeneral, Index: 4, Size: 1, NeedREX: true}, in.Args[1])

		in, err = Decode([]byte{0x88, 0xe0}, 0, Mode64)
		require.NoError(t, err)
		assert.Equal(t, Reg{Class: ClassGeneral, Index: 4, Size: 1, ForbidREX: true}, in.Args[1])
		assert.Equal(t, "mov al, ah", in.String())
	})

	t.Run("mandatory prefix consumed", func(t *testing.T) {
		in, err := Decode([]byte{0x66, 0x0f, 0x6f, 0xc1}, 0, Mode64)
		require.NoError(t, err)
		assert.False(t, in.Prefix.OpSize)
		assert.Equal(t, 32, in.OpSize)

		in, err = Decode([]byte{0xf3, 0x90}, 0, Mode32)
		require.NoError(t, err)
		assert.Equal(t, RepNone, in.Prefix.Rep)
	})

	t.Run("operand size prefix kept", func(t *testing.T) {
		in, err := Decode([]byte{0x66, 0x05, 0x34, 0x12}, 0, Mode32)
		require.NoError(t, err)
		assert.True(t, in.Prefix.OpSize)
		assert.Equal(t, 16, in.OpSize)
		assert.Equal(t, "add ax, 0x1234", in.String())
	})

	t.Run("rip relative base", func(t *testing.T) {
		in, err := Decode([]byte{0x8b, 0x05, 0x00, 0x01, 0x00, 0x00}, 0, Mode64)
		require.NoError(t, err)
		m, ok := in.Args[1].(Mem)
		require.True(t, ok)
		assert.Equal(t, RegIP, m.Base)
		assert.Equal(t, int64(0x100), m.Disp)

		// The same encoding is an absolute address outside 64-bit mode.
		in, err = Decode([]byte{0x8b, 0x05, 0x00, 0x01, 0x00, 0x00}, 0, Mode32)
		require.NoError(t, err)
		m, ok = in.Args[1].(Mem)
		require.True(t, ok)
		assert.Equal(t, RegNone, m.Base)
	})

	t.Run("x87 memory operand", func(t *testing.T) {
		in, err := Decode([]byte{0xdd, 0x00}, 0, Mode32)
		require.NoError(t, err)
		m, ok := in.Args[0].(Mem)
		require.True(t, ok)
		assert.True(t, m.FloatPtr)
		assert.Equal(t, 8, m.Size)
	})

	t.Run("segment override", func(t *testing.T) {
		in, err := Decode([]byte{0x2e, 0x8b, 0x00}, 0, Mode32)
		require.NoError(t, err)
		assert.Equal(t, CS, in.Prefix.Segment)
		assert.Equal(t, "mov eax, dword ptr cs:[eax]", in.String())
	})
}

func TestREXInvalidation(t *testing.T) {
	// A REX byte followed by another prefix decodes on its own.
	in, err := Decode([]byte{0x48, 0x66, 0x90}, 0, Mode64)
	require.NoError(t, err)
	assert.Equal(t, "rex.w", in.Name)
	assert.Equal(t, 1, in.Len)
	assert.Zero(t, in.Prefix.REX)

	in, err = Decode([]byte{0x66, 0x41, 0x48, 0x90}, 0, Mode64)
	require.NoError(t, err)
	assert.Equal(t, "rex.b", in.Name)
	assert.Equal(t, 2, in.Len)
	assert.True(t, in.Prefix.OpSize)

	// Directly before the opcode it applies.
	in, err = Decode([]byte{0x66, 0x48, 0x90}, 0, Mode64)
	require.NoError(t, err)
	assert.Equal(t, byte(0x48), in.Prefix.REX)
	assert.Equal(t, 3, in.Len)

	// Outside 64-bit mode 0x40..0x4f are inc and dec.
	in, err = Decode([]byte{0x48, 0x90}, 0, Mode32)
	require.NoError(t, err)
	assert.Equal(t, "dec eax", in.String())
}

func TestDecodeInvalidMode(t *testing.T) {
	_, err := Decode([]byte{0x90}, 0, Mode(8))
	require.Error(t, err)
}

func TestMemRef(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		addr uint64
		hex  string
		want uint64
		ok   bool
	}{
		{name: "rip relative lea", mode: Mode64, addr: 0x401000, hex: "48 8d 05 f9 0f 00 00", want: 0x402000, ok: true},
		{name: "rip relative backwards", mode: Mode64, addr: 0x1000, hex: "8b 05 fc ff ff ff", want: 0x1002, ok: true},
		{name: "sib without base", mode: Mode64, hex: "8b 04 25 00 10 00 00", want: 0x1000, ok: true},
		{name: "absolute disp32", mode: Mode32, hex: "8b 05 00 20 40 00", want: 0x402000, ok: true},
		{name: "register base", mode: Mode32, hex: "8b 00"},
		{name: "16-bit disp", mode: Mode16, hex: "8b 06 34 12"},
		{name: "no memory operand", mode: Mode64, hex: "c3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode(unhex(t, tt.hex), tt.addr, tt.mode)
			require.NoError(t, err)
			got, ok := in.MemRef()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperandRexRules(t *testing.T) {
	// ModR/M e0: mod 3, reg 4, rm 0.
	tests := []struct {
		name    string
		info    Info
		rex     byte
		wantErr error
		want    Reg
	}{
		{"forbid without rex", InfoForbidREX, 0, nil, Reg{Class: ClassGeneral, Index: 4, Size: 1, ForbidREX: true}},
		{"forbid with bare rex", InfoForbidREX, 0x40, ErrInvalidRegisterEncoding, Reg{}},
		{"forbid with rex.r", InfoForbidREX, 0x44, ErrInvalidRegisterEncoding, Reg{}},
		{"need without rex", InfoNeedREX, 0, ErrInvalidRegisterEncoding, Reg{}},
		{"need with rex", InfoNeedREX, 0x40, nil, Reg{Class: ClassGeneral, Index: 4, Size: 1, NeedREX: true}},
		{"need with rex.r", InfoNeedREX, 0x44, nil, Reg{Class: ClassGeneral, Index: 12, Size: 1, NeedREX: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decoder{
				c:    newCursor([]byte{0xe0}),
				mode: Mode64,
				rex:  tt.rex,
				sz:   sizes{mode: Mode64, opSize: 32, addrSize: 64},
			}
			op, err := d.operand(OpSpec{Fetch: FetchG, Size: SizeB, Info: tt.info})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, d.c.pos, "no bytes consumed")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, op)
		})
	}
}
