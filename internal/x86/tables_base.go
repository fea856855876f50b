package x86

// Operand shorthands, named after the Intel opcode map notation.
var (
	eb = OpSpec{Fetch: FetchE, Size: SizeB}
	ew = OpSpec{Fetch: FetchE, Size: SizeW}
	ed = OpSpec{Fetch: FetchE, Size: SizeD}
	ev = OpSpec{Fetch: FetchE, Size: SizeV}
	ez = OpSpec{Fetch: FetchE, Size: SizeZ}
	er = OpSpec{Fetch: FetchE, Size: SizeR}

	gb = OpSpec{Fetch: FetchG, Size: SizeB}
	gw = OpSpec{Fetch: FetchG, Size: SizeW}
	gd = OpSpec{Fetch: FetchG, Size: SizeD}
	gv = OpSpec{Fetch: FetchG, Size: SizeV}
	gz = OpSpec{Fetch: FetchG, Size: SizeZ}
	gr = OpSpec{Fetch: FetchG, Size: SizeR}

	gvNeedREX = OpSpec{Fetch: FetchG, Size: SizeV, Info: InfoNeedREX}

	ib  = OpSpec{Fetch: FetchI, Size: SizeB}
	iw  = OpSpec{Fetch: FetchI, Size: SizeW}
	iv  = OpSpec{Fetch: FetchI, Size: SizeV}
	iz  = OpSpec{Fetch: FetchIs, Size: SizeVV}
	ibs = OpSpec{Fetch: FetchIs, Size: SizeBV}
	one = OpSpec{Fetch: FetchIx, Extra: 1, Size: SizeB}

	jb = OpSpec{Fetch: FetchJ, Size: SizeBV}
	jz = OpSpec{Fetch: FetchJ, Size: SizeVV}

	m0 = OpSpec{Fetch: FetchM, Size: Size0}
	mb = OpSpec{Fetch: FetchM, Size: SizeB}
	mw = OpSpec{Fetch: FetchM, Size: SizeW}
	md = OpSpec{Fetch: FetchM, Size: SizeD}
	mq = OpSpec{Fetch: FetchM, Size: SizeQ}
	mo = OpSpec{Fetch: FetchM, Size: SizeO}
	mv = OpSpec{Fetch: FetchM, Size: SizeV}
	mz = OpSpec{Fetch: FetchM, Size: SizeZ}
	mp = OpSpec{Fetch: FetchM, Size: SizeP}
	ms = OpSpec{Fetch: FetchM, Size: SizeS}
	ml = OpSpec{Fetch: FetchM, Size: SizeL}
	mt = OpSpec{Fetch: FetchM, Size: SizeT}
	ma = OpSpec{Fetch: FetchM, Size: SizeA}

	ap = OpSpec{Fetch: FetchA, Size: SizeP}
	ob = OpSpec{Fetch: FetchO, Size: SizeB}
	ov = OpSpec{Fetch: FetchO, Size: SizeV}

	sw = OpSpec{Fetch: FetchS, Size: SizeW}
	cr = OpSpec{Fetch: FetchC, Size: SizeR}
	dr = OpSpec{Fetch: FetchD, Size: SizeR}
	td = OpSpec{Fetch: FetchT, Size: SizeD}
	rr = OpSpec{Fetch: FetchR, Size: SizeR}
	rd = OpSpec{Fetch: FetchR, Size: SizeD}
	rv = OpSpec{Fetch: FetchR, Size: SizeV}
	rz = OpSpec{Fetch: FetchR, Size: SizeZ}

	pq  = OpSpec{Fetch: FetchP, Size: SizeQ}
	qd  = OpSpec{Fetch: FetchQ, Size: SizeD}
	qq  = OpSpec{Fetch: FetchQ, Size: SizeQ}
	prq = OpSpec{Fetch: FetchPR, Size: SizeQ}

	vd  = OpSpec{Fetch: FetchV, Size: SizeD}
	vq  = OpSpec{Fetch: FetchV, Size: SizeQ}
	vo  = OpSpec{Fetch: FetchV, Size: SizeO}
	wb  = OpSpec{Fetch: FetchW, Size: SizeB}
	ww  = OpSpec{Fetch: FetchW, Size: SizeW}
	wd  = OpSpec{Fetch: FetchW, Size: SizeD}
	wq  = OpSpec{Fetch: FetchW, Size: SizeQ}
	wo  = OpSpec{Fetch: FetchW, Size: SizeO}
	vro = OpSpec{Fetch: FetchVR, Size: SizeO}

	sti = OpSpec{Fetch: FetchF, Size: SizeT}
	st0 = OpSpec{Fetch: FetchFx, Extra: 0, Size: SizeT}

	vdx  = OpSpec{Fetch: FetchVD, Size: SizeO}
	vs0  = OpSpec{Fetch: FetchVS0, Size: SizeO}
	vs1  = OpSpec{Fetch: FetchVS1, Size: SizeO}
	xmm0 = OpSpec{Fetch: FetchVx, Extra: 0, Size: SizeO}

	al  = rxx(0, SizeB)
	cl  = rxx(1, SizeB)
	dx  = rxx(2, SizeW)
	ax  = rxx(0, SizeW)
	eAX = rxx(0, SizeV)
)

// rx is a register picked by the opcode, extended by REX.B.
func rx(i int, s Size) OpSpec { return OpSpec{Fetch: FetchRx, Extra: uint8(i), Size: s} }

// rxx is a fixed register, never extended.
func rxx(i int, s Size) OpSpec { return OpSpec{Fetch: FetchRXx, Extra: uint8(i), Size: s} }

func sx(i int) OpSpec { return OpSpec{Fetch: FetchSx, Extra: uint8(i), Size: SizeW} }

// mr is a ModR/M operand whose memory form has size mem and whose
// register form has size reg.
func mr(mem, reg Size) OpSpec { return OpSpec{Fetch: FetchMR, Extra: uint8(reg), Size: mem} }

var arithNames = [8]string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

var condNames = [16]string{
	"o", "no", "b", "ae", "e", "ne", "be", "a",
	"s", "ns", "p", "np", "l", "ge", "le", "g",
}

func baseTable() [256]Entry {
	var t [256]Entry

	// 00..3F: the eight arithmetic rows share one layout.
	for i, name := range arithNames {
		row := byte(i * 8)
		t[row+0] = op(name, eb, gb)
		t[row+1] = op(name, ev, gv)
		t[row+2] = op(name, gb, eb)
		t[row+3] = op(name, gv, ev)
		t[row+4] = op(name, al, ib)
		t[row+5] = op(name, eAX, iz)
	}
	t[0x06] = op("push", sx(0))
	t[0x07] = op("pop", sx(0))
	t[0x0e] = op("push", sx(1))
	t[0x0f] = Escape{}
	t[0x16] = op("push", sx(2))
	t[0x17] = op("pop", sx(2))
	t[0x1e] = op("push", sx(3))
	t[0x1f] = op("pop", sx(3))
	t[0x26] = Prefix{Kind: KindSegment, Value: int8(ES)}
	t[0x27] = op("daa")
	t[0x2e] = Prefix{Kind: KindSegment, Value: int8(CS)}
	t[0x2f] = op("das")
	t[0x36] = Prefix{Kind: KindSegment, Value: int8(SS)}
	t[0x37] = op("aaa")
	t[0x3e] = Prefix{Kind: KindSegment, Value: int8(DS)}
	t[0x3f] = op("aas")

	for i := 0; i < 8; i++ {
		t[0x40+i] = op("inc", rxx(i, SizeV))
		t[0x48+i] = op("dec", rxx(i, SizeV))
		t[0x50+i] = op64("push", rx(i, SizeV))
		t[0x58+i] = op64("pop", rx(i, SizeV))
		t[0x90+i] = op("xchg", rx(i, SizeV), eAX)
		t[0xb0+i] = op("mov", rx(i, SizeB), ib)
		t[0xb8+i] = op("mov", rx(i, SizeV), iv)
	}

	t[0x60] = op("pusha|pushad")
	t[0x61] = op("popa|popad")
	t[0x62] = op("bound", gv, m0)
	t[0x63] = op("arpl", ew, gw)
	t[0x64] = Prefix{Kind: KindSegment, Value: int8(FS)}
	t[0x65] = Prefix{Kind: KindSegment, Value: int8(GS)}
	t[0x66] = Prefix{Kind: KindOpSize}
	t[0x67] = Prefix{Kind: KindAddrSize}
	t[0x68] = op64("push", iz)
	t[0x69] = op("imul", gv, ev, iz)
	t[0x6a] = op64("push", ibs)
	t[0x6b] = op("imul", gv, ev, ibs)
	t[0x6c] = op("insb")
	t[0x6d] = op("insw|insd")
	t[0x6e] = op("outsb")
	t[0x6f] = op("outsw|outsd")

	for i, cc := range condNames {
		t[0x70+i] = op64("j"+cc, jb)
	}

	t[0x80] = newGroup(arith(eb, ib)...)
	t[0x81] = newGroup(arith(ev, iz)...)
	t[0x82] = t[0x80]
	t[0x83] = newGroup(arith(ev, ibs)...)
	t[0x84] = op("test", eb, gb)
	t[0x85] = op("test", ev, gv)
	t[0x86] = op("xchg", eb, gb)
	t[0x87] = op("xchg", ev, gv)
	t[0x88] = op("mov", eb, gb)
	t[0x89] = op("mov", ev, gv)
	t[0x8a] = op("mov", gb, eb)
	t[0x8b] = op("mov", gv, ev)
	t[0x8c] = op("mov", ev, sw)
	t[0x8d] = op("lea", gv, m0)
	t[0x8e] = op("mov", sw, ew)
	t[0x8f] = newGroup(op64("pop", ev))

	// xchg with itself is nop; pause is the F3 form.
	t[0x90] = newSpecial(op("nop"), nil, nil, op("pause"))
	t[0x98] = op("cbw|cwde|cdqe")
	t[0x99] = op("cwd|cdq|cqo")
	t[0x9a] = op("call", ap)
	t[0x9b] = op("wait")
	t[0x9c] = op64("pushf|pushfd|pushfq")
	t[0x9d] = op64("popf|popfd|popfq")
	t[0x9e] = op("sahf")
	t[0x9f] = op("lahf")

	t[0xa0] = op("mov", al, ob)
	t[0xa1] = op("mov", eAX, ov)
	t[0xa2] = op("mov", ob, al)
	t[0xa3] = op("mov", ov, eAX)
	t[0xa4] = op("movsb")
	t[0xa5] = op("movsw|movsd|movsq")
	t[0xa6] = op("cmpsb")
	t[0xa7] = op("cmpsw|cmpsd|cmpsq")
	t[0xa8] = op("test", al, ib)
	t[0xa9] = op("test", eAX, iz)
	t[0xaa] = op("stosb")
	t[0xab] = op("stosw|stosd|stosq")
	t[0xac] = op("lodsb")
	t[0xad] = op("lodsw|lodsd|lodsq")
	t[0xae] = op("scasb")
	t[0xaf] = op("scasw|scasd|scasq")

	t[0xc0] = newGroup(shift(eb, ib)...)
	t[0xc1] = newGroup(shift(ev, ib)...)
	t[0xc2] = op64("ret", iw)
	t[0xc3] = op64("ret")
	t[0xc4] = op("les", gv, mp)
	t[0xc5] = op("lds", gv, mp)
	t[0xc6] = newGroup(op("mov", eb, ib))
	t[0xc7] = newGroup(op("mov", ev, iz))
	t[0xc8] = op64("enter", iw, ib)
	t[0xc9] = op64("leave")
	t[0xca] = op("retf", iw)
	t[0xcb] = op("retf")
	t[0xcc] = op("int3")
	t[0xcd] = op("int", ib)
	t[0xce] = op("into")
	t[0xcf] = op("iret|iretd|iretq")

	t[0xd0] = newGroup(shift(eb, one)...)
	t[0xd1] = newGroup(shift(ev, one)...)
	t[0xd2] = newGroup(shift(eb, cl)...)
	t[0xd3] = newGroup(shift(ev, cl)...)
	t[0xd4] = op("aam", ib)
	t[0xd5] = op("aad", ib)
	t[0xd6] = op("salc")
	t[0xd7] = op("xlatb")
	for i := 0; i < 8; i++ {
		t[0xd8+i] = FloatEscape(i)
	}

	t[0xe0] = op64("loopne", jb)
	t[0xe1] = op64("loope", jb)
	t[0xe2] = op64("loop", jb)
	t[0xe3] = Opcode{Name: "jcxz|jecxz|jrcxz", Ops: [4]OpSpec{jb}, Flags: FlagDefault64 | FlagNameByAddrSize}
	t[0xe4] = op("in", al, ib)
	t[0xe5] = op("in", eAX, ib)
	t[0xe6] = op("out", ib, al)
	t[0xe7] = op("out", ib, eAX)
	t[0xe8] = op64("call", jz)
	t[0xe9] = op64("jmp", jz)
	t[0xea] = op("jmp", ap)
	t[0xeb] = op64("jmp", jb)
	t[0xec] = op("in", al, dx)
	t[0xed] = op("in", eAX, dx)
	t[0xee] = op("out", dx, al)
	t[0xef] = op("out", dx, eAX)

	t[0xf0] = Prefix{Kind: KindLock}
	t[0xf1] = op("int1")
	t[0xf2] = Prefix{Kind: KindRep, Value: int8(RepNZ)}
	t[0xf3] = Prefix{Kind: KindRep, Value: int8(RepZ)}
	t[0xf4] = op("hlt")
	t[0xf5] = op("cmc")
	t[0xf6] = newGroup(
		op("test", eb, ib), op("test", eb, ib), op("not", eb), op("neg", eb),
		op("mul", eb), op("imul", eb), op("div", eb), op("idiv", eb),
	)
	t[0xf7] = newGroup(
		op("test", ev, iz), op("test", ev, iz), op("not", ev), op("neg", ev),
		op("mul", ev), op("imul", ev), op("div", ev), op("idiv", ev),
	)
	t[0xf8] = op("clc")
	t[0xf9] = op("stc")
	t[0xfa] = op("cli")
	t[0xfb] = op("sti")
	t[0xfc] = op("cld")
	t[0xfd] = op("std")
	t[0xfe] = newGroup(op("inc", eb), op("dec", eb))
	t[0xff] = newGroup(
		op("inc", ev), op("dec", ev), op64("call", ev), op("callf", mp),
		op64("jmp", ev), op("jmpf", mp), op64("push", ev),
	)
	return t
}

func arith(dst, src OpSpec) []Entry {
	e := make([]Entry, 8)
	for i, name := range arithNames {
		e[i] = op(name, dst, src)
	}
	return e
}

func shift(dst, count OpSpec) []Entry {
	names := [8]string{"rol", "ror", "rcl", "rcr", "shl", "shr", "sal", "sar"}
	e := make([]Entry, 8)
	for i, name := range names {
		e[i] = op(name, dst, count)
	}
	return e
}
