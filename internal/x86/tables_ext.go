package x86

// MMX instructions of the 0F map whose SSE2 form is the same mnemonic on
// XMM registers behind 0x66.
var mmxPairs = map[byte]string{
	0x60: "punpcklbw", 0x61: "punpcklwd", 0x62: "punpckldq", 0x63: "packsswb",
	0x64: "pcmpgtb", 0x65: "pcmpgtw", 0x66: "pcmpgtd", 0x67: "packuswb",
	0x68: "punpckhbw", 0x69: "punpckhwd", 0x6a: "punpckhdq", 0x6b: "packssdw",
	0x74: "pcmpeqb", 0x75: "pcmpeqw", 0x76: "pcmpeqd",
	0xd1: "psrlw", 0xd2: "psrld", 0xd3: "psrlq", 0xd4: "paddq", 0xd5: "pmullw",
	0xd8: "psubusb", 0xd9: "psubusw", 0xda: "pminub", 0xdb: "pand",
	0xdc: "paddusb", 0xdd: "paddusw", 0xde: "pmaxub", 0xdf: "pandn",
	0xe0: "pavgb", 0xe1: "psraw", 0xe2: "psrad", 0xe3: "pavgw",
	0xe4: "pmulhuw", 0xe5: "pmulhw",
	0xe8: "psubsb", 0xe9: "psubsw", 0xea: "pminsw", 0xeb: "por",
	0xec: "paddsb", 0xed: "paddsw", 0xee: "pmaxsw", 0xef: "pxor",
	0xf1: "psllw", 0xf2: "pslld", 0xf3: "psllq", 0xf4: "pmuludq",
	0xf5: "pmaddwd", 0xf6: "psadbw", 0xf8: "psubb", 0xf9: "psubw",
	0xfa: "psubd", 0xfb: "psubq", 0xfc: "paddb", 0xfd: "paddw", 0xfe: "paddd",
}

// Packed single (no prefix), packed double (66), scalar double (F2) and
// scalar single (F3) arithmetic in 0F 51..5F.
var sseArith = map[byte]string{
	0x51: "sqrt", 0x58: "add", 0x59: "mul", 0x5c: "sub",
	0x5d: "min", 0x5e: "div", 0x5f: "max",
}

var nopEv = op("nop", ev)

func extTable() [256]Entry {
	var t [256]Entry

	t[0x00] = newGroup(
		op("sldt", ev), op("str", ev), op("lldt", ew), op("ltr", ew),
		op("verr", ew), op("verw", ew),
	)
	t[0x01] = newGroup(
		ModSplit{Mem: op("sgdt", m0), Reg: newRMGroup(nil, op("vmcall"), op("vmlaunch"), op("vmresume"), op("vmxoff"))},
		ModSplit{Mem: op("sidt", m0), Reg: newRMGroup(op("monitor"), op("mwait"), op("clac"), op("stac"))},
		ModSplit{Mem: op("lgdt", m0), Reg: newRMGroup(op("xgetbv"), op("xsetbv"))},
		ModSplit{Mem: op("lidt", m0), Reg: newRMGroup(
			op("vmrun"), op("vmmcall"), op("vmload"), op("vmsave"),
			op("stgi"), op("clgi"), op("skinit"), op("invlpga"),
		)},
		op("smsw", ev),
		nil,
		op("lmsw", ew),
		ModSplit{Mem: op("invlpg", mb), Reg: newRMGroup(op("swapgs"), op("rdtscp"))},
	)
	t[0x02] = op("lar", gv, ew)
	t[0x03] = op("lsl", gv, ew)
	t[0x05] = op("syscall")
	t[0x06] = op("clts")
	t[0x07] = op("sysret")
	t[0x08] = op("invd")
	t[0x09] = op("wbinvd")
	t[0x0b] = op("ud2")
	t[0x0d] = newGroup(
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetchw", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetch", mb), Reg: nopEv},
	)
	t[0x0e] = op("femms")

	t[0x10] = op("movups", vo, wo)
	t[0x11] = op("movups", wo, vo)
	t[0x12] = ModSplit{Mem: op("movlps", vq, mq), Reg: op("movhlps", vo, vro)}
	t[0x13] = op("movlps", mq, vq)
	t[0x14] = op("unpcklps", vo, wo)
	t[0x15] = op("unpckhps", vo, wo)
	t[0x16] = ModSplit{Mem: op("movhps", vq, mq), Reg: op("movlhps", vo, vro)}
	t[0x17] = op("movhps", mq, vq)
	t[0x18] = newGroup(
		ModSplit{Mem: op("prefetchnta", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetcht0", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetcht1", mb), Reg: nopEv},
		ModSplit{Mem: op("prefetcht2", mb), Reg: nopEv},
		nopEv, nopEv, nopEv, nopEv,
	)
	for b := 0x19; b <= 0x1f; b++ {
		t[b] = nopEv
	}

	t[0x20] = op("mov", rr, cr)
	t[0x21] = op("mov", rr, dr)
	t[0x22] = op("mov", cr, rr)
	t[0x23] = op("mov", dr, rr)
	t[0x24] = op("mov", rd, td)
	t[0x26] = op("mov", td, rd)

	t[0x28] = op("movaps", vo, wo)
	t[0x29] = op("movaps", wo, vo)
	t[0x2a] = op("cvtpi2ps", vo, qq)
	t[0x2b] = op("movntps", mo, vo)
	t[0x2c] = op("cvttps2pi", pq, wq)
	t[0x2d] = op("cvtps2pi", pq, wq)
	t[0x2e] = op("ucomiss", vd, wd)
	t[0x2f] = op("comiss", vd, wd)

	t[0x30] = op("wrmsr")
	t[0x31] = op("rdtsc")
	t[0x32] = op("rdmsr")
	t[0x33] = op("rdpmc")
	t[0x34] = op("sysenter")
	t[0x35] = op("sysexit")
	t[0x37] = op("getsec")
	t[0x38] = map0F38()
	t[0x3a] = map0F3A()

	for i, cc := range condNames {
		t[0x40+i] = op("cmov"+cc, gv, ev)
		t[0x80+i] = op64("j"+cc, jz)
		t[0x90+i] = op("set"+cc, eb)
	}

	t[0x50] = op("movmskps", gd, vro)
	for b, name := range sseArith {
		t[b] = op(name+"ps", vo, wo)
	}
	t[0x52] = op("rsqrtps", vo, wo)
	t[0x53] = op("rcpps", vo, wo)
	t[0x54] = op("andps", vo, wo)
	t[0x55] = op("andnps", vo, wo)
	t[0x56] = op("orps", vo, wo)
	t[0x57] = op("xorps", vo, wo)
	t[0x5a] = op("cvtps2pd", vo, wq)
	t[0x5b] = op("cvtdq2ps", vo, wo)

	for b, name := range mmxPairs {
		t[b] = op(name, pq, qq)
	}
	t[0x6e] = op("movd|movd|movq", pq, ez)
	t[0x6f] = op("movq", pq, qq)
	t[0x70] = op("pshufw", pq, qq, ib)
	t[0x71] = newGroup(nil, nil, shiftImm("psrlw", prq), nil, shiftImm("psraw", prq), nil, shiftImm("psllw", prq))
	t[0x72] = newGroup(nil, nil, shiftImm("psrld", prq), nil, shiftImm("psrad", prq), nil, shiftImm("pslld", prq))
	t[0x73] = newGroup(nil, nil, shiftImm("psrlq", prq), nil, nil, nil, shiftImm("psllq", prq))
	t[0x77] = op("emms")
	t[0x78] = op("vmread", er, gr)
	t[0x79] = op("vmwrite", gr, er)
	t[0x7e] = op("movd|movd|movq", ez, pq)
	t[0x7f] = op("movq", qq, pq)

	t[0xa0] = op64("push", sx(4))
	t[0xa1] = op64("pop", sx(4))
	t[0xa2] = op("cpuid")
	t[0xa3] = op("bt", ev, gv)
	t[0xa4] = op("shld", ev, gv, ib)
	t[0xa5] = op("shld", ev, gv, cl)
	t[0xa8] = op64("push", sx(5))
	t[0xa9] = op64("pop", sx(5))
	t[0xaa] = op("rsm")
	t[0xab] = op("bts", ev, gv)
	t[0xac] = op("shrd", ev, gv, ib)
	t[0xad] = op("shrd", ev, gv, cl)
	t[0xae] = newGroup(
		ModSplit{Mem: op("fxsave", m0), Reg: newSpecial(nil, nil, nil, op("rdfsbase", rz))},
		ModSplit{Mem: op("fxrstor", m0), Reg: newSpecial(nil, nil, nil, op("rdgsbase", rz))},
		ModSplit{Mem: op("ldmxcsr", md), Reg: newSpecial(nil, nil, nil, op("wrfsbase", rz))},
		ModSplit{Mem: op("stmxcsr", md), Reg: newSpecial(nil, nil, nil, op("wrgsbase", rz))},
		ModSplit{Mem: op("xsave", m0)},
		ModSplit{Mem: op("xrstor", m0), Reg: op("lfence")},
		ModSplit{Mem: newSpecial(op("xsaveopt", m0), op("clwb", mb), nil, nil), Reg: op("mfence")},
		ModSplit{Mem: newSpecial(op("clflush", mb), op("clflushopt", mb), nil, nil), Reg: op("sfence")},
	)
	t[0xaf] = op("imul", gv, ev)

	t[0xb0] = op("cmpxchg", eb, gb)
	t[0xb1] = op("cmpxchg", ev, gv)
	t[0xb2] = op("lss", gv, mp)
	t[0xb3] = op("btr", ev, gv)
	t[0xb4] = op("lfs", gv, mp)
	t[0xb5] = op("lgs", gv, mp)
	t[0xb6] = op("movzx", gv, eb)
	t[0xb7] = op("movzx", gv, ew)
	t[0xb9] = op("ud1", gv, ev)
	t[0xba] = newGroup(nil, nil, nil, nil,
		op("bt", ev, ib), op("bts", ev, ib), op("btr", ev, ib), op("btc", ev, ib))
	t[0xbb] = op("btc", ev, gv)
	t[0xbc] = op("bsf", gv, ev)
	t[0xbd] = op("bsr", gv, ev)
	t[0xbe] = op("movsx", gv, eb)
	t[0xbf] = op("movsx", gv, ew)

	t[0xc0] = op("xadd", eb, gb)
	t[0xc1] = op("xadd", ev, gv)
	t[0xc2] = op("cmpps", vo, wo, ib)
	t[0xc3] = op("movnti", mz, gz)
	t[0xc4] = op("pinsrw", pq, mr(SizeW, SizeD), ib)
	t[0xc5] = op("pextrw", gd, prq, ib)
	t[0xc6] = op("shufps", vo, wo, ib)
	t[0xc7] = newGroup(
		nil,
		ModSplit{Mem: op("cmpxchg8b|cmpxchg8b|cmpxchg16b", m0)},
		nil, nil, nil, nil,
		ModSplit{
			Mem: newSpecial(op("vmptrld", mq), op("vmclear", mq), nil, op("vmxon", mq)),
			Reg: op("rdrand", rv),
		},
		ModSplit{Mem: op("vmptrst", mq), Reg: op("rdseed", rv)},
	)
	for i := 0; i < 8; i++ {
		t[0xc8+i] = op("bswap", rx(i, SizeV))
	}

	t[0xd7] = op("pmovmskb", gd, prq)
	t[0xe7] = op("movntq", mq, pq)
	t[0xf7] = op("maskmovq", pq, prq)
	t[0xff] = op("ud0", gd, ed)
	return t
}

// shiftImm is a shift of reg by an immediate count; it has no memory form.
func shiftImm(name string, reg OpSpec) Entry {
	return ModSplit{Reg: op(name, reg, ib)}
}

func ext66Table() [256]Entry {
	var t [256]Entry
	t[0x10] = op("movupd", vo, wo)
	t[0x11] = op("movupd", wo, vo)
	t[0x12] = op("movlpd", vq, mq)
	t[0x13] = op("movlpd", mq, vq)
	t[0x14] = op("unpcklpd", vo, wo)
	t[0x15] = op("unpckhpd", vo, wo)
	t[0x16] = op("movhpd", vq, mq)
	t[0x17] = op("movhpd", mq, vq)

	t[0x28] = op("movapd", vo, wo)
	t[0x29] = op("movapd", wo, vo)
	t[0x2a] = op("cvtpi2pd", vo, qq)
	t[0x2b] = op("movntpd", mo, vo)
	t[0x2c] = op("cvttpd2pi", pq, wo)
	t[0x2d] = op("cvtpd2pi", pq, wo)
	t[0x2e] = op("ucomisd", vq, wq)
	t[0x2f] = op("comisd", vq, wq)

	t[0x50] = op("movmskpd", gd, vro)
	for b, name := range sseArith {
		t[b] = op(name+"pd", vo, wo)
	}
	t[0x54] = op("andpd", vo, wo)
	t[0x55] = op("andnpd", vo, wo)
	t[0x56] = op("orpd", vo, wo)
	t[0x57] = op("xorpd", vo, wo)
	t[0x5a] = op("cvtpd2ps", vo, wo)
	t[0x5b] = op("cvtps2dq", vo, wo)

	for b, name := range mmxPairs {
		t[b] = op(name, vo, wo)
	}
	t[0x6c] = op("punpcklqdq", vo, wo)
	t[0x6d] = op("punpckhqdq", vo, wo)
	t[0x6e] = op("movd|movd|movq", vo, ez)
	t[0x6f] = op("movdqa", vo, wo)
	t[0x70] = op("pshufd", vo, wo, ib)
	t[0x71] = newGroup(nil, nil, shiftImm("psrlw", vro), nil, shiftImm("psraw", vro), nil, shiftImm("psllw", vro))
	t[0x72] = newGroup(nil, nil, shiftImm("psrld", vro), nil, shiftImm("psrad", vro), nil, shiftImm("pslld", vro))
	t[0x73] = newGroup(
		nil, nil, shiftImm("psrlq", vro), shiftImm("psrldq", vro),
		nil, nil, shiftImm("psllq", vro), shiftImm("pslldq", vro),
	)
	t[0x7c] = op("haddpd", vo, wo)
	t[0x7d] = op("hsubpd", vo, wo)
	t[0x7e] = op("movd|movd|movq", ez, vo)
	t[0x7f] = op("movdqa", wo, vo)

	t[0xc2] = op("cmppd", vo, wo, ib)
	t[0xc4] = op("pinsrw", vo, mr(SizeW, SizeD), ib)
	t[0xc5] = op("pextrw", gd, vro, ib)
	t[0xc6] = op("shufpd", vo, wo, ib)

	t[0xd0] = op("addsubpd", vo, wo)
	t[0xd6] = op("movq", wq, vq)
	t[0xd7] = op("pmovmskb", gd, vro)
	t[0xe6] = op("cvttpd2dq", vo, wo)
	t[0xe7] = op("movntdq", mo, vo)
	t[0xf7] = op("maskmovdqu", vo, vro)
	return t
}

func extF2Table() [256]Entry {
	var t [256]Entry
	t[0x10] = op("movsd", vq, wq)
	t[0x11] = op("movsd", wq, vq)
	t[0x12] = op("movddup", vo, wq)
	t[0x2a] = op("cvtsi2sd", vq, ez)
	t[0x2c] = op("cvttsd2si", gz, wq)
	t[0x2d] = op("cvtsd2si", gz, wq)
	for b, name := range sseArith {
		t[b] = op(name+"sd", vq, wq)
	}
	t[0x5a] = op("cvtsd2ss", vd, wq)
	t[0x70] = op("pshuflw", vo, wo, ib)
	t[0x7c] = op("haddps", vo, wo)
	t[0x7d] = op("hsubps", vo, wo)
	t[0xc2] = op("cmpsd", vq, wq, ib)
	t[0xd0] = op("addsubps", vo, wo)
	t[0xd6] = op("movdq2q", pq, vro)
	t[0xe6] = op("cvtpd2dq", vo, wo)
	t[0xf0] = op("lddqu", vo, mo)
	return t
}

func extF3Table() [256]Entry {
	var t [256]Entry
	t[0x10] = op("movss", vd, wd)
	t[0x11] = op("movss", wd, vd)
	t[0x12] = op("movsldup", vo, wo)
	t[0x16] = op("movshdup", vo, wo)
	t[0x1e] = newGroup(
		nopEv,
		ModSplit{Mem: nopEv, Reg: op("rdsspd|rdsspd|rdsspq", rz)},
		nopEv, nopEv, nopEv, nopEv, nopEv,
		ModSplit{Mem: nopEv, Reg: newRMGroup(
			nopEv, nopEv, op("endbr64"), op("endbr32"),
			nopEv, nopEv, nopEv, nopEv,
		)},
	)
	t[0x2a] = op("cvtsi2ss", vd, ez)
	t[0x2c] = op("cvttss2si", gz, wd)
	t[0x2d] = op("cvtss2si", gz, wd)
	for b, name := range sseArith {
		t[b] = op(name+"ss", vd, wd)
	}
	t[0x52] = op("rsqrtss", vd, wd)
	t[0x53] = op("rcpss", vd, wd)
	t[0x5a] = op("cvtss2sd", vq, wd)
	t[0x5b] = op("cvttps2dq", vo, wo)
	t[0x6f] = op("movdqu", vo, wo)
	t[0x70] = op("pshufhw", vo, wo, ib)
	t[0x7e] = op("movq", vo, wq)
	t[0x7f] = op("movdqu", wo, vo)
	t[0xb8] = op("popcnt", gv, ev)
	t[0xbc] = op("tzcnt", gv, ev)
	t[0xbd] = op("lzcnt", gv, ev)
	t[0xc2] = op("cmpss", vd, wd, ib)
	t[0xd6] = op("movq2dq", vo, prq)
	t[0xe6] = op("cvtdq2pd", vo, wq)
	return t
}

func map0F38() OpcodeGroup {
	m := new(opcodeMap)
	for b, name := range map[byte]string{
		0x00: "pshufb", 0x01: "phaddw", 0x02: "phaddd", 0x03: "phaddsw",
		0x04: "pmaddubsw", 0x05: "phsubw", 0x06: "phsubd", 0x07: "phsubsw",
		0x08: "psignb", 0x09: "psignw", 0x0a: "psignd", 0x0b: "pmulhrsw",
		0x1c: "pabsb", 0x1d: "pabsw", 0x1e: "pabsd",
	} {
		m.none[b] = op(name, pq, qq)
		m.p66[b] = op(name, vo, wo)
	}
	for b, name := range map[byte]string{
		0x17: "ptest", 0x28: "pmuldq", 0x29: "pcmpeqq", 0x2b: "packusdw",
		0x37: "pcmpgtq", 0x38: "pminsb", 0x39: "pminsd", 0x3a: "pminuw",
		0x3b: "pminud", 0x3c: "pmaxsb", 0x3d: "pmaxsd", 0x3e: "pmaxuw",
		0x3f: "pmaxud", 0x40: "pmulld", 0x41: "phminposuw",
		0xdb: "aesimc", 0xdc: "aesenc", 0xdd: "aesenclast",
		0xde: "aesdec", 0xdf: "aesdeclast",
	} {
		m.p66[b] = op(name, vo, wo)
	}
	m.p66[0x10] = op("pblendvb", vo, wo, xmm0)
	m.p66[0x14] = op("blendvps", vo, wo, xmm0)
	m.p66[0x15] = op("blendvpd", vo, wo, xmm0)
	m.p66[0x2a] = op("movntdqa", vo, mo)

	// pmovsx (20..25) and pmovzx (30..35) read half, quarter or eighth
	// of a register.
	widths := [6]OpSpec{wq, wd, ww, wq, wd, wq}
	for i, suffix := range [6]string{"bw", "bd", "bq", "wd", "wq", "dq"} {
		m.p66[0x20+i] = op("pmovsx"+suffix, vo, widths[i])
		m.p66[0x30+i] = op("pmovzx"+suffix, vo, widths[i])
	}

	m.none[0xf0] = op("movbe", gv, mv)
	m.none[0xf1] = op("movbe", mv, gv)
	m.pF2[0xf0] = op("crc32", gz, eb)
	m.pF2[0xf1] = op("crc32", gz, ev)
	return newOpcodeGroup(m)
}

func map0F3A() OpcodeGroup {
	m := new(opcodeMap)
	m.none[0x0f] = op("palignr", pq, qq, ib)
	m.p66[0x0f] = op("palignr", vo, wo, ib)
	for b, name := range map[byte]string{
		0x08: "roundps", 0x09: "roundpd", 0x0c: "blendps", 0x0d: "blendpd",
		0x0e: "pblendw", 0x40: "dpps", 0x41: "dppd", 0x42: "mpsadbw",
		0x44: "pclmulqdq", 0x60: "pcmpestrm", 0x61: "pcmpestri",
		0x62: "pcmpistrm", 0x63: "pcmpistri", 0xdf: "aeskeygenassist",
	} {
		m.p66[b] = op(name, vo, wo, ib)
	}
	m.p66[0x0a] = op("roundss", vd, wd, ib)
	m.p66[0x0b] = op("roundsd", vq, wq, ib)
	m.p66[0x14] = op("pextrb", mr(SizeB, SizeD), vo, ib)
	m.p66[0x15] = op("pextrw", mr(SizeW, SizeD), vo, ib)
	m.p66[0x16] = op("pextrd|pextrd|pextrq", ez, vo, ib)
	m.p66[0x17] = op("extractps", ed, vo, ib)
	m.p66[0x20] = op("pinsrb", vo, mr(SizeB, SizeD), ib)
	m.p66[0x21] = op("insertps", vo, wd, ib)
	m.p66[0x22] = op("pinsrd|pinsrd|pinsrq", vo, ez, ib)
	return newOpcodeGroup(m)
}

// SSE5 lives in 0F 24 and 0F 25 of the 64-bit map. Its operands are
// completed by a DREX byte that follows the ModR/M addressing bytes.
func sse5Group24() OpcodeGroup {
	m := new(opcodeMap)
	for i, kind := range [4]string{"fmadd", "fmsub", "fnmadd", "fnmsub"} {
		for j, suffix := range [4]string{"ps", "pd", "ss", "sd"} {
			m.none[byte(i*8+j)] = op(kind+suffix, vdx, vs0, vs1)
			m.none[byte(i*8+j+4)] = op(kind+suffix, vdx, vs0, vs1)
		}
	}
	m.none[0x20] = op("permps", vdx, vs0, vs1)
	m.none[0x21] = op("permpd", vdx, vs0, vs1)
	m.none[0x22] = op("pcmov", vdx, vs0, vs1)
	m.none[0x23] = op("pperm", vdx, vs0, vs1)
	for i, name := range [4]string{"protb", "protw", "protd", "protq"} {
		m.none[byte(0x40+i)] = op(name, vdx, vs0, vs1)
	}
	return newOpcodeGroup(m)
}

func sse5Group25() OpcodeGroup {
	m := new(opcodeMap)
	for i, name := range [4]string{"comps", "compd", "comss", "comsd"} {
		m.none[byte(0x2c+i)] = op(name, vdx, vs0, vs1, ib)
	}
	for i, name := range [4]string{"pcomb", "pcomw", "pcomd", "pcomq"} {
		m.none[byte(0x4c+i)] = op(name, vdx, vs0, vs1, ib)
	}
	return newOpcodeGroup(m)
}
