package x86

var fpuArith = [8]string{"fadd", "fmul", "fcom", "fcomp", "fsub", "fsubr", "fdiv", "fdivr"}

// fpuMemTable holds the memory forms of D8..DF, indexed [escape][reg].
func fpuMemTable() [8][8]Entry {
	var t [8][8]Entry
	for i, name := range fpuArith {
		t[0][i] = op(name, ms)
		t[2][i] = op("fi"+name[1:], md)
		t[4][i] = op(name, ml)
		t[6][i] = op("fi"+name[1:], mw)
	}
	t[1] = [8]Entry{
		op("fld", ms), nil, op("fst", ms), op("fstp", ms),
		op("fldenv", m0), op("fldcw", mw), op("fnstenv", m0), op("fnstcw", mw),
	}
	t[3] = [8]Entry{
		op("fild", md), op("fisttp", md), op("fist", md), op("fistp", md),
		nil, op("fld", mt), nil, op("fstp", mt),
	}
	t[5] = [8]Entry{
		op("fld", ml), op("fisttp", mq), op("fst", ml), op("fstp", ml),
		op("frstor", m0), nil, op("fnsave", m0), op("fnstsw", mw),
	}
	t[7] = [8]Entry{
		op("fild", mw), op("fisttp", mw), op("fist", mw), op("fistp", mw),
		op("fbld", ma), op("fild", mq), op("fbstp", ma), op("fistp", mq),
	}
	return t
}

// fpuRegTable holds the register forms of D8..DF, indexed [escape][reg].
// Some cells are further indexed by ModR/M rm.
func fpuRegTable() [8][8]Entry {
	var t [8][8]Entry
	for i, name := range fpuArith {
		t[0][i] = op(name, st0, sti)
	}
	t[1] = [8]Entry{
		op("fld", sti),
		op("fxch", sti),
		newRMGroup(op("fnop")),
		nil,
		newRMGroup(op("fchs"), op("fabs"), nil, nil, op("ftst"), op("fxam")),
		newRMGroup(op("fld1"), op("fldl2t"), op("fldl2e"), op("fldpi"), op("fldlg2"), op("fldln2"), op("fldz")),
		newRMGroup(op("f2xm1"), op("fyl2x"), op("fptan"), op("fpatan"), op("fxtract"), op("fprem1"), op("fdecstp"), op("fincstp")),
		newRMGroup(op("fprem"), op("fyl2xp1"), op("fsqrt"), op("fsincos"), op("frndint"), op("fscale"), op("fsin"), op("fcos")),
	}
	t[2] = [8]Entry{
		op("fcmovb", st0, sti), op("fcmove", st0, sti),
		op("fcmovbe", st0, sti), op("fcmovu", st0, sti),
		nil, newRMGroup(nil, op("fucompp")),
	}
	t[3] = [8]Entry{
		op("fcmovnb", st0, sti), op("fcmovne", st0, sti),
		op("fcmovnbe", st0, sti), op("fcmovnu", st0, sti),
		newRMGroup(op("fneni"), op("fndisi"), op("fnclex"), op("fninit"), op("fnsetpm")),
		op("fucomi", st0, sti), op("fcomi", st0, sti),
	}
	t[4] = [8]Entry{
		op("fadd", sti, st0), op("fmul", sti, st0), nil, nil,
		op("fsubr", sti, st0), op("fsub", sti, st0),
		op("fdivr", sti, st0), op("fdiv", sti, st0),
	}
	t[5] = [8]Entry{
		op("ffree", sti), nil, op("fst", sti), op("fstp", sti),
		op("fucom", sti), op("fucomp", sti),
	}
	t[6] = [8]Entry{
		op("faddp", sti, st0), op("fmulp", sti, st0), nil, newRMGroup(nil, op("fcompp")),
		op("fsubrp", sti, st0), op("fsubp", sti, st0),
		op("fdivrp", sti, st0), op("fdivp", sti, st0),
	}
	t[7] = [8]Entry{
		nil, nil, nil, nil,
		newRMGroup(op("fnstsw", ax)),
		op("fucomip", st0, sti), op("fcomip", st0, sti),
	}
	return t
}
