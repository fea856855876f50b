package x86

func (d *decoder) rexR() int { return int(d.rex>>2&1) << 3 }
func (d *decoder) rexX() int { return int(d.rex>>1&1) << 3 }
func (d *decoder) rexB() int { return int(d.rex&1) << 3 }

// operand fetches one operand according to s.
func (d *decoder) operand(s OpSpec) (Operand, error) {
	if s.Info&InfoNeedREX != 0 && d.rex == 0 {
		return nil, ErrInvalidRegisterEncoding
	}
	if s.Info&InfoForbidREX != 0 && d.rex != 0 {
		return nil, ErrInvalidRegisterEncoding
	}
	if s.Fetch.modrm() {
		if _, err := d.fetchModRM(); err != nil {
			return nil, err
		}
	}
	width := d.sz.width(s.Size)

	switch s.Fetch {
	case FetchA:
		n := d.sz.opSize / 8
		off, err := d.c.unsigned(n)
		if err != nil {
			return nil, err
		}
		seg, err := d.c.unsigned(2)
		if err != nil {
			return nil, err
		}
		return FarPtr{Seg: uint16(seg), Offset: uint32(off), Size: n + 2}, nil

	case FetchC:
		return Reg{Class: ClassControl, Index: d.reg() | d.rexR(), Size: width}, nil
	case FetchD:
		return Reg{Class: ClassDebug, Index: d.reg() | d.rexR(), Size: width}, nil
	case FetchT:
		return Reg{Class: ClassTest, Index: d.reg(), Size: width}, nil
	case FetchS:
		if d.reg() >= len(segRegs) {
			return nil, ErrInvalidRegisterEncoding
		}
		return Reg{Class: ClassSegment, Index: d.reg(), Size: width}, nil
	case FetchSx:
		return Reg{Class: ClassSegment, Index: int(s.Extra), Size: width}, nil

	case FetchE:
		if d.mod() == 3 {
			return d.general(d.rm()|d.rexB(), width), nil
		}
		return d.memory(width)
	case FetchMR:
		if d.mod() == 3 {
			return d.general(d.rm()|d.rexB(), d.sz.width(Size(s.Extra))), nil
		}
		return d.memory(width)
	case FetchM:
		if d.mod() == 3 {
			return nil, ErrUnsupportedAddressingMode
		}
		m, err := d.memory(width)
		if err != nil {
			return nil, err
		}
		m.AddrPtr = s.Size == Size0 || s.Size == SizeP
		return m, nil
	case FetchG:
		return d.general(d.reg()|d.rexR(), width), nil
	case FetchR:
		return d.general(d.rm()|d.rexB(), width), nil
	case FetchRx:
		return d.general(int(s.Extra)|d.rexB(), width), nil
	case FetchRXx:
		return d.general(int(s.Extra), width), nil

	case FetchP:
		return Reg{Class: ClassMMX, Index: d.reg(), Size: width}, nil
	case FetchPR:
		if d.mod() != 3 {
			return nil, ErrUnsupportedAddressingMode
		}
		return Reg{Class: ClassMMX, Index: d.rm(), Size: width}, nil
	case FetchQ:
		if d.mod() == 3 {
			return Reg{Class: ClassMMX, Index: d.rm(), Size: width}, nil
		}
		return d.memory(width)

	case FetchV:
		return Reg{Class: ClassXMM, Index: d.reg() | d.rexR(), Size: width}, nil
	case FetchVx:
		return Reg{Class: ClassXMM, Index: int(s.Extra), Size: width}, nil
	case FetchVR:
		if d.mod() != 3 {
			return nil, ErrUnsupportedAddressingMode
		}
		return Reg{Class: ClassXMM, Index: d.rm() | d.rexB(), Size: width}, nil
	case FetchW:
		return d.xmmOrMem(s.Size)

	case FetchF:
		return Reg{Class: ClassFloat, Index: d.rm(), Size: width}, nil
	case FetchFx:
		return Reg{Class: ClassFloat, Index: int(s.Extra), Size: width}, nil

	case FetchI:
		v, err := d.c.unsigned(d.sz.fetch(s.Size))
		if err != nil {
			return nil, err
		}
		return Imm{Value: v, Size: width}, nil
	case FetchIs:
		v, err := d.c.signed(d.sz.fetch(s.Size))
		if err != nil {
			return nil, err
		}
		return Imm{Value: uint64(v) & mask(width), Size: width}, nil
	case FetchIx:
		return Imm{Value: uint64(s.Extra), Size: width}, nil
	case FetchJ:
		rel, err := d.c.signed(d.sz.fetch(s.Size))
		if err != nil {
			return nil, err
		}
		n := d.sz.opSize / 8
		target := (d.addr + uint64(d.c.pos) + uint64(rel)) & mask(n)
		return Imm{Value: target, Size: n, Rel: true}, nil

	case FetchO:
		v, err := d.c.unsigned(d.sz.addrSize / 8)
		if err != nil {
			return nil, err
		}
		return Mem{
			Size:     width,
			Segment:  d.p.Segment,
			Base:     RegNone,
			Index:    RegNone,
			Scale:    1,
			Disp:     int64(v),
			HasDisp:  true,
			AddrSize: d.sz.addrSize,
		}, nil

	case FetchVD:
		return Reg{Class: ClassXMM, Index: int(d.drex >> 4), Size: width}, nil
	case FetchVS0, FetchVS1:
		// DREX.OC0 swaps which source comes from ModR/M rm.
		fromReg := (s.Fetch == FetchVS0) == (d.drex&8 == 0)
		if fromReg {
			return Reg{Class: ClassXMM, Index: d.reg() | d.rexR(), Size: width}, nil
		}
		return d.rmOp, nil
	}
	return nil, ErrReservedOpcode
}

// general returns general register i. Byte registers 4..7 name ah..bh
// without a REX byte and spl..dil with one.
func (d *decoder) general(i, size int) Reg {
	r := Reg{Class: ClassGeneral, Index: i, Size: size}
	switch {
	case i >= 8:
		r.NeedREX = true
	case size == 1 && i >= 4 && d.rex != 0:
		r.NeedREX = true
	case size == 1 && i >= 4:
		r.ForbidREX = true
	}
	return r
}

func (d *decoder) xmmOrMem(s Size) (Operand, error) {
	width := d.sz.width(s)
	if d.mod() == 3 {
		return Reg{Class: ClassXMM, Index: d.rm() | d.rexB(), Size: width}, nil
	}
	return d.memory(width)
}

// memory decodes the memory operand described by ModR/M, reading the SIB
// byte and displacement. The caller has ruled out mod == 3.
func (d *decoder) memory(size int) (Mem, error) {
	m := Mem{
		Size:     size,
		Segment:  d.p.Segment,
		Base:     RegNone,
		Index:    RegNone,
		Scale:    1,
		AddrSize: d.sz.addrSize,
		FloatPtr: d.float,
	}
	if m.AddrSize == 16 {
		return d.memory16(m)
	}
	mod, rm := d.mod(), d.rm()
	switch {
	case rm == 4:
		sib, err := d.c.next()
		if err != nil {
			return Mem{}, err
		}
		if idx := int(sib>>3&7) | d.rexX(); idx != 4 {
			m.Index = idx
			m.Scale = 1 << (sib >> 6)
		}
		if sib&7 == 5 && mod == 0 {
			if m.Disp, err = d.c.signed(4); err != nil {
				return Mem{}, err
			}
			m.HasDisp = true
		} else {
			m.Base = int(sib&7) | d.rexB()
		}
	case rm == 5 && mod == 0:
		disp, err := d.c.signed(4)
		if err != nil {
			return Mem{}, err
		}
		m.Disp, m.HasDisp = disp, true
		if d.mode == Mode64 {
			m.Base = RegIP
		}
	default:
		m.Base = rm | d.rexB()
	}
	if err := d.displacement(&m, mod, 4); err != nil {
		return Mem{}, err
	}
	return m, nil
}

// 16-bit base and index registers by rm: bx+si, bx+di, bp+si, bp+di,
// si, di, bp, bx.
var (
	base16  = [8]int{3, 3, 5, 5, 6, 7, 5, 3}
	index16 = [8]int{6, 7, 6, 7, RegNone, RegNone, RegNone, RegNone}
)

func (d *decoder) memory16(m Mem) (Mem, error) {
	mod, rm := d.mod(), d.rm()
	if mod == 0 && rm == 6 {
		disp, err := d.c.signed(2)
		if err != nil {
			return Mem{}, err
		}
		m.Disp, m.HasDisp = disp, true
		return m, nil
	}
	m.Base, m.Index = base16[rm], index16[rm]
	if err := d.displacement(&m, mod, 2); err != nil {
		return Mem{}, err
	}
	return m, nil
}

// displacement reads the mod 01 (byte) or mod 10 (wide) displacement.
func (d *decoder) displacement(m *Mem, mod byte, wide int) error {
	var n int
	switch mod {
	case 1:
		n = 1
	case 2:
		n = wide
	default:
		return nil
	}
	disp, err := d.c.signed(n)
	if err != nil {
		return err
	}
	m.Disp, m.HasDisp = disp, true
	return nil
}
