package x86

import (
	"fmt"
	"strings"
)

// Insn is a decoded instruction.
type Insn struct {
	Addr uint64
	Len  int
	Mode Mode
	Name string
	// Args holds the operands in Intel order; unused slots are nil.
	Args [4]Operand
	// Prefix is the prefix state after mandatory prefixes were consumed
	// by the opcode: a 0x66 or rep byte that selected the instruction is
	// cleared here.
	Prefix   Prefixes
	OpSize   int
	AddrSize int
}

// maxDepth bounds the number of table redirects followed for one opcode.
const maxDepth = 8

type decoder struct {
	c     cursor
	addr  uint64
	mode  Mode
	p     Prefixes
	rex   byte // REX bits in effect, from a REX or a DREX byte
	had66 bool // a 0x66 prefix was seen, possibly consumed as mandatory

	modrm    byte
	hasModRM bool
	float    bool // reached through an x87 escape

	drex  byte
	rmOp  Operand // ModR/M operand already decoded for SSE5 forms
	sz    sizes
	first byte // first opcode byte
}

// Decode decodes one instruction from the start of src, which is located
// at addr. It reads at most MaxInsnLen bytes and never panics on input.
func Decode(src []byte, addr uint64, mode Mode) (Insn, error) {
	if !mode.Valid() {
		return Insn{}, fmt.Errorf("x86: invalid mode %d", int(mode))
	}
	d := decoder{c: newCursor(src), addr: addr, mode: mode}
	p, n, err := ResolvePrefixes(src, mode)
	if err != nil {
		return Insn{}, &DecodeError{Addr: addr, Offset: n, Err: err}
	}
	d.p = p
	d.rex = p.REX
	d.had66 = p.OpSize
	d.c.pos = n
	in, err := d.decode()
	if err != nil {
		return Insn{}, &DecodeError{Addr: addr, Offset: d.c.pos, Err: err}
	}
	return in, nil
}

func (d *decoder) decode() (Insn, error) {
	o, err := d.lookup()
	if err != nil {
		return Insn{}, err
	}
	if d.mode == Mode64 && d.first == 0x90 && o.Name == "nop" && d.rex&1 != 0 {
		o = op("xchg", rx(0, SizeV), eAX)
	}

	if o.drex() {
		if err := d.readDREX(); err != nil {
			return Insn{}, err
		}
	}
	d.sz = sizes{
		mode:     d.mode,
		opSize:   OperandSize(d.mode, d.p.OpSize, d.rex&8 != 0, o.Flags&FlagDefault64 != 0),
		addrSize: AddressSize(d.mode, d.p.AddrSize),
		rexW:     d.rex&8 != 0,
		has66:    d.had66,
	}

	in := Insn{
		Addr:     d.addr,
		Mode:     d.mode,
		Prefix:   d.p,
		OpSize:   d.sz.opSize,
		AddrSize: d.sz.addrSize,
	}
	if o.Flags&FlagNameByAddrSize != 0 {
		in.Name = variant(o.Name, d.sz.addrSize)
	} else {
		in.Name = variant(o.Name, d.sz.opSize)
	}

	if o.drex() {
		// The ModR/M operand precedes the DREX byte in the stream.
		if d.rmOp, err = d.xmmOrMem(SizeO); err != nil {
			return Insn{}, err
		}
		if _, err := d.c.next(); err != nil {
			return Insn{}, err
		}
	}
	for i, s := range o.Ops {
		if s.Fetch == FetchNone {
			continue
		}
		a, err := d.operand(s)
		if err != nil {
			return Insn{}, err
		}
		in.Args[i] = a
	}
	in.Len = d.c.pos
	return in, nil
}

// variant picks the size variant of a "w|d|q" style name.
func variant(name string, bits int) string {
	if !strings.Contains(name, "|") {
		return name
	}
	parts := strings.Split(name, "|")
	i := 0
	switch bits {
	case 32:
		i = 1
	case 64:
		i = 2
	}
	if i >= len(parts) {
		i = len(parts) - 1
	}
	return parts[i]
}

func (d *decoder) fetchModRM() (byte, error) {
	if d.hasModRM {
		return d.modrm, nil
	}
	b, err := d.c.next()
	if err != nil {
		return 0, err
	}
	d.modrm, d.hasModRM = b, true
	return b, nil
}

func (d *decoder) mod() byte { return d.modrm >> 6 }
func (d *decoder) reg() int  { return int(d.modrm >> 3 & 7) }
func (d *decoder) rm() int   { return int(d.modrm & 7) }

// lookup walks the opcode tables from the first opcode byte to a concrete
// instruction, consuming opcode and ModR/M bytes as the tables demand.
func (d *decoder) lookup() (Opcode, error) {
	t := tablesFor(d.mode)
	b, err := d.c.next()
	if err != nil {
		return Opcode{}, err
	}
	d.first = b
	e := t.base[b]
	for depth := 0; depth < maxDepth; depth++ {
		switch v := e.(type) {
		case Opcode:
			return v, nil
		case Escape:
			if b, err = d.c.next(); err != nil {
				return Opcode{}, err
			}
			e = d.choose(&t.ext, b)
		case OpcodeGroup:
			if b, err = d.c.next(); err != nil {
				return Opcode{}, err
			}
			e = d.choose(opcodeGroups[v], b)
		case Group:
			if _, err = d.fetchModRM(); err != nil {
				return Opcode{}, err
			}
			e = groups[v][d.reg()]
		case SpecialGroup:
			e = d.special(specials[v])
		case ModSplit:
			if _, err = d.fetchModRM(); err != nil {
				return Opcode{}, err
			}
			if d.mod() == 3 {
				e = v.Reg
			} else {
				e = v.Mem
			}
		case RMGroup:
			if _, err = d.fetchModRM(); err != nil {
				return Opcode{}, err
			}
			e = rmGroups[v][d.rm()]
		case FloatEscape:
			if _, err = d.fetchModRM(); err != nil {
				return Opcode{}, err
			}
			d.float = true
			if d.mod() == 3 {
				e = fpuReg[v][d.reg()]
			} else {
				e = fpuMem[v][d.reg()]
			}
		default:
			return Opcode{}, ErrReservedOpcode
		}
	}
	return Opcode{}, ErrReservedOpcode
}

// choose selects cell b of m by mandatory prefix.
func (d *decoder) choose(m *opcodeMap, b byte) Entry {
	return d.special([4]Entry{m.none[b], m.p66[b], m.pF2[b], m.pF3[b]})
}

// special selects among the no-prefix, 0x66, 0xF2 and 0xF3 entries.
// Prefixes are tried in the order 66, F2, F3; a prefix selects its entry
// only where that entry is defined, and is consumed when it does.
func (d *decoder) special(s [4]Entry) Entry {
	if d.p.OpSize && defined(s[1]) {
		d.p.OpSize = false
		return s[1]
	}
	switch {
	case d.p.Rep == RepNZ && defined(s[2]):
		d.p.Rep = RepNone
		return s[2]
	case d.p.Rep == RepZ && defined(s[3]):
		d.p.Rep = RepNone
		return s[3]
	}
	return s[0]
}

// readDREX peeks the SSE5 DREX byte behind the ModR/M addressing bytes
// and applies its register extension bits.
func (d *decoder) readDREX() error {
	if _, err := d.fetchModRM(); err != nil {
		return err
	}
	n, err := d.addressingLen(AddressSize(d.mode, d.p.AddrSize))
	if err != nil {
		return err
	}
	b, err := d.c.peek(n)
	if err != nil {
		return err
	}
	d.drex = b
	d.rex = 0x40 | d.rex&8 | b&7
	return nil
}

// addressingLen returns the number of SIB and displacement bytes that
// follow the ModR/M byte.
func (d *decoder) addressingLen(addrSize int) (int, error) {
	mod, rm := d.mod(), d.rm()
	if mod == 3 {
		return 0, nil
	}
	if addrSize == 16 {
		switch {
		case mod == 1:
			return 1, nil
		case mod == 2, rm == 6:
			return 2, nil
		}
		return 0, nil
	}
	n := 0
	if rm == 4 {
		sib, err := d.c.peek(0)
		if err != nil {
			return 0, err
		}
		n++
		if sib&7 == 5 && mod == 0 {
			n += 4
		}
	} else if rm == 5 && mod == 0 {
		n += 4
	}
	switch mod {
	case 1:
		n++
	case 2:
		n += 4
	}
	return n, nil
}
