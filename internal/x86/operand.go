package x86

// Operand is one decoded operand: an Imm, Reg, Mem or FarPtr. Unused
// operand slots of an Insn are nil.
type Operand interface {
	// Width is the operand size in bytes, 0 when it is unimportant.
	Width() int
	String() string
	isOperand()
}

// Imm is an immediate. For relative branches Rel is set and Value holds
// the absolute target, already masked to the operand size.
type Imm struct {
	Value uint64
	Size  int
	Rel   bool
}

// RegClass is a register file.
type RegClass uint8

const (
	ClassGeneral RegClass = iota
	ClassSegment
	ClassControl
	ClassDebug
	ClassTest
	ClassFloat
	ClassMMX
	ClassXMM
)

// Reg is a register operand.
type Reg struct {
	Class RegClass
	Index int
	Size  int
	// NeedREX is set for registers that only exist with a REX byte
	// (spl..dil and r8..r15); ForbidREX for ah..bh.
	NeedREX   bool
	ForbidREX bool
}

const (
	// RegNone marks an absent base or index.
	RegNone = -1
	// RegIP is the instruction pointer as a memory base.
	RegIP = 16
)

// Mem is a memory operand.
type Mem struct {
	Size     int
	Segment  Segment
	Base     int // general register index, RegIP or RegNone
	Index    int // general register index or RegNone
	Scale    int // 1, 2, 4 or 8
	Disp     int64
	HasDisp  bool
	AddrSize int // 16, 32 or 64
	// FloatPtr marks x87 memory operands, AddrPtr operands whose address
	// rather than contents is used (lea, descriptors, far pointers).
	FloatPtr bool
	AddrPtr  bool
}

// FarPtr is an immediate seg:offset pair.
type FarPtr struct {
	Seg    uint16
	Offset uint32
	Size   int // 4 or 6
}

func (o Imm) Width() int    { return o.Size }
func (o Reg) Width() int    { return o.Size }
func (o Mem) Width() int    { return o.Size }
func (o FarPtr) Width() int { return o.Size }

func (Imm) isOperand()    {}
func (Reg) isOperand()    {}
func (Mem) isOperand()    {}
func (FarPtr) isOperand() {}

// Segment is a segment override. The zero value means none.
type Segment int8

const (
	SegNone Segment = iota
	ES
	CS
	SS
	DS
	FS
	GS
)

// Index returns the segment register number (es=0 .. gs=5).
func (s Segment) Index() int { return int(s) - 1 }

// Rep is the repeat prefix class.
type Rep int8

const (
	RepNone Rep = iota
	RepNZ       // 0xF2
	RepZ        // 0xF3
)
