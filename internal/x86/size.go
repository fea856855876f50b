package x86

import "fmt"

// Mode is a processor mode, named by its default address width in bits.
type Mode int

const (
	Mode16 Mode = 16
	Mode32 Mode = 32
	Mode64 Mode = 64
)

func (m Mode) Valid() bool {
	return m == Mode16 || m == Mode32 || m == Mode64
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return fmt.Sprintf("%d-bit", int(m))
}

// ParseMode accepts "16", "32" or "64".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "16":
		return Mode16, nil
	case "32":
		return Mode32, nil
	case "64":
		return Mode64, nil
	}
	return 0, fmt.Errorf("x86: unknown mode %q", s)
}

// OperandSize returns the effective operand size in bits. opSize reports
// an active (not mandatory) 0x66 prefix.
func OperandSize(mode Mode, opSize, rexW, default64 bool) int {
	switch mode {
	case Mode64:
		switch {
		case rexW:
			return 64
		case opSize:
			return 16
		case default64:
			return 64
		}
		return 32
	case Mode32:
		if opSize {
			return 16
		}
		return 32
	default:
		if opSize {
			return 32
		}
		return 16
	}
}

// AddressSize returns the effective address size in bits.
func AddressSize(mode Mode, addrSize bool) int {
	switch mode {
	case Mode64:
		if addrSize {
			return 32
		}
		return 64
	case Mode32:
		if addrSize {
			return 16
		}
		return 32
	default:
		if addrSize {
			return 32
		}
		return 16
	}
}

// sizes is the size context of one instruction. Every mode dependent
// size computation of the decoder goes through it.
type sizes struct {
	mode     Mode
	opSize   int  // bits
	addrSize int  // bits
	rexW     bool // REX.W, from a REX byte or a DREX byte
	has66    bool // a 0x66 byte was seen, even if it was mandatory
}

// width returns the size in bytes of an operand of class s as it is
// presented after decoding.
func (z sizes) width(s Size) int {
	switch s {
	case Size0:
		return 0
	case SizeB:
		return 1
	case SizeW:
		return 2
	case SizeD, SizeS:
		return 4
	case SizeQ, SizeL:
		return 8
	case SizeO:
		return 16
	case SizeT, SizeA:
		return 10
	case SizeU:
		if z.has66 {
			return 16
		}
		return 8
	case SizeZ:
		if z.rexW {
			return 8
		}
		return 4
	case SizeR:
		if z.mode == Mode64 {
			return 8
		}
		return 4
	case SizeP:
		return 2 + z.opSize/8
	case SizeBV, SizeV, SizeVV:
		return z.opSize / 8
	}
	return 0
}

// fetch returns how many bytes an immediate of class s occupies in the
// instruction stream. It differs from width for the sign extended classes.
func (z sizes) fetch(s Size) int {
	switch s {
	case SizeBV:
		return 1
	case SizeVV:
		if z.opSize == 16 {
			return 2
		}
		return 4
	}
	return z.width(s)
}

// mask returns the all-ones value of n bytes.
func mask(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(n)) - 1
}

// signExtend interprets the low n bytes of v as a two's complement value.
func signExtend(v uint64, n int) int64 {
	if n >= 8 {
		return int64(v)
	}
	shift := 64 - 8*uint(n)
	return int64(v<<shift) >> shift
}
