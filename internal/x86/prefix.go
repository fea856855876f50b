package x86

// MaxInsnLen is the architectural limit on instruction length.
const MaxInsnLen = 15

// Prefixes is the prefix state of one instruction.
type Prefixes struct {
	Segment  Segment
	Lock     bool
	Rep      Rep
	OpSize   bool // 0x66
	AddrSize bool // 0x67
	REX      byte // 0 when absent
}

func isREX(b byte, mode Mode) bool {
	return mode == Mode64 && b&0xF0 == 0x40
}

// prefixOf returns the prefix cell for b, if b is a legacy prefix.
func prefixOf(b byte) (Prefix, bool) {
	p, ok := legacy.base[b].(Prefix)
	return p, ok
}

func isPrefix(b byte, mode Mode) bool {
	if isREX(b, mode) {
		return true
	}
	_, ok := prefixOf(b)
	return ok
}

// ResolvePrefixes scans the prefix bytes at the start of src and returns
// the prefix state and the number of bytes consumed. Later prefixes of the
// same class overwrite earlier ones. In 64-bit mode a REX byte only counts
// when the opcode follows it directly; a REX byte followed by another
// prefix is left unconsumed so that it decodes as an opcode.
func ResolvePrefixes(src []byte, mode Mode) (Prefixes, int, error) {
	var p Prefixes
	if len(src) > MaxInsnLen {
		src = src[:MaxInsnLen]
	}
	for i := 0; ; i++ {
		if i >= len(src) {
			return p, i, ErrTruncatedStream
		}
		b := src[i]
		if isREX(b, mode) {
			if i+1 >= len(src) {
				return p, i, ErrTruncatedStream
			}
			if isPrefix(src[i+1], mode) {
				return p, i, nil
			}
			p.REX = b
			return p, i + 1, nil
		}
		pfx, ok := prefixOf(b)
		if !ok {
			return p, i, nil
		}
		switch pfx.Kind {
		case KindSegment:
			p.Segment = Segment(pfx.Value)
		case KindLock:
			p.Lock = true
		case KindRep:
			p.Rep = Rep(pfx.Value)
		case KindOpSize:
			p.OpSize = true
		case KindAddrSize:
			p.AddrSize = true
		}
	}
}
