// Package addr holds width-tagged virtual addresses and address ranges.
package addr

import (
	"cmp"
	"encoding/json"
	"fmt"
)

// Width is the size of an address in bits.
type Width uint8

const (
	Width32 Width = 32
	Width64 Width = 64
)

// Address is a virtual address of a 32 or 64-bit image.
type Address struct {
	width Width
	value uint64
}

func New32(v uint32) Address { return Address{width: Width32, value: uint64(v)} }
func New64(v uint64) Address { return Address{width: Width64, value: v} }

// New builds an address of width w, truncating v to fit.
func New(w Width, v uint64) Address {
	if w == Width32 {
		return New32(uint32(v))
	}
	return New64(v)
}

func (a Address) Width() Width   { return a.width }
func (a Address) Uint64() uint64 { return a.value }

// Max is the largest address of width w.
func Max(w Width) Address {
	if w == Width32 {
		return New32(^uint32(0))
	}
	return New64(^uint64(0))
}

// Compare orders addresses by value, then by width.
func (a Address) Compare(b Address) int {
	if c := cmp.Compare(a.value, b.value); c != 0 {
		return c
	}
	return cmp.Compare(a.width, b.width)
}

func (a Address) Less(b Address) bool { return a.Compare(b) < 0 }

// Add offsets a by n, wrapping within its width.
func (a Address) Add(n uint64) Address {
	return New(a.width, a.value+n)
}

// Sub returns the distance from b to a.
func (a Address) Sub(b Address) uint64 {
	return a.value - b.value
}

func (a Address) String() string {
	if a.width == Width32 {
		return fmt.Sprintf("%08x", a.value)
	}
	return fmt.Sprintf("%016x", a.value)
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + a.String())
}

// Range is the inclusive address range [Low, High]. It is empty when
// Low > High.
type Range struct {
	Low  Address
	High Address
}

// EmptyRange is the canonical empty range of width w.
func EmptyRange(w Width) Range {
	return Range{Low: Max(w), High: New(w, 0)}
}

func (r Range) Empty() bool { return r.Low.value > r.High.value }

func (r Range) Contains(a Address) bool {
	return !r.Empty() && a.value >= r.Low.value && a.value <= r.High.value
}

// Size is the number of bytes covered, 0 for an empty range. A range
// covering the whole 64-bit space reports 0 as well.
func (r Range) Size() uint64 {
	if r.Empty() {
		return 0
	}
	return r.High.value - r.Low.value + 1
}

func (r Range) String() string {
	if r.Empty() {
		return "[empty]"
	}
	return fmt.Sprintf("[%s, %s]", r.Low, r.High)
}
