package x86

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedStream           = errors.New("truncated instruction stream")
	ErrReservedOpcode            = errors.New("reserved opcode")
	ErrInvalidRegisterEncoding   = errors.New("invalid register encoding")
	ErrUnsupportedAddressingMode = errors.New("unsupported addressing mode")
)

// DecodeError reports where decoding failed. Err is one of the package
// sentinels and matches with errors.Is.
type DecodeError struct {
	Addr   uint64 // address of the first byte of the instruction
	Offset int    // offset of the offending byte within the instruction
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("x86: %#x+%d: %v", e.Addr, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
