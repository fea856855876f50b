package x86

import "encoding/binary"

// cursor reads little-endian values from a bounded window of bytes.
// Reads past the end fail with ErrTruncatedStream and leave pos unchanged.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(src []byte) cursor {
	if len(src) > MaxInsnLen {
		src = src[:MaxInsnLen]
	}
	return cursor{buf: src}
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || len(c.buf)-c.pos < n {
		return nil, ErrTruncatedStream
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) next() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// peek returns the byte off bytes ahead of pos without consuming it.
func (c *cursor) peek(off int) (byte, error) {
	if c.pos+off >= len(c.buf) {
		return 0, ErrTruncatedStream
	}
	return c.buf[c.pos+off], nil
}

// unsigned reads an n byte unsigned value, n in {1, 2, 4, 8}.
func (c *cursor) unsigned(n int) (uint64, error) {
	b, err := c.take(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	}
	return 0, ErrTruncatedStream
}

// signed reads an n byte value and sign extends it.
func (c *cursor) signed(n int) (int64, error) {
	v, err := c.unsigned(n)
	if err != nil {
		return 0, err
	}
	return signExtend(v, n), nil
}
