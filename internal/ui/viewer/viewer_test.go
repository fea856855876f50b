package viewer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
)

func listing() disasm.Stream {
	return disasm.Stream{
		{Addr: addr.New64(0x1000), Raw: []byte{0x90}, Op: "nop"},
		{Addr: addr.New64(0x1001), Raw: []byte{0x55}, Op: "push", Args: "rbp"},
		{Addr: addr.New64(0x1002), Raw: []byte{0xc3}, Op: "ret", Flow: disasm.FlowReturn},
	}
}

func labels(a addr.Address) (string, bool) {
	if a.Uint64() == 0x1001 {
		return "main", true
	}
	return "", false
}

func TestRender(t *testing.T) {
	t.Setenv("X86SCOPE_NO_COLOR", "1")
	rows, offsets := Render(listing(), labels)
	assert.Equal(t, []int{0, 3, 4}, offsets)
	assert.Equal(t, "", rows[1])
	assert.Equal(t, "0000000000001001 <main>:", rows[2])
	assert.True(t, strings.HasPrefix(rows[3], "0000000000001001  55"))

	rows, offsets = Render(listing(), nil)
	assert.Len(t, rows, 3)
	assert.Equal(t, []int{0, 1, 2}, offsets)
}

func TestModelLoad(t *testing.T) {
	t.Setenv("X86SCOPE_NO_COLOR", "1")
	m := New("a.out", addr.New64(0x1002), func() (disasm.Stream, error) { return listing(), nil }, labels)
	assert.Contains(t, m.View(), "a.out")

	msg := m.Init()
	require.NotNil(t, msg)

	updated, _ := m.Update(loadedMsg{lines: listing()})
	m = updated.(Model)
	assert.Equal(t, 4, m.Top(), "entry row is scrolled to the top")
	assert.Contains(t, m.View(), "3 lines")

	m.scrollTo(0)
	assert.Equal(t, 0, m.Top())
	m.GotoEntry()
	assert.Equal(t, 4, m.Top())
}

func TestModelLoadError(t *testing.T) {
	m := New("bad", addr.New64(0), nil, nil)
	updated, _ := m.Update(loadedMsg{err: errors.New("entry point outside image bounds")})
	m = updated.(Model)
	assert.Contains(t, m.View(), "entry point outside image bounds")
	assert.Equal(t, 0, m.Top())
}
