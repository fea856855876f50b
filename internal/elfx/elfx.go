// Package elfx opens ELF binaries, exposes their raw section and program
// header tables, and maps virtual addresses to file bytes.
package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"

	"x86scope/internal/addr"
)

// ErrUnsupportedClass is returned for images that are neither ELFCLASS32
// nor ELFCLASS64.
var ErrUnsupportedClass = errors.New("unsupported ELF class")

// Headers32 holds the raw header tables of an ELFCLASS32 image.
type Headers32 struct {
	Sections []elf.Section32
	Progs    []elf.Prog32
}

// Headers64 holds the raw header tables of an ELFCLASS64 image.
type Headers64 struct {
	Sections []elf.Section64
	Progs    []elf.Prog64
}

type Image struct {
	Path    string
	File    *elf.File // nil when only the program headers could be read
	All     []byte
	Class   elf.Class
	Machine elf.Machine
	Entry   uint64
	// Exactly one of H32 and H64 is set, matching Class.
	H32 *Headers32
	H64 *Headers64
	// ShentsizeOK reports that e_shentsize matched the class and the
	// section table was read from the file.
	ShentsizeOK bool

	Loads    []Seg
	Text     Section
	PLT      []Section
	Syms     []Sym
	PLTRels  []PLTRel
	f        *os.File
	unmapped bool
}

type Seg struct {
	Vaddr, Off, Filesz, Memsz uint64
	Flags                     elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

type Sym struct {
	Name string
	Addr uint64
	Size uint64
	Func bool
}

// PLTRel is a jump slot relocation: the GOT slot at Offset is bound to SymName.
type PLTRel struct {
	Offset  uint64
	SymName string
}

// Open maps the file at path read-only and parses it.
func Open(path string) (*Image, error) {
	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if fi.Size() == 0 {
		of.Close()
		return nil, fmt.Errorf("open elf: %s is empty", path)
	}

	all, err := syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		of.Close()
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	im, err := Parse(all)
	if err != nil {
		syscall.Munmap(all)
		of.Close()
		return nil, err
	}
	im.Path = path
	im.f = of
	im.unmapped = false
	return im, nil
}

// Parse reads an ELF image held in memory. The image keeps data.
//
// An image debug/elf rejects, typically because its section header table
// is damaged or lies past the end of the file, is still returned when its
// program headers describe at least one PT_LOAD segment. Such an image has
// no symbols and its section table is never trusted.
func Parse(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return parseRaw(data, err)
	}
	im := &Image{File: f, All: data, Class: f.Class, unmapped: true}
	if err := im.readHeaders(f.ByteOrder); err != nil {
		return nil, err
	}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Memsz:  p.Memsz,
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		switch s.Name {
		case ".text":
			im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".plt", ".plt.sec":
			im.PLT = append(im.PLT, Section{s.Name, s.Addr, s.Offset, s.Size})
		}
	}

	im.loadSymbols()
	im.parsePLTRelocations()
	im.execFallback()
	return im, nil
}

// parseRaw builds an image from the ELF header and program headers alone.
// cause is the debug/elf error reported when that is not possible.
func parseRaw(data []byte, cause error) (*Image, error) {
	if len(data) < elf.EI_NIDENT || !bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		return nil, fmt.Errorf("open elf: %w", cause)
	}
	var bo binary.ByteOrder
	switch elf.Data(data[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		bo = binary.LittleEndian
	case elf.ELFDATA2MSB:
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("open elf: %w", cause)
	}

	im := &Image{All: data, Class: elf.Class(data[elf.EI_CLASS]), unmapped: true}
	if err := im.readHeaders(bo); err != nil {
		return nil, err
	}
	im.ShentsizeOK = false

	switch {
	case im.H32 != nil:
		for _, p := range im.H32.Progs {
			if ValidSegment32(&p) {
				im.Loads = append(im.Loads, Seg{
					Vaddr:  uint64(p.Vaddr),
					Off:    uint64(p.Off),
					Filesz: uint64(p.Filesz),
					Memsz:  uint64(p.Memsz),
					Flags:  elf.ProgFlag(p.Flags),
				})
			}
		}
	case im.H64 != nil:
		for _, p := range im.H64.Progs {
			if ValidSegment64(&p) {
				im.Loads = append(im.Loads, Seg{
					Vaddr:  p.Vaddr,
					Off:    p.Off,
					Filesz: p.Filesz,
					Memsz:  p.Memsz,
					Flags:  elf.ProgFlag(p.Flags),
				})
			}
		}
	}
	if len(im.Loads) == 0 {
		return nil, fmt.Errorf("open elf: %w", cause)
	}
	im.execFallback()
	return im, nil
}

// execFallback points Text at the first executable segment when the image
// has no .text section.
func (im *Image) execFallback() {
	if im.Text.Size != 0 {
		return
	}
	for _, l := range im.Loads {
		if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
			im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
			return
		}
	}
}

// readHeaders decodes the ELF header and the raw header tables. Tables
// that lie outside the file or use a foreign entry size are left empty,
// and ShentsizeOK is set only when the section table was read.
func (im *Image) readHeaders(bo binary.ByteOrder) error {
	r := bytes.NewReader(im.All)
	switch im.Class {
	case elf.ELFCLASS32:
		var h elf.Header32
		if err := binary.Read(r, bo, &h); err != nil {
			return fmt.Errorf("read elf header: %w", err)
		}
		im.Entry = uint64(h.Entry)
		im.Machine = elf.Machine(h.Machine)
		im.H32 = &Headers32{}
		if int(h.Shentsize) == binary.Size(elf.Section32{}) {
			im.H32.Sections = readTable[elf.Section32](im.All, bo, uint64(h.Shoff), int(h.Shnum))
			im.ShentsizeOK = h.Shnum == 0 || im.H32.Sections != nil
		}
		if int(h.Phentsize) == binary.Size(elf.Prog32{}) {
			im.H32.Progs = readTable[elf.Prog32](im.All, bo, uint64(h.Phoff), int(h.Phnum))
		}
	case elf.ELFCLASS64:
		var h elf.Header64
		if err := binary.Read(r, bo, &h); err != nil {
			return fmt.Errorf("read elf header: %w", err)
		}
		im.Entry = h.Entry
		im.Machine = elf.Machine(h.Machine)
		im.H64 = &Headers64{}
		if int(h.Shentsize) == binary.Size(elf.Section64{}) {
			im.H64.Sections = readTable[elf.Section64](im.All, bo, h.Shoff, int(h.Shnum))
			im.ShentsizeOK = h.Shnum == 0 || im.H64.Sections != nil
		}
		if int(h.Phentsize) == binary.Size(elf.Prog64{}) {
			im.H64.Progs = readTable[elf.Prog64](im.All, bo, h.Phoff, int(h.Phnum))
		}
	default:
		return fmt.Errorf("open elf: %w: %v", ErrUnsupportedClass, im.Class)
	}
	return nil
}

func readTable[T any](data []byte, bo binary.ByteOrder, off uint64, n int) []T {
	var zero T
	size := uint64(binary.Size(zero))
	end := off + size*uint64(n)
	if n <= 0 || end < off || end > uint64(len(data)) {
		return nil
	}
	out := make([]T, n)
	if err := binary.Read(bytes.NewReader(data[off:end]), bo, out); err != nil {
		return nil
	}
	return out
}

// Close unmaps the memory and closes the underlying file.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil && !im.unmapped {
		err1 = syscall.Munmap(im.All)
	}
	im.All = nil
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// Width is the address width of the image class.
func (im *Image) Width() addr.Width {
	if im.Class == elf.ELFCLASS32 {
		return addr.Width32
	}
	return addr.Width64
}

// Address wraps a raw virtual address at the image's width.
func (im *Image) Address(va uint64) addr.Address {
	return addr.New(im.Width(), va)
}

// EntryAddress is the entry point (e_entry) at the image's width.
func (im *Image) EntryAddress() addr.Address {
	return im.Address(im.Entry)
}

// NumSections is the number of raw section headers read.
func (im *Image) NumSections() int {
	switch {
	case im.H32 != nil:
		return len(im.H32.Sections)
	case im.H64 != nil:
		return len(im.H64.Sections)
	}
	return 0
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns the file bytes backing [va, va+size), clipped to the
// end of the segment holding va and to the end of the file.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	for _, l := range im.Loads {
		if va < l.Vaddr || va >= l.Vaddr+l.Filesz {
			continue
		}
		off := l.Off + (va - l.Vaddr)
		avail := l.Filesz - (va - l.Vaddr)
		if size > avail {
			size = avail
		}
		return im.ReadAt(off, size)
	}
	return nil, false
}

// ReadAt returns up to n bytes at file offset off.
func (im *Image) ReadAt(off, n uint64) ([]byte, bool) {
	if off > uint64(len(im.All)) {
		return nil, false
	}
	end := off + n
	if end > uint64(len(im.All)) || end < off {
		end = uint64(len(im.All))
	}
	return im.All[off:end], true
}
