// Package analysis drives the x86 decoder over ELF images: it seeds a
// view from the image bounds and entry point, then lists code linearly or
// along control flow.
package analysis

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"x86scope/internal/addr"
	"x86scope/internal/bounds"
	"x86scope/internal/elfx"
	"x86scope/internal/x86"
)

var (
	// ErrNoDecodableRegion is returned for images whose headers describe
	// no mapped region.
	ErrNoDecodableRegion = errors.New("no decodable region")
	// ErrEntryOutOfRange is returned when the entry point lies outside
	// the image bounds.
	ErrEntryOutOfRange = errors.New("entry point outside image bounds")
)

// View is an image opened for decoding.
type View struct {
	Image  *elfx.Image
	Mode   x86.Mode
	Range  addr.Range
	Source string // "sections" or "segments"
	Entry  addr.Address
	Syms   *Symbolizer
	Log    *log.Logger
}

// ModeFor derives the processor mode from the ELF machine, falling back
// to the class for other machines.
func ModeFor(im *elfx.Image) x86.Mode {
	switch im.Machine {
	case elf.EM_X86_64:
		return x86.Mode64
	case elf.EM_386:
		return x86.Mode32
	}
	if im.Class == elf.ELFCLASS64 {
		return x86.Mode64
	}
	return x86.Mode32
}

// Seed computes the image bounds and positions the view at the entry
// point. A zero mode is derived with ModeFor. A nil logger discards.
func Seed(im *elfx.Image, mode x86.Mode, lg *log.Logger) (*View, error) {
	if lg == nil {
		lg = log.New(io.Discard)
	}
	if mode == 0 {
		mode = ModeFor(im)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("seed: invalid mode %d", int(mode))
	}

	trust := im.TrustableSections()
	r := bounds.ComputeFrom(im, trust)
	source := bounds.Source(im, trust)
	if r.Empty() {
		lg.Debug("no valid sections or segments", "path", im.Path, "source", source)
		return nil, ErrNoDecodableRegion
	}

	entry := im.EntryAddress()
	if !r.Contains(entry) {
		return nil, fmt.Errorf("%w: %s not in %s", ErrEntryOutOfRange, entry, r)
	}

	lg.Info("image seeded", "range", r, "source", source, "entry", entry, "mode", mode)
	return &View{
		Image:  im,
		Mode:   mode,
		Range:  r,
		Source: source,
		Entry:  entry,
		Syms:   NewSymbolizer(im, mode),
		Log:    lg,
	}, nil
}

// bytesAt returns the file bytes available at a, at most MaxInsnLen of
// them, stopping at the end of the view's range.
func (v *View) bytesAt(a addr.Address) []byte {
	n := uint64(x86.MaxInsnLen)
	if left := v.Range.High.Sub(a) + 1; left != 0 && left < n {
		n = left
	}
	b, _ := v.Image.SliceVA(a.Uint64(), n)
	return b
}
