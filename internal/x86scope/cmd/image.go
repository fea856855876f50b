package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"

	"x86scope/internal/addr"
	"x86scope/internal/analysis"
	"x86scope/internal/disasm"
	"x86scope/internal/elfx"
	"x86scope/internal/ui/colorize"
	"x86scope/internal/ui/viewer"
	"x86scope/internal/x86"
)

// parseMode accepts 16, 32, 64, or auto (or empty) to derive the mode from the image.
func parseMode(s string) (x86.Mode, error) {
	if s == "" || s == "auto" {
		return 0, nil
	}
	return x86.ParseMode(s)
}

// openView opens the ELF file at path and seeds a view at its entry point.
// The caller closes the returned image.
func openView(path, mode string, lg *log.Logger) (*elfx.Image, *analysis.View, error) {
	m, err := parseMode(mode)
	if err != nil {
		return nil, nil, err
	}
	im, err := elfx.Open(path)
	if err != nil {
		return nil, nil, err
	}
	v, err := analysis.Seed(im, m, lg)
	if err != nil {
		im.Close()
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return im, v, nil
}

func labeler(v *analysis.View) viewer.LabelFunc {
	return func(a addr.Address) (string, bool) {
		return v.Syms.Label(a.Uint64())
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// printListing writes lines with symbol labels. Colours are kept only when
// w is a terminal and X86SCOPE_NO_COLOR is unset.
func printListing(w io.Writer, lines disasm.Stream, label viewer.LabelFunc) {
	rows, _ := viewer.Render(lines, label)
	plain := !isTerminal(w)
	for _, r := range rows {
		if plain {
			r = colorize.Strip(r)
		}
		fmt.Fprintln(w, r)
	}
}

// LineJSON is one listing line in JSON output.
type LineJSON struct {
	Addr   addr.Address  `json:"addr"`
	Bytes  string        `json:"bytes"`
	Text   string        `json:"text"`
	Target *addr.Address `json:"target,omitempty"`
	Notes  []string      `json:"notes,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// ListingJSON is the JSON output of the root command.
type ListingJSON struct {
	File   string       `json:"file"`
	Mode   int          `json:"mode"`
	Source string       `json:"source"`
	Low    addr.Address `json:"low"`
	High   addr.Address `json:"high"`
	Entry  addr.Address `json:"entry"`
	Lines  []LineJSON   `json:"lines"`
}

func toJSONLines(lines disasm.Stream) []LineJSON {
	out := make([]LineJSON, 0, len(lines))
	for _, l := range lines {
		j := LineJSON{
			Addr:  l.Addr,
			Bytes: hex.EncodeToString(l.Raw),
			Text:  l.Text(),
			Notes: l.Notes,
		}
		if l.HasTarget {
			t := l.Target
			j.Target = &t
		}
		if l.Err != nil {
			j.Error = l.Err.Error()
		}
		out = append(out, j)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
