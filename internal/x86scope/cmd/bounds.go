package cmd

import (
	"debug/elf"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"x86scope/internal/addr"
	"x86scope/internal/bounds"
	"x86scope/internal/elfx"
	"x86scope/internal/x86scope/styles"
)

// headerRow is one section or segment as the bounds scan sees it.
type headerRow struct {
	Name  string       `json:"name"`
	Type  string       `json:"type"`
	Addr  addr.Address `json:"addr"`
	Size  uint64       `json:"size"`
	Valid bool         `json:"valid"`
}

// BoundsJSON is the JSON output of the bounds command.
type BoundsJSON struct {
	File         string       `json:"file"`
	Class        string       `json:"class"`
	Machine      string       `json:"machine"`
	Source       string       `json:"source"`
	Trustable    bool         `json:"trustable"`
	Empty        bool         `json:"empty"`
	Low          addr.Address `json:"low"`
	High         addr.Address `json:"high"`
	Size         uint64       `json:"size"`
	Entry        addr.Address `json:"entry"`
	EntryInRange bool         `json:"entry_in_range"`
	Sections     []headerRow  `json:"sections,omitempty"`
	Segments     []headerRow  `json:"segments,omitempty"`
}

var boundsCmd = &cobra.Command{
	Use:   "bounds [file]",
	Short: "Report the decodable address range of an ELF image",
	Long: `Compute the lowest and highest virtual address covered by an image.
The section table is used when it is trustable and non-empty, the loadable
program segments otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvePath(cmd, args[0])
		if err != nil {
			return err
		}
		segments, _ := cmd.Flags().GetBool("segments")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		width, _ := cmd.Flags().GetInt("width")

		im, err := elfx.Open(path)
		if err != nil {
			return err
		}
		defer im.Close()

		rep := boundsReport(im, !segments)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), rep)
		}
		return renderBounds(cmd.OutOrStdout(), rep, width)
	},
}

func init() {
	boundsCmd.Flags().Bool("segments", false, "Ignore the section table")
	boundsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	boundsCmd.Flags().Int("width", 100, "Report width")
	rootCmd.AddCommand(boundsCmd)
}

func boundsReport(im *elfx.Image, preferSections bool) BoundsJSON {
	trust := preferSections && im.TrustableSections()
	r := bounds.ComputeFrom(im, trust)
	entry := im.EntryAddress()
	rep := BoundsJSON{
		File:         im.Path,
		Class:        im.Class.String(),
		Machine:      im.Machine.String(),
		Source:       bounds.Source(im, trust),
		Trustable:    im.TrustableSections(),
		Empty:        r.Empty(),
		Low:          r.Low,
		High:         r.High,
		Size:         r.Size(),
		Entry:        entry,
		EntryInRange: r.Contains(entry),
	}

	name := func(i int) string {
		if im.File != nil && i < len(im.File.Sections) {
			return im.File.Sections[i].Name
		}
		return ""
	}
	switch {
	case im.H32 != nil:
		for i := range im.H32.Sections {
			s := &im.H32.Sections[i]
			rep.Sections = append(rep.Sections, headerRow{name(i), elf.SectionType(s.Type).String(), addr.New32(s.Addr), uint64(s.Size), elfx.ValidSection32(s)})
		}
		for i := range im.H32.Progs {
			p := &im.H32.Progs[i]
			rep.Segments = append(rep.Segments, headerRow{elf.ProgFlag(p.Flags).String(), elf.ProgType(p.Type).String(), addr.New32(p.Vaddr), uint64(p.Memsz), elfx.ValidSegment32(p)})
		}
	case im.H64 != nil:
		for i := range im.H64.Sections {
			s := &im.H64.Sections[i]
			rep.Sections = append(rep.Sections, headerRow{name(i), elf.SectionType(s.Type).String(), addr.New64(s.Addr), s.Size, elfx.ValidSection64(s)})
		}
		for i := range im.H64.Progs {
			p := &im.H64.Progs[i]
			rep.Segments = append(rep.Segments, headerRow{elf.ProgFlag(p.Flags).String(), elf.ProgType(p.Type).String(), addr.New64(p.Vaddr), p.Memsz, elfx.ValidSegment64(p)})
		}
	}
	return rep
}

// boundsMarkdown lays the report out as markdown; the table that was
// scanned is listed first.
func boundsMarkdown(rep BoundsJSON) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rep.File)
	fmt.Fprintf(&b, "%s %s, entry `0x%s`\n\n", rep.Class, rep.Machine, rep.Entry)

	b.WriteString("## Range\n\n")
	if rep.Empty {
		fmt.Fprintf(&b, "No valid %s: nothing to decode.\n\n", rep.Source)
	} else {
		fmt.Fprintf(&b, "`0x%s` .. `0x%s` (%#x bytes) from the **%s**\n\n", rep.Low, rep.High, rep.Size, rep.Source)
	}
	if !rep.Trustable {
		b.WriteString("> The section table is unreadable or reaches outside the loadable segments.\n\n")
	}
	if !rep.Empty && !rep.EntryInRange {
		b.WriteString("> The entry point lies outside the range.\n\n")
	}

	tables := []struct {
		title string
		rows  []headerRow
	}{{"Sections", rep.Sections}, {"Segments", rep.Segments}}
	if rep.Source == "segments" {
		tables[0], tables[1] = tables[1], tables[0]
	}
	for _, t := range tables {
		if len(t.rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n| | name | type | address | size |\n|---|---|---|---|---|\n", t.title)
		for _, r := range t.rows {
			mark := " "
			if r.Valid {
				mark = "✓"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | `%s` | %#x |\n", mark, r.Name, r.Type, r.Addr, r.Size)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderBounds(w io.Writer, rep BoundsJSON, width int) error {
	md := boundsMarkdown(rep)
	r := styles.GetMarkdownRenderer(width)
	if r == nil {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
