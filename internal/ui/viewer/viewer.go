// Package viewer is the interactive listing view.
package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"x86scope/internal/addr"
	"x86scope/internal/disasm"
	"x86scope/internal/ui/colorize"
)

// LabelFunc names the symbol starting at a, if any.
type LabelFunc func(a addr.Address) (string, bool)

// LoadFunc produces the listing. It runs off the UI goroutine.
type LoadFunc func() (disasm.Stream, error)

// Render lays out a listing with a label row before each named address.
// rows[offsets[i]] is the row of lines[i].
func Render(lines disasm.Stream, label LabelFunc) (rows []string, offsets []int) {
	offsets = make([]int, len(lines))
	for i, in := range lines {
		if label != nil {
			if name, ok := label(in.Addr); ok {
				if len(rows) > 0 {
					rows = append(rows, "")
				}
				rows = append(rows, colorize.ColorizeInstructionLine(fmt.Sprintf("%s <%s>:", in.Addr, name)))
			}
		}
		offsets[i] = len(rows)
		rows = append(rows, colorize.ColorizeInst(in))
	}
	return rows, offsets
}

type loadedMsg struct {
	lines disasm.Stream
	err   error
}

type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	title    string
	entry    addr.Address
	load     LoadFunc
	label    LabelFunc

	lines   disasm.Stream
	offsets []int
	top     int
	loading bool
	err     error
	width   int
	height  int
}

func New(title string, entry addr.Address, load LoadFunc, label LabelFunc) Model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(22)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	return Model{
		viewport: vp,
		spinner:  s,
		title:    title,
		entry:    entry,
		load:     load,
		label:    label,
		loading:  true,
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	load := m.load
	return tea.Batch(
		func() tea.Msg {
			lines, err := load()
			return loadedMsg{lines: lines, err: err}
		},
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.lines = msg.lines
		m.setContent()
		m.GotoEntry()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		m.setContent()
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(msg.Height - 2)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "e":
			m.GotoEntry()
			return m, nil
		case "g", "home":
			m.scrollTo(0)
			return m, nil
		case "G", "end":
			m.scrollTo(len(m.offsets))
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// GotoEntry scrolls the entry point line to the top of the view.
func (m *Model) GotoEntry() {
	i, _ := m.lines.Find(m.entry)
	m.scrollTo(i)
}

// Top is the first visible row.
func (m Model) Top() int { return m.top }

func (m *Model) scrollTo(i int) {
	switch {
	case len(m.offsets) == 0:
		m.top = 0
	case i >= len(m.offsets):
		m.top = m.offsets[len(m.offsets)-1]
	default:
		m.top = m.offsets[i]
	}
	m.viewport.SetYOffset(m.top)
}

func (m *Model) setContent() {
	switch {
	case m.loading:
		m.viewport.SetContent(fmt.Sprintf("%s Decoding %s...", m.spinner.View(), m.title))
	case m.err != nil:
		m.viewport.SetContent(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("error: " + m.err.Error()))
	default:
		var rows []string
		rows, m.offsets = Render(m.lines, m.label)
		m.viewport.SetContent(strings.Join(rows, "\n"))
	}
}

func (m Model) View() string {
	status := fmt.Sprintf(" %s • %d lines • entry %s ", m.title, len(m.lines), m.entry)
	menu := " ↑/↓: scroll • E: entry • G/g: end/top • Q: quit "

	statusStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true).
		Width(m.width)
	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	return statusStyle.Render(status) + "\n" + m.viewport.View() + "\n" + menuStyle.Render(menu)
}
