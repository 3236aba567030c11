package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-stepseq/params"
	"go-stepseq/pattern"
	"go-stepseq/theme"
)

// LaneWidth is the number of steps drawn per row.
const LaneWidth = 16

// Lane is what the step grid needs to draw one pattern.
type Lane struct {
	Steps    []pattern.Step // every slot, including those past Length
	Length   int
	Playhead int // -1 when stopped
	Cursor   int // -1 to hide
}

// StepSymbol picks the glyph for slot i.
func (l Lane) StepSymbol(sym theme.Symbols, i int) rune {
	beyond := i >= l.Length
	playhead := i == l.Playhead
	active := i < len(l.Steps) && l.Steps[i].Active
	if i == l.Cursor {
		switch {
		case beyond:
			return sym.CursorBeyond
		case playhead:
			return sym.CursorPlayhead
		case active:
			return sym.CursorActive
		}
		return sym.CursorEmpty
	}
	switch {
	case beyond:
		return sym.StepBeyond
	case playhead:
		return sym.StepPlayhead
	case active:
		return sym.StepActive
	}
	return sym.StepEmpty
}

// RenderLane draws the grid in rows of LaneWidth, grouped by four, each row
// prefixed with its first step number.
func RenderLane(th *theme.Theme, l Lane) string {
	beyond := lipgloss.NewStyle().Foreground(th.Surface())
	empty := lipgloss.NewStyle().Foreground(th.Muted())
	active := lipgloss.NewStyle().Foreground(th.Active())
	playhead := lipgloss.NewStyle().Foreground(th.Success()).Bold(true)
	cursor := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true)
	label := lipgloss.NewStyle().Foreground(th.Muted())

	var rows []string
	for start := 0; start < len(l.Steps); start += LaneWidth {
		var row strings.Builder
		row.WriteString(label.Render(fmt.Sprintf("%3d ", start+1)))
		for i := start; i < start+LaneWidth && i < len(l.Steps); i++ {
			if i > start && (i-start)%4 == 0 {
				row.WriteString(" ")
			}
			style := empty
			switch {
			case i == l.Cursor:
				style = cursor
			case i >= l.Length:
				style = beyond
			case i == l.Playhead:
				style = playhead
			case l.Steps[i].Active:
				style = active
			}
			row.WriteString(style.Render(string(l.StepSymbol(th.Symbols, i))))
			row.WriteString(" ")
		}
		rows = append(rows, strings.TrimRight(row.String(), " "))
	}
	return strings.Join(rows, "\n")
}

// RenderPatternBank draws the eight pattern slots with the selected one
// highlighted.
func RenderPatternBank(th *theme.Theme, selected int) string {
	on := lipgloss.NewStyle().Foreground(th.BG()).Background(th.Accent()).Padding(0, 1)
	off := lipgloss.NewStyle().Foreground(th.FG()).Padding(0, 1)
	cells := make([]string, pattern.NumPatterns)
	for i := range cells {
		style := off
		if i == selected {
			style = on
		}
		cells[i] = style.Render(fmt.Sprintf("%d", i+1))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// RenderParams lays out parameter readouts in columns; the selected one is
// drawn in the cursor color.
func RenderParams(th *theme.Theme, values []params.Value, selected, columns int) string {
	if columns < 1 {
		columns = 1
	}
	name := lipgloss.NewStyle().Foreground(th.Muted()).Width(8)
	value := lipgloss.NewStyle().Foreground(th.FG()).Width(11)
	hot := lipgloss.NewStyle().Foreground(th.Cursor()).Bold(true).Width(11)

	var rows []string
	for start := 0; start < len(values); start += columns {
		var cells []string
		for i := start; i < start+columns && i < len(values); i++ {
			v := values[i]
			style := value
			if i == selected {
				style = hot
			}
			cells = append(cells, name.Render(v.Name)+style.Render(v.Text))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(rows, "\n")
}

// Meter renders a labelled bar for a 0..1 level.
func Meter(th *theme.Theme, label string, norm float64, width int) string {
	norm = min(max(norm, 0), 1)
	full := int(norm*float64(width) + 0.5)
	bar := strings.Repeat(string(th.Symbols.BarFull), full) +
		strings.Repeat(string(th.Symbols.BarEmpty), width-full)
	return lipgloss.NewStyle().Foreground(th.Muted()).Width(7).Render(label) +
		lipgloss.NewStyle().Foreground(th.Color(norm)).Render(bar)
}
