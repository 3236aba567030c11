package tui

import (
	"fmt"
	"strings"

	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-stepseq/midi"
	"go-stepseq/params"
	"go-stepseq/pattern"
	"go-stepseq/sequencer"
	"go-stepseq/theme"
	"go-stepseq/transform"
	"go-stepseq/widgets"
)

type Model struct {
	Manager *sequencer.Manager
	Host    *params.Host
	Theme   *theme.Theme
	Ports   <-chan midi.PortEvent // may be nil

	help       help.Model
	param      int // index into the host table
	showHelp   bool
	quitting   bool
	err        error
	portStatus string
}

type UpdateMsg struct{}

type PortMsg midi.PortEvent

// ErrorMsg reports a failure from outside the UI, like a lost port.
type ErrorMsg struct{ Err error }

func NewModel(manager *sequencer.Manager, host *params.Host, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Manager: manager,
		Host:    host,
		Theme:   th,
		help:    help.New(),
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func ListenForPorts(events <-chan midi.PortEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return PortMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		ListenForUpdates(m.Manager),
		ListenForPorts(m.Ports),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case UpdateMsg:
		return m, ListenForUpdates(m.Manager)

	case PortMsg:
		state := "connected"
		if msg.Type == midi.PortDisconnected {
			state = "disconnected"
		}
		m.portStatus = fmt.Sprintf("%s %s", msg.Name, state)
		return m, ListenForPorts(m.Ports)

	case ErrorMsg:
		m.err = msg.Err
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	table := m.Host.Table()
	store := m.Host.Store()
	cursor := m.Host.EditStep()

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		m.Manager.Stop()
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Play):
		m.Manager.Toggle()

	case key.Matches(msg, keys.Rewind):
		m.Manager.Rewind()

	case key.Matches(msg, keys.TempoUp):
		m.Manager.SetTempo(int(m.Manager.Engine().Tempo()) + 5)

	case key.Matches(msg, keys.TempoDown):
		m.Manager.SetTempo(int(m.Manager.Engine().Tempo()) - 5)

	case key.Matches(msg, keys.StepLeft):
		m.Host.SelectStep(cursor - 1)

	case key.Matches(msg, keys.StepRight):
		m.Host.SelectStep(cursor + 1)

	case key.Matches(msg, keys.RowUp):
		m.Host.SelectStep(cursor - widgets.LaneWidth)

	case key.Matches(msg, keys.RowDown):
		m.Host.SelectStep(cursor + widgets.LaneWidth)

	case key.Matches(msg, keys.ParamDown):
		m.param = (m.param + 1) % len(table)

	case key.Matches(msg, keys.ParamUp):
		m.param = (m.param + len(table) - 1) % len(table)

	case key.Matches(msg, keys.ValueUp):
		m.nudgeParam(1)

	case key.Matches(msg, keys.ValueDown):
		m.nudgeParam(-1)

	case key.Matches(msg, keys.CoarseUp):
		m.nudgeParam(32)

	case key.Matches(msg, keys.CoarseDown):
		m.nudgeParam(-32)

	case key.Matches(msg, keys.Toggle):
		m.Host.ToggleStep(cursor)

	case key.Matches(msg, keys.PitchUp):
		m.nudgePitch(store, cursor, 1)

	case key.Matches(msg, keys.PitchDown):
		m.nudgePitch(store, cursor, -1)

	case key.Matches(msg, keys.Pattern):
		store.SelectPattern(int(msg.String()[0] - '1'))

	case key.Matches(msg, keys.Reverse):
		m.Host.Transform(transform.OpReverse)

	case key.Matches(msg, keys.Shuffle):
		m.Host.Transform(transform.OpShuffle)

	case key.Matches(msg, keys.Randomize):
		m.Host.Randomize()

	case key.Matches(msg, keys.Palindrome):
		m.Host.Palindrome()

	case key.Matches(msg, keys.ShiftLeft):
		m.Host.ShiftBy(-1)

	case key.Matches(msg, keys.ShiftRight):
		m.Host.ShiftBy(1)
	}
	return m, nil
}

func (m *Model) nudgeParam(delta int) {
	p := m.Host.Table()[m.param]
	v, err := m.Host.Get(p.ID)
	if err == nil {
		err = m.Host.Set(p.ID, v+delta)
	}
	m.err = err
}

func (m *Model) nudgePitch(store *pattern.Store, i, delta int) {
	store.Update(store.Selected(), func(seq *pattern.Sequence) {
		if i < seq.MaxSteps {
			seq.Steps[i].Pitch += delta
			seq.Steps[i] = seq.Steps[i].Clamp()
		}
	})
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.Manager.GetState()
	store := m.Host.Store()
	seq := store.Sequence(store.Selected())
	cursor := m.Host.EditStep()

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	clockState := st.ClockMode.String()
	if st.FreeRunning {
		clockState += " (free)"
	}
	header := headerStyle.Render(fmt.Sprintf("go-stepseq %s  %-7s  %3.0fbpm  %s  step:%03d  pat:%d",
		store.Variant(), st.State, st.Tempo, clockState, st.Cursor+1, st.Pattern+1))

	playhead := -1
	if st.State != sequencer.Idle && st.Pattern == store.Selected() {
		playhead = st.Cursor
	}
	lane := widgets.RenderLane(m.Theme, widgets.Lane{
		Steps:    seq.Steps[:seq.MaxSteps],
		Length:   seq.Length,
		Playhead: playhead,
		Cursor:   cursor,
	})

	edit := seq.Steps[min(cursor, seq.MaxSteps-1)]
	stepLine := dimStyle.Render(fmt.Sprintf("step %03d  pitch %+d  filter %d  gate %d  ratchet %dx  prob %d  %s",
		cursor+1, edit.Pitch, edit.FilterMod, edit.Gate, edit.Ratchet, edit.Probability, onOff(edit.Active)))

	meters := strings.Join([]string{
		widgets.Meter(m.Theme, "PITCH", (st.Output.Pitch-pattern.MinPitch)/(pattern.MaxPitch-pattern.MinPitch), 24),
		widgets.Meter(m.Theme, "FILTER", st.Output.Filter, 24),
		widgets.Meter(m.Theme, "GATE", st.Output.Gate, 24),
	}, "\n")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderPatternBank(m.Theme, store.Selected()))
	out.WriteString("\n\n")
	out.WriteString(lane)
	out.WriteString("\n\n")
	out.WriteString(stepLine)
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderParams(m.Theme, m.Host.Describe(), m.param, 4))
	out.WriteString("\n\n")
	out.WriteString(meters)
	out.WriteString("\n\n")

	if m.err != nil {
		out.WriteString(errStyle.Render(errText(m.err)))
		out.WriteString("\n")
	}
	if m.portStatus != "" {
		out.WriteString(dimStyle.Render(m.portStatus))
		out.WriteString("\n")
	}
	if m.showHelp {
		out.WriteString(widgets.RenderKeyHelp(keys.sections()))
	} else {
		out.WriteString(m.help.View(keys))
	}

	return out.String()
}

// errText prefers the user-facing issue over the internal chain.
func errText(err error) string {
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
