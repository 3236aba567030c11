package midi

import (
	"context"
	"sync"
	"time"

	"go-stepseq/debug"
	"go-stepseq/pattern"
	"go-stepseq/sequencer"
)

// StepEditor is the part of the parameter host the surface edits through.
type StepEditor interface {
	Store() *pattern.Store
	EditStep() int
	SelectStep(i int)
	ToggleStep(i int)
}

// Transport is the part of the sequencer manager the surface drives.
type Transport interface {
	Toggle()
	GetState() sequencer.Status
}

// Surface binds a Launchpad to the pattern store: pads toggle steps, the top
// row picks patterns and the arrows page through long patterns.
type Surface struct {
	lp        *Launchpad
	editor    StepEditor
	transport Transport

	mu   sync.Mutex
	page int
}

func NewSurface(lp *Launchpad, editor StepEditor, transport Transport) *Surface {
	return &Surface{lp: lp, editor: editor, transport: transport}
}

func (s *Surface) pages() int {
	return max(1, s.editor.Store().Variant().MaxSteps()/GridSteps)
}

// Page returns the visible page.
func (s *Surface) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// HandlePad applies one pad press.
func (s *Surface) HandlePad(ev PadEvent) {
	target, idx := ev.Target()
	switch target {
	case PadStep:
		s.editor.ToggleStep(s.Page()*GridSteps + idx)
	case PadPattern:
		s.editor.Store().SelectPattern(idx)
	case PadPlay:
		s.transport.Toggle()
	case PadPageUp, PadPageDown:
		s.mu.Lock()
		if target == PadPageUp {
			s.page = min(s.page+1, s.pages()-1)
		} else {
			s.page = max(s.page-1, 0)
		}
		page := s.page
		s.mu.Unlock()
		s.editor.SelectStep(page * GridSteps)
		debug.Log("launchpad", "page %d", page+1)
	}
}

// View builds what the grid should show right now.
func (s *Surface) View() GridView {
	store := s.editor.Store()
	sel := store.Selected()
	seq := store.Sequence(sel)
	st := s.transport.GetState()

	offset := s.Page() * GridSteps
	end := min(offset+GridSteps, seq.MaxSteps)
	v := GridView{
		Steps:    append([]pattern.Step(nil), seq.Steps[offset:end]...),
		Offset:   offset,
		Length:   seq.Length,
		Playhead: -1,
		Cursor:   s.editor.EditStep(),
		Pattern:  sel,
		Playing:  st.State == sequencer.Running,
	}
	if st.State != sequencer.Idle && st.Pattern == sel {
		v.Playhead = st.Cursor
	}
	return v
}

// Run handles pads and redraws at fps until ctx is done or the pad channel
// closes.
func (s *Surface) Run(ctx context.Context, fps int) {
	ticker := time.NewTicker(time.Second / time.Duration(max(fps, 1)))
	defer ticker.Stop()
	s.lp.Draw(s.View())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.lp.Pads():
			if !ok {
				return
			}
			s.HandlePad(ev)
			s.lp.Draw(s.View())
		case <-ticker.C:
			s.lp.Draw(s.View())
		}
	}
}
