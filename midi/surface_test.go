package midi

import (
	"testing"

	"go-stepseq/params"
	"go-stepseq/pattern"
	"go-stepseq/sequencer"
)

func newSurface(v pattern.Variant) (*Surface, *params.Host, *sequencer.Manager) {
	store := pattern.NewStore(v)
	eng := sequencer.NewEngine(store, sequencer.DefaultOptions())
	mgr := sequencer.NewManager(eng)
	host := params.NewHost(store, eng, 3)
	return NewSurface(NewLaunchpad(nil), host, mgr), host, mgr
}

func TestSurfaceStepPads(t *testing.T) {
	s, host, _ := newSurface(pattern.VariantStepSeq)
	s.HandlePad(PadEvent{Row: 1, Col: 2, Velocity: 100})
	if host.Store().GetStep(0, 10).Active {
		t.Fatal("pad 1,2 should toggle step 11")
	}
	if host.EditStep() != 10 {
		t.Errorf("edit step = %d", host.EditStep())
	}

	v := s.View()
	if v.Offset != 0 || len(v.Steps) != GridSteps || v.Steps[10].Active {
		t.Errorf("view = %+v", v)
	}
	if v.Playhead != -1 || v.Playing {
		t.Error("idle engine should show no playhead")
	}
}

func TestSurfacePatternAndPlay(t *testing.T) {
	s, host, mgr := newSurface(pattern.VariantStepSeq)
	s.HandlePad(PadEvent{Row: 7, Col: 5})
	if host.Store().Selected() != 5 {
		t.Errorf("selected = %d", host.Store().Selected())
	}
	if s.View().Pattern != 5 {
		t.Error("view should follow the selection")
	}
	s.HandlePad(PadEvent{Row: 0, Col: 8})
	if !mgr.Engine().Playing() {
		t.Error("play pad should start playback")
	}
}

func TestSurfacePaging(t *testing.T) {
	s, host, _ := newSurface(pattern.VariantAdvSeq)
	up := PadEvent{Row: 8, Col: 2}
	down := PadEvent{Row: 8, Col: 3}

	s.HandlePad(down)
	if s.Page() != 0 {
		t.Fatal("page should not go below 0")
	}
	for i := 0; i < 10; i++ {
		s.HandlePad(up)
	}
	if s.Page() != 7 {
		t.Fatalf("page = %d, want 7", s.Page())
	}
	if host.EditStep() != 112 {
		t.Errorf("edit step = %d, want 112", host.EditStep())
	}

	s.HandlePad(PadEvent{Row: 0, Col: 0})
	if host.Store().GetStep(0, 112).Active {
		t.Error("step pad on page 8 should toggle step 113")
	}
	if v := s.View(); v.Offset != 112 || len(v.Steps) != GridSteps {
		t.Errorf("view offset = %d, steps = %d", v.Offset, len(v.Steps))
	}

	single, _, _ := newSurface(pattern.VariantStepSeq)
	single.HandlePad(up)
	if single.Page() != 0 {
		t.Error("16-step patterns have one page")
	}
}
