package modulation

import (
	"math"
	"testing"

	"go-stepseq/pattern"
)

func TestMapDepthScalesTowardZero(t *testing.T) {
	st := pattern.Step{Pitch: 12, FilterMod: pattern.MaxLevel, Gate: pattern.MaxLevel, Ratchet: 1}
	full := Map(st, 1, 6000)
	if full.PitchSemitones != 12 || full.FilterCoefficient != 1 {
		t.Fatalf("full depth: %+v", full)
	}
	half := Map(st, 0.5, 6000)
	if half.PitchSemitones != 6 || half.FilterCoefficient != 0.5 {
		t.Fatalf("half depth: %+v", half)
	}
	none := Map(st, 0, 6000)
	if none.PitchSemitones != 0 || none.FilterCoefficient != 0 {
		t.Fatalf("zero depth: %+v", none)
	}
	if none.GateSamples != 6000 {
		t.Fatalf("depth must not change the gate: %d", none.GateSamples)
	}
}

func TestMapGateFollowsSlot(t *testing.T) {
	st := pattern.DefaultStep()
	slow := Map(st, 1, 8000)
	fast := Map(st, 1, 4000)
	if slow.GateSamples != 2*fast.GateSamples {
		t.Fatalf("gate must be relative to the slot: %d vs %d", slow.GateSamples, fast.GateSamples)
	}
	if g := Map(pattern.Step{Gate: 0}, 1, 4000).GateSamples; g != 0 {
		t.Fatalf("zero gate: %d", g)
	}
	if g := Map(pattern.Step{Gate: 1}, 1, 10).GateSamples; g != 1 {
		t.Fatalf("tiny gate should still open for a sample: %d", g)
	}
}

func TestCutoffRange(t *testing.T) {
	if CutoffHz(0) != MinCutoff || CutoffHz(1) != MaxCutoff || CutoffHz(7) != MaxCutoff {
		t.Fatalf("cutoff mapping broken")
	}
}

func TestGlideCoefficient(t *testing.T) {
	if GlideCoefficient(0) != 0.001 {
		t.Fatalf("min coefficient")
	}
	if math.Abs(GlideCoefficient(1)-0.1) > 1e-12 {
		t.Fatalf("max coefficient: %f", GlideCoefficient(1))
	}
}

func TestFollowerHoldJumps(t *testing.T) {
	f := NewFollower(48000)
	f.Trigger(Frame{PitchSemitones: 7, FilterCoefficient: 0.9, GateSamples: 100})
	out := f.Next()
	if out.Pitch != 7 || out.Filter != 0.9 {
		t.Fatalf("hold mode should jump: %+v", out)
	}
}

func TestFollowerGlideConverges(t *testing.T) {
	f := NewFollower(48000)
	f.SetGlide(0)
	f.Trigger(Frame{FilterCoefficient: 1, GateSamples: 10})
	first := f.Next()
	if first.Filter >= 1 || first.Filter <= 0.5 {
		t.Fatalf("glide should move part way: %f", first.Filter)
	}
	var out Output
	for i := 0; i < 20000; i++ {
		out = f.Next()
	}
	if math.Abs(out.Filter-1) > 1e-6 {
		t.Fatalf("glide with smooth 0 must still reach the target: %f", out.Filter)
	}
}

func TestFollowerGateEnvelope(t *testing.T) {
	f := NewFollower(1000) // 10 sample attack
	f.Trigger(Frame{GateSamples: 20})
	var levels []float64
	for i := 0; i < 25; i++ {
		levels = append(levels, f.Next().Gate)
	}
	if math.Abs(levels[0]-0.1) > 1e-9 {
		t.Fatalf("attack start: %f", levels[0])
	}
	if levels[9] != 1 || levels[19] != 1 {
		t.Fatalf("gate should be fully open: %v", levels[9:20])
	}
	if levels[20] != 0 || levels[24] != 0 {
		t.Fatalf("gate should close after 20 samples: %v", levels[20:])
	}
}

func TestFollowerRelease(t *testing.T) {
	f := NewFollower(48000)
	f.Trigger(Frame{GateSamples: 1000})
	f.Next()
	f.Release()
	if g := f.Next().Gate; g != 0 {
		t.Fatalf("released gate: %f", g)
	}
}
