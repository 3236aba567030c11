package sequencer

import (
	"sync"
	"testing"
	"time"

	"go-stepseq/clock"
	"go-stepseq/modulation"
	"go-stepseq/pattern"
)

type recordOutput struct {
	mu      sync.Mutex
	events  []Event
	times   []time.Time
	flushes int
}

func (r *recordOutput) Send(ev Event, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	r.times = append(r.times, at)
	return nil
}

func (r *recordOutput) Flush(now time.Time) {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
}

func TestManagerRendersElapsedTime(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	m := NewManager(NewEngine(st, DefaultOptions()))
	start := time.Unix(100, 0)
	m.timebase = clock.Timebase{Start: start, SampleRate: 48000}
	out := &recordOutput{}
	m.SetOutput(out)

	m.Play()
	buf := make([]modulation.Output, blockSize)
	m.render(buf, start.Add(500*time.Millisecond))

	if pos := m.Engine().Position(); pos != 24000 {
		t.Fatalf("position: got %d", pos)
	}
	// 120 BPM 16ths: steps at 0, 125, 250 and 375 ms
	if len(out.events) != 4 {
		t.Fatalf("events: got %d", len(out.events))
	}
	for i, at := range out.times {
		want := start.Add(time.Duration(i) * 125 * time.Millisecond)
		if d := at.Sub(want); d < -time.Millisecond || d > time.Millisecond {
			t.Errorf("event %d at %v, want %v", i, at.Sub(start), want.Sub(start))
		}
	}
	if out.flushes != 1 {
		t.Fatalf("flush should run once per render, got %d", out.flushes)
	}

	s := m.GetState()
	if s.State != Running || s.Cursor != 3 || s.Triggers != 4 {
		t.Fatalf("status: %+v", s)
	}
}

func TestManagerSetTempoClamps(t *testing.T) {
	m := NewManager(NewEngine(pattern.NewStore(pattern.VariantStepSeq), DefaultOptions()))
	m.SetTempo(5)
	if m.GetState().Tempo != clock.MinTempo {
		t.Fatalf("tempo: got %f", m.GetState().Tempo)
	}
	m.SetTempo(999)
	if m.GetState().Tempo != clock.MaxTempo {
		t.Fatalf("tempo: got %f", m.GetState().Tempo)
	}
}

func TestManagerPushPulseUsesTimebase(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := NewEngine(st, DefaultOptions())
	m := NewManager(e)
	start := time.Unix(100, 0)
	m.timebase = clock.Timebase{Start: start, SampleRate: 48000}

	m.PushPulse(clock.PulseStart, start.Add(10*time.Millisecond))
	p, ok := e.pulseIn.Pop()
	if !ok || p.Kind != clock.PulseStart || p.Time != 480 {
		t.Fatalf("pulse: %+v %v", p, ok)
	}
}

func TestManagerRuntimeStartsAndStops(t *testing.T) {
	m := NewManager(NewEngine(pattern.NewStore(pattern.VariantStepSeq), DefaultOptions()))
	m.StartRuntime()
	m.Play()
	select {
	case <-m.UpdateChan:
	case <-time.After(2 * time.Second):
		t.Fatalf("no UI update within 2s")
	}
	m.Shutdown()
	if m.Engine().Position() == 0 {
		t.Fatalf("render loop never ran")
	}
}
