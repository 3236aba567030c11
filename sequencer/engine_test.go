package sequencer

import (
	"sync"
	"testing"

	"go-stepseq/clock"
	"go-stepseq/modulation"
	"go-stepseq/pattern"
)

const period = 6000 // 120 BPM 16ths at 48 kHz

func newTestEngine(t *testing.T, st *pattern.Store) *Engine {
	t.Helper()
	opts := DefaultOptions()
	return NewEngine(st, opts)
}

func drain(e *Engine) []Event {
	var out []Event
	for {
		ev, ok := e.Events().Pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func render(e *Engine, frames int) {
	buf := make([]modulation.Output, 256)
	for frames > 0 {
		n := min(frames, len(buf))
		e.Process(buf[:n])
		frames -= n
	}
}

func TestEngineTwoTriggersPerLoop(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	st.Update(0, func(seq *pattern.Sequence) {
		seq.Length = 4
		seq.Direction = pattern.Forward
		for i := 0; i < 4; i++ {
			seq.Steps[i].Active = i == 0 || i == 2
			seq.Steps[i].Probability = pattern.MaxLevel
			seq.Steps[i].Ratchet = 1
		}
	})
	e := newTestEngine(t, st)
	e.Start()
	render(e, 3*4*period)

	evs := drain(e)
	if len(evs) != 6 {
		t.Fatalf("three loops should fire 6 triggers, got %d", len(evs))
	}
	for i, ev := range evs {
		wantIdx := 0
		if i%2 == 1 {
			wantIdx = 2
		}
		if ev.Index != wantIdx {
			t.Errorf("trigger %d at index %d, want %d", i, ev.Index, wantIdx)
		}
		if want := int64(i) * 2 * period; ev.Time != want {
			t.Errorf("trigger %d at sample %d, want %d", i, ev.Time, want)
		}
	}
}

func TestEngineSwingDelaysOddSteps(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	st.SetSwing(0, 0.75)
	e := newTestEngine(t, st)
	e.Start()
	render(e, 4*period)

	evs := drain(e)
	if len(evs) != 4 {
		t.Fatalf("got %d triggers", len(evs))
	}
	want := []int64{0, period + period/2, 2 * period, 3*period + period/2}
	for i, ev := range evs {
		if ev.Time != want[i] {
			t.Errorf("step %d fired at %d, want %d", i, ev.Time, want[i])
		}
	}
}

func TestEngineStopKeepsCursor(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.Start()
	render(e, 3*period) // steps 0, 1, 2
	e.Stop()
	render(e, period)
	if e.State() != Paused || e.Cursor() != 2 {
		t.Fatalf("after stop: %s cursor %d", e.State(), e.Cursor())
	}
	drain(e)
	e.Start()
	render(e, period)
	evs := drain(e)
	if len(evs) == 0 || evs[0].Index != 3 {
		t.Fatalf("resume should continue at step 3: %+v", evs)
	}
}

func TestEngineRatchetGateEnvelope(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	st.Update(0, func(seq *pattern.Sequence) {
		seq.Length = 1
		seq.Steps[0].Ratchet = 2
		seq.Steps[0].Gate = pattern.LevelOf(0.5)
	})
	e := newTestEngine(t, st)
	e.Start()
	out := make([]modulation.Output, period)
	e.Process(out)

	// two sub-triggers of 3000 samples, each gated for about 1500
	if out[1000].Gate != 1 || out[2000].Gate != 0 || out[4000].Gate != 1 || out[5000].Gate != 0 {
		t.Fatalf("gate shape wrong: %v %v %v %v", out[1000].Gate, out[2000].Gate, out[4000].Gate, out[5000].Gate)
	}
	if n := len(drain(e)); n != 2 {
		t.Fatalf("got %d sub-triggers", n)
	}
}

func TestEngineDepthScalesOutput(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	st.Update(0, func(seq *pattern.Sequence) {
		seq.Length = 1
		seq.Steps[0].Pitch = 12
	})
	e := newTestEngine(t, st)
	e.SetDepth(0.5)
	e.Start()
	render(e, 10)
	evs := drain(e)
	if len(evs) != 1 || evs[0].Frame.PitchSemitones != 6 {
		t.Fatalf("depth 0.5 should halve pitch: %+v", evs)
	}
}

func TestEngineTempoAndDivider(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.SetRateDivider(1) // 1/8
	e.Start()
	render(e, 4*period)
	if n := len(drain(e)); n != 2 {
		t.Fatalf("1/8 steps over four 16ths: got %d triggers", n)
	}
	e.SetTempo(1000)
	if e.Tempo() != clock.MaxTempo {
		t.Fatalf("tempo should clamp, got %f", e.Tempo())
	}
}

func TestEngineMIDIClock(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.SetClockMode(clock.ModeMIDI)
	e.PushPulse(clock.Pulse{Kind: clock.PulseStart, Time: 0})
	for i := int64(0); i < 24; i++ {
		e.PushPulse(clock.Pulse{Kind: clock.PulseClock, Time: i * 500})
	}
	render(e, 24*500)
	evs := drain(e)
	if len(evs) != 4 {
		t.Fatalf("24 pulses should play 4 steps, got %d", len(evs))
	}
	for i, ev := range evs {
		if ev.Time != int64(i)*3000 || ev.Index != i {
			t.Errorf("step %d: %+v", i, ev)
		}
	}

	e.PushPulse(clock.Pulse{Kind: clock.PulseStop, Time: 24 * 500})
	render(e, 10)
	if e.State() != Paused {
		t.Fatalf("MIDI stop should pause, got %s", e.State())
	}
}

func TestEngineMIDIClockLossFreeRuns(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.SetClockMode(clock.ModeMIDI)
	e.PushPulse(clock.Pulse{Kind: clock.PulseStart, Time: 0})
	for i := int64(0); i < 12; i++ {
		e.PushPulse(clock.Pulse{Kind: clock.PulseClock, Time: i * 500})
	}
	// pulses stop at 5500; free-run keeps the 3000 sample step going
	render(e, 6*3000)
	evs := drain(e)
	if len(evs) != 6 {
		t.Fatalf("expected 6 steps with free-run, got %d", len(evs))
	}
	if !e.FreeRunning() || e.Stats().FreeRuns != 1 {
		t.Fatalf("engine should report free-run")
	}
}

// Two 8-step patterns: every step of pattern 0 has a positive pitch and
// every step of pattern 1 a negative one. Pattern selection and step writes
// happen concurrently with rendering; a trigger must never mix the two.
func TestEngineRestartAfterClockLoss(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.SetClockMode(clock.ModeMIDI)
	e.PushPulse(clock.Pulse{Kind: clock.PulseStart, Time: 0})
	for i := int64(0); i < 12; i++ {
		e.PushPulse(clock.Pulse{Kind: clock.PulseClock, Time: i * 500})
	}
	render(e, 6*3000)
	if n := len(drain(e)); n != 6 || !e.FreeRunning() {
		t.Fatalf("before rewind: %d steps, free-run %v", n, e.FreeRunning())
	}

	e.Reset()
	e.Start()
	render(e, 10*3000)
	evs := drain(e)
	if len(evs) != 10 {
		t.Fatalf("rewind with the clock lost should keep playing, got %d steps", len(evs))
	}
	if evs[0].Index != 0 {
		t.Errorf("restart should play step 0 first: %+v", evs[0])
	}
	for i := 1; i < len(evs); i++ {
		if d := evs[i].Time - evs[i-1].Time; d != 3000 {
			t.Errorf("step %d spacing %d, want 3000", i, d)
		}
	}
}

func TestEngineClockSwitchIgnoresStalePulses(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	e := newTestEngine(t, st)
	e.Start()

	// Internal clock while a MIDI clock keeps arriving.
	var ts int64
	for ; ts < 20*48000; ts += 500 {
		e.PushPulse(clock.Pulse{Kind: clock.PulseClock, Time: ts})
		if ts%48000 == 0 {
			render(e, 48000)
		}
	}
	render(e, 1)
	drain(e)
	if d := e.Stats().PulseDropped; d != 0 {
		t.Fatalf("pulses should be discarded on the internal clock, %d dropped", d)
	}

	e.SetClockMode(clock.ModeMIDI)
	for i := int64(0); i < 96; i++ {
		e.PushPulse(clock.Pulse{Kind: clock.PulseClock, Time: ts + i*500})
	}
	render(e, 96*500)
	if n := len(drain(e)); n != 16 {
		t.Fatalf("one second of clock should play 16 steps, got %d", n)
	}
}

func TestEngineConcurrentPatternSwitch(t *testing.T) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	for p := 0; p < 2; p++ {
		st.Update(p, func(seq *pattern.Sequence) {
			seq.Length = 8
			for i := 0; i < 8; i++ {
				seq.Steps[i] = pattern.DefaultStep()
				seq.Steps[i].Pitch = 1 - 2*p
			}
		})
	}
	e := NewEngine(st, Options{SampleRate: 48000, Tempo: 300, Depth: 1, Seed: 1})
	e.Start()

	const blocks = 4000
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf := make([]modulation.Output, 64)
		for i := 0; i < blocks; i++ {
			e.Process(buf)
		}
		close(done)
	}()

	var bad, seen int
	writer := 0
loop:
	for {
		select {
		case <-done:
			break loop
		default:
		}
		p := writer % 2
		sign := 1 - 2*p
		st.SetStep(p, writer%8, pattern.Step{Pitch: sign * (1 + writer%24), Gate: 512, Ratchet: 1, Probability: pattern.MaxLevel, Active: true})
		st.SelectPattern(p)
		writer++

		for {
			ev, ok := e.Events().Pop()
			if !ok {
				break
			}
			seen++
			if (ev.Pattern == 0) != (ev.Frame.PitchSemitones > 0) {
				bad++
			}
		}
	}
	wg.Wait()
	if bad != 0 {
		t.Fatalf("%d of %d triggers came from a half-switched pattern", bad, seen)
	}
}

func BenchmarkEngineProcess(b *testing.B) {
	st := pattern.NewStore(pattern.VariantStepSeq)
	st.Update(0, func(seq *pattern.Sequence) {
		for i := range seq.Steps {
			seq.Steps[i].Ratchet = 4
		}
	})
	e := NewEngine(st, DefaultOptions())
	e.Start()
	buf := make([]modulation.Output, 128)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Process(buf)
		for {
			if _, ok := e.Events().Pop(); !ok {
				break
			}
		}
	}
}
