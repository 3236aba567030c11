package midi

import (
	"io"
	"math"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-stepseq/clock"
	"go-stepseq/modulation"
	"go-stepseq/pattern"
	"go-stepseq/sequencer"
)

// TicksPerQuarter is the resolution of exported files.
const TicksPerQuarter = 960

// Render plays the selected pattern of store offline on the internal clock
// for loops passes and returns every trigger. Rendering runs two steps past
// the last loop so swung and ratcheted tails are kept, and triggers of later
// boundaries are dropped. The store is not modified.
func Render(store *pattern.Store, opts sequencer.Options, loops int) []sequencer.Event {
	opts.ClockMode = clock.ModeInternal
	e := sequencer.NewEngine(store, opts)
	e.Start()

	seq := store.Active().Sequence
	period := clock.StepPeriod(e.SampleRate(), e.Tempo(), clock.DividerAt(e.RateDivider()))
	steps := uint64(loops * seq.Length)
	total := int64(math.Ceil(float64(steps+2) * period))

	var out []sequencer.Event
	buf := make([]modulation.Output, 256)
	for done := int64(0); done < total; {
		n := int(min(int64(len(buf)), total-done))
		e.Process(buf[:n])
		done += int64(n)
		for {
			ev, ok := e.Events().Pop()
			if !ok {
				break
			}
			if ev.Step < steps {
				out = append(out, ev)
			}
		}
	}
	return out
}

// BuildSMF converts rendered triggers into a two-track file: tempo and
// meter first, then the notes. Each note ends at its gate or at the next
// trigger, whichever comes first.
func BuildSMF(events []sequencer.Event, m Mapping, bpm float64) (*smf.SMF, error) {
	if m.SampleRate <= 0 {
		return nil, fault.New("sample rate not set",
			fmsg.WithDesc("bad mapping", "Export needs a sample rate."),
			ftag.With(ftag.InvalidArgument))
	}
	bpm = clock.ClampTempo(bpm)
	toTicks := func(samples int64) uint32 {
		return uint32(math.Round(float64(samples) * TicksPerQuarter * bpm / (60 * float64(m.SampleRate))))
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fault.Wrap(err, fmsg.With("add tempo track"))
	}

	var notes smf.Track
	var now uint32
	at := func(tick uint32, msg gomidi.Message) {
		notes.Add(tick-now, msg)
		now = tick
	}
	for i, ev := range events {
		on := max(toTicks(ev.Time), now)
		off := toTicks(ev.Time + int64(ev.Frame.GateSamples))
		if i+1 < len(events) {
			off = min(off, toTicks(events[i+1].Time))
		}
		off = max(off, on)

		cc, noteOn := m.Messages(ev)
		at(on, cc)
		at(on, noteOn)
		at(off, gomidi.NoteOff(m.Channel, m.Note(ev)))
	}
	notes.Close(0)
	if err := sm.Add(notes); err != nil {
		return nil, fault.Wrap(err, fmsg.With("add note track"))
	}
	return sm, nil
}

func build(store *pattern.Store, opts sequencer.Options, m Mapping, loops int) (*smf.SMF, int, error) {
	if loops < 1 {
		return nil, 0, fault.New("loops must be positive",
			fmsg.WithDesc("bad loop count", "Export needs at least one loop."),
			ftag.With(ftag.InvalidArgument))
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	m.SampleRate = opts.SampleRate

	events := Render(store, opts, loops)
	sm, err := BuildSMF(events, m, opts.Tempo)
	if err != nil {
		return nil, 0, err
	}
	return sm, len(events), nil
}

// Export renders loops passes of the selected pattern and writes them to w.
// It returns the number of notes written.
func Export(w io.Writer, store *pattern.Store, opts sequencer.Options, m Mapping, loops int) (int, error) {
	sm, n, err := build(store, opts, m, loops)
	if err != nil {
		return 0, err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return 0, fault.Wrap(err, fmsg.WithDesc("write smf", "Could not write the MIDI file."))
	}
	return n, nil
}

// ExportFile is Export to a file at path.
func ExportFile(path string, store *pattern.Store, opts sequencer.Options, m Mapping, loops int) (int, error) {
	sm, n, err := build(store, opts, m, loops)
	if err != nil {
		return 0, err
	}
	if err := sm.WriteFile(path); err != nil {
		return 0, fault.Wrap(err, fmsg.WithDesc("write smf", "Could not write "+path+"."))
	}
	return n, nil
}
