package midi

import (
	"math"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/sequencer"
)

// Mapping turns sequencer triggers into channel messages.
type Mapping struct {
	Channel    uint8 // 0-based
	RootNote   uint8
	FilterCC   uint8
	Velocity   uint8
	SampleRate int
}

// DefaultMapping plays on channel 1 around middle C.
func DefaultMapping() Mapping {
	return Mapping{Channel: 0, RootNote: 60, FilterCC: 74, Velocity: 100, SampleRate: 48000}
}

// Note returns the key for a trigger, clamped to 0..127.
func (m Mapping) Note(ev sequencer.Event) uint8 {
	n := int(m.RootNote) + int(math.Round(ev.Frame.PitchSemitones))
	return uint8(max(0, min(n, 127)))
}

// FilterValue scales the filter coefficient to a 7-bit controller value.
func (m Mapping) FilterValue(ev sequencer.Event) uint8 {
	v := int(math.Round(ev.Frame.FilterCoefficient * 127))
	return uint8(max(0, min(v, 127)))
}

// Gate converts the trigger's gate length to wall time.
func (m Mapping) Gate(ev sequencer.Event) time.Duration {
	if m.SampleRate <= 0 {
		return 0
	}
	return time.Duration(ev.Frame.GateSamples) * time.Second / time.Duration(m.SampleRate)
}

// Messages returns the controller and note-on pair for a trigger, in send
// order.
func (m Mapping) Messages(ev sequencer.Event) (cc, on gomidi.Message) {
	cc = gomidi.ControlChange(m.Channel, m.FilterCC, m.FilterValue(ev))
	on = gomidi.NoteOn(m.Channel, m.Note(ev), m.Velocity)
	return cc, on
}
