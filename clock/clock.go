// Package clock turns a tempo signal into step boundaries on a sample
// timeline. Internal derives boundaries from the sample counter itself;
// PulseAdapter derives them from MIDI clock pulses and free-runs when the
// pulses stop.
package clock

import (
	"math"
	"time"
)

// Boundary is one resolved step boundary.
type Boundary struct {
	Step   uint64  // counts up from 0 after every Reset
	Time   int64   // sample timestamp of the undelayed boundary
	Period float64 // current step period in samples
}

// Source produces boundaries. Tick is called once per rendered sample with a
// non-decreasing timestamp.
type Source interface {
	Tick(now int64) (Boundary, bool)
	Reset(now int64)
	Period() float64
}

// Mode selects the clock source.
type Mode int

const (
	ModeInternal Mode = iota
	ModeMIDI
)

func (m Mode) String() string {
	if m == ModeMIDI {
		return "midi"
	}
	return "internal"
}

// ParseMode maps a config name to a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "", "internal":
		return ModeInternal, true
	case "midi":
		return ModeMIDI, true
	}
	return ModeInternal, false
}

// Tempo limits (BPM)
const (
	MinTempo = 20
	MaxTempo = 300
)

// Dividers are the selectable step lengths in 16ths: 1/16, 1/8, 1/4, 1/2, 1/1.
var Dividers = [...]int{1, 2, 4, 8, 16}

// ClampTempo forces bpm into [MinTempo, MaxTempo].
func ClampTempo(bpm float64) float64 {
	if math.IsNaN(bpm) || bpm < MinTempo {
		return MinTempo
	}
	if bpm > MaxTempo {
		return MaxTempo
	}
	return bpm
}

// DividerAt returns the divider for a RATEDIV position, clamped to the table.
func DividerAt(idx int) int {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(Dividers) {
		idx = len(Dividers) - 1
	}
	return Dividers[idx]
}

// StepPeriod is the length of a 16th note times divider, in samples.
func StepPeriod(sampleRate int, bpm float64, divider int) float64 {
	if divider < 1 {
		divider = 1
	}
	sixteenthsPerSec := ClampTempo(bpm) / 60 * 4
	return float64(sampleRate) / sixteenthsPerSec * float64(divider)
}

// Timebase maps wall-clock time onto the sample timeline.
type Timebase struct {
	Start      time.Time
	SampleRate int
}

// Samples returns the sample timestamp of t.
func (tb Timebase) Samples(t time.Time) int64 {
	return int64(t.Sub(tb.Start).Seconds() * float64(tb.SampleRate))
}

// Time is the inverse of Samples.
func (tb Timebase) Time(samples int64) time.Time {
	return tb.Start.Add(time.Duration(float64(samples) / float64(tb.SampleRate) * float64(time.Second)))
}
