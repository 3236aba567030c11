package pattern

import "math"

// Level is a 10-bit normalized parameter value, 0..1023.
type Level uint16

const MaxLevel Level = 1023

// Step field ranges
const (
	MinPitch   = -24
	MaxPitch   = 24
	MinRatchet = 1
	MaxRatchet = 4
)

// ClampLevel clamps an integer parameter value into 0..1023.
func ClampLevel(v int) Level {
	if v < 0 {
		return 0
	}
	if v > int(MaxLevel) {
		return MaxLevel
	}
	return Level(v)
}

// LevelOf converts a normalized 0..1 value to the nearest level.
func LevelOf(f float64) Level {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return MaxLevel
	}
	return Level(f*float64(MaxLevel) + 0.5)
}

// Float returns the level as 0..1.
func (l Level) Float() float64 {
	if l > MaxLevel {
		l = MaxLevel
	}
	return float64(l) / float64(MaxLevel)
}

// Step is one slot in a sequence.
type Step struct {
	Pitch       int   `json:"pitch"`       // semitones, -24..24
	FilterMod   Level `json:"filterMod"`   // also the glide target on 128-step patterns
	Gate        Level `json:"gate"`        // fraction of the step slot
	Ratchet     int   `json:"ratchet"`     // sub-triggers per step, 1..4
	Probability Level `json:"probability"` // chance the step fires
	Active      bool  `json:"active"`
}

// DefaultStep matches a freshly initialised unit: centred filter, 3/4 gate,
// single trigger, always fires.
func DefaultStep() Step {
	return Step{
		FilterMod:   LevelOf(0.5),
		Gate:        LevelOf(0.75),
		Ratchet:     1,
		Probability: MaxLevel,
		Active:      true,
	}
}

// Clamp returns s with every field forced into its declared range.
func (s Step) Clamp() Step {
	s.Pitch = clampInt(s.Pitch, MinPitch, MaxPitch)
	s.FilterMod = ClampLevel(int(s.FilterMod))
	s.Gate = ClampLevel(int(s.Gate))
	s.Ratchet = clampInt(s.Ratchet, MinRatchet, MaxRatchet)
	s.Probability = ClampLevel(int(s.Probability))
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
