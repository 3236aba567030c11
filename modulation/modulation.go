// Package modulation converts resolved steps into the values the synth
// consumes: a pitch offset, a filter coefficient and a gate.
package modulation

import (
	"math"

	"go-stepseq/pattern"
)

// Frame is what one sub-trigger hands to the DSP path.
type Frame struct {
	PitchSemitones    float64 `json:"pitchSemitones"`
	FilterCoefficient float64 `json:"filterCoefficient"` // 0..1
	GateSamples       int     `json:"gateSamples"`
}

// Map resolves a step. depth (0..1) scales pitch and filter linearly toward
// zero. slot is the sub-trigger's duration in samples at the current tempo,
// and the gate is a fraction of it.
func Map(st pattern.Step, depth, slot float64) Frame {
	depth = clamp01(depth)
	gate := 0
	if st.Gate > 0 && slot > 0 {
		gate = max(1, int(math.Round(st.Gate.Float()*slot)))
	}
	return Frame{
		PitchSemitones:    float64(st.Pitch) * depth,
		FilterCoefficient: st.FilterMod.Float() * depth,
		GateSamples:       gate,
	}
}

// Cutoff range of the downstream filter, Hz.
const (
	MinCutoff = 50.0
	MaxCutoff = 15000.0
)

// CutoffHz maps a filter coefficient onto the filter's cutoff range.
func CutoffHz(coef float64) float64 {
	return MinCutoff + clamp01(coef)*(MaxCutoff-MinCutoff)
}

// GlideCoefficient maps SMOOTH (0..1) to the per-sample follow rate.
func GlideCoefficient(smooth float64) float64 {
	return 0.001 + clamp01(smooth)*0.099
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
