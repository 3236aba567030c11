// Package swing shifts alternate step boundaries for a shuffled feel.
//
// At amount 0.5 nothing moves. Above 0.5 odd steps are delayed by
// 2*(amount-0.5) of the step period, so 0.75 puts them half a period late.
// Below 0.5 the even steps are delayed by the mirrored amount instead, which
// keeps every trigger at or after its raw boundary.
package swing

import (
	"math"

	"go-stepseq/clock"
	"go-stepseq/pattern"
)

// maxDelay caps the delay below one full period so a step never reaches the
// next step's raw boundary.
const maxDelay = 0.999

// Trigger is a swung step boundary.
type Trigger struct {
	Step uint64
	Time int64   // adjusted trigger time in samples
	Slot float64 // samples until the next step's adjusted trigger
}

// Delay returns the delay of boundary step n as a fraction of the period.
func Delay(step uint64, amount float64) float64 {
	a := pattern.ClampSwing(amount)
	var d float64
	switch {
	case step%2 == 1 && a > 0.5:
		d = 2 * (a - 0.5)
	case step%2 == 0 && a < 0.5:
		d = 2 * (0.5 - a)
	}
	return math.Min(d, maxDelay)
}

// Adjust applies swing to a raw boundary.
func Adjust(b clock.Boundary, amount float64) Trigger {
	d := Delay(b.Step, amount)
	next := Delay(b.Step+1, amount)
	return Trigger{
		Step: b.Step,
		Time: b.Time + int64(math.Round(d*b.Period)),
		Slot: b.Period * (1 - d + next),
	}
}
