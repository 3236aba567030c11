package clock

import (
	"math"
	"sync/atomic"
)

// PulseKind is the MIDI realtime message a Pulse carries.
type PulseKind uint8

const (
	PulseClock PulseKind = iota
	PulseStart
	PulseStop
	PulseContinue
)

// Pulse is one realtime message stamped on the sample timeline.
type Pulse struct {
	Kind PulseKind
	Time int64
}

// PPQN is the MIDI clock resolution. Six pulses make a 16th.
const (
	PPQN                 = 24
	DefaultPulsesPerStep = PPQN / 4
)

// Window is the number of inter-pulse intervals averaged.
const Window = 8

// PulseAdapter derives step boundaries from MIDI clock pulses.
//
// Pulse intervals are averaged over Window pulses. A pulse arriving sooner
// than half the running average is discarded as corrupt. When no pulse has
// arrived for more than two average intervals the adapter free-runs at the
// last measured tempo, and the next real pulse starts a fresh step. After a
// Reset the adapter waits two pulse intervals for the clock, then free-runs
// from step 0 at the last measured tempo, or at the fallback period when
// nothing has been measured yet.
type PulseAdapter struct {
	pulsesPerStep int
	fallback      float64 // step period used before any interval is measured

	intervals [Window]float64
	filled    int
	pos       int
	sum       float64

	havePulse bool
	lastPulse int64
	waiting   bool // reset, no pulse seen since
	waitFrom  int64
	count     int // pulses since the last boundary

	freeRun      bool
	lastBoundary int64
	step         uint64

	pending    bool
	pendingAt  int64
	rejected   atomic.Uint64
	freeRuns   atomic.Uint64
	freeRunNow atomic.Bool
}

// NewPulseAdapter returns an adapter emitting a boundary every pulsesPerStep
// pulses. fallbackPeriod is the step period in samples used until the first
// interval has been measured.
func NewPulseAdapter(pulsesPerStep int, fallbackPeriod float64) *PulseAdapter {
	if pulsesPerStep < 1 {
		pulsesPerStep = DefaultPulsesPerStep
	}
	return &PulseAdapter{pulsesPerStep: pulsesPerStep, fallback: fallbackPeriod}
}

// SetFallback replaces the step period used before any pulse arrived.
func (p *PulseAdapter) SetFallback(period float64) {
	p.fallback = period
}

// Average returns the smoothed pulse interval in samples, or 0 before two
// pulses have been seen.
func (p *PulseAdapter) Average() float64 {
	if p.filled == 0 {
		return 0
	}
	return p.sum / float64(p.filled)
}

// Period returns the step period derived from the average interval.
func (p *PulseAdapter) Period() float64 {
	if avg := p.Average(); avg > 0 {
		return avg * float64(p.pulsesPerStep)
	}
	return p.fallback
}

// Rejected counts pulses discarded as corrupt.
func (p *PulseAdapter) Rejected() uint64 { return p.rejected.Load() }

// FreeRuns counts how often the adapter lost the external clock.
func (p *PulseAdapter) FreeRuns() uint64 { return p.freeRuns.Load() }

// FreeRunning reports whether the adapter is currently generating its own
// boundaries.
func (p *PulseAdapter) FreeRunning() bool { return p.freeRunNow.Load() }

// Reset restarts the pulse phase; the next pulse is step 0. The measured
// tempo is kept.
func (p *PulseAdapter) Reset(now int64) {
	p.count = 0
	p.step = 0
	p.pending = false
	p.waiting = true
	p.waitFrom = now
	p.lastBoundary = now
	p.setFreeRun(false)
}

// pulseInterval is the expected gap between pulses in samples.
func (p *PulseAdapter) pulseInterval() float64 {
	if avg := p.Average(); avg > 0 {
		return avg
	}
	return p.fallback / float64(p.pulsesPerStep)
}

// OnClockTick feeds one timing clock pulse.
func (p *PulseAdapter) OnClockTick(ts int64) {
	resync := p.freeRun || p.waiting || !p.havePulse
	if !resync {
		iv := float64(ts - p.lastPulse)
		if avg := p.Average(); avg > 0 && iv < avg/2 {
			p.rejected.Add(1)
			return
		}
		p.push(iv)
	}
	p.havePulse = true
	p.waiting = false
	p.lastPulse = ts

	if resync {
		p.setFreeRun(false)
		p.count = 0
	}
	if p.count == 0 {
		p.pending = true
		p.pendingAt = ts
	}
	p.count++
	if p.count >= p.pulsesPerStep {
		p.count = 0
	}
}

func (p *PulseAdapter) push(iv float64) {
	if p.filled == Window {
		p.sum -= p.intervals[p.pos]
	} else {
		p.filled++
	}
	p.intervals[p.pos] = iv
	p.sum += iv
	p.pos = (p.pos + 1) % Window
}

func (p *PulseAdapter) setFreeRun(on bool) {
	if on && !p.freeRun {
		p.freeRuns.Add(1)
	}
	p.freeRun = on
	p.freeRunNow.Store(on)
}

// Tick emits the boundary of a pending pulse or, while free-running, a
// boundary every Period samples after the last one. Free-run boundaries stay
// on the grid of the last real one even when noticed late.
func (p *PulseAdapter) Tick(now int64) (Boundary, bool) {
	if p.pending {
		p.pending = false
		return p.emit(p.pendingAt), true
	}
	if p.waiting {
		iv := p.pulseInterval()
		if iv <= 0 || float64(now-p.waitFrom) <= 2*iv {
			return Boundary{}, false
		}
		p.waiting = false
		p.setFreeRun(true)
		return p.emit(now), true
	}
	avg := p.Average()
	if !p.freeRun {
		if !p.havePulse || avg == 0 || float64(now-p.lastPulse) <= 2*avg {
			return Boundary{}, false
		}
		p.setFreeRun(true)
	}
	due := p.lastBoundary + int64(math.Round(p.Period()))
	if now < due {
		return Boundary{}, false
	}
	return p.emit(due), true
}

func (p *PulseAdapter) emit(at int64) Boundary {
	b := Boundary{Step: p.step, Time: at, Period: p.Period()}
	p.step++
	p.lastBoundary = at
	return b
}
