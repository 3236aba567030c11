package clock

// Internal is a sample-accurate step clock. The step period is kept as a
// fraction of a sample so long runs do not drift.
type Internal struct {
	sampleRate int
	bpm        float64
	divider    int

	period float64
	next   float64 // sample time of the next boundary
	step   uint64
}

// NewInternal returns a clock at bpm with a 1/16 step.
func NewInternal(sampleRate int, bpm float64) *Internal {
	c := &Internal{sampleRate: sampleRate, bpm: ClampTempo(bpm), divider: 1}
	c.period = StepPeriod(sampleRate, c.bpm, c.divider)
	return c
}

// SetTempo changes the tempo. The boundary already scheduled is moved so the
// current step finishes at the new rate.
func (c *Internal) SetTempo(bpm float64) {
	c.retime(ClampTempo(bpm), c.divider)
}

// SetDivider changes the step length multiplier (1, 2, 4, 8 or 16).
func (c *Internal) SetDivider(d int) {
	if d < 1 {
		d = 1
	}
	c.retime(c.bpm, d)
}

func (c *Internal) retime(bpm float64, divider int) {
	if bpm == c.bpm && divider == c.divider {
		return
	}
	old := c.period
	c.bpm, c.divider = bpm, divider
	c.period = StepPeriod(c.sampleRate, bpm, divider)
	if c.step > 0 {
		c.next += c.period - old
	}
}

// Tempo returns the current BPM.
func (c *Internal) Tempo() float64 { return c.bpm }

// Period returns the step period in samples.
func (c *Internal) Period() float64 { return c.period }

// Reset makes now the boundary of step 0.
func (c *Internal) Reset(now int64) {
	c.next = float64(now)
	c.step = 0
}

// Tick reports a boundary when now reaches the next scheduled one.
func (c *Internal) Tick(now int64) (Boundary, bool) {
	if float64(now) < c.next {
		return Boundary{}, false
	}
	b := Boundary{Step: c.step, Time: now, Period: c.period}
	c.step++
	c.next += c.period
	if c.next <= float64(now) {
		// Fell behind by more than a step; realign instead of bursting.
		c.next = float64(now) + c.period
	}
	return b, true
}
