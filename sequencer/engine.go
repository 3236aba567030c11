package sequencer

import (
	"math"
	"sync"
	"sync/atomic"

	"go-stepseq/clock"
	"go-stepseq/modulation"
	"go-stepseq/pattern"
	"go-stepseq/ring"
	"go-stepseq/swing"
	"go-stepseq/xorshift"
)

// Options configures an Engine.
type Options struct {
	SampleRate    int
	Tempo         float64
	RateDivider   int // index into clock.Dividers
	Seed          uint32
	Depth         float64
	Smooth        float64
	Glide         bool // follow step values smoothly instead of holding them
	ClockMode     clock.Mode
	PulsesPerStep int
}

// DefaultOptions matches a freshly loaded unit.
func DefaultOptions() Options {
	return Options{
		SampleRate:    48000,
		Tempo:         120,
		Seed:          xorshift.DefaultSeed,
		Depth:         1,
		Smooth:        0.25,
		PulsesPerStep: clock.DefaultPulsesPerStep,
	}
}

type command uint8

const (
	cmdStart command = iota + 1
	cmdStop
	cmdReset
)

// pendingCap bounds sub-triggers waiting for their sample. Swing can hold
// the tail of one step while the next boundary adds up to MaxRatchet more.
const pendingCap = 4 * pattern.MaxRatchet

// Engine is the real-time half of the sequencer. Process renders frames on
// the audio goroutine; every other method is safe to call from elsewhere and
// only takes effect at the start of the next Process call.
type Engine struct {
	store *pattern.Store
	sched *Scheduler

	sampleRate int
	internal   *clock.Internal
	pulses     *clock.PulseAdapter
	follower   *modulation.Follower
	now        int64

	pending  [pendingCap]Event
	npending int

	// control inputs
	ctlMu    sync.Mutex
	commands *ring.Ring[command]
	pulseIn  *ring.Ring[clock.Pulse]
	tempo    atomic.Uint64 // float64 bits
	divider  atomic.Int32
	depth    atomic.Uint64 // float64 bits
	smooth   atomic.Uint64 // float64 bits
	glide    atomic.Bool
	mode     atomic.Int32
	playing  atomic.Bool

	// outputs read by other goroutines
	events    *ring.Ring[Event]
	state     atomic.Uint32
	cursor    atomic.Int32
	pattern   atomic.Int32
	position  atomic.Int64
	triggers  atomic.Uint64
	overflows atomic.Uint64

	lastTempo   float64
	lastDivider int
	lastSmooth  float64
	lastGlide   bool
	activeMode  clock.Mode
}

// NewEngine builds an engine reading patterns from store.
func NewEngine(store *pattern.Store, opts Options) *Engine {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 48000
	}
	e := &Engine{
		store:      store,
		sched:      NewScheduler(xorshift.NewRand(opts.Seed)),
		sampleRate: opts.SampleRate,
		internal:   clock.NewInternal(opts.SampleRate, opts.Tempo),
		follower:   modulation.NewFollower(opts.SampleRate),
		commands:   ring.New[command](64),
		pulseIn:    ring.New[clock.Pulse](1024),
		events:     ring.New[Event](1024),
		lastSmooth: -1,
	}
	e.pulses = clock.NewPulseAdapter(opts.PulsesPerStep, e.internal.Period())
	e.SetTempo(opts.Tempo)
	e.SetRateDivider(opts.RateDivider)
	e.SetDepth(opts.Depth)
	e.SetSmooth(opts.Smooth)
	e.SetGlide(opts.Glide || store.Variant() == pattern.VariantAdvSeq)
	e.SetClockMode(opts.ClockMode)
	e.activeMode = e.ClockMode()
	e.cursor.Store(-1)
	return e
}

// Store returns the pattern store the engine plays.
func (e *Engine) Store() *pattern.Store { return e.store }

// SampleRate returns the rendering rate.
func (e *Engine) SampleRate() int { return e.sampleRate }

// Start begins playback from step 0, or resumes after Stop.
func (e *Engine) Start() {
	e.playing.Store(true)
	e.send(cmdStart)
}

// Stop pauses playback and keeps the cursor.
func (e *Engine) Stop() {
	e.playing.Store(false)
	e.send(cmdStop)
}

// Reset stops playback and rewinds to step 0.
func (e *Engine) Reset() {
	e.playing.Store(false)
	e.send(cmdReset)
}

// Playing reports the last requested transport state. Unlike State it
// changes immediately, before the audio path has picked the request up.
func (e *Engine) Playing() bool { return e.playing.Load() }

func (e *Engine) send(c command) {
	e.ctlMu.Lock()
	e.commands.Push(c)
	e.ctlMu.Unlock()
}

// SetTempo sets the internal clock BPM (clamped 20..300).
func (e *Engine) SetTempo(bpm float64) {
	e.tempo.Store(math.Float64bits(clock.ClampTempo(bpm)))
}

// Tempo returns the internal clock BPM.
func (e *Engine) Tempo() float64 { return math.Float64frombits(e.tempo.Load()) }

// SetRateDivider selects the step length, 0..4 for 1/16 up to 1/1.
func (e *Engine) SetRateDivider(idx int) {
	e.divider.Store(int32(max(0, min(idx, len(clock.Dividers)-1))))
}

// RateDivider returns the selected divider index.
func (e *Engine) RateDivider() int { return int(e.divider.Load()) }

// SetDepth sets the global modulation depth, 0..1.
func (e *Engine) SetDepth(v float64) { e.depth.Store(math.Float64bits(clamp01(v))) }

// Depth returns the global modulation depth.
func (e *Engine) Depth() float64 { return math.Float64frombits(e.depth.Load()) }

// SetSmooth sets the glide amount, 0..1.
func (e *Engine) SetSmooth(v float64) { e.smooth.Store(math.Float64bits(clamp01(v))) }

// Smooth returns the glide amount.
func (e *Engine) Smooth() float64 { return math.Float64frombits(e.smooth.Load()) }

// SetGlide switches the continuous output between glide and hold.
func (e *Engine) SetGlide(on bool) { e.glide.Store(on) }

// SetClockMode selects the internal clock or external MIDI pulses.
func (e *Engine) SetClockMode(m clock.Mode) { e.mode.Store(int32(m)) }

// ClockMode returns the selected clock source.
func (e *Engine) ClockMode() clock.Mode { return clock.Mode(e.mode.Load()) }

// PushPulse queues a MIDI realtime message stamped on the sample timeline.
// One goroutine may push at a time.
func (e *Engine) PushPulse(p clock.Pulse) bool { return e.pulseIn.Push(p) }

// Events is the queue of fired sub-triggers. One consumer drains it.
func (e *Engine) Events() *ring.Ring[Event] { return e.events }

// State returns the transport state as of the last Process call.
func (e *Engine) State() State { return State(e.state.Load()) }

// Cursor returns the last resolved step index, or -1.
func (e *Engine) Cursor() int { return int(e.cursor.Load()) }

// Pattern returns the pattern index of the last resolved step.
func (e *Engine) Pattern() int { return int(e.pattern.Load()) }

// Position returns the sample time reached by Process.
func (e *Engine) Position() int64 { return e.position.Load() }

// Triggers counts fired sub-triggers.
func (e *Engine) Triggers() uint64 { return e.triggers.Load() }

// Stats are the anomaly counters of the audio path.
type Stats struct {
	Faults        uint64 // boundaries skipped on malformed patterns
	PulseRejected uint64 // clock pulses discarded as corrupt
	FreeRuns      uint64 // times the external clock was lost
	PulseDropped  uint64 // pulses lost to a full input queue
	EventDropped  uint64 // triggers lost to a full output queue
	Overflows     uint64 // triggers lost to a full pending list
}

// Stats returns the current anomaly counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Faults:        e.sched.Faults(),
		PulseRejected: e.pulses.Rejected(),
		FreeRuns:      e.pulses.FreeRuns(),
		PulseDropped:  e.pulseIn.Dropped(),
		EventDropped:  e.events.Dropped(),
		Overflows:     e.overflows.Load(),
	}
}

// FreeRunning reports whether the MIDI clock adapter lost its input.
func (e *Engine) FreeRunning() bool { return e.pulses.FreeRunning() }

// Process renders len(out) frames. It does not allocate or block.
func (e *Engine) Process(out []modulation.Output) {
	e.applyControls()
	src := e.source()
	external := e.activeMode == clock.ModeMIDI

	for i := range out {
		now := e.now
		if external {
			e.drainPulses(now)
		}
		if b, ok := src.Tick(now); ok {
			e.boundary(b)
		}
		e.fire(now)
		out[i] = e.follower.Next()
		e.now++
	}

	e.state.Store(uint32(e.sched.State()))
	e.position.Store(e.now)
}

func (e *Engine) source() clock.Source {
	if e.activeMode == clock.ModeMIDI {
		return e.pulses
	}
	return e.internal
}

func (e *Engine) applyControls() {
	for {
		c, ok := e.commands.Pop()
		if !ok {
			break
		}
		e.apply(c)
	}

	if t := e.Tempo(); t != e.lastTempo {
		e.internal.SetTempo(t)
		e.lastTempo = t
	}
	if d := clock.DividerAt(e.RateDivider()); d != e.lastDivider {
		e.internal.SetDivider(d)
		e.lastDivider = d
	}
	e.pulses.SetFallback(e.internal.Period())

	// A clock source switch restarts the new source's phase at the current
	// sample. Pulses that arrive while the internal clock runs are dropped.
	if m := e.ClockMode(); m != e.activeMode {
		e.activeMode = m
		if m == clock.ModeMIDI {
			e.pulses.Reset(e.now)
		} else {
			e.internal.Reset(e.now)
		}
	}
	if e.activeMode != clock.ModeMIDI {
		for {
			if _, ok := e.pulseIn.Pop(); !ok {
				break
			}
		}
	}

	glide := e.glide.Load()
	if s := e.Smooth(); s != e.lastSmooth || glide != e.lastGlide {
		if glide {
			e.follower.SetGlide(s)
		} else {
			e.follower.SetHold()
		}
		e.lastSmooth, e.lastGlide = s, glide
	}
}

func (e *Engine) apply(c command) {
	switch c {
	case cmdStart:
		wasIdle := e.sched.State() == Idle
		e.sched.Start()
		if wasIdle {
			e.internal.Reset(e.now)
			e.pulses.Reset(e.now)
			e.npending = 0
		}
	case cmdStop:
		e.sched.Stop()
		e.npending = 0
		e.follower.Release()
	case cmdReset:
		e.sched.Reset()
		e.npending = 0
		e.follower.Release()
		e.cursor.Store(-1)
	}
}

// drainPulses feeds queued pulses that are due by now into the adapter.
func (e *Engine) drainPulses(now int64) {
	for {
		p, ok := e.pulseIn.Peek()
		if !ok || p.Time > now {
			return
		}
		e.pulseIn.Pop()
		switch p.Kind {
		case clock.PulseClock:
			e.pulses.OnClockTick(p.Time)
		case clock.PulseStart:
			e.playing.Store(true)
			e.sched.Reset()
			e.apply(cmdStart)
		case clock.PulseStop:
			e.playing.Store(false)
			e.apply(cmdStop)
		case clock.PulseContinue:
			e.playing.Store(true)
			e.sched.Start()
		}
	}
}

func (e *Engine) boundary(b clock.Boundary) {
	snap := e.store.Active()
	tr := swing.Adjust(b, snap.Sequence.Swing)
	res := e.sched.Step(snap, tr, e.Depth())
	if res.Index >= 0 {
		e.cursor.Store(int32(res.Index))
		e.pattern.Store(int32(snap.Pattern))
	}
	if res.Rest {
		return
	}
	for _, ev := range res.Events {
		if e.npending == pendingCap {
			e.overflows.Add(1)
			continue
		}
		// pending stays sorted by time
		i := e.npending
		for i > 0 && e.pending[i-1].Time > ev.Time {
			e.pending[i] = e.pending[i-1]
			i--
		}
		e.pending[i] = ev
		e.npending++
	}
}

// fire emits every pending sub-trigger due at or before now, in order.
func (e *Engine) fire(now int64) {
	n := 0
	for n < e.npending && e.pending[n].Time <= now {
		ev := e.pending[n]
		e.follower.Trigger(ev.Frame)
		e.events.Push(ev)
		e.triggers.Add(1)
		n++
	}
	if n > 0 {
		copy(e.pending[:], e.pending[n:e.npending])
		e.npending -= n
	}
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
