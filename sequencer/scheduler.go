package sequencer

import (
	"math/rand/v2"
	"sync/atomic"

	"go-stepseq/modulation"
	"go-stepseq/pattern"
	"go-stepseq/swing"
)

// State is the transport state of a Scheduler.
type State uint8

const (
	Idle State = iota
	Running
	Paused
)

var stateNames = [...]string{"Idle", "Running", "Paused"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Idle"
}

// Event is one sub-trigger handed to the output side.
type Event struct {
	Time    int64            `json:"time"`    // sample time the trigger fires
	Step    uint64           `json:"step"`    // boundary number since the last reset
	Index   int              `json:"index"`   // cursor position in the pattern
	Sub     int              `json:"sub"`     // ratchet repeat, 0-based
	Ratchet int              `json:"ratchet"` // repeats in this step
	Pattern int              `json:"pattern"`
	Frame   modulation.Frame `json:"frame"`
}

// Result describes what one boundary produced.
type Result struct {
	Index  int     // resolved cursor position, -1 when not running
	Rest   bool    // the step was inactive or lost its probability draw
	Events []Event // sub-triggers, valid until the next call
}

// Scheduler is the playback cursor. It is owned by the audio path: every
// method except Faults must be called from that goroutine.
type Scheduler struct {
	rng *rand.Rand

	state     State
	cursor    int
	travel    int // +1 or -1, PingPong only
	primed    bool
	selection uint64

	subs   [pattern.MaxRatchet]Event
	faults atomic.Uint64
}

// NewScheduler returns an Idle scheduler drawing from rng.
func NewScheduler(rng *rand.Rand) *Scheduler {
	s := &Scheduler{rng: rng}
	s.reset()
	return s
}

// State returns the transport state.
func (s *Scheduler) State() State { return s.state }

// Cursor returns the position of the last resolved step.
func (s *Scheduler) Cursor() int { return s.cursor }

// Faults counts boundaries skipped because the pattern was malformed.
func (s *Scheduler) Faults() uint64 { return s.faults.Load() }

// Start moves Idle to Running with a fresh cursor and resumes a Paused
// scheduler where it stopped.
func (s *Scheduler) Start() {
	switch s.state {
	case Idle:
		s.reset()
		s.state = Running
	case Paused:
		s.state = Running
	}
}

// Stop pauses a Running scheduler. The cursor is kept.
func (s *Scheduler) Stop() {
	if s.state == Running {
		s.state = Paused
	}
}

// Reset forces Idle and rewinds the cursor.
func (s *Scheduler) Reset() {
	s.state = Idle
	s.reset()
}

func (s *Scheduler) reset() {
	s.cursor = 0
	s.travel = 1
	s.primed = true
}

// Step resolves one swung boundary against snap.
//
// A new pattern selection rewinds the cursor. A Running scheduler keeps
// running from step 0; a Paused one drops to Idle.
func (s *Scheduler) Step(snap *pattern.Snapshot, tr swing.Trigger, depth float64) Result {
	if snap.Selection != s.selection {
		s.selection = snap.Selection
		s.reset()
		if s.state == Paused {
			s.state = Idle
		}
	}
	if s.state != Running {
		return Result{Index: -1}
	}

	seq := &snap.Sequence
	if !seq.Valid() {
		s.faults.Add(1)
		s.reset()
		return Result{Index: -1, Rest: true}
	}

	idx := s.advance(seq)
	st := seq.Steps[idx]
	res := Result{Index: idx}
	if !st.Active || !s.fires(st.Probability) {
		res.Rest = true
		return res
	}

	n := max(pattern.MinRatchet, min(st.Ratchet, pattern.MaxRatchet))
	sub := tr.Slot / float64(n)
	for k := 0; k < n; k++ {
		s.subs[k] = Event{
			Time:    tr.Time + int64(float64(k)*sub+0.5),
			Step:    tr.Step,
			Index:   idx,
			Sub:     k,
			Ratchet: n,
			Pattern: snap.Pattern,
			Frame:   modulation.Map(st, depth, sub),
		}
	}
	res.Events = s.subs[:n]
	return res
}

// advance moves the cursor for one boundary and returns it. The first
// boundary after a reset plays the current position.
func (s *Scheduler) advance(seq *pattern.Sequence) int {
	l := seq.Length
	if s.cursor >= l {
		s.cursor = l - 1
	}
	if s.primed {
		s.primed = false
		return s.cursor
	}

	switch seq.Direction {
	case pattern.Forward:
		s.cursor = (s.cursor + 1) % l
	case pattern.Reverse:
		s.cursor--
		if s.cursor < 0 {
			s.cursor = l - 1
		}
	case pattern.PingPong:
		next := s.cursor + s.travel
		if next >= l {
			s.travel = -1
			next = max(0, s.cursor-1)
		} else if next < 0 {
			s.travel = 1
			next = min(1, l-1)
		}
		s.cursor = next
	case pattern.Random:
		s.cursor = s.rng.IntN(l)
	default:
		s.cursor = (s.cursor + 1) % l
	}
	return s.cursor
}

// fires draws against a probability level. Level 0 never fires and the
// maximum level always does, without consuming a draw.
func (s *Scheduler) fires(p pattern.Level) bool {
	switch {
	case p == 0:
		return false
	case p >= pattern.MaxLevel:
		return true
	}
	return s.rng.Float64() < p.Float()
}
