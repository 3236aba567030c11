package params

import (
	"math/rand/v2"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"go-stepseq/clock"
	"go-stepseq/pattern"
	"go-stepseq/transform"
	"go-stepseq/xorshift"
)

// Engine is the part of the playback engine the host drives.
type Engine interface {
	Start()
	Stop()
	Playing() bool
	SetDepth(float64)
	Depth() float64
	SetSmooth(float64)
	Smooth() float64
	SetRateDivider(int)
	RateDivider() int
	SetClockMode(clock.Mode)
	ClockMode() clock.Mode
}

// Host maps integer parameter writes onto the pattern store and the engine.
// All calls come from the edit context.
type Host struct {
	mu      sync.Mutex
	table   Table
	variant pattern.Variant
	store   *pattern.Store
	engine  Engine
	rng     *rand.Rand

	editStep int
	mix      int
}

// NewHost builds a host for the store's variant. seed drives the random
// transform operations.
func NewHost(store *pattern.Store, engine Engine, seed uint32) *Host {
	h := &Host{
		variant: store.Variant(),
		store:   store,
		engine:  engine,
		rng:     xorshift.NewRand(seed),
		mix:     768,
	}
	h.table = TableFor(h.variant)
	return h
}

// TableFor returns the parameter table of a variant.
func TableFor(v pattern.Variant) Table {
	if v == pattern.VariantAdvSeq {
		return AdvSeq
	}
	return StepSeq
}

func (h *Host) Table() Table { return h.table }

func (h *Host) Store() *pattern.Store { return h.store }

// EditStep returns the step that per-step parameters currently address.
func (h *Host) EditStep() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.editStep
}

// Mix returns the stored dry/wet amount. The host has no audio path, the
// value is kept for readback only.
func (h *Host) Mix() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mix
}

func (h *Host) lookup(id int) (Param, error) {
	p, ok := h.table.Lookup(id)
	if !ok {
		return Param{}, fault.New("unknown parameter",
			fmsg.WithDesc("unknown parameter", "No such parameter."),
			ftag.With(ftag.NotFound))
	}
	return p, nil
}

// Set clamps value into the parameter's range and applies it. Only an
// unknown id is an error.
func (h *Host) Set(id, value int) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	v := p.Clamp(value)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.variant == pattern.VariantAdvSeq {
		h.setAdv(id, v)
	} else {
		h.setStep(id, v)
	}
	return nil
}

// SetScaled applies a 7-bit controller value.
func (h *Host) SetScaled(id int, cc uint8) error {
	p, err := h.lookup(id)
	if err != nil {
		return err
	}
	return h.Set(id, p.Scale(cc))
}

func (h *Host) setStep(id, v int) {
	sel := h.store.Selected()
	switch id {
	case StepPlay:
		if v != 0 {
			h.engine.Start()
		} else {
			h.engine.Stop()
		}
	case StepStep:
		h.editStep = v
	case StepPitch:
		h.editSelected(sel, func(st *pattern.Step) { st.Pitch = v })
	case StepFilter:
		h.editSelected(sel, func(st *pattern.Step) { st.FilterMod = pattern.Level(v) })
	case StepGate:
		h.editSelected(sel, func(st *pattern.Step) { st.Gate = pattern.Level(v) })
	case StepRatchet:
		h.editSelected(sel, func(st *pattern.Step) { st.Ratchet = v + 1 })
	case StepProb:
		h.editSelected(sel, func(st *pattern.Step) { st.Probability = pattern.Level(v) })
	case StepActive:
		h.editSelected(sel, func(st *pattern.Step) { st.Active = v != 0 })
	case StepLength:
		h.store.SetLength(sel, v+1)
	case StepSwing:
		h.store.SetSwing(sel, pattern.SwingFromLevel(pattern.Level(v)))
	case StepPattern:
		h.store.SelectPattern(v)
	case StepDirection:
		h.store.SetDirection(sel, pattern.DirectionOf(v))
	}
}

func (h *Host) editSelected(p int, fn func(st *pattern.Step)) {
	i := h.editStep
	h.store.Update(p, func(seq *pattern.Sequence) { fn(&seq.Steps[i]) })
}

func (h *Host) setAdv(id, v int) {
	sel := h.store.Selected()
	switch id {
	case AdvClock:
		h.engine.SetClockMode(clock.Mode(v))
	case AdvSeqLen:
		h.store.SetLength(sel, v)
	case AdvSliceLen:
		h.store.SetSliceLength(sel, v)
	case AdvSmooth:
		h.engine.SetSmooth(pattern.Level(v).Float())
	case AdvDepth:
		h.engine.SetDepth(pattern.Level(v).Float())
	case AdvOper:
		h.store.Update(sel, func(seq *pattern.Sequence) {
			if int(seq.Operation) == v {
				return
			}
			*seq = transform.Apply(transform.Op(v), *seq, h.rng)
			seq.Operation = uint8(v)
		})
	case AdvShift:
		h.store.Update(sel, func(seq *pattern.Sequence) {
			if d := v - seq.Shift; d != 0 {
				*seq = transform.Shift(*seq, d)
			}
			seq.Shift = v
		})
	case AdvRateDiv:
		h.engine.SetRateDivider(v)
	case AdvSwing:
		h.store.SetSwing(sel, pattern.SwingFromLevel(pattern.Level(v)))
	case AdvMix:
		h.mix = v
	}
}

// Get reads a parameter back in its integer range.
func (h *Host) Get(id int) (int, error) {
	if _, err := h.lookup(id); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sel := h.store.Selected()
	seq := h.store.Sequence(sel)
	if h.variant == pattern.VariantAdvSeq {
		return h.getAdv(id, &seq), nil
	}
	return h.getStep(id, sel, &seq), nil
}

func (h *Host) getStep(id, sel int, seq *pattern.Sequence) int {
	st := seq.Steps[h.editStep]
	switch id {
	case StepPlay:
		return boolInt(h.engine.Playing())
	case StepStep:
		return h.editStep
	case StepPitch:
		return st.Pitch
	case StepFilter:
		return int(st.FilterMod)
	case StepGate:
		return int(st.Gate)
	case StepRatchet:
		return st.Ratchet - 1
	case StepProb:
		return int(st.Probability)
	case StepActive:
		return boolInt(st.Active)
	case StepLength:
		return seq.Length - 1
	case StepSwing:
		return int(pattern.SwingLevel(seq.Swing))
	case StepPattern:
		return sel
	case StepDirection:
		return int(seq.Direction)
	}
	return 0
}

func (h *Host) getAdv(id int, seq *pattern.Sequence) int {
	switch id {
	case AdvClock:
		return int(h.engine.ClockMode())
	case AdvSeqLen:
		return seq.Length
	case AdvSliceLen:
		return seq.SliceLength
	case AdvSmooth:
		return int(pattern.LevelOf(h.engine.Smooth()))
	case AdvDepth:
		return int(pattern.LevelOf(h.engine.Depth()))
	case AdvOper:
		return int(seq.Operation)
	case AdvShift:
		return seq.Shift
	case AdvRateDiv:
		return h.engine.RateDivider()
	case AdvSwing:
		return int(pattern.SwingLevel(seq.Swing))
	case AdvMix:
		return h.mix
	}
	return 0
}

// Display renders a value for the screen. Unknown ids render empty.
func (h *Host) Display(id, value int) string {
	p, ok := h.table.Lookup(id)
	if !ok {
		return ""
	}
	return p.Display(value)
}

// Value is one row of Describe.
type Value struct {
	Param
	Value int    `json:"value"`
	Text  string `json:"display"`
}

// Describe returns every parameter with its current value.
func (h *Host) Describe() []Value {
	out := make([]Value, 0, len(h.table))
	for _, p := range h.table {
		v, _ := h.Get(p.ID)
		out = append(out, Value{Param: p, Value: v, Text: p.Display(v)})
	}
	return out
}

// SelectStep moves the edit cursor, clamped to the variant's steps.
func (h *Host) SelectStep(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := h.variant.MaxSteps()
	h.editStep = max(0, min(i, n-1))
}

// ToggleStep flips the active flag of step i in the selected pattern and
// moves the edit cursor there.
func (h *Host) ToggleStep(i int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= h.variant.MaxSteps() {
		return
	}
	h.editStep = i
	h.store.Update(h.store.Selected(), func(seq *pattern.Sequence) {
		seq.Steps[i].Active = !seq.Steps[i].Active
	})
}

// Transform applies op to the selected pattern unconditionally.
func (h *Host) Transform(op transform.Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.Update(h.store.Selected(), func(seq *pattern.Sequence) {
		*seq = transform.Apply(op, *seq, h.rng)
	})
}

// Palindrome mirrors the whole loop of the selected pattern.
func (h *Host) Palindrome() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.Update(h.store.Selected(), func(seq *pattern.Sequence) {
		*seq = transform.Palindrome(*seq)
	})
}

// ShiftBy rotates the selected pattern by n steps without touching the
// stored SHIFT position.
func (h *Host) ShiftBy(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.Update(h.store.Selected(), func(seq *pattern.Sequence) {
		*seq = transform.Shift(*seq, n)
	})
}

// SliceCopy copies n steps from src to dst within the selected pattern.
func (h *Host) SliceCopy(src, dst, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store.Update(h.store.Selected(), func(seq *pattern.Sequence) {
		*seq = transform.SliceCopy(*seq, src, dst, n)
	})
}

// Randomize redraws the selected pattern.
func (h *Host) Randomize() { h.Transform(transform.OpRandom) }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
