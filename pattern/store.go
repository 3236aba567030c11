package pattern

import (
	"sync"
	"sync/atomic"
)

// Snapshot is an immutable published copy of the selected pattern. The
// scheduler loads one per step boundary and never sees it change.
type Snapshot struct {
	Pattern   int
	Selection uint64 // bumped by every SelectPattern
	Version   uint64 // bumped by every publish
	Sequence  Sequence
}

// Store owns the pattern bank. Writes come from the edit context and are
// serialised by mu; the playback side only does an atomic pointer load.
type Store struct {
	mu        sync.Mutex
	variant   Variant
	bank      [NumPatterns]Sequence
	selected  int
	selection uint64
	version   uint64

	active atomic.Pointer[Snapshot]
}

// NewStore creates a bank with the variant's factory patterns and publishes
// pattern 0.
func NewStore(v Variant) *Store {
	s := &Store{variant: v}
	s.bank = DefaultBank(v)
	s.publishLocked()
	return s
}

// Variant returns the step capacity of the bank.
func (s *Store) Variant() Variant {
	return s.variant
}

// Active returns the currently published snapshot. Lock-free.
func (s *Store) Active() *Snapshot {
	return s.active.Load()
}

// Selected returns the selected pattern index.
func (s *Store) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// GetStep returns a step. Out of range indices return the zero Step.
func (s *Store) GetStep(p, i int) Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(p, i) {
		return Step{}
	}
	return s.bank[p].Steps[i]
}

// SetStep writes a clamped step. Out of range indices are ignored.
func (s *Store) SetStep(p, i int, st Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRange(p, i) {
		return
	}
	s.bank[p].Steps[i] = st.Clamp()
	s.publishIfSelectedLocked(p)
}

// SelectPattern switches the selected pattern. Indices are clamped to the bank.
func (s *Store) SelectPattern(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = clampInt(idx, 0, NumPatterns-1)
	s.selection++
	s.publishLocked()
}

// Sequence returns a copy of pattern p.
func (s *Store) Sequence(p int) Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = clampInt(p, 0, NumPatterns-1)
	return s.bank[p]
}

// Update edits pattern p through fn, clamps the result and publishes it if p
// is selected. fn must not retain the pointer.
func (s *Store) Update(p int, fn func(seq *Sequence)) {
	if p < 0 || p >= NumPatterns {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.bank[p]
	fn(&seq)
	seq.MaxSteps = s.variant.MaxSteps()
	seq.Clamp()
	s.bank[p] = seq
	s.publishIfSelectedLocked(p)
}

// Replace stores a whole sequence value into slot p.
func (s *Store) Replace(p int, seq Sequence) {
	s.Update(p, func(dst *Sequence) { *dst = seq })
}

// SetLength sets the loop length of pattern p.
func (s *Store) SetLength(p, n int) {
	s.Update(p, func(seq *Sequence) { seq.Length = n })
}

// SetDirection sets the playback direction of pattern p.
func (s *Store) SetDirection(p int, d Direction) {
	s.Update(p, func(seq *Sequence) { seq.Direction = d })
}

// SetSwing sets the swing amount of pattern p.
func (s *Store) SetSwing(p int, v float64) {
	s.Update(p, func(seq *Sequence) { seq.Swing = v })
}

// SetSliceLength sets the transform slice length of pattern p.
func (s *Store) SetSliceLength(p, n int) {
	s.Update(p, func(seq *Sequence) { seq.SliceLength = n })
}

func (s *Store) inRange(p, i int) bool {
	return p >= 0 && p < NumPatterns && i >= 0 && i < s.variant.MaxSteps()
}

func (s *Store) publishIfSelectedLocked(p int) {
	if p == s.selected {
		s.publishLocked()
	}
}

// publishLocked builds a fresh snapshot and swaps it in. The previous
// snapshot stays valid for any reader still holding it.
func (s *Store) publishLocked() {
	s.version++
	s.active.Store(&Snapshot{
		Pattern:   s.selected,
		Selection: s.selection,
		Version:   s.version,
		Sequence:  s.bank[s.selected],
	})
}
