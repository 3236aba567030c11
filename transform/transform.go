// Package transform holds the pattern operations. Every function takes a
// Sequence value and returns the edited copy; nothing is changed in place,
// so callers publish the result through the Store like any other edit.
package transform

import (
	"math/rand/v2"

	"go-stepseq/pattern"
)

// Shift rotates the first Length steps by n positions with wrap. Positive n
// moves steps toward higher indices, negative n toward lower ones.
func Shift(s pattern.Sequence, n int) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	l := s.Length
	n %= l
	if n < 0 {
		n += l
	}
	if n == 0 {
		return s
	}
	var buf [pattern.Capacity]pattern.Step
	for i := 0; i < l; i++ {
		buf[(i+n)%l] = s.Steps[i]
	}
	copy(s.Steps[:l], buf[:l])
	return s
}

// Reverse reverses the order of the first Length steps.
func Reverse(s pattern.Sequence) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	for i, j := 0, s.Length-1; i < j; i, j = i+1, j-1 {
		s.Steps[i], s.Steps[j] = s.Steps[j], s.Steps[i]
	}
	return s
}

// Shuffle permutes the first Length steps with r (Fisher-Yates).
func Shuffle(s pattern.Sequence, r *rand.Rand) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	shuffleSteps(s.Steps[:s.Length], r)
	return s
}

// Randomize keeps the step order but redraws each step's modulation value.
// On the 128-step variant that is the glide target; on the 16-step variant
// pitch is redrawn as well.
func Randomize(s pattern.Sequence, r *rand.Rand) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	for i := 0; i < s.Length; i++ {
		st := &s.Steps[i]
		st.FilterMod = pattern.Level(r.IntN(int(pattern.MaxLevel) + 1))
		if s.MaxSteps <= 16 {
			st.Pitch = pattern.MinPitch + r.IntN(pattern.MaxPitch-pattern.MinPitch+1)
		}
	}
	return s
}

// Palindrome extends the loop to play forward then backward without
// repeating the endpoints: a b c d becomes a b c d c b. The result is capped
// at MaxSteps; a mirrored tail that does not fit is truncated.
func Palindrome(s pattern.Sequence) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	l := s.Length
	n := palindromeLength(l)
	if n > s.MaxSteps {
		n = s.MaxSteps
	}
	for i := l; i < n; i++ {
		s.Steps[i] = s.Steps[2*l-2-i]
	}
	s.Length = n
	return s
}

// SliceCopy copies n contiguous steps from src to dst inside the loop. The
// copy is clamped so it never reads or writes at or past Length, and
// overlapping ranges behave as if the source was read into a buffer first.
func SliceCopy(s pattern.Sequence, src, dst, n int) pattern.Sequence {
	if !s.Valid() || n <= 0 {
		return s
	}
	l := s.Length
	if src < 0 || dst < 0 || src >= l || dst >= l {
		return s
	}
	n = min(n, l-src, l-dst)
	var buf [pattern.Capacity]pattern.Step
	copy(buf[:n], s.Steps[src:src+n])
	copy(s.Steps[dst:dst+n], buf[:n])
	return s
}

// SliceRepeat tiles the first SliceLength steps across the whole loop.
func SliceRepeat(s pattern.Sequence) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	var buf [pattern.MaxSliceLength]pattern.Step
	n := sliceLen(&s)
	copy(buf[:n], s.Steps[:n])
	tile(&s, buf[:n])
	return s
}

// SliceShuffle shuffles a copy of the first slice, then tiles it.
func SliceShuffle(s pattern.Sequence, r *rand.Rand) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	var buf [pattern.MaxSliceLength]pattern.Step
	n := sliceLen(&s)
	copy(buf[:n], s.Steps[:n])
	shuffleSteps(buf[:n], r)
	tile(&s, buf[:n])
	return s
}

// SlicePalindrome tiles the mirrored first slice (a b c d c b) across the loop.
func SlicePalindrome(s pattern.Sequence) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	var buf [2 * pattern.MaxSliceLength]pattern.Step
	n := sliceLen(&s)
	copy(buf[:n], s.Steps[:n])
	m := palindromeLength(n)
	for i := n; i < m; i++ {
		buf[i] = s.Steps[2*n-2-i]
	}
	tile(&s, buf[:m])
	return s
}

// SlicePalindromeShuffle shuffles the first slice in place, then applies
// SlicePalindrome.
func SlicePalindromeShuffle(s pattern.Sequence, r *rand.Rand) pattern.Sequence {
	if !s.Valid() {
		return s
	}
	shuffleSteps(s.Steps[:sliceLen(&s)], r)
	return SlicePalindrome(s)
}

func palindromeLength(n int) int {
	if n <= 1 {
		return 1
	}
	return 2*n - 2
}

func sliceLen(s *pattern.Sequence) int {
	return max(1, min(s.SliceLength, s.Length, pattern.MaxSliceLength))
}

func tile(s *pattern.Sequence, src []pattern.Step) {
	for i := 0; i < s.Length; i++ {
		s.Steps[i] = src[i%len(src)]
	}
}

func shuffleSteps(steps []pattern.Step, r *rand.Rand) {
	r.Shuffle(len(steps), func(i, j int) {
		steps[i], steps[j] = steps[j], steps[i]
	})
}
