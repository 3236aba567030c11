package transform

import (
	"testing"

	"go-stepseq/pattern"
	"go-stepseq/xorshift"
)

// ramp builds a sequence whose step i carries pitch i so orderings are easy
// to read back.
func ramp(v pattern.Variant, length int) pattern.Sequence {
	s := pattern.NewSequence(v)
	s.Length = length
	for i := 0; i < length; i++ {
		s.Steps[i].Pitch = i % (pattern.MaxPitch + 1)
		s.Steps[i].FilterMod = pattern.Level(i)
	}
	return s
}

func pitches(s pattern.Sequence) []int {
	out := make([]int, s.Length)
	for i := range out {
		out[i] = s.Steps[i].Pitch
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReverseTwiceIsIdentity(t *testing.T) {
	for _, l := range []int{1, 2, 5, 16} {
		s := ramp(pattern.VariantStepSeq, l)
		got := Reverse(Reverse(s))
		if !got.Equal(&s) {
			t.Errorf("length %d: Reverse(Reverse(s)) != s", l)
		}
	}
	s := ramp(pattern.VariantAdvSeq, 128)
	got := Reverse(Reverse(s))
	if !got.Equal(&s) {
		t.Errorf("128 steps: Reverse(Reverse(s)) != s")
	}
}

func TestReverseOnlyTouchesLoop(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 16)
	s.Length = 4
	got := Reverse(s)
	if !equalInts(pitches(got), []int{3, 2, 1, 0}) {
		t.Fatalf("got %v", pitches(got))
	}
	if got.Steps[4].Pitch != 4 {
		t.Fatalf("step past the loop was modified")
	}
}

func TestShiftInverse(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 7)
	for _, n := range []int{-100, -8, -7, -3, -1, 0, 1, 2, 7, 9, 64} {
		got := Shift(Shift(s, n), -n)
		if !got.Equal(&s) {
			t.Errorf("Shift(%d) then Shift(%d) is not identity: %v", n, -n, pitches(got))
		}
	}
}

func TestShiftDirection(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 4)
	if got := pitches(Shift(s, 1)); !equalInts(got, []int{3, 0, 1, 2}) {
		t.Errorf("shift right: %v", got)
	}
	if got := pitches(Shift(s, -1)); !equalInts(got, []int{1, 2, 3, 0}) {
		t.Errorf("shift left: %v", got)
	}
	if got := pitches(Shift(s, 5)); !equalInts(got, []int{3, 0, 1, 2}) {
		t.Errorf("shift wraps modulo length: %v", got)
	}
}

func TestShuffleDeterministic(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 16)
	a := Shuffle(s, xorshift.NewRand(7))
	b := Shuffle(s, xorshift.NewRand(7))
	if !a.Equal(&b) {
		t.Fatalf("same seed produced different shuffles")
	}

	seen := make(map[int]bool)
	for _, p := range pitches(a) {
		seen[p] = true
	}
	if len(seen) != 16 {
		t.Fatalf("shuffle is not a permutation: %v", pitches(a))
	}
}

func TestRandomizeKeepsRanges(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 16)
	got := Randomize(s, xorshift.NewRand(1))
	for i, st := range got.Loop() {
		if st.Clamp() != st {
			t.Fatalf("step %d out of range: %+v", i, st)
		}
	}
}

func TestPalindrome(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 4)
	got := Palindrome(s)
	if !equalInts(pitches(got), []int{0, 1, 2, 3, 2, 1}) {
		t.Fatalf("got %v", pitches(got))
	}

	one := Palindrome(ramp(pattern.VariantStepSeq, 1))
	if one.Length != 1 {
		t.Fatalf("length 1 palindrome should stay 1, got %d", one.Length)
	}
}

func TestPalindromeTruncatesAtCapacity(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 10)
	got := Palindrome(s)
	if got.Length != 16 {
		t.Fatalf("length should cap at 16, got %d", got.Length)
	}
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 8, 7, 6, 5, 4, 3}
	if !equalInts(pitches(got), want) {
		t.Fatalf("got %v", pitches(got))
	}
}

func TestSliceCopyOverlapMatchesBufferedCopy(t *testing.T) {
	cases := []struct{ src, dst, n int }{
		{0, 2, 5},
		{3, 1, 6},
		{0, 0, 8},
		{4, 5, 20},
	}
	for _, c := range cases {
		s := ramp(pattern.VariantStepSeq, 10)

		want := pitches(s)
		n := min(c.n, 10-c.src, 10-c.dst)
		tmp := append([]int(nil), want[c.src:c.src+n]...)
		copy(want[c.dst:], tmp)

		got := pitches(SliceCopy(s, c.src, c.dst, c.n))
		if !equalInts(got, want) {
			t.Errorf("SliceCopy(%d,%d,%d) = %v, want %v", c.src, c.dst, c.n, got, want)
		}
	}
}

func TestSliceCopyOutOfRangeIsNoop(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 8)
	for _, c := range [][3]int{{8, 0, 2}, {0, 8, 2}, {-1, 0, 2}, {0, 0, 0}} {
		got := SliceCopy(s, c[0], c[1], c[2])
		if !got.Equal(&s) {
			t.Errorf("SliceCopy%v modified the sequence", c)
		}
	}
}

func TestSliceRepeat(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 8)
	s.SliceLength = 3
	got := SliceRepeat(s)
	if !equalInts(pitches(got), []int{0, 1, 2, 0, 1, 2, 0, 1}) {
		t.Fatalf("got %v", pitches(got))
	}
}

func TestSlicePalindrome(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 8)
	s.SliceLength = 3
	got := SlicePalindrome(s)
	if !equalInts(pitches(got), []int{0, 1, 2, 1, 0, 1, 2, 1}) {
		t.Fatalf("got %v", pitches(got))
	}

	s.SliceLength = 1
	got = SlicePalindrome(s)
	if !equalInts(pitches(got), []int{0, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("slice of one: got %v", pitches(got))
	}
}

func TestSliceLengthClampedToLoop(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 4)
	s.SliceLength = 32
	got := SliceRepeat(s)
	if !got.Equal(&s) {
		t.Fatalf("slice longer than the loop should leave it unchanged: %v", pitches(got))
	}
}

func TestInvalidSequenceIsNoop(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 4)
	s.Length = 0
	r := xorshift.NewRand(1)
	for op := Op(0); op < NumOps; op++ {
		got := Apply(op, s, r)
		if got.Length != 0 || got.Steps != s.Steps {
			t.Errorf("%s changed an invalid sequence", op)
		}
	}
	if got := Shift(s, 3); got.Steps != s.Steps {
		t.Errorf("Shift changed an invalid sequence")
	}
}

func TestApplyDispatch(t *testing.T) {
	s := ramp(pattern.VariantStepSeq, 6)
	if got := Apply(OpReverse, s, nil); !equalInts(pitches(got), []int{5, 4, 3, 2, 1, 0}) {
		t.Errorf("OpReverse: %v", pitches(got))
	}
	if got := Apply(OpNone, s, nil); !got.Equal(&s) {
		t.Errorf("OpNone changed the sequence")
	}
	if op, ok := ParseOp("PALIN_SHUF"); !ok || op != OpPalindromeShuffle {
		t.Errorf("ParseOp failed: %v %v", op, ok)
	}
}
