package pattern

import (
	"sync"
	"testing"

	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

func TestStepClampForcesRanges(t *testing.T) {
	s := Step{Pitch: 99, FilterMod: 5000, Gate: 2000, Ratchet: 9, Probability: 4000}.Clamp()
	if s.Pitch != MaxPitch || s.FilterMod != MaxLevel || s.Gate != MaxLevel || s.Ratchet != MaxRatchet || s.Probability != MaxLevel {
		t.Fatalf("upper clamp failed: %+v", s)
	}
	s = Step{Pitch: -99, Ratchet: 0}.Clamp()
	if s.Pitch != MinPitch || s.Ratchet != MinRatchet {
		t.Fatalf("lower clamp failed: %+v", s)
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, l := range []Level{0, 1, 256, 512, 1022, 1023} {
		if got := LevelOf(l.Float()); got != l {
			t.Errorf("level %d round trip: got %d", l, got)
		}
	}
	if LevelOf(-1) != 0 || LevelOf(2) != MaxLevel {
		t.Fatalf("LevelOf should clamp")
	}
}

func TestSwingMapping(t *testing.T) {
	if v := SwingFromLevel(0); v != MinSwing {
		t.Errorf("level 0: got %f", v)
	}
	if v := SwingFromLevel(MaxLevel); v != MaxSwing {
		t.Errorf("level max: got %f", v)
	}
	if v := ClampSwing(0.9); v != MaxSwing {
		t.Errorf("clamp high: got %f", v)
	}
	if v := ClampSwing(0.1); v != MinSwing {
		t.Errorf("clamp low: got %f", v)
	}
}

func TestParseVariant(t *testing.T) {
	for name, want := range map[string]Variant{"": VariantStepSeq, "stepseq": VariantStepSeq, "advseq": VariantAdvSeq} {
		if v, err := ParseVariant(name); err != nil || v != want {
			t.Errorf("ParseVariant(%q) = %v, %v", name, v, err)
		}
	}
	_, err := ParseVariant("polyseq")
	if err == nil {
		t.Fatal("expected error")
	}
	if ftag.Get(err) != ftag.InvalidArgument {
		t.Errorf("tag = %v, want InvalidArgument", ftag.Get(err))
	}
	if fmsg.GetIssue(err) == "" {
		t.Error("missing user-facing message")
	}
}

func TestDirectionOfUnknownIsForward(t *testing.T) {
	if DirectionOf(7) != Forward || DirectionOf(-1) != Forward {
		t.Fatalf("unknown directions must fall back to Forward")
	}
	if DirectionOf(2) != PingPong || PingPong.String() != "PING" {
		t.Fatalf("PingPong mapping broken")
	}
}

func TestSequenceClampLength(t *testing.T) {
	s := NewSequence(VariantStepSeq)
	s.Length = 0
	s.Clamp()
	if s.Length != 1 {
		t.Fatalf("length 0 should clamp to 1, got %d", s.Length)
	}
	s.Length = 500
	s.Clamp()
	if s.Length != 16 {
		t.Fatalf("length should clamp to 16, got %d", s.Length)
	}
	a := NewSequence(VariantAdvSeq)
	a.Length = 500
	a.Clamp()
	if a.Length != 128 {
		t.Fatalf("advseq length should clamp to 128, got %d", a.Length)
	}
}

func TestDefaultBankStepSeq(t *testing.T) {
	bank := DefaultBank(VariantStepSeq)
	if bank[0].Steps[0].Pitch != -7 || bank[0].Steps[15].Pitch != 8 {
		t.Fatalf("chromatic ramp wrong: %d..%d", bank[0].Steps[0].Pitch, bank[0].Steps[15].Pitch)
	}
	if bank[1].Steps[3].Pitch != MaxPitch {
		t.Fatalf("octave pattern should clamp 36 to %d, got %d", MaxPitch, bank[1].Steps[3].Pitch)
	}
	if bank[3].Steps[0].Gate != MaxLevel || bank[3].Steps[1].Gate != LevelOf(0.25) {
		t.Fatalf("rhythmic gate pattern wrong")
	}
}

func TestStoreSetStepClampsAndPublishes(t *testing.T) {
	st := NewStore(VariantStepSeq)
	before := st.Active().Version

	st.SetStep(0, 2, Step{Pitch: 60, Ratchet: 12, Probability: 9999, Active: true})
	got := st.GetStep(0, 2)
	if got.Pitch != MaxPitch || got.Ratchet != MaxRatchet || got.Probability != MaxLevel {
		t.Fatalf("SetStep did not clamp: %+v", got)
	}
	snap := st.Active()
	if snap.Version == before {
		t.Fatalf("editing the selected pattern should publish")
	}
	if snap.Sequence.Steps[2] != got {
		t.Fatalf("published snapshot does not carry the edit")
	}
}

func TestStoreEditOtherPatternDoesNotPublish(t *testing.T) {
	st := NewStore(VariantStepSeq)
	v := st.Active().Version
	st.SetStep(5, 0, DefaultStep())
	if st.Active().Version != v {
		t.Fatalf("editing an unselected pattern must not publish")
	}
}

func TestStoreOutOfRangeIsNoop(t *testing.T) {
	st := NewStore(VariantStepSeq)
	v := st.Active().Version
	st.SetStep(0, 16, DefaultStep())
	st.SetStep(9, 0, DefaultStep())
	st.SetStep(-1, -1, DefaultStep())
	if st.Active().Version != v {
		t.Fatalf("out of range writes must be ignored")
	}
	if (st.GetStep(0, 99) != Step{}) {
		t.Fatalf("out of range read should return zero step")
	}
}

func TestStoreSelectPattern(t *testing.T) {
	st := NewStore(VariantStepSeq)
	st.SelectPattern(3)
	snap := st.Active()
	if snap.Pattern != 3 || st.Selected() != 3 {
		t.Fatalf("select failed: %d", snap.Pattern)
	}
	if snap.Selection != 1 {
		t.Fatalf("selection counter: got %d", snap.Selection)
	}
	st.SelectPattern(42)
	if st.Active().Pattern != NumPatterns-1 {
		t.Fatalf("select should clamp")
	}
}

func TestStoreUpdateClampsLength(t *testing.T) {
	st := NewStore(VariantStepSeq)
	st.SetLength(0, 0)
	if st.Active().Sequence.Length != 1 {
		t.Fatalf("length 0 must clamp to 1")
	}
	st.SetLength(0, 300)
	if st.Active().Sequence.Length != 16 {
		t.Fatalf("length must clamp to variant max")
	}
	st.SetSwing(0, 2)
	if st.Active().Sequence.Swing != MaxSwing {
		t.Fatalf("swing must clamp")
	}
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	st := NewStore(VariantStepSeq)
	snap := st.Active()
	orig := snap.Sequence.Steps[0]
	st.SetStep(0, 0, Step{Pitch: 12, Ratchet: 2, Active: true})
	if snap.Sequence.Steps[0] != orig {
		t.Fatalf("an already loaded snapshot changed underneath the reader")
	}
}

// Two 8-step patterns, each written uniformly. A reader must never see a
// snapshot whose loop mixes values from two different writes.
func TestStoreConcurrentSwapNeverTorn(t *testing.T) {
	st := NewStore(VariantStepSeq)
	for p := 0; p < 2; p++ {
		st.SetLength(p, 8)
	}

	const iterations = 20000
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			p := i % 2
			pitch := i%49 - 24
			st.Update(p, func(seq *Sequence) {
				for j := 0; j < 8; j++ {
					seq.Steps[j].Pitch = pitch
				}
			})
			st.SelectPattern(p)
		}
	}()

	torn := 0
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			snap := st.Active()
			loop := snap.Sequence.Loop()
			for j := 1; j < len(loop); j++ {
				if loop[j].Pitch != loop[0].Pitch {
					torn++
					break
				}
			}
		}
	}()

	wg.Wait()
	if torn != 0 {
		t.Fatalf("reader observed %d torn snapshots", torn)
	}
}
