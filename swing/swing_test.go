package swing

import (
	"testing"

	"go-stepseq/clock"
)

func boundaries(n int, period float64) []clock.Boundary {
	out := make([]clock.Boundary, n)
	for i := range out {
		out[i] = clock.Boundary{Step: uint64(i), Time: int64(float64(i) * period), Period: period}
	}
	return out
}

func TestNoSwingAtHalf(t *testing.T) {
	for _, b := range boundaries(16, 6000) {
		tr := Adjust(b, 0.5)
		if tr.Time != b.Time || tr.Slot != b.Period {
			t.Fatalf("step %d moved at swing 0.5: %+v", b.Step, tr)
		}
	}
}

func TestOddStepsHalfPeriodLateAtMax(t *testing.T) {
	for _, b := range boundaries(16, 6000) {
		tr := Adjust(b, 0.75)
		want := b.Time
		if b.Step%2 == 1 {
			want += 3000
		}
		if tr.Time != want {
			t.Errorf("step %d: time %d, want %d", b.Step, tr.Time, want)
		}
	}
}

func TestSlotsFillThePair(t *testing.T) {
	for _, amt := range []float64{0.25, 0.4, 0.5, 0.6, 0.75} {
		bs := boundaries(8, 6000)
		for i := 0; i+1 < len(bs); i++ {
			a, b := Adjust(bs[i], amt), Adjust(bs[i+1], amt)
			if a.Time+int64(a.Slot+0.5) != b.Time {
				t.Errorf("swing %.2f step %d: slot ends at %v, next trigger at %d", amt, i, float64(a.Time)+a.Slot, b.Time)
			}
		}
	}
}

func TestNeverReorders(t *testing.T) {
	for _, amt := range []float64{0, 0.25, 0.5, 0.75, 5} {
		bs := boundaries(32, 997)
		for i := 0; i+1 < len(bs); i++ {
			a, b := Adjust(bs[i], amt), Adjust(bs[i+1], amt)
			if a.Time >= bs[i+1].Time {
				t.Errorf("swing %v: step %d passes the next raw boundary", amt, i)
			}
			if a.Time > b.Time {
				t.Errorf("swing %v: step %d fires after step %d", amt, i, i+1)
			}
		}
	}
}

func TestLowSwingDelaysEvenSteps(t *testing.T) {
	tr := Adjust(clock.Boundary{Step: 2, Time: 12000, Period: 6000}, 0.25)
	if tr.Time != 15000 {
		t.Fatalf("even step at swing 0.25: got %d", tr.Time)
	}
	tr = Adjust(clock.Boundary{Step: 3, Time: 18000, Period: 6000}, 0.25)
	if tr.Time != 18000 {
		t.Fatalf("odd step at swing 0.25 should not move: got %d", tr.Time)
	}
}
