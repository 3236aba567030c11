package pattern

import (
	"fmt"
	"math"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

const (
	// NumPatterns is the size of the pattern bank.
	NumPatterns = 8
	// Capacity is the storage size of every Sequence; a variant uses a prefix.
	Capacity = 128
	// MaxSliceLength bounds the slice used by transform operations.
	MaxSliceLength = 32

	MinSwing = 0.25
	MaxSwing = 0.75
)

// Variant selects the step capacity of a unit.
type Variant int

const (
	VariantStepSeq Variant = iota // 16 steps, per-step pitch/filter/gate
	VariantAdvSeq                 // 128 steps, single glide value per step
)

// MaxSteps returns the number of usable steps for the variant.
func (v Variant) MaxSteps() int {
	if v == VariantAdvSeq {
		return 128
	}
	return 16
}

func (v Variant) String() string {
	if v == VariantAdvSeq {
		return "advseq"
	}
	return "stepseq"
}

// ParseVariant maps a config name to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "", "stepseq":
		return VariantStepSeq, nil
	case "advseq":
		return VariantAdvSeq, nil
	}
	return VariantStepSeq, fault.New("unknown variant",
		fmsg.WithDesc("unknown variant", fmt.Sprintf("Unknown variant %q; use stepseq or advseq.", name)),
		ftag.With(ftag.InvalidArgument))
}

// Direction is the playback order of a sequence.
type Direction uint8

const (
	Forward Direction = iota
	Reverse
	PingPong
	Random
)

var directionNames = [...]string{"FWD", "REV", "PING", "RAND"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "FWD"
}

// DirectionOf maps an enum parameter value to a Direction. Unknown values
// fall back to Forward.
func DirectionOf(v int) Direction {
	if v < 0 || v > int(Random) {
		return Forward
	}
	return Direction(v)
}

// Sequence is one pattern: a fixed step array plus loop settings.
type Sequence struct {
	Steps       [Capacity]Step `json:"-"`
	MaxSteps    int            `json:"maxSteps"`
	Length      int            `json:"length"`
	Direction   Direction      `json:"direction"`
	Swing       float64        `json:"swing"`
	SliceLength int            `json:"sliceLength"`

	// Operation state: last applied absolute shift and operation selector.
	Shift     int   `json:"shift"`
	Operation uint8 `json:"operation"`
}

// NewSequence returns a sequence filled with default steps.
func NewSequence(v Variant) Sequence {
	s := Sequence{
		MaxSteps:    v.MaxSteps(),
		Length:      16,
		Direction:   Forward,
		Swing:       0.5,
		SliceLength: 4,
	}
	for i := range s.Steps {
		s.Steps[i] = DefaultStep()
	}
	return s
}

// Valid reports whether the sequence can be played.
func (s *Sequence) Valid() bool {
	return s.MaxSteps >= 1 && s.MaxSteps <= Capacity && s.Length >= 1 && s.Length <= s.MaxSteps
}

// Clamp forces every field into range. Length 0 becomes 1.
func (s *Sequence) Clamp() {
	if s.MaxSteps != 16 && s.MaxSteps != 128 {
		s.MaxSteps = clampInt(s.MaxSteps, 1, Capacity)
	}
	s.Length = clampInt(s.Length, 1, s.MaxSteps)
	if s.Direction > Random {
		s.Direction = Forward
	}
	s.Swing = ClampSwing(s.Swing)
	s.SliceLength = clampInt(s.SliceLength, 1, MaxSliceLength)
	for i := range s.Steps {
		s.Steps[i] = s.Steps[i].Clamp()
	}
}

// Loop returns the steps inside the active loop.
func (s *Sequence) Loop() []Step {
	n := clampInt(s.Length, 0, Capacity)
	return s.Steps[:n]
}

// Equal compares two sequences over their active loops.
func (s *Sequence) Equal(o *Sequence) bool {
	if s.Length != o.Length {
		return false
	}
	a, b := s.Loop(), o.Loop()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ClampSwing forces a swing amount into [0.25, 0.75].
func ClampSwing(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < MinSwing {
		return MinSwing
	}
	if v > MaxSwing {
		return MaxSwing
	}
	return v
}

// SwingFromLevel maps a 10-bit parameter onto [0.25, 0.75].
func SwingFromLevel(l Level) float64 {
	return MinSwing + (MaxSwing-MinSwing)*l.Float()
}

// SwingLevel is the inverse of SwingFromLevel.
func SwingLevel(v float64) Level {
	return LevelOf((ClampSwing(v) - MinSwing) / (MaxSwing - MinSwing))
}
