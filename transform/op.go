package transform

import (
	"fmt"
	"math/rand/v2"

	"go-stepseq/pattern"
)

// Op is a pattern operation selected by the OPER parameter.
type Op uint8

const (
	OpNone Op = iota
	OpRandom
	OpShuffle
	OpReverse
	OpSlice
	OpSliceShuffle
	OpPalindrome
	OpPalindromeShuffle
)

// NumOps is the number of selector positions.
const NumOps = 8

var opNames = [NumOps]string{"NONE", "RANDOM", "SHUFFLE", "REVERSE", "SLICE", "SLICE_SHUF", "PALIN", "PALIN_SHUF"}

func (o Op) String() string {
	if int(o) < NumOps {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// ParseOp maps an operation name (as printed by String) to an Op.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return OpNone, false
}

// Apply runs op against s. The PALIN selector positions work on the slice,
// matching the OPER knob; use Palindrome for the whole loop.
func Apply(op Op, s pattern.Sequence, r *rand.Rand) pattern.Sequence {
	switch op {
	case OpNone:
		return s
	case OpRandom:
		return Randomize(s, r)
	case OpShuffle:
		return Shuffle(s, r)
	case OpReverse:
		return Reverse(s)
	case OpSlice:
		return SliceRepeat(s)
	case OpSliceShuffle:
		return SliceShuffle(s, r)
	case OpPalindrome:
		return SlicePalindrome(s)
	case OpPalindromeShuffle:
		return SlicePalindromeShuffle(s, r)
	}
	return s
}
