package pattern

// DefaultBank returns the factory patterns for a variant.
//
// stepseq: 0 chromatic ramp, 1 octaves, 2 fifths, 3 rhythmic gates, 4-7 flat.
// advseq: every pattern holds a rising ramp over all 128 steps.
func DefaultBank(v Variant) [NumPatterns]Sequence {
	var bank [NumPatterns]Sequence
	for p := range bank {
		bank[p] = NewSequence(v)
	}

	if v == VariantAdvSeq {
		for p := range bank {
			for i := 0; i < Capacity; i++ {
				bank[p].Steps[i].FilterMod = LevelOf(float64(i) / float64(Capacity))
			}
		}
		return bank
	}

	for i := 0; i < 16; i++ {
		bank[0].Steps[i].Pitch = i - 7
	}

	for i := 0; i < 16; i++ {
		bank[1].Steps[i].Pitch = (i % 4) * 12
		bank[1].Steps[i].FilterMod = LevelOf(float64(i%4) / 4)
	}

	fifths := [8]int{0, 7, 12, 7, 0, -5, 0, 7}
	for i, p := range fifths {
		bank[2].Steps[i].Pitch = p
		bank[2].Steps[i*2].FilterMod = LevelOf(0.8)
	}

	for i := 0; i < 16; i++ {
		if i%4 == 0 {
			bank[3].Steps[i].Gate = MaxLevel
		} else {
			bank[3].Steps[i].Gate = LevelOf(0.25)
		}
		if i%2 == 0 {
			bank[3].Steps[i].FilterMod = LevelOf(0.8)
		} else {
			bank[3].Steps[i].FilterMod = LevelOf(0.3)
		}
	}

	for p := range bank {
		bank[p].Clamp()
	}
	return bank
}
