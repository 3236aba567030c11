package params

import (
	"strconv"
	"strings"
)

// Kind controls how a parameter value is displayed.
type Kind uint8

const (
	KindEnum    Kind = iota // index into a display table, or a plain number
	KindPercent             // 0..1023 shown as 0..100%
	KindSemi                // signed semitones
	KindOnOff
)

// Param describes one host-visible parameter.
type Param struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Center int    `json:"center"`
	Init   int    `json:"init"`
	Kind   Kind   `json:"kind"`

	// Labels, when set, index display strings by value-Min.
	Labels []string `json:"labels,omitempty"`
	// Offset is added to the value before plain numeric display.
	Offset int `json:"-"`
}

// Clamp forces v into [Min, Max].
func (p Param) Clamp(v int) int {
	if v < p.Min {
		return p.Min
	}
	if v > p.Max {
		return p.Max
	}
	return v
}

// Scale maps a 7-bit controller value onto [Min, Max].
func (p Param) Scale(v uint8) int {
	if v > 127 {
		v = 127
	}
	span := p.Max - p.Min
	return p.Min + (int(v)*span+63)/127
}

// Display renders v the way the unit's screen would show it.
func (p Param) Display(v int) string {
	v = p.Clamp(v)
	if len(p.Labels) > 0 {
		if i := v - p.Min; i >= 0 && i < len(p.Labels) {
			return p.Labels[i]
		}
	}
	switch p.Kind {
	case KindOnOff:
		if v != 0 {
			return "ON"
		}
		return "OFF"
	case KindPercent:
		return strconv.Itoa((v*100+511)/1023) + "%"
	case KindSemi:
		if v > 0 {
			return "+" + strconv.Itoa(v)
		}
		return strconv.Itoa(v)
	}
	return strconv.Itoa(v + p.Offset)
}

// Table is the ordered parameter list of one unit.
type Table []Param

// Lookup finds a parameter by id.
func (t Table) Lookup(id int) (Param, bool) {
	for _, p := range t {
		if p.ID == id {
			return p, true
		}
	}
	return Param{}, false
}

// ByName finds a parameter by name, ignoring case.
func (t Table) ByName(name string) (Param, bool) {
	for _, p := range t {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Param{}, false
}

// stepseq parameter ids
const (
	StepPlay = iota
	StepStep
	StepPitch
	StepFilter
	StepGate
	StepLength
	StepSwing
	StepRatchet
	StepPattern
	StepDirection
	StepProb
	StepActive
)

// advseq parameter ids
const (
	AdvClock = iota
	AdvSeqLen
	AdvSliceLen
	AdvSmooth
	AdvDepth
	AdvOper
	AdvShift
	AdvRateDiv
	AdvSwing
	AdvMix
)

var (
	ratchetLabels   = []string{"1X", "2X", "3X", "4X"}
	directionLabels = []string{"FWD", "REV", "PING", "RAND"}
	clockLabels     = []string{"INT", "MIDI"}
	rateLabels      = []string{"1/16", "1/8", "1/4", "1/2", "1/1"}
	operLabels      = []string{"NONE", "RANDOM", "SHUFFLE", "REVERSE", "SLICE", "SLICE_SHUF", "PALIN", "PALIN_SHUF"}
)

// StepSeq is the 16-step unit's parameter table.
var StepSeq = Table{
	{ID: StepPlay, Name: "PLAY", Min: 0, Max: 1, Init: 1, Kind: KindOnOff},
	{ID: StepStep, Name: "STEP", Min: 0, Max: 15, Offset: 1},
	{ID: StepPitch, Name: "PITCH", Min: -24, Max: 24, Kind: KindSemi},
	{ID: StepFilter, Name: "FILTER", Min: 0, Max: 1023, Center: 512, Init: 512, Kind: KindPercent},
	{ID: StepGate, Name: "GATE", Min: 0, Max: 1023, Init: 768, Kind: KindPercent},
	{ID: StepLength, Name: "LENGTH", Min: 0, Max: 15, Init: 15, Offset: 1},
	{ID: StepSwing, Name: "SWING", Min: 0, Max: 1023, Center: 512, Init: 512, Kind: KindPercent},
	{ID: StepRatchet, Name: "RATCHET", Min: 0, Max: 3, Labels: ratchetLabels},
	{ID: StepPattern, Name: "PATTERN", Min: 0, Max: 7, Offset: 1},
	{ID: StepDirection, Name: "DIRECTN", Min: 0, Max: 3, Labels: directionLabels},
	{ID: StepProb, Name: "PROB", Min: 0, Max: 1023, Init: 1023, Kind: KindPercent},
	{ID: StepActive, Name: "ACTIVE", Min: 0, Max: 1, Init: 1, Kind: KindOnOff},
}

// AdvSeq is the 128-step unit's parameter table.
var AdvSeq = Table{
	{ID: AdvClock, Name: "CLOCK", Min: 0, Max: 1, Labels: clockLabels},
	{ID: AdvSeqLen, Name: "SEQLEN", Min: 1, Max: 128, Init: 16},
	{ID: AdvSliceLen, Name: "SLICELN", Min: 1, Max: 32, Init: 4},
	{ID: AdvSmooth, Name: "SMOOTH", Min: 0, Max: 1023, Init: 256, Kind: KindPercent},
	{ID: AdvDepth, Name: "DEPTH", Min: 0, Max: 1023, Init: 1023, Kind: KindPercent},
	{ID: AdvOper, Name: "OPER", Min: 0, Max: 7, Labels: operLabels},
	{ID: AdvShift, Name: "SHIFT", Min: -64, Max: 64, Kind: KindSemi},
	{ID: AdvRateDiv, Name: "RATEDIV", Min: 0, Max: 4, Labels: rateLabels},
	{ID: AdvSwing, Name: "SWING", Min: 0, Max: 1023, Center: 512, Init: 512, Kind: KindPercent},
	{ID: AdvMix, Name: "MIX", Min: 0, Max: 1023, Init: 768, Kind: KindPercent},
}
