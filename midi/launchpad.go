package midi

import (
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-stepseq/debug"
	"go-stepseq/pattern"
)

// PadEvent is sent when a pad is pressed. Row 0 is the bottom row, col 8
// the scene buttons.
type PadEvent struct {
	Row, Col int
	Velocity uint8
}

// PadTarget is what a pad controls on the step surface.
type PadTarget int

const (
	PadNone PadTarget = iota
	PadStep
	PadPattern
	PadPlay
	PadPageDown
	PadPageUp
)

// GridSteps is the number of steps visible at once (bottom two rows).
const GridSteps = 16

// Target decodes a pad press. index is the step within the page or the
// pattern number.
func (p PadEvent) Target() (PadTarget, int) {
	switch {
	case p.Row >= 0 && p.Row <= 1 && p.Col >= 0 && p.Col < 8:
		return PadStep, p.Row*8 + p.Col
	case p.Row == 7 && p.Col >= 0 && p.Col < pattern.NumPatterns:
		return PadPattern, p.Col
	case p.Row == 0 && p.Col == 8:
		return PadPlay, 0
	case p.Row == 8 && p.Col == 2:
		return PadPageUp, 0
	case p.Row == 8 && p.Col == 3:
		return PadPageDown, 0
	}
	return PadNone, 0
}

// GridView is what the surface shows.
type GridView struct {
	Steps    []pattern.Step // the visible page, at most GridSteps
	Offset   int            // index of Steps[0] in the pattern
	Length   int
	Playhead int // absolute step, -1 when stopped
	Cursor   int // absolute edit step
	Pattern  int
	Playing  bool
}

// GridColors are the RGB colors the surface approximates with its palette.
type GridColors struct {
	Active, Inactive, Beyond, Playhead, Cursor, Pattern, Selected [3]uint8
}

// DefaultGridColors is used when no theme is supplied.
var DefaultGridColors = GridColors{
	Active:   [3]uint8{0, 255, 0},
	Inactive: [3]uint8{0, 100, 0},
	Beyond:   [3]uint8{0, 0, 0},
	Playhead: [3]uint8{255, 200, 0},
	Cursor:   [3]uint8{255, 255, 255},
	Pattern:  [3]uint8{40, 60, 120},
	Selected: [3]uint8{0, 100, 255},
}

// Launchpad drives a Novation Launchpad X in programmer mode as a step
// surface.
type Launchpad struct {
	send   Sender
	stop   func()
	pads   chan PadEvent
	Colors GridColors

	lit   map[uint8]uint16 // note -> channel<<8 | velocity last sent
	sends uint64
}

// NewLaunchpad wraps an open output. send may be nil for input only.
func NewLaunchpad(send Sender) *Launchpad {
	return &Launchpad{
		send:   send,
		pads:   make(chan PadEvent, 32),
		Colors: DefaultGridColors,
		lit:    make(map[uint8]uint16),
	}
}

// OpenLaunchpad finds the Launchpad's MIDI ports, switches it to programmer
// mode and starts listening for pads.
func OpenLaunchpad() (*Launchpad, error) {
	ins, outs, _ := scan()
	var in drivers.In
	var out drivers.Out
	for _, p := range ins {
		if IsLaunchpad(p.String()) {
			in = p
			break
		}
	}
	for _, p := range outs {
		if IsLaunchpad(p.String()) {
			out = p
			break
		}
	}
	if in == nil && out == nil {
		return nil, portNotFound("Launchpad", "launchpad")
	}

	lp := NewLaunchpad(nil)
	if out != nil {
		send, err := gomidi.SendTo(out)
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("open launchpad", "Could not open the Launchpad output."))
		}
		lp.send = Sender(send)
		// F0 00 20 29 02 0C 00 7F F7: programmer mode
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
		// F0 00 20 29 02 0C 0A 01 01 F7: external LED feedback
		lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x0A, 0x01, 0x01}))
	}
	if in != nil {
		stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
			lp.Handle(msg)
		})
		if err != nil {
			return nil, fault.Wrap(err, fmsg.WithDesc("open launchpad", "Could not listen to the Launchpad."))
		}
		lp.stop = stop
	}
	debug.Log("launchpad", "connected")
	return lp, nil
}

// IsLaunchpad reports whether a port name is the Launchpad's MIDI port.
func IsLaunchpad(name string) bool {
	name = strings.ToLower(name)
	return strings.Contains(name, "launchpad") && strings.Contains(name, "midi")
}

func (lp *Launchpad) Pads() <-chan PadEvent {
	return lp.pads
}

// Handle decodes pad presses. Releases are dropped.
func (lp *Launchpad) Handle(msg gomidi.Message) {
	var channel, note, velocity uint8
	var cc, value uint8

	if msg.GetNoteOn(&channel, &note, &velocity) && velocity > 0 {
		if row, col := noteToRowCol(note); row >= 0 {
			lp.push(PadEvent{Row: row, Col: col, Velocity: velocity})
		}
	}
	// top row buttons are CC 91-98
	if msg.GetControlChange(&channel, &cc, &value) && value > 0 {
		if row, col := ccToRowCol(cc); row >= 0 {
			lp.push(PadEvent{Row: row, Col: col, Velocity: value})
		}
	}
}

func (lp *Launchpad) push(ev PadEvent) {
	select {
	case lp.pads <- ev:
	default:
	}
}

// Draw sends the LEDs that changed since the last Draw.
func (lp *Launchpad) Draw(v GridView) {
	for i := 0; i < GridSteps; i++ {
		abs := v.Offset + i
		note := rowColToNote(i/8, i%8)
		channel := ChannelStatic
		var rgb [3]uint8
		switch {
		case abs >= v.Length || i >= len(v.Steps):
			rgb = lp.Colors.Beyond
		case v.Playing && abs == v.Playhead:
			rgb = lp.Colors.Playhead
			channel = ChannelPulse
		case abs == v.Cursor:
			rgb = lp.Colors.Cursor
		case v.Steps[i].Active:
			rgb = lp.Colors.Active
		default:
			rgb = lp.Colors.Inactive
		}
		lp.setLED(channel, note, mapRGBToLaunchpad(rgb))
	}
	for p := 0; p < pattern.NumPatterns; p++ {
		rgb := lp.Colors.Pattern
		if p == v.Pattern {
			rgb = lp.Colors.Selected
		}
		lp.setLED(ChannelStatic, rowColToNote(7, p), mapRGBToLaunchpad(rgb))
	}
	play := lp.Colors.Inactive
	if v.Playing {
		play = lp.Colors.Active
	}
	lp.setLED(ChannelStatic, rowColToNote(0, 8), mapRGBToLaunchpad(play))
}

func (lp *Launchpad) setLED(channel, note, color uint8) {
	key := uint16(channel)<<8 | uint16(color)
	if prev, ok := lp.lit[note]; ok && prev == key {
		return
	}
	lp.lit[note] = key
	if lp.send == nil {
		return
	}
	lp.sends++
	if err := lp.send(gomidi.NoteOn(channel, note, color)); err != nil {
		debug.LogEvery(100, "launchpad", "led send failed: %v", err)
	}
}

// Close turns the surface dark and stops listening.
func (lp *Launchpad) Close() error {
	if lp.send != nil {
		for row := 0; row < 9; row++ {
			for col := 0; col < 9; col++ {
				if row == 8 && col == 8 {
					continue // no LED at 8,8
				}
				lp.send(gomidi.NoteOn(ChannelStatic, rowColToNote(row, col), 0))
			}
		}
	}
	if lp.stop != nil {
		lp.stop()
		lp.stop = nil
	}
	return nil
}

// LED channel modes
const (
	ChannelStatic uint8 = 0
	ChannelFlash  uint8 = 1
	ChannelPulse  uint8 = 2
)

// mapRGBToLaunchpad finds the nearest Launchpad X palette color for an RGB value
func mapRGBToLaunchpad(rgb [3]uint8) uint8 {
	// {velocity, R, G, B}
	palette := [][4]uint8{
		{0, 0, 0, 0},
		{5, 255, 0, 0},
		{6, 255, 80, 80},
		{7, 180, 60, 60},
		{9, 255, 100, 0},
		{11, 180, 80, 40},
		{13, 255, 200, 0},
		{17, 0, 180, 0},
		{19, 0, 100, 0},
		{21, 0, 255, 0},
		{37, 0, 200, 200},
		{43, 40, 60, 120},
		{45, 0, 100, 255},
		{47, 80, 150, 255},
		{49, 150, 0, 200},
		{53, 255, 80, 180},
		{78, 100, 100, 255},
		{84, 255, 150, 50},
		{87, 150, 255, 100},
		{97, 180, 180, 60},
		{119, 255, 255, 255},
	}

	bestMatch := uint8(0)
	bestDist := 1 << 30
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	for _, p := range palette {
		pr, pg, pb := int(p[1]), int(p[2]), int(p[3])
		dist := (r-pr)*(r-pr) + (g-pg)*(g-pg) + (b-pb)*(b-pb)
		if dist < bestDist {
			bestDist = dist
			bestMatch = p[0]
		}
	}
	return bestMatch
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 = notes 19, 29, ... 89
// Top row:   Row 8 = CC 91-98

func rowColToNote(row, col int) uint8 {
	if row == 8 {
		return uint8(91 + col)
	}
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	if note >= 91 && note <= 98 {
		return 8, int(note - 91)
	}
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

func ccToRowCol(cc uint8) (row, col int) {
	if cc >= 91 && cc <= 98 {
		return 8, int(cc - 91)
	}
	return -1, -1
}
