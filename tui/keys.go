package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"go-stepseq/widgets"
)

func Key(help string, keyboardKey ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keyboardKey...), key.WithHelp(keyboardKey[0], help))
}

type keyMap struct {
	Play       key.Binding
	Rewind     key.Binding
	TempoUp    key.Binding
	TempoDown  key.Binding
	StepLeft   key.Binding
	StepRight  key.Binding
	RowUp      key.Binding
	RowDown    key.Binding
	ParamUp    key.Binding
	ParamDown  key.Binding
	ValueUp    key.Binding
	ValueDown  key.Binding
	CoarseUp   key.Binding
	CoarseDown key.Binding
	Toggle     key.Binding
	PitchUp    key.Binding
	PitchDown  key.Binding
	Pattern    key.Binding
	Reverse    key.Binding
	Shuffle    key.Binding
	Randomize  key.Binding
	Palindrome key.Binding
	ShiftLeft  key.Binding
	ShiftRight key.Binding
	Help       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Play:       Key("play/stop", "space", " "),
	Rewind:     Key("rewind", "enter"),
	TempoUp:    Key("tempo +5", "+", "="),
	TempoDown:  Key("tempo -5", "-", "_"),
	StepLeft:   Key("step left", "h", "left"),
	StepRight:  Key("step right", "l", "right"),
	RowUp:      Key("up a row", "k", "up"),
	RowDown:    Key("down a row", "j", "down"),
	ParamUp:    Key("prev param", "shift+tab"),
	ParamDown:  Key("next param", "tab"),
	ValueUp:    Key("value +1", "."),
	ValueDown:  Key("value -1", ","),
	CoarseUp:   Key("value +32", ">"),
	CoarseDown: Key("value -32", "<"),
	Toggle:     Key("toggle step", "x"),
	PitchUp:    Key("step pitch +1", "w"),
	PitchDown:  Key("step pitch -1", "s"),
	Pattern:    Key("pattern", "1", "2", "3", "4", "5", "6", "7", "8"),
	Reverse:    Key("reverse", "R"),
	Shuffle:    Key("shuffle", "S"),
	Randomize:  Key("randomize", "Z"),
	Palindrome: Key("palindrome", "P"),
	ShiftLeft:  Key("rotate left", "["),
	ShiftRight: Key("rotate right", "]"),
	Help:       Key("help", "?"),
	Quit:       Key("quit", "q", "ctrl+c"),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Toggle, k.ParamDown, k.ValueUp, k.Pattern, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Rewind, k.TempoUp, k.TempoDown},
		{k.StepLeft, k.StepRight, k.RowUp, k.RowDown, k.Toggle, k.PitchUp, k.PitchDown},
		{k.ParamDown, k.ParamUp, k.ValueUp, k.ValueDown, k.CoarseUp, k.CoarseDown},
		{k.Pattern, k.Reverse, k.Shuffle, k.Randomize, k.Palindrome, k.ShiftLeft, k.ShiftRight},
	}
}

// sections renders FullHelp for the help screen.
func (k keyMap) sections() []widgets.KeySection {
	titles := []string{"Transport", "Steps", "Parameters", "Pattern"}
	var out []widgets.KeySection
	for i, group := range k.FullHelp() {
		sec := widgets.KeySection{Title: titles[i]}
		for _, b := range group {
			sec.Keys = append(sec.Keys, widgets.KeyBinding{Key: b.Help().Key, Desc: b.Help().Desc})
		}
		out = append(out, sec)
	}
	return out
}
