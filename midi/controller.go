package midi

import (
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/debug"
)

// ParamSetter applies a 7-bit controller value to a parameter id.
type ParamSetter interface {
	SetScaled(id int, v uint8) error
}

// Control maps incoming control changes to parameters. Knob hardware sends
// CCs; which CC drives which parameter comes from the config.
type Control struct {
	host    ParamSetter
	channel int // 1-16, 0 for any
	ccMap   map[uint8]int
	stop    func()

	// OnChange, when set, is called after every applied controller value.
	OnChange func(id int)
}

// NewControl builds a mapper. ccMap keys outside 0..127 are ignored.
func NewControl(host ParamSetter, channel int, ccMap map[int]int) *Control {
	m := make(map[uint8]int, len(ccMap))
	for cc, id := range ccMap {
		if cc >= 0 && cc <= 127 {
			m[uint8(cc)] = id
		}
	}
	return &Control{host: host, channel: channel, ccMap: m}
}

// OpenControl listens on the first input port whose name contains name.
func OpenControl(name string, c *Control) error {
	port, err := FindInPort(name)
	if err != nil {
		return err
	}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, _ int32) {
		c.Handle(msg)
	})
	if err != nil {
		return fault.Wrap(err,
			fmsg.WithDesc("open control input", "Could not listen on MIDI input "+port.String()+"."))
	}
	c.stop = stop
	debug.Log("control", "listening on %s (%d mapped CCs)", port.String(), len(c.ccMap))
	return nil
}

// Handle applies msg if it is a mapped control change on the right channel.
func (c *Control) Handle(msg gomidi.Message) bool {
	var ch, cc, val uint8
	if !msg.GetControlChange(&ch, &cc, &val) {
		return false
	}
	if c.channel != 0 && int(ch)+1 != c.channel {
		return false
	}
	id, ok := c.ccMap[cc]
	if !ok {
		return false
	}
	if err := c.host.SetScaled(id, val); err != nil {
		debug.Log("control", "cc %d -> param %d: %v", cc, id, err)
		return false
	}
	if c.OnChange != nil {
		c.OnChange(id)
	}
	return true
}

func (c *Control) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}
