package midi

import (
	"sync/atomic"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/clock"
	"go-stepseq/debug"
)

// PulseSink receives realtime clock messages stamped with their arrival time.
type PulseSink interface {
	PushPulse(kind clock.PulseKind, at time.Time)
}

// ClockIn forwards MIDI clock, start, stop and continue to a PulseSink.
type ClockIn struct {
	sink PulseSink
	now  func() time.Time
	stop func()

	pulses atomic.Uint64
	last   atomic.Int64 // unix nanos of the last clock pulse
}

func NewClockIn(sink PulseSink) *ClockIn {
	return &ClockIn{sink: sink, now: time.Now}
}

// OpenClockIn listens on the first input port whose name contains name.
func OpenClockIn(name string, sink PulseSink) (*ClockIn, error) {
	port, err := FindInPort(name)
	if err != nil {
		return nil, err
	}
	c := NewClockIn(sink)
	// timing messages are filtered by the driver unless time code is on
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, _ int32) {
		c.Handle(msg)
	}, gomidi.UseTimeCode(), gomidi.HandleError(func(err error) {
		debug.LogEvery(100, "clock-in", "listen error: %v", err)
	}))
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("open clock input", "Could not listen on MIDI input "+port.String()+"."))
	}
	c.stop = stop
	debug.Log("clock-in", "listening on %s", port.String())
	return c, nil
}

// Handle dispatches one message. It reports whether the message was a
// realtime transport or clock message.
func (c *ClockIn) Handle(msg gomidi.Message) bool {
	var kind clock.PulseKind
	switch msg.Type() {
	case gomidi.TimingClockMsg:
		kind = clock.PulseClock
	case gomidi.StartMsg:
		kind = clock.PulseStart
	case gomidi.StopMsg:
		kind = clock.PulseStop
	case gomidi.ContinueMsg:
		kind = clock.PulseContinue
	default:
		return false
	}
	now := c.now()
	if kind == clock.PulseClock {
		c.pulses.Add(1)
		c.last.Store(now.UnixNano())
	}
	c.sink.PushPulse(kind, now)
	return true
}

// Pulses returns the number of clock pulses received.
func (c *ClockIn) Pulses() uint64 { return c.pulses.Load() }

// LastPulse returns the arrival time of the last clock pulse.
func (c *ClockIn) LastPulse() time.Time {
	n := c.last.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (c *ClockIn) Close() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
}
