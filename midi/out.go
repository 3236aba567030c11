package midi

import (
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"

	"go-stepseq/debug"
	"go-stepseq/sequencer"
)

// Sender writes one message to a port.
type Sender func(msg gomidi.Message) error

// Out plays triggers as monophonic notes. A new trigger cuts the sounding
// note; otherwise the note is released by Flush once its gate has elapsed.
type Out struct {
	mu      sync.Mutex
	mapping Mapping
	send    Sender

	sounding bool
	note     uint8
	offAt    time.Time
	errors   uint64
}

// NewOut wraps an already opened sender.
func NewOut(send Sender, m Mapping) *Out {
	return &Out{send: send, mapping: m}
}

// OpenOut opens the first output port whose name contains name.
func OpenOut(name string, m Mapping) (*Out, error) {
	port, err := FindOutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fault.Wrap(err,
			fmsg.WithDesc("open output", "Could not open MIDI output "+port.String()+"."))
	}
	debug.Log("midi", "output %s ch=%d root=%d", port.String(), m.Channel+1, m.RootNote)
	return NewOut(Sender(send), m), nil
}

// Send implements sequencer.Output.
func (o *Out) Send(ev sequencer.Event, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sounding {
		o.write(gomidi.NoteOff(o.mapping.Channel, o.note))
		o.sounding = false
	}
	cc, on := o.mapping.Messages(ev)
	if err := o.write(cc); err != nil {
		return err
	}
	if err := o.write(on); err != nil {
		return err
	}
	o.sounding = true
	o.note = o.mapping.Note(ev)
	o.offAt = at.Add(o.mapping.Gate(ev))
	return nil
}

// Flush implements sequencer.Output and releases an expired note.
func (o *Out) Flush(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sounding && !now.Before(o.offAt) {
		o.write(gomidi.NoteOff(o.mapping.Channel, o.note))
		o.sounding = false
	}
}

// Close releases any sounding note.
func (o *Out) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sounding {
		o.sounding = false
		return o.write(gomidi.NoteOff(o.mapping.Channel, o.note))
	}
	return nil
}

func (o *Out) write(msg gomidi.Message) error {
	if o.send == nil {
		return nil
	}
	if err := o.send(msg); err != nil {
		o.errors++
		debug.LogEvery(100, "midi", "send failed (%d): %v", o.errors, err)
		return fault.Wrap(err, fmsg.With("midi send"))
	}
	return nil
}
