package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-stepseq/debug"
)

// scanTimeout bounds a port scan. CoreMIDI can hang indefinitely.
const scanTimeout = 3 * time.Second

// Ports is one scan result.
type Ports struct {
	Ins  []string
	Outs []string
}

// ListPorts scans the registered driver. ok is false when the scan timed out.
func ListPorts() (Ports, bool) {
	ins, outs, ok := scan()
	var p Ports
	for _, in := range ins {
		p.Ins = append(p.Ins, in.String())
	}
	for _, out := range outs {
		p.Outs = append(p.Outs, out.String())
	}
	return p, ok
}

func scan() ([]drivers.In, []drivers.Out, bool) {
	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()
	select {
	case r := <-ch:
		return r.ins, r.outs, true
	case <-time.After(scanTimeout):
		// User needs to run: sudo killall coreaudiod midiserver
		debug.Log("midi", "port scan timed out")
		return nil, nil, false
	}
}

// matchPort returns the index of the first name containing fragment,
// ignoring case, or -1.
func matchPort(names []string, fragment string) int {
	lower := strings.ToLower(fragment)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return i
		}
	}
	return -1
}

// FindInPort returns the first input port whose name contains name.
func FindInPort(name string) (drivers.In, error) {
	ins, _, _ := scan()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	if i := matchPort(names, name); i >= 0 {
		return ins[i], nil
	}
	return nil, portNotFound("input", name)
}

// FindOutPort returns the first output port whose name contains name.
func FindOutPort(name string) (drivers.Out, error) {
	_, outs, _ := scan()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	if i := matchPort(names, name); i >= 0 {
		return outs[i], nil
	}
	return nil, portNotFound("output", name)
}

func portNotFound(kind, name string) error {
	return fault.New("no MIDI "+kind+" matching "+name,
		fmsg.WithDesc("port not found", "No MIDI "+kind+" contains \""+name+"\"."),
		ftag.With(ftag.NotFound))
}

// PortEvent is emitted when a watched port appears or disappears.
type PortEvent struct {
	Type PortEventType
	Name string // full port name
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

// PortWatcher polls the input ports and reports when a port matching one
// of the watched name fragments comes or goes.
type PortWatcher struct {
	fragments []string
	list      func() ([]string, bool)

	mu       sync.RWMutex
	present  map[string]bool
	events   chan PortEvent
	pollRate time.Duration
}

// NewPortWatcher watches input ports matching any of fragments.
func NewPortWatcher(fragments ...string) *PortWatcher {
	return &PortWatcher{
		fragments: fragments,
		list: func() ([]string, bool) {
			p, ok := ListPorts()
			return p.Ins, ok
		},
		present:  make(map[string]bool),
		events:   make(chan PortEvent, 16),
		pollRate: time.Second,
	}
}

// Events returns the connect/disconnect channel. It is closed when Run
// returns.
func (w *PortWatcher) Events() <-chan PortEvent {
	return w.events
}

// Connected returns the currently present port names.
func (w *PortWatcher) Connected() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.present))
	for name := range w.present {
		out = append(out, name)
	}
	return out
}

// Run polls until ctx is done (blocking - run in goroutine).
func (w *PortWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()

	w.poll()
	for {
		select {
		case <-ctx.Done():
			close(w.events)
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *PortWatcher) poll() {
	names, ok := w.list()
	if !ok {
		return
	}

	seen := make(map[string]bool)
	for _, name := range names {
		if !w.watched(name) {
			continue
		}
		seen[name] = true

		w.mu.Lock()
		exists := w.present[name]
		w.present[name] = true
		w.mu.Unlock()

		if !exists {
			debug.Log("midi", "port connected: %s", name)
			w.emit(PortEvent{Type: PortConnected, Name: name})
		}
	}

	w.mu.Lock()
	var gone []string
	for name := range w.present {
		if !seen[name] {
			gone = append(gone, name)
			delete(w.present, name)
		}
	}
	w.mu.Unlock()

	for _, name := range gone {
		debug.Log("midi", "port disconnected: %s", name)
		w.emit(PortEvent{Type: PortDisconnected, Name: name})
	}
}

func (w *PortWatcher) watched(name string) bool {
	for _, f := range w.fragments {
		if f != "" && matchPort([]string{name}, f) == 0 {
			return true
		}
	}
	return false
}

func (w *PortWatcher) emit(ev PortEvent) {
	select {
	case w.events <- ev:
	default:
	}
}
