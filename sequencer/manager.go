package sequencer

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go-stepseq/clock"
	"go-stepseq/debug"
	"go-stepseq/modulation"
)

// Output receives fired triggers on the wall clock. Implementations must not
// block for long; the render loop calls them between blocks.
type Output interface {
	Send(ev Event, at time.Time) error
	Flush(now time.Time)
}

// Status is the transport state shown by the UI.
type Status struct {
	State       State
	Cursor      int
	Pattern     int
	Tempo       float64
	ClockMode   clock.Mode
	FreeRunning bool
	Triggers    uint64
	Output      modulation.Output
	Stats       Stats
}

// Manager drives an Engine from the wall clock. It renders whatever audio
// time has elapsed every tick, hands fired triggers to the Output and keeps
// the UI informed.
type Manager struct {
	engine   *Engine
	timebase clock.Timebase

	outMu sync.RWMutex
	out   Output

	pulseMu sync.Mutex

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool

	// last rendered frame, float64 bits
	pitch  atomic.Uint64
	filter atomic.Uint64
	gate   atomic.Uint64

	lastStats Stats

	// Notify TUI of updates
	UpdateChan chan struct{}
}

const (
	renderInterval = 2 * time.Millisecond
	blockSize      = 256
	uiFPS          = 30
)

// NewManager wraps e. The sample timeline starts now.
func NewManager(e *Engine) *Manager {
	return &Manager{
		engine:     e,
		timebase:   clock.Timebase{Start: time.Now(), SampleRate: e.SampleRate()},
		UpdateChan: make(chan struct{}, 1),
	}
}

// Engine returns the driven engine.
func (m *Manager) Engine() *Engine { return m.engine }

// Timebase returns the mapping between wall time and engine samples.
func (m *Manager) Timebase() clock.Timebase { return m.timebase }

// SetOutput replaces the trigger output. nil disables output.
func (m *Manager) SetOutput(o Output) {
	m.outMu.Lock()
	m.out = o
	m.outMu.Unlock()
}

// StartRuntime starts the render and UI goroutines.
func (m *Manager) StartRuntime() {
	if m.started {
		return
	}
	m.started = true
	m.stopChan = make(chan struct{})
	m.wg.Add(2)
	go m.renderLoop()
	go m.uiLoop()
}

// Shutdown stops the runtime goroutines and waits for them.
func (m *Manager) Shutdown() {
	if !m.started {
		return
	}
	close(m.stopChan)
	m.wg.Wait()
	m.started = false
}

// Play starts playback (or resumes it).
func (m *Manager) Play() {
	m.engine.Start()
	debug.Log("transport", "play")
}

// Stop pauses playback.
func (m *Manager) Stop() {
	m.engine.Stop()
	debug.Log("transport", "stop")
}

// Toggle flips between Play and Stop.
func (m *Manager) Toggle() {
	if m.engine.Playing() {
		m.Stop()
	} else {
		m.Play()
	}
}

// Rewind stops playback and returns the cursor to step 0.
func (m *Manager) Rewind() {
	m.engine.Reset()
	debug.Log("transport", "rewind")
}

// SetTempo sets the BPM
func (m *Manager) SetTempo(bpm int) {
	if bpm < clock.MinTempo {
		bpm = clock.MinTempo
	}
	if bpm > clock.MaxTempo {
		bpm = clock.MaxTempo
	}
	m.engine.SetTempo(float64(bpm))
}

// PushPulse stamps a MIDI realtime message received at `at` and queues it for
// the engine. Safe for concurrent use.
func (m *Manager) PushPulse(kind clock.PulseKind, at time.Time) {
	m.pulseMu.Lock()
	ok := m.engine.PushPulse(clock.Pulse{Kind: kind, Time: m.timebase.Samples(at)})
	m.pulseMu.Unlock()
	if !ok {
		debug.LogEvery(100, "clock", "pulse queue full")
	}
}

// GetState returns the current transport state.
func (m *Manager) GetState() Status {
	e := m.engine
	return Status{
		State:       e.State(),
		Cursor:      e.Cursor(),
		Pattern:     e.Pattern(),
		Tempo:       e.Tempo(),
		ClockMode:   e.ClockMode(),
		FreeRunning: e.FreeRunning(),
		Triggers:    e.Triggers(),
		Output: modulation.Output{
			Pitch:  math.Float64frombits(m.pitch.Load()),
			Filter: math.Float64frombits(m.filter.Load()),
			Gate:   math.Float64frombits(m.gate.Load()),
		},
		Stats: e.Stats(),
	}
}

// renderLoop catches the engine up with the wall clock and dispatches fired
// triggers.
func (m *Manager) renderLoop() {
	defer m.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	buf := make([]modulation.Output, blockSize)
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.render(buf, time.Now())
		}
	}
}

func (m *Manager) render(buf []modulation.Output, now time.Time) {
	target := m.timebase.Samples(now)
	for m.engine.Position() < target {
		n := int(min(int64(len(buf)), target-m.engine.Position()))
		m.engine.Process(buf[:n])
		last := buf[n-1]
		m.pitch.Store(math.Float64bits(last.Pitch))
		m.filter.Store(math.Float64bits(last.Filter))
		m.gate.Store(math.Float64bits(last.Gate))
	}
	m.dispatch(now)
}

func (m *Manager) dispatch(now time.Time) {
	m.outMu.RLock()
	out := m.out
	m.outMu.RUnlock()

	for {
		ev, ok := m.engine.Events().Pop()
		if !ok {
			break
		}
		if out == nil {
			continue
		}
		if err := out.Send(ev, m.timebase.Time(ev.Time)); err != nil {
			debug.LogEvery(50, "output", "send failed: %v", err)
		}
	}
	if out != nil {
		out.Flush(now)
	}
}

// uiLoop notifies the TUI at a fixed rate and logs anomaly counters when
// they change.
func (m *Manager) uiLoop() {
	defer m.wg.Done()
	uiTicker := time.NewTicker(time.Second / uiFPS)
	statsTicker := time.NewTicker(time.Second)
	defer uiTicker.Stop()
	defer statsTicker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-uiTicker.C:
			m.notifyUpdate()
		case <-statsTicker.C:
			m.logStats()
		}
	}
}

func (m *Manager) logStats() {
	st := m.engine.Stats()
	if st == m.lastStats {
		return
	}
	debug.Log("engine", "faults=%d rejected=%d freeRuns=%d pulseDrop=%d eventDrop=%d overflow=%d",
		st.Faults, st.PulseRejected, st.FreeRuns, st.PulseDropped, st.EventDropped, st.Overflows)
	m.lastStats = st
}

// notifyUpdate wakes the TUI without blocking.
func (m *Manager) notifyUpdate() {
	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}
