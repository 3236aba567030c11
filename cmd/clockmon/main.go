package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepseq/clock"
	"go-stepseq/midi"
	"go-stepseq/pattern"
)

const sampleRate = 48000

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "watch":
		err = watch(arg(2, ""))
	case "send":
		bpm, _ := strconv.ParseFloat(arg(3, "120"), 64)
		err = send(arg(2, ""), bpm)
	case "detect":
		detectLaunchpad()
	case "leds":
		err = testLEDs()
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func usage() {
	fmt.Println("MIDI clock and surface tests")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list               - List all MIDI ports")
	fmt.Println("  watch [port]       - Print the tempo of incoming MIDI clock")
	fmt.Println("  send [port] [bpm]  - Send MIDI clock with start/stop")
	fmt.Println("  detect             - Find Launchpad X")
	fmt.Println("  leds               - Draw a test pattern on the Launchpad")
}

func listPorts() error {
	fmt.Println("(waiting up to 3 seconds...)")
	ports, ok := midi.ListPorts()
	if !ok {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return nil
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ports.Ins {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Output Ports ===")
	for i, name := range ports.Outs {
		fmt.Printf("  %d: %s\n", i, name)
	}
	return nil
}

// meter measures clock pulses with the same adapter the engine uses.
type meter struct {
	tb clock.Timebase

	mu      sync.Mutex
	adapter *clock.PulseAdapter
	running bool
	events  []string
}

func (m *meter) PushPulse(kind clock.PulseKind, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tb.Samples(at)
	switch kind {
	case clock.PulseClock:
		m.adapter.OnClockTick(now)
		m.adapter.Tick(now)
	case clock.PulseStart:
		m.adapter.Reset(now)
		m.running = true
		m.events = append(m.events, "START")
	case clock.PulseContinue:
		m.running = true
		m.events = append(m.events, "CONTINUE")
	case clock.PulseStop:
		m.running = false
		m.events = append(m.events, "STOP")
	}
}

func (m *meter) report() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := "no clock"
	if avg := m.adapter.Average(); avg > 0 {
		bpm := 60 * sampleRate / (avg * clock.PPQN)
		out = fmt.Sprintf("%6.2f bpm", bpm)
	}
	state := "stopped"
	if m.running {
		state = "running"
	}
	out += fmt.Sprintf("  %s  rejected=%d", state, m.adapter.Rejected())
	for _, ev := range m.events {
		out += "  " + ev
	}
	m.events = m.events[:0]
	return out
}

func watch(port string) error {
	m := &meter{
		tb:      clock.Timebase{Start: time.Now(), SampleRate: sampleRate},
		adapter: clock.NewPulseAdapter(clock.DefaultPulsesPerStep, clock.StepPeriod(sampleRate, 120, 1)),
	}
	in, err := midi.OpenClockIn(port, m)
	if err != nil {
		return err
	}
	defer in.Close()

	fmt.Println("Listening for MIDI clock. Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			fmt.Printf("\n%d pulses\n", in.Pulses())
			return nil
		case <-ticker.C:
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), m.report())
		}
	}
}

func send(port string, bpm float64) error {
	out, err := midi.FindOutPort(port)
	if err != nil {
		return err
	}
	tx, err := gomidi.SendTo(out)
	if err != nil {
		return err
	}
	bpm = clock.ClampTempo(bpm)
	interval := time.Duration(float64(time.Minute) / (bpm * clock.PPQN))
	fmt.Printf("Sending clock at %.1f bpm to %s. Ctrl+C to stop.\n", bpm, out.String())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	tx(gomidi.Start())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			return tx(gomidi.Stop())
		case <-ticker.C:
			tx(gomidi.TimingClock())
		}
	}
}

func detectLaunchpad() {
	fmt.Println("Looking for Launchpad X...")
	ports, _ := midi.ListPorts()

	var inFound, outFound bool
	for i, name := range ports.Ins {
		if midi.IsLaunchpad(name) {
			fmt.Printf("Found input: %d: %s\n", i, name)
			inFound = true
		}
	}
	for i, name := range ports.Outs {
		if midi.IsLaunchpad(name) {
			fmt.Printf("Found output: %d: %s\n", i, name)
			outFound = true
		}
	}

	if inFound && outFound {
		fmt.Println("\nLaunchpad X detected!")
	} else {
		fmt.Println("\nLaunchpad X not found")
	}
}

func testLEDs() error {
	lp, err := midi.OpenLaunchpad()
	if err != nil {
		return err
	}
	defer lp.Close()

	fmt.Println("Walking the playhead across a factory pattern...")
	seq := pattern.DefaultBank(pattern.VariantStepSeq)[3]
	view := midi.GridView{Steps: seq.Steps[:midi.GridSteps], Length: seq.Length, Cursor: -1, Playing: true}
	for i := 0; i < midi.GridSteps; i++ {
		view.Playhead = i
		lp.Draw(view)
		time.Sleep(100 * time.Millisecond)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()
	fmt.Println("Done!")
	return nil
}
