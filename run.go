package main

import (
	"context"
	"flag"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"

	"go-stepseq/clock"
	"go-stepseq/debug"
	"go-stepseq/midi"
	"go-stepseq/theme"
	"go-stepseq/tui"
)

const surfaceFPS = 30

func runCmd(args []string) error {
	var c common
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	c.register(fs)
	fs.Parse(args)

	r, err := c.build()
	if err != nil {
		return err
	}
	th, err := theme.Load(r.cfg.UI.Palette)
	if err != nil {
		return err
	}

	var startup []error

	if name := r.cfg.Output.PortName; name != "" {
		out, err := midi.OpenOut(name, mapping(r.cfg))
		if err != nil {
			startup = append(startup, err)
		} else {
			defer out.Close()
			r.manager.SetOutput(out)
		}
	}

	if r.cfg.ClockMode() == clock.ModeMIDI {
		in, err := midi.OpenClockIn(r.cfg.Clock.PortName, r.manager)
		if err != nil {
			startup = append(startup, err)
		} else {
			defer in.Close()
		}
	}

	if name := r.cfg.Control.PortName; name != "" {
		ctl := midi.NewControl(r.host, r.cfg.Control.Channel, r.cfg.Control.CCMap)
		if err := midi.OpenControl(name, ctl); err != nil {
			startup = append(startup, err)
		} else {
			defer ctl.Close()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := midi.NewPortWatcher("launchpad", r.cfg.Clock.PortName, r.cfg.Control.PortName)
	go watcher.Run(ctx)
	uiPorts := make(chan midi.PortEvent, 16)
	pads := &padRunner{rig: r, colors: gridColors(th)}
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		defer close(uiPorts)
		defer pads.detach()
		for ev := range watcher.Events() {
			if midi.IsLaunchpad(ev.Name) {
				if ev.Type == midi.PortConnected {
					pads.attach(ctx)
				} else {
					pads.detach()
				}
			}
			select {
			case uiPorts <- ev:
			default:
			}
		}
	}()

	r.manager.StartRuntime()
	defer r.manager.Shutdown()
	r.manager.Play()

	m := tui.NewModel(r.manager, r.host, th)
	m.Ports = uiPorts

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		for _, err := range startup {
			p.Send(tui.ErrorMsg{Err: err})
		}
	}()

	_, err = p.Run()
	// blank the Launchpad before the ports close
	cancel()
	<-watchDone
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("ui", "The terminal UI stopped unexpectedly."))
	}
	return nil
}

func gridColors(th *theme.Theme) midi.GridColors {
	return midi.GridColors{
		Active:   th.RGB(theme.RoleActive),
		Inactive: th.RGB(theme.RoleSurface),
		Beyond:   [3]uint8{},
		Playhead: th.RGB(theme.RoleSuccess),
		Cursor:   th.RGB(theme.RoleCursor),
		Pattern:  th.RGB(theme.RoleMuted),
		Selected: th.RGB(theme.RoleAccent),
	}
}

// padRunner owns the Launchpad while it is plugged in.
type padRunner struct {
	rig    *rig
	colors midi.GridColors

	lp     *midi.Launchpad
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *padRunner) attach(ctx context.Context) {
	if p.lp != nil {
		return
	}
	lp, err := midi.OpenLaunchpad()
	if err != nil {
		debug.Log("launchpad", "open: %v", err)
		return
	}
	lp.Colors = p.colors
	surface := midi.NewSurface(lp, p.rig.host, p.rig.manager)

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.lp = lp
	go func(done chan struct{}) {
		defer close(done)
		surface.Run(ctx, surfaceFPS)
	}(p.done)
}

func (p *padRunner) detach() {
	if p.lp == nil {
		return
	}
	p.cancel()
	<-p.done
	p.lp.Close()
	p.lp = nil
}
