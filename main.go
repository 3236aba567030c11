package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Southclaws/fault/fmsg"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-stepseq/config"
	"go-stepseq/debug"
	"go-stepseq/midi"
	"go-stepseq/params"
	"go-stepseq/pattern"
	"go-stepseq/remote"
	"go-stepseq/sequencer"
)

func main() {
	cmd, args := "run", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "ports":
		err = portsCmd()
	case "export":
		err = exportCmd(args)
	case "mcp":
		err = mcpCmd(args)
	case "config":
		err = configCmd(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("go-stepseq")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run     - Sequencer with terminal UI (default)")
	fmt.Println("  ports   - List MIDI ports")
	fmt.Println("  export  - Render a pattern to a standard MIDI file")
	fmt.Println("  mcp     - Serve the parameters as MCP tools on stdio")
	fmt.Println("  config  - Write the default config file")
}

func describe(err error) string {
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue
	}
	return err.Error()
}

// common flags shared by every command that builds an engine
type common struct {
	configPath string
	variant    string
	debugLog   bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default ~/.config/go-stepseq/config.json)")
	fs.StringVar(&c.variant, "variant", "", "override engine.variant: stepseq or advseq")
	fs.BoolVar(&c.debugLog, "debug", false, "log to ~/.config/go-stepseq/debug.log")
}

func (c *common) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if c.variant != "" {
		cfg.Engine.Variant = c.variant
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// rig is the engine, its driver and the parameter host.
type rig struct {
	cfg     *config.Config
	store   *pattern.Store
	engine  *sequencer.Engine
	manager *sequencer.Manager
	host    *params.Host
}

func (c *common) build() (*rig, error) {
	if c.debugLog {
		if err := debug.Enable(); err != nil {
			return nil, err
		}
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	r := &rig{cfg: cfg, store: pattern.NewStore(cfg.Variant())}
	r.engine = sequencer.NewEngine(r.store, cfg.EngineOptions())
	r.manager = sequencer.NewManager(r.engine)
	r.host = params.NewHost(r.store, r.engine, cfg.Engine.Seed)
	debug.Log("main", "variant=%s tempo=%.0f clock=%s", r.store.Variant(), cfg.Engine.Tempo, cfg.ClockMode())
	return r, nil
}

func mapping(cfg *config.Config) midi.Mapping {
	o := cfg.Output
	return midi.Mapping{
		Channel:    uint8(o.Channel - 1),
		RootNote:   uint8(o.RootNote),
		FilterCC:   uint8(o.FilterCC),
		Velocity:   uint8(o.Velocity),
		SampleRate: cfg.Engine.SampleRate,
	}
}

func portsCmd() error {
	ports, ok := midi.ListPorts()
	if !ok {
		fmt.Println("(port scan timed out)")
	}
	fmt.Println("=== MIDI Input Ports ===")
	for i, name := range ports.Ins {
		fmt.Printf("  [%d] %s\n", i, name)
	}
	fmt.Println("")
	fmt.Println("=== MIDI Output Ports ===")
	for i, name := range ports.Outs {
		fmt.Printf("  [%d] %s\n", i, name)
	}
	return nil
}

func exportCmd(args []string) error {
	var c common
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	c.register(fs)
	out := fs.String("o", "pattern.mid", "output file")
	loops := fs.Int("loops", 4, "number of passes through the loop")
	pat := fs.Int("pattern", 1, "pattern number 1-8")
	fs.Parse(args)

	r, err := c.build()
	if err != nil {
		return err
	}
	r.store.SelectPattern(*pat - 1)
	n, err := midi.ExportFile(*out, r.store, r.cfg.EngineOptions(), mapping(r.cfg), *loops)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d notes to %s\n", n, *out)
	return nil
}

func mcpCmd(args []string) error {
	var c common
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	c.register(fs)
	fs.Parse(args)

	r, err := c.build()
	if err != nil {
		return err
	}
	// stdout carries the protocol; output ports are optional
	if name := r.cfg.Output.PortName; name != "" {
		out, err := midi.OpenOut(name, mapping(r.cfg))
		if err != nil {
			debug.Log("main", "output: %v", err)
		} else {
			defer out.Close()
			r.manager.SetOutput(out)
		}
	}
	r.manager.StartRuntime()
	defer r.manager.Shutdown()
	return remote.New(r.host).ServeStdio()
}

func configCmd(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	path := fs.String("o", "", "where to write (default ~/.config/go-stepseq/config.json)")
	fs.Parse(args)

	cfg := config.DefaultConfig()
	if *path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		*path = p
	}
	if err := cfg.SaveFile(*path); err != nil {
		return err
	}
	fmt.Println("wrote", *path)
	return nil
}
