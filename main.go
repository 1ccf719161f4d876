// main.go - Command-line host for the VM32 stack machine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nVM32: a 32-bit stack machine with a memory-mapped framebuffer and button pad.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// cliOptions are the flags that are not part of HostConfig.
type cliOptions struct {
	program    string
	demo       string
	configPath string
	batch      bool
	trace      bool
	disasm     bool
	pad        bool
	savePath   string
	pngPath    string
	snapPath   string
	restore    string
	dumpConfig bool
	version    bool
	verbosity  int
}

// keyBindable is implemented by hosts that poll a keyboard.
type keyBindable interface {
	SetKeyBindings(keys map[string]string) error
}

func main() {
	opts, cfg, err := parseCommandLine(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if opts.version {
		printFeatures(os.Stdout)
		os.Exit(0)
	}
	commonlog.Configure(opts.verbosity, nil)
	if opts.dumpConfig {
		data, err := cfg.Encode()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		os.Exit(0)
	}
	if !opts.batch && !opts.trace && !opts.disasm {
		boilerPlate()
	}
	os.Exit(run(opts, cfg))
}

// parseCommandLine reads the flags, loads the -config file if given and
// applies every flag that was set explicitly on top of it.
func parseCommandLine(args []string) (cliOptions, HostConfig, error) {
	var (
		opts          cliOptions
		headless      bool
		stack         int
		maxSteps      int
		stepsPerFrame int
		frames        int
		scale         int
	)
	defaults := DefaultHostConfig()

	flagSet := flag.NewFlagSet("vm32", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.demo, "demo", "", "Run a built-in program: "+strings.Join(DemoNames(), ", "))
	flagSet.StringVar(&opts.configPath, "config", "", "TOML host configuration file")
	flagSet.BoolVar(&headless, "headless", defaults.Display.Headless, "Run frames without a window")
	flagSet.IntVar(&stack, "stack", defaults.Machine.StackCapacity, "Stack capacity in cells")
	flagSet.IntVar(&maxSteps, "max-steps", defaults.Machine.MaxSteps, "Step budget for -batch and -trace")
	flagSet.IntVar(&stepsPerFrame, "steps-per-frame", defaults.Machine.StepsPerFrame, "Steps executed per display frame")
	flagSet.IntVar(&frames, "frames", defaults.Display.MaxFrames, "Stop after this many frames (0 = no limit)")
	flagSet.IntVar(&scale, "scale", defaults.Display.Scale, "Window scale factor")
	flagSet.BoolVar(&opts.batch, "batch", false, "Run to completion without a display")
	flagSet.BoolVar(&opts.trace, "trace", false, "Single-step and print every instruction")
	flagSet.BoolVar(&opts.disasm, "disasm", false, "Print a listing of the program and exit")
	flagSet.BoolVar(&opts.pad, "pad", false, "Read buttons from the terminal in headless mode")
	flagSet.StringVar(&opts.savePath, "save", "", "Write the program as .ljbc")
	flagSet.StringVar(&opts.pngPath, "png", "", "Write the framebuffer as PNG when the run ends")
	flagSet.StringVar(&opts.snapPath, "snapshot", "", "Write a machine snapshot when the run ends (F5 in the window)")
	flagSet.StringVar(&opts.restore, "restore", "", "Resume from a machine snapshot")
	flagSet.BoolVar(&opts.dumpConfig, "dump-config", false, "Print the effective configuration as TOML and exit")
	flagSet.BoolVar(&opts.version, "version", false, "Print version and compiled features, then exit")
	flagSet.IntVar(&opts.verbosity, "v", 0, "Log verbosity (0 errors .. 4 debug)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./vm32 [flags] [program.ljbc|script.lua]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
		}
		return opts, defaults, err
	}
	opts.program = flagSet.Arg(0)

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := LoadHostConfig(opts.configPath)
		if err != nil {
			return opts, defaults, err
		}
		cfg = loaded
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Display.Headless = headless
		case "stack":
			cfg.Machine.StackCapacity = stack
		case "max-steps":
			cfg.Machine.MaxSteps = maxSteps
		case "steps-per-frame":
			cfg.Machine.StepsPerFrame = stepsPerFrame
		case "frames":
			cfg.Display.MaxFrames = frames
		case "scale":
			cfg.Display.Scale = scale
		}
	})
	if opts.pad {
		cfg.Display.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		return opts, cfg, err
	}
	if opts.program != "" && opts.demo != "" {
		return opts, cfg, fmt.Errorf("give either a program file or -demo, not both")
	}
	return opts, cfg, nil
}

// loadCells resolves the program named on the command line.
func loadCells(opts cliOptions) ([]int32, string, error) {
	switch {
	case opts.demo != "":
		cells, err := DemoProgram(opts.demo)
		return cells, opts.demo, err
	case opts.program != "":
		cells, err := loadProgramFile(opts.program)
		return cells, filepath.Base(opts.program), err
	case opts.restore != "":
		return nil, filepath.Base(opts.restore), nil
	}
	return nil, "", fmt.Errorf("no program: give a .ljbc or .lua file, or -demo name")
}

func run(opts cliOptions, cfg HostConfig) int {
	cells, name, err := loadCells(opts)
	if err != nil {
		fmt.Printf("Error loading program: %v\n", err)
		return 1
	}

	if opts.savePath != "" {
		if err := SaveBytecodeToFile(cells, opts.savePath); err != nil {
			fmt.Printf("Error saving bytecode: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote %d cells to %s\n", len(cells), opts.savePath)
	}
	if opts.disasm {
		fmt.Print(FormatListing(DisassembleVM32(cells, CODE_BASE, len(cells)), MEM_SIZE))
		return 0
	}

	runner := NewVM32Runner(RunnerConfig{
		StackCapacity: cfg.Machine.StackCapacity,
		StepsPerFrame: cfg.Machine.StepsPerFrame,
		Output:        os.Stdout,
	})
	runner.LoadCells(cells, name)
	if opts.restore != "" {
		if err := runner.RestoreSnapshot(opts.restore); err != nil {
			fmt.Printf("Error restoring snapshot: %v\n", err)
			return 1
		}
	}

	var res Result
	switch {
	case opts.trace:
		res = runner.Trace(os.Stdout, cfg.Machine.MaxSteps)
	case opts.batch:
		res = runner.RunToCompletion(cfg.Machine.MaxSteps)
	default:
		if err := runFrames(runner, opts, cfg); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		res = runner.LastResult()
	}
	return finish(runner, opts, res)
}

// runFrames drives the runner from a video host until it stops.
func runFrames(runner *VM32Runner, opts cliOptions, cfg HostConfig) error {
	backend := VIDEO_BACKEND_EBITEN
	if cfg.Display.Headless {
		backend = VIDEO_BACKEND_HEADLESS
	}
	out, err := NewVideoOutput(backend)
	if err != nil {
		return err
	}
	defer out.Close()

	dc := out.GetDisplayConfig()
	dc.Scale = cfg.Display.Scale
	dc.Fullscreen = cfg.Display.Fullscreen
	dc.StatusBar = cfg.Display.StatusBar
	dc.RefreshRate = cfg.Display.RefreshHz
	dc.MaxFrames = cfg.Display.MaxFrames
	if err := out.SetDisplayConfig(dc); err != nil {
		return err
	}
	if kb, ok := out.(keyBindable); ok {
		if err := kb.SetKeyBindings(cfg.Keys); err != nil {
			return err
		}
	}
	if ctl, ok := out.(ControllableOutput); ok {
		snapPath := opts.snapPath
		if snapPath == "" {
			snapPath = strings.TrimSuffix(runner.Name(), filepath.Ext(runner.Name())) + ".ljsn"
		}
		snapshot := func() {
			if err := runner.SaveSnapshot(snapPath); err != nil {
				runnerLog.Errorf("snapshot: %v", err)
			}
		}
		ctl.SetHostControls(HostControls{Restart: runner.Restart, Snapshot: snapshot})
	}
	if h, ok := out.(*HeadlessVideoOutput); ok && opts.pad {
		pad := NewTerminalPad()
		if err := pad.Start(); err != nil {
			return fmt.Errorf("terminal pad: %w", err)
		}
		defer pad.Stop()
		h.SetKeySource(pad)
		h.SetPaced(true)
	}

	rgba := make([]byte, FB_WIDTH*FB_HEIGHT*4)
	out.SetFrameHandler(func(keys uint32) bool {
		runner.RunFrame(keys)
		FramebufferToRGBA(runner.Framebuffer(), rgba)
		out.UpdateFrame(rgba)
		// The window stays open after HALT so the final frame can be seen.
		return backend == VIDEO_BACKEND_EBITEN || runner.State() == RunnerRunning
	})
	return out.Run()
}

// finish writes the end-of-run artefacts and maps the result to an exit code.
func finish(runner *VM32Runner, opts cliOptions, res Result) int {
	if opts.pngPath != "" {
		if err := savePNG(opts.pngPath, runner.Framebuffer()); err != nil {
			fmt.Printf("Error writing PNG: %v\n", err)
		}
	}
	if opts.snapPath != "" {
		if err := runner.SaveSnapshot(opts.snapPath); err != nil {
			fmt.Printf("Error writing snapshot: %v\n", err)
		}
	}
	if !res.OK {
		fmt.Fprintf(os.Stderr, "VM error: %s\n", res.Message())
		return 1
	}
	return 0
}

func savePNG(path string, cells []int32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeFramebufferPNG(f, cells); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
