package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCommandLine_Defaults(t *testing.T) {
	opts, cfg, err := parseCommandLine([]string{"prog.ljbc"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opts.program != "prog.ljbc" {
		t.Fatalf("expected program prog.ljbc, got %q", opts.program)
	}
	if cfg.Machine.StackCapacity != DEFAULT_STACK_CAPACITY || cfg.Machine.MaxSteps != DEFAULT_MAX_STEPS {
		t.Fatalf("expected default machine config, got %+v", cfg.Machine)
	}
	if cfg.Display.Headless {
		t.Fatal("expected windowed host by default")
	}
}

func TestParseCommandLine_FlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vm32.toml")
	data := "[machine]\nstack_capacity = 64\nmax_steps = 500\n[display]\nscale = 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	_, cfg, err := parseCommandLine([]string{"-config", path, "-max-steps", "9000", "-frames", "3", "-demo", "factorial"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Machine.StackCapacity != 64 {
		t.Fatalf("expected stack 64 from file, got %d", cfg.Machine.StackCapacity)
	}
	if cfg.Machine.MaxSteps != 9000 {
		t.Fatalf("expected -max-steps to win, got %d", cfg.Machine.MaxSteps)
	}
	if cfg.Display.Scale != 2 || cfg.Display.MaxFrames != 3 {
		t.Fatalf("expected scale 2 and 3 frames, got %+v", cfg.Display)
	}
}

func TestParseCommandLine_PadImpliesHeadless(t *testing.T) {
	_, cfg, err := parseCommandLine([]string{"-pad", "-demo", "pad"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cfg.Display.Headless {
		t.Fatal("expected -pad to select the headless host")
	}
}

func TestParseCommandLine_Errors(t *testing.T) {
	if _, _, err := parseCommandLine([]string{"-nope"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
	if _, _, err := parseCommandLine([]string{"-scale", "0"}); err == nil {
		t.Fatal("expected invalid scale error")
	}
	if _, _, err := parseCommandLine([]string{"-demo", "factorial", "x.ljbc"}); err == nil {
		t.Fatal("expected error for program and -demo together")
	}
	if _, _, err := parseCommandLine([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
}

func TestLoadCells_Sources(t *testing.T) {
	cells, name, err := loadCells(cliOptions{demo: "divide"})
	if err != nil || name != "divide" || len(cells) == 0 {
		t.Fatalf("expected divide demo, got %d cells %q %v", len(cells), name, err)
	}
	if _, _, err := loadCells(cliOptions{demo: "missing"}); err == nil {
		t.Fatal("expected unknown demo error")
	}
	if _, _, err := loadCells(cliOptions{}); err == nil {
		t.Fatal("expected error without a program")
	}

	path := filepath.Join(t.TempDir(), "fact.ljbc")
	if err := SaveBytecodeToFile(FactorialProgram(), path); err != nil {
		t.Fatal(err)
	}
	cells, name, err = loadCells(cliOptions{program: path})
	if err != nil || name != "fact.ljbc" || len(cells) != len(FactorialProgram()) {
		t.Fatalf("expected factorial from file, got %d cells %q %v", len(cells), name, err)
	}
}

func TestRun_BatchWritesArtefacts(t *testing.T) {
	dir := t.TempDir()
	opts := cliOptions{
		demo:     "stripes",
		batch:    true,
		savePath: filepath.Join(dir, "stripes.ljbc"),
		pngPath:  filepath.Join(dir, "stripes.png"),
		snapPath: filepath.Join(dir, "stripes.ljsn"),
	}
	cfg := DefaultHostConfig()
	cfg.Machine.MaxSteps = DEFAULT_MAX_STEPS * 2
	if code := run(opts, cfg); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, p := range []string{opts.savePath, opts.pngPath, opts.snapPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to exist: %v", filepath.Base(p), err)
		}
	}
}

func TestRun_BatchFaultExitsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "div0.ljbc")
	b := NewBytecodeBuilder().PushI(1).PushI(0).Div().Halt()
	if err := SaveBytecodeToFile(b.Cells(), path); err != nil {
		t.Fatal(err)
	}
	if code := run(cliOptions{program: path, batch: true}, DefaultHostConfig()); code != 1 {
		t.Fatalf("expected exit 1 on division by zero, got %d", code)
	}
}

func TestRun_HeadlessFrames(t *testing.T) {
	cfg := DefaultHostConfig()
	cfg.Display.Headless = true
	cfg.Display.MaxFrames = 4
	if code := run(cliOptions{demo: "pad"}, cfg); code != 0 {
		t.Fatalf("expected exit 0 for a frame-limited run, got %d", code)
	}
}

func TestPrintFeatures(t *testing.T) {
	var sb strings.Builder
	printFeatures(&sb)
	out := sb.String()
	if !strings.HasPrefix(out, "VM32 "+Version) || !strings.Contains(out, "producer:lua") {
		t.Fatalf("unexpected feature listing:\n%s", out)
	}
}
