package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalOutput_ForwardsAndRemembers(t *testing.T) {
	var down bytes.Buffer
	out := NewTerminalOutput(&down)
	n, err := out.Write([]byte("1\n2\npartial"))
	if err != nil || n != 11 {
		t.Fatalf("expected 11 bytes written, got %d, %v", n, err)
	}
	if down.String() != "1\n2\npartial" {
		t.Fatalf("expected bytes forwarded, got %q", down.String())
	}
	lines := out.RecentLines()
	if len(lines) != 2 || lines[0] != "1" || lines[1] != "2" {
		t.Fatalf("expected [1 2], got %v", lines)
	}
	out.Write([]byte("\n"))
	if out.LastLine() != "partial" {
		t.Fatalf("expected last line partial, got %q", out.LastLine())
	}
}

func TestTerminalOutput_HistoryLimit(t *testing.T) {
	out := NewTerminalOutput(&bytes.Buffer{})
	for i := range MAX_RECENT_LINES + 3 {
		out.Write([]byte(strings.Repeat("x", i) + "\n"))
	}
	lines := out.RecentLines()
	if len(lines) != MAX_RECENT_LINES {
		t.Fatalf("expected %d lines, got %d", MAX_RECENT_LINES, len(lines))
	}
	if len(lines[0]) != 3 {
		t.Fatalf("expected oldest kept line to have 3 chars, got %q", lines[0])
	}
}

func TestTerminalOutput_DisableAndClear(t *testing.T) {
	var down bytes.Buffer
	out := NewTerminalOutput(&down)
	out.Disable()
	out.Write([]byte("hidden\n"))
	if down.Len() != 0 {
		t.Fatalf("expected nothing forwarded while disabled, got %q", down.String())
	}
	if out.LastLine() != "hidden" {
		t.Fatalf("expected line remembered while disabled, got %q", out.LastLine())
	}
	out.Enable()
	out.Clear()
	if out.LastLine() != "" || len(out.RecentLines()) != 0 {
		t.Fatal("expected empty history after Clear")
	}
}

func TestTerminalOutput_LongLineSplit(t *testing.T) {
	out := NewTerminalOutput(&bytes.Buffer{})
	out.Write(bytes.Repeat([]byte{'a'}, MAX_LINE+5))
	out.Write([]byte("\n"))
	lines := out.RecentLines()
	if len(lines) != 2 || len(lines[0]) != MAX_LINE || len(lines[1]) != 5 {
		t.Fatalf("expected lines of %d and 5, got %d lines", MAX_LINE, len(lines))
	}
}

func TestTerminalOutput_AsVMSink(t *testing.T) {
	var down bytes.Buffer
	out := NewTerminalOutput(&down)
	vm := NewVM(DEFAULT_STACK_CAPACITY)
	vm.SetOutput(out)
	vm.Load(FactorialProgram())
	if res := vm.Run(DEFAULT_MAX_STEPS); !res.Halted() {
		t.Fatalf("expected halt, got %s", res.Message())
	}
	if out.LastLine() != "120" || down.String() != "120\n" {
		t.Fatalf("expected 120, got %q / %q", out.LastLine(), down.String())
	}
}
