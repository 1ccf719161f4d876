package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRunner(stepsPerFrame int, cells []int32) (*VM32Runner, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewVM32Runner(RunnerConfig{StepsPerFrame: stepsPerFrame, Output: &out})
	r.LoadCells(cells, "test")
	return r, &out
}

func TestRunner_BurstsUntilHalt(t *testing.T) {
	r, out := newTestRunner(10, FactorialProgram())
	frames := 0
	for r.State() == RunnerRunning {
		res := r.RunFrame(0)
		frames++
		if !res.OK {
			t.Fatalf("frame %d: unexpected fault %s", frames, res.Message())
		}
		if frames > 100 {
			t.Fatal("factorial did not halt")
		}
	}
	if r.State() != RunnerHalted {
		t.Fatalf("expected halted, got %v", r.State())
	}
	if frames < 2 {
		t.Fatalf("expected several bursts with a 10-step budget, got %d", frames)
	}
	if out.String() != "120\n" || r.Output().LastLine() != "120" {
		t.Fatalf("expected 120, got %q", out.String())
	}
	if r.TotalSteps() != r.VM().InstructionCount() {
		t.Fatalf("expected %d steps, got %d", r.VM().InstructionCount(), r.TotalSteps())
	}

	// Halted runners ignore further frames.
	before := r.Frames()
	r.RunFrame(0)
	if r.Frames() != before {
		t.Fatal("expected no frame counted after halt")
	}
}

func TestRunner_FaultStops(t *testing.T) {
	r, _ := newTestRunner(100, NewBytecodeBuilder().PushI(1).PushI(0).Mod().Halt().Cells())
	res := r.RunFrame(0)
	if res.OK || !errors.Is(res.Err, ModuloByZero) {
		t.Fatalf("expected modulo by zero, got %+v", res)
	}
	if r.State() != RunnerFaulted || r.LastResult().Message() != "Modulo by zero" {
		t.Fatalf("expected faulted state, got %v %q", r.State(), r.LastResult().Message())
	}
	if runtimeStatus.snapshot().lastError != "Modulo by zero" {
		t.Fatal("expected fault published to the status store")
	}

	r.Restart()
	if r.State() != RunnerRunning || r.TotalSteps() != 0 {
		t.Fatalf("expected running after restart, got %v", r.State())
	}
}

func TestRunner_KeysReachProgram(t *testing.T) {
	cells := NewBytecodeBuilder().Load(KB_STATE_ADDR).Print().Halt().Cells()
	r, out := newTestRunner(100, cells)
	r.RunFrame(KB_LEFT | KB_START | 0xF000)
	want := "2052\n" // left|start, bits above KB_MASK dropped
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
}

func TestRunner_RunToCompletionBudget(t *testing.T) {
	r, _ := newTestRunner(0, PadProgram())
	res := r.RunToCompletion(1000)
	if res.OK || !errors.Is(res.Err, StepBudgetExceeded) {
		t.Fatalf("expected budget exhaustion, got %+v", res)
	}
	if r.State() != RunnerFaulted {
		t.Fatalf("expected faulted after budget in batch mode, got %v", r.State())
	}
	if r.TotalSteps() != 1000 {
		t.Fatalf("expected 1000 steps, got %d", r.TotalSteps())
	}
}

func TestRunner_Trace(t *testing.T) {
	r, _ := newTestRunner(0, DivideProgram())
	var trace bytes.Buffer
	res := r.Trace(&trace, 100)
	if !res.Halted() {
		t.Fatalf("expected halt, got %s", res.Message())
	}
	lines := strings.Split(strings.TrimSpace(trace.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 trace lines, got %d:\n%s", len(lines), trace.String())
	}
	if !strings.HasPrefix(lines[0], "0000  PUSHI #10") || !strings.HasSuffix(lines[0], "[10]") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "[3]") {
		t.Fatalf("expected quotient on the stack, got %q", lines[2])
	}

	r, _ = newTestRunner(0, NewBytecodeBuilder().Pop().Cells())
	trace.Reset()
	if res := r.Trace(&trace, 10); res.OK {
		t.Fatal("expected underflow")
	}
	if !strings.Contains(trace.String(), "! Stack underflow (POP)") {
		t.Fatalf("expected fault line, got %q", trace.String())
	}
}

func TestRunner_SnapshotRestore(t *testing.T) {
	r, out := newTestRunner(15, FactorialProgram())
	r.RunFrame(0)
	path := filepath.Join(t.TempDir(), "mid.ljsn")
	if err := r.SaveSnapshot(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	ip := r.VM().IP()

	r.Restart()
	if err := r.RestoreSnapshot(path); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r.VM().IP() != ip {
		t.Fatalf("expected ip %04X after restore, got %04X", ip, r.VM().IP())
	}
	for r.State() == RunnerRunning {
		r.RunFrame(0)
	}
	if r.State() != RunnerHalted || out.String() != "120\n" {
		t.Fatalf("expected 120 after resuming, got %v %q", r.State(), out.String())
	}
}

func TestFormatStack(t *testing.T) {
	if got := formatStack(nil, 4); got != "[]" {
		t.Fatalf("expected [], got %q", got)
	}
	if got := formatStack([]int32{1, 2, 3, 4, 5}, 3); got != "[... 3 4 5]" {
		t.Fatalf("expected tail of stack, got %q", got)
	}
}
