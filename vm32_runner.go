// vm32_runner.go - Frame-driven execution of a VM32 program

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
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

var runnerLog = commonlog.GetLogger("vm32.runner")

type RunnerState int

const (
	RunnerIdle RunnerState = iota
	RunnerRunning
	RunnerHalted
	RunnerFaulted
)

func (s RunnerState) String() string {
	switch s {
	case RunnerIdle:
		return "idle"
	case RunnerRunning:
		return "running"
	case RunnerHalted:
		return "halted"
	case RunnerFaulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type RunnerConfig struct {
	StackCapacity int
	StepsPerFrame int // budget for one RunFrame burst
	Output        io.Writer
}

// VM32Runner owns a VM and the program loaded into it. Hosts call RunFrame
// once per display frame; the runner never spawns goroutines.
type VM32Runner struct {
	vm     *VM
	output *TerminalOutput

	program []int32
	name    string

	stepsPerFrame int
	state         RunnerState
	last          Result
	keys          uint32

	totalSteps uint64
	frames     uint64
}

func NewVM32Runner(cfg RunnerConfig) *VM32Runner {
	if cfg.StepsPerFrame <= 0 {
		cfg.StepsPerFrame = DEFAULT_STEPS_PER_FRAME
	}
	out := NewTerminalOutput(cfg.Output)
	vm := NewVM(cfg.StackCapacity)
	vm.SetOutput(out)
	return &VM32Runner{
		vm:            vm,
		output:        out,
		stepsPerFrame: cfg.StepsPerFrame,
	}
}

func (r *VM32Runner) VM() *VM                 { return r.vm }
func (r *VM32Runner) Output() *TerminalOutput { return r.output }
func (r *VM32Runner) Program() []int32        { return r.program }
func (r *VM32Runner) Name() string            { return r.name }
func (r *VM32Runner) State() RunnerState      { return r.state }
func (r *VM32Runner) LastResult() Result      { return r.last }
func (r *VM32Runner) TotalSteps() uint64      { return r.totalSteps }
func (r *VM32Runner) Frames() uint64          { return r.frames }
func (r *VM32Runner) SetStepsPerFrame(n int)  { r.stepsPerFrame = max(n, 1) }
func (r *VM32Runner) StepsPerFrame() int      { return r.stepsPerFrame }
func (r *VM32Runner) Framebuffer() []int32    { return r.vm.Framebuffer() }

// Disassemble lists the loaded program.
func (r *VM32Runner) Disassemble() []DisassembledLine {
	return DisassembleVM32(r.program, CODE_BASE, len(r.program))
}

// LoadCells installs a program and makes the runner ready to run it.
func (r *VM32Runner) LoadCells(cells []int32, name string) {
	r.program = cells
	r.name = name
	runtimeStatus.setProgram(name)
	if len(cells) > MEM_SIZE-CODE_BASE {
		runnerLog.Warningf("%s: %d cells do not fit, %d dropped", name, len(cells), len(cells)-(MEM_SIZE-CODE_BASE))
	}
	r.Restart()
}

// LoadProgram loads a .ljbc file or builds a .lua producer script.
func (r *VM32Runner) LoadProgram(path string) error {
	cells, err := loadProgramFile(path)
	if err != nil {
		return err
	}
	runnerLog.Infof("loaded %s (%d cells)", path, len(cells))
	r.LoadCells(cells, filepath.Base(path))
	return nil
}

// Restart reloads the program into a zeroed machine.
func (r *VM32Runner) Restart() {
	r.vm.Load(r.program)
	r.output.Clear()
	r.state = RunnerRunning
	r.last = Result{OK: true, Steps: 1}
	r.totalSteps = 0
	r.frames = 0
	r.publish()
}

// RunFrame writes keys into the button register and runs one burst. A
// burst that uses up its budget is normal: the program continues next
// frame. Once halted or faulted, RunFrame does nothing until Restart.
func (r *VM32Runner) RunFrame(keys uint32) Result {
	if r.state != RunnerRunning {
		return r.last
	}
	r.keys = keys & KB_MASK
	r.vm.SetKeyboardState(r.keys)

	before := r.vm.InstructionCount()
	res := r.vm.Run(r.stepsPerFrame)
	r.totalSteps += r.vm.InstructionCount() - before
	r.frames++

	switch {
	case res.Halted():
		r.state = RunnerHalted
		runnerLog.Infof("%s halted after %d steps", r.name, r.totalSteps)
	case errors.Is(res.Err, StepBudgetExceeded):
		res = Result{OK: true, Steps: 1}
	default:
		r.state = RunnerFaulted
		r.logFault(res)
	}
	r.last = res
	r.publish()
	return res
}

// RunToCompletion runs without frames, for batch mode. Exceeding maxSteps
// counts as a fault here.
func (r *VM32Runner) RunToCompletion(maxSteps int) Result {
	if r.state != RunnerRunning {
		return r.last
	}
	before := r.vm.InstructionCount()
	res := r.vm.Run(maxSteps)
	r.totalSteps += r.vm.InstructionCount() - before

	if res.Halted() {
		r.state = RunnerHalted
	} else {
		r.state = RunnerFaulted
		r.logFault(res)
	}
	r.last = res
	r.publish()
	return res
}

// Trace single-steps up to maxSteps instructions, writing one line per
// instruction with the stack after it executed.
func (r *VM32Runner) Trace(w io.Writer, maxSteps int) Result {
	if r.state != RunnerRunning {
		return r.last
	}
	res := Result{}
	for range maxSteps {
		ip := r.vm.IP()
		mnemonic := "?"
		if lines := r.vm.DisassembleAt(ip, 1); len(lines) > 0 {
			mnemonic = lines[0].Mnemonic
		}
		res = r.vm.Step()
		if !res.OK {
			fmt.Fprintf(w, "%04X  %-18s  ! %s\n", ip, mnemonic, res.Message())
			break
		}
		fmt.Fprintf(w, "%04X  %-18s  %s\n", ip, mnemonic, formatStack(r.vm.Stack(), 6))
		if res.Halted() {
			break
		}
		r.totalSteps++
	}
	if res.OK && !res.Halted() {
		res = Result{Err: &VMError{Errno: StepBudgetExceeded, Msg: "Exceeded maxSteps", IP: r.vm.IP()}}
	}
	if res.Halted() {
		r.state = RunnerHalted
	} else {
		r.state = RunnerFaulted
	}
	r.last = res
	r.publish()
	return res
}

// SaveSnapshot writes the live machine to path.
func (r *VM32Runner) SaveSnapshot(path string) error {
	if err := SaveSnapshotToFile(TakeSnapshot(r.vm), path); err != nil {
		return err
	}
	runnerLog.Infof("snapshot saved to %s", path)
	return nil
}

// RestoreSnapshot replaces the live machine with a saved one and resumes it.
func (r *VM32Runner) RestoreSnapshot(path string) error {
	snap, err := LoadSnapshotFromFile(path)
	if err != nil {
		return err
	}
	if err := RestoreSnapshot(r.vm, snap); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.state = RunnerRunning
	r.last = Result{OK: true, Steps: 1}
	runnerLog.Infof("snapshot restored from %s (ip=%04X sp=%04X)", path, snap.IP, snap.SP)
	r.publish()
	return nil
}

func (r *VM32Runner) logFault(res Result) {
	var vmErr *VMError
	if errors.As(res.Err, &vmErr) {
		runnerLog.Errorf("%s: %s at ip=%04X (%s)", r.name, vmErr.Msg, vmErr.IP, OpcodeName(vmErr.Opcode))
		return
	}
	runnerLog.Errorf("%s: %s", r.name, res.Message())
}

func (r *VM32Runner) publish() {
	runtimeStatus.setMachine(r.state, r.vm.IP(), r.vm.SP(), r.vm.StackDepth(), r.keys)
	lastErr := ""
	if !r.last.OK {
		lastErr = r.last.Message()
	}
	runtimeStatus.setCounters(r.totalSteps, r.frames, lastErr, r.output.LastLine())
}

// formatStack renders the top n cells, top last.
func formatStack(stack []int32, n int) string {
	if len(stack) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if len(stack) > n {
		sb.WriteString("... ")
		stack = stack[len(stack)-n:]
	}
	for i, v := range stack {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	sb.WriteByte(']')
	return sb.String()
}
