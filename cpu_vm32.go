// cpu_vm32.go - VM32 stack machine execution engine

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
	"fmt"
	"io"
	"os"
)

/*
VM is the VM32 execution engine: an instruction pointer, a stack pointer and
the cell memory they index.

Step fetches one opcode cell, fetches its operand cell if the catalogue says
it has one, and executes it. A trap leaves the machine exactly as it was
before the faulting instruction: ip points back at the opcode and the stack
is untouched, so a host can inspect the state, fix it, or Reset/Load.

The VM is not safe for concurrent use. One caller owns it and drives it
through Step or Run; the step budget passed to Run is the only way it ever
yields.
*/
type VM struct {
	ip uint32
	sp uint32 // next free stack slot; top of stack is sp-1

	stackCap uint32 // configured capacity in cells, 0 = whole region
	stackEnd uint32 // effective exclusive ceiling for sp

	executed uint64
	out      io.Writer

	mem Memory
}

// NewVM creates a machine whose stack holds at most stackCapacity cells.
// Zero or a negative capacity selects the whole stack region.
func NewVM(stackCapacity int) *VM {
	vm := &VM{out: os.Stdout}
	if stackCapacity > 0 {
		vm.stackCap = uint32(min(stackCapacity, STACK_LIMIT-STACK_BASE))
	}
	vm.stackEnd = STACK_LIMIT
	if vm.stackCap > 0 {
		vm.stackEnd = STACK_BASE + vm.stackCap
	}
	vm.Reset()
	return vm
}

// Load zeroes memory and copies the program into the code region. Cells
// that do not fit before MEM_SIZE are dropped.
func (vm *VM) Load(cells []int32) {
	vm.Reset()
	vm.mem.CopyIn(CODE_BASE, cells)
}

// Reset zeroes memory and rewinds ip and sp.
func (vm *VM) Reset() {
	vm.mem.Reset()
	vm.ip = CODE_BASE
	vm.sp = STACK_BASE
	vm.executed = 0
}

// SetOutput redirects PRINT. A nil writer discards output.
func (vm *VM) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	vm.out = w
}

func (vm *VM) IP() uint32 { return vm.ip }
func (vm *VM) SP() uint32 { return vm.sp }

// StackCapacity returns the configured capacity (0 = whole region).
func (vm *VM) StackCapacity() int { return int(vm.stackCap) }

// StackDepth returns the number of cells on the stack.
func (vm *VM) StackDepth() int { return int(vm.sp - STACK_BASE) }

// InstructionCount returns how many instructions completed since the last
// Reset or Load. HALT does not count.
func (vm *VM) InstructionCount() uint64 { return vm.executed }

// Stack returns a copy of the stack, bottom first.
func (vm *VM) Stack() []int32 {
	out := make([]int32, vm.sp-STACK_BASE)
	copy(out, vm.mem[STACK_BASE:vm.sp])
	return out
}

// MemAt returns the cell at addr.
func (vm *VM) MemAt(addr uint32) (int32, bool) {
	return vm.mem.Read(addr)
}

// PokeCell writes a cell from the host side.
func (vm *VM) PokeCell(addr uint32, value int32) bool {
	return vm.mem.Write(addr, value)
}

// Framebuffer returns the live framebuffer cells, row-major.
func (vm *VM) Framebuffer() []int32 {
	return vm.mem.Region(FB_BASE, FB_SIZE)
}

// SetKeyboardState writes the held-button mask into KB_STATE_ADDR.
func (vm *VM) SetKeyboardState(mask uint32) {
	vm.mem[KB_STATE_ADDR] = int32(mask)
}

// KeyboardState reads back the button register.
func (vm *VM) KeyboardState() uint32 {
	return uint32(vm.mem[KB_STATE_ADDR])
}

// restoreState is used by snapshots; sp is clamped to the live stack bounds.
func (vm *VM) restoreState(ip, sp uint32) {
	vm.ip = ip
	vm.sp = min(max(sp, STACK_BASE), vm.stackEnd)
}

func (vm *VM) fetch() (uint32, bool) {
	if vm.ip >= MEM_SIZE {
		return 0, false
	}
	cell := uint32(vm.mem[vm.ip])
	vm.ip++
	return cell, true
}

// room reports whether n more cells fit on the stack.
func (vm *VM) room(n uint32) bool {
	return vm.stackEnd-vm.sp >= n
}

// depth reports whether at least n cells are on the stack.
func (vm *VM) depth(n uint32) bool {
	return vm.sp-STACK_BASE >= n
}

func (vm *VM) push(v int32) {
	vm.mem[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() int32 {
	vm.sp--
	return vm.mem[vm.sp]
}

// Run steps until HALT, a trap, or maxSteps instructions without either.
func (vm *VM) Run(maxSteps int) Result {
	var r Result
	for range maxSteps {
		r = vm.Step()
		if !r.OK || r.Steps == 0 {
			return r
		}
	}
	r.OK = false
	r.Err = &VMError{Errno: StepBudgetExceeded, Msg: "Exceeded maxSteps", IP: vm.ip}
	return r
}

// Step executes one instruction. HALT returns OK with zero steps and leaves
// ip on the HALT cell rather than one past it, so a halted machine halts
// again on the next Step. Memory and sp are untouched by HALT.
func (vm *VM) Step() Result {
	start := vm.ip
	op, ok := vm.fetch()
	if !ok {
		return Result{Err: trap(IPOutOfRange, start, 0, "IP out of range")}
	}
	info, ok := lookupOpcode(op)
	if !ok {
		vm.ip = start
		return Result{Err: trap(InvalidOpcode, start, op, "Invalid opcode")}
	}

	var operand uint32
	if info.Operands > 0 {
		if operand, ok = vm.fetch(); !ok {
			vm.ip = start
			return Result{Err: trap(TruncatedOperand, start, op, "Truncated "+info.Name)}
		}
	}

	if op == OP_HALT {
		vm.ip = start
		return Result{OK: true, Steps: 0}
	}

	if err := vm.execute(op, operand); err != nil {
		err.IP = start
		err.Opcode = op
		vm.ip = start
		return Result{Err: err}
	}
	vm.executed++
	return Result{OK: true, Steps: 1}
}

// execute runs a decoded instruction. It either completes the instruction or
// returns a trap before changing anything but ip.
func (vm *VM) execute(op, operand uint32) *VMError {
	switch op {
	case OP_PUSHI:
		if !vm.room(1) {
			return &VMError{Errno: StackOverflow, Msg: "Stack overflow"}
		}
		vm.push(int32(operand))

	case OP_POP:
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (POP)"}
		}
		vm.sp--

	case OP_DUP:
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (DUP)"}
		}
		if !vm.room(1) {
			return &VMError{Errno: StackOverflow, Msg: "Stack overflow (DUP)"}
		}
		vm.push(vm.mem[vm.sp-1])

	case OP_SWAP:
		if !vm.depth(2) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (SWAP)"}
		}
		vm.mem[vm.sp-1], vm.mem[vm.sp-2] = vm.mem[vm.sp-2], vm.mem[vm.sp-1]

	case OP_OVER:
		if !vm.depth(2) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (OVER)"}
		}
		if !vm.room(1) {
			return &VMError{Errno: StackOverflow, Msg: "Stack overflow (OVER)"}
		}
		vm.push(vm.mem[vm.sp-2])

	case OP_NEG:
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (NEG)"}
		}
		vm.mem[vm.sp-1] = -vm.mem[vm.sp-1]

	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD:
		if !vm.depth(2) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (arith)"}
		}
		a, b := vm.mem[vm.sp-2], vm.mem[vm.sp-1]
		var res int32
		switch op {
		case OP_ADD:
			res = a + b
		case OP_SUB:
			res = a - b
		case OP_MUL:
			res = a * b
		case OP_DIV:
			if b == 0 {
				return &VMError{Errno: DivisionByZero, Msg: "Division by zero"}
			}
			res = a / b
		case OP_MOD:
			if b == 0 {
				return &VMError{Errno: ModuloByZero, Msg: "Modulo by zero"}
			}
			res = a % b
		}
		vm.sp -= 2
		vm.push(res)

	case OP_CMP_EQ, OP_CMP_LT, OP_CMP_GT:
		if !vm.depth(2) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (cmp)"}
		}
		a, b := vm.mem[vm.sp-2], vm.mem[vm.sp-1]
		var cond bool
		switch op {
		case OP_CMP_EQ:
			cond = a == b
		case OP_CMP_LT:
			cond = a < b
		case OP_CMP_GT:
			cond = a > b
		}
		vm.sp -= 2
		vm.push(btoi32(cond))

	case OP_PRINT:
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (PRINT)"}
		}
		fmt.Fprintf(vm.out, "%d\n", vm.pop())

	case OP_LOAD:
		v, ok := vm.mem.Read(operand)
		if !ok {
			return &VMError{Errno: OutOfRangeAddress, Msg: "LOAD out of range", Addr: operand}
		}
		if !vm.room(1) {
			return &VMError{Errno: StackOverflow, Msg: "Stack overflow (LOAD)"}
		}
		vm.push(v)

	case OP_STORE:
		if operand >= MEM_SIZE {
			return &VMError{Errno: OutOfRangeAddress, Msg: "STORE out of range", Addr: operand}
		}
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (STORE)"}
		}
		vm.mem[operand] = vm.pop()

	case OP_STORE_IND:
		// Address on top, value beneath it.
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (STORE_IND addr)"}
		}
		if !vm.depth(2) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (STORE_IND value)"}
		}
		addr := uint32(vm.mem[vm.sp-1])
		if addr >= MEM_SIZE {
			return &VMError{Errno: OutOfRangeAddress, Msg: "STORE_IND out of range", Addr: addr}
		}
		vm.mem[addr] = vm.mem[vm.sp-2]
		vm.sp -= 2

	case OP_JMP:
		if operand >= MEM_SIZE {
			return &VMError{Errno: OutOfRangeAddress, Msg: "JMP out of range", Addr: operand}
		}
		vm.ip = operand

	case OP_JZ, OP_JNZ:
		if !vm.depth(1) {
			return &VMError{Errno: StackUnderflow, Msg: "Stack underflow (JZ/JNZ)"}
		}
		zero := vm.mem[vm.sp-1] == 0
		if zero == (op == OP_JZ) {
			if operand >= MEM_SIZE {
				return &VMError{Errno: OutOfRangeAddress, Msg: "Jump out of range", Addr: operand}
			}
			vm.ip = operand
		}
		vm.sp--

	default:
		return &VMError{Errno: InvalidOpcode, Msg: "Invalid opcode"}
	}
	return nil
}

func btoi32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
