package main

import (
	"errors"
	"fmt"
)

// Errno identifies the class of a VM trap. Each class has a stable message
// that hosts may match on.
type Errno int

const (
	IPOutOfRange = Errno(iota + 1)
	TruncatedOperand
	StackUnderflow
	StackOverflow
	OutOfRangeAddress
	DivisionByZero
	ModuloByZero
	InvalidOpcode
	StepBudgetExceeded
)

var strErrno = map[Errno]string{
	IPOutOfRange:       "IP out of range",
	TruncatedOperand:   "truncated operand",
	StackUnderflow:     "stack underflow",
	StackOverflow:      "stack overflow",
	OutOfRangeAddress:  "address out of range",
	DivisionByZero:     "division by zero",
	ModuloByZero:       "modulo by zero",
	InvalidOpcode:      "invalid opcode",
	StepBudgetExceeded: "step budget exceeded",
}

func (e Errno) Error() string {
	if s, ok := strErrno[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", int(e))
}

// VMError describes a trap together with the machine context it happened in.
type VMError struct {
	Errno  Errno
	Msg    string // stable human-readable message, e.g. "Stack underflow (POP)"
	IP     uint32 // address of the faulting opcode cell
	Opcode uint32 // fetched opcode, when one was fetched
	Addr   uint32 // offending address for OutOfRangeAddress
}

func (e *VMError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Errno.Error()
}

// Unwrap exposes the Errno so callers can use errors.Is(err, StackOverflow).
func (e *VMError) Unwrap() error {
	return e.Errno
}

func trap(errno Errno, ip, opcode uint32, msg string) *VMError {
	return &VMError{Errno: errno, Msg: msg, IP: ip, Opcode: opcode}
}

// Result is the outcome of Step or Run.
type Result struct {
	OK    bool
	Err   error // nil when OK
	Steps int   // 1 for an executed instruction, 0 when HALT was reached
}

// Halted reports whether the result is the HALT sentinel.
func (r Result) Halted() bool {
	return r.OK && r.Steps == 0
}

// Message returns the error text, or "" when the result is OK.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ErrnoOf extracts the trap class from a result error.
func ErrnoOf(err error) (Errno, bool) {
	var e Errno
	if errors.As(err, &e) {
		return e, true
	}
	return 0, false
}

// Bytecode persistence errors.
var (
	ErrBytecodeOpen       = errors.New("cannot open bytecode file")
	ErrBadMagic           = errors.New("Invalid bytecode magic")
	ErrUnsupportedVersion = errors.New("Unsupported bytecode version")
	ErrTruncatedFile      = errors.New("Unexpected EOF")
	ErrCellCountOverflow  = errors.New("Too many cells to serialize")
)
