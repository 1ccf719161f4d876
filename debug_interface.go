// debug_interface.go - Types shared by the VM32 disassembler, tracer and status bar

package main

// RegisterInfo describes a single machine register for display.
type RegisterInfo struct {
	Name     string // "IP", "SP", "DEPTH"
	BitWidth int
	Value    uint64
	Group    string // "general", "stack", "io"
}

// DisassembledLine represents one disassembled instruction.
type DisassembledLine struct {
	Address  uint64
	HexBytes string // opcode and operand cells
	Mnemonic string
	Comment  string // symbolic region for address operands
	Size     int    // in cells
	IsPC     bool   // true if this is the current ip
}
