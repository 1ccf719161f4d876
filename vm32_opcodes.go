// vm32_opcodes.go - VM32 instruction catalogue

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

import "fmt"

const (
	OP_HALT  = 0x00
	OP_PUSHI = 0x01 // push immediate cell
	OP_POP   = 0x02

	OP_ADD  = 0x10
	OP_SUB  = 0x11
	OP_MUL  = 0x12
	OP_DIV  = 0x13 // signed, truncates toward zero
	OP_MOD  = 0x14 // signed, sign follows the dividend
	OP_NEG  = 0x15
	OP_DUP  = 0x16
	OP_SWAP = 0x17
	OP_OVER = 0x18 // duplicate second stack item

	OP_PRINT = 0x20 // pop and print as signed decimal

	OP_JMP = 0x30 // absolute cell address
	OP_JZ  = 0x31 // pop cond; jump if zero
	OP_JNZ = 0x32 // pop cond; jump if non-zero

	OP_CMP_EQ = 0x40
	OP_CMP_LT = 0x41
	OP_CMP_GT = 0x42

	OP_LOAD      = 0x50 // push mem[addr]
	OP_STORE     = 0x51 // mem[addr] = pop
	OP_STORE_IND = 0x52 // pop addr, pop value, mem[addr] = value
)

// opcodeInfo describes one entry of the instruction catalogue.
type opcodeInfo struct {
	Name     string
	Operands int // trailing operand cells
}

var vm32Opcodes = map[uint32]opcodeInfo{
	OP_HALT:      {"HALT", 0},
	OP_PUSHI:     {"PUSHI", 1},
	OP_POP:       {"POP", 0},
	OP_ADD:       {"ADD", 0},
	OP_SUB:       {"SUB", 0},
	OP_MUL:       {"MUL", 0},
	OP_DIV:       {"DIV", 0},
	OP_MOD:       {"MOD", 0},
	OP_NEG:       {"NEG", 0},
	OP_DUP:       {"DUP", 0},
	OP_SWAP:      {"SWAP", 0},
	OP_OVER:      {"OVER", 0},
	OP_PRINT:     {"PRINT", 0},
	OP_JMP:       {"JMP", 1},
	OP_JZ:        {"JZ", 1},
	OP_JNZ:       {"JNZ", 1},
	OP_CMP_EQ:    {"CMP_EQ", 0},
	OP_CMP_LT:    {"CMP_LT", 0},
	OP_CMP_GT:    {"CMP_GT", 0},
	OP_LOAD:      {"LOAD", 1},
	OP_STORE:     {"STORE", 1},
	OP_STORE_IND: {"STORE_IND", 0},
}

// lookupOpcode returns the catalogue entry for a fetched cell. Opcode values
// have gaps, so anything not in the table is invalid.
func lookupOpcode(cell uint32) (opcodeInfo, bool) {
	info, ok := vm32Opcodes[cell]
	return info, ok
}

// OpcodeName returns the mnemonic for an opcode cell.
func OpcodeName(cell uint32) string {
	if info, ok := vm32Opcodes[cell]; ok {
		return info.Name
	}
	return fmt.Sprintf("?%08X", cell)
}

// OpcodeByName resolves a mnemonic (upper case) to its opcode value.
func OpcodeByName(name string) (uint32, bool) {
	for op, info := range vm32Opcodes {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}
