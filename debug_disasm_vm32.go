// debug_disasm_vm32.go - VM32 disassembler and register view

package main

import (
	"fmt"
	"strings"
)

// DisassembleVM32 decodes up to count instructions from cells, which start at
// cell address base. It stops early at the end of cells.
func DisassembleVM32(cells []int32, base uint32, count int) []DisassembledLine {
	var lines []DisassembledLine
	for pc := 0; pc < len(cells) && len(lines) < count; {
		addr := base + uint32(pc)
		cell := uint32(cells[pc])
		info, ok := lookupOpcode(cell)
		if !ok {
			lines = append(lines, DisassembledLine{
				Address:  uint64(addr),
				HexBytes: fmt.Sprintf("%08X", cell),
				Mnemonic: fmt.Sprintf(".word $%08X", cell),
				Size:     1,
			})
			pc++
			continue
		}

		size := 1 + info.Operands
		if pc+size > len(cells) {
			lines = append(lines, DisassembledLine{
				Address:  uint64(addr),
				HexBytes: fmt.Sprintf("%08X", cell),
				Mnemonic: info.Name + " <truncated>",
				Size:     len(cells) - pc,
			})
			break
		}

		line := DisassembledLine{Address: uint64(addr), Mnemonic: info.Name, Size: size}
		if info.Operands == 0 {
			line.HexBytes = fmt.Sprintf("%08X", cell)
		} else {
			operand := uint32(cells[pc+1])
			line.HexBytes = fmt.Sprintf("%08X %08X", cell, operand)
			switch cell {
			case OP_PUSHI:
				line.Mnemonic += fmt.Sprintf(" #%d", int32(operand))
			default:
				line.Mnemonic += fmt.Sprintf(" $%04X", operand)
				line.Comment = regionName(operand)
			}
		}
		lines = append(lines, line)
		pc += size
	}
	return lines
}

// regionName names the memory region an address falls in.
func regionName(addr uint32) string {
	switch {
	case addr == KB_STATE_ADDR:
		return "KB_STATE"
	case addr >= MEM_SIZE:
		return "out of range"
	case addr >= FB_BASE:
		off := addr - FB_BASE
		return fmt.Sprintf("FB(%d,%d)", off%FB_WIDTH, off/FB_WIDTH)
	case addr >= IO_BASE:
		return fmt.Sprintf("IO+%d", addr-IO_BASE)
	case addr < DATA_BASE:
		return "CODE"
	case addr < STACK_BASE:
		return fmt.Sprintf("DATA+%d", addr-DATA_BASE)
	case addr < STACK_LIMIT:
		return "STACK"
	}
	return "out of range"
}

// FormatListing renders lines as an assembler-style listing. ip marks the
// current instruction.
func FormatListing(lines []DisassembledLine, ip uint32) string {
	var sb strings.Builder
	for _, l := range lines {
		marker := "  "
		if l.IsPC || l.Address == uint64(ip) {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%04X  %-18s %-18s", marker, l.Address, l.HexBytes, l.Mnemonic)
		if l.Comment != "" {
			sb.WriteString(" ; " + l.Comment)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DisassembleAt decodes count instructions from live memory starting at addr.
func (vm *VM) DisassembleAt(addr uint32, count int) []DisassembledLine {
	if addr >= MEM_SIZE {
		return nil
	}
	// Two cells per instruction at most.
	end := min(uint64(addr)+uint64(count)*2, MEM_SIZE)
	lines := DisassembleVM32(vm.mem[addr:end], addr, count)
	for i := range lines {
		lines[i].IsPC = lines[i].Address == uint64(vm.ip)
	}
	return lines
}

func (vm *VM) Registers() []RegisterInfo {
	top := int64(0)
	if vm.sp > STACK_BASE {
		top = int64(vm.mem[vm.sp-1])
	}
	return []RegisterInfo{
		{Name: "IP", BitWidth: 32, Value: uint64(vm.ip), Group: "general"},
		{Name: "SP", BitWidth: 32, Value: uint64(vm.sp), Group: "stack"},
		{Name: "DEPTH", BitWidth: 32, Value: uint64(vm.StackDepth()), Group: "stack"},
		{Name: "TOS", BitWidth: 32, Value: uint64(uint32(top)), Group: "stack"},
		{Name: "KB", BitWidth: 32, Value: uint64(vm.KeyboardState()), Group: "io"},
	}
}
