package main

import (
	"strings"
	"testing"
)

func TestDisassemble_BuilderProgram(t *testing.T) {
	cells := NewBytecodeBuilder().
		PushI(-3).Store(DATA_BASE + 2).Load(KB_STATE_ADDR).
		Jz(0).Add().Halt().Cells()
	lines := DisassembleVM32(cells, CODE_BASE, 100)

	want := []struct {
		addr     uint64
		mnemonic string
		comment  string
	}{
		{0, "PUSHI #-3", ""},
		{2, "STORE $0802", "DATA+2"},
		{4, "LOAD $3FF0", "KB_STATE"},
		{6, "JZ $0000", "CODE"},
		{8, "ADD", ""},
		{9, "HALT", ""},
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}
	total := 0
	for i, w := range want {
		l := lines[i]
		if l.Address != w.addr || l.Mnemonic != w.mnemonic || l.Comment != w.comment {
			t.Fatalf("line %d: expected %04X %q ;%q, got %04X %q ;%q",
				i, w.addr, w.mnemonic, w.comment, l.Address, l.Mnemonic, l.Comment)
		}
		total += l.Size
	}
	if total != len(cells) {
		t.Fatalf("expected sizes to cover %d cells, got %d", len(cells), total)
	}
}

func TestDisassemble_InvalidAndTruncated(t *testing.T) {
	lines := DisassembleVM32([]int32{0x99, OP_JMP}, 0x10, 10)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Mnemonic != ".word $00000099" || lines[0].Address != 0x10 {
		t.Fatalf("unexpected invalid-cell line %+v", lines[0])
	}
	if lines[1].Mnemonic != "JMP <truncated>" {
		t.Fatalf("unexpected truncated line %+v", lines[1])
	}
}

func TestRegionName(t *testing.T) {
	cases := map[uint32]string{
		0x0005:               "CODE",
		DATA_BASE:            "DATA+0",
		STACK_BASE + 3:       "STACK",
		IO_BASE + 2:          "IO+2",
		FB_BASE + FB_WIDTH*2: "FB(0,2)",
		FB_BASE + 5:          "FB(5,0)",
		MEM_SIZE:             "out of range",
	}
	for addr, want := range cases {
		if got := regionName(addr); got != want {
			t.Fatalf("regionName(%04X): expected %q, got %q", addr, want, got)
		}
	}
}

func TestVMDisassembleAtMarksIP(t *testing.T) {
	vm, _ := newTestVM(DEFAULT_STACK_CAPACITY, DivideProgram())
	vm.Step()
	lines := vm.DisassembleAt(CODE_BASE, 3)
	if len(lines) != 3 || lines[0].IsPC || !lines[1].IsPC {
		t.Fatalf("expected second line marked as PC, got %+v", lines)
	}
	listing := FormatListing(lines, vm.IP())
	if !strings.Contains(listing, "> 0002") {
		t.Fatalf("expected marker on 0002, got:\n%s", listing)
	}

	regs := vm.Registers()
	if regs[0].Name != "IP" || regs[0].Value != 2 || regs[3].Name != "TOS" || regs[3].Value != 10 {
		t.Fatalf("unexpected registers %+v", regs)
	}
}
