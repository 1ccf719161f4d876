package main

import (
	"slices"
	"testing"
)

func TestBytecodeBuilderEncoding(t *testing.T) {
	b := NewBytecodeBuilder().PushI(-2).Load(DATA_BASE).Add().Store(DATA_BASE + 1).Halt()
	want := []int32{OP_PUSHI, -2, OP_LOAD, DATA_BASE, OP_ADD, OP_STORE, DATA_BASE + 1, OP_HALT}
	if !slices.Equal(b.Code, want) {
		t.Fatalf("expected %v, got %v", want, b.Code)
	}
	if b.PC() != len(want) {
		t.Fatalf("expected pc %d, got %d", len(want), b.PC())
	}
}

func TestBytecodeBuilderForwardPatch(t *testing.T) {
	b := NewBytecodeBuilder()
	b.PushI(0).Jz(0)
	at := b.PC() - 1
	b.PushI(99).Print()
	target := b.PC()
	b.Halt()
	b.Code[at] = int32(target)

	if b.Code[at] != 6 {
		t.Fatalf("expected jump operand patched to 6, got %d", b.Code[at])
	}

	vm, out := newTestVM(0, b.Cells())
	if r := vm.Run(10); !r.Halted() {
		t.Fatalf("expected halt, got %q", r.Message())
	}
	if out.Len() != 0 {
		t.Fatalf("expected PRINT to be skipped, got %q", out.String())
	}
}

func TestBytecodeBuilderPatchHelper(t *testing.T) {
	b := NewBytecodeBuilder().Jmp(0)
	b.Patch(b.PC()-1, 0x123)
	if !slices.Equal(b.Cells(), []int32{OP_JMP, 0x123}) {
		t.Fatalf("unexpected cells %v", b.Cells())
	}
}

func TestBytecodeBuilderEveryMethod(t *testing.T) {
	b := NewBytecodeBuilder().
		Halt().PushI(1).Pop().Add().Sub().Mul().Div().Mod().Neg().Dup().Swap().Over().
		Print().Jmp(2).Jz(3).Jnz(4).CmpEq().CmpLt().CmpGt().Load(5).Store(6).StoreInd()

	// Walk the cells with the opcode table and check every mnemonic appears
	// once with its operand.
	var names []string
	for pc := 0; pc < len(b.Code); {
		info, ok := lookupOpcode(uint32(b.Code[pc]))
		if !ok {
			t.Fatalf("cell %d: 0x%X is not an opcode", pc, b.Code[pc])
		}
		names = append(names, info.Name)
		pc += 1 + info.Operands
	}
	if len(names) != len(vm32Opcodes) {
		t.Fatalf("expected %d instructions, got %d: %v", len(vm32Opcodes), len(names), names)
	}
}

func TestBytecodeBuilderNoValidation(t *testing.T) {
	b := NewBytecodeBuilder().Op(0x77, 1, 2).Jmp(0xFFFFFFFF)
	want := []int32{0x77, 1, 2, OP_JMP, -1}
	if !slices.Equal(b.Code, want) {
		t.Fatalf("expected %v, got %v", want, b.Code)
	}
}
