package main

// BytecodeBuilder appends VM32 instructions to a growing cell sequence.
//
// Jumps are emitted with whatever target the caller passes, usually 0 for a
// forward reference. Record PC()-1 right after emitting the jump and patch
// Code at that index once the target is known:
//
//	b.Load(n).Jz(0)
//	exit := b.PC() - 1
//	...
//	b.Code[exit] = int32(b.PC())
//
// The builder never validates targets or opcodes.
type BytecodeBuilder struct {
	Code []int32
}

func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{}
}

// PC returns the index the next emitted cell will occupy.
func (b *BytecodeBuilder) PC() int {
	return len(b.Code)
}

// Cells returns the program built so far.
func (b *BytecodeBuilder) Cells() []int32 {
	return b.Code
}

// Patch overwrites the cell at index at, typically a jump operand.
func (b *BytecodeBuilder) Patch(at int, target uint32) *BytecodeBuilder {
	b.Code[at] = int32(target)
	return b
}

// Op appends a raw opcode followed by any operand cells.
func (b *BytecodeBuilder) Op(op uint32, operands ...int32) *BytecodeBuilder {
	b.Code = append(b.Code, int32(op))
	b.Code = append(b.Code, operands...)
	return b
}

// Word appends raw cells with no opcode.
func (b *BytecodeBuilder) Word(cells ...int32) *BytecodeBuilder {
	b.Code = append(b.Code, cells...)
	return b
}

func (b *BytecodeBuilder) Halt() *BytecodeBuilder           { return b.Op(OP_HALT) }
func (b *BytecodeBuilder) PushI(v int32) *BytecodeBuilder   { return b.Op(OP_PUSHI, v) }
func (b *BytecodeBuilder) Pop() *BytecodeBuilder            { return b.Op(OP_POP) }
func (b *BytecodeBuilder) Add() *BytecodeBuilder            { return b.Op(OP_ADD) }
func (b *BytecodeBuilder) Sub() *BytecodeBuilder            { return b.Op(OP_SUB) }
func (b *BytecodeBuilder) Mul() *BytecodeBuilder            { return b.Op(OP_MUL) }
func (b *BytecodeBuilder) Div() *BytecodeBuilder            { return b.Op(OP_DIV) }
func (b *BytecodeBuilder) Mod() *BytecodeBuilder            { return b.Op(OP_MOD) }
func (b *BytecodeBuilder) Neg() *BytecodeBuilder            { return b.Op(OP_NEG) }
func (b *BytecodeBuilder) Dup() *BytecodeBuilder            { return b.Op(OP_DUP) }
func (b *BytecodeBuilder) Swap() *BytecodeBuilder           { return b.Op(OP_SWAP) }
func (b *BytecodeBuilder) Over() *BytecodeBuilder           { return b.Op(OP_OVER) }
func (b *BytecodeBuilder) Print() *BytecodeBuilder          { return b.Op(OP_PRINT) }
func (b *BytecodeBuilder) CmpEq() *BytecodeBuilder          { return b.Op(OP_CMP_EQ) }
func (b *BytecodeBuilder) CmpLt() *BytecodeBuilder          { return b.Op(OP_CMP_LT) }
func (b *BytecodeBuilder) CmpGt() *BytecodeBuilder          { return b.Op(OP_CMP_GT) }
func (b *BytecodeBuilder) StoreInd() *BytecodeBuilder       { return b.Op(OP_STORE_IND) }
func (b *BytecodeBuilder) Jmp(addr uint32) *BytecodeBuilder { return b.Op(OP_JMP, int32(addr)) }
func (b *BytecodeBuilder) Jz(addr uint32) *BytecodeBuilder  { return b.Op(OP_JZ, int32(addr)) }
func (b *BytecodeBuilder) Jnz(addr uint32) *BytecodeBuilder { return b.Op(OP_JNZ, int32(addr)) }

// Load pushes mem[addr].
func (b *BytecodeBuilder) Load(addr uint32) *BytecodeBuilder { return b.Op(OP_LOAD, int32(addr)) }

// Store pops into mem[addr].
func (b *BytecodeBuilder) Store(addr uint32) *BytecodeBuilder { return b.Op(OP_STORE, int32(addr)) }
