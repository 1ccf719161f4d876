// lua_producer.go - Build VM32 bytecode from Lua scripts

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
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

/*
A producer script drives a BytecodeBuilder through global functions:

	pushi(v) pop() add() sub() mul() div() mod() neg() dup() swap() over()
	print() halt() cmp_eq() cmp_lt() cmp_gt() store_ind()
	jmp(a) jz(a) jnz(a) load(a) store(a)
	op(code, ...)   opcode (number or mnemonic) with operand cells
	word(...)       raw cells
	pc() / label()  index of the next cell
	patch(at, v)    overwrite cell at index at

Every instruction function returns the index of its last cell, so a forward
jump is patched with:

	local exit = jz(0)
	...
	patch(exit, pc())

The memory map constants (DATA_BASE, FB_BASE, KB_STATE_ADDR, KB_UP, ...) are
predefined. Only the base, table, string and math libraries are opened, and
print is the PRINT instruction, not Lua's print.
*/

// BuildFromLua runs a producer script and returns the cells it emitted.
func BuildFromLua(source string) ([]int32, error) {
	return buildFromLua(func(L *lua.LState) error { return L.DoString(source) })
}

// BuildFromLuaFile runs a producer script from disk.
func BuildFromLuaFile(path string) ([]int32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("lua producer: %w", err)
	}
	return buildFromLua(func(L *lua.LState) error { return L.DoFile(path) })
}

func buildFromLua(run func(*lua.LState) error) ([]int32, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)

	b := NewBytecodeBuilder()
	registerBuilderFuncs(L, b)
	registerMemoryMap(L)

	if err := run(L); err != nil {
		return nil, fmt.Errorf("lua producer: %w", err)
	}
	return b.Cells(), nil
}

func openSafeLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// luaCell converts a Lua number to a cell. Values up to 0xFFFFFFFF are
// accepted so colours can be written the natural way.
func luaCell(L *lua.LState, n int) int32 {
	f := float64(L.CheckNumber(n))
	v := int64(f)
	if float64(v) != f {
		L.ArgError(n, fmt.Sprintf("%v is not an integer", f))
	}
	if v < -1<<31 || v > 1<<32-1 {
		L.ArgError(n, fmt.Sprintf("%d does not fit in a cell", v))
	}
	return int32(v)
}

// luaOpcode accepts either a mnemonic ("PUSHI", "store_ind") or a raw cell.
func luaOpcode(L *lua.LState, n int) uint32 {
	if name, ok := L.Get(n).(lua.LString); ok {
		op, found := OpcodeByName(strings.ToUpper(string(name)))
		if !found {
			L.ArgError(n, fmt.Sprintf("unknown mnemonic %q", string(name)))
		}
		return op
	}
	return uint32(luaCell(L, n))
}

func registerBuilderFuncs(L *lua.LState, b *BytecodeBuilder) {
	last := func(L *lua.LState) int {
		L.Push(lua.LNumber(b.PC() - 1))
		return 1
	}
	plain := func(op uint32) lua.LGFunction {
		return func(L *lua.LState) int {
			b.Op(op)
			return last(L)
		}
	}
	withOperand := func(op uint32) lua.LGFunction {
		return func(L *lua.LState) int {
			b.Op(op, luaCell(L, 1))
			return last(L)
		}
	}

	// Every catalogue entry gets a lower-case global.
	for op, info := range vm32Opcodes {
		fn := plain(op)
		if info.Operands > 0 {
			fn = withOperand(op)
		}
		L.SetGlobal(strings.ToLower(info.Name), L.NewFunction(fn))
	}

	L.SetGlobal("op", L.NewFunction(func(L *lua.LState) int {
		cells := []int32{}
		for i := 2; i <= L.GetTop(); i++ {
			cells = append(cells, luaCell(L, i))
		}
		b.Op(luaOpcode(L, 1), cells...)
		return last(L)
	}))
	L.SetGlobal("word", L.NewFunction(func(L *lua.LState) int {
		for i := 1; i <= L.GetTop(); i++ {
			b.Word(luaCell(L, i))
		}
		return last(L)
	}))
	pc := L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(b.PC()))
		return 1
	})
	L.SetGlobal("pc", pc)
	L.SetGlobal("label", pc)
	L.SetGlobal("patch", L.NewFunction(func(L *lua.LState) int {
		at := L.CheckInt(1)
		if at < 0 || at >= b.PC() {
			L.ArgError(1, fmt.Sprintf("patch index %d outside program of %d cells", at, b.PC()))
		}
		b.Patch(at, uint32(luaCell(L, 2)))
		return 0
	}))
}

func registerMemoryMap(L *lua.LState) {
	consts := map[string]int64{
		"MEM_SIZE": MEM_SIZE, "CODE_BASE": CODE_BASE, "DATA_BASE": DATA_BASE,
		"STACK_BASE": STACK_BASE, "STACK_LIMIT": STACK_LIMIT,
		"FB_WIDTH": FB_WIDTH, "FB_HEIGHT": FB_HEIGHT, "FB_SIZE": FB_SIZE, "FB_BASE": FB_BASE,
		"IO_BASE": IO_BASE, "IO_SIZE": IO_SIZE, "KB_STATE_ADDR": KB_STATE_ADDR,
	}
	for i, name := range ButtonNames {
		consts["KB_"+strings.ToUpper(name)] = 1 << i
	}
	for name, v := range consts {
		L.SetGlobal(name, lua.LNumber(v))
	}
}
