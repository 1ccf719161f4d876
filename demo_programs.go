// demo_programs.go - Built-in VM32 programs

package main

import (
	"fmt"
	"slices"
	"strings"
)

type demoProgram struct {
	Description string
	Build       func() []int32
}

var demoPrograms = map[string]demoProgram{
	"factorial": {"prints 5! using a descending multiply loop", FactorialProgram},
	"divide":    {"prints 10 / 3", DivideProgram},
	"stripes":   {"fills the framebuffer with vertical stripes", StripesProgram},
	"pad":       {"moves a pixel with the d-pad, leaving a trail", PadProgram},
}

// DemoNames returns the built-in program names, sorted.
func DemoNames() []string {
	names := make([]string, 0, len(demoPrograms))
	for n := range demoPrograms {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DemoProgram builds the named demo.
func DemoProgram(name string) ([]int32, error) {
	d, ok := demoPrograms[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown demo %q (available: %s)", name, strings.Join(DemoNames(), ", "))
	}
	return d.Build(), nil
}

// FactorialProgram computes 5! with acc in DATA_BASE and i in DATA_BASE+1,
// prints 120 and halts.
func FactorialProgram() []int32 {
	const (
		acc = DATA_BASE + 0
		i   = DATA_BASE + 1
	)
	b := NewBytecodeBuilder()
	b.PushI(1).Store(acc)
	b.PushI(5).Store(i)

	loop := uint32(b.PC())
	b.Load(i).PushI(0).CmpEq().Jnz(0)
	end := b.PC() - 1

	b.Load(acc).Load(i).Mul().Store(acc)
	b.Load(i).PushI(1).Sub().Store(i)
	b.Jmp(loop)

	b.Patch(end, uint32(b.PC()))
	b.Load(acc).Print().Halt()
	return b.Cells()
}

// DivideProgram prints 10 / 3.
func DivideProgram() []int32 {
	return NewBytecodeBuilder().PushI(10).PushI(3).Div().Print().Halt().Cells()
}

// StripesProgram paints every framebuffer pixel, alternating two colours
// every 16 pixels, then halts.
func StripesProgram() []int32 {
	const (
		i    = DATA_BASE + 0
		addr = DATA_BASE + 1

		colour1 = int32(-0x00CC5501) // 0xFF33AAFF
		colour2 = int32(-0x0000DDBC) // 0xFFFF2244
	)
	b := NewBytecodeBuilder()
	b.PushI(0).Store(i)

	loop := uint32(b.PC())
	b.Load(i).PushI(FB_SIZE).CmpLt().Jz(0)
	end := b.PC() - 1

	b.PushI(FB_BASE).Load(i).Add().Store(addr)

	b.Load(i).PushI(32).Mod().PushI(16).CmpLt().Jz(0)
	other := b.PC() - 1

	b.PushI(colour1).Load(addr).StoreInd().Jmp(0)
	next := b.PC() - 1

	b.Patch(other, uint32(b.PC()))
	b.PushI(colour2).Load(addr).StoreInd()

	b.Patch(next, uint32(b.PC()))
	b.Load(i).PushI(1).Add().Store(i)
	b.Jmp(loop)

	b.Patch(end, uint32(b.PC()))
	b.Halt()
	return b.Cells()
}

// PadProgram draws a pixel at (x, y) and moves it one step each time the
// d-pad state changes. A toggles the ink colour. It never halts.
func PadProgram() []int32 {
	const (
		x    = DATA_BASE + 0
		y    = DATA_BASE + 1
		addr = DATA_BASE + 2
		keys = DATA_BASE + 3
		prev = DATA_BASE + 4
		ink  = DATA_BASE + 5

		white  = int32(-1)          // 0xFFFFFFFF
		yellow = int32(-0x000100FF) // 0xFFFEFF01
	)
	b := NewBytecodeBuilder()
	b.PushI(FB_WIDTH / 2).Store(x)
	b.PushI(FB_HEIGHT / 2).Store(y)
	b.PushI(0).Store(prev)
	b.PushI(white).Store(ink)

	loop := uint32(b.PC())
	b.Load(y).PushI(FB_WIDTH).Mul().Load(x).Add().PushI(FB_BASE).Add().Store(addr)
	b.Load(ink).Load(addr).StoreInd()

	b.Load(KB_STATE_ADDR).Store(keys)
	b.Load(keys).Load(prev).CmpEq().Jnz(0)
	same := b.PC() - 1

	// var = (var + delta) % mod when the button bit is set. There is no AND,
	// so bit n of keys is (keys / (1<<n)) % 2.
	move := func(bit int32, v uint32, delta, mod int32) {
		b.Load(keys).PushI(bit).Div().PushI(2).Mod().Jz(0)
		skip := b.PC() - 1
		b.Load(v).PushI(delta).Add().PushI(mod).Mod().Store(v)
		b.Patch(skip, uint32(b.PC()))
	}
	move(KB_UP, y, FB_HEIGHT-1, FB_HEIGHT)
	move(KB_DOWN, y, 1, FB_HEIGHT)
	move(KB_LEFT, x, FB_WIDTH-1, FB_WIDTH)
	move(KB_RIGHT, x, 1, FB_WIDTH)

	// A toggles the ink between white and yellow.
	b.Load(keys).PushI(KB_A).Div().PushI(2).Mod().Jz(0)
	noA := b.PC() - 1
	b.PushI(white).Load(ink).Sub().PushI(yellow).Add().Store(ink)
	b.Patch(noA, uint32(b.PC()))

	b.Patch(same, uint32(b.PC()))
	b.Load(keys).Store(prev)
	b.Jmp(loop)
	return b.Cells()
}
