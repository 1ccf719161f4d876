package main

/*
vm32_memory.go - Cell memory for the VM32 stack machine

Memory is a single fixed-size array of int32 cells owned by exactly one VM.
Nothing is allocated after construction: regions are sub-slices of the same
backing array, so the host's view of the framebuffer is the live memory and
never a copy.

Every access from bytecode goes through Read/Write, which bounds-check the
unsigned address against MEM_SIZE. The engine reaches past the checks only
for the stack, whose bounds it enforces itself.
*/

// Memory is the VM32 address space.
type Memory [MEM_SIZE]int32

// Read returns the cell at addr, or false when addr is outside memory.
func (m *Memory) Read(addr uint32) (int32, bool) {
	if addr >= MEM_SIZE {
		return 0, false
	}
	return m[addr], true
}

// Write stores value at addr, or reports false when addr is outside memory.
func (m *Memory) Write(addr uint32, value int32) bool {
	if addr >= MEM_SIZE {
		return false
	}
	m[addr] = value
	return true
}

// Reset zeroes every cell.
func (m *Memory) Reset() {
	clear(m[:])
}

// Region returns the live cells in [base, base+size). The caller must pass a
// region that fits; the memory map constants always do.
func (m *Memory) Region(base, size uint32) []int32 {
	return m[base : base+size : base+size]
}

// CopyIn writes cells starting at base and drops whatever does not fit
// before MEM_SIZE. It returns the number of cells written.
func (m *Memory) CopyIn(base uint32, cells []int32) int {
	if base >= MEM_SIZE {
		return 0
	}
	return copy(m[base:], cells)
}
