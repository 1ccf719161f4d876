package main

/*
vm32_constants.go - Memory map of the VM32 stack machine

The whole machine lives in one array of MEM_SIZE signed 32-bit cells. The
array is carved into fixed regions by the constants below; addresses are
cell indices, never byte offsets.

    0x0000 - 0x07FF   CODE         program cells, loaded from CODE_BASE
    0x0800 - 0x0FFF   DATA         scratch variables for bytecode
    0x1000 - 0xFFFF   STACK        operand stack, grows upward
    0x3FF0 - 0x3FFF   I/O          16 host registers (button mask at +0)
    0x4000 - 0xFFFF   FRAMEBUFFER  256x192 ARGB8888 pixels, row-major

The stack limit is the end of memory, so an uncapped stack that grows past
0x3FEF runs over the I/O page and into the framebuffer. Hosts that need the
button register intact configure a stack capacity below IO_BASE-STACK_BASE.

The constants form the ABI shared by the host and any bytecode producer.
None of them change at runtime.
*/

const (
	MEM_SIZE   = 0x10000
	CODE_BASE  = 0x00000
	DATA_BASE  = 0x00800
	STACK_BASE = 0x01000
)

const (
	// Framebuffer: one ARGB8888 cell per pixel
	FB_WIDTH  = 256
	FB_HEIGHT = 192
	FB_SIZE   = FB_WIDTH * FB_HEIGHT
	FB_BASE   = MEM_SIZE - FB_SIZE
)

const (
	// I/O page immediately below the framebuffer
	IO_SIZE = 16
	IO_BASE = FB_BASE - IO_SIZE

	KB_BASE       = IO_BASE
	KB_STATE_ADDR = KB_BASE + 0
)

// STACK_LIMIT is the exclusive end of the stack region. A capacity only
// lowers it.
const STACK_LIMIT = MEM_SIZE

const (
	// Button bits in the KB_STATE_ADDR register
	KB_UP     = 1 << 0
	KB_DOWN   = 1 << 1
	KB_LEFT   = 1 << 2
	KB_RIGHT  = 1 << 3
	KB_A      = 1 << 4
	KB_B      = 1 << 5
	KB_X      = 1 << 6
	KB_Y      = 1 << 7
	KB_L      = 1 << 8
	KB_R      = 1 << 9
	KB_SELECT = 1 << 10
	KB_START  = 1 << 11

	KB_MASK = 1<<12 - 1
)

const (
	DEFAULT_STACK_CAPACITY = 1024
	DEFAULT_MAX_STEPS      = 1_000_000
)
