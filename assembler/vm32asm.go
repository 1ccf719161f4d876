// vm32asm.go - VM32 text assembler

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
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Opcodes, kept local because the assembler builds as its own binary.
const (
	HALT      = 0x00
	PUSHI     = 0x01
	POP       = 0x02
	ADD       = 0x10
	SUB       = 0x11
	MUL       = 0x12
	DIV       = 0x13
	MOD       = 0x14
	NEG       = 0x15
	DUP       = 0x16
	SWAP      = 0x17
	OVER      = 0x18
	PRINT     = 0x20
	JMP       = 0x30
	JZ        = 0x31
	JNZ       = 0x32
	CMP_EQ    = 0x40
	CMP_LT    = 0x41
	CMP_GT    = 0x42
	LOAD      = 0x50
	STORE     = 0x51
	STORE_IND = 0x52
)

const (
	MEM_SIZE  = 0x10000
	CODE_BASE = 0x0000

	LJBC_MAGIC   = "LJBC\r\n\x1a\n"
	LJBC_VERSION = 1
)

type mnemonic struct {
	opcode   uint32
	operands int
}

var mnemonics = map[string]mnemonic{
	"HALT":      {HALT, 0},
	"PUSHI":     {PUSHI, 1},
	"POP":       {POP, 0},
	"ADD":       {ADD, 0},
	"SUB":       {SUB, 0},
	"MUL":       {MUL, 0},
	"DIV":       {DIV, 0},
	"MOD":       {MOD, 0},
	"NEG":       {NEG, 0},
	"DUP":       {DUP, 0},
	"SWAP":      {SWAP, 0},
	"OVER":      {OVER, 0},
	"PRINT":     {PRINT, 0},
	"JMP":       {JMP, 1},
	"JZ":        {JZ, 1},
	"JNZ":       {JNZ, 1},
	"CMP_EQ":    {CMP_EQ, 0},
	"CMP_LT":    {CMP_LT, 0},
	"CMP_GT":    {CMP_GT, 0},
	"LOAD":      {LOAD, 1},
	"STORE":     {STORE, 1},
	"STORE_IND": {STORE_IND, 0},
}

// Region equates every source file can use without declaring them.
var predefined = map[string]int64{
	"MEM_SIZE":      MEM_SIZE,
	"CODE_BASE":     CODE_BASE,
	"DATA_BASE":     0x0800,
	"STACK_BASE":    0x1000,
	"IO_BASE":       0x3FF0,
	"KB_STATE_ADDR": 0x3FF0,
	"FB_BASE":       0x4000,
	"FB_WIDTH":      256,
	"FB_HEIGHT":     192,
	"FB_SIZE":       256 * 192,
	"KB_UP":         1 << 0,
	"KB_DOWN":       1 << 1,
	"KB_LEFT":       1 << 2,
	"KB_RIGHT":      1 << 3,
	"KB_A":          1 << 4,
	"KB_B":          1 << 5,
	"KB_X":          1 << 6,
	"KB_Y":          1 << 7,
	"KB_L":          1 << 8,
	"KB_R":          1 << 9,
	"KB_SELECT":     1 << 10,
	"KB_START":      1 << 11,
}

// sourceLine is one non-empty line after comment stripping.
type sourceLine struct {
	num    int
	label  string
	op     string
	fields []string
}

type VM32Assembler struct {
	symbols map[string]int64
	pc      uint32
}

func NewVM32Assembler() *VM32Assembler {
	a := &VM32Assembler{symbols: make(map[string]int64, len(predefined))}
	for k, v := range predefined {
		a.symbols[k] = v
	}
	return a
}

// Assemble turns source text into program cells loaded at CODE_BASE.
func (a *VM32Assembler) Assemble(src string) ([]int32, error) {
	lines, err := splitSource(src)
	if err != nil {
		return nil, err
	}

	// First pass: addresses of labels, equates.
	a.pc = CODE_BASE
	for _, l := range lines {
		if l.label != "" {
			if _, ok := a.symbols[l.label]; ok {
				return nil, fmt.Errorf("line %d: symbol %q already defined", l.num, l.label)
			}
			a.symbols[l.label] = int64(a.pc)
		}
		if l.op == "" {
			continue
		}
		size, err := a.sizeOf(l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
		a.pc += size
		if a.pc > MEM_SIZE {
			return nil, fmt.Errorf("line %d: program exceeds memory (%d cells)", l.num, a.pc)
		}
	}

	// Second pass: emit.
	cells := make([]int32, 0, a.pc)
	for _, l := range lines {
		if l.op == "" {
			continue
		}
		var err error
		cells, err = a.emit(cells, l)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.num, err)
		}
	}
	return cells, nil
}

func (a *VM32Assembler) sizeOf(l sourceLine) (uint32, error) {
	switch l.op {
	case ".EQU":
		if len(l.fields) != 2 {
			return 0, fmt.Errorf(".equ needs a name and a value")
		}
		name := l.fields[0]
		if _, ok := a.symbols[name]; ok {
			return 0, fmt.Errorf("symbol %q already defined", name)
		}
		v, err := a.eval(l.fields[1])
		if err != nil {
			return 0, err
		}
		a.symbols[name] = v
		return 0, nil
	case ".WORD":
		if len(l.fields) == 0 {
			return 0, fmt.Errorf(".word needs at least one value")
		}
		return uint32(len(l.fields)), nil
	case ".ORG":
		if len(l.fields) != 1 {
			return 0, fmt.Errorf(".org needs one address")
		}
		addr, err := a.eval(l.fields[0])
		if err != nil {
			return 0, err
		}
		if addr < int64(a.pc) || addr > MEM_SIZE {
			return 0, fmt.Errorf(".org $%04X is behind $%04X or outside memory", addr, a.pc)
		}
		return uint32(addr) - a.pc, nil
	}
	m, ok := mnemonics[l.op]
	if !ok {
		return 0, fmt.Errorf("unknown instruction %s", l.op)
	}
	if len(l.fields) != m.operands {
		return 0, fmt.Errorf("%s takes %d operand(s), got %d", l.op, m.operands, len(l.fields))
	}
	return uint32(1 + m.operands), nil
}

func (a *VM32Assembler) emit(cells []int32, l sourceLine) ([]int32, error) {
	switch l.op {
	case ".EQU":
		return cells, nil
	case ".ORG":
		addr, _ := a.eval(l.fields[0])
		for int64(len(cells)) < addr {
			cells = append(cells, 0)
		}
		return cells, nil
	case ".WORD":
		for _, f := range l.fields {
			c, err := a.cell(f)
			if err != nil {
				return nil, err
			}
			cells = append(cells, c)
		}
		return cells, nil
	}
	m := mnemonics[l.op]
	cells = append(cells, int32(m.opcode))
	for _, f := range l.fields {
		c, err := a.cell(f)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, nil
}

// cell evaluates an operand and checks it fits a 32-bit cell. Values up to
// 0xFFFFFFFF are accepted so colours can be written unsigned.
func (a *VM32Assembler) cell(expr string) (int32, error) {
	v, err := a.eval(expr)
	if err != nil {
		return 0, err
	}
	if v < -1<<31 || v > 1<<32-1 {
		return 0, fmt.Errorf("value %s out of 32-bit range", expr)
	}
	return int32(uint32(v)), nil
}

// eval handles a term optionally followed by +term or -term.
func (a *VM32Assembler) eval(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("missing value")
	}
	for i := len(expr) - 1; i > 0; i-- {
		c := expr[i]
		if c != '+' && c != '-' || inCharLiteral(expr, i) || isOperatorPrefix(expr[:i]) {
			continue
		}
		left, err := a.eval(expr[:i])
		if err != nil {
			return 0, err
		}
		right, err := a.term(strings.TrimSpace(expr[i+1:]))
		if err != nil {
			return 0, err
		}
		if c == '+' {
			return left + right, nil
		}
		return left - right, nil
	}
	return a.term(expr)
}

func inCharLiteral(s string, i int) bool {
	return i+1 < len(s) && s[i-1] == '\'' && s[i+1] == '\''
}

// isOperatorPrefix reports whether s ends in an operator, in which case the
// following '-' is a unary minus.
func isOperatorPrefix(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.HasSuffix(s, "+") || strings.HasSuffix(s, "-")
}

func (a *VM32Assembler) term(t string) (int64, error) {
	switch {
	case t == "":
		return 0, fmt.Errorf("missing value")
	case strings.HasPrefix(t, "-"):
		v, err := a.term(strings.TrimSpace(t[1:]))
		return -v, err
	case len(t) == 3 && t[0] == '\'' && t[2] == '\'':
		return int64(t[1]), nil
	case strings.HasPrefix(t, "$"):
		v, err := strconv.ParseUint(t[1:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid hex value %s", t)
		}
		return int64(v), nil
	case t[0] >= '0' && t[0] <= '9':
		v, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %s", t)
		}
		return v, nil
	}
	if v, ok := a.symbols[t]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("undefined symbol %s", t)
}

// splitSource strips comments and splits every line into label, operation
// and comma separated operands.
func splitSource(src string) ([]sourceLine, error) {
	var lines []sourceLine
	sc := bufio.NewScanner(strings.NewReader(src))
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(stripComment(sc.Text()))
		if text == "" {
			continue
		}
		l := sourceLine{num: n}
		if i := strings.Index(text, ":"); i > 0 && isIdent(text[:i]) {
			l.label = text[:i]
			text = strings.TrimSpace(text[i+1:])
		}
		if text != "" {
			op, rest := text, ""
			if i := strings.IndexAny(text, " \t"); i >= 0 {
				op, rest = text[:i], strings.TrimSpace(text[i+1:])
			}
			l.op = strings.ToUpper(op)
			if l.op == ".EQU" {
				// .equ NAME value, the comma is optional
				if i := strings.IndexAny(rest, " \t,"); i >= 0 {
					l.fields = []string{rest[:i], strings.TrimSpace(strings.TrimLeft(rest[i:], " \t,"))}
				} else if rest != "" {
					l.fields = []string{rest}
				}
			} else {
				l.fields = splitOperands(rest)
			}
		}
		lines = append(lines, l)
	}
	return lines, sc.Err()
}

// splitOperands splits on commas outside character literals.
func splitOperands(s string) []string {
	var fields []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] == '\'' {
			i += 2
			continue
		}
		if i == len(s) || s[i] == ',' {
			if f := strings.TrimSpace(s[start:min(i, len(s))]); f != "" {
				fields = append(fields, f)
			}
			start = i + 1
		}
	}
	return fields
}

// stripComment removes a ';' comment, leaving ';' inside a character
// literal alone.
func stripComment(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			i += 2
		case ';':
			return s[:i]
		}
	}
	return s
}

func isIdent(s string) bool {
	for i, c := range s {
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return s != ""
}

// writeLJBC writes cells in the .ljbc container: magic, version, cell
// count, then the cells, all little-endian.
func writeLJBC(path string, cells []int32) error {
	buf := make([]byte, 0, len(LJBC_MAGIC)+8+4*len(cells))
	buf = append(buf, LJBC_MAGIC...)
	buf = binary.LittleEndian.AppendUint32(buf, LJBC_VERSION)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(cells)))
	for _, c := range cells {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
	}
	return os.WriteFile(path, buf, 0644)
}

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: vm32asm <input.asm>")
		os.Exit(1)
	}

	code, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("Error reading input file: %v\n", err)
		os.Exit(1)
	}

	asm := NewVM32Assembler()
	cells, err := asm.Assemble(string(code))
	if err != nil {
		fmt.Printf("Error: %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	outFile := strings.TrimSuffix(os.Args[1], ".asm") + ".ljbc"
	if err := writeLJBC(outFile, cells); err != nil {
		fmt.Printf("Error writing output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully assembled to %s (%d cells)\n", outFile, len(cells))
}
