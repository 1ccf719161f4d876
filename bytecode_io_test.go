package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestBytecodeSaveLoadRoundTrip(t *testing.T) {
	programs := [][]int32{
		{},
		{OP_HALT},
		{math.MinInt32, -1, 0, 1, math.MaxInt32, int32(-0x00CC5501)},
		FactorialProgram(),
		StripesProgram(),
	}
	dir := t.TempDir()
	for i, cells := range programs {
		path := filepath.Join(dir, "prog.ljbc")
		if err := SaveBytecodeToFile(cells, path); err != nil {
			t.Fatalf("program %d: save failed: %v", i, err)
		}
		got, err := LoadBytecodeFromFile(path)
		if err != nil {
			t.Fatalf("program %d: load failed: %v", i, err)
		}
		if !slices.Equal(got, cells) {
			t.Fatalf("program %d: expected %v, got %v", i, cells, got)
		}
	}
}

func TestBytecodeFileLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBytecode(&buf, []int32{OP_PUSHI, -2}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data := buf.Bytes()
	if len(data) != 8+4+4+2*4 {
		t.Fatalf("expected 24 bytes, got %d", len(data))
	}
	if string(data[:8]) != "LJBC\r\n\x1a\n" {
		t.Fatalf("unexpected magic %q", data[:8])
	}
	if v := binary.LittleEndian.Uint32(data[8:]); v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}
	if n := binary.LittleEndian.Uint32(data[12:]); n != 2 {
		t.Fatalf("expected cell count 2, got %d", n)
	}
	if c := binary.LittleEndian.Uint32(data[20:]); c != 0xFFFFFFFE {
		t.Fatalf("expected -2 stored as 0xFFFFFFFE, got 0x%X", c)
	}
	if !IsBytecodeFile(data) {
		t.Fatalf("expected IsBytecodeFile to accept written data")
	}
}

func writeTestBytecode(t *testing.T, cells []int32, mutate func([]byte) []byte) string {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteBytecode(&buf, cells); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.ljbc")
	if err := os.WriteFile(path, mutate(buf.Bytes()), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func TestBytecodeLoadBadMagic(t *testing.T) {
	path := writeTestBytecode(t, []int32{OP_HALT}, func(b []byte) []byte {
		b[0] ^= 0xFF
		return b
	})
	_, err := LoadBytecodeFromFile(path)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid bytecode magic") {
		t.Fatalf("expected magic message, got %q", err.Error())
	}
}

func TestBytecodeLoadUnsupportedVersion(t *testing.T) {
	path := writeTestBytecode(t, []int32{OP_HALT}, func(b []byte) []byte {
		binary.LittleEndian.PutUint32(b[8:], 2)
		return b
	})
	_, err := LoadBytecodeFromFile(path)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unsupported bytecode version: 2") {
		t.Fatalf("expected version in message, got %q", err.Error())
	}
}

func TestBytecodeLoadTruncated(t *testing.T) {
	path := writeTestBytecode(t, []int32{1, 2, 3}, func(b []byte) []byte {
		return b[:len(b)-2]
	})
	_, err := LoadBytecodeFromFile(path)
	if !errors.Is(err, ErrTruncatedFile) {
		t.Fatalf("expected ErrTruncatedFile, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unexpected EOF") {
		t.Fatalf("expected EOF message, got %q", err.Error())
	}
}

func TestBytecodeLoadHugeCountDoesNotPreallocate(t *testing.T) {
	path := writeTestBytecode(t, nil, func(b []byte) []byte {
		binary.LittleEndian.PutUint32(b[12:], math.MaxUint32)
		return b
	})
	if _, err := LoadBytecodeFromFile(path); !errors.Is(err, ErrTruncatedFile) {
		t.Fatalf("expected ErrTruncatedFile, got %v", err)
	}
}

func TestBytecodeLoadShortHeader(t *testing.T) {
	if _, err := ReadBytecode(strings.NewReader("LJ")); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic for short magic, got %v", err)
	}
	if _, err := ReadBytecode(strings.NewReader(bytecodeMagic + "\x01\x00")); !errors.Is(err, ErrTruncatedFile) {
		t.Fatalf("expected ErrTruncatedFile for short version, got %v", err)
	}
}

func TestBytecodeOpenFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.ljbc")
	if _, err := LoadBytecodeFromFile(missing); !errors.Is(err, ErrBytecodeOpen) {
		t.Fatalf("expected ErrBytecodeOpen, got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "out.ljbc")
	err := SaveBytecodeToFile([]int32{OP_HALT}, bad)
	if !errors.Is(err, ErrBytecodeOpen) {
		t.Fatalf("expected ErrBytecodeOpen, got %v", err)
	}
	if !strings.Contains(err.Error(), "Failed to open for write") {
		t.Fatalf("expected open message, got %q", err.Error())
	}
}

func TestBytecodeReadLeavesTrailingBytes(t *testing.T) {
	cells := make([]int32, 2500)
	for i := range cells {
		cells[i] = int32(i*7 - 1000)
	}
	var buf bytes.Buffer
	if err := WriteBytecode(&buf, cells); err != nil {
		t.Fatalf("WriteBytecode: %v", err)
	}
	buf.WriteString("tail")
	got, err := ReadBytecode(&buf)
	if err != nil {
		t.Fatalf("ReadBytecode: %v", err)
	}
	if !slices.Equal(got, cells) {
		t.Fatalf("expected %d cells back unchanged, got %d", len(cells), len(got))
	}
	if buf.String() != "tail" {
		t.Fatalf("expected trailing bytes left in the stream, got %q", buf.String())
	}
}

func TestBytecodeLoadedProgramRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fact.ljbc")
	if err := SaveBytecodeToFile(FactorialProgram(), path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	cells, err := LoadBytecodeFromFile(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	vm, out := newTestVM(0, cells)
	vm.Run(DEFAULT_MAX_STEPS)
	if out.String() != "120\n" {
		t.Fatalf("expected 120, got %q", out.String())
	}
}
