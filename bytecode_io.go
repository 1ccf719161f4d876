// bytecode_io.go - LJBC bytecode file format

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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

/*
Layout, all integers little-endian:

	offset 0   8 bytes  magic "LJBC\r\n\x1A\n"
	offset 8   u32      version (bytecodeVersion)
	offset 12  u32      cell count N
	offset 16  N x u32  cells, two's-complement

The magic carries CR LF, SUB and LF so text-mode transfers that mangle line
endings are caught before any cell is read.
*/

const (
	bytecodeMagic   = "LJBC\r\n\x1a\n"
	bytecodeVersion = 1

	bytecodeReadChunk = 1024 // cells per read
)

// WriteBytecode serializes cells to w.
func WriteBytecode(w io.Writer, cells []int32) error {
	if uint64(len(cells)) > math.MaxUint32 {
		return ErrCellCountOverflow
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bytecodeMagic); err != nil {
		return fmt.Errorf("writing magic: %w", err)
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], bytecodeVersion)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(cells)))
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	var cell [4]byte
	for _, c := range cells {
		binary.LittleEndian.PutUint32(cell[:], uint32(c))
		if _, err := bw.Write(cell[:]); err != nil {
			return fmt.Errorf("writing cells: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing cells: %w", err)
	}
	return nil
}

// ReadBytecode parses an LJBC stream. It reads exactly the header and the
// declared number of cells; trailing bytes are left unread.
func ReadBytecode(r io.Reader) ([]int32, error) {
	var magic [len(bytecodeMagic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if !bytes.Equal(magic[:], []byte(bytecodeMagic)) {
		return nil, ErrBadMagic
	}

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:4]); err != nil {
		return nil, fmt.Errorf("%w while reading version", ErrTruncatedFile)
	}
	if v := binary.LittleEndian.Uint32(hdr[:4]); v != bytecodeVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	if _, err := io.ReadFull(r, hdr[4:]); err != nil {
		return nil, fmt.Errorf("%w while reading cell count", ErrTruncatedFile)
	}
	count := binary.LittleEndian.Uint32(hdr[4:])

	// The count comes from the file, so grow with the data rather than
	// trusting it for the allocation. Reads go straight to r in bounded
	// chunks so nothing past the last cell is consumed.
	cells := make([]int32, 0, min(count, MEM_SIZE))
	buf := make([]byte, 4*min(count, bytecodeReadChunk))
	for remaining := count; remaining > 0; {
		n := min(remaining, bytecodeReadChunk)
		chunk := buf[:4*n]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("%w while reading cells", ErrTruncatedFile)
		}
		for i := range n {
			cells = append(cells, int32(binary.LittleEndian.Uint32(chunk[4*i:])))
		}
		remaining -= n
	}
	return cells, nil
}

// SaveBytecodeToFile writes cells to path, replacing any existing file.
func SaveBytecodeToFile(cells []int32, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: Failed to open for write: %s: %w", ErrBytecodeOpen, path, err)
	}
	if err := WriteBytecode(f, cells); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadBytecodeFromFile reads an LJBC file.
func LoadBytecodeFromFile(path string) ([]int32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: Failed to open for read: %s: %w", ErrBytecodeOpen, path, err)
	}
	defer f.Close()
	cells, err := ReadBytecode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cells, nil
}

// IsBytecodeFile reports whether data starts with the LJBC magic.
func IsBytecodeFile(data []byte) bool {
	return len(data) >= len(bytecodeMagic) && string(data[:len(bytecodeMagic)]) == bytecodeMagic
}
