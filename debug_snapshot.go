// debug_snapshot.go - VM32 machine snapshots for save/restore

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const (
	snapshotMagic   = "LJSN"
	snapshotVersion = 1
)

// MachineSnapshot captures everything needed to resume a VM: the two
// pointers, the stack configuration and the whole address space.
type MachineSnapshot struct {
	IP            uint32  `cbor:"1,keyasint"`
	SP            uint32  `cbor:"2,keyasint"`
	StackCapacity int     `cbor:"3,keyasint"`
	Memory        []int32 `cbor:"4,keyasint"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	snapshotEncMode = em
}

// TakeSnapshot copies the machine state.
func TakeSnapshot(vm *VM) *MachineSnapshot {
	mem := make([]int32, MEM_SIZE)
	copy(mem, vm.mem[:])
	return &MachineSnapshot{
		IP:            vm.ip,
		SP:            vm.sp,
		StackCapacity: vm.StackCapacity(),
		Memory:        mem,
	}
}

// RestoreSnapshot loads a snapshot into vm. The VM keeps its own stack
// capacity; a snapshot whose sp lies beyond it is rejected.
func RestoreSnapshot(vm *VM, snap *MachineSnapshot) error {
	if len(snap.Memory) != MEM_SIZE {
		return fmt.Errorf("snapshot memory has %d cells, expected %d", len(snap.Memory), MEM_SIZE)
	}
	if snap.SP < STACK_BASE || snap.SP > vm.stackEnd {
		return fmt.Errorf("snapshot sp 0x%X outside stack 0x%X-0x%X", snap.SP, STACK_BASE, vm.stackEnd)
	}
	copy(vm.mem[:], snap.Memory)
	vm.restoreState(snap.IP, snap.SP)
	return nil
}

// WriteSnapshot encodes a snapshot: magic, version, then a zstd frame
// holding the CBOR body.
func WriteSnapshot(w io.Writer, snap *MachineSnapshot) error {
	body, err := snapshotEncMode.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	compressed := enc.EncodeAll(body, nil)
	enc.Close()

	var buf bytes.Buffer
	buf.WriteString(snapshotMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(snapshotVersion))
	buf.Write(compressed)
	_, err = w.Write(buf.Bytes())
	return err
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*MachineSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 || string(data[:4]) != snapshotMagic {
		return nil, fmt.Errorf("invalid snapshot magic")
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", version)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	body, err := dec.DecodeAll(data[8:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}

	var snap MachineSnapshot
	if err := cbor.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if len(snap.Memory) != MEM_SIZE {
		return nil, fmt.Errorf("snapshot memory has %d cells, expected %d", len(snap.Memory), MEM_SIZE)
	}
	return &snap, nil
}

// SaveSnapshotToFile writes a snapshot to disk.
func SaveSnapshotToFile(snap *MachineSnapshot, path string) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, snap); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// LoadSnapshotFromFile reads a snapshot from disk.
func LoadSnapshotFromFile(path string) (*MachineSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snap, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
