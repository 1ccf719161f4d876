// runtime_helpers.go - Program format detection and loading

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	FORMAT_LJBC = "ljbc"
	FORMAT_LUA  = "lua"
)

// formatFromExtension picks the loader for a program file. Files with an
// unknown extension are accepted when they start with the LJBC magic.
func formatFromExtension(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ljbc":
		return FORMAT_LJBC, nil
	case ".lua":
		return FORMAT_LUA, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrBytecodeOpen, path, err)
	}
	defer f.Close()
	head := make([]byte, len(bytecodeMagic))
	if _, err := io.ReadFull(f, head); err == nil && IsBytecodeFile(head) {
		return FORMAT_LJBC, nil
	}
	return "", fmt.Errorf("unsupported extension: %s", filepath.Ext(path))
}

// loadProgramFile reads a .ljbc file or runs a .lua producer script.
func loadProgramFile(path string) ([]int32, error) {
	format, err := formatFromExtension(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FORMAT_LUA:
		return BuildFromLuaFile(path)
	default:
		return LoadBytecodeFromFile(path)
	}
}
