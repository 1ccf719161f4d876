package main

import "sync"

// runtimeStatusSnapshot is what the status bar shows. The runner publishes
// it after every frame; video backends read it from their draw loop.
type runtimeStatusSnapshot struct {
	program string
	state   RunnerState

	ip, sp     uint32
	stackDepth int
	keys       uint32

	totalSteps uint64
	frames     uint64
	lastError  string
	lastLine   string
}

type runtimeStatusStore struct {
	mu sync.RWMutex
	runtimeStatusSnapshot
}

func (s *runtimeStatusStore) setProgram(name string) {
	s.mu.Lock()
	s.program = name
	s.mu.Unlock()
}

func (s *runtimeStatusStore) setMachine(state RunnerState, ip, sp uint32, depth int, keys uint32) {
	s.mu.Lock()
	s.state = state
	s.ip = ip
	s.sp = sp
	s.stackDepth = depth
	s.keys = keys
	s.mu.Unlock()
}

func (s *runtimeStatusStore) setCounters(totalSteps, frames uint64, lastError, lastLine string) {
	s.mu.Lock()
	s.totalSteps = totalSteps
	s.frames = frames
	s.lastError = lastError
	s.lastLine = lastLine
	s.mu.Unlock()
}

func (s *runtimeStatusStore) snapshot() runtimeStatusSnapshot {
	s.mu.RLock()
	snap := s.runtimeStatusSnapshot
	s.mu.RUnlock()
	return snap
}

var runtimeStatus = &runtimeStatusStore{}
