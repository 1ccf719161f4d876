package main

import (
	"bytes"
	"testing"
)

type scriptedKeys struct {
	masks []uint32
	n     int
	quit  int // frame at which to quit, 0 = never
}

func (s *scriptedKeys) Mask() uint32 {
	m := uint32(0)
	if s.n < len(s.masks) {
		m = s.masks[s.n]
	}
	s.n++
	return m
}

func (s *scriptedKeys) QuitRequested() bool {
	return s.quit > 0 && s.n >= s.quit
}

func TestHeadlessOutput_SetDisplayConfig(t *testing.T) {
	out := NewHeadlessVideoOutput(nil)
	if err := out.SetDisplayConfig(DisplayConfig{Scale: 0, Fullscreen: true, MaxFrames: 3}); err != nil {
		t.Fatalf("SetDisplayConfig returned error: %v", err)
	}
	got := out.GetDisplayConfig()
	if got.Width != FB_WIDTH || got.Height != FB_HEIGHT {
		t.Fatalf("expected default size, got %dx%d", got.Width, got.Height)
	}
	if got.Scale != 1 || !got.Fullscreen || got.MaxFrames != 3 {
		t.Fatalf("expected Scale=1, Fullscreen=true, MaxFrames=3; got %+v", got)
	}
	if out.GetRefreshRate() != DEFAULT_REFRESH_HZ {
		t.Fatalf("expected default refresh rate, got %d", out.GetRefreshRate())
	}
}

func TestHeadlessOutput_RunStopsAtMaxFrames(t *testing.T) {
	out := NewHeadlessVideoOutput(nil)
	cfg := out.GetDisplayConfig()
	cfg.MaxFrames = 5
	out.SetDisplayConfig(cfg)
	calls := 0
	out.SetFrameHandler(func(uint32) bool {
		calls++
		return true
	})
	if err := out.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 5 || out.GetFrameCount() != 5 {
		t.Fatalf("expected 5 frames, got calls=%d count=%d", calls, out.GetFrameCount())
	}
	if out.IsStarted() {
		t.Fatal("expected output stopped after Run")
	}
}

func TestHeadlessOutput_RunPassesKeysAndStops(t *testing.T) {
	keys := &scriptedKeys{masks: []uint32{KB_UP, KB_A | KB_B, 0}}
	out := NewHeadlessVideoOutput(keys)
	var seen []uint32
	out.SetFrameHandler(func(mask uint32) bool {
		seen = append(seen, mask)
		return len(seen) < 3
	})
	out.Run()
	if len(seen) != 3 || seen[0] != KB_UP || seen[1] != KB_A|KB_B || seen[2] != 0 {
		t.Fatalf("unexpected masks %v", seen)
	}
}

func TestHeadlessOutput_QuitRequested(t *testing.T) {
	keys := &scriptedKeys{quit: 2}
	out := NewHeadlessVideoOutput(keys)
	calls := 0
	out.SetFrameHandler(func(uint32) bool {
		calls++
		return true
	})
	out.Run()
	if calls != 2 {
		t.Fatalf("expected 2 frames before quit, got %d", calls)
	}
}

func TestHeadlessOutput_NoHandler(t *testing.T) {
	if err := NewHeadlessVideoOutput(nil).Run(); err == nil {
		t.Fatal("expected error without frame handler")
	}
}

func TestHeadlessOutput_UpdateFrame(t *testing.T) {
	out := NewHeadlessVideoOutput(nil)
	frame := bytes.Repeat([]byte{1, 2, 3, 4}, FB_WIDTH*FB_HEIGHT)
	out.UpdateFrame(frame)
	snap := out.LastFrame()
	if !bytes.Equal(snap.Buffer, frame) || snap.Width != FB_WIDTH {
		t.Fatal("expected last frame to match update")
	}
}
