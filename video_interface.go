package main

import (
	"fmt"
	"time"
)

// VideoError provides detailed error context for video operations
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

func (e *VideoError) Unwrap() error { return e.Err }

// FrameSnapshot is a copy of the last presented frame
type FrameSnapshot struct {
	Buffer    []byte // RGBA pixels
	Width     int
	Height    int
	Timestamp time.Time
}

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	RefreshRate int // Target refresh rate in Hz
	Fullscreen  bool
	StatusBar   bool
	MaxFrames   int // headless only; 0 = until the handler stops
}

// FrameHandler runs once per host frame with the polled button mask. It
// returns false to end Run.
type FrameHandler func(keys uint32) bool

// VideoOutput is implemented by every display host
type VideoOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // RGBA pixels, FB_WIDTH x FB_HEIGHT

	SetFrameHandler(fn FrameHandler)
	Run() error // blocks until the window closes or the handler stops

	GetFrameCount() uint64
	GetRefreshRate() int
}

// HostControls are the hot keys a windowed host offers.
type HostControls struct {
	Restart  func()
	Snapshot func()
}

// ControllableOutput is implemented by backends that support hot keys.
type ControllableOutput interface {
	SetHostControls(c HostControls)
}

const (
	VIDEO_BACKEND_EBITEN = iota
	VIDEO_BACKEND_HEADLESS
)

// DefaultDisplayConfig sizes the display for the VM32 framebuffer.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Width:       FB_WIDTH,
		Height:      FB_HEIGHT,
		Scale:       DEFAULT_SCALE,
		RefreshRate: DEFAULT_REFRESH_HZ,
		StatusBar:   true,
	}
}

// ClampScale keeps a window scale within 1..MAX_SCALE.
func ClampScale(scale int) int {
	return min(max(scale, 1), MAX_SCALE)
}

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput()
	case VIDEO_BACKEND_HEADLESS:
		return NewHeadlessVideoOutput(nil), nil
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
