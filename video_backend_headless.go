package main

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

var videoLog = commonlog.GetLogger("vm32.video")

// KeySource supplies the button mask for hosts without a window.
type KeySource interface {
	Mask() uint32
	QuitRequested() bool
}

// HeadlessVideoOutput drives frames without a display. It is used for
// -headless runs and tests; frames are optionally paced to the refresh rate.
type HeadlessVideoOutput struct {
	mu      sync.Mutex
	config  DisplayConfig
	handler FrameHandler
	keys    KeySource
	frame   []byte
	paced   bool

	started    atomic.Bool
	frameCount atomic.Uint64
}

func NewHeadlessVideoOutput(keys KeySource) *HeadlessVideoOutput {
	return &HeadlessVideoOutput{
		config: DefaultDisplayConfig(),
		keys:   keys,
		frame:  make([]byte, FB_WIDTH*FB_HEIGHT*4),
	}
}

func (h *HeadlessVideoOutput) Start() error {
	h.started.Store(true)
	return nil
}

func (h *HeadlessVideoOutput) Stop() error {
	h.started.Store(false)
	return nil
}

func (h *HeadlessVideoOutput) Close() error {
	return h.Stop()
}

func (h *HeadlessVideoOutput) IsStarted() bool {
	return h.started.Load()
}

func (h *HeadlessVideoOutput) SetDisplayConfig(config DisplayConfig) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if config.Width <= 0 {
		config.Width = FB_WIDTH
	}
	if config.Height <= 0 {
		config.Height = FB_HEIGHT
	}
	config.Scale = ClampScale(config.Scale)
	h.config = config
	if n := config.Width * config.Height * 4; len(h.frame) != n {
		h.frame = make([]byte, n)
	}
	return nil
}

func (h *HeadlessVideoOutput) GetDisplayConfig() DisplayConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// SetPaced makes Run sleep between frames to hold the refresh rate.
func (h *HeadlessVideoOutput) SetPaced(paced bool) {
	h.mu.Lock()
	h.paced = paced
	h.mu.Unlock()
}

func (h *HeadlessVideoOutput) SetKeySource(keys KeySource) {
	h.mu.Lock()
	h.keys = keys
	h.mu.Unlock()
}

func (h *HeadlessVideoOutput) SetFrameHandler(fn FrameHandler) {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
}

func (h *HeadlessVideoOutput) UpdateFrame(buffer []byte) error {
	h.mu.Lock()
	copy(h.frame, buffer)
	h.mu.Unlock()
	return nil
}

// LastFrame returns a copy of the most recent frame.
func (h *HeadlessVideoOutput) LastFrame() FrameSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := make([]byte, len(h.frame))
	copy(buf, h.frame)
	return FrameSnapshot{Buffer: buf, Width: h.config.Width, Height: h.config.Height, Timestamp: time.Now()}
}

// Run calls the frame handler until it returns false, the key source asks
// to quit, Stop is called, or MaxFrames frames have run.
func (h *HeadlessVideoOutput) Run() error {
	h.Start()
	defer h.Stop()

	h.mu.Lock()
	handler, keys, paced, cfg := h.handler, h.keys, h.paced, h.config
	h.mu.Unlock()
	if handler == nil {
		return &VideoError{Operation: "run", Details: "no frame handler set"}
	}

	var tick *time.Ticker
	if paced && cfg.RefreshRate > 0 {
		tick = time.NewTicker(time.Second / time.Duration(cfg.RefreshRate))
		defer tick.Stop()
	}

	for h.started.Load() {
		if cfg.MaxFrames > 0 && h.frameCount.Load() >= uint64(cfg.MaxFrames) {
			videoLog.Debugf("headless: frame limit %d reached", cfg.MaxFrames)
			break
		}
		var mask uint32
		if keys != nil {
			if keys.QuitRequested() {
				videoLog.Infof("headless: quit requested")
				break
			}
			mask = keys.Mask()
		}
		if !handler(mask) {
			h.frameCount.Add(1)
			break
		}
		h.frameCount.Add(1)
		if tick != nil {
			<-tick.C
		}
	}
	return nil
}

func (h *HeadlessVideoOutput) GetFrameCount() uint64 {
	return h.frameCount.Load()
}

func (h *HeadlessVideoOutput) GetRefreshRate() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.config.RefreshRate == 0 {
		return DEFAULT_REFRESH_HZ
	}
	return h.config.RefreshRate
}
