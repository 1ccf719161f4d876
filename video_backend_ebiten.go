//go:build !headless

// video_backend_ebiten.go - Ebiten window backend for the VM32 host

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
	"bytes"
	"fmt"
	"image/color"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const statusBarHeight = 30

func init() {
	compiledFeatures = append(compiledFeatures, "video:ebiten", "clipboard:png")
}

type keyBinding struct {
	key ebiten.Key
	bit uint32
}

type EbitenOutput struct {
	running     atomic.Bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  uint64
	refreshRate int

	handler  FrameHandler
	bindings []keyBinding
	controls HostControls
	quit     bool

	clipboardOnce sync.Once
	clipboardOK   bool
	showStatusBar bool
	notice        string
	noticeUntil   time.Time
}

func NewEbitenOutput() (VideoOutput, error) {
	eo := &EbitenOutput{
		width:         FB_WIDTH,
		height:        FB_HEIGHT,
		scale:         DEFAULT_SCALE,
		frameBuffer:   make([]byte, FB_WIDTH*FB_HEIGHT*4),
		refreshRate:   DEFAULT_REFRESH_HZ,
		showStatusBar: true,
	}
	if err := eo.SetKeyBindings(DefaultKeyBindings); err != nil {
		return nil, err
	}
	return eo, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running.Load() {
		return nil
	}
	eo.running.Store(true)
	ebiten.SetWindowSize(eo.windowSize())
	ebiten.SetWindowTitle("VM32")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	ebiten.SetTPS(eo.refreshRate)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}
	return nil
}

// Run starts the game loop on the calling goroutine, which must be the
// main goroutine.
func (eo *EbitenOutput) Run() error {
	if err := eo.Start(); err != nil {
		return err
	}
	defer eo.running.Store(false)
	if err := ebiten.RunGame(eo); err != nil {
		return &VideoError{Operation: "run", Details: "ebiten game loop", Err: err}
	}
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running.Store(false)
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running.Load()
}

func (eo *EbitenOutput) windowSize() (int, int) {
	h := eo.height
	if eo.showStatusBar {
		h += statusBarHeight
	}
	return eo.width * eo.scale, h * eo.scale
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	if config.Width > 0 && config.Width != eo.width || config.Height > 0 && config.Height != eo.height {
		return &VideoError{
			Operation: "configure",
			Details:   fmt.Sprintf("display is fixed at %dx%d", FB_WIDTH, FB_HEIGHT),
		}
	}
	eo.scale = ClampScale(config.Scale)
	if config.RefreshRate > 0 {
		eo.refreshRate = config.RefreshRate
	}
	eo.fullscreen = config.Fullscreen
	eo.showStatusBar = config.StatusBar
	if eo.running.Load() {
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowSize())
		}
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		RefreshRate: eo.refreshRate,
		Fullscreen:  eo.fullscreen,
		StatusBar:   eo.showStatusBar,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return atomic.LoadUint64(&eo.frameCount)
}

func (eo *EbitenOutput) GetRefreshRate() int {
	return eo.refreshRate
}

// GetSnapshot copies the last frame passed to UpdateFrame.
func (eo *EbitenOutput) GetSnapshot() (FrameSnapshot, error) {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()

	snapshot := FrameSnapshot{
		Buffer:    make([]byte, len(eo.frameBuffer)),
		Width:     eo.width,
		Height:    eo.height,
		Timestamp: time.Now(),
	}
	copy(snapshot.Buffer, eo.frameBuffer)
	return snapshot, nil
}

func (eo *EbitenOutput) SetFrameHandler(fn FrameHandler) {
	eo.bufferMutex.Lock()
	eo.handler = fn
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetHostControls(c HostControls) {
	eo.bufferMutex.Lock()
	eo.controls = c
	eo.bufferMutex.Unlock()
}

// SetKeyBindings maps button names to ebiten key names such as "ArrowUp"
// or "Z". Every button may be bound to one key.
func (eo *EbitenOutput) SetKeyBindings(keys map[string]string) error {
	bindings, err := parseKeyBindings(keys)
	if err != nil {
		return err
	}
	eo.bufferMutex.Lock()
	eo.bindings = bindings
	eo.bufferMutex.Unlock()
	return nil
}

func parseKeyBindings(keys map[string]string) ([]keyBinding, error) {
	bindings := make([]keyBinding, 0, len(keys))
	for button, keyName := range keys {
		bit, ok := ButtonBit(button)
		if !ok {
			return nil, fmt.Errorf("unknown button %q", button)
		}
		var k ebiten.Key
		if err := k.UnmarshalText([]byte(keyName)); err != nil {
			return nil, fmt.Errorf("button %s: unknown key %q", button, keyName)
		}
		bindings = append(bindings, keyBinding{key: k, bit: bit})
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].bit < bindings[j].bit })
	return bindings, nil
}

// pollButtons builds the button mask from the bound keys.
func pollButtons(bindings []keyBinding, pressed func(ebiten.Key) bool) uint32 {
	var mask uint32
	for _, b := range bindings {
		if pressed(b.key) {
			mask |= b.bit
		}
	}
	return mask
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running.Load() || eo.quit {
		return ebiten.Termination
	}

	eo.handleHotKeys()

	eo.bufferMutex.RLock()
	handler := eo.handler
	bindings := eo.bindings
	eo.bufferMutex.RUnlock()

	if handler != nil {
		if !handler(pollButtons(bindings, ebiten.IsKeyPressed)) {
			eo.quit = true
		}
	}
	return nil
}

func (eo *EbitenOutput) handleHotKeys() {
	eo.bufferMutex.RLock()
	controls := eo.controls
	eo.bufferMutex.RUnlock()

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) && controls.Snapshot != nil {
		controls.Snapshot()
		eo.flashNotice("snapshot saved")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		eo.copyFrameToClipboard()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF10) && controls.Restart != nil {
		controls.Restart()
		eo.flashNotice("restarted")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowSize())
		}
		eo.bufferMutex.Unlock()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		eo.bufferMutex.Lock()
		eo.showStatusBar = !eo.showStatusBar
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.windowSize())
		}
		eo.bufferMutex.Unlock()
	}
}

func (eo *EbitenOutput) flashNotice(msg string) {
	eo.notice = msg
	eo.noticeUntil = time.Now().Add(2 * time.Second)
}

// copyFrameToClipboard places the current frame on the clipboard as a PNG.
func (eo *EbitenOutput) copyFrameToClipboard() {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		videoLog.Warning("clipboard unavailable")
		return
	}
	snap, err := eo.GetSnapshot()
	if err != nil {
		videoLog.Errorf("clipboard: %s", err)
		return
	}
	var buf bytes.Buffer
	if err := encodeRGBAPNG(&buf, snap.Buffer); err != nil {
		videoLog.Errorf("clipboard: %s", err)
		return
	}
	clipboard.Write(clipboard.FmtImage, buf.Bytes())
	eo.flashNotice("frame copied")
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}

	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	showStatusBar := eo.showStatusBar
	eo.bufferMutex.RUnlock()
	screen.DrawImage(eo.window, nil)
	if showStatusBar {
		eo.drawRuntimeStatusBar(screen)
	}

	atomic.AddUint64(&eo.frameCount, 1)
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	if eo.showStatusBar {
		return eo.width, eo.height + statusBarHeight
	}
	return eo.width, eo.height
}

type statusToken struct {
	name    string
	enabled bool
}

func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6

	for _, token := range tokens {
		c := offColor
		if token.enabled {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 6
	}
}

// statusLines builds the two status bar rows from a runtime snapshot.
func statusLines(s runtimeStatusSnapshot) (machine []statusToken, detail []statusToken) {
	machine = []statusToken{
		{name: s.state.String(), enabled: s.state == RunnerRunning},
		{name: fmt.Sprintf("IP %04X", s.ip), enabled: false},
		{name: fmt.Sprintf("SP %04X", s.sp), enabled: false},
		{name: fmt.Sprintf("%d st", s.totalSteps), enabled: false},
		{name: ButtonMaskString(s.keys), enabled: s.keys != 0},
	}
	switch {
	case s.lastError != "":
		detail = []statusToken{{name: s.lastError, enabled: false}}
	case s.lastLine != "":
		detail = []statusToken{{name: s.lastLine, enabled: true}}
	}
	return machine, detail
}

func (eo *EbitenOutput) drawRuntimeStatusBar(screen *ebiten.Image) {
	s := runtimeStatus.snapshot()
	y := eo.height
	ebitenutil.DrawRect(screen, 0, float64(y), float64(eo.width), statusBarHeight, color.RGBA{0, 0, 0, 255})

	machine, detail := statusLines(s)
	drawStatusLine(screen, 2, y+12, "", machine)
	if eo.notice != "" && time.Now().Before(eo.noticeUntil) {
		detail = []statusToken{{name: eo.notice, enabled: true}}
	}
	drawStatusLine(screen, 2, y+26, ">", detail)
}
