// terminal_pad.go - Raw-mode stdin as a VM32 button pad for headless runs

package main

import (
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
	"golang.org/x/term"
)

var padLog = commonlog.GetLogger("vm32.pad")

// A terminal only reports key presses, never releases, so each press holds
// its button down for PAD_HOLD_FRAMES frames. Auto-repeat keeps it held.
const PAD_HOLD_FRAMES = 8

// padKeys maps plain bytes to buttons. WASD doubles as the arrow keys.
var padKeys = map[byte]uint32{
	'w':  KB_UP,
	's':  KB_DOWN,
	'a':  KB_LEFT,
	'd':  KB_RIGHT,
	'z':  KB_A,
	'x':  KB_B,
	'c':  KB_X,
	'v':  KB_Y,
	'q':  KB_L,
	'e':  KB_R,
	'\t': KB_SELECT,
	' ':  KB_SELECT,
	'\r': KB_START,
	'\n': KB_START,
}

// TerminalPad reads raw stdin and implements KeySource.
type TerminalPad struct {
	mu    sync.Mutex
	hold  [12]int
	quit  atomic.Bool
	fd    int
	old   *term.State
	in    io.Reader
	start sync.Once
}

func NewTerminalPad() *TerminalPad {
	return &TerminalPad{in: os.Stdin, fd: int(os.Stdin.Fd())}
}

// Start switches stdin to raw mode and begins reading. If stdin is not a
// terminal the pad still reads it, so keys can be piped in.
func (p *TerminalPad) Start() error {
	var err error
	p.start.Do(func() {
		if term.IsTerminal(p.fd) {
			p.old, err = term.MakeRaw(p.fd)
			if err != nil {
				return
			}
		}
		go p.readLoop()
	})
	return err
}

// Stop restores the terminal. The reader goroutine exits with the process.
func (p *TerminalPad) Stop() {
	if p.old != nil {
		_ = term.Restore(p.fd, p.old)
		p.old = nil
	}
}

func (p *TerminalPad) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := p.in.Read(buf)
		if n > 0 {
			p.Feed(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				padLog.Debug("stdin closed")
			} else {
				padLog.Warningf("read: %v", err)
			}
			return
		}
	}
}

// Feed decodes raw input bytes and presses the buttons they name.
func (p *TerminalPad) Feed(b []byte) {
	bits, quit := decodeKeys(b)
	if quit {
		p.quit.Store(true)
	}
	p.mu.Lock()
	for _, bit := range bits {
		for i := range p.hold {
			if bit&(1<<i) != 0 {
				p.hold[i] = PAD_HOLD_FRAMES
			}
		}
	}
	p.mu.Unlock()
}

// Mask returns the held buttons and ages every hold by one frame.
func (p *TerminalPad) Mask() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var mask uint32
	for i := range p.hold {
		if p.hold[i] > 0 {
			mask |= 1 << i
			p.hold[i]--
		}
	}
	return mask
}

func (p *TerminalPad) QuitRequested() bool { return p.quit.Load() }

// decodeKeys turns a chunk of raw terminal input into button bits. Arrow
// keys arrive as ESC [ A..D. Ctrl-C, Ctrl-D and a lone ESC request quit.
func decodeKeys(b []byte) (bits []uint32, quit bool) {
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == 0x03 || c == 0x04:
			quit = true
		case c == 0x1b:
			if i+2 < len(b) && (b[i+1] == '[' || b[i+1] == 'O') {
				switch b[i+2] {
				case 'A':
					bits = append(bits, KB_UP)
				case 'B':
					bits = append(bits, KB_DOWN)
				case 'C':
					bits = append(bits, KB_RIGHT)
				case 'D':
					bits = append(bits, KB_LEFT)
				}
				i += 2
				continue
			}
			if i+1 == len(b) {
				quit = true
			}
		default:
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			if bit, ok := padKeys[c]; ok {
				bits = append(bits, bit)
			}
		}
	}
	return bits, quit
}
