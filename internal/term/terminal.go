package term

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voidwarestudios/velocitty/internal/pty"
)

const (
	readBufSize  = 64 * 1024
	queueCap     = 4 * 1024 * 1024
	drainByteCap = 1 * 1024 * 1024
	drainTimeCap = 2 * time.Millisecond
)

// Options configures a Terminal.
type Options struct {
	ScrollbackMax int
	Palette       *Palette
	ShellHint     string
	// OnBell, if set, is invoked from processOutput when BEL arrives.
	OnBell func()
	// OnExit, if set, is invoked once when the child goes away.
	OnExit func()
}

// Terminal binds a PTY to a ScreenBuffer through the parser. A dedicated
// reader goroutine moves PTY output into a bounded queue; the UI thread calls
// ProcessOutput between frames to parse it.
type Terminal struct {
	mu     sync.Mutex
	buf    *ScreenBuffer
	parser *Parser
	pty    pty.Pty
	queue  *byteQueue

	title   string
	running atomic.Bool
	exited  atomic.Bool
	opts    Options

	readerDone chan struct{}
}

// Start spawns the shell and begins reading. On PTY failure no Terminal is
// returned.
func Start(cols, rows int, opts Options) (*Terminal, error) {
	if opts.ScrollbackMax <= 0 {
		opts.ScrollbackMax = 10000
	}
	handle, err := pty.Open(cols, rows, opts.ShellHint)
	if err != nil {
		return nil, err
	}
	return startWithPty(handle, cols, rows, opts), nil
}

// startWithPty binds an already-open PTY; Start is the public entry.
func startWithPty(handle pty.Pty, cols, rows int, opts Options) *Terminal {
	if opts.ScrollbackMax <= 0 {
		opts.ScrollbackMax = 10000
	}
	t := &Terminal{
		pty:        handle,
		queue:      newByteQueue(queueCap),
		opts:       opts,
		readerDone: make(chan struct{}),
	}
	t.buf = NewScreenBuffer(cols, rows, opts.ScrollbackMax)
	t.parser = NewParser(t.buf, opts.Palette, (*terminalSink)(t))
	t.running.Store(true)

	go t.readLoop()
	return t
}

// readLoop is the per-terminal reader worker.
func (t *Terminal) readLoop() {
	defer close(t.readerDone)
	buf := make([]byte, readBufSize)
	for {
		n, err := t.pty.ReadOutput(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !t.queue.Write(data) {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("terminal: pty read: %v", err)
			}
			t.markExited()
			return
		}
	}
}

func (t *Terminal) markExited() {
	if t.running.CompareAndSwap(true, false) {
		t.exited.Store(true)
		if t.opts.OnExit != nil {
			t.opts.OnExit()
		}
	}
}

// IsRunning reports whether the child is still attached. Queued output can
// still be drained after it turns false.
func (t *Terminal) IsRunning() bool { return t.running.Load() }

// SendInput writes keyboard bytes to the PTY. A write failure after start
// closes the terminal; buffered output remains drainable.
func (t *Terminal) SendInput(p []byte) {
	if len(p) == 0 || !t.running.Load() {
		return
	}
	if _, err := t.pty.WriteInput(p); err != nil {
		log.Printf("terminal: pty write: %v", err)
		t.markExited()
	}
}

// Paste sends pasted text, wrapping it in bracketed-paste markers when the
// application asked for them.
func (t *Terminal) Paste(text string) {
	t.mu.Lock()
	bracketed := t.parser.BracketedPaste()
	t.mu.Unlock()
	if bracketed {
		t.SendInput([]byte("\x1b[200~"))
		t.SendInput([]byte(text))
		t.SendInput([]byte("\x1b[201~"))
		return
	}
	t.SendInput([]byte(text))
}

// SendKey encodes a semantic key press and sends it.
func (t *Terminal) SendKey(k Key, mods Modifiers) {
	t.mu.Lock()
	seq := EncodeKey(k, mods, t.parser.AppCursorKeys())
	t.mu.Unlock()
	if len(seq) > 0 {
		t.SendInput(seq)
	}
}

// ProcessOutput drains queued PTY bytes into the parser. The amount of work
// is bounded so the caller's frame pacing stays smooth; it returns true when
// anything changed. Called from the UI thread only.
func (t *Terminal) ProcessOutput() bool {
	deadline := time.Now().Add(drainTimeCap)
	total := 0
	changed := false
	t.mu.Lock()
	defer t.mu.Unlock()
	for total < drainByteCap {
		chunk := t.queue.Drain(readBufSize)
		if chunk == nil {
			break
		}
		t.parser.Feed(chunk)
		total += len(chunk)
		changed = true
		if time.Now().After(deadline) {
			break
		}
	}
	return changed
}

// Pending reports whether more output awaits parsing.
func (t *Terminal) Pending() bool { return t.queue.Len() > 0 }

// Resize propagates a grid change to the PTY first, then the buffer.
func (t *Terminal) Resize(cols, rows int) {
	if err := t.pty.Resize(cols, rows); err != nil {
		log.Printf("terminal: pty resize %dx%d: %v", cols, rows, err)
	}
	t.mu.Lock()
	t.buf.Resize(cols, rows)
	t.mu.Unlock()
}

// Close terminates the child and the reader worker; queued bytes are dropped.
func (t *Terminal) Close() {
	t.running.Store(false)
	t.queue.Close()
	if err := t.pty.Close(); err != nil {
		log.Printf("terminal: pty close: %v", err)
	}
	<-t.readerDone
}

// Title returns the window title set via OSC 0/2.
func (t *Terminal) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.title
}

// Cursor returns the current cursor position.
func (t *Terminal) Cursor() Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.CursorPos()
}

// Buffer exposes the screen model for rendering and selection. Callers on
// the UI thread may read it directly between ProcessOutput calls.
func (t *Terminal) Buffer() *ScreenBuffer { return t.buf }

// Parser exposes tracked modes (mouse, bracketed paste).
func (t *Terminal) Parser() *Parser { return t.parser }

// terminalSink adapts Terminal to the parser's EventSink.
type terminalSink Terminal

func (s *terminalSink) Bell() {
	if s.opts.OnBell != nil {
		s.opts.OnBell()
	}
}

func (s *terminalSink) SetTitle(title string) {
	// Already under t.mu: ProcessOutput holds it while feeding the parser.
	s.title = title
}

func (s *terminalSink) Reply(seq []byte) {
	t := (*Terminal)(s)
	if t.running.Load() {
		if _, err := t.pty.WriteInput(seq); err != nil {
			log.Printf("terminal: reply write: %v", err)
		}
	}
}

func (s *terminalSink) ModeChanged(mode int, on bool) {}
