package term

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePty scripts the child side of the duplex channel.
type fakePty struct {
	mu      sync.Mutex
	out     chan []byte
	eofOnce sync.Once
	input   []byte
	resized [][2]int
	closed  bool
	alive   bool
}

func newFakePty() *fakePty {
	return &fakePty{out: make(chan []byte, 64), alive: true}
}

func (f *fakePty) emit(s string) { f.out <- []byte(s) }

func (f *fakePty) eof() { f.eofOnce.Do(func() { close(f.out) }) }

func (f *fakePty) Resize(cols, rows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resized = append(f.resized, [2]int{cols, rows})
	return nil
}

func (f *fakePty) WriteInput(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = append(f.input, p...)
	return len(p), nil
}

func (f *fakePty) ReadOutput(p []byte) (int, error) {
	data, ok := <-f.out
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (f *fakePty) Close() error {
	f.mu.Lock()
	f.closed = true
	f.alive = false
	f.mu.Unlock()
	f.eof() // a closed pty reads as EOF, which stops the reader
	return nil
}

func (f *fakePty) IsAlive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakePty) inputString() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.input)
}

func drainAll(t *testing.T, term *Terminal) {
	t.Helper()
	require.Eventually(t, func() bool {
		term.ProcessOutput()
		return !term.Pending()
	}, 2*time.Second, time.Millisecond)
}

func TestTerminalParsesQueuedOutput(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	f.emit("hello \x1b[1mworld\x1b[0m")
	drainAll(t, term)

	assert.Equal(t, "hello world", rowText(term.Buffer(), 0)[:11])
	assert.NotZero(t, term.Buffer().Cell(6, 0).Flags&FlagBold)
}

func TestTerminalFIFOAcrossChunks(t *testing.T) {
	// Bytes split at awkward places still parse in order; the escape state
	// persists across queue chunks.
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	f.emit("a\x1b[3")
	f.emit("1mred")
	drainAll(t, term)

	buf := term.Buffer()
	assert.Equal(t, "ared", rowText(buf, 0)[:4])
	assert.Equal(t, IndexedColor(1), buf.Cell(1, 0).Fg)
}

func TestTerminalTitleAndExit(t *testing.T) {
	f := newFakePty()
	exited := make(chan struct{})
	term := startWithPty(f, 20, 3, Options{OnExit: func() { close(exited) }})
	defer term.Close()

	f.emit("\x1b]0;my shell\x07output")
	drainAll(t, term)
	assert.Equal(t, "my shell", term.Title())

	f.eof()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("exit callback never fired")
	}
	assert.False(t, term.IsRunning())
	// Output that arrived before EOF is still there.
	assert.Equal(t, "output", rowText(term.Buffer(), 0)[:6])
}

func TestTerminalDrainAfterEOF(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	f.emit("late data")
	f.eof()

	require.Eventually(t, func() bool { return !term.IsRunning() }, 2*time.Second, time.Millisecond)
	drainAll(t, term)
	assert.Equal(t, "late data", rowText(term.Buffer(), 0)[:9])
}

func TestTerminalReplyRoutedToPty(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	f.emit("\x1b[c")
	drainAll(t, term)
	assert.Equal(t, "\x1b[?6c", f.inputString())
}

func TestTerminalSendInputAndKeys(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	term.SendInput([]byte("ls\r"))
	term.SendKey(KeyUp, 0)
	assert.Equal(t, "ls\r\x1b[A", f.inputString())

	// Application cursor keys switch to SS3.
	f.emit("\x1b[?1h")
	drainAll(t, term)
	term.SendKey(KeyUp, 0)
	assert.Equal(t, "ls\r\x1b[A\x1bOA", f.inputString())
}

func TestTerminalPasteBracketing(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	term.Paste("plain")
	assert.Equal(t, "plain", f.inputString())

	f.emit("\x1b[?2004h")
	drainAll(t, term)
	term.Paste("x")
	assert.Equal(t, "plain\x1b[200~x\x1b[201~", f.inputString())
}

func TestTerminalResize(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	defer term.Close()

	term.Resize(40, 10)
	cols, rows := term.Buffer().Size()
	assert.Equal(t, 40, cols)
	assert.Equal(t, 10, rows)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, [][2]int{{40, 10}}, f.resized)
}

func TestTerminalBell(t *testing.T) {
	f := newFakePty()
	bells := 0
	term := startWithPty(f, 20, 3, Options{OnBell: func() { bells++ }})
	defer term.Close()

	f.emit("ding\a")
	drainAll(t, term)
	assert.Equal(t, 1, bells)
}

func TestTerminalCloseStopsReader(t *testing.T) {
	f := newFakePty()
	term := startWithPty(f, 20, 3, Options{})
	f.emit("x")
	term.Close()
	assert.False(t, term.IsRunning())
	assert.True(t, f.closed)
}
