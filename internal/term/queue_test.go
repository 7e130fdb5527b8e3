package term

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := newByteQueue(64)
	require.True(t, q.Write([]byte("hello ")))
	require.True(t, q.Write([]byte("world")))

	got := q.Drain(1024)
	assert.Equal(t, "hello world", string(got))
	assert.Nil(t, q.Drain(1024))
}

func TestQueueDrainBounded(t *testing.T) {
	q := newByteQueue(64)
	q.Write([]byte("abcdefgh"))
	assert.Equal(t, "abc", string(q.Drain(3)))
	assert.Equal(t, "defgh", string(q.Drain(100)))
}

func TestQueueWrapAround(t *testing.T) {
	q := newByteQueue(8)
	q.Write([]byte("abcdef"))
	q.Drain(4)
	// Tail wraps past the end of the ring.
	q.Write([]byte("ghijkl"))
	assert.Equal(t, "efghijkl", string(q.Drain(100)))
}

func TestQueueBackpressure(t *testing.T) {
	q := newByteQueue(4)
	unblocked := make(chan struct{})
	go func() {
		q.Write([]byte("abcdefgh")) // twice the capacity; must block
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("write returned before the consumer drained")
	case <-time.After(20 * time.Millisecond):
	}

	var got bytes.Buffer
	deadline := time.After(time.Second)
	for got.Len() < 8 {
		if b := q.Drain(4); b != nil {
			got.Write(b)
			continue
		}
		select {
		case <-deadline:
			t.Fatal("producer never finished")
		case <-time.After(time.Millisecond):
		}
	}
	<-unblocked
	assert.Equal(t, "abcdefgh", got.String())
}

func TestQueueCloseUnblocksProducer(t *testing.T) {
	q := newByteQueue(2)
	q.Write([]byte("ab"))

	done := make(chan bool)
	go func() {
		done <- q.Write([]byte("cd"))
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	assert.False(t, <-done)

	// Buffered bytes stay drainable after close.
	assert.Equal(t, "ab", string(q.Drain(10)))
}

func TestEncodeKeys(t *testing.T) {
	cases := []struct {
		name      string
		key       Key
		mods      Modifiers
		appCursor bool
		want      string
	}{
		{"up", KeyUp, 0, false, "\x1b[A"},
		{"up app mode", KeyUp, 0, true, "\x1bOA"},
		{"left", KeyLeft, 0, false, "\x1b[D"},
		{"home", KeyHome, 0, false, "\x1b[H"},
		{"end app mode", KeyEnd, 0, true, "\x1bOF"},
		{"page up", KeyPageUp, 0, false, "\x1b[5~"},
		{"page down", KeyPageDown, 0, false, "\x1b[6~"},
		{"insert", KeyInsert, 0, false, "\x1b[2~"},
		{"delete", KeyDelete, 0, false, "\x1b[3~"},
		{"f1", KeyF1, 0, false, "\x1bOP"},
		{"f4", KeyF4, 0, false, "\x1bOS"},
		{"f5", KeyF5, 0, false, "\x1b[15~"},
		{"f12", KeyF12, 0, false, "\x1b[24~"},
		{"shift tab", KeyBackTab, 0, false, "\x1b[Z"},
		{"shift tab via mods", KeyTab, ModShift, false, "\x1b[Z"},
		{"ctrl right", KeyRight, ModCtrl, false, "\x1b[1;5C"},
		{"shift delete", KeyDelete, ModShift, false, "\x1b[3;2~"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(EncodeKey(tc.key, tc.mods, tc.appCursor)))
		})
	}
}
