package term

import "fmt"

// Key is a semantic, layout-independent key the host shell forwards.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyTab
	KeyBackTab
	KeyEnter
	KeyEscape
	KeyBackspace
)

// Modifiers is the xterm modifier bitmask (shift=1, alt=2, ctrl=4).
type Modifiers int

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

// xtermMod converts Modifiers to the ";n" parameter xterm uses: 1 + bitmask.
func xtermMod(m Modifiers) int { return 1 + int(m) }

// EncodeKey renders a key press as the byte sequence a VT/xterm application
// expects. appCursor selects SS3 cursor sequences (DECCKM).
func EncodeKey(k Key, mods Modifiers, appCursor bool) []byte {
	if mods != 0 {
		if seq := encodeModified(k, mods); seq != nil {
			return seq
		}
	}
	switch k {
	case KeyUp:
		return cursorKey('A', appCursor)
	case KeyDown:
		return cursorKey('B', appCursor)
	case KeyRight:
		return cursorKey('C', appCursor)
	case KeyLeft:
		return cursorKey('D', appCursor)
	case KeyHome:
		return cursorKey('H', appCursor)
	case KeyEnd:
		return cursorKey('F', appCursor)
	case KeyPageUp:
		return []byte("\x1b[5~")
	case KeyPageDown:
		return []byte("\x1b[6~")
	case KeyInsert:
		return []byte("\x1b[2~")
	case KeyDelete:
		return []byte("\x1b[3~")
	case KeyF1:
		return []byte("\x1bOP")
	case KeyF2:
		return []byte("\x1bOQ")
	case KeyF3:
		return []byte("\x1bOR")
	case KeyF4:
		return []byte("\x1bOS")
	case KeyF5:
		return []byte("\x1b[15~")
	case KeyF6:
		return []byte("\x1b[17~")
	case KeyF7:
		return []byte("\x1b[18~")
	case KeyF8:
		return []byte("\x1b[19~")
	case KeyF9:
		return []byte("\x1b[20~")
	case KeyF10:
		return []byte("\x1b[21~")
	case KeyF11:
		return []byte("\x1b[23~")
	case KeyF12:
		return []byte("\x1b[24~")
	case KeyTab:
		return []byte("\t")
	case KeyBackTab:
		return []byte("\x1b[Z")
	case KeyEnter:
		return []byte("\r")
	case KeyEscape:
		return []byte("\x1b")
	case KeyBackspace:
		return []byte{0x7f}
	}
	return nil
}

func cursorKey(final byte, appCursor bool) []byte {
	if appCursor {
		return []byte{0x1b, 'O', final}
	}
	return []byte{0x1b, '[', final}
}

// encodeModified produces "CSI 1;n X" / "CSI k;n ~" forms for modified keys.
func encodeModified(k Key, mods Modifiers) []byte {
	n := xtermMod(mods)
	letter := func(final byte) []byte {
		return []byte(fmt.Sprintf("\x1b[1;%d%c", n, final))
	}
	tilde := func(code int) []byte {
		return []byte(fmt.Sprintf("\x1b[%d;%d~", code, n))
	}
	switch k {
	case KeyUp:
		return letter('A')
	case KeyDown:
		return letter('B')
	case KeyRight:
		return letter('C')
	case KeyLeft:
		return letter('D')
	case KeyHome:
		return letter('H')
	case KeyEnd:
		return letter('F')
	case KeyPageUp:
		return tilde(5)
	case KeyPageDown:
		return tilde(6)
	case KeyInsert:
		return tilde(2)
	case KeyDelete:
		return tilde(3)
	case KeyTab:
		if mods == ModShift {
			return []byte("\x1b[Z")
		}
	}
	return nil
}
