package term

import (
	"unicode/utf8"
)

// parserState enumerates the escape-sequence machine states.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscCharset // ESC ( or ESC ) awaiting the designator
	stateEscHash    // ESC # awaiting the final
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateOscString
	stateDcsPassthrough // also SOS/PM/APC
	stateUtf8Cont
)

// maxParams bounds a CSI parameter list; extras are dropped.
const maxParams = 16

// maxStringLen caps the OSC/DCS accumulation buffer. Longer payloads are
// truncated and the sequence still terminates normally.
const maxStringLen = 4096

// paramDefault marks an omitted CSI parameter.
const paramDefault = -1

// EventSink receives parser events that are not ScreenBuffer mutations.
// Implementations must not call back into the parser.
type EventSink interface {
	Bell()
	SetTitle(title string)
	// Reply carries response bytes (DA, DSR, OSC queries) bound for the PTY.
	Reply(seq []byte)
	// ModeChanged reports DEC private mode flips the host may care about
	// (cursor keys, bracketed paste, mouse protocols).
	ModeChanged(mode int, on bool)
}

// nopSink makes the sink optional.
type nopSink struct{}

func (nopSink) Bell()                 {}
func (nopSink) SetTitle(string)       {}
func (nopSink) Reply([]byte)          {}
func (nopSink) ModeChanged(int, bool) {}

// Parser is a resumable, byte-driven VT/xterm state machine. Feeding a stream
// in any chunking produces the same operation sequence. It never fails:
// malformed input degrades to U+FFFD or is dropped.
type Parser struct {
	buf  *ScreenBuffer
	pal  *Palette
	sink EventSink

	state parserState

	params     [maxParams]int
	nParams    int
	curParam   int
	curHasDig  bool
	privMarker byte
	inter      [2]byte
	nInter     int

	str          []byte
	strTruncated bool
	strEsc       bool // saw ESC inside OSC/DCS, expecting ST's backslash

	utf8Buf  [4]byte
	utf8Len  int
	utf8Need int

	escCharsetSlot byte // '(' or ')'

	g0, g1      charset
	activeG     int
	savedG0, savedG1 charset
	savedActive int

	appCursorKeys  bool
	bracketedPaste bool
	mouseMode      int // 0, 1000, 1002 or 1003
	mouseSGR       bool
}

// NewParser binds a parser to a buffer and palette. sink may be nil.
func NewParser(buf *ScreenBuffer, pal *Palette, sink EventSink) *Parser {
	if sink == nil {
		sink = nopSink{}
	}
	if pal == nil {
		pal = DefaultPalette()
	}
	return &Parser{buf: buf, pal: pal, sink: sink}
}

// AppCursorKeys reports DECCKM.
func (p *Parser) AppCursorKeys() bool { return p.appCursorKeys }

// BracketedPaste reports mode 2004.
func (p *Parser) BracketedPaste() bool { return p.bracketedPaste }

// MouseMode returns the tracked mouse reporting mode (0 when off) and whether
// SGR encoding is selected.
func (p *Parser) MouseMode() (mode int, sgr bool) { return p.mouseMode, p.mouseSGR }

// Palette returns the palette the parser mutates via OSC.
func (p *Parser) Palette() *Palette { return p.pal }

// Feed consumes a byte slice. Incomplete sequences persist until the next
// call.
func (p *Parser) Feed(data []byte) {
	for _, b := range data {
		p.step(b)
	}
}

func (p *Parser) step(b byte) {
	switch p.state {
	case stateGround:
		p.ground(b)
	case stateUtf8Cont:
		p.utf8Cont(b)
	case stateEscape:
		p.escape(b)
	case stateEscCharset:
		p.escCharset(b)
	case stateEscHash:
		p.escHash(b)
	case stateCsiEntry, stateCsiParam, stateCsiIntermediate:
		p.csi(b)
	case stateOscString:
		p.oscByte(b)
	case stateDcsPassthrough:
		p.dcsByte(b)
	}
}

func (p *Parser) ground(b byte) {
	switch {
	case b == 0x1b:
		p.enterEscape()
	case b < 0x20:
		p.execControl(b)
	case b == 0x7f:
		// DEL: ignored
	case b < 0x80:
		p.put(rune(b))
	case b >= 0xc2 && b <= 0xdf:
		p.startUtf8(b, 1)
	case b >= 0xe0 && b <= 0xef:
		p.startUtf8(b, 2)
	case b >= 0xf0 && b <= 0xf4:
		p.startUtf8(b, 3)
	default:
		// Stray continuation or invalid lead byte.
		p.buf.Put(utf8.RuneError)
	}
}

func (p *Parser) execControl(b byte) {
	switch b {
	case 0x07:
		p.sink.Bell()
	case 0x08:
		p.buf.Backspace()
	case 0x09:
		p.buf.Tab()
	case 0x0a, 0x0b, 0x0c:
		p.buf.LineFeed()
	case 0x0d:
		p.buf.CarriageReturn()
	case 0x0e: // SO: select G1
		p.activeG = 1
	case 0x0f: // SI: select G0
		p.activeG = 0
	}
}

func (p *Parser) put(r rune) {
	g := p.g0
	if p.activeG == 1 {
		g = p.g1
	}
	p.buf.Put(g.translate(r))
}

func (p *Parser) startUtf8(b byte, need int) {
	p.utf8Buf[0] = b
	p.utf8Len = 1
	p.utf8Need = need
	p.state = stateUtf8Cont
}

func (p *Parser) utf8Cont(b byte) {
	if b < 0x80 || b > 0xbf {
		// Broken sequence: emit the replacement and reprocess this byte.
		p.buf.Put(utf8.RuneError)
		p.state = stateGround
		p.step(b)
		return
	}
	p.utf8Buf[p.utf8Len] = b
	p.utf8Len++
	if p.utf8Len < p.utf8Need+1 {
		return
	}
	r, size := utf8.DecodeRune(p.utf8Buf[:p.utf8Len])
	p.state = stateGround
	if r == utf8.RuneError && size <= 1 {
		p.buf.Put(utf8.RuneError)
		return
	}
	p.buf.Put(r)
}

func (p *Parser) enterEscape() {
	p.state = stateEscape
}

func (p *Parser) escape(b byte) {
	switch b {
	case '[':
		p.resetSeq()
		p.state = stateCsiEntry
	case ']':
		p.str = p.str[:0]
		p.strTruncated = false
		p.strEsc = false
		p.state = stateOscString
	case 'P', 'X', '^', '_':
		p.strEsc = false
		p.state = stateDcsPassthrough
	case '(', ')':
		p.escCharsetSlot = b
		p.state = stateEscCharset
	case '#':
		p.state = stateEscHash
	case '7':
		p.buf.SaveCursor()
		p.savedG0, p.savedG1, p.savedActive = p.g0, p.g1, p.activeG
		p.state = stateGround
	case '8':
		p.buf.RestoreCursor()
		p.g0, p.g1, p.activeG = p.savedG0, p.savedG1, p.savedActive
		p.state = stateGround
	case 'D':
		p.buf.Index()
		p.state = stateGround
	case 'M':
		p.buf.ReverseIndex()
		p.state = stateGround
	case 'E':
		p.buf.LineFeed()
		p.buf.CarriageReturn()
		p.state = stateGround
	case 'H':
		p.buf.SetTabStop()
		p.state = stateGround
	case 'c':
		p.fullReset()
		p.state = stateGround
	case 0x1b:
		// Restart the escape.
	case 0x18, 0x1a: // CAN, SUB
		p.state = stateGround
	default:
		// ESC = / ESC > keypad modes and anything else: consumed.
		p.state = stateGround
	}
}

func (p *Parser) escCharset(b byte) {
	var cs charset
	switch b {
	case '0':
		cs = charsetLineDrawing
	default: // 'B' and everything unrecognized map to ASCII
		cs = charsetASCII
	}
	if p.escCharsetSlot == '(' {
		p.g0 = cs
	} else {
		p.g1 = cs
	}
	p.state = stateGround
}

func (p *Parser) escHash(b byte) {
	if b == '8' {
		p.buf.FillAlignment()
	}
	p.state = stateGround
}

func (p *Parser) fullReset() {
	p.buf.Reset()
	p.pal.ResetAll()
	p.g0, p.g1, p.activeG = charsetASCII, charsetASCII, 0
	p.savedG0, p.savedG1, p.savedActive = charsetASCII, charsetASCII, 0
	if p.appCursorKeys {
		p.appCursorKeys = false
		p.sink.ModeChanged(1, false)
	}
	if p.bracketedPaste {
		p.bracketedPaste = false
		p.sink.ModeChanged(2004, false)
	}
	p.mouseMode = 0
	p.mouseSGR = false
}

func (p *Parser) resetSeq() {
	p.nParams = 0
	p.curParam = 0
	p.curHasDig = false
	p.privMarker = 0
	p.nInter = 0
}

func (p *Parser) pushParam() {
	if p.nParams >= maxParams {
		p.curParam = 0
		p.curHasDig = false
		return
	}
	if p.curHasDig {
		p.params[p.nParams] = p.curParam
	} else {
		p.params[p.nParams] = paramDefault
	}
	p.nParams++
	p.curParam = 0
	p.curHasDig = false
}

func (p *Parser) csi(b byte) {
	switch {
	case b == 0x1b:
		p.state = stateEscape
	case b == 0x18 || b == 0x1a: // CAN, SUB abort
		p.state = stateGround
	case b < 0x20:
		// C0 controls execute inside CSI.
		p.execControl(b)
	case b >= '0' && b <= '9':
		p.curHasDig = true
		p.curParam = p.curParam*10 + int(b-'0')
		if p.curParam > 9999 {
			p.curParam = 9999
		}
		p.state = stateCsiParam
	case b == ';' || b == ':':
		// Colon-separated sub-parameters are folded into the list.
		p.pushParam()
		p.state = stateCsiParam
	case b >= 0x3c && b <= 0x3f: // < = > ?
		if p.state == stateCsiEntry {
			p.privMarker = b
		}
		p.state = stateCsiParam
	case b >= 0x20 && b <= 0x2f:
		if p.nInter < len(p.inter) {
			p.inter[p.nInter] = b
			p.nInter++
		}
		p.state = stateCsiIntermediate
	case b >= 0x40 && b <= 0x7e:
		if p.curHasDig || p.nParams > 0 {
			p.pushParam()
		}
		p.dispatchCSI(b)
		p.state = stateGround
	default:
		// DEL and others inside CSI: ignored.
	}
}

// param returns the i-th parameter, treating omitted values and values below
// min as def.
func (p *Parser) param(i, def, min int) int {
	if i >= p.nParams || p.params[i] == paramDefault {
		return def
	}
	v := p.params[i]
	if v < min {
		return def
	}
	return v
}
