package term

import (
	"fmt"
)

func (p *Parser) dispatchCSI(final byte) {
	if p.nInter > 0 {
		// DECSCUSR (SP q) and friends: recognized but not acted on.
		return
	}
	switch final {
	case 'A':
		p.buf.MoveRel(0, -p.param(0, 1, 1))
	case 'B':
		p.buf.MoveRel(0, p.param(0, 1, 1))
	case 'C':
		p.buf.MoveRel(p.param(0, 1, 1), 0)
	case 'D':
		p.buf.MoveRel(-p.param(0, 1, 1), 0)
	case 'E':
		p.buf.MoveRel(0, p.param(0, 1, 1))
		p.buf.CarriageReturn()
	case 'F':
		p.buf.MoveRel(0, -p.param(0, 1, 1))
		p.buf.CarriageReturn()
	case 'G', '`':
		p.buf.MoveTo(p.param(0, 1, 1)-1, p.buf.CursorPos().Y)
	case 'H', 'f':
		p.buf.MoveTo(p.param(1, 1, 1)-1, p.param(0, 1, 1)-1)
	case 'd':
		p.buf.MoveTo(p.buf.CursorPos().X, p.param(0, 1, 1)-1)
	case 's':
		p.buf.SaveCursor()
	case 'u':
		p.buf.RestoreCursor()
	case 'J':
		if mode, ok := eraseMode(p.param(0, 0, 0)); ok {
			p.buf.EraseInDisplay(mode)
		}
	case 'K':
		if mode, ok := eraseMode(p.param(0, 0, 0)); ok && mode != EraseScrollback {
			p.buf.EraseInLine(mode)
		}
	case 'S':
		p.buf.ScrollUp(p.param(0, 1, 1))
	case 'T':
		p.buf.ScrollDown(p.param(0, 1, 1))
	case 'L':
		p.buf.InsertLines(p.param(0, 1, 1))
	case 'M':
		p.buf.DeleteLines(p.param(0, 1, 1))
	case '@':
		p.buf.InsertChars(p.param(0, 1, 1))
	case 'P':
		p.buf.DeleteChars(p.param(0, 1, 1))
	case 'X':
		p.buf.EraseChars(p.param(0, 1, 1))
	case 'g':
		p.buf.ClearTabStop(p.param(0, 0, 0))
	case 'h':
		p.setModes(true)
	case 'l':
		p.setModes(false)
	case 'm':
		p.selectGraphicRendition()
	case 'c':
		p.deviceAttributes()
	case 'n':
		p.deviceStatus()
	case 'r':
		if p.privMarker == 0 {
			top := p.param(0, 1, 1) - 1
			bottom := p.param(1, p.buf.rows, 1) - 1
			p.buf.SetScrollRegion(top, bottom)
		}
	case 't':
		// Window manipulation: ignored.
	}
}

func eraseMode(n int) (EraseMode, bool) {
	switch n {
	case 0:
		return EraseToEnd, true
	case 1:
		return EraseToBegin, true
	case 2:
		return EraseAll, true
	case 3:
		return EraseScrollback, true
	}
	return 0, false
}

func (p *Parser) setModes(on bool) {
	for i := 0; i < p.nParams; i++ {
		mode := p.params[i]
		if mode == paramDefault {
			continue
		}
		if p.privMarker == '?' {
			p.setPrivateMode(mode, on)
		} else {
			p.setAnsiMode(mode, on)
		}
	}
}

func (p *Parser) setAnsiMode(mode int, on bool) {
	switch mode {
	case 20: // LNM
		p.buf.SetNewlineMode(on)
	}
}

func (p *Parser) setPrivateMode(mode int, on bool) {
	switch mode {
	case 1: // DECCKM
		p.appCursorKeys = on
		p.sink.ModeChanged(mode, on)
	case 6: // DECOM
		p.buf.SetOrigin(on)
	case 7: // DECAWM
		p.buf.SetAutoWrap(on)
	case 25: // DECTCEM
		p.buf.SetCursorVisible(on)
	case 47, 1047:
		p.buf.SwitchAlternate(on, false)
	case 1049:
		p.buf.SwitchAlternate(on, true)
	case 1000, 1002, 1003:
		if on {
			p.mouseMode = mode
		} else if p.mouseMode == mode {
			p.mouseMode = 0
		}
		p.sink.ModeChanged(mode, on)
	case 1006:
		p.mouseSGR = on
		p.sink.ModeChanged(mode, on)
	case 2004:
		p.bracketedPaste = on
		p.sink.ModeChanged(mode, on)
	}
}

func (p *Parser) selectGraphicRendition() {
	pen := p.buf.Pen()
	if p.nParams == 0 {
		pen = resetAttrs(pen)
		p.buf.SetPen(pen)
		return
	}
	for i := 0; i < p.nParams; i++ {
		n := p.params[i]
		if n == paramDefault {
			n = 0
		}
		switch {
		case n == 0:
			pen = resetAttrs(pen)
		case n == 1:
			pen.Flags |= FlagBold
		case n == 2:
			pen.Flags |= FlagDim
		case n == 3:
			pen.Flags |= FlagItalic
		case n == 4:
			pen.Flags |= FlagUnderline
		case n == 7:
			pen.Flags |= FlagInverse
		case n == 9:
			pen.Flags |= FlagStrikethrough
		case n == 22:
			pen.Flags &^= FlagBold | FlagDim
		case n == 23:
			pen.Flags &^= FlagItalic
		case n == 24:
			pen.Flags &^= FlagUnderline
		case n == 27:
			pen.Flags &^= FlagInverse
		case n == 29:
			pen.Flags &^= FlagStrikethrough
		case n >= 30 && n <= 37:
			pen.Fg = IndexedColor(uint8(n - 30))
		case n == 38:
			if c, used, ok := p.extendedColor(i); ok {
				pen.Fg = c
				i += used
			} else {
				i = p.nParams
			}
		case n == 39:
			pen.Fg = DefaultFg()
		case n >= 40 && n <= 47:
			pen.Bg = IndexedColor(uint8(n - 40))
		case n == 48:
			if c, used, ok := p.extendedColor(i); ok {
				pen.Bg = c
				i += used
			} else {
				i = p.nParams
			}
		case n == 49:
			pen.Bg = DefaultBg()
		case n >= 90 && n <= 97:
			pen.Fg = IndexedColor(uint8(n - 90 + 8))
		case n >= 100 && n <= 107:
			pen.Bg = IndexedColor(uint8(n - 100 + 8))
		}
	}
	p.buf.SetPen(pen)
}

func resetAttrs(pen Pen) Pen {
	link := pen.Hyperlink
	pen = defaultPen()
	pen.Hyperlink = link
	return pen
}

// extendedColor decodes the 38/48 forms "…;5;n" and "…;2;r;g;b" starting at
// the parameter index holding 38/48. Returns the parsed color and how many
// parameters it consumed beyond that index.
func (p *Parser) extendedColor(i int) (Color, int, bool) {
	if i+1 >= p.nParams {
		return Color{}, 0, false
	}
	switch p.params[i+1] {
	case 5:
		if i+2 >= p.nParams {
			return Color{}, 0, false
		}
		n := p.params[i+2]
		if n < 0 || n > 255 {
			return Color{}, 0, false
		}
		return IndexedColor(uint8(n)), 2, true
	case 2:
		if i+4 >= p.nParams {
			return Color{}, 0, false
		}
		r, g, b := p.params[i+2], p.params[i+3], p.params[i+4]
		if r < 0 {
			r = 0
		}
		if g < 0 {
			g = 0
		}
		if b < 0 {
			b = 0
		}
		if r > 255 || g > 255 || b > 255 {
			return Color{}, 0, false
		}
		return RGBColor(uint8(r), uint8(g), uint8(b)), 4, true
	}
	return Color{}, 0, false
}

func (p *Parser) deviceAttributes() {
	switch p.privMarker {
	case 0:
		if p.param(0, 0, 0) == 0 {
			p.sink.Reply([]byte("\x1b[?6c"))
		}
	case '>':
		p.sink.Reply([]byte("\x1b[>0;0;0c"))
	}
}

func (p *Parser) deviceStatus() {
	switch p.param(0, 0, 0) {
	case 5:
		p.sink.Reply([]byte("\x1b[0n"))
	case 6:
		cur := p.buf.CursorPos()
		row := cur.Y + 1
		if p.buf.origin {
			row = cur.Y - p.buf.top + 1
		}
		p.sink.Reply([]byte(fmt.Sprintf("\x1b[%d;%dR", row, cur.X+1)))
	}
}
