package term

import (
	"fmt"
	"strconv"
	"strings"
)

func (p *Parser) oscByte(b byte) {
	if p.strEsc {
		p.strEsc = false
		if b == '\\' { // ST
			p.finishOSC()
			p.state = stateGround
			return
		}
		// ESC followed by anything else aborts the string and starts a new
		// sequence from that byte.
		p.state = stateEscape
		p.step(b)
		return
	}
	switch b {
	case 0x07: // BEL terminator
		p.finishOSC()
		p.state = stateGround
	case 0x1b:
		p.strEsc = true
	case 0x18, 0x1a: // CAN, SUB abort
		p.state = stateGround
	default:
		if len(p.str) < maxStringLen {
			p.str = append(p.str, b)
		} else {
			p.strTruncated = true
		}
	}
}

func (p *Parser) dcsByte(b byte) {
	// DCS/SOS/PM/APC payloads are consumed up to ST and discarded.
	if p.strEsc {
		p.strEsc = false
		if b == '\\' {
			p.state = stateGround
			return
		}
		p.state = stateEscape
		p.step(b)
		return
	}
	switch b {
	case 0x1b:
		p.strEsc = true
	case 0x18, 0x1a:
		p.state = stateGround
	}
}

func (p *Parser) finishOSC() {
	payload := string(p.str)
	p.str = p.str[:0]
	p.strTruncated = false

	code, rest, _ := strings.Cut(payload, ";")
	switch code {
	case "0", "2":
		p.sink.SetTitle(rest)
	case "1":
		// Icon name: ignored.
	case "4":
		p.oscPalette(rest)
	case "104":
		if rest == "" {
			p.pal.ResetAll()
			return
		}
		for _, part := range strings.Split(rest, ";") {
			if i, err := strconv.Atoi(part); err == nil {
				p.pal.ResetEntry(i)
			}
		}
	case "8":
		p.oscHyperlink(rest)
	case "10":
		p.oscSpecialColor(rest, "10", &p.pal.Fg)
	case "11":
		p.oscSpecialColor(rest, "11", &p.pal.Bg)
	case "12":
		p.oscSpecialColor(rest, "12", &p.pal.Cursor)
	case "52":
		// Clipboard access via OSC is not offered to child processes.
	}
}

// oscPalette handles "i;spec" pairs, with "?" as a query.
func (p *Parser) oscPalette(args string) {
	parts := strings.Split(args, ";")
	for i := 0; i+1 < len(parts); i += 2 {
		idx, err := strconv.Atoi(parts[i])
		if err != nil || idx < 0 || idx > 255 {
			continue
		}
		spec := parts[i+1]
		if spec == "?" {
			c := p.pal.Indexed(idx)
			p.sink.Reply([]byte(fmt.Sprintf("\x1b]4;%d;%s\x1b\\", idx, FormatColorSpec(c))))
			continue
		}
		if c, err := ParseColorSpec(spec); err == nil {
			p.pal.Set(idx, c)
		}
	}
}

func (p *Parser) oscSpecialColor(spec, code string, slot *RGB) {
	if spec == "?" {
		p.sink.Reply([]byte(fmt.Sprintf("\x1b]%s;%s\x1b\\", code, FormatColorSpec(*slot))))
		return
	}
	if c, err := ParseColorSpec(spec); err == nil {
		*slot = c
	}
}

// oscHyperlink handles "params;uri"; an empty uri closes the span.
func (p *Parser) oscHyperlink(args string) {
	_, uri, ok := strings.Cut(args, ";")
	if !ok {
		p.buf.EndHyperlink()
		return
	}
	if uri == "" {
		p.buf.EndHyperlink()
		return
	}
	p.buf.StartHyperlink(uri)
}
