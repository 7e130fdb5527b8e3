package term

import (
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is a resolved 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Palette is the mutable color table a buffer's colors resolve against. The
// renderer reads it; OSC 4/10/11/12 mutate it at runtime.
type Palette struct {
	ANSI   [16]RGB
	Fg     RGB
	Bg     RGB
	Cursor RGB

	overrides map[int]RGB // OSC 4 entries beyond the base 16
	scheme16  [16]RGB     // configured values, for OSC 104 reset
}

// NewPalette builds a palette from a configured 16-color scheme.
func NewPalette(ansi [16]RGB, fg, bg, cursor RGB) *Palette {
	return &Palette{ANSI: ansi, Fg: fg, Bg: bg, Cursor: cursor, scheme16: ansi,
		overrides: make(map[int]RGB)}
}

// DefaultPalette returns the stock xterm-ish scheme.
func DefaultPalette() *Palette {
	ansi := [16]RGB{
		{0, 0, 0}, {205, 49, 49}, {13, 188, 121}, {229, 229, 16},
		{36, 114, 200}, {188, 63, 188}, {17, 168, 205}, {229, 229, 229},
		{102, 102, 102}, {241, 76, 76}, {35, 209, 139}, {245, 245, 67},
		{59, 142, 234}, {214, 112, 214}, {41, 184, 219}, {255, 255, 255},
	}
	return NewPalette(ansi, RGB{204, 204, 204}, RGB{12, 12, 12}, RGB{255, 255, 255})
}

// Resolve maps a cell Color to pixels. isFg selects which scheme default the
// ColorDefault tag means.
func (p *Palette) Resolve(c Color, isFg bool) RGB {
	switch c.Mode {
	case ColorRGB:
		return RGB{c.R, c.G, c.B}
	case ColorIndexed:
		return p.Indexed(int(c.Index))
	default:
		if isFg {
			return p.Fg
		}
		return p.Bg
	}
}

// Indexed resolves a 256-color palette slot.
func (p *Palette) Indexed(i int) RGB {
	if o, ok := p.overrides[i]; ok {
		return o
	}
	switch {
	case i < 0:
		return p.Fg
	case i < 16:
		return p.ANSI[i]
	case i < 232:
		// 6x6x6 color cube
		i -= 16
		r := i / 36
		g := (i / 6) % 6
		bl := i % 6
		lv := func(n int) uint8 {
			if n == 0 {
				return 0
			}
			return uint8(55 + 40*n)
		}
		return RGB{lv(r), lv(g), lv(bl)}
	case i < 256:
		v := uint8(8 + 10*(i-232))
		return RGB{v, v, v}
	default:
		return p.Fg
	}
}

// Set installs an OSC 4 palette entry.
func (p *Palette) Set(i int, c RGB) {
	if i < 0 || i > 255 {
		return
	}
	if i < 16 {
		p.ANSI[i] = c
		return
	}
	p.overrides[i] = c
}

// ResetEntry undoes an OSC 4 override (OSC 104).
func (p *Palette) ResetEntry(i int) {
	if i >= 0 && i < 16 {
		p.ANSI[i] = p.scheme16[i]
		return
	}
	delete(p.overrides, i)
}

// ResetAll undoes every override.
func (p *Palette) ResetAll() {
	p.ANSI = p.scheme16
	p.overrides = make(map[int]RGB)
}

// ParseColorSpec accepts the xterm color forms seen in OSC payloads:
// "#RRGGBB", "rgb:R/G/B" with 1-4 hex digits per component, and bare
// "RRGGBB".
func ParseColorSpec(spec string) (RGB, error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "rgb:") {
		parts := strings.Split(spec[4:], "/")
		if len(parts) != 3 {
			return RGB{}, fmt.Errorf("malformed rgb spec %q", spec)
		}
		var out [3]uint8
		for i, part := range parts {
			if len(part) == 0 || len(part) > 4 {
				return RGB{}, fmt.Errorf("malformed rgb component %q", part)
			}
			v, err := strconv.ParseUint(part, 16, 16)
			if err != nil {
				return RGB{}, fmt.Errorf("malformed rgb component %q: %w", part, err)
			}
			// Scale to 8 bits from however many digits were given.
			scale := uint64(1)<<(4*len(part)) - 1
			out[i] = uint8(v * 255 / scale)
		}
		return RGB{out[0], out[1], out[2]}, nil
	}
	if !strings.HasPrefix(spec, "#") && len(spec) == 6 {
		spec = "#" + spec
	}
	c, err := colorful.Hex(spec)
	if err != nil {
		return RGB{}, fmt.Errorf("malformed color spec %q: %w", spec, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

// FormatColorSpec renders a color the way xterm answers queries.
func FormatColorSpec(c RGB) string {
	return fmt.Sprintf("rgb:%02x%02x/%02x%02x/%02x%02x", c.R, c.R, c.G, c.G, c.B, c.B)
}
