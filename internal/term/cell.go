package term

// CellFlags holds the text attributes of a single cell.
type CellFlags uint16

const (
	FlagBold CellFlags = 1 << iota
	FlagDim
	FlagItalic
	FlagUnderline
	FlagStrikethrough
	FlagInverse
	FlagHyperlink
	FlagWide     // first cell of a double-width character
	FlagWideCont // continuation cell of a double-width character
)

// ColorMode identifies how a Color is encoded.
type ColorMode uint8

const (
	ColorDefault ColorMode = iota
	ColorIndexed
	ColorRGB
)

// Color is a terminal color. Cells store the tag, not resolved pixels, so a
// palette change recolors scrollback retroactively.
type Color struct {
	Mode    ColorMode
	Index   uint8
	R, G, B uint8
}

// DefaultFg returns the scheme foreground placeholder.
func DefaultFg() Color { return Color{Mode: ColorDefault} }

// DefaultBg returns the scheme background placeholder. Whether a default
// resolves to the scheme foreground or background depends on which cell field
// holds it, so the tag is the same.
func DefaultBg() Color { return Color{Mode: ColorDefault} }

// IndexedColor returns a palette color (0-255).
func IndexedColor(index uint8) Color {
	return Color{Mode: ColorIndexed, Index: index}
}

// RGBColor returns a 24-bit truecolor value.
func RGBColor(r, g, b uint8) Color {
	return Color{Mode: ColorRGB, R: r, G: g, B: b}
}

// Cell is one screen position. Fresh and erased cells hold a space; a zero
// Rune marks the continuation half of a wide character.
type Cell struct {
	Rune      rune
	Fg        Color
	Bg        Color
	Flags     CellFlags
	Hyperlink uint32 // per-buffer hyperlink id, 0 = none
}

// blankCell returns an erased cell carrying the pen's background so that
// ED/EL paint with the active background (BCE).
func blankCell(bg Color) Cell {
	return Cell{Rune: ' ', Fg: DefaultFg(), Bg: bg}
}

// Pen is the current drawing state applied to newly written cells.
type Pen struct {
	Fg        Color
	Bg        Color
	Flags     CellFlags
	Hyperlink uint32
}

func defaultPen() Pen {
	return Pen{Fg: DefaultFg(), Bg: DefaultBg()}
}

// Line is a row of cells. Wrapped marks rows that continue onto the next row
// without a hard newline; selection uses it to join text.
type Line struct {
	Cells   []Cell
	Wrapped bool
}

func newLine(cols int, bg Color) Line {
	cells := make([]Cell, cols)
	for i := range cells {
		cells[i] = blankCell(bg)
	}
	return Line{Cells: cells}
}

// resizeCols truncates or pads the line to cols columns.
func (l *Line) resizeCols(cols int, bg Color) {
	if len(l.Cells) > cols {
		l.Cells = l.Cells[:cols]
		return
	}
	for len(l.Cells) < cols {
		l.Cells = append(l.Cells, blankCell(bg))
	}
}
