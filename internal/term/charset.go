package term

// charset designates a G0/G1 translation table.
type charset int

const (
	charsetASCII charset = iota
	charsetLineDrawing
)

// decLineDrawing maps the DEC Special Graphics set selected with ESC ( 0.
var decLineDrawing = map[rune]rune{
	'`': '◆',
	'a': '▒',
	'f': '°',
	'g': '±',
	'j': '┘',
	'k': '┐',
	'l': '┌',
	'm': '└',
	'n': '┼',
	'o': '⎺',
	'p': '⎻',
	'q': '─',
	'r': '⎼',
	's': '⎽',
	't': '├',
	'u': '┤',
	'v': '┴',
	'w': '┬',
	'x': '│',
	'y': '≤',
	'z': '≥',
	'{': 'π',
	'|': '≠',
	'}': '£',
	'~': '·',
}

func (c charset) translate(r rune) rune {
	if c == charsetLineDrawing {
		if m, ok := decLineDrawing[r]; ok {
			return m
		}
	}
	return r
}
