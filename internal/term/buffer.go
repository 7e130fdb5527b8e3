package term

import (
	runewidth "github.com/mattn/go-runewidth"
)

// EraseMode selects the region for EraseInDisplay / EraseInLine.
type EraseMode int

const (
	EraseToEnd EraseMode = iota
	EraseToBegin
	EraseAll
	EraseScrollback
)

// Cursor is a grid position. Column and row are 0-based.
type Cursor struct {
	X int
	Y int
}

type savedCursor struct {
	cur      Cursor
	pen      Pen
	origin   bool
	autoWrap bool
	valid    bool
}

// ScreenBuffer is the grid + scrollback data model for one terminal.
// It is not safe for concurrent use; the owning Terminal serializes access.
type ScreenBuffer struct {
	cols int
	rows int

	lines    []Line // active screen (main or alternate)
	altLines []Line // inactive alternate screen, preserved across toggles
	sb       *lineRing
	sbMax    int

	cursor      Cursor
	pen         Pen
	wrapPending bool

	top    int // scroll region, 0-based inclusive
	bottom int

	autoWrap      bool
	origin        bool
	cursorVisible bool
	altActive     bool
	newlineMode   bool // LNM: LF implies CR

	tabStops []bool

	saved     savedCursor // DECSC state for the active screen
	altSaved  savedCursor
	mainSaved savedCursor // cursor stashed by DECSET 1049

	viewportOffset int

	hyperlinks    map[uint32]string
	hyperlinkIDs  map[string]uint32
	nextHyperlink uint32
}

// NewScreenBuffer creates a buffer with the given grid size and scrollback
// line limit.
func NewScreenBuffer(cols, rows, scrollbackMax int) *ScreenBuffer {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	b := &ScreenBuffer{
		cols:          cols,
		rows:          rows,
		sb:            newLineRing(scrollbackMax),
		sbMax:         scrollbackMax,
		pen:           defaultPen(),
		bottom:        rows - 1,
		autoWrap:      true,
		cursorVisible: true,
		hyperlinks:    make(map[uint32]string),
		hyperlinkIDs:  make(map[string]uint32),
	}
	b.lines = b.freshScreen()
	b.altLines = b.freshScreen()
	b.tabStops = defaultTabStops(cols)
	return b
}

func defaultTabStops(cols int) []bool {
	stops := make([]bool, cols)
	for i := 0; i < cols; i += 8 {
		stops[i] = true
	}
	return stops
}

func (b *ScreenBuffer) freshScreen() []Line {
	lines := make([]Line, b.rows)
	for i := range lines {
		lines[i] = newLine(b.cols, DefaultBg())
	}
	return lines
}

// Size returns the live grid dimensions.
func (b *ScreenBuffer) Size() (cols, rows int) { return b.cols, b.rows }

// CursorPos returns the normalized cursor position.
func (b *ScreenBuffer) CursorPos() Cursor { return b.cursor }

// CursorVisible reports the DECTCEM state.
func (b *ScreenBuffer) CursorVisible() bool { return b.cursorVisible }

// AltActive reports whether the alternate screen is in use.
func (b *ScreenBuffer) AltActive() bool { return b.altActive }

// AutoWrap reports the DECAWM state.
func (b *ScreenBuffer) AutoWrap() bool { return b.autoWrap }

// ScrollbackSize returns the number of retained scrollback rows.
func (b *ScreenBuffer) ScrollbackSize() int { return b.sb.Len() }

// ViewportOffset returns how many rows above the live view the viewport sits;
// 0 means pinned to the bottom.
func (b *ScreenBuffer) ViewportOffset() int { return b.viewportOffset }

// Pen returns the current drawing state.
func (b *ScreenBuffer) Pen() Pen { return b.pen }

// SetPen replaces the current drawing state.
func (b *ScreenBuffer) SetPen(p Pen) { b.pen = p }

// Cell returns the cell at live-view coordinates.
func (b *ScreenBuffer) Cell(col, row int) Cell {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return blankCell(DefaultBg())
	}
	return b.lines[row].Cells[col]
}

// AtAbsolute addresses the combined scrollback + live space.
// absRow 0 is the oldest scrollback row; absRow >= ScrollbackSize() is live.
func (b *ScreenBuffer) AtAbsolute(col, absRow int) Cell {
	if col < 0 || absRow < 0 {
		return blankCell(DefaultBg())
	}
	if absRow < b.sb.Len() {
		l := b.sb.At(absRow)
		if col < len(l.Cells) {
			return l.Cells[col]
		}
		return blankCell(DefaultBg())
	}
	return b.Cell(col, absRow-b.sb.Len())
}

// LineWrapped reports the wrapped flag for an absolute row.
func (b *ScreenBuffer) LineWrapped(absRow int) bool {
	if absRow < 0 {
		return false
	}
	if absRow < b.sb.Len() {
		return b.sb.At(absRow).Wrapped
	}
	row := absRow - b.sb.Len()
	if row >= b.rows {
		return false
	}
	return b.lines[row].Wrapped
}

// Put writes one codepoint at the cursor with the current pen and advances.
// Wide runes occupy two cells; zero-width runes are dropped.
func (b *ScreenBuffer) Put(r rune) {
	w := runewidth.RuneWidth(r)
	if w <= 0 {
		return
	}
	if b.wrapPending {
		if b.autoWrap {
			b.lines[b.cursor.Y].Wrapped = true
			b.cursor.X = 0
			b.lineFeedNoCR()
		}
		b.wrapPending = false
	}
	if w == 2 && b.cursor.X == b.cols-1 {
		// A wide rune cannot straddle the margin.
		if b.autoWrap {
			b.lines[b.cursor.Y].Wrapped = true
			b.cursor.X = 0
			b.lineFeedNoCR()
		} else {
			b.cursor.X = b.cols - 2
			if b.cursor.X < 0 {
				b.cursor.X = 0
			}
		}
	}

	cell := Cell{Rune: r, Fg: b.pen.Fg, Bg: b.pen.Bg, Flags: b.pen.Flags, Hyperlink: b.pen.Hyperlink}
	if b.pen.Hyperlink != 0 {
		cell.Flags |= FlagHyperlink
	}
	row := b.cursor.Y
	if w == 2 {
		cell.Flags |= FlagWide
		b.setCell(row, b.cursor.X, cell)
		if b.cursor.X+1 < b.cols {
			cont := cell
			cont.Rune = 0
			cont.Flags = (cont.Flags &^ FlagWide) | FlagWideCont
			b.setCell(row, b.cursor.X+1, cont)
		}
		b.advance(2)
		return
	}
	b.setCell(row, b.cursor.X, cell)
	b.advance(1)
}

func (b *ScreenBuffer) setCell(row, col int, c Cell) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return
	}
	// Overwriting half of a wide pair orphans the other half.
	old := b.lines[row].Cells[col]
	if old.Flags&FlagWide != 0 && col+1 < b.cols {
		n := &b.lines[row].Cells[col+1]
		if n.Flags&FlagWideCont != 0 {
			*n = blankCell(b.pen.Bg)
		}
	}
	if old.Flags&FlagWideCont != 0 && col > 0 {
		p := &b.lines[row].Cells[col-1]
		if p.Flags&FlagWide != 0 {
			*p = blankCell(b.pen.Bg)
		}
	}
	b.lines[row].Cells[col] = c
}

func (b *ScreenBuffer) advance(n int) {
	b.cursor.X += n
	if b.cursor.X >= b.cols {
		if b.autoWrap {
			b.cursor.X = b.cols - 1
			b.wrapPending = true
		} else {
			b.cursor.X = b.cols - 1
		}
	}
}

// LineFeed advances the row, scrolling the region when the cursor sits on its
// bottom margin. In LNM mode it also performs a carriage return.
func (b *ScreenBuffer) LineFeed() {
	b.lineFeedNoCR()
	if b.newlineMode {
		b.cursor.X = 0
	}
}

func (b *ScreenBuffer) lineFeedNoCR() {
	b.wrapPending = false
	switch {
	case b.cursor.Y == b.bottom:
		b.scrollRegionUp(1)
	case b.cursor.Y < b.rows-1:
		b.cursor.Y++
	}
}

// Index moves down one row without touching the column (ESC D).
func (b *ScreenBuffer) Index() {
	b.lineFeedNoCR()
}

// ReverseIndex moves up one row, scrolling the region down at the top margin.
func (b *ScreenBuffer) ReverseIndex() {
	b.wrapPending = false
	switch {
	case b.cursor.Y == b.top:
		b.scrollRegionDown(1)
	case b.cursor.Y > 0:
		b.cursor.Y--
	}
}

// CarriageReturn sets the column to 0.
func (b *ScreenBuffer) CarriageReturn() {
	b.cursor.X = 0
	b.wrapPending = false
}

// Backspace moves left one column with a floor at 0; it does not erase.
func (b *ScreenBuffer) Backspace() {
	if b.wrapPending {
		b.wrapPending = false
		return
	}
	if b.cursor.X > 0 {
		b.cursor.X--
	}
}

// Tab advances to the next tab stop, clamping at the last column.
func (b *ScreenBuffer) Tab() {
	b.wrapPending = false
	for x := b.cursor.X + 1; x < b.cols; x++ {
		if b.tabStops[x] {
			b.cursor.X = x
			return
		}
	}
	b.cursor.X = b.cols - 1
}

// SetTabStop sets a stop at the cursor column (HTS).
func (b *ScreenBuffer) SetTabStop() {
	if b.cursor.X < len(b.tabStops) {
		b.tabStops[b.cursor.X] = true
	}
}

// ClearTabStop clears the stop at the cursor (mode 0) or all stops (mode 3).
func (b *ScreenBuffer) ClearTabStop(mode int) {
	switch mode {
	case 0:
		if b.cursor.X < len(b.tabStops) {
			b.tabStops[b.cursor.X] = false
		}
	case 3:
		for i := range b.tabStops {
			b.tabStops[i] = false
		}
	}
}

// MoveTo places the cursor at (col, row), honoring origin mode and clamping
// to the grid.
func (b *ScreenBuffer) MoveTo(col, row int) {
	b.wrapPending = false
	if b.origin {
		row += b.top
		if row > b.bottom {
			row = b.bottom
		}
		if row < b.top {
			row = b.top
		}
	}
	b.cursor.X = clamp(col, 0, b.cols-1)
	b.cursor.Y = clamp(row, 0, b.rows-1)
}

// MoveRel moves the cursor by (dx, dy), clamping to the scroll region when the
// cursor starts inside it.
func (b *ScreenBuffer) MoveRel(dx, dy int) {
	b.wrapPending = false
	x := clamp(b.cursor.X+dx, 0, b.cols-1)
	y := b.cursor.Y + dy
	loY, hiY := 0, b.rows-1
	if b.cursor.Y >= b.top && b.cursor.Y <= b.bottom {
		loY, hiY = b.top, b.bottom
	}
	b.cursor.X = x
	b.cursor.Y = clamp(y, loY, hiY)
}

// EraseInDisplay clears a screen region; EraseScrollback drops retained
// scrollback only.
func (b *ScreenBuffer) EraseInDisplay(mode EraseMode) {
	b.wrapPending = false
	switch mode {
	case EraseToEnd:
		b.eraseLineSpan(b.cursor.Y, b.cursor.X, b.cols)
		for y := b.cursor.Y + 1; y < b.rows; y++ {
			b.eraseLineSpan(y, 0, b.cols)
		}
	case EraseToBegin:
		for y := 0; y < b.cursor.Y; y++ {
			b.eraseLineSpan(y, 0, b.cols)
		}
		b.eraseLineSpan(b.cursor.Y, 0, b.cursor.X+1)
	case EraseAll:
		for y := 0; y < b.rows; y++ {
			b.eraseLineSpan(y, 0, b.cols)
		}
	case EraseScrollback:
		b.sb.Clear()
		b.viewportOffset = 0
	}
}

// EraseInLine clears part of the cursor row.
func (b *ScreenBuffer) EraseInLine(mode EraseMode) {
	b.wrapPending = false
	switch mode {
	case EraseToEnd:
		b.eraseLineSpan(b.cursor.Y, b.cursor.X, b.cols)
	case EraseToBegin:
		b.eraseLineSpan(b.cursor.Y, 0, b.cursor.X+1)
	case EraseAll:
		b.eraseLineSpan(b.cursor.Y, 0, b.cols)
	}
}

func (b *ScreenBuffer) eraseLineSpan(row, from, to int) {
	if row < 0 || row >= b.rows {
		return
	}
	l := &b.lines[row]
	from = clamp(from, 0, b.cols)
	to = clamp(to, 0, b.cols)
	for x := from; x < to; x++ {
		l.Cells[x] = blankCell(b.pen.Bg)
	}
	if from == 0 && to == b.cols {
		l.Wrapped = false
	}
}

// EraseChars blanks n cells from the cursor without moving anything.
func (b *ScreenBuffer) EraseChars(n int) {
	if n < 1 {
		n = 1
	}
	b.eraseLineSpan(b.cursor.Y, b.cursor.X, b.cursor.X+n)
}

// InsertChars shifts the cursor row right by n, dropping cells off the end.
func (b *ScreenBuffer) InsertChars(n int) {
	if n < 1 {
		n = 1
	}
	if n > b.cols-b.cursor.X {
		n = b.cols - b.cursor.X
	}
	row := b.lines[b.cursor.Y].Cells
	copy(row[b.cursor.X+n:], row[b.cursor.X:])
	for x := b.cursor.X; x < b.cursor.X+n; x++ {
		row[x] = blankCell(b.pen.Bg)
	}
}

// DeleteChars shifts the remainder of the cursor row left by n.
func (b *ScreenBuffer) DeleteChars(n int) {
	if n < 1 {
		n = 1
	}
	if n > b.cols-b.cursor.X {
		n = b.cols - b.cursor.X
	}
	row := b.lines[b.cursor.Y].Cells
	copy(row[b.cursor.X:], row[b.cursor.X+n:])
	for x := b.cols - n; x < b.cols; x++ {
		row[x] = blankCell(b.pen.Bg)
	}
}

// InsertLines inserts n blank lines at the cursor, pushing lines toward the
// bottom margin. No-op outside the scroll region.
func (b *ScreenBuffer) InsertLines(n int) {
	if b.cursor.Y < b.top || b.cursor.Y > b.bottom {
		return
	}
	if n < 1 {
		n = 1
	}
	if n > b.bottom-b.cursor.Y+1 {
		n = b.bottom - b.cursor.Y + 1
	}
	for y := b.bottom; y >= b.cursor.Y+n; y-- {
		b.lines[y] = b.lines[y-n]
	}
	for y := b.cursor.Y; y < b.cursor.Y+n; y++ {
		b.lines[y] = newLine(b.cols, b.pen.Bg)
	}
	b.cursor.X = 0
}

// DeleteLines removes n lines at the cursor, pulling lines up from the bottom
// margin. No-op outside the scroll region.
func (b *ScreenBuffer) DeleteLines(n int) {
	if b.cursor.Y < b.top || b.cursor.Y > b.bottom {
		return
	}
	if n < 1 {
		n = 1
	}
	if n > b.bottom-b.cursor.Y+1 {
		n = b.bottom - b.cursor.Y + 1
	}
	for y := b.cursor.Y; y+n <= b.bottom; y++ {
		b.lines[y] = b.lines[y+n]
	}
	for y := b.bottom - n + 1; y <= b.bottom; y++ {
		b.lines[y] = newLine(b.cols, b.pen.Bg)
	}
	b.cursor.X = 0
}

// ScrollUp scrolls the region up by n rows (CSI S).
func (b *ScreenBuffer) ScrollUp(n int) {
	if n < 1 {
		n = 1
	}
	b.scrollRegionUp(n)
}

// ScrollDown scrolls the region down by n rows (CSI T).
func (b *ScreenBuffer) ScrollDown(n int) {
	if n < 1 {
		n = 1
	}
	b.scrollRegionDown(n)
}

// scrollRegionUp moves region content up; the top row enters scrollback only
// for a full-height region on the main screen.
func (b *ScreenBuffer) scrollRegionUp(n int) {
	if n > b.bottom-b.top+1 {
		n = b.bottom - b.top + 1
	}
	capture := !b.altActive && b.top == 0 && b.bottom == b.rows-1
	for i := 0; i < n; i++ {
		if capture {
			b.pushScrollback(b.lines[b.top])
		}
		for y := b.top; y < b.bottom; y++ {
			b.lines[y] = b.lines[y+1]
		}
		b.lines[b.bottom] = newLine(b.cols, b.pen.Bg)
	}
}

func (b *ScreenBuffer) pushScrollback(l Line) {
	b.sb.Push(l)
	if b.viewportOffset > 0 && b.viewportOffset < b.sb.Len() {
		// Keep the scrolled-back viewport anchored to its content.
		b.viewportOffset++
	}
}

func (b *ScreenBuffer) scrollRegionDown(n int) {
	if n > b.bottom-b.top+1 {
		n = b.bottom - b.top + 1
	}
	for i := 0; i < n; i++ {
		for y := b.bottom; y > b.top; y-- {
			b.lines[y] = b.lines[y-1]
		}
		b.lines[b.top] = newLine(b.cols, b.pen.Bg)
	}
}

// SetScrollRegion installs DECSTBM margins; top and bottom are 0-based
// inclusive. Invalid margins reset to full height. The cursor homes.
func (b *ScreenBuffer) SetScrollRegion(top, bottom int) {
	if top < 0 || bottom >= b.rows || top >= bottom {
		top, bottom = 0, b.rows-1
	}
	b.top, b.bottom = top, bottom
	b.MoveTo(0, 0)
}

// ScrollRegion returns the current margins, 0-based inclusive.
func (b *ScreenBuffer) ScrollRegion() (top, bottom int) { return b.top, b.bottom }

// SetAutoWrap toggles DECAWM.
func (b *ScreenBuffer) SetAutoWrap(on bool) {
	b.autoWrap = on
	if !on {
		b.wrapPending = false
	}
}

// SetOrigin toggles DECOM; the cursor homes per the standard.
func (b *ScreenBuffer) SetOrigin(on bool) {
	b.origin = on
	b.MoveTo(0, 0)
}

// SetCursorVisible toggles DECTCEM.
func (b *ScreenBuffer) SetCursorVisible(on bool) { b.cursorVisible = on }

// SetNewlineMode toggles LNM.
func (b *ScreenBuffer) SetNewlineMode(on bool) { b.newlineMode = on }

// SwitchAlternate toggles the alternate screen. With saveCursor (DECSET 1049)
// the cursor is stashed on entry, the alt screen is cleared, and the cursor is
// restored on exit. Without it (47/1047) the alt contents persist.
func (b *ScreenBuffer) SwitchAlternate(enable, saveCursor bool) {
	if enable == b.altActive {
		return
	}
	b.wrapPending = false
	if enable {
		if saveCursor {
			b.mainSaved = savedCursor{cur: b.cursor, pen: b.pen, origin: b.origin, autoWrap: b.autoWrap, valid: true}
		}
		b.lines, b.altLines = b.altLines, b.lines
		b.altActive = true
		if saveCursor {
			for i := range b.lines {
				b.lines[i] = newLine(b.cols, DefaultBg())
			}
			b.cursor = Cursor{}
		}
		b.viewportOffset = 0
	} else {
		b.lines, b.altLines = b.altLines, b.lines
		b.altActive = false
		if saveCursor && b.mainSaved.valid {
			b.cursor = b.mainSaved.cur
			b.pen = b.mainSaved.pen
			b.origin = b.mainSaved.origin
			b.autoWrap = b.mainSaved.autoWrap
			b.mainSaved.valid = false
		}
	}
	b.clampCursor()
}

// SaveCursor records cursor position, pen and modes (DECSC).
func (b *ScreenBuffer) SaveCursor() {
	s := savedCursor{cur: b.cursor, pen: b.pen, origin: b.origin, autoWrap: b.autoWrap, valid: true}
	if b.altActive {
		b.altSaved = s
	} else {
		b.saved = s
	}
}

// RestoreCursor reinstates the DECSC state; without one, homes the cursor.
func (b *ScreenBuffer) RestoreCursor() {
	s := b.saved
	if b.altActive {
		s = b.altSaved
	}
	if !s.valid {
		b.MoveTo(0, 0)
		b.pen = defaultPen()
		return
	}
	b.cursor = s.cur
	b.pen = s.pen
	b.origin = s.origin
	b.autoWrap = s.autoWrap
	b.clampCursor()
	b.wrapPending = false
}

// FillAlignment paints the whole screen with 'E' (DECALN) and resets margins.
func (b *ScreenBuffer) FillAlignment() {
	b.top, b.bottom = 0, b.rows-1
	for y := 0; y < b.rows; y++ {
		for x := 0; x < b.cols; x++ {
			b.lines[y].Cells[x] = Cell{Rune: 'E', Fg: DefaultFg(), Bg: DefaultBg()}
		}
		b.lines[y].Wrapped = false
	}
	b.MoveTo(0, 0)
}

// Reset restores power-on state but keeps the grid size.
func (b *ScreenBuffer) Reset() {
	b.lines = b.freshScreen()
	b.altLines = b.freshScreen()
	b.sb.Clear()
	b.cursor = Cursor{}
	b.pen = defaultPen()
	b.wrapPending = false
	b.top, b.bottom = 0, b.rows-1
	b.autoWrap = true
	b.origin = false
	b.cursorVisible = true
	b.altActive = false
	b.newlineMode = false
	b.tabStops = defaultTabStops(b.cols)
	b.saved = savedCursor{}
	b.altSaved = savedCursor{}
	b.mainSaved = savedCursor{}
	b.viewportOffset = 0
	b.hyperlinks = make(map[uint32]string)
	b.hyperlinkIDs = make(map[string]uint32)
	b.nextHyperlink = 0
	b.pen.Hyperlink = 0
}

// Resize changes the grid. Columns truncate or pad in place; rows grow by
// pulling content back out of scrollback and shrink by pushing the topmost
// rows in, keeping the cursor fixed relative to the bottom of the view.
func (b *ScreenBuffer) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols == b.cols && rows == b.rows {
		return
	}

	for i := range b.lines {
		b.lines[i].resizeCols(cols, DefaultBg())
	}
	for i := range b.altLines {
		b.altLines[i].resizeCols(cols, DefaultBg())
	}
	if cols != b.cols {
		old := b.tabStops
		b.tabStops = defaultTabStops(cols)
		copy(b.tabStops, old)
	}
	b.cols = cols

	if rows > b.rows {
		grow := rows - b.rows
		for i := 0; i < grow; i++ {
			if !b.altActive {
				if l, ok := b.sb.PopNewest(); ok {
					l.resizeCols(cols, DefaultBg())
					b.lines = append([]Line{l}, b.lines...)
					b.cursor.Y++
					continue
				}
			}
			b.lines = append(b.lines, newLine(cols, DefaultBg()))
		}
		for len(b.altLines) < rows {
			b.altLines = append(b.altLines, newLine(cols, DefaultBg()))
		}
	} else if rows < b.rows {
		shrink := b.rows - rows
		// Trim empty rows below the cursor first; push the rest into
		// scrollback from the top.
		for shrink > 0 && len(b.lines)-1 > b.cursor.Y && b.rowBlank(len(b.lines)-1) {
			b.lines = b.lines[:len(b.lines)-1]
			shrink--
		}
		for shrink > 0 {
			if !b.altActive {
				b.pushScrollback(b.lines[0])
			}
			b.lines = b.lines[1:]
			b.cursor.Y--
			shrink--
		}
		b.altLines = b.altLines[:rows]
	}
	b.rows = rows
	b.bottom = rows - 1
	b.top = 0
	b.clampCursor()
	if b.viewportOffset > b.sb.Len() {
		b.viewportOffset = b.sb.Len()
	}
}

func (b *ScreenBuffer) rowBlank(row int) bool {
	for _, c := range b.lines[row].Cells {
		if c.Rune != ' ' && c.Rune != 0 {
			return false
		}
	}
	return true
}

func (b *ScreenBuffer) clampCursor() {
	b.cursor.X = clamp(b.cursor.X, 0, b.cols-1)
	b.cursor.Y = clamp(b.cursor.Y, 0, b.rows-1)
}

// ScrollViewport adjusts the scrollback viewport; positive n scrolls toward
// older content. The offset clamps to [0, ScrollbackSize].
func (b *ScreenBuffer) ScrollViewport(n int) {
	if b.altActive {
		return
	}
	b.viewportOffset = clamp(b.viewportOffset+n, 0, b.sb.Len())
}

// ScrollViewportToBottom pins the view back to live output.
func (b *ScreenBuffer) ScrollViewportToBottom() { b.viewportOffset = 0 }

// ScrollbarMetrics returns thumb geometry in row units over the absolute row
// space, plus whether a scrollbar is warranted at all.
func (b *ScreenBuffer) ScrollbarMetrics() (thumbStart, thumbLen int, visible bool) {
	total := b.sb.Len() + b.rows
	if b.sb.Len() == 0 || b.altActive {
		return 0, total, false
	}
	thumbLen = b.rows
	thumbStart = b.sb.Len() - b.viewportOffset
	return thumbStart, thumbLen, true
}

// StartHyperlink begins an OSC 8 span and returns its id; equal URIs share an
// id for the buffer's lifetime.
func (b *ScreenBuffer) StartHyperlink(uri string) uint32 {
	if uri == "" {
		b.EndHyperlink()
		return 0
	}
	id, ok := b.hyperlinkIDs[uri]
	if !ok {
		b.nextHyperlink++
		id = b.nextHyperlink
		b.hyperlinkIDs[uri] = id
		b.hyperlinks[id] = uri
	}
	b.pen.Hyperlink = id
	return id
}

// EndHyperlink closes the active OSC 8 span.
func (b *ScreenBuffer) EndHyperlink() { b.pen.Hyperlink = 0 }

// HyperlinkURI resolves a cell's hyperlink id.
func (b *ScreenBuffer) HyperlinkURI(id uint32) string { return b.hyperlinks[id] }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
