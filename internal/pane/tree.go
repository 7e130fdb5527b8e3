// Package pane models the recursive split layout inside a tab and the tab
// list itself. The tree owns its terminals; leaves are addressed by stable
// ids rather than pointers.
package pane

import (
	"github.com/google/uuid"

	"github.com/voidwarestudios/velocitty/internal/term"
)

// Direction of a split node.
type Direction int

const (
	Horizontal Direction = iota // children side by side
	Vertical                    // children stacked
)

// Minimum useful terminal size; splits that cannot honor it are rejected.
const (
	minCols = 4
	minRows = 2
)

// Rect is a pixel rectangle assigned by layout.
type Rect struct {
	X, Y, W, H float64
}

// Pane is a leaf of the layout tree and owns one Terminal.
type Pane struct {
	ID   string
	Term *term.Terminal

	rect Rect
	cols int
	rows int
}

// Rect returns the pane's pixel rectangle from the last layout pass.
func (p *Pane) Rect() Rect { return p.rect }

// Grid returns the pane's cell dimensions from the last layout pass.
func (p *Pane) Grid() (cols, rows int) { return p.cols, p.rows }

// node is either a leaf or a split; exactly one of pane/split is set.
type node struct {
	pane  *Pane
	split *splitNode
}

type splitNode struct {
	dir   Direction
	ratio float64
	left  *node
	right *node
}

// Tree is a binary split layout. A fresh tree has a single leaf.
type Tree struct {
	root *node
}

// NewTree creates a tree around an initial terminal.
func NewTree(t *term.Terminal) (*Tree, *Pane) {
	p := &Pane{ID: uuid.New().String(), Term: t}
	return &Tree{root: &node{pane: p}}, p
}

// Panes returns all leaves in layout order.
func (tr *Tree) Panes() []*Pane {
	var out []*Pane
	walk(tr.root, func(p *Pane) { out = append(out, p) })
	return out
}

func walk(n *node, fn func(*Pane)) {
	if n == nil {
		return
	}
	if n.pane != nil {
		fn(n.pane)
		return
	}
	walk(n.split.left, fn)
	walk(n.split.right, fn)
}

// Find locates a pane by id.
func (tr *Tree) Find(id string) *Pane {
	for _, p := range tr.Panes() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Split replaces the pane with a split node holding the pane and a new leaf
// for t, at ratio 0.5. It fails (returns nil) when either child would fall
// below the minimum grid.
func (tr *Tree) Split(id string, dir Direction, t *term.Terminal) *Pane {
	n := tr.findNode(tr.root, id)
	if n == nil {
		return nil
	}
	old := n.pane
	switch dir {
	case Horizontal:
		if old.cols/2 < minCols && old.cols != 0 {
			return nil
		}
	case Vertical:
		if old.rows/2 < minRows && old.rows != 0 {
			return nil
		}
	}
	fresh := &Pane{ID: uuid.New().String(), Term: t}
	n.pane = nil
	n.split = &splitNode{
		dir:   dir,
		ratio: 0.5,
		left:  &node{pane: old},
		right: &node{pane: fresh},
	}
	return fresh
}

// Close removes a leaf; its parent collapses to the surviving sibling. The
// removed pane's terminal is closed. Returns false when the pane is the last
// one (the caller should close the tab instead).
func (tr *Tree) Close(id string) bool {
	if tr.root.pane != nil {
		return false
	}
	ok, _ := closeIn(tr.root, id)
	return ok
}

func closeIn(n *node, id string) (done, found bool) {
	if n.split == nil {
		return false, false
	}
	for _, side := range []struct{ child, sibling *node }{
		{n.split.left, n.split.right},
		{n.split.right, n.split.left},
	} {
		if side.child.pane != nil && side.child.pane.ID == id {
			if side.child.pane.Term != nil {
				side.child.pane.Term.Close()
			}
			*n = *side.sibling
			return true, true
		}
	}
	if done, found := closeIn(n.split.left, id); found {
		return done, true
	}
	return closeIn(n.split.right, id)
}

// SetRatio adjusts the split containing pane id (as a direct child), clamped
// to [0.1, 0.9].
func (tr *Tree) SetRatio(id string, ratio float64) {
	if ratio < 0.1 {
		ratio = 0.1
	}
	if ratio > 0.9 {
		ratio = 0.9
	}
	if n := tr.parentOf(tr.root, id); n != nil {
		n.split.ratio = ratio
	}
}

func (tr *Tree) parentOf(n *node, id string) *node {
	if n == nil || n.split == nil {
		return nil
	}
	for _, c := range []*node{n.split.left, n.split.right} {
		if c.pane != nil && c.pane.ID == id {
			return n
		}
		if found := tr.parentOf(c, id); found != nil {
			return found
		}
	}
	return nil
}

func (tr *Tree) findNode(n *node, id string) *node {
	if n == nil {
		return nil
	}
	if n.pane != nil {
		if n.pane.ID == id {
			return n
		}
		return nil
	}
	if f := tr.findNode(n.split.left, id); f != nil {
		return f
	}
	return tr.findNode(n.split.right, id)
}

// UpdateLayout assigns rectangles proportional to split ratios and converts
// them to grids. Terminals whose grid changed get a resize.
func (tr *Tree) UpdateLayout(w, h, cellW, cellH float64) {
	layout(tr.root, Rect{0, 0, w, h}, cellW, cellH)
}

func layout(n *node, r Rect, cellW, cellH float64) {
	if n.pane != nil {
		p := n.pane
		p.rect = r
		cols := int(r.W / cellW)
		rows := int(r.H / cellH)
		if cols < minCols {
			cols = minCols
		}
		if rows < minRows {
			rows = minRows
		}
		if cols != p.cols || rows != p.rows {
			p.cols, p.rows = cols, rows
			if p.Term != nil {
				p.Term.Resize(cols, rows)
			}
		}
		return
	}
	s := n.split
	if s.dir == Horizontal {
		lw := r.W * s.ratio
		layout(s.left, Rect{r.X, r.Y, lw, r.H}, cellW, cellH)
		layout(s.right, Rect{r.X + lw, r.Y, r.W - lw, r.H}, cellW, cellH)
	} else {
		lh := r.H * s.ratio
		layout(s.left, Rect{r.X, r.Y, r.W, lh}, cellW, cellH)
		layout(s.right, Rect{r.X, r.Y + lh, r.W, r.H - lh}, cellW, cellH)
	}
}

// FindPaneAt point-locates the leaf containing (x, y) from the last layout.
func (tr *Tree) FindPaneAt(x, y float64) *Pane {
	for _, p := range tr.Panes() {
		r := p.rect
		if x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H {
			return p
		}
	}
	return nil
}

// CloseAll shuts down every terminal in the tree.
func (tr *Tree) CloseAll() {
	for _, p := range tr.Panes() {
		if p.Term != nil {
			p.Term.Close()
		}
	}
}
