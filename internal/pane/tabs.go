package pane

import (
	"github.com/google/uuid"

	"github.com/voidwarestudios/velocitty/internal/term"
)

// Tab owns one split tree and tracks its active pane by id.
type Tab struct {
	ID    string
	Title string

	Tree       *Tree
	activePane string
}

// ActivePane returns the focused pane, falling back to the first leaf when
// the stored id is gone.
func (t *Tab) ActivePane() *Pane {
	if p := t.Tree.Find(t.activePane); p != nil {
		return p
	}
	panes := t.Tree.Panes()
	if len(panes) == 0 {
		return nil
	}
	t.activePane = panes[0].ID
	return panes[0]
}

// SetActivePane focuses a pane by id.
func (t *Tab) SetActivePane(id string) {
	if t.Tree.Find(id) != nil {
		t.activePane = id
	}
}

// TabManager holds the ordered tab list. Closing the last tab invokes
// OnEmpty, which the host uses to exit.
type TabManager struct {
	tabs        []*Tab
	activeIndex int

	// OnEmpty is called when the last tab closes.
	OnEmpty func()
}

// NewTabManager returns an empty manager.
func NewTabManager() *TabManager {
	return &TabManager{}
}

// Tabs returns the ordered tab list.
func (m *TabManager) Tabs() []*Tab { return m.tabs }

// ActiveIndex returns the focused tab position.
func (m *TabManager) ActiveIndex() int { return m.activeIndex }

// Active returns the focused tab, or nil when no tabs remain.
func (m *TabManager) Active() *Tab {
	if len(m.tabs) == 0 {
		return nil
	}
	return m.tabs[m.activeIndex]
}

// NewTab appends a tab around the given terminal and activates it.
func (m *TabManager) NewTab(t *term.Terminal, title string) *Tab {
	tree, pane := NewTree(t)
	tab := &Tab{
		ID:         uuid.New().String(),
		Title:      title,
		Tree:       tree,
		activePane: pane.ID,
	}
	m.tabs = append(m.tabs, tab)
	m.activeIndex = len(m.tabs) - 1
	return tab
}

// CloseTab removes a tab, closing its terminals. Selection moves to the
// right neighbor when one exists, else the left.
func (m *TabManager) CloseTab(index int) {
	if index < 0 || index >= len(m.tabs) {
		return
	}
	m.tabs[index].Tree.CloseAll()
	m.tabs = append(m.tabs[:index], m.tabs[index+1:]...)

	if len(m.tabs) == 0 {
		m.activeIndex = 0
		if m.OnEmpty != nil {
			m.OnEmpty()
		}
		return
	}
	switch {
	case m.activeIndex > index:
		m.activeIndex--
	case m.activeIndex == index && m.activeIndex >= len(m.tabs):
		m.activeIndex = len(m.tabs) - 1
	}
}

// NextTab cycles focus right.
func (m *TabManager) NextTab() {
	if len(m.tabs) > 1 {
		m.activeIndex = (m.activeIndex + 1) % len(m.tabs)
	}
}

// PrevTab cycles focus left.
func (m *TabManager) PrevTab() {
	if len(m.tabs) > 1 {
		m.activeIndex = (m.activeIndex + len(m.tabs) - 1) % len(m.tabs)
	}
}
