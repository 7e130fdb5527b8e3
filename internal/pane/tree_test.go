package pane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Trees in these tests carry nil terminals; layout and lifecycle logic does
// not require a live PTY.

func TestSplitAndClose(t *testing.T) {
	tree, first := NewTree(nil)
	require.Len(t, tree.Panes(), 1)

	tree.UpdateLayout(800, 600, 10, 20)

	second := tree.Split(first.ID, Horizontal, nil)
	require.NotNil(t, second)
	assert.Len(t, tree.Panes(), 2)
	assert.NotEqual(t, first.ID, second.ID)

	third := tree.Split(second.ID, Vertical, nil)
	require.NotNil(t, third)
	assert.Len(t, tree.Panes(), 3)

	// Closing a leaf collapses its parent to the sibling.
	assert.True(t, tree.Close(third.ID))
	assert.Len(t, tree.Panes(), 2)
	assert.Nil(t, tree.Find(third.ID))
	assert.NotNil(t, tree.Find(first.ID))
	assert.NotNil(t, tree.Find(second.ID))

	assert.True(t, tree.Close(second.ID))
	assert.Len(t, tree.Panes(), 1)

	// The last pane cannot be closed through the tree.
	assert.False(t, tree.Close(first.ID))
	assert.Len(t, tree.Panes(), 1)
}

func TestLayoutProportions(t *testing.T) {
	tree, first := NewTree(nil)
	tree.UpdateLayout(1000, 500, 10, 20)
	second := tree.Split(first.ID, Horizontal, nil)
	require.NotNil(t, second)
	tree.UpdateLayout(1000, 500, 10, 20)

	assert.Equal(t, Rect{0, 0, 500, 500}, first.Rect())
	assert.Equal(t, Rect{500, 0, 500, 500}, second.Rect())

	cols, rows := first.Grid()
	assert.Equal(t, 50, cols)
	assert.Equal(t, 25, rows)

	tree.SetRatio(first.ID, 0.25)
	tree.UpdateLayout(1000, 500, 10, 20)
	assert.Equal(t, Rect{0, 0, 250, 500}, first.Rect())
	assert.Equal(t, Rect{250, 0, 750, 500}, second.Rect())
}

func TestSetRatioClamps(t *testing.T) {
	tree, first := NewTree(nil)
	tree.UpdateLayout(1000, 500, 10, 20)
	tree.Split(first.ID, Vertical, nil)

	tree.SetRatio(first.ID, 0.01)
	tree.UpdateLayout(1000, 500, 10, 20)
	assert.InDelta(t, 50.0, first.Rect().H, 0.001)

	tree.SetRatio(first.ID, 0.99)
	tree.UpdateLayout(1000, 500, 10, 20)
	assert.InDelta(t, 450.0, first.Rect().H, 0.001)
}

func TestSplitRejectedWhenTooSmall(t *testing.T) {
	tree, first := NewTree(nil)
	// 60x40 pixels at 10x20 cell size: 6 cols, 2 rows.
	tree.UpdateLayout(60, 40, 10, 20)
	assert.Nil(t, tree.Split(first.ID, Horizontal, nil), "3 cols per child is below minimum")
	assert.Nil(t, tree.Split(first.ID, Vertical, nil), "1 row per child is below minimum")
	assert.Len(t, tree.Panes(), 1)
}

func TestFindPaneAt(t *testing.T) {
	tree, first := NewTree(nil)
	tree.UpdateLayout(1000, 500, 10, 20)
	second := tree.Split(first.ID, Horizontal, nil)
	tree.UpdateLayout(1000, 500, 10, 20)

	assert.Equal(t, first, tree.FindPaneAt(100, 100))
	assert.Equal(t, second, tree.FindPaneAt(900, 100))
	assert.Nil(t, tree.FindPaneAt(2000, 100))
}

func TestTabManagerLifecycle(t *testing.T) {
	m := NewTabManager()
	exited := false
	m.OnEmpty = func() { exited = true }

	a := m.NewTab(nil, "one")
	b := m.NewTab(nil, "two")
	c := m.NewTab(nil, "three")
	assert.Equal(t, 2, m.ActiveIndex())
	assert.Equal(t, c, m.Active())

	// Closing the middle tab keeps the focused tab selected.
	m.CloseTab(1)
	assert.Len(t, m.Tabs(), 2)
	assert.Equal(t, c, m.Tabs()[1])

	m.NextTab()
	assert.Equal(t, a, m.Active())
	m.PrevTab()
	assert.Equal(t, c, m.Active())
	_ = b

	m.CloseTab(1)
	m.CloseTab(0)
	assert.True(t, exited)
	assert.Nil(t, m.Active())
}

func TestTabCloseKeepsActiveTab(t *testing.T) {
	m := NewTabManager()
	m.NewTab(nil, "a")
	tb := m.NewTab(nil, "b")
	tc := m.NewTab(nil, "c")
	_ = tb

	m.CloseTab(0) // close "a" while "c" is active
	assert.Equal(t, tc, m.Active())

	m.CloseTab(0) // close "b": the active tab itself shifts left
	assert.Equal(t, tc, m.Active())
}

func TestActivePanePersistence(t *testing.T) {
	m := NewTabManager()
	tab := m.NewTab(nil, "t")
	first := tab.ActivePane()
	require.NotNil(t, first)

	tab.Tree.UpdateLayout(1000, 500, 10, 20)
	second := tab.Tree.Split(first.ID, Horizontal, nil)
	require.NotNil(t, second)
	tab.SetActivePane(second.ID)

	tab.Tree.UpdateLayout(500, 250, 10, 20)
	assert.Equal(t, second.ID, tab.ActivePane().ID)

	// Closing the active pane falls back to the survivor.
	tab.Tree.Close(second.ID)
	assert.Equal(t, first.ID, tab.ActivePane().ID)
}
