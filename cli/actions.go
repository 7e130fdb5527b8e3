package main

import (
	"github.com/voidwarestudios/velocitty/internal/pane"
	vt "github.com/voidwarestudios/velocitty/internal/term"
)

// Action is a semantic keyboard command resolved by the host's keybinding
// layer; the core only sees the result.
type Action int

const (
	ActNone Action = iota
	ActCopy
	ActPaste
	ActNewTab
	ActCloseTab
	ActNextTab
	ActPrevTab
	ActSplitH
	ActSplitV
	ActClosePane
	ActScrollUp
	ActScrollDown
	ActScrollPageUp
	ActScrollPageDown
	ActToggleSearch
	ActToggleFullscreen
)

// app ties tabs, selection and the clipboard together for the dispatcher.
type app struct {
	tabs      *pane.TabManager
	selection *vt.Selection

	// host callbacks; the core stays free of UI dependencies
	newTerminal  func() *vt.Terminal
	setClipboard func(string)
	getClipboard func() string
	toggleSearch func()
	toggleFull   func()
}

// apply executes one semantic action against the active tab and pane.
func (a *app) apply(act Action) {
	tab := a.tabs.Active()
	if tab == nil {
		return
	}
	active := tab.ActivePane()

	switch act {
	case ActCopy:
		if active != nil && a.selection.State() == vt.SelSelected {
			a.setClipboard(a.selection.Text(active.Term.Buffer()))
		}
	case ActPaste:
		if active != nil {
			active.Term.Paste(a.getClipboard())
		}
	case ActNewTab:
		if t := a.newTerminal(); t != nil {
			a.tabs.NewTab(t, "")
		}
	case ActCloseTab:
		a.tabs.CloseTab(a.tabs.ActiveIndex())
	case ActNextTab:
		a.tabs.NextTab()
	case ActPrevTab:
		a.tabs.PrevTab()
	case ActSplitH, ActSplitV:
		if active == nil {
			return
		}
		dir := pane.Horizontal
		if act == ActSplitV {
			dir = pane.Vertical
		}
		if t := a.newTerminal(); t != nil {
			if fresh := tab.Tree.Split(active.ID, dir, t); fresh != nil {
				tab.SetActivePane(fresh.ID)
			} else {
				t.Close()
			}
		}
	case ActClosePane:
		if active == nil {
			return
		}
		if !tab.Tree.Close(active.ID) {
			// Last pane in the tab: the tab goes instead.
			a.tabs.CloseTab(a.tabs.ActiveIndex())
		}
	case ActScrollUp:
		if active != nil {
			active.Term.Buffer().ScrollViewport(3)
		}
	case ActScrollDown:
		if active != nil {
			active.Term.Buffer().ScrollViewport(-3)
		}
	case ActScrollPageUp:
		if active != nil {
			_, rows := active.Term.Buffer().Size()
			active.Term.Buffer().ScrollViewport(rows)
		}
	case ActScrollPageDown:
		if active != nil {
			_, rows := active.Term.Buffer().Size()
			active.Term.Buffer().ScrollViewport(-rows)
		}
	case ActToggleSearch:
		if a.toggleSearch != nil {
			a.toggleSearch()
		}
	case ActToggleFullscreen:
		if a.toggleFull != nil {
			a.toggleFull()
		}
	}
}
