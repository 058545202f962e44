package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit            key.Binding
	reload          key.Binding
	toggleHelp      key.Binding
	moveLeft        key.Binding
	moveRight       key.Binding
	moveUp          key.Binding
	moveDown        key.Binding
	moveCardLeft    key.Binding
	moveCardRight   key.Binding
	toggleSelect    key.Binding
	rangeSelect     key.Binding
	newCard         key.Binding
	deleteCard      key.Binding
	cardInfo        key.Binding
	copyCard        key.Binding
	assign          key.Binding
	machine         key.Binding
	cycleSort       key.Binding
	editMode        key.Binding
	addColumn       key.Binding
	renameColumn    key.Binding
	deleteColumn    key.Binding
	moveColumnLeft  key.Binding
	moveColumnRight key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:            key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:          key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:        key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		moveCardLeft:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move card left")),
		moveCardRight:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move card right")),
		toggleSelect:    key.NewBinding(key.WithKeys("space"), key.WithHelp("space", "toggle select")),
		rangeSelect:     key.NewBinding(key.WithKeys("V"), key.WithHelp("V", "select range")),
		newCard:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new work order")),
		deleteCard:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete work order")),
		cardInfo:        key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "work order info")),
		copyCard:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy to clipboard")),
		assign:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "assign operator")),
		machine:         key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "set machine")),
		cycleSort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle grouping")),
		editMode:        key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "toggle edit mode")),
		addColumn:       key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "add column")),
		renameColumn:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rename column")),
		deleteColumn:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete column")),
		moveColumnLeft:  key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "move column left")),
		moveColumnRight: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "move column right")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.newCard, k.cardInfo, k.toggleSelect, k.assign, k.editMode, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.newCard, k.cardInfo, k.copyCard, k.assign, k.machine, k.cycleSort, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveCardLeft, k.moveCardRight},
		{k.toggleSelect, k.rangeSelect, k.deleteCard},
		{k.editMode, k.addColumn, k.renameColumn, k.deleteColumn, k.moveColumnLeft, k.moveColumnRight},
	}
}
