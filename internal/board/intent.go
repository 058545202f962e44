// Package board implements the interaction engine behind the work-order
// board: drag classification, multi-select, optimistic mutations with
// rollback, bulk edits, and debounced column-structure autosave. It is
// UI-toolkit agnostic; the tui package binds it to terminal events.
package board

// MoveIntent is the classified outcome of a completed drag gesture. Exactly
// one concrete intent is produced per gesture, or none at all.
type MoveIntent interface {
	isMoveIntent()
}

// MoveColumn reorders one workflow stage to a new display index.
type MoveColumn struct {
	ColumnID    string
	TargetIndex int
}

// MoveCard moves a single card to another column.
type MoveCard struct {
	CardID         string
	TargetColumnID string
}

// MoveCardGroup moves every selected card, in board display order, to
// another column.
type MoveCardGroup struct {
	CardIDs        []string
	TargetColumnID string
}

func (MoveColumn) isMoveIntent()    {}
func (MoveCard) isMoveIntent()      {}
func (MoveCardGroup) isMoveIntent() {}
