package board

// DragActivationDistance is how far the pointer must travel, in cells on
// either axis, before a press turns into a drag. Anything shorter stays a
// click.
const DragActivationDistance = 1

// DragItemKind says what the pointer went down on.
type DragItemKind int

const (
	DragNone DragItemKind = iota
	DragCard
	DragColumn
)

// DropTarget is the element under the pointer at release, resolved by the
// caller's hit testing. A drop on a card resolves indirectly to that card's
// column.
type DropTarget struct {
	ColumnID    string
	ColumnIndex int
}

// DragController turns a press/move/release gesture into at most one
// MoveIntent. It holds no card data; the selection and store are consulted
// only at drop time.
type DragController struct {
	kind     DragItemKind
	itemID   string
	columnID string
	startX   int
	startY   int
	active   bool
	editMode bool
}

// NewDragController returns an idle controller.
func NewDragController() *DragController {
	return &DragController{}
}

// SetEditMode gates column reordering. Outside edit mode a column drag is
// still tracked, so the layout does not jump, but Drop produces no intent.
func (d *DragController) SetEditMode(on bool) {
	d.editMode = on
}

// Press records the pressed item. It never starts a drag by itself.
func (d *DragController) Press(kind DragItemKind, itemID, columnID string, x, y int) {
	d.kind = kind
	d.itemID = itemID
	d.columnID = columnID
	d.startX = x
	d.startY = y
	d.active = false
}

// Move updates the gesture with a pointer position and reports whether the
// drag is (now) active. The activation threshold keeps plain clicks from
// registering as drags.
func (d *DragController) Move(x, y int) bool {
	if d.kind == DragNone {
		return false
	}
	if !d.active {
		dx, dy := x-d.startX, y-d.startY
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx > DragActivationDistance || dy > DragActivationDistance {
			d.active = true
		}
	}
	return d.active
}

// Dragging reports whether a drag is active.
func (d *DragController) Dragging() bool {
	return d.active
}

// DraggedItem returns the pressed item, if any.
func (d *DragController) DraggedItem() (DragItemKind, string) {
	return d.kind, d.itemID
}

// Drop ends the gesture and classifies it. The transient drag state is
// cleared before the intent is returned, so the dragged item never stays
// visually stuck while a mutation is in flight. A nil intent means the
// gesture was a click, a no-op drop, or a gated column move.
func (d *DragController) Drop(target *DropTarget, sel *SelectionModel, store *Store) MoveIntent {
	kind, itemID, columnID, active := d.kind, d.itemID, d.columnID, d.active
	d.reset()
	if !active || target == nil {
		return nil
	}

	switch kind {
	case DragColumn:
		if !d.editMode {
			return nil
		}
		if itemID == target.ColumnID {
			return nil
		}
		return MoveColumn{ColumnID: itemID, TargetIndex: target.ColumnIndex}

	case DragCard:
		if target.ColumnID == columnID {
			return nil
		}
		if sel != nil && sel.Contains(itemID) && sel.ColumnID() == columnID && sel.Count() > 1 {
			order := store.CardOrderForColumn(columnID)
			return MoveCardGroup{CardIDs: sel.IDs(order), TargetColumnID: target.ColumnID}
		}
		return MoveCard{CardID: itemID, TargetColumnID: target.ColumnID}
	}
	return nil
}

// Cancel aborts the gesture, clearing all transient state.
func (d *DragController) Cancel() {
	d.reset()
}

func (d *DragController) reset() {
	d.kind = DragNone
	d.itemID = ""
	d.columnID = ""
	d.active = false
}
