package board

import "testing"

func TestDragActivationThreshold(t *testing.T) {
	d := NewDragController()
	d.Press(DragCard, "a", "backlog", 10, 5)

	if d.Move(10, 5) {
		t.Fatalf("no movement should not activate a drag")
	}
	if d.Move(11, 5) {
		t.Fatalf("movement within the threshold should not activate a drag")
	}
	if !d.Move(13, 5) {
		t.Fatalf("movement past the threshold should activate the drag")
	}
	if !d.Dragging() {
		t.Fatalf("Dragging() = false after activation")
	}
}

func TestDragClickProducesNoIntent(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Fixture plate"))
	d := NewDragController()
	d.Press(DragCard, "a", "backlog", 4, 4)

	intent := d.Drop(&DropTarget{ColumnID: "running", ColumnIndex: 3}, nil, st)
	if intent != nil {
		t.Fatalf("release without activation should be a click, got %#v", intent)
	}
	if d.Dragging() {
		t.Fatalf("state should be cleared after release")
	}
}

func TestDragNoOpDropOnOwnColumn(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Fixture plate"))
	d := NewDragController()
	d.Press(DragCard, "a", "backlog", 0, 0)
	d.Move(9, 0)

	intent := d.Drop(&DropTarget{ColumnID: "backlog", ColumnIndex: 0}, nil, st)
	if intent != nil {
		t.Fatalf("dropping a card back on its own column should yield no intent, got %#v", intent)
	}
}

func TestDragSingleCardIntent(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Fixture plate"))
	d := NewDragController()
	d.Press(DragCard, "a", "backlog", 0, 0)
	d.Move(9, 0)

	intent := d.Drop(&DropTarget{ColumnID: "running", ColumnIndex: 3}, NewSelectionModel(), st)
	mv, ok := intent.(MoveCard)
	if !ok {
		t.Fatalf("intent = %#v, want MoveCard", intent)
	}
	if mv.CardID != "a" || mv.TargetColumnID != "running" {
		t.Fatalf("unexpected intent %#v", mv)
	}
}

func TestDragExpandsToGroupWhenSelectionMatches(t *testing.T) {
	st := seedStore(
		seedCard("a", "backlog", "Plate"),
		seedCard("b", "backlog", "Bracket"),
		seedCard("c", "backlog", "Housing"),
	)
	sel := NewSelectionModel()
	order := st.CardOrderForColumn("backlog")
	sel.Click("a", "backlog", false, order)
	sel.Click("b", "backlog", false, order)
	sel.Click("c", "backlog", false, order)

	d := NewDragController()
	d.Press(DragCard, "b", "backlog", 0, 0)
	d.Move(0, 9)

	intent := d.Drop(&DropTarget{ColumnID: "setup", ColumnIndex: 2}, sel, st)
	grp, ok := intent.(MoveCardGroup)
	if !ok {
		t.Fatalf("intent = %#v, want MoveCardGroup", intent)
	}
	if len(grp.CardIDs) != 3 || grp.TargetColumnID != "setup" {
		t.Fatalf("unexpected group intent %#v", grp)
	}
	for i, want := range []string{"a", "b", "c"} {
		if grp.CardIDs[i] != want {
			t.Fatalf("group order = %v, want display order a b c", grp.CardIDs)
		}
	}
}

func TestDragSingleCardWhenOutsideSelection(t *testing.T) {
	st := seedStore(
		seedCard("a", "backlog", "Plate"),
		seedCard("b", "backlog", "Bracket"),
		seedCard("c", "backlog", "Housing"),
	)
	sel := NewSelectionModel()
	order := st.CardOrderForColumn("backlog")
	sel.Click("a", "backlog", false, order)
	sel.Click("b", "backlog", false, order)

	d := NewDragController()
	d.Press(DragCard, "c", "backlog", 0, 0)
	d.Move(0, 9)

	intent := d.Drop(&DropTarget{ColumnID: "setup", ColumnIndex: 2}, sel, st)
	if _, ok := intent.(MoveCard); !ok {
		t.Fatalf("dragging an unselected card should stay single, got %#v", intent)
	}
}

func TestDragColumnMoveGatedByEditMode(t *testing.T) {
	st := seedStore()
	d := NewDragController()

	d.Press(DragColumn, "backlog", "", 0, 0)
	d.Move(30, 0)
	if intent := d.Drop(&DropTarget{ColumnID: "setup", ColumnIndex: 2}, nil, st); intent != nil {
		t.Fatalf("column move outside edit mode should yield no intent, got %#v", intent)
	}

	d.SetEditMode(true)
	d.Press(DragColumn, "backlog", "", 0, 0)
	d.Move(30, 0)
	intent := d.Drop(&DropTarget{ColumnID: "setup", ColumnIndex: 2}, nil, st)
	mv, ok := intent.(MoveColumn)
	if !ok {
		t.Fatalf("intent = %#v, want MoveColumn", intent)
	}
	if mv.ColumnID != "backlog" || mv.TargetIndex != 2 {
		t.Fatalf("unexpected intent %#v", mv)
	}
}

func TestDragCancelClearsState(t *testing.T) {
	d := NewDragController()
	d.Press(DragCard, "a", "backlog", 0, 0)
	d.Move(9, 9)
	d.Cancel()
	if d.Dragging() {
		t.Fatalf("Cancel should clear the drag state")
	}
	if kind, _ := d.DraggedItem(); kind != DragNone {
		t.Fatalf("DraggedItem kind = %v, want DragNone", kind)
	}
}
