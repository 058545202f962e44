package domain

import (
	"testing"
	"time"
)

// TestNewCardValidation verifies constructor validation and normalization.
func TestNewCardValidation(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	if _, err := NewCard(CardInput{ID: "", ColumnID: "c1", Title: "Part"}, now); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := NewCard(CardInput{ID: "w1", ColumnID: " ", Title: "Part"}, now); err != ErrInvalidColumnID {
		t.Fatalf("expected ErrInvalidColumnID, got %v", err)
	}
	if _, err := NewCard(CardInput{ID: "w1", ColumnID: "c1", Title: ""}, now); err != ErrInvalidTitle {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}
	if _, err := NewCard(CardInput{ID: "w1", ColumnID: "c1", Title: "Part", QuantityToMake: -2}, now); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	card, err := NewCard(CardInput{
		ID:         " w1 ",
		ColumnID:   "c1",
		Title:      "  Bracket  ",
		ProcessIDs: []string{"mill", "", "mill", "deburr"},
	}, now)
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}
	if card.ID != "w1" || card.Title != "Bracket" {
		t.Fatalf("unexpected normalization: %+v", card)
	}
	if len(card.ProcessIDs) != 2 || card.ProcessIDs[0] != "mill" || card.ProcessIDs[1] != "deburr" {
		t.Fatalf("unexpected process ids: %v", card.ProcessIDs)
	}
}

// TestCardCloneIsDeep verifies clones share no mutable state.
func TestCardCloneIsDeep(t *testing.T) {
	now := time.Now()
	due := now.Add(48 * time.Hour)
	card, err := NewCard(CardInput{ID: "w1", ColumnID: "c1", Title: "Part", DueDate: &due, ProcessIDs: []string{"mill"}}, now)
	if err != nil {
		t.Fatalf("NewCard: %v", err)
	}

	clone := card.Clone()
	clone.ProcessIDs[0] = "grind"
	*clone.DueDate = clone.DueDate.Add(time.Hour)

	if card.ProcessIDs[0] != "mill" {
		t.Fatalf("clone shares process ids slice")
	}
	if card.DueDate.Equal(*clone.DueDate) {
		t.Fatalf("clone shares due date pointer")
	}
}

// TestBoardConfigNormalize verifies the dense-position invariant.
func TestBoardConfigNormalize(t *testing.T) {
	cfg := BoardConfig{Columns: []Column{
		{ID: "b", Title: "B", Position: 7},
		{ID: "a", Title: "A", Position: 2},
		{ID: "c", Title: "C", Position: 7},
	}}
	cfg.Normalize()

	for i, col := range cfg.Columns {
		if col.Position != i {
			t.Fatalf("position %d at index %d after normalize", col.Position, i)
		}
	}
	if cfg.Columns[0].ID != "a" {
		t.Fatalf("expected a first, got %s", cfg.Columns[0].ID)
	}
	// Equal stored positions keep their relative order.
	if cfg.Columns[1].ID != "b" || cfg.Columns[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", cfg.Columns)
	}
}

// TestDoneColumnDisplayAndAgeFilter verifies terminal-column derivation.
func TestDoneColumnDisplayAndAgeFilter(t *testing.T) {
	cfg := DefaultBoardConfig()
	last := len(cfg.Columns) - 1

	if !cfg.IsLastColumn(last) || cfg.IsLastColumn(0) {
		t.Fatalf("IsLastColumn derivation wrong")
	}
	if cfg.DisplayTitle(last) != DoneColumnTitle {
		t.Fatalf("terminal column not display-renamed: %q", cfg.DisplayTitle(last))
	}
	if cfg.DisplayTitle(0) == DoneColumnTitle {
		t.Fatalf("non-terminal column renamed")
	}

	now := time.Now().UTC()
	fresh := Card{ID: "w1", ColumnID: cfg.Columns[last].ID, UpdatedAt: now.Add(-time.Hour)}
	stale := Card{ID: "w2", ColumnID: cfg.Columns[last].ID, UpdatedAt: now.Add(-25 * time.Hour)}

	if !cfg.VisibleInColumn(fresh, last, now) {
		t.Fatalf("fresh card hidden from Done")
	}
	if cfg.VisibleInColumn(stale, last, now) {
		t.Fatalf("stale card visible in Done")
	}
	// Age filtering only applies to the terminal column.
	if !cfg.VisibleInColumn(stale, 0, now) {
		t.Fatalf("age filter leaked into non-terminal column")
	}
}

// TestBoardConfigValidate verifies duplicate and empty rejection.
func TestBoardConfigValidate(t *testing.T) {
	good := DefaultBoardConfig()
	if err := good.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	dup := BoardConfig{Columns: []Column{
		{ID: "a", Title: "A", Position: 0},
		{ID: "a", Title: "B", Position: 1},
	}}
	if err := dup.Validate(); err == nil {
		t.Fatalf("duplicate column id accepted")
	}

	empty := BoardConfig{Columns: []Column{{ID: "a", Title: " ", Position: 0}}}
	if err := empty.Validate(); err == nil {
		t.Fatalf("empty title accepted")
	}
}
