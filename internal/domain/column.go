package domain

import (
	"sort"
	"strings"
	"time"
)

// DoneColumnMaxAge is how long a card stays visible in the terminal column
// after its last update. Cards older than this are hidden from the Done view.
const DoneColumnMaxAge = 24 * time.Hour

// DoneColumnTitle is the display name of the terminal workflow stage. The
// column keeps its stored title; only the rendering changes.
const DoneColumnTitle = "Done"

// Column represents one ordered workflow stage.
type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// NewColumn constructs a validated column.
func NewColumn(id, title string, position int) (Column, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if title == "" {
		return Column{}, ErrInvalidTitle
	}
	if position < 0 {
		return Column{}, ErrInvalidPosition
	}
	return Column{ID: id, Title: title, Position: position}, nil
}

// Rename renames the column.
func (c *Column) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	c.Title = title
	return nil
}

// BoardConfig is the single mutable structural document: the ordered column
// list persisted server-side as a whole.
type BoardConfig struct {
	Columns []Column `json:"columns"`
}

// DefaultBoardConfig returns the stage layout used when no config has been
// persisted yet.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{Columns: []Column{
		{ID: "backlog", Title: "Backlog", Position: 0},
		{ID: "programming", Title: "Programming", Position: 1},
		{ID: "setup", Title: "Setup", Position: 2},
		{ID: "running", Title: "Running", Position: 3},
		{ID: "complete", Title: "Complete", Position: 4},
	}}
}

// Normalize sorts columns by position and renumbers them densely 0..n-1.
// Positions are unique and contiguous after any add/delete/reorder.
func (b *BoardConfig) Normalize() {
	sort.SliceStable(b.Columns, func(i, j int) bool {
		return b.Columns[i].Position < b.Columns[j].Position
	})
	for i := range b.Columns {
		b.Columns[i].Position = i
	}
}

// Clone deep-copies the config.
func (b BoardConfig) Clone() BoardConfig {
	return BoardConfig{Columns: append([]Column(nil), b.Columns...)}
}

// IsLastColumn reports whether idx addresses the terminal "Done" stage.
// This is derived from ordering, not stored state.
func (b BoardConfig) IsLastColumn(idx int) bool {
	return len(b.Columns) > 0 && idx == len(b.Columns)-1
}

// ColumnIndex returns the display index of a column id, or -1.
func (b BoardConfig) ColumnIndex(columnID string) int {
	for i, col := range b.Columns {
		if col.ID == columnID {
			return i
		}
	}
	return -1
}

// DisplayTitle returns the rendered title for the column at idx: the terminal
// column is display-renamed to Done without changing stored state.
func (b BoardConfig) DisplayTitle(idx int) string {
	if idx < 0 || idx >= len(b.Columns) {
		return ""
	}
	if b.IsLastColumn(idx) {
		return DoneColumnTitle
	}
	return b.Columns[idx].Title
}

// VisibleInColumn reports whether a card should render in the column at idx.
// The terminal column hides cards whose last update is older than
// DoneColumnMaxAge.
func (b BoardConfig) VisibleInColumn(card Card, idx int, now time.Time) bool {
	return b.VisibleInColumnWithin(card, idx, now, DoneColumnMaxAge)
}

// VisibleInColumnWithin is VisibleInColumn with a caller-chosen age window.
func (b BoardConfig) VisibleInColumnWithin(card Card, idx int, now time.Time, maxAge time.Duration) bool {
	if !b.IsLastColumn(idx) {
		return true
	}
	return now.Sub(card.UpdatedAt) <= maxAge
}

// Validate checks ids and titles and rejects duplicate column ids.
func (b BoardConfig) Validate() error {
	seen := map[string]struct{}{}
	for _, col := range b.Columns {
		if strings.TrimSpace(col.ID) == "" {
			return ErrInvalidID
		}
		if strings.TrimSpace(col.Title) == "" {
			return ErrInvalidTitle
		}
		if col.Position < 0 {
			return ErrInvalidPosition
		}
		if _, dup := seen[col.ID]; dup {
			return ErrInvalidID
		}
		seen[col.ID] = struct{}{}
	}
	return nil
}
