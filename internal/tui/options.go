package tui

import (
	"time"

	"github.com/mellgren/verkstad/internal/board"
)

type Option func(*Model)

// WithSortBy sets the initial card grouping for the board.
func WithSortBy(by board.SortBy) Option {
	return func(m *Model) {
		switch by {
		case board.SortByNone, board.SortByAssignee, board.SortByProcess:
			m.store.SetSortBy(by)
		}
	}
}

// WithNowFunc overrides the clock, used by tests for the done-column
// age cutoff and autosave sequencing.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithAutosaveQuiet sets the idle window before column edits persist.
func WithAutosaveQuiet(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.autosaveQuiet = d
		}
	}
}

// WithDoneMaxAge sets how long finished cards stay visible in the last column.
func WithDoneMaxAge(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.doneMaxAge = d
		}
	}
}

// WithCopyFunc overrides how card summaries reach the system clipboard.
func WithCopyFunc(copyText func(string) error) Option {
	return func(m *Model) {
		if copyText != nil {
			m.copyText = copyText
		}
	}
}
