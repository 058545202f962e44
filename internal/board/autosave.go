package board

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mellgren/verkstad/internal/domain"
)

// AutosaveQuietPeriod is how long the column editor must stay idle before a
// burst of structural edits is persisted in one write.
const AutosaveQuietPeriod = 300 * time.Millisecond

// ColumnConfigAutosave persists structural board edits after a quiet period
// instead of writing per keystroke. Edits update the in-memory column list
// immediately; each edit supersedes the previous pending save. Timers are
// driven by the host loop: every edit returns a sequence number, the host
// schedules a tick carrying it, and Fire only honors the tick if the
// sequence is still current.
type ColumnConfigAutosave struct {
	store      *Store
	editMode   bool
	seq        uint64
	pending    bool
	lastSynced string
}

// NewColumnConfigAutosave wires the autosave to its store.
func NewColumnConfigAutosave(store *Store) *ColumnConfigAutosave {
	return &ColumnConfigAutosave{store: store}
}

// SetEditMode toggles edit mode. Leaving edit mode cancels any pending save
// but keeps the in-memory edits visible.
func (a *ColumnConfigAutosave) SetEditMode(on bool) {
	a.editMode = on
	if !on {
		a.CancelPending()
	}
}

// EditMode reports whether the board is in edit mode.
func (a *ColumnConfigAutosave) EditMode() bool {
	return a.editMode
}

// AddColumn appends a new column and schedules a save.
func (a *ColumnConfigAutosave) AddColumn(title string) (uint64, error) {
	cfg := a.store.Config().Clone()
	col, err := domain.NewColumn(uuid.NewString(), title, len(cfg.Columns))
	if err != nil {
		return 0, err
	}
	cfg.Columns = append(cfg.Columns, col)
	return a.commit(cfg), nil
}

// RenameColumn retitles a column and schedules a save.
func (a *ColumnConfigAutosave) RenameColumn(columnID, title string) (uint64, error) {
	cfg := a.store.Config().Clone()
	idx := cfg.ColumnIndex(columnID)
	if idx == -1 {
		return 0, domain.ErrInvalidColumnID
	}
	if err := cfg.Columns[idx].Rename(title); err != nil {
		return 0, err
	}
	return a.commit(cfg), nil
}

// DeleteColumn removes a column and schedules a save.
func (a *ColumnConfigAutosave) DeleteColumn(columnID string) (uint64, error) {
	cfg := a.store.Config().Clone()
	idx := cfg.ColumnIndex(columnID)
	if idx == -1 {
		return 0, domain.ErrInvalidColumnID
	}
	cfg.Columns = append(cfg.Columns[:idx], cfg.Columns[idx+1:]...)
	return a.commit(cfg), nil
}

// ApplyReorder moves a column to a target index and schedules a save.
func (a *ColumnConfigAutosave) ApplyReorder(columnID string, targetIndex int) (uint64, error) {
	cfg := a.store.Config().Clone()
	idx := cfg.ColumnIndex(columnID)
	if idx == -1 {
		return 0, domain.ErrInvalidColumnID
	}
	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex >= len(cfg.Columns) {
		targetIndex = len(cfg.Columns) - 1
	}
	col := cfg.Columns[idx]
	cols := append(cfg.Columns[:idx:idx], cfg.Columns[idx+1:]...)
	cols = append(cols[:targetIndex], append([]domain.Column{col}, cols[targetIndex:]...)...)
	cfg.Columns = cols
	return a.commit(cfg), nil
}

// commit applies the edited config to the store, recomputes dense positions,
// and starts a new quiet period. The returned sequence supersedes all
// earlier ones.
func (a *ColumnConfigAutosave) commit(cfg domain.BoardConfig) uint64 {
	for i := range cfg.Columns {
		cfg.Columns[i].Position = i
	}
	a.store.ReplaceConfig(cfg)
	a.store.InvalidateColumns()
	a.seq++
	a.pending = true
	return a.seq
}

// Fire is called when the quiet period tick for seq arrives. It returns the
// config to persist only when that edit is still the latest, the save has
// not been cancelled, and the board is still in edit mode.
func (a *ColumnConfigAutosave) Fire(seq uint64) (domain.BoardConfig, bool) {
	if !a.pending || seq != a.seq || !a.editMode {
		return domain.BoardConfig{}, false
	}
	a.pending = false
	return a.store.Config().Clone(), true
}

// CancelPending drops any not-yet-fired save without touching the in-memory
// edits.
func (a *ColumnConfigAutosave) CancelPending() {
	a.pending = false
}

// Pending reports whether a save is scheduled.
func (a *ColumnConfigAutosave) Pending() bool {
	return a.pending
}

// NotePersisted records a config this component itself just wrote, so the
// server echoing it back is not mistaken for an external change.
func (a *ColumnConfigAutosave) NotePersisted(cfg domain.BoardConfig) {
	a.lastSynced = serializeConfig(cfg)
}

// SyncExternal installs an externally supplied config unless it matches the
// last write this component produced. It reports whether local state
// changed.
func (a *ColumnConfigAutosave) SyncExternal(cfg domain.BoardConfig) bool {
	ser := serializeConfig(cfg)
	if ser == a.lastSynced {
		return false
	}
	a.lastSynced = ser
	a.CancelPending()
	a.store.ReplaceConfig(cfg)
	a.store.InvalidateColumns()
	return true
}

// serializeConfig produces the canonical comparison form of a config.
func serializeConfig(cfg domain.BoardConfig) string {
	norm := cfg.Clone()
	norm.Normalize()
	b, err := json.Marshal(norm.Columns)
	if err != nil {
		return ""
	}
	return string(b)
}
