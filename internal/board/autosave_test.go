package board

import (
	"testing"

	"github.com/mellgren/verkstad/internal/domain"
)

func newAutosave(t *testing.T) (*ColumnConfigAutosave, *Store) {
	t.Helper()
	st := seedStore()
	a := NewColumnConfigAutosave(st)
	a.SetEditMode(true)
	return a, st
}

func TestAutosaveCoalescesBurstToOneWrite(t *testing.T) {
	a, st := newAutosave(t)

	seq1, err := a.RenameColumn("backlog", "Queue")
	if err != nil {
		t.Fatalf("RenameColumn() error = %v", err)
	}
	seq2, _ := a.RenameColumn("backlog", "Queued")
	seq3, _ := a.RenameColumn("backlog", "Intake")

	if _, ok := a.Fire(seq1); ok {
		t.Fatalf("superseded timer must not fire")
	}
	if _, ok := a.Fire(seq2); ok {
		t.Fatalf("superseded timer must not fire")
	}
	cfg, ok := a.Fire(seq3)
	if !ok {
		t.Fatalf("latest timer should fire")
	}
	if got := cfg.Columns[cfg.ColumnIndex("backlog")].Title; got != "Intake" {
		t.Fatalf("persisted title = %q, want only the final rename", got)
	}
	if st.Config().Columns[0].Title != "Intake" {
		t.Fatalf("in-memory edit should be visible immediately")
	}

	// The fired sequence is consumed; a duplicate tick does nothing.
	if _, ok := a.Fire(seq3); ok {
		t.Fatalf("fired timer must not fire twice")
	}
}

func TestAutosavePositionsStayDense(t *testing.T) {
	a, st := newAutosave(t)

	if _, err := a.AddColumn("Inspection"); err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if _, err := a.DeleteColumn("programming"); err != nil {
		t.Fatalf("DeleteColumn() error = %v", err)
	}
	seq, err := a.ApplyReorder("running", 0)
	if err != nil {
		t.Fatalf("ApplyReorder() error = %v", err)
	}

	cfg, ok := a.Fire(seq)
	if !ok {
		t.Fatalf("timer should fire")
	}
	for i, col := range cfg.Columns {
		if col.Position != i {
			t.Fatalf("position[%d] = %d, want dense 0..n-1: %#v", i, col.Position, cfg.Columns)
		}
	}
	if cfg.Columns[0].ID != "running" {
		t.Fatalf("reorder not applied, got %#v", cfg.Columns)
	}
	if st.Config().ColumnIndex("programming") != -1 {
		t.Fatalf("deleted column still present")
	}
}

func TestAutosaveModeExitCancelsTimerKeepsEdits(t *testing.T) {
	a, st := newAutosave(t)

	seq, _ := a.RenameColumn("setup", "Rigging")
	a.SetEditMode(false)

	if _, ok := a.Fire(seq); ok {
		t.Fatalf("timer must not fire after leaving edit mode")
	}
	if got := st.Config().Columns[st.Config().ColumnIndex("setup")].Title; got != "Rigging" {
		t.Fatalf("in-memory edit should survive mode exit, got %q", got)
	}
}

func TestAutosaveSuppressesOwnEcho(t *testing.T) {
	a, st := newAutosave(t)

	seq, _ := a.RenameColumn("backlog", "Intake")
	cfg, ok := a.Fire(seq)
	if !ok {
		t.Fatalf("timer should fire")
	}
	a.NotePersisted(cfg)

	gen := st.ColumnGeneration()
	if a.SyncExternal(cfg) {
		t.Fatalf("the server echoing our own write must not resync")
	}
	if st.ColumnGeneration() != gen {
		t.Fatalf("echo must not invalidate the column cache")
	}

	external := cfg.Clone()
	external.Columns[0].Title = "Incoming"
	if !a.SyncExternal(external) {
		t.Fatalf("a genuinely different config should resync")
	}
	if st.Config().Columns[0].Title != "Incoming" {
		t.Fatalf("external config not installed")
	}
}

func TestAutosaveExternalSyncCancelsPending(t *testing.T) {
	a, _ := newAutosave(t)

	seq, _ := a.RenameColumn("backlog", "Intake")
	revert := domain.DefaultBoardConfig()
	if !a.SyncExternal(revert) {
		t.Fatalf("revert should resync")
	}
	if _, ok := a.Fire(seq); ok {
		t.Fatalf("pending save must be cancelled by an external revert")
	}
}

func TestAutosaveRejectsInvalidEdits(t *testing.T) {
	a, _ := newAutosave(t)

	if _, err := a.RenameColumn("backlog", "  "); err == nil {
		t.Fatalf("blank rename should fail")
	}
	if _, err := a.DeleteColumn("nope"); err == nil {
		t.Fatalf("deleting an unknown column should fail")
	}
	if a.Pending() {
		t.Fatalf("failed edits must not schedule a save")
	}
}
