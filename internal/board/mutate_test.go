package board

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mellgren/verkstad/internal/domain"
)

type remoteErr struct{ msg string }

func (e remoteErr) Error() string       { return e.msg }
func (e remoteErr) UserMessage() string { return e.msg }

func marshalCards(t *testing.T, st *Store) string {
	t.Helper()
	b, err := json.Marshal(st.Cards())
	if err != nil {
		t.Fatalf("marshal cards: %v", err)
	}
	return string(b)
}

func TestMoveAppliesOptimistically(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	remote := newFakeRemote()
	coord := NewCoordinator(st, remote)

	mut, err := coord.BeginMove([]string{"a"}, "running", testNow)
	if err != nil {
		t.Fatalf("BeginMove() error = %v", err)
	}
	if col, _ := st.ColumnOf("a"); col != "running" {
		t.Fatalf("card column = %q before the request settles, want running", col)
	}

	if err := mut.Do(context.Background()); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	notice, rolledBack := coord.Settle(mut, nil)
	if notice != "" || rolledBack {
		t.Fatalf("Settle(success) = (%q, %v), want no rollback", notice, rolledBack)
	}
	if col, _ := st.ColumnOf("a"); col != "running" {
		t.Fatalf("card column = %q after settle, want running", col)
	}
	if remote.moveCount() != 1 {
		t.Fatalf("move calls = %d, want 1", remote.moveCount())
	}
}

func TestFailedMoveRollsBackExactly(t *testing.T) {
	st := seedStore(
		seedCard("a", "backlog", "Plate"),
		seedCard("b", "programming", "Bracket"),
	)
	before := marshalCards(t, st)

	remote := newFakeRemote()
	remote.moveErr["a"] = remoteErr{msg: "column is locked"}
	coord := NewCoordinator(st, remote)

	mut, err := coord.BeginMove([]string{"a"}, "running", testNow)
	if err != nil {
		t.Fatalf("BeginMove() error = %v", err)
	}
	doErr := mut.Do(context.Background())
	if doErr == nil {
		t.Fatalf("Do() should fail")
	}

	notice, rolledBack := coord.Settle(mut, doErr)
	if !rolledBack {
		t.Fatalf("Settle(failure) should roll back")
	}
	if notice != "column is locked" {
		t.Fatalf("notice = %q, want the server message", notice)
	}
	if after := marshalCards(t, st); after != before {
		t.Fatalf("rollback mismatch:\n before %s\n after  %s", before, after)
	}
}

func TestFailedMoveGenericNotice(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	coord := NewCoordinator(st, newFakeRemote())

	mut, err := coord.BeginMove([]string{"a"}, "running", testNow)
	if err != nil {
		t.Fatalf("BeginMove() error = %v", err)
	}
	notice, _ := coord.Settle(mut, errors.New("connection refused"))
	if notice != "Move failed, changes reverted" {
		t.Fatalf("notice = %q, want generic message", notice)
	}
}

func TestNoOpMoveIssuesNoRequest(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	remote := newFakeRemote()
	coord := NewCoordinator(st, remote)

	if _, err := coord.BeginMove([]string{"a"}, "backlog", testNow); !errors.Is(err, ErrNoChange) {
		t.Fatalf("BeginMove(no-op) error = %v, want ErrNoChange", err)
	}
	if remote.moveCount() != 0 {
		t.Fatalf("move calls = %d, want 0", remote.moveCount())
	}
}

func TestSettleInvalidatesCardCacheBothWays(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	coord := NewCoordinator(st, newFakeRemote())

	gen := st.CardGeneration()
	mut, _ := coord.BeginMove([]string{"a"}, "running", testNow)
	coord.Settle(mut, nil)
	if st.CardGeneration() == gen {
		t.Fatalf("successful settle should invalidate the card cache")
	}

	gen = st.CardGeneration()
	mut, _ = coord.BeginMove([]string{"a"}, "backlog", testNow)
	coord.Settle(mut, errors.New("boom"))
	if st.CardGeneration() == gen {
		t.Fatalf("failed settle should invalidate the card cache")
	}
}

func TestMutationCancelsInFlightRefetch(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	coord := NewCoordinator(st, newFakeRemote())

	handle := coord.StartRefetch()
	mut, err := coord.BeginMove([]string{"a"}, "running", testNow)
	if err != nil {
		t.Fatalf("BeginMove() error = %v", err)
	}

	// The stale read arrives after the optimistic write and must be dropped.
	if coord.AdoptCards(handle, []domain.Card{seedCard("a", "backlog", "Plate")}) {
		t.Fatalf("stale refetch result should not be adopted")
	}
	if col, _ := st.ColumnOf("a"); col != "running" {
		t.Fatalf("card column = %q, speculative write was clobbered", col)
	}
	coord.Settle(mut, nil)

	fresh := coord.StartRefetch()
	if !coord.AdoptCards(fresh, []domain.Card{seedCard("a", "running", "Plate")}) {
		t.Fatalf("fresh refetch result should be adopted")
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	st := seedStore(seedCard("a", "backlog", "Plate"))
	coord := NewCoordinator(st, newFakeRemote())

	mut, _ := coord.BeginMove([]string{"a"}, "running", testNow)
	coord.Settle(mut, errors.New("boom"))
	moved := st.ApplyMove([]string{"a"}, "setup", testNow)
	if moved != 1 {
		t.Fatalf("ApplyMove() = %d, want 1", moved)
	}

	// A second settle of the same mutation must not restore the old snapshot.
	coord.Settle(mut, errors.New("boom"))
	if col, _ := st.ColumnOf("a"); col != "setup" {
		t.Fatalf("card column = %q, duplicate settle re-applied the snapshot", col)
	}
}
