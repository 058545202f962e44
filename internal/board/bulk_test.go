package board

import (
	"context"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestBulkPartialFailureReportsCount(t *testing.T) {
	cards := []string{"a", "b", "c", "d", "e"}
	remote := newFakeRemote()
	remote.assignErr["b"] = remoteErr{msg: "operator unknown"}
	remote.assignErr["d"] = remoteErr{msg: "operator unknown"}

	bulk := NewBulkEditCoordinator(seedStore(), remote)
	res := bulk.Run(context.Background(), cards, BulkAction{Assignee: strPtr("malin")})

	if res.Total != 5 || res.Failed != 2 {
		t.Fatalf("result = %+v, want 2 of 5 failed", res)
	}
	if got := res.Notice(); got != "2 of 5 cards failed" {
		t.Fatalf("Notice() = %q", got)
	}
	for _, id := range []string{"a", "c", "e"} {
		if remote.assigns[id] != "malin" {
			t.Fatalf("card %s should keep its successful update", id)
		}
	}
}

func TestBulkFullSuccessHasNoNotice(t *testing.T) {
	remote := newFakeRemote()
	bulk := NewBulkEditCoordinator(seedStore(), remote)
	res := bulk.Run(context.Background(), []string{"a", "b"}, BulkAction{Machine: strPtr("haas-3")})
	if res.Failed != 0 {
		t.Fatalf("result = %+v, want no failures", res)
	}
	if res.Notice() != "" {
		t.Fatalf("Notice() = %q, want empty", res.Notice())
	}
	if len(remote.patches["a"]) != 1 || len(remote.patches["b"]) != 1 {
		t.Fatalf("each card should get exactly one request")
	}
}

func TestBulkMoveClearsSelectionOnFullSuccess(t *testing.T) {
	st := seedStore(
		seedCard("a", "backlog", "Plate"),
		seedCard("b", "backlog", "Bracket"),
	)
	remote := newFakeRemote()
	bulk := NewBulkEditCoordinator(st, remote)

	sel := NewSelectionModel()
	order := st.CardOrderForColumn("backlog")
	sel.Click("a", "backlog", false, order)
	sel.Click("b", "backlog", false, order)

	gen := st.CardGeneration()
	res := bulk.Run(context.Background(), sel.IDs(order), BulkAction{ColumnID: strPtr("setup")})
	bulk.Finish(res, sel)

	if sel.Count() != 0 {
		t.Fatalf("selection should clear after a fully successful move")
	}
	if st.CardGeneration() == gen {
		t.Fatalf("card cache should be invalidated after the batch")
	}
}

func TestBulkMoveKeepsSelectionOnPartialFailure(t *testing.T) {
	st := seedStore(
		seedCard("a", "backlog", "Plate"),
		seedCard("b", "backlog", "Bracket"),
	)
	remote := newFakeRemote()
	remote.moveErr["b"] = remoteErr{msg: "column is locked"}
	bulk := NewBulkEditCoordinator(st, remote)

	sel := NewSelectionModel()
	order := st.CardOrderForColumn("backlog")
	sel.Click("a", "backlog", false, order)
	sel.Click("b", "backlog", false, order)

	res := bulk.Run(context.Background(), sel.IDs(order), BulkAction{ColumnID: strPtr("setup")})
	bulk.Finish(res, sel)

	if res.Notice() != "1 of 2 cards failed" {
		t.Fatalf("Notice() = %q", res.Notice())
	}
	if sel.Count() != 2 {
		t.Fatalf("partial failure should leave the selection intact")
	}
}

func TestBulkEmptySelectionIsNoOp(t *testing.T) {
	remote := newFakeRemote()
	bulk := NewBulkEditCoordinator(seedStore(), remote)
	res := bulk.Run(context.Background(), nil, BulkAction{Assignee: strPtr("malin")})
	if res.Total != 0 || res.Failed != 0 {
		t.Fatalf("result = %+v, want zero work", res)
	}
}
