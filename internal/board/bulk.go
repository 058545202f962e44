package board

import (
	"context"
	"fmt"
	"sync"
)

// BulkAction is one field change applied to every selected card. Exactly one
// field should be set.
type BulkAction struct {
	Assignee *string
	Machine  *string
	ColumnID *string
}

// isMove reports whether the action moves cards between columns.
func (a BulkAction) isMove() bool {
	return a.ColumnID != nil
}

// BulkResult summarizes one finished batch.
type BulkResult struct {
	Total  int
	Failed int
	Move   bool
}

// Notice renders the partial failure summary, or "" when everything
// succeeded.
func (r BulkResult) Notice() string {
	if r.Failed == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d cards failed", r.Failed, r.Total)
}

// BulkEditCoordinator applies one field change to every card in the current
// selection, issuing one request per card with no batch endpoint. Partial
// failure is tolerated and reported as a count; successes are not rolled
// back.
type BulkEditCoordinator struct {
	store  *Store
	remote Remote
}

// NewBulkEditCoordinator wires the coordinator to its store and remote.
func NewBulkEditCoordinator(store *Store, remote Remote) *BulkEditCoordinator {
	return &BulkEditCoordinator{store: store, remote: remote}
}

// Run fans the action out over the card set, one concurrent request per
// card, and waits for all of them. It is called from a command goroutine,
// never from the event loop.
func (b *BulkEditCoordinator) Run(ctx context.Context, cardIDs []string, act BulkAction) BulkResult {
	res := BulkResult{Total: len(cardIDs), Move: act.isMove()}
	if len(cardIDs) == 0 {
		return res
	}

	errs := make(chan error, len(cardIDs))
	var wg sync.WaitGroup
	for _, id := range cardIDs {
		wg.Add(1)
		go func(cardID string) {
			defer wg.Done()
			errs <- b.apply(ctx, cardID, act)
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			res.Failed++
		}
	}
	return res
}

// apply issues the single request for one card.
func (b *BulkEditCoordinator) apply(ctx context.Context, cardID string, act BulkAction) error {
	switch {
	case act.ColumnID != nil:
		return b.remote.MoveCard(ctx, cardID, *act.ColumnID)
	case act.Assignee != nil:
		return b.remote.AssignCard(ctx, cardID, *act.Assignee)
	case act.Machine != nil:
		return b.remote.PatchCard(ctx, cardID, CardPatch{Machine: act.Machine})
	}
	return nil
}

// Finish settles a batch on the event loop thread. The card collection is
// invalidated regardless of outcome; a fully successful move also clears the
// selection.
func (b *BulkEditCoordinator) Finish(res BulkResult, sel *SelectionModel) {
	b.store.InvalidateCards()
	if res.Move && res.Failed == 0 && sel != nil {
		sel.Clear()
	}
}
