package board

import (
	"context"
	"errors"
	"time"

	"github.com/mellgren/verkstad/internal/domain"
)

// Remote is the slice of the server API the board engine drives. The
// concrete implementation lives in internal/api.
type Remote interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	MoveCard(ctx context.Context, cardID, columnID string) error
	PatchCard(ctx context.Context, cardID string, patch CardPatch) error
	AssignCard(ctx context.Context, cardID, assignee string) error
	PutBoardConfig(ctx context.Context, cfg domain.BoardConfig) error
}

// UserMessager is implemented by remote errors that carry a server-provided
// message fit to show the user.
type UserMessager interface {
	UserMessage() string
}

// CardPatch is one field change applied to a card, both speculatively in the
// store and as the PATCH request body.
type CardPatch struct {
	Assignee *string `json:"assignee,omitempty"`
	Machine  *string `json:"machine,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// applyTo writes the patch into a card and reports whether anything changed.
func (p CardPatch) applyTo(card *domain.Card) bool {
	changed := false
	if p.Assignee != nil && card.Assignee != *p.Assignee {
		card.Assignee = *p.Assignee
		changed = true
	}
	if p.Machine != nil && card.Machine != *p.Machine {
		card.Machine = *p.Machine
		changed = true
	}
	if p.Notes != nil && card.Notes != *p.Notes {
		card.Notes = *p.Notes
		changed = true
	}
	return changed
}

// Mutation is one in-flight optimistic write. The local state already
// reflects it; Do issues the network request and Settle commits or rolls
// back.
type Mutation struct {
	snapshot Snapshot
	do       func(ctx context.Context) error
	cardIDs  []string
	settled  bool
}

// Do issues the mutation's network request.
func (m *Mutation) Do(ctx context.Context) error {
	return m.do(ctx)
}

// CardIDs returns the ids the mutation touches.
func (m *Mutation) CardIDs() []string {
	return m.cardIDs
}

// Coordinator executes card mutations optimistically against the store. It
// runs entirely on the event loop thread; only Mutation.Do is called from a
// command goroutine.
type Coordinator struct {
	store      *Store
	remote     Remote
	refetchGen uint64
}

// NewCoordinator wires a coordinator to its store and remote.
func NewCoordinator(store *Store, remote Remote) *Coordinator {
	return &Coordinator{store: store, remote: remote}
}

// ErrNoChange is returned when a mutation would not alter any card, so no
// network request is issued.
var ErrNoChange = errors.New("mutation changes nothing")

// BeginMove starts an optimistic column move for one or more cards. The
// local state is updated before this returns; the caller then runs
// Mutation.Do off the loop and feeds the result back through Settle.
func (c *Coordinator) BeginMove(cardIDs []string, targetColumnID string, now time.Time) (*Mutation, error) {
	c.CancelRefetch()
	snap := c.store.TakeSnapshot()
	if c.store.ApplyMove(cardIDs, targetColumnID, now) == 0 {
		return nil, ErrNoChange
	}
	ids := append([]string(nil), cardIDs...)
	return &Mutation{
		snapshot: snap,
		cardIDs:  ids,
		do: func(ctx context.Context) error {
			for _, id := range ids {
				if err := c.remote.MoveCard(ctx, id, targetColumnID); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// BeginPatch starts an optimistic field update for one card.
func (c *Coordinator) BeginPatch(cardID string, patch CardPatch, now time.Time) (*Mutation, error) {
	c.CancelRefetch()
	snap := c.store.TakeSnapshot()
	if c.store.ApplyPatch([]string{cardID}, patch, now) == 0 {
		return nil, ErrNoChange
	}
	return &Mutation{
		snapshot: snap,
		cardIDs:  []string{cardID},
		do: func(ctx context.Context) error {
			return c.remote.PatchCard(ctx, cardID, patch)
		},
	}, nil
}

// Settle finishes a mutation. On failure the snapshot is restored exactly
// and a user-facing notice is returned. The card cache is invalidated either
// way so the next refetch reconciles with the server.
func (c *Coordinator) Settle(mut *Mutation, err error) (notice string, rolledBack bool) {
	if mut == nil || mut.settled {
		return "", false
	}
	mut.settled = true
	defer c.store.InvalidateCards()
	if err == nil {
		return "", false
	}
	c.store.Restore(mut.snapshot)
	return NoticeFor(err), true
}

// NoticeFor renders an error as a user-facing failure message, preferring
// the server-provided text when the remote attached one.
func NoticeFor(err error) string {
	var um UserMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return "Move failed, changes reverted"
}

// RefetchHandle identifies one scheduled refetch. A handle from before the
// latest cancellation is stale and its result must be dropped.
type RefetchHandle uint64

// StartRefetch marks the beginning of a card collection refetch.
func (c *Coordinator) StartRefetch() RefetchHandle {
	return RefetchHandle(c.refetchGen)
}

// CancelRefetch invalidates every outstanding refetch handle. Called before
// each optimistic write so a stale read cannot clobber the speculative
// state.
func (c *Coordinator) CancelRefetch() {
	c.refetchGen++
}

// AdoptCards installs a refetch result unless the handle was cancelled in
// the meantime. It reports whether the result was adopted.
func (c *Coordinator) AdoptCards(h RefetchHandle, cards []domain.Card) bool {
	if uint64(h) != c.refetchGen {
		return false
	}
	c.store.ReplaceCards(cards)
	return true
}

// FetchCards runs the actual network read for a refetch.
func (c *Coordinator) FetchCards(ctx context.Context) ([]domain.Card, error) {
	return c.remote.ListCards(ctx)
}
