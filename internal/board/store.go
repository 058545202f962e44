package board

import (
	"sort"
	"strings"
	"time"

	"github.com/mellgren/verkstad/internal/domain"
)

// SortBy selects the secondary ordering applied inside each column grouping.
type SortBy string

const (
	SortByNone     SortBy = "none"
	SortByAssignee SortBy = "assignee"
	SortByProcess  SortBy = "process"
)

// Store owns the shared card and column collections. It is the sole writer;
// every mutation funnels through the Coordinator or the autosave so the
// snapshot/rollback invariant holds. The card and column collections are
// independent invalidation domains with their own generation counters.
type Store struct {
	cards  []domain.Card
	config domain.BoardConfig

	cardGen   uint64
	columnGen uint64

	sortBy   SortBy
	grouped  map[string][]domain.Card
	groupGen uint64

	listeners []func()
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{sortBy: SortByNone}
}

// Snapshot is an immutable copy of the card collection taken before an
// optimistic mutation, retained only until that mutation settles.
type Snapshot struct {
	cards []domain.Card
}

// Cards returns the snapshot contents as a fresh deep copy.
func (s Snapshot) Cards() []domain.Card {
	return domain.CloneCards(s.cards)
}

// Subscribe registers a listener invoked after every store change.
func (s *Store) Subscribe(fn func()) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// notify invokes all subscribers and drops the memoized grouping.
func (s *Store) notify() {
	s.grouped = nil
	for _, fn := range s.listeners {
		fn()
	}
}

// Cards returns the live card slice. Callers must not mutate it.
func (s *Store) Cards() []domain.Card {
	return s.cards
}

// Config returns the current board config.
func (s *Store) Config() domain.BoardConfig {
	return s.config
}

// CardGeneration returns the card cache invalidation generation.
func (s *Store) CardGeneration() uint64 {
	return s.cardGen
}

// ColumnGeneration returns the column cache invalidation generation.
func (s *Store) ColumnGeneration() uint64 {
	return s.columnGen
}

// InvalidateCards marks the card collection stale so the next read refetches.
func (s *Store) InvalidateCards() {
	s.cardGen++
}

// InvalidateColumns marks the column collection stale.
func (s *Store) InvalidateColumns() {
	s.columnGen++
}

// ReplaceCards installs an authoritative card collection from the server.
func (s *Store) ReplaceCards(cards []domain.Card) {
	s.cards = domain.CloneCards(cards)
	s.notify()
}

// ReplaceConfig installs an authoritative board config.
func (s *Store) ReplaceConfig(cfg domain.BoardConfig) {
	cfg.Normalize()
	s.config = cfg
	s.notify()
}

// TakeSnapshot deep-copies the current card collection for later rollback.
func (s *Store) TakeSnapshot() Snapshot {
	return Snapshot{cards: domain.CloneCards(s.cards)}
}

// Restore reinstates a snapshot exactly, discarding all later local writes.
func (s *Store) Restore(snap Snapshot) {
	s.cards = domain.CloneCards(snap.cards)
	s.notify()
}

// ApplyMove speculatively points every listed card at targetColumnID and
// returns how many cards actually changed column.
func (s *Store) ApplyMove(cardIDs []string, targetColumnID string, now time.Time) int {
	moved := 0
	want := map[string]struct{}{}
	for _, id := range cardIDs {
		want[id] = struct{}{}
	}
	for i := range s.cards {
		if _, ok := want[s.cards[i].ID]; !ok {
			continue
		}
		if s.cards[i].ColumnID == targetColumnID {
			continue
		}
		s.cards[i].ColumnID = targetColumnID
		s.cards[i].UpdatedAt = now.UTC()
		moved++
	}
	if moved > 0 {
		s.notify()
	}
	return moved
}

// ApplyPatch speculatively applies one field change to every listed card.
func (s *Store) ApplyPatch(cardIDs []string, patch CardPatch, now time.Time) int {
	changed := 0
	want := map[string]struct{}{}
	for _, id := range cardIDs {
		want[id] = struct{}{}
	}
	for i := range s.cards {
		if _, ok := want[s.cards[i].ID]; !ok {
			continue
		}
		if patch.applyTo(&s.cards[i]) {
			s.cards[i].UpdatedAt = now.UTC()
			changed++
		}
	}
	if changed > 0 {
		s.notify()
	}
	return changed
}

// CardByID returns a card by id.
func (s *Store) CardByID(cardID string) (domain.Card, bool) {
	for _, card := range s.cards {
		if card.ID == cardID {
			return card, true
		}
	}
	return domain.Card{}, false
}

// ColumnOf resolves a card id to its current column id.
func (s *Store) ColumnOf(cardID string) (string, bool) {
	card, ok := s.CardByID(cardID)
	if !ok {
		return "", false
	}
	return card.ColumnID, true
}

// SetSortBy changes the in-column secondary ordering.
func (s *Store) SetSortBy(by SortBy) {
	switch by {
	case SortByNone, SortByAssignee, SortByProcess:
	default:
		by = SortByNone
	}
	if s.sortBy == by {
		return
	}
	s.sortBy = by
	s.notify()
}

// SortedBy returns the active secondary ordering.
func (s *Store) SortedBy() SortBy {
	return s.sortBy
}

// CardsForColumn returns the derived grouping for one column, memoized until
// the underlying collection or sort criteria change.
func (s *Store) CardsForColumn(columnID string) []domain.Card {
	if s.grouped == nil {
		s.rebuildGroups()
	}
	return s.grouped[columnID]
}

// CardOrderForColumn returns just the ids of a column's cards in display
// order, which is the order group moves and range selections use.
func (s *Store) CardOrderForColumn(columnID string) []string {
	cards := s.CardsForColumn(columnID)
	out := make([]string, len(cards))
	for i, card := range cards {
		out[i] = card.ID
	}
	return out
}

// rebuildGroups recomputes the per-column grouping from the flat collection.
func (s *Store) rebuildGroups() {
	grouped := make(map[string][]domain.Card, len(s.config.Columns))
	for _, card := range s.cards {
		grouped[card.ColumnID] = append(grouped[card.ColumnID], card)
	}
	if s.sortBy != SortByNone {
		for id := range grouped {
			cards := grouped[id]
			sort.SliceStable(cards, func(i, j int) bool {
				return s.groupKey(cards[i]) < s.groupKey(cards[j])
			})
			grouped[id] = cards
		}
	}
	s.grouped = grouped
}

// groupKey derives the secondary sort key for a card.
func (s *Store) groupKey(card domain.Card) string {
	switch s.sortBy {
	case SortByAssignee:
		return strings.ToLower(card.Assignee)
	case SortByProcess:
		if len(card.ProcessIDs) == 0 {
			return "~" // sort cards without process steps last
		}
		return strings.ToLower(card.ProcessIDs[0])
	default:
		return ""
	}
}
