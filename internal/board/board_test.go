package board

import (
	"context"
	"sync"
	"time"

	"github.com/mellgren/verkstad/internal/domain"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type moveCall struct {
	cardID   string
	columnID string
}

type fakeRemote struct {
	mu        sync.Mutex
	cards     []domain.Card
	moves     []moveCall
	moveErr   map[string]error
	patches   map[string][]CardPatch
	patchErr  map[string]error
	assigns   map[string]string
	assignErr map[string]error
	configs   []domain.BoardConfig
	listCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		moveErr:   map[string]error{},
		patches:   map[string][]CardPatch{},
		patchErr:  map[string]error{},
		assigns:   map[string]string{},
		assignErr: map[string]error{},
	}
}

func (f *fakeRemote) ListCards(context.Context) ([]domain.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return domain.CloneCards(f.cards), nil
}

func (f *fakeRemote) MoveCard(_ context.Context, cardID, columnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.moveErr[cardID]; err != nil {
		return err
	}
	f.moves = append(f.moves, moveCall{cardID: cardID, columnID: columnID})
	return nil
}

func (f *fakeRemote) PatchCard(_ context.Context, cardID string, patch CardPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.patchErr[cardID]; err != nil {
		return err
	}
	f.patches[cardID] = append(f.patches[cardID], patch)
	return nil
}

func (f *fakeRemote) AssignCard(_ context.Context, cardID, assignee string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.assignErr[cardID]; err != nil {
		return err
	}
	f.assigns[cardID] = assignee
	return nil
}

func (f *fakeRemote) PutBoardConfig(_ context.Context, cfg domain.BoardConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg.Clone())
	return nil
}

func (f *fakeRemote) moveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moves)
}

func seedCard(id, columnID, title string) domain.Card {
	card, err := domain.NewCard(domain.CardInput{ID: id, ColumnID: columnID, Title: title}, testNow)
	if err != nil {
		panic(err)
	}
	return card
}

func seedStore(cards ...domain.Card) *Store {
	st := NewStore()
	st.ReplaceConfig(domain.DefaultBoardConfig())
	st.ReplaceCards(cards)
	return st
}
