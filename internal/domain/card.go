package domain

import (
	"slices"
	"strings"
	"time"
)

// Card represents one manufacturing work item on the board. Cards reference
// their column by id only; groupings are derived by filtering on ColumnID.
type Card struct {
	ID               string     `json:"id"`
	ColumnID         string     `json:"columnId"`
	Title            string     `json:"title"`
	Assignee         string     `json:"assignee,omitempty"`
	Machine          string     `json:"machine,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	ProcessIDs       []string   `json:"processIds"`
	QuantityPerRobot int        `json:"quantityPerRobot,omitempty"`
	QuantityToMake   int        `json:"quantityToMake,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CardInput carries the caller-provided fields for a new card. The json
// tags match the create endpoint's payload so clients can post it directly.
type CardInput struct {
	ID               string     `json:"id,omitempty"`
	ColumnID         string     `json:"columnId"`
	Title            string     `json:"title"`
	Assignee         string     `json:"assignee,omitempty"`
	Machine          string     `json:"machine,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	ProcessIDs       []string   `json:"processIds,omitempty"`
	QuantityPerRobot int        `json:"quantityPerRobot,omitempty"`
	QuantityToMake   int        `json:"quantityToMake,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// NewCard constructs a validated card.
func NewCard(in CardInput, now time.Time) (Card, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.ColumnID = strings.TrimSpace(in.ColumnID)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" {
		return Card{}, ErrInvalidID
	}
	if in.ColumnID == "" {
		return Card{}, ErrInvalidColumnID
	}
	if in.Title == "" {
		return Card{}, ErrInvalidTitle
	}
	if in.QuantityPerRobot < 0 || in.QuantityToMake < 0 {
		return Card{}, ErrInvalidQuantity
	}

	return Card{
		ID:               in.ID,
		ColumnID:         in.ColumnID,
		Title:            in.Title,
		Assignee:         strings.TrimSpace(in.Assignee),
		Machine:          strings.TrimSpace(in.Machine),
		DueDate:          normalizeTimePtr(in.DueDate),
		ProcessIDs:       normalizeProcessIDs(in.ProcessIDs),
		QuantityPerRobot: in.QuantityPerRobot,
		QuantityToMake:   in.QuantityToMake,
		Notes:            strings.TrimSpace(in.Notes),
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}, nil
}

// Move points the card at a different column.
func (c *Card) Move(columnID string, now time.Time) error {
	columnID = strings.TrimSpace(columnID)
	if columnID == "" {
		return ErrInvalidColumnID
	}
	c.ColumnID = columnID
	c.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy, including the ProcessIDs slice and DueDate.
func (c Card) Clone() Card {
	out := c
	out.ProcessIDs = append([]string(nil), c.ProcessIDs...)
	out.DueDate = copyTimePtr(c.DueDate)
	return out
}

// CloneCards deep-copies a card collection. Mutation snapshots rely on the
// copy sharing nothing with the source.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	for i, card := range cards {
		out[i] = card.Clone()
	}
	return out
}

// normalizeProcessIDs trims, drops empties, and deduplicates in input order.
func normalizeProcessIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// normalizeTimePtr truncates to UTC seconds so round-trips stay stable.
func normalizeTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := in.UTC().Truncate(time.Second)
	return &t
}

// copyTimePtr copies time ptr.
func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	t := *in
	return &t
}
