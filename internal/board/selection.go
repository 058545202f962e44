package board

// SelectionModel tracks the multi-select state for one column at a time.
// Selection never spans columns; clicking into another column discards it
// and starts over there.
//
// Shift-clicks extend from the anchor, the last plainly clicked card. A
// later shift-click recomputes the range from that same anchor, so the
// range narrows or extends instead of accumulating; cards toggled on before
// the range began stay selected throughout.
type SelectionModel struct {
	columnID string
	selected map[string]struct{}
	base     map[string]struct{}
	anchorID string
}

// NewSelectionModel returns an empty selection.
func NewSelectionModel() *SelectionModel {
	return &SelectionModel{
		selected: map[string]struct{}{},
		base:     map[string]struct{}{},
	}
}

// Click applies one card click to the selection. columnOrder is the clicked
// column's card ids in display order, consulted for shift ranges. Plain and
// ctrl clicks behave identically; only shift changes the algorithm.
func (m *SelectionModel) Click(cardID, columnID string, shift bool, columnOrder []string) {
	if m.columnID != "" && columnID != m.columnID {
		m.reset(columnID)
		m.toggle(cardID)
		return
	}
	m.columnID = columnID
	if shift && m.anchorID != "" {
		m.applyRange(cardID, columnOrder)
		return
	}
	m.toggle(cardID)
}

// toggle flips one card's membership and rebases the shift range on it.
func (m *SelectionModel) toggle(cardID string) {
	if _, ok := m.selected[cardID]; ok {
		delete(m.selected, cardID)
		if len(m.selected) == 0 {
			m.anchorID = ""
			m.columnID = ""
		}
	} else {
		m.selected[cardID] = struct{}{}
		m.anchorID = cardID
	}
	m.base = cloneIDSet(m.selected)
}

// applyRange sets the selection to the base plus the inclusive run between
// the anchor and the clicked card.
func (m *SelectionModel) applyRange(cardID string, columnOrder []string) {
	ai, ti := -1, -1
	for i, id := range columnOrder {
		if id == m.anchorID {
			ai = i
		}
		if id == cardID {
			ti = i
		}
	}
	if ai == -1 || ti == -1 {
		m.toggle(cardID)
		return
	}
	if ai > ti {
		ai, ti = ti, ai
	}
	m.selected = cloneIDSet(m.base)
	for _, id := range columnOrder[ai : ti+1] {
		m.selected[id] = struct{}{}
	}
}

// reset clears the selection and rebinds it to a column.
func (m *SelectionModel) reset(columnID string) {
	m.columnID = columnID
	m.selected = map[string]struct{}{}
	m.base = map[string]struct{}{}
	m.anchorID = ""
}

// Clear empties the selection entirely.
func (m *SelectionModel) Clear() {
	m.reset("")
}

// ColumnID returns the column the selection is bound to, or "" when empty.
func (m *SelectionModel) ColumnID() string {
	if len(m.selected) == 0 {
		return ""
	}
	return m.columnID
}

// Anchor returns the current range anchor, or "" when none.
func (m *SelectionModel) Anchor() string {
	return m.anchorID
}

// Contains reports whether a card is selected.
func (m *SelectionModel) Contains(cardID string) bool {
	_, ok := m.selected[cardID]
	return ok
}

// Count returns the number of selected cards.
func (m *SelectionModel) Count() int {
	return len(m.selected)
}

// IDs returns the selected card ids in the given display order. Members
// missing from the order are appended at the end so a stale order never
// drops any.
func (m *SelectionModel) IDs(columnOrder []string) []string {
	out := make([]string, 0, len(m.selected))
	seen := map[string]struct{}{}
	for _, id := range columnOrder {
		if _, ok := m.selected[id]; ok {
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	for id := range m.selected {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Retain drops selected ids that no longer exist on the board.
func (m *SelectionModel) Retain(existing map[string]struct{}) {
	for id := range m.selected {
		if _, ok := existing[id]; !ok {
			delete(m.selected, id)
			delete(m.base, id)
		}
	}
	if _, ok := m.selected[m.anchorID]; !ok {
		m.anchorID = ""
	}
	if len(m.selected) == 0 {
		m.columnID = ""
	}
}

func cloneIDSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for id := range in {
		out[id] = struct{}{}
	}
	return out
}
