package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mellgren/verkstad/internal/board"
	"github.com/mellgren/verkstad/internal/domain"
)

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}
	if !m.ready || !m.loaded {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	dropAccent := lipgloss.Color("78")

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	helpStyle := lipgloss.NewStyle().Foreground(muted)
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	header := titleStyle.Render("verkstad")
	if m.editMode {
		header += statusStyle.Render("  [edit mode]")
	}
	if by := m.store.SortedBy(); by != board.SortByNone {
		header += statusStyle.Render("  grouped: " + string(by))
	}
	if count := m.sel.Count(); count > 0 {
		header += statusStyle.Render(fmt.Sprintf("  selected: %d", count))
	}
	if m.drag.Dragging() {
		_, itemID := m.drag.DraggedItem()
		header += statusStyle.Render("  dragging " + truncate(itemID, 12))
	}

	cols := m.columns()
	cfg := m.store.Config()
	colWidth := m.columnWidthFor(m.width)
	colHeight := m.columnHeight()

	baseColStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dim).
		Padding(1, 2).
		MarginRight(1).
		Width(colWidth)
	selColStyle := baseColStyle.Copy().BorderForeground(accent)
	dropColStyle := baseColStyle.Copy().BorderForeground(dropAccent)
	colTitle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	cursorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	cursorMultiStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	multiStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("237")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	groupStyle := lipgloss.NewStyle().Bold(true).Foreground(muted)
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	columnViews := make([]string, 0, len(cols))
	for colIdx := range cols {
		cards := m.visibleCards(colIdx)
		headerLine := colTitle.Render(fmt.Sprintf("%s (%d)", cfg.DisplayTitle(colIdx), len(cards)))

		cardLines := make([]string, 0, max(1, len(cards)*3))
		selectedStart := -1
		selectedEnd := -1
		if len(cards) == 0 {
			cardLines = append(cardLines, emptyStyle.Render("(empty)"))
		} else {
			prevGroup := ""
			grouped := m.store.SortedBy() != board.SortByNone
			for cardIdx, card := range cards {
				if grouped {
					label := m.groupLabel(card)
					if cardIdx == 0 || label != prevGroup {
						if cardIdx > 0 {
							cardLines = append(cardLines, "")
						}
						cardLines = append(cardLines, groupStyle.Render(label))
						prevGroup = label
					}
				}
				onCursor := colIdx == m.selectedColumn && cardIdx == m.selectedCard
				inSelection := m.sel.Contains(card.ID)

				prefix := "   "
				switch {
				case onCursor && inSelection:
					prefix = "│* "
				case onCursor:
					prefix = "│  "
				case inSelection:
					prefix = " * "
				}
				title := prefix + truncate(card.Title, max(1, colWidth-10))
				sub := cardSecondary(card)
				if sub != "" {
					sub = truncate(sub, max(1, colWidth-10))
				}
				switch {
				case onCursor && inSelection:
					title = cursorMultiStyle.Render(title)
				case onCursor:
					title = cursorStyle.Render(title)
				case inSelection:
					title = multiStyle.Render(title)
				}

				rowStart := len(cardLines)
				cardLines = append(cardLines, title)
				cardLines = append(cardLines, prefix+subStyle.Render(sub))
				if cardIdx < len(cards)-1 {
					cardLines = append(cardLines, "")
				}
				if onCursor {
					selectedStart = rowStart
					selectedEnd = rowStart + 1
				}
			}
		}

		innerHeight := max(1, colHeight-4)
		window := max(1, innerHeight-1)
		scrollTop := 0
		if colIdx == m.selectedColumn && selectedStart >= 0 {
			if selectedEnd >= scrollTop+window {
				scrollTop = selectedEnd - window + 1
			}
			if selectedStart < scrollTop {
				scrollTop = selectedStart
			}
		}
		scrollTop = clamp(scrollTop, 0, max(0, len(cardLines)-window))
		if len(cardLines) > window {
			cardLines = cardLines[scrollTop : scrollTop+window]
		}
		if len(cardLines) < window {
			cardLines = append(cardLines, make([]string, window-len(cardLines))...)
		}

		lines := append([]string{headerLine}, cardLines...)
		content := fitLines(strings.Join(lines, "\n"), innerHeight)
		switch {
		case m.drag.Dragging() && colIdx == m.dropColumn:
			columnViews = append(columnViews, dropColStyle.Render(content))
		case colIdx == m.selectedColumn:
			columnViews = append(columnViews, selColStyle.Render(content))
		default:
			columnViews = append(columnViews, baseColStyle.Render(content))
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, columnViews...)

	sections := []string{header, "", body}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		helpHeight := lipgloss.Height(helpLine)
		content = fitLines(content, max(0, m.height-helpHeight))
	}
	fullContent := content + "\n" + helpLine

	overlay := m.renderModeOverlay(accent, helpStyle, m.width-8)
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(accent, helpStyle, m.width-8)
	}
	if overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.MouseMode = tea.MouseModeCellMotion
	view.AltScreen = true
	return view
}

// renderModeOverlay renders the active prompt or card info box.
func (m Model) renderModeOverlay(accent color.Color, helpStyle lipgloss.Style, width int) string {
	if m.mode == modeNone {
		return ""
	}
	boxWidth := clamp(width, 32, 70)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Width(boxWidth)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)

	switch m.mode {
	case modeCardInfo:
		card, ok := m.store.CardByID(m.infoCardID)
		if !ok {
			return box.Render("work order not found")
		}
		lines := []string{titleStyle.Render(card.Title), ""}
		if card.Assignee != "" {
			lines = append(lines, "operator  "+card.Assignee)
		}
		if card.Machine != "" {
			lines = append(lines, "machine   "+card.Machine)
		}
		if card.DueDate != nil {
			lines = append(lines, "due       "+card.DueDate.Format("2006-01-02"))
		}
		if card.QuantityToMake > 0 {
			qty := fmt.Sprintf("quantity  %d", card.QuantityToMake)
			if card.QuantityPerRobot > 0 {
				qty += fmt.Sprintf(" (%d per robot)", card.QuantityPerRobot)
			}
			lines = append(lines, qty)
		}
		if len(card.ProcessIDs) > 0 {
			lines = append(lines, "process   "+strings.Join(card.ProcessIDs, " → "))
		}
		if notes := m.notes.render(card.Notes, boxWidth-6); notes != "" {
			lines = append(lines, "", notes)
		}
		lines = append(lines, "", helpStyle.Render("y copy • esc close"))
		return box.Render(strings.Join(lines, "\n"))

	case modeConfirmDeleteCard:
		title := m.targetCardID
		if card, ok := m.store.CardByID(m.targetCardID); ok {
			title = card.Title
		}
		return box.Render(fmt.Sprintf(
			"Delete work order %q?\n\n%s", truncate(title, 40), helpStyle.Render("y confirm • n cancel")))

	case modeConfirmDeleteColumn:
		title := m.targetColumnID
		if idx := m.store.Config().ColumnIndex(m.targetColumnID); idx >= 0 {
			title = m.store.Config().Columns[idx].Title
		}
		return box.Render(fmt.Sprintf(
			"Delete column %q?\nCards in it keep their column id until moved.\n\n%s",
			truncate(title, 40), helpStyle.Render("y confirm • n cancel")))
	}

	label := map[inputMode]string{
		modeNewCard:      "New work order",
		modeAssign:       "Assign operator",
		modeMachine:      "Set machine",
		modeBulkAssign:   fmt.Sprintf("Assign operator (%d selected)", m.sel.Count()),
		modeBulkMachine:  fmt.Sprintf("Set machine (%d selected)", m.sel.Count()),
		modeAddColumn:    "Add column",
		modeRenameColumn: "Rename column",
	}[m.mode]
	return box.Render(strings.Join([]string{
		titleStyle.Render(label),
		"",
		m.input.View(),
		"",
		helpStyle.Render("enter save • esc cancel"),
	}, "\n"))
}

// renderHelpOverlay renders the full keybinding list.
func (m Model) renderHelpOverlay(accent color.Color, helpStyle lipgloss.Style, width int) string {
	boxWidth := clamp(width, 40, 90)
	helpBubble := m.help
	helpBubble.ShowAll = true
	helpBubble.SetWidth(boxWidth - 6)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		Width(boxWidth).
		Render(lipgloss.NewStyle().Bold(true).Foreground(accent).Render("Keys") +
			"\n\n" + helpBubble.View(m.keys) +
			"\n\n" + helpStyle.Render("? close"))
}

// cardSecondary formats the one-line detail under a card title.
func cardSecondary(card domain.Card) string {
	parts := make([]string, 0, 3)
	if card.Assignee != "" {
		parts = append(parts, card.Assignee)
	}
	if card.Machine != "" {
		parts = append(parts, card.Machine)
	}
	if card.DueDate != nil {
		parts = append(parts, "due "+card.DueDate.Format("Jan 2"))
	} else if card.QuantityToMake > 0 {
		parts = append(parts, fmt.Sprintf("×%d", card.QuantityToMake))
	}
	return strings.Join(parts, " · ")
}

// hitTest maps a mouse position to a column, card index and whether the
// position is on the column header. The column box arithmetic mirrors the
// render path closely enough for cell-grid hit testing.
func (m Model) hitTest(x, y int) (colIdx, cardIdx int, onHeader bool) {
	cols := m.columns()
	if len(cols) == 0 {
		return -1, -1, false
	}
	colWidth := m.columnWidthFor(m.width) + 5 // border + padding approximation
	colIdx = -1
	for idx := range cols {
		start := idx * (colWidth + 1)
		end := start + colWidth
		if x >= start && x < end {
			colIdx = idx
			break
		}
	}
	if colIdx < 0 {
		return -1, -1, false
	}

	// column content starts after border and padding; the first content
	// row is the header line.
	contentRow := y - m.boardTop() - 2
	if contentRow < 0 {
		return colIdx, -1, false
	}
	if contentRow == 0 {
		return colIdx, -1, true
	}
	rows := m.columnRowMap(colIdx)
	row := contentRow - 1 + m.columnScrollTop(colIdx, rows)
	if row < 0 || row >= len(rows) {
		return colIdx, -1, false
	}
	return colIdx, rows[row], false
}

// columnRowMap maps rendered card rows to card indexes, -1 for blank and
// group header rows. The layout must stay in step with View.
func (m Model) columnRowMap(colIdx int) []int {
	cards := m.visibleCards(colIdx)
	grouped := m.store.SortedBy() != board.SortByNone
	rows := make([]int, 0, len(cards)*3)
	prevGroup := ""
	for i, card := range cards {
		if grouped {
			label := m.groupLabel(card)
			if i == 0 || label != prevGroup {
				if i > 0 {
					rows = append(rows, -1)
				}
				rows = append(rows, -1)
				prevGroup = label
			}
		}
		rows = append(rows, i, i)
		if i < len(cards)-1 {
			rows = append(rows, -1)
		}
	}
	return rows
}

// columnScrollTop computes the scroll offset a column is rendered with.
func (m Model) columnScrollTop(colIdx int, rows []int) int {
	window := max(1, max(1, m.columnHeight()-4)-1)
	if colIdx != m.selectedColumn {
		return 0
	}
	selectedStart := -1
	for row, idx := range rows {
		if idx == m.selectedCard {
			selectedStart = row
			break
		}
	}
	if selectedStart < 0 {
		return 0
	}
	selectedEnd := selectedStart + 1
	scrollTop := 0
	if selectedEnd >= scrollTop+window {
		scrollTop = selectedEnd - window + 1
	}
	if selectedStart < scrollTop {
		scrollTop = selectedStart
	}
	return clamp(scrollTop, 0, max(0, len(rows)-window))
}

// columnWidthFor returns column width for.
func (m Model) columnWidthFor(boardWidth int) int {
	cols := m.columns()
	if len(cols) == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (4), margin-right (1)
		const colOverhead = 7
		usable := boardWidth - len(cols)*colOverhead
		candidate := usable / len(cols)
		if candidate > 0 {
			w = candidate
		}
	}
	if w < 24 {
		return 24
	}
	if w > 42 {
		return 42
	}
	return w
}

// columnHeight returns column height.
func (m Model) columnHeight() int {
	headerLines := 2
	footerLines := 3
	h := m.height - headerLines - footerLines
	if h < 14 {
		return 14
	}
	return h
}

// boardTop handles board top.
func (m Model) boardTop() int {
	// header line plus the spacer above the column boxes
	return 2
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
