package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"

	"github.com/mellgren/verkstad/internal/board"
	"github.com/mellgren/verkstad/internal/domain"
)

// remoteTimeout bounds every request issued from the update loop.
const remoteTimeout = 10 * time.Second

// Service represents service data used by this package.
type Service interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	CreateCard(ctx context.Context, in domain.CardInput) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
	MoveCard(ctx context.Context, cardID, columnID string) error
	PatchCard(ctx context.Context, cardID string, patch board.CardPatch) error
	AssignCard(ctx context.Context, cardID, assignee string) error
	GetBoardConfig(ctx context.Context) (domain.BoardConfig, error)
	PutBoardConfig(ctx context.Context, cfg domain.BoardConfig) error
}

type inputMode int

const (
	modeNone inputMode = iota
	modeNewCard
	modeAssign
	modeMachine
	modeBulkAssign
	modeBulkMachine
	modeAddColumn
	modeRenameColumn
	modeConfirmDeleteCard
	modeConfirmDeleteColumn
	modeCardInfo
)

type Model struct {
	svc Service

	ready  bool
	width  int
	height int
	err    error

	status string

	help help.Model
	keys keyMap

	now      func() time.Time
	copyText func(string) error

	autosaveQuiet time.Duration
	doneMaxAge    time.Duration

	store    *board.Store
	sel      *board.SelectionModel
	drag     *board.DragController
	coord    *board.Coordinator
	bulk     *board.BulkEditCoordinator
	autosave *board.ColumnConfigAutosave

	selectedColumn int
	selectedCard   int
	editMode       bool
	loaded         bool

	mode           inputMode
	input          textinput.Model
	targetColumnID string
	targetCardID   string
	infoCardID     string

	// dropColumn is the column index under the pointer during an active
	// drag, -1 otherwise.
	dropColumn int

	// pressCardID holds a plain card press whose selection toggle is
	// deferred until release, in case the gesture becomes a drag.
	pressCardID   string
	pressColumnID string

	notes notesRenderer
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	cards  []domain.Card
	config domain.BoardConfig
	err    error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err    error
	status string
	reload bool
}

// settledMsg reports how an optimistic mutation settled. A non-empty
// notice means the write failed and the local state was rolled back.
type settledMsg struct {
	notice  string
	status  string
	refetch bool
	group   bool
}

// refetchedMsg carries the card collection fetched after a settled write.
type refetchedMsg struct {
	handle board.RefetchHandle
	cards  []domain.Card
	err    error
}

// autosaveTickMsg fires when a column edit's quiet period elapses.
type autosaveTickMsg struct {
	seq uint64
}

// autosaveSavedMsg reports the outcome of one column layout write.
type autosaveSavedMsg struct {
	seq uint64
	cfg domain.BoardConfig
	err error
}

// bulkDoneMsg carries the per-card outcome of a bulk edit.
type bulkDoneMsg struct {
	result board.BulkResult
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	store := board.NewStore()
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		now:           func() time.Time { return time.Now().UTC() },
		copyText:      clipboard.WriteAll,
		autosaveQuiet: board.AutosaveQuietPeriod,
		doneMaxAge:    domain.DoneColumnMaxAge,
		store:         store,
		sel:           board.NewSelectionModel(),
		drag:          board.NewDragController(),
		coord:         board.NewCoordinator(store, svc),
		bulk:          board.NewBulkEditCoordinator(store, svc),
		autosave:      board.NewColumnConfigAutosave(store),
		dropColumn:    -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			if !m.loaded {
				m.err = msg.err
				return m, nil
			}
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		m.err = nil
		if m.loaded {
			m.autosave.SyncExternal(msg.config)
		} else {
			m.store.ReplaceConfig(msg.config)
		}
		m.store.ReplaceCards(msg.cards)
		m.loaded = true
		m.retainSelection()
		m.clampCursor()
		if m.status == "" || m.status == "loading..." || m.status == "reloading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case settledMsg:
		if msg.notice != "" {
			m.status = msg.notice
			m.retainSelection()
			m.clampCursor()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if msg.group {
			m.sel.Clear()
		}
		if msg.refetch {
			handle := m.coord.StartRefetch()
			return m, m.fetchCards(handle)
		}
		return m, nil

	case refetchedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		if m.coord.AdoptCards(msg.handle, msg.cards) {
			m.retainSelection()
			m.clampCursor()
		}
		return m, nil

	case autosaveTickMsg:
		cfg, ok := m.autosave.Fire(msg.seq)
		if !ok {
			return m, nil
		}
		return m, m.saveConfig(msg.seq, cfg)

	case autosaveSavedMsg:
		if msg.err != nil {
			m.status = "column save failed: " + msg.err.Error()
			return m, nil
		}
		m.autosave.NotePersisted(msg.cfg)
		m.status = "columns saved"
		return m, nil

	case bulkDoneMsg:
		m.bulk.Finish(msg.result, m.sel)
		if msg.result.Failed > 0 {
			m.status = msg.result.Notice()
		} else {
			m.status = fmt.Sprintf("%d work orders updated", msg.result.Total)
		}
		handle := m.coord.StartRefetch()
		return m, m.fetchCards(handle)

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	default:
		return m, nil
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
	defer cancel()
	cfg, err := m.svc.GetBoardConfig(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	cards, err := m.svc.ListCards(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{cards: cards, config: cfg}
}

// fetchCards refreshes the card collection after a settled write. The
// handle keeps a stale response from clobbering a newer local state.
func (m Model) fetchCards(handle board.RefetchHandle) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		cards, err := m.coord.FetchCards(ctx)
		return refetchedMsg{handle: handle, cards: cards, err: err}
	}
}

// saveConfig writes the column layout to the server.
func (m Model) saveConfig(seq uint64, cfg domain.BoardConfig) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		err := m.svc.PutBoardConfig(ctx, cfg)
		return autosaveSavedMsg{seq: seq, cfg: cfg, err: err}
	}
}

// settle runs an optimistic mutation's network write and settles it.
func (m Model) settle(mut *board.Mutation, okStatus string, group bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		err := mut.Do(ctx)
		notice, _ := m.coord.Settle(mut, err)
		if err != nil {
			return settledMsg{notice: notice}
		}
		return settledMsg{status: okStatus, refetch: true, group: group}
	}
}

// beginMove applies a card move speculatively and kicks off the write.
func (m *Model) beginMove(cardIDs []string, targetColumnID string) tea.Cmd {
	mut, err := m.coord.BeginMove(cardIDs, targetColumnID, m.now())
	if err != nil {
		if !errors.Is(err, board.ErrNoChange) {
			m.status = err.Error()
		}
		return nil
	}
	m.clampCursor()
	status := "work order moved"
	if len(cardIDs) > 1 {
		status = fmt.Sprintf("%d work orders moved", len(cardIDs))
	}
	return m.settle(mut, status, len(cardIDs) > 1)
}

// beginPatch applies a field change speculatively and kicks off the write.
func (m *Model) beginPatch(cardID string, patch board.CardPatch, okStatus string) tea.Cmd {
	mut, err := m.coord.BeginPatch(cardID, patch, m.now())
	if err != nil {
		if !errors.Is(err, board.ErrNoChange) {
			m.status = err.Error()
		}
		return nil
	}
	return m.settle(mut, okStatus, false)
}

// runBulk fans the action out over the selection on a background goroutine.
func (m Model) runBulk(cardIDs []string, act board.BulkAction) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		return bulkDoneMsg{result: m.bulk.Run(ctx, cardIDs, act)}
	}
}

// createCard posts a new work order into the given column.
func (m Model) createCard(columnID, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if _, err := m.svc.CreateCard(ctx, domain.CardInput{ColumnID: columnID, Title: title}); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "work order created", reload: true}
	}
}

// deleteCard removes a work order.
func (m Model) deleteCard(cardID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := m.svc.DeleteCard(ctx, cardID); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "work order deleted", reload: true}
	}
}

// autosaveTick schedules the quiet-period check for one layout edit.
func (m Model) autosaveTick(seq uint64) tea.Cmd {
	return tea.Tick(m.autosaveQuiet, func(time.Time) tea.Msg {
		return autosaveTickMsg{seq: seq}
	})
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		if m.help.ShowAll {
			m.status = "help"
		} else {
			m.status = "ready"
		}
		return m, nil

	case msg.String() == "esc":
		if m.help.ShowAll {
			m.help.ShowAll = false
			m.status = "ready"
			return m, nil
		}
		if m.drag.Dragging() {
			m.drag.Cancel()
			m.dropColumn = -1
			m.status = "drag cancelled"
			return m, nil
		}
		if count := m.sel.Count(); count > 0 {
			m.sel.Clear()
			m.status = fmt.Sprintf("cleared %d selected", count)
			return m, nil
		}
		if m.editMode {
			return m.setEditMode(false)
		}
		return m, nil

	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData

	case key.Matches(msg, m.keys.moveLeft):
		if m.selectedColumn > 0 {
			m.selectedColumn--
			m.selectedCard = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.moveRight):
		if m.selectedColumn < len(m.columns())-1 {
			m.selectedColumn++
			m.selectedCard = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.moveDown):
		cards := m.visibleCards(m.selectedColumn)
		if len(cards) > 0 && m.selectedCard < len(cards)-1 {
			m.selectedCard++
		}
		return m, nil

	case key.Matches(msg, m.keys.moveUp):
		if m.selectedCard > 0 {
			m.selectedCard--
		}
		return m, nil

	case key.Matches(msg, m.keys.toggleSelect):
		return m.selectCursorCard(false)

	case key.Matches(msg, m.keys.rangeSelect):
		return m.selectCursorCard(true)

	case key.Matches(msg, m.keys.moveCardLeft):
		return m.moveCursorCards(-1)

	case key.Matches(msg, m.keys.moveCardRight):
		return m.moveCursorCards(1)

	case key.Matches(msg, m.keys.newCard):
		cols := m.columns()
		if len(cols) == 0 {
			m.status = "no columns"
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modeNewCard
		m.targetColumnID = cols[clamp(m.selectedColumn, 0, len(cols)-1)].ID
		m.input = newModalInput("title: ", "work order title", "", 120)
		return m, nil

	case key.Matches(msg, m.keys.deleteCard):
		card, ok := m.cursorCard()
		if !ok {
			m.status = "no work order selected"
			return m, nil
		}
		m.mode = modeConfirmDeleteCard
		m.targetCardID = card.ID
		return m, nil

	case key.Matches(msg, m.keys.cardInfo):
		card, ok := m.cursorCard()
		if !ok {
			m.status = "no work order selected"
			return m, nil
		}
		m.help.ShowAll = false
		m.mode = modeCardInfo
		m.infoCardID = card.ID
		return m, nil

	case key.Matches(msg, m.keys.copyCard):
		card, ok := m.cursorCard()
		if !ok {
			m.status = "no work order selected"
			return m, nil
		}
		if err := m.copyText(cardSummary(card)); err != nil {
			m.status = "copy failed: " + err.Error()
		} else {
			m.status = fmt.Sprintf("copied %q", truncate(card.Title, 28))
		}
		return m, nil

	case key.Matches(msg, m.keys.assign):
		return m.startFieldEdit(modeAssign, modeBulkAssign, "operator: ", "operator name")

	case key.Matches(msg, m.keys.machine):
		return m.startFieldEdit(modeMachine, modeBulkMachine, "machine: ", "machine id")

	case key.Matches(msg, m.keys.cycleSort):
		next := board.SortByNone
		switch m.store.SortedBy() {
		case board.SortByNone:
			next = board.SortByAssignee
		case board.SortByAssignee:
			next = board.SortByProcess
		}
		m.store.SetSortBy(next)
		m.status = "grouped by " + string(next)
		return m, nil

	case key.Matches(msg, m.keys.editMode):
		return m.setEditMode(!m.editMode)

	case key.Matches(msg, m.keys.addColumn):
		if !m.editMode {
			m.status = "edit mode required (E)"
			return m, nil
		}
		m.mode = modeAddColumn
		m.input = newModalInput("column: ", "column title", "", 60)
		return m, nil

	case key.Matches(msg, m.keys.renameColumn):
		if !m.editMode {
			m.status = "edit mode required (E)"
			return m, nil
		}
		cols := m.columns()
		if len(cols) == 0 {
			return m, nil
		}
		col := cols[clamp(m.selectedColumn, 0, len(cols)-1)]
		m.mode = modeRenameColumn
		m.targetColumnID = col.ID
		m.input = newModalInput("rename: ", "column title", col.Title, 60)
		return m, nil

	case key.Matches(msg, m.keys.deleteColumn):
		if !m.editMode {
			m.status = "edit mode required (E)"
			return m, nil
		}
		cols := m.columns()
		if len(cols) == 0 {
			return m, nil
		}
		m.mode = modeConfirmDeleteColumn
		m.targetColumnID = cols[clamp(m.selectedColumn, 0, len(cols)-1)].ID
		return m, nil

	case key.Matches(msg, m.keys.moveColumnLeft):
		return m.reorderSelectedColumn(-1)

	case key.Matches(msg, m.keys.moveColumnRight):
		return m.reorderSelectedColumn(1)
	}
	return m, nil
}

// selectCursorCard feeds the card under the cursor into the selection.
func (m Model) selectCursorCard(shift bool) (tea.Model, tea.Cmd) {
	card, ok := m.cursorCard()
	if !ok {
		m.status = "no work order selected"
		return m, nil
	}
	m.sel.Click(card.ID, card.ColumnID, shift, m.visibleOrder(m.selectedColumn))
	m.status = selectionStatus(m.sel.Count())
	return m, nil
}

// moveCursorCards moves the selection, or the cursor card, one column over.
func (m Model) moveCursorCards(delta int) (tea.Model, tea.Cmd) {
	cols := m.columns()
	target := m.selectedColumn + delta
	if target < 0 || target >= len(cols) {
		return m, nil
	}
	card, ok := m.cursorCard()
	if !ok {
		m.status = "no work order selected"
		return m, nil
	}
	ids := []string{card.ID}
	if m.sel.Count() > 1 && m.sel.Contains(card.ID) && m.sel.ColumnID() == card.ColumnID {
		ids = m.sel.IDs(m.store.CardOrderForColumn(card.ColumnID))
	}
	cmd := m.beginMove(ids, cols[target].ID)
	if cmd != nil {
		m.selectedColumn = target
		m.selectedCard = 0
	}
	return m, cmd
}

// startFieldEdit opens a single or bulk field prompt depending on the
// current selection.
func (m Model) startFieldEdit(single, bulk inputMode, prompt, placeholder string) (tea.Model, tea.Cmd) {
	if m.sel.Count() > 1 {
		m.mode = bulk
		m.input = newModalInput(prompt, placeholder, "", 60)
		return m, nil
	}
	card, ok := m.cursorCard()
	if !ok {
		m.status = "no work order selected"
		return m, nil
	}
	m.mode = single
	m.targetCardID = card.ID
	value := card.Assignee
	if single == modeMachine {
		value = card.Machine
	}
	m.input = newModalInput(prompt, placeholder, value, 60)
	return m, nil
}

// setEditMode flips column edit mode on the model and the engine.
func (m Model) setEditMode(on bool) (tea.Model, tea.Cmd) {
	m.editMode = on
	m.autosave.SetEditMode(on)
	m.drag.SetEditMode(on)
	if on {
		m.status = "edit mode: columns unlocked"
	} else {
		m.status = "edit mode off"
	}
	return m, nil
}

// reorderSelectedColumn nudges the selected column left or right.
func (m Model) reorderSelectedColumn(delta int) (tea.Model, tea.Cmd) {
	if !m.editMode {
		m.status = "edit mode required (E)"
		return m, nil
	}
	cols := m.columns()
	if len(cols) == 0 {
		return m, nil
	}
	idx := clamp(m.selectedColumn, 0, len(cols)-1)
	target := idx + delta
	if target < 0 || target >= len(cols) {
		return m, nil
	}
	seq, err := m.autosave.ApplyReorder(cols[idx].ID, target)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.selectedColumn = target
	return m, m.autosaveTick(seq)
}

// handleInputModeKey handles input mode key.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeCardInfo:
		switch msg.String() {
		case "esc", "q", "i", "enter":
			m.mode = modeNone
			m.infoCardID = ""
		case "y":
			if card, ok := m.store.CardByID(m.infoCardID); ok {
				if err := m.copyText(cardSummary(card)); err != nil {
					m.status = "copy failed: " + err.Error()
				} else {
					m.status = "copied"
				}
			}
		}
		return m, nil

	case modeConfirmDeleteCard:
		switch msg.String() {
		case "y", "enter":
			id := m.targetCardID
			m.mode = modeNone
			m.targetCardID = ""
			return m, m.deleteCard(id)
		case "n", "esc":
			m.mode = modeNone
			m.targetCardID = ""
			m.status = "delete cancelled"
		}
		return m, nil

	case modeConfirmDeleteColumn:
		switch msg.String() {
		case "y", "enter":
			id := m.targetColumnID
			m.mode = modeNone
			m.targetColumnID = ""
			seq, err := m.autosave.DeleteColumn(id)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			m.clampCursor()
			m.status = "column deleted"
			return m, m.autosaveTick(seq)
		case "n", "esc":
			m.mode = modeNone
			m.targetColumnID = ""
			m.status = "delete cancelled"
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.targetColumnID = ""
		m.targetCardID = ""
		m.status = "cancelled"
		return m, nil
	case "enter":
		return m.submitInputMode()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInputMode applies the text prompt for the active mode.
func (m Model) submitInputMode() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	mode := m.mode
	m.mode = modeNone

	switch mode {
	case modeNewCard:
		columnID := m.targetColumnID
		m.targetColumnID = ""
		if value == "" {
			m.status = "title required"
			return m, nil
		}
		return m, m.createCard(columnID, value)

	case modeAssign:
		cardID := m.targetCardID
		m.targetCardID = ""
		return m, m.beginPatch(cardID, board.CardPatch{Assignee: &value}, "operator assigned")

	case modeMachine:
		cardID := m.targetCardID
		m.targetCardID = ""
		return m, m.beginPatch(cardID, board.CardPatch{Machine: &value}, "machine set")

	case modeBulkAssign:
		ids := m.sel.IDs(m.store.CardOrderForColumn(m.sel.ColumnID()))
		if len(ids) == 0 {
			m.status = "no selection"
			return m, nil
		}
		return m, m.runBulk(ids, board.BulkAction{Assignee: &value})

	case modeBulkMachine:
		ids := m.sel.IDs(m.store.CardOrderForColumn(m.sel.ColumnID()))
		if len(ids) == 0 {
			m.status = "no selection"
			return m, nil
		}
		return m, m.runBulk(ids, board.BulkAction{Machine: &value})

	case modeAddColumn:
		if value == "" {
			m.status = "title required"
			return m, nil
		}
		seq, err := m.autosave.AddColumn(value)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("column %q added", value)
		return m, m.autosaveTick(seq)

	case modeRenameColumn:
		columnID := m.targetColumnID
		m.targetColumnID = ""
		if value == "" {
			m.status = "title required"
			return m, nil
		}
		seq, err := m.autosave.RenameColumn(columnID, value)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "column renamed"
		return m, m.autosaveTick(seq)
	}
	return m, nil
}

// handleMouseClick handles mouse click.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || msg.Button != tea.MouseLeft {
		return m, nil
	}
	colIdx, cardIdx, onHeader := m.hitTest(msg.X, msg.Y)
	if colIdx < 0 {
		return m, nil
	}
	cols := m.columns()
	m.selectedColumn = colIdx
	col := cols[colIdx]

	if onHeader {
		m.drag.Press(board.DragColumn, col.ID, col.ID, msg.X, msg.Y)
		return m, nil
	}
	cards := m.visibleCards(colIdx)
	if cardIdx < 0 || cardIdx >= len(cards) {
		return m, nil
	}
	m.selectedCard = cardIdx
	card := cards[cardIdx]

	if msg.Mod&(tea.ModShift|tea.ModCtrl) != 0 {
		m.sel.Click(card.ID, card.ColumnID, msg.Mod&tea.ModShift != 0, m.visibleOrder(colIdx))
		m.status = selectionStatus(m.sel.Count())
		return m, nil
	}
	// A plain press toggles like a ctrl press, but only once the gesture
	// resolves as a click. Toggling now would shrink the group under a drag
	// that starts on an already-selected card.
	m.pressCardID = card.ID
	m.pressColumnID = card.ColumnID
	m.drag.Press(board.DragCard, card.ID, card.ColumnID, msg.X, msg.Y)
	return m, nil
}

// selectionStatus renders the status line after a selection change.
func selectionStatus(count int) string {
	if count > 0 {
		return fmt.Sprintf("%d selected", count)
	}
	return "selection cleared"
}

// handleMouseMotion handles mouse motion.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.drag.Move(msg.X, msg.Y) {
		return m, nil
	}
	colIdx, _, _ := m.hitTest(msg.X, msg.Y)
	m.dropColumn = colIdx
	return m, nil
}

// handleMouseRelease handles mouse release.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	m.dropColumn = -1
	pressID, pressColumnID := m.pressCardID, m.pressColumnID
	m.pressCardID, m.pressColumnID = "", ""
	wasDragging := m.drag.Dragging()
	var target *board.DropTarget
	if colIdx, _, _ := m.hitTest(msg.X, msg.Y); colIdx >= 0 {
		cols := m.columns()
		target = &board.DropTarget{ColumnID: cols[colIdx].ID, ColumnIndex: colIdx}
	}
	intent := m.drag.Drop(target, m.sel, m.store)
	switch in := intent.(type) {
	case board.MoveCard:
		return m, m.beginMove([]string{in.CardID}, in.TargetColumnID)
	case board.MoveCardGroup:
		return m, m.beginMove(in.CardIDs, in.TargetColumnID)
	case board.MoveColumn:
		seq, err := m.autosave.ApplyReorder(in.ColumnID, in.TargetIndex)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.selectedColumn = clamp(in.TargetIndex, 0, len(m.columns())-1)
		return m, m.autosaveTick(seq)
	}
	if !wasDragging && pressID != "" {
		if colIdx := m.store.Config().ColumnIndex(pressColumnID); colIdx >= 0 {
			m.sel.Click(pressID, pressColumnID, false, m.visibleOrder(colIdx))
			m.status = selectionStatus(m.sel.Count())
		}
	}
	return m, nil
}

// handleMouseWheel handles mouse wheel.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone {
		return m, nil
	}
	cards := m.visibleCards(m.selectedColumn)
	if len(cards) == 0 {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		if m.selectedCard > 0 {
			m.selectedCard--
		}
	case tea.MouseWheelDown:
		if m.selectedCard < len(cards)-1 {
			m.selectedCard++
		}
	}
	return m, nil
}

// columns returns the current column layout.
func (m Model) columns() []domain.Column {
	return m.store.Config().Columns
}

// visibleCards returns the cards shown in a column, with the done-column
// age cutoff applied.
func (m Model) visibleCards(colIdx int) []domain.Card {
	cfg := m.store.Config()
	if colIdx < 0 || colIdx >= len(cfg.Columns) {
		return nil
	}
	now := m.now()
	cards := m.store.CardsForColumn(cfg.Columns[colIdx].ID)
	out := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if cfg.VisibleInColumnWithin(card, colIdx, now, m.doneMaxAge) {
			out = append(out, card)
		}
	}
	return out
}

// visibleOrder returns the visible card ids for a column, in display order.
func (m Model) visibleOrder(colIdx int) []string {
	cards := m.visibleCards(colIdx)
	ids := make([]string, len(cards))
	for i, card := range cards {
		ids[i] = card.ID
	}
	return ids
}

// cursorCard returns the card under the cursor.
func (m Model) cursorCard() (domain.Card, bool) {
	cards := m.visibleCards(m.selectedColumn)
	if len(cards) == 0 {
		return domain.Card{}, false
	}
	return cards[clamp(m.selectedCard, 0, len(cards)-1)], true
}

// retainSelection drops selected ids no longer present in the store.
func (m *Model) retainSelection() {
	existing := map[string]struct{}{}
	for _, card := range m.store.Cards() {
		existing[card.ID] = struct{}{}
	}
	m.sel.Retain(existing)
}

// clampCursor clamps the cursor to the current board contents.
func (m *Model) clampCursor() {
	cols := m.columns()
	if len(cols) == 0 {
		m.selectedColumn = 0
		m.selectedCard = 0
		return
	}
	m.selectedColumn = clamp(m.selectedColumn, 0, len(cols)-1)
	cards := m.visibleCards(m.selectedColumn)
	if len(cards) == 0 {
		m.selectedCard = 0
		return
	}
	m.selectedCard = clamp(m.selectedCard, 0, len(cards)-1)
}

// groupLabel returns the grouping header for a card under the active sort.
func (m Model) groupLabel(card domain.Card) string {
	switch m.store.SortedBy() {
	case board.SortByAssignee:
		if card.Assignee == "" {
			return "unassigned"
		}
		return card.Assignee
	case board.SortByProcess:
		if len(card.ProcessIDs) == 0 {
			return "no process"
		}
		return card.ProcessIDs[0]
	}
	return ""
}

// cardSummary formats a card for the clipboard.
func cardSummary(card domain.Card) string {
	lines := []string{card.Title}
	if card.Assignee != "" {
		lines = append(lines, "operator: "+card.Assignee)
	}
	if card.Machine != "" {
		lines = append(lines, "machine: "+card.Machine)
	}
	if card.DueDate != nil {
		lines = append(lines, "due: "+card.DueDate.Format("2006-01-02"))
	}
	if card.QuantityToMake > 0 {
		lines = append(lines, fmt.Sprintf("quantity: %d", card.QuantityToMake))
	}
	if len(card.ProcessIDs) > 0 {
		lines = append(lines, "processes: "+strings.Join(card.ProcessIDs, ", "))
	}
	if strings.TrimSpace(card.Notes) != "" {
		lines = append(lines, "", card.Notes)
	}
	return strings.Join(lines, "\n")
}

// newModalInput constructs a focused single-line prompt.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.SetValue(value)
	in.CursorEnd()
	in.Focus()
	return in
}
