// Package httpapi provides the REST HTTP adapter for the board server.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mellgren/verkstad/internal/domain"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Repository is the storage surface the handler drives.
type Repository interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id string) (domain.Card, error)
	CreateCard(ctx context.Context, c domain.Card) error
	UpdateCard(ctx context.Context, c domain.Card) error
	DeleteCard(ctx context.Context, id string) error
	MoveCard(ctx context.Context, id, columnID string, now time.Time) error
	GetBoardConfig(ctx context.Context) (domain.BoardConfig, error)
	PutBoardConfig(ctx context.Context, cfg domain.BoardConfig, now time.Time) error
}

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	repo Repository
	now  func() time.Time
}

// envelope is the uniform response shape for every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// boardActionRequest is the POST `/board` payload.
type boardActionRequest struct {
	Action   string `json:"action"`
	CardID   string `json:"cardId"`
	ColumnID string `json:"columnId"`
}

// createCardRequest is the POST `/cards` payload.
type createCardRequest struct {
	ID               string     `json:"id"`
	ColumnID         string     `json:"columnId"`
	Title            string     `json:"title"`
	Assignee         string     `json:"assignee"`
	Machine          string     `json:"machine"`
	DueDate          *time.Time `json:"dueDate"`
	ProcessIDs       []string   `json:"processIds"`
	QuantityPerRobot int        `json:"quantityPerRobot"`
	QuantityToMake   int        `json:"quantityToMake"`
	Notes            string     `json:"notes"`
}

// patchCardRequest is the PATCH `/cards/{id}` payload. Absent fields are
// left untouched.
type patchCardRequest struct {
	Title            *string    `json:"title"`
	Assignee         *string    `json:"assignee"`
	Machine          *string    `json:"machine"`
	DueDate          *time.Time `json:"dueDate"`
	ProcessIDs       []string   `json:"processIds"`
	QuantityPerRobot *int       `json:"quantityPerRobot"`
	QuantityToMake   *int       `json:"quantityToMake"`
	Notes            *string    `json:"notes"`
}

// assignCardRequest is the POST `/cards/{id}/assign` payload.
type assignCardRequest struct {
	Assignee string `json:"assignee"`
}

// errInvalidRequest marks malformed request payloads.
var errInvalidRequest = errors.New("invalid request")

// NewHandler constructs one HTTP API adapter over a repository.
func NewHandler(repo Repository, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{repo: repo, now: now}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := normalizePath(r.URL.Path)
	switch {
	case path == "board":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleBoardAction(w, r)
	case path == "cards":
		switch r.Method {
		case http.MethodGet:
			h.handleListCards(w, r)
		case http.MethodPost:
			h.handleCreateCard(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	case path == "config":
		switch r.Method {
		case http.MethodGet:
			h.handleGetConfig(w, r)
		case http.MethodPut:
			h.handlePutConfig(w, r)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPut)
		}
	case strings.HasPrefix(path, "cards/"):
		rest := strings.TrimPrefix(path, "cards/")
		if cardID, ok := strings.CutSuffix(rest, "/assign"); ok {
			if strings.Contains(cardID, "/") || cardID == "" {
				writeError(w, http.StatusNotFound, "endpoint not found")
				return
			}
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w, http.MethodPost)
				return
			}
			h.handleAssignCard(w, r, cardID)
			return
		}
		if strings.Contains(rest, "/") || rest == "" {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGetCard(w, r, rest)
		case http.MethodPatch:
			h.handlePatchCard(w, r, rest)
		case http.MethodDelete:
			h.handleDeleteCard(w, r, rest)
		default:
			writeMethodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

// handleBoardAction serves POST `/board`.
func (h *Handler) handleBoardAction(w http.ResponseWriter, r *http.Request) {
	var req boardActionRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if req.Action != "moveCard" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported action %q", req.Action))
		return
	}
	if strings.TrimSpace(req.CardID) == "" || strings.TrimSpace(req.ColumnID) == "" {
		writeError(w, http.StatusBadRequest, "cardId and columnId are required")
		return
	}
	cfg, err := h.repo.GetBoardConfig(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	if cfg.ColumnIndex(req.ColumnID) == -1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown column %q", req.ColumnID))
		return
	}
	if err := h.repo.MoveCard(r.Context(), req.CardID, req.ColumnID, h.now()); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// handleListCards serves GET `/cards`.
func (h *Handler) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.repo.ListCards(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, cards)
}

// handleCreateCard serves POST `/cards`.
func (h *Handler) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	card, err := domain.NewCard(domain.CardInput{
		ID:               req.ID,
		ColumnID:         req.ColumnID,
		Title:            req.Title,
		Assignee:         req.Assignee,
		Machine:          req.Machine,
		DueDate:          req.DueDate,
		ProcessIDs:       req.ProcessIDs,
		QuantityPerRobot: req.QuantityPerRobot,
		QuantityToMake:   req.QuantityToMake,
		Notes:            req.Notes,
	}, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.CreateCard(r.Context(), card); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusCreated, card)
}

// handleGetCard serves GET `/cards/{id}`.
func (h *Handler) handleGetCard(w http.ResponseWriter, r *http.Request, cardID string) {
	card, err := h.repo.GetCard(r.Context(), cardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, card)
}

// handlePatchCard serves PATCH `/cards/{id}`.
func (h *Handler) handlePatchCard(w http.ResponseWriter, r *http.Request, cardID string) {
	var req patchCardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	card, err := h.repo.GetCard(r.Context(), cardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	applyCardPatch(&card, req)
	card.UpdatedAt = h.now().UTC()

	// Revalidate through the constructor so a patch cannot blank required fields.
	validated, err := domain.NewCard(domain.CardInput{
		ID:               card.ID,
		ColumnID:         card.ColumnID,
		Title:            card.Title,
		Assignee:         card.Assignee,
		Machine:          card.Machine,
		DueDate:          card.DueDate,
		ProcessIDs:       card.ProcessIDs,
		QuantityPerRobot: card.QuantityPerRobot,
		QuantityToMake:   card.QuantityToMake,
		Notes:            card.Notes,
	}, card.CreatedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	validated.UpdatedAt = card.UpdatedAt
	if err := h.repo.UpdateCard(r.Context(), validated); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, validated)
}

// handleDeleteCard serves DELETE `/cards/{id}`.
func (h *Handler) handleDeleteCard(w http.ResponseWriter, r *http.Request, cardID string) {
	if err := h.repo.DeleteCard(r.Context(), cardID); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// handleAssignCard serves POST `/cards/{id}/assign`.
func (h *Handler) handleAssignCard(w http.ResponseWriter, r *http.Request, cardID string) {
	var req assignCardRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	card, err := h.repo.GetCard(r.Context(), cardID)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	card.Assignee = strings.TrimSpace(req.Assignee)
	card.UpdatedAt = h.now().UTC()
	if err := h.repo.UpdateCard(r.Context(), card); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, card)
}

// handleGetConfig serves GET `/config`.
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.GetBoardConfig(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, cfg)
}

// handlePutConfig serves PUT `/config`.
func (h *Handler) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.BoardConfig
	if err := decodeJSONBody(r.Context(), w, r, &cfg); err != nil {
		writeErrorFrom(w, err)
		return
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.PutBoardConfig(r.Context(), cfg, h.now()); err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeData(w, http.StatusOK, cfg)
}

// applyCardPatch writes present patch fields into a card.
func applyCardPatch(card *domain.Card, req patchCardRequest) {
	if req.Title != nil {
		card.Title = *req.Title
	}
	if req.Assignee != nil {
		card.Assignee = *req.Assignee
	}
	if req.Machine != nil {
		card.Machine = *req.Machine
	}
	if req.DueDate != nil {
		card.DueDate = req.DueDate
	}
	if req.ProcessIDs != nil {
		card.ProcessIDs = req.ProcessIDs
	}
	if req.QuantityPerRobot != nil {
		card.QuantityPerRobot = *req.QuantityPerRobot
	}
	if req.QuantityToMake != nil {
		card.QuantityToMake = *req.QuantityToMake
	}
	if req.Notes != nil {
		card.Notes = *req.Notes
	}
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps repository errors into enveloped HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeError(w, http.StatusInternalServerError, "unknown error")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidColumnID),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeMethodNotAllowed writes an enveloped 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeError writes one failure envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{Success: false, Error: message})
}

// writeData writes one success envelope.
func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, envelope{Success: true, Data: data})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"success":false,"error":"%s"}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(errInvalidRequest, err))
	}
	// Reject trailing payloads so malformed JSON bodies fail closed.
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", errInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}
