package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mellgren/verkstad/internal/board"
	"github.com/mellgren/verkstad/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, env map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "/"} {
		_, err := NewClient(raw, nil)
		if err == nil {
			t.Fatalf("NewClient(%q) expected error, got nil", raw)
		}
		if got := err.Error(); got != "server url is required" {
			t.Fatalf("NewClient(%q) error = %q, want plain missing-url message", raw, got)
		}
	}
}

func TestMoveCardSendsBoardAction(t *testing.T) {
	var gotPath, gotBody string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			gotBody, _ = req["action"].(string)
		}
		writeEnvelope(t, w, http.StatusOK, map[string]any{"success": true})
	})

	if err := client.MoveCard(context.Background(), "c1", "running"); err != nil {
		t.Fatalf("MoveCard() error = %v", err)
	}
	if gotPath != "POST /api/v1/board" {
		t.Fatalf("request = %q, want POST /api/v1/board", gotPath)
	}
	if gotBody != "moveCard" {
		t.Fatalf("action = %q, want moveCard", gotBody)
	}
}

func TestListCardsDecodesData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "c1", "columnId": "backlog", "title": "Plate", "processIds": []string{"mill"}},
			},
		})
	})

	cards, err := client.ListCards(context.Background())
	if err != nil {
		t.Fatalf("ListCards() error = %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "c1" || cards[0].ColumnID != "backlog" {
		t.Fatalf("unexpected cards %#v", cards)
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   "column is locked",
		})
	})

	err := client.MoveCard(context.Background(), "c1", "running")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.UserMessage() != "column is locked" {
		t.Fatalf("unexpected error %#v", apiErr)
	}
}

func TestFalseEnvelopeOnOKStatusIsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, http.StatusOK, map[string]any{
			"success": false,
			"error":   "validation failed",
		})
	})

	err := client.AssignCard(context.Background(), "c1", "malin")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if apiErr.UserMessage() != "validation failed" {
		t.Fatalf("message = %q", apiErr.UserMessage())
	}
}

func TestNonJSONResponseIsDistinctFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		if _, err := w.Write([]byte("<html>502 Bad Gateway</html>")); err != nil {
			t.Fatalf("write body: %v", err)
		}
	})

	err := client.MoveCard(context.Background(), "c1", "running")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if !strings.Contains(apiErr.Body, "502 Bad Gateway") {
		t.Fatalf("body = %q, want the raw payload captured", apiErr.Body)
	}
	if apiErr.UserMessage() == "" {
		t.Fatalf("non-JSON failure should carry a diagnostic message")
	}
}

func TestPatchCardHitsPerCardEndpoint(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		writeEnvelope(t, w, http.StatusOK, map[string]any{"success": true})
	})

	machine := "haas-3"
	if err := client.PatchCard(context.Background(), "c1", board.CardPatch{Machine: &machine}); err != nil {
		t.Fatalf("PatchCard() error = %v", err)
	}
	if gotPath != "PATCH /api/v1/cards/c1" {
		t.Fatalf("request = %q", gotPath)
	}
}

func TestPutBoardConfigSendsWholeDocument(t *testing.T) {
	var got domain.BoardConfig
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode config: %v", err)
		}
		writeEnvelope(t, w, http.StatusOK, map[string]any{"success": true})
	})

	cfg := domain.DefaultBoardConfig()
	if err := client.PutBoardConfig(context.Background(), cfg); err != nil {
		t.Fatalf("PutBoardConfig() error = %v", err)
	}
	if len(got.Columns) != len(cfg.Columns) {
		t.Fatalf("server received %d columns, want %d", len(got.Columns), len(cfg.Columns))
	}
}
