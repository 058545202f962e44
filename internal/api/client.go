// Package api provides the HTTP client the board engine uses to reach the
// verkstad server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mellgren/verkstad/internal/board"
	"github.com/mellgren/verkstad/internal/domain"
)

// maxErrorBodyBytes caps how much of a failed response body is kept for
// diagnostics.
const maxErrorBodyBytes = 4 << 10

// defaultTimeout bounds every request unless the caller's context is
// stricter.
const defaultTimeout = 10 * time.Second

// Error is one failed API exchange. Message carries the server-provided
// error text when the response was a well-formed envelope; Body holds the
// raw payload otherwise.
type Error struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements error.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: unexpected response (status %d)", e.StatusCode)
}

// UserMessage returns the server-provided text fit to show the user.
func (e *Error) UserMessage() string {
	return e.Message
}

// envelope is the wire shape every endpoint responds with.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// moveCardRequest is the board action payload for a column move.
type moveCardRequest struct {
	Action   string `json:"action"`
	CardID   string `json:"cardId"`
	ColumnID string `json:"columnId"`
}

// assignRequest is the payload for the per-card assign endpoint.
type assignRequest struct {
	Assignee string `json:"assignee"`
}

// Client talks to one verkstad server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client against a server base URL such as
// "http://localhost:8087".
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("server url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// ListCards fetches the full card collection.
func (c *Client) ListCards(ctx context.Context) ([]domain.Card, error) {
	var cards []domain.Card
	if err := c.do(ctx, http.MethodGet, "/api/v1/cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// CreateCard creates a card and returns the server's copy.
func (c *Client) CreateCard(ctx context.Context, in domain.CardInput) (domain.Card, error) {
	var card domain.Card
	if err := c.do(ctx, http.MethodPost, "/api/v1/cards", in, &card); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

// MoveCard points a card at a new column via the board action endpoint.
func (c *Client) MoveCard(ctx context.Context, cardID, columnID string) error {
	req := moveCardRequest{Action: "moveCard", CardID: cardID, ColumnID: columnID}
	return c.do(ctx, http.MethodPost, "/api/v1/board", req, nil)
}

// PatchCard applies one field change to a card.
func (c *Client) PatchCard(ctx context.Context, cardID string, patch board.CardPatch) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/cards/"+url.PathEscape(cardID), patch, nil)
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cards/"+url.PathEscape(cardID), nil, nil)
}

// AssignCard sets a card's operator.
func (c *Client) AssignCard(ctx context.Context, cardID, assignee string) error {
	path := "/api/v1/cards/" + url.PathEscape(cardID) + "/assign"
	return c.do(ctx, http.MethodPost, path, assignRequest{Assignee: assignee}, nil)
}

// GetBoardConfig fetches the column layout. A server with no persisted
// config responds with its defaults.
func (c *Client) GetBoardConfig(ctx context.Context) (domain.BoardConfig, error) {
	var cfg domain.BoardConfig
	if err := c.do(ctx, http.MethodGet, "/api/v1/config", nil, &cfg); err != nil {
		return domain.BoardConfig{}, err
	}
	return cfg, nil
}

// PutBoardConfig persists the whole column layout in one write.
func (c *Client) PutBoardConfig(ctx context.Context, cfg domain.BoardConfig) error {
	return c.do(ctx, http.MethodPut, "/api/v1/config", cfg, nil)
}

// do runs one request/response exchange. Failures of any kind, including a
// non-JSON response where JSON was required, come back as *Error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if !isJSONResponse(resp) {
		// An HTML error page or proxy response where JSON was expected.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    "server returned a non-JSON response",
			Body:       string(snippet),
		}
	}

	var env envelope
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes*8))
	if err := dec.Decode(&env); err != nil {
		return &Error{
			StatusCode: resp.StatusCode,
			Message:    "server returned malformed JSON",
			Body:       err.Error(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &Error{StatusCode: resp.StatusCode, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return &Error{StatusCode: resp.StatusCode, Message: "response envelope has no data"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// isJSONResponse checks the response content type.
func isJSONResponse(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
