// Package mcpapi provides a stateless MCP streamable-HTTP adapter over the board.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mellgren/verkstad/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Repository is the storage surface the MCP tools drive.
type Repository interface {
	ListCards(ctx context.Context) ([]domain.Card, error)
	GetCard(ctx context.Context, id string) (domain.Card, error)
	UpdateCard(ctx context.Context, c domain.Card) error
	MoveCard(ctx context.Context, id, columnID string, now time.Time) error
	GetBoardConfig(ctx context.Context) (domain.BoardConfig, error)
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, repo Repository, now func() time.Time) (*Handler, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if now == nil {
		now = time.Now
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerListCardsTool(mcpSrv, repo)
	registerMoveCardTool(mcpSrv, repo, now)
	registerUpdateCardTool(mcpSrv, repo, now)
	registerBoardConfigTool(mcpSrv, repo)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "verkstad"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerListCardsTool registers the `verkstad.list_cards` tool.
func registerListCardsTool(srv *mcpserver.MCPServer, repo Repository) {
	srv.AddTool(
		mcp.NewTool(
			"verkstad.list_cards",
			mcp.WithDescription("Return every work order card on the board."),
			mcp.WithString("column_id", mcp.Description("Restrict to one workflow stage")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cards, err := repo.ListCards(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if columnID := strings.TrimSpace(req.GetString("column_id", "")); columnID != "" {
				filtered := cards[:0]
				for _, card := range cards {
					if card.ColumnID == columnID {
						filtered = append(filtered, card)
					}
				}
				cards = filtered
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"cards": cards})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result, nil
		},
	)
}

// registerMoveCardTool registers the `verkstad.move_card` tool.
func registerMoveCardTool(srv *mcpserver.MCPServer, repo Repository, now func() time.Time) {
	srv.AddTool(
		mcp.NewTool(
			"verkstad.move_card",
			mcp.WithDescription("Move one work order card to another workflow stage."),
			mcp.WithString("card_id", mcp.Required(), mcp.Description("Card identifier")),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Target workflow stage identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireString("card_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			cfg, err := repo.GetBoardConfig(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if cfg.ColumnIndex(columnID) == -1 {
				return mcp.NewToolResultError(fmt.Sprintf("unknown column %q", columnID)), nil
			}
			if err := repo.MoveCard(ctx, cardID, columnID, now()); err != nil {
				return toolResultFromError(err), nil
			}
			card, err := repo.GetCard(ctx, cardID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(card)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result, nil
		},
	)
}

// registerUpdateCardTool registers the `verkstad.update_card` tool.
func registerUpdateCardTool(srv *mcpserver.MCPServer, repo Repository, now func() time.Time) {
	srv.AddTool(
		mcp.NewTool(
			"verkstad.update_card",
			mcp.WithDescription("Update the operator, machine, or notes on one work order card."),
			mcp.WithString("card_id", mcp.Required(), mcp.Description("Card identifier")),
			mcp.WithString("assignee", mcp.Description("Operator name")),
			mcp.WithString("machine", mcp.Description("Machine identifier")),
			mcp.WithString("notes", mcp.Description("Markdown notes")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cardID, err := req.RequireString("card_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			card, err := repo.GetCard(ctx, cardID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			if assignee := req.GetString("assignee", card.Assignee); assignee != card.Assignee {
				card.Assignee = strings.TrimSpace(assignee)
			}
			if machine := req.GetString("machine", card.Machine); machine != card.Machine {
				card.Machine = strings.TrimSpace(machine)
			}
			if notes := req.GetString("notes", card.Notes); notes != card.Notes {
				card.Notes = notes
			}
			card.UpdatedAt = now().UTC()
			if err := repo.UpdateCard(ctx, card); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(card)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result, nil
		},
	)
}

// registerBoardConfigTool registers the `verkstad.get_board_config` tool.
func registerBoardConfigTool(srv *mcpserver.MCPServer, repo Repository) {
	srv.AddTool(
		mcp.NewTool(
			"verkstad.get_board_config",
			mcp.WithDescription("Return the ordered workflow stage layout."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cfg, err := repo.GetBoardConfig(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(cfg)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return result, nil
		},
	)
}

// toolResultFromError maps repository errors to MCP tool failures.
func toolResultFromError(err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.NewToolResultError("card not found")
	}
	return mcp.NewToolResultError(err.Error())
}
