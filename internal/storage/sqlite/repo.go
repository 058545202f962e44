// Package sqlite persists the board's cards and column layout.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mellgren/verkstad/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// boardConfigRowID pins the single board_config row.
const boardConfigRowID = 1

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			column_id TEXT NOT NULL,
			title TEXT NOT NULL,
			assignee TEXT NOT NULL DEFAULT '',
			machine TEXT NOT NULL DEFAULT '',
			due_at TEXT,
			process_ids_json TEXT NOT NULL DEFAULT '[]',
			quantity_per_robot INTEGER NOT NULL DEFAULT 0,
			quantity_to_make INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS board_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			columns_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cards_column_updated_at ON cards(column_id, updated_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateCard creates card.
func (r *Repository) CreateCard(ctx context.Context, c domain.Card) error {
	processJSON, err := json.Marshal(c.ProcessIDs)
	if err != nil {
		return fmt.Errorf("encode card process ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cards(id, column_id, title, assignee, machine, due_at, process_ids_json, quantity_per_robot, quantity_to_make, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ColumnID, c.Title, c.Assignee, c.Machine, nullableTS(c.DueDate), string(processJSON), c.QuantityPerRobot, c.QuantityToMake, c.Notes, ts(c.CreatedAt), ts(c.UpdatedAt))
	return err
}

// UpdateCard updates state for the requested operation.
func (r *Repository) UpdateCard(ctx context.Context, c domain.Card) error {
	processJSON, err := json.Marshal(c.ProcessIDs)
	if err != nil {
		return fmt.Errorf("encode card process ids: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE cards
		SET column_id = ?, title = ?, assignee = ?, machine = ?, due_at = ?, process_ids_json = ?, quantity_per_robot = ?, quantity_to_make = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, c.ColumnID, c.Title, c.Assignee, c.Machine, nullableTS(c.DueDate), string(processJSON), c.QuantityPerRobot, c.QuantityToMake, c.Notes, ts(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetCard returns card.
func (r *Repository) GetCard(ctx context.Context, id string) (domain.Card, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, column_id, title, assignee, machine, due_at, process_ids_json, quantity_per_robot, quantity_to_make, notes, created_at, updated_at
		FROM cards
		WHERE id = ?
	`, id)
	return scanCard(row)
}

// ListCards lists cards.
func (r *Repository) ListCards(ctx context.Context) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, column_id, title, assignee, machine, due_at, process_ids_json, quantity_per_robot, quantity_to_make, notes, created_at, updated_at
		FROM cards
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// DeleteCard deletes card.
func (r *Repository) DeleteCard(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// MoveCard repoints one card at a column.
func (r *Repository) MoveCard(ctx context.Context, id, columnID string, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cards SET column_id = ?, updated_at = ? WHERE id = ?
	`, columnID, ts(now), id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetBoardConfig returns the persisted column layout, or the defaults when
// none has been written yet.
func (r *Repository) GetBoardConfig(ctx context.Context) (domain.BoardConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT columns_json FROM board_config WHERE id = ?
	`, boardConfigRowID)

	var columnsRaw string
	if err := row.Scan(&columnsRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultBoardConfig(), nil
		}
		return domain.BoardConfig{}, err
	}

	var cfg domain.BoardConfig
	if err := json.Unmarshal([]byte(columnsRaw), &cfg.Columns); err != nil {
		return domain.BoardConfig{}, fmt.Errorf("decode board config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// PutBoardConfig replaces the whole column layout in one write.
func (r *Repository) PutBoardConfig(ctx context.Context, cfg domain.BoardConfig, now time.Time) error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	columnsJSON, err := json.Marshal(cfg.Columns)
	if err != nil {
		return fmt.Errorf("encode board config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO board_config(id, columns_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET columns_json = excluded.columns_json, updated_at = excluded.updated_at
	`, boardConfigRowID, string(columnsJSON), ts(now))
	return err
}

// scanner abstracts sql.Row and sql.Rows scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanCard reads one card row.
func scanCard(s scanner) (domain.Card, error) {
	var (
		c          domain.Card
		dueRaw     sql.NullString
		processRaw string
		createdRaw string
		updatedRaw string
	)
	err := s.Scan(&c.ID, &c.ColumnID, &c.Title, &c.Assignee, &c.Machine, &dueRaw, &processRaw, &c.QuantityPerRobot, &c.QuantityToMake, &c.Notes, &createdRaw, &updatedRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, domain.ErrNotFound
		}
		return domain.Card{}, err
	}
	if err := json.Unmarshal([]byte(processRaw), &c.ProcessIDs); err != nil {
		return domain.Card{}, fmt.Errorf("decode card process ids: %w", err)
	}
	c.DueDate = parseNullTS(dueRaw)
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	return c, nil
}

// translateNoRows maps a zero-row update to the not-found sentinel.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
