// Package sqlite provides the SQLite ledger backend. Change
// notifications are delivered through the shared in-process hub, so a
// single server process sees its own writes immediately.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"casaspese/internal/core"
	"casaspese/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	hub *store.Hub
}

func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, hub: store.NewHub()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) CreateHousehold(ctx context.Context, h core.Household) error {
	if err := h.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO households (id, name, invite_code, created_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.Name, h.InviteCode, h.CreatedBy, h.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("insert household: %w", err)
	}

	for i, member := range h.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO household_members (household_id, member, position) VALUES (?, ?, ?)`,
			h.ID, member, i)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Household created",
		"household_id", h.ID,
		"invite_code", h.InviteCode)
	return nil
}

func (s *Store) GetHousehold(ctx context.Context, id string) (core.Household, error) {
	return s.findHousehold(ctx, `WHERE id = ?`, id)
}

func (s *Store) FindHouseholdByInviteCode(ctx context.Context, code string) (core.Household, error) {
	return s.findHousehold(ctx, `WHERE invite_code = ?`, code)
}

func (s *Store) findHousehold(ctx context.Context, where string, arg any) (core.Household, error) {
	var h core.Household
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, invite_code, created_by, created_at FROM households `+where, arg).
		Scan(&h.ID, &h.Name, &h.InviteCode, &h.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Household{}, store.ErrHouseholdNotFound
	}
	if err != nil {
		return core.Household{}, fmt.Errorf("query household: %w", err)
	}
	h.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM household_members WHERE household_id = ? ORDER BY position`, h.ID)
	if err != nil {
		return core.Household{}, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return core.Household{}, fmt.Errorf("scan member: %w", err)
		}
		h.Members = append(h.Members, m)
	}
	if err := rows.Err(); err != nil {
		return core.Household{}, fmt.Errorf("iterate members: %w", err)
	}
	return h, nil
}

func (s *Store) AddMember(ctx context.Context, householdID, member string) error {
	if _, err := s.GetHousehold(ctx, householdID); err != nil {
		return err
	}
	// Position beyond existing members keeps join order; the unique
	// index makes a repeated join a no-op.
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO household_members (household_id, member, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM household_members WHERE household_id = ?))`,
		householdID, member, householdID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *Store) AppendExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.GetHousehold(ctx, e.HouseholdID); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, household_id, amount_cents, description, category, date, user_name, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.HouseholdID, e.Amount.Cents, e.Description, e.Category,
		e.Date.String(), e.User, e.CurrencyOrDefault(), e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"household_id", e.HouseholdID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category)

	if snapshot, err := s.ListExpenses(ctx, e.HouseholdID); err == nil {
		s.hub.Publish(e.HouseholdID, snapshot)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, householdID, id string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, household_id, amount_cents, description, category, date, user_name, currency, created_at
		 FROM expenses WHERE household_id = ? AND id = ?`, householdID, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, store.ErrExpenseNotFound
	}
	return e, err
}

func (s *Store) ListExpenses(ctx context.Context, householdID string) ([]core.Expense, error) {
	// rowid ascending preserves creation order within a date.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, amount_cents, description, category, date, user_name, currency, created_at
		 FROM expenses WHERE household_id = ? ORDER BY date DESC, rowid ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// WatchExpenses subscribes before reading the snapshot, so a write
// racing the setup can only make the first delivery newer. The seed
// goes to the new watcher alone.
func (s *Store) WatchExpenses(ctx context.Context, householdID string) (<-chan []core.Expense, error) {
	ch := s.hub.Subscribe(ctx, householdID)
	snapshot, err := s.ListExpenses(ctx, householdID)
	if err != nil {
		return nil, err
	}
	s.hub.Seed(ch, snapshot)
	return ch, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var date, createdAt string
	err := row.Scan(&e.ID, &e.HouseholdID, &e.Amount.Cents, &e.Description,
		&e.Category, &date, &e.User, &e.Currency, &createdAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return e, nil
}
