// Package store defines the persistence ports for the expense ledger
// and the in-process change-notification hub shared by the backends.
package store

import (
	"context"
	"errors"

	"casaspese/internal/core"
)

var (
	ErrHouseholdNotFound = errors.New("household not found")
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrDuplicateID       = errors.New("duplicate id")
)

type (
	// HouseholdStore persists household groups. Households are never
	// deleted; the only mutation is adding a member on join.
	HouseholdStore interface {
		CreateHousehold(ctx context.Context, h core.Household) error
		GetHousehold(ctx context.Context, id string) (core.Household, error)
		FindHouseholdByInviteCode(ctx context.Context, code string) (core.Household, error)
		AddMember(ctx context.Context, householdID, member string) error
	}

	// ExpenseStore persists ledger entries. Expenses are append-only;
	// ListExpenses returns them date-descending with creation order
	// preserved within a day.
	ExpenseStore interface {
		AppendExpense(ctx context.Context, e core.Expense) error
		GetExpense(ctx context.Context, householdID, id string) (core.Expense, error)
		ListExpenses(ctx context.Context, householdID string) ([]core.Expense, error)
	}

	// ExpenseWatcher delivers the full current expense list of a
	// household on every change, wholesale. Subscribers receive an
	// initial snapshot immediately and the channel closes when ctx is
	// done. There are no incremental diffs.
	ExpenseWatcher interface {
		WatchExpenses(ctx context.Context, householdID string) (<-chan []core.Expense, error)
	}
)
