// Package services orchestrates the household ledger across the store
// and the event pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"casaspese/internal/core"
	"casaspese/internal/metrics"
	"casaspese/internal/store"
)

// Sentinel errors surfaced to transports.
var (
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrUnknownPeriod      = errors.New("unknown period")
)

// inviteCodeAttempts bounds regeneration when a random code collides
// with an existing household.
const inviteCodeAttempts = 5

// EventPublisher publishes expense created events. A nil publisher
// disables the export pipeline.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, householdID, id string) error
}

// LedgerService owns household and expense operations.
type LedgerService struct {
	households store.HouseholdStore
	expenses   store.ExpenseStore
	watcher    store.ExpenseWatcher
	publisher  EventPublisher
}

func NewLedgerService(households store.HouseholdStore, expenses store.ExpenseStore, watcher store.ExpenseWatcher, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		households: households,
		expenses:   expenses,
		watcher:    watcher,
		publisher:  publisher,
	}
}

// CreateHousehold creates a household with a fresh invite code. The
// creator becomes the first member. Code collisions regenerate.
func (s *LedgerService) CreateHousehold(ctx context.Context, name, creator string) (core.Household, error) {
	var lastErr error
	for range inviteCodeAttempts {
		h := core.Household{
			ID:         uuid.NewString(),
			Name:       name,
			InviteCode: core.NewInviteCode(),
			Members:    []string{creator},
			CreatedBy:  creator,
			CreatedAt:  time.Now(),
		}
		if err := h.Validate(); err != nil {
			return core.Household{}, err
		}

		err := s.households.CreateHousehold(ctx, h)
		if err == nil {
			slog.InfoContext(ctx, "Created household",
				"household_id", h.ID,
				"name", h.Name)
			return h, nil
		}
		if !errors.Is(err, store.ErrDuplicateID) {
			return core.Household{}, fmt.Errorf("create household: %w", err)
		}
		lastErr = err
	}
	return core.Household{}, fmt.Errorf("create household: %w", lastErr)
}

// JoinHousehold adds the member to the household behind the invite
// code. Joining twice is a no-op.
func (s *LedgerService) JoinHousehold(ctx context.Context, code, member string) (core.Household, error) {
	if !core.ValidInviteCode(code) {
		return core.Household{}, core.ErrInvalidInviteCode
	}
	if member == "" {
		return core.Household{}, core.ErrEmptyUser
	}

	h, err := s.households.FindHouseholdByInviteCode(ctx, code)
	if err != nil {
		return core.Household{}, err
	}
	if !h.HasMember(member) {
		if err := s.households.AddMember(ctx, h.ID, member); err != nil {
			return core.Household{}, fmt.Errorf("add member: %w", err)
		}
		slog.InfoContext(ctx, "Member joined household",
			"household_id", h.ID,
			"member", member)
	}
	return s.households.GetHousehold(ctx, h.ID)
}

func (s *LedgerService) Household(ctx context.Context, id string) (core.Household, error) {
	return s.households.GetHousehold(ctx, id)
}

// AddExpense records an expense and publishes the created event. The
// event is best-effort; a broker failure never loses the expense.
func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	if err := s.expenses.AppendExpense(ctx, e); err != nil {
		return core.Expense{}, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(ctx, e.HouseholdID, e.ID); err != nil {
			metrics.EventsPublished.WithLabelValues("error").Inc()
			slog.ErrorContext(ctx, "Failed to publish expense created event",
				"id", e.ID, "error", err)
		} else {
			metrics.EventsPublished.WithLabelValues("ok").Inc()
		}
	}
	return e, nil
}

// ListExpenses returns the household's expenses, newest date first.
func (s *LedgerService) ListExpenses(ctx context.Context, householdID string) ([]core.Expense, error) {
	if _, err := s.households.GetHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	return s.expenses.ListExpenses(ctx, householdID)
}

// Suggest proposes a category for the description based on the
// household's past expenses.
func (s *LedgerService) Suggest(ctx context.Context, householdID, description string) (string, error) {
	history, err := s.ListExpenses(ctx, householdID)
	if err != nil {
		return "", err
	}
	return core.SuggestCategory(description, history), nil
}

// Chart returns the bucketed series for the chart view.
func (s *LedgerService) Chart(ctx context.Context, householdID string, g core.Granularity) ([]core.TimeBucket, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	expenses, err := s.ListExpenses(ctx, householdID)
	if err != nil {
		return nil, err
	}
	return core.Bucket(expenses, g), nil
}

// InsightReport bundles the period breakdown with the per-currency
// partition.
type InsightReport struct {
	Period     core.Period
	Since      core.Date
	Overall    core.Insight
	ByCurrency []core.CurrencyInsight
}

// Insights computes the weekly or monthly breakdown as of now.
func (s *LedgerService) Insights(ctx context.Context, householdID string, p core.Period) (InsightReport, error) {
	if !p.IsValid() {
		return InsightReport{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
	expenses, err := s.ListExpenses(ctx, householdID)
	if err != nil {
		return InsightReport{}, err
	}

	now := time.Now()
	return InsightReport{
		Period:     p,
		Since:      core.Date{Time: core.PeriodStart(p, now)},
		Overall:    core.Insights(expenses, p, now),
		ByCurrency: core.InsightsByCurrency(expenses, p, now),
	}, nil
}

// Watch exposes the store's full-snapshot subscription.
func (s *LedgerService) Watch(ctx context.Context, householdID string) (<-chan []core.Expense, error) {
	if _, err := s.households.GetHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	return s.watcher.WatchExpenses(ctx, householdID)
}
