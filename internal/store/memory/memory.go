// Package memory provides the in-memory ledger backend. It is the
// default for local development and the fixture for tests.
package memory

import (
	"context"
	"sync"

	"casaspese/internal/core"
	"casaspese/internal/store"
)

type Store struct {
	mu         sync.Mutex
	households map[string]*core.Household
	expenses   map[string][]core.Expense // householdID -> entries in creation order
	hub        *store.Hub
}

func New() *Store {
	return &Store{
		households: make(map[string]*core.Household),
		expenses:   make(map[string][]core.Expense),
		hub:        store.NewHub(),
	}
}

func (s *Store) CreateHousehold(_ context.Context, h core.Household) error {
	if err := h.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.households[h.ID]; exists {
		return store.ErrDuplicateID
	}
	stored := h
	stored.Members = append([]string(nil), h.Members...)
	s.households[h.ID] = &stored
	return nil
}

func (s *Store) GetHousehold(_ context.Context, id string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[id]
	if !ok {
		return core.Household{}, store.ErrHouseholdNotFound
	}
	return copyHousehold(h), nil
}

func (s *Store) FindHouseholdByInviteCode(_ context.Context, code string) (core.Household, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.households {
		if h.InviteCode == code {
			return copyHousehold(h), nil
		}
	}
	return core.Household{}, store.ErrHouseholdNotFound
}

// AddMember appends a member if not already present. Joining twice is
// not an error.
func (s *Store) AddMember(_ context.Context, householdID, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[householdID]
	if !ok {
		return store.ErrHouseholdNotFound
	}
	if !h.HasMember(member) {
		h.Members = append(h.Members, member)
	}
	return nil
}

func (s *Store) AppendExpense(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.households[e.HouseholdID]; !ok {
		s.mu.Unlock()
		return store.ErrHouseholdNotFound
	}
	s.expenses[e.HouseholdID] = append(s.expenses[e.HouseholdID], e)
	snapshot := s.listLocked(e.HouseholdID)
	s.mu.Unlock()

	s.hub.Publish(e.HouseholdID, snapshot)
	return nil
}

func (s *Store) GetExpense(_ context.Context, householdID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses[householdID] {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, store.ErrExpenseNotFound
}

func (s *Store) ListExpenses(_ context.Context, householdID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(householdID), nil
}

// WatchExpenses emits the current list immediately, then a fresh full
// list on every append, until ctx is cancelled. Subscribing before
// listing means an append racing the setup can only make the first
// delivery newer, never stale.
func (s *Store) WatchExpenses(ctx context.Context, householdID string) (<-chan []core.Expense, error) {
	ch := s.hub.Subscribe(ctx, householdID)

	s.mu.Lock()
	snapshot := s.listLocked(householdID)
	s.mu.Unlock()

	s.hub.Seed(ch, snapshot)
	return ch, nil
}

func (s *Store) listLocked(householdID string) []core.Expense {
	out := append([]core.Expense(nil), s.expenses[householdID]...)
	core.SortExpenses(out)
	return out
}

func copyHousehold(h *core.Household) core.Household {
	out := *h
	out.Members = append([]string(nil), h.Members...)
	return out
}
