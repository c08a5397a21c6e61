package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"casaspese/internal/core"
	"casaspese/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedHousehold(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateHousehold(context.Background(), core.Household{
		ID:         id,
		Name:       "Casa",
		InviteCode: "654321",
		Members:    []string{"A", "B"},
		CreatedBy:  "A",
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seed household: %v", err)
	}
}

func TestHouseholdRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "h1")

	h, err := s.GetHousehold(ctx, "h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if h.Name != "Casa" || h.InviteCode != "654321" {
		t.Fatalf("household = %+v", h)
	}
	if len(h.Members) != 2 || h.Members[0] != "A" || h.Members[1] != "B" {
		t.Fatalf("members = %v", h.Members)
	}

	byCode, err := s.FindHouseholdByInviteCode(ctx, "654321")
	if err != nil || byCode.ID != "h1" {
		t.Fatalf("find by code: %v %+v", err, byCode)
	}

	if _, err := s.GetHousehold(ctx, "missing"); !errors.Is(err, store.ErrHouseholdNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddMemberKeepsJoinOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "h1")

	if err := s.AddMember(ctx, "h1", "C"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMember(ctx, "h1", "C"); err != nil {
		t.Fatal(err) // repeated join is a no-op
	}

	h, _ := s.GetHousehold(ctx, "h1")
	if len(h.Members) != 3 || h.Members[2] != "C" {
		t.Fatalf("members = %v", h.Members)
	}
}

func TestExpenseOrderAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "h1")

	dates := []core.Date{
		core.NewDate(2025, 6, 2),
		core.NewDate(2025, 6, 5),
		core.NewDate(2025, 6, 5),
	}
	for i, d := range dates {
		err := s.AppendExpense(ctx, core.Expense{
			ID:          []string{"e1", "e2", "e3"}[i],
			HouseholdID: "h1",
			Amount:      core.Money{Cents: int64(100 * (i + 1))},
			Description: "x",
			Category:    "Other",
			Date:        d,
			User:        "A",
			Currency:    "EUR",
			CreatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	list, err := s.ListExpenses(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"e2", "e3", "e1"}
	for i, id := range want {
		if list[i].ID != id {
			t.Fatalf("position %d: got %q, want %q", i, list[i].ID, id)
		}
	}
	if list[0].Currency != "EUR" || list[0].Amount.Cents != 200 {
		t.Fatalf("row fields lost: %+v", list[0])
	}

	got, err := s.GetExpense(ctx, "h1", "e3")
	if err != nil || got.Date.String() != "2025-06-05" {
		t.Fatalf("get expense: %v %+v", err, got)
	}
	if _, err := s.GetExpense(ctx, "h1", "nope"); !errors.Is(err, store.ErrExpenseNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAppendExpenseUnknownHousehold(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendExpense(context.Background(), core.Expense{
		ID:          "e1",
		HouseholdID: "missing",
		Amount:      core.Money{Cents: 100},
		Description: "x",
		Category:    "Other",
		Date:        core.NewDate(2025, 6, 1),
		User:        "A",
	})
	if !errors.Is(err, store.ErrHouseholdNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWatchExpensesDeliversSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seedHousehold(t, s, "h1")

	ch, err := s.WatchExpenses(ctx, "h1")
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-ch:
		if len(got) != 0 {
			t.Fatalf("initial snapshot = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	err = s.AppendExpense(ctx, core.Expense{
		ID: "e1", HouseholdID: "h1", Amount: core.Money{Cents: 100},
		Description: "x", Category: "Other", Date: core.NewDate(2025, 6, 1),
		User: "A", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-ch:
		if len(got) != 1 || got[0].ID != "e1" {
			t.Fatalf("change snapshot = %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no change snapshot")
	}
}
