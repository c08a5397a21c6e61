package core

import (
	"strconv"
	"testing"
	"time"
)

func TestNewInviteCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewInviteCode()
		if !ValidInviteCode(code) {
			t.Fatalf("invalid invite code %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("code %q out of range", code)
		}
	}
}

func TestValidInviteCode(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"123456", true},
		{"100000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidInviteCode(tc.code); got != tc.ok {
			t.Errorf("ValidInviteCode(%q) = %v, want %v", tc.code, got, tc.ok)
		}
	}
}

func TestHouseholdValidate(t *testing.T) {
	good := Household{Name: "Casa", InviteCode: "123456", CreatedBy: "A", Members: []string{"A"}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Household{
		{Name: "  ", InviteCode: "123456", CreatedBy: "A"},
		{Name: "Casa", InviteCode: "123456", CreatedBy: ""},
		{Name: "Casa", InviteCode: "12", CreatedBy: "A"},
	}
	for i, h := range bads {
		if err := h.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestHouseholdHasMember(t *testing.T) {
	h := Household{Members: []string{"A", "B"}}
	if !h.HasMember("B") || h.HasMember("C") {
		t.Fatal("HasMember misbehaves")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 6, 1),
		Description: "coffee",
		Amount:      Money{Cents: 350},
		Category:    "Restaurants",
		User:        "A",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{}, Description: "a", Amount: Money{Cents: 1}, Category: "c", User: "u"},
		{Date: NewDate(2025, 1, 1), Description: " ", Amount: Money{Cents: 1}, Category: "c", User: "u"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: "c", User: "u"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: "", User: "u"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: "c", User: ""},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2025 || d.Month() != time.June || d.Day() != 9 {
		t.Fatalf("parsed wrong date: %v", d)
	}
	if d.String() != "2025-06-09" {
		t.Fatalf("String() = %q", d.String())
	}

	if _, err := ParseDate("09/06/2025"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestDateKeys(t *testing.T) {
	d := NewDate(2025, 6, 9)
	if d.DayKey() != "2025-06-09" || d.MonthKey() != "2025-06" {
		t.Fatalf("keys: %q, %q", d.DayKey(), d.MonthKey())
	}
}

func TestCurrencyOrDefault(t *testing.T) {
	if got := (Expense{}).CurrencyOrDefault(); got != "USD" {
		t.Fatalf("default currency = %q", got)
	}
	if got := (Expense{Currency: "EUR"}).CurrencyOrDefault(); got != "EUR" {
		t.Fatalf("currency = %q", got)
	}
}

func TestSortExpenses(t *testing.T) {
	first := Expense{ID: "1", Date: NewDate(2025, 6, 1)}
	second := Expense{ID: "2", Date: NewDate(2025, 6, 3)}
	third := Expense{ID: "3", Date: NewDate(2025, 6, 3)}

	expenses := []Expense{first, second, third}
	SortExpenses(expenses)

	// Newest first; creation order kept for the shared date.
	if expenses[0].ID != "2" || expenses[1].ID != "3" || expenses[2].ID != "1" {
		t.Fatalf("unexpected order: %s %s %s", expenses[0].ID, expenses[1].ID, expenses[2].ID)
	}
}
