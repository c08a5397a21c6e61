package memory

import (
	"context"
	"testing"
	"time"

	"casaspese/internal/core"
)

func TestAppendAndRows(t *testing.T) {
	s := New()
	e := core.Expense{
		ID:          "e1",
		HouseholdID: "hh",
		Amount:      core.Money{Cents: 1250},
		Description: "weekly shop",
		Category:    "Groceries",
		Date:        core.NewDate(2026, 3, 14),
		User:        "anna",
		CreatedAt:   time.Now(),
	}

	ref, err := s.Append(context.Background(), e)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("row ref = %q", ref)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0].ID != "e1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), core.Expense{}); err == nil {
		t.Error("expected validation error")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid expense stored")
	}
}
