// Package worker mirrors recorded expenses to the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"

	"casaspese/internal/amqp"
	"casaspese/internal/sheets"
	"casaspese/internal/store"
)

// ExportWorker consumes expense created events, loads the expense from
// the store and appends it to the ledger sheet.
type ExportWorker struct {
	expenses store.ExpenseStore
	sheet    sheets.ExpenseWriter
}

func NewExportWorker(expenses store.ExpenseStore, sheet sheets.ExpenseWriter) *ExportWorker {
	return &ExportWorker{expenses: expenses, sheet: sheet}
}

// HandleExpenseCreated processes a single event. A missing expense is
// not retried; the sheet append is, since the Sheets API fails
// transiently under quota pressure.
func (w *ExportWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	slog.InfoContext(ctx, "Processing expense created message",
		"id", msg.ID,
		"household_id", msg.HouseholdID)

	expense, err := w.expenses.GetExpense(ctx, msg.HouseholdID, msg.ID)
	if err != nil {
		return fmt.Errorf("load expense %s: %w", msg.ID, err)
	}

	err = retry.Do(
		func() error {
			ref, err := w.sheet.Append(ctx, expense)
			if err != nil {
				return err
			}
			slog.InfoContext(ctx, "Exported expense to ledger",
				"id", expense.ID,
				"sheets_ref", ref,
				"amount_cents", expense.Amount.Cents)
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	return nil
}
