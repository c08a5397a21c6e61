// Package sheets defines the outbound port for mirroring expenses to a
// spreadsheet ledger.
package sheets

import (
	"context"

	"casaspese/internal/core"
)

// ExpenseWriter appends an expense as a ledger row and returns a
// reference to the written row.
type ExpenseWriter interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
