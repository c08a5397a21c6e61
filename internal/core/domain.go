package core

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is assumed when an expense carries no currency code.
const DefaultCurrency = "USD"

// DefaultCategories is the fixed vocabulary offered by the expense form.
// The suggestion engine may return labels outside this set when the
// household's history already contains them.
var DefaultCategories = []string{
	"Groceries",
	"Restaurants",
	"Transportation",
	"Utilities",
	"Entertainment",
	"Shopping",
	"Healthcare",
	"Cigarettes",
	"Other",
}

type (
	// Date is a calendar date. Time-of-day is always midnight and is
	// never used for bucketing or period comparisons.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Household is a named group of users sharing one expense ledger.
	// Members are display names in join order; they are never removed.
	Household struct {
		ID         string
		Name       string
		InviteCode string
		Members    []string
		CreatedBy  string
		CreatedAt  time.Time
	}

	// Expense is a single ledger entry. CreatedAt is the record
	// timestamp and is distinct from Date, the day the money was spent.
	Expense struct {
		ID          string
		HouseholdID string
		Amount      Money
		Description string
		Category    string
		Date        Date
		User        string
		Currency    string
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyUser         = errors.New("empty user name")
	ErrEmptyHouseholdName = errors.New("empty household name")
	ErrInvalidInviteCode = errors.New("invalid invite code")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day at local midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// ParseDate parses a YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// DayKey returns the daily bucket key (YYYY-MM-DD).
func (d Date) DayKey() string {
	return d.Format(dateLayout)
}

// MonthKey returns the monthly bucket key (YYYY-MM).
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewInviteCode returns a random 6-digit numeric code in [100000, 999999].
// Uniqueness across households is expected, not enforced.
func NewInviteCode() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// ValidInviteCode reports whether s looks like a 6-digit invite code.
func ValidInviteCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (h Household) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyHouseholdName
	}
	if strings.TrimSpace(h.CreatedBy) == "" {
		return ErrEmptyUser
	}
	if !ValidInviteCode(h.InviteCode) {
		return ErrInvalidInviteCode
	}
	return nil
}

// HasMember reports whether name is already part of the household.
func (h Household) HasMember(name string) bool {
	for _, m := range h.Members {
		if m == name {
			return true
		}
	}
	return false
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.User) == "" {
		return ErrEmptyUser
	}
	return nil
}

// CurrencyOrDefault returns the expense currency, falling back to USD.
func (e Expense) CurrencyOrDefault() string {
	if strings.TrimSpace(e.Currency) == "" {
		return DefaultCurrency
	}
	return e.Currency
}

// SortExpenses orders expenses for display: date descending, creation
// order preserved within the same day.
func SortExpenses(expenses []Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Date.After(expenses[j].Date.Time)
	})
}
