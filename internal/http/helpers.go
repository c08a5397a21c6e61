package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"casaspese/internal/core"
	"casaspese/internal/services"
	"casaspese/internal/store"
)

type householdResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	InviteCode string    `json:"inviteCode"`
	Members    []string  `json:"members"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

type expenseResponse struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"householdId"`
	Amount      float64   `json:"amount"`
	AmountCents int64     `json:"amountCents"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	User        string    `json:"user"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
}

type bucketResponse struct {
	Key        string  `json:"key"`
	Total      float64 `json:"total"`
	TotalCents int64   `json:"totalCents"`
	Count      int     `json:"count"`
}

type userAmountResponse struct {
	User   string  `json:"user"`
	Amount float64 `json:"amount"`
}

type categoryAmountResponse struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Percent  float64 `json:"percent,omitempty"`
}

type insightResponse struct {
	Total      float64                  `json:"total"`
	ByUser     []userAmountResponse     `json:"byUser"`
	ByCategory []categoryAmountResponse `json:"byCategory"`
}

type currencyInsightResponse struct {
	Currency string `json:"currency"`
	insightResponse
}

type insightsResponse struct {
	Period string `json:"period"`
	Since  string `json:"since"`
	insightResponse
	ByCurrency []currencyInsightResponse `json:"byCurrency"`
}

func toHouseholdResponse(h core.Household) householdResponse {
	return householdResponse{
		ID:         h.ID,
		Name:       h.Name,
		InviteCode: h.InviteCode,
		Members:    h.Members,
		CreatedBy:  h.CreatedBy,
		CreatedAt:  h.CreatedAt,
	}
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		HouseholdID: e.HouseholdID,
		Amount:      e.Amount.Units(),
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date.String(),
		User:        e.User,
		Currency:    e.CurrencyOrDefault(),
		CreatedAt:   e.CreatedAt,
	}
}

func toExpenseList(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

func toInsightResponse(in core.Insight) insightResponse {
	resp := insightResponse{
		Total:      in.Total.Units(),
		ByUser:     make([]userAmountResponse, 0, len(in.ByUser)),
		ByCategory: make([]categoryAmountResponse, 0, len(in.ByCategory)),
	}
	for _, u := range in.ByUser {
		resp.ByUser = append(resp.ByUser, userAmountResponse{User: u.User, Amount: u.Amount.Units()})
	}
	for _, c := range in.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryAmountResponse{
			Category: c.Name,
			Amount:   c.Amount.Units(),
			Percent:  c.Percent,
		})
	}
	return resp
}

func toInsightsResponse(report services.InsightReport) insightsResponse {
	resp := insightsResponse{
		Period:          string(report.Period),
		Since:           report.Since.String(),
		insightResponse: toInsightResponse(report.Overall),
		ByCurrency:      make([]currencyInsightResponse, 0, len(report.ByCurrency)),
	}
	for _, group := range report.ByCurrency {
		resp.ByCurrency = append(resp.ByCurrency, currencyInsightResponse{
			Currency:        group.Currency,
			insightResponse: toInsightResponse(group.Insight),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain and store errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrHouseholdNotFound),
		errors.Is(err, store.ErrExpenseNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyUser),
		errors.Is(err, core.ErrEmptyHouseholdName),
		errors.Is(err, core.ErrInvalidInviteCode),
		errors.Is(err, services.ErrUnknownGranularity),
		errors.Is(err, services.ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
