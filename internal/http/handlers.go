package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"casaspese/internal/core"
	"casaspese/internal/currency"
	"casaspese/internal/metrics"
)

type createHouseholdRequest struct {
	Name string `json:"name"`
	User string `json:"user"`
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h, err := s.svc.CreateHousehold(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.User))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHouseholdResponse(h))
}

type joinHouseholdRequest struct {
	Code string `json:"code"`
	User string `json:"user"`
}

func (s *Server) handleJoinHousehold(w http.ResponseWriter, r *http.Request) {
	var req joinHouseholdRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h, err := s.svc.JoinHousehold(r.Context(), strings.TrimSpace(req.Code), strings.TrimSpace(req.User))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseholdResponse(h))
}

func (s *Server) handleGetHousehold(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.Household(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseholdResponse(h))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.ListExpenses(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseList(expenses))
}

type createExpenseRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	User        string      `json:"user"`
	Currency    string      `json:"currency"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}
	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if req.Currency != "" && !currency.Valid(req.Currency) {
		writeError(w, http.StatusBadRequest, "unsupported currency: "+req.Currency)
		return
	}

	e, err := s.svc.AddExpense(r.Context(), core.Expense{
		HouseholdID: r.PathValue("id"),
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Date:        date,
		User:        strings.TrimSpace(req.User),
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.ExpensesCreated.Inc()
	s.invalidateHousehold(e.HouseholdID)
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	householdID := r.PathValue("id")
	g := core.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = core.GranularityDaily
	}

	cacheKey := householdID + "/chart/" + string(g)
	buckets, ok := s.chartCache.Get(cacheKey)
	if !ok {
		var err error
		buckets, err = s.svc.Chart(r.Context(), householdID, g)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		s.chartCache.Set(cacheKey, buckets)
	}

	out := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, bucketResponse{
			Key:        b.Key,
			Total:      b.Total.Units(),
			TotalCents: b.Total.Cents,
			Count:      b.Count,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"granularity": string(g),
		"buckets":     out,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	householdID := r.PathValue("id")
	p := core.Period(r.URL.Query().Get("period"))
	if p == "" {
		p = core.PeriodWeekly
	}

	cacheKey := householdID + "/insights/" + string(p)
	report, ok := s.insightCache.Get(cacheKey)
	if !ok {
		var err error
		report, err = s.svc.Insights(r.Context(), householdID, p)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		s.insightCache.Set(cacheKey, report)
	}
	writeJSON(w, http.StatusOK, toInsightsResponse(report))
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	description := r.URL.Query().Get("description")
	if strings.TrimSpace(description) == "" {
		writeError(w, http.StatusBadRequest, "missing description query parameter")
		return
	}

	category, err := s.svc.Suggest(r.Context(), r.PathValue("id"), description)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"description": description,
		"category":    category,
	})
}

func (s *Server) handleCurrencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, currency.Currencies)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.DefaultCategories)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
