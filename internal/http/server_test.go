package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"casaspese/internal/config"
	applog "casaspese/internal/log"
	"casaspese/internal/services"
	"casaspese/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st := memory.New()
	svc := services.NewLedgerService(st, st, st, nil)
	cfg := &config.Config{
		Port:               "0",
		DataBackend:        "memory",
		RateLimitPerMinute: 10000,
		CacheTTL:           time.Minute,
	}
	s := NewServer(svc, cfg, applog.Setup("text", "error"))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func createTestHousehold(t *testing.T, baseURL string) householdResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/households", map[string]string{
		"name": "Casa Test",
		"user": "anna",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create household status = %d", resp.StatusCode)
	}
	return decodeBody[householdResponse](t, resp)
}

func addTestExpense(t *testing.T, baseURL, householdID string, body map[string]any) expenseResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/api/households/"+householdID+"/expenses", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create expense status = %d", resp.StatusCode)
	}
	return decodeBody[expenseResponse](t, resp)
}

func TestCreateHousehold(t *testing.T) {
	_, ts := newTestServer(t)

	h := createTestHousehold(t, ts.URL)
	if h.ID == "" {
		t.Error("missing household id")
	}
	if len(h.InviteCode) != 6 {
		t.Errorf("invite code = %q", h.InviteCode)
	}
	if len(h.Members) != 1 || h.Members[0] != "anna" {
		t.Errorf("members = %v", h.Members)
	}
}

func TestCreateHouseholdValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/households", map[string]string{"name": "", "user": "anna"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank name status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestJoinHousehold(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	resp := postJSON(t, ts.URL+"/api/households/join", map[string]string{
		"code": h.InviteCode,
		"user": "bruno",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	joined := decodeBody[householdResponse](t, resp)
	if len(joined.Members) != 2 {
		t.Errorf("members = %v", joined.Members)
	}

	resp = postJSON(t, ts.URL+"/api/households/join", map[string]string{
		"code": "000000",
		"user": "carla",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown code status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/households/join", map[string]string{
		"code": "12ab",
		"user": "carla",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed code status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetHousehold(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	resp, err := http.Get(ts.URL + "/api/households/" + h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[householdResponse](t, resp)
	if got.Name != "Casa Test" {
		t.Errorf("name = %q", got.Name)
	}

	resp, err = http.Get(ts.URL + "/api/households/nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing household status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateAndListExpenses(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	e := addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount":      "12.50",
		"description": "pizza margherita",
		"category":    "Restaurants",
		"date":        "2026-08-20",
		"user":        "anna",
		"currency":    "eur",
	})
	if e.AmountCents != 1250 {
		t.Errorf("amount cents = %d", e.AmountCents)
	}
	if e.Currency != "EUR" {
		t.Errorf("currency = %q", e.Currency)
	}

	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount":      19.99,
		"description": "train tickets",
		"category":    "Transportation",
		"date":        "2026-08-22",
		"user":        "bruno",
	})

	resp, err := http.Get(ts.URL + "/api/households/" + h.ID + "/expenses")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list := decodeBody[[]expenseResponse](t, resp)
	if len(list) != 2 {
		t.Fatalf("list length = %d", len(list))
	}
	// Newest date first.
	if list[0].Date != "2026-08-22" || list[1].Date != "2026-08-20" {
		t.Errorf("order = %s, %s", list[0].Date, list[1].Date)
	}
	if list[1].Amount != 12.5 {
		t.Errorf("amount = %v", list[1].Amount)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"bad amount", map[string]any{"amount": "-5", "description": "x", "category": "Other", "date": "2026-08-20", "user": "anna"}},
		{"bad date", map[string]any{"amount": "5", "description": "x", "category": "Other", "date": "20-08-2026", "user": "anna"}},
		{"empty description", map[string]any{"amount": "5", "description": " ", "category": "Other", "date": "2026-08-20", "user": "anna"}},
		{"unknown currency", map[string]any{"amount": "5", "description": "x", "category": "Other", "date": "2026-08-20", "user": "anna", "currency": "XXX"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/households/"+h.ID+"/expenses", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d", resp.StatusCode)
			}
			resp.Body.Close()
		})
	}
}

func TestChart(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "10", "description": "coffee beans", "category": "Groceries",
		"date": "2026-08-20", "user": "anna",
	})
	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "5", "description": "more coffee", "category": "Groceries",
		"date": "2026-08-20", "user": "anna",
	})

	resp, err := http.Get(ts.URL + "/api/households/" + h.ID + "/chart?granularity=daily")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	chart := decodeBody[struct {
		Granularity string           `json:"granularity"`
		Buckets     []bucketResponse `json:"buckets"`
	}](t, resp)
	if chart.Granularity != "daily" {
		t.Errorf("granularity = %q", chart.Granularity)
	}
	if len(chart.Buckets) != 1 {
		t.Fatalf("buckets = %+v", chart.Buckets)
	}
	b := chart.Buckets[0]
	if b.Key != "2026-08-20" || b.TotalCents != 1500 || b.Count != 2 {
		t.Errorf("bucket = %+v", b)
	}

	resp, err = http.Get(ts.URL + "/api/households/" + h.ID + "/chart?granularity=hourly")
	if err != nil {
		t.Fatalf("bad granularity: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad granularity status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestChartCacheInvalidatedByNewExpense(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	day := time.Now().Format("2006-01-02")
	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "10", "description": "first buy", "category": "Other",
		"date": day, "user": "anna",
	})

	resp, _ := http.Get(ts.URL + "/api/households/" + h.ID + "/chart?granularity=daily")
	first := decodeBody[struct {
		Buckets []bucketResponse `json:"buckets"`
	}](t, resp)
	if len(first.Buckets) != 1 || first.Buckets[0].TotalCents != 1000 {
		t.Fatalf("first chart = %+v", first.Buckets)
	}

	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "2", "description": "second buy", "category": "Other",
		"date": day, "user": "anna",
	})

	resp, _ = http.Get(ts.URL + "/api/households/" + h.ID + "/chart?granularity=daily")
	second := decodeBody[struct {
		Buckets []bucketResponse `json:"buckets"`
	}](t, resp)
	if len(second.Buckets) != 1 || second.Buckets[0].TotalCents != 1200 {
		t.Errorf("cached chart not refreshed: %+v", second.Buckets)
	}
}

func TestInsights(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	today := time.Now().Format("2006-01-02")
	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "30", "description": "concert tickets", "category": "Entertainment",
		"date": today, "user": "anna",
	})
	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "5", "description": "milk and bread", "category": "Groceries",
		"date": today, "user": "bruno",
	})

	resp, err := http.Get(ts.URL + "/api/households/" + h.ID + "/insights?period=monthly")
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	got := decodeBody[insightsResponse](t, resp)
	if got.Period != "monthly" {
		t.Errorf("period = %q", got.Period)
	}
	if got.Total != 35 {
		t.Errorf("total = %v", got.Total)
	}
	if len(got.ByUser) != 2 || got.ByUser[0].User != "anna" {
		t.Errorf("byUser = %+v", got.ByUser)
	}
	if len(got.ByCategory) != 2 || got.ByCategory[0].Category != "Entertainment" {
		t.Errorf("byCategory = %+v", got.ByCategory)
	}
	if len(got.ByCurrency) != 1 || got.ByCurrency[0].Currency != "USD" {
		t.Errorf("byCurrency = %+v", got.ByCurrency)
	}

	resp, err = http.Get(ts.URL + "/api/households/" + h.ID + "/insights?period=yearly")
	if err != nil {
		t.Fatalf("bad period: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad period status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSuggest(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "20", "description": "esselunga weekly shop", "category": "Groceries",
		"date": "2026-08-20", "user": "anna",
	})

	resp, err := http.Get(ts.URL + "/api/households/" + h.ID + "/suggest?description=esselunga+run")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	got := decodeBody[map[string]string](t, resp)
	if got["category"] != "Groceries" {
		t.Errorf("category = %q", got["category"])
	}

	resp, err = http.Get(ts.URL + "/api/households/" + h.ID + "/suggest")
	if err != nil {
		t.Fatalf("missing description: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing description status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCurrenciesAndCategories(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/currencies")
	if err != nil {
		t.Fatalf("currencies: %v", err)
	}
	currencies := decodeBody[[]struct {
		Code   string `json:"code"`
		Symbol string `json:"symbol"`
	}](t, resp)
	if len(currencies) != 22 || currencies[0].Code != "USD" {
		t.Errorf("currencies = %d entries, first %+v", len(currencies), currencies[0])
	}

	resp, err = http.Get(ts.URL + "/api/categories")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	categories := decodeBody[[]string](t, resp)
	if len(categories) == 0 || categories[0] != "Groceries" {
		t.Errorf("categories = %v", categories)
	}
}

func TestHealthzAndHeaders(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestEventsStream(t *testing.T) {
	_, ts := newTestServer(t)
	h := createTestHousehold(t, ts.URL)

	addTestExpense(t, ts.URL, h.ID, map[string]any{
		"amount": "7", "description": "morning espresso", "category": "Restaurants",
		"date": "2026-08-25", "user": "anna",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/households/"+h.ID+"/events", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	// The first event carries the current snapshot.
	reader := bufio.NewReader(resp.Body)
	var data string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}

	var snapshot []expenseResponse
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		t.Fatalf("decode snapshot %q: %v", data, err)
	}
	if len(snapshot) != 1 || snapshot[0].Description != "morning espresso" {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestRateLimit(t *testing.T) {
	st := memory.New()
	svc := services.NewLedgerService(st, st, st, nil)
	cfg := &config.Config{RateLimitPerMinute: 2, CacheTTL: time.Minute}
	s := NewServer(svc, cfg, applog.Setup("text", "error"))
	ts := httptest.NewServer(s.Handler())
	defer func() {
		ts.Close()
		s.Close()
	}()

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		last = resp.StatusCode
		resp.Body.Close()
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestUnmatchedRoute(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/nothing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
