package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/services"
	"khata/internal/storage"
)

func newTestServer() *Server {
	summaries := cache.NewLRUCache[core.AccountSummary](10, time.Minute)
	ledger := services.NewLedgerService(storage.NewMemoryRepository(), nil, summaries)
	return NewServer(":0", ledger, nil, 1000)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createAccount(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/accounts", `{"kind":"customer","name":"Ramesh Traders"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: status %d, body %s", rec.Code, rec.Body.String())
	}
	var account struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &account)
	return account.ID
}

func createObligation(t *testing.T, s *Server, accountID, body string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/accounts/"+accountID+"/obligations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create obligation: status %d, body %s", rec.Code, rec.Body.String())
	}
	var obligation struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &obligation)
	return obligation.ID
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer()

	if rec := doJSON(t, s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("/readyz status = %d", rec.Code)
	}
}

func TestPaymentFlow(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	obligationID := createObligation(t, s, accountID,
		`{"kind":"loan","principal":"1000","origin_date":"2024-01-01","method":"none"}`)

	rec := doJSON(t, s, http.MethodPost, "/obligations/"+obligationID+"/transactions",
		`{"amount":"400","date":"2024-02-01","kind":"payment"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("record payment: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/obligations/"+obligationID+"?as_of=2024-03-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get obligation: status %d, body %s", rec.Code, rec.Body.String())
	}
	var statement struct {
		Balance     string `json:"balance"`
		Outstanding string `json:"outstanding"`
		AsOf        string `json:"as_of"`
	}
	decodeBody(t, rec, &statement)
	if statement.Balance != "600" {
		t.Fatalf("balance = %s, want 600", statement.Balance)
	}
	if statement.AsOf != "2024-03-01" {
		t.Fatalf("as_of = %s, want 2024-03-01", statement.AsOf)
	}
}

func TestOverpaymentRejected(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	obligationID := createObligation(t, s, accountID,
		`{"kind":"loan","principal":"1000","origin_date":"2024-01-01"}`)

	rec := doJSON(t, s, http.MethodPost, "/obligations/"+obligationID+"/transactions",
		`{"amount":"1200","date":"2024-02-01","kind":"payment"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("overpayment status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if !strings.Contains(body.Error, "exceeds outstanding") {
		t.Fatalf("error = %q, want mention of outstanding", body.Error)
	}
}

func TestInterestBearingStatement(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	// 10% simple daily on 1000 for 73 days is 20.
	obligationID := createObligation(t, s, accountID,
		`{"kind":"loan","principal":"1000","origin_date":"2024-01-01","rate":"10","method":"simple-daily"}`)

	rec := doJSON(t, s, http.MethodGet, "/obligations/"+obligationID+"?as_of=2024-03-14", "")
	var statement struct {
		AccruedInterest string `json:"accrued_interest"`
		Outstanding     string `json:"outstanding"`
	}
	decodeBody(t, rec, &statement)
	if statement.AccruedInterest != "20" {
		t.Fatalf("accrued_interest = %s, want 20", statement.AccruedInterest)
	}
	if statement.Outstanding != "1020" {
		t.Fatalf("outstanding = %s, want 1020", statement.Outstanding)
	}
}

func TestUnknownAccountIs404(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/accounts/7b1d6a0e-8f4f-4a86-a571-16a9b3a3c8f1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInvalidIDIs400(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/accounts/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAccountSummaryEndpoint(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	obligationID := createObligation(t, s, accountID,
		`{"kind":"loan","principal":"1000","origin_date":"2024-01-01"}`)
	doJSON(t, s, http.MethodPost, "/obligations/"+obligationID+"/transactions",
		`{"amount":"250","date":"2024-02-01","kind":"payment"}`)

	rec := doJSON(t, s, http.MethodGet, "/accounts/"+accountID+"/summary?as_of=2024-03-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body %s", rec.Code, rec.Body.String())
	}
	var summary struct {
		ObligationCount  int    `json:"obligation_count"`
		TotalOutstanding string `json:"total_outstanding"`
		LastPaymentDate  string `json:"last_payment_date"`
	}
	decodeBody(t, rec, &summary)
	if summary.ObligationCount != 1 {
		t.Fatalf("obligation_count = %d, want 1", summary.ObligationCount)
	}
	if summary.TotalOutstanding != "750" {
		t.Fatalf("total_outstanding = %s, want 750", summary.TotalOutstanding)
	}
	if summary.LastPaymentDate != "2024-02-01" {
		t.Fatalf("last_payment_date = %s, want 2024-02-01", summary.LastPaymentDate)
	}
}

func TestStatementCSV(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	obligationID := createObligation(t, s, accountID,
		`{"kind":"sale","principal":"500","origin_date":"2024-01-01"}`)
	doJSON(t, s, http.MethodPost, "/obligations/"+obligationID+"/transactions",
		`{"amount":"200","date":"2024-01-15","kind":"payment","note":"cash"}`)

	rec := doJSON(t, s, http.MethodGet, "/accounts/"+accountID+"/statement.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("statement status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("Content-Type = %s, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines: %q", len(lines), lines)
	}
	if !strings.Contains(lines[1], "200.00") || !strings.Contains(lines[1], "cash") {
		t.Fatalf("row = %q, want amount 200.00 and note cash", lines[1])
	}
}

func TestChequeClearEndpoint(t *testing.T) {
	s := newTestServer()
	accountID := createAccount(t, s)
	obligationID := createObligation(t, s, accountID,
		`{"kind":"bill","principal":"1000","origin_date":"2024-01-01"}`)

	body := fmt.Sprintf(`{"account_id":%q,"obligation_id":%q,"number":"000777","bank":"SBI","amount":"300","issue_date":"2024-01-05","due_date":"2024-02-05"}`,
		accountID, obligationID)
	rec := doJSON(t, s, http.MethodPost, "/cheques", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cheque: status %d, body %s", rec.Code, rec.Body.String())
	}
	var cheque struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, rec, &cheque)
	if cheque.Status != "pending" {
		t.Fatalf("status = %s, want pending", cheque.Status)
	}

	rec = doJSON(t, s, http.MethodPost, "/cheques/"+cheque.ID+"/clear", `{"date":"2024-02-05"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear cheque: status %d, body %s", rec.Code, rec.Body.String())
	}

	// The cleared cheque paid down the obligation.
	rec = doJSON(t, s, http.MethodGet, "/obligations/"+obligationID+"?as_of=2024-02-05", "")
	var statement struct {
		Balance string `json:"balance"`
	}
	decodeBody(t, rec, &statement)
	if statement.Balance != "700" {
		t.Fatalf("balance = %s, want 700 after cheque clear", statement.Balance)
	}

	// Clearing twice is an invalid transition.
	rec = doJSON(t, s, http.MethodPost, "/cheques/"+cheque.ID+"/clear", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double clear: status %d, want 400", rec.Code)
	}
}

func TestExpenseEndpoints(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/expenses",
		`{"date":"2024-05-03","description":"tea","amount":"30","category":"shop"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/expenses/overview?year=2024&month=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d", rec.Code)
	}
	var overview struct {
		Total      string `json:"total"`
		ByCategory []struct {
			Name string `json:"name"`
		} `json:"by_category"`
	}
	decodeBody(t, rec, &overview)
	if overview.Total != "30" {
		t.Fatalf("total = %s, want 30", overview.Total)
	}
	if len(overview.ByCategory) != 1 || overview.ByCategory[0].Name != "shop" {
		t.Fatalf("by_category = %+v, want one shop entry", overview.ByCategory)
	}
}
