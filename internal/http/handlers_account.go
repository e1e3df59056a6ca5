package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"

	"khata/internal/core"
)

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), core.Account{
		Kind:    core.AccountKind(req.Kind),
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccountView(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	kind := core.AccountKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		badRequest(w, fmt.Sprintf("unknown account kind %q", kind))
		return
	}

	accounts, err := s.ledger.ListAccounts(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, newAccountView(a))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	account, err := s.ledger.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(account))
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	summary, err := s.ledger.AccountSummary(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountSummaryView(id, asOf, summary))
}

// handleAccountStatementCSV streams every transaction of the account as CSV,
// one row per ledger entry, grouped by obligation in origin-date order.
func (s *Server) handleAccountStatementCSV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	ledgers, err := s.ledger.AccountLedgers(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "statement-"+id.String()+".csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"obligation_id", "obligation_kind", "date", "transaction_kind", "amount", "note"})
	for _, ledger := range ledgers {
		for _, t := range ledger.Transactions {
			_ = cw.Write([]string{
				ledger.Obligation.ID.String(),
				string(ledger.Obligation.Kind),
				t.Date.Format(dateLayout),
				string(t.Kind),
				t.Amount.StringFixed(2),
				t.Note,
			})
		}
	}
	cw.Flush()
}
